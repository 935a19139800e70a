package session

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/RishiAhuja/android-llama-inference/internal/backend"
	"github.com/RishiAhuja/android-llama-inference/internal/prompt"
	"github.com/RishiAhuja/android-llama-inference/internal/sampling"
	"github.com/RishiAhuja/android-llama-inference/pkg/types"
)

// LoadSpec names the model to load, either by registry id or by direct
// file path, and whether to offload layers to the GPU.
type LoadSpec struct {
	ModelID string
	Path    string
	UseGPU  bool
}

// Load loads a model into a new session and returns its status. The
// compute runtime initializes on the first load. On failure nothing is
// retained: no session entry, no runtime reference, no budget reservation.
func (m *Manager) Load(ctx context.Context, spec LoadSpec) (types.SessionStatus, error) {
	path := spec.Path
	modelID := spec.ModelID
	if path == "" {
		mdl, ok := m.getModelByID(modelID)
		if !ok {
			return types.SessionStatus{}, modelNotFoundError{id: modelID}
		}
		path = mdl.Path
	}
	if modelID == "" {
		modelID = path
	}
	if err := ctx.Err(); err != nil {
		return types.SessionStatus{}, err
	}

	est := estimateMemoryMB(path)

	m.mu.Lock()
	if m.cfg.BudgetMB > 0 && m.usedEstMB+est > m.cfg.BudgetMB-m.cfg.MarginMB {
		m.mu.Unlock()
		loadsTotal.WithLabelValues("rejected").Inc()
		return types.SessionStatus{}, ErrContextAlloc(fmt.Sprintf(
			"memory budget exceeded: used %dMB + model %dMB > budget %dMB", m.usedEstMB, est, m.cfg.BudgetMB))
	}
	if m.runtimeRefs == 0 {
		if err := m.runtime.Init(); err != nil {
			m.mu.Unlock()
			loadsTotal.WithLabelValues("error").Inc()
			if backend.IsUnavailable(err) {
				return types.SessionStatus{}, err
			}
			return types.SessionStatus{}, ErrModelLoad("backend init: " + err.Error())
		}
		backendActive.Set(1)
	}
	m.runtimeRefs++
	m.usedEstMB += est
	m.mu.Unlock()

	m.publisher.Publish(Event{Name: "load_start", Session: modelID, Fields: map[string]any{"gpu": spec.UseGPU}})

	rollback := func() {
		m.mu.Lock()
		m.runtimeRefs--
		m.usedEstMB -= est
		if m.usedEstMB < 0 {
			m.usedEstMB = 0
		}
		if m.runtimeRefs == 0 {
			m.runtime.Free()
			backendActive.Set(0)
		}
		m.mu.Unlock()
	}

	gpuLayers := 0
	threads := m.cfg.Threads
	if spec.UseGPU {
		gpuLayers = m.cfg.GPULayers
		// GPU work dominates when layers are offloaded, so fewer CPU
		// threads are needed.
		if threads > 1 {
			threads = threads / 2
		}
	}

	mdl, err := m.runtime.LoadModel(path, backend.ModelOptions{
		GPULayers: gpuLayers,
		UseMmap:   m.cfg.UseMmap,
	})
	if err != nil {
		rollback()
		loadsTotal.WithLabelValues("error").Inc()
		m.publisher.Publish(Event{Name: "load_failed", Session: modelID, Fields: map[string]any{"error": err.Error()}})
		if backend.IsUnavailable(err) {
			return types.SessionStatus{}, err
		}
		return types.SessionStatus{}, ErrModelLoad(err.Error())
	}

	lctx, err := m.runtime.NewContext(mdl, backend.ContextOptions{
		ContextWindow: m.cfg.ContextWindow,
		BatchCapacity: m.cfg.BatchCapacity,
		Threads:       threads,
		BatchThreads:  m.cfg.Threads,
	})
	if err != nil {
		mdl.Close()
		rollback()
		loadsTotal.WithLabelValues("error").Inc()
		m.publisher.Publish(Event{Name: "load_failed", Session: modelID, Fields: map[string]any{"error": err.Error()}})
		return types.SessionStatus{}, ErrContextAlloc(err.Error())
	}

	s := &Session{
		ID:        uuid.NewString(),
		ModelID:   modelID,
		State:     StateIdle,
		GPU:       spec.UseGPU,
		LastUsed:  time.Now(),
		EstMB:     est,
		model:     mdl,
		lctx:      lctx,
		batch:     backend.NewBatch(m.cfg.BatchCapacity),
		sampler:   sampling.New(sampling.DefaultOptions(m.cfg.SamplerSeed)),
		formatter: prompt.NewFormatter(mdl),
		fresh:     true,
		genCh:     make(chan struct{}, 1),
		queueCh:   make(chan struct{}, m.cfg.MaxQueueDepth),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.loads++
	m.mu.Unlock()

	activeSessions.Inc()
	loadsTotal.WithLabelValues("ok").Inc()
	m.publisher.Publish(Event{Name: "load_done", Session: s.ID, Fields: map[string]any{"model": modelID}})
	return m.statusOf(s), nil
}

// estimateMemoryMB estimates resident memory from file size. Returns a
// conservative 1MB minimum when the file cannot be statted, so budget
// checks are never bypassed by an unknown size.
func estimateMemoryMB(path string) int {
	fi, err := os.Stat(path)
	if err != nil {
		return 1
	}
	mb := int(fi.Size() / (1024 * 1024))
	if mb <= 0 {
		mb = 1
	}
	return mb
}
