package session

import (
	"sync"
	"time"

	"github.com/RishiAhuja/android-llama-inference/internal/backend"
	"github.com/RishiAhuja/android-llama-inference/pkg/types"
)

type Manager struct {
	mu      sync.RWMutex
	runtime backend.Runtime

	// runtimeRefs counts sessions holding a loaded model. The compute
	// runtime initializes on the 0->1 transition and frees on 1->0.
	runtimeRefs int

	sessions  map[string]*Session
	registry  []types.Model
	usedEstMB int
	loads     uint64

	cfg       Config
	publisher EventPublisher
	startTime time.Time
}

// New constructs a Manager over the given compute runtime with defaults
// applied to cfg.
func New(rt backend.Runtime, cfg Config) *Manager {
	cfg.applyDefaults()
	return &Manager{
		runtime:   rt,
		sessions:  make(map[string]*Session),
		registry:  cfg.Registry,
		cfg:       cfg,
		publisher: cfg.Publisher,
		startTime: time.Now(),
	}
}

// Ready reports whether at least one session holds a loaded model.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.State == StateIdle || s.State == StateGenerating {
			return true
		}
	}
	return false
}

// ListModels returns the registry contents.
func (m *Manager) ListModels() []types.Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// return a shallow copy to avoid external mutation
	out := make([]types.Model, len(m.registry))
	copy(out, m.registry)
	return out
}

// BackendActive reports whether the compute runtime is initialized.
func (m *Manager) BackendActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runtimeRefs > 0
}

// Close unloads every session. Used on shutdown.
func (m *Manager) Close() error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	var firstErr error
	for _, id := range ids {
		if err := m.Unload(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ModelInfo returns registry metadata for a model id, falling back to a
// path-only entry for sessions loaded from a direct file path.
func (m *Manager) ModelInfo(id string) types.Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if mdl, ok := m.getModelByID(id); ok {
		return mdl
	}
	return types.Model{ID: id, Path: id}
}

// Helper: find model in registry by id.
func (m *Manager) getModelByID(id string) (types.Model, bool) {
	for _, mdl := range m.registry {
		if mdl.ID == id {
			return mdl, true
		}
	}
	return types.Model{}, false
}
