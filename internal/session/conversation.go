package session

import (
	"time"
)

// Reset clears the conversation without touching the loaded model: cache
// contents, position cursor, transcript, and the sampler's bookkeeping and
// random stream all return to their post-load state. Valid only while the
// session is idle; a generating session reports busy.
func (m *Manager) Reset(id string) error {
	m.mu.RLock()
	s := m.sessions[id]
	m.mu.RUnlock()
	if s == nil {
		return sessionNotFoundError{id: id}
	}
	select {
	case s.genCh <- struct{}{}:
	default:
		return busyError{id: id}
	}
	defer func() { <-s.genCh }()

	s.lctx.Clear()
	s.sampler.Reset()
	m.mu.Lock()
	s.cursor = 0
	s.history = nil
	s.fresh = true
	s.LastUsed = time.Now()
	m.mu.Unlock()
	m.publisher.Publish(Event{Name: "reset_done", Session: id, Fields: map[string]any{}})
	return nil
}

// Unload initiates a graceful drain of a session and removes it.
//   - Sets session state to draining to reject new enqueues.
//   - Waits up to DrainTimeout for in-flight and queued requests to finish.
//   - Releases the context, the model, and (when this was the last session)
//     the process-wide compute runtime.
func (m *Manager) Unload(id string) error {
	m.mu.Lock()
	s := m.sessions[id]
	if s == nil {
		m.mu.Unlock()
		return sessionNotFoundError{id: id}
	}
	s.State = StateDraining
	m.mu.Unlock()
	m.publisher.Publish(Event{Name: "unload_start", Session: id, Fields: map[string]any{}})

	deadline := time.Now().Add(m.cfg.DrainTimeout)
	for {
		qlen := len(s.queueCh)
		inflight := len(s.genCh)
		if inflight == 0 && qlen == 0 {
			break
		}
		if time.Now().After(deadline) {
			m.publisher.Publish(Event{Name: "unload_timeout", Session: id, Fields: map[string]any{"inflight": inflight, "queue": qlen}})
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.lctx.Close()
	s.model.Close()

	m.mu.Lock()
	m.usedEstMB -= s.EstMB
	if m.usedEstMB < 0 {
		m.usedEstMB = 0
	}
	delete(m.sessions, id)
	m.runtimeRefs--
	last := m.runtimeRefs == 0
	if last {
		m.runtime.Free()
		backendActive.Set(0)
	}
	m.mu.Unlock()

	activeSessions.Dec()
	m.publisher.Publish(Event{Name: "unload_done", Session: id, Fields: map[string]any{"backend_freed": last}})
	return nil
}
