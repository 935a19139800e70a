package session

import (
	"context"
	"time"
)

// beginGeneration reserves a queue slot and then the single in-flight slot
// for a session. Returns a release func to be deferred. Predict on an
// unknown id reports a dead handle, matching the legacy "model not loaded"
// behavior for freed handles.
func (m *Manager) beginGeneration(ctx context.Context, id string) (*Session, func(), error) {
	m.mu.RLock()
	s := m.sessions[id]
	draining := s != nil && s.State == StateDraining
	m.mu.RUnlock()
	if s == nil || draining {
		return nil, func() {}, notLoadedError{id: id}
	}

	// Try to reserve a queue slot with timeout
	select {
	case s.queueCh <- struct{}{}:
		// reserved queue slot
	case <-ctx.Done():
		return nil, func() {}, ctx.Err()
	case <-time.After(m.cfg.MaxWait):
		return nil, func() {}, busyError{id: id}
	}

	// Wait to acquire the single in-flight slot
	acquired := false
	defer func() {
		if !acquired {
			<-s.queueCh
		}
	}()
	select {
	case s.genCh <- struct{}{}:
		acquired = true
		m.mu.Lock()
		s.LastUsed = time.Now()
		s.State = StateGenerating
		m.mu.Unlock()
		return s, func() {
			m.mu.Lock()
			if s.State == StateGenerating {
				s.State = StateIdle
			}
			m.mu.Unlock()
			<-s.genCh
			<-s.queueCh
		}, nil
	case <-ctx.Done():
		return nil, func() {}, ctx.Err()
	case <-time.After(m.cfg.MaxWait):
		return nil, func() {}, busyError{id: id}
	}
}
