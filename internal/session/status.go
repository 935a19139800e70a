package session

import (
	"sort"
	"time"

	"github.com/RishiAhuja/android-llama-inference/pkg/types"
)

// SessionStatus returns the status of one session.
func (m *Manager) SessionStatus(id string) (types.SessionStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.sessions[id]
	if s == nil {
		return types.SessionStatus{}, sessionNotFoundError{id: id}
	}
	return m.statusOfLocked(s), nil
}

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resp := types.StatusResponse{
		BudgetMB:      m.cfg.BudgetMB,
		UsedMB:        m.usedEstMB,
		MarginMB:      m.cfg.MarginMB,
		Backend:       m.runtime.Name(),
		BackendActive: m.runtimeRefs > 0,
		UptimeSeconds: int64(time.Since(m.startTime).Seconds()),
		LoadsTotal:    m.loads,
	}
	resp.Sessions = make([]types.SessionStatus, 0, len(m.sessions))
	for _, s := range m.sessions {
		resp.Sessions = append(resp.Sessions, m.statusOfLocked(s))
	}
	sort.Slice(resp.Sessions, func(i, j int) bool {
		return resp.Sessions[i].Session < resp.Sessions[j].Session
	})
	return resp
}

func (m *Manager) statusOf(s *Session) types.SessionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusOfLocked(s)
}

func (m *Manager) statusOfLocked(s *Session) types.SessionStatus {
	return types.SessionStatus{
		Session:        s.ID,
		ModelID:        s.ModelID,
		State:          string(s.State),
		PositionCursor: s.cursor,
		ContextWindow:  m.cfg.ContextWindow,
		GPU:            s.GPU,
		LastUsed:       s.LastUsed.Unix(),
		EstMemoryMB:    s.EstMB,
	}
}
