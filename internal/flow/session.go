package flow

import (
	"sync"

	"github.com/olkaphoto/concierge/internal/models"
)

// Session is the transient per-user state of an in-progress survey: the
// current step plus the accumulating partial lead. It lives only in memory
// and is discarded on cancel, completion or restart.
type Session struct {
	State models.SurveyState
	Draft models.LeadDraft
}

// SessionManager keeps at most one survey session per user.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewSessionManager creates an empty session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[int64]*Session)}
}

// Begin discards any existing session for the user and starts a fresh one
// at the given state.
func (m *SessionManager) Begin(userID int64, state models.SurveyState) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Session{State: state}
	m.sessions[userID] = s
	return s
}

// Get returns the user's session, or nil when no survey is active.
func (m *SessionManager) Get(userID int64) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[userID]
}

// Clear removes the user's session.
func (m *SessionManager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// Active reports whether a survey is in progress for the user.
func (m *SessionManager) Active(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	return ok && s.State != models.SurveyStateNone
}
