package memory

import (
	"sync"

	"cx-lms-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.QuizSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.QuizSession),
	}
}

func (s *SessionStore) GetOrCreate(learnerID string, create func() *app.QuizSession) *app.QuizSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[learnerID]; ok {
		return session
	}
	session := create()
	s.sessions[learnerID] = session
	return session
}

func (s *SessionStore) Get(learnerID string) (*app.QuizSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[learnerID]
	return session, ok
}

func (s *SessionStore) Delete(learnerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, learnerID)
}
