package redis

import (
	"context"
	"sync"
	"time"

	"cx-lms-service/internal/app"

	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions, their timers and subscribers stay in process; Redis only carries a
// liveness marker per learner so other instances can see who is mid-quiz.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.QuizSession
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
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
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(learnerID), "1", s.ttl).Err()
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
	_ = s.client.Del(context.Background(), s.key(learnerID)).Err()
}

func (s *SessionStore) key(learnerID string) string {
	return "lms:quiz:session:" + learnerID
}
