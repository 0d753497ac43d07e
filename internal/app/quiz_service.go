package app

import (
	"context"
	"sync"

	"cx-lms-service/internal/domain"

	"go.uber.org/zap"
)

// SessionRepository abstracts where live quiz sessions are tracked (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(learnerID string, create func() *QuizSession) *QuizSession
	Get(learnerID string) (*QuizSession, bool)
	Delete(learnerID string)
}

// QuizService hands out one quiz session per learner.
type QuizService struct {
	sessions SessionRepository
	bank     QuestionBank
	sink     ResponseSink
	opts     SessionOptions
	log      *zap.Logger

	mu      sync.Mutex
	holders map[string]int
}

func NewQuizService(store SessionRepository, bank QuestionBank, sink ResponseSink, opts SessionOptions) *QuizService {
	opts = opts.withDefaults()
	return &QuizService{sessions: store, bank: bank, sink: sink, opts: opts, log: opts.Logger, holders: make(map[string]int)}
}

// Session returns the learner's session, creating it in the entry state if needed.
func (s *QuizService) Session(learnerID string) *QuizSession {
	return s.sessions.GetOrCreate(learnerID, func() *QuizSession {
		return NewQuizSession(learnerID, s.bank, s.sink, s.opts)
	})
}

// Lookup returns an existing session.
func (s *QuizService) Lookup(learnerID string) (*QuizSession, error) {
	session, ok := s.sessions.Get(learnerID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Start begins an attempt for the learner.
func (s *QuizService) Start(ctx context.Context, learnerID, moduleID string, count int) (SessionSnapshot, error) {
	return s.Session(learnerID).Start(ctx, moduleID, count)
}

// Acquire returns the learner's session and registers one more holder of it.
// Every Acquire must be paired with a Release.
func (s *QuizService) Acquire(learnerID string) *QuizSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holders[learnerID]++
	return s.Session(learnerID)
}

// Release drops one holder. When none remain it abandons any active attempt and
// forgets the session; a submit already in flight still completes against the sink.
func (s *QuizService) Release(learnerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.holders[learnerID] - 1; n > 0 {
		s.holders[learnerID] = n
		return
	}
	delete(s.holders, learnerID)

	session, ok := s.sessions.Get(learnerID)
	if !ok {
		return
	}
	session.Abandon()
	s.sessions.Delete(learnerID)
	s.log.Debug("quiz session released", zap.String("learner_id", learnerID))
}
