package app_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"cx-lms-service/internal/app"
	"cx-lms-service/internal/domain"
	"cx-lms-service/internal/infra/memory"
)

var errSinkDown = errors.New("sink down")

// recordingSink counts saves, fails the first `failures` calls and can block until released.
type recordingSink struct {
	mu       sync.Mutex
	saved    []domain.QuizResponse
	calls    int
	failures int
	entered  chan struct{}
	release  chan struct{}
}

func (s *recordingSink) SaveQuizResponse(_ context.Context, _, _ string, resp domain.QuizResponse) error {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures > 0 {
		s.failures--
		return errSinkDown
	}
	s.saved = append(s.saved, resp)
	return nil
}

func (s *recordingSink) counts() (calls, saved int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, len(s.saved)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func noShuffle(int, func(i, j int)) {}

// bankOf builds n questions for module 1 whose correct option is always "right".
func bankOf(n int) app.QuestionBank {
	questions := make([]domain.QuizQuestion, n)
	for i := range questions {
		questions[i] = domain.QuizQuestion{
			ID:         i + 1,
			Module:     1,
			Question:   "Question",
			Options:    []string{"right", "wrong"},
			Correct:    "right",
			Difficulty: domain.Foundational,
		}
	}
	return memory.NewQuestionRepository(memory.NewStaticQuestionLoader(questions), time.Minute)
}

func newTestSession(bank app.QuestionBank, sink app.ResponseSink, clock *fakeClock, limit time.Duration) *app.QuizSession {
	return app.NewQuizSession("learner-1", bank, sink, app.SessionOptions{
		TimeLimit:    limit,
		TickInterval: time.Hour,
		Now:          clock.Now,
		Shuffle:      noShuffle,
	})
}
