package app

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"cx-lms-service/internal/domain"
	"cx-lms-service/internal/metrics"
	"cx-lms-service/internal/scoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuizState is a position in the entry → quiz → results → review machine.
type QuizState string

const (
	StateEntry   QuizState = "entry"
	StateQuiz    QuizState = "quiz"
	StateResults QuizState = "results"
	StateReview  QuizState = "review"
)

// autoSubmitAttempts bounds how often a timer-forced submit retries persistence.
const autoSubmitAttempts = 3

// QuestionBank serves a module's question pool.
type QuestionBank interface {
	Questions(ctx context.Context, module int) ([]domain.QuizQuestion, error)
}

// ResponseSink persists a scored attempt; the progress service implements it.
type ResponseSink interface {
	SaveQuizResponse(ctx context.Context, learnerID, moduleID string, resp domain.QuizResponse) error
}

// SessionOptions configures attempts created by a session.
type SessionOptions struct {
	TimeLimit     time.Duration
	QuestionCount int
	TickInterval  time.Duration
	SaveTimeout   time.Duration
	Now           func() time.Time
	// Shuffle defaults to math/rand; tests inject a fixed order.
	Shuffle func(n int, swap func(i, j int))
	Logger  *zap.Logger
	Metrics *metrics.Collectors
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.TimeLimit <= 0 {
		o.TimeLimit = 30 * time.Minute
	}
	if o.QuestionCount <= 0 {
		o.QuestionCount = 10
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.SaveTimeout <= 0 {
		o.SaveTimeout = 5 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Shuffle == nil {
		o.Shuffle = rand.Shuffle
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

type attempt struct {
	id        string
	moduleID  string
	questions []domain.QuizQuestion
	answers   map[int]domain.Answer
	flagged   map[int]struct{}
	startedAt time.Time
	remaining int // seconds
	cursor    int
	// submitting freezes input while a response is being persisted.
	submitting bool
	stopTimer  context.CancelFunc
}

func (a *attempt) question(id int) (domain.QuizQuestion, bool) {
	for _, q := range a.questions {
		if q.ID == id {
			return q, true
		}
	}
	return domain.QuizQuestion{}, false
}

// orderedAnswers lists answers in question order so responses are stable.
func (a *attempt) orderedAnswers() []domain.Answer {
	out := make([]domain.Answer, 0, len(a.answers))
	for _, q := range a.questions {
		if ans, ok := a.answers[q.ID]; ok {
			out = append(out, ans)
		}
	}
	return out
}

// Result is the outcome of a submitted attempt.
type Result struct {
	AttemptID string                `json:"attemptId"`
	ModuleID  string                `json:"moduleId"`
	Trigger   domain.SubmitTrigger  `json:"trigger"`
	Response  domain.QuizResponse   `json:"response"`
	Analysis  scoring.Analysis      `json:"analysis"`
	Questions []domain.QuizQuestion `json:"questions"`
	// Persisted is false only when a timer-forced submit exhausted its retries.
	Persisted bool `json:"persisted"`
}

// QuizSession owns one learner's quiz state machine.
type QuizSession struct {
	learnerID string
	bank      QuestionBank
	sink      ResponseSink
	opts      SessionOptions
	log       *zap.Logger

	mu          sync.Mutex
	state       QuizState
	attempt     *attempt
	result      *Result
	lastError   string
	subscribers map[chan SessionSnapshot]struct{}
}

// NewQuizSession returns a session in the entry state.
func NewQuizSession(learnerID string, bank QuestionBank, sink ResponseSink, opts SessionOptions) *QuizSession {
	opts = opts.withDefaults()
	return &QuizSession{
		learnerID:   learnerID,
		bank:        bank,
		sink:        sink,
		opts:        opts,
		log:         opts.Logger.With(zap.String("learner_id", learnerID)),
		state:       StateEntry,
		subscribers: make(map[chan SessionSnapshot]struct{}),
	}
}

func (s *QuizSession) LearnerID() string { return s.learnerID }

// State returns the current machine state.
func (s *QuizSession) State() QuizState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start draws min(count, available) shuffled questions for moduleID and enters the quiz
// state. A count of zero or less uses the configured default.
func (s *QuizSession) Start(ctx context.Context, moduleID string, count int) (SessionSnapshot, error) {
	number, ok := domain.ModuleNumber(moduleID)
	if !ok {
		return SessionSnapshot{}, domain.ErrInvalidModule
	}
	if count <= 0 {
		count = s.opts.QuestionCount
	}

	s.mu.Lock()
	if s.state != StateEntry {
		s.mu.Unlock()
		return SessionSnapshot{}, domain.ErrInvalidTransition
	}
	s.mu.Unlock()

	pool, err := s.bank.Questions(ctx, number)
	if err != nil && !errors.Is(err, domain.ErrQuestionNotFound) {
		return SessionSnapshot{}, err
	}
	if len(pool) == 0 {
		return SessionSnapshot{}, domain.ErrInvalidModule
	}

	drawn := append([]domain.QuizQuestion(nil), pool...)
	s.opts.Shuffle(len(drawn), func(i, j int) { drawn[i], drawn[j] = drawn[j], drawn[i] })
	if count < len(drawn) {
		drawn = drawn[:count]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEntry {
		return SessionSnapshot{}, domain.ErrInvalidTransition
	}

	timerCtx, stop := context.WithCancel(context.Background())
	a := &attempt{
		id:        uuid.NewString(),
		moduleID:  moduleID,
		questions: drawn,
		answers:   make(map[int]domain.Answer),
		flagged:   make(map[int]struct{}),
		startedAt: s.opts.Now(),
		remaining: int(s.opts.TimeLimit / time.Second),
		stopTimer: stop,
	}
	s.attempt = a
	s.result = nil
	s.lastError = ""
	s.state = StateQuiz
	go s.runTimer(timerCtx, a.id)

	s.opts.Metrics.AttemptStarted()
	s.log.Info("quiz started",
		zap.String("attempt_id", a.id),
		zap.String("module_id", moduleID),
		zap.Int("questions", len(drawn)),
	)
	return s.broadcastLocked(), nil
}

// activeLocked returns the attempt if it accepts input.
func (s *QuizSession) activeLocked() (*attempt, error) {
	if s.state != StateQuiz || s.attempt == nil || s.attempt.submitting {
		return nil, domain.ErrAttemptNotActive
	}
	return s.attempt, nil
}

// SelectAnswer upserts the answer for questionID, keeping any confidence already set.
func (s *QuizSession) SelectAnswer(questionID int, option string) (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.activeLocked()
	if err != nil {
		return SessionSnapshot{}, err
	}
	q, ok := a.question(questionID)
	if !ok {
		return SessionSnapshot{}, domain.ErrQuestionNotFound
	}
	if !q.HasOption(option) {
		return SessionSnapshot{}, domain.ErrInvalidOption
	}

	confidence := domain.ConfidenceMedium
	if prev, ok := a.answers[questionID]; ok {
		confidence = prev.Confidence
	}
	a.answers[questionID] = domain.Answer{QuestionID: questionID, Answer: option, Confidence: confidence}
	return s.broadcastLocked(), nil
}

// SetConfidence changes confidence on an existing answer. With no answer yet it is ignored.
func (s *QuizSession) SetConfidence(questionID int, level domain.Confidence) (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.activeLocked()
	if err != nil {
		return SessionSnapshot{}, err
	}
	if !level.Valid() {
		return SessionSnapshot{}, domain.ErrInvalidConfidence
	}
	if _, ok := a.question(questionID); !ok {
		return SessionSnapshot{}, domain.ErrQuestionNotFound
	}
	ans, ok := a.answers[questionID]
	if !ok {
		return s.snapshotLocked(), nil
	}
	ans.Confidence = level
	a.answers[questionID] = ans
	return s.broadcastLocked(), nil
}

// ToggleFlag flips the flag on questionID.
func (s *QuizSession) ToggleFlag(questionID int) (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.activeLocked()
	if err != nil {
		return SessionSnapshot{}, err
	}
	if _, ok := a.question(questionID); !ok {
		return SessionSnapshot{}, domain.ErrQuestionNotFound
	}
	if _, ok := a.flagged[questionID]; ok {
		delete(a.flagged, questionID)
	} else {
		a.flagged[questionID] = struct{}{}
	}
	return s.broadcastLocked(), nil
}

// Navigate moves the cursor to index, clamped to the attempt's questions.
func (s *QuizSession) Navigate(index int) (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.activeLocked()
	if err != nil {
		return SessionSnapshot{}, err
	}
	if index < 0 {
		index = 0
	}
	if last := len(a.questions) - 1; index > last {
		index = last
	}
	a.cursor = index
	return s.broadcastLocked(), nil
}

// Next and Previous move the cursor by one.
func (s *QuizSession) Next() (SessionSnapshot, error) { return s.step(1) }

func (s *QuizSession) Previous() (SessionSnapshot, error) { return s.step(-1) }

func (s *QuizSession) step(delta int) (SessionSnapshot, error) {
	s.mu.Lock()
	a, err := s.activeLocked()
	if err != nil {
		s.mu.Unlock()
		return SessionSnapshot{}, err
	}
	target := a.cursor + delta
	s.mu.Unlock()
	return s.Navigate(target)
}

// Tick decrements the countdown by one second and auto-submits at zero.
func (s *QuizSession) Tick(ctx context.Context) {
	s.mu.Lock()
	if s.attempt == nil {
		s.mu.Unlock()
		return
	}
	id := s.attempt.id
	s.mu.Unlock()
	s.tick(ctx, id)
}

func (s *QuizSession) tick(ctx context.Context, attemptID string) {
	s.mu.Lock()
	a := s.attempt
	if s.state != StateQuiz || a == nil || a.id != attemptID || a.submitting {
		s.mu.Unlock()
		return
	}
	if a.remaining > 0 {
		a.remaining--
	}
	expired := a.remaining <= 0
	s.broadcastLocked()
	s.mu.Unlock()

	if expired {
		if _, err := s.submit(ctx, domain.SubmitTimer); err != nil {
			s.log.Error("auto-submit failed", zap.String("attempt_id", attemptID), zap.Error(err))
		}
	}
}

func (s *QuizSession) runTimer(ctx context.Context, attemptID string) {
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, attemptID)
		}
	}
}

// Submit scores and persists the active attempt, then enters results. It returns
// (nil, nil) while another submit for the same attempt is in flight, and the stored
// result once the attempt has already been submitted.
func (s *QuizSession) Submit(ctx context.Context) (*Result, error) {
	return s.submit(ctx, domain.SubmitManual)
}

func (s *QuizSession) submit(ctx context.Context, trigger domain.SubmitTrigger) (*Result, error) {
	s.mu.Lock()
	switch s.state {
	case StateResults, StateReview:
		res := s.result
		s.mu.Unlock()
		return res, nil
	case StateEntry:
		s.mu.Unlock()
		return nil, domain.ErrAttemptNotActive
	}
	a := s.attempt
	if a.submitting {
		s.mu.Unlock()
		return nil, nil
	}
	a.submitting = true

	answers := a.orderedAnswers()
	elapsed := s.opts.Now().Sub(a.startedAt).Seconds()
	if len(answers) > 0 {
		per := elapsed / float64(len(answers))
		for i := range answers {
			answers[i].TimeSpent = per
		}
	}
	analysis := scoring.Analyze(a.questions, answers)
	resp := domain.QuizResponse{
		Answers:                 answers,
		CompletedAt:             s.opts.Now(),
		Score:                   analysis.Score,
		ConfidenceAdjustedScore: analysis.Score,
	}
	s.broadcastLocked()
	s.mu.Unlock()

	err := s.persist(ctx, trigger, a.moduleID, resp)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil && trigger == domain.SubmitManual {
		a.submitting = false
		s.lastError = err.Error()
		s.broadcastLocked()
		return nil, err
	}

	a.stopTimer()
	res := &Result{
		AttemptID: a.id,
		ModuleID:  a.moduleID,
		Trigger:   trigger,
		Response:  resp,
		Analysis:  analysis,
		Questions: a.questions,
		Persisted: err == nil,
	}
	s.result = res
	s.state = StateResults
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}

	s.opts.Metrics.AttemptEnded()
	s.opts.Metrics.QuizSubmitted(string(trigger), res.Persisted, resp.Score)
	s.log.Info("quiz submitted",
		zap.String("attempt_id", a.id),
		zap.String("module_id", a.moduleID),
		zap.String("trigger", string(trigger)),
		zap.Int("score", resp.Score),
		zap.Int("answered", len(answers)),
		zap.Bool("persisted", res.Persisted),
	)
	s.broadcastLocked()
	return res, nil
}

// persist writes the response once for manual submits and retries for timer submits,
// which must leave the quiz state even when storage keeps failing.
func (s *QuizSession) persist(ctx context.Context, trigger domain.SubmitTrigger, moduleID string, resp domain.QuizResponse) error {
	attempts := 1
	if trigger == domain.SubmitTimer {
		attempts = autoSubmitAttempts
		// the timer context is canceled once results are reached; detach from it
		ctx = context.WithoutCancel(ctx)
	}
	var err error
	for i := 0; i < attempts; i++ {
		saveCtx, cancel := context.WithTimeout(ctx, s.opts.SaveTimeout)
		err = s.sink.SaveQuizResponse(saveCtx, s.learnerID, moduleID, resp)
		cancel()
		if err == nil {
			return nil
		}
		if trigger == domain.SubmitTimer {
			s.log.Warn("auto-submit save failed", zap.Int("attempt", i+1), zap.Error(err))
		}
	}
	return err
}

// Review moves results to review.
func (s *QuizSession) Review() (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateResults {
		return SessionSnapshot{}, domain.ErrInvalidTransition
	}
	s.state = StateReview
	return s.broadcastLocked(), nil
}

// Retry returns to entry so the next Start draws a fresh question set.
func (s *QuizSession) Retry() (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateResults && s.state != StateReview {
		return SessionSnapshot{}, domain.ErrInvalidTransition
	}
	s.state = StateEntry
	s.attempt = nil
	s.result = nil
	s.lastError = ""
	return s.broadcastLocked(), nil
}

// Abandon discards an unsubmitted attempt without persisting anything.
func (s *QuizSession) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateQuiz || s.attempt == nil || s.attempt.submitting {
		return
	}
	s.attempt.stopTimer()
	s.log.Info("quiz abandoned", zap.String("attempt_id", s.attempt.id))
	s.attempt = nil
	s.state = StateEntry
	s.opts.Metrics.AttemptEnded()
	s.broadcastLocked()
}

// Snapshot returns the current view model.
func (s *QuizSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel of snapshots, primed with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizSession) Subscribe() (<-chan SessionSnapshot, func()) {
	ch := make(chan SessionSnapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *QuizSession) broadcastLocked() SessionSnapshot {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the oldest update for slow readers
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}
