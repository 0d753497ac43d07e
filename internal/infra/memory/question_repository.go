package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"cx-lms-service/internal/catalog"
	"cx-lms-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches a module's question pool from a backing store (e.g. Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, module int) ([]domain.QuizQuestion, error)
}

// QuestionRepository caches question pools with TTL to avoid repeated DB hits.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.Mutex
	cache map[int]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.QuizQuestion
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int]cachedQuestions),
	}
}

// Questions returns a copy of the module's pool so callers may shuffle it.
func (r *QuestionRepository) Questions(ctx context.Context, module int) ([]domain.QuizQuestion, error) {
	if qs, ok := r.cached(module); ok {
		return qs, nil
	}

	key := strconv.Itoa(module)
	_, err, _ := r.sf.Do(key, func() (interface{}, error) {
		if _, ok := r.cached(module); ok {
			return nil, nil
		}
		questions, err := r.loader.LoadQuestions(ctx, module)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[module] = cachedQuestions{
			questions: questions,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	entry := r.cache[module]
	r.mu.Unlock()
	return append([]domain.QuizQuestion(nil), entry.questions...), nil
}

func (r *QuestionRepository) cached(module int) ([]domain.QuizQuestion, bool) {
	now := r.clock()
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.cache[module]
	if !ok || !entry.expiresAt.After(now) {
		return nil, false
	}
	return append([]domain.QuizQuestion(nil), entry.questions...), true
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader serves a question bank held in memory (embedded default or a file).
type StaticQuestionLoader struct {
	byModule map[int][]domain.QuizQuestion
}

func NewStaticQuestionLoader(questions []domain.QuizQuestion) *StaticQuestionLoader {
	return &StaticQuestionLoader{byModule: catalog.GroupByModule(questions)}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, module int) ([]domain.QuizQuestion, error) {
	if qs, ok := l.byModule[module]; ok {
		return append([]domain.QuizQuestion(nil), qs...), nil
	}
	return nil, domain.ErrQuestionNotFound
}
