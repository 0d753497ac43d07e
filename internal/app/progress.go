package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"cx-lms-service/internal/catalog"
	"cx-lms-service/internal/certificate"
	"cx-lms-service/internal/domain"
	"cx-lms-service/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ProgressRepository persists one progress document per learner.
// Load returns fresh progress when the learner has none.
type ProgressRepository interface {
	Load(ctx context.Context, learnerID string) (domain.Progress, error)
	Save(ctx context.Context, learnerID string, progress domain.Progress) error
}

// ProgressOptions configures progress stores.
type ProgressOptions struct {
	Now     func() time.Time
	Logger  *zap.Logger
	Metrics *metrics.Collectors
}

func (o ProgressOptions) withDefaults() ProgressOptions {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// ProgressView is the full observable state of a learner's store.
type ProgressView struct {
	domain.Progress
	Navigation domain.Navigation      `json:"navigation"`
	UI         domain.UIState         `json:"ui"`
	Overall    domain.ProgressSummary `json:"overall"`
}

// ProgressStore is one learner's root aggregate. Every mutation is applied to a copy,
// committed to the repository, and only then made visible.
type ProgressStore struct {
	learnerID string
	repo      ProgressRepository
	catalog   *catalog.Catalog
	opts      ProgressOptions
	log       *zap.Logger

	mu          sync.RWMutex
	progress    domain.Progress
	nav         domain.Navigation
	ui          domain.UIState
	subscribers map[chan ProgressView]struct{}
}

// OpenProgressStore loads the learner's persisted progress.
func OpenProgressStore(ctx context.Context, learnerID string, repo ProgressRepository, cat *catalog.Catalog, opts ProgressOptions) (*ProgressStore, error) {
	opts = opts.withDefaults()
	progress, err := repo.Load(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("%w: load progress: %v", domain.ErrStorageUnavailable, err)
	}
	progress.Normalize()
	return &ProgressStore{
		learnerID:   learnerID,
		repo:        repo,
		catalog:     cat,
		opts:        opts,
		log:         opts.Logger.With(zap.String("learner_id", learnerID)),
		progress:    progress,
		ui:          domain.UIState{SidebarOpen: true},
		subscribers: make(map[chan ProgressView]struct{}),
	}, nil
}

func (p *ProgressStore) commit(ctx context.Context, op string, mutate func(*domain.Progress) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := p.progress.Clone()
	if err := mutate(&next); err != nil {
		return err
	}
	err := p.repo.Save(ctx, p.learnerID, next)
	p.opts.Metrics.ProgressCommit(op, err)
	if err != nil {
		p.log.Error("progress commit failed", zap.String("operation", op), zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	p.progress = next
	p.broadcastLocked()
	return nil
}

// Progress returns a copy of the persisted state.
func (p *ProgressStore) Progress() domain.Progress {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.progress.Clone()
}

// View returns persisted state plus session-only navigation and UI toggles.
func (p *ProgressStore) View() ProgressView {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.viewLocked()
}

func (p *ProgressStore) viewLocked() ProgressView {
	return ProgressView{
		Progress:   p.progress.Clone(),
		Navigation: p.nav,
		UI:         p.ui,
		Overall:    p.overallLocked(),
	}
}

// CompleteLesson marks a catalog lesson complete; repeats are harmless.
func (p *ProgressStore) CompleteLesson(ctx context.Context, lessonID string) error {
	_, moduleID, ok := p.catalog.Lesson(lessonID)
	if !ok {
		return domain.ErrLessonNotFound
	}
	err := p.commit(ctx, "completeLesson", func(next *domain.Progress) error {
		if !next.HasCompleted(lessonID) {
			next.CompletedLessons = append(next.CompletedLessons, lessonID)
		}
		return nil
	})
	if err == nil {
		p.emit(domain.AnalyticsEvent{Type: domain.EventLessonCompleted, ModuleID: moduleID, LessonID: lessonID})
	}
	return err
}

// SaveQuizResponse stores resp as the module's latest response, replacing any earlier one.
func (p *ProgressStore) SaveQuizResponse(ctx context.Context, moduleID string, resp domain.QuizResponse) error {
	err := p.commit(ctx, "saveQuizResponse", func(next *domain.Progress) error {
		resp.Answers = append([]domain.Answer{}, resp.Answers...)
		next.QuizResponses[moduleID] = resp
		return nil
	})
	if err == nil {
		p.emit(domain.AnalyticsEvent{
			Type:     domain.EventQuizCompleted,
			ModuleID: moduleID,
			Metadata: map[string]any{"score": resp.Score, "answered": len(resp.Answers)},
		})
	}
	return err
}

// SaveJournalEntry writes the learner's reflection for a lesson, keeping the first CreatedAt.
func (p *ProgressStore) SaveJournalEntry(ctx context.Context, lessonID, content string) (domain.JournalEntry, error) {
	if _, _, ok := p.catalog.Lesson(lessonID); !ok {
		return domain.JournalEntry{}, domain.ErrLessonNotFound
	}
	now := p.opts.Now()
	var saved domain.JournalEntry
	err := p.commit(ctx, "saveJournalEntry", func(next *domain.Progress) error {
		entry := domain.JournalEntry{LessonID: lessonID, Content: content, CreatedAt: now, UpdatedAt: now}
		if prev, ok := next.Journal[lessonID]; ok {
			entry.CreatedAt = prev.CreatedAt
		}
		next.Journal[lessonID] = entry
		saved = entry
		return nil
	})
	return saved, err
}

// GenerateCertificate issues a certificate once every lesson of moduleID is complete.
func (p *ProgressStore) GenerateCertificate(ctx context.Context, moduleID, studentName string) (domain.Certificate, error) {
	name := strings.TrimSpace(studentName)
	if name == "" {
		return domain.Certificate{}, domain.ErrInvalidStudentName
	}
	module, ok := p.catalog.Module(moduleID)
	if !ok {
		return domain.Certificate{}, domain.ErrModuleNotFound
	}

	now := p.opts.Now()
	var cert domain.Certificate
	err := p.commit(ctx, "generateCertificate", func(next *domain.Progress) error {
		if !moduleComplete(module, *next) {
			return domain.ErrModuleIncomplete
		}
		code := uniqueCode(*next, now)
		cert = domain.Certificate{
			ID:               code,
			StudentName:      name,
			ModuleID:         module.ID,
			ModuleTitle:      module.Title,
			CompletionDate:   now.Format(certificate.DateLayout),
			VerificationCode: code,
			GeneratedAt:      now,
		}
		if resp, ok := next.QuizResponses[moduleID]; ok {
			score := resp.Score
			cert.Score = &score
		}
		next.Certificates = append(next.Certificates, cert)
		return nil
	})
	if err != nil {
		return domain.Certificate{}, err
	}
	p.log.Info("certificate issued", zap.String("module_id", moduleID), zap.String("code", cert.VerificationCode))
	return cert, nil
}

// SaveCertificate appends a certificate produced elsewhere. Unset ID and code are filled in.
func (p *ProgressStore) SaveCertificate(ctx context.Context, cert domain.Certificate) (domain.Certificate, error) {
	if strings.TrimSpace(cert.StudentName) == "" {
		return domain.Certificate{}, domain.ErrInvalidStudentName
	}
	now := p.opts.Now()
	err := p.commit(ctx, "saveCertificate", func(next *domain.Progress) error {
		if cert.VerificationCode == "" {
			cert.VerificationCode = uniqueCode(*next, now)
		}
		if cert.ID == "" {
			cert.ID = cert.VerificationCode
		}
		if cert.GeneratedAt.IsZero() {
			cert.GeneratedAt = now
		}
		next.Certificates = append(next.Certificates, cert)
		return nil
	})
	return cert, err
}

// Certificate finds a certificate by verification code.
func (p *ProgressStore) Certificate(code string) (domain.Certificate, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, c := range p.progress.Certificates {
		if strings.EqualFold(c.VerificationCode, code) {
			return c, nil
		}
	}
	return domain.Certificate{}, domain.ErrCertificateNotFound
}

// UpdateSettings applies a partial settings patch.
func (p *ProgressStore) UpdateSettings(ctx context.Context, patch domain.SettingsPatch) (domain.Settings, error) {
	var out domain.Settings
	err := p.commit(ctx, "updateSettings", func(next *domain.Progress) error {
		settings, err := next.Settings.Apply(patch)
		if err != nil {
			return err
		}
		next.Settings = settings
		out = settings
		return nil
	})
	return out, err
}

// ResetProgress clears lessons, responses, journal and certificates. Settings survive.
func (p *ProgressStore) ResetProgress(ctx context.Context) error {
	err := p.commit(ctx, "resetProgress", func(next *domain.Progress) error {
		settings := next.Settings
		*next = domain.NewProgress()
		next.Settings = settings
		return nil
	})
	if err == nil {
		p.mu.Lock()
		p.nav = domain.Navigation{}
		p.broadcastLocked()
		p.mu.Unlock()
	}
	return err
}

// OverallProgress counts completed catalog lessons against the whole catalog.
func (p *ProgressStore) OverallProgress() domain.ProgressSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.overallLocked()
}

func (p *ProgressStore) overallLocked() domain.ProgressSummary {
	completed := 0
	for _, id := range p.progress.CompletedLessons {
		if _, _, ok := p.catalog.Lesson(id); ok {
			completed++
		}
	}
	return summary(completed, p.catalog.TotalLessons())
}

// ModuleProgress reports completion for one module.
func (p *ProgressStore) ModuleProgress(moduleID string) (domain.ProgressSummary, error) {
	module, ok := p.catalog.Module(moduleID)
	if !ok {
		return domain.ProgressSummary{}, domain.ErrModuleNotFound
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return summary(completedIn(module, p.progress), len(module.Lessons)), nil
}

// SetCurrentModule, SetCurrentLesson and SetCurrentSection move session-only cursors.
func (p *ProgressStore) SetCurrentModule(moduleID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nav = domain.Navigation{ModuleID: moduleID}
	p.broadcastLocked()
}

func (p *ProgressStore) SetCurrentLesson(lessonID string) {
	p.mu.Lock()
	p.nav.LessonID = lessonID
	p.nav.SectionID = ""
	moduleID := p.nav.ModuleID
	p.broadcastLocked()
	p.mu.Unlock()
	p.emit(domain.AnalyticsEvent{Type: domain.EventLessonStarted, ModuleID: moduleID, LessonID: lessonID})
}

func (p *ProgressStore) SetCurrentSection(sectionID string) {
	p.mu.Lock()
	p.nav.SectionID = sectionID
	nav := p.nav
	p.broadcastLocked()
	p.mu.Unlock()
	p.emit(domain.AnalyticsEvent{Type: domain.EventSectionViewed, ModuleID: nav.ModuleID, LessonID: nav.LessonID, SectionID: sectionID})
}

// ToggleSidebar, ToggleJournal and TogglePresenterMode flip session-only UI panels.
func (p *ProgressStore) ToggleSidebar() domain.UIState {
	return p.toggleUI(func(ui *domain.UIState) { ui.SidebarOpen = !ui.SidebarOpen })
}

func (p *ProgressStore) ToggleJournal() domain.UIState {
	return p.toggleUI(func(ui *domain.UIState) { ui.JournalOpen = !ui.JournalOpen })
}

func (p *ProgressStore) TogglePresenterMode() domain.UIState {
	return p.toggleUI(func(ui *domain.UIState) { ui.PresenterMode = !ui.PresenterMode })
}

func (p *ProgressStore) toggleUI(flip func(*domain.UIState)) domain.UIState {
	p.mu.Lock()
	defer p.mu.Unlock()
	flip(&p.ui)
	p.broadcastLocked()
	return p.ui
}

// Subscribe returns a channel of views, primed with the current one.
func (p *ProgressStore) Subscribe() (<-chan ProgressView, func()) {
	ch := make(chan ProgressView, 8)

	p.mu.Lock()
	p.subscribers[ch] = struct{}{}
	initial := p.viewLocked()
	p.mu.Unlock()

	ch <- initial

	cancel := func() {
		p.mu.Lock()
		if _, ok := p.subscribers[ch]; ok {
			delete(p.subscribers, ch)
			close(ch)
		}
		p.mu.Unlock()
	}
	return ch, cancel
}

func (p *ProgressStore) broadcastLocked() {
	if len(p.subscribers) == 0 {
		return
	}
	view := p.viewLocked()
	for ch := range p.subscribers {
		select {
		case ch <- view:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}

func (p *ProgressStore) emit(ev domain.AnalyticsEvent) {
	ev.ID = uuid.NewString()
	ev.LearnerID = p.learnerID
	ev.Timestamp = p.opts.Now()
	p.log.Debug("analytics event",
		zap.String("event_id", ev.ID),
		zap.String("event_type", string(ev.Type)),
		zap.String("module_id", ev.ModuleID),
		zap.String("lesson_id", ev.LessonID),
		zap.String("section_id", ev.SectionID),
		zap.Any("metadata", ev.Metadata),
	)
}

func completedIn(module domain.Module, progress domain.Progress) int {
	n := 0
	for _, l := range module.Lessons {
		if progress.HasCompleted(l.ID) {
			n++
		}
	}
	return n
}

func moduleComplete(module domain.Module, progress domain.Progress) bool {
	return len(module.Lessons) > 0 && completedIn(module, progress) == len(module.Lessons)
}

func summary(completed, total int) domain.ProgressSummary {
	s := domain.ProgressSummary{CompletedCount: completed, TotalLessons: total}
	if total > 0 {
		s.Percentage = int(math.Round(float64(completed) / float64(total) * 100))
	}
	return s
}

func uniqueCode(progress domain.Progress, now time.Time) string {
	for {
		code := certificate.NewCode(now)
		taken := false
		for _, c := range progress.Certificates {
			if c.VerificationCode == code {
				taken = true
				break
			}
		}
		if !taken {
			return code
		}
	}
}

// ProgressService caches one ProgressStore per learner and implements ResponseSink.
type ProgressService struct {
	repo    ProgressRepository
	catalog *catalog.Catalog
	opts    ProgressOptions
	sf      singleflight.Group

	mu     sync.RWMutex
	stores map[string]*ProgressStore
}

func NewProgressService(repo ProgressRepository, cat *catalog.Catalog, opts ProgressOptions) *ProgressService {
	return &ProgressService{
		repo:    repo,
		catalog: cat,
		opts:    opts.withDefaults(),
		stores:  make(map[string]*ProgressStore),
	}
}

// Store returns the learner's store, loading it on first use.
func (s *ProgressService) Store(ctx context.Context, learnerID string) (*ProgressStore, error) {
	s.mu.RLock()
	if store, ok := s.stores[learnerID]; ok {
		s.mu.RUnlock()
		return store, nil
	}
	s.mu.RUnlock()

	result, err, _ := s.sf.Do(learnerID, func() (interface{}, error) {
		s.mu.RLock()
		if store, ok := s.stores[learnerID]; ok {
			s.mu.RUnlock()
			return store, nil
		}
		s.mu.RUnlock()

		store, err := OpenProgressStore(ctx, learnerID, s.repo, s.catalog, s.opts)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.stores[learnerID] = store
		s.mu.Unlock()
		return store, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*ProgressStore), nil
}

// SaveQuizResponse routes a quiz result to the learner's store.
func (s *ProgressService) SaveQuizResponse(ctx context.Context, learnerID, moduleID string, resp domain.QuizResponse) error {
	store, err := s.Store(ctx, learnerID)
	if err != nil {
		return err
	}
	return store.SaveQuizResponse(ctx, moduleID, resp)
}
