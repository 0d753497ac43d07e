package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"cx-lms-service/internal/domain"
	"cx-lms-service/internal/metrics"

	"go.uber.org/zap"
)

// DefaultOfflineBudget is the self-imposed cap on estimated offline bytes.
const DefaultOfflineBudget int64 = 50 * 1024 * 1024

// sectionOverhead is added per section on top of the module's JSON length.
const sectionOverhead = 1024

// OfflineStore is the durable snapshot store. PutSnapshot, DeleteModule and Clear
// must each be atomic with respect to readers.
type OfflineStore interface {
	PutSnapshot(ctx context.Context, record domain.OfflineModuleRecord, sections []domain.OfflineSection) error
	DeleteModule(ctx context.Context, moduleID string) error
	Module(ctx context.Context, moduleID string) (domain.OfflineModuleRecord, bool, error)
	Modules(ctx context.Context) ([]domain.OfflineModuleRecord, error)
	Sections(ctx context.Context, moduleID string) ([]domain.OfflineSection, error)
	Clear(ctx context.Context) error
}

// OfflineOptions configures the manager.
type OfflineOptions struct {
	Budget  int64
	Now     func() time.Time
	Logger  *zap.Logger
	Metrics *metrics.Collectors
}

// OfflineManager keeps module snapshots for disconnected use under a size budget.
type OfflineManager struct {
	store   OfflineStore
	budget  int64
	now     func() time.Time
	log     *zap.Logger
	metrics *metrics.Collectors

	mu       sync.Mutex
	inflight map[string]struct{}

	// writeMu serializes the budget check with the snapshot write.
	writeMu sync.Mutex
}

func NewOfflineManager(store OfflineStore, opts OfflineOptions) *OfflineManager {
	if opts.Budget <= 0 {
		opts.Budget = DefaultOfflineBudget
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &OfflineManager{
		store:    store,
		budget:   opts.Budget,
		now:      opts.Now,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		inflight: make(map[string]struct{}),
	}
}

// EstimateSize is the serialized length of the module plus a fixed allowance per section.
func EstimateSize(module domain.Module) (int64, error) {
	data, err := json.Marshal(module)
	if err != nil {
		return 0, err
	}
	return int64(len(data)) + int64(module.SectionCount())*sectionOverhead, nil
}

func (m *OfflineManager) claim(moduleID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inflight[moduleID]; busy {
		return false
	}
	m.inflight[moduleID] = struct{}{}
	return true
}

func (m *OfflineManager) release(moduleID string) {
	m.mu.Lock()
	delete(m.inflight, moduleID)
	m.mu.Unlock()
}

// Download snapshots module and every section of every lesson. A re-download replaces
// the earlier record.
func (m *OfflineManager) Download(ctx context.Context, module domain.Module) (domain.OfflineModuleRecord, error) {
	if !m.claim(module.ID) {
		m.metrics.Download("duplicate")
		return domain.OfflineModuleRecord{}, domain.ErrAlreadyDownloading
	}
	defer m.release(module.ID)

	rec, err := m.download(ctx, module)
	if err != nil {
		m.metrics.Download("error")
		m.log.Warn("offline download failed", zap.String("module_id", module.ID), zap.Error(err))
		return domain.OfflineModuleRecord{}, err
	}
	m.metrics.Download("ok")
	m.log.Info("module downloaded", zap.String("module_id", module.ID), zap.Int64("size", rec.Size))
	m.refreshUsage(ctx)
	return rec, nil
}

func (m *OfflineManager) download(ctx context.Context, module domain.Module) (domain.OfflineModuleRecord, error) {
	size, err := EstimateSize(module)
	if err != nil {
		return domain.OfflineModuleRecord{}, fmt.Errorf("estimate size: %w", err)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	records, err := m.store.Modules(ctx)
	if err != nil {
		return domain.OfflineModuleRecord{}, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	var used int64
	for _, r := range records {
		if r.ModuleID == module.ID {
			continue
		}
		used += r.Size
	}
	if !HasRoom(used, m.budget, size) {
		return domain.OfflineModuleRecord{}, fmt.Errorf("%w: need %s, %s free", domain.ErrStorageBudgetExceeded,
			FormatBytes(size), FormatBytes(m.budget-used))
	}

	now := m.now()
	rec := domain.OfflineModuleRecord{
		ModuleID:     module.ID,
		Module:       module,
		DownloadedAt: now,
		Version:      domain.OfflineFormatVersion,
		Size:         size,
	}
	sections := make([]domain.OfflineSection, 0, module.SectionCount())
	for _, l := range module.Lessons {
		for _, s := range l.Sections {
			sections = append(sections, domain.OfflineSection{
				Key:          domain.OfflineSectionKey(module.ID, l.ID, s.ID),
				ModuleID:     module.ID,
				LessonID:     l.ID,
				SectionID:    s.ID,
				Section:      s,
				DownloadedAt: now,
			})
		}
	}

	if err := m.store.PutSnapshot(ctx, rec, sections); err != nil {
		m.rollback(context.WithoutCancel(ctx), rec)
		return domain.OfflineModuleRecord{}, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return rec, nil
}

// rollback drops a module record left behind by a failed PutSnapshot. It deletes only
// a record it can confirm this attempt wrote; a previously committed one is kept.
func (m *OfflineManager) rollback(ctx context.Context, attempted domain.OfflineModuleRecord) {
	current, ok, err := m.store.Module(ctx, attempted.ModuleID)
	if err != nil {
		m.log.Error("offline rollback skipped, record lookup failed",
			zap.String("module_id", attempted.ModuleID), zap.Error(err))
		return
	}
	if !ok || !current.DownloadedAt.Equal(attempted.DownloadedAt) {
		return
	}
	if err := m.store.DeleteModule(ctx, attempted.ModuleID); err != nil {
		m.log.Error("offline rollback failed", zap.String("module_id", attempted.ModuleID), zap.Error(err))
	}
}

// Remove deletes a module snapshot. Removing a module that was never downloaded is not an error.
func (m *OfflineManager) Remove(ctx context.Context, moduleID string) error {
	if err := m.store.DeleteModule(ctx, moduleID); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	m.log.Info("module removed from offline cache", zap.String("module_id", moduleID))
	m.refreshUsage(ctx)
	return nil
}

// List returns every stored record, in no particular order.
func (m *OfflineManager) List(ctx context.Context) ([]domain.OfflineModuleRecord, error) {
	records, err := m.store.Modules(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return records, nil
}

func (m *OfflineManager) IsDownloaded(ctx context.Context, moduleID string) (bool, error) {
	_, ok, err := m.store.Module(ctx, moduleID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return ok, nil
}

// Content rebuilds a downloaded module from its section records. A record whose
// sections are missing is reported as unavailable rather than returned partially.
func (m *OfflineManager) Content(ctx context.Context, moduleID string) (domain.Module, error) {
	rec, ok, err := m.store.Module(ctx, moduleID)
	if err != nil {
		return domain.Module{}, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	if !ok {
		return domain.Module{}, domain.ErrModuleNotFound
	}
	stored, err := m.store.Sections(ctx, moduleID)
	if err != nil {
		return domain.Module{}, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	byKey := make(map[string]domain.Section, len(stored))
	for _, s := range stored {
		byKey[s.Key] = s.Section
	}

	module := rec.Module
	lessons := make([]domain.Lesson, len(module.Lessons))
	for i, l := range module.Lessons {
		sections := make([]domain.Section, len(l.Sections))
		for j, s := range l.Sections {
			key := domain.OfflineSectionKey(moduleID, l.ID, s.ID)
			sec, ok := byKey[key]
			if !ok {
				return domain.Module{}, fmt.Errorf("%w: section %s missing", domain.ErrStorageUnavailable, key)
			}
			sections[j] = sec
		}
		l.Sections = sections
		lessons[i] = l
	}
	module.Lessons = lessons
	return module, nil
}

// Usage sums the recorded estimates against the budget.
func (m *OfflineManager) Usage(ctx context.Context) (domain.StorageUsage, error) {
	records, err := m.store.Modules(ctx)
	if err != nil {
		return domain.StorageUsage{}, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	var used int64
	for _, r := range records {
		used += r.Size
	}
	return domain.StorageUsage{Used: used, Total: m.budget}, nil
}

// ClearAll drops every module and section record in one step.
func (m *OfflineManager) ClearAll(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	m.log.Info("offline cache cleared")
	m.metrics.OfflineUsage(0)
	return nil
}

func (m *OfflineManager) refreshUsage(ctx context.Context) {
	if usage, err := m.Usage(ctx); err == nil {
		m.metrics.OfflineUsage(usage.Used)
	}
}

// FormatBytes renders n with a binary unit, e.g. "1.5 KB".
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	value := float64(n) / math.Pow(1024, float64(i))
	value = math.Round(value*100) / 100
	return fmt.Sprintf("%s %s", trimFloat(value), units[i])
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	for s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

// Percentage is used/total as a whole-number percent, 0 for an empty budget.
func Percentage(used, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(used) / float64(total) * 100))
}

// HasRoom reports whether required more bytes fit under total.
func HasRoom(used, total, required int64) bool {
	return used+required <= total
}
