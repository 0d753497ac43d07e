package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cx-lms-service/internal/app"
	"cx-lms-service/internal/catalog"
	"cx-lms-service/internal/domain"
	"cx-lms-service/internal/infra/memory"
)

func defaultModule(t *testing.T, id string) domain.Module {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	m, ok := c.Module(id)
	if !ok {
		t.Fatalf("module %s missing", id)
	}
	return m
}

func TestDownloadRemoveRoundTrip(t *testing.T) {
	ctx := context.Background()
	mgr := app.NewOfflineManager(memory.NewOfflineStore(), app.OfflineOptions{})
	m1 := defaultModule(t, "module-1")
	m2 := defaultModule(t, "module-2")

	rec1, err := mgr.Download(ctx, m1)
	if err != nil {
		t.Fatalf("download m1: %v", err)
	}
	want, _ := app.EstimateSize(m1)
	if rec1.Size != want || rec1.Version != domain.OfflineFormatVersion {
		t.Fatalf("unexpected record %+v", rec1)
	}
	if _, err := mgr.Download(ctx, m2); err != nil {
		t.Fatalf("download m2: %v", err)
	}
	if ok, _ := mgr.IsDownloaded(ctx, "module-1"); !ok {
		t.Fatalf("module-1 should be downloaded")
	}

	before, _ := mgr.Usage(ctx)
	if before.Total != app.DefaultOfflineBudget {
		t.Fatalf("unexpected budget %d", before.Total)
	}
	if err := mgr.Remove(ctx, "module-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	after, _ := mgr.Usage(ctx)
	if before.Used-after.Used != rec1.Size {
		t.Fatalf("usage should drop by %d, dropped %d", rec1.Size, before.Used-after.Used)
	}
	if ok, _ := mgr.IsDownloaded(ctx, "module-1"); ok {
		t.Fatalf("module-1 should be gone")
	}
	if err := mgr.Remove(ctx, "module-1"); err != nil {
		t.Fatalf("removing a missing module must be a no-op, got %v", err)
	}
}

func TestRedownloadReplacesRecord(t *testing.T) {
	ctx := context.Background()
	mgr := app.NewOfflineManager(memory.NewOfflineStore(), app.OfflineOptions{})
	m1 := defaultModule(t, "module-1")

	for i := 0; i < 2; i++ {
		if _, err := mgr.Download(ctx, m1); err != nil {
			t.Fatalf("download %d: %v", i, err)
		}
	}
	list, _ := mgr.List(ctx)
	if len(list) != 1 {
		t.Fatalf("expected one record, got %d", len(list))
	}
}

func TestContentRebuildsModule(t *testing.T) {
	ctx := context.Background()
	mgr := app.NewOfflineManager(memory.NewOfflineStore(), app.OfflineOptions{})
	m3 := defaultModule(t, "module-3")
	if _, err := mgr.Download(ctx, m3); err != nil {
		t.Fatalf("download: %v", err)
	}

	got, err := mgr.Content(ctx, "module-3")
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	if len(got.Lessons) != len(m3.Lessons) || got.SectionCount() != m3.SectionCount() {
		t.Fatalf("rebuilt module differs: %d lessons, %d sections", len(got.Lessons), got.SectionCount())
	}
	if got.Lessons[0].Sections[0].ID != m3.Lessons[0].Sections[0].ID {
		t.Fatalf("section order not preserved")
	}
	if _, err := mgr.Content(ctx, "module-6"); !errors.Is(err, domain.ErrModuleNotFound) {
		t.Fatalf("expected module not found, got %v", err)
	}
}

// gatedStore blocks PutSnapshot until released so downloads overlap.
type gatedStore struct {
	*memory.OfflineStore
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) PutSnapshot(ctx context.Context, rec domain.OfflineModuleRecord, secs []domain.OfflineSection) error {
	s.entered <- struct{}{}
	<-s.release
	return s.OfflineStore.PutSnapshot(ctx, rec, secs)
}

func TestConcurrentDownloadsWriteOnce(t *testing.T) {
	ctx := context.Background()
	store := &gatedStore{OfflineStore: memory.NewOfflineStore(), entered: make(chan struct{}, 1), release: make(chan struct{})}
	mgr := app.NewOfflineManager(store, app.OfflineOptions{})
	m1 := defaultModule(t, "module-1")

	done := make(chan error, 1)
	go func() {
		_, err := mgr.Download(ctx, m1)
		done <- err
	}()
	<-store.entered

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Download(ctx, m1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if !errors.Is(err, domain.ErrAlreadyDownloading) {
			t.Fatalf("expected already downloading, got %v", err)
		}
	}

	close(store.release)
	if err := <-done; err != nil {
		t.Fatalf("first download: %v", err)
	}
	list, _ := mgr.List(ctx)
	if len(list) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(list))
	}
}

func TestDownloadRespectsBudget(t *testing.T) {
	ctx := context.Background()
	m1 := defaultModule(t, "module-1")
	size, _ := app.EstimateSize(m1)
	mgr := app.NewOfflineManager(memory.NewOfflineStore(), app.OfflineOptions{Budget: size + 10})

	if _, err := mgr.Download(ctx, m1); err != nil {
		t.Fatalf("download within budget: %v", err)
	}
	if _, err := mgr.Download(ctx, m1); err != nil {
		t.Fatalf("re-download should reuse its own space: %v", err)
	}
	if _, err := mgr.Download(ctx, defaultModule(t, "module-2")); !errors.Is(err, domain.ErrStorageBudgetExceeded) {
		t.Fatalf("expected budget exceeded, got %v", err)
	}
	if ok, _ := mgr.IsDownloaded(ctx, "module-2"); ok {
		t.Fatalf("rejected module must not be recorded")
	}
}

// tornStore writes the module record and then fails, leaving sections unwritten.
type tornStore struct {
	*memory.OfflineStore
}

func (s *tornStore) PutSnapshot(ctx context.Context, rec domain.OfflineModuleRecord, _ []domain.OfflineSection) error {
	_ = s.OfflineStore.PutSnapshot(ctx, rec, nil)
	return errors.New("quota exceeded")
}

func TestFailedWriteRollsBack(t *testing.T) {
	ctx := context.Background()
	mgr := app.NewOfflineManager(&tornStore{OfflineStore: memory.NewOfflineStore()}, app.OfflineOptions{})

	_, err := mgr.Download(ctx, defaultModule(t, "module-4"))
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable, got %v", err)
	}
	if ok, _ := mgr.IsDownloaded(ctx, "module-4"); ok {
		t.Fatalf("torn write left a module record behind")
	}
	usage, _ := mgr.Usage(ctx)
	if usage.Used != 0 {
		t.Fatalf("expected zero usage, got %d", usage.Used)
	}
}

// flakyStore fails snapshot writes and record lookups while broken is set.
type flakyStore struct {
	*memory.OfflineStore
	broken bool
}

func (s *flakyStore) PutSnapshot(ctx context.Context, rec domain.OfflineModuleRecord, secs []domain.OfflineSection) error {
	if s.broken {
		return errors.New("disk unavailable")
	}
	return s.OfflineStore.PutSnapshot(ctx, rec, secs)
}

func (s *flakyStore) Module(ctx context.Context, moduleID string) (domain.OfflineModuleRecord, bool, error) {
	if s.broken {
		return domain.OfflineModuleRecord{}, false, errors.New("disk unavailable")
	}
	return s.OfflineStore.Module(ctx, moduleID)
}

func TestFailedRedownloadKeepsCommittedRecord(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{OfflineStore: memory.NewOfflineStore()}
	mgr := app.NewOfflineManager(store, app.OfflineOptions{})
	m1 := defaultModule(t, "module-1")

	if _, err := mgr.Download(ctx, m1); err != nil {
		t.Fatalf("download: %v", err)
	}
	store.broken = true
	if _, err := mgr.Download(ctx, m1); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable, got %v", err)
	}
	store.broken = false

	if ok, err := mgr.IsDownloaded(ctx, "module-1"); err != nil || !ok {
		t.Fatalf("committed record lost after failed re-download: ok=%v err=%v", ok, err)
	}
	if _, err := mgr.Content(ctx, "module-1"); err != nil {
		t.Fatalf("committed content unreadable: %v", err)
	}
}

func TestConcurrentDownloadsShareBudget(t *testing.T) {
	ctx := context.Background()
	m1 := defaultModule(t, "module-1")
	m2 := defaultModule(t, "module-2")
	s1, _ := app.EstimateSize(m1)
	s2, _ := app.EstimateSize(m2)
	store := &gatedStore{OfflineStore: memory.NewOfflineStore(), entered: make(chan struct{}, 2), release: make(chan struct{})}
	mgr := app.NewOfflineManager(store, app.OfflineOptions{Budget: s1 + s2 - 1})

	errs := make(chan error, 2)
	go func() {
		_, err := mgr.Download(ctx, m1)
		errs <- err
	}()
	<-store.entered
	go func() {
		_, err := mgr.Download(ctx, m2)
		errs <- err
	}()
	close(store.release)

	var ok, rejected int
	for i := 0; i < 2; i++ {
		err := <-errs
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrStorageBudgetExceeded):
			rejected++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 1 || rejected != 1 {
		t.Fatalf("expected one download and one rejection, got %d ok %d rejected", ok, rejected)
	}
	usage, _ := mgr.Usage(ctx)
	if usage.Used > usage.Total {
		t.Fatalf("usage %d exceeds budget %d", usage.Used, usage.Total)
	}
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	mgr := app.NewOfflineManager(memory.NewOfflineStore(), app.OfflineOptions{})
	for _, id := range []string{"module-1", "module-5"} {
		if _, err := mgr.Download(ctx, defaultModule(t, id)); err != nil {
			t.Fatalf("download %s: %v", id, err)
		}
	}
	if err := mgr.ClearAll(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	list, _ := mgr.List(ctx)
	usage, _ := mgr.Usage(ctx)
	if len(list) != 0 || usage.Used != 0 {
		t.Fatalf("expected empty cache, got %d records, %d bytes", len(list), usage.Used)
	}
}

func TestStorageHelpers(t *testing.T) {
	cases := map[int64]string{
		0:                "0 Bytes",
		512:              "512 Bytes",
		1536:             "1.5 KB",
		1048576:          "1 MB",
		50 * 1024 * 1024: "50 MB",
		1288490189:       "1.2 GB",
	}
	for n, want := range cases {
		if got := app.FormatBytes(n); got != want {
			t.Fatalf("FormatBytes(%d) = %q, want %q", n, got, want)
		}
	}
	if app.Percentage(25, 100) != 25 || app.Percentage(1, 0) != 0 {
		t.Fatalf("unexpected percentage")
	}
	if !app.HasRoom(40, 100, 60) || app.HasRoom(41, 100, 60) {
		t.Fatalf("unexpected HasRoom")
	}
}
