package memory

import (
	"context"
	"testing"

	"cx-lms-service/internal/domain"
)

func TestOfflineStoreSnapshotLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewOfflineStore()

	rec := domain.OfflineModuleRecord{ModuleID: "module-1", Size: 2048}
	sections := []domain.OfflineSection{
		{Key: domain.OfflineSectionKey("module-1", "l1", "s1"), ModuleID: "module-1", LessonID: "l1", SectionID: "s1"},
		{Key: domain.OfflineSectionKey("module-1", "l1", "s2"), ModuleID: "module-1", LessonID: "l1", SectionID: "s2"},
	}
	if err := store.PutSnapshot(ctx, rec, sections); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok, _ := store.Module(ctx, "module-1"); !ok {
		t.Fatalf("expected module record")
	}
	got, _ := store.Sections(ctx, "module-1")
	if len(got) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(got))
	}

	if err := store.DeleteModule(ctx, "module-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := store.Sections(ctx, "module-1"); len(got) != 0 {
		t.Fatalf("sections survived delete")
	}

	_ = store.PutSnapshot(ctx, rec, sections)
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if all, _ := store.Modules(ctx); len(all) != 0 {
		t.Fatalf("expected empty store after clear")
	}
}

func TestProgressRepositoryIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewProgressRepository()

	fresh, err := repo.Load(ctx, "learner-1")
	if err != nil || len(fresh.CompletedLessons) != 0 || fresh.Settings != domain.DefaultSettings() {
		t.Fatalf("expected fresh progress, got %+v (%v)", fresh, err)
	}
	fresh.CompletedLessons = append(fresh.CompletedLessons, "lesson-1-1")
	if err := repo.Save(ctx, "learner-1", fresh); err != nil {
		t.Fatalf("save: %v", err)
	}
	fresh.CompletedLessons[0] = "changed"

	loaded, _ := repo.Load(ctx, "learner-1")
	if loaded.CompletedLessons[0] != "lesson-1-1" {
		t.Fatalf("stored progress aliased caller slice: %v", loaded.CompletedLessons)
	}
}
