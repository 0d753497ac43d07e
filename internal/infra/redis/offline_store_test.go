package redis

import (
	"context"
	"testing"
	"time"

	"cx-lms-service/internal/domain"

	miniredis "github.com/alicebob/miniredis/v2"
)

func sampleSnapshot(moduleID string) (domain.OfflineModuleRecord, []domain.OfflineSection) {
	section := domain.Section{ID: "s1", Title: "Intro", Content: domain.TextContent{Body: "Hello"}}
	module := domain.Module{
		ID:    moduleID,
		Title: "Module",
		Lessons: []domain.Lesson{{
			ID:       "l1",
			Title:    "Lesson",
			Sections: []domain.Section{section},
		}},
	}
	now := time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)
	rec := domain.OfflineModuleRecord{ModuleID: moduleID, Module: module, DownloadedAt: now, Version: domain.OfflineFormatVersion, Size: 3000}
	secs := []domain.OfflineSection{{
		Key:          domain.OfflineSectionKey(moduleID, "l1", "s1"),
		ModuleID:     moduleID,
		LessonID:     "l1",
		SectionID:    "s1",
		Section:      section,
		DownloadedAt: now,
	}}
	return rec, secs
}

func TestOfflineStoreSnapshotLifecycle(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewOfflineStore(newClient(mr))

	rec, secs := sampleSnapshot("module-1")
	if err := store.PutSnapshot(ctx, rec, secs); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := store.Module(ctx, "module-1")
	if err != nil || !ok || got.Size != 3000 || !got.DownloadedAt.Equal(rec.DownloadedAt) {
		t.Fatalf("unexpected module %+v %v %v", got, ok, err)
	}
	sections, err := store.Sections(ctx, "module-1")
	if err != nil || len(sections) != 1 {
		t.Fatalf("unexpected sections %+v %v", sections, err)
	}
	if body := sections[0].Section.Content.(domain.TextContent).Body; body != "Hello" {
		t.Fatalf("section content lost: %q", body)
	}
	if !mr.Exists("lms:offline:sections:module-1") {
		t.Fatalf("expected section hash")
	}

	if err := store.DeleteModule(ctx, "module-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Module(ctx, "module-1"); ok {
		t.Fatalf("module survived delete")
	}
	if mr.Exists("lms:offline:sections:module-1") {
		t.Fatalf("sections survived delete")
	}
	if err := store.DeleteModule(ctx, "module-1"); err != nil {
		t.Fatalf("deleting a missing module should succeed: %v", err)
	}
}

func TestOfflineStoreClear(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewOfflineStore(newClient(mr))
	for _, id := range []string{"module-1", "module-2"} {
		rec, secs := sampleSnapshot(id)
		if err := store.PutSnapshot(ctx, rec, secs); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}
	all, _ := store.Modules(ctx)
	if len(all) != 2 {
		t.Fatalf("expected 2 modules, got %d", len(all))
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected no keys after clear, got %v", mr.Keys())
	}
	all, _ = store.Modules(ctx)
	if len(all) != 0 {
		t.Fatalf("expected empty listing")
	}
}
