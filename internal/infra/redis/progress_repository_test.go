package redis

import (
	"context"
	"testing"
	"time"

	"cx-lms-service/internal/domain"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestProgressRepositoryRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	repo := NewProgressRepository(newClient(mr))

	fresh, err := repo.Load(ctx, "learner-1")
	if err != nil {
		t.Fatalf("load fresh: %v", err)
	}
	if fresh.Settings != domain.DefaultSettings() || len(fresh.QuizResponses) != 0 {
		t.Fatalf("expected fresh progress, got %+v", fresh)
	}

	score := 91
	fresh.CompletedLessons = append(fresh.CompletedLessons, "lesson-1-1")
	fresh.QuizResponses["module-1"] = domain.QuizResponse{
		Answers:     []domain.Answer{{QuestionID: 1, Answer: "A", Confidence: domain.ConfidenceHigh, TimeSpent: 8}},
		CompletedAt: time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC),
		Score:       100,
	}
	fresh.Certificates = append(fresh.Certificates, domain.Certificate{ID: "CX-1", VerificationCode: "CX-1", Score: &score})
	if err := repo.Save(ctx, "learner-1", fresh); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("lms:progress:learner-1") {
		t.Fatalf("expected progress key")
	}

	loaded, err := repo.Load(ctx, "learner-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	resp := loaded.QuizResponses["module-1"]
	if resp.Score != 100 || len(resp.Answers) != 1 || resp.Answers[0].Confidence != domain.ConfidenceHigh {
		t.Fatalf("unexpected response %+v", resp)
	}
	if *loaded.Certificates[0].Score != 91 || !loaded.HasCompleted("lesson-1-1") {
		t.Fatalf("unexpected progress %+v", loaded)
	}
}
