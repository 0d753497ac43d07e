package redis

import (
	"testing"
	"time"

	"cx-lms-service/internal/app"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)

	_ = store.GetOrCreate("learner-1", func() *app.QuizSession {
		return app.NewQuizSession("learner-1", nil, nil, app.SessionOptions{})
	})
	if !mr.Exists("lms:quiz:session:learner-1") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("lms:quiz:session:learner-1"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %v", ttl)
	}

	store.Delete("learner-1")
	if mr.Exists("lms:quiz:session:learner-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("learner-1"); ok {
		t.Fatalf("expected session dropped")
	}
}
