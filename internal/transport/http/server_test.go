package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"cx-lms-service/internal/app"
	"cx-lms-service/internal/catalog"
	"cx-lms-service/internal/infra/memory"
	"cx-lms-service/internal/metrics"
)

type testEnv struct {
	server   *httptest.Server
	catalog  *catalog.Catalog
	progress *app.ProgressService
	quiz     *app.QuizService
	metrics  *metrics.Collectors
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	questions, err := catalog.DefaultQuestions()
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	m := metrics.New()
	bank := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(questions), time.Minute)
	progress := app.NewProgressService(memory.NewProgressRepository(), cat, app.ProgressOptions{Metrics: m})
	quiz := app.NewQuizService(memory.NewSessionStore(), bank, progress, app.SessionOptions{
		TickInterval: time.Hour,
		Metrics:      m,
	})
	offline := app.NewOfflineManager(memory.NewOfflineStore(), app.OfflineOptions{Metrics: m})
	api := NewAPI(cat, progress, offline, APIOptions{VerifyBaseURL: "https://cx.example"})

	server := httptest.NewServer(NewRouter(NewWSHandler(quiz, nil), api, m))
	t.Cleanup(server.Close)
	return &testEnv{server: server, catalog: cat, progress: progress, quiz: quiz, metrics: m}
}
