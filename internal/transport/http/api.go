package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"cx-lms-service/internal/app"
	"cx-lms-service/internal/catalog"
	"cx-lms-service/internal/certificate"
	"cx-lms-service/internal/domain"

	"go.uber.org/zap"
)

// API serves the JSON surface over catalog, learner progress and the offline cache.
type API struct {
	catalog    *catalog.Catalog
	progress   *app.ProgressService
	offline    *app.OfflineManager
	generator  certificate.Generator
	verifyBase string
	log        *zap.Logger
}

type APIOptions struct {
	Generator     certificate.Generator
	VerifyBaseURL string
	Logger        *zap.Logger
}

func NewAPI(cat *catalog.Catalog, progress *app.ProgressService, offline *app.OfflineManager, opts APIOptions) *API {
	if opts.Generator == nil {
		opts.Generator = certificate.NewHTMLGenerator()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &API{
		catalog:    cat,
		progress:   progress,
		offline:    offline,
		generator:  opts.Generator,
		verifyBase: opts.VerifyBaseURL,
		log:        opts.Logger,
	}
}

// Register mounts every route on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/modules", a.listModules)
	mux.HandleFunc("GET /api/modules/{moduleId}", a.getModule)
	mux.HandleFunc("GET /api/search", a.search)

	mux.HandleFunc("GET /api/learners/{learnerId}/progress", a.getProgress)
	mux.HandleFunc("POST /api/learners/{learnerId}/lessons/{lessonId}/complete", a.completeLesson)
	mux.HandleFunc("PUT /api/learners/{learnerId}/journal/{lessonId}", a.saveJournal)
	mux.HandleFunc("PATCH /api/learners/{learnerId}/settings", a.updateSettings)
	mux.HandleFunc("POST /api/learners/{learnerId}/reset", a.resetProgress)
	mux.HandleFunc("POST /api/learners/{learnerId}/certificates", a.generateCertificate)
	mux.HandleFunc("GET /api/learners/{learnerId}/certificates/{code}", a.renderCertificate)

	mux.HandleFunc("GET /api/offline/modules", a.listOffline)
	mux.HandleFunc("PUT /api/offline/modules/{moduleId}", a.downloadModule)
	mux.HandleFunc("GET /api/offline/modules/{moduleId}", a.offlineContent)
	mux.HandleFunc("DELETE /api/offline/modules/{moduleId}", a.removeModule)
	mux.HandleFunc("DELETE /api/offline/modules", a.clearOffline)
	mux.HandleFunc("GET /api/offline/usage", a.offlineUsage)
}

type moduleSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Lessons  int    `json:"lessons"`
	Sections int    `json:"sections"`
}

func (a *API) listModules(w http.ResponseWriter, r *http.Request) {
	modules := a.catalog.Modules()
	out := make([]moduleSummary, len(modules))
	for i, m := range modules {
		out[i] = moduleSummary{ID: m.ID, Title: m.Title, Subtitle: m.Subtitle, Lessons: len(m.Lessons), Sections: m.SectionCount()}
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getModule(w http.ResponseWriter, r *http.Request) {
	m, ok := a.catalog.Module(r.PathValue("moduleId"))
	if !ok {
		writeError(w, domain.ErrModuleNotFound)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *API) search(w http.ResponseWriter, r *http.Request) {
	hits := a.catalog.Search(r.URL.Query().Get("q"))
	if hits == nil {
		hits = []catalog.SearchHit{}
	}
	writeJSON(w, http.StatusOK, hits)
}

func (a *API) store(w http.ResponseWriter, r *http.Request) (*app.ProgressStore, bool) {
	store, err := a.progress.Store(r.Context(), r.PathValue("learnerId"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return store, true
}

func (a *API) getProgress(w http.ResponseWriter, r *http.Request) {
	store, ok := a.store(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, store.View())
}

func (a *API) completeLesson(w http.ResponseWriter, r *http.Request) {
	store, ok := a.store(w, r)
	if !ok {
		return
	}
	if err := store.CompleteLesson(r.Context(), r.PathValue("lessonId")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, store.View())
}

type journalRequest struct {
	Content string `json:"content"`
}

func (a *API) saveJournal(w http.ResponseWriter, r *http.Request) {
	var req journalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	store, ok := a.store(w, r)
	if !ok {
		return
	}
	entry, err := store.SaveJournalEntry(r.Context(), r.PathValue("lessonId"), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (a *API) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch domain.SettingsPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	store, ok := a.store(w, r)
	if !ok {
		return
	}
	settings, err := store.UpdateSettings(r.Context(), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (a *API) resetProgress(w http.ResponseWriter, r *http.Request) {
	store, ok := a.store(w, r)
	if !ok {
		return
	}
	if err := store.ResetProgress(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, store.View())
}

type certificateRequest struct {
	ModuleID    string `json:"moduleId"`
	StudentName string `json:"studentName"`
}

type certificateResponse struct {
	domain.Certificate
	VerificationURL string `json:"verificationUrl"`
}

func (a *API) generateCertificate(w http.ResponseWriter, r *http.Request) {
	var req certificateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	store, ok := a.store(w, r)
	if !ok {
		return
	}
	cert, err := store.GenerateCertificate(r.Context(), req.ModuleID, req.StudentName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, certificateResponse{
		Certificate:     cert,
		VerificationURL: certificate.VerificationURL(a.verifyBase, cert.VerificationCode),
	})
}

func (a *API) renderCertificate(w http.ResponseWriter, r *http.Request) {
	store, ok := a.store(w, r)
	if !ok {
		return
	}
	cert, err := store.Certificate(r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	artifact, err := a.generator.Render(r.Context(), cert, certificate.VerificationURL(a.verifyBase, cert.VerificationCode))
	if err != nil {
		a.log.Error("certificate render failed", zap.String("code", cert.VerificationCode), zap.Error(err))
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", artifact.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Body)
}

type offlineRecordView struct {
	ModuleID     string `json:"moduleId"`
	Title        string `json:"title"`
	DownloadedAt string `json:"downloadedAt"`
	Version      string `json:"version"`
	Size         int64  `json:"size"`
	SizeLabel    string `json:"sizeLabel"`
}

func recordView(rec domain.OfflineModuleRecord) offlineRecordView {
	return offlineRecordView{
		ModuleID:     rec.ModuleID,
		Title:        rec.Module.Title,
		DownloadedAt: rec.DownloadedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Version:      rec.Version,
		Size:         rec.Size,
		SizeLabel:    app.FormatBytes(rec.Size),
	}
}

func (a *API) listOffline(w http.ResponseWriter, r *http.Request) {
	records, err := a.offline.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]offlineRecordView, len(records))
	for i, rec := range records {
		out[i] = recordView(rec)
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) downloadModule(w http.ResponseWriter, r *http.Request) {
	m, ok := a.catalog.Module(r.PathValue("moduleId"))
	if !ok {
		writeError(w, domain.ErrModuleNotFound)
		return
	}
	rec, err := a.offline.Download(r.Context(), m)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, recordView(rec))
}

func (a *API) offlineContent(w http.ResponseWriter, r *http.Request) {
	m, err := a.offline.Content(r.Context(), r.PathValue("moduleId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *API) removeModule(w http.ResponseWriter, r *http.Request) {
	if err := a.offline.Remove(r.Context(), r.PathValue("moduleId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) clearOffline(w http.ResponseWriter, r *http.Request) {
	if err := a.offline.ClearAll(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type usageView struct {
	domain.StorageUsage
	Percentage int    `json:"percentage"`
	UsedLabel  string `json:"usedLabel"`
	TotalLabel string `json:"totalLabel"`
}

func (a *API) offlineUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := a.offline.Usage(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, usageView{
		StorageUsage: usage,
		Percentage:   app.Percentage(usage.Used, usage.Total),
		UsedLabel:    app.FormatBytes(usage.Used),
		TotalLabel:   app.FormatBytes(usage.Total),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		writeError(w, errBadPayload("invalid request body: "+strings.TrimSpace(err.Error())))
		return false
	}
	return true
}
