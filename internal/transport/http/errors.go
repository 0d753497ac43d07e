package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"cx-lms-service/internal/domain"
)

type badPayloadError string

func (e badPayloadError) Error() string { return string(e) }

func errBadPayload(msg string) error { return badPayloadError(msg) }

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domain.ErrModuleNotFound, http.StatusNotFound, "module_not_found"},
	{domain.ErrLessonNotFound, http.StatusNotFound, "lesson_not_found"},
	{domain.ErrCertificateNotFound, http.StatusNotFound, "certificate_not_found"},
	{domain.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
	{domain.ErrQuestionNotFound, http.StatusNotFound, "question_not_found"},
	{domain.ErrInvalidModule, http.StatusUnprocessableEntity, "invalid_module"},
	{domain.ErrInvalidOption, http.StatusUnprocessableEntity, "invalid_option"},
	{domain.ErrInvalidConfidence, http.StatusUnprocessableEntity, "invalid_confidence"},
	{domain.ErrInvalidStudentName, http.StatusUnprocessableEntity, "invalid_student_name"},
	{domain.ErrInvalidSettings, http.StatusUnprocessableEntity, "invalid_settings"},
	{domain.ErrModuleIncomplete, http.StatusConflict, "module_incomplete"},
	{domain.ErrAttemptNotActive, http.StatusConflict, "attempt_not_active"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domain.ErrAlreadyDownloading, http.StatusConflict, "already_downloading"},
	{domain.ErrStorageBudgetExceeded, http.StatusInsufficientStorage, "storage_budget_exceeded"},
	{domain.ErrStorageUnavailable, http.StatusServiceUnavailable, "storage_unavailable"},
	{domain.ErrArtifactGenerationFailed, http.StatusInternalServerError, "artifact_generation_failed"},
}

func statusFor(err error) (int, string) {
	var bad badPayloadError
	if errors.As(err, &bad) {
		return http.StatusBadRequest, "bad_request"
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func errorCode(err error) string {
	_, code := statusFor(err)
	return code
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeJSON(w, status, errorPayload{Message: err.Error(), Code: code})
}
