package domain

import "errors"

var (
	// ErrInvalidModule is returned when a quiz is requested for a module with no question bank.
	ErrInvalidModule = errors.New("module has no quiz questions")
	// ErrInvalidOption indicates a selected option is not one of the question's declared options.
	ErrInvalidOption = errors.New("option not offered by question")
	// ErrAttemptNotActive is returned for quiz mutations outside the quiz state.
	ErrAttemptNotActive = errors.New("quiz attempt not active")
	// ErrInvalidTransition is returned when a quiz state change is not allowed from the current state.
	ErrInvalidTransition = errors.New("invalid quiz state transition")
	// ErrAlreadyDownloading is returned when a download for the same module is already in flight.
	ErrAlreadyDownloading = errors.New("module download already in progress")
	// ErrStorageUnavailable indicates the durable store could not be opened, read or written.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrStorageBudgetExceeded is returned when a download would overflow the offline budget.
	ErrStorageBudgetExceeded = errors.New("offline storage budget exceeded")
	// ErrArtifactGenerationFailed wraps certificate or QR rendering failures.
	ErrArtifactGenerationFailed = errors.New("certificate artifact generation failed")

	// ErrQuestionNotFound indicates a question ID is not part of the current attempt.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidConfidence indicates an unknown confidence level.
	ErrInvalidConfidence = errors.New("invalid confidence level")
	// ErrModuleNotFound indicates the catalog has no such module.
	ErrModuleNotFound = errors.New("module not found")
	// ErrLessonNotFound indicates the catalog has no such lesson.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrModuleIncomplete is returned when a certificate is requested before a module is 100% complete.
	ErrModuleIncomplete = errors.New("module not complete")
	// ErrInvalidStudentName is returned for an empty certificate name.
	ErrInvalidStudentName = errors.New("student name required")
	// ErrCertificateNotFound indicates no certificate carries the given verification code.
	ErrCertificateNotFound = errors.New("certificate not found")
	// ErrInvalidSettings indicates a settings patch with unknown theme or font size.
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrSessionNotFound is returned when a learner has no quiz session yet.
	ErrSessionNotFound = errors.New("quiz session not found")
)
