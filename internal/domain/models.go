package domain

import "time"

// Difficulty grades a quiz question.
type Difficulty string

const (
	Foundational Difficulty = "Foundational"
	Applied      Difficulty = "Applied"
	Strategic    Difficulty = "Strategic"
)

// Confidence is the learner's self-reported certainty for an answer.
type Confidence string

const (
	ConfidenceLow    Confidence = "Low"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceHigh   Confidence = "High"
)

// Valid reports whether c is one of Low, Medium or High.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return true
	}
	return false
}

// QuizQuestion is a multiple-choice question owned by a module number.
// Correct must equal one of Options literally; grading compares strings.
type QuizQuestion struct {
	ID          int        `json:"id"`
	Module      int        `json:"module"`
	Question    string     `json:"question"`
	Options     []string   `json:"options"`
	Correct     string     `json:"correct"`
	Explanation string     `json:"explanation"`
	Difficulty  Difficulty `json:"difficulty"`
}

// HasOption reports whether option is one of the declared options.
func (q QuizQuestion) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

// IsCorrect reports whether option matches the correct option string.
func (q QuizQuestion) IsCorrect(option string) bool {
	return option == q.Correct
}

// Answer is the learner's choice for one question of an attempt.
// Unanswered questions have no Answer at all.
type Answer struct {
	QuestionID int        `json:"questionId"`
	Answer     string     `json:"answer"`
	Confidence Confidence `json:"confidence"`
	TimeSpent  float64    `json:"timeSpent"` // seconds
}

// QuizResponse is the persisted, scored result of a submitted attempt.
type QuizResponse struct {
	Answers     []Answer  `json:"answers"`
	CompletedAt time.Time `json:"completedAt"`
	Score       int       `json:"score"`
	// ConfidenceAdjustedScore currently equals Score; no weighting is applied.
	ConfidenceAdjustedScore int `json:"confidenceAdjustedScore"`
}

// SubmitTrigger records what ended an attempt.
type SubmitTrigger string

const (
	SubmitManual SubmitTrigger = "manual"
	SubmitTimer  SubmitTrigger = "timer"
)

