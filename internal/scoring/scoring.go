// Package scoring turns a finished attempt into a score, a confidence analysis,
// a certification tier and feedback. Everything here is pure.
package scoring

import (
	"fmt"
	"math"

	"cx-lms-service/internal/domain"
)

// Tier is a named certification level.
type Tier string

const (
	TierMaster       Tier = "Master"
	TierExpert       Tier = "Expert"
	TierProfessional Tier = "Professional"
	TierLearning     Tier = "Learning"
)

// FeedbackKind tags a feedback item.
type FeedbackKind string

const (
	FeedbackWarning FeedbackKind = "warning"
	FeedbackSuccess FeedbackKind = "success"
	FeedbackInfo    FeedbackKind = "info"
)

// FeedbackItem is one personalized message.
type FeedbackItem struct {
	Kind    FeedbackKind `json:"type"`
	Message string       `json:"message"`
}

// Calibration intersects High confidence with correctness.
type Calibration struct {
	HighConfidenceCorrect int `json:"highConfidenceCorrect"`
	HighConfidenceWrong   int `json:"highConfidenceWrong"`
}

// Analysis bundles everything derived from an attempt.
type Analysis struct {
	Score          int                       `json:"score"`
	CorrectAnswers int                       `json:"correctAnswers"`
	TotalQuestions int                       `json:"totalQuestions"`
	Breakdown      map[domain.Confidence]int `json:"confidenceBreakdown"`
	Calibration    Calibration               `json:"calibration"`
	Tier           Tier                      `json:"tier"`
	Feedback       []FeedbackItem            `json:"feedback"`
}

// CorrectCount counts questions whose answer matches the correct option.
// Answers for questions outside the attempt are ignored.
func CorrectCount(questions []domain.QuizQuestion, answers []domain.Answer) int {
	chosen := make(map[int][]string, len(answers))
	for _, a := range answers {
		chosen[a.QuestionID] = append(chosen[a.QuestionID], a.Answer)
	}
	correct := 0
	for _, q := range questions {
		for _, option := range chosen[q.ID] {
			if q.IsCorrect(option) {
				correct++
				break
			}
		}
	}
	return correct
}

// Score is the rounded percentage of correct answers over all questions in the
// attempt. Unanswered questions count as wrong; an empty attempt scores 0.
func Score(questions []domain.QuizQuestion, answers []domain.Answer) int {
	if len(questions) == 0 {
		return 0
	}
	correct := CorrectCount(questions, answers)
	return int(math.Round(float64(correct) / float64(len(questions)) * 100))
}

// ConfidenceBreakdown tallies confidence levels over submitted answers. Levels with
// no answers are absent from the map.
func ConfidenceBreakdown(answers []domain.Answer) map[domain.Confidence]int {
	out := make(map[domain.Confidence]int)
	for _, a := range answers {
		out[a.Confidence]++
	}
	return out
}

// Miscalibration counts High confidence answers that were right and wrong.
func Miscalibration(questions []domain.QuizQuestion, answers []domain.Answer) Calibration {
	byID := make(map[int]domain.QuizQuestion, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	var c Calibration
	for _, a := range answers {
		if a.Confidence != domain.ConfidenceHigh {
			continue
		}
		q, ok := byID[a.QuestionID]
		if !ok {
			continue
		}
		if q.IsCorrect(a.Answer) {
			c.HighConfidenceCorrect++
		} else {
			c.HighConfidenceWrong++
		}
	}
	return c
}

// CertificationTier maps a percentage onto a tier. Lower bounds are inclusive:
// [95,100] Master, [85,95) Expert, [75,85) Professional, below 75 Learning.
func CertificationTier(percentage float64) Tier {
	switch {
	case percentage >= 95:
		return TierMaster
	case percentage >= 85:
		return TierExpert
	case percentage >= 75:
		return TierProfessional
	default:
		return TierLearning
	}
}

// Feedback produces warning, success and info items, in that order, for every
// condition that applies.
func Feedback(cal Calibration, breakdown map[domain.Confidence]int, correctAnswers, totalQuestions int) []FeedbackItem {
	items := []FeedbackItem{}
	if cal.HighConfidenceWrong > 0 {
		items = append(items, FeedbackItem{
			Kind:    FeedbackWarning,
			Message: fmt.Sprintf("You were highly confident on %d incorrect answers. Consider reviewing those topics more carefully.", cal.HighConfidenceWrong),
		})
	}
	if float64(cal.HighConfidenceCorrect) > 0.8*float64(correctAnswers) {
		items = append(items, FeedbackItem{
			Kind:    FeedbackSuccess,
			Message: "Great job! You showed strong confidence in your correct answers.",
		})
	}
	if float64(breakdown[domain.ConfidenceLow]) > 0.3*float64(totalQuestions) {
		items = append(items, FeedbackItem{
			Kind:    FeedbackInfo,
			Message: "You showed low confidence on many questions. Consider reviewing the material to build stronger understanding.",
		})
	}
	return items
}

// Analyze runs every scoring function over an attempt.
func Analyze(questions []domain.QuizQuestion, answers []domain.Answer) Analysis {
	correct := CorrectCount(questions, answers)
	score := Score(questions, answers)
	breakdown := ConfidenceBreakdown(answers)
	cal := Miscalibration(questions, answers)
	return Analysis{
		Score:          score,
		CorrectAnswers: correct,
		TotalQuestions: len(questions),
		Breakdown:      breakdown,
		Calibration:    cal,
		Tier:           CertificationTier(float64(score)),
		Feedback:       Feedback(cal, breakdown, correct, len(questions)),
	}
}
