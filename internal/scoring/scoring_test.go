package scoring_test

import (
	"math/rand"
	"testing"

	"cx-lms-service/internal/domain"
	"cx-lms-service/internal/scoring"
)

func twoQuestions() []domain.QuizQuestion {
	return []domain.QuizQuestion{
		{ID: 1, Module: 1, Question: "Q1", Options: []string{"A", "B"}, Correct: "A"},
		{ID: 2, Module: 1, Question: "Q2", Options: []string{"C", "D"}, Correct: "D"},
	}
}

func TestScoreCountsUnansweredAsWrong(t *testing.T) {
	answers := []domain.Answer{{QuestionID: 1, Answer: "A", Confidence: domain.ConfidenceHigh}}
	if got := scoring.Score(twoQuestions(), answers); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
}

func TestScoreZeroAnswersIsZero(t *testing.T) {
	if got := scoring.Score(twoQuestions(), nil); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := scoring.Score(nil, nil); got != 0 {
		t.Fatalf("expected 0 for empty attempt, got %d", got)
	}
}

func TestScoreRoundsToNearest(t *testing.T) {
	questions := []domain.QuizQuestion{
		{ID: 1, Options: []string{"x"}, Correct: "x"},
		{ID: 2, Options: []string{"x"}, Correct: "x"},
		{ID: 3, Options: []string{"x", "y"}, Correct: "x"},
	}
	answers := []domain.Answer{{QuestionID: 1, Answer: "x"}, {QuestionID: 2, Answer: "x"}, {QuestionID: 3, Answer: "y"}}
	if got := scoring.Score(questions, answers); got != 67 {
		t.Fatalf("expected 67, got %d", got)
	}
}

func TestScoreBoundedAndOrderInvariant(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	questions := make([]domain.QuizQuestion, 10)
	for i := range questions {
		questions[i] = domain.QuizQuestion{ID: i + 1, Options: []string{"a", "b", "c"}, Correct: "b"}
	}
	for trial := 0; trial < 50; trial++ {
		var answers []domain.Answer
		for _, q := range questions {
			if rnd.Intn(3) == 0 {
				continue
			}
			answers = append(answers, domain.Answer{QuestionID: q.ID, Answer: q.Options[rnd.Intn(3)]})
		}
		want := scoring.Score(questions, answers)
		if want < 0 || want > 100 {
			t.Fatalf("score out of range: %d", want)
		}
		rnd.Shuffle(len(answers), func(i, j int) { answers[i], answers[j] = answers[j], answers[i] })
		if got := scoring.Score(questions, answers); got != want {
			t.Fatalf("score changed with answer order: %d vs %d", got, want)
		}
	}
}

func TestCertificationTierBoundaries(t *testing.T) {
	cases := []struct {
		in   float64
		want scoring.Tier
	}{
		{100, scoring.TierMaster},
		{95, scoring.TierMaster},
		{94.999, scoring.TierExpert},
		{85, scoring.TierExpert},
		{84.9, scoring.TierProfessional},
		{75, scoring.TierProfessional},
		{74, scoring.TierLearning},
		{0, scoring.TierLearning},
	}
	for _, c := range cases {
		if got := scoring.CertificationTier(c.in); got != c.want {
			t.Fatalf("CertificationTier(%v) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestCertificationTierMonotonic(t *testing.T) {
	rank := map[scoring.Tier]int{
		scoring.TierLearning:     0,
		scoring.TierProfessional: 1,
		scoring.TierExpert:       2,
		scoring.TierMaster:       3,
	}
	prev := rank[scoring.CertificationTier(0)]
	for p := 0.0; p <= 100; p += 0.25 {
		cur := rank[scoring.CertificationTier(p)]
		if cur < prev {
			t.Fatalf("tier decreased at %v", p)
		}
		prev = cur
	}
}

func TestAnalyzeSingleHighConfidenceCorrect(t *testing.T) {
	answers := []domain.Answer{{QuestionID: 1, Answer: "A", Confidence: domain.ConfidenceHigh}}
	a := scoring.Analyze(twoQuestions(), answers)

	if a.Score != 50 {
		t.Fatalf("expected score 50, got %d", a.Score)
	}
	if len(a.Breakdown) != 1 || a.Breakdown[domain.ConfidenceHigh] != 1 {
		t.Fatalf("expected breakdown {High:1}, got %v", a.Breakdown)
	}
	if a.Calibration.HighConfidenceWrong != 0 || a.Calibration.HighConfidenceCorrect != 1 {
		t.Fatalf("unexpected calibration %+v", a.Calibration)
	}
	if len(a.Feedback) != 1 || a.Feedback[0].Kind != scoring.FeedbackSuccess {
		t.Fatalf("expected only success feedback, got %+v", a.Feedback)
	}
	if a.Tier != scoring.TierLearning {
		t.Fatalf("expected Learning tier, got %s", a.Tier)
	}
}

func TestFeedbackOrderWhenAllApply(t *testing.T) {
	cal := scoring.Calibration{HighConfidenceCorrect: 5, HighConfidenceWrong: 1}
	breakdown := map[domain.Confidence]int{domain.ConfidenceLow: 4}
	items := scoring.Feedback(cal, breakdown, 5, 10)
	if len(items) != 3 {
		t.Fatalf("expected 3 feedback items, got %+v", items)
	}
	want := []scoring.FeedbackKind{scoring.FeedbackWarning, scoring.FeedbackSuccess, scoring.FeedbackInfo}
	for i, k := range want {
		if items[i].Kind != k {
			t.Fatalf("item %d: expected %s, got %s", i, k, items[i].Kind)
		}
	}
}

func TestFeedbackNoneWhenNothingApplies(t *testing.T) {
	items := scoring.Feedback(scoring.Calibration{}, map[domain.Confidence]int{domain.ConfidenceMedium: 3}, 0, 3)
	if len(items) != 0 {
		t.Fatalf("expected no feedback, got %+v", items)
	}
}
