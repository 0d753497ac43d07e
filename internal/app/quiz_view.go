package app

import (
	"sort"

	"cx-lms-service/internal/domain"
)

// QuestionView is a question as shown during an attempt; the correct option is withheld.
type QuestionView struct {
	ID         int               `json:"id"`
	Question   string            `json:"question"`
	Options    []string          `json:"options"`
	Difficulty domain.Difficulty `json:"difficulty"`
}

// AttemptView is the read-only observer surface of an active attempt.
type AttemptView struct {
	ID               string                `json:"id"`
	ModuleID         string                `json:"moduleId"`
	Questions        []QuestionView        `json:"questions"`
	Cursor           int                   `json:"cursor"`
	Current          QuestionView          `json:"current"`
	Answers          map[int]domain.Answer `json:"answers"`
	Flagged          []int                 `json:"flagged"`
	RemainingSeconds int                   `json:"remainingSeconds"`
	ElapsedSeconds   int                   `json:"elapsedSeconds"`
	AnsweredCount    int                   `json:"answeredCount"`
	FlaggedCount     int                   `json:"flaggedCount"`
	TotalQuestions   int                   `json:"totalQuestions"`
	Submitting       bool                  `json:"submitting"`
}

// SessionSnapshot is everything a client needs to render a quiz session.
type SessionSnapshot struct {
	LearnerID string       `json:"learnerId"`
	State     QuizState    `json:"state"`
	Attempt   *AttemptView `json:"attempt,omitempty"`
	Result    *Result      `json:"result,omitempty"`
	Error     string       `json:"error,omitempty"`
}

func (s *QuizSession) snapshotLocked() SessionSnapshot {
	snap := SessionSnapshot{LearnerID: s.learnerID, State: s.state, Error: s.lastError}
	switch s.state {
	case StateQuiz:
		snap.Attempt = s.attemptViewLocked()
	case StateResults, StateReview:
		if s.result != nil {
			res := *s.result
			snap.Result = &res
		}
	}
	return snap
}

func (s *QuizSession) attemptViewLocked() *AttemptView {
	a := s.attempt
	if a == nil {
		return nil
	}
	questions := make([]QuestionView, len(a.questions))
	for i, q := range a.questions {
		questions[i] = QuestionView{
			ID:         q.ID,
			Question:   q.Question,
			Options:    append([]string(nil), q.Options...),
			Difficulty: q.Difficulty,
		}
	}
	answers := make(map[int]domain.Answer, len(a.answers))
	for id, ans := range a.answers {
		answers[id] = ans
	}
	flagged := make([]int, 0, len(a.flagged))
	for id := range a.flagged {
		flagged = append(flagged, id)
	}
	sort.Ints(flagged)

	view := &AttemptView{
		ID:               a.id,
		ModuleID:         a.moduleID,
		Questions:        questions,
		Cursor:           a.cursor,
		Answers:          answers,
		Flagged:          flagged,
		RemainingSeconds: a.remaining,
		ElapsedSeconds:   int(s.opts.Now().Sub(a.startedAt).Seconds()),
		AnsweredCount:    len(answers),
		FlaggedCount:     len(flagged),
		TotalQuestions:   len(questions),
		Submitting:       a.submitting,
	}
	if len(questions) > 0 {
		view.Current = questions[a.cursor]
	}
	return view
}
