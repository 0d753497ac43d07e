package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"cx-lms-service/internal/domain"
)

// LoadQuestions decodes and validates a JSON question bank.
func LoadQuestions(r io.Reader) ([]domain.QuizQuestion, error) {
	var questions []domain.QuizQuestion
	if err := json.NewDecoder(r).Decode(&questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	seen := make(map[int]struct{}, len(questions))
	for _, q := range questions {
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %d", q.ID)
		}
		seen[q.ID] = struct{}{}
		if err := ValidateQuestion(q); err != nil {
			return nil, err
		}
	}
	return questions, nil
}

// LoadQuestionsFile reads a question bank from path, or the embedded bank when path is empty.
func LoadQuestionsFile(path string) ([]domain.QuizQuestion, error) {
	if path == "" {
		return DefaultQuestions()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadQuestions(f)
}

// DefaultQuestions returns the question bank compiled into the binary.
func DefaultQuestions() ([]domain.QuizQuestion, error) {
	return LoadQuestions(bytes.NewReader(defaultQuestions))
}

// ValidateQuestion checks option uniqueness and that the correct option is literally
// one of them, since grading compares option text.
func ValidateQuestion(q domain.QuizQuestion) error {
	if len(q.Options) == 0 {
		return fmt.Errorf("question %d has no options", q.ID)
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, o := range q.Options {
		if _, dup := seen[o]; dup {
			return fmt.Errorf("question %d repeats option %q", q.ID, o)
		}
		seen[o] = struct{}{}
	}
	if !q.HasOption(q.Correct) {
		return fmt.Errorf("question %d: correct answer %q is not an option", q.ID, q.Correct)
	}
	return nil
}

// GroupByModule indexes a question bank by module number, preserving order.
func GroupByModule(questions []domain.QuizQuestion) map[int][]domain.QuizQuestion {
	out := make(map[int][]domain.QuizQuestion)
	for _, q := range questions {
		out[q.Module] = append(out[q.Module], q)
	}
	return out
}
