package backendtest

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/letsssgooo/quizweb/internal/client"
)

// Question — вопрос банка фейкового бэкенда вместе с правильным ответом.
type Question struct {
	ID      string          `json:"id"`
	Text    string          `json:"text"`
	Options []client.Option `json:"options"`
	Correct string          `json:"correct"`
}

// ParseQuestions разбирает банк вопросов из JSON и проверяет его.
func ParseQuestions(data []byte) ([]Question, error) {
	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, err
	}

	if err := checkQuestions(questions); err != nil {
		return nil, fmt.Errorf("cannot load questions, %w", err)
	}

	return questions, nil
}

//go:embed questions.json
var defaultQuestions []byte

// DefaultQuestions возвращает встроенный банк вопросов.
func DefaultQuestions() []Question {
	questions, err := ParseQuestions(defaultQuestions)
	if err != nil {
		panic(err)
	}

	return questions
}

func checkQuestions(questions []Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("need at least one question")
	}

	seen := make(map[string]struct{}, len(questions))

	for i, q := range questions {
		if q.ID == "" {
			return fmt.Errorf("missing field id of %d question", i)
		}

		if _, ok := seen[q.ID]; ok {
			return fmt.Errorf("duplicate id %q in %d question", q.ID, i)
		}

		seen[q.ID] = struct{}{}

		if q.Text == "" {
			return fmt.Errorf("missing field text of %d question", i)
		}

		if len(q.Options) < 2 {
			return fmt.Errorf("amount of options must be at least two in %d question", i)
		}

		found := false
		for _, opt := range q.Options {
			if opt.ID == q.Correct {
				found = true
				break
			}
		}

		if !found {
			return fmt.Errorf("correct answer of %d question is not among its options", i)
		}
	}

	return nil
}
