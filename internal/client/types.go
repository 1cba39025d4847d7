package client

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Option представляет вариант ответа на вопрос.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question представляет текущий вопрос сессии.
type Question struct {
	QuestionID         string   `json:"questionId"`
	Text               string   `json:"text"`
	Options            []Option `json:"options"`
	CompletedQuestions int      `json:"completedQuestions"`
	TotalQuestions     int      `json:"totalQuestions"`
	Attempts           int      `json:"attempts"`
	MaxAttempts        int      `json:"maxAttempts"`
}

// OptionText возвращает текст варианта с идентификатором id.
func (q *Question) OptionText(id string) (string, bool) {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt.Text, true
		}
	}

	return "", false
}

// HasOption сообщает, есть ли у вопроса вариант id.
func (q *Question) HasOption(id string) bool {
	_, ok := q.OptionText(id)
	return ok
}

// Feedback — результат проверки одного ответа.
type Feedback struct {
	Correct            bool   `json:"correct"`
	Message            string `json:"message"`
	CorrectAnswerID    string `json:"correctAnswerId,omitempty"`
	RemainingAttempts  int    `json:"remainingAttempts"`
	RemainingQuestions int    `json:"remainingQuestions"`
}

// Score — текущий или итоговый результат сессии.
type Score struct {
	PercentageScore float64 `json:"percentageScore"`
	TotalQuestions  int     `json:"totalQuestions"`
	CorrectAnswers  int     `json:"correctAnswers"`
	Duration        int64   `json:"duration"` // в секундах
}

// StartRequest — тело запроса POST /start.
type StartRequest struct {
	UserName string `json:"userName"`
	INumber  string `json:"iNumber,omitempty"`
}

// StartResponse — ответ на POST /start.
type StartResponse struct {
	SessionID string `json:"sessionId"`
}

// ValidateRequest — тело запроса POST /validate.
type ValidateRequest struct {
	SessionID  string `json:"sessionId"`
	QuestionID string `json:"questionId"`
	AnswerID   string `json:"answerId"`
}

// Client определяет интерфейс клиента API квиза.
type Client interface {
	// Health проверяет доступность API.
	Health(ctx context.Context) error

	// StartQuiz создаёт новую сессию квиза.
	StartQuiz(ctx context.Context, req StartRequest) (*StartResponse, error)

	// GetQuestion возвращает текущий вопрос сессии.
	GetQuestion(ctx context.Context, sessionID string) (*Question, error)

	// ValidateAnswer проверяет ответ на вопрос.
	ValidateAnswer(ctx context.Context, req ValidateRequest) (*Feedback, error)

	// GetScore возвращает текущий результат сессии.
	GetScore(ctx context.Context, sessionID string) (*Score, error)

	// EndQuiz завершает сессию и возвращает итоговый результат.
	EndQuiz(ctx context.Context, sessionID string) (*Score, error)
}

// CallObserver получает сведения о каждом вызове API.
type CallObserver interface {
	ObserveCall(op string, outcome string, elapsed time.Duration)
}

// Названия операций API, используются в ошибках и метриках.
const (
	OpHealth   = "health"
	OpStart    = "start"
	OpQuestion = "question"
	OpValidate = "validate"
	OpScore    = "score"
	OpEnd      = "end"
)

// Исходы вызова для CallObserver.
const (
	OutcomeOK          = "ok"
	OutcomeStatus      = "status"
	OutcomeUnavailable = "unavailable"
)

// ErrUnavailable означает, что API недоступно (сеть, таймаут, битый ответ).
var ErrUnavailable = errors.New("quiz backend unavailable")

// StatusError — ответ API с кодом, отличным от 2xx.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected response status %d: %s", e.Op, e.Code, e.Body)
}

// Таймауты
const (
	defaultTimeout       = 10 * time.Second
	defaultHealthTimeout = 2 * time.Second
	maxBodySize          = 1 << 20
)
