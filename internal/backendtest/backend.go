// Package backendtest содержит фейковый бэкенд квиза для тестов.
// Он повторяет контракт настоящего API: /health, /start, /question, /validate, /score и /end.
package backendtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/letsssgooo/quizweb/internal/client"
)

// BasePath — префикс маршрутов API.
const BasePath = "/quizmaster/api/quiz"

const (
	defaultMaxQuestions = 5
	defaultMaxAttempts  = 3
)

type failure struct {
	code int
	body string
}

type session struct {
	userName  string
	iNumber   string
	current   string
	attempts  int
	completed map[string]struct{}
	correct   int
	active    bool
	startedAt time.Time
	final     *client.Score
}

// Backend — фейковый бэкенд квиза. Вопросы выдаются по порядку.
type Backend struct {
	mu           sync.Mutex
	questions    []Question
	maxQuestions int
	maxAttempts  int
	sessions     map[string]*session
	taken        map[string]struct{}
	failures     map[string]failure
	calls        []string
	now          func() time.Time
}

// Option настраивает Backend.
type Option func(*Backend)

// WithQuestions задаёт банк вопросов.
func WithQuestions(qs []Question) Option {
	return func(b *Backend) {
		b.questions = qs
	}
}

// WithMaxQuestions задаёт число вопросов в сессии.
func WithMaxQuestions(n int) Option {
	return func(b *Backend) {
		b.maxQuestions = n
	}
}

// WithMaxAttempts задаёт число попыток на вопрос.
func WithMaxAttempts(n int) Option {
	return func(b *Backend) {
		b.maxAttempts = n
	}
}

// New создаёт Backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		questions:    DefaultQuestions(),
		maxQuestions: defaultMaxQuestions,
		maxAttempts:  defaultMaxAttempts,
		sessions:     make(map[string]*session),
		taken:        make(map[string]struct{}),
		failures:     make(map[string]failure),
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.maxQuestions = min(b.maxQuestions, len(b.questions))

	return b
}

// Fail заставляет операцию op (client.OpStart и т.д.) отвечать кодом code с телом body.
func (b *Backend) Fail(op string, code int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures[op] = failure{code: code, body: body}
}

// Recover отменяет Fail для op.
func (b *Backend) Recover(op string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.failures, op)
}

// Calls возвращает операции в порядке поступления.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]string(nil), b.calls...)
}

// Start поднимает httptest-сервер и возвращает базовый адрес API.
// Сервер закрывается по завершении теста.
func (b *Backend) Start(t testing.TB) string {
	t.Helper()

	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)

	return srv.URL + BasePath
}

// Handler возвращает http.Handler с маршрутами API.
func (b *Backend) Handler() http.Handler {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	api := r.Group(BasePath, b.recordCall)

	api.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "Quiz Master API is up and running!")
	})
	api.POST("/start", b.handleStart)
	api.GET("/question", b.handleQuestion)
	api.POST("/validate", b.handleValidate)
	api.GET("/score", b.handleScore)
	api.POST("/end", b.handleEnd)

	return r
}

// recordCall записывает вызов и отвечает ошибкой, если для операции задан Fail.
func (b *Backend) recordCall(c *gin.Context) {
	op := opFromPath(c.FullPath())

	b.mu.Lock()
	b.calls = append(b.calls, op)
	f, failing := b.failures[op]
	b.mu.Unlock()

	if failing {
		c.String(f.code, f.body)
		c.Abort()

		return
	}

	c.Next()
}

func opFromPath(path string) string {
	switch path {
	case BasePath + "/health":
		return client.OpHealth
	case BasePath + "/start":
		return client.OpStart
	case BasePath + "/question":
		return client.OpQuestion
	case BasePath + "/validate":
		return client.OpValidate
	case BasePath + "/score":
		return client.OpScore
	case BasePath + "/end":
		return client.OpEnd
	default:
		return path
	}
}

func (b *Backend) handleStart(c *gin.Context) {
	var req client.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserName == "" {
		c.String(http.StatusBadRequest, "User name cannot be empty")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.taken[req.INumber]; ok && req.INumber != "" {
		c.String(http.StatusBadRequest,
			"A user with this Identification Number has already taken the quiz. Each ID can only participate once.")

		return
	}

	id := uuid.NewString()
	b.sessions[id] = &session{
		userName:  req.UserName,
		iNumber:   req.INumber,
		completed: make(map[string]struct{}),
		active:    true,
		startedAt: b.now(),
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionId":    id,
		"message":      "Quiz session started successfully",
		"userName":     req.UserName,
		"iNumber":      req.INumber,
		"maxQuestions": b.maxQuestions,
	})
}

func (b *Backend) handleQuestion(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, msg := b.activeSession(c.Query("sessionId"))
	if msg != "" {
		c.String(http.StatusBadRequest, msg)
		return
	}

	if len(s.completed) >= b.maxQuestions {
		c.String(http.StatusBadRequest, "You have completed all questions for this quiz session")
		return
	}

	if s.current == "" {
		for _, q := range b.questions {
			if _, done := s.completed[q.ID]; !done {
				s.current = q.ID
				s.attempts = 0

				break
			}
		}
	}

	q := b.question(s.current)
	c.JSON(http.StatusOK, client.Question{
		QuestionID:         q.ID,
		Text:               q.Text,
		Options:            q.Options,
		CompletedQuestions: len(s.completed),
		TotalQuestions:     b.maxQuestions,
		Attempts:           s.attempts,
		MaxAttempts:        b.maxAttempts,
	})
}

func (b *Backend) handleValidate(c *gin.Context) {
	var req client.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "Request cannot be null")
		return
	}

	if req.AnswerID == "" {
		c.String(http.StatusBadRequest, "Answer ID cannot be empty")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s, msg := b.activeSession(req.SessionID)
	if msg != "" {
		c.String(http.StatusBadRequest, msg)
		return
	}

	if s.current == "" || s.current != req.QuestionID {
		c.String(http.StatusBadRequest,
			"This is not the current question for this session. Please reload to get the current question.")

		return
	}

	q := b.question(s.current)
	s.attempts++

	fb := client.Feedback{Correct: req.AnswerID == q.Correct}

	switch {
	case fb.Correct:
		s.completed[q.ID] = struct{}{}
		s.correct++
		s.current = ""
		s.attempts = 0
		fb.Message = "Correct answer!"
		fb.RemainingQuestions = b.maxQuestions - len(s.completed)
	case s.attempts >= b.maxAttempts:
		s.completed[q.ID] = struct{}{}
		s.current = ""
		s.attempts = 0

		text, _ := (&client.Question{Options: q.Options}).OptionText(q.Correct)
		fb.Message = "Incorrect answer. You've used all attempts. The correct answer was: " + text
		fb.CorrectAnswerID = q.Correct
		fb.RemainingQuestions = b.maxQuestions - len(s.completed)
	default:
		fb.RemainingAttempts = b.maxAttempts - s.attempts
		fb.RemainingQuestions = b.maxQuestions - len(s.completed)
		fb.Message = fmt.Sprintf("Incorrect answer. Please try again. Attempts remaining: %d", fb.RemainingAttempts)
	}

	c.JSON(http.StatusOK, fb)
}

func (b *Backend) handleScore(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, msg := b.activeSession(c.Query("sessionId"))
	if msg != "" {
		c.String(http.StatusBadRequest, msg)
		return
	}

	c.JSON(http.StatusOK, b.score(s))
}

// handleEnd завершает сессию. Повторный вызов возвращает тот же результат,
// неизвестная сессия получает нулевой результат.
func (b *Backend) handleEnd(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[c.Query("sessionId")]
	if !ok {
		c.JSON(http.StatusOK, client.Score{})
		return
	}

	if s.active {
		s.active = false
		final := b.score(s)
		final.Duration = int64(b.now().Sub(s.startedAt) / time.Second)
		s.final = &final

		if s.iNumber != "" {
			b.taken[s.iNumber] = struct{}{}
		}
	}

	c.JSON(http.StatusOK, s.final)
}

// activeSession возвращает сессию id либо текст ошибки для ответа 400.
func (b *Backend) activeSession(id string) (*session, string) {
	if id == "" {
		return nil, "Session ID cannot be empty"
	}

	s, ok := b.sessions[id]
	if !ok {
		return nil, "Invalid or expired session ID"
	}

	if !s.active {
		return nil, "This quiz session has already ended"
	}

	return s, ""
}

func (b *Backend) question(id string) Question {
	for _, q := range b.questions {
		if q.ID == id {
			return q
		}
	}

	return Question{}
}

func (b *Backend) score(s *session) client.Score {
	sc := client.Score{
		TotalQuestions: len(s.completed),
		CorrectAnswers: s.correct,
	}

	if len(s.completed) > 0 {
		sc.PercentageScore = float64(s.correct) / float64(len(s.completed)) * 100
	}

	return sc
}
