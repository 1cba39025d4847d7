package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/letsssgooo/quizweb/internal/auth"
	"github.com/letsssgooo/quizweb/internal/client"
)

// ErrContract — операция вызвана в фазе, где интерфейс не должен был её предлагать.
// Состояние при этом не меняется, запрос к API не выполняется.
var ErrContract = errors.New("operation is not allowed in the current phase")

// DefaultAdvanceDelay — пауза перед переходом к следующему вопросу.
const DefaultAdvanceDelay = time.Second

// RenderFunc вызывается после каждого перехода состояния.
type RenderFunc func(State)

// Sleeper ждёт d или отмены ctx.
type Sleeper func(ctx context.Context, d time.Duration) error

// Engine ведёт одну клиентскую сессию квиза: выполняет запросы к API
// и применяет их результаты к State через Reduce.
// Engine не потокобезопасен, одновременно выполняется не больше одной операции.
type Engine struct {
	api          client.Client
	state        State
	render       RenderFunc
	advanceDelay time.Duration
	sleep        Sleeper
	log          *slog.Logger
}

// Option настраивает Engine.
type Option func(*Engine)

// WithAdvanceDelay задаёт паузу перед автоматическим переходом к следующему вопросу.
func WithAdvanceDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.advanceDelay = d
	}
}

// WithSleeper подменяет ожидание (используется в тестах).
func WithSleeper(s Sleeper) Option {
	return func(e *Engine) {
		e.sleep = s
	}
}

// WithRender подключает функцию отрисовки.
func WithRender(r RenderFunc) Option {
	return func(e *Engine) {
		e.render = r
	}
}

// WithLogger задаёт логгер.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// NewEngine создаёт Engine, продолжающий сессию с состоянием state.
func NewEngine(api client.Client, state State, opts ...Option) *Engine {
	e := &Engine{
		api:          api,
		state:        state,
		advanceDelay: DefaultAdvanceDelay,
		sleep:        sleepContext,
		log:          slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// State возвращает текущее состояние.
func (e *Engine) State() State {
	return e.state
}

// StartQuiz проверяет ввод и начинает новую сессию.
// Доступно только на экране приветствия.
func (e *Engine) StartQuiz(ctx context.Context, userName, iNumber string) error {
	if e.state.Phase() != PhaseNoSession {
		return fmt.Errorf("start quiz: %w: session %s is active", ErrContract, e.state.SessionID)
	}

	participant, err := auth.ParseParticipant(userName, iNumber)
	if err != nil {
		return e.fail(client.OpStart, err)
	}

	resp, err := e.api.StartQuiz(ctx, client.StartRequest{
		UserName: participant.UserName,
		INumber:  participant.INumber,
	})
	if err != nil {
		return e.fail(client.OpStart, err)
	}

	e.apply(Started{SessionID: resp.SessionID})
	e.log.Info("quiz started", "session", resp.SessionID, "i_number", participant.INumber)

	return nil
}

// FetchNextQuestion загружает следующий вопрос и сбрасывает Feedback.
func (e *Engine) FetchNextQuestion(ctx context.Context) error {
	if e.state.SessionID == "" {
		return fmt.Errorf("fetch next question: %w: no active session", ErrContract)
	}

	if e.state.QuizEnded {
		return fmt.Errorf("fetch next question: %w: quiz has ended", ErrContract)
	}

	question, err := e.api.GetQuestion(ctx, e.state.SessionID)
	if err != nil {
		return e.fail(client.OpQuestion, err)
	}

	e.apply(QuestionLoaded{Question: *question})

	return nil
}

// SubmitAnswer отправляет ответ answerID на вопрос questionID.
// После успешной проверки, если ответ верный или попытки закончились,
// загружает следующий вопрос (после паузы) или завершает квиз.
func (e *Engine) SubmitAnswer(ctx context.Context, questionID, answerID string) error {
	if e.state.Phase() != PhaseAnsweringQuestion {
		return fmt.Errorf("submit answer: %w: phase %s", ErrContract, e.state.Phase())
	}

	if e.state.Question.QuestionID != questionID {
		return fmt.Errorf(
			"submit answer: %w: question %q is not displayed (current %q)",
			ErrContract,
			questionID,
			e.state.Question.QuestionID,
		)
	}

	if next := e.state.Pending(); next != Stay {
		return fmt.Errorf("submit answer: %w: question %q is already settled, pending %s", ErrContract, questionID, next)
	}

	answerID = strings.TrimSpace(answerID)
	if answerID == "" {
		return e.fail(client.OpValidate, &auth.FieldError{
			Field:   "answerId",
			Message: "Please select an answer.",
		})
	}

	if !e.state.Question.HasOption(answerID) {
		return e.fail(client.OpValidate, &auth.FieldError{
			Field:   "answerId",
			Message: "Please select one of the listed answers.",
		})
	}

	feedback, err := e.api.ValidateAnswer(ctx, client.ValidateRequest{
		SessionID:  e.state.SessionID,
		QuestionID: questionID,
		AnswerID:   answerID,
	})
	if err != nil {
		return e.fail(client.OpValidate, err)
	}

	e.apply(AnswerChecked{Feedback: *feedback})

	next := NextStep(*feedback)
	e.log.Debug("answer checked",
		"session", e.state.SessionID,
		"question", questionID,
		"correct", feedback.Correct,
		"next", next.String(),
	)

	switch next {
	case Advance:
		if err = e.sleep(ctx, e.advanceDelay); err != nil {
			return e.fail(client.OpQuestion, fmt.Errorf("%w: %w", client.ErrUnavailable, err))
		}

		return e.FetchNextQuestion(ctx)
	case Finish:
		return e.EndQuiz(ctx)
	default:
		return nil
	}
}

// EndQuiz завершает сессию и сохраняет итоговый результат.
// Повторный вызов после завершения допустим, повторная обработка остаётся на стороне бэкенда.
func (e *Engine) EndQuiz(ctx context.Context) error {
	if e.state.SessionID == "" {
		return fmt.Errorf("end quiz: %w: no active session", ErrContract)
	}

	score, err := e.api.EndQuiz(ctx, e.state.SessionID)
	if err != nil {
		return e.fail(client.OpEnd, err)
	}

	e.apply(Ended{Score: *score})
	e.log.Info("quiz ended",
		"session", e.state.SessionID,
		"percentage", score.PercentageScore,
		"correct", score.CorrectAnswers,
		"total", score.TotalQuestions,
	)

	return nil
}

// CurrentScore запрашивает текущий результат сессии. Состояние не меняется.
func (e *Engine) CurrentScore(ctx context.Context) (*client.Score, error) {
	if e.state.SessionID == "" {
		return nil, fmt.Errorf("current score: %w: no active session", ErrContract)
	}

	return e.api.GetScore(ctx, e.state.SessionID)
}

// ResetToWelcome сбрасывает состояние без обращения к API.
func (e *Engine) ResetToWelcome() {
	e.apply(Reset{})
}

// DismissNotice убирает показанное сообщение об ошибке.
func (e *Engine) DismissNotice() {
	if e.state.Notice != nil {
		e.apply(NoticeDismissed{})
	}
}

func (e *Engine) apply(ev Event) {
	e.state = Reduce(e.state, ev)

	if e.render != nil {
		e.render(e.state)
	}
}

func (e *Engine) fail(op string, err error) error {
	notice := NoticeFor(op, err)
	e.apply(Failed{Notice: notice})

	if notice.Kind == NoticeValidation {
		e.log.Debug("input rejected", "op", op, "err", err)
	} else {
		e.log.Warn("quiz backend call failed", "op", op, "kind", string(notice.Kind), "err", err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
