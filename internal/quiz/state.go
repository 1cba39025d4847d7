package quiz

import (
	"errors"
	"strconv"

	"github.com/letsssgooo/quizweb/internal/auth"
	"github.com/letsssgooo/quizweb/internal/client"
)

// Phase — фаза клиентской сессии, определяет показываемый экран.
type Phase int

const (
	PhaseNoSession Phase = iota
	PhaseAwaitingQuestion
	PhaseAnsweringQuestion
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseNoSession:
		return "no_session"
	case PhaseAwaitingQuestion:
		return "awaiting_question"
	case PhaseAnsweringQuestion:
		return "answering_question"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// NoticeKind — вид ошибки, показанной пользователю.
type NoticeKind string

const (
	NoticeConnectivity NoticeKind = "connectivity"
	NoticeStatus       NoticeKind = "status"
	NoticeValidation   NoticeKind = "validation"
	NoticeBusy         NoticeKind = "busy"
)

// Notice — сообщение об ошибке, прикреплённое к состоянию.
type Notice struct {
	Kind NoticeKind
	Text string
}

// State — состояние клиента одного браузера.
// QuizEnded == true всегда означает, что FinalScore != nil.
type State struct {
	SessionID  string
	Question   *client.Question
	Feedback   *client.Feedback
	QuizEnded  bool
	FinalScore *client.Score
	Notice     *Notice
}

// Phase возвращает текущую фазу.
func (s State) Phase() Phase {
	switch {
	case s.SessionID == "":
		return PhaseNoSession
	case s.QuizEnded:
		return PhaseEnded
	case s.Question == nil:
		return PhaseAwaitingQuestion
	default:
		return PhaseAnsweringQuestion
	}
}

// Event — событие, переводящее State в новое состояние.
type Event interface {
	apply(s State) State
}

// Started — бэкенд выдал новую сессию.
type Started struct {
	SessionID string
}

// QuestionLoaded — получен следующий вопрос.
type QuestionLoaded struct {
	Question client.Question
}

// AnswerChecked — получен результат проверки ответа.
type AnswerChecked struct {
	Feedback client.Feedback
}

// Ended — квиз завершён, получен итоговый результат.
type Ended struct {
	Score client.Score
}

// Reset — возврат к экрану приветствия.
type Reset struct{}

// Failed — операция не удалась; меняется только Notice.
type Failed struct {
	Notice Notice
}

// NoticeDismissed — пользователь увидел сообщение об ошибке.
type NoticeDismissed struct{}

func (e Started) apply(_ State) State {
	return State{SessionID: e.SessionID}
}

func (e QuestionLoaded) apply(s State) State {
	q := e.Question
	s.Question = &q
	s.Feedback = nil
	s.Notice = nil

	return s
}

func (e AnswerChecked) apply(s State) State {
	fb := e.Feedback
	s.Feedback = &fb
	s.Notice = nil

	return s
}

func (e Ended) apply(s State) State {
	score := e.Score
	s.FinalScore = &score
	s.QuizEnded = true
	s.Notice = nil

	return s
}

func (Reset) apply(_ State) State {
	return State{}
}

func (e Failed) apply(s State) State {
	n := e.Notice
	s.Notice = &n

	return s
}

func (NoticeDismissed) apply(s State) State {
	s.Notice = nil
	return s
}

// Reduce применяет событие к состоянию. Не выполняет ввода-вывода.
func Reduce(s State, e Event) State {
	return e.apply(s)
}

var failurePrefixes = map[string]string{
	client.OpStart:    "Error starting quiz: ",
	client.OpQuestion: "Error getting question: ",
	client.OpValidate: "Error validating answer: ",
	client.OpScore:    "Error getting score: ",
	client.OpEnd:      "Error ending quiz: ",
}

// BusyNotice возвращает сообщение для запроса, пришедшего во время другого запроса.
func BusyNotice() Notice {
	return Notice{
		Kind: NoticeBusy,
		Text: "A request is already in progress, please wait.",
	}
}

// NoticeFor переводит ошибку операции op в сообщение для пользователя.
func NoticeFor(op string, err error) Notice {
	if errors.Is(err, auth.ErrValidation) {
		return Notice{Kind: NoticeValidation, Text: err.Error()}
	}

	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		text := statusErr.Body
		if text == "" {
			text = "unexpected response status " + strconv.Itoa(statusErr.Code)
		}

		return Notice{Kind: NoticeStatus, Text: failurePrefixes[op] + text}
	}

	return Notice{
		Kind: NoticeConnectivity,
		Text: "Error connecting to the server: " + err.Error(),
	}
}
