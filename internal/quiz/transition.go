package quiz

import "github.com/letsssgooo/quizweb/internal/client"

// Continuation — что делать после проверки ответа.
type Continuation int

const (
	// Stay — остаться на вопросе, попытки ещё есть.
	Stay Continuation = iota
	// Advance — после паузы загрузить следующий вопрос.
	Advance
	// Finish — завершить квиз.
	Finish
)

func (c Continuation) String() string {
	switch c {
	case Stay:
		return "stay"
	case Advance:
		return "advance"
	case Finish:
		return "finish"
	default:
		return "unknown"
	}
}

type continuationKey struct {
	correct           bool
	attemptsExhausted bool
	questionsRemain   bool
}

var continuations = map[continuationKey]Continuation{
	{correct: true, attemptsExhausted: false, questionsRemain: true}:   Advance,
	{correct: true, attemptsExhausted: true, questionsRemain: true}:    Advance,
	{correct: true, attemptsExhausted: false, questionsRemain: false}:  Finish,
	{correct: true, attemptsExhausted: true, questionsRemain: false}:   Finish,
	{correct: false, attemptsExhausted: true, questionsRemain: true}:   Advance,
	{correct: false, attemptsExhausted: true, questionsRemain: false}:  Finish,
	{correct: false, attemptsExhausted: false, questionsRemain: true}:  Stay,
	{correct: false, attemptsExhausted: false, questionsRemain: false}: Stay,
}

// NextStep определяет продолжение по результату проверки ответа.
func NextStep(fb client.Feedback) Continuation {
	return continuations[continuationKey{
		correct:           fb.Correct,
		attemptsExhausted: fb.RemainingAttempts == 0,
		questionsRemain:   fb.RemainingQuestions > 0,
	}]
}

// Pending возвращает продолжение, которое ещё не выполнено для показанного вопроса.
// Stay означает, что на вопрос можно отвечать.
func (s State) Pending() Continuation {
	if s.Feedback == nil || s.Question == nil || s.QuizEnded {
		return Stay
	}

	return NextStep(*s.Feedback)
}
