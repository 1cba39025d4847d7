package web

import (
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/letsssgooo/quizweb/internal/auth"
	"github.com/letsssgooo/quizweb/internal/client"
	"github.com/letsssgooo/quizweb/internal/quiz"
	"github.com/letsssgooo/quizweb/internal/storage"
)

//go:embed templates/*.html
var templatesFS embed.FS

const layoutTemplate = "layout.html"

// Экраны
const (
	screenWelcome  = "welcome"
	screenAwaiting = "awaiting"
	screenQuestion = "question"
	screenEnded    = "ended"
)

type page struct {
	Title    string
	Subtitle string
	Screen   string
	Player   string
	Flashes  []storage.Flash
	Notice   *quiz.Notice
	Welcome  welcomeView
	Question *questionView
	Score    *scoreView
	Awaiting string
}

type welcomeView struct {
	Header      string
	Hint        string
	Caption     string
	Placeholder string
	MaxUserName int
	MaxINumber  int
}

type questionView struct {
	ID       string
	Text     string
	Progress string
	Percent  int
	Options  []client.Option
	Attempts string
	Verdict  []storage.Flash
	// Answerable ложно, если вердикт уже вынесен, а переход к следующему шагу не удался.
	Answerable bool
	CanAdvance bool
}

type scoreView struct {
	Header         string
	FinalScore     string
	TotalQuestions int
	CorrectAnswers int
	TimeTaken      string
	Thanks         string
}

func parseTemplates() (*template.Template, error) {
	return template.ParseFS(templatesFS, "templates/*.html")
}

// newPage строит страницу для текущей фазы записи rec.
func newPage(rec storage.Record) page {
	st := rec.State

	p := page{
		Title:    msgTitle,
		Subtitle: msgSubtitle,
		Flashes:  rec.Flashes,
		Notice:   st.Notice,
	}

	if rec.UserName != "" && st.Phase() != quiz.PhaseNoSession {
		p.Player = fmt.Sprintf(msgPlayer, rec.UserName)
	}

	switch st.Phase() {
	case quiz.PhaseNoSession:
		p.Screen = screenWelcome
		p.Welcome = welcomeView{
			Header:      msgWelcomeHeader,
			Hint:        msgWelcomeHint,
			Caption:     msgINumberCaption,
			Placeholder: msgINumberPlaceholder,
			MaxUserName: auth.MaxUserNameLength,
			MaxINumber:  auth.MaxINumberLength,
		}
	case quiz.PhaseAwaitingQuestion:
		p.Screen = screenAwaiting
		p.Awaiting = msgNoQuestion
	case quiz.PhaseAnsweringQuestion:
		p.Screen = screenQuestion
		p.Question = newQuestionView(st.Question, st.Feedback)
		p.Question.Answerable = st.Pending() == quiz.Stay
		p.Question.CanAdvance = st.Pending() == quiz.Advance
	case quiz.PhaseEnded:
		p.Screen = screenEnded
		p.Score = newScoreView(st.FinalScore)
	}

	return p
}

func newQuestionView(q *client.Question, fb *client.Feedback) *questionView {
	maxAttempts := q.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	// вопрос не перезапрашивается после неверного ответа, попытки берём из проверки
	attempts := q.Attempts
	if fb != nil && !fb.Correct && fb.RemainingAttempts > 0 {
		attempts = maxAttempts - fb.RemainingAttempts
	}

	total := max(q.TotalQuestions, 1)

	return &questionView{
		ID:       q.QuestionID,
		Text:     q.Text,
		Progress: fmt.Sprintf(msgQuestionProgress, q.CompletedQuestions+1, q.TotalQuestions),
		Percent:  min(q.CompletedQuestions*100/total, 100),
		Options:  q.Options,
		Attempts: fmt.Sprintf(msgAttempts, attempts, maxAttempts),
		Verdict:  verdictFlashes(q, fb),
	}
}

func newScoreView(sc *client.Score) *scoreView {
	if sc == nil {
		sc = &client.Score{}
	}

	return &scoreView{
		Header:         msgQuizComplete,
		FinalScore:     fmt.Sprintf(msgFinalScore, sc.PercentageScore),
		TotalQuestions: sc.TotalQuestions,
		CorrectAnswers: sc.CorrectAnswers,
		TimeTaken:      fmt.Sprintf(msgTimeTaken, sc.Duration),
		Thanks:         msgThanks,
	}
}

// verdictFlashes описывает результат проверки ответа на вопрос q.
func verdictFlashes(q *client.Question, fb *client.Feedback) []storage.Flash {
	if fb == nil {
		return nil
	}

	if fb.Correct {
		return []storage.Flash{{
			Level: storage.FlashSuccess,
			Text:  strings.TrimSpace(fmt.Sprintf(msgCorrect, fb.Message)),
		}}
	}

	flashes := []storage.Flash{{
		Level: storage.FlashError,
		Text:  strings.TrimSpace(fmt.Sprintf(msgIncorrect, fb.Message)),
	}}

	if fb.CorrectAnswerID != "" && q != nil {
		if text, ok := q.OptionText(fb.CorrectAnswerID); ok {
			flashes = append(flashes, storage.Flash{
				Level: storage.FlashInfo,
				Text:  fmt.Sprintf(msgCorrectAnswer, text),
			})
		}
	}

	return flashes
}

func renderPage(c *gin.Context, status int, rec storage.Record) {
	c.Header("Cache-Control", "no-store")
	c.HTML(status, layoutTemplate, newPage(rec))
}
