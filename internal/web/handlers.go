package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/letsssgooo/quizweb/internal/client"
	"github.com/letsssgooo/quizweb/internal/quiz"
	"github.com/letsssgooo/quizweb/internal/storage"
)

// action — операция над сессией одного браузера.
type action func(ctx context.Context, e *quiz.Engine, rec *storage.Record) error

func (s *Server) handleIndex(c *gin.Context) {
	ctx := c.Request.Context()
	key := browserKey(c)

	release, err := s.store.Acquire(ctx, key)
	if errors.Is(err, storage.ErrBusy) {
		s.refuseBusy(c, key, http.StatusOK)
		return
	}

	if err != nil {
		s.internalError(c, err)
		return
	}

	defer release()

	rec, err := s.store.Get(ctx, key)
	if err != nil {
		s.internalError(c, err)
		return
	}

	renderPage(c, http.StatusOK, rec)

	if len(rec.Flashes) == 0 && rec.State.Notice == nil {
		return
	}

	// сообщения показываются один раз
	rec.Flashes = nil
	rec.State = quiz.Reduce(rec.State, quiz.NoticeDismissed{})

	if err = s.store.Save(ctx, key, rec); err != nil {
		s.log.Error("failed to save browser session", "browser", key, "err", err)
	}
}

func (s *Server) handleStart(c *gin.Context) {
	userName := c.PostForm("userName")
	iNumber := c.PostForm("iNumber")

	s.mutate(c, func(ctx context.Context, e *quiz.Engine, rec *storage.Record) error {
		if err := e.StartQuiz(ctx, userName, iNumber); err != nil {
			return err
		}

		rec.UserName = strings.TrimSpace(userName)
		rec.Flashes = append(rec.Flashes, storage.Flash{
			Level: storage.FlashSuccess,
			Text:  fmt.Sprintf(msgGreeting, rec.UserName),
		})

		return e.FetchNextQuestion(ctx)
	})
}

func (s *Server) handleAnswer(c *gin.Context) {
	questionID := c.PostForm("questionId")
	answerID := c.PostForm("answerId")

	s.mutate(c, func(ctx context.Context, e *quiz.Engine, _ *storage.Record) error {
		return e.SubmitAnswer(ctx, questionID, answerID)
	})
}

func (s *Server) handleNext(c *gin.Context) {
	s.mutate(c, func(ctx context.Context, e *quiz.Engine, _ *storage.Record) error {
		return e.FetchNextQuestion(ctx)
	})
}

func (s *Server) handleEnd(c *gin.Context) {
	s.mutate(c, func(ctx context.Context, e *quiz.Engine, _ *storage.Record) error {
		return e.EndQuiz(ctx)
	})
}

func (s *Server) handleReset(c *gin.Context) {
	s.mutate(c, func(_ context.Context, e *quiz.Engine, rec *storage.Record) error {
		e.ResetToWelcome()
		rec.UserName = ""
		rec.Flashes = nil

		return nil
	})
}

// handleScore отдаёт текущий результат в JSON.
func (s *Server) handleScore(c *gin.Context) {
	key := browserKey(c)

	release, err := s.store.Acquire(c.Request.Context(), key)
	if errors.Is(err, storage.ErrBusy) {
		s.metrics.BusyRejections.Inc()
		c.JSON(http.StatusConflict, gin.H{"error": quiz.BusyNotice().Text})

		return
	}

	if err != nil {
		s.internalError(c, err)
		return
	}

	defer release()

	ctx := context.WithoutCancel(c.Request.Context())

	rec, err := s.store.Get(ctx, key)
	if err != nil {
		s.internalError(c, err)
		return
	}

	if rec.State.QuizEnded {
		c.JSON(http.StatusOK, rec.State.FinalScore)
		return
	}

	e := quiz.NewEngine(s.api, rec.State, quiz.WithLogger(s.log.With("browser", key)))

	score, err := e.CurrentScore(ctx)
	if err == nil {
		c.JSON(http.StatusOK, score)
		return
	}

	if errors.Is(err, quiz.ErrContract) {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNoSession})
		return
	}

	code := http.StatusServiceUnavailable

	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		code = http.StatusBadGateway
	}

	s.log.Warn("failed to get score", "browser", key, "err", err)
	c.JSON(code, gin.H{"error": quiz.NoticeFor(client.OpScore, err).Text})
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleReadyz проверяет доступность API квиза.
func (s *Server) handleReadyz(c *gin.Context) {
	if err := s.api.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// mutate выполняет act над сессией браузера, сохраняет результат и перенаправляет на "/".
// Пока выполняется act, остальные запросы того же браузера отклоняются.
func (s *Server) mutate(c *gin.Context, act action) {
	key := browserKey(c)

	release, err := s.store.Acquire(c.Request.Context(), key)
	if errors.Is(err, storage.ErrBusy) {
		s.refuseBusy(c, key, http.StatusConflict)
		return
	}

	if err != nil {
		s.internalError(c, err)
		return
	}

	defer release()

	// закрытие вкладки не прерывает начатую цепочку запросов к API
	ctx := context.WithoutCancel(c.Request.Context())

	rec, err := s.store.Get(ctx, key)
	if err != nil {
		s.internalError(c, err)
		return
	}

	seen := rec.State.Feedback

	var verdict []storage.Flash

	e := quiz.NewEngine(s.api, rec.State,
		quiz.WithAdvanceDelay(s.cfg.AdvanceDelay),
		quiz.WithLogger(s.log.With("browser", key)),
		quiz.WithRender(func(st quiz.State) {
			if st.Feedback != nil && st.Feedback != seen {
				seen = st.Feedback
				verdict = verdictFlashes(st.Question, st.Feedback)
			}
		}),
	)

	if err = act(ctx, e, &rec); errors.Is(err, quiz.ErrContract) {
		s.log.Info("stale form ignored", "browser", key, "path", c.FullPath(), "err", err)
	}

	st := e.State()

	// вердикт, который уже не виден на странице, переносим на следующую
	if verdict != nil && (st.QuizEnded || st.Feedback == nil) {
		rec.Flashes = append(rec.Flashes, verdict...)
	}

	rec.State = st

	if err = s.store.Save(ctx, key, rec); err != nil {
		s.internalError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// refuseBusy показывает текущее состояние с сообщением о занятости, ничего не сохраняя.
func (s *Server) refuseBusy(c *gin.Context, key string, status int) {
	s.metrics.BusyRejections.Inc()

	rec, err := s.store.Get(c.Request.Context(), key)
	if err != nil {
		s.internalError(c, err)
		return
	}

	rec.Flashes = nil
	rec.State = quiz.Reduce(rec.State, quiz.Failed{Notice: quiz.BusyNotice()})

	renderPage(c, status, rec)
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.log.Error("request failed", "path", c.FullPath(), "err", err)
	c.AbortWithStatus(http.StatusInternalServerError)
}
