package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/quizweb/internal/backendtest"
	"github.com/letsssgooo/quizweb/internal/client"
	"github.com/letsssgooo/quizweb/internal/monitoring"
	"github.com/letsssgooo/quizweb/internal/storage"
)

type harness struct {
	t       *testing.T
	backend *backendtest.Backend
	store   *storage.MemoryStorage
	metrics *monitoring.Metrics
	srv     *httptest.Server
	http    *http.Client
}

func newHarness(t *testing.T, modify ...func(*Config)) *harness {
	t.Helper()

	return newHarnessWith(t, backendtest.New(backendtest.WithMaxQuestions(2)), modify...)
}

func newHarnessWith(t *testing.T, backend *backendtest.Backend, modify ...func(*Config)) *harness {
	t.Helper()

	metrics := monitoring.New()
	api := client.NewHTTPClient(backend.Start(t), client.WithObserver(metrics))

	cfg := Config{
		Mode:            gin.TestMode,
		CookieName:      "quiz_session",
		SessionTTL:      time.Hour,
		RateLimitMax:    1000,
		RateLimitWindow: time.Minute,
	}
	for _, m := range modify {
		m(&cfg)
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	t.Cleanup(cancelFunc)

	h := &harness{
		t:       t,
		backend: backend,
		store:   storage.NewMemoryStorage(),
		metrics: metrics,
	}

	srv, err := NewServer(ctx, cfg, api, h.store, h.metrics, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	h.srv = httptest.NewServer(srv.Handler())
	t.Cleanup(h.srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	h.http = &http.Client{Jar: jar}

	return h
}

func (h *harness) get(path string) (int, string) {
	h.t.Helper()

	resp, err := h.http.Get(h.srv.URL + path)
	require.NoError(h.t, err)

	return readResponse(h.t, resp)
}

func (h *harness) post(path string, form url.Values) (int, string) {
	h.t.Helper()

	resp, err := h.http.PostForm(h.srv.URL+path, form)
	require.NoError(h.t, err)

	return readResponse(h.t, resp)
}

func (h *harness) browserKey() string {
	h.t.Helper()

	u, err := url.Parse(h.srv.URL)
	require.NoError(h.t, err)

	for _, cookie := range h.http.Jar.Cookies(u) {
		if cookie.Name == "quiz_session" {
			return cookie.Value
		}
	}

	h.t.Fatal("no session cookie")

	return ""
}

func readResponse(t *testing.T, resp *http.Response) (int, string) {
	t.Helper()

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func answer(questionID, answerID string) url.Values {
	return url.Values{"questionId": {questionID}, "answerId": {answerID}}
}

func TestServer_FullQuiz(t *testing.T) {
	h := newHarness(t)

	code, body := h.get("/")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Welcome to the Quiz!")
	assert.Contains(t, body, "Each I-Number can only take the quiz once")

	code, body = h.post("/start", url.Values{"userName": {"Ada"}, "iNumber": {"i123"}})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Welcome, Ada! Your quiz is starting...")
	assert.Contains(t, body, "Player: Ada")
	assert.Contains(t, body, "Question 1 of 2")
	assert.Contains(t, body, "Which keyword starts a goroutine?")
	assert.Contains(t, body, "Attempts: 0/3")

	_, body = h.post("/answer", answer("q1", "b"))
	assert.Contains(t, body, "Incorrect. Incorrect answer. Please try again. Attempts remaining: 2")
	assert.Contains(t, body, "Attempts: 1/3")
	assert.Contains(t, body, "Question 1 of 2")

	_, body = h.post("/answer", answer("q1", "a"))
	assert.Contains(t, body, "Correct! Correct answer!")
	assert.Contains(t, body, "Question 2 of 2")
	assert.Contains(t, body, "Attempts: 0/3")

	code, body = h.get("/score")
	require.Equal(t, http.StatusOK, code)

	var score client.Score
	require.NoError(t, json.Unmarshal([]byte(body), &score))
	assert.Equal(t, 1, score.CorrectAnswers)

	h.post("/answer", answer("q2", "a"))
	h.post("/answer", answer("q2", "a"))
	_, body = h.post("/answer", answer("q2", "c"))
	assert.Contains(t, body, "Quiz Complete!")
	assert.Contains(t, body, "Final Score: 50.0%")
	assert.Contains(t, body, "The correct answer was: write")

	_, body = h.get("/")
	assert.Contains(t, body, "Final Score: 50.0%")
	assert.NotContains(t, body, "The correct answer was", "flash is shown once")

	_, body = h.post("/reset", nil)
	assert.Contains(t, body, "Welcome to the Quiz!")

	rec, err := h.store.Get(context.Background(), h.browserKey())
	require.NoError(t, err)
	assert.Empty(t, rec.State.SessionID)
}

func TestServer_StartValidation(t *testing.T) {
	h := newHarness(t)

	_, body := h.post("/start", url.Values{"userName": {"Ada"}, "iNumber": {"A123"}})
	assert.Contains(t, body, "Please enter a valid I-Number (format: I followed by numbers)")
	assert.Contains(t, body, "Welcome to the Quiz!")

	_, body = h.post("/start", url.Values{})
	assert.Contains(t, body, "Please enter your name to start the quiz.")
	assert.Contains(t, body, "Please enter your I-Number to start the quiz.")

	assert.Empty(t, h.backend.Calls())

	_, body = h.get("/")
	assert.NotContains(t, body, "Please enter", "notice is shown once")
}

func TestServer_BackendStatusShown(t *testing.T) {
	h := newHarness(t)
	h.backend.Fail(client.OpStart, http.StatusBadRequest, "A user with this Identification Number has already taken the quiz.")

	_, body := h.post("/start", url.Values{"userName": {"Ada"}, "iNumber": {"I1"}})
	assert.Contains(t, body, "Error starting quiz: A user with this Identification Number has already taken the quiz.")
	assert.Contains(t, body, "Welcome to the Quiz!")
}

func TestServer_QuestionFailureOffersRetry(t *testing.T) {
	h := newHarness(t)
	h.backend.Fail(client.OpQuestion, http.StatusInternalServerError, "bank offline")

	_, body := h.post("/start", url.Values{"userName": {"Ada"}, "iNumber": {"I1"}})
	assert.Contains(t, body, "Error getting question: bank offline")
	assert.Contains(t, body, `action="/next"`)

	h.backend.Recover(client.OpQuestion)

	_, body = h.post("/next", nil)
	assert.Contains(t, body, "Question 1 of 2")
}

func TestServer_AdvanceFailureOffersNext(t *testing.T) {
	h := newHarness(t)

	h.post("/start", url.Values{"userName": {"Ada"}, "iNumber": {"I1"}})
	h.backend.Fail(client.OpQuestion, http.StatusServiceUnavailable, "bank offline")

	_, body := h.post("/answer", answer("q1", "a"))
	assert.Contains(t, body, "Error getting question: bank offline")
	assert.Contains(t, body, "Correct! Correct answer!")
	assert.Contains(t, body, `action="/next"`)
	assert.NotContains(t, body, `action="/answer"`)

	calls := len(h.backend.Calls())

	_, body = h.post("/answer", answer("q1", "a"))
	assert.NotContains(t, body, "This is not the current question")
	assert.Len(t, h.backend.Calls(), calls, "settled question is not resubmitted")

	h.backend.Recover(client.OpQuestion)

	_, body = h.post("/next", nil)
	assert.Contains(t, body, "Question 2 of 2")
	assert.Contains(t, body, `action="/answer"`)
	assert.NotContains(t, body, `action="/next"`)
}

func TestServer_FinishFailureOffersEnd(t *testing.T) {
	backend := backendtest.New(backendtest.WithMaxQuestions(1), backendtest.WithMaxAttempts(1))
	h := newHarnessWith(t, backend)

	_, body := h.post("/start", url.Values{"userName": {"Ada"}, "iNumber": {"I1"}})
	assert.Contains(t, body, "Attempts: 0/1")

	h.backend.Fail(client.OpEnd, http.StatusInternalServerError, "scores unavailable")

	_, body = h.post("/answer", answer("q1", "b"))
	assert.Contains(t, body, "Error ending quiz: scores unavailable")
	assert.Contains(t, body, "The correct answer was: go")
	assert.NotContains(t, body, `action="/answer"`)
	assert.NotContains(t, body, `action="/next"`)
	assert.Contains(t, body, `action="/end"`)

	h.backend.Recover(client.OpEnd)

	_, body = h.post("/end", nil)
	assert.Contains(t, body, "Quiz Complete!")
	assert.Contains(t, body, "Final Score: 0.0%")
}

func TestServer_StaleFormIsIgnored(t *testing.T) {
	h := newHarness(t)

	code, body := h.post("/answer", answer("q1", "a"))
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Welcome to the Quiz!")
	assert.Empty(t, h.backend.Calls())
}

func TestServer_BusySessionIsRefused(t *testing.T) {
	h := newHarness(t)

	h.post("/start", url.Values{"userName": {"Ada"}, "iNumber": {"I1"}})
	calls := len(h.backend.Calls())

	release, err := h.store.Acquire(context.Background(), h.browserKey())
	require.NoError(t, err)

	code, body := h.post("/end", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, body, "A request is already in progress, please wait.")
	assert.Contains(t, body, "Question 1 of 2")

	code, _ = h.get("/score")
	assert.Equal(t, http.StatusConflict, code)

	release()

	assert.Len(t, h.backend.Calls(), calls)
	assert.InDelta(t, 2.0, testutil.ToFloat64(h.metrics.BusyRejections), 0.001)

	_, body = h.get("/")
	assert.NotContains(t, body, "already in progress")
}

func TestServer_ScoreWithoutSession(t *testing.T) {
	h := newHarness(t)

	code, body := h.get("/score")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body, msgNoSession)
}

func TestServer_Probes(t *testing.T) {
	h := newHarness(t)

	code, _ := h.get("/healthz")
	assert.Equal(t, http.StatusOK, code)

	code, _ = h.get("/readyz")
	assert.Equal(t, http.StatusOK, code)

	h.backend.Fail(client.OpHealth, http.StatusServiceUnavailable, "down")

	code, body := h.get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "unavailable")

	code, body = h.get("/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, strings.Contains(body, "quiz_backend_calls_total"))
}

func TestServer_RateLimit(t *testing.T) {
	h := newHarness(t, func(cfg *Config) {
		cfg.RateLimitMax = 2
	})

	for range 2 {
		code, _ := h.get("/")
		require.Equal(t, http.StatusOK, code)
	}

	code, body := h.get("/")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Contains(t, body, msgTooManyRequests)
}
