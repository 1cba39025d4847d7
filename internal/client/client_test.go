package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/quizweb/internal/backendtest"
	"github.com/letsssgooo/quizweb/internal/client"
)

type call struct {
	op      string
	outcome string
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []call
}

func (o *recordingObserver) ObserveCall(op, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.calls = append(o.calls, call{op: op, outcome: outcome})
}

func TestHTTPClient_FullSession(t *testing.T) {
	ctx := context.Background()
	backend := backendtest.New(backendtest.WithMaxQuestions(2))
	obs := &recordingObserver{}
	c := client.NewHTTPClient(backend.Start(t)+"/", client.WithObserver(obs))

	require.NoError(t, c.Health(ctx))

	start, err := c.StartQuiz(ctx, client.StartRequest{UserName: "Ada", INumber: "I123"})
	require.NoError(t, err)
	require.NotEmpty(t, start.SessionID)

	q, err := c.GetQuestion(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "q1", q.QuestionID)
	assert.Equal(t, 2, q.TotalQuestions)
	assert.Equal(t, 3, q.MaxAttempts)
	assert.Zero(t, q.CompletedQuestions)

	fb, err := c.ValidateAnswer(ctx, client.ValidateRequest{SessionID: start.SessionID, QuestionID: "q1", AnswerID: "b"})
	require.NoError(t, err)
	assert.False(t, fb.Correct)
	assert.Equal(t, 2, fb.RemainingAttempts)

	fb, err = c.ValidateAnswer(ctx, client.ValidateRequest{SessionID: start.SessionID, QuestionID: "q1", AnswerID: "a"})
	require.NoError(t, err)
	assert.True(t, fb.Correct)
	assert.Equal(t, 1, fb.RemainingQuestions)

	score, err := c.GetScore(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, score.CorrectAnswers)
	assert.InDelta(t, 100.0, score.PercentageScore, 0.001)

	final, err := c.EndQuiz(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, final.TotalQuestions)

	again, err := c.EndQuiz(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, final, again)

	assert.Equal(t, []string{
		client.OpHealth, client.OpStart, client.OpQuestion, client.OpValidate,
		client.OpValidate, client.OpScore, client.OpEnd, client.OpEnd,
	}, backend.Calls())

	require.Len(t, obs.calls, 8)
	for _, cl := range obs.calls {
		assert.Equal(t, client.OutcomeOK, cl.outcome)
	}
}

func TestHTTPClient_StatusError(t *testing.T) {
	ctx := context.Background()
	backend := backendtest.New()
	obs := &recordingObserver{}
	c := client.NewHTTPClient(backend.Start(t), client.WithObserver(obs))

	_, err := c.StartQuiz(ctx, client.StartRequest{UserName: "Ada", INumber: "I1"})
	require.NoError(t, err)

	backend.Fail(client.OpQuestion, http.StatusInternalServerError, "  question bank is empty\n")

	_, err = c.GetQuestion(ctx, "whatever")
	require.Error(t, err)

	var statusErr *client.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.Equal(t, "question bank is empty", statusErr.Body)
	assert.Equal(t, client.OpQuestion, statusErr.Op)
	assert.False(t, errors.Is(err, client.ErrUnavailable))

	assert.Equal(t, client.OutcomeStatus, obs.calls[len(obs.calls)-1].outcome)

	backend.Recover(client.OpQuestion)

	_, err = c.GetScore(ctx, "unknown")
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
	assert.Equal(t, "Invalid or expired session ID", statusErr.Body)
}

func TestHTTPClient_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	obs := &recordingObserver{}
	c := client.NewHTTPClient(url, client.WithObserver(obs), client.WithHealthTimeout(time.Second))

	err := c.Health(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrUnavailable)

	_, err = c.StartQuiz(context.Background(), client.StartRequest{UserName: "Ada"})
	assert.ErrorIs(t, err, client.ErrUnavailable)

	require.Len(t, obs.calls, 2)
	assert.Equal(t, call{op: client.OpHealth, outcome: client.OutcomeUnavailable}, obs.calls[0])
}

func TestHTTPClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c := client.NewHTTPClient(srv.URL, client.WithTimeout(50*time.Millisecond))

	_, err := c.GetQuestion(context.Background(), "s")
	assert.ErrorIs(t, err, client.ErrUnavailable)
}

func TestHTTPClient_RequestShape(t *testing.T) {
	var (
		gotPath   string
		gotQuery  string
		gotMethod string
		gotBody   map[string]string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotMethod = r.URL.Path, r.URL.RawQuery, r.Method
		gotBody = nil
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sessionId": "s-1", "percentageScore": 50, "totalQuestions": 2, "correctAnswers": 1, "duration": 7}`))
	}))
	t.Cleanup(srv.Close)

	ctx := context.Background()
	c := client.NewHTTPClient(srv.URL + "/api/quiz")

	_, err := c.StartQuiz(ctx, client.StartRequest{UserName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "/api/quiz/start", gotPath)
	assert.Equal(t, map[string]string{"userName": "Ada"}, gotBody)

	score, err := c.EndQuiz(ctx, "s 1")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/quiz/end", gotPath)
	assert.Equal(t, "sessionId=s+1", gotQuery)
	assert.Nil(t, gotBody)
	assert.Equal(t, int64(7), score.Duration)

	_, err = c.ValidateAnswer(ctx, client.ValidateRequest{SessionID: "s-1", QuestionID: "q1", AnswerID: "a"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"sessionId": "s-1", "questionId": "q1", "answerId": "a"}, gotBody)
}

func TestHTTPClient_EmptySessionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	_, err := client.NewHTTPClient(srv.URL).StartQuiz(context.Background(), client.StartRequest{UserName: "Ada"})
	assert.ErrorIs(t, err, client.ErrUnavailable)
}
