package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient реализует Client через HTTP API квиза.
type HTTPClient struct {
	baseURL       string
	httpClient    *http.Client
	timeout       time.Duration
	healthTimeout time.Duration
	observer      CallObserver
}

// HTTPOption настраивает HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient подменяет http.Client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// WithTimeout задаёт таймаут одного запроса к API.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHealthTimeout задаёт таймаут проверки доступности.
func WithHealthTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.healthTimeout = d
		}
	}
}

// WithObserver подключает наблюдателя вызовов (метрики).
func WithObserver(o CallObserver) HTTPOption {
	return func(c *HTTPClient) {
		c.observer = o
	}
}

// NewHTTPClient создаёт клиента API квиза с базовым адресом baseURL,
// например http://0.0.0.0:5000/quizmaster/api/quiz.
func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{},
		timeout:       defaultTimeout,
		healthTimeout: defaultHealthTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL возвращает базовый адрес API.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Health проверяет, что API отвечает кодом 2xx.
func (c *HTTPClient) Health(ctx context.Context) error {
	ctx, cancelFunc := context.WithTimeout(ctx, c.healthTimeout)
	defer cancelFunc()

	return c.doRequest(ctx, OpHealth, http.MethodGet, "/health", nil, nil, nil)
}

// StartQuiz создаёт сессию для пользователя req.UserName.
func (c *HTTPClient) StartQuiz(ctx context.Context, req StartRequest) (*StartResponse, error) {
	ctx, cancelFunc := context.WithTimeout(ctx, c.timeout)
	defer cancelFunc()

	var resp StartResponse
	if err := c.doRequest(ctx, OpStart, http.MethodPost, "/start", nil, req, &resp); err != nil {
		return nil, err
	}

	if resp.SessionID == "" {
		return nil, fmt.Errorf("%s: %w: empty session id in response", OpStart, ErrUnavailable)
	}

	return &resp, nil
}

// GetQuestion возвращает текущий вопрос сессии sessionID.
func (c *HTTPClient) GetQuestion(ctx context.Context, sessionID string) (*Question, error) {
	ctx, cancelFunc := context.WithTimeout(ctx, c.timeout)
	defer cancelFunc()

	var question Question
	err := c.doRequest(ctx, OpQuestion, http.MethodGet, "/question", sessionQuery(sessionID), nil, &question)
	if err != nil {
		return nil, err
	}

	return &question, nil
}

// ValidateAnswer отправляет ответ на проверку.
func (c *HTTPClient) ValidateAnswer(ctx context.Context, req ValidateRequest) (*Feedback, error) {
	ctx, cancelFunc := context.WithTimeout(ctx, c.timeout)
	defer cancelFunc()

	var feedback Feedback
	if err := c.doRequest(ctx, OpValidate, http.MethodPost, "/validate", nil, req, &feedback); err != nil {
		return nil, err
	}

	return &feedback, nil
}

// GetScore возвращает текущий результат сессии sessionID.
func (c *HTTPClient) GetScore(ctx context.Context, sessionID string) (*Score, error) {
	ctx, cancelFunc := context.WithTimeout(ctx, c.timeout)
	defer cancelFunc()

	var score Score
	err := c.doRequest(ctx, OpScore, http.MethodGet, "/score", sessionQuery(sessionID), nil, &score)
	if err != nil {
		return nil, err
	}

	return &score, nil
}

// EndQuiz завершает сессию sessionID. sessionID передаётся в query, тела у запроса нет.
func (c *HTTPClient) EndQuiz(ctx context.Context, sessionID string) (*Score, error) {
	ctx, cancelFunc := context.WithTimeout(ctx, c.timeout)
	defer cancelFunc()

	var score Score
	err := c.doRequest(ctx, OpEnd, http.MethodPost, "/end", sessionQuery(sessionID), nil, &score)
	if err != nil {
		return nil, err
	}

	return &score, nil
}

func sessionQuery(sessionID string) url.Values {
	return url.Values{"sessionId": []string{sessionID}}
}

// doRequest выполняет запрос к API квиза.
// Ошибки сети оборачиваются в ErrUnavailable, ответы не-2xx возвращаются как *StatusError.
// Если out == nil, тело успешного ответа не разбирается.
func (c *HTTPClient) doRequest(
	ctx context.Context,
	op string,
	method string,
	path string,
	query url.Values,
	payload interface{},
	out interface{},
) (err error) {
	started := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveCall(op, outcomeOf(err), time.Since(started))
		}
	}()

	link := c.baseURL + path
	if len(query) != 0 {
		link += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}

		body = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, link, body)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}

	request.Header.Set("Accept", "application/json")
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%s: %w: failed to read response body: %w", op, ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Op:   op,
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(data)),
		}
	}

	if out == nil {
		return nil
	}

	if err = json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w: failed to decode response: %w", op, ErrUnavailable, err)
	}

	return nil
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}

	if _, ok := err.(*StatusError); ok {
		return OutcomeStatus
	}

	return OutcomeUnavailable
}
