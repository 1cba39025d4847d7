// Package web — HTTP-интерфейс квиза: страницы для браузера и служебные маршруты.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/letsssgooo/quizweb/internal/client"
	"github.com/letsssgooo/quizweb/internal/monitoring"
	"github.com/letsssgooo/quizweb/internal/storage"
)

// Config — параметры HTTP-сервера.
type Config struct {
	Addr            string
	Mode            string
	ShutdownTimeout time.Duration
	CookieName      string
	SecureCookie    bool
	SessionTTL      time.Duration
	AdvanceDelay    time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// Server обслуживает браузеры участников квиза.
type Server struct {
	cfg     Config
	api     client.Client
	store   storage.Storage
	metrics *monitoring.Metrics
	log     *slog.Logger
	router  *gin.Engine
}

// NewServer создаёт сервер и его маршруты.
// ctx ограничивает время жизни фоновых задач middleware.
func NewServer(
	ctx context.Context,
	cfg Config,
	api client.Client,
	store storage.Storage,
	metrics *monitoring.Metrics,
	log *slog.Logger,
) (*Server, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	s := &Server{
		cfg:     cfg,
		api:     api,
		store:   store,
		metrics: metrics,
		log:     log,
		router:  gin.New(),
	}

	s.router.SetHTMLTemplate(tmpl)
	s.routes(ctx)

	return s, nil
}

func (s *Server) routes(ctx context.Context) {
	r := s.router

	r.Use(gin.Recovery(), RequestLogger(s.log), Secure(), s.metrics.MetricsMiddleware())

	r.GET("/healthz", s.handleHealthz)
	r.GET("/readyz", s.handleReadyz)
	r.GET("/metrics", s.metrics.PrometheusHandler())

	pages := r.Group("/",
		RateLimiter(ctx, s.cfg.RateLimitMax, s.cfg.RateLimitWindow),
		BrowserSession(s.cfg.CookieName, s.cfg.SecureCookie, s.cfg.SessionTTL),
	)

	pages.GET("/", s.handleIndex)
	pages.GET("/score", s.handleScore)
	pages.POST("/start", s.handleStart)
	pages.POST("/answer", s.handleAnswer)
	pages.POST("/next", s.handleNext)
	pages.POST("/end", s.handleEnd)
	pages.POST("/reset", s.handleReset)
}

// Handler возвращает http.Handler сервера.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run слушает cfg.Addr до отмены ctx, затем плавно останавливает сервер.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)

		s.log.Info("http server listening", "addr", s.cfg.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")

	shutdownCtx, cancelFunc := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancelFunc()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	return nil
}
