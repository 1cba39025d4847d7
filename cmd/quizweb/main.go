package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/letsssgooo/quizweb/internal/client"
	"github.com/letsssgooo/quizweb/internal/config"
	"github.com/letsssgooo/quizweb/internal/lib/slogcustom"
	"github.com/letsssgooo/quizweb/internal/monitoring"
	"github.com/letsssgooo/quizweb/internal/storage"
	"github.com/letsssgooo/quizweb/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("quiz web stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	config.RegisterFlags(pflag.CommandLine)
	pflag.Parse()

	cfg, err := config.Load(pflag.CommandLine)
	if err != nil {
		return err
	}

	log, closeLog, err := setupLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	slog.SetDefault(log)
	slog.Info("starting quiz web...", "backend", cfg.Backend.BaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := monitoring.New()
	api := client.NewHTTPClient(cfg.Backend.BaseURL,
		client.WithTimeout(cfg.Backend.Timeout),
		client.WithHealthTimeout(cfg.Backend.HealthTimeout),
		client.WithObserver(metrics),
	)

	// недоступный бэкенд не мешает запуску, об ошибке сообщат страницы
	if err = api.Health(ctx); err != nil {
		slog.Warn("quiz backend is not reachable", "url", api.BaseURL(), "err", err)
	} else {
		slog.Info("quiz backend is reachable", "url", api.BaseURL())
	}

	store := storage.NewMemoryStorage()
	go store.RunSweeper(ctx, cfg.Session.SweepInterval, cfg.Session.IdleTTL, log.With("component", "storage"))

	srv, err := web.NewServer(ctx, web.Config{
		Addr:            cfg.Server.Addr,
		Mode:            cfg.Server.Mode,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CookieName:      cfg.Session.CookieName,
		SecureCookie:    cfg.Session.SecureCookie,
		SessionTTL:      cfg.Session.IdleTTL,
		AdvanceDelay:    cfg.Quiz.AdvanceDelay,
		RateLimitMax:    cfg.RateLimit.MaxRequests,
		RateLimitWindow: cfg.RateLimit.Window,
	}, api, store, metrics, log)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}

// setupLogger пишет в консоль цветной текст, а если задан файл, ещё и JSON с ротацией.
func setupLogger(cfg config.LogConfig) (*slog.Logger, func(), error) {
	level, err := slogcustom.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	console := slogcustom.NewCustomHandler(os.Stdout, level)
	if cfg.File == "" {
		return slog.New(console), func() {}, nil
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}

	handler := slogcustom.NewFanoutHandler(
		console,
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}),
	)

	return slog.New(handler), func() { _ = file.Close() }, nil
}
