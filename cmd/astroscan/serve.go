package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/remeh/sizedwaitgroup"
	"github.com/spf13/cobra"

	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/api"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/audit"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/auth"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/config"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/feedcache"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/neows"
	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/views"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := loadConfig(cmd, logger)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

// warmable is a cache that can be primed before the first request.
type warmable interface {
	Name() string
	PublishAge()
	warm(ctx context.Context) error
}

type warmCache[T any] struct {
	*feedcache.Cache[T]
}

func (w warmCache[T]) warm(ctx context.Context) error {
	_, err := w.Get(ctx)
	return err
}

func serve(parent context.Context, cfg *config.Config, logger *slog.Logger) error {
	fetcher := neows.NewFetcher(cfg.NeowsConfig(), logger)
	feed := feedcache.New[*neows.Snapshot]("feed", cfg.FeedTTL(), fetcher.FetchFeed, logger)
	apod := feedcache.New[*neows.APOD]("apod", cfg.APODTTL(), fetcher.FetchAPOD, logger)

	var auditLog *audit.Logger
	if cfg.Audit.DBPath != "" {
		l, err := audit.New(cfg.Audit.DBPath, cfg.Audit.RetentionDays)
		if err != nil {
			return err
		}
		defer l.Close()
		auditLog = l
		logger.Info("audit log enabled", "path", cfg.Audit.DBPath, "retention_days", cfg.Audit.RetentionDays)
	}

	srv := api.NewServer(cfg.Listen, api.Deps{
		Logger:           logger,
		Auth:             auth.Config{Enabled: cfg.Auth.Enabled, Token: cfg.Auth.Token},
		Feed:             feed,
		APOD:             apod,
		Chatbot:          views.NewChatbot(logger),
		Audit:            auditLog,
		AlertThresholdKM: cfg.AlertThresholdKM,
		TrustProxy:       cfg.TrustProxy,
		MaxInFlightPerIP: cfg.MaxInFlightPerIP,
	})

	// Graceful shutdown on SIGINT/SIGTERM.
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	caches := []warmable{warmCache[*neows.Snapshot]{feed}, warmCache[*neows.APOD]{apod}}
	go warmUp(ctx, caches, cfg.WarmupWorkers, logger)

	// Background goroutine to update cache age gauges.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				for _, c := range caches {
					c.PublishAge()
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"addr", cfg.Listen,
			"auth_enabled", cfg.Auth.Enabled,
			"feed_url", fetcher.FeedURL(),
			"feed_ttl_seconds", cfg.FeedTTL().Seconds(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error("server listen error", "error", err)
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}

// warmUp primes every cache concurrently. Failures are logged only; the
// next request retries.
func warmUp(ctx context.Context, caches []warmable, workers int, logger *slog.Logger) {
	if workers < 1 {
		workers = 1
	}
	swg := sizedwaitgroup.New(workers)
	for _, c := range caches {
		swg.Add()
		go func(c warmable) {
			defer swg.Done()
			if err := c.warm(ctx); err != nil {
				logger.Warn("cache warm-up failed", "cache", c.Name(), "error", err)
				return
			}
			logger.Info("cache warmed", "cache", c.Name())
		}(c)
	}
	swg.Wait()
}
