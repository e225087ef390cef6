package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/mentora/internal/api"
	"github.com/p-n-ai/mentora/internal/audit"
	"github.com/p-n-ai/mentora/internal/auth"
	"github.com/p-n-ai/mentora/internal/content"
	"github.com/p-n-ai/mentora/internal/dedup"
	"github.com/p-n-ai/mentora/internal/platform/cache"
	"github.com/p-n-ai/mentora/internal/platform/config"
	"github.com/p-n-ai/mentora/internal/platform/database"
	"github.com/p-n-ai/mentora/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(os.Stdout, cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	store, err := content.NewPostgresStore(db.Pool)
	if err != nil {
		slog.Error("failed to create content store", "error", err)
		os.Exit(1)
	}
	users, err := auth.NewPostgresUserStore(db.Pool)
	if err != nil {
		slog.Error("failed to create user store", "error", err)
		os.Exit(1)
	}

	deps := dependencies{
		store:  store,
		users:  users,
		events: audit.NewPostgresEventLogger(db.Pool),
		checks: map[string]api.CheckFunc{"database": db.HealthCheck},
	}

	if cfg.HasCache() {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Warn("cache unavailable, report caching disabled", "error", err)
		} else {
			defer c.Close()
			deps.reports = c
			deps.checks["cache"] = c.HealthCheck
			slog.Info("report cache enabled", "ttl", cfg.Dedup.ReportCacheDuration())
		}
	}

	handler, err := buildHandler(cfg, deps)
	if err != nil {
		slog.Error("failed to build handler", "error", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No WriteTimeout: detection streams stay open for minutes.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

type dependencies struct {
	store   content.Store
	users   auth.UserStore
	events  audit.EventLogger
	reports dedup.CacheBackend // nil disables report caching
	checks  map[string]api.CheckFunc
}

// buildHandler wires the duplicate service and the HTTP API.
func buildHandler(cfg *config.Config, deps dependencies) (http.Handler, error) {
	tokens, err := auth.NewTokenManager(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("creating token manager: %w", err)
	}

	var reports *dedup.ReportCache
	if deps.reports != nil {
		reports = dedup.NewReportCache(deps.reports, cfg.Dedup.ReportCacheDuration())
	}

	svc := dedup.NewService(dedup.ServiceConfig{
		Store:              deps.store,
		Reports:            reports,
		Events:             deps.events,
		DefaultThreshold:   cfg.Dedup.DefaultThreshold,
		VerifyBeforeDelete: cfg.Dedup.VerifyBeforeDelete,
	})

	return api.NewRouter(api.Config{
		Dedup:  svc,
		Users:  deps.users,
		Tokens: tokens,
		Checks: deps.checks,
	}), nil
}
