// Package main is the entry point for the turnover operations server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turnover-ops/backend/internal/api"
	"github.com/turnover-ops/backend/internal/calendar"
	"github.com/turnover-ops/backend/internal/cleaning"
	"github.com/turnover-ops/backend/internal/config"
	"github.com/turnover-ops/backend/internal/logging"
	"github.com/turnover-ops/backend/internal/runlock"
	"github.com/turnover-ops/backend/internal/storage"
	"github.com/turnover-ops/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	// Parse command-line flags. Flags override the environment.
	addr := flag.String("addr", "", "HTTP server address (overrides ADDR)")
	dbURL := flag.String("db", "", "Database path or DSN (overrides DATABASE_URL)")
	staticDir := flag.String("static", "", "Directory for static dashboard files")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	logging.Init("turnover")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.InitWithWriter("turnover", os.Stdout, logging.ParseLevel(cfg.LogLevel))

	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbURL != "" {
		cfg.DatabaseURL = *dbURL
	}

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.Addr); err != nil {
			slog.Error("Health check failed", "error", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Allow overriding version via environment (e.g., injected by container build/runtime)
	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	slog.Info("Starting turnover server", "version", version, "timezone", cfg.OperatingTimezone.String())

	if err := run(cfg, *staticDir); err != nil {
		slog.Error("Server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, staticDir string) error {
	db, err := storage.NewDB(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("Database migrations complete", "driver", cfg.DatabaseDriver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize WebSocket hub
	hub := websocket.NewHub()
	go hub.Run(ctx)
	events := websocket.NewEventBroadcaster(hub)

	generator := cleaning.NewGenerator(db, events, cfg.OperatingTimezone)

	// With a public base URL the sync pipeline triggers generation through
	// the HTTP endpoint, otherwise in process.
	var trigger calendar.TaskTrigger
	if cfg.PublicBaseURL != "" {
		trigger = cleaning.NewHTTPTrigger(cfg.PublicBaseURL, cfg.ServiceKey, cfg.GenerationTimeout)
		slog.Info("Task generation via HTTP", "base_url", cfg.PublicBaseURL)
	} else {
		trigger = cleaning.NewLocalTrigger(generator)
	}

	fetcher := calendar.NewFetcher(cfg.FeedTimeout, cfg.FeedRateLimit)
	syncService := calendar.NewSyncService(db, fetcher, trigger, events, cfg.OperatingTimezone)
	orchestrator := calendar.NewOrchestrator(db, syncService, newLocker(ctx, cfg.RedisAddr, cfg.RunLockTTL), cfg.SyncConcurrency, events)

	scheduler := calendar.NewScheduler(orchestrator, cfg.SyncSchedule)
	if err := scheduler.Start(); err != nil {
		slog.Warn("Failed to start bulk sync scheduler", "error", err)
	}

	router := api.NewRouter(api.Services{
		DB:           db,
		Hub:          hub,
		Generator:    generator,
		Sync:         syncService,
		Orchestrator: orchestrator,
		ServiceKey:   cfg.ServiceKey,
		Location:     cfg.OperatingTimezone,
		StaticDir:    staticDir,
	})
	if cfg.ServiceKey == "" {
		slog.Warn("SERVICE_KEY is not set, API endpoints are unauthenticated")
	}

	// Bulk syncs can run for minutes, so there is no write timeout.
	server := &http.Server{
		Addr:        cfg.Addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		scheduler.Stop()
		return fmt.Errorf("server: %w", err)
	}

	slog.Info("Shutting down server...")

	scheduler.Stop()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.Info("Server stopped")
	return nil
}

// newLocker returns a Redis-backed run lock when addr is set so that
// replicas share it, falling back to an in-process lock.
func newLocker(ctx context.Context, addr string, ttl time.Duration) runlock.Locker {
	if addr == "" {
		return runlock.NewLocal()
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := runlock.Connect(pingCtx, addr)
	if err != nil {
		slog.Warn("Redis unavailable, using in-process run lock", "addr", addr, "error", err)
		return runlock.NewLocal()
	}
	slog.Info("Using Redis run lock", "addr", addr, "ttl", ttl)
	return runlock.NewRedis(client, ttl)
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
