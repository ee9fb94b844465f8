// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/selfhq/self/internal/api"
	"github.com/selfhq/self/internal/blob"
	"github.com/selfhq/self/internal/capture"
	"github.com/selfhq/self/internal/inbox"
	"github.com/selfhq/self/internal/settings"
	"github.com/selfhq/self/internal/sse"
	"github.com/selfhq/self/internal/store"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.Data.SQLitePath),
		slog.String("attachments_dir", cfg.Data.AttachmentsDir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure data directories exist.
	if err := os.MkdirAll(cfg.Data.AttachmentsDir, 0o755); err != nil {
		return fmt.Errorf("create attachments dir: %w", err)
	}

	// Initialize blob storage.
	blobs, err := blob.NewFS(cfg.Data.AttachmentsDir)
	if err != nil {
		return fmt.Errorf("init blob storage: %w", err)
	}

	// Initialize SQLite item store.
	db, err := store.Open(cfg.Data.SQLitePath)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// Settings document.
	prefs := settings.NewFileStore(cfg.Data.SettingsPath)

	// SSE broker.
	broker := sse.NewBroker(app.progressThrottle)
	defer broker.Close()

	// Build the capture service and the API router.
	svc := capture.NewService(db, blobs, &capture.HTTPOGFetcher{}, logger)
	apiRouter := api.NewRouter(svc, prefs, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start the inbox watcher when enabled.
	if cfg.Inbox.Enabled {
		if err := os.MkdirAll(cfg.Inbox.Dir, 0o755); err != nil {
			return fmt.Errorf("create inbox dir: %w", err)
		}
		g.Go(func() error {
			return inbox.Watch(gCtx, svc, cfg.Inbox.Dir, logger, func(itemID string) {
				broker.PublishItemEvent("created", itemID)
			})
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
