// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/promptpad/internal/api"
	"github.com/starford/promptpad/internal/docstore"
	"github.com/starford/promptpad/internal/index"
	"github.com/starford/promptpad/internal/mcpserver"
	"github.com/starford/promptpad/internal/models"
	"github.com/starford/promptpad/internal/promptservice"
	"github.com/starford/promptpad/internal/sse"
)

func newApplication(opts []Option) *application {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Run starts the HTTP server and the prompts/ watcher with the given options.
func Run(ctx context.Context, opts ...Option) error {
	cfg, logger, err := newApplication(opts).setup()
	if err != nil {
		return err
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_root", cfg.Storage.Root),
		slog.String("locator", cfg.Storage.Locator.Mode),
		slog.Bool("watch", cfg.Watch.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := wire(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := c.service(broker, logger)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		if _, err := svc.GetIndex(req.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"index unavailable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Rebuild the index after external edits and tell SSE clients.
	if cfg.Watch.Enabled {
		g.Go(func() error {
			err := index.Watch(gCtx, c.cache, filepath.Join(c.root, docstore.PromptsDir), cfg.Watch.Debounce, logger,
				func(models.PromptIndex) {
					broker.PublishPromptEvent(promptservice.EventRebuilt, "")
				})
			if err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
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
		defer signal.Stop(quit)

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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the errgroup context so the watcher exits with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdin/stdout. Logs go to the configured
// log output, which must not be stdout.
func RunMCP(_ context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.logOut == nil {
		app.logOut = os.Stderr
	}
	cfg, logger, err := app.setup()
	if err != nil {
		return err
	}

	c, err := wire(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	srv := mcpserver.New(c.service(nil, logger), app.version)
	logger.Info("MCP server starting on stdio", slog.String("root", c.root))
	return srv.ServeStdio()
}

// RunRebuild rebuilds the index once and writes a summary to out.
func RunRebuild(ctx context.Context, out io.Writer, opts ...Option) error {
	cfg, logger, err := newApplication(opts).setup()
	if err != nil {
		return err
	}

	// wire already rebuilds; the explicit call reports the result.
	c, err := wire(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	ix, err := c.service(nil, logger).RebuildIndex(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "indexed %d prompts in %d folders under %s\n", len(ix.Prompts), len(ix.Folders), c.root)
	return err
}
