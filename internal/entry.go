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

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/auth"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/notestore"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/summarizer"
	pkgconfig "github.com/starford/ansuz/pkg/config"
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

	// Initialize structured JSON logger. In MCP mode stdout carries the
	// protocol, so logs go to stderr.
	logOut := os.Stdout
	if app.mcp {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("ai_url", cfg.AI.URL),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize the note store.
	db, err := notestore.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init note store: %w", err)
	}
	defer db.Close()

	// AI summarization client.
	ai := summarizer.NewHTTPClient(cfg.AI.URL, cfg.AI.Timeout())

	svc := noteservice.NewService(db, ai)

	// MCP mode: serve tools over stdio and skip the HTTP stack entirely.
	if app.mcp {
		logger.Info("Starting MCP server", slog.String("user_id", cfg.MCP.UserID))
		return mcpserver.New(svc, cfg.MCP.UserID).ServeStdio()
	}

	// Identity resolver per auth mode. The static resolver is kept aside so
	// config reloads can swap tokens without a restart.
	var resolver auth.Resolver
	var staticResolver *auth.Static
	switch cfg.Auth.Mode {
	case AuthModeStatic:
		staticResolver = auth.NewStatic(cfg.Auth.Tokens)
		resolver = staticResolver
	case AuthModeJWT:
		resolver = auth.NewJWT(cfg.Auth.JWTSecret)
	default:
		logger.Warn("Authentication disabled, all requests run as a fixed user",
			slog.String("user_id", cfg.Auth.DevUserID))
		resolver = auth.Fixed{UserID: cfg.Auth.DevUserID}
	}

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	// Build API router.
	apiRouter := api.NewRouter(svc, resolver, broker, broker)

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
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the config file for hot reloads: the AI base URL and static
	// tokens can change without a restart.
	if app.configPath != "" {
		g.Go(func() error {
			return pkgconfig.Watch(gCtx, app.configPath, logger, func() {
				fresh := NewDefaultConfig()
				if loadErr := pkgconfig.Load(app.configPath, fresh); loadErr != nil {
					logger.Error("config reload failed", slog.String("error", loadErr.Error()))
					return
				}
				ai.SetBaseURL(fresh.AI.URL)
				if staticResolver != nil && fresh.Auth.Mode == AuthModeStatic {
					staticResolver.Replace(fresh.Auth.Tokens)
				}
				logger.Info("config reloaded",
					slog.String("ai_url", fresh.AI.URL),
					slog.Int("static_tokens", len(fresh.Auth.Tokens)))
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
