package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/shorturls/internal/adapter/repository/memory"
	"github.com/vadimbarashkov/shorturls/internal/config"
	"github.com/vadimbarashkov/shorturls/internal/reaper"
	"github.com/vadimbarashkov/shorturls/internal/telemetry"
	"github.com/vadimbarashkov/shorturls/internal/usecase"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/shorturls/internal/adapter/delivery/http"
)

const serviceName = "shorturls"

func newLogger(env string) *httplog.Logger {
	opts := httplog.Options{
		LogLevel: slog.LevelInfo,
		JSON:     true,
		Writer:   os.Stdout,
	}

	if env == config.EnvDev {
		opts.LogLevel = slog.LevelDebug
		opts.JSON = false
		opts.Concise = true
	}

	return httplog.NewLogger(serviceName, opts)
}

// Run wires the service together and serves HTTP until ctx is done.
func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := newLogger(cfg.Env)

	events := telemetry.New(cfg.Telemetry, logger.Logger)
	urlRepo := memory.NewURLRepository(memory.WithCodeLength(cfg.ShortCodeLength))
	urlUseCase := usecase.NewURLUseCase(
		urlRepo,
		events,
		usecase.WithDefaultValidity(cfg.DefaultValidityDuration()),
	)

	router := delivery.NewRouter(
		logger,
		urlUseCase,
		events,
		delivery.WithBaseURL(cfg.BaseURL),
		delivery.WithAllowedOrigins(cfg.CORS.AllowedOrigins...),
	)

	var rp *reaper.Reaper
	if cfg.Reaper.Schedule != "" {
		var err error
		rp, err = reaper.New(urlRepo, cfg.Reaper.Schedule, logger.Logger)
		if err != nil {
			return fmt.Errorf("%s: failed to create reaper: %w", op, err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return events.Run(ctx)
	})

	if rp != nil {
		g.Go(func() error {
			return rp.Run(ctx)
		})
	}

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        router,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g.Go(func() error {
		var err error

		logger.Info("starting server", slog.String("addr", server.Addr), slog.String("env", cfg.Env))
		events.Info(ctx, telemetry.PackageConfig, "server started", map[string]any{
			"addr": server.Addr,
			"env":  cfg.Env,
		})

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
