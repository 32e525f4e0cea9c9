package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"

	authimpl "github.com/Eotel/live-graphic-recorder/external/auth"
	configloader "github.com/Eotel/live-graphic-recorder/external/config"
	generatorimpl "github.com/Eotel/live-graphic-recorder/external/generator"
	"github.com/Eotel/live-graphic-recorder/external/httpapi"
	mediastoreimpl "github.com/Eotel/live-graphic-recorder/external/mediastore"
	repositoryimpl "github.com/Eotel/live-graphic-recorder/external/repository"
	transcriberimpl "github.com/Eotel/live-graphic-recorder/external/transcriber"
	"github.com/Eotel/live-graphic-recorder/internal/config"
	"github.com/Eotel/live-graphic-recorder/internal/metasummary"
	"github.com/Eotel/live-graphic-recorder/internal/report"
	"github.com/Eotel/live-graphic-recorder/internal/session"
)

const shutdownTimeout = 15 * time.Second

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching http server", "addr", cfg.ListenAddr)
	runServer(injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	mediastoreimpl.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	generatorimpl.RegisterDI(injector)
	authimpl.RegisterDI(injector)
	metasummary.RegisterDI(injector)
	session.RegisterDI(injector)
	report.RegisterDI(injector)
	httpapi.RegisterDI(injector)

	return injector
}

func runServer(injector do.Injector) {
	srv, err := do.Invoke[*httpapi.Server](injector)
	if err != nil {
		slog.Error("failed to resolve http server", "error", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
	<-done
	slog.Info("shutdown complete")
}
