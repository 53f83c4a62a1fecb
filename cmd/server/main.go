// Package main is the entrypoint for the evinsight AI orchestration server.
package main

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

	"github.com/kiranshivaraju/evinsight/internal/ai"
	"github.com/kiranshivaraju/evinsight/internal/ai/transport"
	"github.com/kiranshivaraju/evinsight/internal/api"
	"github.com/kiranshivaraju/evinsight/internal/api/handler"
	"github.com/kiranshivaraju/evinsight/internal/config"
	"github.com/kiranshivaraju/evinsight/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	shutdownTimeout = 30 * time.Second
	migrationsDir   = "migrations"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config: fail fast on invalid values
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "call_timeout", cfg.AI.CallTimeout.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Run ledger is optional
	var pgStore *store.PostgresStore
	if cfg.Database.URL != "" {
		pool, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		slog.Info("database connected")

		if err := store.RunMigrations(cfg.Database.URL, migrationsDir); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		slog.Info("database migrations applied")
		pgStore = store.NewPostgresStore(pool)
	} else {
		slog.Warn("DATABASE_URL not set, analysis runs will not be recorded")
	}

	// 3. Build router with dependencies
	router, err := newHandler(cfg, pgStore)
	if err != nil {
		return err
	}

	// 4. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Room for every provider attempt plus the fallback.
		WriteTimeout: 3*cfg.AI.CallTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// newHandler wires providers, the orchestrator and the HTTP handlers. A nil store
// disables the run ledger; handlers then see untyped nil interfaces.
func newHandler(cfg *config.Config, pgStore *store.PostgresStore) (http.Handler, error) {
	var (
		runs     handler.RunReader
		pinger   handler.Pinger
		recorder ai.RunRecorder
	)
	if pgStore != nil {
		runs, pinger, recorder = pgStore, pgStore, pgStore
	}

	providers := ai.NewProviderSet(cfg.AI)
	client := transport.NewClient(cfg.AI.CallTimeout + 5*time.Second)
	adapters, err := ai.NewAdapters(providers, cfg.AI, client)
	if err != nil {
		return nil, fmt.Errorf("create AI adapters: %w", err)
	}

	available := make([]string, 0, len(adapters))
	for _, d := range providers.ListAvailable() {
		available = append(available, d.Name)
	}
	if len(available) == 0 {
		slog.Warn("no AI provider configured, serving rule-based recommendations only")
	} else {
		slog.Info("AI providers initialized", "providers", available)
	}

	var opts []ai.Option
	if recorder != nil {
		opts = append(opts, ai.WithRecorder(recorder))
	}
	orch := ai.NewOrchestrator(providers, adapters, cfg.AI.CallTimeout, opts...)
	reporter := ai.NewStatusReporter(providers, cfg)

	return api.NewRouter(api.Dependencies{
		CORSOrigins:           cfg.Server.CORSOrigins,
		HealthHandler:         handler.NewHealthHandler(pinger, reporter),
		AnalyzeHandler:        handler.NewAnalyzeHandler(orch),
		ProviderStatusHandler: handler.NewProviderStatusHandler(reporter),
		ListRunsHandler:       handler.NewListRunsHandler(runs),
		GetRunHandler:         handler.NewGetRunHandler(runs),
		MetricsHandler:        promhttp.Handler(),
	}), nil
}
