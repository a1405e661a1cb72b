package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bobibobi02/whistle-connect-sub001/internal/api"
	"github.com/bobibobi02/whistle-connect-sub001/internal/config"
	"github.com/bobibobi02/whistle-connect-sub001/internal/db"
	"github.com/bobibobi02/whistle-connect-sub001/internal/metrics"
	"github.com/bobibobi02/whistle-connect-sub001/internal/processor"
	"github.com/bobibobi02/whistle-connect-sub001/internal/provider"
	"github.com/bobibobi02/whistle-connect-sub001/internal/repository"
	"github.com/bobibobi02/whistle-connect-sub001/internal/service"
	"github.com/bobibobi02/whistle-connect-sub001/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	queueRepo := repository.NewPgQueueRepository(pool)
	tokenRepo := repository.NewPgTokenRepository(pool)
	pusher := provider.NewHTTPPusher(
		cfg.ProviderBaseURL,
		cfg.ProviderTimeout,
		cfg.ChunkSize,
		cfg.ChunkConcurrency,
		cfg.ProviderRateLimit,
		logger,
	)
	proc := processor.New(
		queueRepo,
		tokenRepo,
		pusher,
		cfg.BatchSize,
		cfg.ClaimTimeout,
		cfg.RetentionWindow(),
		logger,
		m.ProcessorHooks(),
	)
	svc := service.NewEnqueueService(queueRepo, logger)

	// ---- delivery scheduler ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	sched := worker.NewScheduler(proc, cfg.RunInterval, logger)
	sched.Start(workerCtx)

	// ---- HTTP server ----
	router := api.NewRouter(svc, sched, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal the scheduler to stop starting new runs.
	cancelWorkers()

	// 3. Wait for an in-flight run to finish.
	sched.Wait()

	logger.Info("server stopped cleanly")
}
