package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/titledate-verifier/internal/adapter/postgres"
	redis_adapter "github.com/user/titledate-verifier/internal/adapter/redis"
	"github.com/user/titledate-verifier/internal/app"
	"github.com/user/titledate-verifier/internal/delivery/http/handler"
	"github.com/user/titledate-verifier/internal/delivery/http/router"
	"github.com/user/titledate-verifier/internal/proxy"
	"github.com/user/titledate-verifier/internal/usecase"
	"github.com/user/titledate-verifier/pkg/config"
	"github.com/user/titledate-verifier/pkg/logger"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load(os.Getenv("VERIFIER_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, closeLog, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg, log); err != nil {
		log.Error("Service stopped with error", zap.Error(err))
		closeLog()
		os.Exit(1)
	}
	log.Info("Service exiting")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// PostgreSQL
	dbpool, err := pgxpool.New(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer dbpool.Close()
	if err := postgres.EnsureSchema(ctx, dbpool); err != nil {
		return err
	}
	log.Info("PostgreSQL connection pool established")

	// Redis
	rdb := app.NewRedisClient(cfg.Redis)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}
	log.Info("Redis connection established")

	// --- Repositories ---
	batchRepo := postgres.NewBatchRepo(dbpool)
	queueRepo := redis_adapter.NewQueueRepo(rdb)
	cache, err := app.NewVerdictCache(cfg.Cache, rdb)
	if err != nil {
		return err
	}

	// --- Browser session shared by the worker ---
	profiles := proxy.NewManager(cfg.Browser.UserAgents, cfg.Browser.Proxies)
	browser, err := app.NewBrowser(ctx, cfg.Browser, profiles, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := browser.Close(); err != nil {
			log.Warn("Failed to close browser", zap.Error(err))
		}
	}()

	// --- Use Cases ---
	verifier, err := app.NewVerifier(cfg, browser, cache, log)
	if err != nil {
		return err
	}
	runner := usecase.NewBatchRunner(verifier, log)
	batchManager := usecase.NewBatchManager(batchRepo, queueRepo, cfg.Storage.UploadDir, log)
	worker := usecase.NewBatchWorker(queueRepo, batchRepo, app.NewDatasetReader(cfg.Dataset), runner, cfg.Worker.PollWait, log)

	// --- HTTP Server ---
	checks := map[string]handler.Pinger{
		"postgres": dbpool,
		"redis":    handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
	}
	apiHandler := handler.NewHandler(batchManager, checks, cfg.Server.MaxUploadBytes, log)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.New(apiHandler, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
