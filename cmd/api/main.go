package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"settlement-ledger/config"
	httpHandler "settlement-ledger/internal/adapter/http/handler"
	pgStorage "settlement-ledger/internal/adapter/storage/postgres"
	redisStorage "settlement-ledger/internal/adapter/storage/redis"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/internal/ledger"
	"settlement-ledger/internal/service"
	"settlement-ledger/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Settlement Ledger")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize storage adapters
	snapshotRepo := pgStorage.NewSnapshotRepo(pool)
	snapshotCache := redisStorage.NewSnapshotCache(rdb)

	// Initialize the ledger engine and services
	ldg := ledger.New()
	reconcileSvc := service.NewReconciler(ldg, log)
	snapshotSvc := service.NewSnapshotService(ldg, snapshotRepo, snapshotCache, cfg.Snapshot.CacheTTL, log)

	// Restore the latest snapshot, or start from an empty ledger
	restored := false
	if cfg.Snapshot.RestoreOnStart {
		restored, err = snapshotSvc.Restore(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to restore ledger snapshot")
		}
	}
	if !restored {
		if err := reconcileSvc.InitWallets(); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize ledger wallets")
		}
		log.Info().Msg("Ledger initialized with fresh wallets")
	}

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Ledger:         ldg,
		ReconcileSvc:   reconcileSvc,
		SnapshotSvc:    snapshotSvc,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Persist the final ledger state before exit
	if cfg.Snapshot.SaveOnShutdown {
		if _, err := snapshotSvc.Save(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to save shutdown snapshot")
		}
	}

	log.Info().Msg("Server exited")
}
