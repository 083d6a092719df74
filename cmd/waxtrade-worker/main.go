package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"waxtrade/internal/config"
	"waxtrade/internal/db"
	"waxtrade/internal/game"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := game.NewService(pool, logger)
	if cfg.StartupSeedData {
		if err := svc.SeedCatalog(ctx); err != nil {
			logger.Error("seed catalog failed", "err", err)
			os.Exit(1)
		}
	}

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("WAXTRADE_WORKER_RUN_ONCE")), "true")
	if runOnce {
		if err := sweep(ctx, svc, cfg, logger); err != nil {
			logger.Error("sweep failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.SweepEvery)
	defer ticker.Stop()

	logger.Info("worker started", "sweep_every", cfg.SweepEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			if err := sweep(ctx, svc, cfg, logger); err != nil {
				logger.Error("sweep failed", "err", err)
				continue
			}
		}
	}
}

func sweep(ctx context.Context, svc *game.Service, cfg config.APIConfig, logger *slog.Logger) error {
	expired, err := svc.ExpireStaleGames(ctx, cfg.GameIdleTimeout)
	if err != nil {
		return err
	}
	restocked, err := svc.RestockMarkets(ctx)
	if err != nil {
		return err
	}
	pruned, err := svc.PruneIdempotencyKeys(ctx, cfg.IdempotencyKeep)
	if err != nil {
		return err
	}
	logger.Info("sweep complete", "expired_games", expired, "restocked_stores", restocked, "pruned_keys", pruned)
	return nil
}
