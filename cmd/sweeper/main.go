package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/masjidhub/masjidkas/internal/config"
	"github.com/masjidhub/masjidkas/internal/database"
	"github.com/masjidhub/masjidkas/internal/ledger"
	ledgerStore "github.com/masjidhub/masjidkas/internal/ledger/store"
	"github.com/masjidhub/masjidkas/internal/sweep"
	sweepStore "github.com/masjidhub/masjidkas/internal/sweep/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ledgerService := ledger.NewService(ledgerStore.New(db), cfg.Ledger.AllowNegative)
	sweepService := sweep.NewService(sweepStore.New(db), ledgerService, cfg.Sweep.Workers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting sweeper", "interval", cfg.Sweep.Interval, "workers", cfg.Sweep.Workers)

	ticker := time.NewTicker(cfg.Sweep.Interval)
	defer ticker.Stop()

	for {
		runSweep(ctx, sweepService)

		select {
		case <-ctx.Done():
			slog.Info("sweeper stopping")
			return
		case <-ticker.C:
		}
	}
}

func runSweep(ctx context.Context, svc *sweep.Service) {
	start := time.Now()

	rep, err := svc.Run(ctx)
	if err != nil {
		slog.Error("sweep failed", "error", err)
		return
	}

	slog.Info("sweep finished",
		"wallets_swept", rep.WalletsSwept,
		"rows_recalculated", rep.RowsRecalculated,
		"busy", rep.Busy,
		"failed", rep.Failed,
		"took", time.Since(start))
}
