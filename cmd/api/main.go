package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/masjidhub/masjidkas/internal/config"
	"github.com/masjidhub/masjidkas/internal/database"
	masjidHttp "github.com/masjidhub/masjidkas/internal/http"
	importHandler "github.com/masjidhub/masjidkas/internal/http/importcsv"
	txHandler "github.com/masjidhub/masjidkas/internal/http/ledger"
	reportHandler "github.com/masjidhub/masjidkas/internal/http/report"
	walletHandler "github.com/masjidhub/masjidkas/internal/http/wallet"
	"github.com/masjidhub/masjidkas/internal/importer"
	"github.com/masjidhub/masjidkas/internal/importer/bankcsv"
	"github.com/masjidhub/masjidkas/internal/ledger"
	ledgerStore "github.com/masjidhub/masjidkas/internal/ledger/store"
	"github.com/masjidhub/masjidkas/internal/report"
	reportStore "github.com/masjidhub/masjidkas/internal/report/store"
	"github.com/masjidhub/masjidkas/internal/wallet"
	walletStore "github.com/masjidhub/masjidkas/internal/wallet/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Auth.JWTSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var (
		ledgerService = ledger.NewService(ledgerStore.New(db), cfg.Ledger.AllowNegative)
		walletService = wallet.NewService(walletStore.New(db), ledgerService)
		importService = importer.NewService(ledgerService, map[importer.Format]importer.Parser{
			importer.FormatBankCSV: bankcsv.New(),
		})
		reportService = report.NewService(reportStore.New(db), ledgerService)
	)

	var (
		walletH = walletHandler.NewHandler(walletService, ledgerService)
		txH     = txHandler.NewHandler(ledgerService)
		importH = importHandler.NewHandler(importService)
		reportH = reportHandler.NewHandler(reportService)
	)

	router := masjidHttp.New(cfg.Auth.JWTSecret, walletH, txH, importH, reportH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
