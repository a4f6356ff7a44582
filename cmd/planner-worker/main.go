package main

import (
	"context"
	"os"
	"time"

	"github.com/jerardpelaez/wedding-calendar/internal/backend"
	"github.com/jerardpelaez/wedding-calendar/internal/cli"
	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
	"github.com/jerardpelaez/wedding-calendar/internal/session"
	"github.com/jerardpelaez/wedding-calendar/internal/sheets"
	gsheet "github.com/jerardpelaez/wedding-calendar/internal/sheets/google"
	memsheet "github.com/jerardpelaez/wedding-calendar/internal/sheets/memory"
	"github.com/jerardpelaez/wedding-calendar/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg, os.Stdout, false).WithComponent(applog.ComponentWorker)

	logger.Info("Starting planner-worker")

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// The worker keeps its session in memory only.
	b, err := cli.OpenBackend(context.Background(), cfg, logger, func(bc *backend.Config) {
		bc.SessionFile = ""
	})
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer b.Close()

	resolver := session.NewResolver(b.Auth, b.Store, logger)
	defer resolver.Close()

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = signIn(startCtx, resolver, cfg.WorkerEmail, cfg.WorkerPassword)
	cancel()
	if err != nil {
		logger.Error("Worker sign-in failed", "error", err, "email", cfg.WorkerEmail)
		os.Exit(1)
	}
	state := resolver.State()
	if !state.IsAuthenticated {
		logger.Error("Worker account is not linked to a couple", "email", cfg.WorkerEmail)
		os.Exit(1)
	}

	var exporter sheets.ExpenseExporter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			Year:               cfg.PlanningYear,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", client.Sheet())
	} else {
		exporter = memsheet.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting to memory")
	}

	w := worker.NewExportWorker(b.NewBudgetSynchronizer(resolver), exporter, resolver, worker.Config{
		Debounce:       cfg.ExportDebounce,
		ResyncInterval: cfg.ExportResyncInterval,
	}, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := w.Stop(ctx); err != nil {
			logger.Error("Worker stop error", "error", err)
		}
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("Failed to start export worker", "error", err)
		os.Exit(1)
	}
	logger.Info("Export worker running",
		"couple", state.CoupleID,
		"debounce", cfg.ExportDebounce,
		"resync_interval", cfg.ExportResyncInterval)

	cli.WaitForShutdown(ctx, done)
	exports, lastRef := w.Stats()
	logger.Info("Worker stopped gracefully", "exports", exports, "last_ref", lastRef)
}

func signIn(ctx context.Context, r *session.Resolver, email, password string) error {
	if err := r.Initialize(ctx); err != nil {
		return err
	}
	return r.SignIn(ctx, email, password)
}
