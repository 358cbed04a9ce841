package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"opex/internal/amqp"
	"opex/internal/cli"
	"opex/internal/sheets"
	gsheet "opex/internal/sheets/google"
	mem "opex/internal/sheets/memory"
	"opex/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting opex-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var auditWriter sheets.AuditWriter
	switch cfg.AuditBackend {
	case "google":
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		auditWriter = client
		logger.Info("Google Sheets audit backend initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	default:
		auditWriter = mem.New()
		logger.Info("Memory audit backend initialized")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	auditWorker := worker.NewAuditWorker(repo, auditWriter)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeImportCompleted(gctx, func(msg *amqp.ImportCompletedMessage) error {
			return auditWorker.HandleImportCompleted(gctx, msg)
		})
	})

	logger.Info("Worker consuming", "queue", cfg.AMQPQueue)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
