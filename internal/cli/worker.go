package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"balansim/internal/amqp"
	"balansim/internal/log"
	"balansim/internal/sheets"
	"balansim/internal/sheets/google"
	sheetsmem "balansim/internal/sheets/memory"
	"balansim/internal/worker"
)

func newWorkerCommand(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Mirror ledger events into a Google spreadsheet",
		Long: `worker consumes ledger events from the message broker and appends or
clears the matching rows of the configured spreadsheet. With --dry-run rows
are kept in memory and only logged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.signalContext(cmd.Context())
			defer cancel()
			return a.runWorker(ctx, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "keep exported rows in memory instead of writing the spreadsheet")
	return cmd
}

func (a *app) runWorker(ctx context.Context, dryRun bool) error {
	exporter, err := a.exporter(ctx, dryRun)
	if err != nil {
		return err
	}

	client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			a.logger.Warn("Failed to close AMQP client", log.FieldError, err.Error())
		}
	}()

	w := worker.NewExportWorker(exporter, a.logger)
	a.logger.InfoContext(ctx, "Export worker started",
		"queue", a.cfg.AMQPQueue,
		"exchange", a.cfg.AMQPExchange,
		"dry_run", dryRun)

	err = client.Consume(ctx, w.HandleEvent)
	if errors.Is(err, context.Canceled) {
		a.logger.Info("Export worker stopped")
		return nil
	}
	return err
}

func (a *app) exporter(ctx context.Context, dryRun bool) (sheets.Exporter, error) {
	if dryRun {
		if a.cfg.AMQPURL == "" {
			return nil, usageError("AMQP_URL is required to consume ledger events")
		}
		return sheetsmem.New(), nil
	}
	if err := a.cfg.ValidateExport(); err != nil {
		return nil, err
	}
	client, err := google.New(ctx, google.Options{
		SpreadsheetID:   a.cfg.GoogleSpreadsheetID,
		SheetName:       a.cfg.GoogleSheetName,
		CredentialsFile: a.cfg.GoogleCredentialsFile,
		CredentialsJSON: a.cfg.GoogleCredentialsJSON,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
