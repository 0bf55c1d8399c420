// Package worker mirrors committed ledger events into a spreadsheet.
package worker

import (
	"context"
	"fmt"

	"balansim/internal/amqp"
	"balansim/internal/log"
	"balansim/internal/metrics"
	"balansim/internal/sheets"
)

// ExportWorker turns ledger events into spreadsheet rows. It only writes;
// the ledger document remains the source of truth.
type ExportWorker struct {
	exporter sheets.Exporter
	logger   *log.Logger
}

func NewExportWorker(exporter sheets.Exporter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{exporter: exporter, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleEvent has the amqp.Handler signature. A returned error requeues the
// delivery.
func (w *ExportWorker) HandleEvent(ctx context.Context, e *amqp.LedgerEvent) error {
	switch e.Type {
	case amqp.TransactionAdded:
		return w.handleAdded(ctx, e)
	case amqp.TransactionDeleted:
		return w.handleDeleted(ctx, e)
	default:
		w.logger.DebugContext(ctx, "Ignoring ledger event", log.FieldEventType, e.Type, "event_id", e.ID)
		return nil
	}
}

func (w *ExportWorker) handleAdded(ctx context.Context, e *amqp.LedgerEvent) error {
	t := *e.Transaction
	fields := log.NewFields().
		WithOperation(log.OpExport).
		WithTransaction(t.ID, string(t.Type), t.CategoryID, t.Amount.Cents)

	if err := w.exporter.AppendRow(ctx, sheets.NewRow(t, e.CategoryName)); err != nil {
		w.logger.ErrorContext(ctx, "Failed to export transaction", fields.WithError(err).ToSlice()...)
		return fmt.Errorf("append row: %w", err)
	}
	metrics.RowsExported.WithLabelValues("appended").Inc()
	w.logger.InfoContext(ctx, "Exported transaction", fields.ToSlice()...)
	return nil
}

func (w *ExportWorker) handleDeleted(ctx context.Context, e *amqp.LedgerEvent) error {
	id := e.Transaction.ID
	removed, err := w.exporter.DeleteRow(ctx, id)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to clear exported transaction", log.NewFields().
			WithOperation(log.OpExport).
			WithError(err).
			ToSlice()...)
		return fmt.Errorf("delete row: %w", err)
	}
	if !removed {
		w.logger.InfoContext(ctx, "Deleted transaction was never exported", log.FieldTransactionID, id)
		return nil
	}
	metrics.RowsExported.WithLabelValues("cleared").Inc()
	w.logger.InfoContext(ctx, "Cleared exported transaction", log.FieldTransactionID, id)
	return nil
}
