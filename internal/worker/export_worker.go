// Package worker pushes ledger exports to a spreadsheet, either when a
// snapshot-saved message arrives or on a fixed interval.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parishledger/internal/amqp"
	"parishledger/internal/core"
	"parishledger/internal/export"
	applog "parishledger/internal/log"
	"parishledger/internal/snapshot"
	"parishledger/internal/store"
)

// Titler maps a selection title such as "2024년" to a sheet tab name.
type Titler func(selection string) string

// ExportWorker writes the yearly ledger of a state to a spreadsheet.
type ExportWorker struct {
	writer   export.Writer
	title    Titler
	location *time.Location
	now      func() time.Time
	logger   *applog.Logger
}

func NewExportWorker(writer export.Writer, title Titler, loc *time.Location, logger *applog.Logger) *ExportWorker {
	if title == nil {
		title = func(s string) string { return s }
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ExportWorker{
		writer:   writer,
		title:    title,
		location: loc,
		now:      time.Now,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleSnapshotSaved exports the snapshot carried by msg for the year it
// was saved in. A malformed snapshot is permanent and reported as such.
func (w *ExportWorker) HandleSnapshotSaved(ctx context.Context, msg *amqp.SnapshotSavedMessage) error {
	w.logger.InfoContext(ctx, "Processing snapshot saved message",
		"church", msg.Church,
		"saved_at", msg.SavedAt,
		applog.FieldCount, msg.Transactions)

	st, err := snapshot.Unmarshal(msg.Snapshot)
	if err != nil {
		return fmt.Errorf("%w: %w", amqp.ErrPermanent, err)
	}
	return w.Export(ctx, st, msg.SavedAt.In(w.location).Year())
}

// Export writes the rows of year. A year without transactions is skipped.
func (w *ExportWorker) Export(ctx context.Context, st core.State, year int) error {
	sel := export.Selection{Period: export.Yearly, Year: year}
	rows, err := export.Rows(st, sel)
	if errors.Is(err, export.ErrNoRows) {
		w.logger.InfoContext(ctx, "Nothing to export", applog.FieldYear, year)
		return nil
	}
	if err != nil {
		return fmt.Errorf("build export rows: %w", err)
	}

	sheet := w.title(sel.Title())
	if err := w.writer.Write(ctx, sheet, rows); err != nil {
		w.logger.ErrorContext(ctx, "Export failed",
			applog.FieldSheetRange, sheet,
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeNetwork)
		return fmt.Errorf("write sheet %q: %w", sheet, err)
	}

	w.logger.InfoContext(ctx, "Ledger exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldSheetRange, sheet,
		applog.FieldCount, len(rows))
	return nil
}

// ExportCurrent exports the state held by src for the current year.
func (w *ExportWorker) ExportCurrent(ctx context.Context, src store.StateReader) error {
	st, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	return w.Export(ctx, st, w.now().In(w.location).Year())
}

// RunPeriodic exports the state held by src every interval until ctx ends.
// Failures are logged and retried on the next tick.
func (w *ExportWorker) RunPeriodic(ctx context.Context, src store.StateReader, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "Periodic export started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.ExportCurrent(ctx, src); err != nil {
				w.logger.ErrorContext(ctx, "Periodic export failed", applog.FieldError, err)
			}
		}
	}
}
