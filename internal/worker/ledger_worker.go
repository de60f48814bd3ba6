// Package worker exports items to the external ledger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/sheets"
	"finanzas/internal/storage"
)

// LedgerStore is the persistence surface the LedgerWorker needs.
type LedgerStore interface {
	GetLedgerEntry(ctx context.Context, dir core.Direction, itemID int64) (core.LedgerEntry, error)
	ListUnexported(ctx context.Context, dir core.Direction, limit int) ([]core.LedgerEntry, error)
	MarkExported(ctx context.Context, dir core.Direction, itemID int64, at time.Time) error
}

var _ LedgerStore = (storage.ItemRepository)(nil)

// LedgerWorker appends income and outcome items to a LedgerWriter and
// records the export on the item.
type LedgerWorker struct {
	store     LedgerStore
	ledger    sheets.LedgerWriter
	batchSize int
	now       func() time.Time
}

func NewLedgerWorker(store LedgerStore, ledger sheets.LedgerWriter, batchSize int) *LedgerWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &LedgerWorker{store: store, ledger: ledger, batchSize: batchSize, now: time.Now}
}

// HandleItemEvent exports the item named by msg. An item deleted since the
// event was published, or already exported by a sweep or an earlier
// delivery, is acknowledged without export.
func (w *LedgerWorker) HandleItemEvent(ctx context.Context, msg *amqp.ItemEventMessage) error {
	slog.InfoContext(ctx, "Processing item event",
		"message_id", msg.ID,
		"direction", msg.Direction,
		"action", msg.Action,
		"item_id", msg.ItemID)

	entry, err := w.store.GetLedgerEntry(ctx, msg.Direction, msg.ItemID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Item no longer exists, skipping export",
			"direction", msg.Direction,
			"item_id", msg.ItemID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get ledger entry: %w", err)
	}
	if !entry.ExportedAt.IsZero() {
		slog.InfoContext(ctx, "Item already exported, skipping",
			"direction", msg.Direction,
			"item_id", msg.ItemID,
			"exported_at", entry.ExportedAt)
		return nil
	}

	return w.export(ctx, entry)
}

// ProcessPending exports up to one batch of unexported items per direction.
// It backs up the event path when messages are lost.
func (w *LedgerWorker) ProcessPending(ctx context.Context) (exported, failed int, err error) {
	return w.sweep(ctx, w.batchSize)
}

// StartupSyncCheck runs a larger sweep at worker startup.
func (w *LedgerWorker) StartupSyncCheck(ctx context.Context) error {
	exported, failed, err := w.sweep(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if exported == 0 && failed == 0 {
		slog.InfoContext(ctx, "No unexported items found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed", "exported", exported, "errors", failed)
	return nil
}

func (w *LedgerWorker) sweep(ctx context.Context, limit int) (exported, failed int, err error) {
	var errs []error
	for _, dir := range []core.Direction{core.Income, core.Outcome} {
		entries, lerr := w.store.ListUnexported(ctx, dir, limit)
		if lerr != nil {
			errs = append(errs, fmt.Errorf("list unexported %s items: %w", dir, lerr))
			continue
		}
		for _, e := range entries {
			if ctx.Err() != nil {
				return exported, failed, ctx.Err()
			}
			if xerr := w.export(ctx, e); xerr != nil {
				slog.ErrorContext(ctx, "Failed to export item",
					"direction", dir,
					"item_id", e.ItemID,
					"error", xerr)
				failed++
				continue
			}
			exported++
		}
	}
	return exported, failed, errors.Join(errs...)
}

func (w *LedgerWorker) export(ctx context.Context, e core.LedgerEntry) error {
	ref, err := w.ledger.AppendEntry(ctx, e)
	if err != nil {
		return fmt.Errorf("append to ledger: %w", err)
	}

	// The row is already written; a failed mark only causes a re-export.
	if err := w.store.MarkExported(ctx, e.Direction, e.ItemID, w.now()); err != nil {
		slog.ErrorContext(ctx, "Failed to mark item as exported",
			"direction", e.Direction,
			"item_id", e.ItemID,
			"error", err)
	}

	slog.InfoContext(ctx, "Exported item to ledger",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldOperation, applog.OpExport,
		"direction", e.Direction,
		"item_id", e.ItemID,
		"definition", e.DefinitionName,
		"amount", e.Amount.String(),
		"ledger_ref", ref)
	return nil
}
