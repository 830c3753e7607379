// Package worker consumes ledger events and mirrors the referenced records
// into the configured spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Vynetoob/Financeiro/internal/amqp"
	"github.com/Vynetoob/Financeiro/internal/core"
	"github.com/Vynetoob/Financeiro/internal/services"
	"github.com/Vynetoob/Financeiro/internal/sheets"
)

// LedgerSource is the slice of the repository the worker needs: loading a
// record and recording the outcome of its mirror write.
type LedgerSource interface {
	Get(ctx context.Context, id string) (core.Transaction, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

// SyncWorker handles mirroring of ledger records to the spreadsheet.
type SyncWorker struct {
	source LedgerSource
	writer sheets.LedgerWriter
}

func NewSyncWorker(source LedgerSource, writer sheets.LedgerWriter) *SyncWorker {
	return &SyncWorker{
		source: source,
		writer: writer,
	}
}

// HandleLedgerEvent processes a single ledger event from AMQP. Deletions are
// acknowledged without touching the sheet; the mirror is append-only and the
// database stays the source of truth.
func (w *SyncWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"transactionId", msg.TransactionID,
		"action", msg.Action)

	if msg.Action == amqp.ActionDeleted {
		slog.InfoContext(ctx, "Skipping sheet write for deleted record",
			"transactionId", msg.TransactionID)
		return nil
	}

	t, err := w.source.Get(ctx, msg.TransactionID)
	if errors.Is(err, services.ErrNotFound) {
		// Deleted between publish and consume; nothing to mirror.
		slog.WarnContext(ctx, "Ledger record no longer exists, skipping",
			"transactionId", msg.TransactionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", msg.TransactionID, err)
	}

	if err := w.mirror(ctx, t); err != nil {
		return fmt.Errorf("mirror transaction %s: %w", t.ID, err)
	}
	return nil
}

func (w *SyncWorker) mirror(ctx context.Context, t core.Transaction) error {
	// Stamp the description so repeated mirror writes of the same record
	// stay distinguishable on the sheet.
	stamped := t
	stamped.Description = fmt.Sprintf("%s [ts:%d]", t.Description, time.Now().UnixMilli())

	ref, err := w.writer.Append(ctx, stamped)
	if err != nil {
		if markErr := w.source.MarkSyncError(ctx, t.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", t.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.source.MarkSynced(ctx, t.ID); err != nil {
		// The sheet write worked; only the bookkeeping failed.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", t.ID, "error", err)
	}

	slog.InfoContext(ctx, "Ledger record mirrored",
		"id", t.ID,
		"sheets_ref", ref,
		"amount_cents", t.Amount.Cents)
	return nil
}
