package worker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Vynetoob/Financeiro/internal/amqp"
	"github.com/Vynetoob/Financeiro/internal/core"
	"github.com/Vynetoob/Financeiro/internal/services"
	"github.com/Vynetoob/Financeiro/internal/sheets/memory"
)

type fakeSource struct {
	txs       map[string]core.Transaction
	synced    []string
	syncError []string
	getErr    error
}

func newFakeSource(txs ...core.Transaction) *fakeSource {
	s := &fakeSource{txs: make(map[string]core.Transaction)}
	for _, t := range txs {
		s.txs[t.ID] = t
	}
	return s
}

func (s *fakeSource) Get(_ context.Context, id string) (core.Transaction, error) {
	if s.getErr != nil {
		return core.Transaction{}, s.getErr
	}
	t, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, services.ErrNotFound
	}
	return t, nil
}

func (s *fakeSource) MarkSynced(_ context.Context, id string) error {
	s.synced = append(s.synced, id)
	return nil
}

func (s *fakeSource) MarkSyncError(_ context.Context, id string) error {
	s.syncError = append(s.syncError, id)
	return nil
}

type failingWriter struct{}

func (failingWriter) Append(context.Context, core.Transaction) (string, error) {
	return "", errors.New("quota exceeded")
}

func testTransaction() core.Transaction {
	return core.Transaction{
		ID:          "tx-1",
		OwnerID:     "user-a",
		Kind:        core.KindExpense,
		Description: "Mercado",
		Amount:      core.Money{Cents: 4200},
		Date:        core.NewDate(2024, 3, 10),
	}
}

func TestHandleLedgerEventMirrorsRecord(t *testing.T) {
	source := newFakeSource(testTransaction())
	writer := memory.New()
	w := NewSyncWorker(source, writer)

	msg := amqp.NewLedgerEventMessage("tx-1", amqp.ActionCreated)
	if err := w.HandleLedgerEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleLedgerEvent: %v", err)
	}

	rows := writer.Rows()
	if len(rows) != 1 {
		t.Fatalf("got %d mirrored rows, want 1", len(rows))
	}
	if !strings.HasPrefix(rows[0].Description, "Mercado [ts:") {
		t.Errorf("mirrored description = %q, want timestamp stamp", rows[0].Description)
	}
	if len(source.synced) != 1 || source.synced[0] != "tx-1" {
		t.Errorf("synced ids = %v, want [tx-1]", source.synced)
	}
}

func TestHandleLedgerEventSkipsDeleted(t *testing.T) {
	source := newFakeSource(testTransaction())
	writer := memory.New()
	w := NewSyncWorker(source, writer)

	msg := amqp.NewLedgerEventMessage("tx-1", amqp.ActionDeleted)
	if err := w.HandleLedgerEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleLedgerEvent: %v", err)
	}
	if len(writer.Rows()) != 0 {
		t.Error("deleted event must not write to the sheet")
	}
}

func TestHandleLedgerEventMissingRecord(t *testing.T) {
	source := newFakeSource()
	writer := memory.New()
	w := NewSyncWorker(source, writer)

	// Record deleted between publish and consume: acknowledged, not retried.
	msg := amqp.NewLedgerEventMessage("gone", amqp.ActionUpdated)
	if err := w.HandleLedgerEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleLedgerEvent = %v, want nil for a vanished record", err)
	}
	if len(writer.Rows()) != 0 {
		t.Error("vanished record must not be mirrored")
	}
}

func TestHandleLedgerEventWriterFailure(t *testing.T) {
	source := newFakeSource(testTransaction())
	w := NewSyncWorker(source, failingWriter{})

	msg := amqp.NewLedgerEventMessage("tx-1", amqp.ActionCreated)
	if err := w.HandleLedgerEvent(context.Background(), msg); err == nil {
		t.Fatal("HandleLedgerEvent must fail when the sheet write fails")
	}
	if len(source.syncError) != 1 || source.syncError[0] != "tx-1" {
		t.Errorf("sync error ids = %v, want [tx-1]", source.syncError)
	}
	if len(source.synced) != 0 {
		t.Error("failed mirror must not be marked synced")
	}
}
