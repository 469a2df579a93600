package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"duit/internal/amqp"
	"duit/internal/core"
	"duit/internal/log"
	mirrormem "duit/internal/mirror/memory"
)

func testMessage() *amqp.TransactionCreatedMessage {
	return amqp.NewTransactionCreatedMessage(core.Transaction{
		ID:         "tx-1",
		OwnerID:    "owner-1",
		Kind:       core.Expense,
		Amount:     core.Money{Cents: 2500},
		Category:   "transport",
		OccurredOn: core.NewDate(2024, time.March, 3),
	})
}

func TestHandleCreatedMirrorsRecord(t *testing.T) {
	store := mirrormem.New()
	w := NewMirrorWorker(store, log.New(log.DefaultConfig()))

	if err := w.HandleCreated(context.Background(), testMessage()); err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows := store.Rows()
	if len(rows) != 1 || rows[0].ID != "tx-1" || rows[0].Amount.Cents != 2500 {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestHandleCreatedSkipsRedelivery(t *testing.T) {
	store := mirrormem.New()
	w := NewMirrorWorker(store, log.New(log.DefaultConfig()))

	for i := 0; i < 3; i++ {
		if err := w.HandleCreated(context.Background(), testMessage()); err != nil {
			t.Fatalf("handle %d: %v", i, err)
		}
	}

	if rows := store.Rows(); len(rows) != 1 {
		t.Fatalf("redelivery appended %d rows, want 1", len(rows))
	}
}

func TestHandleCreatedWithoutWriter(t *testing.T) {
	w := NewMirrorWorker(nil, log.New(log.DefaultConfig()))
	if err := w.HandleCreated(context.Background(), testMessage()); err != nil {
		t.Fatalf("nil writer must acknowledge and drop, got %v", err)
	}
}

func TestHandleCreatedBadMessage(t *testing.T) {
	w := NewMirrorWorker(mirrormem.New(), log.New(log.DefaultConfig()))
	msg := testMessage()
	msg.OccurredOn = "garbage"

	if err := w.HandleCreated(context.Background(), msg); !errors.Is(err, core.ErrMissingDate) {
		t.Fatalf("expected date error, got %v", err)
	}
}
