package memory

import (
	"context"
	"testing"
	"time"

	"duit/internal/core"
)

func TestAppendAndRows(t *testing.T) {
	s := New()

	ref, err := s.Append(context.Background(), core.Transaction{
		ID:         "tx-1",
		OwnerID:    "owner-1",
		Kind:       core.Income,
		Amount:     core.Money{Cents: 5000},
		Category:   "salary",
		OccurredOn: core.NewDate(2024, time.January, 31),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "mem:1" {
		t.Fatalf("ref = %q", ref)
	}

	rows := s.Rows()
	if len(rows) != 1 || rows[0].ID != "tx-1" {
		t.Fatalf("rows = %+v", rows)
	}

	// Rows returns a copy; mutating it must not touch the store.
	rows[0].ID = "mutated"
	if s.Rows()[0].ID != "tx-1" {
		t.Fatal("Rows must return a copy")
	}
}
