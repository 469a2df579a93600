package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"duit/internal/core"
	"duit/internal/ledger"
)

func testStore() (*Store, *time.Time) {
	clock := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	s := NewWithClock(
		func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
		func() string {
			n++
			return fmt.Sprintf("tx-%d", n)
		},
	)
	return s, &clock
}

func appendTx(t *testing.T, s *Store, owner string, kind core.Kind, cents int64, day core.Date) string {
	t.Helper()
	id, err := s.Append(context.Background(), core.TransactionInput{
		OwnerID:    owner,
		Kind:       kind,
		Amount:     core.Money{Cents: cents},
		Category:   core.CategoryOther,
		OccurredOn: day,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return id
}

// waitRecords receives snapshots until one carries n records. Deliveries
// coalesce, so intermediate snapshots may be skipped legitimately.
func waitRecords(t *testing.T, sub *ledger.Subscription, n int) []core.Transaction {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-sub.C:
			if !ok {
				t.Fatalf("stream closed while waiting for %d records", n)
			}
			if snap.Err != nil {
				t.Fatalf("unexpected terminal error: %v", snap.Err)
			}
			if len(snap.Records) == n {
				return snap.Records
			}
		case <-deadline:
			t.Fatalf("timed out waiting for snapshot with %d records", n)
		}
	}
}

func TestAppendAssignsIDAndCreatedAt(t *testing.T) {
	s, _ := testStore()
	defer s.Close()

	id := appendTx(t, s, "owner-1", core.Income, 1000, core.NewDate(2024, time.January, 5))
	if id != "tx-1" {
		t.Fatalf("id = %q", id)
	}

	sub, err := s.Subscribe(context.Background(), ledger.Query{OwnerID: "owner-1"})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Cancel()

	recs := waitRecords(t, sub, 1)
	if recs[0].ID != "tx-1" || recs[0].CreatedAt.IsZero() {
		t.Fatalf("record not fully assigned: %+v", recs[0])
	}
}

func TestAppendWithoutOwner(t *testing.T) {
	s, _ := testStore()
	defer s.Close()

	_, err := s.Append(context.Background(), core.TransactionInput{
		OwnerID: "",
		Kind:    core.Expense,
		Amount:  core.Money{Cents: 100},
	})
	if !errors.Is(err, core.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestSubscribeInitialSnapshotIsEmptyNotMissing(t *testing.T) {
	s, _ := testStore()
	defer s.Close()

	sub, err := s.Subscribe(context.Background(), ledger.Query{OwnerID: "owner-1"})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Cancel()

	recs := waitRecords(t, sub, 0)
	if recs != nil && len(recs) != 0 {
		t.Fatalf("expected empty snapshot, got %v", recs)
	}
}

func TestSubscribePushesOnAppend(t *testing.T) {
	s, _ := testStore()
	defer s.Close()

	sub, _ := s.Subscribe(context.Background(), ledger.Query{OwnerID: "owner-1"})
	defer sub.Cancel()
	waitRecords(t, sub, 0)

	appendTx(t, s, "owner-1", core.Income, 500, core.NewDate(2024, time.January, 1))
	waitRecords(t, sub, 1)
	appendTx(t, s, "owner-1", core.Expense, 200, core.NewDate(2024, time.January, 2))
	waitRecords(t, sub, 2)
}

func TestOwnerScoping(t *testing.T) {
	s, _ := testStore()
	defer s.Close()

	appendTx(t, s, "owner-1", core.Income, 500, core.NewDate(2024, time.January, 1))
	appendTx(t, s, "owner-2", core.Income, 900, core.NewDate(2024, time.January, 1))

	sub, _ := s.Subscribe(context.Background(), ledger.Query{OwnerID: "owner-1"})
	defer sub.Cancel()

	recs := waitRecords(t, sub, 1)
	if recs[0].OwnerID != "owner-1" {
		t.Fatalf("leaked foreign record: %+v", recs[0])
	}
}

func TestCreatedDescOrderAndLimit(t *testing.T) {
	s, _ := testStore()
	defer s.Close()

	for i := 0; i < 7; i++ {
		appendTx(t, s, "owner-1", core.Expense, int64(100+i), core.NewDate(2024, time.January, 1+i))
	}

	sub, _ := s.Subscribe(context.Background(), ledger.Query{
		OwnerID: "owner-1",
		Order:   ledger.OrderCreatedDesc,
		Limit:   5,
	})
	defer sub.Cancel()

	recs := waitRecords(t, sub, 5)
	for i := 1; i < len(recs); i++ {
		if recs[i-1].CreatedAt.Before(recs[i].CreatedAt) {
			t.Fatalf("not newest-first at %d: %v then %v", i, recs[i-1].CreatedAt, recs[i].CreatedAt)
		}
	}
	if recs[0].Amount.Cents != 106 {
		t.Fatalf("newest record should lead, got %+v", recs[0])
	}
}

func TestDateRangeInclusiveBounds(t *testing.T) {
	s, _ := testStore()
	defer s.Close()

	appendTx(t, s, "owner-1", core.Expense, 1, core.NewDate(2024, time.January, 31)) // outside
	appendTx(t, s, "owner-1", core.Expense, 2, core.NewDate(2024, time.February, 1))
	appendTx(t, s, "owner-1", core.Expense, 3, core.NewDate(2024, time.February, 29)) // leap day
	appendTx(t, s, "owner-1", core.Expense, 4, core.NewDate(2024, time.March, 1))     // outside

	from, to := core.MonthBounds(2024, time.February)
	sub, _ := s.Subscribe(context.Background(), ledger.Query{
		OwnerID: "owner-1",
		Range:   &ledger.DateRange{From: from, To: to},
		Order:   ledger.OrderOccurredAsc,
	})
	defer sub.Cancel()

	recs := waitRecords(t, sub, 2)
	if recs[0].Amount.Cents != 2 || recs[1].Amount.Cents != 3 {
		t.Fatalf("wrong window contents: %+v", recs)
	}
}

func TestCancelClosesStream(t *testing.T) {
	s, _ := testStore()
	defer s.Close()

	sub, _ := s.Subscribe(context.Background(), ledger.Query{OwnerID: "owner-1"})
	waitRecords(t, sub, 0)
	sub.Cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.C:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after cancel")
		}
	}
}

func TestClosedStore(t *testing.T) {
	s, _ := testStore()
	s.Close()

	if _, err := s.Append(context.Background(), core.TransactionInput{OwnerID: "owner-1"}); !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("append after close: %v", err)
	}
	if _, err := s.Subscribe(context.Background(), ledger.Query{OwnerID: "owner-1"}); !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("subscribe after close: %v", err)
	}
}

func TestContextCancelClosesStream(t *testing.T) {
	s, _ := testStore()
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, _ := s.Subscribe(ctx, ledger.Query{OwnerID: "owner-1"})
	waitRecords(t, sub, 0)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.C:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after context cancel")
		}
	}
}
