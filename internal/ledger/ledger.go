// Package ledger defines the append-only transaction store contract the
// rest of the service consumes: filtered appends and live, full-snapshot
// subscriptions. Backends live in the memory and sqlite subpackages.
package ledger

import (
	"context"

	"duit/internal/core"
)

// Order controls the sort applied to a query's result set.
type Order int

const (
	// OrderCreatedDesc sorts newest append first. Ties on CreatedAt come
	// back in whatever order the backend produces; callers must not rely
	// on it.
	OrderCreatedDesc Order = iota
	// OrderOccurredAsc sorts by calendar date, oldest first.
	OrderOccurredAsc
)

// DateRange is an inclusive [From, To] window over OccurredOn.
type DateRange struct {
	From core.Date
	To   core.Date
}

// Contains reports whether d falls inside the range, bounds included.
func (r DateRange) Contains(d core.Date) bool {
	return !d.Time.Before(r.From.Time) && !d.Time.After(r.To.Time)
}

// Query scopes a subscription. OwnerID is mandatory; Range and Limit are
// optional (zero Limit means unbounded).
type Query struct {
	OwnerID string
	Range   *DateRange
	Order   Order
	Limit   int
}

// Snapshot is one push: the full current matching set, never a delta. A
// non-nil Err is terminal; the stream closes after delivering it and must
// be re-established explicitly.
type Snapshot struct {
	Records []core.Transaction
	Err     error
}

// Subscription is a live query handle. Snapshots arrive on C until Cancel
// is called, the context ends, or a terminal error is delivered; C is
// closed in all three cases. Delivery coalesces: if the consumer lags, a
// newer snapshot replaces the undelivered one, which is safe because every
// snapshot fully replaces derived state.
type Subscription struct {
	C      <-chan Snapshot
	cancel func()
}

// Cancel tears the subscription down. It is safe to call more than once.
func (s *Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Store is the ledger contract. Records are immutable once appended; there
// is no update or delete.
type Store interface {
	// Append validates ownership, assigns ID and CreatedAt, stores the
	// record and wakes matching subscriptions. Fails with
	// core.ErrPermissionDenied or core.ErrStoreUnavailable.
	Append(ctx context.Context, in core.TransactionInput) (string, error)

	// Subscribe opens a live query. The first snapshot reflects current
	// state and arrives without any append happening.
	Subscribe(ctx context.Context, q Query) (*Subscription, error)

	Close() error
}
