// Package memory is the in-process ledger backend. It is the default for
// development and the double the rest of the codebase tests against.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"duit/internal/core"
	"duit/internal/ledger"
)

type Store struct {
	mu      sync.RWMutex
	records []core.Transaction
	closed  bool
	hub     *ledger.Hub

	// Seams for deterministic tests.
	now   func() time.Time
	newID func() string
}

func New() *Store {
	return &Store{
		hub:   ledger.NewHub(),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// NewWithClock builds a store with a fixed clock and id source.
func NewWithClock(now func() time.Time, newID func() string) *Store {
	s := New()
	if now != nil {
		s.now = now
	}
	if newID != nil {
		s.newID = newID
	}
	return s
}

// Append implements ledger.Store.
func (s *Store) Append(_ context.Context, in core.TransactionInput) (string, error) {
	if in.OwnerID == "" {
		return "", fmt.Errorf("append without owner: %w", core.ErrPermissionDenied)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", core.ErrStoreUnavailable
	}
	t := core.Transaction{
		ID:         s.newID(),
		OwnerID:    in.OwnerID,
		Kind:       in.Kind,
		Amount:     in.Amount,
		Category:   in.Category,
		Note:       in.Note,
		OccurredOn: in.OccurredOn,
		CreatedAt:  s.now(),
	}
	s.records = append(s.records, t)
	s.mu.Unlock()

	s.hub.Wake(in.OwnerID)
	return t.ID, nil
}

// Subscribe implements ledger.Store.
func (s *Store) Subscribe(ctx context.Context, q ledger.Query) (*ledger.Subscription, error) {
	return s.hub.Subscribe(ctx, q, s.query)
}

func (s *Store) query(_ context.Context, q ledger.Query) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, core.ErrStoreUnavailable
	}

	var out []core.Transaction
	for _, t := range s.records {
		if t.OwnerID != q.OwnerID {
			continue
		}
		if q.Range != nil && !q.Range.Contains(t.OccurredOn) {
			continue
		}
		out = append(out, t)
	}

	// Stable sort so records with equal keys keep append order, giving a
	// consistent tie-break across repeated queries.
	switch q.Order {
	case ledger.OrderOccurredAsc:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].OccurredOn.Time.Before(out[j].OccurredOn.Time)
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Close cancels all live subscriptions; subsequent operations fail with
// core.ErrStoreUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.Close()
	return nil
}
