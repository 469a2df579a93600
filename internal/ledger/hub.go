package ledger

import (
	"context"
	"sync"

	"duit/internal/core"
)

// QueryFunc runs a query against backend state and returns the full current
// matching set. The hub re-runs it once per push.
type QueryFunc func(ctx context.Context, q Query) ([]core.Transaction, error)

// Hub fans appends out to live subscriptions. Both backends embed one: they
// store the record, then wake every subscription scoped to that owner, and
// each subscription re-queries and pushes a fresh full snapshot.
type Hub struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

type subscriber struct {
	q    Query
	out  chan Snapshot
	wake chan struct{}
	done chan struct{}
	once sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// deliver replaces any undelivered snapshot instead of blocking. Later
// pushes win, which is correct because each one carries complete state.
func (s *subscriber) deliver(snap Snapshot) {
	for {
		select {
		case s.out <- snap:
			return
		default:
		}
		select {
		case <-s.out:
		default:
		}
	}
}

func (s *subscriber) loop(ctx context.Context, run QueryFunc, cleanup func()) {
	defer cleanup()
	defer close(s.out)
	for {
		records, err := run(ctx, s.q)
		if err != nil {
			if ctx.Err() == nil && !s.stopped() {
				// Terminal push; the stream closes right after.
				s.deliver(Snapshot{Err: err})
			}
			return
		}
		s.deliver(Snapshot{Records: records})

		select {
		case <-s.wake:
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *subscriber) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Subscribe registers a live query. The subscription's first snapshot is
// produced immediately from current state.
func (h *Hub) Subscribe(ctx context.Context, q Query, run QueryFunc) (*Subscription, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, core.ErrStoreUnavailable
	}
	s := &subscriber{
		q:    q,
		out:  make(chan Snapshot, 1),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go s.loop(ctx, run, func() { h.remove(s) })

	return &Subscription{C: s.out, cancel: s.stop}, nil
}

// Wake signals every subscription scoped to ownerID to re-query. Signals
// coalesce; a subscription that is already pending re-query is not queued
// twice.
func (h *Hub) Wake(ownerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		if s.q.OwnerID != ownerID {
			continue
		}
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

// Close cancels every live subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
}
