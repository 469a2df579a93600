package views

import (
	"context"
	"fmt"
	"sync"

	"duit/internal/core"
	"duit/internal/ledger"
	"duit/internal/log"
	"duit/internal/session"
)

// DefaultRecentLimit matches the original product's "last 5 activities"
// window.
const DefaultRecentLimit = 5

// RecentFeed maintains the owner's N most recently created records, newest
// first. Each push is a full replacement list, never a merge. Ordering of
// records with equal CreatedAt is whatever the store returns.
type RecentFeed struct {
	notifier

	store  ledger.Store
	sess   *session.Session
	logger *log.Logger
	limit  int

	mu      sync.Mutex
	records []core.Transaction
	loaded  bool
	stale   bool

	runMu   sync.Mutex
	running bool
	ownerCh chan string
	stopCh  chan struct{}
	doneCh  chan struct{}
	remove  func()
}

func NewRecentFeed(store ledger.Store, sess *session.Session, limit int, logger *log.Logger) *RecentFeed {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return &RecentFeed{
		store:   store,
		sess:    sess,
		logger:  logger.WithComponent(log.ComponentViews),
		limit:   limit,
		ownerCh: make(chan string, 1),
	}
}

func (v *RecentFeed) Start(ctx context.Context) error {
	v.runMu.Lock()
	defer v.runMu.Unlock()
	if v.running {
		return fmt.Errorf("recent feed already running")
	}
	v.running = true
	v.stopCh = make(chan struct{})
	v.doneCh = make(chan struct{})
	v.remove = v.sess.OnChange(func(owner string) { pushLatest(v.ownerCh, owner) })

	go v.loop(ctx)
	return nil
}

func (v *RecentFeed) Stop() {
	v.runMu.Lock()
	defer v.runMu.Unlock()
	if !v.running {
		return
	}
	v.running = false
	v.remove()
	close(v.stopCh)
	<-v.doneCh
}

// Current returns the latest list, whether the first snapshot has arrived
// (an empty loaded list is valid data, distinct from "still loading"), and
// whether the view is stale.
func (v *RecentFeed) Current() (records []core.Transaction, loaded, stale bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]core.Transaction(nil), v.records...), v.loaded, v.stale
}

func (v *RecentFeed) loop(ctx context.Context) {
	defer close(v.doneCh)

	var (
		sub  *ledger.Subscription
		subC <-chan ledger.Snapshot
	)
	cancelSub := func() {
		if sub != nil {
			sub.Cancel()
			sub, subC = nil, nil
		}
	}
	defer cancelSub()

	rebind := func(owner string) {
		cancelSub()
		v.mu.Lock()
		v.records = nil
		v.loaded = owner == "" // anonymous: empty is the final answer
		v.stale = false
		v.mu.Unlock()
		v.emit()

		if owner == "" {
			return
		}
		next, err := v.store.Subscribe(ctx, ledger.Query{
			OwnerID: owner,
			Order:   ledger.OrderCreatedDesc,
			Limit:   v.limit,
		})
		if err != nil {
			v.markStale(err)
			return
		}
		sub, subC = next, next.C
	}

	rebind(v.sess.CurrentOwnerID())

	for {
		select {
		case owner := <-v.ownerCh:
			rebind(owner)
		case snap, ok := <-subC:
			if !ok {
				subC = nil
				continue
			}
			if snap.Err != nil {
				v.markStale(snap.Err)
				continue
			}
			v.mu.Lock()
			v.records = snap.Records
			v.loaded = true
			v.stale = false
			v.mu.Unlock()
			v.emit()
		case <-v.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (v *RecentFeed) markStale(err error) {
	v.mu.Lock()
	v.stale = true
	v.mu.Unlock()
	v.logger.Warn("recent feed subscription lost", log.FieldError, err)
	v.emit()
}
