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

// Totals maintains the running income/expense/balance sums for the current
// owner. Every ledger push recomputes the sums over the complete snapshot;
// there is no incremental arithmetic to drift.
type Totals struct {
	notifier

	store  ledger.Store
	sess   *session.Session
	logger *log.Logger

	mu      sync.Mutex
	current core.Totals
	stale   bool

	runMu   sync.Mutex
	running bool
	ownerCh chan string
	stopCh  chan struct{}
	doneCh  chan struct{}
	remove  func()
}

func NewTotals(store ledger.Store, sess *session.Session, logger *log.Logger) *Totals {
	return &Totals{
		store:   store,
		sess:    sess,
		logger:  logger.WithComponent(log.ComponentViews),
		ownerCh: make(chan string, 1),
	}
}

// Start binds the view to the session and opens a subscription for the
// current owner, if any.
func (v *Totals) Start(ctx context.Context) error {
	v.runMu.Lock()
	defer v.runMu.Unlock()
	if v.running {
		return fmt.Errorf("totals view already running")
	}
	v.running = true
	v.stopCh = make(chan struct{})
	v.doneCh = make(chan struct{})
	v.remove = v.sess.OnChange(func(owner string) { pushLatest(v.ownerCh, owner) })

	go v.loop(ctx)
	return nil
}

// Stop tears down the session binding and the live subscription.
func (v *Totals) Stop() {
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

// Current returns the latest totals and whether they are stale. Stale means
// the subscription failed; the value freezes until a rebind succeeds.
func (v *Totals) Current() (core.Totals, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current, v.stale
}

func (v *Totals) loop(ctx context.Context) {
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
		// Cancel before open, and reset before any new owner's data can
		// appear.
		cancelSub()
		v.mu.Lock()
		v.current = core.Totals{}
		v.stale = false
		v.mu.Unlock()
		v.emit()

		if owner == "" {
			// Anonymous: the zero emission above is the whole stream.
			return
		}
		next, err := v.store.Subscribe(ctx, ledger.Query{OwnerID: owner})
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
			v.current = core.Summarize(snap.Records)
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

// markStale freezes the view at its last known value. No automatic retry;
// recovery comes from the next session transition rebinding the view.
func (v *Totals) markStale(err error) {
	v.mu.Lock()
	v.stale = true
	v.mu.Unlock()
	v.logger.Warn("totals subscription lost", log.FieldError, err)
	v.emit()
}
