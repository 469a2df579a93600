package views

import (
	"context"
	"fmt"
	"sync"
	"time"

	"duit/internal/core"
	"duit/internal/ledger"
	"duit/internal/log"
	"duit/internal/session"
)

// Cursor selects the month a MonthWindow is scoped to.
type Cursor struct {
	Year  int
	Month time.Month
}

// Shift moves the cursor by delta months, rolling year boundaries in either
// direction through time.Date normalization.
func (c Cursor) Shift(delta int) Cursor {
	t := time.Date(c.Year, c.Month+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	return Cursor{Year: t.Year(), Month: t.Month()}
}

// MonthWindow maintains all of the owner's records whose date falls inside
// the cursor month, ascending by date. Moving the cursor tears down the
// prior subscription and opens a new one scoped to the new bounds; nothing
// is filtered client-side from a broader fetch.
type MonthWindow struct {
	notifier

	store  ledger.Store
	sess   *session.Session
	logger *log.Logger

	mu      sync.Mutex
	cursor  Cursor
	records []core.Transaction
	loaded  bool
	stale   bool

	runMu    sync.Mutex
	running  bool
	ownerCh  chan string
	cursorCh chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
	remove   func()
}

func NewMonthWindow(store ledger.Store, sess *session.Session, logger *log.Logger) *MonthWindow {
	now := time.Now().UTC()
	return &MonthWindow{
		store:    store,
		sess:     sess,
		logger:   logger.WithComponent(log.ComponentViews),
		cursor:   Cursor{Year: now.Year(), Month: now.Month()},
		ownerCh:  make(chan string, 1),
		cursorCh: make(chan struct{}, 1),
	}
}

func (v *MonthWindow) Start(ctx context.Context) error {
	v.runMu.Lock()
	defer v.runMu.Unlock()
	if v.running {
		return fmt.Errorf("month window already running")
	}
	v.running = true
	v.stopCh = make(chan struct{})
	v.doneCh = make(chan struct{})
	v.remove = v.sess.OnChange(func(owner string) { pushLatest(v.ownerCh, owner) })

	go v.loop(ctx)
	return nil
}

func (v *MonthWindow) Stop() {
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

// Advance moves the cursor by delta months and re-subscribes.
func (v *MonthWindow) Advance(delta int) {
	v.mu.Lock()
	v.cursor = v.cursor.Shift(delta)
	cursor := v.cursor
	v.mu.Unlock()
	v.logger.Debug("month cursor moved",
		log.FieldYear, cursor.Year,
		log.FieldMonth, int(cursor.Month))
	signal(v.cursorCh)
}

// SetCursor jumps straight to a month and re-subscribes.
func (v *MonthWindow) SetCursor(year int, month time.Month) {
	v.mu.Lock()
	v.cursor = Cursor{Year: year, Month: month}
	v.mu.Unlock()
	signal(v.cursorCh)
}

// Cursor returns the currently selected month.
func (v *MonthWindow) Cursor() Cursor {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cursor
}

// Current returns the window's records, whether the first snapshot for the
// current scope has arrived, and whether the view is stale. A month with no
// records is an empty, loaded, non-error result.
func (v *MonthWindow) Current() (records []core.Transaction, loaded, stale bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]core.Transaction(nil), v.records...), v.loaded, v.stale
}

func (v *MonthWindow) loop(ctx context.Context) {
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

	owner := v.sess.CurrentOwnerID()

	rebind := func() {
		cancelSub()
		v.mu.Lock()
		cursor := v.cursor
		v.records = nil
		v.loaded = owner == ""
		v.stale = false
		v.mu.Unlock()
		v.emit()

		if owner == "" {
			return
		}
		from, to := core.MonthBounds(cursor.Year, cursor.Month)
		next, err := v.store.Subscribe(ctx, ledger.Query{
			OwnerID: owner,
			Range:   &ledger.DateRange{From: from, To: to},
			Order:   ledger.OrderOccurredAsc,
		})
		if err != nil {
			v.markStale(err)
			return
		}
		sub, subC = next, next.C
	}

	rebind()

	for {
		select {
		case next := <-v.ownerCh:
			owner = next
			rebind()
		case <-v.cursorCh:
			rebind()
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

func (v *MonthWindow) markStale(err error) {
	v.mu.Lock()
	v.stale = true
	v.mu.Unlock()
	v.logger.Warn("month window subscription lost", log.FieldError, err)
	v.emit()
}
