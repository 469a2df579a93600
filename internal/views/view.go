// Package views holds the derived read models: running totals, the
// recent-activity feed and the month-bounded list. Each view is a small
// event loop that reacts to owner-session transitions and ledger pushes,
// holds exactly one live subscription at a time, and rebuilds its state
// wholesale from every snapshot.
package views

import "sync"

// notifier lets consumers (SSE handlers, tests) learn that a view's state
// changed. Callbacks run on the view's loop goroutine and must be quick.
type notifier struct {
	mu   sync.Mutex
	next int
	fns  map[int]func()
}

// OnUpdate registers a callback invoked after every state change and
// returns its removal function.
func (n *notifier) OnUpdate(fn func()) (remove func()) {
	n.mu.Lock()
	if n.fns == nil {
		n.fns = make(map[int]func())
	}
	token := n.next
	n.next++
	n.fns[token] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.fns, token)
		n.mu.Unlock()
	}
}

func (n *notifier) emit() {
	n.mu.Lock()
	fns := make([]func(), 0, len(n.fns))
	for _, fn := range n.fns {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// pushLatest delivers owner into a capacity-1 channel, replacing any value
// the loop has not consumed yet. Only the newest owner matters; a view that
// lags must not rebind to a stale one in between.
func pushLatest(ch chan string, owner string) {
	for {
		select {
		case ch <- owner:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// signal coalesces a wake-up into a capacity-1 channel.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
