// Package session tracks the current authenticated owner for the whole
// process. Every live view derives its subscription scope from this one
// object and re-derives it on each change notification, instead of reading
// owner state ad hoc.
package session

import (
	"errors"
	"strings"
	"sync"
)

// State is the resolution state of the owner session.
type State int

const (
	// StateUnknown is the initial state, before the identity provider has
	// reported anything. Views treat it like Anonymous but presentation may
	// render it as "loading".
	StateUnknown State = iota
	StateAnonymous
	StateAuthenticated
)

var ErrEmptyOwnerID = errors.New("owner id cannot be empty")

// Listener receives the owner id after each transition, or "" when the
// session became anonymous.
type Listener func(ownerID string)

// Session is the process-wide owner session. The zero value is not usable;
// call New.
type Session struct {
	mu        sync.RWMutex
	state     State
	ownerID   string
	nextToken int
	listeners map[int]Listener
}

func New() *Session {
	return &Session{listeners: make(map[int]Listener)}
}

// State returns the current resolution state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CurrentOwnerID returns the authenticated owner id, or "" when there is
// none (unknown or anonymous).
func (s *Session) CurrentOwnerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownerID
}

// SignIn transitions to Authenticated and notifies listeners. Signing in as
// the owner that is already active is a no-op.
func (s *Session) SignIn(ownerID string) error {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return ErrEmptyOwnerID
	}
	s.mu.Lock()
	if s.state == StateAuthenticated && s.ownerID == ownerID {
		s.mu.Unlock()
		return nil
	}
	s.state = StateAuthenticated
	s.ownerID = ownerID
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(ownerID)
	}
	return nil
}

// SignOut transitions to Anonymous and notifies listeners. Listeners must
// tear down owner-scoped subscriptions and reset derived views before
// anything new is established.
func (s *Session) SignOut() {
	s.mu.Lock()
	if s.state == StateAnonymous {
		s.mu.Unlock()
		return
	}
	s.state = StateAnonymous
	s.ownerID = ""
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn("")
	}
}

// Resolve reports the initial owner as delivered by the identity provider:
// an id for a restored session, "" for none. It only has an effect while
// the session is still Unknown.
func (s *Session) Resolve(ownerID string) {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()
	if state != StateUnknown {
		return
	}
	if strings.TrimSpace(ownerID) == "" {
		s.SignOut()
		return
	}
	_ = s.SignIn(ownerID)
}

// OnChange registers a listener and returns its removal function. The
// listener is not invoked for the current state, only for transitions.
func (s *Session) OnChange(fn Listener) (remove func()) {
	s.mu.Lock()
	token := s.nextToken
	s.nextToken++
	s.listeners[token] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, token)
		s.mu.Unlock()
	}
}

// snapshotListeners copies the listener set; callers invoke outside the lock
// so a listener may sign out or re-register without deadlocking.
func (s *Session) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}
