package session

import (
	"errors"
	"testing"
)

func TestSessionTransitions(t *testing.T) {
	s := New()
	if s.State() != StateUnknown {
		t.Fatalf("new session should be unknown, got %v", s.State())
	}
	if s.CurrentOwnerID() != "" {
		t.Fatalf("unknown session must report no owner")
	}

	if err := s.SignIn("owner-1"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if s.State() != StateAuthenticated || s.CurrentOwnerID() != "owner-1" {
		t.Fatalf("expected authenticated owner-1, got %v %q", s.State(), s.CurrentOwnerID())
	}

	s.SignOut()
	if s.State() != StateAnonymous || s.CurrentOwnerID() != "" {
		t.Fatalf("expected anonymous, got %v %q", s.State(), s.CurrentOwnerID())
	}

	// Anonymous -> Authenticated again; there is no terminal state.
	if err := s.SignIn("owner-2"); err != nil {
		t.Fatalf("re-login: %v", err)
	}
	if s.CurrentOwnerID() != "owner-2" {
		t.Fatalf("expected owner-2, got %q", s.CurrentOwnerID())
	}
}

func TestSessionSignInEmpty(t *testing.T) {
	s := New()
	if err := s.SignIn("  "); !errors.Is(err, ErrEmptyOwnerID) {
		t.Fatalf("expected ErrEmptyOwnerID, got %v", err)
	}
}

func TestSessionNotifications(t *testing.T) {
	s := New()
	var got []string
	remove := s.OnChange(func(ownerID string) {
		got = append(got, ownerID)
	})

	_ = s.SignIn("owner-1")
	_ = s.SignIn("owner-1") // no-op, no duplicate notification
	s.SignOut()
	s.SignOut() // no-op

	want := []string{"owner-1", ""}
	if len(got) != len(want) {
		t.Fatalf("notifications = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("notifications = %v, want %v", got, want)
		}
	}

	remove()
	_ = s.SignIn("owner-2")
	if len(got) != len(want) {
		t.Fatalf("removed listener still notified: %v", got)
	}
}

func TestSessionResolve(t *testing.T) {
	s := New()
	var notified []string
	s.OnChange(func(ownerID string) { notified = append(notified, ownerID) })

	s.Resolve("")
	if s.State() != StateAnonymous {
		t.Fatalf("resolve with no owner should be anonymous, got %v", s.State())
	}
	if len(notified) != 1 || notified[0] != "" {
		t.Fatalf("initial resolution must notify: %v", notified)
	}

	// Resolve is only meaningful while the state is unknown.
	s.Resolve("owner-1")
	if s.State() != StateAnonymous {
		t.Fatalf("late resolve must not override explicit state")
	}

	restored := New()
	restored.Resolve("owner-9")
	if restored.CurrentOwnerID() != "owner-9" {
		t.Fatalf("resolve with owner should authenticate")
	}
}
