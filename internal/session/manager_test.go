package session

import (
	"context"
	"testing"
	"time"
)

func TestManagerCreateGetEnd(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("127.0.0.1:5000")
	if s.ID == "" {
		t.Fatalf("session ID should not be empty")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.RemoteAddr != "127.0.0.1:5000" || got.Status != StatusActive {
		t.Fatalf("unexpected session state: %+v", got)
	}

	ended, err := m.End(s.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Status != StatusEnded {
		t.Fatalf("ended status = %q, want %q", ended.Status, StatusEnded)
	}
	if _, err := m.Get(s.ID); err != ErrNotFound {
		t.Fatalf("Get() after End error = %v, want ErrNotFound", err)
	}
}

func TestManagerCompleteTurn(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("")

	if err := m.CompleteTurn(s.ID); err != nil {
		t.Fatalf("CompleteTurn() error = %v", err)
	}
	if err := m.CompleteTurn(s.ID); err != nil {
		t.Fatalf("CompleteTurn() error = %v", err)
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.TurnCount != 2 {
		t.Fatalf("TurnCount = %d, want 2", got.TurnCount)
	}
}

func TestManagerJanitorExpiresInactive(t *testing.T) {
	m := NewManager(30 * time.Millisecond)
	s := m.Create("")

	expired := make(chan *Session, 1)
	m.SetExpireHook(func(s *Session) { expired <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	select {
	case got := <-expired:
		if got.ID != s.ID || got.Status != StatusEnded {
			t.Fatalf("unexpected expired session: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("janitor did not expire session")
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount = %d, want 0", m.ActiveCount())
	}
}

func TestManagerJanitorCancelsExpiredConnection(t *testing.T) {
	m := NewManager(30 * time.Millisecond)
	s := m.Create("")

	canceled := make(chan struct{})
	if err := m.BindCancel(s.ID, func() { close(canceled) }); err != nil {
		t.Fatalf("BindCancel() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatalf("janitor did not cancel the expired connection")
	}
	if _, err := m.Get(s.ID); err != ErrNotFound {
		t.Fatalf("Get() after expiry error = %v, want ErrNotFound", err)
	}
}

func TestManagerBindCancelUnknownSession(t *testing.T) {
	m := NewManager(time.Minute)
	if err := m.BindCancel("nope", func() {}); err != ErrNotFound {
		t.Fatalf("BindCancel() error = %v, want ErrNotFound", err)
	}
}
