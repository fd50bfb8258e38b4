package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/loreboard/loreboard/pkg/board"
	"github.com/loreboard/loreboard/pkg/drag"
	"github.com/loreboard/loreboard/pkg/entity"
	"github.com/loreboard/loreboard/pkg/geometry"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	b := board.New()
	if err := b.Sync(context.Background(), []entity.Entity{{ID: "a"}, {ID: "b"}}); err != nil {
		t.Fatal(err)
	}
	return New(b, nil)
}

func TestNew(t *testing.T) {
	s := newSession(t)
	if _, err := uuid.Parse(s.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", s.ID, err)
	}
	if origin, ok := s.Surface.Origin(); !ok || origin != (geometry.Point{}) {
		t.Errorf("Surface.Origin() = %v, %v", origin, ok)
	}
	if !s.ExpiresAt().IsZero() {
		t.Error("session outside a store should not expire")
	}
}

func TestSessionPointerDrivesDrag(t *testing.T) {
	s := newSession(t)
	start, _ := s.Board.Position("a")

	grab := start.Add(geometry.Point{X: 10, Y: 10})
	s.Pointer.Emit(drag.Event{Type: drag.PointerDown, PointerID: 1, EntityID: "a", Client: grab})
	if !s.Pointer.Captured(1) {
		t.Fatal("pointer not captured on down")
	}
	s.Pointer.Emit(drag.Event{Type: drag.PointerMove, PointerID: 1,
		Client: grab.Add(geometry.Point{X: 50, Y: 20}), Movement: geometry.Point{X: 50, Y: 20}})
	s.Pointer.Emit(drag.Event{Type: drag.PointerUp, PointerID: 1})

	got, _ := s.Board.Position("a")
	if want := start.Add(geometry.Point{X: 50, Y: 20}); got != want {
		t.Errorf("position after drag = %v, want %v", got, want)
	}
}

func TestSessionClose(t *testing.T) {
	s := newSession(t)
	start, _ := s.Board.Position("a")
	s.Close()
	s.Close() // idempotent

	select {
	case <-s.Done():
	default:
		t.Error("Done() not closed after Close")
	}

	s.Pointer.Emit(drag.Event{Type: drag.PointerDown, PointerID: 1, EntityID: "a", Client: start})
	s.Pointer.Emit(drag.Event{Type: drag.PointerMove, PointerID: 1,
		Client: start.Add(geometry.Point{X: 100}), Movement: geometry.Point{X: 100}})

	if got, _ := s.Board.Position("a"); got != start {
		t.Errorf("closed session moved a card to %v", got)
	}
}

func TestStore(t *testing.T) {
	st := NewStore(time.Hour)
	s := newSession(t)
	st.Add(s)

	got, err := st.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if time.Until(s.ExpiresAt()) < 59*time.Minute {
		t.Errorf("ExpiresAt() = %v, want about an hour from now", s.ExpiresAt())
	}

	if _, err := st.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	var evicted []string
	st.OnEvict(func(s *Session) { evicted = append(evicted, s.ID) })
	if !st.Delete(s.ID) {
		t.Error("Delete() = false for existing session")
	}
	if st.Delete(s.ID) {
		t.Error("Delete() = true for removed session")
	}
	if len(evicted) != 1 || evicted[0] != s.ID {
		t.Errorf("evicted = %v", evicted)
	}
	if st.Len() != 0 {
		t.Errorf("Len() = %d, want 0", st.Len())
	}
}

func TestStoreExpiration(t *testing.T) {
	st := NewStore(time.Millisecond)
	expired := newSession(t)
	st.Add(expired)

	time.Sleep(5 * time.Millisecond)

	if _, err := st.Get(expired.ID); !errors.Is(err, ErrExpired) {
		t.Errorf("Get() error = %v, want ErrExpired", err)
	}
	if st.Len() != 0 {
		t.Error("expired session should be removed on Get")
	}
}

func TestStoreCleanup(t *testing.T) {
	st := NewStore(time.Millisecond)
	for range 3 {
		st.Add(newSession(t))
	}
	time.Sleep(5 * time.Millisecond)

	if n := st.Cleanup(context.Background()); n != 3 {
		t.Errorf("Cleanup() = %d, want 3", n)
	}
	if st.Len() != 0 {
		t.Errorf("Len() = %d after cleanup", st.Len())
	}
}

func TestStoreEach(t *testing.T) {
	st := NewStore(time.Hour)
	ids := map[string]bool{}
	for range 3 {
		s := newSession(t)
		ids[s.ID] = true
		st.Add(s)
	}

	seen := map[string]bool{}
	st.Each(func(s *Session) { seen[s.ID] = true })
	if len(seen) != len(ids) {
		t.Errorf("Each() visited %d sessions, want %d", len(seen), len(ids))
	}
	for id := range ids {
		if !seen[id] {
			t.Errorf("Each() skipped %s", id)
		}
	}
}

func TestStoreNoTTL(t *testing.T) {
	st := NewStore(0)
	s := newSession(t)
	st.Add(s)
	if n := st.Cleanup(context.Background()); n != 0 {
		t.Errorf("Cleanup() = %d, want 0 without TTL", n)
	}
	st.Close()
	if st.Len() != 0 {
		t.Errorf("Len() = %d after Close", st.Len())
	}
}

func TestJanitor(t *testing.T) {
	st := NewStore(time.Millisecond)
	st.Add(newSession(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.Janitor(ctx, 2*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for st.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if st.Len() != 0 {
		t.Error("janitor did not remove the expired session")
	}
}
