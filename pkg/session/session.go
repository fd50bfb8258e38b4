// Package session keeps live boards for the HTTP API.
//
// A session bundles one [board.Board] with the pointer plumbing that drives
// its drag controller: a [drag.Feed] that API pointer events are emitted
// into, and a [drag.Mount] describing where the client has the board
// element mounted.
//
// Sessions live only in memory. Board positions are view state and are
// never persisted; a session that expires or a server that restarts starts
// from a fresh initial layout.
//
// # Expiration
//
// Every access extends a session by its TTL. [Store.Cleanup] removes
// expired sessions, and [Store.Janitor] runs it periodically:
//
//	store := session.NewStore(session.DefaultTTL)
//	go store.Janitor(ctx, time.Minute)
//
//	sess := session.New(board.New(), logger)
//	store.Add(sess)
package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/loreboard/loreboard/pkg/board"
	"github.com/loreboard/loreboard/pkg/drag"
	"github.com/loreboard/loreboard/pkg/geometry"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExpired is returned when a session has exceeded its TTL.
	ErrExpired = errors.New("expired")
)

// DefaultTTL is the default idle time before a session expires.
const DefaultTTL = 24 * time.Hour

// Session is one live board with its drag plumbing.
type Session struct {
	ID        string
	Board     *board.Board
	Drag      *drag.Controller
	Pointer   *drag.Feed
	Surface   *drag.Mount
	CreatedAt time.Time

	mu        sync.Mutex
	expiresAt time.Time
	detach    func()
	done      chan struct{}
}

// New creates a session for b with a fresh ID. The board surface starts
// mounted at the client origin.
func New(b *board.Board, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	id := uuid.NewString()
	feed := drag.NewFeed()
	mount := drag.Mounted(geometry.Point{})
	ctrl := drag.New(b, mount, logger.With("session", id))

	s := &Session{
		ID:        id,
		Board:     b,
		Drag:      ctrl,
		Pointer:   feed,
		Surface:   mount,
		CreatedAt: time.Now(),
		done:      make(chan struct{}),
	}
	s.detach = ctrl.Attach(feed)
	return s
}

// IsExpired reports whether the session has expired.
func (s *Session) IsExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.expiresAt.IsZero() && time.Now().After(s.expiresAt)
}

// ExpiresAt returns when the session expires unless it is used again.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

func (s *Session) touch(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ttl > 0 {
		s.expiresAt = time.Now().Add(ttl)
	}
}

// Close detaches the drag controller and unmounts the surface. Any drag in
// progress ends without further writes.
func (s *Session) Close() {
	s.mu.Lock()
	detach := s.detach
	s.detach = nil
	s.mu.Unlock()

	if detach != nil {
		s.Drag.Up()
		s.Surface.Unmount()
		detach()
		close(s.done)
	}
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Store holds sessions in memory.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	onEvict  func(*Session)
}

// NewStore creates an empty store. A ttl of zero disables expiration.
func NewStore(ttl time.Duration) *Store {
	return &Store{sessions: map[string]*Session{}, ttl: ttl}
}

// OnEvict registers fn to run after a session is removed by Delete or
// Cleanup.
func (st *Store) OnEvict(fn func(*Session)) {
	st.mu.Lock()
	st.onEvict = fn
	st.mu.Unlock()
}

// Add stores s and starts its TTL.
func (st *Store) Add(s *Session) {
	s.touch(st.ttl)
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
}

// Get returns the session with id and extends its TTL.
// Returns ErrNotFound for unknown ids and ErrExpired for expired sessions.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if s.IsExpired() {
		st.Delete(id)
		return nil, ErrExpired
	}
	s.touch(st.ttl)
	return s, nil
}

// Delete removes and closes the session with id. It reports whether the
// session existed.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	onEvict := st.onEvict
	st.mu.Unlock()

	if ok {
		s.Close()
		if onEvict != nil {
			onEvict(s)
		}
	}
	return ok
}

// Each calls fn for every stored session that has not expired.
func (st *Store) Each(fn func(*Session)) {
	st.mu.RLock()
	sessions := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		sessions = append(sessions, s)
	}
	st.mu.RUnlock()

	for _, s := range sessions {
		if !s.IsExpired() {
			fn(s)
		}
	}
}

// Len returns the number of stored sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Cleanup removes expired sessions and returns how many were removed.
func (st *Store) Cleanup(ctx context.Context) int {
	st.mu.RLock()
	var expired []string
	for id, s := range st.sessions {
		if s.IsExpired() {
			expired = append(expired, id)
		}
	}
	st.mu.RUnlock()

	n := 0
	for _, id := range expired {
		if ctx.Err() != nil {
			break
		}
		if st.Delete(id) {
			n++
		}
	}
	return n
}

// Janitor runs Cleanup every interval until ctx is cancelled.
func (st *Store) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Cleanup(ctx)
		}
	}
}

// Close removes every session.
func (st *Store) Close() {
	st.mu.Lock()
	ids := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		ids = append(ids, id)
	}
	st.mu.Unlock()
	for _, id := range ids {
		st.Delete(id)
	}
}
