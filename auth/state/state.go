// Package state holds the in-memory session state projection read by the UI.
// It is a single-writer container: only the auth flow and session restoration
// mutate it, everyone else reads snapshots or subscribes.
package state

import (
	"sync"

	"github.com/recipevault/go-client-auth/users"
)

// Snapshot is one observed value of the projection.
// Invariant: IsAuthenticated == (User != nil), enforced by the mutators.
type Snapshot struct {
	User            *users.Profile
	IsAuthenticated bool
	IsLoading       bool
	Err             string
}

// Store is the observable projection container.
type Store struct {
	lock   sync.RWMutex
	snap   Snapshot
	subs   map[int]chan Snapshot
	nextID int
}

// NewStore creates an unauthenticated, idle projection.
func NewStore() *Store {
	return &Store{subs: make(map[int]chan Snapshot)}
}

// Snapshot returns the current projection value.
func (s *Store) Snapshot() Snapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.copySnapshot()
}

// Subscribe returns a channel receiving every projection change and a cancel
// function. The channel is buffered and delivery is latest-wins: a slow
// subscriber sees the most recent value, never a stalled writer.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.lock.Lock()
	defer s.lock.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Snapshot, 1)
	s.subs[id] = ch

	cancel := func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// SetAuthenticated projects a signed-in user and clears any error.
func (s *Store) SetAuthenticated(profile *users.Profile) {
	s.lock.Lock()
	defer s.lock.Unlock()

	copied := *profile
	s.snap.User = &copied
	s.snap.IsAuthenticated = true
	s.snap.Err = ""
	s.notify()
}

// SetUnauthenticated projects a signed-out state. Any recorded error is kept.
func (s *Store) SetUnauthenticated() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.snap.User = nil
	s.snap.IsAuthenticated = false
	s.notify()
}

// SetLoading marks the subsystem busy or idle.
func (s *Store) SetLoading(loading bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.snap.IsLoading = loading
	s.notify()
}

// SetError records a user-visible error message.
func (s *Store) SetError(msg string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.snap.Err = msg
	s.notify()
}

// ClearError removes any recorded error.
func (s *Store) ClearError() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.snap.Err = ""
	s.notify()
}

// notify delivers the current snapshot to every subscriber. Caller holds the
// write lock.
func (s *Store) notify() {
	snap := s.copySnapshot()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// Replace the stale buffered value with the latest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (s *Store) copySnapshot() Snapshot {
	snap := s.snap
	if s.snap.User != nil {
		copied := *s.snap.User
		snap.User = &copied
	}
	return snap
}
