// Package session holds the current session value and the persisted
// key-value storage it is restored from.
package session

import (
	"sync"

	"github.com/medrex/clinic-portal/pkg/types"
)

// Listener receives a copy of the session after every change
type Listener func(types.Session)

type subscription struct {
	id uint64
	fn Listener
}

// Store holds the current session and notifies subscribers on change.
// It never touches persisted storage or the network.
type Store struct {
	mu          sync.RWMutex
	current     types.Session
	subscribers []subscription
	nextID      uint64

	// serializes notification so listeners observe changes in order
	notifyMu sync.Mutex
}

// NewStore creates a store holding the anonymous session
func NewStore() *Store {
	return &Store{current: types.AnonymousSession()}
}

// Session returns a copy of the current session
func (s *Store) Session() types.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Set replaces the current session and notifies subscribers in
// subscription order. Listeners run outside the state lock and may read
// the store, but must not call Set or Clear.
func (s *Store) Set(sess types.Session) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if sess.Permissions == nil {
		sess.Permissions = types.PermissionSet{}
	}
	s.current = sess.Clone()
	listeners := make([]Listener, len(s.subscribers))
	for i, sub := range s.subscribers {
		listeners[i] = sub.fn
	}
	snapshot := s.current
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot.Clone())
	}
}

// Clear resets the store to the anonymous session
func (s *Store) Clear() {
	s.Set(types.AnonymousSession())
}

// Subscribe registers fn for change notifications. The returned function
// removes the subscription and is safe to call more than once.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subscribers = append(s.subscribers, subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subscribers {
				if sub.id == id {
					s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}
