/*
Package store provides the thin observable layer between the chat session
and whatever renders it.

A Store holds the last published snapshot and re-emits one change
notification per update. Stores carry no business logic; the session
decides what a snapshot contains, the store only remembers and notifies.
Instances are constructed explicitly and owned by the application context —
there are no package-level stores.
*/
package store

import "sync"

// Store holds the latest snapshot of type T and notifies subscribers on
// every Set. Snapshots are passed by value, so readers never need locking.
type Store[T any] struct {
	mu        sync.Mutex
	current   T
	listeners []*Subscription[T]
}

// Subscription identifies one registered listener. Cancel it to stop
// receiving notifications.
type Subscription[T any] struct {
	store     *Store[T]
	fn        func(T)
	cancelled bool
}

// New returns a store seeded with an initial snapshot.
func New[T any](initial T) *Store[T] {
	return &Store[T]{current: initial}
}

// Current returns the last published snapshot.
func (s *Store[T]) Current() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Subscribe registers fn to run on every subsequent Set. Listeners fire
// synchronously in registration order, exactly once per notification.
func (s *Store[T]) Subscribe(fn func(T)) *Subscription[T] {
	sub := &Subscription[T]{store: s, fn: fn}
	s.mu.Lock()
	s.listeners = append(s.listeners, sub)
	s.mu.Unlock()
	return sub
}

// Cancel removes the listener. A cancelled listener is guaranteed not to
// fire for any notification published after Cancel returns.
func (sub *Subscription[T]) Cancel() {
	s := sub.store
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.cancelled = true
	for i, l := range s.listeners {
		if l == sub {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// Set publishes a new snapshot and notifies every listener registered at
// publication time. The listener list is copied before invoking callbacks
// so a listener may subscribe or cancel without deadlocking; a subscription
// made during a notification takes effect from the next Set.
func (s *Store[T]) Set(snapshot T) {
	s.mu.Lock()
	s.current = snapshot
	active := make([]*Subscription[T], len(s.listeners))
	copy(active, s.listeners)
	s.mu.Unlock()

	for _, sub := range active {
		s.mu.Lock()
		skip := sub.cancelled
		s.mu.Unlock()
		if !skip {
			sub.fn(snapshot)
		}
	}
}
