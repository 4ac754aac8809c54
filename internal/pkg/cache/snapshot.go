// Package cache provides a small snapshot cache: an immutable (value,
// fetchedAt) pair replaced atomically on refresh. Readers never observe a
// partially updated value and staleness is checked against an injected clock,
// so tests control time.
package cache

import (
	"sync"
	"time"
)

// Snapshot holds the latest value of type T together with its fetch time.
// The zero value is an empty, never-populated snapshot.
type Snapshot[T any] struct {
	mu        sync.RWMutex
	value     T
	fetchedAt time.Time
	populated bool

	// Now defaults to time.Now; replaced in tests.
	Now func() time.Time
}

func New[T any]() *Snapshot[T] {
	return &Snapshot[T]{Now: time.Now}
}

// Replace swaps in a new value stamped with the current clock. The previous
// pair is discarded whole; it is never mutated in place.
func (s *Snapshot[T]) Replace(v T) {
	now := s.clock()()
	s.mu.Lock()
	s.value = v
	s.fetchedAt = now
	s.populated = true
	s.mu.Unlock()
}

// Get returns the current value, its fetch time, and whether the snapshot has
// ever been populated.
func (s *Snapshot[T]) Get() (T, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.fetchedAt, s.populated
}

// Stale reports whether the snapshot is unpopulated or older than maxAge.
func (s *Snapshot[T]) Stale(maxAge time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.populated {
		return true
	}
	return s.clock()().Sub(s.fetchedAt) > maxAge
}

func (s *Snapshot[T]) clock() func() time.Time {
	if s.Now != nil {
		return s.Now
	}
	return time.Now
}
