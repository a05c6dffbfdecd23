package memarena

import (
	"sync"
)

// SafeArena is a mutex-protected wrapper around Arena for concurrent access.
// All operations are serialized, at the cost of a lock per call.
//
// The mutex guards the arena, not the memory behind views: reading or writing
// through a view while another goroutine may allocate (and so grow the buffer)
// must happen inside Do.
type SafeArena struct {
	mu sync.Mutex
	a  *Arena
}

// NewSafeArena creates a new thread-safe arena. See NewArena.
func NewSafeArena(capacity int, opts ...Option) (*SafeArena, error) {
	a, err := NewArena(capacity, opts...)
	if err != nil {
		return nil, err
	}
	return &SafeArena{a: a}, nil
}

// SafeAllocate thread-safely reserves count elements of T. See Allocate.
func SafeAllocate[T any](s *SafeArena, count int) (View[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Allocate[T](s.a, count)
}

// SafeAllocateZeroed thread-safely reserves count zeroed elements of T.
func SafeAllocateZeroed[T any](s *SafeArena, count int) (View[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AllocateZeroed[T](s.a, count)
}

// Do runs fn with exclusive access to the underlying arena.
func (s *SafeArena) Do(fn func(*Arena) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.a)
}

// EnsureCapacity thread-safely ensures n more bytes fit without growth.
func (s *SafeArena) EnsureCapacity(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.EnsureCapacity(n)
}

// Reset thread-safely resets the arena for reuse.
func (s *SafeArena) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Reset()
}

// Release thread-safely frees the buffer and makes the arena unusable.
func (s *SafeArena) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Release()
}

// Close releases the arena. It implements io.Closer.
func (s *SafeArena) Close() error {
	return s.Release()
}

// SizeInUse thread-safely returns the bytes currently allocated.
func (s *SafeArena) SizeInUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.SizeInUse()
}

// Capacity thread-safely returns the buffer size.
func (s *SafeArena) Capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Capacity()
}

// Utilization thread-safely returns the ratio of bytes in use to capacity.
func (s *SafeArena) Utilization() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Utilization()
}

// Metrics thread-safely returns a snapshot of arena statistics.
func (s *SafeArena) Metrics() ArenaMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Metrics()
}
