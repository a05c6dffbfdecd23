package memarena

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Budget caps the total bytes held by the arenas that share it.
//
// An arena reserves its buffer size at construction and the new buffer size
// before every growth step; the old buffer's share is returned after the copy
// and the rest on Release. Budget is safe for concurrent use. A nil *Budget is
// unlimited.
type Budget struct {
	limit int64
	sem   *semaphore.Weighted
	used  atomic.Int64
}

// NewBudget creates a budget of limitBytes. A non-positive limit only tracks usage.
func NewBudget(limitBytes int64) *Budget {
	b := &Budget{limit: limitBytes}
	if limitBytes > 0 {
		b.sem = semaphore.NewWeighted(limitBytes)
	}
	return b
}

// InUse returns the bytes currently reserved.
func (b *Budget) InUse() int64 {
	if b == nil {
		return 0
	}
	return b.used.Load()
}

// Limit returns the configured limit in bytes (0 if unlimited).
func (b *Budget) Limit() int64 {
	if b == nil || b.limit < 0 {
		return 0
	}
	return b.limit
}

// reserve is non-blocking: the arena never waits for memory.
func (b *Budget) reserve(n int) error {
	if b == nil || n <= 0 {
		return nil
	}
	if b.sem != nil && !b.sem.TryAcquire(int64(n)) {
		return fmt.Errorf("%w: %d bytes requested, %d of %d in use", ErrBudgetExceeded, n, b.used.Load(), b.limit)
	}
	b.used.Add(int64(n))
	return nil
}

func (b *Budget) release(n int) {
	if b == nil || n <= 0 {
		return
	}
	if b.sem != nil {
		b.sem.Release(int64(n))
	}
	b.used.Add(-int64(n))
}
