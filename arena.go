package memarena

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/pavanmanishd/memarena/internal/mmap"
)

// Arena is a bump allocator over a single contiguous buffer.
//
// Allocations advance a cursor; Reset rewinds it in O(1) and Release frees the
// buffer. An Arena is not goroutine-safe. Use SafeArena when more than one
// goroutine must allocate from the same arena.
type Arena struct {
	buf        []byte
	cursor     int
	alignment  int
	expandable bool
	maxCap     int

	allocator Allocator
	budget    *Budget
	logger    *slog.Logger
	observer  MetricsObserver

	// generation is bumped by Reset and Release. Views carry the value they
	// were created under.
	generation uint64
	released   bool

	// err is set when the raw allocator fails during growth.
	err error

	// elemType is the last element type that passed pointerFree.
	elemType reflect.Type

	stats stats
}

type stats struct {
	allocs uint64
	failed uint64
	grows  uint64
	resets uint64
	peak   int
}

// NewArena creates an Arena with a buffer of capacity bytes.
//
// By default the buffer comes from HeapAllocator, is aligned to
// DefaultAlignment and does not grow.
func NewArena(capacity int, opts ...Option) (*Arena, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if capacity < 0 {
		return nil, opError("new", ErrInvalidArgument, fmt.Sprintf("negative capacity %d", capacity), nil)
	}
	if !isPowerOfTwo(o.alignment) {
		return nil, opError("new", ErrInvalidArgument, fmt.Sprintf("alignment %d is not a power of two", o.alignment), nil)
	}
	if capacity > o.maxCapacity {
		return nil, opError("new", ErrInvalidArgument, fmt.Sprintf("capacity %d exceeds maximum %d", capacity, o.maxCapacity), nil)
	}

	a := &Arena{
		alignment:  o.alignment,
		expandable: o.expandable,
		maxCap:     o.maxCapacity,
		allocator:  o.allocator,
		budget:     o.budget,
		logger:     o.logger,
		observer:   o.observer,
		generation: 1,
	}

	buf, err := a.obtain(capacity)
	if err != nil {
		kind := ErrAllocation
		if errors.Is(err, mmap.ErrUnaligned) {
			kind = ErrInvalidArgument
		}
		return nil, opError("new", kind, fmt.Sprintf("%d bytes at alignment %d", capacity, a.alignment), err)
	}
	a.buf = buf

	a.logger.Debug("arena created",
		"capacity", capacity,
		"alignment", a.alignment,
		"expandable", a.expandable,
	)
	return a, nil
}

// alloc reserves count elements of elemSize bytes at the given alignment and
// returns their byte offset. The cursor only moves on success. Callers check
// usable first.
func (a *Arena) alloc(op string, count, elemSize, align int) (int, error) {
	if count < 0 {
		return 0, a.fail(op, ErrInvalidArgument, fmt.Sprintf("negative count %d", count), 0)
	}
	size, ok := mulSize(count, elemSize)
	if !ok {
		return 0, a.fail(op, ErrInvalidArgument, fmt.Sprintf("%d elements of %d bytes overflow", count, elemSize), 0)
	}

	aligned := alignUp(uint(a.cursor), uint(align))
	need := aligned + uint(size)

	if need > uint(len(a.buf)) {
		if !a.expandable {
			return 0, a.fail(op, ErrOutOfMemory, fmt.Sprintf("requested %d bytes at offset %d, capacity %d", size, aligned, len(a.buf)), size)
		}
		if err := a.grow(op, need); err != nil {
			a.stats.failed++
			a.observer.OnAllocate(size, 0, err)
			return 0, err
		}
	}

	padding := int(aligned) - a.cursor
	a.cursor = int(need)
	a.stats.allocs++
	if a.cursor > a.stats.peak {
		a.stats.peak = a.cursor
	}
	a.observer.OnAllocate(size, padding, nil)
	return int(aligned), nil
}

func (a *Arena) fail(op string, kind error, detail string, size int) error {
	err := opError(op, kind, detail, nil)
	a.stats.failed++
	a.observer.OnAllocate(size, 0, err)
	return err
}

// grow doubles the buffer until need bytes fit, then moves the bytes in use
// into the new buffer and frees the old one.
func (a *Arena) grow(op string, need uint) error {
	limit := uint(a.maxCap)
	if need > limit {
		return opError(op, ErrAllocation, fmt.Sprintf("%d bytes exceeds maximum capacity %d", need, limit), nil)
	}

	oldCap := len(a.buf)
	newCap := uint(max(oldCap, a.alignment, 1))
	for newCap < need {
		newCap = min(newCap*2, limit)
	}

	start := time.Now()
	buf, err := a.obtain(int(newCap))
	if err != nil {
		e := opError(op, ErrAllocation, fmt.Sprintf("growing %d to %d bytes", oldCap, newCap), err)
		if !errors.Is(err, ErrBudgetExceeded) {
			a.err = e
		}
		a.logger.Warn("arena growth failed",
			"from", oldCap,
			"to", newCap,
			"error", err,
		)
		return e
	}

	copied := copy(buf, a.buf[:a.cursor])
	if err := a.allocator.Free(a.buf); err != nil {
		a.logger.Warn("freeing old arena buffer failed", "capacity", oldCap, "error", err)
	}
	a.budget.release(oldCap)
	a.buf = buf
	a.stats.grows++

	elapsed := time.Since(start)
	a.observer.OnGrow(oldCap, int(newCap), copied, elapsed)
	a.logger.Debug("arena grew",
		"from", oldCap,
		"to", newCap,
		"copied", copied,
		"elapsed", elapsed,
	)
	return nil
}

// obtain reserves n bytes against the budget and takes them from the allocator.
func (a *Arena) obtain(n int) ([]byte, error) {
	if err := a.budget.reserve(n); err != nil {
		return nil, err
	}
	buf, err := a.allocator.Allocate(n, a.alignment)
	if err != nil {
		a.budget.release(n)
		return nil, err
	}
	if len(buf) != n {
		_ = a.allocator.Free(buf)
		a.budget.release(n)
		return nil, fmt.Errorf("allocator returned %d bytes, want %d", len(buf), n)
	}
	return buf, nil
}

// usable reports why the arena can no longer serve op, if it cannot.
func (a *Arena) usable(op string) error {
	if a.released {
		return opError(op, ErrUseAfterRelease, "", nil)
	}
	return a.err
}

// EnsureCapacity makes sure n more bytes at the base alignment fit without
// growing. Expandable arenas grow now; others return ErrOutOfMemory.
//
// Growing ahead of time keeps pointers and slices obtained from views valid
// across the allocations that follow.
func (a *Arena) EnsureCapacity(n int) error {
	const op = "ensure capacity"
	if err := a.usable(op); err != nil {
		return err
	}
	if n < 0 {
		return opError(op, ErrInvalidArgument, fmt.Sprintf("negative size %d", n), nil)
	}

	need := alignUp(uint(a.cursor), uint(a.alignment)) + uint(n)
	if need <= uint(len(a.buf)) {
		return nil
	}
	if !a.expandable {
		return opError(op, ErrOutOfMemory, fmt.Sprintf("%d bytes requested, %d remaining", n, a.Remaining()), nil)
	}
	return a.grow(op, need)
}

// Reset rewinds the cursor to zero and invalidates every view handed out so
// far. The buffer keeps its capacity and its contents; the bytes are only
// overwritten by later allocations.
func (a *Arena) Reset() error {
	if err := a.usable("reset"); err != nil {
		return err
	}

	inUse := a.cursor
	a.cursor = 0
	a.generation++
	a.stats.resets++

	a.observer.OnReset(inUse)
	a.logger.Debug("arena reset", "in_use", inUse, "generation", a.generation)
	return nil
}

// Release frees the buffer and makes the arena unusable. Every later operation
// fails with ErrUseAfterRelease and every view becomes stale. Release is
// idempotent.
func (a *Arena) Release() error {
	if a.released {
		return nil
	}

	capacity := len(a.buf)
	err := a.allocator.Free(a.buf)
	a.budget.release(capacity)

	a.buf = nil
	a.cursor = 0
	a.released = true
	a.generation++

	a.observer.OnRelease(capacity)
	a.logger.Debug("arena released", "capacity", capacity)

	if err != nil {
		return opError("release", ErrAllocation, "freeing buffer", err)
	}
	return nil
}

// Close releases the arena. It implements io.Closer.
func (a *Arena) Close() error {
	return a.Release()
}

// Cycle resets the arena and runs fn against it: one unit of per-frame or
// per-request work.
func (a *Arena) Cycle(fn func(*Arena) error) error {
	if err := a.Reset(); err != nil {
		return err
	}
	return fn(a)
}

// Scoped creates an arena, passes it to fn and releases it on every exit path,
// panics included. A release failure is joined with fn's error.
func Scoped(capacity int, fn func(*Arena) error, opts ...Option) (err error) {
	a, err := NewArena(capacity, opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Release())
	}()
	return fn(a)
}

// String returns a one-line summary of the arena's state.
func (a *Arena) String() string {
	return fmt.Sprintf("Arena{capacity: %d, in_use: %d, generation: %d, expandable: %t, released: %t}",
		len(a.buf), a.cursor, a.generation, a.expandable, a.released)
}
