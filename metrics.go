package memarena

import "time"

// SizeInUse returns the cursor: bytes handed out since the last Reset,
// alignment padding included.
func (a *Arena) SizeInUse() int {
	return a.cursor
}

// Capacity returns the size of the backing buffer in bytes.
func (a *Arena) Capacity() int {
	return len(a.buf)
}

// Remaining returns the bytes left after the cursor, ignoring alignment.
func (a *Arena) Remaining() int {
	return len(a.buf) - a.cursor
}

// Utilization returns the ratio of bytes in use to capacity (0.0 to 1.0).
// Returns 0.0 if the arena has no capacity.
func (a *Arena) Utilization() float64 {
	if len(a.buf) == 0 {
		return 0
	}
	return float64(a.cursor) / float64(len(a.buf))
}

// Alignment returns the base alignment of the backing buffer.
func (a *Arena) Alignment() int { return a.alignment }

// Expandable reports whether the arena grows on overflow.
func (a *Arena) Expandable() bool { return a.expandable }

// Generation returns the arena's generation, bumped by every Reset and Release.
func (a *Arena) Generation() uint64 { return a.generation }

// Released reports whether Release has been called.
func (a *Arena) Released() bool { return a.released }

// Metrics returns a snapshot of arena statistics.
func (a *Arena) Metrics() ArenaMetrics {
	return ArenaMetrics{
		SizeInUse:         a.SizeInUse(),
		Capacity:          a.Capacity(),
		Utilization:       a.Utilization(),
		PeakInUse:         a.stats.peak,
		Generation:        a.generation,
		Allocations:       a.stats.allocs,
		FailedAllocations: a.stats.failed,
		Grows:             a.stats.grows,
		Resets:            a.stats.resets,
	}
}

// ArenaMetrics contains statistical information about an arena.
type ArenaMetrics struct {
	SizeInUse         int     // Bytes currently allocated
	Capacity          int     // Buffer size in bytes
	Utilization       float64 // Ratio of used to total capacity (0.0-1.0)
	PeakInUse         int     // Highest cursor seen across cycles
	Generation        uint64  // Current generation
	Allocations       uint64  // Successful allocations
	FailedAllocations uint64  // Rejected allocations
	Grows             uint64  // Buffer replacements
	Resets            uint64  // Reset calls
}

// MetricsObserver receives arena events. Implement it to feed a monitoring
// system; see package promarena for a Prometheus implementation.
//
// Callbacks run synchronously on the allocating goroutine and must be cheap.
type MetricsObserver interface {
	// OnAllocate is called after each allocation attempt. bytes is the
	// requested size, padding the alignment bytes skipped, err nil on success.
	OnAllocate(bytes, padding int, err error)

	// OnGrow is called after the buffer was replaced by a larger one.
	OnGrow(from, to, copied int, elapsed time.Duration)

	// OnReset is called after each Reset with the bytes that were in use.
	OnReset(inUse int)

	// OnRelease is called once, when the buffer is freed.
	OnRelease(capacity int)
}

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
type NoopMetricsObserver struct{}

func (NoopMetricsObserver) OnAllocate(int, int, error)          {}
func (NoopMetricsObserver) OnGrow(int, int, int, time.Duration) {}
func (NoopMetricsObserver) OnReset(int)                         {}
func (NoopMetricsObserver) OnRelease(int)                       {}
