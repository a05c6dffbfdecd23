// Package memarena implements a bump allocator (memory arena) with typed,
// bounds-checked views.
//
// # Overview
//
// An Arena owns one contiguous buffer and a cursor. Each allocation rounds the
// cursor up to the element type's alignment and advances it past the request,
// so allocating is a few integer operations. There is no per-object free:
// Reset rewinds the cursor in O(1) and Release frees the buffer. This suits
// workloads that build many short-lived buffers per cycle:
//
//   - Per-frame scratch data in simulations and games
//   - Request-scoped buffers in servers
//   - Batches that are built, consumed and thrown away together
//
// # Basic Usage
//
//	a, err := memarena.NewArena(1<<20, memarena.WithExpandable(true))
//	if err != nil {
//		return err
//	}
//	defer a.Release()
//
//	for frame := range frames {
//		if err := a.Reset(); err != nil {
//			return err
//		}
//		points, err := memarena.Allocate[Vec2](a, frame.N)
//		if err != nil {
//			return err
//		}
//		for i, p := range points.All() {
//			p.X, p.Y = float32(i)*0.1, float32(i)*0.2
//		}
//	}
//
// Scoped and Arena.Cycle wrap the same acquire/reset/release pattern.
//
// # Views and Lifetimes
//
// Allocate returns a View: an (offset, count, generation) handle, not a
// pointer. Views survive buffer growth because they are resolved against the
// current buffer on every access. Reset and Release bump the arena's
// generation; a view created under an older generation is stale and its
// checked accessors return ErrStaleView instead of touching reused memory.
//
// Pointers from View.At and slices from View.Slice address the buffer
// directly. They are the fast path and carry no checks: they must not be used
// after the next Allocate, EnsureCapacity, Reset or Release on the arena.
//
// Element types must be pointer-free (numbers, bools, arrays and structs of
// those). Arena memory is not scanned by the garbage collector and may live
// outside the Go heap entirely (see MmapAllocator).
//
// # Growth
//
// A non-expandable arena fails a request that does not fit with
// ErrOutOfMemory and leaves the cursor untouched. An expandable arena doubles
// its capacity until the request fits (bounded by WithMaxCapacity), copies the
// bytes in use into the new buffer and frees the old one.
//
// # Thread Safety
//
// Arena is not goroutine-safe; one owner performs every call. SafeArena
// serializes access with a mutex. Budget may be shared by arenas on different
// goroutines.
//
// # Metrics and Monitoring
//
//	m := a.Metrics()
//	fmt.Printf("Utilization: %.2f%%\n", m.Utilization*100)
//	fmt.Printf("Grows: %d, peak: %d bytes\n", m.Grows, m.PeakInUse)
//
// WithObserver streams the same events to a MetricsObserver; package
// promarena exports them to Prometheus.
package memarena
