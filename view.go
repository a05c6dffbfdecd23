package memarena

import (
	"fmt"
	"iter"
	"unsafe"
)

// View is a typed, non-owning window onto count elements of an arena's buffer.
//
// A view stores a byte offset rather than an address, so it survives arena
// growth. It becomes stale when its arena is Reset or Released; every checked
// accessor then fails with ErrStaleView. Pointers and slices obtained from a
// view (At, Slice, iteration) address the current buffer directly and are only
// valid until the next Allocate, EnsureCapacity, Reset or Release on the arena.
//
// T must be pointer-free: arena memory is not scanned by the garbage
// collector, so Allocate rejects element types that hold Go pointers.
//
// The zero View is stale.
type View[T any] struct {
	arena *Arena
	off   int
	n     int
	gen   uint64
}

// Len returns the number of elements in the view.
func (v View[T]) Len() int { return v.n }

// Offset returns the byte offset of the first element within the arena buffer.
func (v View[T]) Offset() int { return v.off }

// Valid reports whether the arena has not been reset or released since the
// view was created.
func (v View[T]) Valid() bool {
	return v.arena != nil && v.gen == v.arena.generation
}

func (v View[T]) check(op string) error {
	if v.arena == nil {
		return opError(op, ErrStaleView, "zero view", nil)
	}
	if v.gen != v.arena.generation {
		return opError(op, ErrStaleView, fmt.Sprintf("view generation %d, arena generation %d", v.gen, v.arena.generation), nil)
	}
	return nil
}

// elem returns the address of element i without any checks.
func (v View[T]) elem(i int) *T {
	var zero T
	size := unsafe.Sizeof(zero)
	if size == 0 {
		return new(T)
	}
	base := unsafe.Pointer(unsafe.SliceData(v.arena.buf))
	return (*T)(unsafe.Add(base, uintptr(v.off)+uintptr(i)*size))
}

// At returns a pointer to element i.
func (v View[T]) At(i int) (*T, error) {
	if err := v.check("index"); err != nil {
		return nil, err
	}
	if uint(i) >= uint(v.n) {
		return nil, opError("index", ErrIndexOutOfRange, fmt.Sprintf("index %d, length %d", i, v.n), nil)
	}
	return v.elem(i), nil
}

// Get returns a copy of element i.
func (v View[T]) Get(i int) (T, error) {
	p, err := v.At(i)
	if err != nil {
		var zero T
		return zero, err
	}
	return *p, nil
}

// Set stores x at element i.
func (v View[T]) Set(i int, x T) error {
	p, err := v.At(i)
	if err != nil {
		return err
	}
	*p = x
	return nil
}

// Fill stores x in every element.
func (v View[T]) Fill(x T) error {
	s, err := v.Slice()
	if err != nil {
		return err
	}
	for i := range s {
		s[i] = x
	}
	return nil
}

// Slice returns a Go slice aliasing the view's elements. Staleness is checked
// once, here; indexing the slice afterwards is plain Go slice access. The slice
// must not be used after the next Allocate, EnsureCapacity, Reset or Release.
func (v View[T]) Slice() ([]T, error) {
	if err := v.check("slice"); err != nil {
		return nil, err
	}
	if v.n == 0 {
		return nil, nil
	}
	return unsafe.Slice(v.elem(0), v.n), nil
}

// ToSlice copies the elements into a newly allocated slice that does not
// depend on the arena.
func (v View[T]) ToSlice() ([]T, error) {
	s, err := v.Slice()
	if err != nil {
		return nil, err
	}
	out := make([]T, len(s))
	copy(out, s)
	return out, nil
}

// AppendTo appends copies of the elements to dst.
func (v View[T]) AppendTo(dst []T) ([]T, error) {
	s, err := v.Slice()
	if err != nil {
		return dst, err
	}
	return append(dst, s...), nil
}

// All returns an iterator over index and element pointer pairs. Iteration
// stops early if the arena is reset or released; use Iter to learn why.
func (v View[T]) All() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		for i := 0; i < v.n; i++ {
			if !v.Valid() {
				return
			}
			if !yield(i, v.elem(i)) {
				return
			}
		}
	}
}

// Values returns an iterator over copies of the elements, with the same
// stopping rule as All.
func (v View[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := 0; i < v.n; i++ {
			if !v.Valid() {
				return
			}
			if !yield(*v.elem(i)) {
				return
			}
		}
	}
}
