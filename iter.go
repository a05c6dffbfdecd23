package memarena

// Iterator walks a view's elements in index order.
//
//	it := v.Iter()
//	for it.Next() {
//		p := it.Value()
//		...
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
//
// Each step re-checks the view, so a Reset or Release of the arena during
// iteration ends it with ErrStaleView. Rewind restarts from the first element.
type Iterator[T any] struct {
	v   View[T]
	i   int
	err error
}

// Iter returns an iterator positioned before the first element.
func (v View[T]) Iter() *Iterator[T] {
	return &Iterator[T]{v: v, i: -1}
}

// Next advances to the next element and reports whether there is one.
func (it *Iterator[T]) Next() bool {
	if it.err != nil {
		return false
	}
	if err := it.v.check("iterate"); err != nil {
		it.err = err
		return false
	}
	if it.i+1 >= it.v.n {
		it.i = it.v.n
		return false
	}
	it.i++
	return true
}

// Value returns a pointer to the current element, or nil when the iterator is
// not positioned on one or the view went stale after the last Next.
func (it *Iterator[T]) Value() *T {
	if it.err != nil || it.i < 0 || it.i >= it.v.n || !it.v.Valid() {
		return nil
	}
	return it.v.elem(it.i)
}

// Index returns the current position: -1 before the first call to Next.
func (it *Iterator[T]) Index() int { return it.i }

// Err returns the error that ended iteration early, if any.
func (it *Iterator[T]) Err() error { return it.err }

// Rewind repositions the iterator before the first element and clears any error.
func (it *Iterator[T]) Rewind() {
	it.i = -1
	it.err = nil
}
