package mmap

import (
	"errors"
	"os"
)

var (
	// ErrInvalidSize is returned for negative mapping sizes.
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrUnaligned is returned when the requested alignment exceeds the page size.
	ErrUnaligned = errors.New("mmap: alignment exceeds page size")
	// ErrForeign is returned when Free is given an empty non-nil slice.
	ErrForeign = errors.New("mmap: slice does not start a mapping")
	// ErrUnsupported is returned on platforms without anonymous mappings.
	ErrUnsupported = errors.New("mmap: anonymous mappings not supported on this platform")
)

// PageSize returns the OS page size, which is also the alignment of every block
// returned by Anon.
func PageSize() int {
	return os.Getpagesize()
}

// Anon maps size bytes of zeroed anonymous memory aligned to at least alignment.
// A zero size returns a nil slice and no error.
func Anon(size, alignment int) ([]byte, error) {
	if size < 0 {
		return nil, ErrInvalidSize
	}
	if alignment > PageSize() {
		return nil, ErrUnaligned
	}
	if size == 0 {
		return nil, nil
	}
	return osMapAnon(size)
}

// Free unmaps a block returned by Anon. The slice must be passed exactly as Anon
// returned it. Freeing a nil slice is a no-op.
func Free(b []byte) error {
	if b == nil {
		return nil
	}
	if cap(b) == 0 {
		return ErrForeign
	}
	return osUnmap(b[:cap(b)])
}
