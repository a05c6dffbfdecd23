// Package mem provides aligned allocation of GC-managed byte blocks.
package mem

import (
	"unsafe"
)

// AllocAligned allocates a zeroed byte slice of the given size whose first byte
// sits at an address divisible by alignment. alignment must be a power of two.
//
// The block is over-allocated by alignment-1 bytes and re-sliced; the returned
// slice keeps the whole backing array alive. Its capacity equals its length.
func AllocAligned(size, alignment int) []byte {
	if size == 0 {
		return nil
	}
	if alignment <= 1 {
		return make([]byte, size)
	}

	buf := make([]byte, size+alignment-1)

	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	mask := uintptr(alignment - 1)
	offset := int((uintptr(alignment) - (addr & mask)) & mask)

	return buf[offset : offset+size : offset+size]
}

// IsAligned reports whether b starts at an address divisible by alignment.
// An empty slice is always aligned.
func IsAligned(b []byte, alignment int) bool {
	if len(b) == 0 || alignment <= 1 {
		return true
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	return addr&uintptr(alignment-1) == 0
}
