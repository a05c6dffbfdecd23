package memarena

import (
	"fmt"
	"math"

	"github.com/pavanmanishd/memarena/internal/mem"
	"github.com/pavanmanishd/memarena/internal/mmap"
)

// Allocator is the raw memory source behind an arena.
//
// Allocate returns a zeroed block of exactly size bytes whose first byte is
// aligned to alignment (a power of two). Free receives the block exactly as
// Allocate returned it; the arena never frees a block twice.
type Allocator interface {
	Allocate(size, alignment int) ([]byte, error)
	Free(b []byte) error
}

// HeapAllocator returns an Allocator backed by the Go heap. Blocks are reclaimed
// by the garbage collector once unreferenced, so Free is a no-op.
func HeapAllocator() Allocator { return heapAllocator{} }

// MmapAllocator returns an Allocator backed by anonymous memory mappings outside
// the Go heap. Free returns the pages to the OS immediately. Alignment is
// limited to the OS page size.
func MmapAllocator() Allocator { return mmapAllocator{} }

type heapAllocator struct{}

func (heapAllocator) Allocate(size, alignment int) (b []byte, err error) {
	if size > math.MaxInt-alignment {
		return nil, fmt.Errorf("heap allocation of %d bytes overflows", size)
	}
	// make panics on sizes the runtime cannot satisfy.
	defer func() {
		if r := recover(); r != nil {
			b, err = nil, fmt.Errorf("heap allocation of %d bytes: %v", size, r)
		}
	}()
	return mem.AllocAligned(size, alignment), nil
}

func (heapAllocator) Free([]byte) error { return nil }

type mmapAllocator struct{}

func (mmapAllocator) Allocate(size, alignment int) ([]byte, error) {
	return mmap.Anon(size, alignment)
}

func (mmapAllocator) Free(b []byte) error {
	return mmap.Free(b)
}
