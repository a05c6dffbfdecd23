package memarena

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vec2 is 8 bytes with 4-byte alignment.
type vec2 struct{ X, Y float32 }

// countingAllocator wraps HeapAllocator, failing every Allocate call after
// the first failAfter.
type countingAllocator struct {
	failAfter int
	allocs    int
	frees     int
}

var errNoMemory = errors.New("no memory")

func (c *countingAllocator) Allocate(size, alignment int) ([]byte, error) {
	c.allocs++
	if c.allocs > c.failAfter {
		return nil, errNoMemory
	}
	return HeapAllocator().Allocate(size, alignment)
}

func (c *countingAllocator) Free(b []byte) error {
	c.frees++
	return nil
}

func newTestArena(t *testing.T, capacity int, opts ...Option) *Arena {
	t.Helper()
	a, err := NewArena(capacity, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Release() })
	return a
}

func TestNewArena(t *testing.T) {
	tests := []struct {
		name      string
		capacity  int
		opts      []Option
		wantErr   error
		alignment int
	}{
		{"default alignment", 1024, nil, nil, DefaultAlignment},
		{"zero capacity", 0, nil, nil, DefaultAlignment},
		{"custom alignment", 256, []Option{WithAlignment(64)}, nil, 64},
		{"negative capacity", -1, nil, ErrInvalidArgument, 0},
		{"alignment not power of two", 64, []Option{WithAlignment(24)}, ErrInvalidArgument, 0},
		{"zero alignment", 64, []Option{WithAlignment(0)}, ErrInvalidArgument, 0},
		{"capacity above max", 4096, []Option{WithMaxCapacity(1024)}, ErrInvalidArgument, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewArena(tt.capacity, tt.opts...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, a)
				return
			}
			require.NoError(t, err)
			defer a.Release()

			assert.Equal(t, tt.capacity, a.Capacity())
			assert.Equal(t, tt.alignment, a.Alignment())
			assert.Zero(t, a.SizeInUse())
			assert.False(t, a.Expandable())
			assert.Equal(t, uint64(1), a.Generation())
		})
	}
}

func TestNewArena_AllocatorFailure(t *testing.T) {
	_, err := NewArena(64, WithAllocator(&countingAllocator{failAfter: 0}))
	require.ErrorIs(t, err, ErrAllocation)
	assert.ErrorIs(t, err, errNoMemory)
}

func TestNewArena_AlignmentAbovePageSize(t *testing.T) {
	_, err := NewArena(64, WithAllocator(MmapAllocator()), WithAlignment(2*os.Getpagesize()))
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.NotErrorIs(t, err, ErrAllocation)
}

func TestNewArena_BufferAligned(t *testing.T) {
	for _, alignment := range []int{1, 8, 16, 64, 256} {
		a := newTestArena(t, 100, WithAlignment(alignment))
		addr := uintptr(unsafe.Pointer(unsafe.SliceData(a.buf)))
		assert.Zero(t, addr%uintptr(alignment), "alignment %d", alignment)
	}
}

func TestAllocate_OffsetsAndCursor(t *testing.T) {
	a := newTestArena(t, 1024)

	points, err := Allocate[vec2](a, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, points.Offset())
	assert.Equal(t, 10, points.Len())
	assert.Equal(t, 80, a.SizeInUse())

	// 80 is already a multiple of 16, so no padding is inserted.
	wide, err := AllocateAligned[[32]byte](a, 1, 16)
	require.NoError(t, err)
	assert.Equal(t, 80, wide.Offset())
	assert.Equal(t, 112, a.SizeInUse())
}

func TestAllocate_PadsToAlignment(t *testing.T) {
	a := newTestArena(t, 1024)

	_, err := Allocate[int32](a, 10)
	require.NoError(t, err)
	assert.Equal(t, 40, a.SizeInUse())

	wide, err := AllocateAligned[[32]byte](a, 1, 16)
	require.NoError(t, err)
	assert.Equal(t, 48, wide.Offset())
	assert.Equal(t, 80, a.SizeInUse())
}

func TestAllocate_OutOfMemory(t *testing.T) {
	a := newTestArena(t, 64)

	_, err := Allocate[uint64](a, 9)
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.Zero(t, a.SizeInUse())
	assert.Equal(t, 64, a.Capacity())

	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "allocate", aerr.Op)

	// The arena stays usable.
	v, err := Allocate[uint64](a, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, v.Len())
	assert.Equal(t, 64, a.SizeInUse())
}

func TestAllocate_OutOfMemoryAfterPadding(t *testing.T) {
	a := newTestArena(t, 16)

	_, err := Allocate[byte](a, 1)
	require.NoError(t, err)

	// 1 byte cursor rounds up to 8; 8+16 > 16.
	_, err = Allocate[uint64](a, 2)
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, 1, a.SizeInUse())
}

func TestAllocate_Grows(t *testing.T) {
	a := newTestArena(t, 16, WithExpandable(true))

	v, err := Allocate[byte](a, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, v.Len())
	assert.Equal(t, 128, a.Capacity())
	assert.Equal(t, 100, a.SizeInUse())
	assert.Equal(t, uint64(1), a.Metrics().Grows)
}

func TestAllocate_GrowthPreservesContents(t *testing.T) {
	const n = 64
	a := newTestArena(t, 16*n, WithExpandable(true))

	first, err := Allocate[uint32](a, n)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.NoError(t, first.Set(i, uint32(i)))
	}

	_, err = Allocate[uint64](a, 10*n)
	require.NoError(t, err)
	require.Greater(t, a.Capacity(), 16*n)

	assert.True(t, first.Valid())
	for i := 0; i < n; i++ {
		got, err := first.Get(i)
		require.NoError(t, err)
		assert.Equal(t, uint32(i), got)
	}
}

func TestAllocate_GrowFromZeroCapacity(t *testing.T) {
	a := newTestArena(t, 0, WithExpandable(true))

	_, err := Allocate[byte](a, 40)
	require.NoError(t, err)
	assert.Equal(t, 64, a.Capacity())
}

func TestAllocate_GrowthBoundedByMaxCapacity(t *testing.T) {
	a := newTestArena(t, 64, WithExpandable(true), WithMaxCapacity(1000))

	// Doubling is clamped to the maximum.
	_, err := Allocate[byte](a, 900)
	require.NoError(t, err)
	assert.Equal(t, 1000, a.Capacity())

	_, err = Allocate[byte](a, 200)
	require.ErrorIs(t, err, ErrAllocation)
	assert.Equal(t, 900, a.SizeInUse())

	// Running into the bound is not fatal.
	_, err = Allocate[byte](a, 100)
	assert.NoError(t, err)
}

func TestAllocate_AbsurdRequests(t *testing.T) {
	a := newTestArena(t, 64, WithExpandable(true))

	_, err := Allocate[uint64](a, math.MaxInt/4)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Allocate[byte](a, -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Zero(t, a.SizeInUse())
	assert.Equal(t, 64, a.Capacity())

	// The heap cannot supply MaxInt bytes; that failure is fatal.
	_, err = Allocate[byte](a, math.MaxInt)
	assert.ErrorIs(t, err, ErrAllocation)
	assert.Equal(t, 64, a.Capacity())

	_, err = Allocate[byte](a, 1)
	assert.ErrorIs(t, err, ErrAllocation)
}

func TestAllocate_AllocatorFailureIsSticky(t *testing.T) {
	alloc := &countingAllocator{failAfter: 1}
	a := newTestArena(t, 32, WithExpandable(true), WithAllocator(alloc))

	v, err := Allocate[byte](a, 16)
	require.NoError(t, err)

	_, err = Allocate[byte](a, 64)
	require.ErrorIs(t, err, ErrAllocation)
	assert.ErrorIs(t, err, errNoMemory)
	assert.Equal(t, 32, a.Capacity())

	_, err = Allocate[byte](a, 1)
	assert.ErrorIs(t, err, ErrAllocation)
	assert.ErrorIs(t, a.Reset(), ErrAllocation)
	assert.ErrorIs(t, a.EnsureCapacity(1), ErrAllocation)

	// Memory handed out before the failure is intact.
	assert.True(t, v.Valid())
	assert.Equal(t, 16, a.SizeInUse())

	require.NoError(t, a.Release())
	assert.Equal(t, 1, alloc.frees)
}

func TestAllocate_DisjointAndAligned(t *testing.T) {
	a := newTestArena(t, 1<<16)
	rng := rand.New(rand.NewPCG(1, 2))

	type span struct{ start, end int }
	var spans []span
	record := func(off, size, align int) {
		require.Zero(t, off%align, "offset %d not aligned to %d", off, align)
		spans = append(spans, span{off, off + size})
	}

	for i := 0; i < 200; i++ {
		n := rng.IntN(16)
		switch rng.IntN(4) {
		case 0:
			v, err := Allocate[byte](a, n)
			require.NoError(t, err)
			record(v.Offset(), n, 1)
		case 1:
			v, err := Allocate[uint16](a, n)
			require.NoError(t, err)
			record(v.Offset(), 2*n, 2)
		case 2:
			v, err := Allocate[vec2](a, n)
			require.NoError(t, err)
			record(v.Offset(), 8*n, 4)
		case 3:
			v, err := Allocate[float64](a, n)
			require.NoError(t, err)
			record(v.Offset(), 8*n, 8)
		}
	}

	for i := 1; i < len(spans); i++ {
		assert.LessOrEqual(t, spans[i-1].end, spans[i].start, "spans %d and %d overlap", i-1, i)
	}
	assert.Equal(t, spans[len(spans)-1].end, a.SizeInUse())
}

func TestReset_RepeatsOffsets(t *testing.T) {
	a := newTestArena(t, 4096)

	sequence := func() []int {
		v1, err := Allocate[byte](a, 3)
		require.NoError(t, err)
		v2, err := Allocate[vec2](a, 7)
		require.NoError(t, err)
		v3, err := Allocate[int64](a, 5)
		require.NoError(t, err)
		v4, err := AllocateAligned[byte](a, 1, 16)
		require.NoError(t, err)
		return []int{v1.Offset(), v2.Offset(), v3.Offset(), v4.Offset()}
	}

	first := sequence()
	require.NoError(t, a.Reset())
	second := sequence()

	assert.Equal(t, first, second)
	assert.Equal(t, []int{0, 4, 64, 112}, first)
}

func TestReset(t *testing.T) {
	a := newTestArena(t, 1024)

	v, err := Allocate[byte](a, 100)
	require.NoError(t, err)
	require.NoError(t, v.Fill(0xAB))

	require.NoError(t, a.Reset())
	assert.Zero(t, a.SizeInUse())
	assert.Equal(t, 1024, a.Capacity())
	assert.Equal(t, uint64(2), a.Generation())
	assert.False(t, v.Valid())

	// Reset does not clear memory.
	again, err := Allocate[byte](a, 100)
	require.NoError(t, err)
	b, err := again.Get(50)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), b)
}

func TestRelease(t *testing.T) {
	alloc := &countingAllocator{failAfter: math.MaxInt}
	a, err := NewArena(1024, WithAllocator(alloc))
	require.NoError(t, err)

	v, err := Allocate[byte](a, 100)
	require.NoError(t, err)

	require.NoError(t, a.Release())
	assert.True(t, a.Released())
	assert.Nil(t, a.buf)
	assert.False(t, v.Valid())

	// Idempotent.
	require.NoError(t, a.Release())
	require.NoError(t, a.Close())
	assert.Equal(t, 1, alloc.frees)
}

func TestUseAfterRelease(t *testing.T) {
	a, err := NewArena(1024, WithExpandable(true))
	require.NoError(t, err)
	require.NoError(t, a.Release())

	_, err = Allocate[int](a, 1)
	assert.ErrorIs(t, err, ErrUseAfterRelease)
	_, err = AllocateAligned[int](a, 1, 8)
	assert.ErrorIs(t, err, ErrUseAfterRelease)
	_, err = AllocateAligned[int](a, 1, 3)
	assert.ErrorIs(t, err, ErrUseAfterRelease)
	_, err = AllocateZeroed[int](a, 1)
	assert.ErrorIs(t, err, ErrUseAfterRelease)
	_, err = a.AllocBytes(10)
	assert.ErrorIs(t, err, ErrUseAfterRelease)
	assert.ErrorIs(t, a.Reset(), ErrUseAfterRelease)
	assert.ErrorIs(t, a.EnsureCapacity(10), ErrUseAfterRelease)
	assert.ErrorIs(t, a.Cycle(func(*Arena) error { return nil }), ErrUseAfterRelease)
}

func TestEnsureCapacity(t *testing.T) {
	t.Run("expandable", func(t *testing.T) {
		a := newTestArena(t, 64, WithExpandable(true))

		require.NoError(t, a.EnsureCapacity(32))
		assert.Equal(t, 64, a.Capacity())

		require.NoError(t, a.EnsureCapacity(1000))
		assert.Equal(t, 1024, a.Capacity())

		// Nothing grows while the reserved bytes are consumed.
		v, err := Allocate[byte](a, 1000)
		require.NoError(t, err)
		p, err := v.At(0)
		require.NoError(t, err)
		_, err = Allocate[byte](a, 24)
		require.NoError(t, err)
		pAgain, err := v.At(0)
		require.NoError(t, err)
		assert.Same(t, p, pAgain)
	})

	t.Run("fixed", func(t *testing.T) {
		a := newTestArena(t, 64)

		require.NoError(t, a.EnsureCapacity(64))
		assert.ErrorIs(t, a.EnsureCapacity(65), ErrOutOfMemory)
		assert.ErrorIs(t, a.EnsureCapacity(-1), ErrInvalidArgument)
	})
}

func TestScoped(t *testing.T) {
	t.Run("releases on success", func(t *testing.T) {
		var arena *Arena
		err := Scoped(256, func(a *Arena) error {
			arena = a
			_, err := Allocate[int32](a, 10)
			return err
		})
		require.NoError(t, err)
		assert.True(t, arena.Released())
	})

	t.Run("releases on error", func(t *testing.T) {
		var arena *Arena
		err := Scoped(8, func(a *Arena) error {
			arena = a
			_, err := Allocate[int64](a, 2)
			return err
		})
		require.ErrorIs(t, err, ErrOutOfMemory)
		assert.True(t, arena.Released())
	})

	t.Run("releases on panic", func(t *testing.T) {
		var arena *Arena
		assert.Panics(t, func() {
			_ = Scoped(64, func(a *Arena) error {
				arena = a
				panic("boom")
			})
		})
		assert.True(t, arena.Released())
	})

	t.Run("construction error", func(t *testing.T) {
		called := false
		err := Scoped(-1, func(*Arena) error {
			called = true
			return nil
		})
		require.ErrorIs(t, err, ErrInvalidArgument)
		assert.False(t, called)
	})
}

func TestCycle(t *testing.T) {
	a := newTestArena(t, 256)

	for frame := 0; frame < 3; frame++ {
		err := a.Cycle(func(a *Arena) error {
			assert.Zero(t, a.SizeInUse())
			v, err := Allocate[uint16](a, 50)
			if err != nil {
				return err
			}
			return v.Fill(uint16(frame))
		})
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(3), a.Metrics().Resets)
}

func TestError(t *testing.T) {
	err := opError("allocate", ErrOutOfMemory, "requested 72 bytes", nil)
	assert.Equal(t, "memarena: allocate: out of memory (requested 72 bytes)", err.Error())
	assert.ErrorIs(t, err, ErrOutOfMemory)
	assert.NotErrorIs(t, err, ErrAllocation)

	wrapped := fmt.Errorf("frame 3: %w", opError("grow", ErrAllocation, "", errNoMemory))
	assert.Equal(t, "frame 3: memarena: grow: allocation failed: no memory", wrapped.Error())
	assert.ErrorIs(t, wrapped, ErrAllocation)
	assert.ErrorIs(t, wrapped, errNoMemory)
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		off, align, want uint
	}{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{80, 16, 80},
		{81, 16, 96},
		{5, 1, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, alignUp(tt.off, tt.align), "alignUp(%d, %d)", tt.off, tt.align)
	}
}

func TestMulSize(t *testing.T) {
	n, ok := mulSize(10, 8)
	assert.True(t, ok)
	assert.Equal(t, 80, n)

	_, ok = mulSize(math.MaxInt/2+1, 2)
	assert.False(t, ok)

	n, ok = mulSize(math.MaxInt, 0)
	assert.True(t, ok)
	assert.Zero(t, n)
}

func BenchmarkAllocate(b *testing.B) {
	a, err := NewArena(1 << 22)
	require.NoError(b, err)
	defer a.Release()

	for _, n := range []int{1, 16, 256} {
		b.Run(fmt.Sprintf("vec2-%d", n), func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := Allocate[vec2](a, n); err != nil {
					b.Fatal(err)
				}
				if i%1000 == 999 {
					_ = a.Reset()
				}
			}
		})
	}
}

func BenchmarkArenaVsBuiltin(b *testing.B) {
	b.Run("arena", func(b *testing.B) {
		a, err := NewArena(1 << 20)
		require.NoError(b, err)
		defer a.Release()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = a.AllocBytes(64)
			if i%1000 == 999 {
				_ = a.Reset()
			}
		}
	})

	b.Run("builtin", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = make([]byte, 64)
		}
	})
}
