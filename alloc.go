package memarena

import (
	"fmt"
	"reflect"
	"unsafe"
)

// Allocate reserves count elements of T from the arena and returns a view over
// them. The elements start at an offset divisible by T's alignment.
//
// Memory is not zeroed: after a Reset the view may expose bytes written during
// an earlier cycle. Use AllocateZeroed when that matters.
//
// T must be pointer-free (see View). The check walks T's layout once per type
// and is skipped while an arena keeps allocating the same element type.
// A count of zero yields a valid empty view.
func Allocate[T any](a *Arena, count int) (View[T], error) {
	var zero T
	return allocate[T](a, "allocate", count, int(unsafe.Alignof(zero)))
}

// AllocateAligned is Allocate with a stronger alignment than T's own. align
// must be a power of two, at least T's alignment and at most the arena's base
// alignment.
func AllocateAligned[T any](a *Arena, count, align int) (View[T], error) {
	const op = "allocate aligned"
	var zero T
	natural := int(unsafe.Alignof(zero))
	if !isPowerOfTwo(align) || align < natural || align > a.alignment {
		if err := a.usable(op); err != nil {
			return View[T]{}, err
		}
		return View[T]{}, a.fail(op, ErrInvalidArgument,
			fmt.Sprintf("alignment %d outside [%d, %d] or not a power of two", align, natural, a.alignment), 0)
	}
	return allocate[T](a, op, count, align)
}

// AllocateZeroed is Allocate followed by zeroing the view's bytes.
func AllocateZeroed[T any](a *Arena, count int) (View[T], error) {
	v, err := Allocate[T](a, count)
	if err != nil {
		return v, err
	}
	var zero T
	clear(a.buf[v.off : v.off+count*int(unsafe.Sizeof(zero))])
	return v, nil
}

// AllocateFrom reserves len(src) elements and copies src into them.
func AllocateFrom[T any](a *Arena, src []T) (View[T], error) {
	v, err := Allocate[T](a, len(src))
	if err != nil {
		return v, err
	}
	dst, _ := v.Slice()
	copy(dst, src)
	return v, nil
}

// AllocBytes reserves n bytes with no alignment requirement.
func (a *Arena) AllocBytes(n int) (View[byte], error) {
	return Allocate[byte](a, n)
}

func allocate[T any](a *Arena, op string, count, align int) (View[T], error) {
	if err := a.usable(op); err != nil {
		return View[T]{}, err
	}
	if t := reflect.TypeFor[T](); t != a.elemType {
		if !pointerFree(t) {
			return View[T]{}, a.fail(op, ErrInvalidArgument, fmt.Sprintf("element type %v holds pointers", t), 0)
		}
		a.elemType = t
	}

	var zero T
	off, err := a.alloc(op, count, int(unsafe.Sizeof(zero)), align)
	if err != nil {
		return View[T]{}, err
	}
	return View[T]{arena: a, off: off, n: count, gen: a.generation}, nil
}
