package memarena

import (
	"math"
	"math/bits"
	"reflect"
	"sync"
)

// layouts caches pointerFree results per element type.
var layouts sync.Map // map[reflect.Type]bool

// pointerFree reports whether values of t can live in memory the garbage
// collector does not scan: no pointers, strings, slices, maps, channels, funcs
// or interfaces anywhere in the type.
func pointerFree(t reflect.Type) bool {
	if v, ok := layouts.Load(t); ok {
		return v.(bool)
	}
	ok := scanPointerFree(t)
	layouts.Store(t, ok)
	return ok
}

func scanPointerFree(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return t.Len() == 0 || scanPointerFree(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if !scanPointerFree(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// alignUp rounds off up to the next multiple of align, a power of two.
func alignUp(off, align uint) uint {
	mask := align - 1
	return (off + mask) &^ mask
}

// mulSize returns count*elemSize and whether the product fits in an int.
func mulSize(count, elemSize int) (int, bool) {
	hi, lo := bits.Mul64(uint64(count), uint64(elemSize))
	if hi != 0 || lo > math.MaxInt {
		return 0, false
	}
	return int(lo), true
}
