package memarena

import (
	"errors"
)

var (
	// ErrAllocation is returned when the raw allocator or the budget cannot
	// supply memory for the initial buffer or a growth step, or when a growth
	// step would exceed the maximum capacity.
	ErrAllocation = errors.New("allocation failed")
	// ErrOutOfMemory is returned when a non-expandable arena cannot satisfy a
	// request. The arena remains usable.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrInvalidArgument is returned for negative or overflowing sizes, bad
	// alignments and element types that hold Go pointers.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUseAfterRelease is returned by every operation on a released arena.
	ErrUseAfterRelease = errors.New("use after release")
	// ErrIndexOutOfRange is returned by checked view accessors.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrStaleView is returned when a view outlived a Reset or Release of its arena.
	ErrStaleView = errors.New("stale view")
	// ErrBudgetExceeded is wrapped by ErrAllocation when a Budget refuses a reservation.
	ErrBudgetExceeded = errors.New("budget exceeded")
)

// Error describes a failed arena operation.
//
// errors.Is matches Kind against the sentinel errors of this package; the
// underlying cause (if any) is available via errors.Unwrap.
type Error struct {
	Op     string // operation, e.g. "allocate", "reset"
	Kind   error  // one of the sentinel errors
	Detail string // human readable context, may be empty
	Err    error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	s := "memarena: " + e.Op + ": " + e.Kind.Error()
	if e.Detail != "" {
		s += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Is reports whether target is the error's Kind.
func (e *Error) Is(target error) bool { return e.Kind == target }

func (e *Error) Unwrap() error { return e.Err }

func opError(op string, kind error, detail string, cause error) *Error {
	return &Error{Op: op, Kind: kind, Detail: detail, Err: cause}
}
