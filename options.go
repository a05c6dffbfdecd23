package memarena

import (
	"log/slog"
	"math"
)

// DefaultAlignment is the base alignment of an arena's backing buffer (16 bytes).
const DefaultAlignment = 16

type options struct {
	alignment   int
	expandable  bool
	allocator   Allocator
	budget      *Budget
	logger      *slog.Logger
	observer    MetricsObserver
	maxCapacity int
}

func defaultOptions() options {
	return options{
		alignment:   DefaultAlignment,
		allocator:   HeapAllocator(),
		logger:      slog.New(slog.DiscardHandler),
		observer:    NoopMetricsObserver{},
		maxCapacity: math.MaxInt,
	}
}

// Option configures an Arena at construction time.
type Option func(*options)

// WithAlignment sets the base alignment of the backing buffer. It must be a
// power of two and bounds the alignment AllocateAligned can honor.
func WithAlignment(n int) Option {
	return func(o *options) {
		o.alignment = n
	}
}

// WithExpandable lets the arena double its buffer when a request does not fit.
// Growth copies the bytes in use into the new buffer; views survive it, pointers
// and slices obtained from views do not.
func WithExpandable(expandable bool) Option {
	return func(o *options) {
		o.expandable = expandable
	}
}

// WithAllocator sets the raw memory source. If nil is passed, HeapAllocator is used.
func WithAllocator(a Allocator) Option {
	return func(o *options) {
		if a == nil {
			a = HeapAllocator()
		}
		o.allocator = a
	}
}

// WithBudget charges every buffer the arena holds against b.
func WithBudget(b *Budget) Option {
	return func(o *options) {
		o.budget = b
	}
}

// WithLogger configures structured logging. If nil is passed, logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = slog.New(slog.DiscardHandler)
		}
		o.logger = l
	}
}

// WithObserver installs a metrics observer. If nil is passed, NoopMetricsObserver is used.
func WithObserver(m MetricsObserver) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsObserver{}
		}
		o.observer = m
	}
}

// WithMaxCapacity bounds how large an expandable arena may grow.
// Non-positive values leave the bound at math.MaxInt.
func WithMaxCapacity(n int) Option {
	return func(o *options) {
		if n <= 0 {
			n = math.MaxInt
		}
		o.maxCapacity = n
	}
}
