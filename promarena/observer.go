// Package promarena exports memarena events as Prometheus metrics.
//
//	obs, err := promarena.NewObserver(prometheus.DefaultRegisterer, "frame")
//	if err != nil {
//		return err
//	}
//	a, err := memarena.NewArena(1<<20, memarena.WithObserver(obs))
//
// Every metric carries a constant "arena" label with the given name, so several
// arenas can share one registry.
package promarena

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pavanmanishd/memarena"
)

const namespace = "memarena"

// Observer implements memarena.MetricsObserver on top of Prometheus collectors.
type Observer struct {
	allocations   *prometheus.CounterVec
	allocBytes    prometheus.Counter
	paddingBytes  prometheus.Counter
	grows         prometheus.Counter
	growLatency   prometheus.Histogram
	copiedBytes   prometheus.Counter
	resets        prometheus.Counter
	inUseAtReset  prometheus.Gauge
	capacityBytes prometheus.Gauge
}

var _ memarena.MetricsObserver = (*Observer)(nil)

// NewObserver creates an Observer for the arena called name and registers its
// collectors with reg.
func NewObserver(reg prometheus.Registerer, name string) (*Observer, error) {
	labels := prometheus.Labels{"arena": name}

	o := &Observer{
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "allocations_total",
			Help:        "Allocation attempts by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		allocBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "allocated_bytes_total",
			Help:        "Bytes handed out by successful allocations.",
			ConstLabels: labels,
		}),
		paddingBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "padding_bytes_total",
			Help:        "Bytes skipped to satisfy alignment.",
			ConstLabels: labels,
		}),
		grows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "grows_total",
			Help:        "Buffer replacements caused by overflow.",
			ConstLabels: labels,
		}),
		growLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "grow_duration_seconds",
			Help:        "Time spent allocating and copying during growth.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		copiedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "grow_copied_bytes_total",
			Help:        "Bytes copied from old buffers during growth.",
			ConstLabels: labels,
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "resets_total",
			Help:        "Reset calls.",
			ConstLabels: labels,
		}),
		inUseAtReset: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "last_cycle_bytes",
			Help:        "Bytes in use when the arena was last reset.",
			ConstLabels: labels,
		}),
		capacityBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "capacity_bytes",
			Help:        "Buffer size after the last growth, zero once released.",
			ConstLabels: labels,
		}),
	}

	for _, c := range []prometheus.Collector{
		o.allocations, o.allocBytes, o.paddingBytes, o.grows, o.growLatency,
		o.copiedBytes, o.resets, o.inUseAtReset, o.capacityBytes,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// OnAllocate implements memarena.MetricsObserver.
func (o *Observer) OnAllocate(bytes, padding int, err error) {
	o.allocations.WithLabelValues(result(err)).Inc()
	if err != nil {
		return
	}
	o.allocBytes.Add(float64(bytes))
	o.paddingBytes.Add(float64(padding))
}

// OnGrow implements memarena.MetricsObserver.
func (o *Observer) OnGrow(_, to, copied int, elapsed time.Duration) {
	o.grows.Inc()
	o.growLatency.Observe(elapsed.Seconds())
	o.copiedBytes.Add(float64(copied))
	o.capacityBytes.Set(float64(to))
}

// OnReset implements memarena.MetricsObserver.
func (o *Observer) OnReset(inUse int) {
	o.resets.Inc()
	o.inUseAtReset.Set(float64(inUse))
}

// OnRelease implements memarena.MetricsObserver.
func (o *Observer) OnRelease(int) {
	o.capacityBytes.Set(0)
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, memarena.ErrOutOfMemory):
		return "out_of_memory"
	case errors.Is(err, memarena.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, memarena.ErrAllocation):
		return "allocation_error"
	default:
		return "error"
	}
}
