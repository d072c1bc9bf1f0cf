// Copyright 2024 The lodaminer Authors
// This file is part of the lodaminer library.
//
// The lodaminer library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The lodaminer library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the lodaminer library. If not, see <http://www.gnu.org/licenses/>.

// Package metrics provides counters, gauges and timers exported through a
// prometheus registry.
package metrics

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every exported metric name.
const Namespace = "lodaminer"

// Registry holds named metrics and the prometheus registry exporting them.
type Registry struct {
	mu      sync.Mutex
	metrics map[string]prometheus.Collector
	prom    *prometheus.Registry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		metrics: make(map[string]prometheus.Collector),
		prom:    prometheus.NewRegistry(),
	}
}

// DefaultRegistry is used when a nil registry is passed to a constructor.
var DefaultRegistry = NewRegistry()

// Get returns the metric registered under name, or nil.
func (r *Registry) Get(name string) prometheus.Collector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics[name]
}

// Each calls fn for every registered metric in name order.
func (r *Registry) Each(fn func(name string, m prometheus.Collector)) {
	r.mu.Lock()
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	metrics := make(map[string]prometheus.Collector, len(r.metrics))
	for k, v := range r.metrics {
		metrics[k] = v
	}
	r.mu.Unlock()

	sort.Strings(names)
	for _, name := range names {
		fn(name, metrics[name])
	}
}

// Gatherer exposes the registry to prometheus consumers.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.prom
}

// Handler returns an HTTP handler serving the registry in the prometheus
// text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{})
}

func getOrRegister[T prometheus.Collector](name string, ctor func(name string) T, r *Registry) T {
	if r == nil {
		r = DefaultRegistry
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.metrics[name]; ok {
		if typed, ok := m.(T); ok {
			return typed
		}
	}
	m := ctor(name)
	r.metrics[name] = m
	// A clash with a foreign collector of the same name only loses export.
	_ = r.prom.Register(m)
	return m
}

// promName converts a slash separated metric name into a prometheus name.
func promName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// Counter is a monotonically increasing count.
type Counter struct {
	prometheus.Counter
	count atomic.Int64
}

// NewRegisteredCounter returns the counter registered under name, creating it
// when needed.
func NewRegisteredCounter(name string, r *Registry) *Counter {
	return getOrRegister(name, func(name string) *Counter {
		return &Counter{Counter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      promName(name),
		})}
	}, r)
}

// Inc adds n to the counter.
func (c *Counter) Inc(n int64) {
	c.count.Add(n)
	c.Counter.Add(float64(n))
}

// Snapshot returns the current count.
func (c *Counter) Snapshot() int64 {
	return c.count.Load()
}

// Gauge holds an int64 value that can go up and down.
type Gauge struct {
	prometheus.Gauge
	value atomic.Int64
}

// NewRegisteredGauge returns the gauge registered under name, creating it
// when needed.
func NewRegisteredGauge(name string, r *Registry) *Gauge {
	return getOrRegister(name, func(name string) *Gauge {
		return &Gauge{Gauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      promName(name),
		})}
	}, r)
}

// Update sets the gauge to v.
func (g *Gauge) Update(v int64) {
	g.value.Store(v)
	g.Gauge.Set(float64(v))
}

// Snapshot returns the current value.
func (g *Gauge) Snapshot() int64 {
	return g.value.Load()
}

// Timer records durations into a histogram.
type Timer struct {
	prometheus.Histogram
	count atomic.Int64
	total atomic.Int64
}

// NewRegisteredTimer returns the timer registered under name, creating it
// when needed.
func NewRegisteredTimer(name string, r *Registry) *Timer {
	return getOrRegister(name, func(name string) *Timer {
		return &Timer{Histogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      promName(name) + "_seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		})}
	}, r)
}

// Update records a duration.
func (t *Timer) Update(d time.Duration) {
	t.count.Add(1)
	t.total.Add(int64(d))
	t.Histogram.Observe(d.Seconds())
}

// UpdateSince records the time elapsed since start.
func (t *Timer) UpdateSince(start time.Time) {
	t.Update(time.Since(start))
}

// Count returns the number of recorded durations.
func (t *Timer) Count() int64 {
	return t.count.Load()
}

// Mean returns the average recorded duration.
func (t *Timer) Mean() time.Duration {
	n := t.count.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(t.total.Load() / n)
}
