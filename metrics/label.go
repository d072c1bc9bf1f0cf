package metrics

import (
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/exp/maps"
)

// LabelValue is a mapping of keys to values
type LabelValue map[string]any

// LabelSnapshot is a read-only copy of a Label.
type LabelSnapshot LabelValue

// Value returns the value at the time the snapshot was taken.
func (l LabelSnapshot) Value() LabelValue { return LabelValue(l) }

// Label is an info metric: a constant 1 carrying its values as prometheus
// labels. It is used to export run configuration next to the counters.
type Label struct {
	name  string
	value LabelValue

	mutex sync.Mutex
}

// GetOrRegisterLabel returns an existing Label or constructs and registers a
// new Label.
func GetOrRegisterLabel(name string, r *Registry) *Label {
	return getOrRegister(name, NewLabel, r)
}

// NewLabel constructs a new Label.
func NewLabel(name string) *Label {
	return &Label{name: promName(name) + "_info", value: make(LabelValue)}
}

// Snapshot returns a copy of the label values.
func (l *Label) Snapshot() *LabelSnapshot {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	snapshot := LabelSnapshot(maps.Clone(l.value))
	return &snapshot
}

// Mark records the label.
func (l *Label) Mark(value map[string]interface{}) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	maps.Copy(l.value, value)
}

// Describe implements prometheus.Collector. The label set changes with Mark,
// so the collector is unchecked and describes nothing.
func (l *Label) Describe(chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector.
func (l *Label) Collect(ch chan<- prometheus.Metric) {
	l.mutex.Lock()
	keys := maps.Keys(l.value)
	sort.Strings(keys)
	names := make([]string, len(keys))
	values := make([]string, len(keys))
	for i, k := range keys {
		names[i] = promName(k)
		values[i] = fmt.Sprint(l.value[k])
	}
	l.mutex.Unlock()

	desc := prometheus.NewDesc(prometheus.BuildFQName(Namespace, "", l.name), "run information", names, nil)
	m, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, 1, values...)
	if err != nil {
		return
	}
	ch <- m
}
