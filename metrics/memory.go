package metrics

import (
	"math"
	"strings"
	"sync"
	"sync/atomic"
)

var _ Sink = &Memory{}

// Memory keeps gauges in process. It backs one-shot reads from the CLI and
// lets tests assert exact values without an exporter.
type Memory struct {
	mx     sync.Mutex
	series map[string]*MemoryGauge
	order  []string
}

func NewMemory() *Memory {
	return &Memory{series: make(map[string]*MemoryGauge)}
}

// MemoryGauge is an atomic float cell that counts its updates.
type MemoryGauge struct {
	Name   string
	Labels Labels
	bits   atomic.Uint64
	sets   atomic.Int64
}

func (g *MemoryGauge) Set(v float64) {
	g.bits.Store(math.Float64bits(v))
	g.sets.Add(1)
}

// Value returns the last value set (0 if never set).
func (g *MemoryGauge) Value() float64 {
	return math.Float64frombits(g.bits.Load())
}

// Sets returns how many times Set was called.
func (g *MemoryGauge) Sets() int64 {
	return g.sets.Load()
}

func (m *Memory) Gauge(name, help string, labels Labels) (Gauge, error) {
	key := seriesKey(name, labels)
	m.mx.Lock()
	defer m.mx.Unlock()
	if g, ok := m.series[key]; ok {
		return g, nil
	}
	copied := make(Labels, len(labels))
	for k, v := range labels {
		copied[k] = v
	}
	g := &MemoryGauge{Name: name, Labels: copied}
	m.series[key] = g
	m.order = append(m.order, key)
	return g, nil
}

// Get returns the gauge registered under name and labels, or nil.
func (m *Memory) Get(name string, labels Labels) *MemoryGauge {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.series[seriesKey(name, labels)]
}

// Value is a shorthand for Get(name, labels).Value(); it returns NaN for an
// unknown series.
func (m *Memory) Value(name string, labels Labels) float64 {
	g := m.Get(name, labels)
	if g == nil {
		return math.NaN()
	}
	return g.Value()
}

// All returns the gauges in registration order.
func (m *Memory) All() []*MemoryGauge {
	m.mx.Lock()
	defer m.mx.Unlock()
	out := make([]*MemoryGauge, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.series[key])
	}
	return out
}

// TotalSets sums Sets over all gauges.
func (m *Memory) TotalSets() int64 {
	var total int64
	for _, g := range m.All() {
		total += g.Sets()
	}
	return total
}

// String renders a series the way Prometheus does: name{k="v",...}.
func (g *MemoryGauge) String() string {
	return seriesKey(g.Name, g.Labels)
}

func seriesKey(name string, labels Labels) string {
	names := labels.Names()
	if len(names) == 0 {
		return name
	}
	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = k + `="` + labels[k] + `"`
	}
	return name + "{" + strings.Join(parts, ",") + "}"
}
