// Package metrics is the sink sensor adapters publish their readings to.
//
// Adapters register every gauge they own once, at boot, and keep the handles.
// A Gauge must be safe to read concurrently with Set: exporters scrape while
// the owning scheduler updates.
package metrics

import (
	"sort"
)

// Labels are the dimensions of a gauge. Every gauge carries at least "sensor".
type Labels map[string]string

// Names returns the label names in sorted order.
func (l Labels) Names() []string {
	names := make([]string, 0, len(l))
	for k := range l {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Gauge is a numeric value updated in place.
type Gauge interface {
	Set(v float64)
}

// Sink hands out gauges. Registering the same name and labels twice returns a
// gauge bound to the same series.
type Sink interface {
	Gauge(name, help string, labels Labels) (Gauge, error)
}

type tee []Sink

// Tee fans every gauge out to all sinks.
func Tee(sinks ...Sink) Sink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return tee(sinks)
}

func (t tee) Gauge(name, help string, labels Labels) (Gauge, error) {
	gauges := make(teeGauge, 0, len(t))
	for _, s := range t {
		g, err := s.Gauge(name, help, labels)
		if err != nil {
			return nil, err
		}
		gauges = append(gauges, g)
	}
	return gauges, nil
}

type teeGauge []Gauge

func (t teeGauge) Set(v float64) {
	for _, g := range t {
		g.Set(v)
	}
}
