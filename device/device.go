// Package device adapts the vendor drivers to sensor.Sensor: each adapter
// boots its driver through a bus proxy, owns the gauges it publishes and
// copies every field of a reading into them on a successful poll.
package device

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/mklimuk/airmon/metrics"
	"github.com/mklimuk/airmon/sensor"
)

var kinds = []sensor.Kind{
	{Name: "scd30", Boot: BootSCD30},
	{Name: "pmsa003i", Boot: BootPMSA003I},
	{Name: "sht40", Boot: BootSHT40},
	{Name: "shtc3", Boot: BootSHTC3},
	{Name: "hih6021", Boot: BootHIH6021},
	{Name: "bh1750", Boot: BootBH1750},
	{Name: "tc74", Boot: BootTC74},
	{Name: "ags02ma", Boot: BootAGS02MA},
}

// Names lists the sensor kinds that can be configured.
func Names() []string {
	return lo.Map(kinds, func(k sensor.Kind, _ int) string {
		return k.Name
	})
}

// Lookup finds a kind by its (case insensitive) name.
func Lookup(name string) (sensor.Kind, bool) {
	return lo.Find(kinds, func(k sensor.Kind) bool {
		return strings.EqualFold(k.Name, name)
	})
}

// Resolve maps configured sensor names to kinds, keeping their order. All
// unknown names are reported at once.
func Resolve(names []string) ([]sensor.Kind, error) {
	var err error
	resolved := make([]sensor.Kind, 0, len(names))
	for _, name := range names {
		k, ok := Lookup(name)
		if !ok {
			err = multierr.Append(err, fmt.Errorf("unknown sensor %q (known: %s)", name, strings.Join(Names(), ", ")))
			continue
		}
		resolved = append(resolved, k)
	}
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// gauges registers the gauges of one sensor and remembers the first failure
// so adapters can check once after registering all of them.
type gauges struct {
	sink   metrics.Sink
	sensor string
	err    error
}

func newGauges(sink metrics.Sink, sensor string) *gauges {
	return &gauges{sink: sink, sensor: sensor}
}

// add registers name with the sensor label plus extra label pairs.
func (g *gauges) add(name, help string, extra ...string) metrics.Gauge {
	labels := metrics.Labels{"sensor": g.sensor}
	for i := 0; i+1 < len(extra); i += 2 {
		labels[extra[i]] = extra[i+1]
	}
	gauge, err := g.sink.Gauge(name, help, labels)
	if err != nil {
		g.err = multierr.Append(g.err, err)
		return nil
	}
	return gauge
}

func (g *gauges) Err() error {
	if g.err != nil {
		return fmt.Errorf("could not register %s gauges: %w", g.sensor, g.err)
	}
	return nil
}
