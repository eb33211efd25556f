package device

import (
	"context"
	"log/slog"
	"time"

	"github.com/mklimuk/airmon/air"
	"github.com/mklimuk/airmon/bus"
	"github.com/mklimuk/airmon/metrics"
	"github.com/mklimuk/airmon/sensor"
)

const pmsa003iName = "PMSA003I"

type concentrationGauges struct {
	pm10, pm10Std   metrics.Gauge
	pm25, pm25Std   metrics.Gauge
	pm100, pm100Std metrics.Gauge
}

func newConcentrationGauges(g *gauges) concentrationGauges {
	const name, help = "pm_conc", "Particulate matter concentration in ug/m3."
	return concentrationGauges{
		pm10:     g.add(name, help, "pm", "1.0", "cond", "env"),
		pm10Std:  g.add(name, help, "pm", "1.0", "cond", "std"),
		pm25:     g.add(name, help, "pm", "2.5", "cond", "env"),
		pm25Std:  g.add(name, help, "pm", "2.5", "cond", "std"),
		pm100:    g.add(name, help, "pm", "10.0", "cond", "env"),
		pm100Std: g.add(name, help, "pm", "10.0", "cond", "std"),
	}
}

func (c concentrationGauges) update(r air.PMSA003IReading) {
	c.pm10.Set(float64(r.PM10Env))
	c.pm10Std.Set(float64(r.PM10Standard))
	c.pm25.Set(float64(r.PM25Env))
	c.pm25Std.Set(float64(r.PM25Standard))
	c.pm100.Set(float64(r.PM100Env))
	c.pm100Std.Set(float64(r.PM100Standard))
}

// particles with diameter >= diam in 0.1 L of air
type particleGauges struct {
	d03, d05, d10, d25, d50, d100 metrics.Gauge
}

func newParticleGauges(g *gauges) particleGauges {
	const name, help = "particle_count", "Particles above a diameter in 0.1 L of air."
	return particleGauges{
		d03:  g.add(name, help, "diam", "0.3"),
		d05:  g.add(name, help, "diam", "0.5"),
		d10:  g.add(name, help, "diam", "1.0"),
		d25:  g.add(name, help, "diam", "2.5"),
		d50:  g.add(name, help, "diam", "5.0"),
		d100: g.add(name, help, "diam", "10.0"),
	}
}

func (p particleGauges) update(r air.PMSA003IReading) {
	p.d03.Set(float64(r.Particles03um))
	p.d05.Set(float64(r.Particles05um))
	p.d10.Set(float64(r.Particles10um))
	p.d25.Set(float64(r.Particles25um))
	p.d50.Set(float64(r.Particles50um))
	p.d100.Set(float64(r.Particles100um))
}

// PMSA003I publishes all concentrations and particle counts of a Plantower
// PMSA003I.
type PMSA003I struct {
	drv            *air.PMSA003I
	concentrations concentrationGauges
	particles      particleGauges
}

// BootPMSA003I does not talk to the sensor: it streams frames on its own and
// the first poll tells whether it is there.
func BootPMSA003I(_ context.Context, h *bus.Handle, sink metrics.Sink) (sensor.Sensor, error) {
	slog.Info("connecting to sensor", "sensor", pmsa003iName)
	g := newGauges(sink, pmsa003iName)
	s := &PMSA003I{
		drv:            air.NewPMSA003I(h.Acquire()),
		concentrations: newConcentrationGauges(g),
		particles:      newParticleGauges(g),
	}
	if err := g.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PMSA003I) Name() string {
	return pmsa003iName
}

func (s *PMSA003I) PollPeriod() time.Duration {
	return 2 * time.Second
}

func (s *PMSA003I) Poll(ctx context.Context) error {
	r, err := s.drv.Read(ctx)
	if err != nil {
		return err
	}
	slog.Debug("successful read", "sensor", pmsa003iName, "reading", r)
	s.concentrations.update(r)
	s.particles.update(r)
	return nil
}
