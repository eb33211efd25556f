package device

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mklimuk/airmon/air"
	"github.com/mklimuk/airmon/bus"
	"github.com/mklimuk/airmon/metrics"
	"github.com/mklimuk/airmon/sensor"
)

const scd30Name = "SCD30"

// SCD30 publishes CO2, temperature and humidity of a Sensirion SCD30.
type SCD30 struct {
	drv  *air.SCD30
	co2  metrics.Gauge
	temp metrics.Gauge
	rh   metrics.Gauge
}

// BootSCD30 reads the firmware version and starts continuous measurement.
func BootSCD30(ctx context.Context, h *bus.Handle, sink metrics.Sink) (sensor.Sensor, error) {
	slog.Info("connecting to sensor", "sensor", scd30Name)
	drv := air.NewSCD30(h.Acquire())
	major, minor, err := drv.FirmwareVersion(ctx)
	if err != nil {
		return nil, err
	}
	slog.Debug("sensor firmware", "sensor", scd30Name, "version", fmt.Sprintf("%d.%d", major, minor))
	// TODO: pass ambient pressure from the weather observation for compensation
	if err := drv.StartContinuous(ctx, 0); err != nil {
		return nil, err
	}
	g := newGauges(sink, scd30Name)
	s := &SCD30{
		drv:  drv,
		co2:  g.add("co2_ppm", "CO2 concentration in ppm."),
		temp: g.add("temp_degc", "Temperature in degrees Celsius."),
		rh:   g.add("rh_percent", "Relative humidity in percent."),
	}
	if err := g.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SCD30) Name() string {
	return scd30Name
}

func (s *SCD30) PollPeriod() time.Duration {
	return 5 * time.Second
}

func (s *SCD30) Poll(ctx context.Context) error {
	ready, err := s.drv.DataReady(ctx)
	if err != nil {
		return err
	}
	if !ready {
		slog.Debug("no new data", "sensor", scd30Name)
		return nil
	}
	m, err := s.drv.ReadMeasurement(ctx)
	if err != nil {
		return err
	}
	slog.Debug("successful read", "sensor", scd30Name, "measurement", m)
	s.co2.Set(float64(m.CO2))
	s.temp.Set(float64(m.Temperature))
	s.rh.Set(float64(m.Humidity))
	return nil
}
