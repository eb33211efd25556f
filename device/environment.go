package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mklimuk/airmon/bus"
	"github.com/mklimuk/airmon/environment"
	"github.com/mklimuk/airmon/metrics"
	"github.com/mklimuk/airmon/sensor"
)

const (
	sht40Name   = "SHT40"
	shtc3Name   = "SHTC3"
	hih6021Name = "HIH6021"
	bh1750Name  = "BH1750"
	tc74Name    = "TC74"
)

type tempHumReader interface {
	GetTempAndHum(ctx context.Context) (float32, float32, error)
}

// TempHum publishes temperature and humidity. SHT40, SHTC3 and HIH6021 boot
// into it.
type TempHum struct {
	name   string
	period time.Duration
	drv    tempHumReader
	temp   metrics.Gauge
	rh     metrics.Gauge
	// stale is returned by drivers that report "nothing new" as an error
	stale error
}

func newTempHum(name string, period time.Duration, drv tempHumReader, sink metrics.Sink) (*TempHum, error) {
	g := newGauges(sink, name)
	s := &TempHum{
		name:   name,
		period: period,
		drv:    drv,
		temp:   g.add("temp_degc", "Temperature in degrees Celsius."),
		rh:     g.add("rh_percent", "Relative humidity in percent."),
	}
	if err := g.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *TempHum) Name() string {
	return s.name
}

func (s *TempHum) PollPeriod() time.Duration {
	return s.period
}

func (s *TempHum) Poll(ctx context.Context) error {
	temp, rh, err := s.drv.GetTempAndHum(ctx)
	if s.stale != nil && errors.Is(err, s.stale) {
		slog.Debug("no new data", "sensor", s.name)
		return nil
	}
	if err != nil {
		return err
	}
	slog.Debug("successful read", "sensor", s.name, "temp", temp, "rh", rh)
	s.temp.Set(float64(temp))
	s.rh.Set(float64(rh))
	return nil
}

// BootSHT40 reads the serial number to make sure the sensor answers.
func BootSHT40(ctx context.Context, h *bus.Handle, sink metrics.Sink) (sensor.Sensor, error) {
	slog.Info("connecting to sensor", "sensor", sht40Name)
	drv := environment.NewSHT40(h.Acquire(), environment.SHT40High)
	serial, err := drv.Serial(ctx)
	if err != nil {
		return nil, err
	}
	slog.Debug("sensor serial number", "sensor", sht40Name, "serial", fmt.Sprintf("%#08x", serial))
	s, err := newTempHum(sht40Name, 10*time.Second, drv, sink)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// BootSHTC3 checks the ID register.
func BootSHTC3(ctx context.Context, h *bus.Handle, sink metrics.Sink) (sensor.Sensor, error) {
	slog.Info("connecting to sensor", "sensor", shtc3Name)
	drv := environment.NewSHTC3(h.Acquire())
	if _, err := drv.ID(ctx); err != nil {
		return nil, err
	}
	s, err := newTempHum(shtc3Name, 10*time.Second, drv, sink)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// BootHIH6021 has no handshake. Stale data reported by the sensor is treated
// as no new reading.
func BootHIH6021(_ context.Context, h *bus.Handle, sink metrics.Sink) (sensor.Sensor, error) {
	slog.Info("connecting to sensor", "sensor", hih6021Name)
	s, err := newTempHum(hih6021Name, 10*time.Second, environment.NewHIH6021(h.Acquire()), sink)
	if err != nil {
		return nil, err
	}
	s.stale = environment.ErrStaleData
	return s, nil
}

// BH1750 publishes ambient light.
type BH1750 struct {
	drv *environment.BH1750
	lux metrics.Gauge
}

// BootBH1750 powers the sensor on.
func BootBH1750(ctx context.Context, h *bus.Handle, sink metrics.Sink) (sensor.Sensor, error) {
	slog.Info("connecting to sensor", "sensor", bh1750Name)
	drv := environment.NewBH1750(h.Acquire(), environment.BH1750AddrLow)
	if err := drv.PowerOn(ctx); err != nil {
		return nil, err
	}
	g := newGauges(sink, bh1750Name)
	s := &BH1750{drv: drv, lux: g.add("illuminance_lux", "Ambient light in lux.")}
	if err := g.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *BH1750) Name() string {
	return bh1750Name
}

func (s *BH1750) PollPeriod() time.Duration {
	return 5 * time.Second
}

func (s *BH1750) Poll(ctx context.Context) error {
	lux, err := s.drv.GetLux(ctx)
	if err != nil {
		return err
	}
	slog.Debug("successful read", "sensor", bh1750Name, "lux", lux)
	s.lux.Set(float64(lux))
	return nil
}

// TC74 publishes temperature only.
type TC74 struct {
	drv  *environment.TC74
	temp metrics.Gauge
}

// BootTC74 reads the config register to make sure the sensor answers.
func BootTC74(ctx context.Context, h *bus.Handle, sink metrics.Sink) (sensor.Sensor, error) {
	slog.Info("connecting to sensor", "sensor", tc74Name)
	drv := environment.NewTC74(h.Acquire())
	if _, err := drv.GetConfig(ctx); err != nil {
		return nil, err
	}
	g := newGauges(sink, tc74Name)
	s := &TC74{drv: drv, temp: g.add("temp_degc", "Temperature in degrees Celsius.")}
	if err := g.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *TC74) Name() string {
	return tc74Name
}

func (s *TC74) PollPeriod() time.Duration {
	return 10 * time.Second
}

func (s *TC74) Poll(ctx context.Context) error {
	temp, err := s.drv.GetTemperature(ctx)
	if errors.Is(err, environment.ErrNotReady) {
		slog.Debug("no new data", "sensor", tc74Name)
		return nil
	}
	if err != nil {
		return err
	}
	slog.Debug("successful read", "sensor", tc74Name, "temp", temp)
	s.temp.Set(float64(temp))
	return nil
}
