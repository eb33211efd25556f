package device

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mklimuk/airmon/air"
	"github.com/mklimuk/airmon/bus"
	"github.com/mklimuk/airmon/metrics"
	"github.com/mklimuk/airmon/sensor"
)

const ags02maName = "AGS02MA"

// AGS02MA publishes TVOC. The sensor only works with the bus clocked at 30 kHz
// or less (bus.speed_khz).
type AGS02MA struct {
	drv  *air.AGS02MA
	tvoc metrics.Gauge
}

// BootAGS02MA reads the firmware version.
func BootAGS02MA(ctx context.Context, h *bus.Handle, sink metrics.Sink) (sensor.Sensor, error) {
	slog.Info("connecting to sensor", "sensor", ags02maName)
	drv := air.NewAGS02MA(h.Acquire())
	version, err := drv.ReadVersion(ctx)
	if err != nil {
		return nil, err
	}
	slog.Debug("sensor firmware", "sensor", ags02maName, "version", version)
	g := newGauges(sink, ags02maName)
	s := &AGS02MA{drv: drv, tvoc: g.add("tvoc_ppb", "Total volatile organic compounds in ppb.")}
	if err := g.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *AGS02MA) Name() string {
	return ags02maName
}

func (s *AGS02MA) PollPeriod() time.Duration {
	return 5 * time.Second
}

func (s *AGS02MA) Poll(ctx context.Context) error {
	ppb, err := s.drv.GetTVOC(ctx)
	if errors.Is(err, air.ErrNotReady) {
		slog.Debug("sensor pre-heating", "sensor", ags02maName)
		return nil
	}
	if err != nil {
		return err
	}
	slog.Debug("successful read", "sensor", ags02maName, "tvoc", ppb)
	s.tvoc.Set(float64(ppb))
	return nil
}
