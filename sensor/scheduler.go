package sensor

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/mklimuk/airmon/bus"
	"github.com/mklimuk/airmon/metrics"
)

type SchedulerOpts struct {
	Clock  clock.Clock
	Logger *slog.Logger
}

type SchedulerOpt func(*SchedulerOpts)

func WithClock(c clock.Clock) SchedulerOpt {
	return func(o *SchedulerOpts) {
		o.Clock = c
	}
}

func WithLogger(l *slog.Logger) SchedulerOpt {
	return func(o *SchedulerOpts) {
		o.Logger = l
	}
}

// Scheduler boots sensors against one bus and keeps polling them. A single
// Scheduler can run any number of sensors; each Run call owns one of them.
type Scheduler struct {
	bus    *bus.Handle
	sink   metrics.Sink
	clock  clock.Clock
	logger *slog.Logger
}

func NewScheduler(h *bus.Handle, sink metrics.Sink, opts ...SchedulerOpt) *Scheduler {
	config := SchedulerOpts{
		Clock:  clock.New(),
		Logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Scheduler{
		bus:    h,
		sink:   sink,
		clock:  config.Clock,
		logger: config.Logger,
	}
}

// Run boots kind and polls it until ctx is done. The first poll happens right
// after boot; every following one PollPeriod after the previous attempt
// finished, whether it succeeded or not.
//
// Run returns a *BootError if the sensor cannot be booted and nil once ctx is
// canceled. Poll errors never end the loop.
func (s *Scheduler) Run(ctx context.Context, kind Kind) error {
	log := s.logger.With("sensor", kind.Name)
	log.Info("booting sensor")
	sn, err := kind.Boot(ctx, s.bus, s.sink)
	if err != nil {
		return &BootError{Sensor: kind.Name, Err: err}
	}
	h, err := newHealth(s.sink, sn.Name())
	if err != nil {
		return &BootError{Sensor: kind.Name, Err: err}
	}
	log.Info("sensor booted", "period", sn.PollPeriod())

	next := s.clock.Now()
	for {
		if err := s.waitUntil(ctx, next); err != nil {
			log.Info("sensor loop stopped")
			return nil
		}
		err := sn.Poll(ctx)
		switch {
		case err == nil:
			h.succeeded(s.clock.Now())
			log.Debug("sensor polled")
		case ctx.Err() != nil:
			log.Info("sensor loop stopped")
			return nil
		default:
			// TODO: back off (or reboot the sensor) after repeated failures
			n := h.failed()
			log.Warn("poll failed", "error", &PollError{Sensor: sn.Name(), Err: err}, "consecutive", n)
		}
		next = s.clock.Now().Add(sn.PollPeriod())
	}
}

// waitUntil is the only suspension point of the loop.
func (s *Scheduler) waitUntil(ctx context.Context, t time.Time) error {
	d := t.Sub(s.clock.Now())
	if d <= 0 {
		return ctx.Err()
	}
	timer := s.clock.Timer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
