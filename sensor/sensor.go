// Package sensor runs sensor adapters: it boots each one against the shared
// bus and drives an independent polling loop for it.
package sensor

import (
	"context"
	"fmt"
	"time"

	"github.com/mklimuk/airmon/bus"
	"github.com/mklimuk/airmon/metrics"
)

// Sensor is a booted adapter for one physical sensor.
type Sensor interface {
	// Name is the sensor identity used in logs and as the "sensor" label.
	Name() string
	// Poll performs one measurement cycle and updates the adapter's gauges.
	// Finding no new data is not an error: Poll returns nil and leaves the
	// gauges alone.
	Poll(ctx context.Context) error
	// PollPeriod is the wait between the end of a poll attempt and the start
	// of the next one.
	PollPeriod() time.Duration
}

// BootFunc initializes a sensor: it acquires a bus proxy, runs the vendor
// handshake and registers the adapter's gauges in sink.
type BootFunc func(ctx context.Context, h *bus.Handle, sink metrics.Sink) (Sensor, error)

// Kind is a sensor type that can be booted.
type Kind struct {
	Name string
	Boot BootFunc
}

// BootError is fatal to the scheduler of one sensor.
type BootError struct {
	Sensor string
	Err    error
}

func (e *BootError) Error() string {
	return fmt.Sprintf("could not boot %s: %v", e.Sensor, e.Err)
}

func (e *BootError) Unwrap() error {
	return e.Err
}

// PollError is a failed measurement cycle. The scheduler logs it and tries
// again after the regular period.
type PollError struct {
	Sensor string
	Err    error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("error polling %s: %v", e.Sensor, e.Err)
}

func (e *PollError) Unwrap() error {
	return e.Err
}
