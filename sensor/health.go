package sensor

import (
	"time"

	"github.com/mklimuk/airmon/metrics"
)

// health publishes the scheduler's own view of a sensor next to its readings.
type health struct {
	up                  metrics.Gauge
	consecutiveFailures metrics.Gauge
	lastSuccess         metrics.Gauge
	failures            int
}

func newHealth(sink metrics.Sink, name string) (*health, error) {
	labels := metrics.Labels{"sensor": name}
	up, err := sink.Gauge("sensor_up", "1 if the last poll of the sensor succeeded, 0 otherwise.", labels)
	if err != nil {
		return nil, err
	}
	failures, err := sink.Gauge("sensor_consecutive_failures", "Number of poll failures since the last successful poll.", labels)
	if err != nil {
		return nil, err
	}
	last, err := sink.Gauge("sensor_last_success_timestamp_seconds", "Unix time of the last successful poll.", labels)
	if err != nil {
		return nil, err
	}
	return &health{up: up, consecutiveFailures: failures, lastSuccess: last}, nil
}

func (h *health) succeeded(at time.Time) {
	h.failures = 0
	h.up.Set(1)
	h.consecutiveFailures.Set(0)
	h.lastSuccess.Set(float64(at.UnixNano()) / 1e9)
}

func (h *health) failed() int {
	h.failures++
	h.up.Set(0)
	h.consecutiveFailures.Set(float64(h.failures))
	return h.failures
}
