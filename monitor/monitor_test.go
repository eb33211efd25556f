package monitor

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/airmon/bus"
	"github.com/mklimuk/airmon/config"
	"github.com/mklimuk/airmon/i2c/i2ctest"
	"github.com/mklimuk/airmon/metrics"
	"github.com/mklimuk/airmon/sensor"
	"github.com/mklimuk/airmon/weather"
)

type fakeWeather struct {
	obs   weather.Observation
	err   error
	calls int
}

func (f *fakeWeather) Latest(_ context.Context, _ string) (weather.Observation, error) {
	f.calls++
	return f.obs, f.err
}

// closingBus is a mock transport that also records Close.
type closingBus struct {
	i2ctest.MockBus
	closed chan struct{}
}

func (b *closingBus) Close() error {
	close(b.closed)
	return nil
}

type constSensor struct {
	gauge metrics.Gauge
}

func (s *constSensor) Name() string               { return "FAKE" }
func (s *constSensor) PollPeriod() time.Duration { return 10 * time.Millisecond }
func (s *constSensor) Poll(context.Context) error {
	s.gauge.Set(42)
	return nil
}

var fakeKind = sensor.Kind{
	Name: "fake",
	Boot: func(_ context.Context, _ *bus.Handle, sink metrics.Sink) (sensor.Sensor, error) {
		g, err := sink.Gauge("co2_ppm", "CO2 concentration in ppm.", metrics.Labels{"sensor": "FAKE"})
		if err != nil {
			return nil, err
		}
		return &constSensor{gauge: g}, nil
	},
}

var brokenKind = sensor.Kind{
	Name: "broken",
	Boot: func(context.Context, *bus.Handle, metrics.Sink) (sensor.Sensor, error) {
		return nil, errors.New("no answer")
	},
}

type fixture struct {
	bus     *closingBus
	weather *fakeWeather
	ln      net.Listener
	opts    []Opt
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	f := &fixture{
		bus:     &closingBus{closed: make(chan struct{})},
		weather: &fakeWeather{obs: weather.Observation{Temperature: 18.3, RelativeHumidity: 54.1, BarometricPressure: 101490}},
		ln:      ln,
	}
	f.opts = []Opt{
		WithBusOpener(func(context.Context, bus.Config) (*bus.Handle, error) {
			return bus.New(f.bus), nil
		}),
		WithWeather(f.weather),
		WithListener(func(string) (net.Listener, error) {
			return f.ln, nil
		}),
	}
	return f
}

func scrape(t *testing.T, addr string) string {
	t.Helper()
	res, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		return ""
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return ""
	}
	return string(body)
}

func TestMonitor_RunAndShutdown(t *testing.T) {
	f := newFixture(t)
	m := New(config.Default(), []sensor.Kind{fakeKind, brokenKind}, f.opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- m.Run(ctx)
	}()

	addr := f.ln.Addr().String()
	require.Eventually(t, func() bool {
		body := scrape(t, addr)
		return strings.Contains(body, `co2_ppm{sensor="FAKE"} 42`) &&
			strings.Contains(body, `weather_pressure_pa{station="KNYC"} 101490`) &&
			strings.Contains(body, `sensor_up{sensor="FAKE"} 1`)
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop")
	}
	<-f.bus.closed
	assert.Equal(t, 1, f.weather.calls)
}

func TestMonitor_BusOpenFailure(t *testing.T) {
	f := newFixture(t)
	openErr := &bus.OpenError{Backend: "periph", Device: "/dev/i2c-9", Err: errors.New("no such file or directory")}
	opts := append(f.opts, WithBusOpener(func(context.Context, bus.Config) (*bus.Handle, error) {
		return nil, openErr
	}))
	err := New(config.Default(), []sensor.Kind{fakeKind}, opts...).Run(context.Background())
	var target *bus.OpenError
	require.ErrorAs(t, err, &target)
	assert.Zero(t, f.weather.calls)
}

func TestMonitor_WeatherFailure(t *testing.T) {
	f := newFixture(t)
	f.weather.err = errors.New("503 service unavailable")
	err := New(config.Default(), []sensor.Kind{fakeKind}, f.opts...).Run(context.Background())
	assert.ErrorContains(t, err, "could not fetch weather")
	<-f.bus.closed
}

func TestMonitor_BindFailure(t *testing.T) {
	f := newFixture(t)
	opts := append(f.opts, WithListener(func(addr string) (net.Listener, error) {
		return nil, errors.New("address already in use")
	}))
	err := New(config.Default(), []sensor.Kind{fakeKind}, opts...).Run(context.Background())
	assert.ErrorContains(t, err, "address already in use")
	<-f.bus.closed
}

func TestMonitor_AllSensorsFailToBoot(t *testing.T) {
	f := newFixture(t)
	err := New(config.Default(), []sensor.Kind{brokenKind}, f.opts...).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoSensors)
	var bootErr *sensor.BootError
	assert.ErrorAs(t, err, &bootErr)
	<-f.bus.closed
}

type fakeToken struct {
	mqtt.Token
}

func (fakeToken) WaitTimeout(time.Duration) bool { return true }
func (fakeToken) Error() error                   { return nil }

type chanPublisher chan string

func (p chanPublisher) Publish(topic string, _ byte, _ bool, _ interface{}) mqtt.Token {
	select {
	case p <- topic:
	default:
	}
	return fakeToken{}
}

func TestMonitor_MQTTMirror(t *testing.T) {
	f := newFixture(t)
	pub := make(chanPublisher, 64)
	disconnected := make(chan struct{})
	opts := append(f.opts, WithMQTTDialer(func(cfg config.MQTT) (metrics.Publisher, func(), error) {
		assert.Equal(t, "tcp://broker:1883", cfg.Broker)
		return pub, func() { close(disconnected) }, nil
	}))
	cfg := config.Default()
	cfg.MQTT.Broker = "tcp://broker:1883"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(cfg, []sensor.Kind{fakeKind}, opts...).Run(ctx)
	}()
	timeout := time.After(5 * time.Second)
	for topic := ""; topic != "airmon/FAKE/co2_ppm"; {
		select {
		case topic = <-pub:
		case <-timeout:
			t.Fatal("gauge was not mirrored to mqtt")
		}
	}
	cancel()
	require.NoError(t, <-done)
	<-disconnected
}

func TestMonitor_MQTTDialFailure(t *testing.T) {
	f := newFixture(t)
	opts := append(f.opts, WithMQTTDialer(func(config.MQTT) (metrics.Publisher, func(), error) {
		return nil, nil, errors.New("connection refused")
	}))
	cfg := config.Default()
	cfg.MQTT.Broker = "tcp://broker:1883"
	err := New(cfg, []sensor.Kind{fakeKind}, opts...).Run(context.Background())
	assert.ErrorContains(t, err, "could not connect to mqtt broker")
	assert.Zero(t, f.weather.calls)
}
