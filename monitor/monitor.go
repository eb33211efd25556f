// Package monitor composes the airmon daemon: it opens the bus, publishes the
// outdoor weather once, serves the metrics and runs every configured sensor
// until the context is canceled.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/mklimuk/airmon/bus"
	"github.com/mklimuk/airmon/config"
	"github.com/mklimuk/airmon/metrics"
	"github.com/mklimuk/airmon/sensor"
	"github.com/mklimuk/airmon/weather"
)

const shutdownTimeout = 5 * time.Second

var ErrNoSensors = errors.New("no sensor left running")

// WeatherSource returns the latest observation of a station.
type WeatherSource interface {
	Latest(ctx context.Context, station string) (weather.Observation, error)
}

type BusOpener func(ctx context.Context, cfg bus.Config) (*bus.Handle, error)

type Listener func(addr string) (net.Listener, error)

// MQTTDialer connects to the broker and returns a publisher with its
// disconnect function.
type MQTTDialer func(cfg config.MQTT) (metrics.Publisher, func(), error)

type Opts struct {
	OpenBus  BusOpener
	Weather  WeatherSource
	Listen   Listener
	DialMQTT MQTTDialer
	Clock    clock.Clock
	Logger   *slog.Logger
}

type Opt func(*Opts)

func WithBusOpener(open BusOpener) Opt {
	return func(o *Opts) {
		o.OpenBus = open
	}
}

func WithWeather(w WeatherSource) Opt {
	return func(o *Opts) {
		o.Weather = w
	}
}

func WithListener(l Listener) Opt {
	return func(o *Opts) {
		o.Listen = l
	}
}

func WithMQTTDialer(d MQTTDialer) Opt {
	return func(o *Opts) {
		o.DialMQTT = d
	}
}

func WithClock(c clock.Clock) Opt {
	return func(o *Opts) {
		o.Clock = c
	}
}

func WithLogger(l *slog.Logger) Opt {
	return func(o *Opts) {
		o.Logger = l
	}
}

func dialMQTT(cfg config.MQTT) (metrics.Publisher, func(), error) {
	client, err := metrics.DialMQTT(cfg.Broker, cfg.ClientID, 10*time.Second)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { client.Disconnect(250) }, nil
}

type Monitor struct {
	cfg   config.Config
	kinds []sensor.Kind
	opts  Opts
}

func New(cfg config.Config, kinds []sensor.Kind, opts ...Opt) *Monitor {
	o := Opts{
		OpenBus:  bus.Open,
		Weather:  weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.UserAgent, cfg.Weather.Timeout),
		Listen:   metrics.Listen,
		DialMQTT: dialMQTT,
		Clock:    clock.New(),
		Logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Monitor{cfg: cfg, kinds: kinds, opts: o}
}

// Run blocks until ctx is canceled or every sensor stopped. Failing to open
// the bus, fetch the weather, connect to the broker or bind the metrics
// listener is fatal and returned before any sensor starts. A canceled ctx
// makes Run return nil once everything shut down.
func (m *Monitor) Run(ctx context.Context) (err error) {
	log := m.opts.Logger
	h, err := m.opts.OpenBus(ctx, m.cfg.Bus)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("could not close bus: %w", cerr))
		}
	}()
	log.Info("bus open", "backend", m.cfg.Bus.Backend, "device", m.cfg.Bus.Device)

	registry := metrics.NewPrometheusRegistry()
	var sink metrics.Sink = metrics.NewRegistry(registry)
	if m.cfg.MQTT.Enabled() {
		pub, disconnect, err := m.opts.DialMQTT(m.cfg.MQTT)
		if err != nil {
			return fmt.Errorf("could not connect to mqtt broker %s: %w", m.cfg.MQTT.Broker, err)
		}
		defer disconnect()
		sink = metrics.Tee(sink, metrics.NewMQTT(pub, m.cfg.MQTT.Topic))
		log.Info("mirroring metrics to mqtt", "broker", m.cfg.MQTT.Broker, "topic", m.cfg.MQTT.Topic)
	}

	station := m.cfg.Weather.Station
	obs, err := m.opts.Weather.Latest(ctx, station)
	if err != nil {
		return fmt.Errorf("could not fetch weather: %w", err)
	}
	log.Info("weather observation", "station", station, "observation", obs)
	if err := obs.Publish(sink, station); err != nil {
		return err
	}

	ln, err := m.opts.Listen(m.cfg.Listen)
	if err != nil {
		return err
	}
	exporter := metrics.NewExporter(ln, registry)
	log.Info("serving metrics", "addr", exporter.Addr().String())

	scheduler := sensor.NewScheduler(h, sink, sensor.WithClock(m.opts.Clock), sensor.WithLogger(log))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := exporter.Serve(); err != nil {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return exporter.Shutdown(sctx)
	})
	g.Go(func() error {
		err := sensor.RunAll(gctx, scheduler, m.kinds)
		if gctx.Err() != nil {
			// shutting down; sensor failures were logged as they happened
			return nil
		}
		if err == nil {
			return ErrNoSensors
		}
		return fmt.Errorf("%w: %w", ErrNoSensors, err)
	})
	err = g.Wait()
	log.Info("monitor stopped")
	return err
}
