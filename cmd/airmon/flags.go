package main

import (
	"context"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/airmon/bus"
	"github.com/mklimuk/airmon/config"
	"github.com/mklimuk/airmon/snsctx"
)

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "path to the YAML configuration file",
	EnvVars: []string{"AIRMON_CONFIG"},
}

var busFlags = []cli.Flag{
	configFlag,
	&cli.StringFlag{
		Name:    "backend",
		Usage:   "bus backend: " + strings.Join(bus.Backends, ", "),
		EnvVars: []string{"AIRMON_BUS_BACKEND"},
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"d"},
		Usage:   "I2C device, e.g. /dev/i2c-1",
		EnvVars: []string{"AIRMON_BUS_DEVICE"},
	},
	&cli.IntFlag{
		Name:    "speed",
		Usage:   "I2C clock in kHz (0 keeps the current one)",
		EnvVars: []string{"AIRMON_BUS_SPEED_KHZ"},
	},
}

var daemonFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "listen",
		Usage:   "metrics listen address",
		EnvVars: []string{"AIRMON_LISTEN"},
	},
	&cli.StringSliceFlag{
		Name:    "sensor",
		Aliases: []string{"s"},
		Usage:   "sensor to run (repeatable), overrides the configured list",
		EnvVars: []string{"AIRMON_SENSORS"},
	},
	&cli.StringFlag{
		Name:    "station",
		Usage:   "weather station for the outdoor observation",
		EnvVars: []string{"AIRMON_WEATHER_STATION"},
	},
	&cli.StringFlag{
		Name:    "mqtt-broker",
		Usage:   "mirror gauges to this MQTT broker, e.g. tcp://localhost:1883",
		EnvVars: []string{"AIRMON_MQTT_BROKER"},
	},
}

// loadConfig reads the configuration file, if any, and applies the flags
// that were set explicitly (or through their environment variables).
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return cfg, err
		}
	}
	if c.IsSet("backend") {
		cfg.Bus.Backend = c.String("backend")
	}
	if c.IsSet("device") {
		cfg.Bus.Device = c.String("device")
	}
	if c.IsSet("speed") {
		cfg.Bus.SpeedKHz = c.Int("speed")
	}
	if c.IsSet("listen") {
		cfg.Listen = c.String("listen")
	}
	if c.IsSet("sensor") {
		cfg.Sensors = c.StringSlice("sensor")
	}
	if c.IsSet("station") {
		cfg.Weather.Station = c.String("station")
	}
	if c.IsSet("mqtt-broker") {
		cfg.MQTT.Broker = c.String("mqtt-broker")
	}
	return cfg, cfg.Validate()
}

func verboseContext(ctx context.Context, c *cli.Context) context.Context {
	return snsctx.SetVerbose(ctx, c.Bool("verbose"))
}
