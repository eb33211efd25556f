// Package config holds the airmon configuration file model.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/airmon/bus"
	"github.com/mklimuk/airmon/weather"
)

// Version is injected at build time.
var Version = "dev"

type Config struct {
	Bus     bus.Config `yaml:"bus"`
	Listen  string     `yaml:"listen"`
	Weather Weather    `yaml:"weather"`
	Sensors []string   `yaml:"sensors"`
	MQTT    MQTT       `yaml:"mqtt"`
}

type Weather struct {
	Station   string        `yaml:"station"`
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// MQTT mirrors gauges to a broker when Broker is set.
type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

func (m MQTT) Enabled() bool {
	return m.Broker != ""
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Bus: bus.Config{
			Backend: bus.BackendPeriph,
			Device:  "/dev/i2c-1",
		},
		Listen: "0.0.0.0:9000",
		Weather: Weather{
			Station:   "KNYC",
			BaseURL:   weather.DefaultBaseURL,
			UserAgent: fmt.Sprintf("airmon/%s", Version),
			Timeout:   10 * time.Second,
		},
		Sensors: []string{"scd30", "pmsa003i", "sht40"},
		MQTT: MQTT{
			ClientID: "airmon",
			Topic:    "airmon",
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("could not open config file: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("could not parse config file %s: %w", path, err)
	}
	return cfg, nil
}

var ErrInvalid = errors.New("invalid configuration")

// Validate reports every problem found at once.
func (c Config) Validate() error {
	var err error
	if !lo.Contains(bus.Backends, c.Bus.Backend) {
		err = multierr.Append(err, fmt.Errorf("unknown bus backend %q (one of: %s)", c.Bus.Backend, strings.Join(bus.Backends, ", ")))
	}
	if c.Bus.Backend == bus.BackendPeriph && c.Bus.Device == "" {
		err = multierr.Append(err, errors.New("bus device is required for the periph backend"))
	}
	if c.Listen == "" {
		err = multierr.Append(err, errors.New("listen address is empty"))
	}
	if c.Weather.Station == "" {
		err = multierr.Append(err, errors.New("weather station is empty"))
	}
	if len(c.Sensors) == 0 {
		err = multierr.Append(err, errors.New("no sensors configured"))
	}
	if lo.Contains(c.Sensors, "") {
		err = multierr.Append(err, errors.New("empty sensor name"))
	}
	normalized := lo.Map(c.Sensors, func(s string, _ int) string {
		return strings.ToLower(s)
	})
	if dups := lo.FindDuplicates(normalized); len(dups) > 0 {
		err = multierr.Append(err, fmt.Errorf("duplicated sensors: %s", strings.Join(dups, ", ")))
	}
	if c.MQTT.Enabled() && c.MQTT.Topic == "" {
		err = multierr.Append(err, errors.New("mqtt topic is empty"))
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Dump renders c as YAML.
func (c Config) Dump() ([]byte, error) {
	return yaml.Marshal(c)
}
