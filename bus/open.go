package bus

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
	"gobot.io/x/gobot/v2/platforms/raspi"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/airmon"
	"github.com/mklimuk/airmon/adapter"
	"github.com/mklimuk/airmon/i2c"
)

// Supported transports.
const (
	BackendPeriph  = "periph"
	BackendMCP2221 = "mcp2221"
	BackendNanoPi  = "nanopi"
	BackendRaspi   = "raspi"
)

// Backends lists the accepted Config.Backend values.
var Backends = []string{BackendPeriph, BackendMCP2221, BackendNanoPi, BackendRaspi}

// Config selects and parametrizes the bus transport.
type Config struct {
	Backend  string `yaml:"backend"`
	Device   string `yaml:"device"`
	SpeedKHz int    `yaml:"speed_khz"`
}

// OpenError is returned when the bus device cannot be opened at startup.
type OpenError struct {
	Backend string
	Device  string
	Err     error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("could not open %s bus %q: %v", e.Backend, e.Device, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// Open opens the configured transport once and wraps it in a Handle.
func Open(ctx context.Context, cfg Config) (*Handle, error) {
	t, err := openTransport(ctx, cfg)
	if err != nil {
		return nil, &OpenError{Backend: cfg.Backend, Device: cfg.Device, Err: err}
	}
	return New(t), nil
}

func openTransport(ctx context.Context, cfg Config) (airmon.I2CBus, error) {
	switch cfg.Backend {
	case BackendPeriph, "":
		b, err := i2c.NewGenericBus(cfg.Device)
		if err != nil {
			return nil, err
		}
		if cfg.SpeedKHz > 0 {
			if err := b.SetSpeed(physic.Frequency(cfg.SpeedKHz) * physic.KiloHertz); err != nil {
				_ = b.Close()
				return nil, fmt.Errorf("could not set bus speed: %w", err)
			}
		}
		return b, nil
	case BackendMCP2221:
		a := adapter.NewMCP2221()
		if err := a.Init(ctx, cfg.SpeedKHz); err != nil {
			return nil, err
		}
		return a, nil
	case BackendNanoPi:
		return i2c.NewGobotBus(nanopi.NewNeoAdaptor(), busNumber(cfg.Device))
	case BackendRaspi:
		return i2c.NewGobotBus(raspi.NewAdaptor(), busNumber(cfg.Device))
	default:
		return nil, fmt.Errorf("unknown bus backend %q", cfg.Backend)
	}
}

// busNumber extracts N from "/dev/i2c-N" (or a bare "N"); -1 means the
// adaptor default.
func busNumber(device string) int {
	idx := strings.LastIndexAny(device, "-/")
	n, err := strconv.Atoi(device[idx+1:])
	if err != nil {
		return -1
	}
	return n
}
