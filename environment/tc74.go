package environment

import (
	"context"
	"errors"
	"fmt"

	"github.com/mklimuk/airmon"
)

const TC74Address = 0x4D
const tc74TempRegister = 0x00
const tc74ConfigRegister = 0x01

// DATA_RDY bit of the config register, cleared until the first conversion
// after power up or standby
const tc74DataReady = 0x40

var ErrNotReady = errors.New("no conversion available yet")

// TC74 represents a Microchip TC74 Digital Temperature Sensor
// See: https://ww1.microchip.com/downloads/en/DeviceDoc/21462D.pdf
type TC74 struct {
	transport airmon.I2CBus
	address   byte
}

type TC74Config struct {
	Address byte
}

type TC74ConfigOption func(*TC74Config)

func WithAddress(address byte) TC74ConfigOption {
	return func(c *TC74Config) {
		c.Address = address
	}
}

func NewTC74(trans airmon.I2CBus, opts ...TC74ConfigOption) *TC74 {
	config := &TC74Config{
		Address: TC74Address,
	}
	for _, opt := range opts {
		opt(config)
	}
	return &TC74{transport: trans, address: config.Address}
}

// GetConfig reads the configuration register.
func (sensor *TC74) GetConfig(ctx context.Context) (byte, error) {
	return sensor.readRegister(ctx, tc74ConfigRegister)
}

// GetTemperature reads the temperature in Celsius. It returns ErrNotReady
// until the sensor completed its first conversion.
func (sensor *TC74) GetTemperature(ctx context.Context) (float32, error) {
	config, err := sensor.GetConfig(ctx)
	if err != nil {
		return 0, err
	}
	if config&tc74DataReady == 0 {
		return 0, ErrNotReady
	}
	raw, err := sensor.readRegister(ctx, tc74TempRegister)
	if err != nil {
		return 0, err
	}
	// 2's complement, 1 °C per bit
	return float32(int8(raw)), nil
}

func (sensor *TC74) readRegister(ctx context.Context, reg byte) (byte, error) {
	err := sensor.transport.WriteToAddr(ctx, sensor.address, []byte{reg})
	if err != nil {
		return 0, fmt.Errorf("tc74: could not select register %#x: %w", reg, err)
	}
	resp := make([]byte, 1)
	err = sensor.transport.ReadFromAddr(ctx, sensor.address, resp)
	if err != nil {
		return 0, fmt.Errorf("tc74: could not read register %#x: %w", reg, err)
	}
	return resp[0], nil
}
