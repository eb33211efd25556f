package environment

import (
	"context"
	"fmt"
	"time"

	"github.com/mklimuk/airmon"
)

// SHT40 I2C address (7-bit), SHT40-AD1B variant
const sht40Address = 0x44

// Single byte commands
const (
	sht40CmdMeasureHigh   byte = 0xFD
	sht40CmdMeasureMedium byte = 0xF6
	sht40CmdMeasureLow    byte = 0xE0
	sht40CmdReadSerial    byte = 0x89
	sht40CmdSoftReset     byte = 0x94
)

type SHT40Precision byte

const (
	SHT40High   = SHT40Precision(sht40CmdMeasureHigh)
	SHT40Medium = SHT40Precision(sht40CmdMeasureMedium)
	SHT40Low    = SHT40Precision(sht40CmdMeasureLow)
)

// max measurement durations from the datasheet
func (p SHT40Precision) duration() time.Duration {
	switch p {
	case SHT40Medium:
		return 5 * time.Millisecond
	case SHT40Low:
		return 2 * time.Millisecond
	default:
		return 10 * time.Millisecond
	}
}

// SHT40 represents Sensirion SHT4x Temperature/Humidity sensor.
type SHT40 struct {
	transport airmon.I2CBus
	precision SHT40Precision
}

func NewSHT40(trans airmon.I2CBus, precision SHT40Precision) *SHT40 {
	return &SHT40{transport: trans, precision: precision}
}

// Serial reads the unique serial number of the sensor.
func (s *SHT40) Serial(ctx context.Context) (uint32, error) {
	words, err := s.query(ctx, sht40CmdReadSerial, time.Millisecond)
	if err != nil {
		return 0, fmt.Errorf("sht40: could not read serial number: %w", err)
	}
	return uint32(words[0])<<16 | uint32(words[1]), nil
}

func (s *SHT40) SoftReset(ctx context.Context) error {
	if err := s.transport.WriteToAddr(ctx, sht40Address, []byte{sht40CmdSoftReset}); err != nil {
		return fmt.Errorf("sht40: soft reset failed: %w", err)
	}
	return airmon.Sleep(ctx, time.Millisecond)
}

// GetTempAndHum performs a single measurement and returns temperature in
// Celsius and relative humidity in %RH.
func (s *SHT40) GetTempAndHum(ctx context.Context) (float32, float32, error) {
	words, err := s.query(ctx, byte(s.precision), s.precision.duration())
	if err != nil {
		return 0, 0, fmt.Errorf("sht40: measurement failed: %w", err)
	}
	return sht40Temperature(words[0]), sht40Humidity(words[1]), nil
}

func (s *SHT40) query(ctx context.Context, cmd byte, wait time.Duration) ([]uint16, error) {
	if err := s.transport.WriteToAddr(ctx, sht40Address, []byte{cmd}); err != nil {
		return nil, err
	}
	if err := airmon.Sleep(ctx, wait); err != nil {
		return nil, err
	}
	buf := make([]byte, 6)
	if err := s.transport.ReadFromAddr(ctx, sht40Address, buf); err != nil {
		return nil, err
	}
	return airmon.CheckWords("sht40", buf)
}

func sht40Temperature(raw uint16) float32 {
	return -45 + 175*float32(raw)/65535
}

// the formula can leave 0..100 range, the datasheet asks to crop it
func sht40Humidity(raw uint16) float32 {
	rh := -6 + 125*float32(raw)/65535
	switch {
	case rh < 0:
		return 0
	case rh > 100:
		return 100
	}
	return rh
}
