package environment

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/mklimuk/airmon"
)

// SHTC3 I2C address (7-bit)
const shtc3Address = 0x70

// Commands (Big Endian on the wire)
const (
	shtc3CmdWake   uint16 = 0x3517
	shtc3CmdSleep  uint16 = 0xB098
	shtc3CmdReadID uint16 = 0xEFC8

	// Normal power, clock stretching disabled
	// Measure T first, then RH
	shtc3CmdMeasureTFirstNoCS uint16 = 0x7866
)

// bits 11 and 5:0 of the ID register identify the part
const (
	shtc3IDMask  uint16 = 0x083F
	shtc3IDValue uint16 = 0x0807
)

// SHTC3 represents Sensirion SHTC3 Temperature/Humidity sensor
// Typical usage:
//
//	s := NewSHTC3(bus)
//	t, h, err := s.GetTempAndHum(ctx)
type SHTC3 struct {
	transport airmon.I2CBus
}

func NewSHTC3(trans airmon.I2CBus) *SHTC3 {
	return &SHTC3{transport: trans}
}

// ID wakes the sensor, reads its ID register and checks it is an SHTC3.
func (s *SHTC3) ID(ctx context.Context) (uint16, error) {
	if err := s.wake(ctx); err != nil {
		return 0, err
	}
	if err := s.writeCmd(ctx, shtc3CmdReadID); err != nil {
		return 0, fmt.Errorf("shtc3: read id command failed: %w", err)
	}
	buf := make([]byte, 3)
	if err := s.transport.ReadFromAddr(ctx, shtc3Address, buf); err != nil {
		return 0, fmt.Errorf("shtc3: read id failed: %w", err)
	}
	words, err := airmon.CheckWords("shtc3", buf)
	if err != nil {
		return 0, err
	}
	if words[0]&shtc3IDMask != shtc3IDValue {
		return words[0], airmon.Decodef("shtc3", "unexpected id %#04x", words[0])
	}
	return words[0], nil
}

// GetTempAndHum performs a single measurement and returns temperature in
// Celsius and relative humidity in %RH.
func (s *SHTC3) GetTempAndHum(ctx context.Context) (float32, float32, error) {
	if err := s.wake(ctx); err != nil {
		return 0, 0, err
	}

	// Trigger measurement (normal power, no clock stretching, T first)
	if err := s.writeCmd(ctx, shtc3CmdMeasureTFirstNoCS); err != nil {
		return 0, 0, fmt.Errorf("shtc3: measure command failed: %w", err)
	}
	// Typical measurement time ~12.1 ms (normal mode)
	if err := airmon.Sleep(ctx, 15*time.Millisecond); err != nil {
		return 0, 0, err
	}

	// T[0:2], CRC, RH[3:5], CRC
	buf := make([]byte, 6)
	if err := s.transport.ReadFromAddr(ctx, shtc3Address, buf); err != nil {
		return 0, 0, fmt.Errorf("shtc3: read failed: %w", err)
	}
	words, err := airmon.CheckWords("shtc3", buf)
	if err != nil {
		return 0, 0, err
	}

	// T(C) = -45 + 175 * rawT / 65535
	// RH(%) = 100 * rawRH / 65535
	temp := -45.0 + (175.0 * float32(words[0]) / 65535.0)
	hum := 100.0 * float32(words[1]) / 65535.0

	if err := s.writeCmd(ctx, shtc3CmdSleep); err != nil {
		return temp, hum, fmt.Errorf("shtc3: sleep failed: %w", err)
	}
	return temp, hum, nil
}

func (s *SHTC3) wake(ctx context.Context) error {
	if err := s.writeCmd(ctx, shtc3CmdWake); err != nil {
		return fmt.Errorf("shtc3: wake failed: %w", err)
	}
	// wake up time is below 240us
	return airmon.Sleep(ctx, time.Millisecond)
}

func (s *SHTC3) writeCmd(ctx context.Context, cmd uint16) error {
	var out [2]byte
	binary.BigEndian.PutUint16(out[:], cmd)
	return s.transport.WriteToAddr(ctx, shtc3Address, out[:])
}
