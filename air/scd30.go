package air

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/mklimuk/airmon"
)

// SCD30 default 7-bit I2C address.
const scd30Address = 0x61

// Commands (Big Endian on the wire). Commands with an argument are followed
// by one 16-bit word and its CRC.
const (
	scd30CmdStartContinuous   uint16 = 0x0010
	scd30CmdStopContinuous    uint16 = 0x0104
	scd30CmdMeasureInterval   uint16 = 0x4600
	scd30CmdDataReady         uint16 = 0x0202
	scd30CmdReadMeasurement   uint16 = 0x0300
	scd30CmdSelfCalibration   uint16 = 0x5306
	scd30CmdForcedRecalibrate uint16 = 0x5204
	scd30CmdFirmwareVersion   uint16 = 0xD100
	scd30CmdSoftReset         uint16 = 0xD304
)

// SCD30Measurement is one reading of the sensor.
type SCD30Measurement struct {
	CO2         float32 // ppm
	Temperature float32 // °C
	Humidity    float32 // %RH
}

func (m SCD30Measurement) String() string {
	return fmt.Sprintf("co2=%.1fppm temp=%.2f°C rh=%.2f%%", m.CO2, m.Temperature, m.Humidity)
}

type SCD30Opts struct {
	// ReadDelay separates a command from the read of its response. The
	// datasheet asks for at least 3 ms.
	ReadDelay time.Duration
}

type SCD30Opt func(*SCD30Opts)

func WithSCD30ReadDelay(delay time.Duration) SCD30Opt {
	return func(o *SCD30Opts) {
		o.ReadDelay = delay
	}
}

// SCD30 represents Sensirion SCD30 CO2, temperature and humidity module.
// Typical usage:
//
//	s := NewSCD30(bus)
//	_ = s.StartContinuous(ctx, 0)
//	if ready, _ := s.DataReady(ctx); ready {
//		m, err := s.ReadMeasurement(ctx)
//	}
//
// The module measures on its own once started; the host only collects.
type SCD30 struct {
	transport airmon.I2CBus
	config    SCD30Opts
}

func NewSCD30(transport airmon.I2CBus, opts ...SCD30Opt) *SCD30 {
	config := SCD30Opts{
		ReadDelay: 5 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &SCD30{transport: transport, config: config}
}

// FirmwareVersion returns major and minor firmware version.
func (s *SCD30) FirmwareVersion(ctx context.Context) (byte, byte, error) {
	words, err := s.query(ctx, scd30CmdFirmwareVersion, 1)
	if err != nil {
		return 0, 0, fmt.Errorf("scd30: could not read firmware version: %w", err)
	}
	return byte(words[0] >> 8), byte(words[0]), nil
}

// StartContinuous starts periodic measurements. pressure is the ambient
// pressure in mbar used for compensation; 0 disables compensation.
func (s *SCD30) StartContinuous(ctx context.Context, pressure uint16) error {
	if pressure != 0 && (pressure < 700 || pressure > 1400) {
		return fmt.Errorf("scd30: ambient pressure %d mbar out of range [700, 1400]", pressure)
	}
	if err := s.writeCmdArg(ctx, scd30CmdStartContinuous, pressure); err != nil {
		return fmt.Errorf("scd30: could not start continuous measurement: %w", err)
	}
	return nil
}

func (s *SCD30) StopContinuous(ctx context.Context) error {
	if err := s.writeCmd(ctx, scd30CmdStopContinuous); err != nil {
		return fmt.Errorf("scd30: could not stop continuous measurement: %w", err)
	}
	return nil
}

// SetMeasurementInterval sets the interval between measurements (2..1800 s).
func (s *SCD30) SetMeasurementInterval(ctx context.Context, interval time.Duration) error {
	secs := interval / time.Second
	if secs < 2 || secs > 1800 {
		return fmt.Errorf("scd30: measurement interval %v out of range [2s, 1800s]", interval)
	}
	if err := s.writeCmdArg(ctx, scd30CmdMeasureInterval, uint16(secs)); err != nil {
		return fmt.Errorf("scd30: could not set measurement interval: %w", err)
	}
	return nil
}

// SetSelfCalibration turns automatic self calibration on or off.
func (s *SCD30) SetSelfCalibration(ctx context.Context, enabled bool) error {
	var arg uint16
	if enabled {
		arg = 1
	}
	if err := s.writeCmdArg(ctx, scd30CmdSelfCalibration, arg); err != nil {
		return fmt.Errorf("scd30: could not set self calibration: %w", err)
	}
	return nil
}

// ForceRecalibration tells the sensor the current CO2 concentration
// (400..2000 ppm). The sensor must have been measuring in a stable
// environment for at least two minutes.
func (s *SCD30) ForceRecalibration(ctx context.Context, ppm uint16) error {
	if ppm < 400 || ppm > 2000 {
		return fmt.Errorf("scd30: reference concentration %d ppm out of range [400, 2000]", ppm)
	}
	if err := s.writeCmdArg(ctx, scd30CmdForcedRecalibrate, ppm); err != nil {
		return fmt.Errorf("scd30: could not force recalibration: %w", err)
	}
	return nil
}

func (s *SCD30) SoftReset(ctx context.Context) error {
	if err := s.writeCmd(ctx, scd30CmdSoftReset); err != nil {
		return fmt.Errorf("scd30: soft reset failed: %w", err)
	}
	return nil
}

// DataReady reports whether a new measurement can be read.
func (s *SCD30) DataReady(ctx context.Context) (bool, error) {
	words, err := s.query(ctx, scd30CmdDataReady, 1)
	if err != nil {
		return false, fmt.Errorf("scd30: could not check data ready status: %w", err)
	}
	return words[0] == 1, nil
}

// ReadMeasurement reads the last measurement. Check DataReady first.
func (s *SCD30) ReadMeasurement(ctx context.Context) (SCD30Measurement, error) {
	words, err := s.query(ctx, scd30CmdReadMeasurement, 6)
	if err != nil {
		return SCD30Measurement{}, fmt.Errorf("scd30: could not read measurement: %w", err)
	}
	return SCD30Measurement{
		CO2:         wordsToFloat(words[0], words[1]),
		Temperature: wordsToFloat(words[2], words[3]),
		Humidity:    wordsToFloat(words[4], words[5]),
	}, nil
}

// query writes cmd and reads n CRC protected words back.
func (s *SCD30) query(ctx context.Context, cmd uint16, n int) ([]uint16, error) {
	if err := s.writeCmd(ctx, cmd); err != nil {
		return nil, err
	}
	if err := airmon.Sleep(ctx, s.config.ReadDelay); err != nil {
		return nil, err
	}
	buf := make([]byte, 3*n)
	if err := s.transport.ReadFromAddr(ctx, scd30Address, buf); err != nil {
		return nil, err
	}
	return airmon.CheckWords("scd30", buf)
}

func (s *SCD30) writeCmd(ctx context.Context, cmd uint16) error {
	var out [2]byte
	binary.BigEndian.PutUint16(out[:], cmd)
	return s.transport.WriteToAddr(ctx, scd30Address, out[:])
}

func (s *SCD30) writeCmdArg(ctx context.Context, cmd uint16, arg uint16) error {
	var out [5]byte
	binary.BigEndian.PutUint16(out[0:2], cmd)
	binary.BigEndian.PutUint16(out[2:4], arg)
	out[4] = airmon.CRC8(out[2:4])
	return s.transport.WriteToAddr(ctx, scd30Address, out[:])
}

// measurements are IEEE754 floats split in two big endian words
func wordsToFloat(msw, lsw uint16) float32 {
	return math.Float32frombits(uint32(msw)<<16 | uint32(lsw))
}
