package air

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mklimuk/airmon"
)

// AGS02MA default 7-bit I2C address is 0x1A.
// Datasheet also mentions write/read instructions 0x34/0x35 which are the
// 8-bit bus addresses (0x1A<<1 | 0 for write, | 1 for read) used on the wire.
const ags02maAddress = 0x1A

// Register/command map (per datasheet)
//
//	0x00: TVOC readout (first byte is status, next three bytes are TVOC ppb)
const (
	regTVOC       byte = 0x00
	regCalibrate  byte = 0x01
	regVersion    byte = 0x11
	regResistance byte = 0x20
)

// Status byte bit definitions (Data1):
// Bit0: RDY (0 = ready, 1 = not ready or pre-heat)
// Bit3..1: CI[2:0] data type (000 => TVOC in ppb after power-on)
const statusBitRDY = 0x01

var ErrNotReady = errors.New("ags02ma: data not ready or sensor in pre-heat stage")

// AGS02MA represents Aosong AGS02MA TVOC sensor.
// Typical usage:
//
//	s := NewAGS02MA(bus)
//	v, err := s.GetTVOC(ctx)
//
// Value is returned in parts-per-billion (ppb) as integer.
// The sensor requires a slow I2C clock (<= 30 kHz) and at least 1.5 s between
// reads.
type AGS02MA struct {
	transport airmon.I2CBus
	txDelay   time.Duration
	buf       []byte
}

func NewAGS02MA(transport airmon.I2CBus) *AGS02MA {
	return &AGS02MA{
		transport: transport,
		txDelay:   100 * time.Millisecond,
		buf:       make([]byte, 5),
	}
}

// GetTVOC reads the TVOC concentration in ppb. It returns ErrNotReady while
// the sensor is pre-heating.
func (s *AGS02MA) GetTVOC(ctx context.Context) (uint32, error) {
	if err := s.query(ctx, regTVOC); err != nil {
		return 0, err
	}
	if s.buf[0]&statusBitRDY != 0 {
		return 0, ErrNotReady
	}
	return s.value(), nil
}

// ReadVersion returns the firmware version.
func (s *AGS02MA) ReadVersion(ctx context.Context) (int, error) {
	if err := s.query(ctx, regVersion); err != nil {
		return 0, err
	}
	return int(s.buf[3]), nil
}

// ReadResistance returns the sensing resistance in units of 100 Ω.
func (s *AGS02MA) ReadResistance(ctx context.Context) (uint32, error) {
	if err := s.query(ctx, regResistance); err != nil {
		return 0, err
	}
	return uint32(s.buf[0])<<24 | s.value(), nil
}

// Calibrate sets the zero point to the current air.
func (s *AGS02MA) Calibrate(ctx context.Context) error {
	err := s.transport.WriteToAddr(ctx, ags02maAddress, []byte{regCalibrate, 0x00, 0x0C, 0xFF, 0xF3, 0xFC})
	if err != nil {
		return fmt.Errorf("ags02ma: calibration write failed: %w", err)
	}
	return nil
}

// query selects reg and reads 4 data bytes and their CRC into s.buf.
func (s *AGS02MA) query(ctx context.Context, reg byte) error {
	if err := s.transport.WriteToAddr(ctx, ags02maAddress, []byte{reg}); err != nil {
		return fmt.Errorf("ags02ma: write reg %#x failed: %w", reg, err)
	}
	if err := airmon.Sleep(ctx, s.txDelay); err != nil {
		return err
	}
	if err := s.transport.ReadFromAddr(ctx, ags02maAddress, s.buf); err != nil {
		return fmt.Errorf("ags02ma: read failed: %w", err)
	}
	if crc := airmon.CRC8(s.buf[:4]); crc != s.buf[4] {
		return airmon.Decodef("ags02ma", "crc mismatch: expected %#x, got %#x", s.buf[4], crc)
	}
	return nil
}

// 24-bit big endian value following the status byte
func (s *AGS02MA) value() uint32 {
	return uint32(s.buf[1])<<16 | uint32(s.buf[2])<<8 | uint32(s.buf[3])
}
