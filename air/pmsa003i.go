package air

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/mklimuk/airmon"
)

// PMSA003I default 7-bit I2C address.
const pmsa003iAddress = 0x12

const (
	pmsFrameLen   = 32
	pmsHeader1    = 0x42
	pmsHeader2    = 0x4D
	pmsBodyLen    = 28
	pmsChecksumAt = 30
)

// PMSA003IReading is a decoded PMSA003I frame. Concentrations are in µg/m³,
// particle counts are per 0.1 L of air.
type PMSA003IReading struct {
	PM10Standard   uint16
	PM25Standard   uint16
	PM100Standard  uint16
	PM10Env        uint16
	PM25Env        uint16
	PM100Env       uint16
	Particles03um  uint16
	Particles05um  uint16
	Particles10um  uint16
	Particles25um  uint16
	Particles50um  uint16
	Particles100um uint16
}

func (r PMSA003IReading) String() string {
	return fmt.Sprintf("pm1.0=%d pm2.5=%d pm10=%d (env: %d/%d/%d)",
		r.PM10Standard, r.PM25Standard, r.PM100Standard, r.PM10Env, r.PM25Env, r.PM100Env)
}

// PMSA003I represents Plantower PMSA003I particulate matter sensor. The sensor
// pushes a fresh frame about once a second; a read returns the latest one.
type PMSA003I struct {
	transport airmon.I2CBus
	buf       []byte
}

func NewPMSA003I(transport airmon.I2CBus) *PMSA003I {
	return &PMSA003I{transport: transport, buf: make([]byte, pmsFrameLen)}
}

// Read fetches and decodes a single frame.
func (s *PMSA003I) Read(ctx context.Context) (PMSA003IReading, error) {
	if err := s.transport.ReadFromAddr(ctx, pmsa003iAddress, s.buf); err != nil {
		return PMSA003IReading{}, fmt.Errorf("pmsa003i: could not read frame: %w", err)
	}
	return DecodePMSA003I(s.buf)
}

// DecodePMSA003I validates and decodes a raw 32 byte frame.
func DecodePMSA003I(frame []byte) (PMSA003IReading, error) {
	if len(frame) != pmsFrameLen {
		return PMSA003IReading{}, airmon.Decodef("pmsa003i", "frame length %d, expected %d", len(frame), pmsFrameLen)
	}
	if frame[0] != pmsHeader1 || frame[1] != pmsHeader2 {
		return PMSA003IReading{}, airmon.Decodef("pmsa003i", "bad frame header %#x %#x", frame[0], frame[1])
	}
	if l := binary.BigEndian.Uint16(frame[2:4]); l != pmsBodyLen {
		return PMSA003IReading{}, airmon.Decodef("pmsa003i", "bad body length %d", l)
	}
	var sum uint16
	for _, b := range frame[:pmsChecksumAt] {
		sum += uint16(b)
	}
	if expected := binary.BigEndian.Uint16(frame[pmsChecksumAt:]); sum != expected {
		return PMSA003IReading{}, airmon.Decodef("pmsa003i", "checksum mismatch: expected %#x, got %#x", expected, sum)
	}
	word := func(i int) uint16 {
		return binary.BigEndian.Uint16(frame[4+2*i:])
	}
	return PMSA003IReading{
		PM10Standard:   word(0),
		PM25Standard:   word(1),
		PM100Standard:  word(2),
		PM10Env:        word(3),
		PM25Env:        word(4),
		PM100Env:       word(5),
		Particles03um:  word(6),
		Particles05um:  word(7),
		Particles10um:  word(8),
		Particles25um:  word(9),
		Particles50um:  word(10),
		Particles100um: word(11),
	}, nil
}
