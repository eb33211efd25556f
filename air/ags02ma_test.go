package air

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/airmon"
	"github.com/mklimuk/airmon/i2c/i2ctest"
)

func agsFrame(data ...byte) []byte {
	return append(data, airmon.CRC8(data))
}

func newTestAGS02MA(bus airmon.I2CBus) *AGS02MA {
	s := NewAGS02MA(bus)
	s.txDelay = 0
	return s
}

func TestAGS02MA_GetTVOC(t *testing.T) {
	bus := &i2ctest.MockBus{}
	bus.ExpectWrite(ags02maAddress, []byte{0x00}, nil)
	bus.ExpectRead(ags02maAddress, agsFrame(0x00, 0x00, 0x02, 0xEE), nil)
	ppb, err := newTestAGS02MA(bus).GetTVOC(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(750), ppb)
	bus.AssertExpectations(t)
}

func TestAGS02MA_PreHeat(t *testing.T) {
	bus := &i2ctest.MockBus{}
	bus.ExpectWrite(ags02maAddress, []byte{0x00}, nil)
	bus.ExpectRead(ags02maAddress, agsFrame(0x01, 0x00, 0x00, 0x00), nil)
	_, err := newTestAGS02MA(bus).GetTVOC(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestAGS02MA_CRCMismatch(t *testing.T) {
	frame := agsFrame(0x00, 0x00, 0x02, 0xEE)
	frame[4]++
	bus := &i2ctest.MockBus{}
	bus.ExpectWrite(ags02maAddress, []byte{0x00}, nil)
	bus.ExpectRead(ags02maAddress, frame, nil)
	_, err := newTestAGS02MA(bus).GetTVOC(context.Background())
	var decodeErr *airmon.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestAGS02MA_ReadVersion(t *testing.T) {
	bus := &i2ctest.MockBus{}
	bus.ExpectWrite(ags02maAddress, []byte{0x11}, nil)
	bus.ExpectRead(ags02maAddress, agsFrame(0x00, 0x00, 0x00, 0x76), nil)
	version, err := newTestAGS02MA(bus).ReadVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0x76, version)
}

func TestAGS02MA_ReadResistance(t *testing.T) {
	bus := &i2ctest.MockBus{}
	bus.ExpectWrite(ags02maAddress, []byte{0x20}, nil)
	bus.ExpectRead(ags02maAddress, agsFrame(0x00, 0x01, 0x86, 0xA0), nil)
	r, err := newTestAGS02MA(bus).ReadResistance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(100000), r)
}

func TestAGS02MA_Calibrate(t *testing.T) {
	bus := &i2ctest.MockBus{}
	bus.ExpectWrite(ags02maAddress, []byte{0x01, 0x00, 0x0C, 0xFF, 0xF3, 0xFC}, airmon.ErrNack)
	err := newTestAGS02MA(bus).Calibrate(context.Background())
	assert.ErrorIs(t, err, airmon.ErrNack)
}
