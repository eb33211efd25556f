package device

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/airmon"
	"github.com/mklimuk/airmon/bus"
	"github.com/mklimuk/airmon/environment"
	"github.com/mklimuk/airmon/i2c/i2ctest"
	"github.com/mklimuk/airmon/metrics"
)

const (
	scd30Addr    = 0x61
	pmsa003iAddr = 0x12
	sht40Addr    = 0x44
	hih6021Addr  = 0x27
	bh1750Addr   = 0x23
	tc74Addr     = 0x4D
)

func floatWords(values ...float32) []byte {
	words := make([]uint16, 0, 2*len(values))
	for _, v := range values {
		bits := math.Float32bits(v)
		words = append(words, uint16(bits>>16), uint16(bits))
	}
	return i2ctest.Words(words...)
}

func pmsFrame(words ...uint16) []byte {
	frame := make([]byte, 32)
	frame[0], frame[1] = 0x42, 0x4D
	binary.BigEndian.PutUint16(frame[2:], 28)
	for i, w := range words {
		binary.BigEndian.PutUint16(frame[4+2*i:], w)
	}
	var sum uint16
	for _, b := range frame[:30] {
		sum += uint16(b)
	}
	binary.BigEndian.PutUint16(frame[30:], sum)
	return frame
}

func bootedSCD30(t *testing.T, transport *i2ctest.MockBus, sink metrics.Sink) *SCD30 {
	t.Helper()
	transport.ExpectWrite(scd30Addr, []byte{0xD1, 0x00}, nil)
	transport.ExpectRead(scd30Addr, i2ctest.Words(0x0342), nil)
	transport.ExpectWrite(scd30Addr, []byte{0x00, 0x10, 0x00, 0x00, 0x81}, nil)
	s, err := BootSCD30(context.Background(), bus.New(transport), sink)
	require.NoError(t, err)
	require.IsType(t, &SCD30{}, s)
	return s.(*SCD30)
}

func TestSCD30_PollUpdatesEveryGaugeOnce(t *testing.T) {
	transport := &i2ctest.MockBus{}
	sink := metrics.NewMemory()
	s := bootedSCD30(t, transport, sink)
	assert.Equal(t, "SCD30", s.Name())
	assert.Len(t, sink.All(), 3)
	assert.Zero(t, sink.TotalSets())

	transport.ExpectWrite(scd30Addr, []byte{0x02, 0x02}, nil)
	transport.ExpectRead(scd30Addr, i2ctest.Words(1), nil)
	transport.ExpectWrite(scd30Addr, []byte{0x03, 0x00}, nil)
	transport.ExpectRead(scd30Addr, floatWords(612.5, 22.25, 41.5), nil)
	require.NoError(t, s.Poll(context.Background()))

	labels := metrics.Labels{"sensor": "SCD30"}
	assert.Equal(t, 612.5, sink.Value("co2_ppm", labels))
	assert.Equal(t, 22.25, sink.Value("temp_degc", labels))
	assert.Equal(t, 41.5, sink.Value("rh_percent", labels))
	for _, g := range sink.All() {
		assert.Equal(t, int64(1), g.Sets(), g.String())
	}
	transport.AssertExpectations(t)
}

func TestSCD30_NotReadyTouchesNoGauge(t *testing.T) {
	transport := &i2ctest.MockBus{}
	sink := metrics.NewMemory()
	s := bootedSCD30(t, transport, sink)

	transport.ExpectWrite(scd30Addr, []byte{0x02, 0x02}, nil)
	transport.ExpectRead(scd30Addr, i2ctest.Words(0), nil)
	require.NoError(t, s.Poll(context.Background()))

	assert.Zero(t, sink.TotalSets())
	transport.AssertNotCalled(t, "WriteToAddr", mock.Anything, byte(scd30Addr), []byte{0x03, 0x00})
	transport.AssertExpectations(t)
}

func TestSCD30_PollFailureKeepsGauges(t *testing.T) {
	transport := &i2ctest.MockBus{}
	sink := metrics.NewMemory()
	s := bootedSCD30(t, transport, sink)

	transport.ExpectWrite(scd30Addr, []byte{0x02, 0x02}, airmon.ErrNack)
	err := s.Poll(context.Background())
	var transportErr *airmon.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "write", transportErr.Op)
	assert.ErrorIs(t, err, airmon.ErrNack)
	assert.Zero(t, sink.TotalSets())
}

func TestSCD30_BootFailure(t *testing.T) {
	transport := &i2ctest.MockBus{}
	transport.ExpectWrite(scd30Addr, []byte{0xD1, 0x00}, airmon.ErrNack)
	s, err := BootSCD30(context.Background(), bus.New(transport), metrics.NewMemory())
	assert.Nil(t, s)
	assert.ErrorIs(t, err, airmon.ErrNack)
}

func TestPMSA003I_PollUpdatesEveryGaugeOnce(t *testing.T) {
	transport := &i2ctest.MockBus{}
	sink := metrics.NewMemory()
	s, err := BootPMSA003I(context.Background(), bus.New(transport), sink)
	require.NoError(t, err)
	assert.Len(t, sink.All(), 12)

	transport.ExpectRead(pmsa003iAddr, pmsFrame(1, 2, 3, 4, 5, 6, 300, 50, 10, 3, 2, 1), nil)
	require.NoError(t, s.Poll(context.Background()))

	for _, g := range sink.All() {
		assert.Equal(t, int64(1), g.Sets(), g.String())
	}
	tests := []struct {
		name     string
		labels   metrics.Labels
		expected float64
	}{
		{"pm_conc", metrics.Labels{"pm": "1.0", "cond": "std"}, 1},
		{"pm_conc", metrics.Labels{"pm": "2.5", "cond": "std"}, 2},
		{"pm_conc", metrics.Labels{"pm": "10.0", "cond": "std"}, 3},
		{"pm_conc", metrics.Labels{"pm": "1.0", "cond": "env"}, 4},
		{"pm_conc", metrics.Labels{"pm": "2.5", "cond": "env"}, 5},
		{"pm_conc", metrics.Labels{"pm": "10.0", "cond": "env"}, 6},
		{"particle_count", metrics.Labels{"diam": "0.3"}, 300},
		{"particle_count", metrics.Labels{"diam": "0.5"}, 50},
		{"particle_count", metrics.Labels{"diam": "1.0"}, 10},
		{"particle_count", metrics.Labels{"diam": "2.5"}, 3},
		{"particle_count", metrics.Labels{"diam": "5.0"}, 2},
		{"particle_count", metrics.Labels{"diam": "10.0"}, 1},
	}
	for _, test := range tests {
		test.labels["sensor"] = "PMSA003I"
		assert.Equal(t, test.expected, sink.Value(test.name, test.labels), test.name, test.labels)
	}
}

func TestPMSA003I_CorruptFrameTouchesNoGauge(t *testing.T) {
	transport := &i2ctest.MockBus{}
	sink := metrics.NewMemory()
	s, err := BootPMSA003I(context.Background(), bus.New(transport), sink)
	require.NoError(t, err)

	frame := pmsFrame(1, 2, 3)
	frame[31]++
	transport.ExpectRead(pmsa003iAddr, frame, nil)
	var decodeErr *airmon.DecodeError
	assert.ErrorAs(t, s.Poll(context.Background()), &decodeErr)
	assert.Zero(t, sink.TotalSets())
}

func TestSHT40_BootAndPoll(t *testing.T) {
	transport := &i2ctest.MockBus{}
	sink := metrics.NewMemory()
	transport.ExpectWrite(sht40Addr, []byte{0x89}, nil)
	transport.ExpectRead(sht40Addr, i2ctest.Words(0x0102, 0x0304), nil)
	s, err := BootSHT40(context.Background(), bus.New(transport), sink)
	require.NoError(t, err)
	assert.Equal(t, "SHT40", s.Name())

	transport.ExpectWrite(sht40Addr, []byte{0xFD}, nil)
	transport.ExpectRead(sht40Addr, i2ctest.Words(0x6666, 0x8000), nil)
	require.NoError(t, s.Poll(context.Background()))

	labels := metrics.Labels{"sensor": "SHT40"}
	assert.InDelta(t, 25.0, sink.Value("temp_degc", labels), 0.01)
	assert.InDelta(t, 56.5, sink.Value("rh_percent", labels), 0.01)
	assert.Equal(t, int64(2), sink.TotalSets())
	transport.AssertExpectations(t)
}

func TestHIH6021_StaleDataIsNoop(t *testing.T) {
	transport := &i2ctest.MockBus{}
	sink := metrics.NewMemory()
	s, err := BootHIH6021(context.Background(), bus.New(transport), sink)
	require.NoError(t, err)

	transport.ExpectWrite(hih6021Addr, []byte{}, nil)
	transport.ExpectRead(hih6021Addr, []byte{0x57, 0x8B, 0x65, 0xB8}, nil)
	require.NoError(t, s.Poll(context.Background()))
	assert.Zero(t, sink.TotalSets())

	transport.ExpectWrite(hih6021Addr, []byte{}, nil)
	transport.ExpectRead(hih6021Addr, []byte{0x17, 0x8B, 0x65, 0xB8}, nil)
	require.NoError(t, s.Poll(context.Background()))
	assert.Equal(t, int64(2), sink.TotalSets())
}

func TestBH1750_BootAndPoll(t *testing.T) {
	transport := &i2ctest.MockBus{}
	sink := metrics.NewMemory()
	transport.ExpectWrite(bh1750Addr, []byte{0x01}, nil)
	s, err := BootBH1750(context.Background(), bus.New(transport), sink)
	require.NoError(t, err)

	transport.ExpectWrite(bh1750Addr, []byte{0x23}, nil)
	transport.ExpectRead(bh1750Addr, []byte{0x01, 0x2C}, nil)
	require.NoError(t, s.Poll(context.Background()))
	assert.InDelta(t, 250.0, sink.Value("illuminance_lux", metrics.Labels{"sensor": "BH1750"}), 0.001)
}

type brokenSink struct{}

func (brokenSink) Gauge(string, string, metrics.Labels) (metrics.Gauge, error) {
	return nil, errors.New("label names do not match")
}

func TestBoot_RegistrationFailure(t *testing.T) {
	s, err := BootPMSA003I(context.Background(), bus.New(&i2ctest.MockBus{}), brokenSink{})
	assert.Nil(t, s)
	assert.ErrorContains(t, err, "could not register PMSA003I gauges")
}

func TestResolve(t *testing.T) {
	kinds, err := Resolve([]string{"SCD30", "pmsa003i", "sht40"})
	require.NoError(t, err)
	require.Len(t, kinds, 3)
	assert.Equal(t, "scd30", kinds[0].Name)
	assert.Equal(t, "pmsa003i", kinds[1].Name)
	assert.Equal(t, "sht40", kinds[2].Name)

	_, err = Resolve([]string{"scd30", "bme280", "ccs811"})
	assert.ErrorContains(t, err, `unknown sensor "bme280"`)
	assert.ErrorContains(t, err, `unknown sensor "ccs811"`)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"scd30", "pmsa003i", "sht40", "shtc3", "hih6021", "bh1750", "tc74", "ags02ma"}, Names())
}

func TestTC74_NotReadyTouchesNoGauge(t *testing.T) {
	transport := &i2ctest.MockBus{}
	sink := metrics.NewMemory()
	transport.ExpectWrite(tc74Addr, []byte{0x01}, nil)
	transport.ExpectRead(tc74Addr, []byte{0x00}, nil)
	s, err := BootTC74(context.Background(), bus.New(transport), sink)
	require.NoError(t, err)

	transport.ExpectWrite(tc74Addr, []byte{0x01}, nil)
	transport.ExpectRead(tc74Addr, []byte{0x00}, nil)
	require.NoError(t, s.Poll(context.Background()))
	assert.Zero(t, sink.TotalSets())

	transport.ExpectWrite(tc74Addr, []byte{0x01}, nil)
	transport.ExpectRead(tc74Addr, []byte{0x40}, nil)
	transport.ExpectWrite(tc74Addr, []byte{0x00}, nil)
	transport.ExpectRead(tc74Addr, []byte{0x16}, nil)
	require.NoError(t, s.Poll(context.Background()))
	assert.Equal(t, 22.0, sink.Value("temp_degc", metrics.Labels{"sensor": "TC74"}))
}

func TestTempHum_Poll(t *testing.T) {
	errStale := errors.New("stale")
	readings := []struct {
		temp, rh float32
		err      error
	}{
		{21.5, 40, nil},
		{0, 0, errStale},
		{0, 0, airmon.ErrNack},
		{22, 41, nil},
	}
	i := 0
	drv := environment.TempHumFunc(func(context.Context) (float32, float32, error) {
		r := readings[i]
		i++
		return r.temp, r.rh, r.err
	})
	sink := metrics.NewMemory()
	s, err := newTempHum("SIM", time.Second, drv, sink)
	require.NoError(t, err)
	s.stale = errStale
	labels := metrics.Labels{"sensor": "SIM"}

	require.NoError(t, s.Poll(context.Background()))
	assert.Equal(t, 21.5, sink.Value("temp_degc", labels))

	require.NoError(t, s.Poll(context.Background()))
	assert.Equal(t, int64(2), sink.TotalSets())

	assert.ErrorIs(t, s.Poll(context.Background()), airmon.ErrNack)
	assert.Equal(t, int64(2), sink.TotalSets())

	require.NoError(t, s.Poll(context.Background()))
	assert.Equal(t, 22.0, sink.Value("temp_degc", labels))
	assert.Equal(t, 41.0, sink.Value("rh_percent", labels))
	assert.Equal(t, time.Second, s.PollPeriod())
}

func TestAGS02MA_PreHeatTouchesNoGauge(t *testing.T) {
	const addr = 0x1A
	frame := func(data ...byte) []byte {
		return append(data, airmon.CRC8(data))
	}
	transport := &i2ctest.MockBus{}
	sink := metrics.NewMemory()
	transport.ExpectWrite(addr, []byte{0x11}, nil)
	transport.ExpectRead(addr, frame(0x00, 0x00, 0x00, 0x76), nil)
	s, err := BootAGS02MA(context.Background(), bus.New(transport), sink)
	require.NoError(t, err)

	transport.ExpectWrite(addr, []byte{0x00}, nil)
	transport.ExpectRead(addr, frame(0x01, 0x00, 0x00, 0x00), nil)
	require.NoError(t, s.Poll(context.Background()))
	assert.Zero(t, sink.TotalSets())

	transport.ExpectWrite(addr, []byte{0x00}, nil)
	transport.ExpectRead(addr, frame(0x00, 0x00, 0x01, 0x2C), nil)
	require.NoError(t, s.Poll(context.Background()))
	assert.Equal(t, 300.0, sink.Value("tvoc_ppb", metrics.Labels{"sensor": "AGS02MA"}))
}
