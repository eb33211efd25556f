// Package i2ctest provides a testify mock of the I2C transport.
package i2ctest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/mklimuk/airmon"
)

var _ airmon.I2CBus = &MockBus{}

// MockBus is a testify mock of airmon.I2CBus. ReadFromAddr copies the first
// return value (a []byte) into the caller's buffer. It also tracks how many
// transactions were in flight at the same time.
type MockBus struct {
	mock.Mock
	concurrentOps int64
	maxConcurrent int64
	mu            sync.Mutex
}

func (m *MockBus) enter() {
	m.mu.Lock()
	concurrent := atomic.AddInt64(&m.concurrentOps, 1)
	if concurrent > atomic.LoadInt64(&m.maxConcurrent) {
		atomic.StoreInt64(&m.maxConcurrent, concurrent)
	}
	m.mu.Unlock()
}

func (m *MockBus) leave() {
	atomic.AddInt64(&m.concurrentOps, -1)
}

func (m *MockBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	m.enter()
	defer m.leave()
	args := m.Called(ctx, address, buffer)
	return args.Error(0)
}

func (m *MockBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	m.enter()
	defer m.leave()
	args := m.Called(ctx, address, buffer)
	if data, ok := args.Get(0).([]byte); ok && len(data) <= len(buffer) {
		copy(buffer, data)
	}
	return args.Error(1)
}

func (m *MockBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MaxConcurrent returns the highest number of overlapping transactions seen.
func (m *MockBus) MaxConcurrent() int64 {
	return atomic.LoadInt64(&m.maxConcurrent)
}

// ExpectWrite registers a single expected write of exactly data to address.
func (m *MockBus) ExpectWrite(address byte, data []byte, err error) *mock.Call {
	return m.On("WriteToAddr", mock.Anything, address, data).Return(err).Once()
}

// ExpectRead registers a single read from address answered with data.
func (m *MockBus) ExpectRead(address byte, data []byte, err error) *mock.Call {
	return m.On("ReadFromAddr", mock.Anything, address, mock.Anything).Return(data, err).Once()
}

// Words encodes 16-bit words as Sensirion [msb, lsb, crc] triplets.
func Words(words ...uint16) []byte {
	buf := make([]byte, 0, len(words)*3)
	for _, w := range words {
		pair := []byte{byte(w >> 8), byte(w)}
		buf = append(buf, pair[0], pair[1], airmon.CRC8(pair))
	}
	return buf
}
