package environment

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mklimuk/airmon/i2c/i2ctest"
)

func TestHIH6021_ConvertHum(t *testing.T) {
	tests := []struct {
		given    []byte
		expected float32
	}{
		{[]byte{0x00, 0x00}, 0.0},
		{[]byte{0x3F, 0xFF}, 100.0},
		{[]byte{0x17, 0x8B}, 36.79038},
	}
	for _, test := range tests {
		t.Run(hex.EncodeToString(test.given), func(t *testing.T) {
			assert.Equal(t, test.expected, convertHumidity(test.given))
		})
	}
}

func TestHIH6021_ConvertTemp(t *testing.T) {
	tests := []struct {
		given    []byte
		expected float32
	}{
		{[]byte{0x00, 0x00}, -40.0},
		{[]byte{0xFF, 0xFC}, 125.01007},
		{[]byte{0x65, 0xB8}, 25.568916},
	}
	for _, test := range tests {
		t.Run(hex.EncodeToString(test.given), func(t *testing.T) {
			assert.Equal(t, test.expected, convertTemperature(test.given))
		})
	}
}

func TestHIH6021_GetTempAndHum(t *testing.T) {
	tests := []struct {
		name     string
		resp     []byte
		temp     float32
		hum      float32
		expected error
	}{
		{"valid", []byte{0x17, 0x8B, 0x65, 0xB8}, 25.568916, 36.79038, nil},
		{"stale", []byte{0x57, 0x8B, 0x65, 0xB8}, 0, 0, ErrStaleData},
		{"command mode", []byte{0x97, 0x8B, 0x65, 0xB8}, 0, 0, ErrCommandMode},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			bus := &i2ctest.MockBus{}
			bus.ExpectWrite(HIH6021Address, []byte{}, nil)
			bus.ExpectRead(HIH6021Address, test.resp, nil)
			temp, hum, err := NewHIH6021(bus).GetTempAndHum(context.Background())
			assert.ErrorIs(t, err, test.expected)
			assert.Equal(t, test.temp, temp)
			assert.Equal(t, test.hum, hum)
			bus.AssertExpectations(t)
		})
	}
}
