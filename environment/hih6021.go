package environment

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/mklimuk/airmon"
)

const HIH6021Address = 0x27

var divider = float32(1<<14 - 2)

var ErrStaleData = errors.New("stale data")
var ErrCommandMode = errors.New("device in command mode")

// HIH6021 represents Honywell HumidIcon Digital Humidity/Temperature sensor
type HIH6021 struct {
	transport airmon.I2CBus
	addr      byte
}

func NewHIH6021(trans airmon.I2CBus) *HIH6021 {
	return &HIH6021{transport: trans, addr: HIH6021Address}
}

// GetTempAndHum requests a measurement and returns temperature in Celsius and
// relative humidity in %RH. ErrStaleData means the sensor had no new
// measurement to report.
func (sensor *HIH6021) GetTempAndHum(ctx context.Context) (float32, float32, error) {
	// a zero length write triggers a measurement cycle
	err := sensor.transport.WriteToAddr(ctx, sensor.addr, []byte{})
	if err != nil {
		return 0, 0, fmt.Errorf("could not write measurement request to device: %w", err)
	}
	// measurement cycle takes typically 36.65ms
	if err := airmon.Sleep(ctx, 50*time.Millisecond); err != nil {
		return 0, 0, err
	}
	resp := make([]byte, 4)
	err = sensor.transport.ReadFromAddr(ctx, sensor.addr, resp)
	if err != nil {
		return 0, 0, fmt.Errorf("could not read measurement from device: %w", err)
	}
	// check the oldest bit
	if resp[0]&0x80 > 0 {
		return 0, 0, ErrCommandMode
	}
	// check the second oldest bit
	if resp[0]&0x40 > 0 {
		// data has already been fetched since last measurement or data fetched before the first measurement
		// has been completed
		return 0, 0, ErrStaleData
	}
	return convertTemperature(resp[2:4]), convertHumidity(resp[0:2]), nil
}

func convertHumidity(resp []byte) float32 {
	hum := float32(binary.BigEndian.Uint16(resp)) / divider * 100
	if hum > 100.00 {
		return 100.00
	}
	return hum
}

func convertTemperature(resp []byte) float32 {
	shift := resp[0] & 0x03
	shift <<= 6
	lsb := (resp[1] >> 2) | shift
	msb := resp[0] >> 2
	return float32(binary.BigEndian.Uint16([]byte{msb, lsb}))/divider*165 - 40
}
