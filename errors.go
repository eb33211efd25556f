package airmon

import (
	"errors"
	"fmt"
)

var ErrBusBusy = errors.New("I2C engine is busy (command not completed)")

// ErrNack is returned by transports able to tell that the target address did
// not acknowledge.
var ErrNack = errors.New("address not acknowledged")

// TransportError is a bus level I/O failure of a single transaction.
type TransportError struct {
	Op   string
	Addr byte
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("i2c %s at %#x: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError reports a frame that was transferred correctly but does not make
// sense (bad CRC, header, length or checksum).
type DecodeError struct {
	Device string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: could not decode reading: %s", e.Device, e.Reason)
}

// Decodef builds a DecodeError with a formatted reason.
func Decodef(device string, format string, args ...any) error {
	return &DecodeError{Device: device, Reason: fmt.Sprintf(format, args...)}
}
