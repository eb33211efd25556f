// Package airmon holds the contracts shared by the bus transports and the
// sensor drivers.
package airmon

import (
	"context"
)

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// I2CBus is the transport every driver talks to. Implementations are not
// required to be safe for concurrent use; sharing one bus between drivers goes
// through bus.Handle.
type I2CBus interface {
	AddressableReader
	AddressableWriter
}
