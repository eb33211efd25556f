package i2c

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	gobot "gobot.io/x/gobot/v2/drivers/i2c"

	"github.com/mklimuk/airmon"
)

var _ airmon.I2CBus = &GobotBus{}

// Adaptor is a gobot platform adaptor exposing I2C (NanoPi, Raspberry Pi, ...).
type Adaptor interface {
	gobot.Connector
	Connect() error
	Finalize() error
}

// GobotBus drives the bus through a gobot platform adaptor. Gobot hands out one
// connection per device address; they are opened lazily and kept until Close.
type GobotBus struct {
	adaptor Adaptor
	busNr   int

	mx    sync.Mutex
	conns map[byte]gobot.Connection
}

// NewGobotBus connects the adaptor and binds the bus to the given bus number.
// A negative bus number selects the adaptor's default bus.
func NewGobotBus(adaptor Adaptor, busNr int) (*GobotBus, error) {
	if err := adaptor.Connect(); err != nil {
		return nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	if busNr < 0 {
		busNr = adaptor.DefaultI2cBus()
	}
	return &GobotBus{
		adaptor: adaptor,
		busNr:   busNr,
		conns:   make(map[byte]gobot.Connection),
	}, nil
}

func (b *GobotBus) conn(address byte) (gobot.Connection, error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	if c, ok := b.conns[address]; ok {
		return c, nil
	}
	c, err := b.adaptor.GetI2cConnection(int(address), b.busNr)
	if err != nil {
		return nil, fmt.Errorf("could not open connection to %x on bus %d: %w", address, b.busNr, err)
	}
	b.conns[address] = c
	return c, nil
}

func (b *GobotBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	c, err := b.conn(address)
	if err != nil {
		return err
	}
	n, err := c.Read(buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	if n != len(buffer) {
		return fmt.Errorf("short read from %x: expected %d, got %d", address, len(buffer), n)
	}
	return nil
}

func (b *GobotBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	c, err := b.conn(address)
	if err != nil {
		return err
	}
	n, err := c.Write(buffer)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	if n != len(buffer) {
		return fmt.Errorf("short write to %x: expected %d, wrote %d", address, len(buffer), n)
	}
	return nil
}

func (b *GobotBus) Release(ctx context.Context) error {
	return nil
}

func (b *GobotBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	var err error
	for addr, c := range b.conns {
		err = multierr.Append(err, c.Close())
		delete(b.conns, addr)
	}
	err = multierr.Append(err, b.adaptor.Finalize())
	if err != nil {
		return fmt.Errorf("could not close gobot bus: %w", err)
	}
	return nil
}
