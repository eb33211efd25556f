// Package bus shares one physical I2C bus between many drivers.
//
// A Handle owns the transport. Drivers never touch it directly: each one
// acquires a Proxy, and every single transaction issued through a proxy runs
// under the handle's lock. Proxies interleave at transaction granularity, so a
// driver waiting for a conversion does not keep the others off the bus.
package bus

import (
	"context"
	"io"
	"sync"

	"github.com/mklimuk/airmon"
)

// Handle is the single shared bus. It is safe for concurrent use.
type Handle struct {
	mx        sync.Mutex
	transport airmon.I2CBus
	closer    io.Closer
}

// New wraps transport. If transport implements io.Closer, Close closes it.
func New(transport airmon.I2CBus) *Handle {
	h := &Handle{transport: transport}
	if c, ok := transport.(io.Closer); ok {
		h.closer = c
	}
	return h
}

// Acquire returns a new proxy to the bus. Proxies are cheap and hold no lock
// between transactions.
func (h *Handle) Acquire() *Proxy {
	return &Proxy{handle: h}
}

// Close closes the underlying transport. It waits for an in-flight transaction.
func (h *Handle) Close() error {
	if h.closer == nil {
		return nil
	}
	return h.do(func(airmon.I2CBus) error {
		return h.closer.Close()
	})
}

// do runs fn with exclusive access to the transport.
func (h *Handle) do(fn func(t airmon.I2CBus) error) error {
	h.mx.Lock()
	defer h.mx.Unlock()
	return fn(h.transport)
}

var _ airmon.I2CBus = &Proxy{}

// Proxy is one client's view of the shared bus.
type Proxy struct {
	handle *Handle
}

func (p *Proxy) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.handle.do(func(t airmon.I2CBus) error {
		if err := t.ReadFromAddr(ctx, address, buffer); err != nil {
			return &airmon.TransportError{Op: "read", Addr: address, Err: err}
		}
		return nil
	})
}

func (p *Proxy) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.handle.do(func(t airmon.I2CBus) error {
		if err := t.WriteToAddr(ctx, address, buffer); err != nil {
			return &airmon.TransportError{Op: "write", Addr: address, Err: err}
		}
		return nil
	})
}

func (p *Proxy) Release(ctx context.Context) error {
	return p.handle.do(func(t airmon.I2CBus) error {
		if err := t.Release(ctx); err != nil {
			return &airmon.TransportError{Op: "release", Err: err}
		}
		return nil
	})
}
