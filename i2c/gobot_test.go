package i2c

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gobot "gobot.io/x/gobot/v2/drivers/i2c"
)

type fakeConn struct {
	gobot.Connection
	written [][]byte
	read    []byte
	closed  bool
}

func (c *fakeConn) Read(b []byte) (int, error) {
	return copy(b, c.read), nil
}

func (c *fakeConn) Write(b []byte) (int, error) {
	c.written = append(c.written, append([]byte(nil), b...))
	return len(b), nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeAdaptor struct {
	connectErr error
	conns      map[int]*fakeConn
	opened     []int
	busNr      int
	finalized  bool
}

func (a *fakeAdaptor) GetI2cConnection(address int, busNr int) (gobot.Connection, error) {
	a.opened = append(a.opened, address)
	a.busNr = busNr
	c, ok := a.conns[address]
	if !ok {
		return nil, errors.New("no device")
	}
	return c, nil
}

func (a *fakeAdaptor) DefaultI2cBus() int { return 2 }
func (a *fakeAdaptor) Connect() error     { return a.connectErr }
func (a *fakeAdaptor) Finalize() error {
	a.finalized = true
	return nil
}

func TestGobotBus_ReadWrite(t *testing.T) {
	conn := &fakeConn{read: []byte{0x01, 0x02}}
	ad := &fakeAdaptor{conns: map[int]*fakeConn{0x44: conn}}
	bus, err := NewGobotBus(ad, -1)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, bus.WriteToAddr(ctx, 0x44, []byte{0xFD}))
	buf := make([]byte, 2)
	require.NoError(t, bus.ReadFromAddr(ctx, 0x44, buf))
	assert.Equal(t, []byte{0x01, 0x02}, buf)
	assert.Equal(t, [][]byte{{0xFD}}, conn.written)
	// connection is reused per address
	assert.Equal(t, []int{0x44}, ad.opened)
	assert.Equal(t, 2, ad.busNr)

	buf = make([]byte, 3)
	assert.Error(t, bus.ReadFromAddr(ctx, 0x44, buf), "short read")
	assert.Error(t, bus.WriteToAddr(ctx, 0x45, []byte{0x00}))

	require.NoError(t, bus.Close())
	assert.True(t, conn.closed)
	assert.True(t, ad.finalized)
}

func TestGobotBus_ConnectError(t *testing.T) {
	_, err := NewGobotBus(&fakeAdaptor{connectErr: errors.New("no i2c")}, 1)
	assert.Error(t, err)
}
