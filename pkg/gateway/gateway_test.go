package gateway

import (
	"testing"

	canplat "github.com/mlajoie/canplat"
	"github.com/mlajoie/canplat/pkg/can/virtual"
	"github.com/stretchr/testify/assert"
)

// Loopback bus without a broker, frames sent are immediately received
func newLoopback(t *testing.T, gw *Gateway, name string) {
	t.Helper()
	bus, err := virtual.NewVirtualCanBus("")
	assert.Nil(t, err)
	vcan, _ := bus.(*virtual.VirtualCanBus)
	vcan.SetReceiveOwn(true)
	assert.Nil(t, gw.AttachBus(name, vcan))
}

func TestSendAndReceive(t *testing.T) {
	gw := New()
	newLoopback(t, gw, "A")
	defer gw.Disconnect()

	gw.Send(0x181, []byte{1, 2, 3, 4}, "A", true)
	buf := make([]byte, canplat.MaxFrameDataLength)
	n, status := gw.Receive(0x181, buf, "A", true)
	assert.Equal(t, canplat.StatusOK, status)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf[:n])

	// Same frame again, now stale but still copied
	buf = make([]byte, canplat.MaxFrameDataLength)
	n, status = gw.Receive(0x181, buf, "A", false)
	assert.Equal(t, canplat.StatusCanMessageStale, status)
	assert.True(t, status.IsWarning())
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf[:n])

	// A new frame clears the staleness
	gw.Send(0x181, []byte{5, 6}, "A", true)
	n, status = gw.Receive(0x181, buf, "A", false)
	assert.Equal(t, canplat.StatusOK, status)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{5, 6}, buf[:n])
}

func TestReceiveNoFrame(t *testing.T) {
	gw := New()
	newLoopback(t, gw, "A")
	defer gw.Disconnect()

	buf := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	n, status := gw.Receive(0x123, buf, "A", false)
	assert.True(t, status.IsError())
	assert.Equal(t, 0, n)
	// The buffer is left untouched
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, buf)
}

func TestReceiveUnknownBus(t *testing.T) {
	gw := New()
	buf := make([]byte, canplat.MaxFrameDataLength)
	n, status := gw.Receive(0x181, buf, "nope", false)
	assert.Equal(t, canplat.StatusInvalidNetwork, status)
	assert.Equal(t, 0, n)
}

func TestReceiveBufferTooSmall(t *testing.T) {
	gw := New()
	newLoopback(t, gw, "A")
	defer gw.Disconnect()

	gw.Send(0x181, []byte{1, 2, 3, 4, 5, 6, 7, 8}, "A", true)
	n, status := gw.Receive(0x181, make([]byte, 4), "A", false)
	assert.Equal(t, canplat.StatusInvalidSize, status)
	assert.Equal(t, 0, n)
}

func TestSendOversizePayload(t *testing.T) {
	gw := New()
	newLoopback(t, gw, "A")
	defer gw.Disconnect()

	gw.Send(0x181, make([]byte, 9), "A", false)
	buf := make([]byte, canplat.MaxFrameDataLength)
	_, status := gw.Receive(0x181, buf, "A", false)
	assert.True(t, status.IsError())
}

func TestSendCopiesData(t *testing.T) {
	gw := New()
	newLoopback(t, gw, "A")
	defer gw.Disconnect()

	data := []byte{1, 2, 3}
	gw.Send(0x181, data, "A", true)
	data[0] = 0xAA
	buf := make([]byte, canplat.MaxFrameDataLength)
	n, status := gw.Receive(0x181, buf, "A", false)
	assert.Equal(t, canplat.StatusOK, status)
	assert.EqualValues(t, 1, buf[0])
	assert.Equal(t, 3, n)
}

func TestReceiveAnyKeepsArrivalOrder(t *testing.T) {
	gw := New()
	newLoopback(t, gw, "A")
	defer gw.Disconnect()

	gw.Send(0x181, []byte{1}, "A", true)
	gw.Send(0x182, []byte{2}, "A", true)
	gw.Send(0x181, []byte{3}, "A", true)

	buf := make([]byte, canplat.MaxFrameDataLength)
	expected := []struct {
		id   uint32
		data byte
	}{{0x181, 1}, {0x182, 2}, {0x181, 3}}
	for _, want := range expected {
		id, n, status := gw.ReceiveAny(buf, "A", false)
		assert.Equal(t, canplat.StatusOK, status)
		assert.Equal(t, want.id, id)
		assert.Equal(t, 1, n)
		assert.Equal(t, want.data, buf[0])
	}
	_, _, status := gw.ReceiveAny(buf, "A", false)
	assert.Equal(t, canplat.StatusRxTimeout, status)
}

func TestPollTimestamps(t *testing.T) {
	now := 100.0
	gw := New(WithClock(func() float64 { return now }))
	newLoopback(t, gw, "A")
	defer gw.Disconnect()

	gw.Send(0x181, []byte{1}, "A", true)
	_, timestamp, status := gw.Poll(0x181, "A")
	assert.Equal(t, canplat.StatusOK, status)
	assert.Equal(t, 100.0, timestamp)

	// The reception timestamp does not change on stale polls
	now = 200.0
	_, timestamp, status = gw.Poll(0x181, "A")
	assert.Equal(t, canplat.StatusCanMessageStale, status)
	assert.Equal(t, 100.0, timestamp)
}

func TestAttachNameTaken(t *testing.T) {
	gw := New()
	newLoopback(t, gw, "A")
	defer gw.Disconnect()

	bus, _ := virtual.NewVirtualCanBus("")
	assert.Equal(t, canplat.ErrBusNameTaken, gw.AttachBus("A", bus))
	assert.Equal(t, canplat.ErrIllegalArgument, gw.AttachBus("", bus))
	assert.Equal(t, canplat.ErrIllegalArgument, gw.AttachBus("B", nil))
}

func TestDetach(t *testing.T) {
	gw := New()
	newLoopback(t, gw, "A")
	newLoopback(t, gw, "B")
	assert.Equal(t, []string{"A", "B"}, gw.Buses())
	assert.Nil(t, gw.Detach("A"))
	assert.Equal(t, []string{"B"}, gw.Buses())
	assert.Equal(t, canplat.ErrInvalidBusName, gw.Detach("A"))
	gw.Disconnect()
	assert.Empty(t, gw.Buses())
}
