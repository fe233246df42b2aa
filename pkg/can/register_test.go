package can

import (
	"testing"

	canplat "github.com/mlajoie/canplat"
	"github.com/stretchr/testify/assert"
)

type nullBus struct{}

func (b *nullBus) Connect(...any) error                  { return nil }
func (b *nullBus) Disconnect() error                     { return nil }
func (b *nullBus) Send(frame canplat.Frame) error        { return nil }
func (b *nullBus) Subscribe(canplat.FrameListener) error { return nil }

func TestNewBusUnknownInterface(t *testing.T) {
	_, err := NewBus("doesnotexist", "can0", 500000)
	assert.NotNil(t, err)
}

func TestRegisterInterface(t *testing.T) {
	RegisterInterface("null", func(channel string) (canplat.Bus, error) {
		return &nullBus{}, nil
	})
	bus, err := NewBus("null", "whatever", 500000)
	assert.Nil(t, err)
	assert.IsType(t, &nullBus{}, bus)
}
