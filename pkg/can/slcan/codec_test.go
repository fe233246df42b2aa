package slcan

import (
	"testing"

	canplat "github.com/mlajoie/canplat"
	"github.com/stretchr/testify/assert"
)

func TestMarshalStandard(t *testing.T) {
	frame := canplat.Frame{ID: 0x181, DLC: 3, Data: [8]byte{0xDE, 0xAD, 0x01}}
	line, err := Marshal(frame)
	assert.Nil(t, err)
	assert.Equal(t, "t1813DEAD01\r", string(line))
}

func TestMarshalExtended(t *testing.T) {
	frame := canplat.Frame{ID: canplat.CanEffFlag | 0x1ABCDEF0, DLC: 1, Data: [8]byte{0x42}}
	line, err := Marshal(frame)
	assert.Nil(t, err)
	assert.Equal(t, "T1ABCDEF0142\r", string(line))
}

func TestMarshalEmptyPayload(t *testing.T) {
	line, err := Marshal(canplat.NewFrame(0x7FF, 0, 0))
	assert.Nil(t, err)
	assert.Equal(t, "t7FF0\r", string(line))
}

func TestUnmarshalStandard(t *testing.T) {
	frame, err := Unmarshal([]byte("t1813DEAD01"))
	assert.Nil(t, err)
	assert.EqualValues(t, 0x181, frame.ID)
	assert.EqualValues(t, 3, frame.DLC)
	assert.Equal(t, []byte{0xDE, 0xAD, 0x01}, frame.Data[:frame.DLC])
}

func TestUnmarshalExtended(t *testing.T) {
	frame, err := Unmarshal([]byte("T1ABCDEF0142"))
	assert.Nil(t, err)
	assert.EqualValues(t, canplat.CanEffFlag|0x1ABCDEF0, frame.ID)
	assert.EqualValues(t, 1, frame.DLC)
	assert.EqualValues(t, 0x42, frame.Data[0])
}

func TestUnmarshalErrors(t *testing.T) {
	_, err := Unmarshal([]byte("x1813DEAD01"))
	assert.NotNil(t, err)
	_, err = Unmarshal([]byte("t18"))
	assert.NotNil(t, err)
	// DLC says 4 bytes but only 3 are present
	_, err = Unmarshal([]byte("t1814DEAD01"))
	assert.NotNil(t, err)
	_, err = Unmarshal([]byte("t181ZDE"))
	assert.NotNil(t, err)
}

func TestRoundtrip(t *testing.T) {
	frame := canplat.Frame{ID: 0x0C4, DLC: 8, Data: [8]byte{0, 1, 2, 3, 4, 5, 6, 7}}
	line, err := Marshal(frame)
	assert.Nil(t, err)
	decoded, err := Unmarshal(line[:len(line)-1])
	assert.Nil(t, err)
	assert.Equal(t, frame, decoded)
}
