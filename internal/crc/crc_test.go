package crc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCcittSingle(t *testing.T) {
	crc := CRC16(0)
	crc.Single(10)
	assert.EqualValues(t, 0xA14A, crc)
}

func TestCcittBlock(t *testing.T) {
	crc := CRC16(0)
	crc.Block([]byte{10})
	assert.EqualValues(t, 0xA14A, crc)
	assert.EqualValues(t, uint16(crc), Checksum([]byte{10}))
}
