// Package crc implements the CCITT CRC-16 (polynomial 0x1021) used for
// telemetry log record framing.
package crc

type CRC16 uint16

// Single updates the crc with one byte
func (crc *CRC16) Single(b byte) {
	*crc ^= CRC16(b) << 8
	for i := 0; i < 8; i++ {
		if *crc&0x8000 != 0 {
			*crc = *crc<<1 ^ 0x1021
		} else {
			*crc <<= 1
		}
	}
}

// Block updates the crc with a block of bytes
func (crc *CRC16) Block(data []byte) {
	for _, b := range data {
		crc.Single(b)
	}
}

// Checksum returns the CCITT CRC-16 of data, starting from zero
func Checksum(data []byte) uint16 {
	crc := CRC16(0)
	crc.Block(data)
	return uint16(crc)
}
