package slcan

import (
	"encoding/hex"
	"fmt"

	canplat "github.com/mlajoie/canplat"
)

// SLCAN (Lawicel) ASCII codec. A standard data frame is encoded as
// 't' + 3 hex digit identifier + 1 digit length + data as hex + '\r'.
// Extended frames use 'T' with an 8 digit identifier.

const terminator = byte('\r')

// Marshal encodes a frame into its SLCAN ASCII representation
func Marshal(frame canplat.Frame) ([]byte, error) {
	if frame.DLC > canplat.MaxFrameDataLength {
		return nil, canplat.ErrFrameTooLong
	}
	var out []byte
	if frame.ID&canplat.CanEffFlag != 0 {
		out = append(out, 'T')
		out = append(out, []byte(fmt.Sprintf("%08X", frame.ID&^canplat.CanEffFlag))...)
	} else {
		out = append(out, 't')
		out = append(out, []byte(fmt.Sprintf("%03X", frame.ID&canplat.CanSffMask))...)
	}
	out = append(out, '0'+frame.DLC)
	out = append(out, []byte(fmt.Sprintf("%X", frame.Data[:frame.DLC]))...)
	out = append(out, terminator)
	return out, nil
}

// Unmarshal decodes a single SLCAN ASCII line, without its terminator
func Unmarshal(line []byte) (canplat.Frame, error) {
	frame := canplat.Frame{}
	if len(line) < 5 {
		return frame, fmt.Errorf("line too short : %v", len(line))
	}
	var idLen int
	switch line[0] {
	case 't':
		idLen = 3
	case 'T':
		idLen = 8
	default:
		return frame, fmt.Errorf("unsupported frame type : %q", line[0])
	}
	if len(line) < 1+idLen+1 {
		return frame, fmt.Errorf("line too short : %v", len(line))
	}
	var id uint32
	_, err := fmt.Sscanf(string(line[1:1+idLen]), "%X", &id)
	if err != nil {
		return frame, fmt.Errorf("invalid identifier : %v", err)
	}
	if idLen == 8 {
		id |= canplat.CanEffFlag
	}
	dlc := line[1+idLen] - '0'
	if dlc > canplat.MaxFrameDataLength {
		return frame, fmt.Errorf("invalid DLC %v", dlc)
	}
	dataHex := line[1+idLen+1:]
	if len(dataHex) != int(dlc)*2 {
		return frame, fmt.Errorf("expected %v data characters, got %v", int(dlc)*2, len(dataHex))
	}
	data, err := hex.DecodeString(string(dataHex))
	if err != nil {
		return frame, fmt.Errorf("invalid data : %v", err)
	}
	frame.ID = id
	frame.DLC = dlc
	copy(frame.Data[:], data)
	return frame, nil
}
