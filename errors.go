package canplat

import "errors"

var (
	ErrIllegalArgument = errors.New("error in function arguments")
	ErrInvalidBusName  = errors.New("no bus attached with this name")
	ErrBusNameTaken    = errors.New("a bus with this name is already attached")
	ErrFrameTooLong    = errors.New("frame payload exceeds 8 bytes")
	ErrNotConnected    = errors.New("driver not ready")
	ErrCRC             = errors.New("crc does not match")
)
