// Package canplat implements the platform boundary used by CAN based motor
// controllers and sensors : raw frame exchange on named buses, a telemetry
// logger with typed writers and time/simulation queries.
package canplat

const (
	CanRtrFlag uint32 = 0x40000000
	CanEffFlag uint32 = 0x80000000
	CanSffMask uint32 = 0x000007FF

	// Maximum payload of a classic CAN frame
	MaxFrameDataLength uint8 = 8
)

// A CAN frame
type Frame struct {
	ID    uint32
	Flags uint8
	DLC   uint8
	Data  [8]byte
}

func NewFrame(id uint32, flags uint8, dlc uint8) Frame {
	return Frame{ID: id, Flags: flags, DLC: dlc}
}

// Interface for handling a received CAN frame
type FrameListener interface {
	Handle(frame Frame)
}

// A CAN Bus interface
type Bus interface {
	Connect(...any) error                   // Connect to the CAN bus
	Disconnect() error                      // Disconnect from CAN bus
	Send(frame Frame) error                 // Send a frame on the bus
	Subscribe(callback FrameListener) error // Subscribe to all received CAN frames
}
