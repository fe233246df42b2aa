// Package fifo implements a circular frame buffer used by the gateway
// to keep frames in arrival order.
package fifo

import canplat "github.com/mlajoie/canplat"

type FrameFifo struct {
	buffer   []canplat.Frame
	writePos int
	readPos  int
}

// NewFrameFifo creates a fifo that can hold up to size-1 frames
func NewFrameFifo(size uint16) *FrameFifo {
	return &FrameFifo{buffer: make([]canplat.Frame, size)}
}

func (f *FrameFifo) Reset() {
	f.readPos = 0
	f.writePos = 0
}

func (f *FrameFifo) Space() int {
	sizeLeft := f.readPos - f.writePos - 1
	if sizeLeft < 0 {
		sizeLeft += len(f.buffer)
	}
	return sizeLeft
}

func (f *FrameFifo) Occupied() int {
	sizeOccupied := f.writePos - f.readPos
	if sizeOccupied < 0 {
		sizeOccupied += len(f.buffer)
	}
	return sizeOccupied
}

// Push appends one frame, returns false if the fifo is full
// and the frame was discarded
func (f *FrameFifo) Push(frame canplat.Frame) bool {
	writePosNext := f.writePos + 1
	if writePosNext == f.readPos || (writePosNext == len(f.buffer) && f.readPos == 0) {
		return false
	}
	f.buffer[f.writePos] = frame
	if writePosNext == len(f.buffer) {
		f.writePos = 0
	} else {
		f.writePos = writePosNext
	}
	return true
}

// Pop removes the oldest frame, second return value is false when empty
func (f *FrameFifo) Pop() (canplat.Frame, bool) {
	if f.readPos == f.writePos {
		return canplat.Frame{}, false
	}
	frame := f.buffer[f.readPos]
	f.readPos++
	if f.readPos == len(f.buffer) {
		f.readPos = 0
	}
	return frame, true
}
