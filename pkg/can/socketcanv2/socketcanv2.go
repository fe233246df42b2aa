//go:build linux

package socketcanv2

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"syscall"
	"unsafe"

	canplat "github.com/mlajoie/canplat"
	can "github.com/mlajoie/canplat/pkg/can"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	SocketCANFrameSize  = 16
	DefaultRcvTimeoutUs = 100000
)

func init() {
	can.RegisterInterface("socketcanv2", NewSocketCanBus)
}

// Kernel representation of a classic CAN frame
type CANframe struct {
	id   uint32
	dlc  uint8
	pad  uint8
	res0 uint8
	res1 uint8
	data [8]uint8
}

type SocketcanBus struct {
	f          *os.File
	fd         int
	rxCallback canplat.FrameListener
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// Create a new SocketCAN bus without an external dependency.
// This expects the CAN channel to be up, e.g. running "ip a"
// should show can0 or something similar.
func NewSocketCanBus(channel string) (canplat.Bus, error) {
	iface, err := net.InterfaceByName(channel)
	if err != nil {
		return nil, err
	}
	fd, err := syscall.Socket(syscall.AF_CAN, syscall.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("failed to create CAN socket : %v", err)
	}
	tv := unix.NsecToTimeval(int64(DefaultRcvTimeoutUs) * 1000)
	err = unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
	if err != nil {
		return nil, fmt.Errorf("failed to set read timeout %v", err)
	}
	addr := &unix.SockaddrCAN{Ifindex: iface.Index}
	if err := unix.Bind(fd, addr); err != nil {
		return nil, err
	}
	return &SocketcanBus{fd: fd}, nil
}

// "Connect" implementation of Bus interface
func (s *SocketcanBus) Connect(...any) error {
	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	s.f = os.NewFile(uintptr(s.fd), fmt.Sprintf("fd %d", s.fd))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.processIncoming(ctx)
	}()
	return nil
}

// "Disconnect" implementation of Bus interface
func (s *SocketcanBus) Disconnect() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	s.wg.Wait()
	return s.f.Close()
}

// "Send" implementation of Bus interface
func (s *SocketcanBus) Send(frame canplat.Frame) error {
	canFrame := &CANframe{}
	canFrame.id = frame.ID
	canFrame.dlc = frame.DLC
	canFrame.pad = frame.Flags
	canFrame.data = frame.Data

	rawData := (*(*[SocketCANFrameSize]byte)(unsafe.Pointer(canFrame)))[:]
	n, err := s.f.Write(rawData)
	if n != SocketCANFrameSize || err != nil {
		return err
	}
	return nil
}

// process incoming frames. This is meant to be run inside of a goroutine
func (s *SocketcanBus) processIncoming(ctx context.Context) {
	frame := &CANframe{}
	rxFrame := make([]byte, SocketCANFrameSize)
	platFrame := canplat.Frame{}
	for {
		select {
		case <-ctx.Done():
			log.Info("[SOCKETCAN] exiting CAN bus reception, closed")
			return
		default:
			n, err := s.f.Read(rxFrame)
			if n != SocketCANFrameSize || err != nil {
				log.Info("[SOCKETCAN] exiting CAN bus reception")
				return
			}
			// Direct translation of kernel frame layout
			frame = (*CANframe)(unsafe.Pointer(&rxFrame[0]))
			platFrame.ID = frame.id
			platFrame.DLC = frame.dlc
			platFrame.Flags = frame.pad
			platFrame.Data = frame.data
			if s.rxCallback != nil {
				s.rxCallback.Handle(platFrame)
			}
		}
	}
}

// "Subscribe" implementation of Bus interface
func (s *SocketcanBus) Subscribe(rxCallback canplat.FrameListener) error {
	s.rxCallback = rxCallback
	return nil
}

// Enable own reception on the bus. Can be useful when testing
func (s *SocketcanBus) SetReceiveOwn(enabled bool) error {
	enabledInt := 0
	if enabled {
		enabledInt = 1
	}
	return unix.SetsockoptInt(s.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_RECV_OWN_MSGS, enabledInt)
}

// Add some filtering to CAN bus
func (s *SocketcanBus) SetFilters(filters []unix.CanFilter) error {
	return unix.SetsockoptCanRawFilter(s.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, filters)
}
