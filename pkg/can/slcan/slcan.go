package slcan

import (
	"sync"
	"time"

	canplat "github.com/mlajoie/canplat"
	can "github.com/mlajoie/canplat/pkg/can"
	log "github.com/sirupsen/logrus"
	"github.com/tarm/serial"
)

// CAN over a serial SLCAN adapter (USB-CAN dongles, Lawicel compatible).

const DefaultBaudRate = 115200

func init() {
	can.RegisterInterface("slcan", NewSlcanBus)
}

// Port abstracts the serial port for testability
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

type SlcanBus struct {
	channel    string
	port       Port
	rxCallback canplat.FrameListener
	stopChan   chan bool
	wg         sync.WaitGroup
	isRunning  bool
}

func NewSlcanBus(channel string) (canplat.Bus, error) {
	return &SlcanBus{channel: channel, stopChan: make(chan bool)}, nil
}

// "Connect" implementation of Bus interface, opens the serial port
// e.g. /dev/ttyACM0 and puts the adapter in open channel mode
func (s *SlcanBus) Connect(...any) error {
	port, err := serial.OpenPort(&serial.Config{
		Name:        s.channel,
		Baud:        DefaultBaudRate,
		ReadTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		return err
	}
	s.port = port
	// Open the CAN channel on the adapter
	_, err = s.port.Write([]byte("O\r"))
	return err
}

// "Disconnect" implementation of Bus interface
func (s *SlcanBus) Disconnect() error {
	if s.isRunning {
		s.stopChan <- true
		s.wg.Wait()
	}
	if s.port == nil {
		return nil
	}
	// Close the CAN channel before releasing the port
	_, _ = s.port.Write([]byte("C\r"))
	return s.port.Close()
}

// "Send" implementation of Bus interface
func (s *SlcanBus) Send(frame canplat.Frame) error {
	if s.port == nil {
		return canplat.ErrNotConnected
	}
	line, err := Marshal(frame)
	if err != nil {
		return err
	}
	_, err = s.port.Write(line)
	return err
}

// "Subscribe" implementation of Bus interface
func (s *SlcanBus) Subscribe(rxCallback canplat.FrameListener) error {
	s.rxCallback = rxCallback
	if s.isRunning || s.port == nil {
		return nil
	}
	s.wg.Add(1)
	s.isRunning = true
	go s.handleReception()
	return nil
}

// Accumulate serial bytes and dispatch once a full line is received
func (s *SlcanBus) handleReception() {
	defer func() {
		s.isRunning = false
		s.wg.Done()
	}()
	pending := make([]byte, 0, 32)
	buffer := make([]byte, 64)
	for {
		select {
		case <-s.stopChan:
			return
		default:
			n, err := s.port.Read(buffer)
			if err != nil {
				log.Errorf("[SLCAN] listening routine has closed because : %v", err)
				return
			}
			for _, b := range buffer[:n] {
				if b != terminator {
					pending = append(pending, b)
					continue
				}
				if len(pending) == 0 {
					continue
				}
				frame, err := Unmarshal(pending)
				pending = pending[:0]
				if err != nil {
					log.Warnf("[SLCAN] dropping malformed line : %v", err)
					continue
				}
				if s.rxCallback != nil {
					s.rxCallback.Handle(frame)
				}
			}
		}
	}
}
