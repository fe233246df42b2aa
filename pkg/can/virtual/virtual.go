package virtual

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	canplat "github.com/mlajoie/canplat"
	can "github.com/mlajoie/canplat/pkg/can"
	log "github.com/sirupsen/logrus"
)

// Virtual CAN bus implementation with TCP, primarily used for testing and
// simulation. Frames are length prefixed and exchanged through a broker that
// fans them out to every other connected client, see [Broker].
// Only the non extended frame format is supported.

func init() {
	can.RegisterInterface("virtual", NewVirtualCanBus)
	can.RegisterInterface("virtualcan", NewVirtualCanBus)
}

type VirtualCanBus struct {
	mu            sync.Mutex
	channel       string
	conn          net.Conn
	receiveOwn    bool
	framehandler  canplat.FrameListener
	stopChan      chan bool
	wg            sync.WaitGroup
	isRunning     bool
	errSubscriber bool
}

func NewVirtualCanBus(channel string) (canplat.Bus, error) {
	return &VirtualCanBus{channel: channel, stopChan: make(chan bool), isRunning: false}, nil
}

// Helper function for serializing a CAN frame into the expected binary format
func serializeFrame(frame canplat.Frame) ([]byte, error) {
	buffer := new(bytes.Buffer)
	err := binary.Write(buffer, binary.BigEndian, frame)
	if err != nil {
		return nil, err
	}
	dataBytes := buffer.Bytes()
	frameBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(frameBytes, uint32(len(dataBytes)))
	frameBytes = append(frameBytes, dataBytes...)
	return frameBytes, nil
}

// Helper function for deserializing a CAN frame from expected binary format
func deserializeFrame(buffer []byte) (*canplat.Frame, error) {
	var frame canplat.Frame
	buf := bytes.NewBuffer(buffer)
	err := binary.Read(buf, binary.BigEndian, &frame)
	if err != nil {
		return nil, err
	}
	return &frame, nil
}

// "Connect" to broker e.g. localhost:18888
func (client *VirtualCanBus) Connect(...any) error {
	conn, err := net.Dial("tcp", client.channel)
	if err != nil {
		return err
	}
	client.conn = conn
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		err := tcpConn.SetNoDelay(true)
		if err != nil {
			return err
		}
	}
	return nil
}

// "Disconnect" from broker
func (client *VirtualCanBus) Disconnect() error {
	client.mu.Lock()
	defer client.mu.Unlock()
	if !client.errSubscriber && client.isRunning {
		client.stopChan <- true
		client.wg.Wait()
	}
	if client.conn != nil {
		return client.conn.Close()
	}
	return nil
}

// "Send" implementation of Bus interface
func (client *VirtualCanBus) Send(frame canplat.Frame) error {
	// Local loopback
	if client.receiveOwn && client.framehandler != nil {
		client.framehandler.Handle(frame)
	} else if client.conn == nil {
		return canplat.ErrNotConnected
	}
	if client.conn != nil {
		frameBytes, err := serializeFrame(frame)
		if err != nil {
			return err
		}
		_ = client.conn.SetWriteDeadline(time.Now().Add(10 * time.Millisecond))
		_, err = client.conn.Write(frameBytes)
		return err
	}
	return nil
}

// "Subscribe" implementation of Bus interface
func (client *VirtualCanBus) Subscribe(framehandler canplat.FrameListener) error {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.framehandler = framehandler
	if client.isRunning || client.conn == nil {
		// Reception routine is only useful with an actual connection
		return nil
	}
	// Start go routine that receives incoming traffic and passes it to framehandler
	client.wg.Add(1)
	client.isRunning = true
	client.errSubscriber = false
	go client.handleReception()
	return nil
}

// Receive a single CAN frame from the broker connection
func (client *VirtualCanBus) Recv() (*canplat.Frame, error) {
	if client.conn == nil {
		return nil, canplat.ErrNotConnected
	}
	_ = client.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	headerBytes := make([]byte, 4)
	n, err := client.conn.Read(headerBytes)
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return nil, err
	}
	if n < 4 || err != nil {
		return nil, fmt.Errorf("error deserializing : expected %v, got %v, err : %v", 4, n, err)
	}
	length := binary.BigEndian.Uint32(headerBytes)
	frameBytes := make([]byte, length)
	_ = client.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	n, err = client.conn.Read(frameBytes)
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return nil, err
	}
	if n != int(length) || err != nil {
		return nil, fmt.Errorf("error deserializing : expected %v, got %v", length, n)
	}
	return deserializeFrame(frameBytes)
}

// Handle incoming traffic
func (client *VirtualCanBus) handleReception() {
	defer func() {
		client.isRunning = false
		client.wg.Done()
	}()
	for {
		select {
		case <-client.stopChan:
			return
		default:
			// Avoid blocking if lock is already taken (in particular for disconnect, subscribe, etc)
			success := client.mu.TryLock()
			if !success {
				break
			}
			frame, err := client.Recv()
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				// No message received, this is OK
			} else if err != nil {
				log.Errorf("[VIRTUAL DRIVER] listening routine has closed because : %v", err)
				client.errSubscriber = true
				client.mu.Unlock()
				return
			} else if client.framehandler != nil {
				client.framehandler.Handle(*frame)
			}
			client.mu.Unlock()
		}
	}
}

// Enable reception of frames sent by this client, without a broker connection.
// Useful for local loopback testing.
func (client *VirtualCanBus) SetReceiveOwn(receiveOwn bool) {
	client.receiveOwn = receiveOwn
}
