package virtual

import (
	"encoding/binary"
	"io"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Broker is a TCP fan-out hub for virtual CAN buses. Every frame received
// from a client is forwarded to all other connected clients, which mimics
// a shared physical bus. Slow clients are disconnected rather than allowed
// to stall the bus.
type Broker struct {
	mu       sync.Mutex
	listener net.Listener
	clients  map[net.Conn]chan []byte
	wg       sync.WaitGroup
	closing  bool
}

func NewBroker() *Broker {
	return &Broker{clients: make(map[net.Conn]chan []byte)}
}

// Listen starts accepting clients on addr (e.g. "localhost:18888").
// Use port 0 to get an ephemeral port, the actual address is returned.
func (broker *Broker) Listen(addr string) (string, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	broker.listener = listener
	broker.wg.Add(1)
	go broker.acceptLoop()
	log.Infof("[VIRTUAL BROKER] listening on %v", listener.Addr())
	return listener.Addr().String(), nil
}

// Stop disconnects all clients and stops the broker
func (broker *Broker) Stop() error {
	broker.mu.Lock()
	broker.closing = true
	var err error
	if broker.listener != nil {
		err = broker.listener.Close()
	}
	for conn := range broker.clients {
		conn.Close()
	}
	broker.mu.Unlock()
	broker.wg.Wait()
	return err
}

// ClientCount returns the number of currently connected clients
func (broker *Broker) ClientCount() int {
	broker.mu.Lock()
	defer broker.mu.Unlock()
	return len(broker.clients)
}

func (broker *Broker) acceptLoop() {
	defer broker.wg.Done()
	for {
		conn, err := broker.listener.Accept()
		if err != nil {
			return
		}
		broker.addClient(conn)
	}
}

func (broker *Broker) addClient(conn net.Conn) {
	out := make(chan []byte, 128)
	broker.mu.Lock()
	broker.clients[conn] = out
	broker.mu.Unlock()
	log.Debugf("[VIRTUAL BROKER] client connected : %v", conn.RemoteAddr())
	broker.wg.Add(2)
	go broker.readClient(conn)
	go broker.writeClient(conn, out)
}

func (broker *Broker) removeClient(conn net.Conn) {
	broker.mu.Lock()
	out, ok := broker.clients[conn]
	if ok {
		delete(broker.clients, conn)
		close(out)
	}
	broker.mu.Unlock()
	conn.Close()
}

// Forward a raw serialized frame to every client except the sender.
// Frames for clients with a full queue are dropped and the client is
// kicked, its reception has stalled.
func (broker *Broker) broadcast(sender net.Conn, frameBytes []byte) {
	broker.mu.Lock()
	for conn, out := range broker.clients {
		if conn == sender {
			continue
		}
		select {
		case out <- frameBytes:
		default:
			log.Warnf("[VIRTUAL BROKER] kicking slow client : %v", conn.RemoteAddr())
			conn.Close()
		}
	}
	broker.mu.Unlock()
}

func (broker *Broker) readClient(conn net.Conn) {
	defer broker.wg.Done()
	defer broker.removeClient(conn)
	header := make([]byte, 4)
	for {
		_, err := io.ReadFull(conn, header)
		if err != nil {
			return
		}
		length := binary.BigEndian.Uint32(header)
		if length > 64 {
			log.Errorf("[VIRTUAL BROKER] malformed frame length %v from %v", length, conn.RemoteAddr())
			return
		}
		payload := make([]byte, length)
		_, err = io.ReadFull(conn, payload)
		if err != nil {
			return
		}
		frameBytes := make([]byte, 0, 4+length)
		frameBytes = append(frameBytes, header...)
		frameBytes = append(frameBytes, payload...)
		broker.broadcast(conn, frameBytes)
	}
}

func (broker *Broker) writeClient(conn net.Conn, out chan []byte) {
	defer broker.wg.Done()
	for frameBytes := range out {
		_, err := conn.Write(frameBytes)
		if err != nil {
			return
		}
	}
}
