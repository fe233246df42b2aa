// Package gateway implements raw CAN frame exchange against named buses.
// Frames are addressed by arbitration ID only, reception keeps the newest
// frame per ID in a mailbox so that callers can poll at their own rate.
package gateway

import (
	"sort"
	"sync"
	"time"

	canplat "github.com/mlajoie/canplat"
	"github.com/mlajoie/canplat/internal/fifo"
	"github.com/mlajoie/canplat/internal/metrics"
	can "github.com/mlajoie/canplat/pkg/can"
	log "github.com/sirupsen/logrus"
)

const defaultBacklogSize = 256

// Gateway multiplexes several named CAN buses
type Gateway struct {
	mu    sync.RWMutex
	ports map[string]*port
	now   func() float64
}

// A port is one attached bus with its reception state
type port struct {
	name      string
	bus       canplat.Bus
	mu        sync.Mutex
	mailboxes map[uint32]*mailbox
	backlog   *fifo.FrameFifo
	now       func() float64
}

// Newest frame received for a given arbitration ID
type mailbox struct {
	frame     canplat.Frame
	timestamp float64
	fresh     bool
}

type Option func(*Gateway)

// WithClock overrides the timestamp source, mainly for simulation
func WithClock(now func() float64) Option {
	return func(gw *Gateway) {
		gw.now = now
	}
}

func New(options ...Option) *Gateway {
	gw := &Gateway{
		ports: make(map[string]*port),
		now: func() float64 {
			return float64(time.Now().UnixNano()) / 1e9
		},
	}
	for _, opt := range options {
		opt(gw)
	}
	return gw
}

// AttachBus registers an already created bus under the given name and
// subscribes to its frames. The bus should be connected by the caller.
func (gw *Gateway) AttachBus(name string, bus canplat.Bus) error {
	if name == "" || bus == nil {
		return canplat.ErrIllegalArgument
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if _, ok := gw.ports[name]; ok {
		return canplat.ErrBusNameTaken
	}
	p := &port{
		name:      name,
		bus:       bus,
		mailboxes: make(map[uint32]*mailbox),
		backlog:   fifo.NewFrameFifo(defaultBacklogSize),
		now:       gw.now,
	}
	err := bus.Subscribe(p)
	if err != nil {
		return err
	}
	gw.ports[name] = p
	log.Infof("[GATEWAY] attached bus %v (%T)", name, bus)
	return nil
}

// Attach creates a bus of the given interface type, connects it and
// registers it under name. Supported types are listed in [can.ImplementedInterfaces].
func (gw *Gateway) Attach(name string, interfaceType string, channel string, bitrate int) (canplat.Bus, error) {
	bus, err := can.NewBus(interfaceType, channel, bitrate)
	if err != nil {
		return nil, err
	}
	err = bus.Connect()
	if err != nil {
		return nil, err
	}
	err = gw.AttachBus(name, bus)
	if err != nil {
		bus.Disconnect()
		return nil, err
	}
	return bus, nil
}

// Detach disconnects the named bus and removes it from the gateway
func (gw *Gateway) Detach(name string) error {
	gw.mu.Lock()
	p, ok := gw.ports[name]
	delete(gw.ports, name)
	gw.mu.Unlock()
	if !ok {
		return canplat.ErrInvalidBusName
	}
	return p.bus.Disconnect()
}

// Disconnect detaches every bus
func (gw *Gateway) Disconnect() {
	gw.mu.Lock()
	ports := gw.ports
	gw.ports = make(map[string]*port)
	gw.mu.Unlock()
	for _, p := range ports {
		if err := p.bus.Disconnect(); err != nil {
			log.Errorf("[GATEWAY] error disconnecting bus %v : %v", p.name, err)
		}
	}
}

// Buses returns the attached bus names, sorted
func (gw *Gateway) Buses() []string {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	names := make([]string, 0, len(gw.ports))
	for name := range gw.ports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (gw *Gateway) port(name string) *port {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	return gw.ports[name]
}

// Handle implements canplat.FrameListener for the attached bus
func (p *port) Handle(frame canplat.Frame) {
	p.mu.Lock()
	box, ok := p.mailboxes[frame.ID]
	if !ok {
		box = &mailbox{}
		p.mailboxes[frame.ID] = box
	}
	box.frame = frame
	box.timestamp = p.now()
	box.fresh = true
	if !p.backlog.Push(frame) {
		// Keep the newest frames, evict the oldest
		p.backlog.Pop()
		p.backlog.Push(frame)
	}
	p.mu.Unlock()
	metrics.GatewayRxFrames.WithLabelValues(p.name).Inc()
}

// Send transmits one frame on the named bus. There is no return value,
// failures are only reported on the diagnostic channel when printErr is
// set. The caller keeps ownership of data, it is copied before sending.
func (gw *Gateway) Send(id uint32, data []byte, busName string, printErr bool) {
	if len(data) > int(canplat.MaxFrameDataLength) {
		metrics.GatewayTxErrors.WithLabelValues(busName).Inc()
		if printErr {
			log.Errorf("[GATEWAY] cannot send %v bytes in a single frame on %v", len(data), busName)
		}
		return
	}
	p := gw.port(busName)
	if p == nil {
		metrics.GatewayTxErrors.WithLabelValues(busName).Inc()
		if printErr {
			log.Errorf("[GATEWAY] no bus attached with name %v", busName)
		}
		return
	}
	frame := canplat.NewFrame(id, 0, uint8(len(data)))
	copy(frame.Data[:], data)
	err := p.bus.Send(frame)
	if err != nil {
		metrics.GatewayTxErrors.WithLabelValues(busName).Inc()
		if printErr {
			log.Errorf("[GATEWAY] failed to send frame x%x on %v : %v", id, busName, err)
		}
		return
	}
	metrics.GatewayTxFrames.WithLabelValues(busName).Inc()
}

// Poll returns the newest frame received for id on the named bus together
// with its reception timestamp in seconds. The first poll of a frame
// returns StatusOK, further polls of the same frame return
// StatusCanMessageStale until a new one arrives.
func (gw *Gateway) Poll(id uint32, busName string) (canplat.Frame, float64, canplat.Status) {
	p := gw.port(busName)
	if p == nil {
		return canplat.Frame{}, 0, canplat.StatusInvalidNetwork
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	box, ok := p.mailboxes[id]
	if !ok {
		return canplat.Frame{}, 0, canplat.StatusRxTimeout
	}
	if !box.fresh {
		metrics.GatewayStaleReads.WithLabelValues(busName).Inc()
		return box.frame, box.timestamp, canplat.StatusCanMessageStale
	}
	box.fresh = false
	return box.frame, box.timestamp, canplat.StatusOK
}

// Receive polls for the newest frame matching id on the named bus and
// copies its payload into buf. It returns the payload length and a status
// code. When no frame has ever been received the status is negative and
// the returned length is 0, buf is left untouched. A frame that was
// already consumed is copied again with a stale warning status.
func (gw *Gateway) Receive(id uint32, buf []byte, busName string, printErr bool) (int, canplat.Status) {
	frame, _, status := gw.Poll(id, busName)
	if status.IsError() {
		if printErr {
			log.Errorf("[GATEWAY] receive x%x on %v : %v", id, busName, status)
		}
		return 0, status
	}
	if len(buf) < int(frame.DLC) {
		if printErr {
			log.Errorf("[GATEWAY] receive buffer too small : %v < %v", len(buf), frame.DLC)
		}
		return 0, canplat.StatusInvalidSize
	}
	copy(buf, frame.Data[:frame.DLC])
	return int(frame.DLC), status
}

// ReceiveAny pops the oldest frame from the arrival order backlog of the
// named bus, regardless of its arbitration ID. Useful for bus sniffing.
func (gw *Gateway) ReceiveAny(buf []byte, busName string, printErr bool) (uint32, int, canplat.Status) {
	p := gw.port(busName)
	if p == nil {
		if printErr {
			log.Errorf("[GATEWAY] no bus attached with name %v", busName)
		}
		return 0, 0, canplat.StatusInvalidNetwork
	}
	p.mu.Lock()
	frame, ok := p.backlog.Pop()
	p.mu.Unlock()
	if !ok {
		return 0, 0, canplat.StatusRxTimeout
	}
	if len(buf) < int(frame.DLC) {
		if printErr {
			log.Errorf("[GATEWAY] receive buffer too small : %v < %v", len(buf), frame.DLC)
		}
		return 0, 0, canplat.StatusInvalidSize
	}
	copy(buf, frame.Data[:frame.DLC])
	return frame.ID, int(frame.DLC), canplat.StatusOK
}
