// Package signal layers cached, periodically refreshed values on top of
// the raw gateway mailboxes. A StatusSignal tracks a single arbitration
// ID and decodes its payload into a float64.
package signal

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	canplat "github.com/mlajoie/canplat"
	"github.com/mlajoie/canplat/pkg/gateway"
	"github.com/mlajoie/canplat/pkg/telemetry"
	log "github.com/sirupsen/logrus"
)

// DecodeFunc extracts the signal value from a frame payload
type DecodeFunc func(data []byte) float64

// DecodeIntegerLE interprets the payload as a little endian signed
// integer of up to 8 bytes.
func DecodeIntegerLE(data []byte) float64 {
	var raw [8]byte
	copy(raw[:], data)
	value := int64(binary.LittleEndian.Uint64(raw[:]))
	if len(data) < 8 && len(data) > 0 {
		// Sign extend from the actual payload width
		shift := uint(64 - 8*len(data))
		value = value << shift >> shift
	}
	return float64(value)
}

// DecodeDoubleLE interprets the first 8 bytes as a little endian float64
func DecodeDoubleLE(data []byte) float64 {
	if len(data) < 8 {
		return math.NaN()
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(data))
}

// Value is one decoded sample with its two timestamps. CANTimestamp is
// when the frame arrived at the gateway, SystemTimestamp is when the
// signal observed it.
type Value struct {
	Value           float64
	CANTimestamp    float64
	SystemTimestamp float64
}

// StatusSignal caches the latest decoded value of one arbitration ID
type StatusSignal struct {
	name    string
	units   string
	busName string
	arbID   uint32
	gw      *gateway.Gateway
	decode  DecodeFunc
	now     func() float64
	logger  *telemetry.Logger

	mu      sync.Mutex
	value   Value
	valid   bool
	stop    chan struct{}
	stopped sync.WaitGroup
}

type Option func(*StatusSignal)

// WithLogger mirrors every refreshed value into the telemetry logger
// when its auto logging flag is enabled
func WithLogger(logger *telemetry.Logger) Option {
	return func(s *StatusSignal) {
		s.logger = logger
	}
}

// WithSystemClock overrides the system timestamp source
func WithSystemClock(now func() float64) Option {
	return func(s *StatusSignal) {
		s.now = now
	}
}

func NewStatusSignal(gw *gateway.Gateway, busName string, arbID uint32, name string, units string, decode DecodeFunc, options ...Option) *StatusSignal {
	s := &StatusSignal{
		name:    name,
		units:   units,
		busName: busName,
		arbID:   arbID,
		gw:      gw,
		decode:  decode,
		now: func() float64 {
			return float64(time.Now().UnixNano()) / 1e9
		},
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *StatusSignal) Name() string {
	return s.name
}

func (s *StatusSignal) Units() string {
	return s.units
}

// Refresh polls the gateway for a new frame. When no new frame has
// arrived since the last refresh the cached value is kept and the
// returned status says so.
func (s *StatusSignal) Refresh() canplat.Status {
	frame, canTimestamp, status := s.gw.Poll(s.arbID, s.busName)
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case status == canplat.StatusRxTimeout:
		return canplat.StatusSigNotUpdated
	case status.IsError():
		return status
	case status == canplat.StatusCanMessageStale:
		if !s.valid {
			// Stale frame but first observation, still worth decoding
			break
		}
		return canplat.StatusCanMessageStale
	}
	s.value = Value{
		Value:           s.decode(frame.Data[:frame.DLC]),
		CANTimestamp:    canTimestamp,
		SystemTimestamp: s.now(),
	}
	s.valid = true
	if s.logger != nil && s.logger.AutoLoggingEnabled() {
		s.logger.WriteDouble(s.name, s.value.Value, s.units)
	}
	if status == canplat.StatusCanMessageStale {
		return canplat.StatusCanMessageStale
	}
	return canplat.StatusOK
}

// Value returns the cached sample. Before the first successful refresh
// the status is StatusSigNotUpdated and the sample is zero.
func (s *StatusSignal) Value() (Value, canplat.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.valid {
		return Value{}, canplat.StatusSigNotUpdated
	}
	return s.value, canplat.StatusOK
}

// SetUpdateFrequency starts a background refresh at the given rate.
// A frequency of zero or less stops the background refresh.
func (s *StatusSignal) SetUpdateFrequency(hz float64) canplat.Status {
	if hz > 1000 {
		return canplat.StatusInvalidParamValue
	}
	s.mu.Lock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.mu.Unlock()
	s.stopped.Wait()
	if hz <= 0 {
		return canplat.StatusOK
	}
	stop := make(chan struct{})
	s.mu.Lock()
	s.stop = stop
	s.mu.Unlock()
	s.stopped.Add(1)
	go s.poll(time.Duration(float64(time.Second)/hz), stop)
	log.Debugf("[SIGNAL] %v refreshing at %v Hz", s.name, hz)
	return canplat.StatusOK
}

func (s *StatusSignal) poll(period time.Duration, stop chan struct{}) {
	defer s.stopped.Done()
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Refresh()
		}
	}
}

// Close stops the background refresh if one is running
func (s *StatusSignal) Close() {
	s.mu.Lock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.mu.Unlock()
	s.stopped.Wait()
}
