// Package telemetry implements the signal logger. Entries are queued by
// the writer calls and flushed to a sink in batches by a background
// goroutine, so the write path never blocks on disk.
package telemetry

import (
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	canplat "github.com/mlajoie/canplat"
	"github.com/mlajoie/canplat/internal/metrics"
	log "github.com/sirupsen/logrus"
)

const (
	defaultQueueSize     = 4096
	defaultBatchSize     = 64
	defaultFlushInterval = 100 * time.Millisecond
)

type loggerState uint8

const (
	stateUnconfigured loggerState = iota
	statePathSet
	stateRunning
	stateStopped
)

// Logger records timestamped telemetry entries to a sink.
// All methods are safe for concurrent use. Failures are reported as
// [canplat.Status] codes rather than errors so that callers on the
// control path can ignore them cheaply.
type Logger struct {
	mu          sync.Mutex
	state       loggerState
	path        string
	queue       chan Entry
	done        chan struct{}
	autoLogging atomic.Bool

	queueSize     int
	batchSize     int
	flushInterval time.Duration
	now           func() float64
	newSink       SinkFactory
}

type LoggerOption func(*Logger)

// WithQueueSize sets the entry queue capacity
func WithQueueSize(size int) LoggerOption {
	return func(l *Logger) {
		l.queueSize = size
	}
}

// WithBatchSize sets how many entries are written to the sink at once
func WithBatchSize(size int) LoggerOption {
	return func(l *Logger) {
		l.batchSize = size
	}
}

// WithFlushInterval sets how often a partial batch is flushed
func WithFlushInterval(interval time.Duration) LoggerOption {
	return func(l *Logger) {
		l.flushInterval = interval
	}
}

// WithClock overrides the timestamp source, mainly for simulation
func WithClock(now func() float64) LoggerOption {
	return func(l *Logger) {
		l.now = now
	}
}

// WithSinkFactory overrides the default binary file sink
func WithSinkFactory(factory SinkFactory) LoggerOption {
	return func(l *Logger) {
		l.newSink = factory
	}
}

func NewLogger(options ...LoggerOption) *Logger {
	l := &Logger{
		queueSize:     defaultQueueSize,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		now: func() float64 {
			return float64(time.Now().UnixNano()) / 1e9
		},
		newSink: func(path string) (Sink, error) {
			return NewFileSink(path)
		},
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// SetPath sets the output directory for new log files. The directory
// must already exist. Changing the path while the logger is running
// stops it and starts it again in the new location.
func (l *Logger) SetPath(path string) canplat.Status {
	if path == "" {
		return canplat.StatusInvalidParamValue
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return canplat.StatusDirectoryMissing
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == stateRunning && path != l.path {
		l.path = path
		l.stopLocked()
		status := l.startLocked()
		if status.IsError() {
			// The old sink is gone and the new one never opened
			l.state = stateStopped
		}
		return status
	}
	l.path = path
	if l.state == stateUnconfigured {
		l.state = statePathSet
	}
	return canplat.StatusOK
}

// Path returns the configured output directory
func (l *Logger) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// Start begins accepting entries. Starting an already running logger is
// a no-op. Without a prior SetPath the current directory is used.
func (l *Logger) Start() canplat.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == stateRunning {
		return canplat.StatusOK
	}
	if l.path == "" {
		l.path = "."
	}
	return l.startLocked()
}

func (l *Logger) startLocked() canplat.Status {
	sink, err := l.newSink(l.path)
	if err != nil {
		log.Errorf("[TELEMETRY] failed to open sink in %v : %v", l.path, err)
		return canplat.StatusCouldNotSerialize
	}
	l.queue = make(chan Entry, l.queueSize)
	l.done = make(chan struct{})
	go l.writeLoop(sink, l.queue, l.done)
	l.state = stateRunning
	return canplat.StatusOK
}

// Stop flushes pending entries and closes the sink. Stopping an already
// stopped logger is a no-op.
func (l *Logger) Stop() canplat.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != stateRunning {
		return canplat.StatusOK
	}
	l.stopLocked()
	l.state = stateStopped
	return canplat.StatusOK
}

func (l *Logger) stopLocked() {
	close(l.queue)
	<-l.done
	l.queue = nil
	l.done = nil
}

// Running reports whether the logger accepts entries
func (l *Logger) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == stateRunning
}

// EnableAutoLogging controls whether periodically refreshed signals
// mirror their values into the log without explicit writer calls
func (l *Logger) EnableAutoLogging(enable bool) canplat.Status {
	l.autoLogging.Store(enable)
	return canplat.StatusOK
}

// AutoLoggingEnabled reports whether signal mirroring is active
func (l *Logger) AutoLoggingEnabled() bool {
	return l.autoLogging.Load()
}

func (l *Logger) writeLoop(sink Sink, queue chan Entry, done chan struct{}) {
	ticker := time.NewTicker(l.flushInterval)
	defer ticker.Stop()
	batch := make([]Entry, 0, l.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := sink.Write(batch); err != nil {
			log.Errorf("[TELEMETRY] sink write error : %v", err)
		}
		batch = batch[:0]
	}
	for {
		select {
		case entry, ok := <-queue:
			if !ok {
				flush()
				if err := sink.Close(); err != nil {
					log.Errorf("[TELEMETRY] sink close error : %v", err)
				}
				close(done)
				return
			}
			metrics.LoggerQueueDepth.Set(float64(len(queue)))
			batch = append(batch, entry)
			if len(batch) >= l.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Name and units are stored with a single length byte
const maxLabelLength = 255

// write validates the common entry fields and enqueues it.
// A full queue drops the entry rather than blocking the caller.
func (l *Logger) write(entry Entry) canplat.Status {
	if entry.Name == "" || len(entry.Name) > maxLabelLength || len(entry.Units) > maxLabelLength {
		return canplat.StatusInvalidParamValue
	}
	if entry.payloadSize() > MaxLogPacketSize {
		return canplat.StatusInvalidSize
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != stateRunning {
		return canplat.StatusLoggerNotRunning
	}
	entry.Timestamp = l.now()
	select {
	case l.queue <- entry:
		metrics.LoggerEntries.Inc()
		return canplat.StatusOK
	default:
		metrics.LoggerDropped.Inc()
		return canplat.StatusBufferFull
	}
}

// WriteRaw records an opaque byte payload of up to [MaxLogPacketSize] bytes
func (l *Logger) WriteRaw(name string, data []byte, units string) canplat.Status {
	if len(data) > MaxLogPacketSize {
		return canplat.StatusInvalidSize
	}
	return l.write(Entry{
		Name:  name,
		Units: units,
		Kind:  KindRaw,
		Raw:   append([]byte{}, data...),
	})
}

func (l *Logger) WriteBoolean(name string, value bool, units string) canplat.Status {
	return l.write(Entry{
		Name:     name,
		Units:    units,
		Kind:     KindBoolean,
		Booleans: []bool{value},
	})
}

func (l *Logger) WriteInteger(name string, value int64, units string) canplat.Status {
	return l.write(Entry{
		Name:     name,
		Units:    units,
		Kind:     KindInteger,
		Integers: []int64{value},
	})
}

func (l *Logger) WriteFloat(name string, value float32, units string) canplat.Status {
	if math.IsNaN(float64(value)) || math.IsInf(float64(value), 0) {
		return canplat.StatusInvalidParamValue
	}
	return l.write(Entry{
		Name:   name,
		Units:  units,
		Kind:   KindFloat,
		Floats: []float32{value},
	})
}

func (l *Logger) WriteDouble(name string, value float64, units string) canplat.Status {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return canplat.StatusInvalidParamValue
	}
	return l.write(Entry{
		Name:    name,
		Units:   units,
		Kind:    KindDouble,
		Doubles: []float64{value},
	})
}

func (l *Logger) WriteString(name string, value string, units string) canplat.Status {
	if len(value) > MaxLogPacketSize {
		return canplat.StatusInvalidSize
	}
	return l.write(Entry{
		Name:  name,
		Units: units,
		Kind:  KindString,
		Str:   value,
	})
}

// WriteBooleanArray records the first count elements of values.
// Elements past count are never read.
func (l *Logger) WriteBooleanArray(name string, values []bool, count uint8, units string) canplat.Status {
	if int(count) > len(values) {
		return canplat.StatusInvalidSize
	}
	return l.write(Entry{
		Name:     name,
		Units:    units,
		Kind:     KindBooleanArray,
		Booleans: append([]bool{}, values[:count]...),
	})
}

func (l *Logger) WriteIntegerArray(name string, values []int64, count uint8, units string) canplat.Status {
	if int(count) > len(values) {
		return canplat.StatusInvalidSize
	}
	return l.write(Entry{
		Name:     name,
		Units:    units,
		Kind:     KindIntegerArray,
		Integers: append([]int64{}, values[:count]...),
	})
}

func (l *Logger) WriteFloatArray(name string, values []float32, count uint8, units string) canplat.Status {
	if int(count) > len(values) {
		return canplat.StatusInvalidSize
	}
	return l.write(Entry{
		Name:   name,
		Units:  units,
		Kind:   KindFloatArray,
		Floats: append([]float32{}, values[:count]...),
	})
}

func (l *Logger) WriteDoubleArray(name string, values []float64, count uint8, units string) canplat.Status {
	if int(count) > len(values) {
		return canplat.StatusInvalidSize
	}
	return l.write(Entry{
		Name:    name,
		Units:   units,
		Kind:    KindDoubleArray,
		Doubles: append([]float64{}, values[:count]...),
	})
}
