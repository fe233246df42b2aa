package telemetry

// Sink receives batches of telemetry entries. Implementations must be
// safe to call from the logger goroutine only, the logger serializes
// all writes.
type Sink interface {
	// Write persists one batch of entries
	Write(entries []Entry) error
	// Close flushes and releases the sink
	Close() error
}

// SinkFactory creates a sink for the given output path. It is invoked
// on every logger start, including restarts after a path change.
type SinkFactory func(path string) (Sink, error)
