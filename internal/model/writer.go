package model

// Writer defines a generic interface for persisting batches of records to
// a store. Implementations are expected to be safe for use from a single
// recording goroutine.
type Writer interface {
	// Write persists a batch of records.
	Write(records []Record) error

	// Close flushes any buffered state and releases the underlying store.
	Close() error
}
