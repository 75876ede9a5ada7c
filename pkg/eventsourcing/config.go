package eventsourcing

import "math"

// readerConfig holds AggregateReader's tunables, following the teacher's
// functional-options-over-a-private-struct pattern (e.g. the sqlite event
// store's eventStoreConfig).
type readerConfig struct {
	maxItemsPerBatch int
	upToSequence     int64
}

func defaultReaderConfig() readerConfig {
	return readerConfig{
		maxItemsPerBatch: 100,
		upToSequence:     math.MaxInt64,
	}
}

// ReaderOption configures an AggregateReader.Read call.
type ReaderOption func(*readerConfig)

// WithMaxItemsPerBatch overrides the page-size hint given to the
// EventReader during rehydration (default 100, per §6).
func WithMaxItemsPerBatch(n int) ReaderOption {
	return func(c *readerConfig) {
		if n > 0 {
			c.maxItemsPerBatch = n
		}
	}
}

// WithUpToSequence bounds a historical read to events with sequence number
// <= seq (default: unbounded, per §6).
func WithUpToSequence(seq int64) ReaderOption {
	return func(c *readerConfig) {
		c.upToSequence = seq
	}
}
