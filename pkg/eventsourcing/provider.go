package eventsourcing

import "context"

// EventWriter is the write side of the storage-provider SPI (§4.3).
// Implementations must provide:
//   - Atomicity: either all events in the commit become visible with the
//     given SequenceNumber, or none do.
//   - Optimistic concurrency: fail with ErrConcurrency if a commit with the
//     same AggregateID and SequenceNumber already exists.
//   - Durability before acknowledgement: reads following a successful
//     return observe the commit.
//   - No reordering: successful commits for one aggregate appear in
//     ascending SequenceNumber to readers.
type EventWriter interface {
	WriteCommit(ctx context.Context, commit Commit) error
}

// EventPage is one page of a replay, as returned by EventReader (§4.4).
type EventPage struct {
	// Events is non-empty unless the requested range is exhausted.
	Events []SerializedEvent

	// ContinuationToken is opaque; a non-empty token means the caller must
	// call ReadContinuation to continue. Empty means the stream is
	// exhausted. Callers must treat it as a black box — never synthesize
	// or compare tokens (§9).
	ContinuationToken string
}

// EventReader is the read side of the storage-provider SPI (§4.4). A
// provider may batch transparently across commit boundaries; callers see a
// flat, strictly-increasing-by-SequenceNumber event stream.
type EventReader interface {
	// Read returns events with minEventSeq <= SequenceNumber <= maxEventSeq,
	// up to maxItems, in increasing SequenceNumber order.
	Read(ctx context.Context, aggregateID AggregateID, minEventSeq, maxEventSeq int64, maxItems int) (EventPage, error)

	// ReadContinuation resumes paging from a token returned by a prior Read
	// or ReadContinuation call, preserving the ordering invariant.
	ReadContinuation(ctx context.Context, token string) (EventPage, error)
}

// SnapshotWriter is the write side of the snapshot SPI (§6). Idempotent by
// (AggregateID, EventSequenceNumber): overwriting with a strictly greater
// sequence is permitted; writing a lesser-or-equal sequence must be a no-op
// or a failure, never a regression.
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, snapshot SerializedSnapshot) error
}

// SnapshotReader is the read side of the snapshot SPI (§6). It returns the
// highest-sequence snapshot with EventSequenceNumber <= upToSequence, or the
// empty sentinel (EmptySerializedSnapshot) if none exists.
type SnapshotReader interface {
	ReadSnapshot(ctx context.Context, aggregateID AggregateID, upToSequence int64) (SerializedSnapshot, error)
}

// SnapshotPruner is an optional capability a SnapshotWriter may also
// implement to discard superseded snapshots (§12 supplement, grounded on the
// teacher's store.SnapshotStore.DeleteOldSnapshots). The core never calls
// this itself; it is offered for callers that manage retention explicitly.
type SnapshotPruner interface {
	PruneSnapshots(ctx context.Context, aggregateID AggregateID, olderThanEventSeq int64) error
}
