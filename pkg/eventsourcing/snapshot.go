package eventsourcing

// Snapshot is a checkpoint of an aggregate's folded domain state (the
// memento M) at a given sequence number, used to short-circuit replay (§3).
type Snapshot[M any] struct {
	AggregateID          AggregateID
	PartitionKey         PartitionKey
	CommitSequenceNumber int64
	EventSequenceNumber  int64
	Memento              M
}

// SerializedSnapshot is the codec's output: a snapshot with its memento
// already reduced to an opaque byte buffer (§3). The empty sentinel
// (IsEmpty=true) carries CommitSequenceNumber = EventSequenceNumber = -1 and
// represents "no snapshot exists yet".
type SerializedSnapshot struct {
	AggregateID          AggregateID
	PartitionKey         PartitionKey
	CommitSequenceNumber int64
	EventSequenceNumber  int64
	MementoBytes         []byte
	IsEmpty              bool
}

// EmptySerializedSnapshot returns the empty-snapshot sentinel for id/pk, per
// the tagged-variant representation recommended in §9 ("Empty-snapshot
// sentinel"): a SnapshotReader returns this rather than a zero-valued
// SerializedSnapshot with ambiguous field meaning.
func EmptySerializedSnapshot(id AggregateID, pk PartitionKey) SerializedSnapshot {
	return SerializedSnapshot{
		AggregateID:          id,
		PartitionKey:         pk,
		CommitSequenceNumber: -1,
		EventSequenceNumber:  -1,
		IsEmpty:              true,
	}
}
