package eventsourcing

// Commit is an atomic unit of persistence: one or more events that become
// durable together (§3).
type Commit struct {
	// AggregateID identifies the aggregate this commit belongs to.
	AggregateID AggregateID

	// PartitionKey routes the commit to the aggregate's storage partition.
	PartitionKey PartitionKey

	// SequenceNumber is this commit's position in the aggregate's commit
	// stream; equals the previous commit's SequenceNumber+1, or 0 for the
	// first commit.
	SequenceNumber int64

	// TimestampMS is when the commit was constructed, in Unix milliseconds.
	TimestampMS int64

	// Events is the ordered, non-empty list of events in this commit. Event
	// sequence numbers increase by exactly 1 across the list, and the first
	// equals the previous commit's last event sequence number + 1 (or 0 for
	// the first commit).
	Events []SerializedEvent
}
