package eventsourcing

// EventSerializer converts between the in-memory Event[P] form and the
// opaque SerializedEvent a provider stores (§4.1). Implementations must be
// stateless (or configuration-only) and safe to share across concurrent
// operations. Go has no generic methods, so the interface itself is
// parameterized per payload type P rather than its methods — this is the
// "monomorphized generics ... zero-cost on the hot path" design called for
// in §9: each concrete payload type gets its own statically-dispatched
// serializer value, no reflection-driven dynamic dispatch in the core.
type EventSerializer[P any] interface {
	// SerializeEvent encodes an event's payload into a SerializedEvent.
	SerializeEvent(event Event[P]) (SerializedEvent, error)

	// DeserializeEvent decodes a SerializedEvent back into Event[P]. Must
	// round-trip: DeserializeEvent(SerializeEvent(e)) == e for every e.
	DeserializeEvent(serialized SerializedEvent) (Event[P], error)
}

// SnapshotSerializer converts between Snapshot[M] and SerializedSnapshot
// (§4.1). defaultMemento is threaded through DeserializeSnapshot rather than
// baked into the serializer so that a single serializer value can back
// aggregates whose "no snapshot yet" memento depends on caller context
// (e.g. needs to allocate a map) — see DESIGN.md for this resolution of the
// §4.6 "default_memento_factory" input.
type SnapshotSerializer[M any] interface {
	// SerializeSnapshot encodes a snapshot's memento into a SerializedSnapshot.
	SerializeSnapshot(snapshot Snapshot[M]) (SerializedSnapshot, error)

	// DeserializeSnapshot decodes a SerializedSnapshot back into Snapshot[M].
	// If serialized.IsEmpty, it returns a Snapshot at
	// (CommitSequenceNumber=-1, EventSequenceNumber=-1) with a memento
	// produced by defaultMemento, per §4.1.
	DeserializeSnapshot(serialized SerializedSnapshot, defaultMemento func() M) (Snapshot[M], error)
}
