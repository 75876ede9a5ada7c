package eventsourcing

import "time"

// Event is the logical, in-process form of a domain event (§3). P is the
// domain-specific payload type; payload types are heterogeneous across an
// aggregate's event stream but fixed per event class, so Event is
// instantiated per payload rather than carrying an interface{} payload.
type Event[P any] struct {
	// AggregateID identifies the aggregate this event belongs to.
	AggregateID AggregateID

	// SequenceNumber must equal the aggregate's event_seq+1 at the moment
	// of application (§3 invariant).
	SequenceNumber int64

	// Payload is the domain-specific event data.
	Payload P

	// PayloadType uniquely identifies the schema of Payload and is required
	// for dispatch by domain code when replaying a heterogeneous stream.
	PayloadType string

	// Timestamp is optional; the zero value means "unset".
	Timestamp time.Time
}

// SerializedEvent is the codec's output: an event with its payload already
// reduced to an opaque byte buffer, ready for a storage provider (§3).
type SerializedEvent struct {
	// AggregateID identifies the aggregate this event belongs to.
	AggregateID AggregateID

	// SequenceNumber is the event's position within the aggregate's stream.
	SequenceNumber int64

	// CommitSequenceNumber is the sequence number of the commit this event
	// was written as part of. EventReader exposes a flat event stream with
	// commit boundaries transparently batched away (§4.4); carrying this
	// field lets AggregateReader recover commit_seq during replay without
	// requiring a separate commit-oriented read path. See DESIGN.md for the
	// rationale (§4.6 Open Question resolution).
	CommitSequenceNumber int64

	// PayloadType uniquely identifies the schema of PayloadBytes.
	PayloadType string

	// PayloadBytes is the codec-produced opaque payload.
	PayloadBytes []byte

	// ID is a content-derived identifier a provider may use as an
	// idempotent storage key (§12 supplement). ApplyEvent stamps this from
	// (AggregateID, SequenceNumber) via GenerateDeterministicEventID, so the
	// same position in an aggregate's stream always yields the same ID.
	ID string

	// Timestamp is optional; the zero value means "unset".
	Timestamp time.Time
}
