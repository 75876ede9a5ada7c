// Package protocodec implements eventsourcing.EventSerializer and
// SnapshotSerializer over protocol buffer messages, grounded on the
// teacher's AggregateRoot.ApplyChangeWithConstraints (pkg/eventsourcing,
// proto.Marshal into an opaque Data []byte field). Unlike the teacher, which
// dispatches on a runtime proto.Message value, this package carries the
// concrete message type as a generic parameter so encode/decode is
// statically dispatched, per the core's monomorphized-generics design.
package protocodec

import (
	"fmt"

	"google.golang.org/protobuf/proto"

	"github.com/kestrelhq/aggregatestore/pkg/eventsourcing"
)

// EventSerializer implements eventsourcing.EventSerializer[P] for a protocol
// buffer payload type P. New must return a fresh, empty *P-equivalent
// message for DeserializeEvent to unmarshal into.
type EventSerializer[P proto.Message] struct {
	// PayloadType is stamped onto every SerializedEvent and named in
	// encode/decode error messages. DeserializeEvent does not check it; it
	// always decodes into a message built by New.
	PayloadType string
	// New constructs a zero-valued message of type P.
	New func() P
}

// SerializeEvent implements eventsourcing.EventSerializer[P].
func (s EventSerializer[P]) SerializeEvent(event eventsourcing.Event[P]) (eventsourcing.SerializedEvent, error) {
	data, err := proto.Marshal(event.Payload)
	if err != nil {
		return eventsourcing.SerializedEvent{}, fmt.Errorf("%w: marshaling %s: %v", eventsourcing.ErrSerializationFailed, s.PayloadType, err)
	}
	return eventsourcing.SerializedEvent{
		AggregateID:    event.AggregateID,
		SequenceNumber: event.SequenceNumber,
		PayloadType:    s.PayloadType,
		PayloadBytes:   data,
		Timestamp:      event.Timestamp,
	}, nil
}

// DeserializeEvent implements eventsourcing.EventSerializer[P].
func (s EventSerializer[P]) DeserializeEvent(serialized eventsourcing.SerializedEvent) (eventsourcing.Event[P], error) {
	payload := s.New()
	if err := proto.Unmarshal(serialized.PayloadBytes, payload); err != nil {
		return eventsourcing.Event[P]{}, fmt.Errorf("%w: unmarshaling %s: %v", eventsourcing.ErrSerializationFailed, s.PayloadType, err)
	}
	return eventsourcing.Event[P]{
		AggregateID:    serialized.AggregateID,
		SequenceNumber: serialized.SequenceNumber,
		Payload:        payload,
		PayloadType:    serialized.PayloadType,
		Timestamp:      serialized.Timestamp,
	}, nil
}

// SnapshotSerializer implements eventsourcing.SnapshotSerializer[M] for a
// protocol buffer memento type M. New must return a fresh, empty message of
// type M for DeserializeSnapshot to unmarshal into.
type SnapshotSerializer[M proto.Message] struct {
	// New constructs a zero-valued message of type M.
	New func() M
}

// SerializeSnapshot implements eventsourcing.SnapshotSerializer[M].
func (s SnapshotSerializer[M]) SerializeSnapshot(snapshot eventsourcing.Snapshot[M]) (eventsourcing.SerializedSnapshot, error) {
	data, err := proto.Marshal(snapshot.Memento)
	if err != nil {
		return eventsourcing.SerializedSnapshot{}, fmt.Errorf("%w: marshaling snapshot: %v", eventsourcing.ErrSerializationFailed, err)
	}
	return eventsourcing.SerializedSnapshot{
		AggregateID:          snapshot.AggregateID,
		PartitionKey:         snapshot.PartitionKey,
		CommitSequenceNumber: snapshot.CommitSequenceNumber,
		EventSequenceNumber:  snapshot.EventSequenceNumber,
		MementoBytes:         data,
	}, nil
}

// DeserializeSnapshot implements eventsourcing.SnapshotSerializer[M]. When
// serialized.IsEmpty, the memento comes from defaultMemento rather than
// unmarshaling, per §4.1.
func (s SnapshotSerializer[M]) DeserializeSnapshot(serialized eventsourcing.SerializedSnapshot, defaultMemento func() M) (eventsourcing.Snapshot[M], error) {
	if serialized.IsEmpty {
		return eventsourcing.Snapshot[M]{
			AggregateID:          serialized.AggregateID,
			PartitionKey:         serialized.PartitionKey,
			CommitSequenceNumber: -1,
			EventSequenceNumber:  -1,
			Memento:              defaultMemento(),
		}, nil
	}
	memento := s.New()
	if err := proto.Unmarshal(serialized.MementoBytes, memento); err != nil {
		return eventsourcing.Snapshot[M]{}, fmt.Errorf("%w: unmarshaling snapshot: %v", eventsourcing.ErrSerializationFailed, err)
	}
	return eventsourcing.Snapshot[M]{
		AggregateID:          serialized.AggregateID,
		PartitionKey:         serialized.PartitionKey,
		CommitSequenceNumber: serialized.CommitSequenceNumber,
		EventSequenceNumber:  serialized.EventSequenceNumber,
		Memento:              memento,
	}, nil
}
