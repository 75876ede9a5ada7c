// Package jsoncodec implements eventsourcing.EventSerializer and
// SnapshotSerializer over encoding/json, for domains without a protocol
// buffer schema. It is grounded on the teacher's SnapshotMetadata
// MarshalMetadata/UnmarshalMetadata pair (pkg/store/snapshot.go in the
// original tree), generalized from a fixed metadata shape to an arbitrary
// generic payload type.
package jsoncodec

import (
	"encoding/json"
	"fmt"

	"github.com/kestrelhq/aggregatestore/pkg/eventsourcing"
)

// EventSerializer implements eventsourcing.EventSerializer[P] by
// marshaling/unmarshaling P as JSON. PayloadType is stamped onto every
// SerializedEvent for downstream dispatch.
type EventSerializer[P any] struct {
	PayloadType string
}

// SerializeEvent implements eventsourcing.EventSerializer[P].
func (s EventSerializer[P]) SerializeEvent(event eventsourcing.Event[P]) (eventsourcing.SerializedEvent, error) {
	data, err := json.Marshal(event.Payload)
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
	var payload P
	if err := json.Unmarshal(serialized.PayloadBytes, &payload); err != nil {
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

// SnapshotSerializer implements eventsourcing.SnapshotSerializer[M] by
// marshaling/unmarshaling M as JSON.
type SnapshotSerializer[M any] struct{}

// SerializeSnapshot implements eventsourcing.SnapshotSerializer[M].
func (s SnapshotSerializer[M]) SerializeSnapshot(snapshot eventsourcing.Snapshot[M]) (eventsourcing.SerializedSnapshot, error) {
	data, err := json.Marshal(snapshot.Memento)
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
	var memento M
	if err := json.Unmarshal(serialized.MementoBytes, &memento); err != nil {
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
