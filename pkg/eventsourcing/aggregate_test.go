package eventsourcing_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/aggregatestore/pkg/eventsourcing"
)

// itemAdded is a minimal payload used throughout these tests.
type itemAdded struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// counterMemento counts how many events have been folded, so assertions
// don't depend on a richer domain model than the kernel itself needs.
type counterMemento struct {
	Folded int
	Last   string
}

func fold(m counterMemento, event eventsourcing.SerializedEvent) (counterMemento, error) {
	m.Folded++
	m.Last = string(event.PayloadBytes)
	return m, nil
}

type jsonSerializer struct{}

func (jsonSerializer) SerializeEvent(event eventsourcing.Event[itemAdded]) (eventsourcing.SerializedEvent, error) {
	data, err := json.Marshal(event.Payload)
	if err != nil {
		return eventsourcing.SerializedEvent{}, err
	}
	return eventsourcing.SerializedEvent{
		AggregateID:    event.AggregateID,
		SequenceNumber: event.SequenceNumber,
		PayloadType:    "itemAdded",
		PayloadBytes:   data,
		Timestamp:      event.Timestamp,
	}, nil
}

func (jsonSerializer) DeserializeEvent(serialized eventsourcing.SerializedEvent) (eventsourcing.Event[itemAdded], error) {
	var payload itemAdded
	if err := json.Unmarshal(serialized.PayloadBytes, &payload); err != nil {
		return eventsourcing.Event[itemAdded]{}, err
	}
	return eventsourcing.Event[itemAdded]{
		AggregateID:    serialized.AggregateID,
		SequenceNumber: serialized.SequenceNumber,
		Payload:        payload,
		PayloadType:    serialized.PayloadType,
	}, nil
}

// fakeWriter is a minimal EventWriter recording every committed Commit,
// enforcing the same optimistic-concurrency contract memprovider does, used
// to keep these kernel tests independent of pkg/memprovider.
type fakeWriter struct {
	commits map[eventsourcing.AggregateID][]eventsourcing.Commit
	// failNext, if non-nil, is returned (and cleared) on the next WriteCommit.
	failNext error
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{commits: make(map[eventsourcing.AggregateID][]eventsourcing.Commit)}
}

func (w *fakeWriter) WriteCommit(_ context.Context, commit eventsourcing.Commit) error {
	if w.failNext != nil {
		err := w.failNext
		w.failNext = nil
		return err
	}
	existing := w.commits[commit.AggregateID]
	expected := int64(-1)
	if len(existing) > 0 {
		expected = existing[len(existing)-1].SequenceNumber
	}
	if commit.SequenceNumber != expected+1 {
		return eventsourcing.ErrConcurrency
	}
	w.commits[commit.AggregateID] = append(existing, commit)
	return nil
}

func TestApplyEventValidatesIdentityAndSequence(t *testing.T) {
	id := eventsourcing.NewAggregateID()
	a := eventsourcing.New(id, eventsourcing.DefaultPartitionKey(id), counterMemento{}, fold)

	_, err := eventsourcing.ApplyEvent(a, eventsourcing.Event[itemAdded]{
		AggregateID:    eventsourcing.NewAggregateID(),
		SequenceNumber: 0,
		Payload:        itemAdded{ID: "A"},
	}, jsonSerializer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, eventsourcing.ErrAggregateMismatch)

	_, err = eventsourcing.ApplyEvent(a, eventsourcing.Event[itemAdded]{
		AggregateID:    id,
		SequenceNumber: 5,
		Payload:        itemAdded{ID: "A"},
	}, jsonSerializer{})
	require.Error(t, err)
	var seqErr *eventsourcing.SequenceMismatchError
	require.ErrorAs(t, err, &seqErr)
	assert.Equal(t, int64(0), seqErr.Expected)
}

// TestFirstCommit exercises S1: construct, apply one event, commit, and
// check the resulting positions and persisted commit shape.
func TestFirstCommit(t *testing.T) {
	id, err := eventsourcing.ParseAggregateID("00000000-0000-0000-0000-000000000001")
	require.NoError(t, err)

	a := eventsourcing.New(id, eventsourcing.PartitionKey("p1"), counterMemento{}, fold)
	a, err = eventsourcing.ApplyEvent(a, eventsourcing.Event[itemAdded]{
		AggregateID:    id,
		SequenceNumber: 0,
		Payload:        itemAdded{ID: "A", Title: "T"},
	}, jsonSerializer{})
	require.NoError(t, err)
	require.True(t, a.IsDirty())

	writer := newFakeWriter()
	a, err = a.Commit(context.Background(), writer)
	require.NoError(t, err)

	assert.Equal(t, int64(0), a.CommitSequenceNumber())
	assert.Equal(t, int64(0), a.EventSequenceNumber())
	assert.False(t, a.IsDirty())

	commits := writer.commits[id]
	require.Len(t, commits, 1)
	assert.Equal(t, int64(0), commits[0].SequenceNumber)
	require.Len(t, commits[0].Events, 1)
	assert.Equal(t, int64(0), commits[0].Events[0].SequenceNumber)
}

// TestOptimisticConflict exercises S2: two divergent copies of the same
// base aggregate both try to commit sequence 1; exactly one succeeds.
func TestOptimisticConflict(t *testing.T) {
	id := eventsourcing.NewAggregateID()
	base := eventsourcing.New(id, eventsourcing.DefaultPartitionKey(id), counterMemento{}, fold)

	writer := newFakeWriter()
	base, err := eventsourcing.ApplyEvent(base, eventsourcing.Event[itemAdded]{AggregateID: id, SequenceNumber: 0, Payload: itemAdded{ID: "A"}}, jsonSerializer{})
	require.NoError(t, err)
	base, err = base.Commit(context.Background(), writer)
	require.NoError(t, err)
	require.Equal(t, int64(0), base.CommitSequenceNumber())

	branchA, err := eventsourcing.ApplyEvent(base, eventsourcing.Event[itemAdded]{AggregateID: id, SequenceNumber: 1, Payload: itemAdded{ID: "B"}}, jsonSerializer{})
	require.NoError(t, err)
	branchB, err := eventsourcing.ApplyEvent(base, eventsourcing.Event[itemAdded]{AggregateID: id, SequenceNumber: 1, Payload: itemAdded{ID: "C"}}, jsonSerializer{})
	require.NoError(t, err)

	resultA, errA := branchA.Commit(context.Background(), writer)
	resultB, errB := branchB.Commit(context.Background(), writer)

	succeeded := errA == nil
	failed := errB
	successResult := resultA
	if errB == nil {
		succeeded = true
		failed = errA
		successResult = resultB
	}
	require.True(t, succeeded, "expected exactly one commit to succeed")
	require.Error(t, failed)
	assert.ErrorIs(t, failed, eventsourcing.ErrConcurrency)
	assert.Equal(t, int64(1), successResult.CommitSequenceNumber())
}

func commitOf(t *testing.T, id eventsourcing.AggregateID, pk eventsourcing.PartitionKey, commitSeq int64, events ...int64) eventsourcing.Commit {
	t.Helper()
	serialized := make([]eventsourcing.SerializedEvent, 0, len(events))
	for _, seq := range events {
		data, err := json.Marshal(itemAdded{ID: "x"})
		require.NoError(t, err)
		serialized = append(serialized, eventsourcing.SerializedEvent{
			AggregateID:          id,
			SequenceNumber:       seq,
			CommitSequenceNumber: commitSeq,
			PayloadType:          "itemAdded",
			PayloadBytes:         data,
		})
	}
	return eventsourcing.Commit{AggregateID: id, PartitionKey: pk, SequenceNumber: commitSeq, Events: serialized}
}

// TestApplyCommitsRehydratesHistory exercises S3: a history of three
// commits with event sequences [0],[1,2],[3] folds to event_seq=3,
// commit_seq=2.
func TestApplyCommitsRehydratesHistory(t *testing.T) {
	id := eventsourcing.NewAggregateID()
	pk := eventsourcing.DefaultPartitionKey(id)
	commits := []eventsourcing.Commit{
		commitOf(t, id, pk, 0, 0),
		commitOf(t, id, pk, 1, 1, 2),
		commitOf(t, id, pk, 2, 3),
	}

	a := eventsourcing.New(id, pk, counterMemento{}, fold)
	a, err := a.ApplyCommits(commits)
	require.NoError(t, err)

	assert.Equal(t, int64(2), a.CommitSequenceNumber())
	assert.Equal(t, int64(3), a.EventSequenceNumber())
	assert.Equal(t, 4, a.Memento().Folded)
}

// TestApplyCommitsRejectsNonContiguousHistory checks that a gap in either
// the commit or event sequence is reported as corrupted history.
func TestApplyCommitsRejectsNonContiguousHistory(t *testing.T) {
	id := eventsourcing.NewAggregateID()
	pk := eventsourcing.DefaultPartitionKey(id)

	a := eventsourcing.New(id, pk, counterMemento{}, fold)
	_, err := a.ApplyCommits([]eventsourcing.Commit{commitOf(t, id, pk, 1, 0)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, eventsourcing.ErrCorruptedHistory))

	_, err = a.ApplyCommits([]eventsourcing.Commit{commitOf(t, id, pk, 0, 1)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, eventsourcing.ErrCorruptedHistory))
}

func TestCommitIsNoOpWithoutUncommittedEvents(t *testing.T) {
	id := eventsourcing.NewAggregateID()
	a := eventsourcing.New(id, eventsourcing.DefaultPartitionKey(id), counterMemento{}, fold)

	writer := newFakeWriter()
	next, err := a.Commit(context.Background(), writer)
	require.NoError(t, err)
	// Aggregate holds a fold func, which reflect.DeepEqual never equates, so
	// compare every observable field instead of the whole value.
	assert.Equal(t, a.ID(), next.ID())
	assert.Equal(t, a.PartitionKey(), next.PartitionKey())
	assert.Equal(t, a.CommitSequenceNumber(), next.CommitSequenceNumber())
	assert.Equal(t, a.EventSequenceNumber(), next.EventSequenceNumber())
	assert.Equal(t, a.Memento(), next.Memento())
	assert.Equal(t, a.Uncommitted(), next.Uncommitted())
	assert.Empty(t, writer.commits)
}

func TestStoreSnapshotNoOpOnFreshAggregate(t *testing.T) {
	id := eventsourcing.NewAggregateID()
	a := eventsourcing.New(id, eventsourcing.DefaultPartitionKey(id), counterMemento{}, fold)

	var written []eventsourcing.SerializedSnapshot
	writer := snapshotWriterFunc(func(_ context.Context, s eventsourcing.SerializedSnapshot) error {
		written = append(written, s)
		return nil
	})

	err := a.StoreSnapshot(context.Background(), writer, jsonSnapshotCodec{})
	require.NoError(t, err)
	assert.Empty(t, written)
}

type jsonSnapshotCodec struct{}

func (jsonSnapshotCodec) SerializeSnapshot(snapshot eventsourcing.Snapshot[counterMemento]) (eventsourcing.SerializedSnapshot, error) {
	data, err := json.Marshal(snapshot.Memento)
	if err != nil {
		return eventsourcing.SerializedSnapshot{}, err
	}
	return eventsourcing.SerializedSnapshot{
		AggregateID:          snapshot.AggregateID,
		PartitionKey:         snapshot.PartitionKey,
		CommitSequenceNumber: snapshot.CommitSequenceNumber,
		EventSequenceNumber:  snapshot.EventSequenceNumber,
		MementoBytes:         data,
	}, nil
}

func (jsonSnapshotCodec) DeserializeSnapshot(serialized eventsourcing.SerializedSnapshot, defaultMemento func() counterMemento) (eventsourcing.Snapshot[counterMemento], error) {
	if serialized.IsEmpty {
		return eventsourcing.Snapshot[counterMemento]{
			AggregateID:          serialized.AggregateID,
			PartitionKey:         serialized.PartitionKey,
			CommitSequenceNumber: -1,
			EventSequenceNumber:  -1,
			Memento:              defaultMemento(),
		}, nil
	}
	var memento counterMemento
	if err := json.Unmarshal(serialized.MementoBytes, &memento); err != nil {
		return eventsourcing.Snapshot[counterMemento]{}, err
	}
	return eventsourcing.Snapshot[counterMemento]{
		AggregateID:          serialized.AggregateID,
		PartitionKey:         serialized.PartitionKey,
		CommitSequenceNumber: serialized.CommitSequenceNumber,
		EventSequenceNumber:  serialized.EventSequenceNumber,
		Memento:              memento,
	}, nil
}

type snapshotWriterFunc func(context.Context, eventsourcing.SerializedSnapshot) error

func (f snapshotWriterFunc) WriteSnapshot(ctx context.Context, s eventsourcing.SerializedSnapshot) error {
	return f(ctx, s)
}

// TestSnapshotRoundTrip exercises S5: storing a snapshot of a non-trivial
// aggregate and rehydrating from it (with no further events) reproduces
// the same positions and memento.
func TestSnapshotRoundTrip(t *testing.T) {
	id := eventsourcing.NewAggregateID()
	pk := eventsourcing.DefaultPartitionKey(id)

	a := eventsourcing.New(id, pk, counterMemento{}, fold)
	commits := []eventsourcing.Commit{commitOf(t, id, pk, 0, 0, 1, 2, 3, 4)}
	a, err := a.ApplyCommits(commits)
	require.NoError(t, err)
	require.Equal(t, int64(4), a.EventSequenceNumber())

	var stored eventsourcing.SerializedSnapshot
	writer := snapshotWriterFunc(func(_ context.Context, s eventsourcing.SerializedSnapshot) error {
		stored = s
		return nil
	})
	require.NoError(t, a.StoreSnapshot(context.Background(), writer, jsonSnapshotCodec{}))

	snapshot, err := jsonSnapshotCodec{}.DeserializeSnapshot(stored, func() counterMemento { return counterMemento{} })
	require.NoError(t, err)
	rehydrated := eventsourcing.FromSnapshot(snapshot, fold)

	assert.Equal(t, a.CommitSequenceNumber(), rehydrated.CommitSequenceNumber())
	assert.Equal(t, a.EventSequenceNumber(), rehydrated.EventSequenceNumber())
	assert.Equal(t, a.Memento(), rehydrated.Memento())
}

// TestApplyEventStampsDeterministicID checks that ApplyEvent stamps
// SerializedEvent.ID from (aggregate id, sequence) via
// GenerateDeterministicEventID, so the same position in an aggregate's
// stream always produces the same id regardless of payload content, and
// different aggregates/positions never collide.
func TestApplyEventStampsDeterministicID(t *testing.T) {
	id := eventsourcing.NewAggregateID()
	a := eventsourcing.New(id, eventsourcing.DefaultPartitionKey(id), counterMemento{}, fold)

	withA, err := eventsourcing.ApplyEvent(a, eventsourcing.Event[itemAdded]{
		AggregateID: id, SequenceNumber: 0, Payload: itemAdded{ID: "A"},
	}, jsonSerializer{})
	require.NoError(t, err)

	withB, err := eventsourcing.ApplyEvent(a, eventsourcing.Event[itemAdded]{
		AggregateID: id, SequenceNumber: 0, Payload: itemAdded{ID: "totally different payload"},
	}, jsonSerializer{})
	require.NoError(t, err)

	idA := withA.Uncommitted()[0].ID
	idB := withB.Uncommitted()[0].ID
	assert.NotEmpty(t, idA)
	assert.Equal(t, idA, idB, "id must depend only on (aggregate id, sequence), not payload")
	assert.Equal(t, eventsourcing.GenerateDeterministicEventID(id, 0), idA)

	other := eventsourcing.New(eventsourcing.NewAggregateID(), eventsourcing.DefaultPartitionKey(id), counterMemento{}, fold)
	withOther, err := eventsourcing.ApplyEvent(other, eventsourcing.Event[itemAdded]{
		AggregateID: other.ID(), SequenceNumber: 0, Payload: itemAdded{ID: "A"},
	}, jsonSerializer{})
	require.NoError(t, err)
	assert.NotEqual(t, idA, withOther.Uncommitted()[0].ID, "different aggregates must not collide at the same sequence")
}
