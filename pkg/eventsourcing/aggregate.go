package eventsourcing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// discardLogger is the nil-safe default every Aggregate and AggregateReader
// starts with, matching the teacher's pattern of a cheap no-op logger rather
// than a nil check scattered through every call site.
var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// foldFunc folds one already-position-validated event into a memento. A nil
// foldFunc marks a stateless aggregate: ApplyCommits still advances
// commit_seq/event_seq but never touches the memento (§9 Open Question b —
// "a stateless aggregate exists to raise events outward and has no
// read-side state to rebuild").
type foldFunc[M any] func(memento M, event SerializedEvent) (M, error)

// Aggregate is the kernel's value type: an immutable snapshot of
// (aggregate_id, partition_key, commit_seq, event_seq, uncommitted) plus the
// domain's folded memento (§4.2). Every operation returns a new value; the
// receiver is never mutated. M is the domain-specific memento type; pass
// struct{} for a stateless aggregate that only raises events outward.
type Aggregate[M any] struct {
	id           AggregateID
	partitionKey PartitionKey
	commitSeq    int64
	eventSeq     int64
	uncommitted  []SerializedEvent
	memento      M
	fold         foldFunc[M]
	logger       *slog.Logger
	metrics      MetricsRecorder
}

// New constructs a Fresh aggregate (commit_seq=event_seq=-1, no uncommitted
// events). fold may be nil for a stateless aggregate.
func New[M any](id AggregateID, partitionKey PartitionKey, memento M, fold func(M, SerializedEvent) (M, error)) Aggregate[M] {
	return Aggregate[M]{
		id:           id,
		partitionKey: partitionKey,
		commitSeq:    -1,
		eventSeq:     -1,
		memento:      memento,
		fold:         fold,
		logger:       discardLogger,
		metrics:      NoopMetrics,
	}
}

// FromSnapshot constructs a Loaded aggregate seeded from a previously
// decoded Snapshot[M] — the state AggregateReader.Read() starts folding
// events onto (§4.6 step 2).
func FromSnapshot[M any](snapshot Snapshot[M], fold func(M, SerializedEvent) (M, error)) Aggregate[M] {
	return Aggregate[M]{
		id:           snapshot.AggregateID,
		partitionKey: snapshot.PartitionKey,
		commitSeq:    snapshot.CommitSequenceNumber,
		eventSeq:     snapshot.EventSequenceNumber,
		memento:      snapshot.Memento,
		fold:         fold,
		logger:       discardLogger,
		metrics:      NoopMetrics,
	}
}

// WithLogger returns a copy of a configured to log through logger. A nil
// logger is treated as discardLogger.
func (a Aggregate[M]) WithLogger(logger *slog.Logger) Aggregate[M] {
	if logger == nil {
		logger = discardLogger
	}
	a.logger = logger
	return a
}

// WithMetrics returns a copy of a reporting through recorder. A nil recorder
// is treated as NoopMetrics.
func (a Aggregate[M]) WithMetrics(recorder MetricsRecorder) Aggregate[M] {
	if recorder == nil {
		recorder = NoopMetrics
	}
	a.metrics = recorder
	return a
}

// ID returns the aggregate's identifier.
func (a Aggregate[M]) ID() AggregateID { return a.id }

// PartitionKey returns the aggregate's storage partition key.
func (a Aggregate[M]) PartitionKey() PartitionKey { return a.partitionKey }

// CommitSequenceNumber returns the index of the last durable commit, or -1.
func (a Aggregate[M]) CommitSequenceNumber() int64 { return a.commitSeq }

// EventSequenceNumber returns the index of the last event attached to this
// aggregate (committed or uncommitted), or -1.
func (a Aggregate[M]) EventSequenceNumber() int64 { return a.eventSeq }

// Memento returns the aggregate's current folded domain state.
func (a Aggregate[M]) Memento() M { return a.memento }

// Uncommitted returns the events applied but not yet committed, in
// application order. The returned slice shares the aggregate's backing
// array and must not be mutated by the caller.
func (a Aggregate[M]) Uncommitted() []SerializedEvent { return a.uncommitted }

// IsDirty reports whether the aggregate has uncommitted events.
func (a Aggregate[M]) IsDirty() bool { return len(a.uncommitted) > 0 }

// ApplyEvent validates and applies a newly-raised event to an aggregate,
// returning the resulting value (§4.2). P is the event's payload type; Go
// has no generic methods, so this is a free function parameterized
// independently of Aggregate's M, matching the "monomorphized generics" call
// in §9 — each payload type gets a statically dispatched serializer, no
// reflection in the hot path.
//
// ApplyEvent does not fold the payload into the memento: a caller raising a
// new event already knows its own resulting domain state (that's what
// deciding to raise the event means); only replay (ApplyCommits) folds.
func ApplyEvent[M, P any](a Aggregate[M], event Event[P], serializer EventSerializer[P]) (Aggregate[M], error) {
	if event.AggregateID != a.id {
		return a, fmt.Errorf("%w: event for aggregate %s applied to %s", ErrAggregateMismatch, event.AggregateID, a.id)
	}
	if event.SequenceNumber != a.eventSeq+1 {
		return a, &SequenceMismatchError{AggregateID: a.id, Expected: a.eventSeq + 1, Got: event.SequenceNumber}
	}

	serialized, err := serializer.SerializeEvent(event)
	if err != nil {
		return a, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	// The commit this event will join is fixed the moment it's applied: all
	// events accumulated since the last successful Commit() share the same
	// upcoming commit_seq, regardless of how many ApplyEvent calls precede
	// the eventual Commit().
	serialized.CommitSequenceNumber = a.commitSeq + 1
	serialized.ID = GenerateDeterministicEventID(a.id, event.SequenceNumber)

	next := a
	next.eventSeq = event.SequenceNumber
	next.uncommitted = append(append([]SerializedEvent(nil), a.uncommitted...), serialized)

	a.logger.Debug("applied event", "aggregate_id", a.id.String(), "sequence", event.SequenceNumber)
	return next, nil
}

// ApplyCommits validates commits (§4.5) against the aggregate's current
// position and folds their events in, advancing commit_seq and event_seq.
// Used during rehydration from a known list of commits; uncommitted state is
// untouched. A nil fold (stateless aggregate) advances sequence numbers
// without touching the memento.
func (a Aggregate[M]) ApplyCommits(commits []Commit) (Aggregate[M], error) {
	if len(commits) == 0 {
		return a, nil
	}
	if err := validateCommitStream(a.id, a.commitSeq, a.eventSeq, commits); err != nil {
		return a, err
	}

	events := make([]SerializedEvent, 0, len(commits))
	for _, commit := range commits {
		events = append(events, commit.Events...)
	}
	return a.applyEvents(events)
}

// applyEvents folds a flat, already-ordered stream of serialized events,
// validating event-sequence contiguity one event at a time. It backs both
// ApplyCommits (after §4.5 commit-level validation) and AggregateReader's
// replay loop, which only ever has a flat EventReader page to work with
// (see event.go's CommitSequenceNumber doc and DESIGN.md).
func (a Aggregate[M]) applyEvents(events []SerializedEvent) (Aggregate[M], error) {
	next := a
	for _, se := range events {
		if se.AggregateID != a.id {
			return a, fmt.Errorf("%w: event for aggregate %s applied to %s", ErrAggregateMismatch, se.AggregateID, a.id)
		}
		if se.SequenceNumber != next.eventSeq+1 {
			return a, &SequenceMismatchError{AggregateID: a.id, Expected: next.eventSeq + 1, Got: se.SequenceNumber}
		}
		if next.fold != nil {
			memento, err := next.fold(next.memento, se)
			if err != nil {
				return a, fmt.Errorf("aggregatestore: folding event %d into aggregate %s: %w", se.SequenceNumber, a.id, err)
			}
			next.memento = memento
		}
		next.eventSeq = se.SequenceNumber
		if se.CommitSequenceNumber > next.commitSeq {
			next.commitSeq = se.CommitSequenceNumber
		}
	}
	return next, nil
}

// Commit flushes the uncommitted buffer to writer as a single Commit
// (§4.2). If uncommitted is empty this is an idempotent no-op. On success it
// returns a new aggregate with commit_seq advanced and uncommitted cleared;
// on ErrConcurrency or any other failure the original value is returned
// unchanged and the error is surfaced as-is (§7) — the caller reloads and
// retries, the kernel never retries on its own.
func (a Aggregate[M]) Commit(ctx context.Context, writer EventWriter) (Aggregate[M], error) {
	if len(a.uncommitted) == 0 {
		return a, nil
	}

	start := Now()
	commit := Commit{
		AggregateID:    a.id,
		PartitionKey:   a.partitionKey,
		SequenceNumber: a.commitSeq + 1,
		TimestampMS:    start.UnixMilli(),
		Events:         a.uncommitted,
	}

	err := writer.WriteCommit(ctx, commit)
	a.metrics.RecordCommit(ctx, len(commit.Events), Now().Sub(start), err)
	if err != nil {
		if errors.Is(err, ErrConcurrency) {
			a.logger.WarnContext(ctx, "commit lost optimistic concurrency race",
				"aggregate_id", a.id.String(), "attempted_sequence", commit.SequenceNumber)
		} else {
			a.logger.ErrorContext(ctx, "commit failed",
				"aggregate_id", a.id.String(), "attempted_sequence", commit.SequenceNumber, "error", err)
		}
		return a, err
	}

	a.logger.DebugContext(ctx, "committed events",
		"aggregate_id", a.id.String(), "commit_sequence", commit.SequenceNumber, "event_count", len(commit.Events))

	next := a
	next.commitSeq = commit.SequenceNumber
	next.uncommitted = nil
	return next, nil
}

// StoreSnapshot publishes a SerializedSnapshot of the aggregate's current
// committed state (§4.2). Uncommitted events never factor in — snapshots
// reflect only committed history — and a Fresh aggregate (nothing committed
// yet) writes nothing.
func (a Aggregate[M]) StoreSnapshot(ctx context.Context, writer SnapshotWriter, serializer SnapshotSerializer[M]) error {
	if a.commitSeq < 0 {
		return nil
	}

	// eventSeq also counts uncommitted events, which always sit at the end of
	// the stream; step back over them to the last committed event.
	committedEventSeq := a.eventSeq - int64(len(a.uncommitted))
	snapshot := Snapshot[M]{
		AggregateID:          a.id,
		PartitionKey:         a.partitionKey,
		CommitSequenceNumber: a.commitSeq,
		EventSequenceNumber:  committedEventSeq,
		Memento:              a.memento,
	}
	serialized, err := serializer.SerializeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	if err := writer.WriteSnapshot(ctx, serialized); err != nil {
		return err
	}
	a.logger.DebugContext(ctx, "stored snapshot",
		"aggregate_id", a.id.String(), "event_sequence", committedEventSeq)
	return nil
}
