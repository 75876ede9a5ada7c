// Package memprovider is a reference, in-process implementation of the
// aggregatestore storage-provider SPI (EventWriter, EventReader,
// SnapshotWriter, SnapshotReader). spec.md places concrete storage backends
// out of scope for the core, but the provider contracts need at least one
// real implementation to be testable end-to-end — this grounds that
// implementation on the concurrency and versioning discipline of the
// teacher's pkg/sqlite/eventstore.go (optimistic-concurrency check before
// insert) and pkg/sqlite/snapshot_store.go (latest-snapshot-at-or-before
// lookup), reimplemented over in-process maps instead of SQL. It is
// reference/test infrastructure, not a product surface.
package memprovider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kestrelhq/aggregatestore/pkg/eventsourcing"
	"github.com/kestrelhq/aggregatestore/pkg/idgen"
)

// Store implements eventsourcing.EventWriter, EventReader, SnapshotWriter,
// SnapshotReader, and SnapshotPruner over in-memory maps guarded by a single
// mutex. Safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	commits   map[eventsourcing.AggregateID][]eventsourcing.Commit
	snapshots map[eventsourcing.AggregateID][]eventsourcing.SerializedSnapshot
	cursors   map[string]cursor
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a logger for commit/read diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		commits:   make(map[eventsourcing.AggregateID][]eventsourcing.Commit),
		snapshots: make(map[eventsourcing.AggregateID][]eventsourcing.SerializedSnapshot),
		cursors:   make(map[string]cursor),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WriteCommit implements eventsourcing.EventWriter.
func (s *Store) WriteCommit(ctx context.Context, commit eventsourcing.Commit) error {
	if len(commit.Events) == 0 {
		return fmt.Errorf("memprovider: commit for aggregate %s has no events", commit.AggregateID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.commits[commit.AggregateID]
	expected := int64(-1)
	if len(existing) > 0 {
		expected = existing[len(existing)-1].SequenceNumber
	}
	if commit.SequenceNumber != expected+1 {
		return fmt.Errorf("%w: aggregate %s expected commit sequence %d, got %d",
			eventsourcing.ErrConcurrency, commit.AggregateID, expected+1, commit.SequenceNumber)
	}

	// Copy so later caller-side mutation of commit.Events can't corrupt the
	// durable record (the aggregate's uncommitted buffer is discarded by the
	// kernel after a successful commit, but other providers might not copy).
	stored := commit
	stored.Events = append([]eventsourcing.SerializedEvent(nil), commit.Events...)
	s.commits[commit.AggregateID] = append(existing, stored)

	s.logger.DebugContext(ctx, "memprovider: wrote commit",
		"aggregate_id", commit.AggregateID.String(), "commit_sequence", commit.SequenceNumber, "event_count", len(commit.Events))
	return nil
}

// flatten returns every event ever committed for id, in ascending
// sequence-number order. Caller must hold s.mu.
func (s *Store) flatten(id eventsourcing.AggregateID) []eventsourcing.SerializedEvent {
	commits := s.commits[id]
	var events []eventsourcing.SerializedEvent
	for _, c := range commits {
		events = append(events, c.Events...)
	}
	return events
}

// cursor is the server-side state behind one outstanding continuation
// token. Tokens are minted from idgen's sortable ids rather than encoding
// this struct directly, so callers have no way to peek at or reconstruct
// paging state from the token text itself — the "treat it as a black box"
// rule (§9) holds structurally, not just by convention.
type cursor struct {
	aggregateID eventsourcing.AggregateID
	min         int64
	max         int64
	offset      int
	maxItems    int
}

// newCursorToken stores c under a freshly minted sortable id and returns
// the id as the opaque token. Caller must hold s.mu.
func (s *Store) newCursorToken(c cursor) string {
	token := idgen.MustGenerateSortableID()
	s.cursors[token] = c
	return token
}

// Read implements eventsourcing.EventReader.
func (s *Store) Read(ctx context.Context, id eventsourcing.AggregateID, minEventSeq, maxEventSeq int64, maxItems int) (eventsourcing.EventPage, error) {
	if maxItems <= 0 {
		maxItems = 100
	}

	s.mu.Lock()
	all := s.flatten(id)
	s.mu.Unlock()

	var inRange []eventsourcing.SerializedEvent
	for _, e := range all {
		if e.SequenceNumber >= minEventSeq && e.SequenceNumber <= maxEventSeq {
			inRange = append(inRange, e)
		}
	}
	return s.page(id, inRange, minEventSeq, maxEventSeq, maxItems, 0)
}

// ReadContinuation implements eventsourcing.EventReader.
func (s *Store) ReadContinuation(ctx context.Context, token string) (eventsourcing.EventPage, error) {
	s.mu.Lock()
	c, ok := s.cursors[token]
	delete(s.cursors, token)
	if !ok {
		s.mu.Unlock()
		return eventsourcing.EventPage{}, fmt.Errorf("memprovider: unknown or already-consumed continuation token")
	}
	all := s.flatten(c.aggregateID)
	s.mu.Unlock()

	var inRange []eventsourcing.SerializedEvent
	for _, e := range all {
		if e.SequenceNumber >= c.min && e.SequenceNumber <= c.max {
			inRange = append(inRange, e)
		}
	}
	return s.page(c.aggregateID, inRange, c.min, c.max, c.maxItems, c.offset)
}

func (s *Store) page(id eventsourcing.AggregateID, events []eventsourcing.SerializedEvent, min, max int64, maxItems, offset int) (eventsourcing.EventPage, error) {
	if offset > len(events) {
		offset = len(events)
	}
	remaining := events[offset:]

	end := maxItems
	if end > len(remaining) {
		end = len(remaining)
	}
	batch := remaining[:end]

	token := ""
	if end < len(remaining) {
		s.mu.Lock()
		token = s.newCursorToken(cursor{aggregateID: id, min: min, max: max, offset: offset + end, maxItems: maxItems})
		s.mu.Unlock()
	}
	return eventsourcing.EventPage{Events: batch, ContinuationToken: token}, nil
}

// WriteSnapshot implements eventsourcing.SnapshotWriter. Per §6, writing a
// snapshot with a lesser-or-equal event sequence than the latest stored one
// is a no-op rather than a failure.
func (s *Store) WriteSnapshot(ctx context.Context, snapshot eventsourcing.SerializedSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.snapshots[snapshot.AggregateID]
	if len(list) > 0 && list[len(list)-1].EventSequenceNumber >= snapshot.EventSequenceNumber {
		return nil
	}
	s.snapshots[snapshot.AggregateID] = append(list, snapshot)
	s.logger.DebugContext(ctx, "memprovider: wrote snapshot",
		"aggregate_id", snapshot.AggregateID.String(), "event_sequence", snapshot.EventSequenceNumber)
	return nil
}

// ReadSnapshot implements eventsourcing.SnapshotReader.
func (s *Store) ReadSnapshot(ctx context.Context, id eventsourcing.AggregateID, upToSequence int64) (eventsourcing.SerializedSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.snapshots[id]
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].EventSequenceNumber <= upToSequence {
			return list[i], nil
		}
	}
	return eventsourcing.EmptySerializedSnapshot(id, eventsourcing.DefaultPartitionKey(id)), nil
}

// PruneSnapshots implements eventsourcing.SnapshotPruner.
func (s *Store) PruneSnapshots(ctx context.Context, id eventsourcing.AggregateID, olderThanEventSeq int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.snapshots[id]
	kept := list[:0]
	for _, snap := range list {
		if snap.EventSequenceNumber >= olderThanEventSeq {
			kept = append(kept, snap)
		}
	}
	s.snapshots[id] = kept
	return nil
}
