package eventsourcing

import (
	"errors"
	"fmt"
)

// Sentinel error kinds surfaced by the core (§7). Providers and codecs wrap
// their own failures against these with fmt.Errorf("...: %w", ...) so
// callers can dispatch with errors.Is regardless of the concrete cause.
var (
	// ErrSequenceMismatch is returned when ApplyEvent sees an event whose
	// sequence number isn't event_seq+1, or a provider returns a gap during
	// AggregateReader replay. (ApplyCommits reports gaps as
	// ErrCorruptedHistory.) Not retryable; indicates a caller logic error.
	ErrSequenceMismatch = errors.New("aggregatestore: sequence mismatch")

	// ErrAggregateMismatch is returned when an event or commit carries a
	// different aggregate id than the one being applied to. Not retryable.
	ErrAggregateMismatch = errors.New("aggregatestore: aggregate id mismatch")

	// ErrCorruptedHistory is returned when commit-stream validation fails
	// during rehydration (§4.5). Requires operator intervention.
	ErrCorruptedHistory = errors.New("aggregatestore: corrupted commit history")

	// ErrConcurrency is returned when a commit loses an optimistic
	// concurrency race. The caller should reload the aggregate, re-apply
	// its intent against the new event_seq, and retry.
	ErrConcurrency = errors.New("aggregatestore: concurrency conflict")

	// ErrStorageUnavailable wraps a transport/backend failure surfaced by a
	// provider. Caller-chosen backoff/retry.
	ErrStorageUnavailable = errors.New("aggregatestore: storage unavailable")

	// ErrSerializationFailed is returned when a codec cannot encode or
	// decode a payload. Not retryable; indicates a schema problem.
	ErrSerializationFailed = errors.New("aggregatestore: serialization failed")
)

// SequenceMismatchError carries the detail behind ErrSequenceMismatch.
type SequenceMismatchError struct {
	AggregateID AggregateID
	Expected    int64
	Got         int64
}

func (e *SequenceMismatchError) Error() string {
	return fmt.Sprintf("aggregatestore: aggregate %s expected sequence %d, got %d",
		e.AggregateID, e.Expected, e.Got)
}

func (e *SequenceMismatchError) Is(target error) bool {
	return target == ErrSequenceMismatch
}

// CorruptedHistoryError carries the detail behind ErrCorruptedHistory.
type CorruptedHistoryError struct {
	AggregateID AggregateID
	Reason      string
}

func (e *CorruptedHistoryError) Error() string {
	return fmt.Sprintf("aggregatestore: corrupted history for aggregate %s: %s", e.AggregateID, e.Reason)
}

func (e *CorruptedHistoryError) Is(target error) bool {
	return target == ErrCorruptedHistory
}
