package eventsourcing

// validateCommitStream validates a sequence of commits against an
// aggregate's current position before folding them in (§4.5). It checks, in
// order: aggregate id agreement, commit-sequence contiguity, and
// event-sequence contiguity across the combined stream. Any violation
// returns a *CorruptedHistoryError (matching ErrCorruptedHistory).
func validateCommitStream(aggregateID AggregateID, commitSeq, eventSeq int64, commits []Commit) error {
	expectedCommitSeq := commitSeq + 1
	expectedEventSeq := eventSeq + 1

	for _, commit := range commits {
		if commit.AggregateID != aggregateID {
			return &CorruptedHistoryError{
				AggregateID: aggregateID,
				Reason:      "commit belongs to a different aggregate: " + commit.AggregateID.String(),
			}
		}
		if commit.SequenceNumber != expectedCommitSeq {
			return &CorruptedHistoryError{
				AggregateID: aggregateID,
				Reason:      "non-contiguous commit sequence",
			}
		}
		if len(commit.Events) == 0 {
			return &CorruptedHistoryError{
				AggregateID: aggregateID,
				Reason:      "commit has no events",
			}
		}
		for _, event := range commit.Events {
			if event.AggregateID != aggregateID {
				return &CorruptedHistoryError{
					AggregateID: aggregateID,
					Reason:      "event belongs to a different aggregate: " + event.AggregateID.String(),
				}
			}
			if event.SequenceNumber != expectedEventSeq {
				return &CorruptedHistoryError{
					AggregateID: aggregateID,
					Reason:      "non-contiguous event sequence",
				}
			}
			expectedEventSeq++
		}
		expectedCommitSeq++
	}
	return nil
}
