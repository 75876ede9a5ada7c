package eventsourcing

import (
	"context"
	"time"
)

// MetricsRecorder is the capability interface the kernel and reader use to
// report instrumentation. It is defined here, in the consuming package,
// rather than importing an OpenTelemetry type directly, so the core stays
// decoupled from any particular metrics backend; pkg/observability provides
// an OTel-backed implementation. Aggregate.WithMetrics and
// AggregateReader.WithMetrics replace a nil recorder with NoopMetrics;
// callers that don't care about metrics can also pass NoopMetrics directly.
type MetricsRecorder interface {
	// RecordCommit reports a Commit() call: how many events it carried, how
	// long the write took, and the resulting error (nil on success).
	RecordCommit(ctx context.Context, eventCount int, dur time.Duration, err error)

	// RecordReplay reports one AggregateReader.Read() call: total events
	// folded and how long the whole rehydration took.
	RecordReplay(ctx context.Context, eventCount int, dur time.Duration, err error)

	// RecordSnapshotLoad reports whether a rehydration found a usable
	// snapshot (hit) or started from the empty sentinel (miss).
	RecordSnapshotLoad(ctx context.Context, hit bool)
}

type noopMetrics struct{}

func (noopMetrics) RecordCommit(context.Context, int, time.Duration, error) {}
func (noopMetrics) RecordReplay(context.Context, int, time.Duration, error) {}
func (noopMetrics) RecordSnapshotLoad(context.Context, bool)                {}

// NoopMetrics is a MetricsRecorder that discards everything. It is the
// default for both Aggregate and AggregateReader.
var NoopMetrics MetricsRecorder = noopMetrics{}
