package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kestrelhq/aggregatestore/pkg/eventsourcing"
)

// Metrics holds the metric instruments backing an
// eventsourcing.MetricsRecorder, trimmed to the kernel's three
// instrumentation points (commit, replay, snapshot load).
type Metrics struct {
	CommitDuration metric.Float64Histogram
	CommitTotal    metric.Int64Counter
	CommitErrors   metric.Int64Counter
	EventsAppended metric.Int64Counter

	ReplayDuration     metric.Float64Histogram
	ReplayEventsFolded metric.Int64Counter
	ReplayErrors       metric.Int64Counter

	SnapshotHits   metric.Int64Counter
	SnapshotMisses metric.Int64Counter
}

// NewMetrics creates all metric instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.CommitDuration, err = meter.Float64Histogram(
		"aggregatestore.commit.duration",
		metric.WithDescription("Aggregate commit duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating commit.duration: %w", err)
	}

	m.CommitTotal, err = meter.Int64Counter(
		"aggregatestore.commit.total",
		metric.WithDescription("Total aggregate commits attempted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating commit.total: %w", err)
	}

	m.CommitErrors, err = meter.Int64Counter(
		"aggregatestore.commit.errors",
		metric.WithDescription("Total aggregate commit failures, including concurrency conflicts"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating commit.errors: %w", err)
	}

	m.EventsAppended, err = meter.Int64Counter(
		"aggregatestore.events.appended",
		metric.WithDescription("Total events written across all successful commits"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events.appended: %w", err)
	}

	m.ReplayDuration, err = meter.Float64Histogram(
		"aggregatestore.replay.duration",
		metric.WithDescription("Aggregate rehydration duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating replay.duration: %w", err)
	}

	m.ReplayEventsFolded, err = meter.Int64Counter(
		"aggregatestore.replay.events_folded",
		metric.WithDescription("Total events folded during rehydration, across all reads"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating replay.events_folded: %w", err)
	}

	m.ReplayErrors, err = meter.Int64Counter(
		"aggregatestore.replay.errors",
		metric.WithDescription("Total rehydration failures"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating replay.errors: %w", err)
	}

	m.SnapshotHits, err = meter.Int64Counter(
		"aggregatestore.snapshot.hits",
		metric.WithDescription("Rehydrations that found a usable snapshot"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot.hits: %w", err)
	}

	m.SnapshotMisses, err = meter.Int64Counter(
		"aggregatestore.snapshot.misses",
		metric.WithDescription("Rehydrations that started from the empty snapshot sentinel"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot.misses: %w", err)
	}

	return m, nil
}

// RecordCommit implements eventsourcing.MetricsRecorder.
func (m *Metrics) RecordCommit(ctx context.Context, eventCount int, dur time.Duration, err error) {
	m.CommitDuration.Record(ctx, dur.Seconds())
	m.CommitTotal.Add(ctx, 1)
	if err != nil {
		m.CommitErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("error_type", fmt.Sprintf("%T", err))))
		return
	}
	m.EventsAppended.Add(ctx, int64(eventCount))
}

// RecordReplay implements eventsourcing.MetricsRecorder.
func (m *Metrics) RecordReplay(ctx context.Context, eventCount int, dur time.Duration, err error) {
	m.ReplayDuration.Record(ctx, dur.Seconds())
	if err != nil {
		m.ReplayErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("error_type", fmt.Sprintf("%T", err))))
		return
	}
	m.ReplayEventsFolded.Add(ctx, int64(eventCount))
}

// RecordSnapshotLoad implements eventsourcing.MetricsRecorder.
func (m *Metrics) RecordSnapshotLoad(ctx context.Context, hit bool) {
	if hit {
		m.SnapshotHits.Add(ctx, 1)
	} else {
		m.SnapshotMisses.Add(ctx, 1)
	}
}

var _ eventsourcing.MetricsRecorder = (*Metrics)(nil)
