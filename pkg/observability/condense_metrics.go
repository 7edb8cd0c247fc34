package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRowsTotal          = "heropicks.condense.rows.total"
	metricBadRowsTotal       = "heropicks.condense.bad_rows.total"
	metricBadPicksTotal      = "heropicks.condense.bad_picks.total"
	metricCheckpointsTotal   = "heropicks.checkpoint.saves.total"
	metricCheckpointDuration = "heropicks.checkpoint.save.duration.seconds"
	metricDaysSeen           = "heropicks.condense.days"

	attrReason  = "reason"
	attrKind    = "kind"
	attrOutcome = "outcome"

	kindFinal        = "final"
	kindIntermediate = "intermediate"
	outcomeOK        = "ok"
	outcomeError     = "error"
)

// checkpointBucketBoundaries covers 10ms to 10min.
var checkpointBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// CondenseMetrics holds OTel instruments for the ingestion loop.
// All methods are safe to call on a nil receiver (no-op).
type CondenseMetrics struct {
	rows               metric.Int64Counter
	badRows            metric.Int64Counter
	badPicks           metric.Int64Counter
	checkpoints        metric.Int64Counter
	checkpointDuration metric.Float64Histogram
	days               metric.Int64Gauge
}

// NewCondenseMetrics creates condense metric instruments from the given meter.
func NewCondenseMetrics(mt metric.Meter) (*CondenseMetrics, error) {
	rows, err := mt.Int64Counter(metricRowsTotal,
		metric.WithDescription("Rows ingested into the aggregate"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRowsTotal, err)
	}

	badRows, err := mt.Int64Counter(metricBadRowsTotal,
		metric.WithDescription("Rows rejected by the decoder, by reason"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricBadRowsTotal, err)
	}

	badPicks, err := mt.Int64Counter(metricBadPicksTotal,
		metric.WithDescription("Rows whose participant JSON failed to parse"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricBadPicksTotal, err)
	}

	checkpoints, err := mt.Int64Counter(metricCheckpointsTotal,
		metric.WithDescription("Checkpoint saves by kind and outcome"),
		metric.WithUnit("{checkpoint}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCheckpointsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricCheckpointDuration,
		metric.WithDescription("Checkpoint save duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(checkpointBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCheckpointDuration, err)
	}

	days, err := mt.Int64Gauge(metricDaysSeen,
		metric.WithDescription("Distinct days observed so far"),
		metric.WithUnit("{day}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDaysSeen, err)
	}

	return &CondenseMetrics{
		rows:               rows,
		badRows:            badRows,
		badPicks:           badPicks,
		checkpoints:        checkpoints,
		checkpointDuration: duration,
		days:               days,
	}, nil
}

// AddRows adds n ingested rows.
func (cm *CondenseMetrics) AddRows(ctx context.Context, n int64) {
	if cm == nil || n <= 0 {
		return
	}

	cm.rows.Add(ctx, n)
}

// RecordBadRow counts one rejected row.
func (cm *CondenseMetrics) RecordBadRow(ctx context.Context, reason string) {
	if cm == nil {
		return
	}

	cm.badRows.Add(ctx, 1, metric.WithAttributes(attribute.String(attrReason, reason)))
}

// RecordBadPicks counts one row with unparseable participant JSON.
func (cm *CondenseMetrics) RecordBadPicks(ctx context.Context) {
	if cm == nil {
		return
	}

	cm.badPicks.Add(ctx, 1)
}

// SetDays records the current distinct-day count.
func (cm *CondenseMetrics) SetDays(ctx context.Context, days int64) {
	if cm == nil {
		return
	}

	cm.days.Record(ctx, days)
}

// RecordCheckpoint records one save attempt. err is the save result.
func (cm *CondenseMetrics) RecordCheckpoint(ctx context.Context, final bool, err error, duration time.Duration) {
	if cm == nil {
		return
	}

	kind := kindIntermediate
	if final {
		kind = kindFinal
	}

	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}

	attrs := metric.WithAttributes(
		attribute.String(attrKind, kind),
		attribute.String(attrOutcome, outcome),
	)

	cm.checkpoints.Add(ctx, 1, attrs)
	cm.checkpointDuration.Record(ctx, duration.Seconds(), attrs)
}
