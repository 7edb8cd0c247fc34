package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/heropicks/pkg/observability"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}

	return out
}

func sumInt64(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

func TestCondenseMetrics_Records(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	cm, err := observability.NewCondenseMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()

	cm.AddRows(ctx, 10)
	cm.AddRows(ctx, 5)
	cm.AddRows(ctx, 0)
	cm.RecordBadRow(ctx, "short_row")
	cm.RecordBadRow(ctx, "bad_timestamp")
	cm.RecordBadPicks(ctx)
	cm.SetDays(ctx, 3)
	cm.RecordCheckpoint(ctx, false, nil, 10*time.Millisecond)
	cm.RecordCheckpoint(ctx, true, errors.New("disk full"), time.Second)

	metrics := collect(t, reader)

	assert.Equal(t, int64(15), sumInt64(t, metrics["heropicks.condense.rows.total"]))
	assert.Equal(t, int64(2), sumInt64(t, metrics["heropicks.condense.bad_rows.total"]))
	assert.Equal(t, int64(1), sumInt64(t, metrics["heropicks.condense.bad_picks.total"]))

	saves, ok := metrics["heropicks.checkpoint.saves.total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, saves.DataPoints, 2)

	outcomes := make(map[string]string)

	for _, dp := range saves.DataPoints {
		kind, _ := dp.Attributes.Value(attribute.Key("kind"))
		outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
		outcomes[kind.AsString()] = outcome.AsString()
	}

	assert.Equal(t, map[string]string{"intermediate": "ok", "final": "error"}, outcomes)

	days, ok := metrics["heropicks.condense.days"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, days.DataPoints, 1)
	assert.Equal(t, int64(3), days.DataPoints[0].Value)

	hist, ok := metrics["heropicks.checkpoint.save.duration.seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 2)
}

func TestCondenseMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var cm *observability.CondenseMetrics

	ctx := context.Background()

	assert.NotPanics(t, func() {
		cm.AddRows(ctx, 1)
		cm.RecordBadRow(ctx, "csv")
		cm.RecordBadPicks(ctx)
		cm.SetDays(ctx, 1)
		cm.RecordCheckpoint(ctx, true, nil, time.Second)
	})
}

func TestHTTPMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var hm *observability.HTTPMetrics

	assert.NotPanics(t, func() {
		done := hm.TrackInflight(context.Background(), "/metrics")
		hm.RecordRequest(context.Background(), "/metrics", 200, time.Millisecond)
		done()
	})
}
