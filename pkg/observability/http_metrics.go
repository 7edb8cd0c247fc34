package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRequestsTotal    = "heropicks.http.requests.total"
	metricRequestDuration  = "heropicks.http.request.duration.seconds"
	metricInflightRequests = "heropicks.http.inflight.requests"

	attrRoute  = "route"
	attrStatus = "status"
)

// requestBucketBoundaries covers 1ms to 5s; scrapes are small.
var requestBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// HTTPMetrics holds rate, duration and in-flight instruments for the
// metrics endpoint. Safe to call on a nil receiver (no-op).
type HTTPMetrics struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	inflightRequests metric.Int64UpDownCounter
}

// NewHTTPMetrics creates HTTP metric instruments from the given meter.
func NewHTTPMetrics(mt metric.Meter) (*HTTPMetrics, error) {
	reqTotal, err := mt.Int64Counter(metricRequestsTotal,
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestsTotal, err)
	}

	reqDuration, err := mt.Float64Histogram(metricRequestDuration,
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(requestBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestDuration, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricInflightRequests,
		metric.WithDescription("Number of in-flight HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflightRequests, err)
	}

	return &HTTPMetrics{
		requestsTotal:    reqTotal,
		requestDuration:  reqDuration,
		inflightRequests: inflight,
	}, nil
}

// RecordRequest records a completed request.
func (hm *HTTPMetrics) RecordRequest(ctx context.Context, route string, status int, duration time.Duration) {
	if hm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrRoute, route),
		attribute.Int(attrStatus, status),
	)

	hm.requestsTotal.Add(ctx, 1, attrs)
	hm.requestDuration.Record(ctx, duration.Seconds(), attrs)
}

// TrackInflight increments the in-flight gauge and returns a function to decrement it.
func (hm *HTTPMetrics) TrackInflight(ctx context.Context, route string) func() {
	if hm == nil {
		return func() {}
	}

	attrs := metric.WithAttributes(attribute.String(attrRoute, route))
	hm.inflightRequests.Add(ctx, 1, attrs)

	return func() {
		hm.inflightRequests.Add(ctx, -1, attrs)
	}
}
