package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type metricsImpl struct {
	requests      metric.Int64Counter
	tokenChecks   metric.Int64Counter
	cloudCalls    metric.Int64Counter
	cloudDuration metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	requests, err := meter.Int64Counter(
		"xcauth.requests",
		metric.WithDescription("Protocol requests answered, by operation and result"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	tokenChecks, err := meter.Int64Counter(
		"xcauth.token.checks",
		metric.WithDescription("Token verifications, by outcome"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	cloudCalls, err := meter.Int64Counter(
		"xcauth.cloud.calls",
		metric.WithDescription("Cloud endpoint requests, by operation and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	cloudDuration, err := meter.Float64Histogram(
		"xcauth.cloud.duration_ms",
		metric.WithDescription("Cloud endpoint request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		requests:      requests,
		tokenChecks:   tokenChecks,
		cloudCalls:    cloudCalls,
		cloudDuration: cloudDuration,
	}, nil
}

func (m *metricsImpl) recordRequest(ctx context.Context, op string, granted bool) {
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.Bool("granted", granted),
	))
}

func (m *metricsImpl) recordTokenCheck(ctx context.Context, outcome string) {
	m.tokenChecks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *metricsImpl) recordCloudCall(ctx context.Context, op, outcome string, d time.Duration) {
	opt := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	)
	m.cloudCalls.Add(ctx, 1, opt)
	m.cloudDuration.Record(ctx, float64(d.Milliseconds()), opt)
}
