// Package observe wires OpenTelemetry metrics and tracing for xcauth.
//
// Exporters write JSON lines into files (never to stdout, which carries the
// XMPP protocol in serve mode). With no writer configured the corresponding
// signal uses a no-op provider.
package observe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/dmitrijs2005/xcauth"

// Config holds the exporter destinations.
type Config struct {
	ServiceName string
	Version     string
	// Metrics receives periodic metric snapshots; nil disables metrics.
	Metrics io.Writer
	// Traces receives finished spans; nil disables tracing.
	Traces io.Writer
}

// Observer records xcauth telemetry. The zero value is not usable; use New,
// NewWithProviders or Nop.
type Observer struct {
	tracer  trace.Tracer
	metrics *metricsImpl

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// New creates an Observer backed by the OpenTelemetry SDK.
func New(ctx context.Context, cfg Config) (*Observer, error) {
	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var (
		tp trace.TracerProvider = tracenoop.NewTracerProvider()
		mp metric.MeterProvider = noop.NewMeterProvider()

		sdkTP *sdktrace.TracerProvider
		sdkMP *sdkmetric.MeterProvider
	)

	if cfg.Traces != nil {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(cfg.Traces))
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		sdkTP = sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithBatcher(exporter),
		)
		tp = sdkTP
	}

	if cfg.Metrics != nil {
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(cfg.Metrics))
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics exporter: %w", err)
		}
		sdkMP = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(time.Minute))),
		)
		mp = sdkMP
	}

	obs, err := NewWithProviders(tp, mp)
	if err != nil {
		return nil, err
	}
	obs.tracerProvider = sdkTP
	obs.meterProvider = sdkMP
	return obs, nil
}

// NewWithProviders creates an Observer on caller-supplied providers.
// Shutdown does not stop them.
func NewWithProviders(tp trace.TracerProvider, mp metric.MeterProvider) (*Observer, error) {
	m, err := newMetrics(mp.Meter(instrumentationName))
	if err != nil {
		return nil, fmt.Errorf("failed to create instruments: %w", err)
	}
	return &Observer{tracer: tp.Tracer(instrumentationName), metrics: m}, nil
}

// Nop returns an Observer that records nothing.
func Nop() *Observer {
	obs, err := NewWithProviders(tracenoop.NewTracerProvider(), noop.NewMeterProvider())
	if err != nil {
		// noop instruments never fail
		panic(err)
	}
	return obs
}

// StartSpan starts an internal span.
func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan records the decision and any error on span, then ends it.
func EndSpan(span trace.Span, granted bool, err error) {
	span.SetAttributes(attribute.Bool("xcauth.granted", granted))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// RecordRequest counts one protocol request and its answer.
func (o *Observer) RecordRequest(ctx context.Context, op string, granted bool) {
	o.metrics.recordRequest(ctx, op, granted)
}

// RecordTokenCheck counts one token verification by outcome.
func (o *Observer) RecordTokenCheck(ctx context.Context, outcome string) {
	o.metrics.recordTokenCheck(ctx, outcome)
}

// RecordCloudCall counts one cloud request and its latency.
func (o *Observer) RecordCloudCall(ctx context.Context, op, outcome string, d time.Duration) {
	o.metrics.recordCloudCall(ctx, op, outcome, d)
}

// Shutdown flushes and stops the SDK providers created by New.
func (o *Observer) Shutdown(ctx context.Context) error {
	var errs []error

	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}

	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}

	return errors.Join(errs...)
}
