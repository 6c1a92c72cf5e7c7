// Package telemetry provides the Telemetry/Span port the Run Executor
// accepts through its Deps, plus a concrete OTel-backed
// implementation and a no-op fallback, following the same interface
// shape as the teacher's core.Telemetry.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry starts spans and records metrics. Components depend on this
// interface, never on the otel API directly, so tests can inject NoOp.
type Telemetry interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
	RecordMetric(name string, value float64, labels map[string]string)
}

// Span is the subset of trace.Span components need.
type Span interface {
	End()
	SetAttribute(key string, value interface{})
	RecordError(err error)
}

// NoOpTelemetry discards everything. Default for callers that don't wire
// a real tracer/meter provider.
type NoOpTelemetry struct{}

func (NoOpTelemetry) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return ctx, noOpSpan{}
}
func (NoOpTelemetry) RecordMetric(string, float64, map[string]string) {}

type noOpSpan struct{}

func (noOpSpan) End()                               {}
func (noOpSpan) SetAttribute(string, interface{})   {}
func (noOpSpan) RecordError(error)                  {}

// OTelTelemetry wires the real go.opentelemetry.io/otel API surface. It
// takes no dependency on any SDK or exporter — whatever the embedding
// application registers as the global tracer/meter provider is what gets
// used; if nothing is registered, otel's own no-op implementation runs.
type OTelTelemetry struct {
	tracer  trace.Tracer
	counter metric.Float64Counter
}

// NewOTelTelemetry builds a Telemetry backed by the named tracer/meter.
func NewOTelTelemetry(instrumentationName string) *OTelTelemetry {
	meter := otel.Meter(instrumentationName)
	counter, _ := meter.Float64Counter(instrumentationName + ".events")
	return &OTelTelemetry{
		tracer:  otel.Tracer(instrumentationName),
		counter: counter,
	}
}

func (t *OTelTelemetry) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, otelSpan{span: span}
}

func (t *OTelTelemetry) RecordMetric(name string, value float64, labels map[string]string) {
	if t.counter == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(labels)+1)
	attrs = append(attrs, attribute.String("metric", name))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	t.counter.Add(context.Background(), value, metric.WithAttributes(attrs...))
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End() { s.span.End() }

func (s otelSpan) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

func (s otelSpan) RecordError(err error) {
	if err != nil {
		s.span.RecordError(err)
	}
}
