package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Bus is the fan-out implementation of the Telemetry Bus. It records
// OpenTelemetry counters/histograms, adds span events to the context's
// active span, and invokes any registered callback Subscribers.
//
// A Bus is safe for concurrent use.
type Bus struct {
	tracer      trace.Tracer
	serviceName string

	eventCounter metric.Int64Counter
	durationHist metric.Float64Histogram

	mu   sync.RWMutex
	subs []Subscriber
}

// New creates a Bus. Without options it reads from the OpenTelemetry
// global providers, matching the teacher package's newConfig pattern.
func New(opts ...Option) *Bus {
	cfg := newConfig(opts...)

	meter := cfg.meterProvider.Meter(scope)
	tracer := cfg.tracerProvider.Tracer(scope)

	eventCounter, _ := meter.Int64Counter(
		"hedge.events",
		metric.WithDescription("Count of hedging telemetry events by name"),
		metric.WithUnit("{event}"),
	)
	durationHist, _ := meter.Float64Histogram(
		"hedge.event.measurement",
		metric.WithDescription("Numeric measurement attached to a hedging telemetry event"),
		metric.WithUnit("ms"),
	)

	return &Bus{
		tracer:       tracer,
		serviceName:  cfg.serviceName,
		eventCounter: eventCounter,
		durationHist: durationHist,
	}
}

// Subscribe registers fn to receive every event emitted on the bus. It
// returns a function that removes the subscription.
func (b *Bus) Subscribe(fn Subscriber) (unsubscribe func()) {
	b.mu.Lock()
	idx := len(b.subs)
	b.subs = append(b.subs, fn)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if idx < len(b.subs) {
			b.subs[idx] = nil
		}
	}
}

// Emit records prefix+suffix as an OTel counter increment, a histogram
// sample per measurement, a span event on ctx's active span (if any), and
// delivers the Event to every live subscriber, in that order.
func (b *Bus) Emit(
	ctx context.Context,
	prefix, suffix string,
	measurements map[string]float64,
	metadata map[string]string,
) {
	name := prefix + suffix

	attrs := make([]attribute.KeyValue, 0, len(metadata)+2)
	attrs = append(attrs, attribute.String("event", name))
	if b.serviceName != "" {
		attrs = append(attrs, attribute.String("hedge.service", b.serviceName))
	}
	for k, v := range metadata {
		attrs = append(attrs, attribute.String(k, v))
	}

	if b.eventCounter != nil {
		b.eventCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if b.durationHist != nil {
		for k, v := range measurements {
			b.durationHist.Record(ctx, v, metric.WithAttributes(
				append(attrs, attribute.String("measurement", k))...,
			))
		}
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		spanAttrs := make([]attribute.KeyValue, 0, len(measurements)+len(metadata))
		for k, v := range measurements {
			spanAttrs = append(spanAttrs, attribute.Float64(k, v))
		}
		for k, v := range metadata {
			spanAttrs = append(spanAttrs, attribute.String(k, v))
		}
		span.AddEvent(name, trace.WithAttributes(spanAttrs...))
	}

	b.mu.RLock()
	subs := make([]Subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	event := Event{Name: name, Measurements: measurements, Metadata: metadata}
	for _, sub := range subs {
		if sub != nil {
			sub(event)
		}
	}
}

// StartSpan starts a span for a top-level request() or multi_tier() call,
// returning the derived context and a function to end the span.
func (b *Bus) StartSpan(ctx context.Context, name string) (context.Context, func()) {
	ctx, span := b.tracer.Start(ctx, name)
	return ctx, func() { span.End() }
}
