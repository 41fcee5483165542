package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// scope is the instrumentation scope name reported to OpenTelemetry.
const scope = "github.com/kroma-labs/hedge-go/telemetry"

// config holds Bus construction options.
type config struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	serviceName    string
}

// Option configures a Bus.
type Option func(*config)

// WithTracerProvider sets a custom OpenTelemetry TracerProvider. If not
// called, the global provider from otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) { c.tracerProvider = tp }
}

// WithMeterProvider sets a custom OpenTelemetry MeterProvider. If not
// called, the global provider from otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) { c.meterProvider = mp }
}

// WithServiceName attaches a "hedge.service" attribute to every metric and
// span event emitted by the bus, making it easy to separate multiple
// hedged call-sites in the same process.
func WithServiceName(name string) Option {
	return func(c *config) { c.serviceName = name }
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
