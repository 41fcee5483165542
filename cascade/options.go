package cascade

import (
	"time"

	"github.com/kroma-labs/hedge-go/metrics"
	"github.com/kroma-labs/hedge-go/telemetry"
)

// Config is the per-call configuration for Run.
type Config struct {
	timeout     time.Duration
	graceWindow time.Duration

	telemetryPrefix string
	requestID       string

	bus  *telemetry.Bus
	sink *metrics.Sink

	debug bool
}

// Option configures a Config.
type Option func(*Config)

// WithTimeout bounds the overall cascade call, measured from entry. Zero
// (the default) means the caller's context governs the deadline alone.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.timeout = d }
}

// WithGraceWindow sets how long Run waits for a background tier after
// escalating through every tier without a satisfying Ok. Default 100ms,
// per the algorithm's grace period.
func WithGraceWindow(d time.Duration) Option {
	return func(c *Config) { c.graceWindow = d }
}

// WithTelemetryPrefix sets the namespace prepended to every emitted
// multi_level.* event. The prefix is joined to the event name as-is, so it
// carries its own trailing separator. Default "hedge.".
func WithTelemetryPrefix(prefix string) Option {
	return func(c *Config) { c.telemetryPrefix = prefix }
}

// WithRequestID supplies a caller-chosen correlation ID instead of the
// UUID Run mints by default.
func WithRequestID(id string) Option {
	return func(c *Config) { c.requestID = id }
}

// WithBus attaches a telemetry.Bus that Run emits events to.
func WithBus(bus *telemetry.Bus) Option {
	return func(c *Config) { c.bus = bus }
}

// WithSink attaches a metrics.Sink that Run records every outcome into.
func WithSink(sink *metrics.Sink) Option {
	return func(c *Config) { c.sink = sink }
}

// WithDebug enables one zerolog debug-level log line per tier
// transition.
func WithDebug() Option {
	return func(c *Config) { c.debug = true }
}

// NewConfig builds a Config from defaults plus the supplied options.
func NewConfig(opts ...Option) Config {
	c := Config{
		graceWindow:     100 * time.Millisecond,
		telemetryPrefix: "hedge.",
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
