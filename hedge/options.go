package hedge

import (
	"fmt"
	"time"

	"github.com/kroma-labs/hedge-go/metrics"
	"github.com/kroma-labs/hedge-go/strategy"
	"github.com/kroma-labs/hedge-go/telemetry"
	"golang.org/x/time/rate"
)

// Config is the per-call configuration for Request. Build one with
// NewConfig and functional options; the zero value is not directly usable
// (NewConfig applies every documented default).
type Config struct {
	strategyKind    strategy.Kind
	strategyName    string
	strategyOptions []strategy.Option
	registry        *strategy.Registry

	maxHedges          int
	timeout            time.Duration
	enableCancellation bool
	telemetryPrefix    string
	requestID          string

	backupRateLimit *rate.Limiter

	bus  *telemetry.Bus
	sink *metrics.Sink

	debug bool

	tags    strategy.Tags
	hasTags bool
}

// Option configures a Config.
type Option func(*Config)

// WithStrategy selects which delay-selection policy Request consults, and
// which named instance of it (instances are addressed by name; the first
// call for a given name lazily creates it with opts). An empty name
// addresses one shared instance per kind in the registry, created by the
// first call that uses it.
func WithStrategy(kind strategy.Kind, name string, opts ...strategy.Option) Option {
	return func(c *Config) {
		c.strategyKind = kind
		c.strategyName = name
		c.strategyOptions = opts
	}
}

// WithRegistry overrides the strategy registry Request resolves named
// strategies against. Defaults to strategy.Default().
func WithRegistry(r *strategy.Registry) Option {
	return func(c *Config) { c.registry = r }
}

// WithMaxHedges bounds the number of concurrent backup attempts. Must be
// >= 1. Default: 2.
func WithMaxHedges(n int) Option {
	return func(c *Config) { c.maxHedges = n }
}

// WithTimeout sets the overall deadline for the call (primary + every
// backup), measured from entry. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.timeout = d }
}

// WithCancellation toggles whether losing attempts are signalled to abort
// once a winner is chosen. Default: true.
func WithCancellation(enabled bool) Option {
	return func(c *Config) { c.enableCancellation = enabled }
}

// WithTelemetryPrefix sets the namespace prepended to every emitted event.
// The prefix is joined to the event suffix as-is, so it carries its own
// trailing separator. Default: "hedge.".
func WithTelemetryPrefix(prefix string) Option {
	return func(c *Config) { c.telemetryPrefix = prefix }
}

// WithRequestID supplies a caller-chosen correlation ID instead of the
// UUID Request mints by default.
func WithRequestID(id string) Option {
	return func(c *Config) { c.requestID = id }
}

// WithBackupRateLimit caps how often backups may fire; the primary is
// never subject to this limiter. A denied backup slot is skipped, not
// delayed, and emits a hedge.skipped event with reason=rate_limited.
func WithBackupRateLimit(limiter *rate.Limiter) Option {
	return func(c *Config) { c.backupRateLimit = limiter }
}

// WithBus attaches a telemetry.Bus that Request emits events to.
func WithBus(bus *telemetry.Bus) Option {
	return func(c *Config) { c.bus = bus }
}

// WithSink attaches a metrics.Sink that Request records every outcome
// into, in addition to updating the strategy.
func WithSink(sink *metrics.Sink) Option {
	return func(c *Config) { c.sink = sink }
}

// WithDebug enables one zerolog debug-level log line per attempt
// transition (spawned, finished, cancelled). Purely observational.
func WithDebug() Option {
	return func(c *Config) { c.debug = true }
}

// WithWorkloadTags supplies the per-call workload dimensions a
// WorkloadAware strategy multiplies its base delay by (prompt length,
// model complexity, time of day, priority). Ignored by every other
// strategy kind.
func WithWorkloadTags(tags strategy.Tags) Option {
	return func(c *Config) {
		c.tags = tags
		c.hasTags = true
	}
}

// NewConfig builds a Config from defaults plus the supplied options.
// Defaults: strategy Off, max_hedges 2, timeout 30s, cancellation enabled,
// telemetry_prefix "hedge.".
func NewConfig(opts ...Option) Config {
	c := Config{
		strategyKind:       strategy.KindOff,
		maxHedges:          2,
		timeout:            30 * time.Second,
		enableCancellation: true,
		telemetryPrefix:    "hedge.",
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c Config) validate() error {
	if c.maxHedges < 1 {
		return fmt.Errorf("hedge: max_hedges must be >= 1, got %d", c.maxHedges)
	}
	if c.timeout < 0 {
		return fmt.Errorf("hedge: timeout_ms must be >= 0")
	}
	return nil
}

func (c Config) resolveStrategy() (strategy.Strategy, error) {
	reg := c.registry
	if reg == nil {
		reg = strategy.Default()
	}
	name := c.strategyName
	if name == "" {
		name = fmt.Sprintf("__anon_%s", c.strategyKind)
	}
	return reg.Resolve(name, c.strategyKind, c.strategyOptions...)
}
