package metrics

// DefaultWindowSize is the default number of latency samples the sink
// retains.
const DefaultWindowSize = 10_000

// config holds Sink construction options.
type config struct {
	windowSize int
	namespace  string
}

// Option configures a Sink.
type Option func(*config)

// WithWindowSize bounds the number of latency samples the sink retains for
// percentile calculation. Values <= 0 fall back to DefaultWindowSize.
func WithWindowSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.windowSize = n
		}
	}
}

// WithNamespace sets the Prometheus metric namespace prefix used by the
// Collector implementation (see prometheus.go). Default: "hedge".
func WithNamespace(ns string) Option {
	return func(c *config) { c.namespace = ns }
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		windowSize: DefaultWindowSize,
		namespace:  "hedge",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
