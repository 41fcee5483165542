package strategy

// Options holds every configurable field across all strategy kinds. Only
// the fields relevant to the kind passed to New are consulted — see the
// validation rules in New for which fields each kind requires.
type Options struct {
	// Fixed
	DelayMS    float64
	delayMSSet bool

	// Percentile
	Percentile   float64
	WindowSize   int
	MinSamples   int
	InitialDelay float64

	// Adaptive
	Candidates []float64

	// WorkloadAware
	BaseDelay float64

	// ExpBackoff
	BaseDelayMS    float64
	MinDelayMS     float64
	MaxDelayMS     float64
	IncreaseFactor float64
	DecreaseFactor float64
	ErrorFactor    float64
}

// Option configures a Strategy at construction time.
type Option func(*Options)

// WithDelayMS sets the constant delay for the Fixed strategy. Required:
// Fixed has no built-in default, so New(KindFixed) without this option is
// a ConfigInvalid error even though 0 itself is an accepted value.
func WithDelayMS(ms float64) Option {
	return func(o *Options) { o.DelayMS = ms; o.delayMSSet = true }
}

// WithPercentile sets the target percentile (50-99) for the Percentile
// strategy.
func WithPercentile(p float64) Option { return func(o *Options) { o.Percentile = p } }

// WithWindowSize bounds the Percentile strategy's latency sample FIFO.
// Default: 1000.
func WithWindowSize(n int) Option { return func(o *Options) { o.WindowSize = n } }

// WithMinSamples sets the Percentile strategy's warmup threshold before it
// starts recomputing current_delay. Default: 10.
func WithMinSamples(n int) Option { return func(o *Options) { o.MinSamples = n } }

// WithInitialDelay sets the delay a Percentile strategy returns before it
// has seen min_samples outcomes. Default: 100ms.
func WithInitialDelay(ms float64) Option { return func(o *Options) { o.InitialDelay = ms } }

// WithCandidates sets the Adaptive strategy's bandit arms. Default:
// {50, 100, 200, 500, 1000}.
func WithCandidates(delaysMS ...float64) Option {
	return func(o *Options) { o.Candidates = delaysMS }
}

// WithBaseDelay sets the WorkloadAware strategy's unmultiplied base delay.
func WithBaseDelay(ms float64) Option { return func(o *Options) { o.BaseDelay = ms } }

// WithExponentialBase sets the ExpBackoff strategy's starting delay.
// Default: 100ms.
func WithExponentialBase(ms float64) Option { return func(o *Options) { o.BaseDelayMS = ms } }

// WithExponentialMin sets the ExpBackoff strategy's floor. Default: 10ms.
func WithExponentialMin(ms float64) Option { return func(o *Options) { o.MinDelayMS = ms } }

// WithExponentialMax sets the ExpBackoff strategy's ceiling. Default: 5000ms.
func WithExponentialMax(ms float64) Option { return func(o *Options) { o.MaxDelayMS = ms } }

// WithExponentialIncreaseFactor sets the multiplier applied when a backup
// fired and did not win, whether or not the call errored. Must be > 1.
// Default: 1.5.
func WithExponentialIncreaseFactor(f float64) Option {
	return func(o *Options) { o.IncreaseFactor = f }
}

// WithExponentialDecreaseFactor sets the multiplier applied on a hedge win
// or an unhedged fast primary. Must be in (0, 1). Default: 0.9.
func WithExponentialDecreaseFactor(f float64) Option {
	return func(o *Options) { o.DecreaseFactor = f }
}

// WithExponentialErrorFactor sets the multiplier applied when the outcome
// carries an error tag and no backup fired. Must be > 1. Default: 2.0.
func WithExponentialErrorFactor(f float64) Option {
	return func(o *Options) { o.ErrorFactor = f }
}

func newOptions(opts ...Option) *Options {
	o := &Options{
		WindowSize:     1000,
		MinSamples:     10,
		InitialDelay:   100,
		Candidates:     []float64{50, 100, 200, 500, 1000},
		BaseDelayMS:    100,
		MinDelayMS:     10,
		MaxDelayMS:     5000,
		IncreaseFactor: 1.5,
		DecreaseFactor: 0.9,
		ErrorFactor:    2.0,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
