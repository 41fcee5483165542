package strategy

import (
	"fmt"
	"sync"
)

// New constructs a Strategy of the given kind, validating its options per
// the dispatch rules. Configuration is frozen for the lifetime of the
// returned instance.
func New(kind Kind, opts ...Option) (Strategy, error) {
	o := newOptions(opts...)

	switch kind {
	case KindFixed:
		if !o.delayMSSet {
			return nil, fmt.Errorf("strategy: fixed requires delay_ms to be set")
		}
		if o.DelayMS < 0 {
			return nil, fmt.Errorf("strategy: fixed requires delay_ms >= 0")
		}
		return newFixed(o.DelayMS), nil

	case KindPercentile:
		if o.Percentile < 50 || o.Percentile > 99 {
			return nil, fmt.Errorf("strategy: percentile requires 50 <= percentile <= 99, got %v", o.Percentile)
		}
		return newPercentile(o), nil

	case KindAdaptive:
		if len(o.Candidates) < 2 {
			return nil, fmt.Errorf("strategy: adaptive requires at least 2 delay candidates")
		}
		for _, d := range o.Candidates {
			if d < 0 {
				return nil, fmt.Errorf("strategy: adaptive delay candidates must be non-negative")
			}
		}
		return newAdaptive(o), nil

	case KindWorkloadAware:
		return newWorkloadAware(o), nil

	case KindExpBackoff:
		if !(o.MinDelayMS < o.MaxDelayMS) {
			return nil, fmt.Errorf("strategy: exponential_backoff requires min_delay < max_delay")
		}
		if o.BaseDelayMS < o.MinDelayMS || o.BaseDelayMS > o.MaxDelayMS {
			return nil, fmt.Errorf("strategy: exponential_backoff requires base_delay in [min_delay, max_delay]")
		}
		if o.IncreaseFactor <= 1 {
			return nil, fmt.Errorf("strategy: exponential_backoff requires increase_factor > 1")
		}
		if !(o.DecreaseFactor > 0 && o.DecreaseFactor < 1) {
			return nil, fmt.Errorf("strategy: exponential_backoff requires 0 < decrease_factor < 1")
		}
		if o.ErrorFactor <= 1 {
			return nil, fmt.Errorf("strategy: exponential_backoff requires error_factor > 1")
		}
		return newExpBackoff(o), nil

	case KindOff:
		return offStrategy{}, nil

	default:
		return nil, fmt.Errorf("strategy: unknown kind %q", kind)
	}
}

// Registry holds named, lazily-created Strategy instances. The first call
// to Start or Resolve for a given name creates the instance with the
// options supplied in that call; subsequent calls with the same name are
// idempotent and ignore any new options, matching the spec's "first use
// lazily creates" rule for addressed strategy instances.
type Registry struct {
	mu    sync.Mutex
	named map[string]Strategy
	kinds map[string]Kind
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		named: make(map[string]Strategy),
		kinds: make(map[string]Kind),
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide convenience registry. Prefer an
// explicit *Registry passed through configuration; Default exists only
// for simple top-level callers, per the source's singleton-avoidance note.
func Default() *Registry { return defaultRegistry }

// Start idempotently creates the named instance if it does not already
// exist. Calling Start again for a name already started with a different
// kind is an error; calling it again with the same kind is a no-op.
func (r *Registry) Start(name string, kind Kind, opts ...Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startLocked(name, kind, opts...)
}

func (r *Registry) startLocked(name string, kind Kind, opts ...Option) error {
	if existing, ok := r.kinds[name]; ok {
		if existing != kind {
			return fmt.Errorf("strategy: %q already started as kind %q, cannot restart as %q", name, existing, kind)
		}
		return nil
	}
	s, err := New(kind, opts...)
	if err != nil {
		return err
	}
	r.named[name] = s
	r.kinds[name] = kind
	return nil
}

// Resolve returns the named instance, lazily creating it with kind/opts if
// this is the first reference to name. This is what hedge.Request uses
// internally to turn a (StrategyKind, StrategyName) pair from a request
// configuration into a live Strategy.
func (r *Registry) Resolve(name string, kind Kind, opts ...Option) (Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.startLocked(name, kind, opts...); err != nil {
		return nil, err
	}
	return r.named[name], nil
}

// Stats returns the named instance's introspectable state, or
// ErrNotStarted if nothing has been started under that name.
func (r *Registry) Stats(name string) (map[string]any, error) {
	r.mu.Lock()
	s, ok := r.named[name]
	r.mu.Unlock()
	if !ok {
		return nil, ErrNotStarted
	}
	if ss, ok := s.(statser); ok {
		return ss.Stats(), nil
	}
	return map[string]any{"kind": s.Kind()}, nil
}

// Reset clears the named instance's learned state in place, or returns
// ErrNotStarted if nothing has been started under that name.
func (r *Registry) Reset(name string) error {
	r.mu.Lock()
	s, ok := r.named[name]
	r.mu.Unlock()
	if !ok {
		return ErrNotStarted
	}
	if rs, ok := s.(resetter); ok {
		rs.Reset()
	}
	return nil
}
