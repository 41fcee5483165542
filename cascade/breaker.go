package cascade

import (
	"context"
	"time"

	"github.com/kroma-labs/hedge-go/telemetry"
	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
	gobreakerredis "github.com/sony/gobreaker/v2/redis"
)

// Breaker wraps a gobreaker.CircuitBreaker keyed by a cascade tier's name.
// A cascade consults it before spawning that tier; while open, the tier
// is skipped and treated as an immediate Err instead of invoking
// RequestFn, so a persistently failing downstream isn't retried on every
// cascade call. This is scoped to one tier's downstream, not the race
// itself, and is entirely optional — a Tier with no Breaker behaves
// exactly as the unqualified algorithm describes.
type Breaker struct {
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// BreakerOption configures the gobreaker.Settings underlying a Breaker.
type BreakerOption func(*gobreaker.Settings)

// WithBreakerMaxRequests caps the probe requests allowed while half-open.
func WithBreakerMaxRequests(n uint32) BreakerOption {
	return func(s *gobreaker.Settings) { s.MaxRequests = n }
}

// WithBreakerInterval sets the cyclic period after which closed-state
// counts are cleared.
func WithBreakerInterval(d time.Duration) BreakerOption {
	return func(s *gobreaker.Settings) { s.Interval = d }
}

// WithBreakerTimeout sets how long the breaker stays open before
// half-opening to probe recovery.
func WithBreakerTimeout(d time.Duration) BreakerOption {
	return func(s *gobreaker.Settings) { s.Timeout = d }
}

// WithBreakerConsecutiveFailures trips the breaker after n consecutive
// tier failures.
func WithBreakerConsecutiveFailures(n uint32) BreakerOption {
	return func(s *gobreaker.Settings) {
		s.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= n
		}
	}
}

// WithBreakerOnStateChange registers a callback invoked whenever the
// breaker transitions state.
func WithBreakerOnStateChange(fn func(name string, from, to gobreaker.State)) BreakerOption {
	return func(s *gobreaker.Settings) { s.OnStateChange = fn }
}

// NewBreaker builds a local, in-memory circuit breaker for a tier named
// name. Defaults: MaxRequests 1, Interval 10s, Timeout 10s, trips after 5
// consecutive failures — the same defaults the teacher stack uses for
// its HTTP-transport breaker.
func NewBreaker(name string, opts ...BreakerOption) *Breaker {
	return newBreaker(name, nil, opts...)
}

// NewRedisBreaker builds a circuit breaker for a tier named name backed
// by client, so breaker state is shared across process instances.
func NewRedisBreaker(name string, client redis.UniversalClient, opts ...BreakerOption) *Breaker {
	return newBreaker(name, gobreakerredis.NewStoreFromClient(client), opts...)
}

// NewBreakerWithTelemetry is NewBreaker but also emits
// multi_level.tier.breaker_open/breaker_closed events on state changes.
func NewBreakerWithTelemetry(name string, bus *telemetry.Bus, prefix string, opts ...BreakerOption) *Breaker {
	notify := func(n string, from, to gobreaker.State) {
		if bus == nil {
			return
		}
		suffix := telemetry.SuffixTierBreakerClosed
		if to == gobreaker.StateOpen {
			suffix = telemetry.SuffixTierBreakerOpen
		}
		bus.Emit(context.Background(), prefix, suffix, nil, map[string]string{"tier": n})
	}
	return newBreaker(name, nil, append(opts, WithBreakerOnStateChange(notify))...)
}

func newBreaker(name string, store gobreaker.SharedDataStore, opts ...BreakerOption) *Breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	for _, opt := range opts {
		opt(&settings)
	}

	var cb *gobreaker.CircuitBreaker[any]
	if store != nil {
		dcb, err := gobreaker.NewDistributedCircuitBreaker[any](store, settings)
		if err != nil {
			// Graceful degradation: a local breaker still protects this
			// process even if the shared store is unreachable.
			cb = gobreaker.NewCircuitBreaker[any](settings)
		} else {
			cb = dcb.CircuitBreaker
		}
	} else {
		cb = gobreaker.NewCircuitBreaker[any](settings)
	}
	return &Breaker{cb: cb, name: name}
}

// allow reports whether the breaker currently permits spawning the tier.
func (b *Breaker) allow() bool {
	return b.cb.State() != gobreaker.StateOpen
}

// recordResult feeds the tier's observed outcome (nil err for success) back
// into the breaker without actually routing the call through Execute
// (the cascade already called RequestFn directly to keep its own
// cancellation and race-result bookkeeping).
func (b *Breaker) recordResult(err error) {
	_, _ = b.cb.Execute(func() (any, error) { return nil, err })
}
