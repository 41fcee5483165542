package strategy

import (
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Ensure expBackoffStrategy satisfies backoff.BackOff, so a single instance
// can be handed to any other cenkalti/backoff consumer as well as used as
// a Strategy.
var _ backoff.BackOff = (*expBackoffStrategy)(nil)

// expBackoffStrategy is a multiplicative-increase/multiplicative-decrease
// (AIMD) delay: it shrinks toward min_delay on a hedge win, grows toward
// max_delay on a hedge loss or an error, following the same shape as this
// package's jittered backoff implementations, minus the jitter (the
// hedge delay is already staggered geometrically by the executor).
type expBackoffStrategy struct {
	mu sync.Mutex

	current float64
	min     float64
	max     float64
	inc     float64
	dec     float64
	errFac  float64

	consecutiveSuccesses uint64
	consecutiveFailures  uint64
	totalAdjustments     uint64
}

func newExpBackoff(o *Options) *expBackoffStrategy {
	return &expBackoffStrategy{
		current: o.BaseDelayMS,
		min:     o.MinDelayMS,
		max:     o.MaxDelayMS,
		inc:     o.IncreaseFactor,
		dec:     o.DecreaseFactor,
		errFac:  o.ErrorFactor,
	}
}

func (e *expBackoffStrategy) CalculateDelay() Delay {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Delay{MS: math.Round(e.current)}
}

func (e *expBackoffStrategy) Update(o Outcome) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case o.HedgeWon:
		e.current = math.Max(e.min, e.current*e.dec)
		e.consecutiveSuccesses++
		e.consecutiveFailures = 0
	case o.Hedged:
		e.current = math.Min(e.max, e.current*e.inc)
		e.consecutiveFailures++
		e.consecutiveSuccesses = 0
	case o.Errored:
		e.current = math.Min(e.max, e.current*e.errFac)
		e.consecutiveFailures++
		e.consecutiveSuccesses = 0
	default:
		// Primary was fast and no backup fired: treat as a success.
		e.current = math.Max(e.min, e.current*e.dec)
		e.consecutiveSuccesses++
		e.consecutiveFailures = 0
	}
	e.totalAdjustments++
}

func (e *expBackoffStrategy) Kind() Kind { return KindExpBackoff }

func (e *expBackoffStrategy) Stats() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return map[string]any{
		"kind":                  KindExpBackoff,
		"current_delay":         e.current,
		"consecutive_successes": e.consecutiveSuccesses,
		"consecutive_failures":  e.consecutiveFailures,
		"total_adjustments":     e.totalAdjustments,
	}
}

func (e *expBackoffStrategy) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.consecutiveSuccesses = 0
	e.consecutiveFailures = 0
	e.totalAdjustments = 0
}

// NextBackOff implements backoff.BackOff by treating "no hedge fired"
// as the success path: it reads the current delay, then applies the same
// decrease an unhedged fast primary would.
func (e *expBackoffStrategy) NextBackOff() time.Duration {
	d := e.CalculateDelay()
	e.Update(Outcome{})
	return d.Duration()
}
