package cascade

import "context"

// Tier is one rung of the cascade: a named request function with its own
// escalation delay, optional quality gate, and optional cost weight.
type Tier[T any] struct {
	// Name identifies the tier in telemetry, the returned Outcome, and
	// (when configured) the tier circuit breaker.
	Name string

	// DelayMS is how long the cascade waits for this tier before
	// escalating to the next one. May be 0.
	DelayMS float64

	// RequestFn is invoked with a context derived from the call's
	// context; it keeps running in the background if the cascade
	// escalates past it.
	RequestFn func(context.Context) (T, error)

	// QualityThreshold gates whether an Ok result from this tier is
	// good enough to short-circuit the cascade. Nil means the gate
	// always passes for this tier.
	QualityThreshold *float64

	// Cost is the currency weight added to TotalCost when this tier's
	// task is actually spawned. A zero value is treated as 1.0.
	Cost float64

	// Breaker, when set, is consulted before spawning; an open breaker
	// treats the tier as an immediate Err without invoking RequestFn.
	Breaker *Breaker
}

// Outcome is the metadata returned alongside a cascade's winning value.
type Outcome struct {
	RequestID string

	TierName  string
	TierIndex int

	// TiersFired is the number of tiers actually spawned (not merely
	// listed) before a winner was selected.
	TiersFired int

	// TotalCost sums Cost over every tier actually spawned.
	TotalCost float64

	QualityScore         float64
	QualityGateSatisfied bool

	// QualityGateInvalid is true when the winning result carried a
	// non-numeric confidence/quality_score field, defaulted to 1.0.
	QualityGateInvalid bool

	TotalLatencyMS float64
}
