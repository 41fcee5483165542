// Package hedge implements the hedging executor: a per-request state
// machine that launches a primary attempt, schedules a bounded set of
// delayed backup attempts per a pluggable strategy, races them to the
// first success, and cancels the rest.
//
// Typical use:
//
//	cfg := hedge.NewConfig(
//		hedge.WithStrategy(strategy.KindPercentile, "my-backend", strategy.WithPercentile(95)),
//		hedge.WithMaxHedges(2),
//		hedge.WithTimeout(2*time.Second),
//	)
//	value, outcome, err := hedge.Request(ctx, fetch, cfg)
package hedge
