// Package strategy implements the pluggable delay-selection policies the
// hedging executor consults before firing a backup attempt: Fixed,
// Percentile, Adaptive (Thompson sampling), WorkloadAware, and ExpBackoff,
// plus the degenerate Off policy.
//
// Strategies are addressed by name through a Registry, which lazily
// creates the first instance referenced under a given name and hands back
// that same instance on every subsequent reference. Use Default for a
// simple process-wide registry, or NewRegistry to keep strategy state
// scoped to a single caller.
package strategy
