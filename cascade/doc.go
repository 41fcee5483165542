// Package cascade implements the multi-tier cascade: an ordered-fallback
// variant of hedging where each tier is a distinct request function with
// its own delay and an optional quality gate, rather than identical
// copies of one function racing on a delay ladder.
//
// Tier 0 runs first; if it doesn't produce a satisfactory result within
// its delay, tier 1 starts while tier 0 keeps running in the background,
// and so on. The first tier to produce an Ok result that clears its
// quality gate wins; everything else is cancelled.
package cascade
