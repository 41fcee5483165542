// Package pipeline is the boundary this module exposes to an outer
// orchestration framework. It accepts a structured Context carrying a
// request function and a hedging-shaped configuration, runs hedge.Request,
// and writes the outcome back into the Context as an Artifact plus a
// Metrics map. It imports nothing from hedge's internals beyond the public
// Config/Outcome types, so it can be vendored into any caller's pipeline
// framework without pulling that framework's dependencies into this
// module, or this module's dependencies into the framework.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/kroma-labs/hedge-go/hedge"
	"github.com/kroma-labs/hedge-go/strategy"
)

// Context is the input/output envelope for a single Stage.Run call. The
// caller populates RequestFn and the optional fields; Run populates
// Artifact and Metrics before returning.
type Context struct {
	// RequestFn is the nullary (modulo context) request function to hedge.
	// Required.
	RequestFn func(context.Context) (any, error)

	// Strategy selects the delay-selection policy. Default: "off".
	Strategy string
	// StrategyName addresses a named strategy instance. Default: "".
	StrategyName string
	// DelayMS is the Fixed strategy's delay. Default: 100.
	DelayMS int
	// Percentile is the Percentile strategy's target percentile. No
	// default; required when Strategy == "percentile".
	Percentile float64
	// MaxHedges bounds concurrent backups. Default: 2.
	MaxHedges int
	// TimeoutMS is the overall deadline. Default: 30000.
	TimeoutMS int

	// Artifact holds the winning value on success. Populated by Run.
	Artifact any
	// Metrics holds a flattened view of the returned hedge.Outcome.
	// Populated by Run.
	Metrics map[string]any
}

// Defaults match the schema's advertised (:off, 100, –, 2, 30_000).
const (
	DefaultStrategy  = "off"
	DefaultDelayMS   = 100
	DefaultMaxHedges = 2
	DefaultTimeoutMS = 30_000
)

// Stage is the pipeline-stage adapter. A zero-value Stage is usable; an
// explicit Registry may be attached with WithRegistry for callers that
// want named-strategy continuity across stage invocations.
type Stage struct {
	registry *strategy.Registry
}

// StageOption configures a Stage.
type StageOption func(*Stage)

// WithRegistry attaches the strategy.Registry the Stage resolves named
// strategies against. Defaults to strategy.Default().
func WithRegistry(r *strategy.Registry) StageOption {
	return func(s *Stage) { s.registry = r }
}

// NewStage constructs a Stage.
func NewStage(opts ...StageOption) *Stage {
	s := &Stage{}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run executes pc.RequestFn as a hedged call per pc's fields, writing the
// result into pc.Artifact/pc.Metrics. It returns an error for a missing
// RequestFn or an invalid hedging configuration; a hedged call that itself
// fails (timeout, all attempts errored) is reported as a returned error,
// matching hedge.Request's own contract.
func (s *Stage) Run(ctx context.Context, pc *Context) error {
	if pc == nil {
		return fmt.Errorf("pipeline: nil context")
	}
	if pc.RequestFn == nil {
		return fmt.Errorf("pipeline: request_fn is required")
	}

	kind, err := parseStrategyKind(pc.Strategy)
	if err != nil {
		return err
	}

	maxHedges := pc.MaxHedges
	if maxHedges == 0 {
		maxHedges = DefaultMaxHedges
	}
	timeoutMS := pc.TimeoutMS
	if timeoutMS == 0 {
		timeoutMS = DefaultTimeoutMS
	}
	delayMS := pc.DelayMS
	if delayMS == 0 && kind == strategy.KindFixed {
		delayMS = DefaultDelayMS
	}

	var stratOpts []strategy.Option
	switch kind {
	case strategy.KindFixed:
		stratOpts = append(stratOpts, strategy.WithDelayMS(float64(delayMS)))
	case strategy.KindPercentile:
		stratOpts = append(stratOpts, strategy.WithPercentile(pc.Percentile))
	}

	cfgOpts := []hedge.Option{
		hedge.WithStrategy(kind, pc.StrategyName, stratOpts...),
		hedge.WithMaxHedges(maxHedges),
		hedge.WithTimeout(time.Duration(timeoutMS) * time.Millisecond),
	}
	if s.registry != nil {
		cfgOpts = append(cfgOpts, hedge.WithRegistry(s.registry))
	}
	cfg := hedge.NewConfig(cfgOpts...)

	value, outcome, err := hedge.Request(ctx, func(ctx context.Context) (any, error) {
		return pc.RequestFn(ctx)
	}, cfg)
	if err != nil {
		return err
	}

	pc.Artifact = value
	pc.Metrics = outcomeToMetrics(outcome)
	return nil
}

func parseStrategyKind(name string) (strategy.Kind, error) {
	if name == "" {
		return strategy.KindOff, nil
	}
	switch name {
	case "off":
		return strategy.KindOff, nil
	case "fixed":
		return strategy.KindFixed, nil
	case "percentile":
		return strategy.KindPercentile, nil
	case "adaptive":
		return strategy.KindAdaptive, nil
	case "workload_aware":
		return strategy.KindWorkloadAware, nil
	case "exponential_backoff":
		return strategy.KindExpBackoff, nil
	default:
		return "", fmt.Errorf("pipeline: unknown strategy %q", name)
	}
}

func outcomeToMetrics(o hedge.Outcome) map[string]any {
	m := map[string]any{
		"request_id":      o.RequestID,
		"hedged":          o.Hedged,
		"hedge_won":       o.HedgeWon,
		"hedge_delay_ms":  o.HedgeDelayMS,
		"total_latency_ms": o.TotalLatencyMS,
		"cost":            o.Cost,
		"strategy_kind":   string(o.StrategyKind),
	}
	if o.HasPrimaryLatency {
		m["primary_latency_ms"] = o.PrimaryLatencyMS
	}
	if o.HasBackupLatency {
		m["backup_latency_ms"] = o.BackupLatencyMS
	}
	return m
}
