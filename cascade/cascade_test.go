package cascade

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kroma-labs/hedge-go/hedge"
	"github.com/kroma-labs/hedge-go/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scoredResult struct {
	Confidence float64
	Label      string
}

func threshold(v float64) *float64 { return &v }

func TestRun_QualityGateFallback(t *testing.T) {
	tier0 := Tier[scoredResult]{
		Name:    "tier-0",
		DelayMS: 10,
		RequestFn: func(ctx context.Context) (scoredResult, error) {
			return scoredResult{Confidence: 0.8, Label: "tier-0"}, nil
		},
		QualityThreshold: threshold(0.95),
	}
	tier1 := Tier[scoredResult]{
		Name:    "tier-1",
		DelayMS: 10,
		RequestFn: func(ctx context.Context) (scoredResult, error) {
			return scoredResult{Confidence: 0.7, Label: "tier-1"}, nil
		},
		QualityThreshold: threshold(0.0),
	}

	value, outcome, err := Run(context.Background(), []Tier[scoredResult]{tier0, tier1}, NewConfig())
	require.NoError(t, err)
	assert.Equal(t, "tier-1", value.Label)
	assert.Equal(t, "tier-1", outcome.TierName)
	assert.Equal(t, 1, outcome.TierIndex)
	assert.True(t, outcome.QualityGateSatisfied)
}

func TestRun_FirstTierSatisfiesGate_NeverEscalates(t *testing.T) {
	var tier1Started atomic.Bool

	tier0 := Tier[scoredResult]{
		Name:    "tier-0",
		DelayMS: 100,
		RequestFn: func(ctx context.Context) (scoredResult, error) {
			return scoredResult{Confidence: 0.99}, nil
		},
		QualityThreshold: threshold(0.9),
	}
	tier1 := Tier[scoredResult]{
		Name:    "tier-1",
		DelayMS: 10,
		RequestFn: func(ctx context.Context) (scoredResult, error) {
			tier1Started.Store(true)
			return scoredResult{Confidence: 1.0}, nil
		},
	}

	value, outcome, err := Run(context.Background(), []Tier[scoredResult]{tier0, tier1}, NewConfig())
	require.NoError(t, err)
	assert.Equal(t, 0.99, value.Confidence)
	assert.Equal(t, 1, outcome.TiersFired)
	assert.Equal(t, float64(1), outcome.TotalCost)

	time.Sleep(20 * time.Millisecond)
	assert.False(t, tier1Started.Load(), "tier-1 must never start once tier-0 satisfies its gate")
}

func TestRun_TierError_EscalatesImmediately(t *testing.T) {
	wantErr := errors.New("tier-0 down")

	tier0 := Tier[string]{
		Name:    "tier-0",
		DelayMS: 500,
		RequestFn: func(ctx context.Context) (string, error) {
			return "", wantErr
		},
	}
	tier1 := Tier[string]{
		Name:    "tier-1",
		DelayMS: 10,
		RequestFn: func(ctx context.Context) (string, error) {
			return "tier-1-ok", nil
		},
	}

	start := time.Now()
	value, outcome, err := Run(context.Background(), []Tier[string]{tier0, tier1}, NewConfig())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, "tier-1-ok", value)
	assert.Equal(t, "tier-1", outcome.TierName)
	assert.Less(t, elapsed, 200*time.Millisecond, "tier-0's error must escalate without waiting its full delay")
}

func TestRun_AllTiersFail(t *testing.T) {
	tier0 := Tier[string]{
		Name:    "tier-0",
		DelayMS: 5,
		RequestFn: func(ctx context.Context) (string, error) {
			return "", errors.New("tier-0 failed")
		},
	}
	tier1 := Tier[string]{
		Name:    "tier-1",
		DelayMS: 5,
		RequestFn: func(ctx context.Context) (string, error) {
			return "", errors.New("tier-1 failed")
		},
	}

	_, _, err := Run(context.Background(), []Tier[string]{tier0, tier1}, NewConfig(WithGraceWindow(20*time.Millisecond)))
	require.Error(t, err)

	var herr *hedge.Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, hedge.ErrorAllTiersFailed, herr.Kind)
}

func TestRun_EmptyTierList_IsConfigInvalid(t *testing.T) {
	_, _, err := Run[string](context.Background(), nil, NewConfig())
	require.Error(t, err)

	var herr *hedge.Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, hedge.ErrorConfigInvalid, herr.Kind)
}

func TestRun_CostCounts_OnlySpawnedTiers(t *testing.T) {
	tier0 := Tier[string]{
		Name:    "tier-0",
		DelayMS: 5,
		Cost:    2.0,
		RequestFn: func(ctx context.Context) (string, error) {
			return "", errors.New("down")
		},
	}
	tier1 := Tier[string]{
		Name:    "tier-1",
		DelayMS: 5,
		Cost:    3.0,
		RequestFn: func(ctx context.Context) (string, error) {
			return "ok", nil
		},
	}
	tier2 := Tier[string]{
		Name:    "tier-2",
		DelayMS: 5,
		Cost:    7.0,
		RequestFn: func(ctx context.Context) (string, error) {
			return "unreachable", nil
		},
	}

	_, outcome, err := Run(context.Background(), []Tier[string]{tier0, tier1, tier2}, NewConfig())
	require.NoError(t, err)
	assert.Equal(t, float64(5), outcome.TotalCost, "only tier-0 and tier-1 were ever spawned")
	assert.Equal(t, 2, outcome.TiersFired)
}

func TestRun_EmitsTierTimeoutAndCancelled(t *testing.T) {
	var events []string
	bus := telemetry.New()
	bus.Subscribe(func(e telemetry.Event) { events = append(events, e.Name) })

	tier0 := Tier[string]{
		Name:    "tier-0",
		DelayMS: 10,
		RequestFn: func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	tier1 := Tier[string]{
		Name:    "tier-1",
		DelayMS: 0,
		RequestFn: func(ctx context.Context) (string, error) {
			return "tier-1-ok", nil
		},
	}

	_, _, err := Run(context.Background(), []Tier[string]{tier0, tier1}, NewConfig(
		WithBus(bus),
		WithTelemetryPrefix("hedge."),
	))
	require.NoError(t, err)

	assert.Contains(t, events, "hedge.multi_level.tier.timeout", "tier-0's delay should elapse before it reports in")
	assert.Contains(t, events, "hedge.multi_level.tier.cancelled", "tier-0 is still running in the background when tier-1 wins")
}

func TestGate_NonStructuredResult_AlwaysPasses(t *testing.T) {
	passes, score, invalid := Gate("plain string", threshold(0.99))
	assert.True(t, passes)
	assert.Equal(t, 1.0, score)
	assert.False(t, invalid)
}

func TestGate_NonNumericScore_DefaultsAndFlagsInvalid(t *testing.T) {
	type malformed struct {
		Confidence string
	}
	passes, score, invalid := Gate(malformed{Confidence: "high"}, threshold(0.5))
	assert.True(t, passes)
	assert.Equal(t, 1.0, score)
	assert.True(t, invalid)
}

func TestGate_PrefersConfidenceOverQualityScore(t *testing.T) {
	type both struct {
		Confidence   float64
		QualityScore float64
	}
	passes, score, _ := Gate(both{Confidence: 0.4, QualityScore: 0.99}, threshold(0.5))
	assert.False(t, passes)
	assert.Equal(t, 0.4, score)
}
