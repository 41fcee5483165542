package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_GetStats_NotStarted(t *testing.T) {
	sink := New()

	_, err := sink.GetStats()
	require.ErrorIs(t, err, ErrNotStarted)
}

func TestSink_Record_BasicCounters(t *testing.T) {
	sink := New()

	sink.Record(Sample{TotalLatencyMS: 100, Hedged: false, Cost: 1})
	sink.Record(Sample{TotalLatencyMS: 200, Hedged: true, HedgeWon: false, Cost: 2})
	sink.Record(Sample{TotalLatencyMS: 50, Hedged: true, HedgeWon: true, Cost: 2})

	stats, err := sink.GetStats()
	require.NoError(t, err)

	assert.Equal(t, uint64(3), stats.Total)
	assert.Equal(t, 3, stats.SampleCount)
	assert.InDelta(t, 2.0/3.0, stats.HedgeRate, 1e-9)
	assert.InDelta(t, 0.5, stats.HedgeWinRate, 1e-9)
	assert.InDelta(t, 1.0/3.0, stats.HedgeEffectiveness, 1e-9)
	assert.Equal(t, float64(5), stats.TotalCost)
}

func TestSink_Record_WindowWraps(t *testing.T) {
	sink := New(WithWindowSize(3))

	for i := 1; i <= 5; i++ {
		sink.Record(Sample{TotalLatencyMS: float64(i * 10), Cost: 1})
	}

	stats, err := sink.GetStats()
	require.NoError(t, err)

	// Total counts every observation ever recorded...
	assert.Equal(t, uint64(5), stats.Total)
	// ...but the percentile window only retains the last 3 samples: 30,40,50.
	assert.Equal(t, 3, stats.SampleCount)
	assert.Equal(t, float64(30), stats.Min)
	assert.Equal(t, float64(50), stats.Max)
}

func TestSink_Reset(t *testing.T) {
	sink := New()
	sink.Record(Sample{TotalLatencyMS: 100, Cost: 1})

	sink.Reset()

	_, err := sink.GetStats()
	require.ErrorIs(t, err, ErrNotStarted)
}

func TestSink_CostOverheadPct_NoHedging(t *testing.T) {
	sink := New()
	for i := 0; i < 10; i++ {
		sink.Record(Sample{TotalLatencyMS: 10, Cost: 1})
	}

	stats, err := sink.GetStats()
	require.NoError(t, err)
	assert.InDelta(t, 0, stats.CostOverheadPct, 1e-9)
}

func TestSink_CostOverheadPct_WithHedging(t *testing.T) {
	sink := New()
	for i := 0; i < 10; i++ {
		sink.Record(Sample{TotalLatencyMS: 10, Hedged: true, Cost: 2})
	}

	stats, err := sink.GetStats()
	require.NoError(t, err)
	assert.InDelta(t, 100, stats.CostOverheadPct, 1e-9)
}
