package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpBackoff_MonotonicOnWinsOnly(t *testing.T) {
	s, err := New(KindExpBackoff, WithExponentialBase(1000), WithExponentialMin(10), WithExponentialMax(5000))
	require.NoError(t, err)

	prev := s.CalculateDelay().MS
	for i := 0; i < 50; i++ {
		s.Update(Outcome{HedgeWon: true})
		cur := s.CalculateDelay().MS
		assert.LessOrEqual(t, cur, prev)
		prev = cur
	}
	assert.Equal(t, float64(10), prev)
}

func TestExpBackoff_MonotonicOnErrorsOnly(t *testing.T) {
	s, err := New(KindExpBackoff, WithExponentialBase(100), WithExponentialMin(10), WithExponentialMax(1000))
	require.NoError(t, err)

	prev := s.CalculateDelay().MS
	for i := 0; i < 50; i++ {
		s.Update(Outcome{Errored: true})
		cur := s.CalculateDelay().MS
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
	assert.Equal(t, float64(1000), prev)
}

func TestExpBackoff_HedgedLossIncreases(t *testing.T) {
	s, err := New(KindExpBackoff, WithExponentialBase(100), WithExponentialIncreaseFactor(2))
	require.NoError(t, err)

	s.Update(Outcome{Hedged: true, HedgeWon: false})
	assert.Equal(t, float64(200), s.CalculateDelay().MS)
}

func TestExpBackoff_UnhedgedFastPrimaryDecreases(t *testing.T) {
	s, err := New(KindExpBackoff, WithExponentialBase(100), WithExponentialDecreaseFactor(0.5))
	require.NoError(t, err)

	s.Update(Outcome{})
	assert.Equal(t, float64(50), s.CalculateDelay().MS)
}

func TestExpBackoff_NextBackOffImplementsInterface(t *testing.T) {
	s, err := New(KindExpBackoff, WithExponentialBase(100))
	require.NoError(t, err)

	eb := s.(*expBackoffStrategy)
	d := eb.NextBackOff()
	assert.Greater(t, d.Milliseconds(), int64(0))
}
