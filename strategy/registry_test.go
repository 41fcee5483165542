package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Fixed_RequiresDelay(t *testing.T) {
	_, err := New(KindFixed)
	require.Error(t, err)

	s, err := New(KindFixed, WithDelayMS(42))
	require.NoError(t, err)
	assert.Equal(t, Delay{MS: 42}, s.CalculateDelay())
}

func TestNew_Fixed_ZeroDelayIsValid(t *testing.T) {
	// delay_ms = 0 is a legitimate boundary value (fire the backup
	// immediately), distinct from never having set delay_ms at all.
	s, err := New(KindFixed, WithDelayMS(0))
	require.NoError(t, err)
	assert.Equal(t, Delay{MS: 0}, s.CalculateDelay())
}

func TestNew_Percentile_ValidatesRange(t *testing.T) {
	_, err := New(KindPercentile, WithPercentile(10))
	require.Error(t, err)

	_, err = New(KindPercentile, WithPercentile(99.5))
	require.Error(t, err)

	_, err = New(KindPercentile, WithPercentile(95))
	require.NoError(t, err)
}

func TestNew_Adaptive_RequiresTwoCandidates(t *testing.T) {
	_, err := New(KindAdaptive, WithCandidates(100))
	require.Error(t, err)

	_, err = New(KindAdaptive, WithCandidates(100, 200))
	require.NoError(t, err)
}

func TestNew_ExpBackoff_ValidatesBounds(t *testing.T) {
	_, err := New(KindExpBackoff, WithExponentialMin(100), WithExponentialMax(10))
	require.Error(t, err, "min must be < max")

	_, err = New(KindExpBackoff, WithExponentialBase(1), WithExponentialMin(10), WithExponentialMax(100))
	require.Error(t, err, "base must be within [min, max]")

	_, err = New(KindExpBackoff, WithExponentialIncreaseFactor(1))
	require.Error(t, err, "increase factor must be > 1")

	_, err = New(KindExpBackoff, WithExponentialDecreaseFactor(1))
	require.Error(t, err, "decrease factor must be in (0, 1)")

	_, err = New(KindExpBackoff)
	require.NoError(t, err)
}

func TestNew_Off(t *testing.T) {
	s, err := New(KindOff)
	require.NoError(t, err)
	assert.True(t, s.CalculateDelay().Off)
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := New(Kind("bogus"))
	require.Error(t, err)
}

func TestRegistry_LazyCreateIsIdempotent(t *testing.T) {
	r := NewRegistry()

	s1, err := r.Resolve("backend-a", KindFixed, WithDelayMS(100))
	require.NoError(t, err)

	s2, err := r.Resolve("backend-a", KindFixed, WithDelayMS(999))
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	assert.Equal(t, Delay{MS: 100}, s2.CalculateDelay(), "second resolve must not re-apply new options")
}

func TestRegistry_StartConflictingKind(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Start("x", KindFixed, WithDelayMS(10)))

	err := r.Start("x", KindPercentile, WithPercentile(90))
	require.Error(t, err)
}

func TestRegistry_Stats_NotStarted(t *testing.T) {
	r := NewRegistry()
	_, err := r.Stats("missing")
	require.ErrorIs(t, err, ErrNotStarted)
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry()
	s, err := r.Resolve("x", KindExpBackoff)
	require.NoError(t, err)

	s.Update(Outcome{Errored: true})
	require.NoError(t, r.Reset("x"))

	stats, err := r.Stats("x")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stats["total_adjustments"])
}
