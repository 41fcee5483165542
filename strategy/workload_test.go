package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkloadAware_UnknownTagsDefaultToUnityMultiplier(t *testing.T) {
	s, err := New(KindWorkloadAware, WithBaseDelay(100))
	require.NoError(t, err)

	w := s.(*workloadAwareStrategy)
	assert.Equal(t, Delay{MS: 100}, w.CalculateWithTags(Tags{}))
}

func TestWorkloadAware_CombinesMultipliers(t *testing.T) {
	s, err := New(KindWorkloadAware, WithBaseDelay(100))
	require.NoError(t, err)
	w := s.(*workloadAwareStrategy)

	d := w.CalculateWithTags(Tags{
		PromptLength:    5000,
		ModelComplexity: "complex",
		TimeOfDay:       "peak",
		Priority:        "high",
	})
	// 100 * 2.5 * 2.0 * 0.7 * 0.6 = 210
	assert.Equal(t, Delay{MS: 210}, d)
}

func TestWorkloadAware_ClampsToTenMilliseconds(t *testing.T) {
	s, err := New(KindWorkloadAware, WithBaseDelay(10))
	require.NoError(t, err)
	w := s.(*workloadAwareStrategy)

	d := w.CalculateWithTags(Tags{ModelComplexity: "simple", Priority: "high"})
	assert.Equal(t, Delay{MS: 10}, d)
}
