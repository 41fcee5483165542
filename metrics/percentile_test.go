package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentile_Empty(t *testing.T) {
	assert.Equal(t, float64(0), Percentile(nil, 50))
}

func TestPercentile_NearestRank(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	assert.Equal(t, float64(5), Percentile(values, 50))
	assert.Equal(t, float64(9), Percentile(values, 90))
	assert.Equal(t, float64(10), Percentile(values, 100))
	assert.Equal(t, float64(1), Percentile(values, 0))
}

func TestPercentile_DoesNotMutateInput(t *testing.T) {
	values := []float64{5, 3, 1, 4, 2}
	original := append([]float64(nil), values...)

	Percentile(values, 50)

	assert.Equal(t, original, values)
}

func TestPercentiles_MatchesIndividualCalls(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	ps := []float64{50, 90, 95, 99, 99.9}

	batch := Percentiles(values, ps)
	for _, p := range ps {
		assert.Equal(t, Percentile(values, p), batch[p])
	}
}

func TestPercentiles_Empty(t *testing.T) {
	batch := Percentiles(nil, []float64{50, 99})
	assert.Equal(t, float64(0), batch[50])
	assert.Equal(t, float64(0), batch[99])
}
