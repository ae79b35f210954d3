package distribution

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestSampleChargingDistanceKM_Boundaries(t *testing.T) {
	cases := []struct {
		draw float64
		want int
	}{
		{0, 0},
		{0.3431/0.9997 - 1e-9, 0},
		{0.3431/0.9997 + 1e-9, 5},
		{0.5, 20},
		{0.9999999, 300},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, SampleChargingDistanceKM(fixedSource(c.draw)), "draw %v", c.draw)
	}
}

func TestSampleChargingDistanceKM_Frequencies(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	buckets := DistanceBuckets()
	index := make(map[int]int, len(buckets))
	total := 0.0
	for i, b := range buckets {
		index[b.KM] = i
		total += b.Weight
	}

	const n = 100000
	observed := make([]float64, len(buckets))
	for i := 0; i < n; i++ {
		km := SampleChargingDistanceKM(rng)
		idx, ok := index[km]
		require.True(t, ok, "unexpected bucket %d", km)
		observed[idx]++
	}
	expected := make([]float64, len(buckets))
	for i, b := range buckets {
		expected[i] = b.Weight / total * n
		assert.InDelta(t, b.Weight/total, observed[i]/n, 0.01, "bucket %d km", b.KM)
	}

	chi2 := stat.ChiSquare(observed, expected)
	critical := distuv.ChiSquared{K: float64(len(buckets) - 1)}.Quantile(0.999)
	assert.Less(t, chi2, critical)
}

func TestSampleChargingEnergy(t *testing.T) {
	// 0.5 falls in the 20 km bucket
	assert.InDelta(t, 3.6, SampleChargingEnergy(18, fixedSource(0.5)), 1e-12)
	assert.Equal(t, 0.0, SampleChargingEnergy(18, fixedSource(0)))
	assert.InDelta(t, 60.0, SampleChargingEnergy(20, fixedSource(0.99999)), 1e-12)
}
