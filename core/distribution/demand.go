package distribution

// DistanceBucket is a driven distance with its relative weight.
type DistanceBucket struct {
	KM     int
	Weight float64
}

var distanceBuckets = []DistanceBucket{
	{KM: 0, Weight: 0.3431},
	{KM: 5, Weight: 0.0490},
	{KM: 10, Weight: 0.0980},
	{KM: 20, Weight: 0.1176},
	{KM: 30, Weight: 0.0882},
	{KM: 50, Weight: 0.1176},
	{KM: 100, Weight: 0.1078},
	{KM: 200, Weight: 0.0490},
	{KM: 300, Weight: 0.0294},
}

// cumulative holds the normalised cumulative weights of distanceBuckets.
// The table sums to 0.9997, so weights are divided by their total.
var cumulative = buildCumulative(distanceBuckets)

func buildCumulative(buckets []DistanceBucket) []float64 {
	total := 0.0
	for _, b := range buckets {
		total += b.Weight
	}
	out := make([]float64, len(buckets))
	acc := 0.0
	for i, b := range buckets {
		acc += b.Weight
		out[i] = acc / total
	}
	return out
}

// DistanceBuckets returns a copy of the distance table.
func DistanceBuckets() []DistanceBucket {
	out := make([]DistanceBucket, len(distanceBuckets))
	copy(out, distanceBuckets)
	return out
}

// SampleChargingDistanceKM draws the distance a vehicle has to recover.
func SampleChargingDistanceKM(rng RandomSource) int {
	u := rng.Float64()
	for i, c := range cumulative {
		if u < c {
			return distanceBuckets[i].KM
		}
	}
	return distanceBuckets[len(distanceBuckets)-1].KM
}

// SampleChargingEnergy converts a sampled distance into an energy demand in kWh.
func SampleChargingEnergy(consumptionKWhPer100KM float64, rng RandomSource) float64 {
	km := SampleChargingDistanceKM(rng)
	return float64(km) / 100 * consumptionKWhPer100KM
}
