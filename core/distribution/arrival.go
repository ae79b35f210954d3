package distribution

import (
	"errors"
	"fmt"
)

// ErrInvalidHour is returned when an hour outside [0,23] is looked up.
var ErrInvalidHour = errors.New("invalid hour")

// RandomSource produces uniform values in [0,1). *math/rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// ArrivalBand maps an inclusive range of hours to the probability of an
// arrival within a one hour window.
type ArrivalBand struct {
	FromHour    int
	ToHour      int
	Probability float64
}

var arrivalBands = []ArrivalBand{
	{FromHour: 0, ToHour: 7, Probability: 0.0094},
	{FromHour: 8, ToHour: 9, Probability: 0.0283},
	{FromHour: 10, ToHour: 12, Probability: 0.0566},
	{FromHour: 13, ToHour: 15, Probability: 0.0755},
	{FromHour: 16, ToHour: 18, Probability: 0.1038},
	{FromHour: 19, ToHour: 21, Probability: 0.0472},
	{FromHour: 22, ToHour: 23, Probability: 0.0094},
}

// ArrivalBands returns a copy of the hourly arrival table.
func ArrivalBands() []ArrivalBand {
	out := make([]ArrivalBand, len(arrivalBands))
	copy(out, arrivalBands)
	return out
}

// ArrivalProbability returns the probability of an arrival within one hour
// starting at the given hour of the day.
func ArrivalProbability(hour int) (float64, error) {
	for _, b := range arrivalBands {
		if hour >= b.FromHour && hour <= b.ToHour {
			return b.Probability, nil
		}
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidHour, hour)
}

// AdjustedArrivalProbability scales the hourly probability linearly to the
// interval length and applies the arrival multiplier. The result is not
// clamped; values above 1 make an arrival certain.
func AdjustedArrivalProbability(hour, intervalMinutes int, multiplier float64) (float64, error) {
	p, err := ArrivalProbability(hour)
	if err != nil {
		return 0, err
	}
	return p * (float64(intervalMinutes) / 60) * multiplier, nil
}

// SampleArrival draws whether a vehicle arrives during an interval.
//
// The whole interval uses the probability of the given hour, intervals that
// cross an hour boundary are not split.
func SampleArrival(hour, intervalMinutes int, multiplier float64, rng RandomSource) (bool, error) {
	p, err := AdjustedArrivalProbability(hour, intervalMinutes, multiplier)
	if err != nil {
		return false, err
	}
	return rng.Float64() < p, nil
}
