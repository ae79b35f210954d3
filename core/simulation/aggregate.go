package simulation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultHistogramBins is the number of power bins used by reports.
const DefaultHistogramBins = 20

// ErrNoData is returned when an aggregation receives an empty power history.
var ErrNoData = errors.New("no interval data")

// EnergyStats holds mean, maximum and minimum energy in kWh.
type EnergyStats struct {
	Avg float64 `json:"avg"`
	Max float64 `json:"max"`
	Min float64 `json:"min"`
}

// IntervalOfDay is the energy delivered at one position within the day,
// aggregated over all simulated days.
type IntervalOfDay struct {
	Interval int    `json:"interval"`
	Time     string `json:"time"`
	EnergyStats
}

// DailyProfile summarises a run by day.
type DailyProfile struct {
	DailyEnergy     []float64       `json:"daily_energy_kwh"`
	DailyStats      EnergyStats     `json:"daily_stats"`
	Intervals       []IntervalOfDay `json:"intervals"`
	IntervalMinutes int             `json:"interval_minutes"`
}

// BuildDailyProfile derives daily energy totals and the average day from the
// power history. Energy per interval is power times interval length. The
// interval length must divide a day.
func BuildDailyProfile(res *Results) (*DailyProfile, error) {
	minutes := res.Config.IntervalMinutes
	if minutes <= 0 || minutesPerDay%minutes != 0 {
		return nil, fmt.Errorf("%w: interval of %d minutes does not divide a day", ErrInvalidConfig, minutes)
	}
	if len(res.PowerHistory) == 0 {
		return nil, ErrNoData
	}
	perDay := minutesPerDay / minutes
	hours := res.Config.IntervalHours()

	energy := make([]float64, len(res.PowerHistory))
	floats.ScaleTo(energy, hours, res.PowerHistory)

	days := (len(energy) + perDay - 1) / perDay
	daily := make([]float64, days)
	for d := 0; d < days; d++ {
		end := min((d+1)*perDay, len(energy))
		daily[d] = floats.Sum(energy[d*perDay : end])
	}

	profile := &DailyProfile{
		DailyEnergy:     daily,
		DailyStats:      statsOf(daily),
		IntervalMinutes: minutes,
	}
	samples := make([]float64, 0, days)
	for pos := 0; pos < perDay; pos++ {
		samples = samples[:0]
		for d := 0; d < days; d++ {
			if i := d*perDay + pos; i < len(energy) {
				samples = append(samples, energy[i])
			}
		}
		if len(samples) == 0 {
			continue
		}
		total := pos * minutes
		profile.Intervals = append(profile.Intervals, IntervalOfDay{
			Interval:    pos,
			Time:        fmt.Sprintf("%02d:%02d", total/60, total%60),
			EnergyStats: statsOf(samples),
		})
	}
	return profile, nil
}

func statsOf(x []float64) EnergyStats {
	return EnergyStats{
		Avg: stat.Mean(x, nil),
		Max: floats.Max(x),
		Min: floats.Min(x),
	}
}

// HistogramBin counts intervals whose power falls below UpperKW.
type HistogramBin struct {
	UpperKW    float64 `json:"max_power_kw"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// BuildPowerHistogram splits [0, theoretical max] into equal bins and counts
// the intervals of the run in each. The last bin also holds the maximum.
func BuildPowerHistogram(res *Results, bins int) ([]HistogramBin, error) {
	if bins <= 0 {
		return nil, fmt.Errorf("histogram needs a positive bin count, got %d", bins)
	}
	if len(res.PowerHistory) == 0 {
		return nil, ErrNoData
	}
	if res.MaxTheoreticalPowerKW <= 0 {
		return nil, fmt.Errorf("%w: theoretical max power is zero", ErrInvalidConfig)
	}
	size := res.MaxTheoreticalPowerKW / float64(bins)
	out := make([]HistogramBin, bins)
	for i := range out {
		out[i].UpperKW = float64(i+1) * size
	}
	for _, p := range res.PowerHistory {
		idx := int(math.Floor(p / size))
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		out[idx].Count++
	}
	n := float64(len(res.PowerHistory))
	for i := range out {
		out[i].Percentage = float64(out[i].Count) / n * 100
	}
	return out, nil
}
