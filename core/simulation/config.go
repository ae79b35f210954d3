package simulation

import (
	"errors"
	"fmt"
	"math"
)

// MaxIntervalMinutes is the longest interval supported. Arrival probabilities
// are defined per hour and are not blended across hour boundaries.
const MaxIntervalMinutes = 60

// MaxDays bounds the horizon of a single run.
const MaxDays = 100 * 366

const minutesPerDay = 24 * 60

var (
	// ErrInvalidConfig reports parameters the simulation cannot run with.
	ErrInvalidConfig = errors.New("invalid simulation configuration")
	// ErrAlreadyRun is returned when Run is called on a used Simulator.
	ErrAlreadyRun = errors.New("simulation already run")
)

// Config holds the parameters of a single simulation run.
type Config struct {
	Chargepoints           int     `json:"chargepoints"`
	PowerKW                float64 `json:"power_kw"`
	ConsumptionKWhPer100KM float64 `json:"consumption_kwh_per_100km"`
	Days                   int     `json:"days"`
	IntervalMinutes        int     `json:"interval_minutes"`
	ArrivalMultiplier      float64 `json:"arrival_multiplier"`
}

// DefaultConfig returns the reference scenario: 20 chargepoints of 11 kW
// over one year in 15 minute steps.
func DefaultConfig() Config {
	return Config{
		Chargepoints:           20,
		PowerKW:                11.0,
		ConsumptionKWhPer100KM: 18.0,
		Days:                   365,
		IntervalMinutes:        15,
		ArrivalMultiplier:      1.0,
	}
}

// Validate checks the parameters needed to construct a Simulator. A zero
// fleet or zero power passes here and is rejected when results are computed.
func (c Config) Validate() error {
	if c.IntervalMinutes <= 0 {
		return fmt.Errorf("%w: interval_minutes must be positive, got %d", ErrInvalidConfig, c.IntervalMinutes)
	}
	if c.IntervalMinutes > MaxIntervalMinutes {
		return fmt.Errorf("%w: interval_minutes must be <= %d, got %d", ErrInvalidConfig, MaxIntervalMinutes, c.IntervalMinutes)
	}
	if err := finite("power_kw", c.PowerKW); err != nil {
		return err
	}
	if err := finite("consumption_kwh_per_100km", c.ConsumptionKWhPer100KM); err != nil {
		return err
	}
	if err := finite("arrival_multiplier", c.ArrivalMultiplier); err != nil {
		return err
	}
	if c.Chargepoints < 0 {
		return fmt.Errorf("%w: chargepoints must not be negative", ErrInvalidConfig)
	}
	if c.PowerKW < 0 {
		return fmt.Errorf("%w: power_kw must not be negative", ErrInvalidConfig)
	}
	if c.ConsumptionKWhPer100KM < 0 {
		return fmt.Errorf("%w: consumption_kwh_per_100km must not be negative", ErrInvalidConfig)
	}
	if c.Days < 0 {
		return fmt.Errorf("%w: days must not be negative", ErrInvalidConfig)
	}
	if c.Days > MaxDays {
		return fmt.Errorf("%w: days must be <= %d, got %d", ErrInvalidConfig, MaxDays, c.Days)
	}
	if c.ArrivalMultiplier < 0 {
		return fmt.Errorf("%w: arrival_multiplier must not be negative", ErrInvalidConfig)
	}
	return nil
}

func finite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidConfig, name, v)
	}
	return nil
}

// TotalIntervals is ceil(days*1440/interval_minutes).
func (c Config) TotalIntervals() int {
	if c.IntervalMinutes <= 0 {
		return 0
	}
	return (c.Days*minutesPerDay + c.IntervalMinutes - 1) / c.IntervalMinutes
}

// IntervalHours is the interval length in hours.
func (c Config) IntervalHours() float64 {
	return float64(c.IntervalMinutes) / 60
}

// MaxTheoreticalPowerKW is the draw of the whole fleet charging at once.
func (c Config) MaxTheoreticalPowerKW() float64 {
	return float64(c.Chargepoints) * c.PowerKW
}

// HourOf returns the hour of day used for arrivals during interval idx.
// It is the hour containing the end of the interval.
func (c Config) HourOf(idx int) int {
	return (idx * c.IntervalMinutes / 60) % 24
}
