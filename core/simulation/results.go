package simulation

// Results is the snapshot produced by a completed run.
type Results struct {
	RunID                 string    `json:"run_id"`
	Config                Config    `json:"config"`
	TotalEnergyKWh        float64   `json:"total_energy_kwh"`
	MaxPowerKW            float64   `json:"max_power_kw"`
	MaxTheoreticalPowerKW float64   `json:"max_theoretical_power_kw"`
	ConcurrencyFactor     float64   `json:"concurrency_factor"`
	Sessions              int       `json:"sessions"`
	CompletedSessions     int       `json:"completed_sessions"`
	PowerHistory          []float64 `json:"power_history"`
}

// Intervals returns the number of simulated intervals.
func (r *Results) Intervals() int { return len(r.PowerHistory) }

// IntervalSnapshot describes the fleet at the end of one interval.
type IntervalSnapshot struct {
	Index     int
	Hour      int
	EnergyKWh float64
	PowerKW   float64
	Charging  int
	Arrivals  int
	Departed  int
}

// IntervalObserver is notified after every simulated interval.
type IntervalObserver func(IntervalSnapshot)
