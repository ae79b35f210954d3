package trials

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/chargesim/core/metrics"
	"github.com/kilianp07/chargesim/core/simulation"
)

// SweepConfig bounds a fleet size sweep.
type SweepConfig struct {
	MaxChargepoints int   `json:"max_chargepoints"`
	Seed            int64 `json:"seed"`
}

// DefaultSweepConfig sweeps fleets of 1 to 30 chargepoints.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{MaxChargepoints: 30}
}

// SweepPoint is the outcome of one fleet size.
type SweepPoint struct {
	Chargepoints      int     `json:"chargepoints"`
	MaxPowerKW        float64 `json:"max_power_kw"`
	ConcurrencyFactor float64 `json:"concurrency_factor"`
}

// Sweep runs one simulation per fleet size from 1 to cfg.MaxChargepoints,
// every other parameter taken from base. Runs are recorded to sink with
// ContextSweep.
func Sweep(ctx context.Context, base simulation.Config, cfg SweepConfig, sink metrics.Sink) ([]SweepPoint, error) {
	if cfg.MaxChargepoints <= 0 {
		return nil, fmt.Errorf("max_chargepoints must be positive, got %d", cfg.MaxChargepoints)
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	out := make([]SweepPoint, 0, cfg.MaxChargepoints)
	for n := 1; n <= cfg.MaxChargepoints; n++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		sc := base
		sc.Chargepoints = n
		var opts []simulation.Option
		if cfg.Seed != 0 {
			opts = append(opts, simulation.WithSeed(TrialSeed(cfg.Seed, n)))
		}
		sim, err := simulation.New(sc, opts...)
		if err != nil {
			return out, err
		}
		res, err := sim.Run()
		if err != nil {
			return out, fmt.Errorf("fleet of %d: %w", n, err)
		}
		if err := sink.RecordRun(metrics.RunEvent{
			Results: res,
			Context: metrics.ContextSweep,
			Trial:   n,
			Time:    time.Now(),
		}); err != nil {
			return out, err
		}
		out = append(out, SweepPoint{
			Chargepoints:      n,
			MaxPowerKW:        res.MaxPowerKW,
			ConcurrencyFactor: res.ConcurrencyFactor,
		})
	}
	return out, nil
}
