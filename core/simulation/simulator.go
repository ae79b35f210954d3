package simulation

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/kilianp07/chargesim/core/distribution"
	"github.com/kilianp07/chargesim/core/logger"
	"github.com/kilianp07/chargesim/core/model"
)

// Simulator advances a fleet of chargepoints through the configured horizon.
type Simulator struct {
	cfg          Config
	chargepoints []*model.Chargepoint
	powerHistory []float64
	totalEnergy  float64
	sessions     int
	completed    int

	rng       distribution.RandomSource
	log       logger.Logger
	observer  IntervalObserver
	runID     string
	lifecycle *fsm.FSM
}

// Option customises a Simulator.
type Option func(*Simulator)

// WithRandomSource sets the source used for every draw of the run.
func WithRandomSource(rng distribution.RandomSource) Option {
	return func(s *Simulator) { s.rng = rng }
}

// WithSeed seeds a dedicated math/rand source.
func WithSeed(seed int64) Option {
	return func(s *Simulator) { s.rng = rand.New(rand.NewSource(seed)) }
}

// WithRunID overrides the generated run id, so that seeded runs can be
// compared field for field.
func WithRunID(id string) Option {
	return func(s *Simulator) {
		if id != "" {
			s.runID = id
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.log = l
		}
	}
}

// WithObserver registers a callback invoked after each interval.
func WithObserver(o IntervalObserver) Option {
	return func(s *Simulator) { s.observer = o }
}

// New validates cfg and builds an unoccupied fleet.
func New(cfg Config, opts ...Option) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulator{
		cfg:          cfg,
		chargepoints: make([]*model.Chargepoint, cfg.Chargepoints),
		powerHistory: make([]float64, 0, cfg.TotalIntervals()),
		log:          logger.Nop{},
		runID:        uuid.NewString(),
	}
	for i := range s.chargepoints {
		s.chargepoints[i] = model.NewChargepoint(cfg.PowerKW)
	}
	for _, o := range opts {
		o(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s.lifecycle = s.newLifecycle()
	return s, nil
}

// RunID identifies this run in logs, metrics and exports.
func (s *Simulator) RunID() string { return s.runID }

// Config returns the configuration of the run.
func (s *Simulator) Config() Config { return s.cfg }

// Run simulates every interval and returns the results. It may be called
// once per Simulator.
func (s *Simulator) Run() (*Results, error) {
	if !s.lifecycle.Can(eventStart) {
		return nil, fmt.Errorf("%w: state %s", ErrAlreadyRun, s.State())
	}
	if err := s.transition(eventStart); err != nil {
		return nil, err
	}
	res, err := s.run()
	if err != nil {
		if ferr := s.transition(eventFail); ferr != nil {
			s.log.Errorf("run %s: %v", s.runID, ferr)
		}
		return nil, err
	}
	if err := s.transition(eventComplete); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Simulator) run() (*Results, error) {
	total := s.cfg.TotalIntervals()
	s.log.Debugw("simulation start", map[string]any{
		"run_id":       s.runID,
		"chargepoints": s.cfg.Chargepoints,
		"intervals":    total,
	})

	// Interval 0 is the initial state: no charging, no arrivals.
	for idx := 1; idx <= total; idx++ {
		hour := s.cfg.HourOf(idx)

		energy, departed, err := s.chargeStep()
		if err != nil {
			return nil, fmt.Errorf("interval %d: %w", idx, err)
		}
		arrivals, err := s.arrivalStep(hour)
		if err != nil {
			return nil, fmt.Errorf("interval %d: %w", idx, err)
		}

		power := 0.0
		charging := 0
		for _, cp := range s.chargepoints {
			if cp.IsCharging() {
				power += cp.PowerKW
				charging++
			}
		}

		s.totalEnergy += energy
		s.powerHistory = append(s.powerHistory, power)
		if s.observer != nil {
			s.observer(IntervalSnapshot{
				Index:     idx,
				Hour:      hour,
				EnergyKWh: energy,
				PowerKW:   power,
				Charging:  charging,
				Arrivals:  arrivals,
				Departed:  departed,
			})
		}
	}
	return s.results()
}

// chargeStep delivers one interval of energy to every attached vehicle and
// detaches the ones that are done.
func (s *Simulator) chargeStep() (float64, int, error) {
	hours := s.cfg.IntervalHours()
	delivered := 0.0
	departed := 0
	for _, cp := range s.chargepoints {
		if cp.Vehicle == nil {
			continue
		}
		got, err := cp.Vehicle.Charge(cp.PowerKW * hours)
		if err != nil {
			return 0, 0, err
		}
		delivered += got
		if !cp.Vehicle.IsCharging() {
			cp.Vehicle = nil
			departed++
			s.completed++
		}
	}
	return delivered, departed, nil
}

// arrivalStep samples an arrival on every free chargepoint. A sampled demand
// of zero consumes the draws but attaches nothing.
func (s *Simulator) arrivalStep(hour int) (int, error) {
	arrivals := 0
	for _, cp := range s.chargepoints {
		if cp.Vehicle != nil {
			continue
		}
		ok, err := distribution.SampleArrival(hour, s.cfg.IntervalMinutes, s.cfg.ArrivalMultiplier, s.rng)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		demand := distribution.SampleChargingEnergy(s.cfg.ConsumptionKWhPer100KM, s.rng)
		if demand <= 0 {
			continue
		}
		v, err := model.NewVehicle(demand)
		if err != nil {
			return 0, err
		}
		cp.Vehicle = v
		arrivals++
		s.sessions++
	}
	return arrivals, nil
}

func (s *Simulator) results() (*Results, error) {
	theoretical := s.cfg.MaxTheoreticalPowerKW()
	if !(theoretical > 0) || math.IsInf(theoretical, 1) {
		return nil, fmt.Errorf("%w: theoretical max power is not a positive finite value (chargepoints=%d, power_kw=%v)",
			ErrInvalidConfig, s.cfg.Chargepoints, s.cfg.PowerKW)
	}
	maxPower := 0.0
	for _, p := range s.powerHistory {
		if p > maxPower {
			maxPower = p
		}
	}
	history := make([]float64, len(s.powerHistory))
	copy(history, s.powerHistory)

	res := &Results{
		RunID:                 s.runID,
		Config:                s.cfg,
		TotalEnergyKWh:        s.totalEnergy,
		MaxPowerKW:            maxPower,
		MaxTheoreticalPowerKW: theoretical,
		ConcurrencyFactor:     maxPower / theoretical,
		Sessions:              s.sessions,
		CompletedSessions:     s.completed,
		PowerHistory:          history,
	}
	s.log.Debugw("simulation done", map[string]any{
		"run_id":             s.runID,
		"total_energy_kwh":   res.TotalEnergyKWh,
		"max_power_kw":       res.MaxPowerKW,
		"concurrency_factor": res.ConcurrencyFactor,
	})
	return res, nil
}
