package trials

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/chargesim/core/logger"
	"github.com/kilianp07/chargesim/core/metrics"
	"github.com/kilianp07/chargesim/core/simulation"
	"github.com/kilianp07/chargesim/internal/eventbus"
)

// Config controls a batch of trials.
type Config struct {
	Trials  int `json:"trials"`
	Workers int `json:"workers"`
	// Seed makes the batch reproducible. Zero seeds from the clock.
	Seed int64 `json:"seed"`
}

// DefaultConfig runs 100 trials on every CPU.
func DefaultConfig() Config {
	return Config{Trials: 100, Workers: runtime.NumCPU()}
}

// Event reports the completion of one trial.
type Event struct {
	BatchID           string
	Trial             int
	RunID             string
	ConcurrencyFactor float64
	Done              int
	Total             int
}

// Summary aggregates a batch.
type Summary struct {
	BatchID string
	Config  simulation.Config
	Seed    int64
	// Factors holds the concurrency factor of each trial, by trial index.
	Factors []float64
	Buckets []metrics.FactorBucket
	Mean    float64
	StdDev  float64
	Min     float64
	Max     float64
	Elapsed time.Duration
}

// Event converts the summary for metric sinks.
func (s *Summary) Event() metrics.TrialSummaryEvent {
	return metrics.TrialSummaryEvent{
		BatchID: s.BatchID,
		Config:  s.Config,
		Trials:  len(s.Factors),
		Mean:    s.Mean,
		StdDev:  s.StdDev,
		Min:     s.Min,
		Max:     s.Max,
		Buckets: s.Buckets,
		Elapsed: s.Elapsed,
		Time:    time.Now(),
	}
}

// Runner executes batches of trials.
type Runner struct {
	sim  simulation.Config
	cfg  Config
	sink metrics.Sink
	bus  *eventbus.TypedBus[Event]
	log  logger.Logger
}

// Option customises a Runner.
type Option func(*Runner)

// WithSink records every trial run and the batch summary.
func WithSink(s metrics.Sink) Option {
	return func(r *Runner) {
		if s != nil {
			r.sink = s
		}
	}
}

// WithBus publishes an Event after each trial.
func WithBus(b *eventbus.TypedBus[Event]) Option {
	return func(r *Runner) { r.bus = b }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRunner validates both configurations.
func NewRunner(sim simulation.Config, cfg Config, opts ...Option) (*Runner, error) {
	if err := sim.Validate(); err != nil {
		return nil, err
	}
	if cfg.Trials <= 0 {
		return nil, fmt.Errorf("trials must be positive, got %d", cfg.Trials)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	r := &Runner{sim: sim, cfg: cfg, sink: metrics.NopSink{}, log: logger.Nop{}}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Run executes the batch. The first failing trial cancels the others.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	master := r.cfg.Seed
	if master == 0 {
		master = start.UnixNano()
	}
	batchID := uuid.NewString()
	r.log.Infof("batch %s: %d trials on %d workers", batchID, r.cfg.Trials, r.cfg.Workers)

	factors := make([]float64, r.cfg.Trials)
	counts := make(map[int]int)
	done := 0
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i := 0; i < r.cfg.Trials; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sim, err := simulation.New(r.sim,
				simulation.WithSeed(TrialSeed(master, i)),
				simulation.WithRunID(fmt.Sprintf("%s-%d", batchID, i)))
			if err != nil {
				return err
			}
			res, err := sim.Run()
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			if err := r.sink.RecordRun(metrics.RunEvent{
				Results: res,
				Context: metrics.ContextTrial,
				BatchID: batchID,
				Trial:   i,
				Time:    time.Now(),
			}); err != nil {
				r.log.Warnf("record trial %d: %v", i, err)
			}
			factors[i] = res.ConcurrencyFactor

			mu.Lock()
			counts[bucketKey(res.ConcurrencyFactor)]++
			done++
			ev := Event{
				BatchID:           batchID,
				Trial:             i,
				RunID:             res.RunID,
				ConcurrencyFactor: res.ConcurrencyFactor,
				Done:              done,
				Total:             r.cfg.Trials,
			}
			mu.Unlock()
			r.bus.Publish(ev)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sum := &Summary{
		BatchID: batchID,
		Config:  r.sim,
		Seed:    master,
		Factors: factors,
		Buckets: buckets(counts),
		Mean:    stat.Mean(factors, nil),
		Min:     floats.Min(factors),
		Max:     floats.Max(factors),
		Elapsed: time.Since(start),
	}
	if len(factors) > 1 {
		sum.StdDev = stat.StdDev(factors, nil)
	}
	if rec, ok := r.sink.(metrics.TrialSummaryRecorder); ok {
		if err := rec.RecordTrialSummary(sum.Event()); err != nil {
			r.log.Warnf("record batch %s: %v", batchID, err)
		}
	}
	r.log.Infof("batch %s done in %s: mean concurrency factor %.3f", batchID, sum.Elapsed, sum.Mean)
	return sum, nil
}

// bucketKey rounds a concurrency factor to two decimals, as an integer.
func bucketKey(cf float64) int {
	return int(math.Round(cf * 100))
}

func buckets(counts map[int]int) []metrics.FactorBucket {
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]metrics.FactorBucket, len(keys))
	for i, k := range keys {
		out[i] = metrics.FactorBucket{Factor: float64(k) / 100, Count: counts[k]}
	}
	return out
}
