// Package app wires configuration, logging and metric sinks around the
// simulation engine for the command line.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/chargesim/config"
	coremetrics "github.com/kilianp07/chargesim/core/metrics"
	"github.com/kilianp07/chargesim/core/simulation"
	"github.com/kilianp07/chargesim/core/trials"
	"github.com/kilianp07/chargesim/infra/logger"
	"github.com/kilianp07/chargesim/infra/metrics"
	_ "github.com/kilianp07/chargesim/infra/mqtt" // registers the mqtt sink
	"github.com/kilianp07/chargesim/internal/eventbus"
)

// Service runs simulations and reports them to the configured sinks.
type Service struct {
	cfg  *config.Config
	sink coremetrics.Sink
	bus  *eventbus.TypedBus[trials.Event]
	log  logger.Logger

	stopCollectors context.CancelFunc
	collectors     []<-chan struct{}
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.Configure(cfg.Logging.Options()); err != nil {
		return nil, err
	}
	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	svc := &Service{
		cfg:  cfg,
		sink: sink,
		bus:  eventbus.NewTyped[trials.Event](64),
		log:  logger.New("service"),
	}
	ctx, cancel := context.WithCancel(context.Background())
	svc.stopCollectors = cancel
	for _, rec := range progressRecorders(sink) {
		svc.collectors = append(svc.collectors, metrics.StartTrialCollector(ctx, svc.bus, rec))
	}
	return svc, nil
}

func progressRecorders(s coremetrics.Sink) []metrics.TrialProgressRecorder {
	if m, ok := s.(*coremetrics.MultiSink); ok {
		var out []metrics.TrialProgressRecorder
		for _, inner := range m.Sinks {
			out = append(out, progressRecorders(inner)...)
		}
		return out
	}
	if rec, ok := s.(metrics.TrialProgressRecorder); ok {
		return []metrics.TrialProgressRecorder{rec}
	}
	return nil
}

// Config returns the effective configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// Bus streams trial progress.
func (s *Service) Bus() *eventbus.TypedBus[trials.Event] { return s.bus }

// RunOnce simulates the configured fleet once. A zero seed draws from the
// clock.
func (s *Service) RunOnce(ctx context.Context, seed int64) (*simulation.Results, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := []simulation.Option{simulation.WithLogger(logger.New("simulation"))}
	if seed != 0 {
		opts = append(opts, simulation.WithSeed(seed))
	}
	sim, err := simulation.New(s.cfg.Simulation, opts...)
	if err != nil {
		return nil, err
	}
	res, err := sim.Run()
	if err != nil {
		return nil, err
	}
	if err := s.sink.RecordRun(coremetrics.RunEvent{
		Results: res,
		Context: coremetrics.ContextRun,
		Time:    time.Now(),
	}); err != nil {
		s.log.Errorf("record run %s: %v", res.RunID, err)
	}
	return res, nil
}

// RunTrials runs the configured batch of independent trials.
func (s *Service) RunTrials(ctx context.Context) (*trials.Summary, error) {
	r, err := trials.NewRunner(s.cfg.Simulation, s.cfg.Trials,
		trials.WithSink(s.sink),
		trials.WithBus(s.bus),
		trials.WithLogger(logger.New("trials")),
	)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx)
}

// Sweep runs one simulation per fleet size.
func (s *Service) Sweep(ctx context.Context) ([]trials.SweepPoint, error) {
	return trials.Sweep(ctx, s.cfg.Simulation, s.cfg.Sweep, s.sink)
}

// Close drains the progress collectors and releases the sinks.
func (s *Service) Close() error {
	s.bus.Close()
	for _, done := range s.collectors {
		<-done
	}
	s.stopCollectors()
	return coremetrics.Close(s.sink)
}
