package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	coremetrics "github.com/kilianp07/chargesim/core/metrics"
	"github.com/kilianp07/chargesim/core/trials"
	"github.com/kilianp07/chargesim/infra/logger"
)

// PromConfig configures the Prometheus sink.
type PromConfig struct {
	// Listen exposes /metrics on this address until the sink is closed.
	Listen string `json:"listen"`
	// PushURL pushes the collected metrics to a Pushgateway on Close.
	PushURL string `json:"push_url"`
	Job     string `json:"job"`
}

// PromSink records simulation results in Prometheus metrics.
type PromSink struct {
	runs        *prometheus.CounterVec
	energy      *prometheus.GaugeVec
	maxPower    *prometheus.GaugeVec
	theoretical *prometheus.GaugeVec
	factor      *prometheus.GaugeVec
	factorDist  *prometheus.HistogramVec
	trialStats  *prometheus.GaugeVec
	progress    prometheus.Gauge

	cfg      PromConfig
	gatherer prometheus.Gatherer
	stop     context.CancelFunc
	served   chan error
	log      logger.Logger
}

// NewPromSink registers the metrics on the default Prometheus registry.
func NewPromSink(cfg PromConfig) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer and
// serves or pushes what gatherer collects. A nil registerer defaults to the
// global Prometheus registry.
func NewPromSinkWithRegistry(cfg PromConfig, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if cfg.Job == "" {
		cfg.Job = "chargesim"
	}
	s := &PromSink{cfg: cfg, gatherer: gatherer, log: logger.New("prom-sink")}

	var err error
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chargesim_runs_total",
		Help: "Number of completed simulation runs",
	}, []string{"context"})); err != nil {
		return nil, err
	}
	if s.energy, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chargesim_total_energy_kwh",
		Help: "Energy delivered by the last run",
	}, []string{"context"})); err != nil {
		return nil, err
	}
	if s.maxPower, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chargesim_max_power_kw",
		Help: "Highest interval power of the last run",
	}, []string{"context"})); err != nil {
		return nil, err
	}
	if s.theoretical, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chargesim_theoretical_max_power_kw",
		Help: "Fleet size times chargepoint rating of the last run",
	}, []string{"context"})); err != nil {
		return nil, err
	}
	if s.factor, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chargesim_concurrency_factor",
		Help: "Concurrency factor of the last run",
	}, []string{"context"})); err != nil {
		return nil, err
	}
	if s.factorDist, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chargesim_concurrency_factor_distribution",
		Help:    "Distribution of concurrency factors over runs",
		Buckets: prometheus.LinearBuckets(0.05, 0.05, 20),
	}, []string{"context"})); err != nil {
		return nil, err
	}
	if s.trialStats, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chargesim_trials_concurrency_factor",
		Help: "Concurrency factor statistics of the last trial batch",
	}, []string{"stat"})); err != nil {
		return nil, err
	}
	if s.progress, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chargesim_trials_completed",
		Help: "Trials completed in the running batch",
	})); err != nil {
		return nil, err
	}

	if cfg.Listen != "" {
		ctx, cancel := context.WithCancel(context.Background())
		s.stop = cancel
		s.served = make(chan error, 1)
		go func() { s.served <- StartPromServer(ctx, cfg.Listen, gatherer) }()
	}
	return s, nil
}

// register adds c to reg, reusing a collector registered earlier under the
// same name.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

// RecordRun updates the gauges with the results of one run.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	if ev.Results == nil {
		return fmt.Errorf("prometheus: run event without results")
	}
	r := ev.Results
	s.runs.WithLabelValues(ev.Context).Inc()
	s.energy.WithLabelValues(ev.Context).Set(r.TotalEnergyKWh)
	s.maxPower.WithLabelValues(ev.Context).Set(r.MaxPowerKW)
	s.theoretical.WithLabelValues(ev.Context).Set(r.MaxTheoreticalPowerKW)
	s.factor.WithLabelValues(ev.Context).Set(r.ConcurrencyFactor)
	s.factorDist.WithLabelValues(ev.Context).Observe(r.ConcurrencyFactor)
	return nil
}

// RecordTrialSummary exposes the statistics of a batch.
func (s *PromSink) RecordTrialSummary(ev coremetrics.TrialSummaryEvent) error {
	s.trialStats.WithLabelValues("mean").Set(ev.Mean)
	s.trialStats.WithLabelValues("stddev").Set(ev.StdDev)
	s.trialStats.WithLabelValues("min").Set(ev.Min)
	s.trialStats.WithLabelValues("max").Set(ev.Max)
	return nil
}

// RecordTrialProgress tracks the number of finished trials.
func (s *PromSink) RecordTrialProgress(ev trials.Event) error {
	s.progress.Set(float64(ev.Done))
	return nil
}

// Close pushes to the Pushgateway when configured and stops the HTTP
// endpoint.
func (s *PromSink) Close() error {
	var errs []error
	if s.cfg.PushURL != "" {
		if err := push.New(s.cfg.PushURL, s.cfg.Job).Gatherer(s.gatherer).Push(); err != nil {
			errs = append(errs, fmt.Errorf("pushgateway: %w", err))
		}
	}
	if s.stop != nil {
		s.stop()
		if err := <-s.served; err != nil {
			errs = append(errs, err)
		}
		s.stop = nil
	}
	return errors.Join(errs...)
}
