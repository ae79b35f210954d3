package metrics

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/chargesim/core/metrics"
	"github.com/kilianp07/chargesim/infra/logger"
)

// intervalBatch bounds the number of points sent per write request.
const intervalBatch = 5000

// InfluxConfig configures the InfluxDB sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	// Start is the timestamp of interval 0 for interval_power points.
	// Zero uses midnight UTC of the day the run was recorded.
	Start time.Time `json:"start"`
}

// InfluxSink writes simulation results to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	start    time.Time
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		start:    cfg.Start,
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRun writes one simulation_run point. Standalone runs also write
// their power history as interval_power points.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	if ev.Results == nil {
		return fmt.Errorf("influx: run event without results")
	}
	r := ev.Results
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("simulation_run").
		AddTag("run_id", r.RunID).
		AddTag("context", ev.Context)
	if ev.BatchID != "" {
		p = p.AddTag("batch_id", ev.BatchID).
			AddTag("trial", strconv.Itoa(ev.Trial))
	}
	p = p.AddField("chargepoints", r.Config.Chargepoints).
		AddField("power_kw", round3(r.Config.PowerKW)).
		AddField("total_energy_kwh", round3(r.TotalEnergyKWh)).
		AddField("max_power_kw", round3(r.MaxPowerKW)).
		AddField("theoretical_max_power_kw", round3(r.MaxTheoreticalPowerKW)).
		AddField("concurrency_factor", round3(r.ConcurrencyFactor)).
		AddField("sessions", r.Sessions).
		AddField("completed_sessions", r.CompletedSessions).
		SetTime(ev.Time)
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		return err
	}
	if ev.Context != coremetrics.ContextRun {
		return nil
	}
	return s.writeIntervals(ev)
}

func (s *InfluxSink) writeIntervals(ev coremetrics.RunEvent) error {
	r := ev.Results
	start := s.start
	if start.IsZero() {
		start = ev.Time.UTC().Truncate(24 * time.Hour)
	}
	step := time.Duration(r.Config.IntervalMinutes) * time.Minute
	batch := make([]*write.Point, 0, intervalBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := s.writeAPI.WritePoint(ctx, batch...)
		batch = batch[:0]
		return err
	}
	for i, kw := range r.PowerHistory {
		idx := i + 1
		batch = append(batch, write.NewPointWithMeasurement("interval_power").
			AddTag("run_id", r.RunID).
			AddField("power_kw", round3(kw)).
			SetTime(start.Add(time.Duration(idx)*step)))
		if len(batch) == intervalBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// RecordTrialSummary writes the batch statistics and one point per
// concurrency factor bucket.
func (s *InfluxSink) RecordTrialSummary(ev coremetrics.TrialSummaryEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := []*write.Point{
		write.NewPointWithMeasurement("trial_summary").
			AddTag("batch_id", ev.BatchID).
			AddField("trials", ev.Trials).
			AddField("mean", round3(ev.Mean)).
			AddField("stddev", round3(ev.StdDev)).
			AddField("min", round3(ev.Min)).
			AddField("max", round3(ev.Max)).
			AddField("elapsed_ms", ev.Elapsed.Milliseconds()).
			SetTime(ev.Time),
	}
	for _, b := range ev.Buckets {
		points = append(points, write.NewPointWithMeasurement("trial_factor_bucket").
			AddTag("batch_id", ev.BatchID).
			AddTag("concurrency_factor", strconv.FormatFloat(b.Factor, 'f', 2, 64)).
			AddField("count", b.Count).
			SetTime(ev.Time))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
