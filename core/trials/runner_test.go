package trials

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/chargesim/core/metrics"
	"github.com/kilianp07/chargesim/core/simulation"
	"github.com/kilianp07/chargesim/internal/eventbus"
)

func smallConfig() simulation.Config {
	cfg := simulation.DefaultConfig()
	cfg.Chargepoints = 5
	cfg.Days = 3
	return cfg
}

type recordingSink struct {
	mu      sync.Mutex
	runs    []metrics.RunEvent
	summary *metrics.TrialSummaryEvent
}

func (s *recordingSink) RecordRun(ev metrics.RunEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, ev)
	return nil
}

func (s *recordingSink) RecordTrialSummary(ev metrics.TrialSummaryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = &ev
	return nil
}

func TestRunnerSeededBatchIsDeterministic(t *testing.T) {
	run := func(workers int) *Summary {
		r, err := NewRunner(smallConfig(), Config{Trials: 20, Workers: workers, Seed: 7})
		require.NoError(t, err)
		sum, err := r.Run(context.Background())
		require.NoError(t, err)
		return sum
	}
	a := run(1)
	b := run(4)
	assert.Equal(t, a.Factors, b.Factors)
	assert.Equal(t, a.Buckets, b.Buckets)
	assert.InDelta(t, a.Mean, b.Mean, 1e-12)
}

func TestRunnerSummary(t *testing.T) {
	sink := &recordingSink{}
	r, err := NewRunner(smallConfig(), Config{Trials: 30, Workers: 3, Seed: 11}, WithSink(sink))
	require.NoError(t, err)

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sum.Factors, 30)

	total := 0
	for i, b := range sum.Buckets {
		total += b.Count
		if i > 0 {
			assert.Greater(t, b.Factor, sum.Buckets[i-1].Factor)
		}
	}
	assert.Equal(t, 30, total)
	assert.LessOrEqual(t, sum.Min, sum.Mean)
	assert.GreaterOrEqual(t, sum.Max, sum.Mean)
	for _, f := range sum.Factors {
		assert.GreaterOrEqual(t, f, 0.0)
		assert.LessOrEqual(t, f, 1.0)
	}

	assert.Len(t, sink.runs, 30)
	for _, ev := range sink.runs {
		assert.Equal(t, metrics.ContextTrial, ev.Context)
		assert.Equal(t, sum.BatchID, ev.BatchID)
	}
	require.NotNil(t, sink.summary)
	assert.Equal(t, 30, sink.summary.Trials)
	assert.Equal(t, sum.Buckets, sink.summary.Buckets)
}

func TestRunnerPublishesProgress(t *testing.T) {
	bus := eventbus.NewTyped[Event](64)
	sub := bus.Subscribe()
	r, err := NewRunner(smallConfig(), Config{Trials: 10, Workers: 2, Seed: 3}, WithBus(bus))
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	require.NoError(t, err)
	bus.Close()

	var seen []Event
	for ev := range sub {
		seen = append(seen, ev)
	}
	require.Len(t, seen, 10)
	assert.Equal(t, 10, seen[len(seen)-1].Done)
	assert.Equal(t, 10, seen[0].Total)
}

func TestNewRunnerRejectsInvalidConfig(t *testing.T) {
	_, err := NewRunner(smallConfig(), Config{Trials: 0})
	assert.Error(t, err)

	bad := smallConfig()
	bad.IntervalMinutes = 61
	_, err = NewRunner(bad, Config{Trials: 1})
	assert.True(t, errors.Is(err, simulation.ErrInvalidConfig))
}

func TestRunnerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, err := NewRunner(smallConfig(), Config{Trials: 50, Workers: 2, Seed: 1})
	require.NoError(t, err)
	_, err = r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunnerFailingTrial(t *testing.T) {
	cfg := smallConfig()
	cfg.Chargepoints = 0
	r, err := NewRunner(cfg, Config{Trials: 4, Workers: 2, Seed: 1})
	require.NoError(t, err)
	_, err = r.Run(context.Background())
	assert.ErrorIs(t, err, simulation.ErrInvalidConfig)
}

func TestTrialSeed(t *testing.T) {
	assert.Equal(t, TrialSeed(42, 3), TrialSeed(42, 3))
	assert.NotEqual(t, TrialSeed(42, 3), TrialSeed(42, 4))
	assert.NotEqual(t, TrialSeed(42, 3), TrialSeed(43, 3))
}

func TestBucketKey(t *testing.T) {
	assert.Equal(t, 45, bucketKey(0.454))
	assert.Equal(t, 46, bucketKey(0.455))
	assert.Equal(t, 100, bucketKey(1))
	assert.Equal(t, 0, bucketKey(0))
}

func TestRunnerTrialRunIDsDeriveFromBatch(t *testing.T) {
	sink := &recordingSink{}
	r, err := NewRunner(smallConfig(), Config{Trials: 3, Workers: 2, Seed: 9}, WithSink(sink))
	require.NoError(t, err)
	sum, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.runs, 3)
	for _, ev := range sink.runs {
		assert.Equal(t, fmt.Sprintf("%s-%d", sum.BatchID, ev.Trial), ev.Results.RunID)
	}
}
