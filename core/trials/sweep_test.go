package trials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/chargesim/core/metrics"
)

func TestSweep(t *testing.T) {
	sink := &recordingSink{}
	points, err := Sweep(context.Background(), smallConfig(), SweepConfig{MaxChargepoints: 6, Seed: 5}, sink)
	require.NoError(t, err)
	require.Len(t, points, 6)
	for i, p := range points {
		assert.Equal(t, i+1, p.Chargepoints)
		assert.LessOrEqual(t, p.MaxPowerKW, float64(p.Chargepoints)*smallConfig().PowerKW)
	}
	require.Len(t, sink.runs, 6)
	assert.Equal(t, metrics.ContextSweep, sink.runs[0].Context)

	again, err := Sweep(context.Background(), smallConfig(), SweepConfig{MaxChargepoints: 6, Seed: 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, points, again)
}

func TestSweepRejectsEmptyRange(t *testing.T) {
	_, err := Sweep(context.Background(), smallConfig(), SweepConfig{}, nil)
	assert.Error(t, err)
}
