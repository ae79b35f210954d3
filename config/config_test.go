package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/chargesim/core/simulation"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, simulation.DefaultConfig(), cfg.Simulation)
	assert.Equal(t, 100, cfg.Trials.Trials)
	assert.Equal(t, 30, cfg.Sweep.MaxChargepoints)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Metrics.Sinks)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `simulation:
  chargepoints: 8
  power_kw: 22
  days: 7
  interval_minutes: 30
trials:
  trials: 10
  workers: 2
  seed: 42
metrics:
  sinks:
    - type: "prometheus"
      conf:
        push_url: "http://localhost:9091"
logging:
  level: debug
  format: console
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"chargepoints", cfg.Simulation.Chargepoints, 8},
		{"power_kw", cfg.Simulation.PowerKW, 22.0},
		{"days", cfg.Simulation.Days, 7},
		{"interval_minutes", cfg.Simulation.IntervalMinutes, 30},
		{"consumption default", cfg.Simulation.ConsumptionKWhPer100KM, 18.0},
		{"multiplier default", cfg.Simulation.ArrivalMultiplier, 1.0},
		{"trials", cfg.Trials.Trials, 10},
		{"workers", cfg.Trials.Workers, 2},
		{"seed", cfg.Trials.Seed, int64(42)},
		{"sink type", cfg.Metrics.Sinks[0].Type, "prometheus"},
		{"sink conf", cfg.Metrics.Sinks[0].Conf["push_url"], "http://localhost:9091"},
		{"log level", cfg.Logging.Level, "debug"},
		{"log format", cfg.Logging.Format, "console"},
	}
	for _, c := range checks {
		assert.Equal(t, c.want, c.got, c.name)
	}
}

func TestLoadGeneratedYAML(t *testing.T) {
	doc := map[string]any{
		"simulation": map[string]any{"days": 2, "arrival_multiplier": 0.0},
		"sweep":      map[string]any{"max_chargepoints": 5},
	}
	data, err := yaml.Marshal(doc)
	require.NoError(t, err)

	cfg, err := Load(writeFile(t, "config.yml", string(data)))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Simulation.Days)
	assert.Equal(t, 0.0, cfg.Simulation.ArrivalMultiplier)
	assert.Equal(t, 5, cfg.Sweep.MaxChargepoints)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{"simulation":{"days":2},"trials":{"trials":3}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Simulation.Days)
	assert.Equal(t, 3, cfg.Trials.Trials)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", "simulation:\n  days: 7\n")
	t.Setenv("CHARGESIM_SIMULATION__DAYS", "30")
	t.Setenv("CHARGESIM_SIMULATION__ARRIVAL_MULTIPLIER", "1.5")
	t.Setenv("CHARGESIM_TRIALS__SEED", "9")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Simulation.Days)
	assert.Equal(t, 1.5, cfg.Simulation.ArrivalMultiplier)
	assert.Equal(t, int64(9), cfg.Trials.Seed)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"interval": "simulation:\n  interval_minutes: 61\n",
		"trials":   "trials:\n  trials: 0\n",
		"sweep":    "sweep:\n  max_chargepoints: -1\n",
		"sink":     "metrics:\n  sinks:\n    - conf: {}\n",
		"logging":  "logging:\n  level: loud\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", data))
			assert.Error(t, err)
		})
	}

	_, err := Load(writeFile(t, "config.toml", "x = 1"))
	assert.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestIntervalErrorIsSentinel(t *testing.T) {
	_, err := Load(writeFile(t, "config.yaml", "simulation:\n  interval_minutes: 0\n"))
	assert.ErrorIs(t, err, simulation.ErrInvalidConfig)
}
