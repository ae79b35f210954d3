// Package config loads the chargesim configuration from a YAML or JSON file
// and CHARGESIM_ environment variables.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/chargesim/core/metrics"
	"github.com/kilianp07/chargesim/core/simulation"
	"github.com/kilianp07/chargesim/core/trials"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore, e.g. CHARGESIM_SIMULATION__DAYS=30.
const EnvPrefix = "CHARGESIM_"

type Config struct {
	Simulation simulation.Config  `json:"simulation"`
	Trials     trials.Config      `json:"trials"`
	Sweep      trials.SweepConfig `json:"sweep"`
	Metrics    metrics.Config     `json:"metrics"`
	Logging    LoggingConfig      `json:"logging"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	cfg := Config{
		Simulation: simulation.DefaultConfig(),
		Trials:     trials.DefaultConfig(),
		Sweep:      trials.DefaultSweepConfig(),
	}
	cfg.Logging.SetDefaults()
	return cfg
}

// Load reads path on top of the defaults, then applies environment
// overrides. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Logging.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return err
	}
	if c.Trials.Trials <= 0 {
		return fmt.Errorf("trials.trials must be positive, got %d", c.Trials.Trials)
	}
	if c.Trials.Workers < 0 {
		return fmt.Errorf("trials.workers must not be negative, got %d", c.Trials.Workers)
	}
	if c.Sweep.MaxChargepoints <= 0 {
		return fmt.Errorf("sweep.max_chargepoints must be positive, got %d", c.Sweep.MaxChargepoints)
	}
	for i, s := range c.Metrics.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics.sinks[%d]: type is required", i)
		}
	}
	return c.Logging.Validate()
}
