package config

import (
	"github.com/kilianp07/chargesim/infra/logger"
)

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `json:"level"`
	// Format is "json" or "console". Empty follows APP_ENV.
	Format string `json:"format"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	def := logger.DefaultOptions()
	if c.Level == "" {
		c.Level = def.Level
	}
	if c.Format == "" {
		c.Format = def.Format
	}
}

// Validate checks the level and format.
func (c LoggingConfig) Validate() error {
	return c.Options().Validate()
}

// Options converts the section for infra/logger.
func (c LoggingConfig) Options() logger.Options {
	return logger.Options{Level: c.Level, Format: c.Format}
}
