// Package logger provides the zerolog implementation of core/logger.Logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	corelogger "github.com/kilianp07/chargesim/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// Output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Options controls every logger created by New.
type Options struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// DefaultOptions logs at info level, in JSON unless APP_ENV=dev.
func DefaultOptions() Options {
	format := FormatJSON
	if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		format = FormatConsole
	}
	return Options{Level: "info", Format: format}
}

// Validate checks the level and format.
func (o Options) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(o.Level)); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch o.Format {
	case "", FormatJSON, FormatConsole:
		return nil
	}
	return fmt.Errorf("logging.format must be %q or %q, got %q", FormatJSON, FormatConsole, o.Format)
}

var (
	mu      sync.RWMutex
	current = DefaultOptions()
	out     io.Writer = os.Stderr
)

// Configure applies opts to loggers created afterwards.
func Configure(opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	mu.Lock()
	current = opts
	mu.Unlock()
	return nil
}

// SetOutput redirects loggers created afterwards to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	out = w
	mu.Unlock()
}

// New returns a Logger for the given component.
func New(component string) Logger {
	mu.RLock()
	opts, w := current, out
	mu.RUnlock()
	return NewZerologLogger(component, opts, w)
}
