package metrics

import "github.com/kilianp07/chargesim/core/factory"

// Config lists the sinks to build.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}
