package metrics

import (
	"time"

	"github.com/kilianp07/chargesim/core/simulation"
)

// Run contexts attached to a RunEvent.
const (
	ContextRun   = "run"
	ContextTrial = "trial"
	ContextSweep = "sweep"
)

// RunEvent carries the results of one simulation run.
type RunEvent struct {
	Results *simulation.Results
	// Context tells whether the run was standalone, part of a trial batch
	// or of a fleet size sweep.
	Context string
	BatchID string
	Trial   int
	Time    time.Time
}

// Sink records simulation runs.
type Sink interface {
	RecordRun(ev RunEvent) error
}

// FactorBucket counts trials whose concurrency factor rounds to Factor
// (two decimals).
type FactorBucket struct {
	Factor float64 `json:"concurrency_factor"`
	Count  int     `json:"count"`
}

// TrialSummaryEvent describes a completed batch of trials.
type TrialSummaryEvent struct {
	BatchID string            `json:"batch_id"`
	Config  simulation.Config `json:"config"`
	Trials  int               `json:"trials"`
	Mean    float64           `json:"mean"`
	StdDev  float64           `json:"stddev"`
	Min     float64           `json:"min"`
	Max     float64           `json:"max"`
	Buckets []FactorBucket    `json:"buckets"`
	Elapsed time.Duration     `json:"elapsed_ns"`
	Time    time.Time         `json:"time"`
}

// TrialSummaryRecorder is implemented by sinks able to record batch summaries.
type TrialSummaryRecorder interface {
	RecordTrialSummary(ev TrialSummaryEvent) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error                   { return nil }
func (NopSink) RecordTrialSummary(TrialSummaryEvent) error { return nil }
