package simulation

import (
	"context"

	"github.com/looplab/fsm"
)

// Simulator lifecycle states.
const (
	StateConstructed = "constructed"
	StateRunning     = "running"
	StateCompleted   = "completed"
	StateFailed      = "failed"
)

const (
	eventStart    = "start"
	eventComplete = "complete"
	eventFail     = "fail"
)

func (s *Simulator) newLifecycle() *fsm.FSM {
	return fsm.NewFSM(
		StateConstructed,
		fsm.Events{
			{Name: eventStart, Src: []string{StateConstructed}, Dst: StateRunning},
			{Name: eventComplete, Src: []string{StateRunning}, Dst: StateCompleted},
			{Name: eventFail, Src: []string{StateRunning}, Dst: StateFailed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				s.log.Debugw("simulation state", map[string]any{
					"run_id": s.runID,
					"from":   e.Src,
					"to":     e.Dst,
				})
			},
		},
	)
}

// State returns the current lifecycle state.
func (s *Simulator) State() string { return s.lifecycle.Current() }

func (s *Simulator) transition(event string) error {
	return s.lifecycle.Event(context.Background(), event)
}
