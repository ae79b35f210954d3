package metrics

import (
	"context"

	"github.com/kilianp07/chargesim/core/trials"
	"github.com/kilianp07/chargesim/internal/eventbus"
)

// TrialProgressRecorder is implemented by sinks tracking batch progress.
type TrialProgressRecorder interface {
	RecordTrialProgress(ev trials.Event) error
}

// StartTrialCollector subscribes to the bus and forwards trial progress to
// rec. It stops when ctx is canceled or the bus is closed. The returned
// channel is closed once the collector has stopped.
func StartTrialCollector(ctx context.Context, bus *eventbus.TypedBus[trials.Event], rec TrialProgressRecorder) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || rec == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				_ = rec.RecordTrialProgress(ev)
			}
		}
	}()
	return done
}
