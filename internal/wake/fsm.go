package wake

import (
	"context"
	"errors"

	"github.com/jkaberg/tesla-lametric/internal/vehicle"
	"github.com/looplab/fsm"
	"github.com/sirupsen/logrus"
)

const (
	// EventRequest is fired right before a wake_up request goes out.
	EventRequest = "request_wake"

	// EventObserve* are fired with the state reported by the wake_up response.
	EventObserveAsleep  = "observe_asleep"
	EventObserveWaking  = "observe_waking"
	EventObserveOnline  = "observe_online"
	EventObserveUnknown = "observe_unknown"
)

var (
	stateUnknown = vehicle.StateUnknown.String()
	stateAsleep  = vehicle.StateAsleep.String()
	stateWaking  = vehicle.StateWaking.String()
	stateOnline  = vehicle.StateOnline.String()
)

// stateMachine tracks the vehicle state observed during one Wake call.
// Online is terminal: no event leaves it.
type stateMachine struct {
	*fsm.FSM
}

func newStateMachine(logger *logrus.Logger) *stateMachine {
	pending := []string{stateUnknown, stateAsleep, stateWaking}

	events := fsm.Events{
		{Name: EventRequest, Src: pending, Dst: stateWaking},
		{Name: EventObserveAsleep, Src: pending, Dst: stateAsleep},
		{Name: EventObserveWaking, Src: pending, Dst: stateWaking},
		{Name: EventObserveOnline, Src: pending, Dst: stateOnline},
		{Name: EventObserveUnknown, Src: pending, Dst: stateUnknown},
	}

	callbacks := fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			logger.WithFields(logrus.Fields{
				"event": e.Event,
				"from":  e.Src,
				"to":    e.Dst,
			}).Debug("Vehicle state transition")
		},
	}

	return &stateMachine{FSM: fsm.NewFSM(stateUnknown, events, callbacks)}
}

// fire triggers event and ignores self-transitions, which looplab/fsm
// reports as NoTransitionError.
func (m *stateMachine) fire(ctx context.Context, event string) error {
	err := m.Event(ctx, event)
	var noTransition fsm.NoTransitionError
	if err != nil && !errors.As(err, &noTransition) {
		return err
	}
	return nil
}

// observe records the state reported by the vehicle API.
func (m *stateMachine) observe(ctx context.Context, s vehicle.State) error {
	switch s {
	case vehicle.StateOnline:
		return m.fire(ctx, EventObserveOnline)
	case vehicle.StateAsleep:
		return m.fire(ctx, EventObserveAsleep)
	case vehicle.StateWaking:
		return m.fire(ctx, EventObserveWaking)
	default:
		return m.fire(ctx, EventObserveUnknown)
	}
}

// online reports whether the machine reached its terminal state.
func (m *stateMachine) online() bool {
	return m.Is(stateOnline)
}
