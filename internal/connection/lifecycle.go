package connection

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	"github.com/nickman/redis-ts/types"
)

const (
	eventConnect   = "connect"
	eventConnected = "connected"
	eventLost      = "lost"
	eventRetry     = "retry"
	eventGiveUp    = "give_up"
	eventStop      = "stop"
)

// lifecycle wraps the connection state machine.
type lifecycle struct {
	machine  *fsm.FSM
	onChange func(from, to types.ConnectionState)
}

func newLifecycle(onChange func(from, to types.ConnectionState)) *lifecycle {
	l := &lifecycle{onChange: onChange}

	stopped := types.ConnectionStopped.String()
	connecting := types.ConnectionConnecting.String()
	connected := types.ConnectionConnected.String()
	disconnected := types.ConnectionDisconnected.String()

	l.machine = fsm.NewFSM(
		stopped,
		fsm.Events{
			{Name: eventConnect, Src: []string{stopped}, Dst: connecting},
			{Name: eventConnected, Src: []string{connecting}, Dst: connected},
			{Name: eventLost, Src: []string{connected}, Dst: disconnected},
			{Name: eventRetry, Src: []string{disconnected}, Dst: connecting},
			{Name: eventGiveUp, Src: []string{connecting}, Dst: disconnected},
			{Name: eventStop, Src: []string{connecting, connected, disconnected}, Dst: stopped},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				if l.onChange != nil {
					l.onChange(types.ParseConnectionState(e.Src), types.ParseConnectionState(e.Dst))
				}
			},
		},
	)

	return l
}

// fire triggers event. A transition into the current state is not an error.
func (l *lifecycle) fire(event string) error {
	err := l.machine.Event(context.Background(), event)

	var noTransition fsm.NoTransitionError
	if err != nil && errors.As(err, &noTransition) {
		return nil
	}

	return err
}

// current returns the current connection state.
func (l *lifecycle) current() types.ConnectionState {
	return types.ParseConnectionState(l.machine.Current())
}
