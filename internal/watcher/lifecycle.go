package watcher

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Lifecycle states of a watch session.
const (
	StateIdle     = "idle"
	StateWatching = "watching"
	StateStopped  = "stopped"
	StateErrored  = "errored"
)

const (
	eventStart = "start"
	eventStop  = "stop"
	eventFail  = "fail"
)

type lifecycleContext struct {
	Root string
}

// lifecycle is the session state machine:
// idle -> watching -> {stopped, errored}, and idle -> errored on startup failure.
type lifecycle struct {
	interpreter *statekit.Interpreter[lifecycleContext]
}

func newLifecycle(root string) (*lifecycle, error) {
	builder := statekit.NewMachine[lifecycleContext]("watch-session").
		WithInitial(statekit.StateID(StateIdle)).
		WithContext(lifecycleContext{Root: root})

	builder.State(StateIdle).
		On(eventStart).Target(StateWatching).
		On(eventFail).Target(StateErrored).
		Done()

	builder.State(StateWatching).
		On(eventStop).Target(StateStopped).
		On(eventFail).Target(StateErrored).
		Done()

	builder.State(StateStopped).Done()
	builder.State(StateErrored).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build session state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &lifecycle{interpreter: interpreter}, nil
}

func (l *lifecycle) send(event string) error {
	before := l.current()
	l.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if l.current() == before {
		return fmt.Errorf("session event %q not allowed in state %q", event, before)
	}
	return nil
}

func (l *lifecycle) current() string {
	return string(l.interpreter.State().Value)
}
