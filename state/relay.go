package state

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/elijahnyp/relay_controller/util"
)

type RelayState uint8

const (
	Off RelayState = iota
	On
)

// String is the wire payload for the state.
func (s RelayState) String() string {
	if s == On {
		return util.PAYLOAD_ON
	}
	return util.PAYLOAD_OFF
}

var ErrUnknownCommand = errors.New("unknown relay command")

// ParseCommand accepts exactly "on" or "off".
func ParseCommand(payload string) (RelayState, error) {
	switch payload {
	case util.PAYLOAD_ON:
		return On, nil
	case util.PAYLOAD_OFF:
		return Off, nil
	}
	return Off, fmt.Errorf("%w: %q", ErrUnknownCommand, payload)
}

type EventKind uint8

const (
	ButtonPressed EventKind = iota
	RemoteCommand
)

type Event struct {
	Kind   EventKind
	Target RelayState // RemoteCommand only
}

// Machine owns the relay state. It is not safe for concurrent use; the
// scheduler goroutine is its only caller.
type Machine struct {
	state     RelayState
	output    Output
	publisher Publisher
	listeners []func(from, to RelayState)
}

func NewMachine(output Output, publisher Publisher) *Machine {
	return &Machine{state: Off, output: output, publisher: publisher}
}

func (m *Machine) State() RelayState {
	return m.state
}

// SetPublisher swaps the publish target, used once the remote link exists.
func (m *Machine) SetPublisher(p Publisher) {
	m.publisher = p
}

func (m *Machine) RegisterTransitionListener(listener func(from, to RelayState)) {
	for _, l := range m.listeners {
		if reflect.ValueOf(l).Pointer() == reflect.ValueOf(listener).Pointer() {
			return
		}
	}
	m.listeners = append(m.listeners, listener)
}

func (m *Machine) HandleEvent(e Event) error {
	target := m.state
	switch e.Kind {
	case ButtonPressed:
		if m.state == On {
			target = Off
		} else {
			target = On
		}
	case RemoteCommand:
		target = e.Target
	default:
		return fmt.Errorf("unknown event kind %d", e.Kind)
	}

	if target == m.state {
		util.Logger.Debug().Msgf("relay already %v", m.state)
		m.Publish()
		return nil
	}

	if err := m.output.SetRelay(target == On); err != nil {
		return fmt.Errorf("driving relay %v: %w", target, err)
	}
	from := m.state
	m.state = target
	util.Logger.Info().Msgf("relay %v -> %v", from, target)
	for _, l := range m.listeners {
		l(from, target)
	}
	m.Publish()
	return nil
}

// Publish sends the current state. Failures are logged only; the heartbeat
// or the next reconnect republishes.
func (m *Machine) Publish() bool {
	if m.publisher == nil {
		return false
	}
	if err := m.publisher.PublishStatus(m.state.String()); err != nil {
		util.Logger.Warn().Err(err).Msg("unable to publish relay state")
		return false
	}
	return true
}
