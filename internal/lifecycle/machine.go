// Package lifecycle implements the document state machines as explicit
// transition tables. A transition absent from the table is rejected, which
// both documents and enforces the legal transition set.
package lifecycle

import (
	"fmt"

	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/shared"
)

// State is an enumerated document status.
type State string

// Action is a named workflow transition.
type Action string

// Machine maps (state, action) pairs to successor states.
type Machine struct {
	transitions map[State]map[Action]State
}

// New builds a machine from a transition table.
func New(table map[State]map[Action]State) Machine {
	return Machine{transitions: table}
}

// Next returns the successor state for action taken from current. It fails
// with shared.ErrInvalidState when the table has no such transition.
func (m Machine) Next(current State, action Action) (State, error) {
	if actions, ok := m.transitions[current]; ok {
		if next, ok := actions[action]; ok {
			return next, nil
		}
	}
	return "", fmt.Errorf("lifecycle: %s from %s: %w", action, current, shared.ErrInvalidState)
}

// Can reports whether action is legal from current.
func (m Machine) Can(current State, action Action) bool {
	_, err := m.Next(current, action)
	return err == nil
}
