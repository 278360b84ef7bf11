package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/shared"
)

func TestMachineNext(t *testing.T) {
	m := New(map[State]map[Action]State{
		"PENDING":  {"approve": "APPROVED", "reject": "REJECTED"},
		"APPROVED": {"process": "PROCESSED"},
	})

	next, err := m.Next("PENDING", "approve")
	require.NoError(t, err)
	require.Equal(t, State("APPROVED"), next)

	next, err = m.Next("APPROVED", "process")
	require.NoError(t, err)
	require.Equal(t, State("PROCESSED"), next)
}

func TestMachineRejectsUnknownTransitions(t *testing.T) {
	m := New(map[State]map[Action]State{
		"PENDING": {"approve": "APPROVED"},
	})

	_, err := m.Next("PROCESSED", "approve")
	require.Error(t, err)
	require.True(t, errors.Is(err, shared.ErrInvalidState))

	_, err = m.Next("PENDING", "process")
	require.True(t, errors.Is(err, shared.ErrInvalidState))

	require.False(t, m.Can("PROCESSED", "approve"))
	require.True(t, m.Can("PENDING", "approve"))
}
