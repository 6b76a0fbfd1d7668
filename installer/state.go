package installer

import "fmt"

// LifecycleState is the state of one install or uninstall run.
type LifecycleState string

const (
	StateNotStarted           LifecycleState = "NotStarted"
	StateInitializing         LifecycleState = "Initializing"
	StateStaging              LifecycleState = "Staging"
	StateRegisteringShortcuts LifecycleState = "RegisteringShortcuts"
	StatePostInstalling       LifecycleState = "PostInstalling"
	StateCompleted            LifecycleState = "Completed"
	StateFailed               LifecycleState = "Failed"
	StateRollingBack          LifecycleState = "RollingBack"
	StateRolledBack           LifecycleState = "RolledBack"
)

// IsTerminal reports whether no further transition is expected. Completed is
// terminal for an install run; an uninstall request may still leave it.
func (s LifecycleState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateRolledBack:
		return true
	default:
		return false
	}
}

// Transitions only go forward, except Failed -> RollingBack -> RolledBack
// and Completed -> RollingBack for uninstall.
var allowedTransitions = map[LifecycleState][]LifecycleState{
	StateNotStarted:           {StateInitializing},
	StateInitializing:         {StateStaging, StateFailed},
	StateStaging:              {StateRegisteringShortcuts, StateFailed},
	StateRegisteringShortcuts: {StatePostInstalling, StateFailed},
	StatePostInstalling:       {StateCompleted},
	StateCompleted:            {StateRollingBack},
	StateFailed:               {StateRollingBack},
	StateRollingBack:          {StateRolledBack},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to LifecycleState) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// machine tracks the current state and every state visited.
type machine struct {
	state   LifecycleState
	history []LifecycleState
}

func newMachine(start LifecycleState) machine {
	return machine{state: start, history: []LifecycleState{start}}
}

func (m *machine) transition(to LifecycleState) error {
	if !CanTransition(m.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, to)
	}
	m.state = to
	m.history = append(m.history, to)
	return nil
}
