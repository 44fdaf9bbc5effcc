package lifecycle

// State is a module's position in the lifecycle FSM.
type State int

const (
	// StateUninitialized - the module was created but never initialized.
	StateUninitialized State = iota

	// StateInitializing - the module's initialize hook is running.
	StateInitializing

	// StateActive - the module is initialized and running.
	StateActive

	// StateSuspended - the module is paused and can be resumed.
	StateSuspended

	// StateDisposing - the module's dispose hook is running.
	StateDisposing

	// StateDisposed - the module has been torn down.
	StateDisposed

	// StateError - a lifecycle hook failed; recovery may be attempted.
	StateError
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateSuspended:
		return "suspended"
	case StateDisposing:
		return "disposing"
	case StateDisposed:
		return "disposed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// transitions is the FSM table. Recovery's error -> uninitialized edge is
// included because an approved recovery rewinds the module before
// re-initializing it.
var transitions = map[State][]State{
	StateUninitialized: {StateInitializing},
	StateInitializing:  {StateActive, StateError},
	StateActive:        {StateSuspended, StateDisposing},
	StateSuspended:     {StateActive, StateDisposing},
	StateError:         {StateDisposing, StateUninitialized},
	StateDisposing:     {StateDisposed},
}

// canTransition reports whether the FSM permits moving from one state to
// another.
func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
