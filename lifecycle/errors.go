package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateModule is returned when registering a module whose name
	// is already taken within the registry.
	ErrDuplicateModule = errors.New("lifecycle: duplicate module name")

	// ErrSelfDependency is returned when a module declares itself as a
	// dependency.
	ErrSelfDependency = errors.New("lifecycle: module cannot depend on itself")

	// ErrUnknownModule is returned when an operation names a module that
	// is not registered.
	ErrUnknownModule = errors.New("lifecycle: unknown module")

	// ErrStackEmpty is returned by Pop when the module's request stack has
	// no pending entries.
	ErrStackEmpty = errors.New("lifecycle: request stack is empty")

	// ErrNoRecoveryHook is returned by Recover when the module has no
	// recovery check configured.
	ErrNoRecoveryHook = errors.New("lifecycle: module has no recovery hook")
)

// TransitionError reports an invalid FSM transition attempt.
type TransitionError struct {
	Module    string
	Current   State
	Attempted State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("lifecycle: module %q cannot transition from %s to %s",
		e.Module, e.Current, e.Attempted)
}

// CycleError reports a circular dependency discovered while computing the
// initialization order. Cycle holds the module names along the cycle, with
// the repeated module in both the first and last position.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return "lifecycle: circular dependency: " + strings.Join(e.Cycle, " -> ")
}
