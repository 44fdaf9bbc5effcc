package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/casualjim/switchboard/events"
	"github.com/casualjim/switchboard/pkg/syncx"
	"github.com/fogfish/opts"
)

// Reserved channel segments owned by this package.
const (
	// ChannelModuleActivated carries the module name whenever the registry
	// activates a module. Not retained.
	ChannelModuleActivated = "module_manager/module_activated"

	// ChannelRouterPush is emitted after a request is pushed onto a
	// module's stack. Not retained.
	ChannelRouterPush = "router/push"

	// ChannelRouterPop is emitted after a stack entry is resolved, whether
	// by Pop or by ClearStack. Not retained.
	ChannelRouterPop = "router/pop"
)

// StateChannel returns the retained channel carrying state changes for the
// named module, using sep as the segment separator.
func StateChannel(sep, name string) string {
	return strings.Join([]string{"module", name, "state_changed"}, sep)
}

// Hook is a user-supplied lifecycle callback.
type Hook func(ctx context.Context) error

// StackNotification is the payload of ChannelRouterPush and
// ChannelRouterPop events.
type StackNotification struct {
	Module string `json:"module"`
	Depth  int    `json:"depth"`
}

type pendingRequest struct {
	payload  any
	response *Response
}

// Module is an independently lifecycled application component. Transitions
// are serialized per module by a single-permit semaphore; distinct modules
// never block each other.
type Module struct {
	name string

	mu      sync.RWMutex
	state   State
	lastErr error
	deps    []*Module

	guard *syncx.Semaphore

	stackMu sync.Mutex
	stack   []*pendingRequest

	bus *events.Bus
	log *slog.Logger

	onInitialize Hook
	onSuspend    Hook
	onResume     Hook
	onDispose    Hook
	onRecover    Hook
	onActivate   Hook
	build        func() any
}

// WithDependencies declares the modules that must be active before this
// one initializes.
func WithDependencies(deps ...*Module) opts.Option[Module] {
	return opts.Type[Module](func(m *Module) error {
		m.deps = append(m.deps, deps...)
		return nil
	})
}

// WithInitialize sets the hook run during the initialize transition.
func WithInitialize(hook Hook) opts.Option[Module] {
	return opts.Type[Module](func(m *Module) error {
		m.onInitialize = hook
		return nil
	})
}

// WithSuspend sets the hook run during the suspend transition.
func WithSuspend(hook Hook) opts.Option[Module] {
	return opts.Type[Module](func(m *Module) error {
		m.onSuspend = hook
		return nil
	})
}

// WithResume sets the hook run during the resume transition.
func WithResume(hook Hook) opts.Option[Module] {
	return opts.Type[Module](func(m *Module) error {
		m.onResume = hook
		return nil
	})
}

// WithDispose sets the hook run during the dispose transition.
func WithDispose(hook Hook) opts.Option[Module] {
	return opts.Type[Module](func(m *Module) error {
		m.onDispose = hook
		return nil
	})
}

// WithRecover sets the recovery check consulted by Recover. Returning nil
// approves the recovery; returning an error declines it and leaves the
// module in the error state.
func WithRecover(hook Hook) opts.Option[Module] {
	return opts.Type[Module](func(m *Module) error {
		m.onRecover = hook
		return nil
	})
}

// WithActivate sets the hook notified when the registry makes this module
// current.
func WithActivate(hook Hook) opts.Option[Module] {
	return opts.Type[Module](func(m *Module) error {
		m.onActivate = hook
		return nil
	})
}

// WithBuild sets the rendering hook invoked by an external shell whenever
// the module must produce visual output. The orchestrator never calls it.
func WithBuild(fn func() any) opts.Option[Module] {
	return opts.Type[Module](func(m *Module) error {
		m.build = fn
		return nil
	})
}

// NewModule creates a module in the uninitialized state.
func NewModule(name string, options ...opts.Option[Module]) *Module {
	if name == "" {
		panic("lifecycle: module name must not be empty")
	}
	m := &Module{
		name:  name,
		state: StateUninitialized,
		guard: syncx.NewSemaphore(1),
		log:   slog.Default(),
	}
	if err := opts.Apply(m, options); err != nil {
		panic(err)
	}
	return m
}

// Name returns the module's unique name.
func (m *Module) Name() string { return m.name }

// State returns the module's current lifecycle state.
func (m *Module) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// LastError returns the failure that moved the module into the error
// state, or nil.
func (m *Module) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Dependencies returns a copy of the module's dependency list.
func (m *Module) Dependencies() []*Module {
	m.mu.RLock()
	defer m.mu.RUnlock()
	deps := make([]*Module, len(m.deps))
	copy(deps, m.deps)
	return deps
}

// AddDependency appends a dependency. Dependencies may be added
// incrementally; cycles are only detectable (and detected) at
// initialization time.
func (m *Module) AddDependency(dep *Module) error {
	if dep == m {
		return fmt.Errorf("module %q: %w", m.name, ErrSelfDependency)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deps = append(m.deps, dep)
	return nil
}

// Build invokes the module's rendering hook, if any. It is exposed for
// the out-of-scope shell; the orchestrator itself never renders.
func (m *Module) Build() any {
	if m.build == nil {
		return nil
	}
	return m.build()
}

// bind attaches the bus and logger the module broadcasts through. Called
// by the registry at registration time.
func (m *Module) bind(bus *events.Bus, log *slog.Logger) {
	m.bus = bus
	if log != nil {
		m.log = log
	}
}

// setState mutates the FSM state and broadcasts it as a retained event so
// late subscribers observe the current state without racing transitions.
func (m *Module) setState(state State, cause error) {
	m.mu.Lock()
	m.state = state
	m.lastErr = cause
	m.mu.Unlock()

	m.log.Debug("module state changed",
		slog.String("module", m.name),
		slog.String("state", state.String()),
	)
	if m.bus == nil {
		return
	}
	channel := StateChannel(m.bus.Separator(), m.name)
	if err := m.bus.Emit(channel, state.String(), true); err != nil {
		m.log.Warn("state broadcast failed", slog.String("module", m.name), slog.String("channel", channel))
	}
}

// ensure validates an FSM edge from the current state.
func (m *Module) ensure(to State) error {
	cur := m.State()
	if !canTransition(cur, to) {
		return &TransitionError{Module: m.name, Current: cur, Attempted: to}
	}
	return nil
}

// Initialize drives the module from uninitialized to active. A failing
// initialize hook moves the module to the error state and the failure is
// returned to the caller.
func (m *Module) Initialize(ctx context.Context) error {
	if err := m.guard.Acquire(ctx); err != nil {
		return err
	}
	defer m.guard.Release()
	return m.initializeLocked(ctx)
}

func (m *Module) initializeLocked(ctx context.Context) error {
	if err := m.ensure(StateInitializing); err != nil {
		return err
	}
	m.setState(StateInitializing, nil)

	if m.onInitialize != nil {
		if err := m.onInitialize(ctx); err != nil {
			m.setState(StateError, err)
			return fmt.Errorf("initialize module %q: %w", m.name, err)
		}
	}
	m.setState(StateActive, nil)
	return nil
}

// Suspend pauses an active module.
func (m *Module) Suspend(ctx context.Context) error {
	if err := m.guard.Acquire(ctx); err != nil {
		return err
	}
	defer m.guard.Release()

	if err := m.ensure(StateSuspended); err != nil {
		return err
	}
	if m.onSuspend != nil {
		if err := m.onSuspend(ctx); err != nil {
			m.setState(StateError, err)
			return fmt.Errorf("suspend module %q: %w", m.name, err)
		}
	}
	m.setState(StateSuspended, nil)
	return nil
}

// Resume reactivates a suspended module.
func (m *Module) Resume(ctx context.Context) error {
	if err := m.guard.Acquire(ctx); err != nil {
		return err
	}
	defer m.guard.Release()
	return m.resumeLocked(ctx)
}

func (m *Module) resumeLocked(ctx context.Context) error {
	cur := m.State()
	if cur != StateSuspended {
		return &TransitionError{Module: m.name, Current: cur, Attempted: StateActive}
	}
	if m.onResume != nil {
		if err := m.onResume(ctx); err != nil {
			m.setState(StateError, err)
			return fmt.Errorf("resume module %q: %w", m.name, err)
		}
	}
	m.setState(StateActive, nil)
	return nil
}

// Dispose tears the module down. Disposing an already disposing or
// disposed module is a no-op; disposing from any state other than active,
// suspended, or error is a state error. Pending stack requests are
// force-resolved before the dispose hook runs. A failing dispose hook
// still leaves the module disposed; the failure is recorded and returned.
func (m *Module) Dispose(ctx context.Context) error {
	if err := m.guard.Acquire(ctx); err != nil {
		return err
	}
	defer m.guard.Release()

	switch m.State() {
	case StateDisposing, StateDisposed:
		return nil
	}
	if err := m.ensure(StateDisposing); err != nil {
		return err
	}
	m.setState(StateDisposing, nil)
	m.ClearStack()

	var hookErr error
	if m.onDispose != nil {
		hookErr = m.onDispose(ctx)
	}
	m.setState(StateDisposed, hookErr)
	if hookErr != nil {
		return fmt.Errorf("dispose module %q: %w", m.name, hookErr)
	}
	return nil
}

// Recover attempts to bring a module out of the error state. The recovery
// check must approve by returning nil; the module is then rewound to
// uninitialized and immediately re-initialized. A declined or failing
// recovery leaves the module in the error state and is never retried
// automatically.
func (m *Module) Recover(ctx context.Context) error {
	if err := m.guard.Acquire(ctx); err != nil {
		return err
	}
	defer m.guard.Release()
	return m.recoverLocked(ctx)
}

func (m *Module) recoverLocked(ctx context.Context) error {
	cur := m.State()
	if cur != StateError {
		return &TransitionError{Module: m.name, Current: cur, Attempted: StateUninitialized}
	}
	if m.onRecover == nil {
		return fmt.Errorf("recover module %q: %w", m.name, ErrNoRecoveryHook)
	}
	if err := m.onRecover(ctx); err != nil {
		return fmt.Errorf("recover module %q: %w", m.name, err)
	}
	m.setState(StateUninitialized, nil)
	return m.initializeLocked(ctx)
}

// Push appends a pending request to the module's stack and returns the
// handle that its eventual response resolves. Observers are notified on
// the router/push channel.
func (m *Module) Push(payload any) *Response {
	resp := newResponse()

	m.stackMu.Lock()
	m.stack = append(m.stack, &pendingRequest{payload: payload, response: resp})
	depth := len(m.stack)
	m.stackMu.Unlock()

	m.notifyStack(ChannelRouterPush, depth)
	return resp
}

// Pop removes the most recently pushed request and resolves its handle
// with value.
func (m *Module) Pop(value any) error {
	m.stackMu.Lock()
	n := len(m.stack)
	if n == 0 {
		m.stackMu.Unlock()
		return fmt.Errorf("module %q: %w", m.name, ErrStackEmpty)
	}
	entry := m.stack[n-1]
	m.stack = m.stack[:n-1]
	depth := n - 1
	m.stackMu.Unlock()

	entry.response.complete(value)
	m.notifyStack(ChannelRouterPop, depth)
	return nil
}

// ClearStack force-resolves every pending request innermost-first with no
// value, emitting one router/pop notification per resolved entry.
func (m *Module) ClearStack() {
	m.stackMu.Lock()
	pending := m.stack
	m.stack = nil
	m.stackMu.Unlock()

	for i := len(pending) - 1; i >= 0; i-- {
		pending[i].response.complete(nil)
		m.notifyStack(ChannelRouterPop, i)
	}
}

// StackDepth returns the number of pending requests.
func (m *Module) StackDepth() int {
	m.stackMu.Lock()
	defer m.stackMu.Unlock()
	return len(m.stack)
}

func (m *Module) notifyStack(channel string, depth int) {
	if m.bus == nil {
		return
	}
	if m.bus.Separator() != events.DefaultSeparator {
		channel = strings.ReplaceAll(channel, events.DefaultSeparator, m.bus.Separator())
	}
	payload := StackNotification{Module: m.name, Depth: depth}
	if err := m.bus.Emit(channel, payload, false); err != nil {
		m.log.Warn("stack notification failed", slog.String("module", m.name), slog.String("channel", channel))
	}
}
