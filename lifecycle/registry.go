package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/casualjim/switchboard/events"
	"github.com/casualjim/switchboard/pkg/slogx"
	"github.com/fogfish/opts"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Registry owns the set of modules, the currently active module, and the
// default (root) module, and drives dependency-ordered startup.
type Registry struct {
	bus *events.Bus
	log *slog.Logger

	mu      sync.RWMutex
	modules *orderedmap.OrderedMap[string, *Module]
	current *Module
	root    *Module
}

// WithRegistryLogger configures the logger used for orchestration events.
func WithRegistryLogger(log *slog.Logger) opts.Option[Registry] {
	return opts.Type[Registry](func(r *Registry) error {
		if log == nil {
			return fmt.Errorf("lifecycle: logger must not be nil")
		}
		r.log = log
		return nil
	})
}

// NewRegistry creates an empty registry broadcasting over bus.
func NewRegistry(bus *events.Bus, options ...opts.Option[Registry]) *Registry {
	r := &Registry{
		bus:     bus,
		log:     slog.Default(),
		modules: orderedmap.New[string, *Module](),
	}
	if err := opts.Apply(r, options); err != nil {
		panic(err)
	}
	r.log = r.log.With(slogx.LoggerName("lifecycle"))
	return r
}

// Register adds a module. Duplicate names and direct self-dependencies
// are rejected; transitive cycles are only detected by Initialize, since
// dependencies may still be added incrementally after registration.
func (r *Registry) Register(m *Module) error {
	for _, dep := range m.Dependencies() {
		if dep == m {
			return fmt.Errorf("module %q: %w", m.name, ErrSelfDependency)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.modules.Get(m.name); exists {
		return fmt.Errorf("module %q: %w", m.name, ErrDuplicateModule)
	}
	m.bind(r.bus, r.log)
	r.modules.Set(m.name, m)
	if r.root == nil {
		r.root = m
	}
	return nil
}

// Unregister removes a module from the registry. The module itself is not
// disposed.
func (r *Registry) Unregister(m *Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.modules.Get(m.name); !exists {
		return fmt.Errorf("module %q: %w", m.name, ErrUnknownModule)
	}
	r.modules.Delete(m.name)
	if r.current == m {
		r.current = nil
	}
	if r.root == m {
		r.root = nil
	}
	return nil
}

// Get returns the registered module with the given name.
func (r *Registry) Get(name string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.modules.Get(name)
}

// Current returns the module most recently activated, if any.
func (r *Registry) Current() *Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Root returns the default module: the first one registered, unless
// overridden with SetRoot.
func (r *Registry) Root() *Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.root
}

// SetRoot overrides the default module.
func (r *Registry) SetRoot(m *Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.root = m
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.modules.Len()
}

// Initialize computes a dependency-respecting order over all registered
// modules and drives each through initialize sequentially, so a dependency
// is fully active before its dependents run. The root's dependency closure
// comes first; registered modules outside it follow in registration order,
// each behind its own dependencies. A circular dependency fails before any
// module is touched, naming the cycle. A module whose initialize hook fails
// stops the sequence and the failure propagates to the caller.
func (r *Registry) Initialize(ctx context.Context, root *Module) error {
	if root == nil {
		return fmt.Errorf("lifecycle: initialize requires a root module")
	}

	r.mu.RLock()
	rest := make([]*Module, 0, r.modules.Len())
	for pair := r.modules.Oldest(); pair != nil; pair = pair.Next() {
		rest = append(rest, pair.Value)
	}
	r.mu.RUnlock()

	order, err := initOrder(root, rest)
	if err != nil {
		return err
	}

	for _, m := range order {
		if m.State() == StateActive {
			continue
		}
		r.log.Debug("initializing module", slog.String("module", m.name))
		if err := m.Initialize(ctx); err != nil {
			return err
		}
	}
	return nil
}

// initOrder walks the dependency graph depth-first with an explicit
// on-path set, seeding with root and then every module in rest. Revisiting
// a module that is still on the current path is a circular dependency.
func initOrder(root *Module, rest []*Module) ([]*Module, error) {
	var order []*Module
	done := make(map[*Module]bool)
	onPath := make(map[*Module]bool)
	var path []string

	var visit func(m *Module) error
	visit = func(m *Module) error {
		if done[m] {
			return nil
		}
		if onPath[m] {
			cycle := append(cycleFrom(path, m.name), m.name)
			return &CycleError{Cycle: cycle}
		}
		onPath[m] = true
		path = append(path, m.name)

		for _, dep := range m.Dependencies() {
			if err := visit(dep); err != nil {
				return err
			}
		}

		onPath[m] = false
		path = path[:len(path)-1]
		done[m] = true
		order = append(order, m)
		return nil
	}

	if err := visit(root); err != nil {
		return nil, err
	}
	for _, m := range rest {
		if err := visit(m); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// cycleFrom trims the path to the suffix starting at the first occurrence
// of name, so the reported cycle begins and ends with the same module.
func cycleFrom(path []string, name string) []string {
	for i, n := range path {
		if n == name {
			return append([]string(nil), path[i:]...)
		}
	}
	return append([]string(nil), path...)
}

// ActivateModule brings m to the active state — initializing, resuming, or
// recovering as its current state demands — then marks it current,
// notifies it, and broadcasts module_manager/module_activated with the
// module name as payload.
func (r *Registry) ActivateModule(ctx context.Context, m *Module) error {
	switch m.State() {
	case StateUninitialized:
		if err := m.Initialize(ctx); err != nil {
			return err
		}
	case StateSuspended:
		if err := m.Resume(ctx); err != nil {
			return err
		}
	case StateError:
		if err := m.Recover(ctx); err != nil {
			return err
		}
	case StateActive:
		// Already active; just make it current.
	default:
		return &TransitionError{Module: m.name, Current: m.State(), Attempted: StateActive}
	}

	r.mu.Lock()
	r.current = m
	r.mu.Unlock()

	if m.onActivate != nil {
		if err := m.onActivate(ctx); err != nil {
			r.log.Warn("activation hook failed", slog.String("module", m.name), slogx.Error(err))
		}
	}

	if r.bus != nil {
		channel := r.channel(ChannelModuleActivated)
		if err := r.bus.Emit(channel, m.name, false); err != nil {
			r.log.Warn("activation broadcast failed", slog.String("module", m.name), slogx.Error(err))
		}
	}
	return nil
}

// SuspendModule suspends the named module.
func (r *Registry) SuspendModule(ctx context.Context, name string) error {
	m, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("module %q: %w", name, ErrUnknownModule)
	}
	return m.Suspend(ctx)
}

// DisposeAll disposes every registered module. Failures are isolated per
// module: every module gets its dispose attempt, and the collected errors
// are returned joined. Modules never initialized are skipped.
func (r *Registry) DisposeAll(ctx context.Context) error {
	r.mu.RLock()
	modules := make([]*Module, 0, r.modules.Len())
	for pair := r.modules.Oldest(); pair != nil; pair = pair.Next() {
		modules = append(modules, pair.Value)
	}
	r.mu.RUnlock()

	var errs []error
	for _, m := range modules {
		if m.State() == StateUninitialized {
			continue
		}
		if err := m.Dispose(ctx); err != nil {
			r.log.Warn("dispose failed", slog.String("module", m.name), slogx.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) channel(channel string) string {
	if sep := r.bus.Separator(); sep != events.DefaultSeparator {
		return strings.ReplaceAll(channel, events.DefaultSeparator, sep)
	}
	return channel
}
