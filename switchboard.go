package switchboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/casualjim/switchboard/events"
	"github.com/casualjim/switchboard/injector"
	"github.com/casualjim/switchboard/lifecycle"
	"github.com/fogfish/opts"
)

// App bundles the event bus, the module registry, and the shared dependency
// injector into one explicitly-passed context object. There is no package
// level instance; callers own the App and hand it to whatever needs it.
type App struct {
	bus      *events.Bus
	modules  *lifecycle.Registry
	injector *injector.Injector
	log      *slog.Logger

	separator string
	pending   []*lifecycle.Module
	root      *lifecycle.Module
}

var (
	// WithLogger configures the logger shared by the bus and the registry.
	WithLogger = opts.ForName[App, *slog.Logger]("log")

	// WithSeparator configures the channel segment separator for the app's
	// bus.
	WithSeparator = opts.ForName[App, string]("separator")
)

// WithModules registers modules at construction time, in order. The first
// module becomes the root unless WithRoot overrides it.
func WithModules(modules ...*lifecycle.Module) opts.Option[App] {
	return opts.Type[App](func(app *App) error {
		app.pending = append(app.pending, modules...)
		return nil
	})
}

// WithRoot overrides the default module. The module must also be
// registered, either through WithModules or Register.
func WithRoot(m *lifecycle.Module) opts.Option[App] {
	return opts.Type[App](func(app *App) error {
		app.root = m
		return nil
	})
}

// New assembles an app. Module registration failures surface here rather
// than at first use.
func New(options ...opts.Option[App]) (*App, error) {
	app := &App{
		log:       slog.Default(),
		separator: events.DefaultSeparator,
	}
	if err := opts.Apply(app, options); err != nil {
		return nil, err
	}

	app.bus = events.New(
		events.WithSeparator(app.separator),
		events.WithLogger(app.log),
	)
	app.modules = lifecycle.NewRegistry(app.bus, lifecycle.WithRegistryLogger(app.log))
	app.injector = injector.New()

	for _, m := range app.pending {
		if err := app.modules.Register(m); err != nil {
			return nil, err
		}
	}
	app.pending = nil
	if app.root != nil {
		app.modules.SetRoot(app.root)
	}
	return app, nil
}

// Bus returns the app's event bus.
func (a *App) Bus() *events.Bus { return a.bus }

// Modules returns the app's module registry.
func (a *App) Modules() *lifecycle.Registry { return a.modules }

// Injector returns the app's shared dependency injector.
func (a *App) Injector() *injector.Injector { return a.injector }

// Register adds a module after construction.
func (a *App) Register(m *lifecycle.Module) error {
	return a.modules.Register(m)
}

// Start initializes every registered module in dependency order, the
// root's closure first, then activates the root.
func (a *App) Start(ctx context.Context) error {
	root := a.modules.Root()
	if root == nil {
		return fmt.Errorf("switchboard: no root module registered")
	}
	if err := a.modules.Initialize(ctx, root); err != nil {
		return err
	}
	return a.modules.ActivateModule(ctx, root)
}

// Shutdown disposes every registered module. Per-module failures are
// collected and returned joined; every module still gets its dispose
// attempt.
func (a *App) Shutdown(ctx context.Context) error {
	return a.modules.DisposeAll(ctx)
}
