// Package switchboard is an event bus and module orchestrator for composing
// applications out of independently lifecycled components.
//
// The events package provides the bus: hierarchical channels with single
// segment (*) and multi segment (#) wildcards, retained events replayed to
// late subscribers, and prefix-scoped namespace views. The lifecycle package
// layers modules on top of the bus: each module is a small state machine
// (uninitialized, initializing, active, suspended, disposing, disposed,
// error) whose transitions broadcast retained state events, and a registry
// initializes dependency closures in order and tracks the active module.
//
// An App ties a bus, a registry, and a dependency injector together. There
// is no package level instance; construct one and pass it around:
//
//	app, err := switchboard.New(
//		switchboard.WithModules(store, editor),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := app.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer app.Shutdown(ctx)
//
//	app.Bus().Register("user/*/update", func(ev events.Event) error {
//		fmt.Println("user", ev.Params[0], "updated")
//		return nil
//	})
package switchboard
