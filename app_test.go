package switchboard

import (
	"context"
	"errors"
	"testing"

	"github.com/casualjim/switchboard/events"
	"github.com/casualjim/switchboard/injector"
	"github.com/casualjim/switchboard/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppStartInitializesDependencyClosure(t *testing.T) {
	var order []string
	mark := func(name string) lifecycle.Hook {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	store := lifecycle.NewModule("store", lifecycle.WithInitialize(mark("store")))
	index := lifecycle.NewModule("index",
		lifecycle.WithInitialize(mark("index")),
		lifecycle.WithDependencies(store),
	)
	editor := lifecycle.NewModule("editor",
		lifecycle.WithInitialize(mark("editor")),
		lifecycle.WithDependencies(index),
	)

	app, err := New(
		WithModules(store, index, editor),
		WithRoot(editor),
	)
	require.NoError(t, err)
	require.NoError(t, app.Start(context.Background()))

	assert.Equal(t, []string{"store", "index", "editor"}, order)
	assert.Same(t, editor, app.Modules().Current())
	assert.Equal(t, lifecycle.StateActive, store.State())
}

func TestAppStartBroadcastsActivation(t *testing.T) {
	root := lifecycle.NewModule("root")
	app, err := New(WithModules(root))
	require.NoError(t, err)

	var activated []string
	_, err = app.Bus().Register(lifecycle.ChannelModuleActivated, func(ev events.Event) error {
		activated = append(activated, ev.Payload.(string))
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, app.Start(context.Background()))
	assert.Equal(t, []string{"root"}, activated)
}

func TestAppStartWithoutModules(t *testing.T) {
	app, err := New()
	require.NoError(t, err)
	assert.Error(t, app.Start(context.Background()))
}

func TestAppShutdownDisposesEverything(t *testing.T) {
	var disposed []string
	sink := func(name string) lifecycle.Hook {
		return func(context.Context) error {
			disposed = append(disposed, name)
			return nil
		}
	}

	a := lifecycle.NewModule("a", lifecycle.WithDispose(sink("a")))
	b := lifecycle.NewModule("b", lifecycle.WithDispose(sink("b")))
	app, err := New(WithModules(a, b))
	require.NoError(t, err)

	require.NoError(t, a.Initialize(context.Background()))
	require.NoError(t, b.Initialize(context.Background()))
	require.NoError(t, app.Shutdown(context.Background()))

	assert.ElementsMatch(t, []string{"a", "b"}, disposed)
	assert.Equal(t, lifecycle.StateDisposed, a.State())
	assert.Equal(t, lifecycle.StateDisposed, b.State())
}

func TestAppShutdownCollectsFailures(t *testing.T) {
	boom := errors.New("flush failed")
	a := lifecycle.NewModule("a", lifecycle.WithDispose(func(context.Context) error { return boom }))
	b := lifecycle.NewModule("b")
	app, err := New(WithModules(a, b))
	require.NoError(t, err)

	require.NoError(t, a.Initialize(context.Background()))
	require.NoError(t, b.Initialize(context.Background()))

	err = app.Shutdown(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, lifecycle.StateDisposed, b.State(), "one failure does not block the rest")
}

func TestAppCustomSeparator(t *testing.T) {
	app, err := New(WithSeparator("."))
	require.NoError(t, err)
	assert.Equal(t, ".", app.Bus().Separator())

	var params []string
	_, err = app.Bus().Register("user.*.update", func(ev events.Event) error {
		params = ev.Params
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, app.Bus().Emit("user.42.update", nil, false))
	assert.Equal(t, []string{"42"}, params)
}

func TestAppDuplicateModuleFailsConstruction(t *testing.T) {
	a := lifecycle.NewModule("same")
	b := lifecycle.NewModule("same")
	_, err := New(WithModules(a, b))
	assert.ErrorIs(t, err, lifecycle.ErrDuplicateModule)
}

func TestAppInjectorIsShared(t *testing.T) {
	app, err := New()
	require.NoError(t, err)

	injector.Provide(app.Injector(), 42)
	n, ok := injector.Resolve[int](app.Injector())
	require.True(t, ok)
	assert.Equal(t, 42, n)
}
