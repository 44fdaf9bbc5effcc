package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/casualjim/switchboard/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stateRecorder tracks live state-change broadcasts for one module. The
// retained current state replayed at registration time is skipped, so
// recordings contain only transitions that happened after the watch began.
type stateRecorder struct {
	mu     sync.Mutex
	states []string
}

func (s *stateRecorder) handle(ev events.Event) error {
	if ev.Retained {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, ev.Payload.(string))
	return nil
}

func (s *stateRecorder) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.states...)
}

func watchStates(t *testing.T, bus *events.Bus, name string) *stateRecorder {
	t.Helper()
	rec := &stateRecorder{}
	_, err := bus.Register(StateChannel(bus.Separator(), name), rec.handle)
	require.NoError(t, err)
	return rec
}

func registered(t *testing.T, r *Registry, m *Module) *Module {
	t.Helper()
	require.NoError(t, r.Register(m))
	return m
}

func TestModuleInitializeSuccess(t *testing.T) {
	bus := events.New()
	r := NewRegistry(bus)

	var ran bool
	m := registered(t, r, NewModule("editor", WithInitialize(func(context.Context) error {
		ran = true
		return nil
	})))
	rec := watchStates(t, bus, "editor")

	require.NoError(t, m.Initialize(context.Background()))
	assert.True(t, ran)
	assert.Equal(t, StateActive, m.State())
	assert.Equal(t, []string{"initializing", "active"}, rec.recorded())
}

func TestModuleInitializeFailure(t *testing.T) {
	bus := events.New()
	r := NewRegistry(bus)

	boom := errors.New("boom")
	m := registered(t, r, NewModule("editor", WithInitialize(func(context.Context) error {
		return boom
	})))

	err := m.Initialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateError, m.State())
	assert.ErrorIs(t, m.LastError(), boom)
}

func TestModuleInitializeTwiceIsTransitionError(t *testing.T) {
	bus := events.New()
	r := NewRegistry(bus)
	m := registered(t, r, NewModule("editor"))

	require.NoError(t, m.Initialize(context.Background()))

	err := m.Initialize(context.Background())
	var transErr *TransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, StateActive, transErr.Current)
	assert.Equal(t, StateInitializing, transErr.Attempted)
}

func TestModuleSuspendResume(t *testing.T) {
	bus := events.New()
	r := NewRegistry(bus)
	m := registered(t, r, NewModule("editor"))
	require.NoError(t, m.Initialize(context.Background()))

	rec := watchStates(t, bus, "editor")

	require.NoError(t, m.Suspend(context.Background()))
	assert.Equal(t, StateSuspended, m.State())
	require.NoError(t, m.Resume(context.Background()))
	assert.Equal(t, StateActive, m.State())

	// Exactly two state-change events after the watch began.
	assert.Equal(t, []string{"suspended", "active"}, rec.recorded())
}

func TestModuleSuspendWhenNotActive(t *testing.T) {
	bus := events.New()
	r := NewRegistry(bus)
	m := registered(t, r, NewModule("editor"))

	var transErr *TransitionError
	require.ErrorAs(t, m.Suspend(context.Background()), &transErr)
	assert.Equal(t, StateUninitialized, transErr.Current)
}

func TestModuleDisposeIdempotent(t *testing.T) {
	bus := events.New()
	r := NewRegistry(bus)

	var disposed int
	m := registered(t, r, NewModule("editor", WithDispose(func(context.Context) error {
		disposed++
		return nil
	})))
	require.NoError(t, m.Initialize(context.Background()))

	require.NoError(t, m.Dispose(context.Background()))
	assert.Equal(t, StateDisposed, m.State())

	// Repeated dispose is a no-op, not a state error.
	require.NoError(t, m.Dispose(context.Background()))
	assert.Equal(t, 1, disposed)
}

func TestModuleDisposeFromError(t *testing.T) {
	bus := events.New()
	r := NewRegistry(bus)
	m := registered(t, r, NewModule("editor", WithInitialize(func(context.Context) error {
		return errors.New("boom")
	})))
	require.Error(t, m.Initialize(context.Background()))
	require.Equal(t, StateError, m.State())

	require.NoError(t, m.Dispose(context.Background()))
	assert.Equal(t, StateDisposed, m.State())
}

func TestModuleDisposeFromUninitializedIsTransitionError(t *testing.T) {
	bus := events.New()
	r := NewRegistry(bus)
	m := registered(t, r, NewModule("editor"))

	var transErr *TransitionError
	require.ErrorAs(t, m.Dispose(context.Background()), &transErr)
}

func TestModuleDisposeResolvesPendingRequests(t *testing.T) {
	bus := events.New()
	r := NewRegistry(bus)
	m := registered(t, r, NewModule("editor"))
	require.NoError(t, m.Initialize(context.Background()))

	resp := m.Push("pending")
	require.NoError(t, m.Dispose(context.Background()))

	value, err := resp.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestModuleRecoverApproved(t *testing.T) {
	bus := events.New()
	r := NewRegistry(bus)

	attempts := 0
	m := registered(t, r, NewModule("editor",
		WithInitialize(func(context.Context) error {
			attempts++
			if attempts == 1 {
				return errors.New("first start fails")
			}
			return nil
		}),
		WithRecover(func(context.Context) error { return nil }),
	))
	require.Error(t, m.Initialize(context.Background()))
	require.Equal(t, StateError, m.State())

	rec := watchStates(t, bus, "editor")

	// Approved recovery rewinds to uninitialized, then re-initializes.
	require.NoError(t, m.Recover(context.Background()))
	assert.Equal(t, StateActive, m.State())
	assert.Nil(t, m.LastError())
	assert.Equal(t, []string{"uninitialized", "initializing", "active"}, rec.recorded())
}

func TestModuleRecoverDeclined(t *testing.T) {
	bus := events.New()
	r := NewRegistry(bus)
	declined := errors.New("not recoverable")
	m := registered(t, r, NewModule("editor",
		WithInitialize(func(context.Context) error { return errors.New("boom") }),
		WithRecover(func(context.Context) error { return declined }),
	))
	require.Error(t, m.Initialize(context.Background()))

	err := m.Recover(context.Background())
	assert.ErrorIs(t, err, declined)
	assert.Equal(t, StateError, m.State())
}

func TestModuleRecoverWithoutHook(t *testing.T) {
	bus := events.New()
	r := NewRegistry(bus)
	m := registered(t, r, NewModule("editor",
		WithInitialize(func(context.Context) error { return errors.New("boom") }),
	))
	require.Error(t, m.Initialize(context.Background()))

	assert.ErrorIs(t, m.Recover(context.Background()), ErrNoRecoveryHook)
	assert.Equal(t, StateError, m.State())
}

func TestModuleRecoverFromNonError(t *testing.T) {
	bus := events.New()
	r := NewRegistry(bus)
	m := registered(t, r, NewModule("editor", WithRecover(func(context.Context) error { return nil })))

	var transErr *TransitionError
	require.ErrorAs(t, m.Recover(context.Background()), &transErr)
}

func TestModuleRetainedStateVisibleToLateSubscriber(t *testing.T) {
	bus := events.New()
	r := NewRegistry(bus)
	m := registered(t, r, NewModule("editor"))
	require.NoError(t, m.Initialize(context.Background()))

	// A health monitor joining after startup sees the current state
	// immediately, without racing initialization.
	var states []string
	_, err := bus.Register(StateChannel(bus.Separator(), "editor"), func(ev events.Event) error {
		assert.True(t, ev.Retained)
		states = append(states, ev.Payload.(string))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"active"}, states)
}

func TestModuleSelfDependencyRejected(t *testing.T) {
	m := NewModule("editor")
	assert.ErrorIs(t, m.AddDependency(m), ErrSelfDependency)
}

func TestModuleBuildHook(t *testing.T) {
	m := NewModule("editor", WithBuild(func() any { return "view" }))
	assert.Equal(t, "view", m.Build())
	assert.Nil(t, NewModule("bare").Build())
}

func TestNewModulePanicsOnEmptyName(t *testing.T) {
	assert.Panics(t, func() { NewModule("") })
}

func TestModuleTransitionsAreSerialized(t *testing.T) {
	bus := events.New()
	r := NewRegistry(bus)

	entered := make(chan struct{})
	release := make(chan struct{})
	m := registered(t, r, NewModule("editor", WithInitialize(func(context.Context) error {
		close(entered)
		<-release
		return nil
	})))

	go func() {
		_ = m.Initialize(context.Background())
	}()
	<-entered

	// A concurrent transition waits for the in-flight one.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Suspend(ctx), context.DeadlineExceeded)

	close(release)
	require.Eventually(t, func() bool { return m.State() == StateActive }, time.Second, time.Millisecond)
	require.NoError(t, m.Suspend(context.Background()))
}

func TestStackPushPop(t *testing.T) {
	bus := events.New()
	r := NewRegistry(bus)
	m := registered(t, r, NewModule("editor"))

	var pushes, pops int
	_, err := bus.Register(ChannelRouterPush, func(events.Event) error {
		pushes++
		return nil
	})
	require.NoError(t, err)
	_, err = bus.Register(ChannelRouterPop, func(events.Event) error {
		pops++
		return nil
	})
	require.NoError(t, err)

	resp := m.Push("question")
	assert.Equal(t, 1, m.StackDepth())
	assert.Equal(t, 1, pushes)
	assert.False(t, resp.Resolved())

	require.NoError(t, m.Pop("answer"))
	assert.Equal(t, 0, m.StackDepth())
	assert.Equal(t, 1, pops)

	value, err := resp.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "answer", value)
}

func TestStackPopResolvesMostRecent(t *testing.T) {
	bus := events.New()
	r := NewRegistry(bus)
	m := registered(t, r, NewModule("editor"))

	first := m.Push(1)
	second := m.Push(2)

	require.NoError(t, m.Pop("for-second"))
	assert.False(t, first.Resolved())
	assert.True(t, second.Resolved())

	value, err := second.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "for-second", value)
}

func TestStackPopEmpty(t *testing.T) {
	bus := events.New()
	r := NewRegistry(bus)
	m := registered(t, r, NewModule("editor"))

	assert.ErrorIs(t, m.Pop(nil), ErrStackEmpty)
}

func TestStackClearResolvesAll(t *testing.T) {
	bus := events.New()
	r := NewRegistry(bus)
	m := registered(t, r, NewModule("editor"))

	var pops int
	_, err := bus.Register(ChannelRouterPop, func(events.Event) error {
		pops++
		return nil
	})
	require.NoError(t, err)

	responses := []*Response{m.Push(1), m.Push(2), m.Push(3)}
	m.ClearStack()

	assert.Equal(t, 3, pops, "one router/pop notification per resolved entry")
	assert.Equal(t, 0, m.StackDepth())
	for _, resp := range responses {
		value, err := resp.Get(context.Background())
		require.NoError(t, err)
		assert.Nil(t, value)
	}
}

func TestResponseGetHonorsContext(t *testing.T) {
	bus := events.New()
	r := NewRegistry(bus)
	m := registered(t, r, NewModule("editor"))

	resp := m.Push("question")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := resp.Get(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
