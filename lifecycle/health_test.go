package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/casualjim/switchboard/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestHealthStatusSnapshot(t *testing.T) {
	r := NewRegistry(events.New())

	active := NewModule("active")
	failing := NewModule("failing", WithInitialize(func(context.Context) error {
		return errors.New("disk on fire")
	}))
	idle := NewModule("idle")
	for _, m := range []*Module{active, failing, idle} {
		require.NoError(t, r.Register(m))
	}

	require.NoError(t, r.ActivateModule(context.Background(), active))
	require.Error(t, failing.Initialize(context.Background()))
	active.Push("pending request")

	status := r.HealthStatus()
	require.Len(t, status, 3)

	assert.Equal(t, "active", status["active"].State)
	assert.True(t, status["active"].Active)
	assert.False(t, status["active"].HasError)
	assert.Equal(t, 1, status["active"].StackDepth)

	assert.Equal(t, "error", status["failing"].State)
	assert.False(t, status["failing"].Active)
	assert.True(t, status["failing"].HasError)
	assert.Contains(t, status["failing"].LastError, "disk on fire")

	assert.Equal(t, "uninitialized", status["idle"].State)
	assert.Equal(t, 0, status["idle"].StackDepth)
}

func TestHealthJSONShape(t *testing.T) {
	r := NewRegistry(events.New())

	m := NewModule("editor", WithInitialize(func(context.Context) error {
		return errors.New("boom")
	}))
	require.NoError(t, r.Register(m))
	require.Error(t, m.Initialize(context.Background()))

	payload, err := r.HealthJSON()
	require.NoError(t, err)

	doc := gjson.ParseBytes(payload)
	assert.Equal(t, "error", doc.Get("editor.state").String())
	assert.True(t, doc.Get("editor.has_error").Bool())
	assert.Contains(t, doc.Get("editor.last_error").String(), "boom")
	assert.Equal(t, int64(0), doc.Get("editor.stack_depth").Int())
	assert.False(t, doc.Get("editor.active").Bool())
}
