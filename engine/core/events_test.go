package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusRegistration(t *testing.T) {
	bus := NewEventBus()
	listener := &struct{}{}

	calls := 0
	handler := func(EventContext) bool { calls++; return false }

	assert.True(t, bus.Register(EVENT_CODE_APPLICATION_QUIT, listener, handler))
	assert.False(t, bus.Register(EVENT_CODE_APPLICATION_QUIT, listener, handler))

	assert.False(t, bus.Fire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT}))
	assert.Equal(t, 1, calls)

	assert.True(t, bus.Unregister(EVENT_CODE_APPLICATION_QUIT, listener))
	assert.False(t, bus.Unregister(EVENT_CODE_APPLICATION_QUIT, listener))
	bus.Fire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT})
	assert.Equal(t, 1, calls)
}

func TestEventBusStopsWhenHandled(t *testing.T) {
	bus := NewEventBus()
	var order []string
	bus.Register(EVENT_CODE_ASSET_CHANGED, "first", func(EventContext) bool {
		order = append(order, "first")
		return true
	})
	bus.Register(EVENT_CODE_ASSET_CHANGED, "second", func(EventContext) bool {
		order = append(order, "second")
		return true
	})

	assert.True(t, bus.Fire(EventContext{Type: EVENT_CODE_ASSET_CHANGED, Data: &AssetEvent{Path: "res/a.png"}}))
	assert.Equal(t, []string{"first"}, order)

	bus.Shutdown()
	assert.False(t, bus.Fire(EventContext{Type: EVENT_CODE_ASSET_CHANGED}))
}
