package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInputStateKeys(t *testing.T) {
	s := NewInputState(nil)

	assert.False(t, s.IsKeyDown(KEY_SPACE))
	s.SetKey(KEY_SPACE, true)
	assert.True(t, s.IsKeyDown(KEY_SPACE))
	assert.False(t, s.WasKeyDown(KEY_SPACE))

	s.Update()
	assert.True(t, s.WasKeyDown(KEY_SPACE))

	s.SetKey(KEY_SPACE, false)
	assert.True(t, s.IsKeyUp(KEY_SPACE))
	assert.True(t, s.WasKeyDown(KEY_SPACE))
}

func TestInputStateIgnoresOutOfRangeCodes(t *testing.T) {
	s := NewInputState(nil)

	s.SetKey(KEYS_MAX_KEYS+10, true)
	s.SetButton(BUTTON_MAX_BUTTONS, true)

	assert.False(t, s.IsKeyDown(KEYS_MAX_KEYS+10))
	assert.False(t, s.IsButtonDown(BUTTON_MAX_BUTTONS))
}

func TestInputStateFiresEdgesOnly(t *testing.T) {
	bus := NewEventBus()
	s := NewInputState(bus)

	var pressed, released []KeyCode
	bus.Register(EVENT_CODE_KEY_PRESSED, "test", func(ctx EventContext) bool {
		pressed = append(pressed, ctx.Data.(*KeyEvent).KeyCode)
		return true
	})
	bus.Register(EVENT_CODE_KEY_RELEASED, "test", func(ctx EventContext) bool {
		released = append(released, ctx.Data.(*KeyEvent).KeyCode)
		return true
	})

	s.SetKey(KEY_A, true)
	s.SetKey(KEY_A, true)
	s.SetKey(KEY_A, false)

	assert.Equal(t, []KeyCode{KEY_A}, pressed)
	assert.Equal(t, []KeyCode{KEY_A}, released)
}

func TestInputStateButtons(t *testing.T) {
	s := NewInputState(nil)
	s.SetButton(BUTTON_LEFT, true)
	s.SetMousePosition(10, 20)

	assert.True(t, s.IsButtonDown(BUTTON_LEFT))
	assert.False(t, s.IsButtonDown(BUTTON_RIGHT))
	x, y := s.MousePosition()
	assert.Equal(t, 10.0, x)
	assert.Equal(t, 20.0, y)

	s.Update()
	assert.True(t, s.WasButtonDown(BUTTON_LEFT))
}
