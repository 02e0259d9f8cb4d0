package core

// Button is a mouse button code as reported by the windowing layer.
type Button uint16

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
	BUTTON_MAX_BUTTONS Button = 16
)

// KeyCode is a keyboard key code as reported by the windowing layer (GLFW numbering).
type KeyCode uint16

const (
	KEY_SPACE      KeyCode = 32
	KEY_APOSTROPHE KeyCode = 39
	KEY_COMMA      KeyCode = 44
	KEY_MINUS      KeyCode = 45
	KEY_PERIOD     KeyCode = 46
	KEY_SLASH      KeyCode = 47
	KEY_0          KeyCode = 48
	KEY_1          KeyCode = 49
	KEY_2          KeyCode = 50
	KEY_3          KeyCode = 51
	KEY_4          KeyCode = 52
	KEY_5          KeyCode = 53
	KEY_6          KeyCode = 54
	KEY_7          KeyCode = 55
	KEY_8          KeyCode = 56
	KEY_9          KeyCode = 57
	KEY_A          KeyCode = 65
	KEY_B          KeyCode = 66
	KEY_C          KeyCode = 67
	KEY_D          KeyCode = 68
	KEY_E          KeyCode = 69
	KEY_F          KeyCode = 70
	KEY_G          KeyCode = 71
	KEY_H          KeyCode = 72
	KEY_I          KeyCode = 73
	KEY_J          KeyCode = 74
	KEY_K          KeyCode = 75
	KEY_L          KeyCode = 76
	KEY_M          KeyCode = 77
	KEY_N          KeyCode = 78
	KEY_O          KeyCode = 79
	KEY_P          KeyCode = 80
	KEY_Q          KeyCode = 81
	KEY_R          KeyCode = 82
	KEY_S          KeyCode = 83
	KEY_T          KeyCode = 84
	KEY_U          KeyCode = 85
	KEY_V          KeyCode = 86
	KEY_W          KeyCode = 87
	KEY_X          KeyCode = 88
	KEY_Y          KeyCode = 89
	KEY_Z          KeyCode = 90
	KEY_ESCAPE     KeyCode = 256
	KEY_ENTER      KeyCode = 257
	KEY_TAB        KeyCode = 258
	KEY_BACKSPACE  KeyCode = 259
	KEY_INSERT     KeyCode = 260
	KEY_DELETE     KeyCode = 261
	KEY_RIGHT      KeyCode = 262
	KEY_LEFT       KeyCode = 263
	KEY_DOWN       KeyCode = 264
	KEY_UP         KeyCode = 265
	KEY_F1         KeyCode = 290
	KEY_F2         KeyCode = 291
	KEY_F3         KeyCode = 292
	KEY_F4         KeyCode = 293
	KEY_LSHIFT     KeyCode = 340
	KEY_LCONTROL   KeyCode = 341
	KEY_LALT       KeyCode = 342
	KEY_RSHIFT     KeyCode = 344
	KEY_RCONTROL   KeyCode = 345
	KEY_RALT       KeyCode = 346

	KEYS_MAX_KEYS KeyCode = 512
)

// Keyboard state structure
type KeyboardState struct {
	Keys [KEYS_MAX_KEYS]bool
}

// Mouse state structure
type MouseState struct {
	X       float64
	Y       float64
	Buttons [BUTTON_MAX_BUTTONS]bool
}

// InputState holds current and previous keyboard/mouse state. It is owned by the engine
// and handed to whoever needs to read input; the windowing callbacks write into it.
type InputState struct {
	KeyboardCurrent  KeyboardState
	KeyboardPrevious KeyboardState
	MouseCurrent     MouseState
	MousePrevious    MouseState

	events *EventBus
}

// NewInputState creates an empty input state. events may be nil.
func NewInputState(events *EventBus) *InputState {
	return &InputState{events: events}
}

// Update copies the current states into the previous ones. Call once per frame.
func (s *InputState) Update() {
	s.KeyboardPrevious = s.KeyboardCurrent
	s.MousePrevious = s.MouseCurrent
}

// SetKey records a key edge. Codes outside the table are ignored.
func (s *InputState) SetKey(key KeyCode, pressed bool) {
	if key >= KEYS_MAX_KEYS {
		return
	}
	if s.KeyboardCurrent.Keys[key] == pressed {
		return
	}
	s.KeyboardCurrent.Keys[key] = pressed

	if s.events == nil {
		return
	}
	code := EVENT_CODE_KEY_RELEASED
	if pressed {
		code = EVENT_CODE_KEY_PRESSED
	}
	s.events.Fire(EventContext{Type: code, Data: &KeyEvent{KeyCode: key}})
}

// SetButton records a mouse button edge. Codes outside the table are ignored.
func (s *InputState) SetButton(button Button, pressed bool) {
	if button >= BUTTON_MAX_BUTTONS {
		return
	}
	if s.MouseCurrent.Buttons[button] == pressed {
		return
	}
	s.MouseCurrent.Buttons[button] = pressed

	if s.events == nil {
		return
	}
	code := EVENT_CODE_BUTTON_RELEASED
	if pressed {
		code = EVENT_CODE_BUTTON_PRESSED
	}
	s.events.Fire(EventContext{Type: code, Data: &ButtonEvent{Button: button}})
}

func (s *InputState) SetMousePosition(x, y float64) {
	s.MouseCurrent.X = x
	s.MouseCurrent.Y = y
}

func (s *InputState) IsKeyDown(key KeyCode) bool {
	return key < KEYS_MAX_KEYS && s.KeyboardCurrent.Keys[key]
}

func (s *InputState) IsKeyUp(key KeyCode) bool {
	return !s.IsKeyDown(key)
}

func (s *InputState) WasKeyDown(key KeyCode) bool {
	return key < KEYS_MAX_KEYS && s.KeyboardPrevious.Keys[key]
}

func (s *InputState) IsButtonDown(button Button) bool {
	return button < BUTTON_MAX_BUTTONS && s.MouseCurrent.Buttons[button]
}

func (s *InputState) WasButtonDown(button Button) bool {
	return button < BUTTON_MAX_BUTTONS && s.MousePrevious.Buttons[button]
}

func (s *InputState) MousePosition() (float64, float64) {
	return s.MouseCurrent.X, s.MouseCurrent.Y
}
