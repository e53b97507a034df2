package core

// Key code definitions. Values match the platform layer's key tokens so they
// can be passed through without a lookup table.
type KeyCode uint16

const (
	KEY_SPACE     KeyCode = 32
	KEY_0         KeyCode = 48
	KEY_1         KeyCode = 49
	KEY_2         KeyCode = 50
	KEY_A         KeyCode = 65
	KEY_C         KeyCode = 67
	KEY_D         KeyCode = 68
	KEY_P         KeyCode = 80
	KEY_Q         KeyCode = 81
	KEY_R         KeyCode = 82
	KEY_S         KeyCode = 83
	KEY_W         KeyCode = 87
	KEY_ESCAPE    KeyCode = 256
	KEY_ENTER     KeyCode = 257
	KEY_TAB       KeyCode = 258
	KEY_BACKSPACE KeyCode = 259
	KEY_RIGHT     KeyCode = 262
	KEY_LEFT      KeyCode = 263
	KEY_DOWN      KeyCode = 264
	KEY_UP        KeyCode = 265
	KEY_F1        KeyCode = 290

	KEYS_MAX_KEYS KeyCode = 512
)

type KeyboardState struct {
	keys [KEYS_MAX_KEYS]bool
}

// Input keeps the keyboard state of the current and the previous tick and
// turns state changes into key events.
type Input struct {
	events           *EventBus
	keyboardCurrent  KeyboardState
	keyboardPrevious KeyboardState
}

func NewInput(events *EventBus) *Input {
	return &Input{events: events}
}

// Update copies the current state into the previous one. Call once per tick
// after all input for the tick has been processed.
func (in *Input) Update() {
	in.keyboardPrevious = in.keyboardCurrent
}

func (in *Input) IsKeyDown(key KeyCode) bool {
	return key < KEYS_MAX_KEYS && in.keyboardCurrent.keys[key]
}

func (in *Input) IsKeyUp(key KeyCode) bool {
	return key >= KEYS_MAX_KEYS || !in.keyboardCurrent.keys[key]
}

func (in *Input) WasKeyDown(key KeyCode) bool {
	return key < KEYS_MAX_KEYS && in.keyboardPrevious.keys[key]
}

func (in *Input) WasKeyUp(key KeyCode) bool {
	return key >= KEYS_MAX_KEYS || !in.keyboardPrevious.keys[key]
}

// ProcessKey records a key transition and fires EVENT_CODE_KEY_PRESSED or
// EVENT_CODE_KEY_RELEASED. Repeats of an unchanged state are ignored.
func (in *Input) ProcessKey(key KeyCode, pressed bool) {
	if key >= KEYS_MAX_KEYS {
		LogDebug("ignoring key code %d out of range", key)
		return
	}
	if in.keyboardCurrent.keys[key] == pressed {
		return
	}
	in.keyboardCurrent.keys[key] = pressed

	if in.events == nil {
		return
	}
	var context EventContext
	context.Data.I32[0] = int32(key)
	code := EVENT_CODE_KEY_RELEASED
	if pressed {
		code = EVENT_CODE_KEY_PRESSED
	}
	in.events.Fire(code, nil, context)
}
