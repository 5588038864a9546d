package domain

import "strings"

// Modifier is one of the three tracked modifier keys.
type Modifier string

const (
	ModifierNone  Modifier = ""
	ModifierCtrl  Modifier = "ctrl"
	ModifierShift Modifier = "shift"
	ModifierAlt   Modifier = "alt"
)

// HotkeySpec is the user-configured recording combination.
type HotkeySpec struct {
	Ctrl  bool   `json:"ctrl" yaml:"ctrl"`
	Shift bool   `json:"shift" yaml:"shift"`
	Alt   bool   `json:"alt" yaml:"alt"`
	Key   string `json:"key,omitempty" yaml:"key,omitempty"`
}

// DefaultHotkey is Ctrl+Shift+Alt with no key.
func DefaultHotkey() HotkeySpec {
	return HotkeySpec{Ctrl: true, Shift: true, Alt: true}
}

// HasModifier reports whether any modifier is required.
func (h HotkeySpec) HasModifier() bool {
	return h.Ctrl || h.Shift || h.Alt
}

// Validate rejects a spec with neither a modifier nor a key.
func (h HotkeySpec) Validate() error {
	if !h.HasModifier() && strings.TrimSpace(h.Key) == "" {
		return ErrInvalidHotkey
	}
	return nil
}

func (h HotkeySpec) String() string {
	parts := make([]string, 0, 4)
	if h.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if h.Shift {
		parts = append(parts, "Shift")
	}
	if h.Alt {
		parts = append(parts, "Alt")
	}
	if key := strings.TrimSpace(h.Key); key != "" {
		if len([]rune(key)) == 1 {
			key = strings.ToUpper(key)
		}
		parts = append(parts, key)
	}
	return strings.Join(parts, "+")
}

// KeyState holds which modifiers are currently down.
type KeyState struct {
	Ctrl  bool `json:"ctrl"`
	Shift bool `json:"shift"`
	Alt   bool `json:"alt"`
}

// Key identifies a physical key. Char is zero when the key is not printable.
type Key struct {
	Name string `json:"name"`
	Char rune   `json:"char,omitempty"`
}

// Modifier returns the tracked modifier for k, folding left and right variants.
func (k Key) Modifier() Modifier {
	switch strings.ToLower(k.Name) {
	case "ctrl", "lctrl", "rctrl", "control", "ctrl_l", "ctrl_r":
		return ModifierCtrl
	case "shift", "lshift", "rshift", "shift_l", "shift_r":
		return ModifierShift
	case "alt", "lalt", "ralt", "alt_l", "alt_r", "alt_gr", "altgr":
		return ModifierAlt
	default:
		return ModifierNone
	}
}

// IsModifier reports whether k is Ctrl, Shift or Alt.
func (k Key) IsModifier() bool {
	return k.Modifier() != ModifierNone
}

// Label is the name stored in a HotkeySpec when k is learned.
func (k Key) Label() string {
	if k.Char > ' ' && k.Char != 0x7f {
		return strings.ToLower(string(k.Char))
	}
	return strings.ToLower(k.Name)
}

// KeyEvent is one press or release with the modifier state observed after it.
type KeyEvent struct {
	Key     Key
	Pressed bool
	State   KeyState
}
