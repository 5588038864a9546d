package keys

import (
	"strings"

	"whispertyper/internal/domain"
)

// MatchPress reports whether a key press completes spec given the modifier state.
func MatchPress(state domain.KeyState, spec domain.HotkeySpec, key domain.Key) bool {
	wanted := strings.TrimSpace(spec.Key)

	// First-run default path: all three modifiers held always starts recording.
	if wanted == "" && state.Ctrl && state.Shift && state.Alt {
		return true
	}

	if !modifiersHeld(state, spec) {
		return false
	}
	if wanted == "" {
		return spec.HasModifier()
	}
	if key.IsModifier() {
		return false
	}
	return keyEquals(state, key, wanted)
}

// StopsRecording reports whether releasing key ends a combo-started recording.
// Any of Ctrl, Shift or Alt qualifies, regardless of which ones the hotkey names.
func StopsRecording(key domain.Key) bool {
	return key.IsModifier()
}

func modifiersHeld(state domain.KeyState, spec domain.HotkeySpec) bool {
	if spec.Ctrl && !state.Ctrl {
		return false
	}
	if spec.Shift && !state.Shift {
		return false
	}
	if spec.Alt && !state.Alt {
		return false
	}
	return true
}

func keyEquals(state domain.KeyState, key domain.Key, wanted string) bool {
	if char := effectiveChar(state, key.Char); char != 0 {
		if strings.EqualFold(string(char), wanted) {
			return true
		}
	}
	return key.Name != "" && strings.EqualFold(key.Name, wanted)
}

// effectiveChar undoes the control-byte translation the OS applies while Ctrl is held.
func effectiveChar(state domain.KeyState, char rune) rune {
	if state.Ctrl && char >= 1 && char <= 26 {
		return char + 64
	}
	if char < ' ' || char == 0x7f {
		return 0
	}
	return char
}

// ReleaseStops extends StopsRecording to key-only hotkeys, which have no
// modifier to release: letting go of the hotkey itself ends the recording.
func ReleaseStops(spec domain.HotkeySpec, key domain.Key) bool {
	if StopsRecording(key) {
		return true
	}
	wanted := strings.TrimSpace(spec.Key)
	return !spec.HasModifier() && wanted != "" && keyEquals(domain.KeyState{}, key, wanted)
}
