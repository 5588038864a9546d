package keys

import (
	"sync/atomic"

	"whispertyper/internal/domain"
)

// Tracker mirrors which modifiers are physically held.
// It is written from the hook goroutine and read from anywhere.
type Tracker struct {
	ctrl  atomic.Bool
	shift atomic.Bool
	alt   atomic.Bool
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// OnEvent updates the flag of a modifier key and ignores every other key.
func (t *Tracker) OnEvent(key domain.Key, pressed bool) {
	switch key.Modifier() {
	case domain.ModifierCtrl:
		t.ctrl.Store(pressed)
	case domain.ModifierShift:
		t.shift.Store(pressed)
	case domain.ModifierAlt:
		t.alt.Store(pressed)
	}
}

func (t *Tracker) Snapshot() domain.KeyState {
	return domain.KeyState{
		Ctrl:  t.ctrl.Load(),
		Shift: t.shift.Load(),
		Alt:   t.alt.Load(),
	}
}

// Reset clears all flags, used when the hook restarts and held keys are unknown.
func (t *Tracker) Reset() {
	t.ctrl.Store(false)
	t.shift.Store(false)
	t.alt.Store(false)
}
