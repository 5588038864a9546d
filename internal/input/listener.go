package input

import (
	"context"
	"errors"
	"strconv"
	"unicode"

	hook "github.com/robotn/gohook"
	"github.com/sirupsen/logrus"

	"whispertyper/internal/domain"
	"whispertyper/internal/keys"
)

// charUndefined is what the hook reports in Keychar for non-typing events.
const charUndefined = 0xFFFF

// modifierCodes are the uiohook VC_* scancodes of Ctrl, Shift and Alt. The hook's
// name table lacks some right-hand variants, so these always win.
var modifierCodes = map[uint16]string{
	0x001D: "ctrl",
	0x0E1D: "rctrl",
	0x002A: "shift",
	0x0036: "rshift",
	0x0038: "alt",
	0x0E38: "ralt",
}

// KeySink receives translated key events. HandleKey must not block.
type KeySink interface {
	HandleKey(event domain.KeyEvent) bool
}

// Listener forwards global key presses and releases from the OS hook to a KeySink,
// keeping the modifier tracker current on the way.
type Listener struct {
	tracker *keys.Tracker
	sink    KeySink
	log     *logrus.Entry
	names   map[uint16]string

	start func() chan hook.Event
	end   func()
}

func NewListener(tracker *keys.Tracker, sink KeySink, log *logrus.Entry) *Listener {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Listener{
		tracker: tracker,
		sink:    sink,
		log:     log.WithField("component", "input"),
		names:   withModifierCodes(keyNames(hook.Keycode)),
		start:   hook.Start,
		end:     hook.End,
	}
}

// Run installs the hook and dispatches events until ctx is canceled.
func (l *Listener) Run(ctx context.Context) error {
	l.tracker.Reset()
	events := l.start()
	l.log.Info("global key listener started")

	for {
		select {
		case <-ctx.Done():
			l.end()
			l.log.Info("global key listener stopped")
			return nil
		case ev, ok := <-events:
			if !ok {
				return errors.New("global key hook closed unexpectedly")
			}
			l.dispatch(ev)
		}
	}
}

func (l *Listener) dispatch(ev hook.Event) {
	var pressed bool
	switch ev.Kind {
	case hook.KeyHold:
		pressed = true
	case hook.KeyUp:
		pressed = false
	default:
		return
	}

	key := l.translate(ev)
	l.tracker.OnEvent(key, pressed)
	event := domain.KeyEvent{Key: key, Pressed: pressed, State: l.tracker.Snapshot()}
	if l.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		l.log.WithFields(logrus.Fields{
			"key":     key.Label(),
			"pressed": pressed,
			"state":   event.State,
		}).Trace("key event")
	}
	l.sink.HandleKey(event)
}

func (l *Listener) translate(ev hook.Event) domain.Key {
	key := domain.Key{Name: l.names[ev.Keycode]}
	if key.Name == "" {
		key.Name = "keycode_" + strconv.Itoa(int(ev.Keycode))
	}
	if ev.Keychar != 0 && ev.Keychar != charUndefined {
		key.Char = ev.Keychar
	} else if r := []rune(key.Name); len(r) == 1 && unicode.IsPrint(r[0]) {
		key.Char = r[0]
	}
	return key
}

// keyNames inverts the hook keycode table. Aliases sharing a code resolve to the
// shortest name, then the lexically smallest, so lookups are stable.
func keyNames[M ~map[string]uint16](table M) map[uint16]string {
	names := make(map[uint16]string, len(table))
	for name, code := range table {
		current, ok := names[code]
		if !ok || len(name) < len(current) || (len(name) == len(current) && name < current) {
			names[code] = name
		}
	}
	return names
}

func withModifierCodes(names map[uint16]string) map[uint16]string {
	for code, name := range modifierCodes {
		names[code] = name
	}
	return names
}
