package notify

import (
	"time"

	"github.com/gen2brain/beeep"
	"github.com/sirupsen/logrus"
)

const (
	startFrequency = 600.0
	stopFrequency  = 800.0
	toneLength     = 200 * time.Millisecond
	appTitle       = "WhisperTyper"
)

// Notifier plays recording cues and shows desktop notifications.
// Every call returns immediately; sound and popups run on their own goroutine.
type Notifier struct {
	tones         bool
	notifications bool
	log           *logrus.Entry

	beep   func(freq float64, ms int) error
	notify func(title, message string) error
}

func New(tones bool, notifications bool, log *logrus.Entry) *Notifier {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Notifier{
		tones:         tones,
		notifications: notifications,
		log:           log.WithField("component", "notify"),
		beep:          beeep.Beep,
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

func (n *Notifier) RecordingStarted() {
	n.playTone(startFrequency)
}

func (n *Notifier) RecordingStopped() {
	n.playTone(stopFrequency)
}

// Message shows a desktop notification if enabled.
func (n *Notifier) Message(message string) {
	if !n.notifications {
		return
	}
	go func() {
		if err := n.notify(appTitle, message); err != nil {
			n.log.WithError(err).Debug("desktop notification failed")
		}
	}()
}

func (n *Notifier) playTone(freq float64) {
	if !n.tones {
		return
	}
	go func() {
		if err := n.beep(freq, int(toneLength/time.Millisecond)); err != nil {
			n.log.WithError(err).WithField("freq", freq).Debug("tone playback failed")
		}
	}()
}
