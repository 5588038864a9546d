package notify

import (
	"errors"
	"testing"
	"time"
)

func TestTonesUseStartAndStopFrequencies(t *testing.T) {
	t.Parallel()

	type beep struct {
		freq float64
		ms   int
	}
	beeps := make(chan beep, 2)
	n := New(true, false, nil)
	n.beep = func(freq float64, ms int) error {
		beeps <- beep{freq: freq, ms: ms}
		return errors.New("no speaker")
	}

	n.RecordingStarted()
	first := waitFor(t, beeps)
	n.RecordingStopped()
	second := waitFor(t, beeps)

	if first.freq != 600 || first.ms != 200 {
		t.Fatalf("unexpected start tone: %+v", first)
	}
	if second.freq != 800 || second.ms != 200 {
		t.Fatalf("unexpected stop tone: %+v", second)
	}
}

func TestTonesDoNotBlockCaller(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	n := New(true, false, nil)
	n.beep = func(float64, int) error {
		<-release
		return nil
	}

	done := make(chan struct{})
	go func() {
		n.RecordingStarted()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("tone playback blocked the caller")
	}
}

func TestDisabledNotifierIsSilent(t *testing.T) {
	t.Parallel()

	n := New(false, false, nil)
	n.beep = func(float64, int) error {
		t.Errorf("beep should not be called")
		return nil
	}
	n.notify = func(string, string) error {
		t.Errorf("notify should not be called")
		return nil
	}
	n.RecordingStarted()
	n.Message("hello")
	time.Sleep(20 * time.Millisecond)
}

func TestMessageShowsNotification(t *testing.T) {
	t.Parallel()

	messages := make(chan string, 1)
	n := New(false, true, nil)
	n.notify = func(title, message string) error {
		messages <- title + ": " + message
		return nil
	}
	n.Message("API key required")

	if got := waitFor(t, messages); got != "WhisperTyper: API key required" {
		t.Fatalf("unexpected notification: %q", got)
	}
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for value")
	}
	var zero T
	return zero
}
