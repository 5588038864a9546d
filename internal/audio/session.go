package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"whispertyper/internal/ports"
)

// Buffer is the concatenated PCM of one finished recording.
type Buffer struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Empty reports whether no audio frames were captured.
func (b Buffer) Empty() bool {
	return len(b.Samples) == 0
}

func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	frames := len(b.Samples) / b.Channels
	return time.Duration(frames) * time.Second / time.Duration(b.SampleRate)
}

// Session collects frames from one open input device.
type Session struct {
	ID        string
	DeviceID  string
	StartedAt time.Time

	format ports.AudioFormat
	stream ports.AudioStream
	log    *logrus.Entry

	stopped atomic.Bool
	dropped atomic.Int64

	mu     sync.Mutex
	frames [][]int16

	releaseOnce sync.Once
	releaseErr  error
}

func newSession(id string, deviceID string, format ports.AudioFormat, log *logrus.Entry) *Session {
	return &Session{
		ID:        id,
		DeviceID:  deviceID,
		StartedAt: time.Now(),
		format:    format,
		log:       log.WithField("session", id),
	}
}

// AppendFrame runs on the backend callback. It copies the samples because
// backends reuse their buffers, and it never waits on anything but the frame list.
func (s *Session) AppendFrame(frame ports.Frame) {
	if s.stopped.Load() {
		return
	}
	if frame.Channels != s.format.Channels {
		if s.dropped.Add(1) == 1 {
			s.log.WithFields(logrus.Fields{
				"got":  frame.Channels,
				"want": s.format.Channels,
			}).Warn("dropping audio frame with unexpected channel count")
		}
		return
	}
	if len(frame.Samples) == 0 {
		return
	}

	samples := make([]int16, len(frame.Samples))
	copy(samples, frame.Samples)

	s.mu.Lock()
	s.frames = append(s.frames, samples)
	s.mu.Unlock()
}

// Stop ends capture and returns every accepted frame in arrival order.
func (s *Session) Stop() (Buffer, error) {
	s.stopped.Store(true)
	err := s.release()

	s.mu.Lock()
	total := 0
	for _, f := range s.frames {
		total += len(f)
	}
	samples := make([]int16, 0, total)
	for _, f := range s.frames {
		samples = append(samples, f...)
	}
	s.frames = nil
	s.mu.Unlock()

	if n := s.dropped.Load(); n > 0 {
		s.log.WithField("dropped", n).Warn("audio frames were dropped during recording")
	}

	return Buffer{Samples: samples, SampleRate: s.format.SampleRate, Channels: s.format.Channels}, err
}

// Close discards captured audio and releases the device.
func (s *Session) Close() error {
	s.stopped.Store(true)
	return s.release()
}

func (s *Session) release() error {
	s.releaseOnce.Do(func() {
		if s.stream == nil {
			return
		}
		stopErr := s.stream.Stop()
		closeErr := s.stream.Close()
		if err := errors.Join(stopErr, closeErr); err != nil {
			s.releaseErr = fmt.Errorf("release audio device: %w", err)
		}
	})
	return s.releaseErr
}
