package audio

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"whispertyper/internal/domain"
	"whispertyper/internal/ports"
)

const (
	SampleRate = 16000
	Channels   = 1
)

// Capture opens recording sessions on an audio backend.
type Capture struct {
	backend ports.AudioBackend
	format  ports.AudioFormat
	log     *logrus.Entry
}

func NewCapture(backend ports.AudioBackend, log *logrus.Entry) *Capture {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Capture{
		backend: backend,
		format:  ports.AudioFormat{SampleRate: SampleRate, Channels: Channels},
		log:     log.WithField("component", "capture"),
	}
}

// Start opens deviceID ("" for the system default) and begins collecting frames.
func (c *Capture) Start(deviceID string) (*Session, error) {
	if c.backend == nil {
		return nil, domain.ErrNoAudioBackend
	}

	session := newSession(uuid.NewString(), deviceID, c.format, c.log)

	stream, err := c.backend.Open(deviceID, c.format, session.AppendFrame)
	if err != nil {
		if errors.Is(err, domain.ErrNoAudioBackend) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrDeviceOpenFailed, err)
	}
	session.stream = stream

	if err := stream.Start(); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrDeviceOpenFailed, err)
	}

	c.log.WithFields(logrus.Fields{
		"session": session.ID,
		"device":  deviceLabel(deviceID),
		"backend": c.backend.Name(),
	}).Info("audio capture started")
	return session, nil
}

func deviceLabel(id string) string {
	if id == "" {
		return "default"
	}
	return id
}
