package ports

import (
	"context"

	"whispertyper/internal/domain"
)

// AudioFormat describes the PCM layout a backend must deliver.
type AudioFormat struct {
	SampleRate int
	Channels   int
}

// Frame is one block of interleaved 16-bit samples from the device callback.
type Frame struct {
	Samples  []int16
	Channels int
}

// AudioStream is an opened input device.
type AudioStream interface {
	Start() error
	Stop() error
	Close() error
}

// AudioBackend enumerates and opens input devices.
type AudioBackend interface {
	Name() string
	Devices() ([]domain.Device, error)
	DefaultDevice() (domain.Device, error)
	// Open must not block inside sink; sink is called from the backend's own goroutine or callback.
	Open(deviceID string, format AudioFormat, sink func(Frame)) (AudioStream, error)
	Close() error
}

// AudioPayload is the encoded recording handed to a transcriber.
type AudioPayload struct {
	Name        string
	ContentType string
	Data        []byte
}

// TranscriptionRequest carries one blocking transcription call.
type TranscriptionRequest struct {
	Audio    AudioPayload
	Language string
	APIKey   string
}

// Transcriber converts recorded audio into raw text.
type Transcriber interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (string, error)
}

// CredentialSource returns the current API key, or "" when none is configured.
type CredentialSource interface {
	APIKey() string
}

// TextProcessor rewrites normalized transcript text.
type TextProcessor interface {
	Apply(text string) (string, error)
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// Paster sends the platform paste shortcut to the focused window.
type Paster interface {
	Paste(ctx context.Context) error
}

// Typer types a single character into the focused window.
type Typer interface {
	TypeRune(r rune) error
}

// Deliverer injects final transcript text into the focused application.
type Deliverer interface {
	Deliver(ctx context.Context, text string) domain.DeliveryReport
}

// Tones plays the short recording start and stop cues without blocking.
type Tones interface {
	RecordingStarted()
	RecordingStopped()
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	FinalTranscript(raw string, text string)
	SessionError(code domain.ErrorCode, detail string)
	CredentialRequired(reason string)
	DeliveryReported(report domain.DeliveryReport)
}
