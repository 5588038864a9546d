package domain

import "time"

// SessionState models the hold-to-talk lifecycle.
type SessionState string

const (
	SessionStateIdle       SessionState = "idle"
	SessionStateRecording  SessionState = "recording"
	SessionStateProcessing SessionState = "processing"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonReady               SessionStateReason = "ready"
	SessionReasonRecordingStarted    SessionStateReason = "recording_started"
	SessionReasonTranscribing        SessionStateReason = "transcribing"
	SessionReasonNoAudio             SessionStateReason = "no_audio"
	SessionReasonCaptureFailed       SessionStateReason = "capture_failed"
	SessionReasonTranscriptDelivered SessionStateReason = "transcript_delivered"
	SessionReasonNoTranscript        SessionStateReason = "no_transcript"
	SessionReasonCredentialRequired  SessionStateReason = "credential_required"
	SessionReasonTranscriptionFailed SessionStateReason = "transcription_failed"
	SessionReasonShutdown            SessionStateReason = "shutdown"
)

// ErrorCode identifies non-fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup       ErrorCode = "startup"
	ErrorCodeAudioBackend  ErrorCode = "audio_backend"
	ErrorCodeAudioDevice   ErrorCode = "audio_device"
	ErrorCodeAudioStop     ErrorCode = "audio_stop"
	ErrorCodeRecordingSave ErrorCode = "recording_save"
	ErrorCodeCredential    ErrorCode = "credential"
	ErrorCodeTranscription ErrorCode = "transcription"
	ErrorCodeEmptyResult   ErrorCode = "empty_result"
	ErrorCodeRules         ErrorCode = "rules"
	ErrorCodeDelivery      ErrorCode = "delivery"
	ErrorCodeQueueFull     ErrorCode = "queue_full"
)

// LanguageMode is either LanguageAuto or a two-letter language code.
type LanguageMode string

const LanguageAuto LanguageMode = "auto"

// Hint returns the language hint to send, or "" for automatic detection.
func (m LanguageMode) Hint() string {
	if m == LanguageAuto || m == "" {
		return ""
	}
	return string(m)
}

// TranscriptResult is the outcome of one successful transcription.
type TranscriptResult struct {
	Raw     string        `json:"raw"`
	Text    string        `json:"text"`
	Latency time.Duration `json:"latency"`
}

// DeliveryOutcome summarizes where transcript text ended up.
type DeliveryOutcome string

const (
	DeliveryPasted        DeliveryOutcome = "pasted"
	DeliveryClipboardOnly DeliveryOutcome = "clipboard_only"
	DeliveryManual        DeliveryOutcome = "manual"
)

// DeliveryReport records every delivery attempt individually.
type DeliveryReport struct {
	Outcome DeliveryOutcome `json:"outcome"`
	Copied  bool            `json:"copied"`
	Pasted  bool            `json:"pasted"`
	Typed   bool            `json:"typed"`
	Text    string          `json:"text"`
}

// Device is one audio input device.
type Device struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	MaxInputChannels int    `json:"maxInputChannels"`
	Default          bool   `json:"default"`
}

// Status summarizes the current runtime status.
type Status struct {
	State   SessionState `json:"state"`
	Active  bool         `json:"active"`
	Hotkey  string       `json:"hotkey"`
	Message string       `json:"message,omitempty"`
}

// LearnOutcome is how a hotkey learning request ended.
type LearnOutcome string

const (
	LearnCaptured LearnOutcome = "captured"
	LearnTimedOut LearnOutcome = "timed_out"
	LearnCanceled LearnOutcome = "canceled"
)

// LearnResult carries the label of the captured key when Outcome is LearnCaptured.
type LearnResult struct {
	Outcome LearnOutcome `json:"outcome"`
	Key     string       `json:"key,omitempty"`
}
