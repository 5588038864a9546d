package domain

import "errors"

var (
	ErrNoAudioBackend   = errors.New("no audio backend available")
	ErrDeviceOpenFailed = errors.New("audio device could not be opened")
	ErrEmptyAudio       = errors.New("no audio data captured")
	ErrNoAPIKey         = errors.New("api key is not configured")
	ErrAuth             = errors.New("transcription service rejected credentials")
	ErrNetwork          = errors.New("transcription request failed")
	ErrEmptyResult      = errors.New("transcription returned no text")
	ErrInvalidHotkey    = errors.New("hotkey needs at least one modifier or a key")
	ErrNoActiveSession  = errors.New("no active recording session")
)

// CodeFor maps a pipeline or capture error to the code reported to the UI.
func CodeFor(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrNoAudioBackend):
		return ErrorCodeAudioBackend
	case errors.Is(err, ErrDeviceOpenFailed):
		return ErrorCodeAudioDevice
	case errors.Is(err, ErrNoAPIKey), errors.Is(err, ErrAuth):
		return ErrorCodeCredential
	case errors.Is(err, ErrEmptyResult):
		return ErrorCodeEmptyResult
	default:
		return ErrorCodeTranscription
	}
}

// NeedsCredential reports whether err should prompt the user for an API key.
func NeedsCredential(err error) bool {
	return errors.Is(err, ErrNoAPIKey) || errors.Is(err, ErrAuth)
}
