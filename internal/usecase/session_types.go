package usecase

import (
	"context"

	"whispertyper/internal/audio"
	"whispertyper/internal/domain"
	"whispertyper/internal/ports"
)

// Recorder opens a capture session on a device ("" for the system default).
type Recorder interface {
	Start(deviceID string) (*audio.Session, error)
}

// DeviceSelection returns the device chosen for this process, or "".
type DeviceSelection interface {
	Selected() string
}

// RecordingSaver persists encoded recordings and returns the written path.
type RecordingSaver interface {
	Save(data []byte) (string, error)
}

// Transcription is the pipeline as seen by the controller.
type Transcription interface {
	Transcribe(ctx context.Context, payload ports.AudioPayload, mode domain.LanguageMode) (domain.TranscriptResult, error)
}

type requestKind int

const (
	requestKey requestKind = iota
	requestStop
	requestLearn
	requestLearnCancel
	requestReconfigure
)

type request struct {
	kind     requestKind
	event    domain.KeyEvent
	learner  *learner
	spec     domain.HotkeySpec
	language domain.LanguageMode
	reply    chan error
}

func (r request) respond(err error) {
	if r.reply != nil {
		r.reply <- err
	}
}

type learner struct {
	result chan domain.LearnResult
}

func newLearner() *learner {
	return &learner{result: make(chan domain.LearnResult, 1)}
}

func (l *learner) finish(result domain.LearnResult) {
	select {
	case l.result <- result:
	default:
	}
}
