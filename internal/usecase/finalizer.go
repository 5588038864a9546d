package usecase

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"whispertyper/internal/audio"
	"whispertyper/internal/domain"
	"whispertyper/internal/ports"
)

type transcriptFinalizer struct {
	store    RecordingSaver
	pipeline Transcription
	delivery ports.Deliverer
	events   ports.EventSink
	log      *logrus.Entry
}

// Finalize runs everything after the device is released: persist, transcribe,
// deliver. The returned reason drives the transition back to Idle.
func (f transcriptFinalizer) Finalize(ctx context.Context, buf audio.Buffer, mode domain.LanguageMode) domain.SessionStateReason {
	data, err := audio.EncodeWAV(buf)
	if err != nil {
		f.events.SessionError(domain.ErrorCodeRecordingSave, err.Error())
		return domain.SessionReasonNoAudio
	}

	name := "recording.wav"
	if f.store != nil {
		path, err := f.store.Save(data)
		if err != nil {
			f.log.WithError(err).Warn("could not persist recording")
			f.events.SessionError(domain.ErrorCodeRecordingSave, err.Error())
		} else {
			name = filepath.Base(path)
			f.log.WithField("path", path).Debug("recording saved")
		}
	}

	result, err := f.pipeline.Transcribe(ctx, ports.AudioPayload{Name: name, Data: data}, mode)
	switch {
	case err == nil:
	case domain.NeedsCredential(err):
		f.log.WithError(err).Warn("transcription needs an api key")
		f.events.CredentialRequired(err.Error())
		return domain.SessionReasonCredentialRequired
	case errors.Is(err, domain.ErrEmptyResult):
		f.log.Info("transcription returned no text")
		f.events.SessionError(domain.ErrorCodeEmptyResult, err.Error())
		return domain.SessionReasonNoTranscript
	default:
		f.log.WithError(err).Error("transcription failed")
		f.events.SessionError(domain.CodeFor(err), err.Error())
		return domain.SessionReasonTranscriptionFailed
	}

	f.events.FinalTranscript(result.Raw, result.Text)

	report := f.delivery.Deliver(ctx, result.Text)
	f.events.DeliveryReported(report)
	if report.Outcome == domain.DeliveryManual {
		f.events.SessionError(domain.ErrorCodeDelivery, "transcript could not be copied or pasted")
	}
	return domain.SessionReasonTranscriptDelivered
}
