package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"whispertyper/internal/domain"
	"whispertyper/internal/ports"
	"whispertyper/internal/textproc"
)

// authKeywords mark a failed call as a credential problem rather than a transport one.
var authKeywords = []string{"api key", "apikey", "authentication", "인증"}

// Pipeline sends a recording to the transcriber and cleans up the returned text.
type Pipeline struct {
	transcriber ports.Transcriber
	credentials ports.CredentialSource
	normalizer  *textproc.Normalizer
	rules       ports.TextProcessor
	log         *logrus.Entry
	now         func() time.Time
}

// NewPipeline builds a pipeline. rules may be nil.
func NewPipeline(transcriber ports.Transcriber, credentials ports.CredentialSource, rules ports.TextProcessor, log *logrus.Entry) *Pipeline {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "pipeline")
	return &Pipeline{
		transcriber: transcriber,
		credentials: credentials,
		normalizer:  textproc.NewNormalizer(log),
		rules:       rules,
		log:         log,
		now:         time.Now,
	}
}

// Transcribe returns ErrNoAPIKey without calling the service when no key is set.
// Service failures come back wrapped as ErrAuth or ErrNetwork.
func (p *Pipeline) Transcribe(ctx context.Context, payload ports.AudioPayload, mode domain.LanguageMode) (domain.TranscriptResult, error) {
	key := ""
	if p.credentials != nil {
		key = strings.TrimSpace(p.credentials.APIKey())
	}
	if key == "" {
		return domain.TranscriptResult{}, domain.ErrNoAPIKey
	}

	started := p.now()
	raw, err := p.transcriber.Transcribe(ctx, ports.TranscriptionRequest{
		Audio:    payload,
		Language: mode.Hint(),
		APIKey:   key,
	})
	latency := p.now().Sub(started)
	if err != nil {
		classified := classifyFailure(err)
		p.log.WithError(err).WithField("latency", latency).Warn("transcription request failed")
		return domain.TranscriptResult{}, classified
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.TranscriptResult{}, domain.ErrEmptyResult
	}

	text := p.normalizer.Normalize(raw)
	if p.rules != nil && text != "" {
		rewritten, err := p.rules.Apply(text)
		if err != nil {
			p.log.WithError(err).Warn("substitution rules failed, keeping normalized text")
		} else {
			text = strings.TrimSpace(rewritten)
		}
	}
	if text == "" {
		return domain.TranscriptResult{}, domain.ErrEmptyResult
	}

	p.log.WithFields(logrus.Fields{
		"latency":  latency,
		"language": languageField(mode),
		"chars":    len([]rune(text)),
	}).Info("transcription complete")
	return domain.TranscriptResult{Raw: raw, Text: text, Latency: latency}, nil
}

func classifyFailure(err error) error {
	if errors.Is(err, domain.ErrAuth) || errors.Is(err, domain.ErrNoAPIKey) {
		return err
	}
	msg := strings.ToLower(err.Error())
	if lo.SomeBy(authKeywords, func(keyword string) bool { return strings.Contains(msg, keyword) }) {
		return fmt.Errorf("%w: %v", domain.ErrAuth, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
}

func languageField(mode domain.LanguageMode) string {
	if hint := mode.Hint(); hint != "" {
		return hint
	}
	return string(domain.LanguageAuto)
}
