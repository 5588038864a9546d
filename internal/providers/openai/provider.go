package openai

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	oai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"

	"whispertyper/internal/domain"
	"whispertyper/internal/ports"
)

// Config controls the Whisper-compatible transcription endpoint.
type Config struct {
	APIBaseURL  string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	EnableHTTP2 bool
}

// Provider posts recordings to an OpenAI-compatible /audio/transcriptions endpoint.
type Provider struct {
	client oai.Client
	model  string
	log    *logrus.Entry
}

func NewProvider(cfg Config, log *logrus.Entry) *Provider {
	if cfg.Model == "" {
		cfg.Model = string(oai.AudioModelWhisper1)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "openai")

	opts := []option.RequestOption{
		option.WithHTTPClient(newHTTPClient(cfg.Timeout, cfg.EnableHTTP2, log)),
		option.WithMaxRetries(max(cfg.MaxRetries, 0)),
		// The key is supplied per request so a key saved at runtime takes effect immediately.
		option.WithAPIKey(""),
	}
	if cfg.APIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.APIBaseURL, "/")+"/"))
	}

	return &Provider{
		client: oai.NewClient(opts...),
		model:  cfg.Model,
		log:    log,
	}
}

// Transcribe sends one recording and returns the raw text.
func (p *Provider) Transcribe(ctx context.Context, req ports.TranscriptionRequest) (string, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return "", domain.ErrNoAPIKey
	}

	contentType := req.Audio.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(req.Audio.Data).String()
	}
	name := req.Audio.Name
	if name == "" {
		name = "recording.wav"
	}

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(req.Audio.Data), name, contentType),
		Model: oai.AudioModel(p.model),
	}
	if req.Language != "" {
		params.Language = oai.String(req.Language)
	}

	p.log.WithFields(logrus.Fields{
		"model":    p.model,
		"language": languageLabel(req.Language),
		"bytes":    len(req.Audio.Data),
		"type":     contentType,
	}).Debug("sending transcription request")

	res, err := p.client.Audio.Transcriptions.New(ctx, params, option.WithAPIKey(req.APIKey))
	if err != nil {
		var apiErr *oai.Error
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			return "", fmt.Errorf("%w: %v", domain.ErrAuth, err)
		}
		return "", err
	}
	return res.Text, nil
}

func newHTTPClient(timeout time.Duration, enableHTTP2 bool, log *logrus.Entry) *http.Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}
	if enableHTTP2 {
		configureHTTP2(tr, log)
	}
	return &http.Client{Transport: tr, Timeout: timeout}
}

// configureHTTP2 reports whether h2 was enabled. On failure the transport stays on HTTP/1.1.
func configureHTTP2(tr *http.Transport, log *logrus.Entry) bool {
	if err := http2.ConfigureTransport(tr); err != nil {
		log.WithError(err).Warn("http2 setup failed, using http/1.1")
		return false
	}
	return true
}

func languageLabel(lang string) string {
	if lang == "" {
		return "auto"
	}
	return lang
}
