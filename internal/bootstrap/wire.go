package bootstrap

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"whispertyper/internal/audio"
	"whispertyper/internal/config"
	"whispertyper/internal/delivery"
	"whispertyper/internal/input"
	"whispertyper/internal/keys"
	"whispertyper/internal/logging"
	"whispertyper/internal/notify"
	"whispertyper/internal/ports"
	"whispertyper/internal/providers/openai"
	"whispertyper/internal/textproc"
	"whispertyper/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Config      config.Config
	Logger      *logrus.Logger
	Controller  *usecase.Controller
	Listener    *input.Listener
	Inventory   *audio.Inventory
	Backend     ports.AudioBackend
	Settings    *config.SettingsStore
	Credentials *config.Credentials
	Notifier    *notify.Notifier

	// Warnings are non-fatal startup problems worth showing to the user.
	Warnings []string

	closers []io.Closer
}

// Close releases the audio backend and flushes the log file.
func (s Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink, fallbackClipboard ports.Clipboard) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	logger, logCloser, err := logging.New(logging.Settings{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return Services{}, err
	}
	log := logrus.NewEntry(logger)
	services := Services{Config: cfg, Logger: logger, closers: []io.Closer{logCloser}}
	warn := func(err error, msg string) {
		log.WithError(err).Warn(msg)
		services.Warnings = append(services.Warnings, fmt.Sprintf("%s: %v", msg, err))
	}

	settingsStore := config.NewSettingsStore(cfg.Files.SettingsPath)
	settings, err := settingsStore.Load()
	if err != nil {
		warn(err, "settings unreadable, using defaults")
	}

	credentials, err := config.LoadCredentials(cfg.Transcription.APIKey, cfg.Files.APIKeyPath)
	if err != nil {
		warn(err, "api key file unreadable")
	}

	var rules ports.TextProcessor
	substitutions, err := textproc.LoadSubstitutions(cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		warn(err, "substitution rules ignored")
	} else {
		rules = substitutions
		log.WithFields(logrus.Fields{"path": cfg.Rules.Path, "rules": substitutions.Len()}).Debug("substitution rules loaded")
	}

	backend, err := newAudioBackend(cfg.Audio)
	if err != nil {
		warn(err, "audio capture unavailable")
	}
	services.closers = append(services.closers, backend)

	inventory := audio.NewInventory(backend, log)
	notifier := notify.New(cfg.Feedback.Tones, cfg.Feedback.Notifications, log)

	provider := openai.NewProvider(openai.Config{
		APIBaseURL:  cfg.Transcription.APIBaseURL,
		Model:       cfg.Transcription.Model,
		Timeout:     cfg.Transcription.Timeout,
		MaxRetries:  cfg.Transcription.MaxRetries,
		EnableHTTP2: cfg.Transcription.EnableHTTP2,
	}, log)

	typer := delivery.RobotgoInput{}
	sink := delivery.NewSink(
		delivery.SystemClipboard{Fallback: fallbackClipboard},
		newPaster(cfg.Delivery.PasteBackend, typer),
		typer,
		delivery.Config{PasteSettle: cfg.Delivery.PasteSettle, TypeDelay: cfg.Delivery.TypeDelay},
		log,
	)

	controller := usecase.NewController(usecase.Dependencies{
		Recorder: audio.NewCapture(backend, log),
		Devices:  inventory,
		Store:    audio.NewRecordingStore(cfg.Files.RecordingsDir),
		Pipeline: usecase.NewPipeline(provider, credentials, rules, log),
		Delivery: sink,
		Tones:    notifier,
		Events:   eventSink,
		Log:      log,
	}, usecase.Config{
		Hotkey:       settings.HotkeySpec(),
		Language:     settings.LanguageMode(),
		QueueSize:    cfg.Runtime.EventQueueSize,
		LearnTimeout: cfg.Runtime.LearnTimeout,
	})

	services.Controller = controller
	services.Listener = input.NewListener(keys.NewTracker(), controller, log)
	services.Inventory = inventory
	services.Backend = backend
	services.Settings = settingsStore
	services.Credentials = credentials
	services.Notifier = notifier

	log.WithFields(logrus.Fields{
		"audio":    backend.Name(),
		"model":    cfg.Transcription.Model,
		"hotkey":   settings.HotkeySpec().String(),
		"language": string(settings.LanguageMode()),
		"paste":    cfg.Delivery.PasteBackend,
	}).Info("services ready")
	return services, nil
}

// newAudioBackend always returns a usable backend. When the requested one cannot
// start, the unavailable backend is returned with the reason.
func newAudioBackend(cfg config.AudioConfig) (ports.AudioBackend, error) {
	switch cfg.Backend {
	case "none":
		return audio.UnavailableBackend{Reason: "disabled by WHISPER_AUDIO_BACKEND"}, nil
	case "ffmpeg":
		return audio.NewFFMPEGBackend(cfg.RecorderCommand, cfg.InputFormat, cfg.InputDevice), nil
	default:
		backend, err := audio.NewPortAudioBackend()
		if err != nil {
			return audio.UnavailableBackend{Reason: err.Error()}, err
		}
		return backend, nil
	}
}

func newPaster(name string, robot delivery.RobotgoInput) ports.Paster {
	if name == "keybd" {
		return delivery.KeybdPaster{}
	}
	return robot
}
