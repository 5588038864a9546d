package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config stores runtime configuration resolved from the environment.
type Config struct {
	Home          string
	Transcription TranscriptionConfig
	Audio         AudioConfig
	Files         FilesConfig
	Rules         RulesConfig
	Log           LogConfig
	Delivery      DeliveryConfig
	Feedback      FeedbackConfig
	Runtime       RuntimeConfig
}

type TranscriptionConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	EnableHTTP2 bool
}

type AudioConfig struct {
	// Backend is portaudio, ffmpeg or none.
	Backend         string
	RecorderCommand string
	InputFormat     string
	InputDevice     string
}

type FilesConfig struct {
	SettingsPath  string
	APIKeyPath    string
	RecordingsDir string
}

type RulesConfig struct {
	Path           string
	IterationLimit int
}

type LogConfig struct {
	Level string
	File  string
}

type DeliveryConfig struct {
	// PasteBackend is robotgo or keybd.
	PasteBackend string
	PasteSettle  time.Duration
	TypeDelay    time.Duration
}

type FeedbackConfig struct {
	Tones         bool
	Notifications bool
}

type RuntimeConfig struct {
	EventQueueSize int
	LearnTimeout   time.Duration
}

// Load resolves configuration from environment variables and sensible defaults.
func Load() (Config, error) {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	home := envOrDefault("WHISPER_HOME", filepath.Join(userHome, ".config", "whispertyper"))
	defaultRules := filepath.Join(home, "substitutions.rules")
	legacyRules := filepath.Join(userHome, ".config", "hypr", "whisper-substitutions.rules")
	rulesPath := strings.TrimSpace(os.Getenv("WHISPER_RULES_FILE"))
	if rulesPath == "" {
		rulesPath = firstExisting(defaultRules, legacyRules)
	}

	cfg := Config{
		Home: home,
		Transcription: TranscriptionConfig{
			APIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			APIBaseURL:  envOrDefault("WHISPER_API_BASE", "https://api.openai.com/v1"),
			Model:       envOrDefault("WHISPER_MODEL", "whisper-1"),
			Timeout:     time.Duration(envOrDefaultInt("WHISPER_REQUEST_TIMEOUT_SEC", 60)) * time.Second,
			MaxRetries:  envOrDefaultInt("WHISPER_MAX_RETRIES", 1),
			EnableHTTP2: envOrDefaultBool("WHISPER_ENABLE_HTTP2", true),
		},
		Audio: AudioConfig{
			Backend:         strings.ToLower(envOrDefault("WHISPER_AUDIO_BACKEND", "portaudio")),
			RecorderCommand: envOrDefault("WHISPER_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("WHISPER_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice: firstNonEmpty(
				os.Getenv("WHISPER_AUDIO_INPUT_DEVICE"),
				os.Getenv("WHISPER_PULSE_SOURCE"),
				"default",
			),
		},
		Files: FilesConfig{
			SettingsPath:  envOrDefault("WHISPER_SETTINGS_FILE", filepath.Join(home, "settings.json")),
			APIKeyPath:    envOrDefault("WHISPER_API_KEY_FILE", filepath.Join(home, "api_key")),
			RecordingsDir: envOrDefault("WHISPER_RECORDINGS_DIR", filepath.Join(home, "recordings")),
		},
		Rules: RulesConfig{
			Path:           rulesPath,
			IterationLimit: envOrDefaultInt("WHISPER_RULE_ITERATION_LIMIT", 30),
		},
		Log: LogConfig{
			Level: envOrDefault("WHISPER_LOG_LEVEL", "info"),
			File:  strings.TrimSpace(os.Getenv("WHISPER_LOG_FILE")),
		},
		Delivery: DeliveryConfig{
			PasteBackend: strings.ToLower(envOrDefault("WHISPER_PASTE_BACKEND", "robotgo")),
			PasteSettle:  time.Duration(firstNonNegativeInt("WHISPER_PASTE_SETTLE_MS", 200)) * time.Millisecond,
			TypeDelay:    time.Duration(firstNonNegativeInt("WHISPER_TYPE_DELAY_MS", 10)) * time.Millisecond,
		},
		Feedback: FeedbackConfig{
			Tones:         envOrDefaultBool("WHISPER_TONES", true),
			Notifications: envOrDefaultBool("WHISPER_NOTIFICATIONS", true),
		},
		Runtime: RuntimeConfig{
			EventQueueSize: envOrDefaultInt("WHISPER_EVENT_QUEUE", 64),
			LearnTimeout:   time.Duration(envOrDefaultInt("WHISPER_LEARN_TIMEOUT_MS", 5000)) * time.Millisecond,
		},
	}

	if cfg.Transcription.Timeout <= 0 {
		cfg.Transcription.Timeout = 60 * time.Second
	}
	if cfg.Transcription.MaxRetries < 0 {
		cfg.Transcription.MaxRetries = 0
	}
	switch cfg.Audio.Backend {
	case "portaudio", "ffmpeg", "none":
	default:
		cfg.Audio.Backend = "portaudio"
	}
	switch cfg.Delivery.PasteBackend {
	case "robotgo", "keybd":
	default:
		cfg.Delivery.PasteBackend = "robotgo"
	}
	if cfg.Rules.IterationLimit <= 0 {
		cfg.Rules.IterationLimit = 30
	}
	if cfg.Runtime.EventQueueSize < 8 {
		cfg.Runtime.EventQueueSize = 64
	}
	if cfg.Runtime.LearnTimeout <= 0 {
		cfg.Runtime.LearnTimeout = 5 * time.Second
	}

	return cfg, nil
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func firstNonNegativeInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
