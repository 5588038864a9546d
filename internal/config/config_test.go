package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"whispertyper/internal/domain"
)

func TestLoadUsesRulesFallbackOrder(t *testing.T) {
	home := t.TempDir()
	ownRules := filepath.Join(home, ".config", "whispertyper", "substitutions.rules")
	hyprRules := filepath.Join(home, ".config", "hypr", "whisper-substitutions.rules")

	if err := os.MkdirAll(filepath.Dir(hyprRules), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(hyprRules, []byte("a => b\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("HOME", home)
	t.Setenv("WHISPER_HOME", "")
	t.Setenv("WHISPER_RULES_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Rules.Path != hyprRules {
		t.Fatalf("expected hypr fallback, got %q", cfg.Rules.Path)
	}

	if err := os.MkdirAll(filepath.Dir(ownRules), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(ownRules, []byte("a => c\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg2, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg2.Rules.Path != ownRules {
		t.Fatalf("expected own rules priority, got %q", cfg2.Rules.Path)
	}
}

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"WHISPER_HOME", "OPENAI_API_KEY", "WHISPER_AUDIO_BACKEND", "WHISPER_PASTE_BACKEND", "WHISPER_LOG_FILE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	base := filepath.Join(home, ".config", "whispertyper")
	if cfg.Home != base {
		t.Fatalf("unexpected home: %s", cfg.Home)
	}
	if cfg.Files.SettingsPath != filepath.Join(base, "settings.json") || cfg.Files.RecordingsDir != filepath.Join(base, "recordings") {
		t.Fatalf("unexpected files: %+v", cfg.Files)
	}
	if cfg.Transcription.Model != "whisper-1" || cfg.Transcription.APIBaseURL != "https://api.openai.com/v1" {
		t.Fatalf("unexpected transcription config: %+v", cfg.Transcription)
	}
	if cfg.Audio.Backend != "portaudio" || cfg.Delivery.PasteBackend != "robotgo" {
		t.Fatalf("unexpected backends: %s %s", cfg.Audio.Backend, cfg.Delivery.PasteBackend)
	}
	if cfg.Delivery.PasteSettle != 200*time.Millisecond || cfg.Delivery.TypeDelay != 10*time.Millisecond {
		t.Fatalf("unexpected delivery timings: %+v", cfg.Delivery)
	}
	if cfg.Runtime.LearnTimeout != 5*time.Second || cfg.Runtime.EventQueueSize != 64 {
		t.Fatalf("unexpected runtime config: %+v", cfg.Runtime)
	}
	if !cfg.Feedback.Tones || !cfg.Feedback.Notifications {
		t.Fatalf("expected feedback enabled by default")
	}
}

func TestLoadRespectsOverrides(t *testing.T) {
	home := t.TempDir()
	rules := filepath.Join(home, "my.rules")

	t.Setenv("HOME", home)
	t.Setenv("WHISPER_HOME", filepath.Join(home, "wt"))
	t.Setenv("OPENAI_API_KEY", " sk-env ")
	t.Setenv("WHISPER_API_BASE", "https://example.com/v1")
	t.Setenv("WHISPER_MODEL", "whisper-large-v3")
	t.Setenv("WHISPER_REQUEST_TIMEOUT_SEC", "15")
	t.Setenv("WHISPER_MAX_RETRIES", "3")
	t.Setenv("WHISPER_ENABLE_HTTP2", "off")
	t.Setenv("WHISPER_AUDIO_BACKEND", "FFMPEG")
	t.Setenv("WHISPER_FFMPEG_COMMAND", "my-ffmpeg")
	t.Setenv("WHISPER_AUDIO_INPUT_FORMAT", "alsa")
	t.Setenv("WHISPER_AUDIO_INPUT_DEVICE", "mic0")
	t.Setenv("WHISPER_RULES_FILE", rules)
	t.Setenv("WHISPER_RULE_ITERATION_LIMIT", "42")
	t.Setenv("WHISPER_LOG_LEVEL", "debug")
	t.Setenv("WHISPER_LOG_FILE", filepath.Join(home, "wt.log"))
	t.Setenv("WHISPER_PASTE_BACKEND", "keybd")
	t.Setenv("WHISPER_PASTE_SETTLE_MS", "50")
	t.Setenv("WHISPER_TYPE_DELAY_MS", "0")
	t.Setenv("WHISPER_TONES", "no")
	t.Setenv("WHISPER_NOTIFICATIONS", "0")
	t.Setenv("WHISPER_EVENT_QUEUE", "16")
	t.Setenv("WHISPER_LEARN_TIMEOUT_MS", "2500")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Files.SettingsPath != filepath.Join(home, "wt", "settings.json") {
		t.Fatalf("WHISPER_HOME not applied: %+v", cfg.Files)
	}
	tr := cfg.Transcription
	if tr.APIKey != "sk-env" || tr.APIBaseURL != "https://example.com/v1" || tr.Model != "whisper-large-v3" {
		t.Fatalf("unexpected transcription config: %+v", tr)
	}
	if tr.Timeout != 15*time.Second || tr.MaxRetries != 3 || tr.EnableHTTP2 {
		t.Fatalf("unexpected transport config: %+v", tr)
	}
	if cfg.Audio.Backend != "ffmpeg" || cfg.Audio.RecorderCommand != "my-ffmpeg" || cfg.Audio.InputFormat != "alsa" || cfg.Audio.InputDevice != "mic0" {
		t.Fatalf("unexpected audio config: %+v", cfg.Audio)
	}
	if cfg.Rules.Path != rules || cfg.Rules.IterationLimit != 42 {
		t.Fatalf("unexpected rules config: %+v", cfg.Rules)
	}
	if cfg.Log.Level != "debug" || !strings.HasSuffix(cfg.Log.File, "wt.log") {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.Delivery.PasteBackend != "keybd" || cfg.Delivery.PasteSettle != 50*time.Millisecond || cfg.Delivery.TypeDelay != 0 {
		t.Fatalf("unexpected delivery config: %+v", cfg.Delivery)
	}
	if cfg.Feedback.Tones || cfg.Feedback.Notifications {
		t.Fatalf("unexpected feedback config: %+v", cfg.Feedback)
	}
	if cfg.Runtime.EventQueueSize != 16 || cfg.Runtime.LearnTimeout != 2500*time.Millisecond {
		t.Fatalf("unexpected runtime config: %+v", cfg.Runtime)
	}
}

func TestLoadInvalidValuesFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WHISPER_REQUEST_TIMEOUT_SEC", "-4")
	t.Setenv("WHISPER_MAX_RETRIES", "-1")
	t.Setenv("WHISPER_AUDIO_BACKEND", "jack")
	t.Setenv("WHISPER_PASTE_BACKEND", "xdotool")
	t.Setenv("WHISPER_RULE_ITERATION_LIMIT", "0")
	t.Setenv("WHISPER_PASTE_SETTLE_MS", "bad")
	t.Setenv("WHISPER_TYPE_DELAY_MS", "-5")
	t.Setenv("WHISPER_EVENT_QUEUE", "2")
	t.Setenv("WHISPER_LEARN_TIMEOUT_MS", "soon")
	t.Setenv("WHISPER_TONES", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Transcription.Timeout != 60*time.Second || cfg.Transcription.MaxRetries != 0 {
		t.Fatalf("unexpected transcription fallbacks: %+v", cfg.Transcription)
	}
	if cfg.Audio.Backend != "portaudio" || cfg.Delivery.PasteBackend != "robotgo" {
		t.Fatalf("unexpected backend fallbacks: %s %s", cfg.Audio.Backend, cfg.Delivery.PasteBackend)
	}
	if cfg.Rules.IterationLimit != 30 {
		t.Fatalf("expected default iteration limit, got %d", cfg.Rules.IterationLimit)
	}
	if cfg.Delivery.PasteSettle != 200*time.Millisecond || cfg.Delivery.TypeDelay != 10*time.Millisecond {
		t.Fatalf("unexpected delivery fallbacks: %+v", cfg.Delivery)
	}
	if cfg.Runtime.EventQueueSize != 64 || cfg.Runtime.LearnTimeout != 5*time.Second {
		t.Fatalf("unexpected runtime fallbacks: %+v", cfg.Runtime)
	}
	if !cfg.Feedback.Tones {
		t.Fatalf("expected tones default true")
	}
}

func TestSettingsStoreDefaultsWhenMissing(t *testing.T) {
	t.Parallel()

	store := NewSettingsStore(filepath.Join(t.TempDir(), "settings.json"))
	settings, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if settings.Language != "ko" || settings.AutoDetection {
		t.Fatalf("unexpected defaults: %+v", settings)
	}
	if settings.HotkeySpec() != domain.DefaultHotkey() {
		t.Fatalf("unexpected default hotkey: %+v", settings.HotkeySpec())
	}
	if settings.LanguageMode() != "ko" {
		t.Fatalf("unexpected language mode: %s", settings.LanguageMode())
	}
}

func TestSettingsStoreReadsLegacyJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "whisperer_settings.json")
	legacy := `{"language": "en", "auto_detection": true, "hotkey": {"modifiers": {"ctrl": true, "shift": false, "alt": false}, "key": "r"}}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	settings, err := NewSettingsStore(path).Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got := settings.HotkeySpec(); got != (domain.HotkeySpec{Ctrl: true, Key: "r"}) {
		t.Fatalf("unexpected hotkey: %+v", got)
	}
	if settings.LanguageMode() != domain.LanguageAuto {
		t.Fatalf("auto detection should win over language, got %s", settings.LanguageMode())
	}
}

func TestSettingsStoreRoundTripJSONAndYAML(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"settings.json", "settings.yaml"} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := NewSettingsStore(filepath.Join(t.TempDir(), "nested", name))
			want := DefaultSettings().WithHotkey(domain.HotkeySpec{Alt: true, Key: "F9"})
			want.Language = "ja"

			if err := store.Save(want); err != nil {
				t.Fatalf("save failed: %v", err)
			}
			got, err := store.Load()
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
			if got.Language != "ja" || got.HotkeySpec() != (domain.HotkeySpec{Alt: true, Key: "F9"}) {
				t.Fatalf("unexpected settings: %+v", got)
			}

			data, _ := os.ReadFile(store.Path())
			if strings.HasSuffix(name, ".yaml") && !strings.Contains(string(data), "auto_detection: false") {
				t.Fatalf("expected yaml output, got %s", data)
			}
			if strings.HasSuffix(name, ".json") && !strings.Contains(string(data), `"auto_detection": false`) {
				t.Fatalf("expected json output, got %s", data)
			}
		})
	}
}

func TestSettingsStoreRejectsInvalidHotkey(t *testing.T) {
	t.Parallel()

	store := NewSettingsStore(filepath.Join(t.TempDir(), "settings.json"))
	err := store.Save(DefaultSettings().WithHotkey(domain.HotkeySpec{}))
	if !errors.Is(err, domain.ErrInvalidHotkey) {
		t.Fatalf("expected ErrInvalidHotkey, got %v", err)
	}
	if _, statErr := os.Stat(store.Path()); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("invalid settings must not be written")
	}
}

func TestSettingsStoreRepairsStoredInvalidHotkey(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"language":"ko","hotkey":{"modifiers":{"ctrl":false,"shift":false,"alt":false},"key":null}}`), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	settings, err := NewSettingsStore(path).Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if settings.HotkeySpec() != domain.DefaultHotkey() {
		t.Fatalf("expected default hotkey, got %+v", settings.HotkeySpec())
	}
}

func TestSettingsStoreCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	settings, err := NewSettingsStore(path).Load()
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if settings.HotkeySpec() != domain.DefaultHotkey() {
		t.Fatalf("corrupt file should still yield defaults")
	}
}

func TestCredentialsPrecedenceAndPersistence(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "api_key")
	if err := os.WriteFile(path, []byte("sk-file\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	creds, err := LoadCredentials("sk-env", path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if creds.APIKey() != "sk-env" || !creds.FromEnvironment() {
		t.Fatalf("environment key should win at startup")
	}

	if err := creds.Set("  sk-new "); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if creds.APIKey() != "sk-new" || creds.FromEnvironment() {
		t.Fatalf("entered key should win after set, got %q", creds.APIKey())
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 key file, got %v", info.Mode().Perm())
	}

	reloaded, err := LoadCredentials("", path)
	if err != nil || reloaded.APIKey() != "sk-new" {
		t.Fatalf("expected persisted key, got %q err=%v", reloaded.APIKey(), err)
	}
	if err := reloaded.Set(" "); err == nil {
		t.Fatalf("expected empty key rejection")
	}
}

func TestCredentialsMissingFile(t *testing.T) {
	t.Parallel()

	creds, err := LoadCredentials("", filepath.Join(t.TempDir(), "none"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if creds.APIKey() != "" {
		t.Fatalf("expected empty key")
	}
}
