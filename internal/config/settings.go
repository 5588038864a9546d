package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"whispertyper/internal/domain"
)

// Settings is the user-editable record persisted between runs.
type Settings struct {
	Language      string         `json:"language" yaml:"language"`
	AutoDetection bool           `json:"auto_detection" yaml:"auto_detection"`
	Hotkey        HotkeySettings `json:"hotkey" yaml:"hotkey"`
}

type HotkeySettings struct {
	Modifiers ModifierSettings `json:"modifiers" yaml:"modifiers"`
	Key       *string          `json:"key" yaml:"key"`
}

type ModifierSettings struct {
	Ctrl  bool `json:"ctrl" yaml:"ctrl"`
	Shift bool `json:"shift" yaml:"shift"`
	Alt   bool `json:"alt" yaml:"alt"`
}

// DefaultSettings is Korean, no auto detection, Ctrl+Shift+Alt.
func DefaultSettings() Settings {
	return Settings{
		Language: "ko",
		Hotkey: HotkeySettings{
			Modifiers: ModifierSettings{Ctrl: true, Shift: true, Alt: true},
		},
	}
}

// HotkeySpec converts the stored hotkey to the domain value.
func (s Settings) HotkeySpec() domain.HotkeySpec {
	spec := domain.HotkeySpec{
		Ctrl:  s.Hotkey.Modifiers.Ctrl,
		Shift: s.Hotkey.Modifiers.Shift,
		Alt:   s.Hotkey.Modifiers.Alt,
	}
	if s.Hotkey.Key != nil {
		spec.Key = strings.TrimSpace(*s.Hotkey.Key)
	}
	return spec
}

// WithHotkey returns a copy with the hotkey stored.
func (s Settings) WithHotkey(spec domain.HotkeySpec) Settings {
	s.Hotkey.Modifiers = ModifierSettings{Ctrl: spec.Ctrl, Shift: spec.Shift, Alt: spec.Alt}
	s.Hotkey.Key = nil
	if key := strings.TrimSpace(spec.Key); key != "" {
		s.Hotkey.Key = &key
	}
	return s
}

// LanguageMode resolves the hint sent with each transcription.
func (s Settings) LanguageMode() domain.LanguageMode {
	if s.AutoDetection || strings.TrimSpace(s.Language) == "" {
		return domain.LanguageAuto
	}
	return domain.LanguageMode(strings.ToLower(strings.TrimSpace(s.Language)))
}

// SettingsStore loads and saves Settings as JSON or YAML, chosen by file extension.
type SettingsStore struct {
	path string
	mu   sync.Mutex
}

func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{path: path}
}

func (s *SettingsStore) Path() string {
	return s.path
}

// Load returns defaults when the file is missing. Fields absent from the file
// keep their default values, and an invalid hotkey falls back to the default one.
func (s *SettingsStore) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := DefaultSettings()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings %q: %w", s.path, err)
	}

	if err := s.unmarshal(data, &settings); err != nil {
		return DefaultSettings(), fmt.Errorf("parse settings %q: %w", s.path, err)
	}
	if settings.HotkeySpec().Validate() != nil {
		settings.Hotkey = DefaultSettings().Hotkey
	}
	return settings, nil
}

// Save validates the hotkey and writes settings atomically.
func (s *SettingsStore) Save(settings Settings) error {
	if err := settings.HotkeySpec().Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return writeFileAtomic(s.path, data, 0o644)
}

func (s *SettingsStore) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(s.path))
	return ext == ".yaml" || ext == ".yml"
}

func (s *SettingsStore) unmarshal(data []byte, out *Settings) error {
	if s.isYAML() {
		return yaml.Unmarshal(data, out)
	}
	return json.Unmarshal(data, out)
}

func (s *SettingsStore) marshal(settings Settings) ([]byte, error) {
	if s.isYAML() {
		return yaml.Marshal(settings)
	}
	return json.MarshalIndent(settings, "", "  ")
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %q: %w", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %q: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %q: %w", path, err)
	}
	return nil
}
