package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"whispertyper/internal/domain"
)

func TestBuildSuccess(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("WHISPER_HOME", "")
	t.Setenv("WHISPER_AUDIO_BACKEND", "none")
	t.Setenv("WHISPER_LOG_FILE", "")
	t.Setenv("OPENAI_API_KEY", "test-key")

	services, err := Build(noopEventSink{}, noopClipboard{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer services.Close()

	if services.Controller == nil || services.Listener == nil || services.Inventory == nil {
		t.Fatalf("expected controller, listener and inventory")
	}
	if services.Backend.Name() != "none" {
		t.Fatalf("unexpected backend: %s", services.Backend.Name())
	}
	if len(services.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", services.Warnings)
	}
	if services.Credentials.APIKey() != "test-key" {
		t.Fatalf("expected env api key")
	}
	if got := services.Controller.Status().Hotkey; got != "Ctrl+Shift+Alt" {
		t.Fatalf("expected default hotkey, got %s", got)
	}
	if _, err := services.Inventory.Refresh(); !errors.Is(err, domain.ErrNoAudioBackend) {
		t.Fatalf("expected ErrNoAudioBackend from disabled backend, got %v", err)
	}
}

func TestBuildUsesStoredSettings(t *testing.T) {
	home := t.TempDir()
	settings := filepath.Join(home, "settings.json")
	if err := os.WriteFile(settings, []byte(`{"language":"en","auto_detection":false,"hotkey":{"modifiers":{"ctrl":true,"shift":false,"alt":false},"key":"r"}}`), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("HOME", home)
	t.Setenv("WHISPER_AUDIO_BACKEND", "none")
	t.Setenv("WHISPER_SETTINGS_FILE", settings)

	services, err := Build(noopEventSink{}, noopClipboard{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer services.Close()

	if got := services.Controller.Status().Hotkey; got != "Ctrl+R" {
		t.Fatalf("expected stored hotkey, got %s", got)
	}
}

func TestBuildWarnsOnInvalidRules(t *testing.T) {
	home := t.TempDir()
	rules := filepath.Join(home, "bad.rules")
	if err := os.WriteFile(rules, []byte("not a valid rule\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("HOME", home)
	t.Setenv("WHISPER_AUDIO_BACKEND", "none")
	t.Setenv("WHISPER_RULES_FILE", rules)

	services, err := Build(noopEventSink{}, noopClipboard{})
	if err != nil {
		t.Fatalf("invalid rules must not fail startup: %v", err)
	}
	defer services.Close()

	if len(services.Warnings) != 1 || !strings.Contains(services.Warnings[0], "substitution rules ignored") {
		t.Fatalf("expected rules warning, got %v", services.Warnings)
	}
}

type noopEventSink struct{}

func (noopEventSink) SessionStateChanged(domain.SessionState, domain.SessionStateReason) {}
func (noopEventSink) FinalTranscript(string, string)                                     {}
func (noopEventSink) SessionError(domain.ErrorCode, string)                              {}
func (noopEventSink) CredentialRequired(string)                                          {}
func (noopEventSink) DeliveryReported(domain.DeliveryReport)                             {}

type noopClipboard struct{}

func (noopClipboard) SetText(context.Context, string) error { return nil }
