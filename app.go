package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/wailsapp/wails/v2/pkg/runtime"
	"golang.org/x/sync/errgroup"

	"whispertyper/internal/bootstrap"
	"whispertyper/internal/config"
	"whispertyper/internal/domain"
)

const (
	eventSession    = "whispertyper:session"
	eventFinal      = "whispertyper:final"
	eventError      = "whispertyper:error"
	eventCredential = "whispertyper:credential"
	eventDelivery   = "whispertyper:delivery"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	services bootstrap.Services
	log      *logrus.Entry
	bootErr  error

	cancel  context.CancelFunc
	running *errgroup.Group

	settingsMu sync.Mutex
}

func NewApp() *App {
	return &App{log: logrus.NewEntry(logrus.StandardLogger())}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, &wailsClipboard{})
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}
	a.services = services
	a.log = logrus.NewEntry(services.Logger).WithField("component", "app")

	for _, warning := range services.Warnings {
		a.SessionError(domain.ErrorCodeStartup, warning)
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error { return services.Controller.Run(groupCtx) })
	group.Go(func() error { return services.Listener.Run(groupCtx) })
	a.running = group

	go func() {
		if err := group.Wait(); err != nil {
			a.log.WithError(err).Error("background services stopped")
			a.SessionError(domain.ErrorCodeStartup, err.Error())
		}
	}()

	if services.Credentials.APIKey() == "" {
		a.CredentialRequired(domain.ErrNoAPIKey.Error())
	}
}

func (a *App) shutdown(_ context.Context) {
	if a.cancel == nil {
		return
	}
	a.cancel()
	if err := a.running.Wait(); err != nil {
		a.log.WithError(err).Warn("background services ended with error")
	}
	if err := a.services.Close(); err != nil {
		a.log.WithError(err).Warn("closing services")
	}
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.services.Controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateIdle, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	return a.services.Controller.Status()
}

// StopRecording ends the current recording as if the hotkey were released.
func (a *App) StopRecording() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Controller.Stop(a.ctx)
}

// GetSettings returns the persisted settings record.
func (a *App) GetSettings() (config.Settings, error) {
	if err := a.requireReady(); err != nil {
		return config.DefaultSettings(), err
	}
	return a.services.Settings.Load()
}

// SaveHotkey validates, persists and applies a new hotkey.
func (a *App) SaveHotkey(spec domain.HotkeySpec) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	spec.Key = strings.TrimSpace(spec.Key)
	if err := spec.Validate(); err != nil {
		return domain.Status{}, err
	}

	settings, err := a.updateSettings(func(s config.Settings) config.Settings {
		return s.WithHotkey(spec)
	})
	if err != nil {
		return domain.Status{}, err
	}
	if err := a.services.Controller.Reconfigure(a.ctx, settings.HotkeySpec(), settings.LanguageMode()); err != nil {
		return domain.Status{}, err
	}
	return a.services.Controller.Status(), nil
}

// LearnHotkeyKey waits for the next non-modifier key press.
func (a *App) LearnHotkeyKey() (domain.LearnResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.LearnResult{}, err
	}
	return a.services.Controller.LearnKey(a.ctx, 0)
}

// SetLanguage persists the transcription language. An empty language or
// autoDetection sends no hint.
func (a *App) SetLanguage(language string, autoDetection bool) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	language = strings.ToLower(strings.TrimSpace(language))
	if language != "" && len(language) != 2 {
		return fmt.Errorf("language must be a two-letter code, got %q", language)
	}

	settings, err := a.updateSettings(func(s config.Settings) config.Settings {
		s.Language = language
		s.AutoDetection = autoDetection
		return s
	})
	if err != nil {
		return err
	}
	return a.services.Controller.Reconfigure(a.ctx, settings.HotkeySpec(), settings.LanguageMode())
}

// SetAPIKey stores the transcription API key for this and later runs.
func (a *App) SetAPIKey(key string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.services.Credentials.Set(key); err != nil {
		return err
	}
	a.log.Info("api key updated")
	a.services.Notifier.Message("API key saved")
	return nil
}

// HasAPIKey reports whether a transcription key is configured.
func (a *App) HasAPIKey() bool {
	if a.services.Credentials == nil {
		return false
	}
	return a.services.Credentials.APIKey() != ""
}

// ListDevices re-enumerates audio input devices.
func (a *App) ListDevices() ([]domain.Device, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.services.Inventory.Refresh()
}

// SelectDevice picks the input device for this process lifetime ("" for the system default).
func (a *App) SelectDevice(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Inventory.Select(id)
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}
	if a.services.Controller == nil {
		return map[string]string{}
	}

	cfg := a.services.Config
	keySource := "none"
	switch {
	case a.services.Credentials.FromEnvironment():
		keySource = "environment"
	case a.services.Credentials.APIKey() != "":
		keySource = "file"
	}
	return map[string]string{
		"version":       version,
		"provider":      "OpenAI Whisper",
		"model":         cfg.Transcription.Model,
		"apiBase":       cfg.Transcription.APIBaseURL,
		"apiKey":        keySource,
		"audioBackend":  a.services.Backend.Name(),
		"audioDevice":   deviceLabel(a.services.Inventory.Selected()),
		"pasteBackend":  cfg.Delivery.PasteBackend,
		"rulesFile":     cfg.Rules.Path,
		"settingsFile":  a.services.Settings.Path(),
		"recordingsDir": cfg.Files.RecordingsDir,
		"logFile":       cfg.Log.File,
	}
}

func (a *App) updateSettings(change func(config.Settings) config.Settings) (config.Settings, error) {
	a.settingsMu.Lock()
	defer a.settingsMu.Unlock()

	current, err := a.services.Settings.Load()
	if err != nil {
		a.log.WithError(err).Warn("overwriting unreadable settings")
	}
	next := change(current)
	if err := a.services.Settings.Save(next); err != nil {
		return current, err
	}
	return next, nil
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services.Controller == nil {
		return errors.New("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	a.log.WithFields(logrus.Fields{"state": state, "reason": reason}).Debug("session state changed")
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// FinalTranscript emits final transcript output.
func (a *App) FinalTranscript(raw string, text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventFinal, map[string]string{
		"raw":  raw,
		"text": text,
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	a.log.WithFields(logrus.Fields{"code": code, "detail": detail}).Warn("session error")
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

// CredentialRequired asks the UI for an API key.
func (a *App) CredentialRequired(reason string) {
	a.log.WithField("reason", reason).Warn("api key required")
	if a.services.Notifier != nil {
		a.services.Notifier.Message("An OpenAI API key is required to transcribe")
	}
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventCredential, map[string]string{"reason": reason})
}

// DeliveryReported tells the UI where the transcript ended up.
func (a *App) DeliveryReported(report domain.DeliveryReport) {
	if message := deliveryMessage(report.Outcome); message != "" && a.services.Notifier != nil {
		a.services.Notifier.Message(message)
	}
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventDelivery, map[string]any{
		"outcome": string(report.Outcome),
		"copied":  report.Copied,
		"pasted":  report.Pasted,
		"typed":   report.Typed,
	})
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonReady:
		return "Ready"
	case domain.SessionReasonRecordingStarted:
		return "Recording started"
	case domain.SessionReasonTranscribing:
		return "Recording stopped. Transcribing..."
	case domain.SessionReasonNoAudio:
		return "No audio captured"
	case domain.SessionReasonCaptureFailed:
		return "Microphone could not be opened"
	case domain.SessionReasonTranscriptDelivered:
		return "Transcript delivered"
	case domain.SessionReasonNoTranscript:
		return "No transcript captured"
	case domain.SessionReasonCredentialRequired:
		return "API key required"
	case domain.SessionReasonTranscriptionFailed:
		return "Transcription failed"
	case domain.SessionReasonShutdown:
		return "Stopped"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup problem"
	case domain.ErrorCodeAudioBackend:
		return "No audio backend available"
	case domain.ErrorCodeAudioDevice:
		return "Microphone could not be opened"
	case domain.ErrorCodeAudioStop:
		return "Audio stop issue"
	case domain.ErrorCodeRecordingSave:
		return "Recording could not be saved"
	case domain.ErrorCodeCredential:
		return "API key problem"
	case domain.ErrorCodeTranscription:
		return "Transcription error"
	case domain.ErrorCodeEmptyResult:
		return "Nothing was transcribed"
	case domain.ErrorCodeRules:
		return "Rules processing failed"
	case domain.ErrorCodeDelivery:
		return "Transcript could not be inserted"
	case domain.ErrorCodeQueueFull:
		return "Key events are arriving too fast"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

func deliveryMessage(outcome domain.DeliveryOutcome) string {
	switch outcome {
	case domain.DeliveryClipboardOnly:
		return "Transcript copied to clipboard; paste it manually"
	case domain.DeliveryManual:
		return "Transcript could not be copied; see the log"
	default:
		return ""
	}
}

func deviceLabel(id string) string {
	if id == "" {
		return "default"
	}
	return id
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}
