package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"whispertyper/internal/domain"
	"whispertyper/internal/ports"
)

// Config tunes the timing of synthetic input.
type Config struct {
	// PasteSettle is the pause between writing the clipboard and sending the paste shortcut.
	PasteSettle time.Duration
	TypeDelay   time.Duration
}

// Sink injects transcript text into the focused window.
type Sink struct {
	clipboard ports.Clipboard
	paster    ports.Paster
	typer     ports.Typer
	cfg       Config
	log       *logrus.Entry
	sleep     func(ctx context.Context, d time.Duration)
}

func NewSink(clipboard ports.Clipboard, paster ports.Paster, typer ports.Typer, cfg Config, log *logrus.Entry) *Sink {
	if cfg.PasteSettle < 0 {
		cfg.PasteSettle = 0
	}
	if cfg.TypeDelay < 0 {
		cfg.TypeDelay = 0
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Sink{
		clipboard: clipboard,
		paster:    paster,
		typer:     typer,
		cfg:       cfg,
		log:       log.WithField("component", "delivery"),
		sleep:     sleepCtx,
	}
}

// Deliver tries clipboard, then paste, then per-character typing. Each step is
// attempted independently and reported in the returned DeliveryReport.
func (s *Sink) Deliver(ctx context.Context, text string) domain.DeliveryReport {
	report := domain.DeliveryReport{Text: text}

	if s.clipboard != nil {
		if err := s.clipboard.SetText(ctx, text); err != nil {
			s.log.WithError(err).Warn("clipboard copy failed")
		} else {
			report.Copied = true
		}
	}

	if s.paster != nil {
		s.sleep(ctx, s.cfg.PasteSettle)
		if err := s.paste(ctx); err != nil {
			s.log.WithError(err).Warn("paste shortcut failed, typing text instead")
		} else {
			report.Pasted = true
		}
	}

	if !report.Pasted && s.typer != nil {
		report.Typed = s.typeText(ctx, text)
	}

	switch {
	case report.Pasted:
		report.Outcome = domain.DeliveryPasted
	case report.Copied:
		report.Outcome = domain.DeliveryClipboardOnly
	default:
		report.Outcome = domain.DeliveryManual
		s.log.WithField("text", text).Warn("could not paste or copy transcript, copy it manually")
	}

	s.log.WithFields(logrus.Fields{
		"outcome": report.Outcome,
		"copied":  report.Copied,
		"pasted":  report.Pasted,
		"typed":   report.Typed,
	}).Info("transcript delivered")
	return report
}

func (s *Sink) paste(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("paste panicked: %v", r)
		}
	}()
	return s.paster.Paste(ctx)
}

// typeText reports whether at least one character went through.
func (s *Sink) typeText(ctx context.Context, text string) bool {
	typed := 0
	failed := 0
	for _, r := range text {
		if ctx.Err() != nil {
			break
		}
		if s.typeRune(r) {
			typed++
		} else {
			failed++
		}
		s.sleep(ctx, s.cfg.TypeDelay)
	}
	if failed > 0 {
		s.log.WithFields(logrus.Fields{"typed": typed, "failed": failed}).Warn("some characters could not be typed")
	}
	return typed > 0
}

func (s *Sink) typeRune(r rune) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return s.typer.TypeRune(r) == nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
