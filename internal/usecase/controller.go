package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/sirupsen/logrus"

	"whispertyper/internal/audio"
	"whispertyper/internal/domain"
	"whispertyper/internal/keys"
	"whispertyper/internal/ports"
)

var ErrControllerStopped = errors.New("controller is not running")

// Config controls hotkey matching and loop sizing.
type Config struct {
	Hotkey       domain.HotkeySpec
	Language     domain.LanguageMode
	QueueSize    int
	LearnTimeout time.Duration
}

// Dependencies are the collaborators driven by the controller.
type Dependencies struct {
	Recorder Recorder
	Devices  DeviceSelection
	Store    RecordingSaver
	Pipeline Transcription
	Delivery ports.Deliverer
	Tones    ports.Tones
	Events   ports.EventSink
	Log      *logrus.Entry
}

// Controller is the hold-to-talk state machine. Every transition happens on the
// goroutine running Run; other goroutines talk to it through the request queue.
type Controller struct {
	recorder  Recorder
	devices   DeviceSelection
	tones     ports.Tones
	events    ports.EventSink
	finalizer transcriptFinalizer
	log       *logrus.Entry
	cfg       Config

	requests chan request
	finished chan domain.SessionStateReason
	pool     *workerpool.WorkerPool
	done     chan struct{}

	// Owned by the loop.
	spec             domain.HotkeySpec
	language         domain.LanguageMode
	session          *audio.Session
	startedWithCombo bool
	learner          *learner

	mu     sync.Mutex
	status domain.Status
}

func NewController(deps Dependencies, cfg Config) *Controller {
	if cfg.QueueSize < 8 {
		cfg.QueueSize = 64
	}
	if cfg.LearnTimeout <= 0 {
		cfg.LearnTimeout = 5 * time.Second
	}
	if cfg.Hotkey.Validate() != nil {
		cfg.Hotkey = domain.DefaultHotkey()
	}
	if cfg.Language == "" {
		cfg.Language = domain.LanguageAuto
	}
	log := deps.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "controller")
	tones := deps.Tones
	if tones == nil {
		tones = silentTones{}
	}

	return &Controller{
		recorder: deps.Recorder,
		devices:  deps.Devices,
		tones:    tones,
		events:   deps.Events,
		finalizer: transcriptFinalizer{
			store:    deps.Store,
			pipeline: deps.Pipeline,
			delivery: deps.Delivery,
			events:   deps.Events,
			log:      log,
		},
		log:      log,
		cfg:      cfg,
		requests: make(chan request, cfg.QueueSize),
		finished: make(chan domain.SessionStateReason, 1),
		pool:     workerpool.New(1),
		done:     make(chan struct{}),
		spec:     cfg.Hotkey,
		language: cfg.Language,
		status: domain.Status{
			State:  domain.SessionStateIdle,
			Hotkey: cfg.Hotkey.String(),
		},
	}
}

// Run serves requests until ctx is canceled, then releases any open device,
// cancels a pending learner and waits for in-flight processing.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)

	c.log.WithField("hotkey", c.spec.String()).Info("controller ready")
	c.transition(domain.SessionStateIdle, domain.SessionReasonReady)

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case reason := <-c.finished:
			c.transition(domain.SessionStateIdle, reason)
		case req := <-c.requests:
			c.handle(ctx, req)
		}
	}
}

// HandleKey queues a key event without blocking. It returns false when the
// queue is full and the event was dropped.
func (c *Controller) HandleKey(event domain.KeyEvent) bool {
	select {
	case c.requests <- request{kind: requestKey, event: event}:
		return true
	default:
		c.log.WithField("key", event.Key.Label()).Warn("event queue full, dropping key event")
		c.events.SessionError(domain.ErrorCodeQueueFull, "key event dropped")
		return false
	}
}

// Stop ends the current recording as if the hotkey had been released.
func (c *Controller) Stop(ctx context.Context) error {
	return c.call(ctx, request{kind: requestStop})
}

// Reconfigure replaces the hotkey and language for subsequent matches and calls.
func (c *Controller) Reconfigure(ctx context.Context, spec domain.HotkeySpec, language domain.LanguageMode) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if language == "" {
		language = domain.LanguageAuto
	}
	return c.call(ctx, request{kind: requestReconfigure, spec: spec, language: language})
}

// LearnKey captures the next non-modifier key press. A non-positive timeout
// uses the configured default.
func (c *Controller) LearnKey(ctx context.Context, timeout time.Duration) (domain.LearnResult, error) {
	if timeout <= 0 {
		timeout = c.cfg.LearnTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	l := newLearner()
	if err := c.call(ctx, request{kind: requestLearn, learner: l}); err != nil {
		if ctx.Err() != nil {
			c.post(request{kind: requestLearnCancel, learner: l})
			return learnResultFor(ctx), nil
		}
		return domain.LearnResult{}, err
	}

	select {
	case result := <-l.result:
		return result, nil
	case <-ctx.Done():
		c.post(request{kind: requestLearnCancel, learner: l})
		return learnResultFor(ctx), nil
	case <-c.done:
		return domain.LearnResult{Outcome: domain.LearnCanceled}, nil
	}
}

// Status returns the last published state.
func (c *Controller) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) handle(ctx context.Context, req request) {
	switch req.kind {
	case requestKey:
		c.handleKey(ctx, req.event)
	case requestStop:
		if c.session == nil {
			req.respond(domain.ErrNoActiveSession)
			return
		}
		c.stopRecording(ctx, "stop requested")
		req.respond(nil)
	case requestLearn:
		if c.learner != nil {
			c.learner.finish(domain.LearnResult{Outcome: domain.LearnCanceled})
		}
		c.learner = req.learner
		req.respond(nil)
	case requestLearnCancel:
		if c.learner == req.learner {
			c.learner = nil
		}
		req.respond(nil)
	case requestReconfigure:
		c.spec = req.spec
		c.language = req.language
		c.mu.Lock()
		c.status.Hotkey = req.spec.String()
		c.mu.Unlock()
		c.log.WithFields(logrus.Fields{
			"hotkey":   req.spec.String(),
			"language": string(req.language),
		}).Info("hotkey and language updated")
		req.respond(nil)
	}
}

func (c *Controller) handleKey(ctx context.Context, event domain.KeyEvent) {
	if event.Pressed && c.learner != nil && !event.Key.IsModifier() {
		c.learner.finish(domain.LearnResult{Outcome: domain.LearnCaptured, Key: event.Key.Label()})
		c.learner = nil
		return
	}

	switch c.currentState() {
	case domain.SessionStateIdle:
		// No recording while a key is being learned.
		if c.learner != nil {
			return
		}
		if event.Pressed && keys.MatchPress(event.State, c.spec, event.Key) {
			c.log.WithField("hotkey", c.spec.String()).Info("hotkey pressed")
			c.startRecording()
		}
	case domain.SessionStateRecording:
		if !event.Pressed && c.startedWithCombo && keys.ReleaseStops(c.spec, event.Key) {
			c.stopRecording(ctx, "hotkey released")
		}
	}
}

func (c *Controller) startRecording() {
	device := ""
	if c.devices != nil {
		device = c.devices.Selected()
	}

	var (
		session *audio.Session
		err     error
	)
	if c.recorder == nil {
		err = domain.ErrNoAudioBackend
	} else {
		session, err = c.recorder.Start(device)
	}
	if err != nil {
		c.log.WithError(err).Error("could not start recording")
		c.events.SessionError(domain.CodeFor(err), err.Error())
		c.transition(domain.SessionStateIdle, domain.SessionReasonCaptureFailed)
		return
	}

	c.session = session
	c.startedWithCombo = true
	c.tones.RecordingStarted()
	c.transition(domain.SessionStateRecording, domain.SessionReasonRecordingStarted)
}

func (c *Controller) stopRecording(ctx context.Context, trigger string) {
	session := c.session
	c.session = nil
	c.startedWithCombo = false
	c.tones.RecordingStopped()

	buf, err := session.Stop()
	if err != nil {
		c.log.WithError(err).Warn("audio device did not stop cleanly")
		c.events.SessionError(domain.ErrorCodeAudioStop, err.Error())
	}

	log := c.log.WithFields(logrus.Fields{
		"session":  session.ID,
		"trigger":  trigger,
		"duration": buf.Duration(),
	})
	if buf.Empty() {
		log.Warn("recording stopped with no audio data")
		c.transition(domain.SessionStateIdle, domain.SessionReasonNoAudio)
		return
	}
	log.Info("recording stopped")

	c.transition(domain.SessionStateProcessing, domain.SessionReasonTranscribing)
	language := c.language
	c.pool.Submit(func() {
		c.process(ctx, buf, language)
	})
}

// process runs on the worker pool and always reports back, even on panic.
func (c *Controller) process(ctx context.Context, buf audio.Buffer, language domain.LanguageMode) {
	reason := domain.SessionReasonTranscriptionFailed
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("panic", r).Error("processing panicked")
			c.events.SessionError(domain.ErrorCodeTranscription, fmt.Sprint(r))
			reason = domain.SessionReasonTranscriptionFailed
		}
		c.finished <- reason
	}()
	reason = c.finalizer.Finalize(ctx, buf, language)
}

func (c *Controller) shutdown() {
	if c.session != nil {
		if err := c.session.Close(); err != nil {
			c.log.WithError(err).Warn("closing audio device on shutdown")
		}
		c.session = nil
		c.startedWithCombo = false
	}
	if c.learner != nil {
		c.learner.finish(domain.LearnResult{Outcome: domain.LearnCanceled})
		c.learner = nil
	}
	c.pool.StopWait()
	c.transition(domain.SessionStateIdle, domain.SessionReasonShutdown)
	c.log.Info("controller stopped")
}

func (c *Controller) transition(state domain.SessionState, reason domain.SessionStateReason) {
	c.mu.Lock()
	c.status.State = state
	c.status.Active = state != domain.SessionStateIdle
	c.status.Message = string(reason)
	c.mu.Unlock()
	c.events.SessionStateChanged(state, reason)
}

func (c *Controller) currentState() domain.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.State
}

func (c *Controller) call(ctx context.Context, req request) error {
	req.reply = make(chan error, 1)
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrControllerStopped
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrControllerStopped
	}
}

func (c *Controller) post(req request) {
	select {
	case c.requests <- req:
	default:
	}
}

func learnResultFor(ctx context.Context) domain.LearnResult {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.LearnResult{Outcome: domain.LearnTimedOut}
	}
	return domain.LearnResult{Outcome: domain.LearnCanceled}
}

type silentTones struct{}

func (silentTones) RecordingStarted() {}
func (silentTones) RecordingStopped() {}
