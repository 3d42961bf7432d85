package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"meetscribe/internal/domain"
	"meetscribe/internal/ports"
)

var (
	ErrNoActiveSession = errors.New("no active recording session")
	ErrSessionActive   = errors.New("a recording session is already active")
)

// Config controls recording session behavior.
type Config struct {
	Microphone ports.CaptureConfig
	Screen     ports.CaptureConfig

	// Chunk cadence per source. Screen audio uses a shorter cadence and
	// is never relayed in realtime.
	MicChunkInterval    time.Duration
	ScreenChunkInterval time.Duration

	// RelayGrace bounds how long Stop waits for the relay to drain.
	RelayGrace time.Duration

	// TickInterval is the elapsed-time display cadence.
	TickInterval time.Duration
}

// SessionController owns the singleton recording session and drives it
// through the idle → awaiting permission → recording → stopping →
// uploading → completed lifecycle.
type SessionController struct {
	capture   ports.CaptureSource
	relay     ports.RealtimeRelay
	processor ports.Processor
	store     ports.RecordingStore
	events    ports.EventSink
	cfg       Config

	mu      sync.Mutex
	current *activeSession
}

func NewSessionController(
	captureSource ports.CaptureSource,
	relay ports.RealtimeRelay,
	processor ports.Processor,
	store ports.RecordingStore,
	events ports.EventSink,
	cfg Config,
) *SessionController {
	if cfg.MicChunkInterval <= 0 {
		cfg.MicChunkInterval = 2 * time.Second
	}
	if cfg.ScreenChunkInterval <= 0 {
		cfg.ScreenChunkInterval = time.Second
	}
	if cfg.RelayGrace <= 0 {
		cfg.RelayGrace = 4 * time.Second
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &SessionController{
		capture:   captureSource,
		relay:     relay,
		processor: processor,
		store:     store,
		events:    events,
		cfg:       cfg,
	}
}

// Start begins a new recording session. Only one session may be active
// at a time; a second start is rejected rather than queued.
func (c *SessionController) Start(ctx context.Context, recCfg domain.RecordingConfig) error {
	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.mu.Unlock()

	c.events.SessionStateChanged(domain.SessionStateAwaitingPermission, domain.SessionReasonPermissionRequested)

	sessionCtx, cancel := context.WithCancel(ctx)

	captureCfg, chunkInterval := c.captureSettings(recCfg.AudioSource)
	captureSession, err := c.capture.Start(sessionCtx, captureCfg)
	if err != nil {
		cancel()
		code, reason := classifyCaptureError(err)
		c.events.SessionError(code, err.Error())
		c.events.SessionStateChanged(domain.SessionStateIdle, reason)
		return err
	}

	// Screen audio is not relayed in realtime; the legacy flow only
	// streams microphone chunks.
	var relaySession ports.RelaySession
	if recCfg.Realtime && recCfg.AudioSource == domain.AudioSourceMicrophone && c.relay != nil {
		relaySession, err = c.relay.Connect(sessionCtx, recCfg.Language)
		if err != nil {
			c.events.SessionError(domain.ErrorCodeRelay, fmt.Sprintf("realtime relay unavailable: %v", err))
			relaySession = nil
		}
	}

	active := &activeSession{
		cancel:     cancel,
		capture:    captureSession,
		relay:      relaySession,
		config:     recCfg,
		startedAt:  time.Now(),
		buffer:     newChunkBuffer(),
		reconciler: newTranscriptReconciler(),
		state:      domain.SessionStateRecording,
		pumpDone:   make(chan struct{}),
		relayDone:  make(chan struct{}),
		tickerStop: make(chan struct{}),
		tickerDone: make(chan struct{}),
	}

	c.mu.Lock()
	c.current = active
	c.mu.Unlock()

	chunkSize := chunkSizeFor(captureCfg, chunkInterval)
	go pumpCaptureChunks(active.capture, active.relay, active.buffer, chunkSize, c.events, active.pumpDone)
	go c.runTicker(active)
	go c.consumeRelayEvents(active)

	c.events.SessionStateChanged(domain.SessionStateRecording, domain.SessionReasonRecordingStarted)
	return nil
}

// Stop ends the active session, uploads the captured audio, and returns
// the final transcript once processing completes.
func (c *SessionController) Stop(ctx context.Context) (domain.StopResult, error) {
	active, err := c.getCurrent()
	if err != nil {
		return domain.StopResult{}, err
	}

	active.setState(domain.SessionStateStopping)
	c.events.SessionStateChanged(domain.SessionStateStopping, domain.SessionReasonStopRequested)

	// Cancel the timer before anything else so elapsed time freezes at
	// the moment stop was issued.
	elapsed := active.freezeElapsed()
	active.stopTicker()
	active.reconciler.SetElapsed(elapsed)

	if err := active.capture.Stop(); err != nil {
		c.events.SessionError(domain.ErrorCodeCaptureStop, "failed to stop audio capture cleanly")
	}
	<-active.pumpDone

	if active.relay != nil {
		_ = active.relay.SendStop()
		if relayErr := waitForRelay(active.relay, c.cfg.RelayGrace); relayErr != nil {
			c.events.SessionError(domain.ErrorCodeRelay, relayErr.Error())
		}
		<-active.relayDone
		if dropped := active.relay.Dropped(); dropped > 0 {
			c.events.SessionError(domain.ErrorCodeRelay, fmt.Sprintf("relay queue overflow: %d chunks not streamed", dropped))
		}
	}

	blob := active.buffer.Bytes()
	if len(blob) == 0 {
		c.events.SessionError(domain.ErrorCodeCaptureStop, "no audio captured")
		c.finishSession(active, domain.SessionStateError, domain.SessionReasonProcessingFailed)
		return domain.StopResult{}, errors.New("no audio captured")
	}

	active.setState(domain.SessionStateUploading)
	c.events.SessionStateChanged(domain.SessionStateUploading, domain.SessionReasonProcessing)

	filename := fmt.Sprintf("recording_%d.pcm", active.startedAt.UnixMilli())
	stream, err := c.processor.ProcessStream(ctx, bytes.NewReader(blob), filename, active.config)
	if err != nil {
		c.events.SessionError(domain.ErrorCodeNetwork, err.Error())
		c.finishSession(active, domain.SessionStateError, domain.SessionReasonProcessingFailed)
		return domain.StopResult{}, err
	}

	if err := c.consumeProcessingStream(active, stream); err != nil {
		c.finishSession(active, domain.SessionStateError, domain.SessionReasonProcessingFailed)
		return domain.StopResult{}, err
	}

	result := domain.StopResult{
		Transcript:      active.reconciler.View(),
		DurationSeconds: elapsed,
	}

	transcript := active.reconciler.FinalText()
	id, saveErr := c.store.Save(ctx, active.config.Title, active.config.Language, transcript)
	if saveErr != nil {
		c.events.SessionError(domain.ErrorCodeSave, saveErr.Error())
	} else {
		result.Saved = true
		result.RecordingID = id
		c.events.HistoryChanged()
	}

	c.finishSession(active, domain.SessionStateCompleted, domain.SessionReasonTranscriptReady)
	return result, nil
}

// Abort cancels and discards the active session without uploading.
func (c *SessionController) Abort() error {
	active, err := c.getCurrent()
	if err != nil {
		return err
	}

	active.stopTicker()
	active.cancel()
	_ = active.capture.Stop()
	<-active.pumpDone
	if active.relay != nil {
		_ = active.relay.Close()
		<-active.relayDone
	}

	c.finishSession(active, domain.SessionStateIdle, domain.SessionReasonRecordingDiscarded)
	return nil
}

// Status returns the current session status.
func (c *SessionController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	state := c.current.getState()
	return domain.Status{State: state, Active: true}
}

func (c *SessionController) getCurrent() (*activeSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, ErrNoActiveSession
	}
	return c.current, nil
}

func (c *SessionController) finishSession(active *activeSession, state domain.SessionState, reason domain.SessionStateReason) {
	active.cancel()
	active.setState(state)

	c.mu.Lock()
	if c.current == active {
		c.current = nil
	}
	c.mu.Unlock()

	c.events.SessionStateChanged(state, reason)
}

// runTicker drives the 1 Hz elapsed-time display updates.
func (c *SessionController) runTicker(active *activeSession) {
	defer close(active.tickerDone)

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-active.tickerStop:
			return
		case <-ticker.C:
			c.events.RecordingTick(int(time.Since(active.startedAt) / time.Second))
		}
	}
}

// consumeRelayEvents feeds realtime socket snapshots through the
// reconciler while recording. A transcript_final from the socket is
// treated as one more snapshot: completion is owned by the upload path.
func (c *SessionController) consumeRelayEvents(active *activeSession) {
	defer close(active.relayDone)

	if active.relay == nil {
		return
	}

	for event := range active.relay.Events() {
		switch event.Kind {
		case domain.StreamEventUpdate, domain.StreamEventDone:
			update := domain.StreamEvent{
				Kind:     domain.StreamEventUpdate,
				Text:     event.Text,
				Segments: event.Segments,
			}
			c.events.TranscriptUpdated(active.reconciler.Apply(update))
		case domain.StreamEventError:
			c.events.SessionError(domain.ErrorCodeRelay, event.Message)
		}
	}
}

// consumeProcessingStream applies upload stream events until the
// terminal done event. A missing terminal event is a protocol error.
func (c *SessionController) consumeProcessingStream(active *activeSession, stream <-chan domain.StreamEvent) error {
	doneSeen := false
	for event := range stream {
		switch event.Kind {
		case domain.StreamEventStatus:
			continue
		case domain.StreamEventUpdate:
			c.events.TranscriptUpdated(active.reconciler.Apply(event))
		case domain.StreamEventDone:
			c.events.TranscriptUpdated(active.reconciler.Apply(event))
			doneSeen = true
		case domain.StreamEventError:
			code := domain.ErrorCodeServer
			if event.Status == "protocol" {
				code = domain.ErrorCodeProtocol
			}
			c.events.SessionError(code, event.Message)
			return errors.New(event.Message)
		}
	}

	if !doneSeen {
		message := "processing stream ended without completion"
		c.events.SessionError(domain.ErrorCodeProtocol, message)
		return errors.New(message)
	}
	return nil
}

func (c *SessionController) captureSettings(source domain.AudioSource) (ports.CaptureConfig, time.Duration) {
	if source == domain.AudioSourceScreen {
		return c.cfg.Screen, c.cfg.ScreenChunkInterval
	}
	return c.cfg.Microphone, c.cfg.MicChunkInterval
}

// chunkSizeFor converts a chunk cadence into a byte count for 16-bit PCM.
func chunkSizeFor(cfg ports.CaptureConfig, interval time.Duration) int {
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	channels := cfg.Channels
	if channels <= 0 {
		channels = 1
	}
	bytesPerSecond := sampleRate * channels * 2
	size := int(int64(bytesPerSecond) * int64(interval) / int64(time.Second))
	if size < 256 {
		size = 4096
	}
	return size
}

func classifyCaptureError(err error) (domain.ErrorCode, domain.SessionStateReason) {
	switch {
	case errors.Is(err, domain.ErrNoAudioTrack):
		return domain.ErrorCodeNoAudioTrack, domain.SessionReasonNoAudioTrack
	default:
		return domain.ErrorCodePermission, domain.SessionReasonPermissionDenied
	}
}
