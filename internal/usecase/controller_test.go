package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"meetscribe/internal/domain"
	"meetscribe/internal/ports"
)

func micConfig(realtime bool) domain.RecordingConfig {
	return domain.RecordingConfig{
		Title:       "standup",
		Language:    "en",
		AudioSource: domain.AudioSourceMicrophone,
		Realtime:    realtime,
	}
}

func TestSessionControllerStartStopSuccess(t *testing.T) {
	t.Parallel()

	captureSession := &fakeCaptureSession{chunks: [][]byte{[]byte("abc")}}
	processor := newFakeProcessor(
		domain.StreamEvent{Kind: domain.StreamEventUpdate, Text: "hello"},
		domain.StreamEvent{Kind: domain.StreamEventUpdate, Text: "hello world"},
		domain.StreamEvent{Kind: domain.StreamEventDone},
	)
	store := &fakeStore{saveID: "rec-1"}
	events := &fakeEventSink{}

	controller := NewSessionController(
		&fakeCaptureSource{sessions: []ports.CaptureSession{captureSession}},
		nil,
		processor,
		store,
		events,
		Config{},
	)

	if err := controller.Start(context.Background(), micConfig(false)); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	result, err := controller.Stop(context.Background())
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	if result.Transcript.Text != "hello world" {
		t.Fatalf("unexpected transcript: %+v", result.Transcript)
	}
	if !result.Transcript.Final {
		t.Fatalf("expected final transcript view")
	}
	if !result.Saved || result.RecordingID != "rec-1" {
		t.Fatalf("expected saved result, got %+v", result)
	}

	if store.saveCalls != 1 || store.lastTranscript != "hello world" {
		t.Fatalf("unexpected save: calls=%d transcript=%q", store.saveCalls, store.lastTranscript)
	}
	if store.lastTitle != "standup" || store.lastLanguage != "en" {
		t.Fatalf("unexpected save metadata: %q %q", store.lastTitle, store.lastLanguage)
	}

	if processor.lastBlob != "abc" {
		t.Fatalf("expected uploaded blob to match captured chunks, got %q", processor.lastBlob)
	}

	if events.historyRefreshes() != 1 {
		t.Fatalf("expected history refresh after save")
	}

	states := events.snapshotStates()
	wantOrder := []domain.SessionState{
		domain.SessionStateAwaitingPermission,
		domain.SessionStateRecording,
		domain.SessionStateStopping,
		domain.SessionStateUploading,
		domain.SessionStateCompleted,
	}
	if len(states) != len(wantOrder) {
		t.Fatalf("unexpected transition count: %+v", states)
	}
	for i, want := range wantOrder {
		if states[i].state != want {
			t.Fatalf("transition %d: expected %s, got %s", i, want, states[i].state)
		}
	}

	if controller.Status().State != domain.SessionStateIdle {
		t.Fatalf("expected idle after completion")
	}
}

func TestSessionControllerRejectsSecondStart(t *testing.T) {
	t.Parallel()

	captureSession := &fakeCaptureSession{chunks: [][]byte{[]byte("abc")}}
	controller := NewSessionController(
		&fakeCaptureSource{sessions: []ports.CaptureSession{captureSession}},
		nil,
		newFakeProcessor(),
		&fakeStore{},
		&fakeEventSink{},
		Config{},
	)

	if err := controller.Start(context.Background(), micConfig(false)); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := controller.Start(context.Background(), micConfig(false)); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
}

func TestSessionControllerScreenWithoutAudioTrackReturnsToIdle(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	controller := NewSessionController(
		&fakeCaptureSource{err: domain.ErrNoAudioTrack},
		nil,
		newFakeProcessor(),
		&fakeStore{},
		events,
		Config{},
	)

	cfg := micConfig(false)
	cfg.AudioSource = domain.AudioSourceScreen
	err := controller.Start(context.Background(), cfg)
	if !errors.Is(err, domain.ErrNoAudioTrack) {
		t.Fatalf("expected no-audio-track error, got %v", err)
	}

	states := events.snapshotStates()
	last := states[len(states)-1]
	if last.state != domain.SessionStateIdle || last.reason != domain.SessionReasonNoAudioTrack {
		t.Fatalf("expected idle/no_audio_track, got %+v", last)
	}

	errs := events.snapshotErrors()
	if len(errs) == 0 || errs[0].code != domain.ErrorCodeNoAudioTrack {
		t.Fatalf("expected no-audio-track error event")
	}

	if controller.Status().Active {
		t.Fatalf("no session artifacts may persist after permission failure")
	}
}

func TestSessionControllerPermissionDeniedReturnsToIdle(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	controller := NewSessionController(
		&fakeCaptureSource{err: domain.ErrPermissionDenied},
		nil,
		newFakeProcessor(),
		&fakeStore{},
		events,
		Config{},
	)

	if err := controller.Start(context.Background(), micConfig(false)); err == nil {
		t.Fatalf("expected permission error")
	}

	states := events.snapshotStates()
	last := states[len(states)-1]
	if last.state != domain.SessionStateIdle || last.reason != domain.SessionReasonPermissionDenied {
		t.Fatalf("expected idle/permission_denied, got %+v", last)
	}
}

func TestSessionControllerStopCancelsTicker(t *testing.T) {
	t.Parallel()

	captureSession := &fakeCaptureSession{chunks: [][]byte{[]byte("abc")}}
	processor := newFakeProcessor(domain.StreamEvent{Kind: domain.StreamEventDone, Text: "x"})
	events := &fakeEventSink{}

	controller := NewSessionController(
		&fakeCaptureSource{sessions: []ports.CaptureSession{captureSession}},
		nil,
		processor,
		&fakeStore{},
		events,
		Config{TickInterval: 5 * time.Millisecond},
	)

	if err := controller.Start(context.Background(), micConfig(false)); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	time.Sleep(25 * time.Millisecond)

	if _, err := controller.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	ticksAtStop := events.tickCount()
	time.Sleep(30 * time.Millisecond)
	if got := events.tickCount(); got != ticksAtStop {
		t.Fatalf("ticker fired after stop: %d -> %d", ticksAtStop, got)
	}
}

func TestSessionControllerStreamErrorEntersErrorState(t *testing.T) {
	t.Parallel()

	captureSession := &fakeCaptureSession{chunks: [][]byte{[]byte("abc")}}
	processor := newFakeProcessor(
		domain.StreamEvent{Kind: domain.StreamEventUpdate, Text: "partial"},
		domain.StreamEvent{Kind: domain.StreamEventError, Message: "whisper crashed"},
	)
	store := &fakeStore{}
	events := &fakeEventSink{}

	controller := NewSessionController(
		&fakeCaptureSource{sessions: []ports.CaptureSession{captureSession}},
		nil,
		processor,
		store,
		events,
		Config{},
	)

	if err := controller.Start(context.Background(), micConfig(false)); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	_, err := controller.Stop(context.Background())
	if err == nil || err.Error() != "whisper crashed" {
		t.Fatalf("expected server error, got %v", err)
	}

	states := events.snapshotStates()
	last := states[len(states)-1]
	if last.state != domain.SessionStateError || last.reason != domain.SessionReasonProcessingFailed {
		t.Fatalf("expected error/processing_failed, got %+v", last)
	}
	if store.saveCalls != 0 {
		t.Fatalf("failed session must not be saved")
	}
}

func TestSessionControllerProtocolErrorCode(t *testing.T) {
	t.Parallel()

	captureSession := &fakeCaptureSession{chunks: [][]byte{[]byte("abc")}}
	processor := newFakeProcessor(
		domain.StreamEvent{Kind: domain.StreamEventError, Status: "protocol", Message: "malformed stream payload"},
	)
	events := &fakeEventSink{}

	controller := NewSessionController(
		&fakeCaptureSource{sessions: []ports.CaptureSession{captureSession}},
		nil,
		processor,
		&fakeStore{},
		events,
		Config{},
	)

	if err := controller.Start(context.Background(), micConfig(false)); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := controller.Stop(context.Background()); err == nil {
		t.Fatalf("expected protocol error")
	}

	errs := events.snapshotErrors()
	if len(errs) == 0 || errs[len(errs)-1].code != domain.ErrorCodeProtocol {
		t.Fatalf("expected protocol error code, got %+v", errs)
	}
}

func TestSessionControllerStreamEndsWithoutDone(t *testing.T) {
	t.Parallel()

	captureSession := &fakeCaptureSession{chunks: [][]byte{[]byte("abc")}}
	processor := newFakeProcessor(domain.StreamEvent{Kind: domain.StreamEventUpdate, Text: "partial"})
	events := &fakeEventSink{}

	controller := NewSessionController(
		&fakeCaptureSource{sessions: []ports.CaptureSession{captureSession}},
		nil,
		processor,
		&fakeStore{},
		events,
		Config{},
	)

	if err := controller.Start(context.Background(), micConfig(false)); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := controller.Stop(context.Background()); err == nil {
		t.Fatalf("expected truncated stream error")
	}

	errs := events.snapshotErrors()
	if len(errs) == 0 || errs[len(errs)-1].code != domain.ErrorCodeProtocol {
		t.Fatalf("expected protocol error for truncated stream")
	}
}

func TestSessionControllerSaveFailureStillCompletes(t *testing.T) {
	t.Parallel()

	captureSession := &fakeCaptureSession{chunks: [][]byte{[]byte("abc")}}
	processor := newFakeProcessor(domain.StreamEvent{Kind: domain.StreamEventDone, Text: "final text"})
	store := &fakeStore{saveErr: errors.New("server down")}
	events := &fakeEventSink{}

	controller := NewSessionController(
		&fakeCaptureSource{sessions: []ports.CaptureSession{captureSession}},
		nil,
		processor,
		store,
		events,
		Config{},
	)

	if err := controller.Start(context.Background(), micConfig(false)); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	result, err := controller.Stop(context.Background())
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if result.Saved {
		t.Fatalf("expected saved=false when save fails")
	}
	if events.historyRefreshes() != 0 {
		t.Fatalf("history must not refresh on failed save")
	}

	errs := events.snapshotErrors()
	if len(errs) == 0 || errs[len(errs)-1].code != domain.ErrorCodeSave {
		t.Fatalf("expected save error event")
	}

	states := events.snapshotStates()
	if states[len(states)-1].state != domain.SessionStateCompleted {
		t.Fatalf("expected completed despite save failure")
	}
}

func TestSessionControllerRealtimeRelaysChunksAndStops(t *testing.T) {
	t.Parallel()

	captureSession := &fakeCaptureSession{chunks: [][]byte{[]byte("abc")}}
	relaySession := newFakeRelaySession()
	relaySession.events <- domain.StreamEvent{Kind: domain.StreamEventUpdate, Text: "live partial"}
	processor := newFakeProcessor(domain.StreamEvent{Kind: domain.StreamEventDone, Text: "final"})
	events := &fakeEventSink{}

	controller := NewSessionController(
		&fakeCaptureSource{sessions: []ports.CaptureSession{captureSession}},
		&fakeRelay{sessions: []ports.RelaySession{relaySession}},
		processor,
		&fakeStore{},
		events,
		Config{},
	)

	if err := controller.Start(context.Background(), micConfig(true)); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := controller.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	if relaySession.chunkCount() == 0 {
		t.Fatalf("expected chunks relayed in realtime")
	}
	if relaySession.stopCalls() == 0 {
		t.Fatalf("expected stop signal on the relay channel")
	}

	views := events.snapshotViews()
	found := false
	for _, view := range views {
		if view.Text == "live partial" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected live transcript view from relay, got %+v", views)
	}
}

func TestSessionControllerRelayConnectFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	captureSession := &fakeCaptureSession{chunks: [][]byte{[]byte("abc")}}
	processor := newFakeProcessor(domain.StreamEvent{Kind: domain.StreamEventDone, Text: "final"})
	events := &fakeEventSink{}

	controller := NewSessionController(
		&fakeCaptureSource{sessions: []ports.CaptureSession{captureSession}},
		&fakeRelay{err: errors.New("socket down")},
		processor,
		&fakeStore{},
		events,
		Config{},
	)

	if err := controller.Start(context.Background(), micConfig(true)); err != nil {
		t.Fatalf("start should survive relay failure: %v", err)
	}
	if _, err := controller.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	errs := events.snapshotErrors()
	if len(errs) == 0 || errs[0].code != domain.ErrorCodeRelay {
		t.Fatalf("expected relay error event")
	}
}

func TestSessionControllerScreenSourceSkipsRelay(t *testing.T) {
	t.Parallel()

	captureSession := &fakeCaptureSession{chunks: [][]byte{[]byte("abc")}}
	relay := &fakeRelay{sessions: []ports.RelaySession{newFakeRelaySession()}}
	processor := newFakeProcessor(domain.StreamEvent{Kind: domain.StreamEventDone, Text: "final"})

	controller := NewSessionController(
		&fakeCaptureSource{sessions: []ports.CaptureSession{captureSession}},
		relay,
		processor,
		&fakeStore{},
		&fakeEventSink{},
		Config{},
	)

	cfg := micConfig(true)
	cfg.AudioSource = domain.AudioSourceScreen
	if err := controller.Start(context.Background(), cfg); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := controller.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	if relay.calls != 0 {
		t.Fatalf("screen audio must not be relayed in realtime")
	}
}

func TestSessionControllerStopWithoutActiveSession(t *testing.T) {
	t.Parallel()

	controller := NewSessionController(
		&fakeCaptureSource{},
		nil,
		newFakeProcessor(),
		&fakeStore{},
		&fakeEventSink{},
		Config{},
	)

	_, err := controller.Stop(context.Background())
	if !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestSessionControllerAbortDiscards(t *testing.T) {
	t.Parallel()

	captureSession := &fakeCaptureSession{chunks: [][]byte{[]byte("abc")}}
	processor := newFakeProcessor()
	store := &fakeStore{}
	events := &fakeEventSink{}

	controller := NewSessionController(
		&fakeCaptureSource{sessions: []ports.CaptureSession{captureSession}},
		nil,
		processor,
		store,
		events,
		Config{},
	)

	if err := controller.Start(context.Background(), micConfig(false)); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := controller.Abort(); err != nil {
		t.Fatalf("abort failed: %v", err)
	}

	if processor.calls != 0 || store.saveCalls != 0 {
		t.Fatalf("abort must not upload or save")
	}

	states := events.snapshotStates()
	last := states[len(states)-1]
	if last.state != domain.SessionStateIdle || last.reason != domain.SessionReasonRecordingDiscarded {
		t.Fatalf("expected idle/recording_discarded, got %+v", last)
	}
}

func TestChunkSizeFor(t *testing.T) {
	t.Parallel()

	cfg := ports.CaptureConfig{SampleRate: 16000, Channels: 1}
	if got := chunkSizeFor(cfg, 2*time.Second); got != 64000 {
		t.Fatalf("unexpected mic chunk size: %d", got)
	}
	if got := chunkSizeFor(cfg, time.Second); got != 32000 {
		t.Fatalf("unexpected screen chunk size: %d", got)
	}
	if got := chunkSizeFor(ports.CaptureConfig{}, 0); got != 4096 {
		t.Fatalf("expected floor chunk size, got %d", got)
	}
}

// ---- fakes ----

type fakeCaptureSource struct {
	sessions []ports.CaptureSession
	err      error
	calls    int
}

func (f *fakeCaptureSource) Start(_ context.Context, _ ports.CaptureConfig) (ports.CaptureSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sessions) {
		return nil, errors.New("no capture session configured")
	}
	session := f.sessions[f.calls]
	f.calls++
	return session, nil
}

type fakeCaptureSession struct {
	mu        sync.Mutex
	chunks    [][]byte
	index     int
	stopCalls int
	stopErr   error
}

func (f *fakeCaptureSession) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index >= len(f.chunks) {
		return 0, io.EOF
	}
	n := copy(p, f.chunks[f.index])
	f.index++
	return n, nil
}

func (f *fakeCaptureSession) Close() error { return nil }

func (f *fakeCaptureSession) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return f.stopErr
}

type fakeRelay struct {
	sessions []ports.RelaySession
	err      error
	calls    int
}

func (f *fakeRelay) Connect(_ context.Context, _ string) (ports.RelaySession, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sessions) {
		return nil, errors.New("no relay session configured")
	}
	session := f.sessions[f.calls]
	f.calls++
	return session, nil
}

type fakeRelaySession struct {
	mu      sync.Mutex
	events  chan domain.StreamEvent
	chunks  int
	stops   int
	dropped int
	sendErr error
	closed  bool
}

func newFakeRelaySession() *fakeRelaySession {
	return &fakeRelaySession{events: make(chan domain.StreamEvent, 16)}
}

func (f *fakeRelaySession) SendChunk(_ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.chunks++
	return nil
}

func (f *fakeRelaySession) SendStop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if !f.closed {
		close(f.events)
		f.closed = true
	}
	return nil
}

func (f *fakeRelaySession) Events() <-chan domain.StreamEvent { return f.events }

func (f *fakeRelaySession) Dropped() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}

func (f *fakeRelaySession) Wait() error {
	time.Sleep(time.Millisecond)
	return nil
}

func (f *fakeRelaySession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		close(f.events)
		f.closed = true
	}
	return nil
}

func (f *fakeRelaySession) chunkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chunks
}

func (f *fakeRelaySession) stopCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

type fakeProcessor struct {
	mu       sync.Mutex
	events   []domain.StreamEvent
	err      error
	calls    int
	lastBlob string
}

func newFakeProcessor(events ...domain.StreamEvent) *fakeProcessor {
	return &fakeProcessor{events: events}
}

func (f *fakeProcessor) ProcessStream(_ context.Context, audio io.Reader, _ string, _ domain.RecordingConfig) (<-chan domain.StreamEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	blob, _ := io.ReadAll(audio)
	f.lastBlob = string(blob)
	f.calls++

	out := make(chan domain.StreamEvent, len(f.events))
	for _, event := range f.events {
		out <- event
	}
	close(out)
	return out, nil
}

func (f *fakeProcessor) Process(_ context.Context, _ io.Reader, _ string, _ domain.ProcessOptions) (domain.MeetingAnalysis, error) {
	return domain.MeetingAnalysis{}, errors.New("not implemented")
}

type fakeStore struct {
	mu             sync.Mutex
	saveID         string
	saveErr        error
	saveCalls      int
	lastTitle      string
	lastLanguage   string
	lastTranscript string
}

func (f *fakeStore) Save(_ context.Context, title, language, transcript string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	f.lastTitle = title
	f.lastLanguage = language
	f.lastTranscript = transcript
	if f.saveErr != nil {
		return "", f.saveErr
	}
	return f.saveID, nil
}

func (f *fakeStore) History(_ context.Context, _, _ string) ([]domain.RecordingSummary, error) {
	return nil, nil
}

func (f *fakeStore) Load(_ context.Context, _ string) (domain.RecordingDetail, error) {
	return domain.RecordingDetail{}, nil
}

func (f *fakeStore) Delete(_ context.Context, _ string) error { return nil }

type fakeEventSink struct {
	mu sync.Mutex

	states  []stateEvent
	views   []domain.TranscriptView
	ticks   int
	history int
	errors  []errEvent
}

type stateEvent struct {
	state  domain.SessionState
	reason domain.SessionStateReason
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

func (f *fakeEventSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{state: state, reason: reason})
}

func (f *fakeEventSink) TranscriptUpdated(view domain.TranscriptView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, view)
}

func (f *fakeEventSink) RecordingTick(_ int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks++
}

func (f *fakeEventSink) HistoryChanged() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history++
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stateEvent, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}

func (f *fakeEventSink) snapshotViews() []domain.TranscriptView {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.TranscriptView, len(f.views))
	copy(out, f.views)
	return out
}

func (f *fakeEventSink) tickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticks
}

func (f *fakeEventSink) historyRefreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history
}
