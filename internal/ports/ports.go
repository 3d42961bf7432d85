package ports

import (
	"context"
	"io"

	"meetscribe/internal/domain"
)

// CaptureConfig describes how an audio source should be captured.
type CaptureConfig struct {
	Source      domain.AudioSource
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// CaptureSession is a live capture session. Read returns raw audio bytes
// in capture order; Stop flushes and releases the underlying source.
type CaptureSession interface {
	io.ReadCloser
	Stop() error
}

// CaptureSource opens capture sessions for a configured audio source.
type CaptureSource interface {
	Start(ctx context.Context, cfg CaptureConfig) (CaptureSession, error)
}

// RelaySession is an open realtime socket to the transcription backend.
// SendChunk is fire-and-forget: a full queue drops the chunk rather than
// blocking the capture path.
type RelaySession interface {
	SendChunk(chunk []byte) error
	SendStop() error
	Events() <-chan domain.StreamEvent
	Dropped() int
	Wait() error
	Close() error
}

// RealtimeRelay connects realtime relay sessions.
type RealtimeRelay interface {
	Connect(ctx context.Context, language string) (RelaySession, error)
}

// Processor submits finalized audio for transcription and analysis.
type Processor interface {
	// ProcessStream posts the audio blob and yields decoded stream events.
	// The returned channel is closed after a terminal done or error event.
	ProcessStream(ctx context.Context, audio io.Reader, filename string, cfg domain.RecordingConfig) (<-chan domain.StreamEvent, error)
	// Process posts a file for one-shot analysis.
	Process(ctx context.Context, file io.Reader, filename string, opts domain.ProcessOptions) (domain.MeetingAnalysis, error)
}

// RecordingStore persists and retrieves recordings via the backend.
type RecordingStore interface {
	Save(ctx context.Context, title, language, transcript string) (string, error)
	History(ctx context.Context, filter, category string) ([]domain.RecordingSummary, error)
	Load(ctx context.Context, id string) (domain.RecordingDetail, error)
	Delete(ctx context.Context, id string) error
}

// Assistant answers questions over recorded meetings.
type Assistant interface {
	Chat(ctx context.Context, message, recordingContext string) (domain.ChatAnswer, error)
	SmartQA(ctx context.Context, question string) (domain.SmartAnswer, error)
	Stats(ctx context.Context) (domain.RAGStats, error)
	SmartSearch(ctx context.Context, query string) ([]domain.SearchResult, error)
}

// Exporter downloads a transcript in an external format.
type Exporter interface {
	Export(ctx context.Context, format domain.ExportFormat, recordingID string) (domain.ExportFile, error)
}

// EventSink emits client state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	TranscriptUpdated(view domain.TranscriptView)
	RecordingTick(elapsedSeconds int)
	HistoryChanged()
	SessionError(code domain.ErrorCode, detail string)
}
