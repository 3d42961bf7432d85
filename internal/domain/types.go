package domain

// SessionState models the recording session lifecycle.
type SessionState string

const (
	SessionStateIdle               SessionState = "idle"
	SessionStateAwaitingPermission SessionState = "awaiting_permission"
	SessionStateRecording          SessionState = "recording"
	SessionStateStopping           SessionState = "stopping"
	SessionStateUploading          SessionState = "uploading"
	SessionStateCompleted          SessionState = "completed"
	SessionStateError              SessionState = "error"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonReady               SessionStateReason = "ready"
	SessionReasonPermissionRequested SessionStateReason = "permission_requested"
	SessionReasonPermissionDenied    SessionStateReason = "permission_denied"
	SessionReasonNoAudioTrack        SessionStateReason = "no_audio_track"
	SessionReasonRecordingStarted    SessionStateReason = "recording_started"
	SessionReasonStopRequested       SessionStateReason = "stop_requested"
	SessionReasonProcessing          SessionStateReason = "processing"
	SessionReasonTranscriptReady     SessionStateReason = "transcript_ready"
	SessionReasonRecordingDiscarded  SessionStateReason = "recording_discarded"
	SessionReasonProcessingFailed    SessionStateReason = "processing_failed"
)

// ErrorCode identifies non-fatal and fatal client errors.
type ErrorCode string

const (
	ErrorCodeStartup      ErrorCode = "startup"
	ErrorCodePermission   ErrorCode = "permission"
	ErrorCodeNoAudioTrack ErrorCode = "no_audio_track"
	ErrorCodeCaptureStop  ErrorCode = "capture_stop"
	ErrorCodeRelay        ErrorCode = "relay"
	ErrorCodeNetwork      ErrorCode = "network"
	ErrorCodeProtocol     ErrorCode = "protocol"
	ErrorCodeServer       ErrorCode = "server"
	ErrorCodeSave         ErrorCode = "save"
)

// AudioSource selects where recorded audio comes from.
type AudioSource string

const (
	AudioSourceMicrophone AudioSource = "microphone"
	AudioSourceScreen     AudioSource = "screen"
)

// RecordingConfig captures the setup-form values for one session.
// It is immutable once the session starts.
type RecordingConfig struct {
	Title       string      `json:"title"`
	Language    string      `json:"language"`
	AudioSource AudioSource `json:"audioSource"`
	Realtime    bool        `json:"realtime"`
	TranslateTo string      `json:"translateTo,omitempty"`
}

// TranscriptSegment is one speaker-attributed piece of the transcript.
// DisplayIndex is 1-based and stable per raw speaker id within a session.
type TranscriptSegment struct {
	Speaker      string `json:"speaker"`
	DisplayIndex int    `json:"displayIndex"`
	DisplayName  string `json:"displayName"`
	Text         string `json:"text"`
}

// TranscriptView is the renderable transcript state. Either Segments or
// Text carries an update, never both at once.
type TranscriptView struct {
	Segments       []TranscriptSegment `json:"segments,omitempty"`
	Text           string              `json:"text,omitempty"`
	Final          bool                `json:"final"`
	ElapsedSeconds int                 `json:"elapsedSeconds"`
}

// StreamEventKind tags incremental processing events.
type StreamEventKind string

const (
	StreamEventStatus StreamEventKind = "status"
	StreamEventUpdate StreamEventKind = "update"
	StreamEventDone   StreamEventKind = "done"
	StreamEventError  StreamEventKind = "error"
)

// SegmentUpdate is a raw diarized segment as the server emits it.
type SegmentUpdate struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// StreamEvent is one decoded event from the processing stream or the
// realtime socket. Update events are full snapshots, not deltas.
type StreamEvent struct {
	Kind     StreamEventKind `json:"kind"`
	Status   string          `json:"status,omitempty"`
	Text     string          `json:"text,omitempty"`
	Segments []SegmentUpdate `json:"segments,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// Status summarizes the current session status.
type Status struct {
	State   SessionState `json:"state"`
	Active  bool         `json:"active"`
	Message string       `json:"message,omitempty"`
}

// StopResult is returned once a session is stopped and processed.
type StopResult struct {
	Transcript      TranscriptView `json:"transcript"`
	DurationSeconds int            `json:"durationSeconds"`
	Saved           bool           `json:"saved"`
	RecordingID     string         `json:"recordingId,omitempty"`
}

// RecordingSummary is one history-list entry.
type RecordingSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Timestamp string `json:"timestamp"`
	Duration  string `json:"duration"`
}

// RecordingDetail is a fully loaded recording.
type RecordingDetail struct {
	Transcript string `json:"transcript"`
	Info       string `json:"info"`
}

// ProcessOptions configures one-shot file analysis.
type ProcessOptions struct {
	MeetingType       string `json:"meetingType"`
	OutputLanguage    string `json:"outputLang"`
	TranscribeLang    string `json:"transcribeLang"`
	EnableDiarization bool   `json:"enableDiarization"`
}

// MeetingAnalysis is the non-streaming processing result.
type MeetingAnalysis struct {
	Status       string   `json:"status"`
	Transcript   string   `json:"transcript"`
	Summary      string   `json:"summary"`
	Topics       []string `json:"topics"`
	Actions      []string `json:"actions"`
	Decisions    []string `json:"decisions"`
	Participants []string `json:"participants"`
}

// ChatAnswer is the assistant's reply to a chat message.
type ChatAnswer struct {
	Response string `json:"response"`
	Answer   string `json:"answer"`
}

// SmartAnswer is a retrieval-augmented answer with its sources.
type SmartAnswer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
}

// RAGStats describes the indexed corpus.
type RAGStats struct {
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
	Status    string `json:"status,omitempty"`
}

// SearchResult is one smart-search hit.
type SearchResult struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// ExportFormat selects a transcript export encoding.
type ExportFormat string

const (
	ExportFormatTxt  ExportFormat = "txt"
	ExportFormatDocx ExportFormat = "docx"
)

// ExportFile is a downloaded export payload.
type ExportFile struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}
