package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"meetscribe/internal/bootstrap"
	"meetscribe/internal/config"
	"meetscribe/internal/domain"
	"meetscribe/internal/usecase"
)

const (
	eventSession    = "meetscribe:session"
	eventTranscript = "meetscribe:transcript"
	eventTick       = "meetscribe:tick"
	eventHistory    = "meetscribe:history"
	eventError      = "meetscribe:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	controller *usecase.SessionController
	api        *bootstrap.Services
	cfg        config.Config
	bootErr    error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.api = &services
	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonReady)
}

// StartRecording begins a new recording session from setup-form values.
func (a *App) StartRecording(cfg domain.RecordingConfig) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Start(a.ctx, cfg); err != nil {
		return domain.Status{}, err
	}
	return a.controller.Status(), nil
}

// StopRecording stops the active session and returns the processed result.
func (a *App) StopRecording() (domain.StopResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.StopResult{}, err
	}
	return a.controller.Stop(a.ctx)
}

// AbortRecording discards an in-progress session without uploading.
func (a *App) AbortRecording() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.controller.Abort(); err != nil {
		if errors.Is(err, usecase.ErrNoActiveSession) {
			return nil
		}
		return err
	}
	return nil
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateError, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	return a.controller.Status()
}

// GetHistory lists saved recordings. Browsing history never touches the
// active session.
func (a *App) GetHistory(filter, category string) ([]domain.RecordingSummary, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.api.API.History(a.ctx, filter, category)
}

// LoadRecording fetches a saved recording by id.
func (a *App) LoadRecording(id string) (domain.RecordingDetail, error) {
	if err := a.requireReady(); err != nil {
		return domain.RecordingDetail{}, err
	}
	return a.api.API.Load(a.ctx, id)
}

// DeleteRecording removes a saved recording by id.
func (a *App) DeleteRecording(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.api.API.Delete(a.ctx, id); err != nil {
		return err
	}
	a.HistoryChanged()
	return nil
}

// ProcessFile submits an uploaded file for one-shot analysis.
func (a *App) ProcessFile(path string, opts domain.ProcessOptions) (domain.MeetingAnalysis, error) {
	if err := a.requireReady(); err != nil {
		return domain.MeetingAnalysis{}, err
	}
	return processFile(a.ctx, a.api.API, path, opts)
}

// Chat sends a chat message about the loaded recording.
func (a *App) Chat(message, recordingContext string) (domain.ChatAnswer, error) {
	if err := a.requireReady(); err != nil {
		return domain.ChatAnswer{}, err
	}
	return a.api.API.Chat(a.ctx, message, recordingContext)
}

// SmartQA asks a retrieval-augmented question across all recordings.
func (a *App) SmartQA(question string) (domain.SmartAnswer, error) {
	if err := a.requireReady(); err != nil {
		return domain.SmartAnswer{}, err
	}
	return a.api.API.SmartQA(a.ctx, question)
}

// GetRAGStats reports the retrieval index status.
func (a *App) GetRAGStats() (domain.RAGStats, error) {
	if err := a.requireReady(); err != nil {
		return domain.RAGStats{}, err
	}
	return a.api.API.Stats(a.ctx)
}

// SmartSearch runs a semantic search over saved recordings.
func (a *App) SmartSearch(query string) ([]domain.SearchResult, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.api.API.SmartSearch(a.ctx, query)
}

// Export downloads a transcript in the requested format and prompts the
// user for a save location.
func (a *App) Export(format domain.ExportFormat, recordingID string) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}

	file, err := a.api.API.Export(a.ctx, format, recordingID)
	if err != nil {
		return "", err
	}

	target, err := runtime.SaveFileDialog(a.ctx, runtime.SaveDialogOptions{
		DefaultFilename: file.Filename,
	})
	if err != nil || target == "" {
		return "", err
	}
	if err := writeExport(target, file.Data); err != nil {
		return "", err
	}
	return target, nil
}

// GetRuntimeInfo returns non-sensitive config for the settings view.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"serverUrl":       a.cfg.Server.BaseURL,
		"socketUrl":       a.cfg.Server.SocketURL,
		"defaultLanguage": a.cfg.Relay.Language,
		"micDevice":       a.cfg.Audio.MicrophoneDevice,
		"screenDevice":    a.cfg.Audio.ScreenMonitorDevice,
		"inputFormat":     a.cfg.Audio.InputFormat,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// TranscriptUpdated emits the latest transcript view snapshot.
func (a *App) TranscriptUpdated(view domain.TranscriptView) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTranscript, view)
}

// RecordingTick emits the 1 Hz elapsed-time display update.
func (a *App) RecordingTick(elapsedSeconds int) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTick, map[string]int{"elapsedSeconds": elapsedSeconds})
}

// HistoryChanged asks the history view to refresh.
func (a *App) HistoryChanged() {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventHistory, nil)
}

// SessionError emits client errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonReady:
		return "Ready"
	case domain.SessionReasonPermissionRequested:
		return "Waiting for capture permission"
	case domain.SessionReasonPermissionDenied:
		return "Capture permission denied"
	case domain.SessionReasonNoAudioTrack:
		return "No audio track on the shared screen"
	case domain.SessionReasonRecordingStarted:
		return "Recording started"
	case domain.SessionReasonStopRequested:
		return "Recording stopped"
	case domain.SessionReasonProcessing:
		return "Processing audio..."
	case domain.SessionReasonTranscriptReady:
		return "Transcript ready"
	case domain.SessionReasonRecordingDiscarded:
		return "Recording discarded"
	case domain.SessionReasonProcessingFailed:
		return "Processing failed"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodePermission:
		return "Capture permission denied"
	case domain.ErrorCodeNoAudioTrack:
		return "No audio track available"
	case domain.ErrorCodeCaptureStop:
		return "Audio capture issue"
	case domain.ErrorCodeRelay:
		return "Realtime streaming issue"
	case domain.ErrorCodeNetwork:
		return "Network request failed"
	case domain.ErrorCodeProtocol:
		return "Malformed server response"
	case domain.ErrorCodeServer:
		return "Server reported an error"
	case domain.ErrorCodeSave:
		return "Saving the recording failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
