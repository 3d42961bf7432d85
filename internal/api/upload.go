package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"meetscribe/internal/domain"
)

// ProcessStream posts a finalized audio blob to the streaming processing
// endpoint and yields decoded stream events. The channel is closed after a
// terminal done or error event, or when the byte stream ends.
func (c *Client) ProcessStream(ctx context.Context, audio io.Reader, filename string, cfg domain.RecordingConfig) (<-chan domain.StreamEvent, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("audio", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return nil, err
	}
	if err := mw.WriteField("language", cfg.Language); err != nil {
		return nil, err
	}
	if err := mw.WriteField("realtime", strconv.FormatBool(cfg.Realtime)); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/upload/process/stream"), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("processing request failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}

	out := make(chan domain.StreamEvent, 16)
	go consumeEventStream(resp.Body, out)
	return out, nil
}

// streamPayload is the wire shape of one data: line from the server.
type streamPayload struct {
	Step     string                 `json:"step"`
	Status   string                 `json:"status"`
	Update   json.RawMessage        `json:"update"`
	Segments []domain.SegmentUpdate `json:"segments"`
	Done     bool                   `json:"done"`
	Text     string                 `json:"text"`
	Error    string                 `json:"error"`
}

// consumeEventStream decodes newline-delimited `data: {json}` events.
// Lines split across network reads are buffered by the scanner until a
// full line is available.
func consumeEventStream(rc io.ReadCloser, out chan<- domain.StreamEvent) {
	defer close(out)
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		var decoded streamPayload
		if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
			// A malformed payload aborts the stream rather than being
			// silently skipped.
			out <- domain.StreamEvent{
				Kind:    domain.StreamEventError,
				Status:  "protocol",
				Message: fmt.Sprintf("malformed stream payload: %v", err),
			}
			return
		}

		event, terminal := toStreamEvent(decoded)
		if event.Kind == "" {
			continue
		}
		out <- event
		if terminal {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		out <- domain.StreamEvent{
			Kind:    domain.StreamEventError,
			Status:  "protocol",
			Message: fmt.Sprintf("stream read failed: %v", err),
		}
	}
}

func toStreamEvent(decoded streamPayload) (domain.StreamEvent, bool) {
	if decoded.Error != "" {
		return domain.StreamEvent{Kind: domain.StreamEventError, Message: decoded.Error}, true
	}
	if decoded.Done {
		return domain.StreamEvent{Kind: domain.StreamEventDone, Text: decoded.Text}, true
	}
	if len(decoded.Update) > 0 {
		return updateEvent(decoded.Update)
	}
	if len(decoded.Segments) > 0 {
		return domain.StreamEvent{Kind: domain.StreamEventUpdate, Segments: decoded.Segments}, false
	}
	if decoded.Status != "" {
		return domain.StreamEvent{Kind: domain.StreamEventStatus, Status: decoded.Status}, false
	}
	return domain.StreamEvent{}, false
}

// updateEvent decodes an update field that is either a plain transcript
// string or an object carrying diarized segments.
func updateEvent(raw json.RawMessage) (domain.StreamEvent, bool) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return domain.StreamEvent{Kind: domain.StreamEventUpdate, Text: text}, false
	}

	var structured struct {
		Text     string                 `json:"text"`
		Segments []domain.SegmentUpdate `json:"segments"`
	}
	if err := json.Unmarshal(raw, &structured); err != nil {
		return domain.StreamEvent{
			Kind:    domain.StreamEventError,
			Status:  "protocol",
			Message: fmt.Sprintf("malformed update payload: %v", err),
		}, true
	}
	return domain.StreamEvent{
		Kind:     domain.StreamEventUpdate,
		Text:     structured.Text,
		Segments: structured.Segments,
	}, false
}

// Process posts a file for one-shot analysis.
func (c *Client) Process(ctx context.Context, file io.Reader, filename string, opts domain.ProcessOptions) (domain.MeetingAnalysis, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return domain.MeetingAnalysis{}, err
	}
	if _, err := io.Copy(fw, file); err != nil {
		return domain.MeetingAnalysis{}, err
	}

	fields := map[string]string{
		"meeting_type":       opts.MeetingType,
		"output_lang":        opts.OutputLanguage,
		"transcribe_lang":    opts.TranscribeLang,
		"enable_diarization": strconv.FormatBool(opts.EnableDiarization),
	}
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			return domain.MeetingAnalysis{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return domain.MeetingAnalysis{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/upload/process"), &body)
	if err != nil {
		return domain.MeetingAnalysis{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var analysis domain.MeetingAnalysis
	if err := c.do(req, &analysis); err != nil {
		return domain.MeetingAnalysis{}, err
	}
	return analysis, nil
}
