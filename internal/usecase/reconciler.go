package usecase

import (
	"strings"
	"sync"

	"meetscribe/internal/domain"
)

const defaultSpeaker = "Guest-1"

// transcriptReconciler folds incremental stream events into a renderable
// transcript view. Segment updates are authoritative snapshots; plain-text
// updates overwrite the most recent segment in place. Raw speaker ids map
// to stable 1-based display indices in first-seen order for the lifetime
// of the session.
type transcriptReconciler struct {
	mu           sync.Mutex
	segments     []domain.TranscriptSegment
	text         string
	segmented    bool
	final        bool
	elapsed      int
	speakerOrder map[string]int
}

func newTranscriptReconciler() *transcriptReconciler {
	return &transcriptReconciler{speakerOrder: make(map[string]int)}
}

// Apply folds one stream event and returns the resulting view snapshot.
func (r *transcriptReconciler) Apply(event domain.StreamEvent) domain.TranscriptView {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.final {
		return r.viewLocked()
	}

	switch event.Kind {
	case domain.StreamEventUpdate:
		if len(event.Segments) > 0 {
			r.applySegmentsLocked(event.Segments)
		} else if event.Text != "" {
			r.applyTextLocked(event.Text)
		}
	case domain.StreamEventDone:
		if event.Text != "" {
			r.applyTextLocked(event.Text)
		}
		r.final = true
	}

	return r.viewLocked()
}

// SetElapsed stamps the frozen elapsed duration onto subsequent views.
func (r *transcriptReconciler) SetElapsed(seconds int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elapsed = seconds
}

// View returns the current snapshot.
func (r *transcriptReconciler) View() domain.TranscriptView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

// FinalText flattens the transcript for persistence: speaker-labelled
// lines in segment mode, the raw text otherwise.
func (r *transcriptReconciler) FinalText() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.segmented {
		return strings.TrimSpace(r.text)
	}

	lines := make([]string, 0, len(r.segments))
	for _, segment := range r.segments {
		lines = append(lines, segment.DisplayName+": "+segment.Text)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// applySegmentsLocked replaces the visible transcript with the snapshot.
// Diarization boundaries shift as the server processes more audio, so
// incremental patching would be unsound.
func (r *transcriptReconciler) applySegmentsLocked(updates []domain.SegmentUpdate) {
	segments := make([]domain.TranscriptSegment, 0, len(updates))
	for _, update := range updates {
		raw := update.Speaker
		if raw == "" {
			raw = defaultSpeaker
		}
		index, seen := r.speakerOrder[raw]
		if !seen {
			index = len(r.speakerOrder) + 1
			r.speakerOrder[raw] = index
		}
		segments = append(segments, domain.TranscriptSegment{
			Speaker:      raw,
			DisplayIndex: index,
			DisplayName:  displaySpeakerName(raw),
			Text:         update.Text,
		})
	}

	r.segments = segments
	r.segmented = true
	r.text = ""
}

func (r *transcriptReconciler) applyTextLocked(text string) {
	if r.segmented && len(r.segments) > 0 {
		r.segments[len(r.segments)-1].Text = text
		return
	}

	r.segmented = false
	r.segments = nil
	r.text = text
}

func (r *transcriptReconciler) viewLocked() domain.TranscriptView {
	view := domain.TranscriptView{
		Final:          r.final,
		ElapsedSeconds: r.elapsed,
	}
	if r.segmented {
		view.Segments = append([]domain.TranscriptSegment(nil), r.segments...)
	} else {
		view.Text = r.text
	}
	return view
}

// displaySpeakerName rewrites raw diarization ids into human labels,
// e.g. SPEAKER_00 becomes Guest-00.
func displaySpeakerName(raw string) string {
	if strings.HasPrefix(raw, "SPEAKER_") {
		return "Guest-" + strings.TrimPrefix(raw, "SPEAKER_")
	}
	return raw
}
