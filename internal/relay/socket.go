package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"meetscribe/internal/domain"
	"meetscribe/internal/ports"
)

// Config controls the realtime relay socket.
type Config struct {
	SocketURL string
	QueueSize int
}

// Relay implements ports.RealtimeRelay over a websocket channel to the
// meetscribe backend.
type Relay struct {
	cfg Config
}

func NewRelay(cfg Config) *Relay {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}
	return &Relay{cfg: cfg}
}

func (r *Relay) Connect(ctx context.Context, language string) (ports.RelaySession, error) {
	socketURL := normalizeSocketURL(r.cfg.SocketURL)
	if socketURL == "" {
		return nil, errors.New("relay socket URL is not configured")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, socketURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to relay socket: %w", err)
	}

	session := &relaySession{
		conn:     conn,
		language: language,
		events:   make(chan domain.StreamEvent, 64),
		outbox:   make(chan outboundFrame, r.cfg.QueueSize),
		done:     make(chan struct{}),
	}

	session.wg.Add(2)
	go session.readLoop()
	go session.writeLoop()
	go func() {
		session.wg.Wait()
		close(session.events)
		close(session.done)
		_ = conn.Close()
	}()

	go func() {
		<-ctx.Done()
		_ = session.Close()
	}()

	return session, nil
}

type outboundFrame struct {
	Event    string `json:"event"`
	Audio    string `json:"audio,omitempty"`
	Language string `json:"language,omitempty"`
}

type inboundFrame struct {
	Event    string                 `json:"event"`
	Text     string                 `json:"text"`
	Message  string                 `json:"message"`
	Segments []domain.SegmentUpdate `json:"segments"`
}

type relaySession struct {
	conn     *websocket.Conn
	language string

	events chan domain.StreamEvent
	outbox chan outboundFrame
	done   chan struct{}

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	dropMu  sync.Mutex
	dropped int

	closeSendOnce sync.Once
	closeOnce     sync.Once
	sendMu        sync.RWMutex
	sendClosed    bool
}

// SendChunk queues one audio chunk for transmission. When the queue is
// full the chunk is dropped and counted; the final upload remains the
// source of truth, so a dropped chunk only degrades the live preview.
func (s *relaySession) SendChunk(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.sendMu.RLock()
	closed := s.sendClosed
	s.sendMu.RUnlock()
	if closed {
		return errors.New("relay session is already closed")
	}

	frame := outboundFrame{
		Event:    "audio_chunk",
		Audio:    base64.StdEncoding.EncodeToString(chunk),
		Language: s.language,
	}

	select {
	case s.outbox <- frame:
		return nil
	case <-s.done:
		if err := s.waitErr(); err != nil {
			return err
		}
		return errors.New("relay session closed")
	default:
		s.dropMu.Lock()
		s.dropped++
		s.dropMu.Unlock()
		return nil
	}
}

// SendStop signals the server to finalize in-progress incremental
// transcription, then closes the send side.
func (s *relaySession) SendStop() error {
	s.sendMu.RLock()
	closed := s.sendClosed
	s.sendMu.RUnlock()
	if closed {
		return nil
	}

	frame := outboundFrame{Event: "stop_recording", Language: s.language}
	select {
	case s.outbox <- frame:
	case <-s.done:
	}

	s.closeSendOnce.Do(func() {
		s.sendMu.Lock()
		s.sendClosed = true
		close(s.outbox)
		s.sendMu.Unlock()
	})
	return nil
}

func (s *relaySession) Events() <-chan domain.StreamEvent {
	return s.events
}

func (s *relaySession) Dropped() int {
	s.dropMu.Lock()
	defer s.dropMu.Unlock()
	return s.dropped
}

func (s *relaySession) Wait() error {
	<-s.done
	return s.waitErr()
}

func (s *relaySession) Close() error {
	s.closeOnce.Do(func() {
		s.closeSendOnce.Do(func() {
			s.sendMu.Lock()
			s.sendClosed = true
			close(s.outbox)
			s.sendMu.Unlock()
		})
		_ = s.conn.Close()
	})
	<-s.done
	return s.waitErr()
}

func (s *relaySession) waitErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *relaySession) setErr(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *relaySession) writeLoop() {
	defer s.wg.Done()

	for frame := range s.outbox {
		if err := s.conn.WriteJSON(frame); err != nil {
			s.setErr(fmt.Errorf("failed to send relay frame: %w", err))
			return
		}
	}

	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteMessage(websocket.CloseMessage, message)
}

func (s *relaySession) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(fmt.Errorf("failed to read relay event: %w", err))
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			continue
		}

		event, terminal := toStreamEvent(frame)
		if event.Kind == "" {
			continue
		}
		s.emit(event)
		if terminal {
			return
		}
	}
}

func (s *relaySession) emit(event domain.StreamEvent) {
	select {
	case s.events <- event:
	case <-s.done:
	default:
	}
}

func toStreamEvent(frame inboundFrame) (domain.StreamEvent, bool) {
	switch frame.Event {
	case "transcript_update":
		return domain.StreamEvent{
			Kind:     domain.StreamEventUpdate,
			Text:     frame.Text,
			Segments: frame.Segments,
		}, false
	case "transcript_final":
		return domain.StreamEvent{Kind: domain.StreamEventDone, Text: frame.Text}, true
	case "error":
		message := strings.TrimSpace(frame.Message)
		if message == "" {
			message = "relay returned an unknown error"
		}
		return domain.StreamEvent{Kind: domain.StreamEventError, Message: message}, true
	case "connected":
		return domain.StreamEvent{Kind: domain.StreamEventStatus, Status: "connected"}, false
	default:
		return domain.StreamEvent{}, false
	}
}

func normalizeSocketURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "https://") {
		return "wss://" + strings.TrimPrefix(raw, "https://")
	}
	if strings.HasPrefix(raw, "http://") {
		return "ws://" + strings.TrimPrefix(raw, "http://")
	}
	return raw
}
