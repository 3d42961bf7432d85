package usecase

import (
	"sync"
	"time"

	"meetscribe/internal/domain"
	"meetscribe/internal/ports"
)

type activeSession struct {
	cancel  func()
	capture ports.CaptureSession
	relay   ports.RelaySession
	config  domain.RecordingConfig

	startedAt  time.Time
	buffer     *chunkBuffer
	reconciler *transcriptReconciler

	stateMu sync.Mutex
	state   domain.SessionState

	elapsedMu sync.Mutex
	elapsed   int

	pumpDone   chan struct{}
	relayDone  chan struct{}
	tickerStop chan struct{}
	tickerDone chan struct{}
}

func (s *activeSession) setState(state domain.SessionState) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state = state
}

func (s *activeSession) getState() domain.SessionState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// freezeElapsed records the elapsed duration at the moment stop was
// issued, before capture teardown adds any latency.
func (s *activeSession) freezeElapsed() int {
	s.elapsedMu.Lock()
	defer s.elapsedMu.Unlock()
	s.elapsed = int(time.Since(s.startedAt) / time.Second)
	return s.elapsed
}

// stopTicker cancels the 1 Hz elapsed-time ticker and waits for it to
// exit so no tick fires after stop.
func (s *activeSession) stopTicker() {
	select {
	case <-s.tickerStop:
	default:
		close(s.tickerStop)
	}
	<-s.tickerDone
}
