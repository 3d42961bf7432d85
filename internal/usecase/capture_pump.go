package usecase

import (
	"errors"
	"fmt"
	"io"
	"time"

	"meetscribe/internal/domain"
	"meetscribe/internal/ports"
)

// pumpCaptureChunks reads fixed-cadence chunks from the capture session,
// appends them to the buffer, and relays each one when a relay session is
// attached. Relay failures are reported but never interrupt buffering.
func pumpCaptureChunks(
	capture ports.CaptureSession,
	relay ports.RelaySession,
	buffer *chunkBuffer,
	chunkSize int,
	events ports.EventSink,
	done chan struct{},
) {
	defer close(done)

	if chunkSize < 256 {
		chunkSize = 4096
	}

	relayHealthy := relay != nil
	buf := make([]byte, chunkSize)
	for {
		n, err := io.ReadFull(capture, buf)
		if n > 0 {
			buffer.Append(buf[:n])
			if relayHealthy {
				if sendErr := relay.SendChunk(buf[:n]); sendErr != nil {
					events.SessionError(domain.ErrorCodeRelay, fmt.Sprintf("failed to relay audio chunk: %v", sendErr))
					relayHealthy = false
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				events.SessionError(domain.ErrorCodeCaptureStop, fmt.Sprintf("audio capture error: %v", err))
			}
			return
		}
	}
}

// waitForRelay waits for the relay session to drain, force-closing it if
// the server does not finish in time.
func waitForRelay(session ports.RelaySession, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		_ = session.Close()
		return <-done
	}
}
