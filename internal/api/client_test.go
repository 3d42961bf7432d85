package api

import (
	"testing"
	"time"

	"meetscribe/internal/ports"
)

var (
	_ ports.Processor      = (*Client)(nil)
	_ ports.RecordingStore = (*Client)(nil)
	_ ports.Assistant      = (*Client)(nil)
	_ ports.Exporter       = (*Client)(nil)
)

func TestNewClientTrimsBaseURL(t *testing.T) {
	t.Parallel()

	client := NewClient("  http://localhost:5000/  ", time.Second)
	if got := client.url("/api/chat"); got != "http://localhost:5000/api/chat" {
		t.Fatalf("unexpected url %q", got)
	}
}
