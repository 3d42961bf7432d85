package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChatSendsMessageAndContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad body: %v", err)
		}
		if body["message"] != "what was decided?" || body["context"] != "transcript text" {
			t.Errorf("unexpected body: %+v", body)
		}
		io.WriteString(w, `{"response": "the launch date"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	answer, err := client.Chat(context.Background(), "what was decided?", "transcript text")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if answer.Response != "the launch date" {
		t.Fatalf("unexpected answer: %+v", answer)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	t.Parallel()

	client := NewClient("http://unused", time.Second)
	if _, err := client.Chat(context.Background(), "   ", "ctx"); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestSmartQAReturnsAnswerWithSources(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/rag/smart-qa" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		io.WriteString(w, `{"answer": "yes", "sources": ["rec-1", "rec-2"]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	answer, err := client.SmartQA(context.Background(), "did we agree?")
	if err != nil {
		t.Fatalf("SmartQA failed: %v", err)
	}
	if answer.Answer != "yes" || len(answer.Sources) != 2 {
		t.Fatalf("unexpected answer: %+v", answer)
	}
}

func TestSmartQARejectsEmptyQuestion(t *testing.T) {
	t.Parallel()

	client := NewClient("http://unused", time.Second)
	if _, err := client.SmartQA(context.Background(), ""); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestStatsDecodesIndexState(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/rag/stats" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		io.WriteString(w, `{"documents": 12, "chunks": 480}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	stats, err := client.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Documents != 12 || stats.Chunks != 480 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSmartSearchReturnsResults(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/rag/smart-search" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad body: %v", err)
		}
		if body["query"] != "budget" {
			t.Errorf("unexpected query %q", body["query"])
		}
		io.WriteString(w, `{"results": [{"id": "rec-1", "title": "planning", "score": 0.91}]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	results, err := client.SmartSearch(context.Background(), "budget")
	if err != nil {
		t.Fatalf("SmartSearch failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != "rec-1" || results[0].Score != 0.91 {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestSmartSearchSurfacesErrorField(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"error": "index not built"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	if _, err := client.SmartSearch(context.Background(), "q"); err == nil || err.Error() != "index not built" {
		t.Fatalf("expected index error, got %v", err)
	}
}
