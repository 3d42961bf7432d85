package api

import (
	"context"
	"errors"
	"strings"

	"meetscribe/internal/domain"
)

// Chat sends a message about the loaded recording to the assistant.
func (c *Client) Chat(ctx context.Context, message, recordingContext string) (domain.ChatAnswer, error) {
	if strings.TrimSpace(message) == "" {
		return domain.ChatAnswer{}, errors.New("message is required")
	}

	body := map[string]string{
		"message": message,
		"context": recordingContext,
	}

	var resp struct {
		Response string `json:"response"`
		Answer   string `json:"answer"`
		Error    string `json:"error"`
	}
	if err := c.postJSON(ctx, "/api/chat", body, &resp); err != nil {
		return domain.ChatAnswer{}, err
	}
	if resp.Error != "" {
		return domain.ChatAnswer{}, errors.New(resp.Error)
	}
	return domain.ChatAnswer{Response: resp.Response, Answer: resp.Answer}, nil
}

// SmartQA asks a retrieval-augmented question across all recordings.
func (c *Client) SmartQA(ctx context.Context, question string) (domain.SmartAnswer, error) {
	if strings.TrimSpace(question) == "" {
		return domain.SmartAnswer{}, errors.New("question is required")
	}

	var resp struct {
		Answer  string   `json:"answer"`
		Sources []string `json:"sources"`
		Error   string   `json:"error"`
	}
	if err := c.postJSON(ctx, "/api/rag/smart-qa", map[string]string{"question": question}, &resp); err != nil {
		return domain.SmartAnswer{}, err
	}
	if resp.Error != "" {
		return domain.SmartAnswer{}, errors.New(resp.Error)
	}
	return domain.SmartAnswer{Answer: resp.Answer, Sources: resp.Sources}, nil
}

// Stats reports the state of the retrieval index.
func (c *Client) Stats(ctx context.Context) (domain.RAGStats, error) {
	var stats domain.RAGStats
	if err := c.getJSON(ctx, "/api/rag/stats", &stats); err != nil {
		return domain.RAGStats{}, err
	}
	return stats, nil
}

// SmartSearch runs a semantic search over saved recordings.
func (c *Client) SmartSearch(ctx context.Context, query string) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is required")
	}

	var resp struct {
		Results []domain.SearchResult `json:"results"`
		Error   string                `json:"error"`
	}
	if err := c.postJSON(ctx, "/api/rag/smart-search", map[string]string{"query": query}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	return resp.Results, nil
}
