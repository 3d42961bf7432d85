package api

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"meetscribe/internal/domain"
)

// Save persists a finalized transcript and returns the recording id.
func (c *Client) Save(ctx context.Context, title, language, transcript string) (string, error) {
	body := map[string]string{
		"title":      title,
		"language":   language,
		"transcript": transcript,
	}

	var resp struct {
		Status string `json:"status"`
		ID     string `json:"id"`
		Error  string `json:"error"`
	}
	if err := c.postJSON(ctx, "/api/recording/save", body, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", errors.New(resp.Error)
	}
	return resp.ID, nil
}

// History lists saved recordings, optionally narrowed by filter and category.
func (c *Client) History(ctx context.Context, filter, category string) ([]domain.RecordingSummary, error) {
	query := url.Values{}
	if strings.TrimSpace(filter) != "" {
		query.Set("filter", filter)
	}
	if strings.TrimSpace(category) != "" {
		query.Set("category", category)
	}

	path := "/api/recording/history"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp struct {
		Recordings []domain.RecordingSummary `json:"recordings"`
	}
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Recordings, nil
}

// Load fetches a saved recording by id.
func (c *Client) Load(ctx context.Context, id string) (domain.RecordingDetail, error) {
	var detail domain.RecordingDetail
	if err := c.getJSON(ctx, "/api/recording/load/"+url.PathEscape(id), &detail); err != nil {
		return domain.RecordingDetail{}, err
	}
	return detail, nil
}

// Delete removes a saved recording by id.
func (c *Client) Delete(ctx context.Context, id string) error {
	var resp struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := c.delete(ctx, "/api/recording/delete/"+url.PathEscape(id), &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	return nil
}
