package api

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"meetscribe/internal/domain"
)

// Export downloads a transcript in the given format.
func (c *Client) Export(ctx context.Context, format domain.ExportFormat, recordingID string) (domain.ExportFile, error) {
	switch format {
	case domain.ExportFormatTxt, domain.ExportFormatDocx:
	default:
		return domain.ExportFile{}, fmt.Errorf("unsupported export format %q", format)
	}

	path := "/api/export/" + string(format)
	if strings.TrimSpace(recordingID) != "" {
		path += "?id=" + url.QueryEscape(recordingID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return domain.ExportFile{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.ExportFile{}, fmt.Errorf("export request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return domain.ExportFile{}, decodeAPIError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ExportFile{}, fmt.Errorf("failed to read export body: %w", err)
	}

	return domain.ExportFile{
		Filename:    exportFilename(resp.Header.Get("Content-Disposition"), format),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func exportFilename(disposition string, format domain.ExportFormat) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := strings.TrimSpace(params["filename"]); name != "" {
				return name
			}
		}
	}
	return "transcript." + string(format)
}
