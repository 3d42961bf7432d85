package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"meetscribe/internal/api"
	"meetscribe/internal/domain"
)

func processFile(ctx context.Context, client *api.Client, path string, opts domain.ProcessOptions) (domain.MeetingAnalysis, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.MeetingAnalysis{}, fmt.Errorf("failed to open upload file: %w", err)
	}
	defer f.Close()

	return client.Process(ctx, f, filepath.Base(path), opts)
}

func writeExport(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
