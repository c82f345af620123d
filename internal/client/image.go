package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"producttrends/crawler/internal/config"

	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// ImageDownloader saves a remote image to a local path.
type ImageDownloader interface {
	Download(ctx context.Context, url, path string) error
}

type imageDownloader struct {
	rl         ratelimit.Limiter
	httpClient *resty.Client
}

func NewImageDownloader(cfg config.CrawlerConfig) ImageDownloader {
	return &imageDownloader{
		rl:         newRateLimiter(cfg.MaxRequestsPerSecond),
		httpClient: newHTTPClient(cfg),
	}
}

func (d *imageDownloader) Download(ctx context.Context, url, path string) error {
	d.rl.Take()

	resp, err := d.httpClient.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return fmt.Errorf("%w: image %s: %v", ErrFetch, url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: image %s: HTTP %d", ErrFetch, url, resp.StatusCode())
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(resp.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write image %s: %w", path, err)
	}
	return nil
}

// NopImageDownloader skips the byte download; image rows are still recorded.
type NopImageDownloader struct{}

func (NopImageDownloader) Download(context.Context, string, string) error { return nil }
