// Package download provides the downloader implementations data interfaces
// are assembled from: HTTP with client-side rate limiting and bounded
// retries, S3-compatible object storage, and local files.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/mosaic-data/mosaic/internal/ports"
)

var _ ports.Downloader = (*HTTP)(nil)

// defaultHTTPTimeout bounds a single request attempt.
const defaultHTTPTimeout = 2 * time.Minute

// HTTP downloads a payload from a fixed URL. Server errors and transport
// failures are retried with doubling backoff up to the configured attempt
// budget; client errors (4xx) fail immediately.
type HTTP struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	retries int
	logger  *slog.Logger
}

// HTTPOptions configures an HTTP downloader.
type HTTPOptions struct {
	// RatePerSecond limits outgoing requests. Zero disables limiting.
	RatePerSecond float64

	// Retries is the number of additional attempts after a retryable
	// failure.
	Retries int

	// Client overrides the default HTTP client, mainly for tests.
	Client *http.Client

	Logger *slog.Logger
}

// NewHTTP creates an HTTP downloader for the given URL.
func NewHTTP(url string, opts HTTPOptions) (*HTTP, error) {
	if url == "" {
		return nil, fmt.Errorf("url cannot be empty")
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &HTTP{
		url:     url,
		client:  client,
		limiter: limiter,
		retries: opts.Retries,
		logger:  logger,
	}, nil
}

// Retrieve fetches the payload, honoring the rate limit and retrying
// retryable failures with doubling backoff.
func (h *HTTP) Retrieve(ctx context.Context) ([]byte, error) {
	backoff := 500 * time.Millisecond
	var lastErr error

	for attempt := 0; attempt <= h.retries; attempt++ {
		if attempt > 0 {
			h.logger.Info("retrying download",
				"url", h.url, "attempt", attempt, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}

		if h.limiter != nil {
			if err := h.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		body, retryable, err := h.fetch(ctx)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, fmt.Errorf("download failed after %d attempts: %w", h.retries+1, lastErr)
}

// fetch performs one attempt. The second return value reports whether the
// failure is worth retrying.
func (h *HTTP) fetch(ctx context.Context) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("request %s: %w", h.url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, fmt.Errorf("read body: %w", err)
		}
		return body, false, nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("request %s: status %s", h.url, resp.Status)
	default:
		return nil, false, fmt.Errorf("request %s: status %s", h.url, resp.Status)
	}
}
