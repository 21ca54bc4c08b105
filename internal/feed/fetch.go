package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// HTTPOptions parameterise the document fetcher.
type HTTPOptions struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
}

// HTTPFetcher retrieves the feed document over HTTP with capped exponential
// backoff on rate limiting and timeouts.
type HTTPFetcher struct {
	opts   HTTPOptions
	logger zerolog.Logger
	client *http.Client
}

// NewHTTPFetcher constructs a document fetcher.
func NewHTTPFetcher(opts HTTPOptions, logger zerolog.Logger) *HTTPFetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	return &HTTPFetcher{
		opts:   opts,
		logger: logger.With().Str("component", "feed_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// FetchDocument retrieves the raw document body.
func (f *HTTPFetcher) FetchDocument(ctx context.Context) (string, error) {
	if f.opts.URL == "" {
		return "", fmt.Errorf("feed url not configured")
	}

	var lastErr error
	for attempt := 0; attempt < f.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return "", err
			}
		}

		body, retryable, err := f.fetchOnce(ctx)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
		f.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("feed fetch retrying")
	}

	return "", fmt.Errorf("feed fetch exhausted retries: %w", lastErr)
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.opts.URL, nil)
	if err != nil {
		return "", false, err
	}
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	req.Header.Set("Accept", "application/xml, text/xml, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		// Transport errors and timeouts are retryable.
		return "", true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", true, fmt.Errorf("feed fetch rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("feed fetch failed: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, err
	}
	return string(body), false, nil
}

// sleepBackoff waits 2^attempt seconds or until the context is cancelled.
func sleepBackoff(ctx context.Context, attempt int) error {
	delay := time.Duration(1<<uint(attempt)) * time.Second
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ DocumentFetcher = (*HTTPFetcher)(nil)
