package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/custodia-labs/countersign/internal/core/domain"
	"github.com/custodia-labs/countersign/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentSource = (*Source)(nil)

// DefaultMaxBytes caps the size of a fetched document
const DefaultMaxBytes = 32 << 20

// Source loads base documents over HTTP(S). Server errors are retried
// with linear backoff; client errors are not.
type Source struct {
	httpClient *http.Client
	maxBytes   int64
	maxRetries int
}

// Config configures a Source.
type Config struct {
	Timeout    time.Duration // Per-request timeout (default: 30s)
	MaxBytes   int64         // Largest accepted document (default: 32 MiB)
	MaxRetries int           // Retries after a 5xx response (default: 2)
}

// NewSource creates a new HTTP document source.
func NewSource(cfg Config) *Source {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	return &Source{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxBytes:   cfg.MaxBytes,
		maxRetries: cfg.MaxRetries,
	}
}

// Fetch downloads the document at rawURL.
func (s *Source) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: unsupported document url %q", domain.ErrInvalidInput, rawURL)
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		data, retry, err := s.get(ctx, u.String())
		if err == nil {
			return data, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *Source) get(ctx context.Context, target string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("fetch document: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, false, fmt.Errorf("document %s: %w", target, domain.ErrNotFound)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("fetch document: server returned %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, false, fmt.Errorf("fetch document: server returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, true, fmt.Errorf("read document: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, false, fmt.Errorf("%w: document exceeds %d bytes", domain.ErrInvalidInput, s.maxBytes)
	}
	return data, false, nil
}
