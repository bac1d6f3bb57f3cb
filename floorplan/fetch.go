package floorplan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultFetchTimeout bounds a single document request
	DefaultFetchTimeout = 30 * time.Second

	// DefaultFetchAttempts is how many times a transient failure is tried
	DefaultFetchAttempts = 3

	defaultFetchBackoff = 500 * time.Millisecond

	maxDocumentBytes = 16 << 20
)

// FetchOption configures FetchDocument
type FetchOption func(*fetchConfig)

type fetchConfig struct {
	timeout  time.Duration
	attempts int
	backoff  time.Duration
	client   *http.Client
}

// WithFetchTimeout sets the per-request timeout
func WithFetchTimeout(d time.Duration) FetchOption {
	return func(c *fetchConfig) { c.timeout = d }
}

// WithFetchAttempts sets the number of attempts, at least one
func WithFetchAttempts(n int) FetchOption {
	return func(c *fetchConfig) { c.attempts = max(n, 1) }
}

// WithFetchBackoff sets the delay before the second attempt. It doubles on
// each further attempt.
func WithFetchBackoff(d time.Duration) FetchOption {
	return func(c *fetchConfig) { c.backoff = d }
}

// WithFetchClient replaces the HTTP client
func WithFetchClient(client *http.Client) FetchOption {
	return func(c *fetchConfig) { c.client = client }
}

// IsRemoteDocument reports whether src names an http(s) URL rather than a file
func IsRemoteDocument(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// permanentError marks a failure that another attempt will not fix
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// FetchDocument downloads a map document, typically the GET /api/document
// export of another instance, and validates it like an import. Network
// errors and 5xx responses are retried; 4xx responses and invalid documents
// are not.
func FetchDocument(ctx context.Context, url string, opts ...FetchOption) (Document, error) {
	if url == "" {
		return Document{}, errors.New("fetch document: URL is empty")
	}
	cfg := fetchConfig{
		timeout:  DefaultFetchTimeout,
		attempts: DefaultFetchAttempts,
		backoff:  defaultFetchBackoff,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	client := cfg.client
	if client == nil {
		client = &http.Client{Timeout: cfg.timeout}
	}

	var lastErr error
	delay := cfg.backoff
	for attempt := 0; attempt < cfg.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Document{}, fmt.Errorf("fetch document: %w", ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		body, err := getDocument(ctx, client, url)
		if err != nil {
			var perm permanentError
			if errors.As(err, &perm) {
				return Document{}, fmt.Errorf("fetch document: %w", perm.err)
			}
			lastErr = err
			continue
		}
		doc, err := ParseDocument(body)
		if err != nil {
			return Document{}, fmt.Errorf("fetch document: %w", err)
		}
		return doc, nil
	}
	return Document{}, fmt.Errorf("fetch document: %d attempts failed: %w", cfg.attempts, lastErr)
}

func getDocument(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, permanentError{fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, permanentError{fmt.Errorf("GET %s: status %d", url, resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}
