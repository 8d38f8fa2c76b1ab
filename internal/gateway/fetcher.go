package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrWong99/verdex/internal/resilience"
)

// ErrNotFound is returned by a [Fetcher] when the source definitively reports
// that no document exists at the URL. It is never retried — a 404 for statute
// 999.999 today will be a 404 tomorrow.
var ErrNotFound = errors.New("gateway: document not found")

// Fetcher retrieves raw statute documents from the authoritative source.
type Fetcher interface {
	// FetchDocument returns the body at url. Transient failures may be
	// retried internally; a wrapped [ErrNotFound] signals a definitive miss.
	FetchDocument(ctx context.Context, url string) ([]byte, error)
}

// maxDocumentSize caps the response body read. Statute pages are a few
// hundred KB at most; anything larger is a misbehaving source.
const maxDocumentSize = 8 << 20

const (
	defaultFetchTimeout = 15 * time.Second
	defaultMaxRetries   = 2
	defaultRetryBackoff = 500 * time.Millisecond
)

// HTTPFetcher fetches statute documents over HTTP with bounded per-request
// timeouts and limited retries on transient failures. Non-transient HTTP
// statuses (404, 410, other 4xx) fail immediately.
type HTTPFetcher struct {
	client  *http.Client
	retries int
	backoff time.Duration
	breaker *resilience.Breaker
}

var _ Fetcher = (*HTTPFetcher)(nil)

// FetcherOption is a functional option for [NewHTTPFetcher].
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithFetchTimeout sets the per-request timeout. Default: 15s.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) { f.client.Timeout = d }
}

// WithMaxRetries sets how many additional attempts follow a transient
// failure. Default: 2.
func WithMaxRetries(n int) FetcherOption {
	return func(f *HTTPFetcher) { f.retries = n }
}

// WithRetryBackoff sets the base delay between attempts; the delay grows
// linearly with the attempt number. Default: 500ms.
func WithRetryBackoff(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) { f.backoff = d }
}

// WithBreaker guards the fetcher with a circuit breaker. One FetchDocument
// call, retries included, counts as a single breaker sample.
func WithBreaker(b *resilience.Breaker) FetcherOption {
	return func(f *HTTPFetcher) { f.breaker = b }
}

// NewHTTPFetcher creates an [HTTPFetcher] with the supplied options.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:  &http.Client{Timeout: defaultFetchTimeout},
		retries: defaultMaxRetries,
		backoff: defaultRetryBackoff,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// FetchDocument implements [Fetcher].
func (f *HTTPFetcher) FetchDocument(ctx context.Context, url string) ([]byte, error) {
	if f.breaker == nil {
		return f.fetchWithRetries(ctx, url)
	}

	var body []byte
	err := f.breaker.Do(func() error {
		var ferr error
		body, ferr = f.fetchWithRetries(ctx, url)
		// A definitive 404 means the source answered; it must not trip
		// the breaker.
		if errors.Is(ferr, ErrNotFound) {
			body = nil
			return nil
		}
		return ferr
	})
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fmt.Errorf("gateway: fetch %s: %w", url, ErrNotFound)
	}
	return body, nil
}

func (f *HTTPFetcher) fetchWithRetries(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			delay := f.backoff * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, retryable, err := f.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// fetchOnce performs a single HTTP GET. The retryable flag is true only for
// transient failures: network errors, 5xx and 429 responses.
func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("gateway: build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "verdex/1.0 (statute verification)")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		return nil, true, fmt.Errorf("gateway: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
		if err != nil {
			return nil, true, fmt.Errorf("gateway: read body of %s: %w", url, err)
		}
		return body, false, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, false, fmt.Errorf("gateway: fetch %s: %w", url, ErrNotFound)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("gateway: fetch %s: unexpected status %d", url, resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("gateway: fetch %s: unexpected status %d", url, resp.StatusCode)
	}
}
