package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Fetcher downloads source documents with a shared rate limit, a descriptive
// user agent, and a per-request timeout. All adapters of one orchestrator
// share a single Fetcher so the inter-request delay holds across sources.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithUserAgent overrides the request user agent.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.client.Timeout = d }
}

// WithRequestDelay sets the fixed delay between consecutive requests.
func WithRequestDelay(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// NewFetcher creates a Fetcher with a 30s timeout and no delay by default.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Inf, 1),
		userAgent: "ImportIQBot/1.0 (+https://importiq.example/bot)",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get downloads url and returns the response body. Failures come back as
// *TransportError tagged with the calling source.
func (f *Fetcher) Get(ctx context.Context, source, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Source: source, URL: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{Source: source, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{Source: source, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{
			Source: source,
			URL:    url,
			Err:    &httpStatusError{status: resp.StatusCode},
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, &TransportError{Source: source, URL: url, Err: err}
	}
	return body, nil
}

type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.status, http.StatusText(e.status))
}
