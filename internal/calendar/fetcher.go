package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// Some providers reject requests without a browser user agent.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	acceptCalendar   = "text/calendar, text/plain;q=0.9, */*;q=0.8"

	maxFeedBytes = 10 << 20
)

// Fetcher downloads iCal feeds with a per-request timeout and spaces
// requests out so providers are not hammered during bulk runs.
type Fetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	maxBytes   int64
}

// NewFetcher creates a fetcher. A spacing of zero disables pacing.
func NewFetcher(timeout, spacing time.Duration) *Fetcher {
	limit := rate.Inf
	if spacing > 0 {
		limit = rate.Every(spacing)
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		maxBytes:   maxFeedBytes,
	}
}

// Fetch downloads the feed at url and returns its body.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", &FetchError{URL: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", acceptCalendar)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &FetchError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading body: %w", err)}
	}
	if int64(len(body)) > f.maxBytes {
		return "", &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w (limit %d bytes)", ErrFeedTooLarge, f.maxBytes)}
	}
	return string(body), nil
}
