package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
)

// Page is a fetched document.
type Page struct {
	URL      string
	Status   int
	Headers  http.Header
	Body     []byte
	Duration time.Duration
}

// Fetcher is the plain HTTP surface adapters depend on. *HTTPSession implements it.
type Fetcher interface {
	Get(ctx context.Context, url string, headers http.Header) (*Page, error)
	GetJSON(ctx context.Context, url string, headers http.Header, v any) error
}

var _ Fetcher = (*HTTPSession)(nil)

// NavigationError is the error a Tab reports alongside a navigation status. nil means success.
func NavigationError(rawURL string, status int) error {
	return classifyStatus(rawURL, status, nil)
}

// classifyStatus maps an HTTP status to the crawler error taxonomy. nil means success.
func classifyStatus(rawURL string, status int, cause error) error {
	switch {
	case status == http.StatusForbidden || status == http.StatusTooManyRequests:
		return &crawler.BlockedError{URL: rawURL, Status: status}
	case status >= 500:
		return &crawler.TransientNetworkError{URL: rawURL, Status: status, Err: cause}
	case status >= 200 && status < 300:
		return nil
	case status == 0:
		if cause == nil {
			cause = fmt.Errorf("no response")
		}
		return &crawler.TransientNetworkError{URL: rawURL, Err: cause}
	default:
		return fmt.Errorf("fetch %s: unexpected status %d", rawURL, status)
	}
}
