package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// RobotsGuard answers robots.txt questions for navigations that bypass colly, such as the
// browser session. A disabled guard allows everything.
type RobotsGuard struct {
	client    *http.Client
	cache     sync.Map
	enabled   bool
	userAgent string
	logger    *zap.Logger
}

// NewRobotsGuard builds a guard. When enabled is false every URL is allowed.
func NewRobotsGuard(enabled bool, userAgent string, logger *zap.Logger) *RobotsGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RobotsGuard{
		client:    &http.Client{Timeout: 10 * time.Second},
		enabled:   enabled,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Allowed reports whether rawURL may be fetched. Fetch failures fail open.
func (r *RobotsGuard) Allowed(ctx context.Context, rawURL string) bool {
	if r == nil || !r.enabled {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	data, err := r.load(ctx, parsed)
	if err != nil {
		r.logger.Warn("robots fetch failed; allowing access", zap.String("host", parsed.Host), zap.Error(err))
		return true
	}
	group := data.FindGroup(r.userAgent)
	if group == nil {
		return true
	}
	return group.Test(parsed.Path)
}

func (r *RobotsGuard) load(ctx context.Context, parsed *url.URL) (*robotstxt.RobotsData, error) {
	hostKey := strings.ToLower(parsed.Host)
	if data, ok := r.cache.Load(hostKey); ok {
		cached, assertOK := data.(*robotstxt.RobotsData)
		if !assertOK {
			return nil, fmt.Errorf("robots cache type mismatch: %T", data)
		}
		return cached, nil
	}

	robotsURL := url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/robots.txt"}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			r.logger.Debug("failed to close robots response body", zap.Error(cerr))
		}
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	r.cache.Store(hostKey, data)
	return data, nil
}
