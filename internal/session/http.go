package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/metrics"
)

// HTTPConfig controls the colly-backed session.
type HTTPConfig struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
}

// HTTPSession performs plain GETs through a colly collector.
type HTTPSession struct {
	cfg           HTTPConfig
	baseCollector *colly.Collector
	limiter       *HostLimiter
	logger        *zap.Logger
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// NewHTTPSession builds a session. limiter may be nil.
func NewHTTPSession(cfg HTTPConfig, limiter *HostLimiter, logger *zap.Logger) *HTTPSession {
	if cfg.UserAgent == "" {
		cfg.UserAgent = crawler.DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.WithTransport(newHTTPTransport())
	return &HTTPSession{
		cfg:           cfg,
		baseCollector: c,
		limiter:       limiter,
		logger:        logger,
	}
}

// Get fetches rawURL with the supplied headers. Non-2xx responses come back as taxonomy errors
// together with the page so callers can inspect the body.
func (s *HTTPSession) Get(ctx context.Context, rawURL string, headers http.Header) (*Page, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, rawURL); err != nil {
			return nil, err
		}
	}
	var (
		page     Page
		status   int
		fetchErr error
	)
	start := time.Now()
	collector := s.buildCollector(ctx)
	s.configureCollectorHooks(collector, headers, start, &page, &status, &fetchErr)

	err := s.runCollector(ctx, collector, rawURL)
	metrics.ObserveFetch(rawURL, "http", status)
	if ctx.Err() != nil {
		return nil, fmt.Errorf("http fetch canceled: %w", ctx.Err())
	}
	if status == 0 && page.Status != 0 {
		status = page.Status
	}
	cause := fetchErr
	if cause == nil {
		cause = err
	}
	if errors.Is(cause, colly.ErrRobotsTxtBlocked) {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, cause)
	}
	if classified := classifyStatus(rawURL, status, cause); classified != nil {
		s.logger.Debug("http fetch failed", zap.String("url", rawURL), zap.Int("status", status), zap.Error(cause))
		if page.URL == "" {
			return nil, classified
		}
		return &page, classified
	}
	return &page, nil
}

// GetJSON fetches rawURL and decodes the JSON body into v.
func (s *HTTPSession) GetJSON(ctx context.Context, rawURL string, headers http.Header, v any) error {
	h := headers.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Accept", "application/json, text/plain, */*")
	page, err := s.Get(ctx, rawURL, h)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(page.Body, v); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

// buildCollector clones the base collector bound to ctx, so cancelling ctx aborts the request
// in the transport.
func (s *HTTPSession) buildCollector(ctx context.Context) *colly.Collector {
	collector := s.baseCollector.Clone()
	colly.StdlibContext(ctx)(collector)
	collector.UserAgent = s.cfg.UserAgent
	collector.IgnoreRobotsTxt = !s.cfg.RespectRobots
	collector.SetRequestTimeout(s.cfg.Timeout)
	return collector
}

func (s *HTTPSession) configureCollectorHooks(
	hooks collectorHooks,
	headers http.Header,
	start time.Time,
	page *Page,
	status *int,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		for key, values := range headers {
			r.Headers.Del(key)
			for _, v := range values {
				r.Headers.Add(key, v)
			}
		}
	})

	hooks.OnResponse(func(r *colly.Response) {
		*status = r.StatusCode
		*page = Page{
			URL:      r.Request.URL.String(),
			Status:   r.StatusCode,
			Headers:  r.Headers.Clone(),
			Body:     append([]byte(nil), r.Body...),
			Duration: time.Since(start),
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		*fetchErr = err
		if r == nil {
			return
		}
		*status = r.StatusCode
		if r.StatusCode != 0 && r.Request != nil {
			*page = Page{
				URL:      r.Request.URL.String(),
				Status:   r.StatusCode,
				Body:     append([]byte(nil), r.Body...),
				Duration: time.Since(start),
			}
			if r.Headers != nil {
				page.Headers = r.Headers.Clone()
			}
		}
	})
}

func (s *HTTPSession) runCollector(ctx context.Context, collector *colly.Collector, rawURL string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		// The request carries ctx, so Visit unwinds promptly.
		<-done
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
