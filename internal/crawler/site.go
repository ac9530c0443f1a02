package crawler

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// CrawlStrategy names how a board is traversed.
type CrawlStrategy string

// Supported crawl strategies.
const (
	StrategyAPI     CrawlStrategy = "API"
	StrategyHTML    CrawlStrategy = "HTML"
	StrategyBrowser CrawlStrategy = "BROWSER"
)

// Viewport is a browser window size.
type Viewport struct {
	Width  int64
	Height int64
}

// BrowserOptions configures the headless session a site needs.
type BrowserOptions struct {
	Headless bool
	Viewport Viewport
	// Stealth enables the anti-detection shims, locale/timezone emulation and UA rotation.
	Stealth bool
	// BlockResources lists URL patterns the browser refuses to load.
	BlockResources []string
}

// SiteConfig holds the per-platform constants for one run. Treat it as read-only once loaded.
type SiteConfig struct {
	Name            Platform
	BaseURL         string
	ListingSelector string
	MaxPages        int
	Delay           time.Duration
	Strategy        CrawlStrategy
	// DetailStrategy differs from Strategy for boards whose listing and detail pages need
	// different transports.
	DetailStrategy CrawlStrategy
	SearchParams   map[string]string
	CommonHeaders  http.Header
	Browser        BrowserOptions
}

// DefaultUserAgent is the desktop Chrome UA sent when a site does not rotate agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"

// CommonBrowserHeaders returns the header set that mimics a Korean desktop browser.
func CommonBrowserHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", DefaultUserAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "ko-KR,ko;q=0.8,en-US;q=0.5,en;q=0.3")
	h.Set("DNT", "1")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Cache-Control", "max-age=0")
	return h
}

// DefaultSites returns a fresh copy of the built-in site table.
func DefaultSites() map[Platform]SiteConfig {
	wantedList := "https://www.wanted.co.kr/wdlist/518?country=kr&job_sort=job.latest_order&years=-1&locations=all"

	wantedHeaders := CommonBrowserHeaders()
	wantedHeaders.Set("Referer", wantedList)
	wantedHeaders.Set("X-Requested-With", "XMLHttpRequest")

	saraminHeaders := CommonBrowserHeaders()
	saraminHeaders.Set("Referer", "https://www.saramin.co.kr/")

	return map[Platform]SiteConfig{
		PlatformWanted: {
			Name:            PlatformWanted,
			BaseURL:         wantedList,
			ListingSelector: "a[data-position-id]",
			MaxPages:        10,
			Delay:           2 * time.Second,
			Strategy:        StrategyAPI,
			DetailStrategy:  StrategyAPI,
			CommonHeaders:   wantedHeaders,
			Browser: BrowserOptions{
				Headless: true,
				Viewport: Viewport{Width: 960, Height: 640},
			},
		},
		PlatformSaramin: {
			Name:            PlatformSaramin,
			BaseURL:         "https://www.saramin.co.kr/zf_user/jobs/list/job-category",
			ListingSelector: ".item_recruit .job_tit a",
			MaxPages:        1,
			Delay:           3 * time.Second,
			Strategy:        StrategyHTML,
			DetailStrategy:  StrategyBrowser,
			CommonHeaders:   saraminHeaders,
			Browser: BrowserOptions{
				Headless: true,
				Viewport: Viewport{Width: 1920, Height: 1080},
				Stealth:  true,
				BlockResources: []string{
					"*.png", "*.jpg", "*.jpeg", "*.gif", "*.svg",
					"*.css", "*.woff", "*.woff2",
				},
			},
		},
		PlatformJobKorea: {
			Name:            PlatformJobKorea,
			BaseURL:         "https://www.jobkorea.co.kr/recruit/joblist",
			ListingSelector: ".recruit-info a.title",
			MaxPages:        10,
			Delay:           2 * time.Second,
			Strategy:        StrategyBrowser,
			DetailStrategy:  StrategyHTML,
			SearchParams: map[string]string{
				"menucode": "2",
				"jobkind":  "1",
				"Page_No":  "{page}",
			},
			CommonHeaders: CommonBrowserHeaders(),
			Browser: BrowserOptions{
				Headless: true,
				Viewport: Viewport{Width: 960, Height: 640},
			},
		},
	}
}

// SupportedPlatforms lists the built-in sites in a stable order.
func SupportedPlatforms() []Platform {
	return []Platform{PlatformWanted, PlatformJobKorea, PlatformSaramin}
}

// ParsePlatform validates a user supplied site name.
func ParsePlatform(name string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range SupportedPlatforms() {
		if p == known {
			return p, nil
		}
	}
	return "", &ConfigurationError{Reason: fmt.Sprintf("unsupported site %q", name), Err: ErrUnsupportedSite}
}

// BuildPageURL fills {page} placeholders in the search parameters and appends them to BaseURL.
func (c SiteConfig) BuildPageURL(page int) string {
	if len(c.SearchParams) == 0 {
		return c.BaseURL
	}
	keys := make([]string, 0, len(c.SearchParams))
	for k := range c.SearchParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := strings.ReplaceAll(c.SearchParams[k], "{page}", fmt.Sprint(page))
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
	}
	sep := "?"
	if strings.Contains(c.BaseURL, "?") {
		sep = "&"
	}
	return c.BaseURL + sep + strings.Join(parts, "&")
}

// Headers returns a copy of the site's header set with an optional referer.
func (c SiteConfig) Headers(referer string) http.Header {
	h := c.CommonHeaders.Clone()
	if h == nil {
		h = http.Header{}
	}
	if referer != "" {
		h.Set("Referer", referer)
	}
	return h
}

// Validate reports malformed site configuration.
func (c SiteConfig) Validate() error {
	switch {
	case c.Name == "":
		return &ConfigurationError{Reason: "site name is required"}
	case c.BaseURL == "":
		return &ConfigurationError{Reason: fmt.Sprintf("site %s: base url is required", c.Name)}
	case c.MaxPages <= 0:
		return &ConfigurationError{Reason: fmt.Sprintf("site %s: max pages must be > 0", c.Name)}
	case c.Delay < 0:
		return &ConfigurationError{Reason: fmt.Sprintf("site %s: delay must be >= 0", c.Name)}
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return &ConfigurationError{Reason: fmt.Sprintf("site %s: invalid base url", c.Name), Err: err}
	}
	switch c.Strategy {
	case StrategyAPI, StrategyHTML, StrategyBrowser:
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("site %s: unknown crawl strategy %q", c.Name, c.Strategy)}
	}
	return nil
}
