// Package saramin crawls saramin.co.kr. Listing pages are plain HTML; detail pages fingerprint
// automation, so they go through the stealth browser, and the posting body lives in an
// embedded document that is loaded in a second tab.
package saramin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-crawler/internal/clock/system"
	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/session"
	"github.com/JakeFAU/jobboard-crawler/internal/taxonomy"
	"github.com/JakeFAU/jobboard-crawler/internal/textutil"
)

// DefaultOrigin is the production host.
const DefaultOrigin = "https://www.saramin.co.kr"

const (
	minDetailChars = 1000
	bodyWait       = 10 * time.Second
	contentWait    = 10 * time.Second
	embedSettle    = 2 * time.Second
)

var (
	recIdxPattern = regexp.MustCompile(`rec_idx[=:](\d+)`)
	errShortBody  = errors.New("rendered document too short")
)

// Config wires the adapter's collaborators. HTTP is required; Browser is required for detail
// pages.
type Config struct {
	HTTP       session.Fetcher
	Browser    session.Browser
	Retrier    *session.Retrier
	Pauser     session.Pauser
	Taxonomies *taxonomy.Taxonomies
	Clock      crawler.Clock
	Logger     *zap.Logger
	// Auditor receives suspicious embedded documents. nil only logs them.
	Auditor crawler.Auditor
	// Origin replaces DefaultOrigin for listing, posting and embedded document URLs.
	Origin string
}

// Adapter implements crawler.Adapter for saramin.
type Adapter struct {
	http    session.Fetcher
	browser session.Browser
	retrier *session.Retrier
	pauser  session.Pauser
	tax     *taxonomy.Taxonomies
	clock   crawler.Clock
	logger  *zap.Logger
	auditor crawler.Auditor
	origin  string
	domain  string

	mu   sync.Mutex
	meta map[string]crawler.ListingMeta
}

var _ crawler.Adapter = (*Adapter)(nil)

// New builds an adapter, filling unset collaborators with production defaults.
func New(cfg Config) (*Adapter, error) {
	if cfg.HTTP == nil {
		return nil, &crawler.ConfigurationError{Reason: "saramin adapter requires an http session"}
	}
	a := &Adapter{
		http:    cfg.HTTP,
		browser: cfg.Browser,
		retrier: cfg.Retrier,
		pauser:  cfg.Pauser,
		tax:     cfg.Taxonomies,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		auditor: cfg.Auditor,
		origin:  strings.TrimRight(cfg.Origin, "/"),
		meta:    make(map[string]crawler.ListingMeta),
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	a.logger = a.logger.With(zap.String("site", string(crawler.PlatformSaramin)))
	if a.retrier == nil {
		a.retrier = session.NewRetrier(session.DefaultRetryPolicy(), a.logger)
	}
	if a.pauser == nil {
		a.pauser = session.TimerPauser{}
	}
	if a.tax == nil {
		a.tax = taxonomy.Default()
	}
	if a.clock == nil {
		a.clock = system.New()
	}
	if a.origin == "" {
		a.origin = DefaultOrigin
	}
	u, err := url.Parse(a.origin)
	if err != nil || u.Hostname() == "" {
		return nil, &crawler.ConfigurationError{Reason: "saramin origin is not a url", Err: err}
	}
	a.domain = strings.TrimPrefix(u.Hostname(), "www.")
	return a, nil
}

func (a *Adapter) remember(u string, m crawler.ListingMeta) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.meta[u] = m
}

// Metadata returns the listing snapshot cached for u.
func (a *Adapter) Metadata(u string) (crawler.ListingMeta, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.meta[u]
	return m, ok
}

// ExtractDetail renders the posting, loads its embedded body and builds the posting from both.
func (a *Adapter) ExtractDetail(ctx context.Context, rawURL string, cfg crawler.SiteConfig) (*crawler.JobPosting, error) {
	m := recIdxPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, fmt.Errorf("saramin: no rec_idx in %s: %w", rawURL, crawler.ErrNoPosting)
	}
	recIdx := m[1]
	if a.browser == nil {
		return nil, &crawler.ConfigurationError{Reason: "saramin detail requires a browser session"}
	}
	if err := a.pauser.Pause(ctx, session.Between(time.Second, 3*time.Second)); err != nil {
		return nil, err
	}

	opts := session.TabOptionsFor(cfg)
	var html string
	err := a.retrier.Do(ctx, "saramin detail", func(ctx context.Context, attempt int) error {
		var err error
		html, err = a.renderDetail(ctx, opts, rawURL)
		if err != nil {
			a.logger.Debug("detail render failed", zap.String("rec_idx", recIdx), zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("saramin detail %s: %w", recIdx, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("saramin detail %s: parse: %w", recIdx, err)
	}
	section := jobSection(doc, recIdx)
	content := a.embeddedContent(ctx, opts, rawURL, section, recIdx)
	meta, _ := a.Metadata(rawURL)

	posting := a.buildPosting(section, content, rawURL, recIdx, meta)
	if posting.JobTitle == "" && posting.Company.Name == "" {
		return nil, fmt.Errorf("saramin detail %s: %w", recIdx, crawler.ErrNoPosting)
	}
	if err := a.pauser.Pause(ctx, session.Between(500*time.Millisecond, 1500*time.Millisecond)); err != nil {
		return nil, err
	}
	return posting, nil
}

// renderDetail is one load attempt. Blocked and short documents are retryable.
func (a *Adapter) renderDetail(ctx context.Context, opts session.TabOptions, rawURL string) (string, error) {
	tab, err := a.browser.NewTab(ctx, opts)
	if err != nil {
		return "", fmt.Errorf("open tab: %w", err)
	}
	defer tab.Close()

	// Navigate reports the status together with its error.
	status, err := tab.Navigate(ctx, rawURL)
	if status == http.StatusNotFound || status == http.StatusGone {
		return "", fmt.Errorf("status %d: %w", status, crawler.ErrNoPosting)
	}
	if err != nil {
		return "", err
	}
	if err := tab.WaitVisible(ctx, "body", bodyWait); err != nil {
		a.logger.Debug("body wait timed out", zap.String("url", rawURL), zap.Error(err))
	}
	if err := a.pauser.Pause(ctx, session.Between(1500*time.Millisecond, 3*time.Second)); err != nil {
		return "", err
	}
	html, err := tab.HTML(ctx)
	if err != nil {
		return "", err
	}
	if n := utf8.RuneCountInString(html); n <= minDetailChars {
		return "", &crawler.TransientNetworkError{URL: rawURL, Err: fmt.Errorf("%w: %d chars", errShortBody, n)}
	}
	return html, nil
}

// jobSection narrows the page to the posting's own jview section; related postings rendered on
// the same page are ignored. The whole page is used when no section matches.
func jobSection(doc *goquery.Document, recIdx string) *goquery.Document {
	target := "jview-0-" + recIdx
	section := doc.Find("section." + target).First()
	if section.Length() == 0 {
		doc.Find("section.jview").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			for _, class := range strings.Fields(s.AttrOr("class", "")) {
				if strings.HasPrefix(class, "jview-") && strings.Contains(class, recIdx) {
					section = s
					return false
				}
			}
			return true
		})
	}
	if section.Length() == 0 {
		return doc
	}
	return goquery.NewDocumentFromNode(section.Nodes[0])
}

// embeddedContent loads the posting body document and returns its div.user_content, or nil.
// Every suspicious trait of the embedded document is reported to the auditor.
func (a *Adapter) embeddedContent(ctx context.Context, opts session.TabOptions, postingURL string, section *goquery.Document, recIdx string) *goquery.Selection {
	frame := section.Find("#iframe_content_" + recIdx).First()
	if frame.Length() == 0 {
		frame = section.Find("iframe.iframe_content").First()
	}
	src := strings.TrimSpace(frame.AttrOr("src", ""))
	if src == "" {
		a.logger.Debug("no embedded content frame", zap.String("rec_idx", recIdx))
		return nil
	}
	frameURL := textutil.NormalizeURL(src, a.origin)

	raw, err := a.renderEmbedded(ctx, opts, frameURL)
	if err != nil {
		a.logger.Warn("embedded content unavailable", zap.String("url", frameURL), zap.Error(err))
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	for _, f := range inspectEmbedded(doc) {
		a.report(ctx, postingURL, frameURL, f, raw)
	}
	content := doc.Find("div.user_content").First()
	if content.Length() == 0 {
		return nil
	}
	return content
}

func (a *Adapter) renderEmbedded(ctx context.Context, opts session.TabOptions, frameURL string) ([]byte, error) {
	tab, err := a.browser.NewTab(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}
	defer tab.Close()

	if _, err := tab.Navigate(ctx, frameURL); err != nil {
		return nil, err
	}
	if err := a.pauser.Pause(ctx, embedSettle); err != nil {
		return nil, err
	}
	if err := tab.WaitVisible(ctx, "div.user_content", contentWait); err != nil {
		a.logger.Debug("user_content wait timed out", zap.String("url", frameURL))
	}
	html, err := tab.HTML(ctx)
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}

func (a *Adapter) report(ctx context.Context, postingURL, frameURL string, f finding, raw []byte) {
	found := crawler.SuspiciousFinding{
		Site:       crawler.PlatformSaramin,
		URL:        frameURL,
		PostingURL: postingURL,
		Kind:       f.kind,
		Sample:     textutil.Truncate(f.sample, maxSampleRunes),
		HTML:       raw,
		DetectedAt: a.clock.Now(),
	}
	a.logger.Warn("suspicious embedded content",
		zap.String("posting_url", postingURL),
		zap.Error(found.Err()),
	)
	if a.auditor != nil {
		a.auditor.Record(ctx, found)
	}
}
