package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/metrics"
)

// Tab is a single browser page. Adapters drive it step by step.
type Tab interface {
	// Navigate loads url and returns the document status.
	Navigate(ctx context.Context, url string) (int, error)
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Click(ctx context.Context, selector string) error
	Eval(ctx context.Context, expression string, out any) error
	HTML(ctx context.Context) (string, error)
	Close()
}

// Browser opens tabs.
type Browser interface {
	NewTab(ctx context.Context, opts TabOptions) (Tab, error)
	Close()
}

// TabOptions are applied to a tab before its first navigation.
type TabOptions struct {
	UserAgent      string
	Headers        http.Header
	Viewport       crawler.Viewport
	Stealth        bool
	BlockResources []string
}

// TabOptionsFor derives tab options from a site's browser settings.
func TabOptionsFor(cfg crawler.SiteConfig) TabOptions {
	opts := TabOptions{
		UserAgent:      crawler.DefaultUserAgent,
		Headers:        cfg.Headers(""),
		Viewport:       cfg.Browser.Viewport,
		Stealth:        cfg.Browser.Stealth,
		BlockResources: cfg.Browser.BlockResources,
	}
	if opts.Stealth {
		opts.UserAgent = RandomUserAgent()
	}
	opts.Headers.Del("User-Agent")
	return opts
}

// BrowserConfig controls the chromedp allocator.
type BrowserConfig struct {
	Headless   bool
	ExecPath   string
	NavTimeout time.Duration
	// MaxTabs caps concurrently open tabs; zero means unlimited.
	MaxTabs int
}

// BrowserSession is a lazily started headless Chrome shared by every tab it opens.
type BrowserSession struct {
	cfg           BrowserConfig
	limiter       chan struct{}
	allocator     context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	startOnce     sync.Once
	startErr      error
	robots        *RobotsGuard
	logger        *zap.Logger
}

// NewBrowserSession prepares the allocator. Chrome is not launched until the first tab.
func NewBrowserSession(cfg BrowserConfig, robots *RobotsGuard, logger *zap.Logger) (*BrowserSession, error) {
	if cfg.MaxTabs < 0 {
		return nil, fmt.Errorf("max tabs must be >= 0")
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter chan struct{}
	if cfg.MaxTabs > 0 {
		limiter = make(chan struct{}, cfg.MaxTabs)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headlessFlag(cfg.Headless)),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", "ko-KR"),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	return &BrowserSession{
		cfg:           cfg,
		limiter:       limiter,
		allocator:     allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		robots:        robots,
		logger:        logger,
	}, nil
}

func headlessFlag(headless bool) any {
	if headless {
		return "new"
	}
	return false
}

// Close shuts Chrome down.
func (s *BrowserSession) Close() {
	s.browserCancel()
	s.allocCancel()
}

// NewTab opens a tab and applies opts. The caller must Close it.
func (s *BrowserSession) NewTab(ctx context.Context, opts TabOptions) (Tab, error) {
	s.startOnce.Do(func() {
		if err := chromedp.Run(s.browserCtx); err != nil {
			s.startErr = fmt.Errorf("start browser: %w", err)
		}
	})
	if s.startErr != nil {
		return nil, s.startErr
	}
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)
	tab := &chromeTab{
		ctx:        tabCtx,
		cancel:     tabCancel,
		meta:       newResponseMeta(),
		navTimeout: s.cfg.NavTimeout,
		robots:     s.robots,
		release:    s.release,
	}
	chromedp.ListenTarget(tabCtx, tab.meta.captureEvent)
	if len(opts.BlockResources) > 0 {
		chromedp.ListenTarget(tabCtx, blockListener(tabCtx))
	}
	if err := tab.run(ctx, s.cfg.NavTimeout, tabSetupAction(opts)); err != nil {
		tab.Close()
		return nil, fmt.Errorf("prepare tab: %w", err)
	}
	// A page target's main frame shares the target's id.
	if c := chromedp.FromContext(tabCtx); c != nil && c.Target != nil {
		tab.meta.setMainFrame(cdp.FrameID(c.Target.TargetID))
	}
	return tab, nil
}

func (s *BrowserSession) acquire(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	select {
	case s.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("browser tab wait canceled: %w", ctx.Err())
	}
}

func (s *BrowserSession) release() {
	if s.limiter == nil {
		return
	}
	select {
	case <-s.limiter:
	default:
	}
}

func tabSetupAction(opts TabOptions) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if opts.UserAgent != "" {
			override := emulation.SetUserAgentOverride(opts.UserAgent).WithAcceptLanguage("ko-KR,ko;q=0.9")
			if err := override.Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if len(opts.Headers) > 0 {
			if err := network.SetExtraHTTPHeaders(toNetworkHeaders(opts.Headers)).Do(ctx); err != nil {
				return fmt.Errorf("set extra headers: %w", err)
			}
		}
		if opts.Viewport.Width > 0 && opts.Viewport.Height > 0 {
			if err := chromedp.EmulateViewport(opts.Viewport.Width, opts.Viewport.Height).Do(ctx); err != nil {
				return fmt.Errorf("set viewport: %w", err)
			}
		}
		if opts.Stealth {
			if err := applyStealth(ctx); err != nil {
				return err
			}
		}
		if len(opts.BlockResources) > 0 {
			patterns := make([]*fetch.RequestPattern, 0, len(opts.BlockResources))
			for _, p := range opts.BlockResources {
				patterns = append(patterns, &fetch.RequestPattern{URLPattern: p})
			}
			if err := fetch.Enable().WithPatterns(patterns).Do(ctx); err != nil {
				return fmt.Errorf("enable request blocking: %w", err)
			}
		}
		return nil
	})
}

// blockListener fails every request the fetch domain pauses; only blocked patterns are paused.
func blockListener(tabCtx context.Context) func(ev any) {
	return func(ev any) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(tabCtx)
			if c == nil || c.Target == nil {
				return
			}
			execCtx := cdp.WithExecutor(tabCtx, c.Target)
			_ = fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
		}()
	}
}

type chromeTab struct {
	ctx        context.Context
	cancel     context.CancelFunc
	meta       *responseMeta
	navTimeout time.Duration
	robots     *RobotsGuard
	release    func()
	closeOnce  sync.Once
}

func (t *chromeTab) Navigate(ctx context.Context, rawURL string) (int, error) {
	if !t.robots.Allowed(ctx, rawURL) {
		return 0, fmt.Errorf("navigate %s: disallowed by robots.txt", rawURL)
	}
	t.meta.reset()
	err := t.run(ctx, t.navTimeout, chromedp.Navigate(rawURL), chromedp.WaitReady("body", chromedp.ByQuery))
	status, _, _ := t.meta.snapshot()
	metrics.ObserveFetch(rawURL, "browser", status)
	if err != nil {
		return status, wrapBrowserErr(rawURL, err)
	}
	if status == 0 {
		status = http.StatusOK
	}
	return status, NavigationError(rawURL, status)
}

func (t *chromeTab) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = t.navTimeout
	}
	if err := t.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return nil
}

func (t *chromeTab) Click(ctx context.Context, selector string) error {
	if err := t.run(ctx, t.navTimeout, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (t *chromeTab) Eval(ctx context.Context, expression string, out any) error {
	if err := t.run(ctx, t.navTimeout, chromedp.Evaluate(expression, out)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

func (t *chromeTab) HTML(ctx context.Context) (string, error) {
	var html string
	if err := t.run(ctx, t.navTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return html, nil
}

func (t *chromeTab) Close() {
	t.closeOnce.Do(func() {
		t.cancel()
		t.release()
	})
}

// run executes actions in the tab, bounded by timeout and by the caller's ctx.
func (t *chromeTab) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("chromedp run: %w", ctxErr)
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("chromedp run: %w", context.DeadlineExceeded)
		}
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}

func wrapBrowserErr(rawURL string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &crawler.TransientNetworkError{URL: rawURL, Err: err}
}

// FetchRendered opens a tab, loads rawURL, optionally waits for waitSelector and returns the
// rendered document.
func FetchRendered(ctx context.Context, b Browser, rawURL string, opts TabOptions, waitSelector string, wait time.Duration) (*Page, error) {
	start := time.Now()
	tab, err := b.NewTab(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer tab.Close()

	status, err := tab.Navigate(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if waitSelector != "" {
		if err := tab.WaitVisible(ctx, waitSelector, wait); err != nil {
			return nil, &crawler.TransientNetworkError{URL: rawURL, Err: err}
		}
	}
	html, err := tab.HTML(ctx)
	if err != nil {
		return nil, &crawler.TransientNetworkError{URL: rawURL, Err: err}
	}
	return &Page{URL: rawURL, Status: status, Body: []byte(html), Duration: time.Since(start)}, nil
}

// responseMeta records the top-level document response of the current navigation. Documents
// of child frames (iframes) are ignored.
type responseMeta struct {
	mu        sync.RWMutex
	mainFrame cdp.FrameID
	frame     cdp.FrameID
	status    int
	headers   http.Header
	url       string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{headers: http.Header{}}
}

func (m *responseMeta) reset() {
	m.mu.Lock()
	m.status, m.headers, m.url, m.frame = 0, http.Header{}, "", ""
	m.mu.Unlock()
}

func (m *responseMeta) setMainFrame(id cdp.FrameID) {
	m.mu.Lock()
	m.mainFrame = id
	m.mu.Unlock()
}

// accepts reports whether a document from frame belongs to the top-level navigation. Without a
// known main frame the first document after reset pins the frame. Callers hold mu.
func (m *responseMeta) accepts(frame cdp.FrameID) bool {
	if m.mainFrame != "" {
		return frame == m.mainFrame
	}
	return m.status == 0 || frame == m.frame
}

func (m *responseMeta) capture(event *network.EventResponseReceived) {
	if event.Type != network.ResourceTypeDocument || event.Response == nil {
		return
	}
	headers := http.Header{}
	for key, value := range event.Response.Headers {
		switch v := value.(type) {
		case string:
			headers.Add(key, v)
		case []any:
			for _, entry := range v {
				headers.Add(key, fmt.Sprint(entry))
			}
		default:
			headers.Add(key, fmt.Sprint(v))
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.accepts(event.FrameID) {
		return
	}
	m.frame = event.FrameID
	m.status = int(event.Response.Status)
	m.headers = headers
	m.url = event.Response.URL
}

func (m *responseMeta) captureEvent(ev any) {
	if resp, ok := ev.(*network.EventResponseReceived); ok {
		m.capture(resp)
	}
}

func (m *responseMeta) snapshot() (int, http.Header, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status, m.headers.Clone(), m.url
}

func toNetworkHeaders(h http.Header) network.Headers {
	headers := network.Headers{}
	for key, values := range h {
		switch len(values) {
		case 0:
		case 1:
			headers[key] = values[0]
		default:
			headers[key] = append([]string(nil), values...)
		}
	}
	return headers
}
