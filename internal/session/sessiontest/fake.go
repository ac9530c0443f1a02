// Package sessiontest provides scripted Browser and Tab fakes for adapter tests.
package sessiontest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/JakeFAU/jobboard-crawler/internal/session"
)

// Response is what a fake tab serves for a navigation. A non-2xx Status without Err is reported
// with the same error a real tab would return.
type Response struct {
	Status int
	HTML   string
	Err    error
}

// Handler answers a navigation to url.
type Handler func(url string) Response

// EvalFunc answers a script evaluation. The returned value is JSON round-tripped into the
// caller's out pointer.
type EvalFunc func(tab *Tab, expression string) (any, error)

// Browser opens fake tabs. Safe for concurrent use.
type Browser struct {
	Handler Handler
	Eval    EvalFunc
	// OpenErr fails every NewTab call when set.
	OpenErr error

	mu     sync.Mutex
	tabs   []*Tab
	closed bool
}

var _ session.Browser = (*Browser)(nil)

// NewTab implements session.Browser.
func (b *Browser) NewTab(ctx context.Context, opts session.TabOptions) (session.Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t := &Tab{Options: opts, handler: b.Handler, eval: b.Eval, index: len(b.tabs)}
	b.tabs = append(b.tabs, t)
	return t, nil
}

// Close implements session.Browser.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Tabs returns every tab opened so far.
func (b *Browser) Tabs() []*Tab {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Tab, len(b.tabs))
	copy(out, b.tabs)
	return out
}

// AllClosed reports whether every opened tab was closed.
func (b *Browser) AllClosed() bool {
	for _, t := range b.Tabs() {
		if !t.Closed() {
			return false
		}
	}
	return true
}

// Tab is a scripted session.Tab.
type Tab struct {
	Options session.TabOptions

	handler Handler
	eval    EvalFunc
	index   int

	mu      sync.Mutex
	url     string
	current Response
	visited []string
	clicked []string
	closed  bool
}

var _ session.Tab = (*Tab)(nil)

// Index is the order in which the browser opened this tab, starting at zero.
func (t *Tab) Index() int { return t.index }

// Navigate implements session.Tab.
func (t *Tab) Navigate(ctx context.Context, url string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	resp := Response{Status: http.StatusOK}
	if t.handler != nil {
		resp = t.handler(url)
	}
	if resp.Status == 0 && resp.Err == nil {
		resp.Status = http.StatusOK
	}
	if resp.Err == nil {
		resp.Err = session.NavigationError(url, resp.Status)
	}
	t.mu.Lock()
	t.url = url
	t.current = resp
	t.visited = append(t.visited, url)
	t.mu.Unlock()
	return resp.Status, resp.Err
}

// WaitVisible succeeds when the current document mentions the selector's class or id token.
func (t *Tab) WaitVisible(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	html := t.current.HTML
	t.mu.Unlock()
	token := selector
	if i := strings.LastIndexAny(token, ".#"); i >= 0 {
		token = token[i+1:]
	}
	if strings.Contains(html, token) {
		return nil
	}
	return fmt.Errorf("wait for %s: %w", selector, context.DeadlineExceeded)
}

// Click records the selector.
func (t *Tab) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clicked = append(t.clicked, selector)
	return nil
}

// Eval implements session.Tab through the browser's EvalFunc.
func (t *Tab) Eval(ctx context.Context, expression string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.eval == nil {
		return errors.New("no eval script")
	}
	v, err := t.eval(t, expression)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// HTML implements session.Tab.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current.HTML, nil
}

// Close implements session.Tab.
func (t *Tab) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

// URL is the last navigated address.
func (t *Tab) URL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url
}

// Visited lists every navigation in order.
func (t *Tab) Visited() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.visited...)
}

// Clicked lists every clicked selector in order.
func (t *Tab) Clicked() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.clicked...)
}

// Closed reports whether Close was called.
func (t *Tab) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
