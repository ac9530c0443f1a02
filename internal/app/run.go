package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/jobboard-crawler/internal/adapter"
	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/orchestrator"
	"github.com/JakeFAU/jobboard-crawler/internal/session"
)

// siteAll selects every supported board.
const siteAll = "all"

// ParseSites turns a --site value ("all", one name, or a comma list) into platforms. Unknown
// names fail with a ConfigurationError; duplicates are dropped.
func ParseSites(value string) ([]crawler.Platform, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, &crawler.ConfigurationError{Reason: "--site is required"}
	}
	if strings.EqualFold(value, siteAll) {
		return crawler.SupportedPlatforms(), nil
	}
	seen := make(map[crawler.Platform]struct{})
	var out []crawler.Platform
	for _, name := range strings.Split(value, ",") {
		p, err := crawler.ParsePlatform(name)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

// Crawl runs one isolated orchestrator per site concurrently. Every site produces a result,
// in the order of sites, even when another site fails; the returned error joins the site
// errors.
func (a *App) Crawl(ctx context.Context, sites []crawler.Platform, opts orchestrator.Options) ([]crawler.CrawlResult, error) {
	results := make([]crawler.CrawlResult, len(sites))
	errs := make([]error, len(sites))
	var g errgroup.Group
	for i, site := range sites {
		g.Go(func() error {
			res, err := a.CrawlSite(ctx, site, opts)
			results[i] = res
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", site, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}

// CrawlSite opens the site's sessions, runs it and releases the sessions on every path.
func (a *App) CrawlSite(ctx context.Context, site crawler.Platform, opts orchestrator.Options) (crawler.CrawlResult, error) {
	siteCfg, ok := a.Config.SiteTable()[site]
	if !ok {
		return crawler.CrawlResult{Site: site}, &crawler.ConfigurationError{Reason: "no site config for " + string(site), Err: crawler.ErrUnsupportedSite}
	}
	if opts.DaysBack <= 0 {
		opts.DaysBack = a.Config.Crawler.DaysBack
	}
	logger := a.Logger.With(zap.String("site", string(site)))

	deps, release, err := a.sessionsFor(siteCfg, logger)
	if err != nil {
		return crawler.CrawlResult{Site: site}, err
	}
	defer release()

	ad, err := adapter.New(string(site), deps)
	if err != nil {
		return crawler.CrawlResult{Site: site}, err
	}
	orch, err := orchestrator.New(orchestrator.Config{
		Site:         siteCfg,
		Adapter:      ad,
		Store:        a.Store,
		Publisher:    a.Publisher,
		Recorder:     a.Ledger,
		Progress:     a.Progress,
		Clock:        a.Clock,
		IDs:          a.IDs,
		Pauser:       a.opts.Pauser,
		Logger:       logger,
		MaxForbidden: a.Config.Crawler.MaxForbiddenResponses,
	})
	if err != nil {
		return crawler.CrawlResult{Site: site}, err
	}
	return orch.Run(ctx, opts)
}

// sessionsFor builds the adapter dependencies of one run. The browser, when the board needs
// one, is owned by this run alone and shut down by the returned release func.
func (a *App) sessionsFor(site crawler.SiteConfig, logger *zap.Logger) (adapter.Deps, func(), error) {
	c := a.Config
	retrier := session.NewRetrier(c.RetryPolicy(), logger)
	if a.opts.Pauser != nil {
		retrier.Pauser = a.opts.Pauser
	}
	deps := adapter.Deps{
		HTTP: session.NewHTTPSession(session.HTTPConfig{
			UserAgent:     c.Crawler.UserAgent,
			RespectRobots: c.Crawler.RespectRobots,
			Timeout:       c.Crawler.RequestTimeout,
		}, a.Limiter, logger),
		Retrier:        retrier,
		Pauser:         a.opts.Pauser,
		Taxonomies:     a.Taxonomies,
		Clock:          a.Clock,
		Logger:         logger,
		Auditor:        a.Audit,
		Origins:        a.opts.Origins,
		FullCrawlPages: c.Crawler.FullCrawlPages,
	}
	if !adapter.NeedsBrowser(site) {
		return deps, func() {}, nil
	}
	browser, err := session.NewBrowserSession(session.BrowserConfig{
		Headless:   c.Browser.Headless,
		ExecPath:   c.Browser.ExecPath,
		NavTimeout: c.Browser.NavTimeout,
		MaxTabs:    c.Browser.MaxTabs,
	}, session.NewRobotsGuard(c.Crawler.RespectRobots, c.Crawler.UserAgent, logger), logger)
	if err != nil {
		return adapter.Deps{}, nil, fmt.Errorf("open browser session: %w", err)
	}
	deps.Browser = browser
	return deps, browser.Close, nil
}
