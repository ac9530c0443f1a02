// Package adapter builds the per-board crawler.Adapter for a site name.
package adapter

import (
	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-crawler/internal/adapter/jobkorea"
	"github.com/JakeFAU/jobboard-crawler/internal/adapter/saramin"
	"github.com/JakeFAU/jobboard-crawler/internal/adapter/wanted"
	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/session"
	"github.com/JakeFAU/jobboard-crawler/internal/taxonomy"
)

// Deps are the collaborators shared by every adapter of a run. HTTP is required; Browser is
// required by the boards that render pages.
type Deps struct {
	HTTP       session.Fetcher
	Browser    session.Browser
	Retrier    *session.Retrier
	Pauser     session.Pauser
	Taxonomies *taxonomy.Taxonomies
	Clock      crawler.Clock
	Logger     *zap.Logger
	Auditor    crawler.Auditor
	// Origins replaces the production host of a board.
	Origins map[crawler.Platform]string
	// FullCrawlPages bounds API pagination in full-crawl mode.
	FullCrawlPages int
}

// New returns the adapter for site. Unknown names fail with a ConfigurationError before any
// network activity.
func New(site string, deps Deps) (crawler.Adapter, error) {
	platform, err := crawler.ParsePlatform(site)
	if err != nil {
		return nil, err
	}
	switch platform {
	case crawler.PlatformWanted:
		a, err := wanted.New(wanted.Config{
			HTTP:       deps.HTTP,
			Browser:    deps.Browser,
			Retrier:    deps.Retrier,
			Pauser:     deps.Pauser,
			Taxonomies: deps.Taxonomies,
			Clock:      deps.Clock,
			Logger:     deps.Logger,
			Origin:     deps.Origins[platform],

			FullCrawlPages: deps.FullCrawlPages,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	case crawler.PlatformJobKorea:
		a, err := jobkorea.New(jobkorea.Config{
			HTTP:       deps.HTTP,
			Browser:    deps.Browser,
			Retrier:    deps.Retrier,
			Pauser:     deps.Pauser,
			Taxonomies: deps.Taxonomies,
			Clock:      deps.Clock,
			Logger:     deps.Logger,
			Origin:     deps.Origins[platform],
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	case crawler.PlatformSaramin:
		a, err := saramin.New(saramin.Config{
			HTTP:       deps.HTTP,
			Browser:    deps.Browser,
			Retrier:    deps.Retrier,
			Pauser:     deps.Pauser,
			Taxonomies: deps.Taxonomies,
			Clock:      deps.Clock,
			Logger:     deps.Logger,
			Auditor:    deps.Auditor,
			Origin:     deps.Origins[platform],
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	}
	return nil, &crawler.ConfigurationError{Reason: "no adapter for " + string(platform), Err: crawler.ErrUnsupportedSite}
}

// NeedsBrowser reports whether the board's adapter drives a browser for listing or detail pages.
func NeedsBrowser(cfg crawler.SiteConfig) bool {
	return cfg.Strategy == crawler.StrategyBrowser || cfg.DetailStrategy == crawler.StrategyBrowser
}
