// Package orchestrator drives one site run through its states: collect listing URLs, check
// them against the store, extract and save every posting, then summarize.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-crawler/internal/clock/system"
	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/id/uuid"
	"github.com/JakeFAU/jobboard-crawler/internal/metrics"
	"github.com/JakeFAU/jobboard-crawler/internal/progress"
	"github.com/JakeFAU/jobboard-crawler/internal/session"
)

const (
	// DefaultMaxForbidden is the number of blocked URLs that flags a run.
	DefaultMaxForbidden = 3
	// DefaultDaysBack is the recency window of the existing-URL lookup.
	DefaultDaysBack = 7

	delayJitter      = 0.3
	progressInterval = 5
	ledgerTimeout    = 10 * time.Second
)

// Config wires the collaborators of a run. Adapter and Store are required.
type Config struct {
	Site         crawler.SiteConfig
	Adapter      crawler.Adapter
	Store        crawler.Store
	Publisher    crawler.Publisher
	Recorder     crawler.RunRecorder
	Progress     progress.Emitter
	Clock        crawler.Clock
	IDs          crawler.IDGenerator
	Pauser       session.Pauser
	Logger       *zap.Logger
	MaxForbidden int
}

// Options select the crawl mode.
type Options struct {
	// FullCrawl walks every configured page and skips the existing-URL lookup.
	FullCrawl bool
	// SkipExisting drops listing URLs the store saw within DaysBack. Off by default, so
	// re-crawls refresh stored postings.
	SkipExisting bool
	DaysBack     int
}

// Orchestrator runs one site. A value is single use: Run may be called once.
type Orchestrator struct {
	cfg    Config
	logger *zap.Logger

	mu    sync.RWMutex
	state crawler.RunState
	ran   bool
}

// New validates cfg and fills defaults.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Adapter == nil {
		return nil, &crawler.ConfigurationError{Reason: "orchestrator needs an adapter"}
	}
	if cfg.Store == nil {
		return nil, &crawler.ConfigurationError{Reason: "orchestrator needs a store"}
	}
	if err := cfg.Site.Validate(); err != nil {
		return nil, err
	}
	if cfg.Progress == nil {
		cfg.Progress = progress.Discard
	}
	if cfg.Clock == nil {
		cfg.Clock = system.New()
	}
	if cfg.IDs == nil {
		cfg.IDs = uuid.New()
	}
	if cfg.Pauser == nil {
		cfg.Pauser = session.TimerPauser{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxForbidden <= 0 {
		cfg.MaxForbidden = DefaultMaxForbidden
	}
	return &Orchestrator{
		cfg:    cfg,
		logger: cfg.Logger.With(zap.String("site", string(cfg.Site.Name))),
		state:  crawler.StateInit,
	}, nil
}

// State returns the state the run is in.
func (o *Orchestrator) State() crawler.RunState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *Orchestrator) enter(s crawler.RunState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.logger.Debug("run state", zap.String("state", string(s)))
}

// run carries the per-run bookkeeping through the states.
type run struct {
	result crawler.CrawlResult
	id     [16]byte
}

// Run executes the state machine and always returns the summarized result. The error is
// non-nil when URL collection failed outright or ctx ended the run early; per-URL failures
// are only counted.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (crawler.CrawlResult, error) {
	o.mu.Lock()
	if o.ran {
		o.mu.Unlock()
		return crawler.CrawlResult{}, errors.New("orchestrator already ran")
	}
	o.ran = true
	o.mu.Unlock()

	r, err := o.start(opts)
	if err != nil {
		return crawler.CrawlResult{}, err
	}
	metrics.IncActiveRuns()
	defer metrics.DecActiveRuns()

	existing := o.lookupExisting(ctx, opts)

	o.enter(crawler.StateCollectingURLs)
	urls, err := o.cfg.Adapter.CollectListingURLs(ctx, o.cfg.Site, opts.FullCrawl)
	if err != nil && len(urls) == 0 {
		return o.finish(ctx, r, fmt.Errorf("collect listing urls: %w", err))
	}
	if err != nil {
		o.logger.Warn("listing collection ended early", zap.Int("urls", len(urls)), zap.Error(err))
	}
	r.result.TotalFound = len(urls)
	metrics.ObserveListingURLs(string(o.cfg.Site.Name), len(urls))
	o.emit(r, progress.Event{Stage: progress.StageURLsCollected, Count: len(urls)})
	o.logger.Info("listing urls collected", zap.Int("found", len(urls)))

	o.enter(crawler.StateFilteringDuplicates)
	todo := o.filter(r, urls, existing, opts.SkipExisting)

	o.enter(crawler.StateDetailCrawlLoop)
	loopErr := o.detailLoop(ctx, r, todo)

	return o.finish(ctx, r, loopErr)
}

func (o *Orchestrator) start(opts Options) (*run, error) {
	runID, err := o.cfg.IDs.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}
	binID, err := progress.ParseRunID(runID)
	if err != nil {
		return nil, fmt.Errorf("run id %q: %w", runID, err)
	}
	r := &run{
		id: binID,
		result: crawler.CrawlResult{
			RunID:     runID,
			Site:      o.cfg.Site.Name,
			FullCrawl: opts.FullCrawl,
			StartedAt: o.cfg.Clock.Now(),
		},
	}
	o.logger = o.logger.With(zap.String("run_id", runID))
	o.logger.Info("run started", zap.Bool("full_crawl", opts.FullCrawl), zap.Bool("skip_existing", opts.SkipExisting))
	o.emit(r, progress.Event{Stage: progress.StageRunStart})
	return r, nil
}

// lookupExisting asks the store for recently seen URLs. A failed lookup is logged and the run
// carries on as if nothing had been seen.
func (o *Orchestrator) lookupExisting(ctx context.Context, opts Options) map[string]struct{} {
	if opts.FullCrawl {
		return nil
	}
	days := opts.DaysBack
	if days <= 0 {
		days = DefaultDaysBack
	}
	existing, err := o.cfg.Store.GetExistingURLs(ctx, o.cfg.Site.Name, days)
	if err != nil {
		o.logger.Warn("existing url lookup failed", zap.Error(err))
		return nil
	}
	o.logger.Info("existing urls loaded", zap.Int("count", len(existing)), zap.Int("days_back", days))
	return existing
}

func (o *Orchestrator) filter(r *run, urls []string, existing map[string]struct{}, skip bool) []string {
	if len(existing) == 0 {
		return urls
	}
	todo := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, seen := existing[u]; !seen {
			todo = append(todo, u)
			continue
		}
		r.result.ExistingSeen++
		if !skip {
			todo = append(todo, u)
			continue
		}
		r.result.Skipped++
		metrics.ObservePosting(string(o.cfg.Site.Name), string(progress.OutcomeSkipped))
		o.emit(r, progress.Event{Stage: progress.StagePostingDone, URL: u, Outcome: progress.OutcomeSkipped})
	}
	o.logger.Info("existing urls matched",
		zap.Int("seen", r.result.ExistingSeen),
		zap.Int("skipped", r.result.Skipped),
	)
	return todo
}

// detailLoop visits urls in discovery order, pausing between requests. It stops early only
// when ctx is done.
func (o *Orchestrator) detailLoop(ctx context.Context, r *run, urls []string) error {
	for i, u := range urls {
		if i > 0 {
			if err := o.cfg.Pauser.Pause(ctx, session.Jitter(o.cfg.Site.Delay, delayJitter)); err != nil {
				return o.interrupted(r, i, len(urls), err)
			}
		}
		if err := ctx.Err(); err != nil {
			return o.interrupted(r, i, len(urls), err)
		}

		started := o.cfg.Clock.Now()
		outcome, err := o.crawlOne(ctx, r, u)
		metrics.ObservePosting(string(o.cfg.Site.Name), string(outcome))
		evt := progress.Event{
			Stage:   progress.StagePostingDone,
			URL:     u,
			Outcome: outcome,
			Dur:     max(o.cfg.Clock.Now().Sub(started), 0),
		}
		if err != nil {
			evt.Note = err.Error()
		}
		o.emit(r, evt)

		if (i+1)%progressInterval == 0 {
			o.logger.Info("detail progress",
				zap.Int("processed", i+1),
				zap.Int("total", len(urls)),
				zap.Int("new", r.result.NewSaved),
				zap.Int("duplicates", r.result.Duplicates),
				zap.Int("errors", r.result.Errors),
			)
		}
	}
	return nil
}

func (o *Orchestrator) interrupted(r *run, done, total int, err error) error {
	o.logger.Warn("run interrupted",
		zap.Int("processed", done),
		zap.Int("remaining", total-done),
		zap.Error(err),
	)
	return fmt.Errorf("detail loop: %w", err)
}

// crawlOne extracts and saves a single posting and updates the counters.
func (o *Orchestrator) crawlOne(ctx context.Context, r *run, u string) (progress.Outcome, error) {
	posting, err := o.cfg.Adapter.ExtractDetail(ctx, u, o.cfg.Site)
	if err == nil && posting == nil {
		err = crawler.ErrNoPosting
	}
	if err != nil {
		r.result.Errors++
		if crawler.IsBlocked(err) {
			o.noteBlocked(r)
		}
		o.logger.Warn("detail extraction failed", zap.String("url", u), zap.Error(err))
		return progress.OutcomeError, err
	}

	saved, err := o.cfg.Store.SaveJobPosting(ctx, *posting)
	switch {
	case crawler.IsConflict(err):
		r.result.Duplicates++
		o.logger.Debug("posting conflicts with a stored job id", zap.String("url", u), zap.Error(err))
		return progress.OutcomeDuplicate, nil
	case err != nil:
		r.result.Errors++
		o.logger.Error("save posting failed", zap.String("url", u), zap.Error(err))
		return progress.OutcomeError, err
	}

	outcome := progress.OutcomeNew
	if saved == crawler.SaveInserted {
		r.result.NewSaved++
	} else {
		r.result.Duplicates++
		outcome = progress.OutcomeDuplicate
	}
	o.publish(ctx, r, posting, saved)
	o.logger.Debug("posting saved", zap.String("url", u), zap.String("job_id", posting.JobID), zap.Stringer("outcome", saved))
	return outcome, nil
}

func (o *Orchestrator) noteBlocked(r *run) {
	r.result.BlockedURLs++
	metrics.ObserveBlocked(string(o.cfg.Site.Name))
	if r.result.Blocked || r.result.BlockedURLs < o.cfg.MaxForbidden {
		return
	}
	r.result.Blocked = true
	o.logger.Warn("site is blocking this session",
		zap.Int("blocked_urls", r.result.BlockedURLs),
		zap.Int("threshold", o.cfg.MaxForbidden),
	)
}

// publish announces a saved posting. Failures are logged and never change the outcome.
func (o *Orchestrator) publish(ctx context.Context, r *run, p *crawler.JobPosting, saved crawler.SaveOutcome) {
	if o.cfg.Publisher == nil {
		return
	}
	msg := crawler.PostingSaved{
		RunID:     r.result.RunID,
		JobID:     p.JobID,
		JobURL:    p.JobURL,
		Platform:  p.Platform,
		Outcome:   saved.String(),
		CrawledAt: p.CrawledAt,
	}
	if _, err := o.cfg.Publisher.Publish(ctx, crawler.TopicPostingSaved, msg); err != nil {
		o.logger.Warn("publish posting failed", zap.String("url", p.JobURL), zap.Error(err))
	}
}

// finish summarizes the run, records it and emits the closing event. It is reached on every
// path once the run has started.
func (o *Orchestrator) finish(ctx context.Context, r *run, runErr error) (crawler.CrawlResult, error) {
	o.enter(crawler.StateSummarize)
	r.result.FinishedAt = o.cfg.Clock.Now()
	r.result.Elapsed = max(r.result.FinishedAt.Sub(r.result.StartedAt), 0)
	metrics.ObserveRun(string(o.cfg.Site.Name), r.result.Elapsed)

	if o.cfg.Recorder != nil {
		// The ledger entry is written even when ctx ended the run.
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
		if err := o.cfg.Recorder.RecordRun(recCtx, r.result); err != nil {
			o.logger.Error("record run failed", zap.Error(err))
		}
		cancel()
	}

	done := progress.Event{Stage: progress.StageRunDone, Count: r.result.NewSaved + r.result.Duplicates, Dur: r.result.Elapsed}
	if runErr != nil {
		done.Stage = progress.StageRunError
		done.Note = runErr.Error()
	}
	o.emit(r, done)

	fields := []zap.Field{
		zap.Int("total_found", r.result.TotalFound),
		zap.Int("new_saved", r.result.NewSaved),
		zap.Int("duplicates", r.result.Duplicates),
		zap.Int("errors", r.result.Errors),
		zap.Int("existing_seen", r.result.ExistingSeen),
		zap.Int("skipped", r.result.Skipped),
		zap.Bool("blocked", r.result.Blocked),
		zap.Duration("elapsed", r.result.Elapsed),
	}
	if runErr != nil {
		o.logger.Error("run failed", append(fields, zap.Error(runErr))...)
	} else {
		o.logger.Info("run finished", fields...)
	}
	o.enter(crawler.StateDone)
	return r.result, runErr
}

func (o *Orchestrator) emit(r *run, evt progress.Event) {
	evt.RunID = r.id
	evt.TS = o.cfg.Clock.Now()
	evt.Site = string(o.cfg.Site.Name)
	o.cfg.Progress.Emit(evt)
}
