package crawler

import (
	"time"
)

// RunState is a stage of the per-site crawl state machine.
type RunState string

// Run states in the order a run passes through them.
const (
	StateInit                RunState = "INIT"
	StateCollectingURLs      RunState = "COLLECTING_URLS"
	StateFilteringDuplicates RunState = "FILTERING_DUPLICATES"
	StateDetailCrawlLoop     RunState = "DETAIL_CRAWL_LOOP"
	StateSummarize           RunState = "SUMMARIZE"
	StateDone                RunState = "DONE"
)

// CrawlResult is the aggregate outcome of one site run. Only the orchestrator mutates it.
type CrawlResult struct {
	RunID      string
	Site       Platform
	TotalFound int
	NewSaved   int
	Duplicates int
	Errors     int
	// ExistingSeen counts listing URLs the store already held within the recency window.
	ExistingSeen int
	Skipped      int
	BlockedURLs  int
	Blocked      bool
	FullCrawl    bool
	StartedAt    time.Time
	FinishedAt   time.Time
	Elapsed      time.Duration
}

// Attempted is the number of URLs whose detail extraction ran.
func (r CrawlResult) Attempted() int {
	return r.NewSaved + r.Duplicates + r.Errors
}
