// Package database keeps the ledger of finished crawl runs. Posting data lives in the posting
// store; this package only records one row per site run so operators can see what each run
// found and saved.
package database

import (
	"context"
	"time"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
)

// RunRow is one crawl_runs record.
type RunRow struct {
	ID           string    `db:"id" json:"id"`
	Site         string    `db:"site" json:"site"`
	StartedAt    time.Time `db:"started_at" json:"started_at"`
	FinishedAt   time.Time `db:"finished_at" json:"finished_at"`
	TotalFound   int       `db:"total_found" json:"total_found"`
	NewSaved     int       `db:"new_saved" json:"new_saved"`
	Duplicates   int       `db:"duplicates" json:"duplicates"`
	Errors       int       `db:"errors" json:"errors"`
	ExistingSeen int       `db:"existing_seen" json:"existing_seen"`
	Blocked      bool      `db:"blocked" json:"blocked"`
	FullCrawl    bool      `db:"full_crawl" json:"full_crawl"`
}

// RowFromResult maps a finished run onto its ledger row.
func RowFromResult(r crawler.CrawlResult) RunRow {
	return RunRow{
		ID:           r.RunID,
		Site:         string(r.Site),
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		TotalFound:   r.TotalFound,
		NewSaved:     r.NewSaved,
		Duplicates:   r.Duplicates,
		Errors:       r.Errors,
		ExistingSeen: r.ExistingSeen,
		Blocked:      r.Blocked,
		FullCrawl:    r.FullCrawl,
	}
}

// Ledger records runs and lists recent ones.
type Ledger interface {
	crawler.RunRecorder
	RecentRuns(ctx context.Context, site crawler.Platform, limit int) ([]RunRow, error)
	Close() error
}

// NoopLedger discards runs. It is used when runs.provider is noop.
type NoopLedger struct{}

var _ Ledger = NoopLedger{}

// RecordRun implements crawler.RunRecorder.
func (NoopLedger) RecordRun(context.Context, crawler.CrawlResult) error { return nil }

// RecentRuns always returns an empty list.
func (NoopLedger) RecentRuns(context.Context, crawler.Platform, int) ([]RunRow, error) {
	return []RunRow{}, nil
}

// Close implements Ledger.
func (NoopLedger) Close() error { return nil }
