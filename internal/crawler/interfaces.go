package crawler

import (
	"context"
	"io"
	"time"
)

// Adapter is the per-board capability set used by the orchestrator.
type Adapter interface {
	// CollectListingURLs returns posting URLs in discovery order without duplicates.
	CollectListingURLs(ctx context.Context, cfg SiteConfig, fullCrawl bool) ([]string, error)
	// ExtractDetail returns the posting behind url. ErrNoPosting means the page held nothing usable.
	ExtractDetail(ctx context.Context, url string, cfg SiteConfig) (*JobPosting, error)
}

// Store is the persistence port. Implementations must be safe for concurrent use and rely on
// unique keys on job_url and job_id for upserts.
type Store interface {
	SaveJobPosting(ctx context.Context, posting JobPosting) (SaveOutcome, error)
	BulkSave(ctx context.Context, postings []JobPosting) (BulkResult, error)
	GetExistingURLs(ctx context.Context, platform Platform, daysBack int) (map[string]struct{}, error)
	FindByURL(ctx context.Context, jobURL string) (*JobPosting, error)
	Stats(ctx context.Context, platform Platform) (PostingStats, error)
	Close()
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Auditor keeps the trail of postings whose body is not plain text. Recording is best effort
// and never fails the posting.
type Auditor interface {
	Record(ctx context.Context, finding SuspiciousFinding)
}

// Publisher pushes posting events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// RunRecorder keeps a ledger of finished runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, result CrawlResult) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
