package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
)

// PostingStore implements crawler.Store in memory with the same key rules as the Postgres
// store: upsert on job_url, conflict when a job_id belongs to another URL.
type PostingStore struct {
	mu     sync.RWMutex
	byURL  map[string]crawler.JobPosting
	urlFor map[string]string
	now    func() time.Time
}

var _ crawler.Store = (*PostingStore)(nil)

// NewPostingStore returns an empty store.
func NewPostingStore() *PostingStore {
	return &PostingStore{
		byURL:  make(map[string]crawler.JobPosting),
		urlFor: make(map[string]string),
		now:    time.Now,
	}
}

// SaveJobPosting implements crawler.Store.
func (s *PostingStore) SaveJobPosting(_ context.Context, p crawler.JobPosting) (crawler.SaveOutcome, error) {
	if p.JobURL == "" || p.JobID == "" {
		return 0, errors.New("posting needs job_url and job_id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.urlFor[p.JobID]; ok && owner != p.JobURL {
		return 0, &crawler.PersistenceConflict{Key: p.JobID}
	}
	prev, existed := s.byURL[p.JobURL]
	if existed && prev.JobID != p.JobID {
		delete(s.urlFor, prev.JobID)
	}
	s.byURL[p.JobURL] = p
	s.urlFor[p.JobID] = p.JobURL
	if existed {
		return crawler.SaveUpdated, nil
	}
	return crawler.SaveInserted, nil
}

// BulkSave implements crawler.Store.
func (s *PostingStore) BulkSave(ctx context.Context, postings []crawler.JobPosting) (crawler.BulkResult, error) {
	var res crawler.BulkResult
	for _, p := range postings {
		outcome, err := s.SaveJobPosting(ctx, p)
		switch {
		case crawler.IsConflict(err):
			res.Updated++
		case err != nil:
			res.Errors++
		case outcome == crawler.SaveInserted:
			res.Inserted++
		default:
			res.Updated++
		}
	}
	return res, nil
}

// GetExistingURLs implements crawler.Store.
func (s *PostingStore) GetExistingURLs(_ context.Context, platform crawler.Platform, daysBack int) (map[string]struct{}, error) {
	var cutoff time.Time
	if daysBack > 0 {
		cutoff = s.now().Add(-time.Duration(daysBack) * 24 * time.Hour)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{})
	for u, p := range s.byURL {
		if p.Platform != platform || p.CrawledAt.Before(cutoff) {
			continue
		}
		out[u] = struct{}{}
	}
	return out, nil
}

// FindByURL implements crawler.Store.
func (s *PostingStore) FindByURL(_ context.Context, jobURL string) (*crawler.JobPosting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byURL[jobURL]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Stats implements crawler.Store.
func (s *PostingStore) Stats(_ context.Context, platform crawler.Platform) (crawler.PostingStats, error) {
	stats := crawler.PostingStats{Platform: platform, ByCategory: map[string]int{}}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.byURL {
		if p.Platform != platform {
			continue
		}
		stats.Total++
		stats.ByCategory[p.Position.Normalized.PrimaryCategory]++
		if p.CrawledAt.After(stats.LastCrawledAt) {
			stats.LastCrawledAt = p.CrawledAt
		}
	}
	return stats, nil
}

// Len returns the number of stored postings.
func (s *PostingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byURL)
}

// Close implements crawler.Store.
func (s *PostingStore) Close() {}
