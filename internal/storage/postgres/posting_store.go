// Package postgres persists job postings in Postgres through a pgx pool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
)

// DefaultTable holds postings unless Config.Table says otherwise.
const DefaultTable = "job_postings"

const uniqueViolation = "23505"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the connection pool.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it in tests.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostingStore implements crawler.Store. Upserts key on job_url; a job_id already owned by a
// different URL comes back as a PersistenceConflict.
type PostingStore struct {
	pool  pool
	table string
	now   func() time.Time
}

var _ crawler.Store = (*PostingStore)(nil)

// New connects a pool for cfg.
func New(ctx context.Context, cfg Config) (*PostingStore, error) {
	if cfg.DSN == "" {
		return nil, &crawler.ConfigurationError{Reason: "store.postgres.dsn is required"}
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, &crawler.ConfigurationError{Reason: "parse postgres dsn", Err: err}
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostingStore{pool: p, table: table, now: time.Now}, nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(p pool, table string) (*PostingStore, error) {
	if p == nil {
		return nil, errors.New("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &PostingStore{pool: p, table: name, now: time.Now}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		return DefaultTable, nil
	}
	if !validTableName.MatchString(table) {
		return "", &crawler.ConfigurationError{Reason: fmt.Sprintf("invalid table name %q", table)}
	}
	return table, nil
}

// EnsureSchema creates the table and its indexes when missing.
func (s *PostingStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	job_url TEXT PRIMARY KEY,
	job_id TEXT NOT NULL UNIQUE,
	platform TEXT NOT NULL,
	job_title TEXT NOT NULL,
	company JSONB NOT NULL,
	location JSONB NOT NULL,
	work_type TEXT NOT NULL DEFAULT '',
	education TEXT NOT NULL DEFAULT '',
	experience JSONB NOT NULL,
	position JSONB NOT NULL,
	tech_stack JSONB NOT NULL,
	preferred_experience JSONB NOT NULL,
	crawled_at TIMESTAMPTZ NOT NULL
)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_platform_crawled_at_idx ON %[1]s (platform, crawled_at)`, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveJobPosting upserts posting by job_url.
func (s *PostingStore) SaveJobPosting(ctx context.Context, posting crawler.JobPosting) (crawler.SaveOutcome, error) {
	args, err := upsertArgs(posting)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	job_id, job_url, platform, job_title, company, location, work_type, education,
	experience, position, tech_stack, preferred_experience, crawled_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (job_url) DO UPDATE SET
	job_id = EXCLUDED.job_id,
	platform = EXCLUDED.platform,
	job_title = EXCLUDED.job_title,
	company = EXCLUDED.company,
	location = EXCLUDED.location,
	work_type = EXCLUDED.work_type,
	education = EXCLUDED.education,
	experience = EXCLUDED.experience,
	position = EXCLUDED.position,
	tech_stack = EXCLUDED.tech_stack,
	preferred_experience = EXCLUDED.preferred_experience,
	crawled_at = EXCLUDED.crawled_at
RETURNING (xmax = 0) AS inserted`, s.table)

	var inserted bool
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&inserted); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, &crawler.PersistenceConflict{Key: posting.JobID, Err: err}
		}
		return 0, fmt.Errorf("upsert posting %s: %w", posting.JobURL, err)
	}
	if inserted {
		return crawler.SaveInserted, nil
	}
	return crawler.SaveUpdated, nil
}

func upsertArgs(p crawler.JobPosting) ([]any, error) {
	if p.JobURL == "" || p.JobID == "" {
		return nil, errors.New("posting needs job_url and job_id")
	}
	docs := []any{p.Company, p.Location, p.Experience, p.Position, p.TechStack, p.PreferredExperience}
	encoded := make([][]byte, len(docs))
	for i, d := range docs {
		b, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("encode posting %s: %w", p.JobURL, err)
		}
		encoded[i] = b
	}
	return []any{
		p.JobID, p.JobURL, string(p.Platform), p.JobTitle,
		encoded[0], encoded[1], p.WorkType, p.Education,
		encoded[2], encoded[3], encoded[4], encoded[5], p.CrawledAt,
	}, nil
}

// BulkSave upserts each posting independently; one failure does not stop the rest. Conflicts
// count as updates.
func (s *PostingStore) BulkSave(ctx context.Context, postings []crawler.JobPosting) (crawler.BulkResult, error) {
	var res crawler.BulkResult
	for _, p := range postings {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("bulk save: %w", err)
		}
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

// GetExistingURLs returns URLs of platform crawled within the last daysBack days. A
// non-positive daysBack returns every URL of the platform.
func (s *PostingStore) GetExistingURLs(ctx context.Context, platform crawler.Platform, daysBack int) (map[string]struct{}, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if daysBack > 0 {
		cutoff := s.now().Add(-time.Duration(daysBack) * 24 * time.Hour)
		rows, err = s.pool.Query(ctx,
			fmt.Sprintf(`SELECT job_url FROM %s WHERE platform = $1 AND crawled_at >= $2`, s.table),
			string(platform), cutoff)
	} else {
		rows, err = s.pool.Query(ctx,
			fmt.Sprintf(`SELECT job_url FROM %s WHERE platform = $1`, s.table), string(platform))
	}
	if err != nil {
		return nil, fmt.Errorf("query existing urls: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan existing url: %w", err)
		}
		out[u] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate existing urls: %w", err)
	}
	return out, nil
}

// FindByURL returns the stored posting, or nil when none exists.
func (s *PostingStore) FindByURL(ctx context.Context, jobURL string) (*crawler.JobPosting, error) {
	query := fmt.Sprintf(`
SELECT job_id, job_url, platform, job_title, company, location, work_type, education,
	experience, position, tech_stack, preferred_experience, crawled_at
FROM %s WHERE job_url = $1`, s.table)

	var (
		p        crawler.JobPosting
		platform string
		docs     = make([][]byte, 6)
	)
	err := s.pool.QueryRow(ctx, query, jobURL).Scan(
		&p.JobID, &p.JobURL, &platform, &p.JobTitle,
		&docs[0], &docs[1], &p.WorkType, &p.Education,
		&docs[2], &docs[3], &docs[4], &docs[5], &p.CrawledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find posting %s: %w", jobURL, err)
	}
	p.Platform = crawler.Platform(platform)
	targets := []any{&p.Company, &p.Location, &p.Experience, &p.Position, &p.TechStack, &p.PreferredExperience}
	for i, t := range targets {
		if err := json.Unmarshal(docs[i], t); err != nil {
			return nil, fmt.Errorf("decode posting %s: %w", jobURL, err)
		}
	}
	return &p, nil
}

// Stats summarizes the platform's postings.
func (s *PostingStore) Stats(ctx context.Context, platform crawler.Platform) (crawler.PostingStats, error) {
	stats := crawler.PostingStats{Platform: platform, ByCategory: map[string]int{}}

	var last *time.Time
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT count(*), max(crawled_at) FROM %s WHERE platform = $1`, s.table),
		string(platform)).Scan(&stats.Total, &last)
	if err != nil {
		return stats, fmt.Errorf("count postings: %w", err)
	}
	if last != nil {
		stats.LastCrawledAt = *last
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
SELECT coalesce(position->'normalized'->>'primary_category', ''), count(*)
FROM %s WHERE platform = $1 GROUP BY 1`, s.table), string(platform))
	if err != nil {
		return stats, fmt.Errorf("count categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			category string
			n        int
		)
		if err := rows.Scan(&category, &n); err != nil {
			return stats, fmt.Errorf("scan category count: %w", err)
		}
		stats.ByCategory[category] = n
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterate category counts: %w", err)
	}
	return stats, nil
}

// Close releases the pool.
func (s *PostingStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}
