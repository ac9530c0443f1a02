package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Postgres driver
	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
)

// Connector opens a database handle. Tests swap it for one returning a sqlmock handle.
type Connector interface {
	Connect(ctx context.Context, driverName, dsn string) (*sqlx.DB, error)
}

// SQLXConnector connects through sqlx.
type SQLXConnector struct{}

// Connect implements Connector.
func (SQLXConnector) Connect(ctx context.Context, driverName, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driverName, err)
	}
	return db, nil
}

const defaultRecentRuns = 20

// PostgresLedger writes the crawl_runs table.
type PostgresLedger struct {
	DB     *sqlx.DB
	logger *zap.Logger
}

var _ Ledger = (*PostgresLedger)(nil)

// NewPostgresLedger connects and pings the database behind dsn.
func NewPostgresLedger(ctx context.Context, dsn string, connector Connector, logger *zap.Logger) (*PostgresLedger, error) {
	if connector == nil {
		connector = SQLXConnector{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := connector.Connect(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.Warn("close after failed ping", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &PostgresLedger{DB: db, logger: logger}, nil
}

// EnsureSchema creates crawl_runs when missing.
func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS crawl_runs (
	id UUID PRIMARY KEY,
	site TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	total_found INTEGER NOT NULL,
	new_saved INTEGER NOT NULL,
	duplicates INTEGER NOT NULL,
	errors INTEGER NOT NULL,
	existing_seen INTEGER NOT NULL,
	blocked BOOLEAN NOT NULL,
	full_crawl BOOLEAN NOT NULL
)`
	if _, err := l.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create crawl_runs: %w", err)
	}
	return nil
}

// RecordRun inserts the run. Re-recording the same run id replaces the row.
func (l *PostgresLedger) RecordRun(ctx context.Context, result crawler.CrawlResult) error {
	const query = `
INSERT INTO crawl_runs (id, site, started_at, finished_at, total_found, new_saved, duplicates,
	errors, existing_seen, blocked, full_crawl)
VALUES (:id, :site, :started_at, :finished_at, :total_found, :new_saved, :duplicates,
	:errors, :existing_seen, :blocked, :full_crawl)
ON CONFLICT (id) DO UPDATE SET
	finished_at = EXCLUDED.finished_at,
	total_found = EXCLUDED.total_found,
	new_saved = EXCLUDED.new_saved,
	duplicates = EXCLUDED.duplicates,
	errors = EXCLUDED.errors,
	existing_seen = EXCLUDED.existing_seen,
	blocked = EXCLUDED.blocked`
	if result.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if _, err := l.DB.NamedExecContext(ctx, query, RowFromResult(result)); err != nil {
		return fmt.Errorf("failed to record run %s: %w", result.RunID, err)
	}
	return nil
}

// RecentRuns returns the newest runs, optionally limited to one site.
func (l *PostgresLedger) RecentRuns(ctx context.Context, site crawler.Platform, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = defaultRecentRuns
	}
	rows := []RunRow{}
	var err error
	if site == "" {
		err = l.DB.SelectContext(ctx, &rows,
			`SELECT * FROM crawl_runs ORDER BY started_at DESC LIMIT $1`, limit)
	} else {
		err = l.DB.SelectContext(ctx, &rows,
			`SELECT * FROM crawl_runs WHERE site = $1 ORDER BY started_at DESC LIMIT $2`, string(site), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return rows, nil
}

// Close shuts the connection pool.
func (l *PostgresLedger) Close() error {
	if err := l.DB.Close(); err != nil {
		return fmt.Errorf("failed to close postgres connection: %w", err)
	}
	return nil
}
