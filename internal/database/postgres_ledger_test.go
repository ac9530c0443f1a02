package database_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/database"
)

type stubConnector struct {
	DB  *sqlx.DB
	Err error
}

func (c *stubConnector) Connect(context.Context, string, string) (*sqlx.DB, error) {
	return c.DB, c.Err
}

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var (
	started  = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	finished = started.Add(12 * time.Minute)
)

func sampleResult() crawler.CrawlResult {
	return crawler.CrawlResult{
		RunID:        "0190a4f8-3c1e-7d2a-8f00-123456789abc",
		Site:         crawler.PlatformSaramin,
		TotalFound:   5,
		NewSaved:     3,
		Duplicates:   1,
		Errors:       1,
		ExistingSeen: 2,
		FullCrawl:    true,
		StartedAt:    started,
		FinishedAt:   finished,
	}
}

func TestNewPostgresLedger(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectPing()
		ledger, err := database.NewPostgresLedger(context.Background(), "", &stubConnector{DB: db}, nil)
		require.NoError(t, err)
		assert.NotNil(t, ledger)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("connect error", func(t *testing.T) {
		_, err := database.NewPostgresLedger(context.Background(), "", &stubConnector{Err: errors.New("refused")}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to postgres")
	})

	t.Run("ping error closes the handle", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectPing().WillReturnError(errors.New("ping failed"))
		mock.ExpectClose()
		_, err := database.NewPostgresLedger(context.Background(), "", &stubConnector{DB: db}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to ping postgres")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordRun(t *testing.T) {
	db, mock := newMock(t)
	ledger := &database.PostgresLedger{DB: db}
	r := sampleResult()

	mock.ExpectExec(`INSERT INTO crawl_runs`).
		WithArgs(r.RunID, "saramin", started, finished, 5, 3, 1, 1, 2, false, true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO crawl_runs`).
		WillReturnError(errors.New("disk full"))

	require.NoError(t, ledger.RecordRun(context.Background(), r))
	err := ledger.RecordRun(context.Background(), r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record run")

	assert.Error(t, ledger.RecordRun(context.Background(), crawler.CrawlResult{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentRuns(t *testing.T) {
	db, mock := newMock(t)
	ledger := &database.PostgresLedger{DB: db}

	cols := []string{"id", "site", "started_at", "finished_at", "total_found", "new_saved",
		"duplicates", "errors", "existing_seen", "blocked", "full_crawl"}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM crawl_runs WHERE site = $1 ORDER BY started_at DESC LIMIT $2`)).
		WithArgs("saramin", 20).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("r1", "saramin", started, finished, 5, 3, 1, 1, 2, true, false))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM crawl_runs ORDER BY started_at DESC LIMIT $1`)).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows(cols))

	rows, err := ledger.RecentRuns(context.Background(), crawler.PlatformSaramin, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, database.RunRow{
		ID: "r1", Site: "saramin", StartedAt: started, FinishedAt: finished,
		TotalFound: 5, NewSaved: 3, Duplicates: 1, Errors: 1, ExistingSeen: 2, Blocked: true,
	}, rows[0])

	rows, err = ledger.RecentRuns(context.Background(), "", 3)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchemaAndClose(t *testing.T) {
	db, mock := newMock(t)
	ledger := &database.PostgresLedger{DB: db}

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS crawl_runs`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose().WillReturnError(errors.New("close failed"))

	require.NoError(t, ledger.EnsureSchema(context.Background()))
	err := ledger.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to close postgres connection")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoopLedger(t *testing.T) {
	var l database.Ledger = database.NoopLedger{}
	assert.NoError(t, l.RecordRun(context.Background(), sampleResult()))
	rows, err := l.RecentRuns(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, l.Close())
}

func TestRowFromResult(t *testing.T) {
	row := database.RowFromResult(sampleResult())
	assert.Equal(t, "saramin", row.Site)
	assert.Equal(t, 5, row.TotalFound)
	assert.True(t, row.FullCrawl)
}
