package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/database"
	"github.com/JakeFAU/jobboard-crawler/internal/progress"
	"github.com/JakeFAU/jobboard-crawler/internal/progress/sinks"
	"github.com/JakeFAU/jobboard-crawler/internal/storage/memory"
)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) RecordRun(ctx context.Context, r crawler.CrawlResult) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockLedger) RecentRuns(ctx context.Context, site crawler.Platform, limit int) ([]database.RunRow, error) {
	args := m.Called(ctx, site, limit)
	rows, _ := args.Get(0).([]database.RunRow)
	return rows, args.Error(1)
}

func (m *mockLedger) Close() error { return nil }

type fixture struct {
	server *Server
	board  *sinks.Board
	store  *memory.PostingStore
	ledger *mockLedger
}

func newFixture(t *testing.T, apiKey string) fixture {
	t.Helper()
	f := fixture{
		board:  sinks.NewBoard(10),
		store:  memory.NewPostingStore(),
		ledger: &mockLedger{},
	}
	f.server = NewServer(Deps{
		Board:  f.board,
		Ledger: f.ledger,
		Store:  f.store,
		APIKey: apiKey,
		Logger: zap.NewNop(),
	})
	return f
}

func (f fixture) do(t *testing.T, method, target string, header http.Header) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthAndReadiness(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")

	rec, body := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, body = f.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")

	rec, _ := f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRunsFromBoard(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")

	id := uuid.Must(uuid.NewV7())
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, f.board.Consume(context.Background(), []progress.Event{
		{RunID: id, TS: now, Stage: progress.StageRunStart, Site: "wanted"},
		{RunID: id, TS: now, Stage: progress.StageURLsCollected, Site: "wanted", Count: 3},
		{RunID: id, TS: now, Stage: progress.StagePostingDone, Site: "wanted", URL: "https://www.wanted.co.kr/wd/1", Outcome: progress.OutcomeNew},
	}))

	rec, body := f.do(t, http.MethodGet, "/v1/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	runs, ok := body["runs"].([]any)
	require.True(t, ok)
	require.Len(t, runs, 1)

	rec, body = f.do(t, http.MethodGet, "/v1/runs/"+id.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	run, ok := body["run"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "wanted", run["site"])
	assert.InDelta(t, 3, run["found"], 0)
	assert.InDelta(t, 1, run["new"], 0)

	rec, _ = f.do(t, http.MethodGet, "/v1/runs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/v1/runs/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSiteHistoryFromLedger(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")

	rows := []database.RunRow{{ID: uuid.NewString(), Site: "saramin", TotalFound: 30, NewSaved: 12}}
	f.ledger.On("RecentRuns", mock.Anything, crawler.PlatformSaramin, 5).Return(rows, nil).Once()
	f.ledger.On("RecentRuns", mock.Anything, crawler.PlatformJobKorea, defaultRunLimit).Return(nil, errors.New("db down")).Once()

	rec, body := f.do(t, http.MethodGet, "/v1/sites/saramin/runs?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got, ok := body["runs"].([]any)
	require.True(t, ok)
	require.Len(t, got, 1)

	rec, _ = f.do(t, http.MethodGet, "/v1/sites/jobkorea/runs", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/v1/sites/saramin/runs?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/v1/sites/linkedin/runs", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.ledger.AssertExpectations(t)
}

func TestStatsAndPostingLookup(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")

	posting := crawler.JobPosting{
		JobID:     "saramin_2026_49012345",
		JobURL:    "https://www.saramin.co.kr/zf_user/jobs/relay/view?rec_idx=49012345",
		Platform:  crawler.PlatformSaramin,
		JobTitle:  "백엔드 개발자",
		CrawledAt: time.Now(),
	}
	_, err := f.store.SaveJobPosting(context.Background(), posting)
	require.NoError(t, err)

	rec, body := f.do(t, http.MethodGet, "/v1/sites/saramin/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 1, body["total"], 0)
	assert.NotEmpty(t, body["last_crawled_at"])

	rec, body = f.do(t, http.MethodGet, "/v1/postings?url="+url.QueryEscape(posting.JobURL), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found, ok := body["posting"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, posting.JobID, found["job_id"])

	rec, _ = f.do(t, http.MethodGet, "/v1/postings?url=https://www.saramin.co.kr/none", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/v1/postings", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIKeyGuardsV1(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "s3cret")

	rec, _ := f.do(t, http.MethodGet, "/v1/runs", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/v1/runs", http.Header{"X-Api-Key": {"s3cret"}})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "health checks stay open")
}
