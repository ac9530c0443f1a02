package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-crawler/internal/config"
	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/orchestrator"
)

type mockApp struct {
	mock.Mock
}

func (m *mockApp) Crawl(ctx context.Context, sites []crawler.Platform, opts orchestrator.Options) ([]crawler.CrawlResult, error) {
	args := m.Called(ctx, sites, opts)
	res, _ := args.Get(0).([]crawler.CrawlResult)
	return res, args.Error(1)
}

func (m *mockApp) Stats(ctx context.Context, site crawler.Platform) (crawler.PostingStats, error) {
	args := m.Called(ctx, site)
	stats, _ := args.Get(0).(crawler.PostingStats)
	return stats, args.Error(1)
}

func (m *mockApp) OpsHandler() http.Handler {
	return http.NotFoundHandler()
}

func (m *mockApp) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// useApp swaps the application factory for the duration of the test and reports the config
// the command built.
func useApp(t *testing.T, fake App) *config.Config {
	t.Helper()
	pterm.DisableStyling()
	t.Chdir(t.TempDir())
	seen := &config.Config{}
	orig := newApp
	newApp = func(_ context.Context, cfg config.Config, _ *zap.Logger) (App, error) {
		*seen = cfg
		return fake, nil
	}
	t.Cleanup(func() {
		newApp = orig
		pterm.EnableStyling()
	})
	return seen
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd(&cli{})
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCrawlAllSitesPrintsSummary(t *testing.T) {
	fake := &mockApp{}
	useApp(t, fake)

	want := []crawler.Platform{crawler.PlatformWanted, crawler.PlatformJobKorea, crawler.PlatformSaramin}
	fake.On("Crawl", mock.Anything, want, orchestrator.Options{DaysBack: 3}).Return([]crawler.CrawlResult{
		{Site: crawler.PlatformWanted, TotalFound: 1200, NewSaved: 1100, Duplicates: 95, Errors: 5, Elapsed: 90 * time.Second},
		{Site: crawler.PlatformJobKorea, TotalFound: 40, NewSaved: 40},
		{Site: crawler.PlatformSaramin, TotalFound: 12, NewSaved: 10, Duplicates: 2},
	}, nil).Once()
	fake.On("Close", mock.Anything).Return(nil).Once()

	out, err := execute("crawl", "--site", "all", "--days-back", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "1,100")
	assert.Contains(t, out, "jobkorea")
	assert.Contains(t, out, "1m30s")
	fake.AssertExpectations(t)
}

func TestCrawlPassesFlagsThrough(t *testing.T) {
	fake := &mockApp{}
	useApp(t, fake)

	fake.On("Crawl", mock.Anything, []crawler.Platform{crawler.PlatformSaramin, crawler.PlatformWanted},
		orchestrator.Options{FullCrawl: true, SkipExisting: true}).
		Return([]crawler.CrawlResult{{Site: crawler.PlatformSaramin}, {Site: crawler.PlatformWanted}}, nil).Once()
	fake.On("Close", mock.Anything).Return(nil).Once()

	_, err := execute("crawl", "--site", "saramin,wanted", "--full", "--skip-existing")
	require.NoError(t, err)
	fake.AssertExpectations(t)
}

func TestCrawlRejectsUnknownSiteBeforeBuildingApp(t *testing.T) {
	t.Chdir(t.TempDir())
	orig := newApp
	newApp = func(context.Context, config.Config, *zap.Logger) (App, error) {
		t.Fatal("application must not be built for an invalid site")
		return nil, nil
	}
	t.Cleanup(func() { newApp = orig })

	_, err := execute("crawl", "--site", "linkedin")
	require.Error(t, err)
	assert.True(t, crawler.IsConfiguration(err))

	_, err = execute("crawl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "site")
}

func TestCrawlFailureExitsWithError(t *testing.T) {
	fake := &mockApp{}
	useApp(t, fake)

	fake.On("Crawl", mock.Anything, []crawler.Platform{crawler.PlatformJobKorea}, mock.Anything).
		Return([]crawler.CrawlResult{{Site: crawler.PlatformJobKorea, Errors: 1}}, errors.New("jobkorea: listing unreachable")).Once()
	fake.On("Close", mock.Anything).Return(nil).Once()

	c := &cli{}
	root := newRootCmd(c)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"crawl", "--site", "jobkorea"})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing unreachable")
	assert.Contains(t, out.String(), "jobkorea", "summary is printed even on failure")

	require.NoError(t, c.shutdown(context.Background()))
	require.NoError(t, c.shutdown(context.Background()))
	fake.AssertExpectations(t)
}

func TestStatsPrintsCategories(t *testing.T) {
	fake := &mockApp{}
	useApp(t, fake)

	fake.On("Stats", mock.Anything, crawler.PlatformWanted).Return(crawler.PostingStats{
		Platform:      crawler.PlatformWanted,
		Total:         2500,
		LastCrawledAt: time.Now().Add(-2 * time.Hour),
		ByCategory:    map[string]int{"개발": 2000, "디자인": 500},
	}, nil).Once()
	fake.On("Close", mock.Anything).Return(nil).Once()

	out, err := execute("stats", "--site", "wanted")
	require.NoError(t, err)
	assert.Contains(t, out, "2,500 postings")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "개발")
	fake.AssertExpectations(t)
}

func TestLogLevelAndConfigFile(t *testing.T) {
	fake := &mockApp{}
	seen := useApp(t, fake)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crawler:\n  days_back: 5\nserver:\n  port: 8088\n"), 0o600))

	fake.On("Stats", mock.Anything, crawler.PlatformSaramin).Return(crawler.PostingStats{Platform: crawler.PlatformSaramin}, nil).Once()
	fake.On("Close", mock.Anything).Return(nil).Once()

	out, err := execute("--config", path, "--log-level", "debug", "stats", "--site", "saramin")
	require.NoError(t, err)
	assert.Contains(t, out, "last crawled never")
	assert.Equal(t, "debug", seen.Logging.Level)
	assert.Equal(t, 5, seen.Crawler.DaysBack)
	assert.Equal(t, 8088, seen.Server.Port)
}
