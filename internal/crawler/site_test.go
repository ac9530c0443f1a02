package crawler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPageURLSubstitutesPage(t *testing.T) {
	t.Parallel()

	cfg := DefaultSites()[PlatformJobKorea]
	got := cfg.BuildPageURL(3)
	assert.Equal(t, "https://www.jobkorea.co.kr/recruit/joblist?Page_No=3&jobkind=1&menucode=2", got)

	plain := DefaultSites()[PlatformSaramin]
	assert.Equal(t, plain.BaseURL, plain.BuildPageURL(2))
}

func TestBuildPageURLAppendsToExistingQuery(t *testing.T) {
	t.Parallel()

	cfg := SiteConfig{BaseURL: "https://example.kr/list?a=1", SearchParams: map[string]string{"p": "{page}"}}
	assert.Equal(t, "https://example.kr/list?a=1&p=7", cfg.BuildPageURL(7))
}

func TestParsePlatform(t *testing.T) {
	t.Parallel()

	p, err := ParsePlatform(" Wanted ")
	require.NoError(t, err)
	assert.Equal(t, PlatformWanted, p)

	_, err = ParsePlatform("linkedin")
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))
	assert.True(t, errors.Is(err, ErrUnsupportedSite))
}

func TestDefaultSitesValidate(t *testing.T) {
	t.Parallel()

	for name, cfg := range DefaultSites() {
		require.NoError(t, cfg.Validate(), name)
	}

	bad := DefaultSites()[PlatformWanted]
	bad.MaxPages = 0
	assert.True(t, IsConfiguration(bad.Validate()))

	bad = DefaultSites()[PlatformWanted]
	bad.Strategy = "FTP"
	assert.True(t, IsConfiguration(bad.Validate()))
}

func TestHeadersAreCopied(t *testing.T) {
	t.Parallel()

	cfg := DefaultSites()[PlatformSaramin]
	h := cfg.Headers("https://ref.example")
	assert.Equal(t, "https://ref.example", h.Get("Referer"))
	assert.Equal(t, "https://www.saramin.co.kr/", cfg.CommonHeaders.Get("Referer"))
}
