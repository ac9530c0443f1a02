package adapter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-crawler/internal/adapter/jobkorea"
	"github.com/JakeFAU/jobboard-crawler/internal/adapter/saramin"
	"github.com/JakeFAU/jobboard-crawler/internal/adapter/wanted"
	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
	"github.com/JakeFAU/jobboard-crawler/internal/session"
)

func deps() Deps {
	return Deps{
		HTTP:   session.NewHTTPSession(session.HTTPConfig{}, nil, zap.NewNop()),
		Logger: zap.NewNop(),
	}
}

func TestNewBuildsEveryBoard(t *testing.T) {
	t.Parallel()

	a, err := New("wanted", deps())
	require.NoError(t, err)
	assert.IsType(t, &wanted.Adapter{}, a)

	a, err = New(" JobKorea ", deps())
	require.NoError(t, err)
	assert.IsType(t, &jobkorea.Adapter{}, a)

	a, err = New("saramin", deps())
	require.NoError(t, err)
	assert.IsType(t, &saramin.Adapter{}, a)
}

func TestNewRejectsUnknownSite(t *testing.T) {
	t.Parallel()

	a, err := New("linkedin", deps())
	assert.Nil(t, a)
	require.Error(t, err)
	assert.True(t, crawler.IsConfiguration(err))
	assert.True(t, errors.Is(err, crawler.ErrUnsupportedSite))
}

func TestNewRequiresHTTP(t *testing.T) {
	t.Parallel()

	for _, site := range crawler.SupportedPlatforms() {
		a, err := New(string(site), Deps{})
		assert.Nil(t, a, site)
		assert.True(t, crawler.IsConfiguration(err), site)
	}
}

func TestNeedsBrowser(t *testing.T) {
	t.Parallel()

	sites := crawler.DefaultSites()
	assert.False(t, NeedsBrowser(sites[crawler.PlatformWanted]))
	assert.True(t, NeedsBrowser(sites[crawler.PlatformJobKorea]))
	assert.True(t, NeedsBrowser(sites[crawler.PlatformSaramin]))
}
