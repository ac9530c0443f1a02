package session

import (
	"net/http"
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
)

func TestToNetworkHeaders(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Set("Referer", "https://www.saramin.co.kr/")
	h.Add("Accept-Language", "ko-KR")
	h.Add("Accept-Language", "en")
	h["Empty"] = nil

	got := toNetworkHeaders(h)
	assert.Equal(t, "https://www.saramin.co.kr/", got["Referer"])
	assert.Equal(t, []string{"ko-KR", "en"}, got["Accept-Language"])
	assert.NotContains(t, got, "Empty")
}

func TestResponseMetaCapturesDocumentOnly(t *testing.T) {
	t.Parallel()

	m := newResponseMeta()
	m.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeImage,
		Response: &network.Response{Status: 404, URL: "https://x/img.png"},
	})
	status, _, _ := m.snapshot()
	assert.Zero(t, status)

	m.captureEvent(&network.EventResponseReceived{
		Type: network.ResourceTypeDocument,
		Response: &network.Response{
			Status:  403,
			URL:     "https://www.saramin.co.kr/zf_user/jobs/relay/view?rec_idx=1",
			Headers: network.Headers{"Content-Type": "text/html"},
		},
	})
	status, headers, url := m.snapshot()
	assert.Equal(t, 403, status)
	assert.Equal(t, "text/html", headers.Get("Content-Type"))
	assert.Contains(t, url, "rec_idx=1")

	m.reset()
	status, _, url = m.snapshot()
	assert.Zero(t, status)
	assert.Empty(t, url)
}

func TestResponseMetaIgnoresChildFrameDocuments(t *testing.T) {
	t.Parallel()

	mainDoc := &network.EventResponseReceived{
		FrameID:  "MAIN",
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 200, URL: "https://www.saramin.co.kr/zf_user/jobs/relay/view?rec_idx=7"},
	}
	iframeDoc := &network.EventResponseReceived{
		FrameID:  "CHILD",
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 404, URL: "https://www.saramin.co.kr/zf_user/jobs/relay/view-detail?rec_idx=7"},
	}

	known := newResponseMeta()
	known.setMainFrame("MAIN")
	known.captureEvent(iframeDoc)
	status, _, _ := known.snapshot()
	assert.Zero(t, status, "child frame ignored before the main document")
	known.captureEvent(mainDoc)
	known.captureEvent(iframeDoc)
	status, _, url := known.snapshot()
	assert.Equal(t, 200, status)
	assert.Contains(t, url, "/relay/view?")

	pinned := newResponseMeta()
	pinned.captureEvent(mainDoc)
	pinned.captureEvent(iframeDoc)
	status, _, _ = pinned.snapshot()
	assert.Equal(t, 200, status, "first document pins the frame")

	pinned.reset()
	pinned.captureEvent(iframeDoc)
	status, _, _ = pinned.snapshot()
	assert.Equal(t, 404, status, "reset releases the pin")
}

func TestTabOptionsFor(t *testing.T) {
	t.Parallel()

	sites := crawler.DefaultSites()
	saramin := TabOptionsFor(sites[crawler.PlatformSaramin])
	assert.True(t, saramin.Stealth)
	assert.Contains(t, UserAgents(), saramin.UserAgent)
	assert.Equal(t, int64(1920), saramin.Viewport.Width)
	assert.Contains(t, saramin.BlockResources, "*.woff2")
	assert.Empty(t, saramin.Headers.Get("User-Agent"))
	assert.Equal(t, "https://www.saramin.co.kr/", saramin.Headers.Get("Referer"))

	jobkorea := TabOptionsFor(sites[crawler.PlatformJobKorea])
	assert.False(t, jobkorea.Stealth)
	assert.Equal(t, crawler.DefaultUserAgent, jobkorea.UserAgent)
}

func TestStealthScriptHidesWebdriver(t *testing.T) {
	t.Parallel()

	assert.Contains(t, stealthScript, "webdriver")
	assert.Contains(t, stealthScript, "ko-KR")
}
