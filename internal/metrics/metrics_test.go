package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeHost(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://WWW.Saramin.co.kr/zf_user", "www.saramin.co.kr"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeHost(tc.input); got != tc.expected {
				t.Errorf("SanitizeHost(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestStatusClass(t *testing.T) {
	cases := map[int]string{0: "error", 200: "2xx", 302: "3xx", 403: "4xx", 503: "5xx", 999: "error"}
	for in, want := range cases {
		if got := StatusClass(in); got != want {
			t.Errorf("StatusClass(%d) = %q; want %q", in, got, want)
		}
	}
}

func TestObservers(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	before := testutil.ToFloat64(postingsTotal.WithLabelValues("wanted", "new"))
	ObservePosting("wanted", "new")
	if got := testutil.ToFloat64(postingsTotal.WithLabelValues("wanted", "new")); got != before+1 {
		t.Errorf("postings counter = %f; want %f", got, before+1)
	}

	ObserveListingURLs("saramin", 0)
	ObserveListingURLs("saramin", 30)
	if got := testutil.ToFloat64(listingURLsTotal.WithLabelValues("saramin")); got < 30 {
		t.Errorf("listing counter = %f; want >= 30", got)
	}

	ObserveBlocked("jobkorea")
	ObserveSuspiciousContent("saramin", "pdf_embed")
	ObserveFetch("https://www.wanted.co.kr/api", "http", 200)
	ObserveRun("wanted", 3*time.Second)
	ObserveRateLimitDelay("www.wanted.co.kr", 20*time.Millisecond)
	IncActiveRuns()
	DecActiveRuns()

	if val := testutil.CollectAndCount(runDurationSeconds); val <= 0 {
		t.Errorf("expected run duration to be observed, got %d", val)
	}
	if got := testutil.ToFloat64(fetchesTotal.WithLabelValues("www.wanted.co.kr", "http", "2xx")); got < 1 {
		t.Errorf("fetch counter = %f; want >= 1", got)
	}
}

// Fuzz test for SanitizeHost.
func FuzzSanitizeHost(f *testing.F) {
	testcases := []string{"http://example.com", "https://www.jobkorea.co.kr", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeHost(orig) == "" {
			t.Errorf("SanitizeHost(%q) returned an empty string", orig)
		}
	})
}
