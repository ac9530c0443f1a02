// Package metrics exposes Prometheus collectors for the job board crawler.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	postingsTotal              *prometheus.CounterVec
	listingURLsTotal           *prometheus.CounterVec
	blockedTotal               *prometheus.CounterVec
	runDurationSeconds         *prometheus.HistogramVec
	suspiciousContentTotal     *prometheus.CounterVec
	fetchesTotal               *prometheus.CounterVec
	rateLimitDelaysSeconds     *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	activeRuns                 prometheus.Gauge

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		postingsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobcrawler_postings_total",
				Help: "Detail pages processed, labeled by site and outcome (new, duplicate, error, skipped).",
			},
			[]string{"site", "outcome"},
		)

		listingURLsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobcrawler_listing_urls_total",
				Help: "Posting URLs discovered on listing pages, labeled by site.",
			},
			[]string{"site"},
		)

		blockedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobcrawler_blocked_total",
				Help: "Requests refused by a board (403 or bot challenge), labeled by site.",
			},
			[]string{"site"},
		)

		runDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobcrawler_run_duration_seconds",
				Help:    "Wall time of a site run.",
				Buckets: []float64{10, 30, 60, 300, 900, 1800, 3600, 7200},
			},
			[]string{"site"},
		)

		suspiciousContentTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobcrawler_suspicious_content_total",
				Help: "Postings whose body looked like an image, PDF or canvas, labeled by site and kind.",
			},
			[]string{"site", "kind"},
		)

		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobcrawler_fetches_total",
				Help: "Page fetches, labeled by host, transport and status class.",
			},
			[]string{"host", "transport", "status"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobcrawler_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"host"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		activeRuns = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "jobcrawler_active_runs",
				Help: "Number of site runs in progress.",
			},
		)
	})
}

// SanitizeHost extracts a lowercase hostname from a URL.
// It returns "unknown" if the URL is invalid.
func SanitizeHost(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// StatusClass buckets an HTTP status into 2xx/3xx/4xx/5xx, or "error" when no response arrived.
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePosting counts one detail outcome for site.
func ObservePosting(site, outcome string) {
	Init()
	postingsTotal.WithLabelValues(site, outcome).Inc()
}

// ObserveListingURLs records how many URLs a listing pass produced.
func ObserveListingURLs(site string, n int) {
	Init()
	if n > 0 {
		listingURLsTotal.WithLabelValues(site).Add(float64(n))
	}
}

// ObserveBlocked counts a refused request.
func ObserveBlocked(site string) {
	Init()
	blockedTotal.WithLabelValues(site).Inc()
}

// ObserveRun records the duration of a finished run.
func ObserveRun(site string, elapsed time.Duration) {
	Init()
	runDurationSeconds.WithLabelValues(site).Observe(elapsed.Seconds())
}

// ObserveSuspiciousContent counts a posting flagged by the content detector.
func ObserveSuspiciousContent(site, kind string) {
	Init()
	suspiciousContentTotal.WithLabelValues(site, kind).Inc()
}

// ObserveFetch counts one page fetch.
func ObserveFetch(rawURL, transport string, status int) {
	Init()
	fetchesTotal.WithLabelValues(SanitizeHost(rawURL), transport, StatusClass(status)).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(host string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(host).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveRuns increments the active runs gauge.
func IncActiveRuns() {
	Init()
	activeRuns.Inc()
}

// DecActiveRuns decrements the active runs gauge.
func DecActiveRuns() {
	Init()
	activeRuns.Dec()
}
