package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/jobboard-crawler/internal/progress"
)

// PrometheusSink tracks live runs: how many are in flight and how many listing URLs each site
// still has to visit.
type PrometheusSink struct {
	runsStarted   *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runsRunning   prometheus.Gauge
	pendingURLs   *prometheus.GaugeVec

	mu      sync.Mutex
	running map[[16]byte]string
}

// NewPrometheusSink registers the collectors with reg, or the default registerer when nil.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobcrawler_runs_started_total",
			Help: "Site runs started.",
		}, []string{"site"}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobcrawler_runs_completed_total",
			Help: "Site runs finished, partitioned by result.",
		}, []string{"site", "result"}),
		runsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobcrawler_runs_running",
			Help: "Site runs in flight.",
		}),
		pendingURLs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jobcrawler_pending_urls",
			Help: "Listing URLs collected but not yet processed in the current run.",
		}, []string{"site"}),
		running: make(map[[16]byte]string),
	}
	for _, c := range []prometheus.Collector{s.runsStarted, s.runsCompleted, s.runsRunning, s.pendingURLs} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume implements progress.Sink.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			s.runsStarted.WithLabelValues(evt.Site).Inc()
			if _, ok := s.running[evt.RunID]; !ok {
				s.running[evt.RunID] = evt.Site
				s.runsRunning.Inc()
			}
		case progress.StageURLsCollected:
			s.pendingURLs.WithLabelValues(evt.Site).Set(float64(evt.Count))
		case progress.StagePostingDone:
			s.pendingURLs.WithLabelValues(evt.Site).Dec()
		case progress.StageRunDone, progress.StageRunError:
			result := "success"
			if evt.Stage == progress.StageRunError {
				result = "error"
			}
			s.runsCompleted.WithLabelValues(evt.Site, result).Inc()
			s.pendingURLs.WithLabelValues(evt.Site).Set(0)
			if _, ok := s.running[evt.RunID]; ok {
				delete(s.running, evt.RunID)
				s.runsRunning.Dec()
			}
		}
	}
	return nil
}

// Close implements progress.Sink.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
