package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobboard-crawler/internal/progress"
)

func TestPrometheusSinkTracksRuns(t *testing.T) {
	t.Parallel()

	sink, err := NewPrometheusSink(prometheus.NewRegistry())
	require.NoError(t, err)

	run := [16]byte(uuid.New())
	now := time.Now()
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{RunID: run, TS: now, Stage: progress.StageRunStart, Site: "wanted"},
		{RunID: run, TS: now, Stage: progress.StageRunStart, Site: "wanted"},
		{RunID: run, TS: now, Stage: progress.StageURLsCollected, Site: "wanted", Count: 5},
		{RunID: run, TS: now, Stage: progress.StagePostingDone, Site: "wanted", Outcome: progress.OutcomeNew},
		{RunID: run, TS: now, Stage: progress.StagePostingDone, Site: "wanted", Outcome: progress.OutcomeError},
	}))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.runsRunning))
	assert.Equal(t, 3.0, testutil.ToFloat64(sink.pendingURLs.WithLabelValues("wanted")))

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{RunID: run, TS: now, Stage: progress.StageRunDone, Site: "wanted", Count: 4},
	}))
	assert.Equal(t, 0.0, testutil.ToFloat64(sink.runsRunning))
	assert.Equal(t, 0.0, testutil.ToFloat64(sink.pendingURLs.WithLabelValues("wanted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.runsCompleted.WithLabelValues("wanted", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.runsStarted.WithLabelValues("wanted")))
}

func TestPrometheusSinkRejectsDoubleRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	assert.Error(t, err)
}
