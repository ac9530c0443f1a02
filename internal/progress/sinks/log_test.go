package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/jobboard-crawler/internal/progress"
)

func TestLogSinkLevels(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	sink := NewLogSink(zap.New(core))
	run := [16]byte(uuid.New())
	now := time.Now()
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{RunID: run, TS: now, Stage: progress.StageURLsCollected, Site: "jobkorea", Count: 3},
		{RunID: run, TS: now, Stage: progress.StagePostingDone, Site: "jobkorea", URL: "u", Outcome: progress.OutcomeError, Note: "timeout"},
		{RunID: run, TS: now, Stage: progress.StageRunDone, Site: "jobkorea", Count: 2, Dur: time.Minute},
	}))

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(3), entries[0].ContextMap()["found"])
	assert.Equal(t, zap.DebugLevel, entries[1].Level)
	assert.Equal(t, "timeout", entries[1].ContextMap()["note"])
	assert.Equal(t, "progress", entries[2].LoggerName)
	assert.NoError(t, sink.Close(context.Background()))
}
