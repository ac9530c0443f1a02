package sinks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/jobboard-crawler/internal/progress"
)

// RunStatus is the live view of one site run.
type RunStatus struct {
	RunID      string     `json:"run_id"`
	Site       string     `json:"site"`
	Stage      string     `json:"stage"`
	Found      int        `json:"found"`
	Processed  int        `json:"processed"`
	New        int        `json:"new"`
	Duplicates int        `json:"duplicates"`
	Errors     int        `json:"errors"`
	Skipped    int        `json:"skipped"`
	StartedAt  time.Time  `json:"started_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Board folds events into per-run status. It keeps at most limit finished runs.
type Board struct {
	mu    sync.RWMutex
	runs  map[[16]byte]*RunStatus
	limit int
}

// DefaultBoardLimit bounds how many finished runs the board remembers.
const DefaultBoardLimit = 50

// NewBoard returns an empty board.
func NewBoard(limit int) *Board {
	if limit <= 0 {
		limit = DefaultBoardLimit
	}
	return &Board{runs: make(map[[16]byte]*RunStatus), limit: limit}
}

// Consume implements progress.Sink.
func (b *Board) Consume(_ context.Context, batch []progress.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, evt := range batch {
		st := b.runs[evt.RunID]
		if st == nil {
			st = &RunStatus{RunID: evt.RunUUID().String(), Site: evt.Site, StartedAt: evt.TS}
			b.runs[evt.RunID] = st
		}
		st.Stage = string(evt.Stage)
		st.UpdatedAt = evt.TS
		switch evt.Stage {
		case progress.StageURLsCollected:
			st.Found = evt.Count
		case progress.StagePostingDone:
			st.Processed++
			switch evt.Outcome {
			case progress.OutcomeNew:
				st.New++
			case progress.OutcomeDuplicate:
				st.Duplicates++
			case progress.OutcomeError:
				st.Errors++
			case progress.OutcomeSkipped:
				st.Skipped++
			}
		case progress.StageRunDone, progress.StageRunError:
			at := evt.TS
			st.FinishedAt = &at
			st.Error = evt.Note
		}
	}
	b.evict()
	return nil
}

// evict drops the oldest finished runs beyond the limit. Callers hold mu.
func (b *Board) evict() {
	var finished [][16]byte
	for id, st := range b.runs {
		if st.FinishedAt != nil {
			finished = append(finished, id)
		}
	}
	if len(finished) <= b.limit {
		return
	}
	sort.Slice(finished, func(i, j int) bool {
		return b.runs[finished[i]].FinishedAt.Before(*b.runs[finished[j]].FinishedAt)
	})
	for _, id := range finished[:len(finished)-b.limit] {
		delete(b.runs, id)
	}
}

// Runs returns every known run, newest first.
func (b *Board) Runs() []RunStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]RunStatus, 0, len(b.runs))
	for _, st := range b.runs {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// Run returns the status of one run.
func (b *Board) Run(runID string) (RunStatus, bool) {
	id, err := progress.ParseRunID(runID)
	if err != nil {
		return RunStatus{}, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.runs[id]
	if !ok {
		return RunStatus{}, false
	}
	return *st, true
}

// Close implements progress.Sink.
func (b *Board) Close(context.Context) error {
	return nil
}
