package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage is the milestone an Event reports.
type Stage string

// Run milestones in the order a site run emits them.
const (
	StageRunStart      Stage = "RUN_START"
	StageURLsCollected Stage = "URLS_COLLECTED"
	StagePostingDone   Stage = "POSTING_DONE"
	StageRunDone       Stage = "RUN_DONE"
	StageRunError      Stage = "RUN_ERROR"
)

// Outcome is the result of one posting in the detail loop.
type Outcome string

// Posting outcomes, matching the orchestrator's counters.
const (
	OutcomeNew       Outcome = "new"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeError     Outcome = "error"
	OutcomeSkipped   Outcome = "skipped"
)

// Event is one milestone of a site run.
type Event struct {
	// RunID is the run's UUID in binary form.
	RunID [16]byte
	TS    time.Time
	Stage Stage
	Site  string
	// URL is set on POSTING_DONE.
	URL     string
	Outcome Outcome
	// Count is the number of URLs found (URLS_COLLECTED) or saved (RUN_DONE).
	Count int
	Dur   time.Duration
	// Note carries short context such as an error message.
	Note string
}

// Validate rejects events that sinks could not attribute.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.Site == "" {
		return errors.New("site is required")
	}
	switch e.Stage {
	case StageRunStart, StageURLsCollected, StageRunDone, StageRunError:
	case StagePostingDone:
		switch e.Outcome {
		case OutcomeNew, OutcomeDuplicate, OutcomeError, OutcomeSkipped:
		default:
			return fmt.Errorf("posting done requires an outcome, got %q", e.Outcome)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Count < 0 || e.Dur < 0 {
		return errors.New("count and duration must be >= 0")
	}
	return nil
}

// RunUUID returns the run id as a uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// ParseRunID converts a textual run id into the Event form.
func ParseRunID(s string) ([16]byte, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return [16]byte{}, fmt.Errorf("parse run id: %w", err)
	}
	return [16]byte(id), nil
}
