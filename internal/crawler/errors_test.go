package crawler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "transient", err: &TransientNetworkError{URL: "u", Status: 503}, want: true},
		{name: "wrapped transient", err: fmt.Errorf("fetch: %w", &TransientNetworkError{URL: "u", Err: errors.New("reset")}), want: true},
		{name: "blocked", err: &BlockedError{URL: "u", Status: 403}, want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "gap", err: &ExtractionGap{Field: "title"}, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, IsRetryable(tc.err))
		})
	}
}

func TestErrorClassifiers(t *testing.T) {
	t.Parallel()

	conflict := fmt.Errorf("save: %w", &PersistenceConflict{Key: "job_id"})
	assert.True(t, IsConflict(conflict))
	assert.False(t, IsBlocked(conflict))
	assert.True(t, IsBlocked(fmt.Errorf("x: %w", &BlockedError{Status: 403})))
	assert.Contains(t, (&ConfigurationError{Reason: "bad"}).Error(), "bad")
}

func TestSaveOutcomeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "inserted", SaveInserted.String())
	assert.Equal(t, "updated", SaveUpdated.String())
}
