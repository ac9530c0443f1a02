package session

import (
	"strings"
	"sync"
)

// BlockTracker counts forbidden responses per key and trips once a threshold is reached.
type BlockTracker struct {
	mu        sync.Mutex
	threshold int
	counts    map[string]int
	blocked   map[string]struct{}
}

// NewBlockTracker builds a tracker; threshold defaults to 3.
func NewBlockTracker(threshold int) *BlockTracker {
	if threshold <= 0 {
		threshold = 3
	}
	return &BlockTracker{
		threshold: threshold,
		counts:    make(map[string]int),
		blocked:   make(map[string]struct{}),
	}
}

// IsBlocked reports whether key already tripped.
func (b *BlockTracker) IsBlocked(key string) bool {
	if key == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.blocked[strings.ToLower(key)]
	return ok
}

// MarkForbidden increments the counter for key. It returns the new count and whether the
// threshold has been reached.
func (b *BlockTracker) MarkForbidden(key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	k := strings.ToLower(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts[k]++
	if b.counts[k] >= b.threshold {
		b.blocked[k] = struct{}{}
		return b.counts[k], true
	}
	return b.counts[k], false
}

// Count returns how many forbidden responses key has seen.
func (b *BlockTracker) Count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[strings.ToLower(key)]
}
