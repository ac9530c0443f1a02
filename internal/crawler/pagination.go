package crawler

import (
	"fmt"
	"time"
)

// MaxConsecutiveEmptyPages trips the listing circuit breaker.
const MaxConsecutiveEmptyPages = 3

// JobID builds the globally unique posting key <platform>_<year>_<native id>.
func JobID(p Platform, at time.Time, nativeID string) string {
	return fmt.Sprintf("%s_%d_%s", p, at.Year(), nativeID)
}

// Breaker counts consecutive empty or failed listing pages.
type Breaker struct {
	limit int
	run   int
}

// NewBreaker returns a breaker that trips after limit consecutive misses.
func NewBreaker(limit int) *Breaker {
	if limit <= 0 {
		limit = MaxConsecutiveEmptyPages
	}
	return &Breaker{limit: limit}
}

// Miss records an empty or failed page and reports whether the breaker tripped.
func (b *Breaker) Miss() bool {
	b.run++
	return b.run >= b.limit
}

// Hit resets the run of misses.
func (b *Breaker) Hit() { b.run = 0 }

// Misses returns the current run length.
func (b *Breaker) Misses() int { return b.run }

// URLSet collects URLs once each, in the order they were first added.
type URLSet struct {
	seen  map[string]struct{}
	order []string
}

// NewURLSet returns an empty set.
func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add inserts u and reports whether it was new. Empty strings are ignored.
func (s *URLSet) Add(u string) bool {
	if u == "" {
		return false
	}
	if _, ok := s.seen[u]; ok {
		return false
	}
	s.seen[u] = struct{}{}
	s.order = append(s.order, u)
	return true
}

// Len returns the number of distinct URLs.
func (s *URLSet) Len() int { return len(s.order) }

// Slice returns the URLs in discovery order.
func (s *URLSet) Slice() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
