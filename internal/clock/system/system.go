// Package system provides the wall clock used outside tests.
package system

import (
	"time"
)

// Seoul is the zone the boards publish in. Crawl timestamps and job id years follow it.
const Seoul = "Asia/Seoul"

// Clock implements crawler.Clock.
type Clock struct {
	loc *time.Location
}

// New returns a clock reporting UTC.
func New() *Clock {
	return &Clock{loc: time.UTC}
}

// NewIn returns a clock reporting times in the named zone. Unknown zones fall back to a fixed
// UTC+9 offset when the name is Seoul, and to UTC otherwise.
func NewIn(zone string) *Clock {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		if zone == Seoul {
			loc = time.FixedZone("KST", 9*60*60)
		} else {
			loc = time.UTC
		}
	}
	return &Clock{loc: loc}
}

// Now returns the current time in the clock's zone.
func (c *Clock) Now() time.Time {
	if c == nil || c.loc == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.loc)
}

// Location returns the clock's zone.
func (c *Clock) Location() *time.Location {
	if c == nil || c.loc == nil {
		return time.UTC
	}
	return c.loc
}
