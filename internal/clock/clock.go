// Package clock provides the bot's single source of current time. All
// scheduling decisions read time through a Clock so tests can run against
// a simulated one, and so every component sees the same fixed timezone.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// NewSystem returns a Clock reporting wall-clock time in loc.
func NewSystem(loc *time.Location) Clock {
	return &systemClock{loc: loc}
}

func (c *systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}
