// Package recurrence holds the pure scheduling policy: how a recurring
// reminder advances after delivery and how snooze offsets resolve to
// absolute times. Nothing here touches the store or the transport.
package recurrence

import (
	"fmt"
	"time"

	"github.com/avoronin/remindbot/internal/models"
)

// Fixed-duration periods. Monthly is a flat 30 days rather than calendar
// month arithmetic; over a year this drifts against month boundaries and
// that is the documented behavior.
const (
	weekPeriod  = 7 * 24 * time.Hour
	monthPeriod = 30 * 24 * time.Hour
)

// Next returns the due time one period after ref. Advancement is always
// computed from the reminder's last recorded due time, never from the
// wall clock, so late polling does not accumulate drift. Callers must
// delete one-shot reminders instead of advancing them; for RecurrenceOnce
// (or an unknown kind) ref is returned unchanged.
func Next(kind models.Recurrence, ref time.Time) time.Time {
	switch kind {
	case models.RecurrenceWeekly:
		return ref.Add(weekPeriod)
	case models.RecurrenceMonthly:
		return ref.Add(monthPeriod)
	}
	return ref
}

// SnoozeTag identifies one of the snooze controls offered on delivery.
type SnoozeTag string

const (
	SnoozeHour       SnoozeTag = "1h"
	SnoozeThreeHours SnoozeTag = "3h"
	SnoozeEvening    SnoozeTag = "evening"
	SnoozeTomorrow   SnoozeTag = "tomorrow"
)

// Local hours the named snooze targets resolve to.
const (
	eveningHour = 20
	morningHour = 10
)

// ValidSnoozeTag reports whether tag is one of the known snooze controls.
func ValidSnoozeTag(tag SnoozeTag) bool {
	switch tag {
	case SnoozeHour, SnoozeThreeHours, SnoozeEvening, SnoozeTomorrow:
		return true
	}
	return false
}

// Resolve maps a snooze tag to an absolute time relative to now. The
// result is never in the past: asking for "evening" after the 20:00
// cutoff rolls over to tomorrow evening.
func Resolve(tag SnoozeTag, now time.Time) (time.Time, error) {
	switch tag {
	case SnoozeHour:
		return now.Add(time.Hour), nil
	case SnoozeThreeHours:
		return now.Add(3 * time.Hour), nil
	case SnoozeEvening:
		evening := time.Date(now.Year(), now.Month(), now.Day(), eveningHour, 0, 0, 0, now.Location())
		if !evening.After(now) {
			evening = evening.AddDate(0, 0, 1)
		}
		return evening, nil
	case SnoozeTomorrow:
		tomorrow := now.AddDate(0, 0, 1)
		return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), morningHour, 0, 0, 0, now.Location()), nil
	}
	return time.Time{}, fmt.Errorf("unknown snooze tag %q", tag)
}
