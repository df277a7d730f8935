package models

import "time"

// Recurrence governs what happens to a reminder after delivery.
type Recurrence string

const (
	RecurrenceOnce    Recurrence = "once"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// Valid reports whether r is one of the known recurrence kinds.
func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceOnce, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// IsRecurring returns true if the reminder fires more than once.
func (r Recurrence) IsRecurring() bool {
	return r == RecurrenceWeekly || r == RecurrenceMonthly
}

type Reminder struct {
	ReminderID int64      `json:"reminder_id"`
	UserID     int64      `json:"user_id"`
	Body       string     `json:"body"`
	AnchorAt   time.Time  `json:"anchor_at"` // original scheduled time, base for recurrence math
	NextDue    time.Time  `json:"next_due"`  // next delivery time; snooze and advancement write here
	Recurrence Recurrence `json:"recurrence"`
	CreatedAt  time.Time  `json:"created_at"`
}
