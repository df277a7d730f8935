package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronin/remindbot/internal/models"
)

func TestNext(t *testing.T) {
	ref := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		kind models.Recurrence
		want time.Time
	}{
		{
			name: "weekly adds seven days",
			kind: models.RecurrenceWeekly,
			want: time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "monthly adds a flat thirty days",
			kind: models.RecurrenceMonthly,
			want: time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "once is returned unchanged",
			kind: models.RecurrenceOnce,
			want: ref,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Next(tt.kind, ref))
		})
	}
}

func TestNextIsAnchorBased(t *testing.T) {
	// Advancement must be computed from the stored due time, so a pass
	// running ten days late still lands on anchor+7d.
	anchor := time.Date(2024, 3, 4, 18, 30, 0, 0, time.UTC)
	got := Next(models.RecurrenceWeekly, anchor)
	assert.Equal(t, anchor.Add(7*24*time.Hour), got)
}

func TestResolve(t *testing.T) {
	day := func(d, hour, min int) time.Time {
		return time.Date(2024, 6, d, hour, min, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		tag  SnoozeTag
		now  time.Time
		want time.Time
	}{
		{
			name: "one hour",
			tag:  SnoozeHour,
			now:  day(10, 12, 15),
			want: day(10, 13, 15),
		},
		{
			name: "three hours",
			tag:  SnoozeThreeHours,
			now:  day(10, 12, 15),
			want: day(10, 15, 15),
		},
		{
			name: "evening before the cutoff",
			tag:  SnoozeEvening,
			now:  day(10, 12, 0),
			want: day(10, 20, 0),
		},
		{
			name: "evening after the cutoff rolls to tomorrow",
			tag:  SnoozeEvening,
			now:  day(10, 21, 0),
			want: day(11, 20, 0),
		},
		{
			name: "evening exactly at the cutoff rolls to tomorrow",
			tag:  SnoozeEvening,
			now:  day(10, 20, 0),
			want: day(11, 20, 0),
		},
		{
			name: "tomorrow morning",
			tag:  SnoozeTomorrow,
			now:  day(10, 23, 45),
			want: day(11, 10, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.tag, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.False(t, got.Before(tt.now), "resolved time must never be in the past")
		})
	}
}

func TestResolveUnknownTag(t *testing.T) {
	_, err := Resolve(SnoozeTag("5m"), time.Now())
	require.Error(t, err)
}

func TestValidSnoozeTag(t *testing.T) {
	for _, tag := range []SnoozeTag{SnoozeHour, SnoozeThreeHours, SnoozeEvening, SnoozeTomorrow} {
		assert.True(t, ValidSnoozeTag(tag))
	}
	assert.False(t, ValidSnoozeTag(SnoozeTag("never")))
}
