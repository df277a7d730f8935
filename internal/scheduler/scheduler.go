// Package scheduler runs the delivery loop: it periodically scans the
// store for due reminders, pushes them to the user and either advances
// recurring ones or arms a grace-window expiry for one-shot ones.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avoronin/remindbot/internal/clock"
	"github.com/avoronin/remindbot/internal/models"
	"github.com/avoronin/remindbot/internal/recurrence"
)

// Store is the slice of the reminder repository the loop needs.
type Store interface {
	ListDue(ctx context.Context, until time.Time) ([]*models.Reminder, error)
	UpdateNextDue(ctx context.Context, reminderID int64, nextDue time.Time) error
	DeleteExpired(ctx context.Context, reminderID int64, due time.Time) (bool, error)
}

// Notifier delivers a reminder with its interactive controls attached.
type Notifier interface {
	Deliver(reminder *models.Reminder) error
}

const (
	backoffInterval = time.Minute
	expiryTimeout   = 10 * time.Second
)

type Scheduler struct {
	store        Store
	notifier     Notifier
	clock        clock.Clock
	pollInterval time.Duration
	backoff      time.Duration
	graceWindow  time.Duration
	notifyCh     chan struct{}
	expiries     *expiryRegistry
}

func New(store Store, notifier Notifier, clk clock.Clock, pollInterval, graceWindow time.Duration) *Scheduler {
	return &Scheduler{
		store:        store,
		notifier:     notifier,
		clock:        clk,
		pollInterval: pollInterval,
		backoff:      backoffInterval,
		graceWindow:  graceWindow,
		notifyCh:     make(chan struct{}, 1),
		expiries:     newExpiryRegistry(),
	}
}

// Notify triggers an immediate pass. Non-blocking if one is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// CancelExpiry stops the pending grace-window deletion for a one-shot
// reminder. Snooze and acknowledge call this; the user action supersedes
// the auto-expiry.
func (s *Scheduler) CancelExpiry(reminderID int64) bool {
	return s.expiries.cancel(reminderID)
}

// Start runs the loop until ctx is cancelled. A failed pass backs off to
// a longer sleep before the next attempt; per-reminder failures never
// fail the pass.
func (s *Scheduler) Start(ctx context.Context) {
	log.Info().Dur("poll_interval", s.pollInterval).Msg("scheduler started")
	defer s.expiries.shutdown()

	for {
		interval := s.pollInterval
		if err := s.pass(ctx); err != nil {
			log.Error().Err(err).Msg("scheduler pass failed, backing off")
			interval = s.backoff
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopped")
			return
		case <-time.After(interval):
		case <-s.notifyCh:
		}
	}
}

// pass processes the snapshot of due reminders read at its start.
// Reminders created mid-pass are picked up on the next one.
func (s *Scheduler) pass(ctx context.Context) error {
	now := s.clock.Now()
	due, err := s.store.ListDue(ctx, now)
	if err != nil {
		return fmt.Errorf("list due reminders: %w", err)
	}

	for _, reminder := range due {
		s.deliver(ctx, reminder)
	}
	return nil
}

func (s *Scheduler) deliver(ctx context.Context, reminder *models.Reminder) {
	// A one-shot reminder sitting in its grace window has already been
	// delivered; the row only still exists so its controls stay valid.
	if reminder.Recurrence == models.RecurrenceOnce && s.expiries.pending(reminder.ReminderID) {
		return
	}

	if err := s.notifier.Deliver(reminder); err != nil {
		// No retry within the pass; the reminder stays due and the next
		// pass picks it up again.
		log.Error().Err(err).
			Int64("reminder_id", reminder.ReminderID).
			Int64("user_id", reminder.UserID).
			Msg("failed to deliver reminder")
		return
	}

	if reminder.Recurrence.IsRecurring() {
		next := recurrence.Next(reminder.Recurrence, reminder.NextDue)
		if err := s.store.UpdateNextDue(ctx, reminder.ReminderID, next); err != nil {
			log.Error().Err(err).
				Int64("reminder_id", reminder.ReminderID).
				Msg("failed to advance recurring reminder")
			return
		}
		log.Info().
			Int64("reminder_id", reminder.ReminderID).
			Time("next_due", next).
			Msg("delivered recurring reminder")
		return
	}

	due := reminder.NextDue
	id := reminder.ReminderID
	s.expiries.arm(id, s.graceWindow, func() {
		s.expire(id, due)
	})
	log.Info().
		Int64("reminder_id", id).
		Dur("grace_window", s.graceWindow).
		Msg("delivered one-shot reminder")
}

func (s *Scheduler) expire(reminderID int64, due time.Time) {
	// Runs on the expiry timer goroutine, possibly after the loop's
	// context is gone, so it carries its own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), expiryTimeout)
	defer cancel()

	deleted, err := s.store.DeleteExpired(ctx, reminderID, due)
	if err != nil {
		log.Error().Err(err).Int64("reminder_id", reminderID).Msg("failed to expire reminder")
		return
	}
	if deleted {
		log.Info().Int64("reminder_id", reminderID).Msg("expired unacknowledged reminder")
	}
}
