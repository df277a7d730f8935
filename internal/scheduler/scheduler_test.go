package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronin/remindbot/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fakeStore struct {
	mu        sync.Mutex
	reminders map[int64]*models.Reminder
	listErr   error
}

func newFakeStore(reminders ...*models.Reminder) *fakeStore {
	s := &fakeStore{reminders: make(map[int64]*models.Reminder)}
	for _, r := range reminders {
		cp := *r
		s.reminders[r.ReminderID] = &cp
	}
	return s
}

func (s *fakeStore) ListDue(_ context.Context, until time.Time) ([]*models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var due []*models.Reminder
	for _, r := range s.reminders {
		if !r.NextDue.After(until) {
			cp := *r
			due = append(due, &cp)
		}
	}
	return due, nil
}

func (s *fakeStore) UpdateNextDue(_ context.Context, reminderID int64, nextDue time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[reminderID]
	if !ok {
		return errors.New("not found")
	}
	r.NextDue = nextDue
	return nil
}

func (s *fakeStore) DeleteExpired(_ context.Context, reminderID int64, due time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[reminderID]
	if !ok || r.Recurrence != models.RecurrenceOnce || !r.NextDue.Equal(due) {
		return false, nil
	}
	delete(s.reminders, reminderID)
	return true, nil
}

func (s *fakeStore) get(reminderID int64) *models.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[reminderID]
	if !ok {
		return nil
	}
	cp := *r
	return &cp
}

type fakeNotifier struct {
	mu        sync.Mutex
	delivered []int64
	failIDs   map[int64]bool
}

func (n *fakeNotifier) Deliver(r *models.Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failIDs[r.ReminderID] {
		return errors.New("transport down")
	}
	n.delivered = append(n.delivered, r.ReminderID)
	return nil
}

func (n *fakeNotifier) deliveries() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int64(nil), n.delivered...)
}

func newTestScheduler(store Store, n Notifier, clk *fakeClock, grace time.Duration) *Scheduler {
	return New(store, n, clk, time.Hour, grace)
}

func TestPassDeliversOnlyDue(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 5, 0, 0, time.UTC)
	store := newFakeStore(
		&models.Reminder{ReminderID: 1, UserID: 10, Body: "due", NextDue: now.Add(-time.Minute), Recurrence: models.RecurrenceOnce},
		&models.Reminder{ReminderID: 2, UserID: 10, Body: "future", NextDue: now.Add(time.Hour), Recurrence: models.RecurrenceOnce},
	)
	n := &fakeNotifier{}
	s := newTestScheduler(store, n, &fakeClock{now: now}, time.Hour)

	require.NoError(t, s.pass(context.Background()))
	assert.Equal(t, []int64{1}, n.deliveries())
}

func TestPassAdvancesWeeklyFromAnchor(t *testing.T) {
	// Pass runs ten days late; the new due time must still be anchor+7d,
	// not now+7d.
	anchor := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	store := newFakeStore(&models.Reminder{
		ReminderID: 1, UserID: 10, Body: "weekly",
		AnchorAt: anchor, NextDue: anchor, Recurrence: models.RecurrenceWeekly,
	})
	n := &fakeNotifier{}
	clk := &fakeClock{now: anchor.Add(10 * 24 * time.Hour)}
	s := newTestScheduler(store, n, clk, time.Hour)

	require.NoError(t, s.pass(context.Background()))

	assert.Equal(t, []int64{1}, n.deliveries())
	assert.Equal(t, anchor.Add(7*24*time.Hour), store.get(1).NextDue)
}

func TestPassIsolatesDeliveryFailure(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	store := newFakeStore(
		&models.Reminder{ReminderID: 1, UserID: 10, Body: "broken", NextDue: now, Recurrence: models.RecurrenceWeekly},
		&models.Reminder{ReminderID: 2, UserID: 11, Body: "fine", NextDue: now, Recurrence: models.RecurrenceWeekly},
	)
	n := &fakeNotifier{failIDs: map[int64]bool{1: true}}
	s := newTestScheduler(store, n, &fakeClock{now: now}, time.Hour)

	require.NoError(t, s.pass(context.Background()))

	assert.Equal(t, []int64{2}, n.deliveries())
	// The failed reminder keeps its due time so the next pass retries it.
	assert.Equal(t, now, store.get(1).NextDue)
	assert.Equal(t, now.Add(7*24*time.Hour), store.get(2).NextDue)
}

func TestPassReportsStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("connection refused")
	s := newTestScheduler(store, &fakeNotifier{}, &fakeClock{now: time.Now()}, time.Hour)

	require.Error(t, s.pass(context.Background()))
}

func TestOnceNotRedeliveredDuringGrace(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	store := newFakeStore(&models.Reminder{
		ReminderID: 1, UserID: 10, Body: "one-shot", NextDue: now, Recurrence: models.RecurrenceOnce,
	})
	n := &fakeNotifier{}
	s := newTestScheduler(store, n, &fakeClock{now: now}, time.Hour)
	defer s.expiries.shutdown()

	require.NoError(t, s.pass(context.Background()))
	require.NoError(t, s.pass(context.Background()))

	// Still present (grace window), but delivered exactly once.
	assert.NotNil(t, store.get(1))
	assert.Equal(t, []int64{1}, n.deliveries())
}

func TestOnceExpiresAfterGraceAndNotBefore(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	store := newFakeStore(&models.Reminder{
		ReminderID: 1, UserID: 10, Body: "one-shot", NextDue: now, Recurrence: models.RecurrenceOnce,
	})
	s := newTestScheduler(store, &fakeNotifier{}, &fakeClock{now: now}, 50*time.Millisecond)
	defer s.expiries.shutdown()

	require.NoError(t, s.pass(context.Background()))
	assert.NotNil(t, store.get(1), "must not be deleted before the grace window elapses")

	require.Eventually(t, func() bool {
		return store.get(1) == nil
	}, time.Second, 5*time.Millisecond, "expected expiry to delete the reminder")
}

func TestCancelExpiryPreventsDeletion(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	store := newFakeStore(&models.Reminder{
		ReminderID: 1, UserID: 10, Body: "one-shot", NextDue: now, Recurrence: models.RecurrenceOnce,
	})
	s := newTestScheduler(store, &fakeNotifier{}, &fakeClock{now: now}, 50*time.Millisecond)
	defer s.expiries.shutdown()

	require.NoError(t, s.pass(context.Background()))
	require.True(t, s.CancelExpiry(1))

	time.Sleep(120 * time.Millisecond)
	assert.NotNil(t, store.get(1), "cancelled expiry must not delete the reminder")
	assert.False(t, s.CancelExpiry(1), "second cancel finds nothing pending")
}

func TestSnoozeWinsExpiryRace(t *testing.T) {
	// Even if the expiry timer fires, the conditional delete is a no-op
	// once a snooze has moved next_due.
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	store := newFakeStore(&models.Reminder{
		ReminderID: 1, UserID: 10, Body: "one-shot", NextDue: now, Recurrence: models.RecurrenceOnce,
	})
	s := newTestScheduler(store, &fakeNotifier{}, &fakeClock{now: now}, 30*time.Millisecond)
	defer s.expiries.shutdown()

	require.NoError(t, s.pass(context.Background()))
	require.NoError(t, store.UpdateNextDue(context.Background(), 1, now.Add(time.Hour)))

	time.Sleep(100 * time.Millisecond)
	assert.NotNil(t, store.get(1), "snoozed reminder must survive the stale expiry")
}

func TestMonthlyEndToEnd(t *testing.T) {
	anchor := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	store := newFakeStore(&models.Reminder{
		ReminderID: 1, UserID: 10, Body: "Pay rent",
		AnchorAt: anchor, NextDue: anchor, Recurrence: models.RecurrenceMonthly,
	})
	n := &fakeNotifier{}
	clk := &fakeClock{now: anchor.Add(5 * time.Minute)}
	s := newTestScheduler(store, n, clk, time.Hour)

	require.NoError(t, s.pass(context.Background()))
	require.Equal(t, time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC), store.get(1).NextDue)

	clk.Set(time.Date(2024, 1, 31, 9, 5, 0, 0, time.UTC))
	require.NoError(t, s.pass(context.Background()))

	assert.Equal(t, []int64{1, 1}, n.deliveries())
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), store.get(1).NextDue)
}

func TestStartNotifyAndShutdown(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	store := newFakeStore(&models.Reminder{
		ReminderID: 1, UserID: 10, Body: "due", NextDue: now, Recurrence: models.RecurrenceWeekly,
	})
	n := &fakeNotifier{}
	s := newTestScheduler(store, n, &fakeClock{now: now}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	// The first pass runs immediately on start.
	require.Eventually(t, func() bool {
		return len(n.deliveries()) == 1
	}, time.Second, 5*time.Millisecond)

	// A Notify wakes the loop long before the hour-long poll interval.
	store.mu.Lock()
	store.reminders[2] = &models.Reminder{
		ReminderID: 2, UserID: 10, Body: "new", NextDue: now, Recurrence: models.RecurrenceWeekly,
	}
	store.mu.Unlock()
	s.Notify()
	require.Eventually(t, func() bool {
		return len(n.deliveries()) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}
}
