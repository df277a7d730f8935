package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/avoronin/remindbot/internal/database"
	"github.com/avoronin/remindbot/internal/models"
)

type ReminderRepository struct {
	db *database.DB
}

func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO reminders (user_id, body, anchor_at, next_due, recurrence)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING reminder_id, created_at`,
		reminder.UserID, reminder.Body, reminder.AnchorAt, reminder.NextDue, reminder.Recurrence,
	).Scan(&reminder.ReminderID, &reminder.CreatedAt)
}

func (r *ReminderRepository) GetByID(ctx context.Context, reminderID int64) (*models.Reminder, error) {
	reminder := &models.Reminder{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT reminder_id, user_id, body, anchor_at, next_due, recurrence, created_at
		 FROM reminders WHERE reminder_id = $1`,
		reminderID,
	).Scan(&reminder.ReminderID, &reminder.UserID, &reminder.Body,
		&reminder.AnchorAt, &reminder.NextDue, &reminder.Recurrence, &reminder.CreatedAt)
	if err != nil {
		return nil, err
	}
	return reminder, nil
}

func (r *ReminderRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT reminder_id, user_id, body, anchor_at, next_due, recurrence, created_at
		 FROM reminders WHERE user_id = $1 ORDER BY next_due ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

// ListDue returns every reminder whose next_due has passed, across all users.
func (r *ReminderRepository) ListDue(ctx context.Context, until time.Time) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT reminder_id, user_id, body, anchor_at, next_due, recurrence, created_at
		 FROM reminders WHERE next_due <= $1 ORDER BY next_due ASC`,
		until,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

func (r *ReminderRepository) UpdateNextDue(ctx context.Context, reminderID int64, nextDue time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET next_due = $1 WHERE reminder_id = $2`,
		nextDue, reminderID,
	)
	return err
}

func (r *ReminderRepository) Delete(ctx context.Context, reminderID int64, userID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM reminders WHERE reminder_id = $1 AND user_id = $2`,
		reminderID, userID,
	)
	return err
}

// DeleteExpired removes a one-shot reminder after its grace window. The
// next_due guard makes the delete a no-op when a snooze or acknowledge
// moved the reminder between delivery and expiry, so the user action wins.
func (r *ReminderRepository) DeleteExpired(ctx context.Context, reminderID int64, due time.Time) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM reminders
		 WHERE reminder_id = $1 AND recurrence = 'once' AND next_due = $2`,
		reminderID, due,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanReminders(rows pgx.Rows) ([]*models.Reminder, error) {
	var reminders []*models.Reminder
	for rows.Next() {
		reminder := &models.Reminder{}
		if err := rows.Scan(&reminder.ReminderID, &reminder.UserID, &reminder.Body,
			&reminder.AnchorAt, &reminder.NextDue, &reminder.Recurrence, &reminder.CreatedAt); err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}
