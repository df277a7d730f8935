package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/avoronin/remindbot/internal/models"
	"github.com/avoronin/remindbot/internal/recurrence"
)

// Action is a decoded reminder-control callback payload.
type Action interface {
	isAction()
}

type SnoozeAction struct {
	Tag        recurrence.SnoozeTag
	ReminderID int64
}

type AckAction struct {
	ReminderID int64
}

type DeleteAction struct {
	ReminderID int64
}

func (SnoozeAction) isAction() {}
func (AckAction) isAction()    {}
func (DeleteAction) isAction() {}

const timeLayout = "02.01.2006 15:04"

// ParseAction decodes "snooze:<tag>:<id>", "ack:<id>" or "del:<id>".
func ParseAction(data string) (Action, error) {
	parts := strings.Split(data, ":")
	switch parts[0] {
	case "snooze":
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed snooze payload %q", data)
		}
		tag := recurrence.SnoozeTag(parts[1])
		if !recurrence.ValidSnoozeTag(tag) {
			return nil, fmt.Errorf("unknown snooze tag %q", parts[1])
		}
		id, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad reminder id in %q: %w", data, err)
		}
		return SnoozeAction{Tag: tag, ReminderID: id}, nil
	case "ack", "del":
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed %s payload %q", parts[0], data)
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad reminder id in %q: %w", data, err)
		}
		if parts[0] == "ack" {
			return AckAction{ReminderID: id}, nil
		}
		return DeleteAction{ReminderID: id}, nil
	}
	return nil, fmt.Errorf("unrecognized callback payload %q", data)
}

func (h *Handlers) handleSnooze(ctx context.Context, callback *tgbotapi.CallbackQuery, a SnoozeAction) {
	reminder, ok := h.lookup(ctx, callback, a.ReminderID)
	if !ok {
		return
	}

	next, err := recurrence.Resolve(a.Tag, h.clock.Now())
	if err != nil {
		log.Warn().Err(err).Msg("dropping snooze with unknown tag")
		return
	}

	// Cancel the grace-window expiry first so it cannot fire between the
	// due-time update and the confirmation.
	h.sched.CancelExpiry(a.ReminderID)

	if err := h.repos.Reminder.UpdateNextDue(ctx, a.ReminderID, next); err != nil {
		log.Error().Err(err).Int64("reminder_id", a.ReminderID).Msg("failed to snooze reminder")
		h.alert(callback.ID, "Something went wrong, try again")
		return
	}

	h.edit(callback.Message.Chat.ID, callback.Message.MessageID,
		fmt.Sprintf("💤 %s\nSnoozed until %s", reminder.Body, next.Format(timeLayout)))
}

func (h *Handlers) handleAck(ctx context.Context, callback *tgbotapi.CallbackQuery, a AckAction) {
	reminder, ok := h.lookup(ctx, callback, a.ReminderID)
	if !ok {
		return
	}

	// The acknowledge supersedes any pending grace-window deletion.
	h.sched.CancelExpiry(a.ReminderID)

	if reminder.Recurrence == models.RecurrenceOnce {
		if err := h.repos.Reminder.Delete(ctx, reminder.ReminderID, reminder.UserID); err != nil {
			log.Error().Err(err).Int64("reminder_id", a.ReminderID).Msg("failed to delete acknowledged reminder")
			h.alert(callback.ID, "Something went wrong, try again")
			return
		}
		h.edit(callback.Message.Chat.ID, callback.Message.MessageID, "✅ "+reminder.Body+"\nDone")
		return
	}

	// Advance from the last recorded due time, not from the wall clock.
	next := recurrence.Next(reminder.Recurrence, reminder.NextDue)
	if err := h.repos.Reminder.UpdateNextDue(ctx, reminder.ReminderID, next); err != nil {
		log.Error().Err(err).Int64("reminder_id", a.ReminderID).Msg("failed to advance acknowledged reminder")
		h.alert(callback.ID, "Something went wrong, try again")
		return
	}
	h.edit(callback.Message.Chat.ID, callback.Message.MessageID,
		fmt.Sprintf("✅ %s\nNext time: %s", reminder.Body, next.Format(timeLayout)))
}

func (h *Handlers) handleDeleteAction(ctx context.Context, callback *tgbotapi.CallbackQuery, a DeleteAction) {
	reminder, ok := h.lookup(ctx, callback, a.ReminderID)
	if !ok {
		return
	}

	h.sched.CancelExpiry(a.ReminderID)

	if err := h.repos.Reminder.Delete(ctx, reminder.ReminderID, reminder.UserID); err != nil {
		log.Error().Err(err).Int64("reminder_id", a.ReminderID).Msg("failed to delete reminder")
		h.alert(callback.ID, "Something went wrong, try again")
		return
	}
	h.edit(callback.Message.Chat.ID, callback.Message.MessageID, "🗑 Deleted: "+reminder.Body)
}

// lookup fetches the reminder a control refers to. A missing row is
// benign: the reminder was acknowledged, deleted or expired concurrently
// and the user just gets told so.
func (h *Handlers) lookup(ctx context.Context, callback *tgbotapi.CallbackQuery, reminderID int64) (*models.Reminder, bool) {
	reminder, err := h.repos.Reminder.GetByID(ctx, reminderID)
	if errors.Is(err, pgx.ErrNoRows) {
		h.alert(callback.ID, "This reminder no longer exists")
		return nil, false
	}
	if err != nil {
		log.Error().Err(err).Int64("reminder_id", reminderID).Msg("failed to load reminder")
		h.alert(callback.ID, "Something went wrong, try again")
		return nil, false
	}
	return reminder, true
}

func (h *Handlers) alert(callbackID, text string) {
	if err := h.msg.Alert(callbackID, text); err != nil {
		log.Warn().Err(err).Msg("failed to answer callback with alert")
	}
}
