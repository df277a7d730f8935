package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/avoronin/remindbot/internal/models"
)

// handleRemind is the one-line shortcut: /remind <HH:MM> <text> creates a
// one-time reminder for today, or tomorrow if the time already passed.
func (h *Handlers) handleRemind(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.TrimSpace(msg.CommandArguments())
	parts := strings.SplitN(args, " ", 2)
	if args == "" || len(parts) < 2 {
		h.send(msg.Chat.ID, "Usage: /remind <HH:MM> <text>\nFor example: /remind 15:30 call the plumber")
		return
	}

	when, err := h.parseTimeToday(parts[0])
	if err != nil {
		h.send(msg.Chat.ID, "Wrong time format, I need HH:MM (for example 15:30)")
		return
	}

	reminder := &models.Reminder{
		UserID:     msg.From.ID,
		Body:       parts[1],
		AnchorAt:   when,
		NextDue:    when,
		Recurrence: models.RecurrenceOnce,
	}
	if err := h.repos.Reminder.Create(ctx, reminder); err != nil {
		h.send(msg.Chat.ID, "Failed to save the reminder, try again later")
		return
	}

	h.sched.Notify()
	h.send(msg.Chat.ID, fmt.Sprintf("⏰ Reminder #%d set for %s", reminder.ReminderID, when.Format(timeLayout)))
}

func (h *Handlers) parseTimeToday(timeStr string) (time.Time, error) {
	now := h.clock.Now()
	t, err := time.Parse("15:04", timeStr)
	if err != nil {
		return time.Time{}, err
	}

	result := time.Date(now.Year(), now.Month(), now.Day(),
		t.Hour(), t.Minute(), 0, 0, now.Location())
	if result.Before(now) {
		result = result.AddDate(0, 0, 1)
	}
	return result, nil
}

func (h *Handlers) handleList(ctx context.Context, msg *tgbotapi.Message) {
	reminders, err := h.repos.Reminder.GetByUserID(ctx, msg.From.ID)
	if err != nil {
		h.send(msg.Chat.ID, "Failed to load your reminders, try again later")
		return
	}
	if len(reminders) == 0 {
		h.send(msg.Chat.ID, "You have no reminders. Create one with /new")
		return
	}

	var sb strings.Builder
	sb.WriteString("⏰ Your reminders:\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, r := range reminders {
		sb.WriteString(fmt.Sprintf("\n#%d: %s — %s (%s)",
			r.ReminderID, r.Body, r.NextDue.Format(timeLayout), r.Recurrence))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("🗑 #%d", r.ReminderID),
				fmt.Sprintf("del:%d", r.ReminderID),
			),
		))
	}

	if err := h.msg.SendWithMarkup(msg.Chat.ID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)); err != nil {
		h.send(msg.Chat.ID, sb.String())
	}
}

func (h *Handlers) handleDelete(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		h.send(msg.Chat.ID, "Usage: /delete <id> — the id is shown by /list")
		return
	}

	h.sched.CancelExpiry(id)
	if err := h.repos.Reminder.Delete(ctx, id, msg.From.ID); err != nil {
		h.send(msg.Chat.ID, "Failed to delete the reminder, try again later")
		return
	}
	h.send(msg.Chat.ID, fmt.Sprintf("🗑 Reminder #%d deleted", id))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
