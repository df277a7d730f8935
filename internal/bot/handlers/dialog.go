package handlers

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/avoronin/remindbot/internal/models"
)

// The /new dialog walks a user through text → recurrence → date/time.
// Draft state lives in memory per user; an unfinished draft is simply
// replaced by the next /new or dropped by /cancel.

type draftStage int

const (
	stageBody draftStage = iota
	stageRecurrence
	stageWhen
)

type draft struct {
	Stage      draftStage
	Body       string
	Recurrence models.Recurrence
}

const draftRecurrencePrefix = "recur:"

func (h *Handlers) handleNew(ctx context.Context, msg *tgbotapi.Message) {
	h.draftsMu.Lock()
	h.drafts[msg.From.ID] = &draft{Stage: stageBody}
	h.draftsMu.Unlock()

	h.send(msg.Chat.ID, "What should I remind you about?")
}

func (h *Handlers) handleCancel(ctx context.Context, msg *tgbotapi.Message) {
	h.draftsMu.Lock()
	_, existed := h.drafts[msg.From.ID]
	delete(h.drafts, msg.From.ID)
	h.draftsMu.Unlock()

	if existed {
		h.send(msg.Chat.ID, "Creation cancelled")
	} else {
		h.send(msg.Chat.ID, "Nothing to cancel")
	}
}

// continueDialog consumes a plain-text message for an in-progress draft.
// Returns false when the user has no draft, so the caller can fall back
// to the default reply.
func (h *Handlers) continueDialog(ctx context.Context, msg *tgbotapi.Message) bool {
	h.draftsMu.Lock()
	d, ok := h.drafts[msg.From.ID]
	h.draftsMu.Unlock()
	if !ok {
		return false
	}

	switch d.Stage {
	case stageBody:
		d.Body = strings.TrimSpace(msg.Text)
		if d.Body == "" {
			h.send(msg.Chat.ID, "The reminder text can't be empty, try again")
			return true
		}
		d.Stage = stageRecurrence
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Once", draftRecurrencePrefix+string(models.RecurrenceOnce)),
				tgbotapi.NewInlineKeyboardButtonData("Weekly", draftRecurrencePrefix+string(models.RecurrenceWeekly)),
				tgbotapi.NewInlineKeyboardButtonData("Monthly", draftRecurrencePrefix+string(models.RecurrenceMonthly)),
			),
		)
		if err := h.msg.SendWithMarkup(msg.Chat.ID, "How often should it repeat?", markup); err != nil {
			h.send(msg.Chat.ID, "Something went wrong, try /new again")
		}
	case stageRecurrence:
		h.send(msg.Chat.ID, "Pick a repeat option with the buttons above")
	case stageWhen:
		h.finishDraft(ctx, msg, d)
	}
	return true
}

func (h *Handlers) handleDraftRecurrence(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	userID := callback.From.ID

	h.draftsMu.Lock()
	d, ok := h.drafts[userID]
	h.draftsMu.Unlock()
	if !ok || d.Stage != stageRecurrence {
		h.edit(callback.Message.Chat.ID, callback.Message.MessageID, "This dialog has expired, start over with /new")
		return
	}

	kind := models.Recurrence(strings.TrimPrefix(callback.Data, draftRecurrencePrefix))
	if !kind.Valid() {
		h.edit(callback.Message.Chat.ID, callback.Message.MessageID, "Unknown repeat option, start over with /new")
		return
	}

	d.Recurrence = kind
	d.Stage = stageWhen
	h.edit(callback.Message.Chat.ID, callback.Message.MessageID,
		"When? Send the date and time as DD.MM.YYYY HH:MM")
}

func (h *Handlers) finishDraft(ctx context.Context, msg *tgbotapi.Message, d *draft) {
	now := h.clock.Now()
	when, err := time.ParseInLocation(timeLayout, strings.TrimSpace(msg.Text), now.Location())
	if err != nil {
		h.send(msg.Chat.ID, "Wrong format, I need DD.MM.YYYY HH:MM (for example 31.12.2026 09:00)")
		return
	}
	if !when.After(now) {
		h.send(msg.Chat.ID, "That time is already in the past, send another one")
		return
	}

	reminder := &models.Reminder{
		UserID:     msg.From.ID,
		Body:       d.Body,
		AnchorAt:   when,
		NextDue:    when,
		Recurrence: d.Recurrence,
	}
	if err := h.repos.Reminder.Create(ctx, reminder); err != nil {
		h.send(msg.Chat.ID, "Failed to save the reminder, try again later")
		return
	}

	h.draftsMu.Lock()
	delete(h.drafts, msg.From.ID)
	h.draftsMu.Unlock()

	h.sched.Notify()
	h.send(msg.Chat.ID, "⏰ Reminder #"+itoa(reminder.ReminderID)+" set for "+when.Format(timeLayout)+
		" ("+string(d.Recurrence)+")")
}
