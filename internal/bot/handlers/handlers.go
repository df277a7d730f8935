package handlers

import (
	"context"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/avoronin/remindbot/internal/clock"
	"github.com/avoronin/remindbot/internal/models"
)

// Messenger is the slice of the Telegram transport the handlers use.
type Messenger interface {
	Send(chatID int64, text string) error
	SendWithMarkup(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) error
	Edit(chatID int64, messageID int, text string) error
	Answer(callbackID string) error
	Alert(callbackID string, text string) error
}

type ReminderStore interface {
	Create(ctx context.Context, reminder *models.Reminder) error
	GetByID(ctx context.Context, reminderID int64) (*models.Reminder, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.Reminder, error)
	UpdateNextDue(ctx context.Context, reminderID int64, nextDue time.Time) error
	Delete(ctx context.Context, reminderID int64, userID int64) error
}

type UserStore interface {
	GetOrCreate(ctx context.Context, userID int64, userName string) (*models.User, error)
}

// Scheduler is what the handlers need from the delivery loop: waking it
// after a creation and cancelling a pending grace-window expiry when the
// user acts on a delivered reminder.
type Scheduler interface {
	Notify()
	CancelExpiry(reminderID int64) bool
}

type Repositories struct {
	User     UserStore
	Reminder ReminderStore
}

type Handlers struct {
	msg   Messenger
	repos *Repositories
	sched Scheduler
	clock clock.Clock

	draftsMu sync.Mutex
	drafts   map[int64]*draft
}

func New(msg Messenger, repos *Repositories, sched Scheduler, clk clock.Clock) *Handlers {
	return &Handlers{
		msg:    msg,
		repos:  repos,
		sched:  sched,
		clock:  clk,
		drafts: make(map[int64]*draft),
	}
}

func (h *Handlers) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if _, err := h.repos.User.GetOrCreate(ctx, msg.From.ID, msg.From.UserName); err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to get/create user")
		return
	}

	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "help":
		h.handleHelp(ctx, msg)
	case "new":
		h.handleNew(ctx, msg)
	case "cancel":
		h.handleCancel(ctx, msg)
	case "remind":
		h.handleRemind(ctx, msg)
	case "list":
		h.handleList(ctx, msg)
	case "delete":
		h.handleDelete(ctx, msg)
	default:
		h.send(msg.Chat.ID, "Unknown command, see /help")
	}
}

// HandleMessage feeds plain text into the creation dialog if one is in
// progress for this user.
func (h *Handlers) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if _, err := h.repos.User.GetOrCreate(ctx, msg.From.ID, msg.From.UserName); err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to get/create user")
		return
	}

	if h.continueDialog(ctx, msg) {
		return
	}
	h.send(msg.Chat.ID, "Use /new to create a reminder or /help for commands")
}

// HandleCallbackQuery routes a button press. The payload is decoded once
// at this boundary; anything malformed is logged and dropped.
func (h *Handlers) HandleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if err := h.msg.Answer(callback.ID); err != nil {
		log.Warn().Err(err).Msg("failed to answer callback")
	}
	if callback.Message == nil {
		return
	}

	if strings.HasPrefix(callback.Data, draftRecurrencePrefix) {
		h.handleDraftRecurrence(ctx, callback)
		return
	}

	action, err := ParseAction(callback.Data)
	if err != nil {
		log.Warn().Err(err).Str("data", callback.Data).Msg("dropping malformed callback payload")
		return
	}

	switch a := action.(type) {
	case SnoozeAction:
		h.handleSnooze(ctx, callback, a)
	case AckAction:
		h.handleAck(ctx, callback, a)
	case DeleteAction:
		h.handleDeleteAction(ctx, callback, a)
	}
}

func (h *Handlers) send(chatID int64, text string) {
	if err := h.msg.Send(chatID, text); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}

func (h *Handlers) edit(chatID int64, messageID int, text string) {
	if err := h.msg.Edit(chatID, messageID, text); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to edit message")
	}
}

func (h *Handlers) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	text := "👋 Hi " + msg.From.FirstName + `!

I'm a reminder bot. I'll ping you when it's time, and you can snooze or
acknowledge right from the message.

/new — create a reminder step by step
/remind <HH:MM> <text> — quick same-day reminder
/list — your reminders

See /help for everything else.`
	h.send(msg.Chat.ID, text)
}

func (h *Handlers) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	text := `Commands:

/new — create a reminder (one-time, weekly or monthly)
/remind <HH:MM> <text> — one-time reminder today (or tomorrow if past)
/list — list your reminders
/delete <id> — delete a reminder
/cancel — abort the creation dialog

When a reminder fires you get buttons to snooze it (+1h, +3h, until
evening, tomorrow) or mark it done. Monthly repetition is a flat 30 days.`
	h.send(msg.Chat.ID, text)
}
