// Package notifier wraps the Telegram transport: delivering reminders
// with their inline controls, editing confirmations in place and
// answering callback queries.
package notifier

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/avoronin/remindbot/internal/models"
)

type Telegram struct {
	api *tgbotapi.BotAPI
}

func New(api *tgbotapi.BotAPI) *Telegram {
	return &Telegram{api: api}
}

// Deliver pushes a due reminder to its owner with the snooze and
// acknowledge controls. Every button encodes the reminder id so the
// callback handler can route the press back.
func (t *Telegram) Deliver(reminder *models.Reminder) error {
	msg := tgbotapi.NewMessage(reminder.UserID, "⏰ "+reminder.Body)
	msg.ReplyMarkup = controlKeyboard(reminder.ReminderID)
	_, err := t.api.Send(msg)
	return err
}

func controlKeyboard(reminderID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("+1h", fmt.Sprintf("snooze:1h:%d", reminderID)),
			tgbotapi.NewInlineKeyboardButtonData("+3h", fmt.Sprintf("snooze:3h:%d", reminderID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Evening", fmt.Sprintf("snooze:evening:%d", reminderID)),
			tgbotapi.NewInlineKeyboardButtonData("Tomorrow", fmt.Sprintf("snooze:tomorrow:%d", reminderID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Done", fmt.Sprintf("ack:%d", reminderID)),
		),
	)
}

func (t *Telegram) Send(chatID int64, text string) error {
	_, err := t.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (t *Telegram) SendWithMarkup(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	_, err := t.api.Send(msg)
	return err
}

// Edit rewrites a previously sent message in place, dropping its
// keyboard. Used to confirm snooze/acknowledge on the delivered message.
func (t *Telegram) Edit(chatID int64, messageID int, text string) error {
	_, err := t.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, text))
	return err
}

// Answer acknowledges a button press at the transport level, clearing
// the client's loading state.
func (t *Telegram) Answer(callbackID string) error {
	_, err := t.api.Request(tgbotapi.NewCallback(callbackID, ""))
	return err
}

// Alert answers a button press with a popup notice.
func (t *Telegram) Alert(callbackID string, text string) error {
	_, err := t.api.Request(tgbotapi.NewCallbackWithAlert(callbackID, text))
	return err
}
