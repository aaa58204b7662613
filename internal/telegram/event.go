package telegram

import (
	"strings"

	"github.com/dvloznov/ledger-bot/internal/wizard"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ToEvent converts an update into a wizard event. Updates the wizard has no
// use for report false.
func ToEvent(u tgbotapi.Update) (wizard.Event, bool) {
	if cq := u.CallbackQuery; cq != nil {
		if cq.From == nil {
			return wizard.Event{}, false
		}
		ev := wizard.Event{
			Kind:    wizard.EventClick,
			UserID:  cq.From.ID,
			ChatID:  cq.From.ID,
			ClickID: cq.ID,
		}
		if cq.Message != nil {
			ev.MessageID = cq.Message.MessageID
			if cq.Message.Chat != nil {
				ev.ChatID = cq.Message.Chat.ID
			}
		}
		// Undecodable payloads stay ActionNone and are treated as stale.
		if action, err := wizard.ParseAction(cq.Data); err == nil {
			ev.Action = action
		}
		return ev, true
	}

	msg := u.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.Text == "" {
		return wizard.Event{}, false
	}
	ev := wizard.Event{
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      msg.Text,
	}
	if msg.IsCommand() {
		ev.Kind = wizard.EventCommand
		ev.Command = strings.ToLower(msg.Command())
	} else {
		ev.Kind = wizard.EventText
	}
	return ev, true
}

// UserOf returns the id of the user who sent the update, or 0.
func UserOf(u tgbotapi.Update) int64 {
	if user := u.SentFrom(); user != nil {
		return user.ID
	}
	return 0
}
