// Package telegram adapts the Telegram Bot API to the wizard: it turns
// updates into wizard events and renders wizard prompts as messages with
// inline keyboards.
package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/ledger-bot/internal/wizard"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the subset of *tgbotapi.BotAPI used to talk to Telegram.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Messenger implements wizard.Messenger on top of the Bot API.
type Messenger struct {
	api API
}

// NewMessenger creates a Messenger.
func NewMessenger(api API) *Messenger {
	return &Messenger{api: api}
}

// SendPrompt implements wizard.Messenger.
func (m *Messenger) SendPrompt(ctx context.Context, chatID int64, p wizard.Prompt) (wizard.MessageRef, error) {
	msg := tgbotapi.NewMessage(chatID, p.Text)
	if len(p.Rows) > 0 {
		msg.ReplyMarkup = Keyboard(p)
	}

	sent, err := m.api.Send(msg)
	if err != nil {
		return wizard.MessageRef{}, fmt.Errorf("SendPrompt: send: %w", err)
	}
	ref := wizard.MessageRef{ChatID: chatID, MessageID: sent.MessageID}
	if sent.Chat != nil {
		ref.ChatID = sent.Chat.ID
	}
	return ref, nil
}

// EditPrompt implements wizard.Messenger. A prompt without rows removes
// the keyboard. Edits that change nothing are not errors.
func (m *Messenger) EditPrompt(ctx context.Context, ref wizard.MessageRef, p wizard.Prompt) error {
	var edit tgbotapi.Chattable
	if len(p.Rows) > 0 {
		edit = tgbotapi.NewEditMessageTextAndMarkup(ref.ChatID, ref.MessageID, p.Text, Keyboard(p))
	} else {
		edit = tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, p.Text)
	}

	if _, err := m.api.Send(edit); err != nil && !isNotModified(err) {
		return fmt.Errorf("EditPrompt: send: %w", err)
	}
	return nil
}

// Reply implements wizard.Messenger. replyTo 0 sends a plain message.
func (m *Messenger) Reply(ctx context.Context, chatID int64, replyTo int, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	if _, err := m.api.Send(msg); err != nil {
		return fmt.Errorf("Reply: send: %w", err)
	}
	return nil
}

// AnswerClick implements wizard.Messenger.
func (m *Messenger) AnswerClick(ctx context.Context, clickID, text string) error {
	if clickID == "" {
		return nil
	}
	if _, err := m.api.Request(tgbotapi.NewCallback(clickID, text)); err != nil {
		return fmt.Errorf("AnswerClick: request: %w", err)
	}
	return nil
}

// Keyboard renders the prompt's rows as an inline keyboard. Payloads are
// encoded actions, which stay well under Telegram's 64-byte limit.
func Keyboard(p wizard.Prompt) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(p.Rows))
	for _, row := range p.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, choice := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(choice.Label, choice.Action.Encode()))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}

var _ wizard.Messenger = (*Messenger)(nil)
