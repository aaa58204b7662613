package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dvloznov/ledger-bot/internal/catalog"
	"github.com/dvloznov/ledger-bot/internal/jobs"
	"github.com/dvloznov/ledger-bot/internal/wizard"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeAPI struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendErr  error
	nextID   int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID, Chat: &tgbotapi.Chat{ID: 77}}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type fakePublisher struct {
	published []*jobs.EventJob
	err       error
}

func (f *fakePublisher) PublishEvent(ctx context.Context, job *jobs.EventJob) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, job)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func menuPrompt() wizard.Prompt {
	return wizard.Prompt{
		Text: "Current Transaction:",
		Rows: [][]wizard.Choice{
			{{Label: "Memo: ''", Action: wizard.Action{Kind: wizard.ActionField, Field: wizard.FieldMemo}}},
			{
				{Label: "Done", Action: wizard.Action{Kind: wizard.ActionDone}},
				{Label: "Cancel", Action: wizard.Action{Kind: wizard.ActionCancel}},
			},
		},
	}
}

func TestMessenger_SendPrompt(t *testing.T) {
	api := &fakeAPI{}
	m := NewMessenger(api)

	ref, err := m.SendPrompt(context.Background(), 77, menuPrompt())
	if err != nil {
		t.Fatalf("SendPrompt() error: %v", err)
	}
	if ref.ChatID != 77 || ref.MessageID != 1 {
		t.Errorf("ref = %+v", ref)
	}

	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("sent %T, want MessageConfig", api.sent[0])
	}
	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("ReplyMarkup = %T, want inline keyboard", msg.ReplyMarkup)
	}
	if len(kb.InlineKeyboard) != 2 || len(kb.InlineKeyboard[1]) != 2 {
		t.Fatalf("keyboard = %+v", kb.InlineKeyboard)
	}
	if data := *kb.InlineKeyboard[0][0].CallbackData; data != "f:memo" {
		t.Errorf("callback data = %q, want f:memo", data)
	}
}

func TestMessenger_EditPrompt(t *testing.T) {
	api := &fakeAPI{}
	m := NewMessenger(api)
	ref := wizard.MessageRef{ChatID: 77, MessageID: 5}

	if err := m.EditPrompt(context.Background(), ref, menuPrompt()); err != nil {
		t.Fatalf("EditPrompt() error: %v", err)
	}
	edit, ok := api.sent[0].(tgbotapi.EditMessageTextConfig)
	if !ok {
		t.Fatalf("sent %T, want EditMessageTextConfig", api.sent[0])
	}
	if edit.MessageID != 5 || edit.ReplyMarkup == nil {
		t.Errorf("edit = %+v, want message 5 with keyboard", edit)
	}

	if err := m.EditPrompt(context.Background(), ref, wizard.TextPrompt("Transaction cancelled.")); err != nil {
		t.Fatalf("EditPrompt() error: %v", err)
	}
	if edit := api.sent[1].(tgbotapi.EditMessageTextConfig); edit.ReplyMarkup != nil {
		t.Error("Expected text-only edit to drop the keyboard")
	}
}

func TestMessenger_EditPromptIgnoresNotModified(t *testing.T) {
	api := &fakeAPI{sendErr: errors.New("Bad Request: message is not modified")}
	m := NewMessenger(api)

	if err := m.EditPrompt(context.Background(), wizard.MessageRef{ChatID: 1, MessageID: 2}, menuPrompt()); err != nil {
		t.Errorf("EditPrompt() error = %v, want nil", err)
	}

	api.sendErr = errors.New("Bad Request: chat not found")
	if err := m.EditPrompt(context.Background(), wizard.MessageRef{ChatID: 1, MessageID: 2}, menuPrompt()); err == nil {
		t.Error("Expected other errors to be returned")
	}
}

func TestMessenger_AnswerClick(t *testing.T) {
	api := &fakeAPI{}
	m := NewMessenger(api)

	if err := m.AnswerClick(context.Background(), "cb-1", "That option is no longer available."); err != nil {
		t.Fatalf("AnswerClick() error: %v", err)
	}
	cb, ok := api.requests[0].(tgbotapi.CallbackConfig)
	if !ok || cb.CallbackQueryID != "cb-1" {
		t.Errorf("request = %+v", api.requests[0])
	}
}

func TestKeyboard_LongCatalogNames(t *testing.T) {
	long := "🏦 BDO Unibank Savings – Joint Household Account (PHP) 💳"
	r := wizard.Renderer{Catalogs: catalog.Catalogs{
		Accounts: catalog.NewAccounts([]string{"Cash", long, strings.Repeat("Very long account name ", 10)}),
	}}

	kb := Keyboard(r.Render(&wizard.Session{Step: wizard.StepAwaitingAccount}))

	var labels []string
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			if data := *b.CallbackData; len(data) > 64 {
				t.Errorf("callback data for %q is %d bytes", b.Text, len(data))
			}
			labels = append(labels, b.Text)
		}
	}
	if !containsLabel(labels, long) {
		t.Errorf("labels = %q, want %q among them", labels, long)
	}

	// The payload still resolves to the account it was rendered for.
	a, err := wizard.ParseAction(*kb.InlineKeyboard[0][1].CallbackData)
	if err != nil {
		t.Fatalf("ParseAction() error: %v", err)
	}
	if got, _ := r.Catalogs.Accounts.At(a.Index); got != kb.InlineKeyboard[0][1].Text {
		t.Errorf("account at %d = %q, want %q", a.Index, got, kb.InlineKeyboard[0][1].Text)
	}
}

func containsLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}

func TestToEvent(t *testing.T) {
	user := &tgbotapi.User{ID: 42}
	chat := &tgbotapi.Chat{ID: 42}

	tests := []struct {
		name   string
		update tgbotapi.Update
		want   wizard.Event
		ok     bool
	}{
		{
			name: "command",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				MessageID: 3, From: user, Chat: chat, Text: "/Start",
				Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
			}},
			want: wizard.Event{Kind: wizard.EventCommand, UserID: 42, ChatID: 42, MessageID: 3, Command: "start", Text: "/Start"},
			ok:   true,
		},
		{
			name:   "text",
			update: tgbotapi.Update{Message: &tgbotapi.Message{MessageID: 4, From: user, Chat: chat, Text: "12.50"}},
			want:   wizard.Event{Kind: wizard.EventText, UserID: 42, ChatID: 42, MessageID: 4, Text: "12.50"},
			ok:     true,
		},
		{
			name: "click",
			update: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
				ID: "cb", From: user, Data: "done",
				Message: &tgbotapi.Message{MessageID: 9, Chat: chat},
			}},
			want: wizard.Event{Kind: wizard.EventClick, UserID: 42, ChatID: 42, MessageID: 9, ClickID: "cb", Action: wizard.Action{Kind: wizard.ActionDone}},
			ok:   true,
		},
		{
			name: "click with old payload",
			update: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
				ID: "cb", From: user, Data: "group_sel;Living",
				Message: &tgbotapi.Message{MessageID: 9, Chat: chat},
			}},
			want: wizard.Event{Kind: wizard.EventClick, UserID: 42, ChatID: 42, MessageID: 9, ClickID: "cb"},
			ok:   true,
		},
		{
			name:   "photo without text",
			update: tgbotapi.Update{Message: &tgbotapi.Message{MessageID: 5, From: user, Chat: chat}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToEvent(tt.update)
			if ok != tt.ok {
				t.Fatalf("ToEvent() ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ToEvent() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAllowlist(t *testing.T) {
	open := NewAllowlist(false, nil)
	if !open.Allowed(1) {
		t.Error("Expected unrestricted allowlist to allow everyone")
	}

	closed := NewAllowlist(true, []int64{7})
	if !closed.Allowed(7) || closed.Allowed(8) {
		t.Error("Expected only user 7 to be allowed")
	}
}

func TestSource_Dispatch(t *testing.T) {
	pub := &fakePublisher{}
	src := NewSource(&fakeAPI{}, pub, NewAllowlist(true, []int64{42}))
	ctx := context.Background()

	allowed := tgbotapi.Update{UpdateID: 100, Message: &tgbotapi.Message{
		MessageID: 1, From: &tgbotapi.User{ID: 42}, Chat: &tgbotapi.Chat{ID: 42}, Text: "hello",
	}}
	blocked := tgbotapi.Update{UpdateID: 101, Message: &tgbotapi.Message{
		MessageID: 1, From: &tgbotapi.User{ID: 13}, Chat: &tgbotapi.Chat{ID: 13}, Text: "hello",
	}}

	for _, u := range []tgbotapi.Update{allowed, blocked} {
		if err := src.Dispatch(ctx, u); err != nil {
			t.Fatalf("Dispatch() error: %v", err)
		}
	}

	if len(pub.published) != 1 {
		t.Fatalf("published %d jobs, want 1", len(pub.published))
	}
	if job := pub.published[0]; job.UpdateID != 100 || job.UserID != 42 || job.Event.Text != "hello" {
		t.Errorf("job = %+v", job)
	}
}

func TestSource_DispatchPropagatesPublishError(t *testing.T) {
	pub := &fakePublisher{err: jobs.ErrDuplicateUpdate}
	src := NewSource(&fakeAPI{}, pub, NewAllowlist(false, nil))

	u := tgbotapi.Update{UpdateID: 1, Message: &tgbotapi.Message{From: &tgbotapi.User{ID: 1}, Chat: &tgbotapi.Chat{ID: 1}, Text: "x"}}
	if err := src.Dispatch(context.Background(), u); !errors.Is(err, jobs.ErrDuplicateUpdate) {
		t.Errorf("Dispatch() error = %v, want ErrDuplicateUpdate", err)
	}
}

func TestSource_RegisterWebhook(t *testing.T) {
	api := &fakeAPI{}
	src := NewSource(api, &fakePublisher{}, NewAllowlist(false, nil))

	if err := src.RegisterWebhook(context.Background(), "https://bot.example.com/s3cret/"); err != nil {
		t.Fatalf("RegisterWebhook() error: %v", err)
	}
	wh, ok := api.requests[0].(tgbotapi.WebhookConfig)
	if !ok {
		t.Fatalf("request = %T, want WebhookConfig", api.requests[0])
	}
	if wh.URL.Path != "/s3cret/" || !wh.DropPendingUpdates {
		t.Errorf("webhook = %+v", wh)
	}
	if got := redact("https://bot.example.com/s3cret/"); got != "https://bot.example.com/***/" {
		t.Errorf("redact() = %q", got)
	}
}
