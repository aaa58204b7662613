package wizard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/ledger-bot/internal/catalog"
	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/dvloznov/ledger-bot/internal/logger"
	"github.com/rs/zerolog"
)

// fakeMessenger keeps the latest prompt of every message it sent.
type fakeMessenger struct {
	mu      sync.Mutex
	nextID  int
	prompts map[int]Prompt
	replies []string
	answers []string
	editErr error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{prompts: make(map[int]Prompt)}
}

func (f *fakeMessenger) SendPrompt(ctx context.Context, chatID int64, p Prompt) (MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.prompts[f.nextID] = p
	return MessageRef{ChatID: chatID, MessageID: f.nextID}, nil
}

func (f *fakeMessenger) EditPrompt(ctx context.Context, ref MessageRef, p Prompt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.prompts[ref.MessageID] = p
	return nil
}

func (f *fakeMessenger) Reply(ctx context.Context, chatID int64, replyTo int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, text)
	return nil
}

func (f *fakeMessenger) AnswerClick(ctx context.Context, clickID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeMessenger) prompt(id int) Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[id]
}

func (f *fakeMessenger) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextID
}

func (f *fakeMessenger) lastReply() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return ""
	}
	return f.replies[len(f.replies)-1]
}

func (f *fakeMessenger) lastAnswer() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.answers) == 0 {
		return ""
	}
	return f.answers[len(f.answers)-1]
}

type fakeLedger struct {
	mu      sync.Mutex
	records []domain.Record
	err     error
}

func (f *fakeLedger) FetchCategories(ctx context.Context) (catalog.Categories, error) {
	return testCatalogs().Categories, nil
}

func (f *fakeLedger) FetchAccounts(ctx context.Context) (catalog.Accounts, error) {
	return testCatalogs().Accounts, nil
}

func (f *fakeLedger) AppendRecord(ctx context.Context, rec domain.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeLedger) saved() []domain.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Record(nil), f.records...)
}

type fakeSharing struct {
	expenses []domain.SharedExpense
	err      error
}

func (f *fakeSharing) FetchCategories(ctx context.Context) (catalog.SharedCategories, error) {
	return testCatalogs().Shared, nil
}

func (f *fakeSharing) CreateSharedExpense(ctx context.Context, exp domain.SharedExpense) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.expenses = append(f.expenses, exp)
	return 555, nil
}

type fakeSink struct {
	commits []domain.Commit
}

func (f *fakeSink) RecordCommitted(ctx context.Context, c domain.Commit) error {
	f.commits = append(f.commits, c)
	return nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testCatalogs() catalog.Catalogs {
	return catalog.Catalogs{
		Categories: catalog.NewCategories(
			[]catalog.Group{
				{Name: "Living", Categories: []string{"Rent", "Groceries"}},
				{Name: "Fun", Categories: []string{"Movies"}},
			},
			[]string{"Rent", "Groceries", "Movies", "Tips"},
		),
		Accounts: catalog.NewAccounts([]string{"Cash", "Bank"}, []string{"Visa"}),
		Shared: catalog.NewSharedCategories([]catalog.SharedCategory{
			{ID: 1, Name: "Food and drink", Subcategories: []catalog.SharedCategory{{ID: 13, Name: "Dining out"}}},
		}),
	}
}

type harness struct {
	m         *Machine
	messenger *fakeMessenger
	ledger    *fakeLedger
	sharing   *fakeSharing
	sink      *fakeSink
	clock     *clock
}

func newHarness(t *testing.T, withSharing bool) *harness {
	t.Helper()
	h := &harness{
		messenger: newFakeMessenger(),
		ledger:    &fakeLedger{},
		sink:      &fakeSink{},
		clock:     &clock{now: time.Date(2024, time.March, 7, 10, 0, 0, 0, time.UTC)},
	}
	cfg := Config{
		Ledger:    h.ledger,
		Messenger: h.messenger,
		Sink:      h.sink,
		Catalogs:  testCatalogs(),
		Now:       h.clock.Now,
		Share:     ShareConfig{PayerID: 7, PayeeID: 8, GroupID: 9, Currency: "PHP"},
	}
	if withSharing {
		h.sharing = &fakeSharing{}
		cfg.Sharing = h.sharing
	}
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	h.m = m
	return h
}

func testContext() context.Context {
	return logger.WithContext(context.Background(), zerolog.Nop())
}

func (h *harness) handle(t *testing.T, ev Event) {
	t.Helper()
	if err := h.m.Handle(testContext(), ev); err != nil {
		t.Fatalf("Handle(%+v) error: %v", ev, err)
	}
}

func (h *harness) session(t *testing.T, userID int64) *Session {
	t.Helper()
	s, err := h.m.cfg.Registry.Get(testContext(), userID)
	if err != nil {
		t.Fatalf("Get(%d) error: %v", userID, err)
	}
	return s
}

func (h *harness) hasSession(userID int64) bool {
	_, err := h.m.cfg.Registry.Get(testContext(), userID)
	return err == nil
}

// click presses a button on the user's current anchor.
func (h *harness) click(t *testing.T, userID int64, a Action) {
	t.Helper()
	s := h.session(t, userID)
	h.handle(t, Event{Kind: EventClick, UserID: userID, ChatID: userID, MessageID: s.Anchor.MessageID, ClickID: "cb", Action: a})
}

func command(userID int64, name string) Event {
	return Event{Kind: EventCommand, UserID: userID, ChatID: userID, MessageID: 900, Command: name, Text: "/" + name}
}

func text(userID int64, s string) Event {
	return Event{Kind: EventText, UserID: userID, ChatID: userID, MessageID: 901, Text: s}
}

func fieldAction(f Field) Action {
	return Action{Kind: ActionField, Field: f}
}
