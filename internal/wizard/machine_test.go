package wizard

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ledger-bot/internal/catalog"
	"github.com/dvloznov/ledger-bot/internal/domain"
)

var today = civil.Date{Year: 2024, Month: time.March, Day: 7}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Config{Messenger: newFakeMessenger()}); err == nil {
		t.Error("Expected error without ledger")
	}
	if _, err := New(Config{Ledger: &fakeLedger{}}); err == nil {
		t.Error("Expected error without messenger")
	}
}

func TestStart_OpensReviewMenu(t *testing.T) {
	h := newHarness(t, false)

	h.handle(t, command(1, "start"))

	s := h.session(t, 1)
	if s.Step != StepReviewMenu {
		t.Errorf("Step = %v, want review_menu", s.Step)
	}
	if s.Draft.Date != today {
		t.Errorf("Draft.Date = %v, want %v", s.Draft.Date, today)
	}
	p := h.messenger.prompt(s.Anchor.MessageID)
	if p.Text != textReview {
		t.Errorf("anchor text = %q, want %q", p.Text, textReview)
	}
	if got := p.Rows[1][0].Label; got != "Outflow: ''" {
		t.Errorf("outflow label = %q", got)
	}
}

func TestStart_CancelsPreviousSession(t *testing.T) {
	h := newHarness(t, false)

	h.handle(t, command(1, "s"))
	first := h.session(t, 1)
	h.handle(t, text(1, "ignored in review menu"))
	h.handle(t, command(1, "start"))

	second := h.session(t, 1)
	if second.ID == first.ID {
		t.Fatal("Expected a new session")
	}
	if got := h.messenger.prompt(first.Anchor.MessageID).Text; got != textCancelled {
		t.Errorf("old anchor text = %q, want %q", got, textCancelled)
	}
}

// An entered value is shown again when the field is re-selected.
func TestFieldRoundTrip(t *testing.T) {
	h := newHarness(t, false)
	h.handle(t, command(1, "start"))

	h.click(t, 1, fieldAction(FieldOutflow))
	if s := h.session(t, 1); s.Step != StepAwaitingOutflow {
		t.Fatalf("Step = %v, want awaiting_outflow", s.Step)
	}
	h.handle(t, text(1, "12.50"))

	s := h.session(t, 1)
	if s.Step != StepReviewMenu {
		t.Fatalf("Step = %v, want review_menu", s.Step)
	}
	if got := h.messenger.prompt(s.Anchor.MessageID).Rows[1][0].Label; got != "Outflow: ₱ 12.5" {
		t.Errorf("outflow label = %q", got)
	}

	h.click(t, 1, fieldAction(FieldOutflow))
	want := "[Current Value: ₱ 12.5]\nEnter Outflow:"
	if got := h.messenger.prompt(s.Anchor.MessageID).Text; got != want {
		t.Errorf("prompt = %q, want %q", got, want)
	}
	if h.messenger.sentCount() != 1 {
		t.Errorf("sent %d messages, want 1 anchor edited in place", h.messenger.sentCount())
	}
}

func TestAmountText_RejectsNonNumber(t *testing.T) {
	h := newHarness(t, false)
	h.handle(t, command(1, "start"))
	h.click(t, 1, fieldAction(FieldInflow))

	h.handle(t, text(1, "lots"))

	if got := h.messenger.lastReply(); got != "Please enter a number" {
		t.Errorf("reply = %q", got)
	}
	s := h.session(t, 1)
	if s.Step != StepAwaitingInflow {
		t.Errorf("Step = %v, want awaiting_inflow", s.Step)
	}
	if s.Draft.Inflow.Valid {
		t.Error("Expected inflow to stay empty")
	}
}

func TestSaveButtonReturnsToMenu(t *testing.T) {
	h := newHarness(t, false)
	h.handle(t, command(1, "start"))
	h.click(t, 1, fieldAction(FieldMemo))

	h.click(t, 1, Action{Kind: ActionBack})

	if s := h.session(t, 1); s.Step != StepReviewMenu {
		t.Errorf("Step = %v, want review_menu", s.Step)
	}
}

// A committed draft leaves no session behind.
func TestCommit_ResetsSession(t *testing.T) {
	h := newHarness(t, false)
	h.handle(t, command(1, "start"))
	h.click(t, 1, fieldAction(FieldOutflow))
	h.handle(t, text(1, "100"))
	h.click(t, 1, fieldAction(FieldMemo))
	h.handle(t, text(1, "  groceries  "))
	anchor := h.session(t, 1).Anchor

	h.click(t, 1, Action{Kind: ActionDone})

	records := h.ledger.saved()
	if len(records) != 1 {
		t.Fatalf("saved %d records, want 1", len(records))
	}
	want := domain.Record{Date: "03/07/2024", Outflow: "100", Memo: "groceries"}
	if records[0] != want {
		t.Errorf("record = %+v, want %+v", records[0], want)
	}
	if h.hasSession(1) {
		t.Error("Expected session to be cleared after commit")
	}
	if got := h.messenger.prompt(anchor.MessageID).Text; !strings.HasPrefix(got, textSaved) {
		t.Errorf("anchor text = %q", got)
	}
	if len(h.sink.commits) != 1 || h.sink.commits[0].Kind != domain.CommitLedger {
		t.Errorf("sink commits = %+v", h.sink.commits)
	}

	h.handle(t, command(1, "start"))
	d := h.session(t, 1).Draft
	if d.Outflow.Valid || d.Memo != "" || d.Date != today {
		t.Errorf("fresh draft = %+v, want only today's date", d)
	}
}

// Both amounts can't be committed together.
func TestCommit_RejectsBothAmounts(t *testing.T) {
	h := newHarness(t, false)
	h.handle(t, command(1, "start"))
	h.click(t, 1, fieldAction(FieldOutflow))
	h.handle(t, text(1, "10"))
	h.click(t, 1, fieldAction(FieldInflow))
	h.handle(t, text(1, "5"))

	h.click(t, 1, Action{Kind: ActionDone})

	if len(h.ledger.saved()) != 0 {
		t.Error("Expected nothing to be saved")
	}
	if got := h.messenger.lastReply(); !strings.Contains(got, "not both") {
		t.Errorf("reply = %q", got)
	}
	if s := h.session(t, 1); s.Step != StepReviewMenu {
		t.Errorf("Step = %v, want review_menu", s.Step)
	}
}

func TestCommit_RejectsMissingAmount(t *testing.T) {
	h := newHarness(t, false)
	h.handle(t, command(1, "start"))

	h.click(t, 1, Action{Kind: ActionDone})

	if !h.hasSession(1) {
		t.Fatal("Expected session to survive a rejected commit")
	}
	if got := h.messenger.lastReply(); !strings.HasPrefix(got, "Cannot save") {
		t.Errorf("reply = %q", got)
	}
}

func TestCommit_GatewayFailureKeepsDraft(t *testing.T) {
	h := newHarness(t, false)
	h.handle(t, command(1, "start"))
	h.click(t, 1, fieldAction(FieldOutflow))
	h.handle(t, text(1, "42"))
	h.ledger.err = errors.New("sheets unavailable")

	h.click(t, 1, Action{Kind: ActionDone})

	if got := h.messenger.lastReply(); got != textSaveFailed {
		t.Errorf("reply = %q, want %q", got, textSaveFailed)
	}
	s := h.session(t, 1)
	if !s.Draft.Outflow.Valid || s.Draft.Outflow.Decimal.String() != "42" {
		t.Errorf("draft outflow = %+v, want 42", s.Draft.Outflow)
	}

	h.ledger.err = nil
	h.click(t, 1, Action{Kind: ActionDone})
	if len(h.ledger.saved()) != 1 {
		t.Error("Expected retry to save the record")
	}
}

// Cancelling clears every field.
func TestCancel_ClearsDraft(t *testing.T) {
	tests := []struct {
		name   string
		cancel func(t *testing.T, h *harness)
	}{
		{"command", func(t *testing.T, h *harness) { h.handle(t, command(1, "cancel")) }},
		{"short command", func(t *testing.T, h *harness) { h.handle(t, command(1, "q")) }},
		{"button", func(t *testing.T, h *harness) { h.click(t, 1, Action{Kind: ActionCancel}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, false)
			h.handle(t, command(1, "start"))
			h.click(t, 1, fieldAction(FieldMemo))
			h.handle(t, text(1, "taxi"))
			h.click(t, 1, fieldAction(FieldCategory))
			anchor := h.session(t, 1).Anchor

			tt.cancel(t, h)

			if h.hasSession(1) {
				t.Fatal("Expected no session after cancel")
			}
			if got := h.messenger.prompt(anchor.MessageID).Text; got != textCancelled {
				t.Errorf("anchor text = %q", got)
			}

			h.handle(t, command(1, "start"))
			if d := h.session(t, 1).Draft; d.Memo != "" {
				t.Errorf("memo = %q after restart, want empty", d.Memo)
			}
		})
	}
}

// Repeated cancels are harmless and never touch other users.
func TestCancel_Idempotent(t *testing.T) {
	h := newHarness(t, false)
	h.handle(t, command(2, "start"))
	h.click(t, 2, fieldAction(FieldMemo))
	h.handle(t, text(2, "rent"))

	h.handle(t, command(1, "cancel"))
	h.handle(t, command(1, "cancel"))

	if got := h.messenger.lastReply(); got != "No active transaction." {
		t.Errorf("reply = %q", got)
	}
	if s := h.session(t, 2); s.Draft.Memo != "rent" || s.Step != StepReviewMenu {
		t.Errorf("other user's session changed: %+v", s)
	}
}

// Sessions of different users never share a draft.
func TestDraftIsolation(t *testing.T) {
	h := newHarness(t, false)
	h.handle(t, command(1, "start"))
	h.handle(t, command(2, "start"))

	h.click(t, 1, fieldAction(FieldOutflow))
	h.handle(t, text(1, "5"))

	if d := h.session(t, 2).Draft; d.Outflow.Valid {
		t.Errorf("user 2 outflow = %v, want empty", d.Outflow)
	}
}

func TestDraftIsolation_Concurrent(t *testing.T) {
	h := newHarness(t, false)
	const users = 20

	var wg sync.WaitGroup
	errs := make(chan error, users)
	for i := int64(1); i <= users; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			ctx := testContext()
			if err := h.m.Handle(ctx, command(userID, "start")); err != nil {
				errs <- err
				return
			}
			s, err := h.m.cfg.Registry.Get(ctx, userID)
			if err != nil {
				errs <- err
				return
			}
			steps := []Event{
				{Kind: EventClick, UserID: userID, ChatID: userID, MessageID: s.Anchor.MessageID, Action: fieldAction(FieldMemo)},
				text(userID, fmt.Sprintf("memo-%d", userID)),
			}
			for _, ev := range steps {
				if err := h.m.Handle(ctx, ev); err != nil {
					errs <- err
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Handle() error: %v", err)
	}

	for i := int64(1); i <= users; i++ {
		if got, want := h.session(t, i).Draft.Memo, fmt.Sprintf("memo-%d", i); got != want {
			t.Errorf("user %d memo = %q, want %q", i, got, want)
		}
	}
}

func TestStaleClicks(t *testing.T) {
	h := newHarness(t, false)
	h.handle(t, command(1, "start"))
	s := h.session(t, 1)

	// Keyboard of a message that is not the anchor.
	h.handle(t, Event{Kind: EventClick, UserID: 1, ChatID: 1, MessageID: s.Anchor.MessageID + 10, ClickID: "x", Action: fieldAction(FieldMemo)})
	if got := h.messenger.lastAnswer(); got != string(errStale) {
		t.Errorf("answer = %q, want stale notice", got)
	}
	if got := h.session(t, 1).Step; got != StepReviewMenu {
		t.Errorf("Step = %v, want review_menu", got)
	}

	// Category index past the end of the group.
	h.click(t, 1, fieldAction(FieldCategory))
	h.click(t, 1, Action{Kind: ActionGroup, Index: 0})
	h.click(t, 1, Action{Kind: ActionCategory, Index: 5})
	s = h.session(t, 1)
	if s.Draft.Category != "" || s.Step != StepAwaitingCategory {
		t.Errorf("stale category changed session: step=%v category=%q", s.Step, s.Draft.Category)
	}

	// Click without any session.
	h.handle(t, Event{Kind: EventClick, UserID: 3, ChatID: 3, MessageID: 1, ClickID: "y", Action: Action{Kind: ActionDone}})
	if got := h.messenger.lastAnswer(); got != string(errStale) {
		t.Errorf("answer = %q, want stale notice", got)
	}
}

func TestEditFailureKeepsVisibleStep(t *testing.T) {
	h := newHarness(t, false)
	h.handle(t, command(1, "start"))
	anchor := h.session(t, 1).Anchor

	h.messenger.editErr = errors.New("network down")
	ev := Event{Kind: EventClick, UserID: 1, ChatID: 1, MessageID: anchor.MessageID, ClickID: "cb", Action: fieldAction(FieldAccount)}
	if err := h.m.Handle(testContext(), ev); err == nil {
		t.Fatal("Handle() error = nil, want edit failure")
	}
	if got := h.session(t, 1).Step; got != StepReviewMenu {
		t.Fatalf("Step = %v, want review_menu", got)
	}

	// The review menu is still on screen, so its buttons keep working.
	h.messenger.editErr = nil
	h.click(t, 1, fieldAction(FieldMemo))
	if got := h.messenger.lastAnswer(); got == string(errStale) {
		t.Errorf("answer = %q, want the click accepted", got)
	}
	if got := h.session(t, 1).Step; got != StepAwaitingMemo {
		t.Errorf("Step = %v, want awaiting_memo", got)
	}
}

func TestCategoryPicker(t *testing.T) {
	h := newHarness(t, false)
	h.handle(t, command(1, "start"))
	h.click(t, 1, fieldAction(FieldCategory))
	if s := h.session(t, 1); s.Step != StepAwaitingCategoryGroup {
		t.Fatalf("Step = %v", s.Step)
	}

	h.click(t, 1, Action{Kind: ActionGroup, Index: 1})
	h.click(t, 1, Action{Kind: ActionGroups})
	if s := h.session(t, 1); s.Step != StepAwaitingCategoryGroup {
		t.Fatalf("Step after back = %v", s.Step)
	}

	h.click(t, 1, Action{Kind: ActionGroup, Index: 2})
	h.click(t, 1, Action{Kind: ActionCategory, Index: 0})

	s := h.session(t, 1)
	if s.Draft.Category != "Tips" || s.Step != StepReviewMenu {
		t.Errorf("session = step %v category %q", s.Step, s.Draft.Category)
	}
}

func TestAccountPicker(t *testing.T) {
	h := newHarness(t, false)
	h.handle(t, command(1, "start"))
	h.click(t, 1, fieldAction(FieldAccount))

	h.click(t, 1, Action{Kind: ActionAccountPage, Page: 1})
	if got := h.messenger.lastAnswer(); got != string(errStale) {
		t.Errorf("answer = %q, want stale notice for missing page", got)
	}

	h.click(t, 1, Action{Kind: ActionAccount, Index: 2})
	if s := h.session(t, 1); s.Draft.Account != "Visa" || s.Step != StepReviewMenu {
		t.Errorf("session = step %v account %q", s.Step, s.Draft.Account)
	}
}

func TestAccountPicker_LongNames(t *testing.T) {
	long := "🏦 BDO Unibank Savings – Joint Household Account (PHP) 💳"
	h := newHarness(t, false)
	cfg := h.m.cfg
	cfg.Catalogs.Accounts = catalog.NewAccounts([]string{"Cash", long})
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	h.m = m
	h.handle(t, command(1, "start"))
	h.click(t, 1, fieldAction(FieldAccount))

	p := h.m.Renderer().Render(h.session(t, 1))
	var pick Action
	for _, row := range p.Rows {
		for _, c := range row {
			if c.Label == long {
				pick = c.Action
			}
		}
	}
	if pick.Kind != ActionAccount {
		t.Fatalf("no button for %q in %+v", long, p.Rows)
	}
	if data := pick.Encode(); len(data) > 64 {
		t.Errorf("payload %q is %d bytes", data, len(data))
	}

	h.click(t, 1, pick)
	if s := h.session(t, 1); s.Draft.Account != long || s.Step != StepReviewMenu {
		t.Errorf("session = step %v account %q", s.Step, s.Draft.Account)
	}
}

func TestDatePicker(t *testing.T) {
	h := newHarness(t, false)
	h.handle(t, command(1, "start"))
	h.click(t, 1, fieldAction(FieldDate))

	s := h.session(t, 1)
	if want := (civil.Date{Year: 2024, Month: time.March, Day: 1}); s.CalendarMonth != want {
		t.Errorf("CalendarMonth = %v, want %v", s.CalendarMonth, want)
	}

	h.click(t, 1, Action{Kind: ActionCalendarMonth, Date: civil.Date{Year: 2024, Month: time.February, Day: 1}})
	h.click(t, 1, Action{Kind: ActionIgnore})
	if s := h.session(t, 1); s.CalendarMonth.Month != time.February || s.Step != StepAwaitingDate {
		t.Fatalf("session = step %v month %v", s.Step, s.CalendarMonth)
	}

	picked := civil.Date{Year: 2024, Month: time.February, Day: 14}
	h.click(t, 1, Action{Kind: ActionCalendarDay, Date: picked})
	if s := h.session(t, 1); s.Draft.Date != picked || s.Step != StepReviewMenu {
		t.Errorf("session = step %v date %v", s.Step, s.Draft.Date)
	}
}

// Quick-add fills amount, memo and today's date.
func TestQuickAdd_Expense(t *testing.T) {
	h := newHarness(t, false)

	h.handle(t, text(1, `AddExp 123.45 "coffee with client"`))

	s := h.session(t, 1)
	if s.Step != StepQuickReview {
		t.Fatalf("Step = %v, want quick_review", s.Step)
	}
	if s.Draft.Outflow.Decimal.String() != "123.45" || s.Draft.Memo != "coffee with client" || s.Draft.Date != today {
		t.Errorf("draft = %+v", s.Draft)
	}

	h.click(t, 1, Action{Kind: ActionQuickSave})
	records := h.ledger.saved()
	if len(records) != 1 || records[0].Outflow != "123.45" || records[0].Memo != "coffee with client" {
		t.Errorf("records = %+v", records)
	}
	if h.hasSession(1) {
		t.Error("Expected session to be cleared")
	}
}

func TestQuickAdd_EditGoesToMenu(t *testing.T) {
	h := newHarness(t, false)
	h.handle(t, text(1, `addinc 5000 salary`))

	h.click(t, 1, Action{Kind: ActionEdit})

	s := h.session(t, 1)
	if s.Step != StepReviewMenu || s.Draft.Inflow.Decimal.String() != "5000" {
		t.Errorf("session = step %v draft %+v", s.Step, s.Draft)
	}
}

func TestQuickAdd_WrongArgumentCount(t *testing.T) {
	h := newHarness(t, false)
	h.handle(t, command(1, "start"))
	anchor := h.session(t, 1).Anchor

	h.handle(t, text(1, "AddExp 123.45"))

	if got, want := h.messenger.lastReply(), `Expected 2 parameters, received 1: ["123.45"]`; got != want {
		t.Errorf("reply = %q, want %q", got, want)
	}
	if h.hasSession(1) {
		t.Error("Expected no session after a malformed quick-add")
	}
	if got := h.messenger.prompt(anchor.MessageID).Text; got != textCancelled {
		t.Errorf("previous anchor = %q, want cancelled", got)
	}
}

func TestQuickAdd_Split(t *testing.T) {
	h := newHarness(t, true)

	h.handle(t, text(1, `AddSplit 300 "team dinner"`))
	if s := h.session(t, 1); s.Step != StepAwaitingSharedCategory || !s.Shared {
		t.Fatalf("session = %+v", s)
	}

	h.click(t, 1, Action{Kind: ActionSharedCategory, Index: 0})
	h.click(t, 1, Action{Kind: ActionSharedBack})
	h.click(t, 1, Action{Kind: ActionSharedCategory, Index: 0})
	h.click(t, 1, Action{Kind: ActionSharedSubcategory, Index: 0})

	if len(h.sharing.expenses) != 1 {
		t.Fatalf("created %d expenses, want 1", len(h.sharing.expenses))
	}
	exp := h.sharing.expenses[0]
	if exp.PayerID != 7 || exp.PayeeID != 8 || exp.GroupID != 9 || exp.CategoryID != 13 {
		t.Errorf("expense parties = %+v", exp)
	}
	if exp.Amount.String() != "300" || exp.Memo != "team dinner" || exp.Currency != "PHP" {
		t.Errorf("expense = %+v", exp)
	}
	if h.hasSession(1) {
		t.Error("Expected session to be cleared")
	}
	if len(h.sink.commits) != 1 || h.sink.commits[0].ExternalID != "555" {
		t.Errorf("sink commits = %+v", h.sink.commits)
	}
}

func TestQuickAdd_SplitFailureKeepsSession(t *testing.T) {
	h := newHarness(t, true)
	h.sharing.err = errors.New("splitwise down")

	h.handle(t, text(1, `AddSplit 300 dinner`))
	h.click(t, 1, Action{Kind: ActionSharedCategory, Index: 0})
	h.click(t, 1, Action{Kind: ActionSharedSubcategory, Index: 0})

	if got := h.messenger.lastReply(); got != textSaveFailed {
		t.Errorf("reply = %q", got)
	}
	if s := h.session(t, 1); s.Step != StepAwaitingSharedSubcategory {
		t.Errorf("Step = %v, want awaiting_shared_subcategory", s.Step)
	}
}

func TestQuickAdd_SplitWithoutSharing(t *testing.T) {
	h := newHarness(t, false)

	h.handle(t, text(1, `AddSplit 300 dinner`))

	if got := h.messenger.lastReply(); got != "Shared expenses are not configured." {
		t.Errorf("reply = %q", got)
	}
	if h.hasSession(1) {
		t.Error("Expected no session")
	}
}

func TestExpireIdle(t *testing.T) {
	h := newHarness(t, false)
	h.handle(t, command(1, "start"))
	anchor := h.session(t, 1).Anchor

	h.clock.Advance(30 * time.Minute)
	h.handle(t, command(2, "start"))
	h.clock.Advance(45 * time.Minute)

	n, err := h.m.ExpireIdle(testContext(), time.Hour)
	if err != nil {
		t.Fatalf("ExpireIdle() error: %v", err)
	}
	if n != 1 {
		t.Errorf("expired %d sessions, want 1", n)
	}
	if h.hasSession(1) {
		t.Error("Expected user 1 session to expire")
	}
	if !h.hasSession(2) {
		t.Error("Expected user 2 session to survive")
	}
	if got := h.messenger.prompt(anchor.MessageID).Text; got != textExpired {
		t.Errorf("anchor text = %q", got)
	}
}
