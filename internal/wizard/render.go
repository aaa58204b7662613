package wizard

import (
	"fmt"
	"strings"

	"github.com/dvloznov/ledger-bot/internal/catalog"
	"github.com/dvloznov/ledger-bot/internal/domain"
)

const (
	// blankValue is shown for fields that are not set.
	blankValue = "''"

	defaultAccountPageSize = 10
)

// Prompt texts shared by the machine and the renderer.
const (
	textReview         = "Current Transaction:"
	textSelectGroup    = "Select Group:"
	textSelectCategory = "Select Category:"
	textSelectAccount  = "Select Account:"
	textSelectDate     = "Select Date:"
	textSelectSub      = "Select Subcategory:"
	textSaved          = "✅ Transaction Saved"
	textSharedSaved    = "✅ Shared Expense Saved"
	textCancelled      = "Transaction cancelled."
	textExpired        = "Transaction expired."
)

// Renderer turns a session into the prompt for its current step.
// It has no side effects.
type Renderer struct {
	Currency        string
	DateLayout      string
	Catalogs        catalog.Catalogs
	AccountPageSize int
}

// Render returns the prompt for the session's step.
func (r Renderer) Render(s *Session) Prompt {
	switch s.Step {
	case StepReviewMenu:
		return r.reviewMenu(s.Draft)
	case StepAwaitingOutflow:
		return r.textField(s.Draft, FieldOutflow)
	case StepAwaitingInflow:
		return r.textField(s.Draft, FieldInflow)
	case StepAwaitingMemo:
		return r.textField(s.Draft, FieldMemo)
	case StepAwaitingDate:
		return r.datePicker(s)
	case StepAwaitingCategoryGroup:
		return r.groupPicker()
	case StepAwaitingCategory:
		return r.categoryPicker(s.CategoryGroup)
	case StepAwaitingAccount:
		return r.accountPicker(s.AccountPage)
	case StepQuickReview:
		return r.quickReview(s.Draft)
	case StepAwaitingSharedCategory:
		return r.sharedPicker(s.Draft)
	case StepAwaitingSharedSubcategory:
		return r.sharedSubPicker(s.SharedCategory)
	}
	return Prompt{}
}

// FieldValue renders the current value of f, or "" when unset.
func (r Renderer) FieldValue(d domain.Draft, f Field) string {
	switch f {
	case FieldDate:
		return domain.FormatDate(d.Date, r.DateLayout)
	case FieldOutflow:
		if d.Outflow.Valid {
			return r.Currency + " " + d.Outflow.Decimal.String()
		}
	case FieldInflow:
		if d.Inflow.Valid {
			return r.Currency + " " + d.Inflow.Decimal.String()
		}
	case FieldCategory:
		return d.Category
	case FieldAccount:
		return d.Account
	case FieldMemo:
		return d.Memo
	}
	return ""
}

// FieldLabel renders the review menu label of f, e.g. "Outflow: ₱ 12.5".
func (r Renderer) FieldLabel(d domain.Draft, f Field) string {
	return f.String() + ": " + orBlank(r.FieldValue(d, f))
}

// Summary lists every field on its own line.
func (r Renderer) Summary(d domain.Draft) string {
	lines := make([]string, 0, len(Fields))
	for _, f := range Fields {
		lines = append(lines, r.FieldLabel(d, f))
	}
	return strings.Join(lines, "\n")
}

func (r Renderer) reviewMenu(d domain.Draft) Prompt {
	rows := make([][]Choice, 0, len(Fields)+1)
	for _, f := range Fields {
		rows = append(rows, []Choice{{Label: r.FieldLabel(d, f), Action: Action{Kind: ActionField, Field: f}}})
	}
	rows = append(rows, []Choice{
		{Label: "Done", Action: Action{Kind: ActionDone}},
		{Label: "Cancel", Action: Action{Kind: ActionCancel}},
	})
	return Prompt{Text: textReview, Rows: rows}
}

func (r Renderer) textField(d domain.Draft, f Field) Prompt {
	return Prompt{
		Text: fmt.Sprintf("[Current Value: %s]\nEnter %s:", orBlank(r.FieldValue(d, f)), f),
		Rows: [][]Choice{{{Label: "💾 Save", Action: Action{Kind: ActionBack}}}},
	}
}

func (r Renderer) datePicker(s *Session) Prompt {
	month := s.CalendarMonth
	if month.IsZero() {
		month = s.Draft.Date
	}
	rows := calendarRows(month)
	rows = append(rows, backRow())
	return Prompt{
		Text: fmt.Sprintf("[Current Value: %s]\n%s", orBlank(r.FieldValue(s.Draft, FieldDate)), textSelectDate),
		Rows: rows,
	}
}

func (r Renderer) groupPicker() Prompt {
	names := r.Catalogs.Categories.GroupNames()
	choices := make([]Choice, 0, len(names))
	for i, name := range names {
		choices = append(choices, Choice{Label: name, Action: Action{Kind: ActionGroup, Index: i}})
	}
	rows := append(grid(choices, 2), backRow())
	return Prompt{Text: textSelectGroup, Rows: rows}
}

func (r Renderer) categoryPicker(group string) Prompt {
	g, _ := r.Catalogs.Categories.Group(group)
	choices := make([]Choice, 0, len(g.Categories))
	for i, name := range g.Categories {
		choices = append(choices, Choice{Label: name, Action: Action{Kind: ActionCategory, Index: i}})
	}
	rows := append(grid(choices, 2), []Choice{{Label: "« Back", Action: Action{Kind: ActionGroups}}})
	return Prompt{Text: textSelectCategory, Rows: rows}
}

func (r Renderer) accountPicker(page int) Prompt {
	size := r.pageSize()
	accounts := r.Catalogs.Accounts
	choices := make([]Choice, 0, size)
	for i, name := range accounts.Page(page, size) {
		choices = append(choices, Choice{Label: name, Action: Action{Kind: ActionAccount, Index: page*size + i}})
	}
	rows := grid(choices, 2)

	var nav []Choice
	if page > 0 {
		nav = append(nav, Choice{Label: "« Prev", Action: Action{Kind: ActionAccountPage, Page: page - 1}})
	}
	if page < accounts.Pages(size)-1 {
		nav = append(nav, Choice{Label: "Next »", Action: Action{Kind: ActionAccountPage, Page: page + 1}})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, backRow())
	return Prompt{Text: textSelectAccount, Rows: rows}
}

func (r Renderer) quickReview(d domain.Draft) Prompt {
	return Prompt{
		Text: "[Received Data]\n" + r.Summary(d),
		Rows: [][]Choice{
			{
				{Label: "💾 Save", Action: Action{Kind: ActionQuickSave}},
				{Label: "✏️ Edit", Action: Action{Kind: ActionEdit}},
			},
			{{Label: "Cancel", Action: Action{Kind: ActionCancel}}},
		},
	}
}

func (r Renderer) sharedPicker(d domain.Draft) Prompt {
	names := r.Catalogs.Shared.Names()
	choices := make([]Choice, 0, len(names))
	for i, name := range names {
		choices = append(choices, Choice{Label: name, Action: Action{Kind: ActionSharedCategory, Index: i}})
	}
	rows := append(grid(choices, 2), []Choice{{Label: "Cancel", Action: Action{Kind: ActionCancel}}})
	return Prompt{
		Text: fmt.Sprintf("Split %s\nMemo: %s\n%s", orBlank(r.FieldValue(d, FieldOutflow)), orBlank(d.Memo), textSelectCategory),
		Rows: rows,
	}
}

func (r Renderer) sharedSubPicker(parent string) Prompt {
	cat, _ := r.Catalogs.Shared.Find(parent)
	choices := make([]Choice, 0, len(cat.Subcategories))
	for i, sub := range cat.Subcategories {
		choices = append(choices, Choice{Label: sub.Name, Action: Action{Kind: ActionSharedSubcategory, Index: i}})
	}
	rows := append(grid(choices, 3), []Choice{{Label: "« Back", Action: Action{Kind: ActionSharedBack}}})
	return Prompt{Text: parent + "\n" + textSelectSub, Rows: rows}
}

func (r Renderer) pageSize() int {
	if r.AccountPageSize > 0 {
		return r.AccountPageSize
	}
	return defaultAccountPageSize
}

func backRow() []Choice {
	return []Choice{{Label: "« Back", Action: Action{Kind: ActionBack}}}
}

// grid lays choices out perRow to a row.
func grid(choices []Choice, perRow int) [][]Choice {
	rows := make([][]Choice, 0, (len(choices)+perRow-1)/perRow+1)
	for start := 0; start < len(choices); start += perRow {
		end := start + perRow
		if end > len(choices) {
			end = len(choices)
		}
		rows = append(rows, choices[start:end])
	}
	return rows
}

func orBlank(s string) string {
	if s == "" {
		return blankValue
	}
	return s
}
