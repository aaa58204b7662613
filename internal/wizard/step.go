package wizard

// Step is the position of a session in the conversation.
type Step int

const (
	StepIdle Step = iota
	StepAwaitingDate
	StepAwaitingOutflow
	StepAwaitingInflow
	StepAwaitingCategoryGroup
	StepAwaitingCategory
	StepAwaitingAccount
	StepAwaitingMemo
	StepReviewMenu
	StepQuickReview
	// StepCommitted is terminal; a committed session is removed right away.
	StepCommitted
	StepAwaitingSharedCategory
	StepAwaitingSharedSubcategory
)

var stepNames = map[Step]string{
	StepIdle:                      "idle",
	StepAwaitingDate:              "awaiting_date",
	StepAwaitingOutflow:           "awaiting_outflow",
	StepAwaitingInflow:            "awaiting_inflow",
	StepAwaitingCategoryGroup:     "awaiting_category_group",
	StepAwaitingCategory:          "awaiting_category",
	StepAwaitingAccount:           "awaiting_account",
	StepAwaitingMemo:              "awaiting_memo",
	StepReviewMenu:                "review_menu",
	StepQuickReview:               "quick_review",
	StepCommitted:                 "committed",
	StepAwaitingSharedCategory:    "awaiting_shared_category",
	StepAwaitingSharedSubcategory: "awaiting_shared_subcategory",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// Field is an editable draft field shown in the review menu.
type Field int

const (
	FieldDate Field = iota + 1
	FieldOutflow
	FieldInflow
	FieldCategory
	FieldAccount
	FieldMemo
)

// Fields lists the review menu fields in display order.
var Fields = []Field{FieldDate, FieldOutflow, FieldInflow, FieldCategory, FieldAccount, FieldMemo}

var fieldNames = map[Field]string{
	FieldDate:     "Date",
	FieldOutflow:  "Outflow",
	FieldInflow:   "Inflow",
	FieldCategory: "Category",
	FieldAccount:  "Account",
	FieldMemo:     "Memo",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return ""
}

// fieldByName resolves a lower-case field name as used in callback payloads.
func fieldByName(name string) (Field, bool) {
	for f, n := range fieldNames {
		if lower(n) == name {
			return f, true
		}
	}
	return 0, false
}

// step returns the step that edits f.
func (f Field) step() Step {
	switch f {
	case FieldDate:
		return StepAwaitingDate
	case FieldOutflow:
		return StepAwaitingOutflow
	case FieldInflow:
		return StepAwaitingInflow
	case FieldCategory:
		return StepAwaitingCategoryGroup
	case FieldAccount:
		return StepAwaitingAccount
	case FieldMemo:
		return StepAwaitingMemo
	}
	return StepReviewMenu
}
