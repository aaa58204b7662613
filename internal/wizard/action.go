package wizard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// ErrUnknownAction is returned by ParseAction for payloads it cannot decode.
var ErrUnknownAction = errors.New("unknown action payload")

// ActionKind discriminates the button actions a prompt can carry.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionField
	ActionDone
	ActionCancel
	// ActionBack returns to the review menu without changing the draft.
	ActionBack
	ActionGroup
	ActionCategory
	// ActionGroups returns from a category list to the group list.
	ActionGroups
	ActionAccount
	ActionAccountPage
	ActionCalendarMonth
	ActionCalendarDay
	ActionIgnore
	ActionQuickSave
	ActionEdit
	ActionSharedCategory
	ActionSharedSubcategory
	ActionSharedBack
)

// Action is the typed payload of a button press. Only the fields relevant to
// Kind are set. Catalog picks carry the position of the entry in its
// catalog, so payloads stay short whatever the names are.
type Action struct {
	Kind  ActionKind
	Field Field
	Index int
	Date  civil.Date
	Page  int
}

const monthLayout = "2006-01"

// Encode renders the action as a compact callback payload.
func (a Action) Encode() string {
	switch a.Kind {
	case ActionField:
		return "f:" + lower(a.Field.String())
	case ActionDone:
		return "done"
	case ActionCancel:
		return "cancel"
	case ActionBack:
		return "back"
	case ActionGroup:
		return "g:" + strconv.Itoa(a.Index)
	case ActionCategory:
		return "c:" + strconv.Itoa(a.Index)
	case ActionGroups:
		return "groups"
	case ActionAccount:
		return "a:" + strconv.Itoa(a.Index)
	case ActionAccountPage:
		return "ap:" + strconv.Itoa(a.Page)
	case ActionCalendarMonth:
		return "cm:" + a.Date.In(time.UTC).Format(monthLayout)
	case ActionCalendarDay:
		return "cd:" + a.Date.String()
	case ActionIgnore:
		return "nop"
	case ActionQuickSave:
		return "qs"
	case ActionEdit:
		return "edit"
	case ActionSharedCategory:
		return "sc:" + strconv.Itoa(a.Index)
	case ActionSharedSubcategory:
		return "ss:" + strconv.Itoa(a.Index)
	case ActionSharedBack:
		return "sb"
	}
	return ""
}

// ParseAction decodes a callback payload produced by Encode.
func ParseAction(data string) (Action, error) {
	prefix, value, hasValue := strings.Cut(data, ":")
	if !hasValue {
		switch prefix {
		case "done":
			return Action{Kind: ActionDone}, nil
		case "cancel":
			return Action{Kind: ActionCancel}, nil
		case "back":
			return Action{Kind: ActionBack}, nil
		case "groups":
			return Action{Kind: ActionGroups}, nil
		case "nop":
			return Action{Kind: ActionIgnore}, nil
		case "qs":
			return Action{Kind: ActionQuickSave}, nil
		case "edit":
			return Action{Kind: ActionEdit}, nil
		case "sb":
			return Action{Kind: ActionSharedBack}, nil
		}
		return Action{}, fmt.Errorf("ParseAction: %q: %w", data, ErrUnknownAction)
	}

	switch prefix {
	case "f":
		f, ok := fieldByName(value)
		if !ok {
			return Action{}, fmt.Errorf("ParseAction: field %q: %w", value, ErrUnknownAction)
		}
		return Action{Kind: ActionField, Field: f}, nil
	case "g", "c", "a", "sc", "ss":
		i, err := strconv.Atoi(value)
		if err != nil || i < 0 {
			return Action{}, fmt.Errorf("ParseAction: index %q: %w", value, ErrUnknownAction)
		}
		return Action{Kind: indexKinds[prefix], Index: i}, nil
	case "ap":
		page, err := strconv.Atoi(value)
		if err != nil || page < 0 {
			return Action{}, fmt.Errorf("ParseAction: page %q: %w", value, ErrUnknownAction)
		}
		return Action{Kind: ActionAccountPage, Page: page}, nil
	case "cm":
		t, err := time.Parse(monthLayout, value)
		if err != nil {
			return Action{}, fmt.Errorf("ParseAction: month %q: %w", value, ErrUnknownAction)
		}
		return Action{Kind: ActionCalendarMonth, Date: civil.DateOf(t)}, nil
	case "cd":
		d, err := civil.ParseDate(value)
		if err != nil {
			return Action{}, fmt.Errorf("ParseAction: day %q: %w", value, ErrUnknownAction)
		}
		return Action{Kind: ActionCalendarDay, Date: d}, nil
	}
	return Action{}, fmt.Errorf("ParseAction: %q: %w", data, ErrUnknownAction)
}

var indexKinds = map[string]ActionKind{
	"g":  ActionGroup,
	"c":  ActionCategory,
	"a":  ActionAccount,
	"sc": ActionSharedCategory,
	"ss": ActionSharedSubcategory,
}

func lower(s string) string {
	return strings.ToLower(s)
}
