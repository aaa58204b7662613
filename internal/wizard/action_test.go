package wizard

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func TestAction_EncodeParse(t *testing.T) {
	tests := []Action{
		{Kind: ActionField, Field: FieldOutflow},
		{Kind: ActionDone},
		{Kind: ActionGroup, Index: 3},
		{Kind: ActionCategory, Index: 0},
		{Kind: ActionAccount, Index: 12},
		{Kind: ActionAccountPage, Page: 2},
		{Kind: ActionCalendarMonth, Date: civil.Date{Year: 2024, Month: time.November, Day: 1}},
		{Kind: ActionCalendarDay, Date: civil.Date{Year: 2024, Month: time.February, Day: 29}},
		{Kind: ActionSharedSubcategory, Index: 1},
	}

	for _, want := range tests {
		data := want.Encode()
		got, err := ParseAction(data)
		if err != nil {
			t.Errorf("ParseAction(%q) error: %v", data, err)
			continue
		}
		if got != want {
			t.Errorf("ParseAction(%q) = %+v, want %+v", data, got, want)
		}
	}
}

func TestParseAction_Unknown(t *testing.T) {
	for _, data := range []string{"", "zz", "f:nope", "ap:x", "ap:-1", "cd:2024-13-01", "cm:march", "group_sel;Living", "a:Visa", "c:-1", "ss:"} {
		if _, err := ParseAction(data); !errors.Is(err, ErrUnknownAction) {
			t.Errorf("ParseAction(%q) error = %v, want ErrUnknownAction", data, err)
		}
	}
}
