package domain

import (
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount is returned when an amount cannot be parsed as a number.
	ErrInvalidAmount = errors.New("amount is not a number")

	// ErrNegativeAmount is returned for amounts below zero.
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrBothAmounts is returned when a draft carries both an outflow and an inflow.
	ErrBothAmounts = errors.New("a transaction is either an outflow or an inflow, not both")

	// ErrNoAmount is returned when a draft carries neither an outflow nor an inflow.
	ErrNoAmount = errors.New("enter an outflow or an inflow before saving")
)

// Draft is the transaction being assembled in one conversation.
// It is a plain value: copying a Draft never shares mutable state.
type Draft struct {
	Date     civil.Date          `json:"date"`
	Outflow  decimal.NullDecimal `json:"outflow"`
	Inflow   decimal.NullDecimal `json:"inflow"`
	Category string              `json:"category,omitempty"`
	Account  string              `json:"account,omitempty"`
	Memo     string              `json:"memo,omitempty"`
}

// NewDraft returns an empty draft dated today.
func NewDraft(today civil.Date) Draft {
	return Draft{Date: today}
}

// Reset clears every field, including the date.
func (d *Draft) Reset() {
	*d = Draft{}
}

// IsEmpty reports whether no field is set.
func (d Draft) IsEmpty() bool {
	return d == Draft{}
}

// SetOutflow stores a non-negative outflow.
func (d *Draft) SetOutflow(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	d.Outflow = decimal.NewNullDecimal(amount)
	return nil
}

// SetInflow stores a non-negative inflow.
func (d *Draft) SetInflow(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	d.Inflow = decimal.NewNullDecimal(amount)
	return nil
}

// Validate checks the draft can be committed to the ledger.
func (d Draft) Validate() error {
	if d.Outflow.Valid && d.Inflow.Valid {
		return ErrBothAmounts
	}
	if !d.Outflow.Valid && !d.Inflow.Valid {
		return ErrNoAmount
	}
	if (d.Outflow.Valid && d.Outflow.Decimal.IsNegative()) || (d.Inflow.Valid && d.Inflow.Decimal.IsNegative()) {
		return ErrNegativeAmount
	}
	return nil
}

// Record renders the draft as the ordered ledger tuple.
// Dates are formatted with layout (a Go time layout, e.g. "01/02/2006").
func (d Draft) Record(layout string) Record {
	return Record{
		Date:     FormatDate(d.Date, layout),
		Outflow:  formatAmount(d.Outflow),
		Inflow:   formatAmount(d.Inflow),
		Category: d.Category,
		Account:  d.Account,
		Memo:     d.Memo,
	}
}

// Record is a committed ledger row: (date, outflow, inflow, category, account, memo).
type Record struct {
	Date     string
	Outflow  string
	Inflow   string
	Category string
	Account  string
	Memo     string
}

// Values returns the row in column order.
func (r Record) Values() []interface{} {
	return []interface{}{r.Date, r.Outflow, r.Inflow, r.Category, r.Account, r.Memo}
}

// ParseAmount parses user input such as "1,250.50" into a non-negative decimal.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if amount.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return amount, nil
}

// Today returns the calendar date of now in loc.
func Today(now time.Time, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(now.In(loc))
}

// FormatDate formats d with a Go time layout. The zero date renders as "".
func FormatDate(d civil.Date, layout string) string {
	if d.IsZero() {
		return ""
	}
	return d.In(time.UTC).Format(layout)
}

func formatAmount(n decimal.NullDecimal) string {
	if !n.Valid {
		return ""
	}
	return n.Decimal.String()
}
