package wizard

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/google/shlex"
	"github.com/shopspring/decimal"
)

// QuickKind is the kind of one-shot entry.
type QuickKind int

const (
	QuickNone QuickKind = iota
	QuickIncome
	QuickExpense
	QuickSplit
)

var quickAddPattern = regexp.MustCompile(`(?i)^add(inc|exp|split)\w*\b`)

// MatchQuickAdd reports which quick-add command text starts with.
func MatchQuickAdd(text string) QuickKind {
	m := quickAddPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return QuickNone
	}
	switch strings.ToLower(m[1]) {
	case "inc":
		return QuickIncome
	case "exp":
		return QuickExpense
	case "split":
		return QuickSplit
	}
	return QuickNone
}

// QuickAdd is a parsed one-shot command.
type QuickAdd struct {
	Kind   QuickKind
	Amount decimal.Decimal
	Memo   string
}

// ParseQuickAdd parses `AddExp 123.45 "coffee with client"`. Arguments are
// split shell style and exactly two are expected: amount and memo.
func ParseQuickAdd(text string) (QuickAdd, error) {
	kind := MatchQuickAdd(text)
	if kind == QuickNone {
		return QuickAdd{}, inputError("Unknown command.")
	}

	tokens, err := shlex.Split(text)
	if err != nil {
		return QuickAdd{}, inputError(fmt.Sprintf("Could not read the arguments: %v", err))
	}
	args := tokens[1:]
	if len(args) != 2 {
		return QuickAdd{}, inputError(fmt.Sprintf("Expected 2 parameters, received %d: %q", len(args), args))
	}

	amount, err := domain.ParseAmount(args[0])
	if err != nil {
		return QuickAdd{}, inputError("Please enter a number")
	}

	return QuickAdd{Kind: kind, Amount: amount, Memo: args[1]}, nil
}

// apply stores the parsed amount and memo on d.
func (q QuickAdd) apply(d *domain.Draft) error {
	var err error
	switch q.Kind {
	case QuickIncome:
		err = d.SetInflow(q.Amount)
	default:
		err = d.SetOutflow(q.Amount)
	}
	if errors.Is(err, domain.ErrNegativeAmount) {
		return inputError("Please enter a positive number")
	}
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	d.Memo = q.Memo
	return nil
}
