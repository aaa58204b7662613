// Package sheets implements the ledger gateway on a budgeting spreadsheet in
// Google Sheets: catalogs come from named ranges on the configuration sheet
// and committed records are written to the first blank transaction row.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/ledger-bot/internal/catalog"
	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/dvloznov/ledger-bot/internal/logger"
	"github.com/dvloznov/ledger-bot/internal/wizard"
)

// ErrLedgerFull is returned when the transaction date range has no blank row left.
var ErrLedgerFull = errors.New("no blank row left in the transactions range")

const (
	groupMarker     = "✦"
	separatorMarker = "◘"

	// skippedGroup excludes card payment groups from the category picker.
	skippedGroup = "Credit Card"

	// recordWidth is the number of columns of a ledger record.
	recordWidth = 6
)

// Ranges names the spreadsheet ranges the ledger reads and writes.
type Ranges struct {
	Configuration         string
	TransactionCategories string
	Accounts              string
	Cards                 string
	Dates                 string
}

// DefaultRanges are the named ranges of the budgeting template.
var DefaultRanges = Ranges{
	Configuration:         "r_ConfigurationData",
	TransactionCategories: "TransactionCategories",
	Accounts:              "cfg_Accounts",
	Cards:                 "cfg_Cards",
	Dates:                 "trx_Dates",
}

// Ledger implements wizard.LedgerGateway on one spreadsheet.
type Ledger struct {
	values        ValuesService
	spreadsheetID string
	ranges        Ranges
}

// NewLedger creates a ledger. Empty range names fall back to DefaultRanges.
func NewLedger(values ValuesService, spreadsheetID string, ranges Ranges) *Ledger {
	if ranges.Configuration == "" {
		ranges.Configuration = DefaultRanges.Configuration
	}
	if ranges.TransactionCategories == "" {
		ranges.TransactionCategories = DefaultRanges.TransactionCategories
	}
	if ranges.Accounts == "" {
		ranges.Accounts = DefaultRanges.Accounts
	}
	if ranges.Cards == "" {
		ranges.Cards = DefaultRanges.Cards
	}
	if ranges.Dates == "" {
		ranges.Dates = DefaultRanges.Dates
	}
	return &Ledger{values: values, spreadsheetID: spreadsheetID, ranges: ranges}
}

// FetchCategories implements the wizard.LedgerGateway interface.
func (l *Ledger) FetchCategories(ctx context.Context) (catalog.Categories, error) {
	config, err := l.values.Get(ctx, l.spreadsheetID, l.ranges.Configuration)
	if err != nil {
		return catalog.Categories{}, fmt.Errorf("FetchCategories: configuration: %w", err)
	}
	flat, err := l.values.Get(ctx, l.spreadsheetID, l.ranges.TransactionCategories)
	if err != nil {
		return catalog.Categories{}, fmt.Errorf("FetchCategories: transaction categories: %w", err)
	}

	cats := catalog.NewCategories(parseGroups(config), flatten(flat))
	log := logger.FromContext(ctx)
	log.Debug().
		Int("groups", len(cats.Groups)).
		Int("categories", cats.Len()).
		Msg("Fetched ledger categories")
	return cats, nil
}

// FetchAccounts implements the wizard.LedgerGateway interface.
func (l *Ledger) FetchAccounts(ctx context.Context) (catalog.Accounts, error) {
	accounts, err := l.values.Get(ctx, l.spreadsheetID, l.ranges.Accounts)
	if err != nil {
		return nil, fmt.Errorf("FetchAccounts: accounts: %w", err)
	}
	cards, err := l.values.Get(ctx, l.spreadsheetID, l.ranges.Cards)
	if err != nil {
		return nil, fmt.Errorf("FetchAccounts: cards: %w", err)
	}
	return catalog.NewAccounts(flatten(accounts), flatten(cards)), nil
}

// AppendRecord implements the wizard.LedgerGateway interface. The record is
// written to the first row whose date cell is blank, starting at the date column.
func (l *Ledger) AppendRecord(ctx context.Context, rec domain.Record) error {
	grid, err := l.values.NamedRange(ctx, l.spreadsheetID, l.ranges.Dates)
	if err != nil {
		return fmt.Errorf("AppendRecord: locating dates: %w", err)
	}
	dates, err := l.values.Get(ctx, l.spreadsheetID, l.ranges.Dates)
	if err != nil {
		return fmt.Errorf("AppendRecord: reading dates: %w", err)
	}

	offset := int64(firstBlank(dates))
	if grid.EndRow > 0 && grid.StartRow+offset >= grid.EndRow {
		return fmt.Errorf("AppendRecord: %w", ErrLedgerFull)
	}
	target := rowRange(grid.Sheet, grid.StartRow+offset+1, grid.StartColumn, recordWidth)

	if err := l.values.Update(ctx, l.spreadsheetID, target, [][]interface{}{rec.Values()}); err != nil {
		return fmt.Errorf("AppendRecord: writing row: %w", err)
	}

	log := logger.FromContext(ctx)

	log.Info().Str("range", target).Msg("Appended ledger record")
	return nil
}

// parseGroups walks the configuration rows. A row marked ✦ opens a group named
// by its second cell, unmarked rows add a category to the open group and ◘
// rows are ignored. Card payment groups and rows before the first group are
// dropped.
func parseGroups(rows [][]interface{}) []catalog.Group {
	var (
		groups []catalog.Group
		open   = -1
	)
	for _, row := range rows {
		marker, name := cell(row, 0), cell(row, 1)
		switch marker {
		case groupMarker:
			if strings.Contains(name, skippedGroup) {
				open = -1
				continue
			}
			groups = append(groups, catalog.Group{Name: name})
			open = len(groups) - 1
		case separatorMarker:
		default:
			if open >= 0 && name != "" {
				groups[open].Categories = append(groups[open].Categories, name)
			}
		}
	}
	return groups
}

// flatten returns every non-blank cell, row by row.
func flatten(rows [][]interface{}) []string {
	var out []string
	for _, row := range rows {
		for i := range row {
			if v := cell(row, i); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// firstBlank returns the index of the first row whose first cell is blank.
// The API trims trailing blank rows, so a full column yields len(rows).
func firstBlank(rows [][]interface{}) int {
	for i, row := range rows {
		if cell(row, 0) == "" {
			return i
		}
	}
	return len(rows)
}

func cell(row []interface{}, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

// Ensure Ledger implements wizard.LedgerGateway interface.
var _ wizard.LedgerGateway = (*Ledger)(nil)
