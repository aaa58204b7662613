package sheets

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// ErrRangeNotFound is returned when a named range does not exist.
var ErrRangeNotFound = errors.New("named range not found")

// userEntered makes Sheets parse written values as if typed by a user,
// so dates and amounts become real dates and numbers.
const userEntered = "USER_ENTERED"

// GridRange locates a named range on its worksheet. Indexes are zero based
// and end indexes are exclusive; a zero end index means unbounded.
type GridRange struct {
	Sheet       string
	StartRow    int64
	EndRow      int64
	StartColumn int64
	EndColumn   int64
}

// ValuesService is the subset of the Sheets API the ledger needs.
type ValuesService interface {
	// Get returns the values of an A1 range or named range, row major.
	Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)

	// Update writes rows to an A1 range with USER_ENTERED input.
	Update(ctx context.Context, spreadsheetID, rng string, rows [][]interface{}) error

	// NamedRange resolves a named range to its grid coordinates.
	NamedRange(ctx context.Context, spreadsheetID, name string) (GridRange, error)
}

// SheetsClient implements ValuesService on top of the Google Sheets API.
type SheetsClient struct {
	svc *sheetsapi.Service
}

// NewSheetsClient creates a Sheets client. An empty credentialsJSON falls
// back to Application Default Credentials.
func NewSheetsClient(ctx context.Context, credentialsJSON []byte) (*SheetsClient, error) {
	opts := []option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsScope)}
	if len(credentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	}

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewSheetsClient: creating service: %w", err)
	}
	return &SheetsClient{svc: svc}, nil
}

// Get implements the ValuesService interface.
func (c *SheetsClient) Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("Get: %s: %w", rng, err)
	}
	return resp.Values, nil
}

// Update implements the ValuesService interface.
func (c *SheetsClient) Update(ctx context.Context, spreadsheetID, rng string, rows [][]interface{}) error {
	_, err := c.svc.Spreadsheets.Values.Update(spreadsheetID, rng, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption(userEntered).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("Update: %s: %w", rng, err)
	}
	return nil
}

// NamedRange implements the ValuesService interface.
func (c *SheetsClient) NamedRange(ctx context.Context, spreadsheetID, name string) (GridRange, error) {
	ss, err := c.svc.Spreadsheets.Get(spreadsheetID).
		Fields(googleapi.Field("namedRanges,sheets.properties(sheetId,title)")).
		Context(ctx).
		Do()
	if err != nil {
		return GridRange{}, fmt.Errorf("NamedRange: %s: %w", name, err)
	}

	for _, nr := range ss.NamedRanges {
		if nr.Name != name || nr.Range == nil {
			continue
		}
		title, ok := sheetTitle(ss.Sheets, nr.Range.SheetId)
		if !ok {
			return GridRange{}, fmt.Errorf("NamedRange: %s: sheet %d: %w", name, nr.Range.SheetId, ErrRangeNotFound)
		}
		return GridRange{
			Sheet:       title,
			StartRow:    nr.Range.StartRowIndex,
			EndRow:      nr.Range.EndRowIndex,
			StartColumn: nr.Range.StartColumnIndex,
			EndColumn:   nr.Range.EndColumnIndex,
		}, nil
	}
	return GridRange{}, fmt.Errorf("NamedRange: %s: %w", name, ErrRangeNotFound)
}

func sheetTitle(sheets []*sheetsapi.Sheet, id int64) (string, bool) {
	for _, s := range sheets {
		if s.Properties != nil && s.Properties.SheetId == id {
			return s.Properties.Title, true
		}
	}
	return "", false
}

// Ensure SheetsClient implements ValuesService interface.
var _ ValuesService = (*SheetsClient)(nil)
