package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommitRepository provides an interface for the ledger mirror table.
type CommitRepository interface {
	// EnsureCommitsTable creates the mirror table if it does not exist.
	EnsureCommitsTable(ctx context.Context) error

	// InsertCommit inserts a single CommitRow.
	InsertCommit(ctx context.Context, row *CommitRow) error

	// ListCommits returns commits dated within [from, to], oldest first.
	ListCommits(ctx context.Context, from, to civil.Date) ([]*CommitRow, error)
}

// TableRef names a fully qualified BigQuery table.
type TableRef struct {
	Project string
	Dataset string
	Table   string
}

// String returns the table in `project.dataset.table` form for SQL.
func (t TableRef) String() string {
	return fmt.Sprintf("`%s.%s.%s`", t.Project, t.Dataset, t.Table)
}

// CommitRow is one committed draft in the mirror table.
type CommitRow struct {
	CommitID  string `bigquery:"commit_id"`  // REQUIRED
	SessionID string `bigquery:"session_id"` // REQUIRED
	UserID    int64  `bigquery:"user_id"`    // REQUIRED
	Kind      string `bigquery:"kind"`       // REQUIRED: ledger | shared

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Outflow *big.Rat `bigquery:"outflow"` // NULLABLE NUMERIC
	Inflow  *big.Rat `bigquery:"inflow"`  // NULLABLE NUMERIC

	Category   bigquery.NullString `bigquery:"category"`    // NULLABLE
	Account    bigquery.NullString `bigquery:"account"`     // NULLABLE
	Memo       bigquery.NullString `bigquery:"memo"`        // NULLABLE
	ExternalID bigquery.NullString `bigquery:"external_id"` // NULLABLE, sharing service expense id

	CommittedTS time.Time `bigquery:"committed_ts"` // REQUIRED
}

// NewCommitRow converts a commit into a mirror row with a fresh commit id.
func NewCommitRow(c domain.Commit) *CommitRow {
	return &CommitRow{
		CommitID:        uuid.NewString(),
		SessionID:       c.SessionID,
		UserID:          c.UserID,
		Kind:            string(c.Kind),
		TransactionDate: c.Draft.Date,
		Outflow:         ratOf(c.Draft.Outflow),
		Inflow:          ratOf(c.Draft.Inflow),
		Category:        nullString(c.Draft.Category),
		Account:         nullString(c.Draft.Account),
		Memo:            nullString(c.Draft.Memo),
		ExternalID:      nullString(c.ExternalID),
		CommittedTS:     c.CommittedAt.UTC(),
	}
}

func ratOf(n decimal.NullDecimal) *big.Rat {
	if !n.Valid {
		return nil
	}
	return n.Decimal.Rat()
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
