package bigquery

import (
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/shopspring/decimal"
)

func TestNewCommitRow(t *testing.T) {
	manila := time.FixedZone("PHT", 8*60*60)
	c := domain.Commit{
		SessionID: "sess-1",
		UserID:    42,
		Kind:      domain.CommitLedger,
		Draft: domain.Draft{
			Date:     civil.Date{Year: 2024, Month: 3, Day: 7},
			Outflow:  decimal.NewNullDecimal(decimal.RequireFromString("12.50")),
			Category: "Groceries",
			Memo:     "lunch",
		},
		CommittedAt: time.Date(2024, 3, 7, 18, 0, 0, 0, manila),
	}

	row := NewCommitRow(c)

	if row.CommitID == "" {
		t.Error("Expected a commit id")
	}
	if row.SessionID != "sess-1" || row.UserID != 42 || row.Kind != "ledger" {
		t.Errorf("row = %+v", row)
	}
	if row.TransactionDate != c.Draft.Date {
		t.Errorf("TransactionDate = %v", row.TransactionDate)
	}
	if row.Outflow == nil || row.Outflow.Cmp(big.NewRat(25, 2)) != 0 {
		t.Errorf("Outflow = %v, want 25/2", row.Outflow)
	}
	if row.Inflow != nil {
		t.Errorf("Inflow = %v, want nil", row.Inflow)
	}
	if !row.Category.Valid || row.Category.StringVal != "Groceries" {
		t.Errorf("Category = %+v", row.Category)
	}
	if row.Account.Valid || row.ExternalID.Valid {
		t.Error("Expected empty account and external id to be NULL")
	}
	if row.CommittedTS.Location() != time.UTC || row.CommittedTS.Hour() != 10 {
		t.Errorf("CommittedTS = %v, want 10:00 UTC", row.CommittedTS)
	}
}

func TestTableRef_String(t *testing.T) {
	ref := TableRef{Project: "p", Dataset: "finance", Table: "ledger_commits"}
	if got := ref.String(); got != "`p.finance.ledger_commits`" {
		t.Errorf("String() = %q", got)
	}
}
