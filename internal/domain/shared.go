package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// SharedExpense is an expense split between the payer and one payee.
// The payer paid the full amount and the payee owes all of it.
type SharedExpense struct {
	PayerID      int64
	PayeeID      int64
	GroupID      int64
	CategoryID   int64
	CategoryName string
	Amount       decimal.Decimal
	Currency     string
	Memo         string
	Date         civil.Date
}

// CommitKind tells where a committed draft was written.
type CommitKind string

const (
	// CommitLedger marks a row appended to the spreadsheet ledger.
	CommitLedger CommitKind = "ledger"
	// CommitShared marks an expense created in the sharing service.
	CommitShared CommitKind = "shared"
)

// Commit describes a draft that was successfully persisted.
type Commit struct {
	SessionID   string
	UserID      int64
	Kind        CommitKind
	Draft       Draft
	ExternalID  string
	CommittedAt time.Time
}
