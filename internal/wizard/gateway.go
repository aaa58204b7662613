package wizard

import (
	"context"
	"fmt"

	"github.com/dvloznov/ledger-bot/internal/catalog"
	"github.com/dvloznov/ledger-bot/internal/domain"
)

// LedgerGateway reads ledger catalogs and appends committed records.
type LedgerGateway interface {
	FetchCategories(ctx context.Context) (catalog.Categories, error)
	FetchAccounts(ctx context.Context) (catalog.Accounts, error)
	AppendRecord(ctx context.Context, rec domain.Record) error
}

// SharingGateway reads sharing categories and creates split expenses.
type SharingGateway interface {
	FetchCategories(ctx context.Context) (catalog.SharedCategories, error)

	// CreateSharedExpense returns the id of the created expense.
	CreateSharedExpense(ctx context.Context, exp domain.SharedExpense) (int64, error)
}

// Messenger delivers prompts to the chat.
type Messenger interface {
	SendPrompt(ctx context.Context, chatID int64, p Prompt) (MessageRef, error)
	EditPrompt(ctx context.Context, ref MessageRef, p Prompt) error
	Reply(ctx context.Context, chatID int64, replyTo int, text string) error

	// AnswerClick acknowledges a button press. An empty text shows nothing.
	AnswerClick(ctx context.Context, clickID, text string) error
}

// CommitSink is told about every successful commit.
type CommitSink interface {
	RecordCommitted(ctx context.Context, c domain.Commit) error
}

// LoadCatalogs fetches every catalog once. sharing may be nil.
func LoadCatalogs(ctx context.Context, ledger LedgerGateway, sharing SharingGateway) (catalog.Catalogs, error) {
	var cats catalog.Catalogs

	categories, err := ledger.FetchCategories(ctx)
	if err != nil {
		return cats, fmt.Errorf("LoadCatalogs: categories: %w", err)
	}
	cats.Categories = categories

	accounts, err := ledger.FetchAccounts(ctx)
	if err != nil {
		return cats, fmt.Errorf("LoadCatalogs: accounts: %w", err)
	}
	cats.Accounts = accounts

	if sharing != nil {
		shared, err := sharing.FetchCategories(ctx)
		if err != nil {
			return cats, fmt.Errorf("LoadCatalogs: shared categories: %w", err)
		}
		cats.Shared = shared
	}

	return cats, nil
}
