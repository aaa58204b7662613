package main

import (
	"context"
	"fmt"
	"io"

	bq "github.com/dvloznov/ledger-bot/internal/bigquery"
	"github.com/dvloznov/ledger-bot/internal/config"
	"github.com/dvloznov/ledger-bot/internal/gcs"
	infrabq "github.com/dvloznov/ledger-bot/internal/infra/bigquery"
	"github.com/dvloznov/ledger-bot/internal/infra/sheets"
	"github.com/dvloznov/ledger-bot/internal/infra/splitwise"
	"github.com/dvloznov/ledger-bot/internal/logger"
	"github.com/dvloznov/ledger-bot/internal/store"
	"github.com/dvloznov/ledger-bot/internal/wizard"
	"google.golang.org/api/option"
)

// credentials resolves the Google service account shared by Sheets and BigQuery.
func credentials(ctx context.Context, c *config.Config) ([]byte, error) {
	return gcs.LoadCredentials(ctx, c.Ledger.CredentialsJSON, c.Ledger.CredentialsFile, gcs.NewGCSStorageService())
}

func buildLedger(ctx context.Context, c *config.Config, creds []byte) (*sheets.Ledger, error) {
	client, err := sheets.NewSheetsClient(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("buildLedger: %w", err)
	}
	return sheets.NewLedger(client, c.Ledger.SpreadsheetID, sheets.DefaultRanges), nil
}

// buildSharing returns nil when Splitwise is not configured. The API key's
// owner pays; the configured friend owes the full amount.
func buildSharing(ctx context.Context, c *config.Config) (*splitwise.Client, wizard.ShareConfig, error) {
	var share wizard.ShareConfig
	log := logger.FromContext(ctx)

	if !c.SharingEnabled() {
		log.Info().Msg("Splitwise not configured, sharing disabled")
		return nil, share, nil
	}

	client := splitwise.NewClient(ctx, c.Splitwise.APIKey)

	me, err := client.CurrentUser(ctx)
	if err != nil {
		return nil, share, fmt.Errorf("buildSharing: current user: %w", err)
	}

	group, ok, err := client.FindGroup(ctx, c.Splitwise.GroupID)
	if err != nil {
		return nil, share, fmt.Errorf("buildSharing: groups: %w", err)
	}
	if !ok {
		return nil, share, fmt.Errorf("buildSharing: group %d not found", c.Splitwise.GroupID)
	}

	supported, err := client.SupportsCurrency(ctx, c.Splitwise.Currency)
	if err != nil {
		return nil, share, fmt.Errorf("buildSharing: currencies: %w", err)
	}
	if !supported {
		return nil, share, fmt.Errorf("buildSharing: currency %s not supported", c.Splitwise.Currency)
	}

	share = wizard.ShareConfig{
		PayerID:  me.ID,
		PayeeID:  c.Splitwise.FriendID,
		GroupID:  group.ID,
		Currency: c.Splitwise.Currency,
	}
	log.Info().
		Int64("payer_id", share.PayerID).
		Int64("payee_id", share.PayeeID).
		Str("group", group.Name).
		Str("currency", share.Currency).
		Msg("Splitwise sharing enabled")
	return client, share, nil
}

// buildRegistry keeps sessions in SQLite when a path is configured, in
// memory otherwise. The closer is never nil.
func buildRegistry(ctx context.Context, c *config.Config) (wizard.Registry, io.Closer, error) {
	if c.Wizard.SessionDBPath == "" {
		return wizard.NewMemoryRegistry(), closerFunc(func() error { return nil }), nil
	}

	reg, err := store.NewSQLiteRegistry(c.Wizard.SessionDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("buildRegistry: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Str("path", c.Wizard.SessionDBPath).Msg("Sessions persisted to SQLite")
	return reg, reg, nil
}

func tableRef(c *config.Config) bq.TableRef {
	return bq.TableRef{Project: c.BigQuery.Project, Dataset: c.BigQuery.Dataset, Table: c.BigQuery.Table}
}

func buildRepository(ctx context.Context, c *config.Config, creds []byte) (*infrabq.BigQueryCommitRepository, error) {
	var opts []option.ClientOption
	if len(creds) > 0 {
		opts = append(opts, option.WithCredentialsJSON(creds))
	}
	repo, err := infrabq.NewBigQueryCommitRepository(ctx, tableRef(c), opts...)
	if err != nil {
		return nil, fmt.Errorf("buildRepository: %w", err)
	}
	return repo, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
