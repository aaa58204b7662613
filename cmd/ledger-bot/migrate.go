package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/ledger-bot/internal/logger"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the BigQuery commit mirror table if it does not exist",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if !cfg.MirrorEnabled() {
		return fmt.Errorf("BIGQUERY_PROJECT is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	creds, err := credentials(ctx, cfg)
	if err != nil {
		return err
	}
	repo, err := buildRepository(ctx, cfg, creds)
	if err != nil {
		return err
	}
	defer repo.Close()

	log.Info().Str("table", tableRef(cfg).String()).Msg("Ensuring commit table")
	if err := repo.EnsureCommitsTable(ctx); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Migration completed successfully.")
	return nil
}
