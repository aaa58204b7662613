package main

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"time"

	"cloud.google.com/go/civil"
	bq "github.com/dvloznov/ledger-bot/internal/bigquery"
	"github.com/dvloznov/ledger-bot/internal/logger"
	"github.com/spf13/cobra"
)

var (
	historyFrom string
	historyTo   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List committed transactions from the BigQuery mirror",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyFrom, "from", "", "First transaction date, YYYY-MM-DD (default: start of this month)")
	historyCmd.Flags().StringVar(&historyTo, "to", "", "Last transaction date, YYYY-MM-DD (default: today)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if !cfg.MirrorEnabled() {
		return fmt.Errorf("BIGQUERY_PROJECT is not set")
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	from, to, err := dateRange(historyFrom, historyTo, civil.DateOf(time.Now().In(loc)))
	if err != nil {
		return err
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

	rows, err := repo.ListCommits(ctx, from, to)
	if err != nil {
		return err
	}

	printHistory(cmd.OutOrStdout(), from, to, rows)
	return nil
}

// dateRange parses the --from/--to flags. Empty values default to the
// current month up to today.
func dateRange(fromStr, toStr string, today civil.Date) (civil.Date, civil.Date, error) {
	from := civil.Date{Year: today.Year, Month: today.Month, Day: 1}
	to := today

	if fromStr != "" {
		d, err := civil.ParseDate(fromStr)
		if err != nil {
			return from, to, fmt.Errorf("invalid --from: %w", err)
		}
		from = d
	}
	if toStr != "" {
		d, err := civil.ParseDate(toStr)
		if err != nil {
			return from, to, fmt.Errorf("invalid --to: %w", err)
		}
		to = d
	}
	if to.Before(from) {
		return from, to, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return from, to, nil
}

func printHistory(out io.Writer, from, to civil.Date, rows []*bq.CommitRow) {
	fmt.Fprintf(out, "=== Commits %s to %s (%d) ===\n", from, to, len(rows))
	for i, r := range rows {
		fmt.Fprintf(out, "\n%d. %s [%s]\n", i+1, r.TransactionDate, r.Kind)
		if r.Outflow != nil {
			fmt.Fprintf(out, "   Outflow:  %s\n", amount(r.Outflow))
		}
		if r.Inflow != nil {
			fmt.Fprintf(out, "   Inflow:   %s\n", amount(r.Inflow))
		}
		if r.Category.Valid {
			fmt.Fprintf(out, "   Category: %s\n", r.Category.StringVal)
		}
		if r.Account.Valid {
			fmt.Fprintf(out, "   Account:  %s\n", r.Account.StringVal)
		}
		if r.Memo.Valid {
			fmt.Fprintf(out, "   Memo:     %s\n", r.Memo.StringVal)
		}
		if r.ExternalID.Valid {
			fmt.Fprintf(out, "   Expense:  %s\n", r.ExternalID.StringVal)
		}
	}
}

func amount(r *big.Rat) string {
	return r.FloatString(2)
}
