package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dvloznov/ledger-bot/internal/catalog"
	"github.com/dvloznov/ledger-bot/internal/infra/splitwise"
	"github.com/dvloznov/ledger-bot/internal/logger"
	"github.com/dvloznov/ledger-bot/internal/wizard"
	"github.com/spf13/cobra"
)

var catalogsCmd = &cobra.Command{
	Use:   "catalogs",
	Short: "Print the categories, accounts and sharing options the bot would offer",
	Args:  cobra.NoArgs,
	RunE:  runCatalogs,
}

func runCatalogs(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	creds, err := credentials(ctx, cfg)
	if err != nil {
		return err
	}
	ledger, err := buildLedger(ctx, cfg, creds)
	if err != nil {
		return err
	}

	var sharing wizard.SharingGateway
	client, _, err := buildSharing(ctx, cfg)
	if err != nil {
		return err
	}
	if client != nil {
		sharing = client
	}

	cats, err := wizard.LoadCatalogs(ctx, ledger, sharing)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printCatalogs(out, cats)

	if client != nil {
		friends, err := client.FetchFriends(ctx)
		if err != nil {
			return fmt.Errorf("fetching friends: %w", err)
		}
		fmt.Fprintf(out, "\n=== Splitwise Friends (%d) ===\n", len(friends))
		for _, name := range splitwise.SortedNames(friends) {
			fmt.Fprintf(out, "  %s\n", name)
		}
	}
	return nil
}

func printCatalogs(out io.Writer, cats catalog.Catalogs) {
	fmt.Fprintf(out, "=== Categories (%d) ===\n", cats.Categories.Len())
	for _, g := range cats.Categories.Groups {
		fmt.Fprintf(out, "%s\n", g.Name)
		for _, c := range g.Categories {
			fmt.Fprintf(out, "  %s\n", c)
		}
	}

	fmt.Fprintf(out, "\n=== Accounts (%d) ===\n", len(cats.Accounts))
	for _, a := range cats.Accounts {
		fmt.Fprintf(out, "  %s\n", a)
	}

	if len(cats.Shared) == 0 {
		return
	}
	fmt.Fprintf(out, "\n=== Shared Categories (%d) ===\n", len(cats.Shared))
	for _, c := range cats.Shared {
		subs := make([]string, 0, len(c.Subcategories))
		for _, s := range c.Subcategories {
			subs = append(subs, s.Name)
		}
		fmt.Fprintf(out, "%s: %s\n", c.Name, strings.Join(subs, ", "))
	}
}
