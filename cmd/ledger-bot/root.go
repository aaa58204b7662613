package main

import (
	"github.com/dvloznov/ledger-bot/internal/config"
	"github.com/dvloznov/ledger-bot/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	envFile string

	cfg *config.Config
	log zerolog.Logger
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "ledger-bot",
	Short: "Chat wizard that records transactions in a spreadsheet ledger",
	Long: `A Telegram bot that walks a user through entering a transaction and
appends it to a Google Sheets ledger, optionally splitting it on Splitwise.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file (ignored if missing)")

	RootCmd.AddCommand(serveCmd, catalogsCmd, migrateCmd, historyCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	c, err := config.Load()
	if err != nil {
		return err
	}
	cfg = c
	log = logger.NewWithConfig(cfg.Log.Level, cfg.Log.Format)
	return nil
}
