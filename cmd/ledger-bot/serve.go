package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Embedded zone database so TIMEZONE works in minimal containers.
	_ "time/tzdata"

	"github.com/dvloznov/ledger-bot/internal/api"
	"github.com/dvloznov/ledger-bot/internal/config"
	infrabq "github.com/dvloznov/ledger-bot/internal/infra/bigquery"
	"github.com/dvloznov/ledger-bot/internal/jobs"
	"github.com/dvloznov/ledger-bot/internal/jobs/inmemory"
	"github.com/dvloznov/ledger-bot/internal/logger"
	"github.com/dvloznov/ledger-bot/internal/telegram"
	"github.com/dvloznov/ledger-bot/internal/wizard"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot",
	Long:  `Connects to Telegram by long polling or webhook (UPDATE_MODE) and serves the transaction wizard until interrupted.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	creds, err := credentials(ctx, cfg)
	if err != nil {
		return err
	}
	ledger, err := buildLedger(ctx, cfg, creds)
	if err != nil {
		return err
	}

	var sharing wizard.SharingGateway
	client, share, err := buildSharing(ctx, cfg)
	if err != nil {
		return err
	}
	if client != nil {
		sharing = client
	}

	registry, closer, err := buildRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	var sink wizard.CommitSink
	if cfg.MirrorEnabled() {
		repo, err := buildRepository(ctx, cfg, creds)
		if err != nil {
			return err
		}
		defer repo.Close()
		if err := repo.EnsureCommitsTable(ctx); err != nil {
			return err
		}
		sink = infrabq.NewMirror(repo)
		log.Info().Str("table", tableRef(cfg).String()).Msg("Mirroring commits to BigQuery")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("connecting to Telegram: %w", err)
	}
	log.Info().Str("bot", bot.Self.UserName).Msg("Authorized on Telegram")

	catalogs, err := wizard.LoadCatalogs(ctx, ledger, sharing)
	if err != nil {
		return err
	}
	log.Info().
		Int("categories", catalogs.Categories.Len()).
		Int("accounts", len(catalogs.Accounts)).
		Int("shared_categories", len(catalogs.Shared)).
		Msg("Catalogs loaded")

	machine, err := wizard.New(wizard.Config{
		Ledger:          ledger,
		Messenger:       telegram.NewMessenger(bot),
		Sharing:         sharing,
		Share:           share,
		Sink:            sink,
		Registry:        registry,
		Catalogs:        catalogs,
		Currency:        cfg.Wizard.Currency,
		DateLayout:      cfg.Wizard.DateLayout,
		Location:        loc,
		AccountPageSize: cfg.Wizard.AccountPageSize,
	})
	if err != nil {
		return err
	}

	store := inmemory.NewStore(cfg.Queue.JobHistory)
	queue := inmemory.NewQueue(cfg.Queue.Workers, cfg.Queue.Size, store)

	// Workers outlive the signal so in-flight events finish during shutdown.
	workerCtx, cancelWorkers := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancelWorkers()

	handler := func(ctx context.Context, job *jobs.EventJob) error {
		return machine.Handle(ctx, job.Event)
	}
	if err := queue.Start(workerCtx, handler); err != nil {
		return fmt.Errorf("starting workers: %w", err)
	}
	log.Info().Int("workers", cfg.Queue.Workers).Msg("Event workers started")

	if ttl := cfg.Wizard.SessionTTL; ttl > 0 {
		wizard.StartSessionReaper(ctx, machine, ttl)
	}

	source := telegram.NewSource(bot, queue, telegram.NewAllowlist(cfg.Telegram.RestrictAccess, cfg.Telegram.AllowedUsers))

	var runErr error
	switch cfg.Telegram.UpdateMode {
	case config.ModeWebhook:
		runErr = serveWebhook(ctx, source, store)
	default:
		runErr = source.Poll(ctx, bot)
	}

	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop job queue and wait for in-flight jobs
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Bot exited")
	return runErr
}

// serveWebhook registers the webhook and serves it until ctx is done.
func serveWebhook(ctx context.Context, source *telegram.Source, store jobs.JobStore) error {
	if err := source.RegisterWebhook(ctx, cfg.WebhookURL()); err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + cfg.Telegram.Port,
		Handler:      api.NewRouter(source, cfg.Telegram.WebhookSecret, store, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Telegram.Port).Msg("Starting webhook server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("webhook server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("webhook server shutdown: %w", err)
	}
	return nil
}
