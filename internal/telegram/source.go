package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/ledger-bot/internal/jobs"
	"github.com/dvloznov/ledger-bot/internal/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const pollTimeout = 60

// Poller is the long-polling part of *tgbotapi.BotAPI.
type Poller interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Source feeds Telegram updates from polling or the webhook into the job queue.
type Source struct {
	api       API
	publisher jobs.Publisher
	allow     Allowlist
}

// NewSource creates a Source.
func NewSource(api API, publisher jobs.Publisher, allow Allowlist) *Source {
	return &Source{api: api, publisher: publisher, allow: allow}
}

// Dispatch publishes the update's event. Updates from users outside the
// allowlist and updates without a usable event are dropped silently.
func (s *Source) Dispatch(ctx context.Context, u tgbotapi.Update) error {
	log := logger.FromContext(ctx)

	ev, ok := ToEvent(u)
	if !ok {
		log.Debug().Int("update_id", u.UpdateID).Msg("Ignoring update")
		return nil
	}
	if !s.allow.Allowed(ev.UserID) {
		log.Warn().Int64("user_id", UserOf(u)).Msg("Rejected update from user outside allowlist")
		return nil
	}

	if err := s.publisher.PublishEvent(ctx, jobs.NewEventJob(u.UpdateID, ev)); err != nil {
		return fmt.Errorf("Dispatch: %w", err)
	}
	return nil
}

// Poll drops any webhook with its pending updates and long-polls until ctx
// is done.
func (s *Source) Poll(ctx context.Context, poller Poller) error {
	log := logger.FromContext(ctx)

	if _, err := s.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("Poll: delete webhook: %w", err)
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	updates := poller.GetUpdatesChan(cfg)
	log.Info().Msg("Polling for updates")

	for {
		select {
		case <-ctx.Done():
			poller.StopReceivingUpdates()
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if err := s.Dispatch(ctx, u); err != nil {
				if errors.Is(err, jobs.ErrQueueClosed) {
					return nil
				}
				if !errors.Is(err, jobs.ErrDuplicateUpdate) {
					log.Error().Err(err).Int("update_id", u.UpdateID).Msg("Failed to dispatch update")
				}
			}
		}
	}
}

// RegisterWebhook points Telegram at url, dropping updates queued meanwhile.
func (s *Source) RegisterWebhook(ctx context.Context, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("RegisterWebhook: %w", err)
	}
	wh.DropPendingUpdates = true

	if _, err := s.api.Request(wh); err != nil {
		return fmt.Errorf("RegisterWebhook: request: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Str("url", redact(url)).Msg("Webhook registered")
	return nil
}

// redact hides the secret path segment of a webhook URL.
func redact(url string) string {
	for i := len(url) - 2; i >= 0; i-- {
		if url[i] == '/' {
			return url[:i+1] + "***/"
		}
	}
	return "***"
}
