// Package api serves the Telegram webhook and a small diagnostics API.
package api

import (
	"net/http"

	"github.com/dvloznov/ledger-bot/internal/api/handlers"
	"github.com/dvloznov/ledger-bot/internal/api/middleware"
	"github.com/dvloznov/ledger-bot/internal/jobs"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// NewRouter wires the webhook, health and events endpoints.
func NewRouter(dispatcher handlers.Dispatcher, secret string, store jobs.JobStore, log zerolog.Logger) http.Handler {
	webhook := handlers.NewWebhookHandler(dispatcher, secret, log)
	events := handlers.NewEventsHandler(store, log)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))

	r.Get("/health", handlers.Health)
	r.Route("/api/events", func(r chi.Router) {
		r.Get("/", events.ListEvents)
		r.Get("/{id}", events.GetEvent)
	})
	r.Post("/{secret}/", webhook.ReceiveUpdate)

	return r
}
