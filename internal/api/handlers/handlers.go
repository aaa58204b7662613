package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/dvloznov/ledger-bot/internal/api/middleware"
	"github.com/dvloznov/ledger-bot/internal/jobs"
	"github.com/dvloznov/ledger-bot/internal/logger"
	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// maxUpdateSize bounds the webhook request body.
const maxUpdateSize = 1 << 20

// Dispatcher accepts decoded chat updates.
type Dispatcher interface {
	Dispatch(ctx context.Context, u tgbotapi.Update) error
}

// WebhookHandler receives updates pushed by Telegram.
type WebhookHandler struct {
	dispatcher Dispatcher
	secret     string
	log        zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler. Requests are only
// accepted on the path segment equal to secret.
func NewWebhookHandler(dispatcher Dispatcher, secret string, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		dispatcher: dispatcher,
		secret:     secret,
		log:        log,
	}
}

// ReceiveUpdate handles POST /{secret}/
func (h *WebhookHandler) ReceiveUpdate(w http.ResponseWriter, r *http.Request) {
	if subtle.ConstantTimeCompare([]byte(chi.URLParam(r, "secret")), []byte(h.secret)) != 1 {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		middleware.WriteError(w, http.StatusForbidden, "Forbidden")
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateSize)).Decode(&update); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid update")
		return
	}

	ctx := r.Context()
	if err := h.dispatcher.Dispatch(ctx, update); err != nil {
		switch {
		case errors.Is(err, jobs.ErrDuplicateUpdate):
			// Telegram redelivered an update we already queued.
		case errors.Is(err, jobs.ErrQueueClosed):
			middleware.WriteError(w, http.StatusServiceUnavailable, "Shutting down")
			return
		default:
			log := logger.FromContext(ctx)
			log.Error().Err(err).Int("update_id", update.UpdateID).Msg("Failed to dispatch update")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to dispatch update")
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

// EventsHandler exposes recently processed chat events.
type EventsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(store jobs.JobStore, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		store: store,
		log:   log,
	}
}

// GetEvent handles GET /api/events/{id}
func (h *EventsHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "id")

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		if !errors.Is(err, jobs.ErrJobNotFound) {
			h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get event")
		}
		middleware.WriteError(w, http.StatusNotFound, "Event not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListEvents handles GET /api/events
func (h *EventsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}

	if userStr := query.Get("user_id"); userStr != "" {
		userID, err := strconv.ParseInt(userStr, 10, 64)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid user_id")
			return
		}
		filter.UserID = userID
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	events, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list events")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
