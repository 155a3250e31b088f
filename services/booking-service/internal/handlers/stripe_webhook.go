package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/vetsync/vetsync/services/booking-service/internal/model"
	"github.com/vetsync/vetsync/services/booking-service/internal/outbox"
	"github.com/vetsync/vetsync/services/booking-service/internal/storage"
)

// StripeWebhookHandler confirms appointments when their checkout payment
// settles. Signature verification is the auth; the checkout session must
// carry appointment_id metadata.
type StripeWebhookHandler struct {
	store     storage.Store
	events    outbox.Emitter
	logger    *slog.Logger
	secret    string
	tolerance time.Duration
}

type StripeWebhookConfig struct {
	WebhookSecret    string
	ToleranceSeconds int
}

func NewStripeWebhookHandler(store storage.Store, events outbox.Emitter, logger *slog.Logger, cfg StripeWebhookConfig) *StripeWebhookHandler {
	tolSeconds := cfg.ToleranceSeconds
	if tolSeconds <= 0 {
		tolSeconds = 300
	}
	return &StripeWebhookHandler{
		store:     store,
		events:    events,
		logger:    logger,
		secret:    strings.TrimSpace(cfg.WebhookSecret),
		tolerance: time.Duration(tolSeconds) * time.Second,
	}
}

func (h *StripeWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.secret == "" {
		http.Error(w, "stripe webhook not configured", http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		http.Error(w, "missing Stripe-Signature header", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MiB hard cap
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	evt, err := webhook.ConstructEventWithTolerance(body, sigHeader, h.secret, h.tolerance)
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	evtType := string(evt.Type)
	h.logger.Info("payment provider event received",
		"provider", "stripe",
		"provider_event_id", evt.ID,
		"event_type", evtType,
	)

	if evtType != "checkout.session.completed" {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored"})
		return
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
		h.logger.Error("stripe: invalid checkout session payload", "err", err)
		http.Error(w, "invalid checkout session payload", http.StatusBadRequest)
		return
	}
	appointmentID := strings.TrimSpace(session.Metadata["appointment_id"])
	if appointmentID == "" {
		h.logger.Warn("stripe: checkout session missing appointment_id metadata", "session_id", session.ID)
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored"})
		return
	}

	if err := h.confirm(r.Context(), appointmentID); err != nil {
		if storage.IsNotFound(err) {
			// Stripe retries on non-2xx; an unknown id will never resolve, so ack it.
			h.logger.Warn("stripe: appointment not found", "appointment_id", appointmentID)
			writeJSON(w, http.StatusOK, map[string]any{"status": "ignored"})
			return
		}
		http.Error(w, "failed to confirm appointment", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *StripeWebhookHandler) confirm(ctx context.Context, appointmentID string) error {
	appt, err := h.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	// Replays and out-of-order deliveries land here after the first
	// confirmation; nothing left to do.
	if appt.Status != model.StatusPending {
		return nil
	}

	appt.Status = model.StatusUpcoming
	updated, err := h.store.UpdateAppointment(ctx, appt)
	if err != nil {
		return err
	}
	evt, err := outbox.AppointmentEvent(outbox.EventAppointmentConfirmed, updated)
	if err != nil {
		return err
	}
	if err := h.events.Emit(ctx, evt); err != nil {
		h.logger.Error("emit confirmed event", "appointment_id", updated.ID, "err", err)
	}
	return nil
}
