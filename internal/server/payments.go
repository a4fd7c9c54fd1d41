package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/voyagen/goodytv/internal/metrics"
	"github.com/voyagen/goodytv/internal/models"
)

// maxWebhookBody bounds the webhook payload.
const maxWebhookBody = 1 << 20

// handleWebhook receives payment provider events.
// POST /api/webhook
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErr(w, http.StatusMethodNotAllowed, errors.New("POST required"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeErr(w, http.StatusRequestEntityTooLarge, errors.New("request body too large"))
		return
	}

	event, err := s.constructEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		s.log.WithError(err).Warn("webhook rejected")
		s.writeErr(w, http.StatusBadRequest, err)
		return
	}
	log := s.log.WithFields(logrus.Fields{"event_id": event.ID, "type": event.Type})

	out, err := s.payments.HandleEvent(r.Context(), event)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(string(event.Type), "failed").Inc()
		if errors.Is(err, models.ErrParseDegraded) {
			log.WithError(err).Warn("webhook event unreadable")
			s.writeErr(w, http.StatusBadRequest, err)
			return
		}
		// 5xx makes the provider redeliver; redelivery is idempotent per session.
		s.writeErr(w, http.StatusInternalServerError, err)
		return
	}

	result := "processed"
	switch {
	case out.Ignored:
		result = "ignored"
	case out.Duplicate:
		result = "duplicate"
	}
	metrics.WebhookEvents.WithLabelValues(string(event.Type), result).Inc()
	log.WithField("result", result).Info("webhook handled")
	s.writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// constructEvent verifies the signature when a webhook secret is
// configured. Without one the body is parsed as-is, which is only fit for
// local development.
func (s *Server) constructEvent(body []byte, signature string) (stripe.Event, error) {
	if s.cfg.StripeWebhookSecret == "" {
		s.log.Warn("STRIPE_WEBHOOK_SECRET not set, skipping signature verification (dev only)")
		var event stripe.Event
		if err := json.Unmarshal(body, &event); err != nil {
			return stripe.Event{}, fmt.Errorf("failed to parse webhook body: %w", err)
		}
		return event, nil
	}
	event, err := webhook.ConstructEventWithOptions(body, signature, s.cfg.StripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", models.ErrAuthInvalid, err)
	}
	return event, nil
}

// handleCheckPayment answers device polls.
// GET /api/check-payment?deviceId=<id>
func (s *Server) handleCheckPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErr(w, http.StatusMethodNotAllowed, errors.New("GET required"))
		return
	}
	deviceID := r.URL.Query().Get("deviceId")
	if deviceID == "" {
		s.writeErr(w, http.StatusBadRequest, errors.New("deviceId is required"))
		return
	}

	st, err := s.payments.CheckPayment(r.Context(), deviceID)
	if err != nil {
		s.writeErr(w, http.StatusInternalServerError, err)
		return
	}
	s.log.WithFields(logrus.Fields{"device_id": deviceID, "paid": st.Paid}).Debug("payment checked")
	s.writeJSON(w, http.StatusOK, st)
}
