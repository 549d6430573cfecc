package handler

import (
	"io"
	"net/http"

	"surplus-market/internal/gateway"
	"surplus-market/internal/model"
	"surplus-market/internal/service"

	"github.com/rs/zerolog"
)

// WebhookConfig controls webhook authentication.
type WebhookConfig struct {
	// Secret keys the x-signature HMAC.
	Secret string
	// Strict rejects notifications whose signature does not verify. When false
	// failures are only logged.
	Strict bool
}

// WebhookHandler receives Mercado Pago payment notifications.
type WebhookHandler struct {
	payments service.PaymentService
	cfg      WebhookConfig
	logger   zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(payments service.PaymentService, cfg WebhookConfig, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		payments: payments,
		cfg:      cfg,
		logger:   logger.With().Str("handler", "webhook").Logger(),
	}
}

type webhookAck struct {
	Received bool `json:"received"`
}

// MercadoPago handles GET and POST /api/webhooks/mercadopago. Every accepted
// notification is acknowledged with 200 so the gateway stops redelivering;
// processing failures are retried internally.
func (h *WebhookHandler) MercadoPago(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to read webhook body")
	}
	query := r.URL.Query()

	dataID := gateway.SignedDataID(body, query)
	if err := gateway.VerifySignature(h.cfg.Secret, r.Header.Get("X-Signature"), r.Header.Get("X-Request-Id"), dataID); err != nil {
		if h.cfg.Strict {
			h.logger.Warn().Err(err).Str("data_id", dataID).Msg("webhook rejected")
			writeJSON(w, http.StatusUnauthorized, model.ErrorResponse{
				Error:   model.ErrCodeUnauthorised,
				Message: "invalid webhook signature",
			})
			return
		}
		h.logger.Warn().Err(err).Str("data_id", dataID).Msg("webhook signature not verified")
	}

	h.payments.Ingest(r.Context(), gateway.ParseNotification(body, query))
	writeJSON(w, http.StatusOK, webhookAck{Received: true})
}

// TestNotificationRequest simulates a payment notification.
type TestNotificationRequest struct {
	PaymentID string `json:"paymentId" validate:"required,number,max=19"`
	Action    string `json:"action"`
}

// Test handles POST /api/webhooks/mercadopago/test. It processes a simulated
// payment notification synchronously and reports the outcome. The route is
// only mounted outside production.
func (h *WebhookHandler) Test(w http.ResponseWriter, r *http.Request) {
	var req TestNotificationRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Action == "" {
		req.Action = "payment.updated"
	}

	outcome, err := h.payments.HandleNotification(r.Context(), gateway.PaymentNotification{
		PaymentID: req.PaymentID,
		Action:    req.Action,
	})
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"received": true, "outcome": outcome})
}
