package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/fjod/storefront/internal/webhook"
)

const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBody  = 64 << 10
)

type Dispatcher interface {
	Dispatch(ctx context.Context, payload []byte, signature string) error
}

type WebhookHandler struct {
	dispatcher Dispatcher
	log        *slog.Logger
}

func NewWebhookHandler(dispatcher Dispatcher, log *slog.Logger) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher, log: log}
}

type WebhookResponseDTO struct {
	Received bool `json:"received"`
}

// POST /webhook
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "webhook payload too large")
			return
		}
		h.log.Warn("failed to read webhook payload", "error", err)
		respondError(w, http.StatusBadRequest, "failed to read webhook payload")
		return
	}

	err = h.dispatcher.Dispatch(r.Context(), payload, r.Header.Get(signatureHeader))
	if webhook.Acknowledge(err) {
		respondJSON(w, http.StatusOK, WebhookResponseDTO{Received: true})
		return
	}
	handleServiceError(w, r, h.log, err)
}
