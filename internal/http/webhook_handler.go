package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/mikbell/forever/internal/domain"
	"github.com/mikbell/forever/internal/service"
	"go.uber.org/zap"
)

const signatureHeader = "Stripe-Signature"

type WebhookReconciler interface {
	HandleEvent(ctx context.Context, payload []byte, signature string) (service.Outcome, error)
}

type WebhookHandler struct {
	reconciler WebhookReconciler
	maxBody    int64
	logger     *zap.Logger
}

func NewWebhookHandler(reconciler WebhookReconciler, maxBody int64, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, maxBody: maxBody, logger: logger}
}

type WebhookResponseDTO struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
}

// POST /order/webhook
//
// The body must reach the verifier byte for byte, so it is read raw and never decoded here.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "webhook body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "unreadable webhook body")
		return
	}

	outcome, err := h.reconciler.HandleEvent(r.Context(), payload, r.Header.Get(signatureHeader))
	if errors.Is(err, domain.ErrSignatureInvalid) {
		respondError(w, http.StatusBadRequest, "signature_invalid", "webhook signature verification failed")
		return
	}
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, WebhookResponseDTO{Received: true, Outcome: string(outcome)})
}
