package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mikbell/forever/internal/domain"
	"github.com/mikbell/forever/internal/logger"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError is the single place domain errors become HTTP statuses.
func handleServiceError(w http.ResponseWriter, r *http.Request, l *zap.Logger, err error) {
	var httpStatus int
	var code string

	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		httpStatus = http.StatusBadRequest
		code = "empty_cart"
	case errors.Is(err, domain.ErrInvalidInput):
		httpStatus = http.StatusBadRequest
		code = "invalid_input"
	case errors.Is(err, domain.ErrNotFound):
		httpStatus = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, domain.ErrInvalidTransition):
		httpStatus = http.StatusConflict
		code = "invalid_transition"
	case errors.Is(err, domain.ErrSignatureInvalid):
		httpStatus = http.StatusBadRequest
		code = "signature_invalid"
	case errors.Is(err, domain.ErrPaymentProvider):
		httpStatus = http.StatusBadGateway
		code = "payment_provider_error"
	default:
		logger.WithContext(r.Context(), l).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, httpStatus, code, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}
