package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/donaldtakou/huguesfront/internal/payment"
)

// PaymentHandler exposes the provider-set utilities for the admin side.
type PaymentHandler struct {
	providers *payment.Set
	timeout   time.Duration
}

func NewPaymentHandler(providers *payment.Set, timeout time.Duration) *PaymentHandler {
	return &PaymentHandler{
		providers: providers,
		timeout:   timeout,
	}
}

type VerifyRequestDTO struct {
	TransactionID string `json:"transaction_id"`
}

type RefundRequestDTO struct {
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
}

func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req VerifyRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	receipt, err := h.providers.Verify(ctx, req.TransactionID)
	if err != nil {
		handlePaymentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, receipt)
}

func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req RefundRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Amount <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_amount", "refund amount must be positive")
		return
	}

	receipt, err := h.providers.Refund(ctx, req.TransactionID, req.Amount)
	if err != nil {
		handlePaymentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, receipt)
}

func handlePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payment.ErrTransactionNotFound):
		respondError(w, http.StatusNotFound, "transaction_not_found", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "provider call timed out")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "provider call failed")
	}
}
