package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/donaldtakou/huguesfront/internal/checkout"
	"github.com/donaldtakou/huguesfront/internal/payment"
)

type CheckoutHandler struct {
	service  *checkout.Service
	registry *payment.Registry
	timeout  time.Duration
}

func NewCheckoutHandler(service *checkout.Service, registry *payment.Registry, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		service:  service,
		registry: registry,
		timeout:  timeout,
	}
}

type CheckoutRequestDTO struct {
	Method   payment.Method       `json:"method"`
	Customer payment.Customer     `json:"customer"`
	Card     *payment.CardInput   `json:"card,omitempty"`
	Mobile   *payment.MobileInput `json:"mobile,omitempty"`
}

// ListMethods returns the selectable payment methods with fees and limits.
func (h *CheckoutHandler) ListMethods(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.registry.Available())
}

func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	resp, err := h.service.Checkout(ctx, checkout.Request{
		UserID:   userID,
		Method:   req.Method,
		Customer: req.Customer,
		Card:     req.Card,
		Mobile:   req.Mobile,
	})
	if err != nil {
		handleCheckoutError(w, err)
		return
	}

	status := http.StatusOK
	if !resp.Result.Success {
		// Recoverable payment failure: the cart is untouched, the client
		// may retry with corrected input or another method
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, status, resp)
}

func handleCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, payment.ErrMethodUnknown):
		respondError(w, http.StatusBadRequest, "method_not_supported", err.Error())
	case errors.Is(err, payment.ErrMethodUnavailable):
		respondError(w, http.StatusBadRequest, "method_unavailable", err.Error())
	case errors.Is(err, payment.ErrAmountOutOfRange):
		respondError(w, http.StatusBadRequest, "amount_out_of_range", err.Error())
	case errors.Is(err, payment.ErrSubmitInFlight):
		respondError(w, http.StatusConflict, "payment_in_progress", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "checkout timed out")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "checkout failed")
	}
}
