package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/donaldtakou/huguesfront/internal/cart"
	"github.com/donaldtakou/huguesfront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	carts   *cart.Service
	timeout time.Duration
}

func NewCartHandler(carts *cart.Service, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	Product  domain.ProductSnapshot `json:"product"`
	Quantity int                    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponseDTO struct {
	Cart       *domain.Cart `json:"cart"`
	TotalItems int          `json:"total_items"`
	TotalPrice int64        `json:"total_price"`
	IsOpen     bool         `json:"is_open"`
}

func (h *CartHandler) respondCart(ctx context.Context, w http.ResponseWriter, status int, userID string) {
	c, err := h.carts.GetCart(ctx, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load cart")
		return
	}
	respondJSON(w, status, CartResponseDTO{
		Cart:       c,
		TotalItems: c.TotalItems(),
		TotalPrice: c.TotalPrice(),
		IsOpen:     h.carts.IsCartOpen(userID),
	})
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	h.respondCart(ctx, w, http.StatusOK, userID)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Product.ID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product id is required")
		return
	}
	if req.Product.Price < 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "product price must not be negative")
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	if err := h.carts.AddItem(ctx, userID, req.Product, req.Quantity); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to add item")
		return
	}

	h.respondCart(ctx, w, http.StatusCreated, userID)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	// quantity <= 0 removes the line, mirroring the store semantics
	if err := h.carts.UpdateQuantity(ctx, userID, productID, req.Quantity); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update quantity")
		return
	}

	h.respondCart(ctx, w, http.StatusOK, userID)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product id is required")
		return
	}

	if err := h.carts.RemoveItem(ctx, userID, productID); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to remove item")
		return
	}

	h.respondCart(ctx, w, http.StatusOK, userID)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := h.carts.Clear(ctx, userID); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to clear cart")
		return
	}

	h.respondCart(ctx, w, http.StatusOK, userID)
}

func (h *CartHandler) ToggleCart(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	open := h.carts.ToggleCart(userID)
	respondJSON(w, http.StatusOK, map[string]bool{"is_open": open})
}
