package repository

import (
	"context"
	"errors"

	"github.com/donaldtakou/huguesfront/internal/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrItemNotFound = errors.New("item not found in cart")
	// ErrCartCorrupt signals a stored cart that no longer decodes. The
	// service layer treats it exactly like an absent cart.
	ErrCartCorrupt = errors.New("stored cart is corrupt")
)

// CartRepository defines the interface for durable cart storage.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	// AddItem merge-increments: an existing line for the same product id
	// gains quantity, a new product id appends a line.
	AddItem(ctx context.Context, userID string, item domain.CartLineItem) error
	// UpdateItemQuantity replaces the line quantity (never increments).
	UpdateItemQuantity(ctx context.Context, userID string, productID string, quantity int) error
	RemoveItem(ctx context.Context, userID string, productID string) error
	DeleteCart(ctx context.Context, userID string) error
}
