package cache

import (
	"context"
	"errors"

	"github.com/donaldtakou/huguesfront/internal/domain"
)

// CartCache sits in front of the cart repository, keyed per user. It is an
// accelerator, never the source of truth: a failed or missing entry always
// decays to a repository read.
type CartCache interface {
	// Get returns the cached cart for the user or ErrCacheMiss. Any other
	// error means the cache itself is unhealthy.
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	// Set stores the user's cart with an expiry.
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	// Delete drops the user's entry. Deleting an absent key is not an error.
	Delete(ctx context.Context, userID string) error
}

// ErrCacheMiss covers both an absent entry and one that no longer decodes.
var ErrCacheMiss = errors.New("cart not cached")
