package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/donaldtakou/huguesfront/internal/cache"
	"github.com/donaldtakou/huguesfront/internal/domain"
	"github.com/donaldtakou/huguesfront/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Service is the single source of truth for a buyer's pending order intent.
// Durable state lives behind the repository; the open/closed drawer flag is
// transient and always starts closed after a restart.
type Service struct {
	repo  repository.CartRepository
	cache cache.CartCache
	sfg   singleflight.Group // Prevents cache stampede

	mu   sync.Mutex
	open map[string]bool
}

func NewService(repo repository.CartRepository, cache cache.CartCache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		open:  make(map[string]bool),
	}
}

// GetCart never fails on missing or unreadable storage: both decay to an
// empty cart for the user.
func (s *Service) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {

		cached, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cached, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Str("user_id", userID).Msg("cache get failed, falling through to repository")
		}

		stored, errGet := s.repo.GetCart(ctx, userID)
		if errGet != nil {
			if errors.Is(errGet, repository.ErrCartNotFound) {
				return emptyCart(userID), nil
			}
			if errors.Is(errGet, repository.ErrCartCorrupt) {
				log.Error().Err(errGet).Str("user_id", userID).Msg("stored cart unreadable, starting empty")
				return emptyCart(userID), nil
			}
			return nil, errGet
		}

		// set cache
		go func() {
			errSet := s.cache.Set(context.Background(), userID, stored)
			if errSet != nil {
				log.Warn().Err(errSet).Str("user_id", userID).Msg("cache set failed")
			}
		}()

		return stored, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem merge-increments: an existing line for the same product gains
// quantity, otherwise a new line with a price snapshot is appended.
// Quantities below 1 are treated as 1.
func (s *Service) AddItem(ctx context.Context, userID string, product domain.ProductSnapshot, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	item := domain.CartLineItem{
		ProductID: product.ID,
		Product:   product,
		Quantity:  quantity,
		AddedAt:   time.Now(),
	}

	if err := s.repo.AddItem(ctx, userID, item); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("product_id", product.ID).Msg("repo add item failed")
		return err
	}

	s.invalidateCache(userID)
	return nil
}

// UpdateQuantity replaces the line quantity. Zero or less removes the line.
// An absent product id is a no-op, not an error.
func (s *Service) UpdateQuantity(ctx context.Context, userID string, productID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	err := s.repo.UpdateItemQuantity(ctx, userID, productID, quantity)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) || errors.Is(err, repository.ErrCartNotFound) {
			return nil
		}
		log.Error().Err(err).Str("user_id", userID).Str("product_id", productID).Msg("repo update quantity failed")
		return err
	}

	s.invalidateCache(userID)
	return nil
}

// RemoveItem deletes the line if present; absent is a no-op.
func (s *Service) RemoveItem(ctx context.Context, userID string, productID string) error {
	err := s.repo.RemoveItem(ctx, userID, productID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) || errors.Is(err, repository.ErrItemNotFound) {
			return nil
		}
		log.Error().Err(err).Str("user_id", userID).Str("product_id", productID).Msg("repo remove item failed")
		return err
	}

	s.invalidateCache(userID)
	return nil
}

// Clear empties the cart unconditionally. A cart that never existed counts
// as cleared.
func (s *Service) Clear(ctx context.Context, userID string) error {
	err := s.repo.DeleteCart(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		log.Error().Err(err).Str("user_id", userID).Msg("repo delete cart failed")
		return err
	}

	s.invalidateCache(userID)
	return nil
}

func (s *Service) TotalItems(ctx context.Context, userID string) (int, error) {
	c, err := s.GetCart(ctx, userID)
	if err != nil {
		return 0, err
	}
	return c.TotalItems(), nil
}

func (s *Service) TotalPrice(ctx context.Context, userID string) (int64, error) {
	c, err := s.GetCart(ctx, userID)
	if err != nil {
		return 0, err
	}
	return c.TotalPrice(), nil
}

func (s *Service) ItemQuantity(ctx context.Context, userID string, productID string) (int, error) {
	c, err := s.GetCart(ctx, userID)
	if err != nil {
		return 0, err
	}
	return c.ItemQuantity(productID), nil
}

// ToggleCart flips the transient visibility flag and returns the new value.
func (s *Service) ToggleCart(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open[userID] = !s.open[userID]
	return s.open[userID]
}

func (s *Service) SetCartOpen(userID string, open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open[userID] = open
}

func (s *Service) IsCartOpen(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open[userID]
}

func (s *Service) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("cache invalidate failed")
	}
}

func emptyCart(userID string) *domain.Cart {
	now := time.Now()
	return &domain.Cart{
		UserID:    userID,
		Items:     nil,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
