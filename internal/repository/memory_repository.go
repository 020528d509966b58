package repository

import (
	"context"
	"sync"
	"time"

	"github.com/donaldtakou/huguesfront/internal/domain"
)

// memoryRepository keeps carts in process memory. It backs tests and local
// runs without Mongo, and carries the same merge semantics as the Mongo
// implementation.
type memoryRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

func NewMemoryRepository() CartRepository {
	return &memoryRepository{carts: make(map[string]*domain.Cart)}
}

func (m *memoryRepository) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cart, ok := m.carts[userID]
	if !ok {
		return nil, ErrCartNotFound
	}
	cp := *cart
	cp.Items = append([]domain.CartLineItem(nil), cart.Items...)
	return &cp, nil
}

func (m *memoryRepository) AddItem(_ context.Context, userID string, item domain.CartLineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	cart, ok := m.carts[userID]
	if !ok {
		item.AddedAt = now
		m.carts[userID] = &domain.Cart{
			UserID:    userID,
			Items:     []domain.CartLineItem{item},
			CreatedAt: now,
			UpdatedAt: now,
		}
		return nil
	}

	for i := range cart.Items {
		if cart.Items[i].ProductID == item.ProductID {
			cart.Items[i].Quantity += item.Quantity
			cart.UpdatedAt = now
			return nil
		}
	}

	item.AddedAt = now
	cart.Items = append(cart.Items, item)
	cart.UpdatedAt = now
	return nil
}

func (m *memoryRepository) UpdateItemQuantity(_ context.Context, userID string, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart, ok := m.carts[userID]
	if !ok {
		return ErrCartNotFound
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity = quantity
			cart.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrItemNotFound
}

func (m *memoryRepository) RemoveItem(_ context.Context, userID string, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart, ok := m.carts[userID]
	if !ok {
		return ErrCartNotFound
	}
	for i, item := range cart.Items {
		if item.ProductID == productID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			cart.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrItemNotFound
}

func (m *memoryRepository) DeleteCart(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.carts[userID]; !ok {
		return ErrCartNotFound
	}
	delete(m.carts, userID)
	return nil
}
