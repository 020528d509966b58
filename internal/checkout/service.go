package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/donaldtakou/huguesfront/internal/domain"
	"github.com/donaldtakou/huguesfront/internal/payment"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

// CartStore is what checkout needs from the cart service.
// Consumers define this interface, not the cart implementation.
type CartStore interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	Clear(ctx context.Context, userID string) error
}

type Service struct {
	carts     CartStore
	registry  *payment.Registry
	providers *payment.Set
	repo      RepoInterface
	currency  string
}

func NewService(carts CartStore, registry *payment.Registry, providers *payment.Set, repo RepoInterface, currency string) *Service {
	return &Service{
		carts:     carts,
		registry:  registry,
		providers: providers,
		repo:      repo,
		currency:  currency,
	}
}

type Request struct {
	UserID   string
	Method   payment.Method
	Customer payment.Customer
	Card     *payment.CardInput
	Mobile   *payment.MobileInput
}

type Response struct {
	OrderID string          `json:"order_id,omitempty"`
	Amount  int64           `json:"amount"`
	Fee     int64           `json:"fee"`
	Total   int64           `json:"total"`
	Result  *payment.Result `json:"result"`
}

// Checkout snapshots the cart, drives a full payment session for its total
// and, only when the payment succeeds, persists the order and clears the
// cart. A failed payment returns the failure in Response.Result and leaves
// the cart untouched.
func (s *Service) Checkout(ctx context.Context, req Request) (*Response, error) {
	c, err := s.carts.GetCart(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	snapshot := SnapshotCart(c, s.currency)
	amount := snapshot.TotalAmount

	sess := payment.NewSession(s.registry, s.providers, amount, s.currency, req.Customer)
	if err := sess.SelectMethod(req.Method); err != nil {
		return nil, err
	}
	switch {
	case req.Card != nil:
		if err := sess.SetCardInput(*req.Card); err != nil {
			return nil, err
		}
	case req.Mobile != nil:
		if err := sess.SetMobileInput(*req.Mobile); err != nil {
			return nil, err
		}
	}

	result, err := sess.Submit(ctx)
	if err != nil {
		return nil, err
	}

	fee, _ := s.registry.Fees(req.Method)
	resp := &Response{
		Amount: amount,
		Fee:    fee,
		Total:  amount + fee,
		Result: result,
	}

	if !result.Success {
		log.Info().
			Str("user_id", req.UserID).
			Str("method", req.Method.String()).
			Str("kind", string(result.Kind)).
			Msg("checkout payment did not complete")
		return resp, nil
	}

	order := &Order{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		Amount:        amount,
		Fee:           fee,
		Total:         amount + fee,
		Method:        req.Method.String(),
		TransactionID: result.Receipt.TransactionID,
		Status:        OrderStatusCompleted,
	}
	order.CartSnapshot, err = json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"order_id":       order.ID,
		"user_id":        order.UserID,
		"items":          snapshot.Items,
		"total_amount":   order.Total,
		"currency":       snapshot.Currency,
		"method":         order.Method,
		"transaction_id": order.TransactionID,
		"completed_at":   time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order payload: %w", err)
	}

	if err := s.repo.CreateOrder(ctx, order, payload); err != nil {
		return nil, err
	}

	// Payment confirmation is the single trigger for emptying the cart.
	// The order is durable at this point, so a failed clear is logged and
	// retried by the user, not treated as a checkout failure.
	if err := s.carts.Clear(ctx, req.UserID); err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Str("order_id", order.ID).Msg("failed to clear cart after checkout")
	}

	resp.OrderID = order.ID
	return resp, nil
}
