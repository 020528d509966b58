package payment

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Customer is the payer data forwarded to a provider.
type Customer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Request is the contract a real integration would satisfy: amount plus
// method-specific input. Exactly one of Card/Mobile is set, or neither for
// redirect-style methods.
type Request struct {
	Amount   int64
	Currency string
	Customer Customer
	Card     *CardInput
	Mobile   *MobileInput
}

// Receipt is the normalized success payload.
type Receipt struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Message       string `json:"message"`

	// Method-specific echo data
	CardBrand   Brand  `json:"card_brand,omitempty"`
	CardLast4   string `json:"card_last4,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Fee         int64  `json:"fee,omitempty"`
}

const StatusCompleted = "completed"

// Provider is the external payment-processing counterpart for one method.
// Simulated here; a production integration swaps in a network client behind
// the same signature.
type Provider interface {
	Method() Method
	Charge(ctx context.Context, req Request) (*Receipt, error)
}

// Simulated provider latencies, matching the rails they stand in for.
const (
	cardDelay   = 2 * time.Second
	paypalDelay = 1500 * time.Millisecond
	mobileDelay = 3 * time.Second
)

// wait sleeps for the simulated provider latency but gives up when the
// caller's context does.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func transactionID(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixMilli())
}

type cardProvider struct{}

func (cardProvider) Method() Method { return MethodCard }

func (cardProvider) Charge(ctx context.Context, req Request) (*Receipt, error) {
	if req.Card == nil {
		return nil, ErrInvalidCard
	}
	if err := req.Card.Validate(time.Now()); err != nil {
		return nil, err
	}
	if err := wait(ctx, cardDelay); err != nil {
		return nil, err
	}
	return &Receipt{
		TransactionID: transactionID("CARD"),
		Status:        StatusCompleted,
		Message:       "card payment approved",
		CardBrand:     CardBrand(req.Card.Number),
		CardLast4:     req.Card.Last4(),
	}, nil
}

type paypalProvider struct{}

func (paypalProvider) Method() Method { return MethodPayPal }

func (paypalProvider) Charge(ctx context.Context, _ Request) (*Receipt, error) {
	// Stands in for the external redirect flow; no local input to check
	if err := wait(ctx, paypalDelay); err != nil {
		return nil, err
	}
	return &Receipt{
		TransactionID: transactionID("PP"),
		Status:        StatusCompleted,
		Message:       "paypal payment approved",
	}, nil
}

type mobileMoneyProvider struct {
	method Method
	prefix string
	fee    int64
}

func (p mobileMoneyProvider) Method() Method { return p.method }

func (p mobileMoneyProvider) Charge(ctx context.Context, req Request) (*Receipt, error) {
	if req.Mobile == nil {
		return nil, ErrInvalidPhone
	}
	if err := ValidateMobileNumber(p.method, req.Mobile.PhoneNumber); err != nil {
		return nil, err
	}
	if err := wait(ctx, mobileDelay); err != nil {
		return nil, err
	}
	return &Receipt{
		TransactionID: transactionID(p.prefix),
		Status:        StatusCompleted,
		Message:       "mobile money payment confirmed",
		PhoneNumber:   req.Mobile.PhoneNumber,
		Fee:           p.fee,
	}, nil
}

// Set holds one provider per method and the cross-method utilities.
type Set struct {
	providers map[Method]Provider
}

// NewSet builds a set from explicit providers; use NewSimulatedSet for the
// built-in simulations.
func NewSet(providers ...Provider) *Set {
	s := &Set{providers: make(map[Method]Provider, len(providers))}
	for _, p := range providers {
		s.providers[p.Method()] = p
	}
	return s
}

// NewSimulatedSet wires the four simulated providers, echoing each mobile
// method's registry fee in its receipts.
func NewSimulatedSet(reg *Registry) *Set {
	omFee, _ := reg.Fees(MethodOrangeMoney)
	mtnFee, _ := reg.Fees(MethodMTNMoney)
	return NewSet(
		cardProvider{},
		paypalProvider{},
		mobileMoneyProvider{method: MethodOrangeMoney, prefix: "OM", fee: omFee},
		mobileMoneyProvider{method: MethodMTNMoney, prefix: "MTN", fee: mtnFee},
	)
}

func (s *Set) Provider(m Method) (Provider, bool) {
	p, ok := s.providers[m]
	return p, ok
}

var ErrTransactionNotFound = errors.New("transaction not found")

// Verify re-checks a finished transaction with its provider (simulated).
func (s *Set) Verify(ctx context.Context, transactionID string) (*Receipt, error) {
	if transactionID == "" {
		return nil, ErrTransactionNotFound
	}
	if err := wait(ctx, time.Second); err != nil {
		return nil, err
	}
	return &Receipt{
		TransactionID: transactionID,
		Status:        StatusCompleted,
		Message:       "transaction verified",
	}, nil
}

// Refund reverses a charge (simulated); the REF_ id identifies the reversal.
func (s *Set) Refund(ctx context.Context, txID string, amount int64) (*Receipt, error) {
	if txID == "" {
		return nil, ErrTransactionNotFound
	}
	if err := wait(ctx, 2*time.Second); err != nil {
		return nil, err
	}
	return &Receipt{
		TransactionID: transactionID("REF"),
		Status:        StatusCompleted,
		Message:       fmt.Sprintf("refunded %d for %s", amount, txID),
	}, nil
}
