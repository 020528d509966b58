package payment

import "errors"

// Method identifies one of the supported payment rails. The set is closed;
// anything else fails before a provider is ever consulted.
type Method string

const (
	MethodCard        Method = "card"
	MethodPayPal      Method = "paypal"
	MethodOrangeMoney Method = "orange_money"
	MethodMTNMoney    Method = "mtn_money"
)

func (m Method) Known() bool {
	switch m {
	case MethodCard, MethodPayPal, MethodOrangeMoney, MethodMTNMoney:
		return true
	}
	return false
}

func (m Method) String() string {
	return string(m)
}

// Mobile reports whether the method is a mobile-money rail.
func (m Method) Mobile() bool {
	return m == MethodOrangeMoney || m == MethodMTNMoney
}

// Limits bound the payable amount for a method, in minor units, inclusive.
type Limits struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

type Descriptor struct {
	ID          Method `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// FeeFixed is the flat surcharge the method adds to the payable amount.
	FeeFixed  int64  `json:"fee"`
	Limits    Limits `json:"limits"`
	Available bool   `json:"available"`
}

var (
	ErrMethodUnknown     = errors.New("payment method not supported")
	ErrMethodUnavailable = errors.New("payment method unavailable")
	ErrAmountOutOfRange  = errors.New("amount outside method limits")
)

// Registry is the static catalog of payment methods. It is immutable after
// construction.
type Registry struct {
	methods map[Method]Descriptor
	order   []Method
}

func NewRegistry(descriptors ...Descriptor) *Registry {
	r := &Registry{methods: make(map[Method]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if _, dup := r.methods[d.ID]; dup {
			continue
		}
		r.methods[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	return r
}

// DefaultRegistry carries the storefront's four methods with their fees and
// limits in minor XAF units.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Descriptor{
			ID:          MethodCard,
			Name:        "Carte Bancaire",
			Description: "Visa, Mastercard, American Express",
			FeeFixed:    0,
			Limits:      Limits{Min: 1000, Max: 5000000},
			Available:   true,
		},
		Descriptor{
			ID:          MethodPayPal,
			Name:        "PayPal",
			Description: "Paiement sécurisé avec votre compte PayPal",
			FeeFixed:    0,
			Limits:      Limits{Min: 1000, Max: 3000000},
			Available:   true,
		},
		Descriptor{
			ID:          MethodOrangeMoney,
			Name:        "Orange Money",
			Description: "Paiement mobile Orange Money",
			FeeFixed:    50,
			Limits:      Limits{Min: 100, Max: 2000000},
			Available:   true,
		},
		Descriptor{
			ID:          MethodMTNMoney,
			Name:        "MTN Money",
			Description: "Paiement mobile MTN Money",
			FeeFixed:    50,
			Limits:      Limits{Min: 100, Max: 1500000},
			Available:   true,
		},
	)
}

func (r *Registry) Descriptor(m Method) (Descriptor, error) {
	d, ok := r.methods[m]
	if !ok {
		return Descriptor{}, ErrMethodUnknown
	}
	return d, nil
}

// Available returns the selectable descriptors in registration order.
func (r *Registry) Available() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, m := range r.order {
		if d := r.methods[m]; d.Available {
			out = append(out, d)
		}
	}
	return out
}

func (r *Registry) Fees(m Method) (int64, error) {
	d, err := r.Descriptor(m)
	if err != nil {
		return 0, err
	}
	return d.FeeFixed, nil
}

func (r *Registry) Limits(m Method) (Limits, error) {
	d, err := r.Descriptor(m)
	if err != nil {
		return Limits{}, err
	}
	return d.Limits, nil
}

// CheckAmount rejects unknown methods, disabled methods and amounts outside
// the method's limits.
func (r *Registry) CheckAmount(m Method, amount int64) error {
	d, ok := r.methods[m]
	if !ok {
		return ErrMethodUnknown
	}
	if !d.Available {
		return ErrMethodUnavailable
	}
	if amount < d.Limits.Min || amount > d.Limits.Max {
		return ErrAmountOutOfRange
	}
	return nil
}
