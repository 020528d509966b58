package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// State of a payment session.
type State string

const (
	StateSelecting  State = "SELECTING_METHOD"
	StateCapturing  State = "CAPTURING_DETAILS"
	StateProcessing State = "PROCESSING"
	StateSucceeded  State = "SUCCEEDED"
	StateFailed     State = "FAILED"
)

func (s State) Terminal() bool {
	return s == StateSucceeded
}

func (s State) String() string {
	return string(s)
}

// FailureKind classifies a non-success result. Validation and provider
// failures are recoverable; the session stays editable.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureValidation  FailureKind = "validation"
	FailureProvider    FailureKind = "provider"
	FailureUnsupported FailureKind = "unsupported_method"
)

// Result is the normalized outcome of a Submit. Validation and provider
// failures come back here, never as Go errors, so callers can render them
// inline and retry.
type Result struct {
	Success bool        `json:"success"`
	Kind    FailureKind `json:"kind,omitempty"`
	Message string      `json:"message"`
	Receipt *Receipt    `json:"receipt,omitempty"`
}

var (
	ErrSubmitInFlight  = errors.New("submit already in flight")
	ErrSessionClosed   = errors.New("payment session closed")
	ErrNotCapturing    = errors.New("no method selected")
	ErrSessionFinished = errors.New("payment session already succeeded")
)

const defaultSubmitTimeout = 10 * time.Second

// Session drives one payment attempt from method selection to a terminal
// success. The amount is fixed at creation. All methods are safe for
// concurrent use; at most one provider call is ever in flight.
type Session struct {
	mu sync.Mutex

	id       string
	amount   int64
	currency string
	customer Customer

	registry  *Registry
	providers *Set
	timeout   time.Duration

	state  State
	method Method
	card   CardInput
	mobile MobileInput
	last   *Result
	closed bool
}

type SessionOption func(*Session)

// WithSubmitTimeout bounds each provider call's wall-clock time; expiry
// surfaces as a provider failure.
func WithSubmitTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.timeout = d }
}

func NewSession(reg *Registry, providers *Set, amount int64, currency string, customer Customer, opts ...SessionOption) *Session {
	s := &Session{
		id:        uuid.NewString(),
		amount:    amount,
		currency:  currency,
		customer:  customer,
		registry:  reg,
		providers: providers,
		timeout:   defaultSubmitTimeout,
		state:     StateSelecting,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Amount() int64 { return s.amount }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Method() Method {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.method
}

// LastResult returns the most recent Submit outcome, success or failure.
func (s *Session) LastResult() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// TotalWithFee is the amount the selected method will actually charge.
func (s *Session) TotalWithFee() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fee, err := s.registry.Fees(s.method); err == nil {
		return s.amount + fee
	}
	return s.amount
}

// SelectMethod moves the session to detail capture. It rejects unknown and
// disabled methods and methods whose limits exclude the session amount, and
// resets any previously captured input. Allowed from any non-processing,
// non-terminal state.
func (s *Session) SelectMethod(m Method) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	switch s.state {
	case StateProcessing:
		return ErrSubmitInFlight
	case StateSucceeded:
		return ErrSessionFinished
	}

	if err := s.registry.CheckAmount(m, s.amount); err != nil {
		return err
	}

	s.method = m
	s.card = CardInput{}
	s.mobile = MobileInput{}
	s.state = StateCapturing
	return nil
}

// SetCardInput captures card fields; only meaningful while capturing.
func (s *Session) SetCardInput(in CardInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.state != StateCapturing {
		return ErrNotCapturing
	}
	s.card = in
	return nil
}

func (s *Session) SetMobileInput(in MobileInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.state != StateCapturing {
		return ErrNotCapturing
	}
	s.mobile = in
	return nil
}

// Submit validates the captured input and, if it passes, runs the provider
// call. Validation and provider failures are returned as a failed Result
// with the session back in the capturing state; the returned error is
// reserved for misuse (no method selected, a submit already in flight, a
// closed session).
func (s *Session) Submit(ctx context.Context) (*Result, error) {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	switch s.state {
	case StateProcessing:
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	case StateSucceeded:
		s.mu.Unlock()
		return nil, ErrSessionFinished
	case StateSelecting:
		s.mu.Unlock()
		return nil, ErrNotCapturing
	}

	method := s.method
	if !method.Known() {
		res := s.failLocked(FailureUnsupported, "payment method not supported")
		s.mu.Unlock()
		return res, nil
	}

	if err := s.registry.CheckAmount(method, s.amount); err != nil {
		res := s.failLocked(FailureValidation, err.Error())
		s.mu.Unlock()
		return res, nil
	}

	req := Request{
		Amount:   s.amount,
		Currency: s.currency,
		Customer: s.customer,
	}
	switch {
	case method == MethodCard:
		if err := s.card.Validate(time.Now()); err != nil {
			res := s.failLocked(FailureValidation, err.Error())
			s.mu.Unlock()
			return res, nil
		}
		card := s.card
		req.Card = &card
	case method.Mobile():
		if err := ValidateMobileNumber(method, s.mobile.PhoneNumber); err != nil {
			res := s.failLocked(FailureValidation, err.Error())
			s.mu.Unlock()
			return res, nil
		}
		mobile := s.mobile
		req.Mobile = &mobile
	}

	provider, ok := s.providers.Provider(method)
	if !ok {
		res := s.failLocked(FailureUnsupported, "payment method not supported")
		s.mu.Unlock()
		return res, nil
	}

	s.state = StateProcessing
	s.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	receipt, err := provider.Charge(callCtx, req)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		// The session was abandoned mid-processing; the resolution is
		// discarded without touching state.
		log.Debug().Str("session_id", s.id).Msg("discarding provider result for closed session")
		return nil, ErrSessionClosed
	}

	if err != nil {
		// Momentary FAILED, then back to capturing so the attempt can be
		// retried with corrected input or another method.
		s.state = StateFailed
		res := &Result{Kind: FailureProvider, Message: err.Error()}
		s.last = res
		s.state = StateCapturing
		return res, nil
	}

	res := &Result{Success: true, Message: receipt.Message, Receipt: receipt}
	s.last = res
	s.state = StateSucceeded
	return res, nil
}

// Reset returns the session to method selection, dropping captured input and
// any prior result. Rejected mid-processing.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.state == StateProcessing {
		return ErrSubmitInFlight
	}
	s.method = ""
	s.card = CardInput{}
	s.mobile = MobileInput{}
	s.last = nil
	s.state = StateSelecting
	return nil
}

// Close abandons the session. An in-flight provider call may still resolve;
// its result is discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// failLocked records a recoverable failure and keeps the session editable.
// Callers must hold s.mu.
func (s *Session) failLocked(kind FailureKind, msg string) *Result {
	res := &Result{Kind: kind, Message: msg}
	s.last = res
	s.state = StateCapturing
	return res
}
