package payment

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidCard aggregates every card field check into a single
	// validation failure.
	ErrInvalidCard  = errors.New("invalid card data")
	ErrInvalidPhone = errors.New("invalid mobile money number")
)

type CardInput struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"` // MM/YY
	CVV    string `json:"cvv"`
	Holder string `json:"holder"`
}

type MobileInput struct {
	PhoneNumber string `json:"phone_number"`
	PIN         string `json:"pin,omitempty"`
}

type Brand string

const (
	BrandVisa       Brand = "Visa"
	BrandMastercard Brand = "Mastercard"
	BrandAmex       Brand = "American Express"
	BrandUnknown    Brand = "Unknown"
)

// CardBrand classifies by leading digit. Display-only, never a validation
// input.
func CardBrand(number string) Brand {
	clean := stripSeparators(number)
	switch {
	case strings.HasPrefix(clean, "4"):
		return BrandVisa
	case strings.HasPrefix(clean, "5"), strings.HasPrefix(clean, "2"):
		return BrandMastercard
	case strings.HasPrefix(clean, "3"):
		return BrandAmex
	}
	return BrandUnknown
}

// Last4 returns the last four digits of the card number for receipts.
func (c CardInput) Last4() string {
	clean := stripSeparators(c.Number)
	if len(clean) < 4 {
		return clean
	}
	return clean[len(clean)-4:]
}

var (
	expiryRe = regexp.MustCompile(`^\d{2}/\d{2}$`)
	cvvRe    = regexp.MustCompile(`^\d{3,4}$`)
	digitsRe = regexp.MustCompile(`^\d+$`)
)

// Validate checks number length, expiry, CVV and holder name against "now".
// All four must pass; any failure collapses into ErrInvalidCard.
func (c CardInput) Validate(now time.Time) error {
	clean := stripSeparators(c.Number)
	if len(clean) < 16 || len(clean) > 19 || !digitsRe.MatchString(clean) {
		return ErrInvalidCard
	}

	if !expiryRe.MatchString(c.Expiry) {
		return ErrInvalidCard
	}
	parts := strings.Split(c.Expiry, "/")
	month, _ := strconv.Atoi(parts[0])
	year, _ := strconv.Atoi(parts[1])
	if month < 1 || month > 12 {
		return ErrInvalidCard
	}
	currentYear := now.Year() % 100
	currentMonth := int(now.Month())
	if year < currentYear || (year == currentYear && month < currentMonth) {
		return ErrInvalidCard
	}

	if !cvvRe.MatchString(c.CVV) {
		return ErrInvalidCard
	}

	if len(strings.TrimSpace(c.Holder)) < 2 {
		return ErrInvalidCard
	}

	return nil
}

// operatorRule is the shape a mobile-money number must have: country prefix
// plus nine digits, with the digit right after the prefix drawn from the
// operator's assigned leading digits.
type operatorRule struct {
	countryPrefix string
	leading       string
}

var operatorRules = map[Method]operatorRule{
	MethodOrangeMoney: {countryPrefix: "237", leading: "6"},
	MethodMTNMoney:    {countryPrefix: "237", leading: "62"},
}

// ValidateMobileNumber checks the number shape for the given mobile method
// after stripping every non-digit.
func ValidateMobileNumber(m Method, phone string) error {
	rule, ok := operatorRules[m]
	if !ok {
		return ErrMethodUnknown
	}

	clean := digitsOnly(phone)
	if len(clean) != len(rule.countryPrefix)+9 {
		return ErrInvalidPhone
	}
	if !strings.HasPrefix(clean, rule.countryPrefix) {
		return ErrInvalidPhone
	}
	operatorDigit := clean[len(rule.countryPrefix)]
	if !strings.ContainsRune(rule.leading, rune(operatorDigit)) {
		return ErrInvalidPhone
	}
	return nil
}

func stripSeparators(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, "-", "")
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
