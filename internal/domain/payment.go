package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentMethod is the closed set of tenders accepted at the stand.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentToken  PaymentMethod = "token"
	PaymentCheck  PaymentMethod = "check"
	PaymentPaypal PaymentMethod = "paypal"
	PaymentWero   PaymentMethod = "wero"
)

// PaymentMethods lists every method in display order.
var PaymentMethods = []PaymentMethod{
	PaymentCash,
	PaymentCard,
	PaymentToken,
	PaymentCheck,
	PaymentPaypal,
	PaymentWero,
}

var (
	cardFeeRate    = decimal.RequireFromString("0.0175")
	paypalFeeRate  = decimal.RequireFromString("0.029")
	paypalFixedFee = decimal.RequireFromString("0.35")
)

var ErrUnknownPaymentMethod = errors.New("unsupported payment method")

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	method := PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	if !method.Valid() {
		return "", fmt.Errorf("%w %q", ErrUnknownPaymentMethod, raw)
	}
	return method, nil
}

func (m PaymentMethod) Valid() bool {
	for _, known := range PaymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

func (m PaymentMethod) IsCash() bool {
	return m == PaymentCash
}

// Fee estimates the processor fee charged on a single transaction of the
// given amount. Card rails take 1.75%; PayPal takes 2.9% plus 0.35 per
// transaction with a positive amount. Other methods carry no fee.
func (m PaymentMethod) Fee(amount decimal.Decimal) decimal.Decimal {
	switch m {
	case PaymentCard:
		return amount.Mul(cardFeeRate)
	case PaymentPaypal:
		if !amount.IsPositive() {
			return decimal.Zero
		}
		return amount.Mul(paypalFeeRate).Add(paypalFixedFee)
	default:
		return decimal.Zero
	}
}

func (m PaymentMethod) Label() string {
	switch m {
	case PaymentCash:
		return "Espèces"
	case PaymentCard:
		return "Carte"
	case PaymentToken:
		return "Jetons"
	case PaymentCheck:
		return "Chèque"
	case PaymentPaypal:
		return "PayPal"
	case PaymentWero:
		return "Wero"
	default:
		return string(m)
	}
}
