package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Bounds for every monetary amount accepted from outside the process.
const (
	MaxAmountScale    = 8
	maxAmountExponent = 15
)

// MaxAmount is the largest accepted amount.
var MaxAmount = decimal.New(1, maxAmountExponent)

// CheckAmount rejects amounts that are too large or too precise. The
// exponent is checked before anything that rescales the value, since a
// rescale materialises every digit.
func CheckAmount(d decimal.Decimal) error {
	exp := d.Exponent()
	if exp > maxAmountExponent {
		return fmt.Errorf("%w: amount exceeds %s", ErrValidation, MaxAmount)
	}
	if exp < -MaxAmountScale {
		return fmt.Errorf("%w: amount has more than %d decimal places", ErrValidation, MaxAmountScale)
	}
	if d.Abs().GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: amount exceeds %s", ErrValidation, MaxAmount)
	}
	return nil
}

// ParseAmount parses s and applies CheckAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not a number", ErrValidation, s)
	}
	if err := CheckAmount(d); err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}
