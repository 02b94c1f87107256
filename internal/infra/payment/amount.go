package payment

import (
	"fmt"

	"comics-commerce/internal/domain"

	"github.com/shopspring/decimal"
)

// minorExp is the number of fractional digits of every supported currency.
const minorExp = 2

// toMinor converts a gateway amount string ("500.00") into minor units.
// More than two fractional digits is an error, not a rounding.
func toMinor(value string) (int64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", value, domain.ErrInvalidArgument)
	}
	m := d.Shift(minorExp)
	if !m.Equal(m.Truncate(0)) || m.IsNegative() {
		return 0, fmt.Errorf("amount %q: %w", value, domain.ErrInvalidArgument)
	}
	return m.IntPart(), nil
}

// fromMinor formats minor units the way the gateway expects them.
func fromMinor(amount int64) string {
	return decimal.New(amount, -minorExp).StringFixed(minorExp)
}
