package core

import (
	"github.com/shopspring/decimal"
)

// The ledger models 18-decimal fixed-point integers. decimal.Decimal gives us
// exact products, but quotients must truncate toward zero at the ledger scale
// or boundary conditions drift (a debt one smallest unit over the threshold
// has to produce a health factor strictly below one).

// MulTrunc multiplies and truncates the product to the ledger scale.
func MulTrunc(a, b decimal.Decimal) decimal.Decimal {
	return a.Mul(b).Truncate(Decimals)
}

// DivTrunc divides and truncates the quotient toward zero at the ledger
// scale. QuoRem keeps the remainder off the quotient instead of rounding it
// in, which is what plain Div would do.
func DivTrunc(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, DivisionByZero
	}
	q, _ := a.QuoRem(b, Decimals)
	return q, nil
}
