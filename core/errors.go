package core

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Validation failures, rejected before any mutation.
var (
	InvalidAmount         = errors.New("amount must be positive")
	AssetNotRegistered    = errors.New("asset not registered")
	MismatchedAssetConfig = errors.New("asset and oracle arrays must have the same length")
	DuplicateAsset        = errors.New("asset registered twice")
	InvalidRiskParams     = errors.New("invalid risk parameters")
)

// Ledger primitive failures.
var (
	CollateralUnderflow = errors.New("collateral debit exceeds balance")
	DebtUnderflow       = errors.New("debt debit exceeds balance")
	DivisionByZero      = errors.New("division by zero")
)

// Oracle failures.
var (
	StalePrice   = errors.New("oracle price is stale")
	InvalidPrice = errors.New("oracle price is not positive")
)

// Liquidation policy violations.
var (
	HealthFactorOK              = errors.New("target health factor is not below minimum")
	NotEnoughCollateralToRedeem = errors.New("target collateral below total seizure")
	HealthFactorNotImproved     = errors.New("liquidation did not improve target health factor")
)

// BreaksHealthFactorError reports a mutation that would leave the account
// below the minimum health factor. The whole operation is rolled back.
type BreaksHealthFactorError struct {
	HealthFactor decimal.Decimal
}

func (e BreaksHealthFactorError) Error() string {
	return fmt.Sprintf("operation breaks health factor: %s", e.HealthFactor)
}

func BreaksHealthFactor(hf decimal.Decimal) error {
	return BreaksHealthFactorError{HealthFactor: hf}
}

// IsBreaksHealthFactor reports whether err is a health-factor violation and
// returns the offending factor.
func IsBreaksHealthFactor(err error) (decimal.Decimal, bool) {
	var bhf BreaksHealthFactorError
	if errors.As(err, &bhf) {
		return bhf.HealthFactor, true
	}
	return decimal.Zero, false
}
