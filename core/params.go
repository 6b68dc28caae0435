package core

import (
	"github.com/shopspring/decimal"
)

// RiskParams are the immutable solvency constants of one engine instance.
// LiquidationThreshold/LiquidationPrecision encode the counted fraction of
// collateral value (50/100 requires 200% collateralization); the bonus is the
// liquidator's over-seizure incentive on the same precision scale.
type RiskParams struct {
	LiquidationThreshold decimal.Decimal `json:"liquidationThreshold"`
	LiquidationPrecision decimal.Decimal `json:"liquidationPrecision"`
	LiquidationBonus     decimal.Decimal `json:"liquidationBonus"`
	MinHealthFactor      decimal.Decimal `json:"minHealthFactor"`
}

func DefaultRiskParams() RiskParams {
	return RiskParams{
		LiquidationThreshold: LIQUIDATION_THRESHOLD,
		LiquidationPrecision: LIQUIDATION_PRECISION,
		LiquidationBonus:     LIQUIDATION_BONUS,
		MinHealthFactor:      MIN_HEALTH_FACTOR,
	}
}

func (p RiskParams) Validate() error {
	if !p.LiquidationPrecision.IsPositive() {
		return InvalidRiskParams
	}
	if !p.LiquidationThreshold.IsPositive() || p.LiquidationThreshold.GreaterThan(p.LiquidationPrecision) {
		return InvalidRiskParams
	}
	if p.LiquidationBonus.IsNegative() || p.LiquidationBonus.GreaterThan(p.LiquidationPrecision) {
		return InvalidRiskParams
	}
	if !p.MinHealthFactor.IsPositive() {
		return InvalidRiskParams
	}
	return nil
}
