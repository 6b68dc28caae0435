package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// HealthCalculator scores account solvency. It is a pure read: the same book
// and prices always produce the same factor.
type HealthCalculator struct {
	registry  *AssetRegistry
	valuation *Valuation
	params    RiskParams
}

func NewHealthCalculator(registry *AssetRegistry, valuation *Valuation, params RiskParams) *HealthCalculator {
	return &HealthCalculator{
		registry:  registry,
		valuation: valuation,
		params:    params,
	}
}

// TotalCollateralValue sums the USD value of every registered asset held by
// the account, in registration order.
func (h *HealthCalculator) TotalCollateralValue(ctx context.Context, book *AccountBook) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, asset := range h.registry.List() {
		amount := book.Collateral(asset.Id)
		if amount.IsZero() {
			continue
		}
		value, err := h.valuation.ValueOf(ctx, asset.Id, amount)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(value)
	}
	return total, nil
}

// HealthFactor is the threshold-adjusted collateral value over debt. A
// debt-free account is maximally healthy regardless of collateral.
func (h *HealthCalculator) HealthFactor(ctx context.Context, book *AccountBook) (decimal.Decimal, error) {
	debt := book.Debt()
	if debt.IsZero() {
		return MAX_HEALTH_FACTOR, nil
	}

	totalValue, err := h.TotalCollateralValue(ctx, book)
	if err != nil {
		return decimal.Zero, err
	}

	adjusted, err := DivTrunc(MulTrunc(totalValue, h.params.LiquidationThreshold), h.params.LiquidationPrecision)
	if err != nil {
		return decimal.Zero, err
	}
	return DivTrunc(adjusted, debt)
}

// Check fails with BreaksHealthFactor when the book is below the minimum.
func (h *HealthCalculator) Check(ctx context.Context, book *AccountBook) error {
	hf, err := h.HealthFactor(ctx, book)
	if err != nil {
		return err
	}
	if hf.LessThan(h.params.MinHealthFactor) {
		return BreaksHealthFactor(hf)
	}
	return nil
}
