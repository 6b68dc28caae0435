package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// Valuation converts asset amounts to USD values and back through each
// asset's oracle. It holds no state beyond the registry reference.
type Valuation struct {
	registry *AssetRegistry
}

func NewValuation(registry *AssetRegistry) *Valuation {
	return &Valuation{registry: registry}
}

func (v *Valuation) price(ctx context.Context, assetId string) (decimal.Decimal, error) {
	asset, err := v.registry.Get(assetId)
	if err != nil {
		return decimal.Zero, err
	}
	data, err := asset.Oracle.Price(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if !data.Price.IsPositive() {
		return decimal.Zero, InvalidPrice
	}
	return data.Price, nil
}

// ValueOf returns the USD value of an asset amount, truncated to the ledger
// scale.
func (v *Valuation) ValueOf(ctx context.Context, assetId string, amount decimal.Decimal) (decimal.Decimal, error) {
	price, err := v.price(ctx, assetId)
	if err != nil {
		return decimal.Zero, err
	}
	return MulTrunc(amount, price), nil
}

// AmountFor returns the asset amount worth usdValue, truncated toward zero.
// It is the inverse of ValueOf up to one smallest ledger unit.
func (v *Valuation) AmountFor(ctx context.Context, assetId string, usdValue decimal.Decimal) (decimal.Decimal, error) {
	price, err := v.price(ctx, assetId)
	if err != nil {
		return decimal.Zero, err
	}
	return DivTrunc(usdValue, price)
}
