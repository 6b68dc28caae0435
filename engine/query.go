package engine

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/stableforge/core/core"
)

// AccountInfo is the externally visible solvency snapshot of one account.
type AccountInfo struct {
	TotalDebt          decimal.Decimal `json:"totalDebt"`
	CollateralValueUsd decimal.Decimal `json:"collateralValueUsd"`
	HealthFactor       decimal.Decimal `json:"healthFactor"`
}

func (e *Engine) HealthFactor(ctx context.Context, account uuid.UUID) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	book, err := core.LoadAccountBook(ctx, e.clk, e.store, account)
	if err != nil {
		return decimal.Zero, err
	}
	return e.health.HealthFactor(ctx, book)
}

func (e *Engine) AccountInfo(ctx context.Context, account uuid.UUID) (*AccountInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	book, err := core.LoadAccountBook(ctx, e.clk, e.store, account)
	if err != nil {
		return nil, err
	}
	value, err := e.health.TotalCollateralValue(ctx, book)
	if err != nil {
		return nil, err
	}
	hf, err := e.health.HealthFactor(ctx, book)
	if err != nil {
		return nil, err
	}
	return &AccountInfo{
		TotalDebt:          book.Debt(),
		CollateralValueUsd: value,
		HealthFactor:       hf,
	}, nil
}

func (e *Engine) AccountCollateralValue(ctx context.Context, account uuid.UUID) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	book, err := core.LoadAccountBook(ctx, e.clk, e.store, account)
	if err != nil {
		return decimal.Zero, err
	}
	return e.health.TotalCollateralValue(ctx, book)
}

func (e *Engine) CollateralBalance(ctx context.Context, account uuid.UUID, assetId string) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.registry.Get(assetId); err != nil {
		return decimal.Zero, err
	}
	book, err := core.LoadAccountBook(ctx, e.clk, e.store, account)
	if err != nil {
		return decimal.Zero, err
	}
	return book.Collateral(assetId), nil
}

func (e *Engine) UsdValue(ctx context.Context, assetId string, amount decimal.Decimal) (decimal.Decimal, error) {
	return e.valuation.ValueOf(ctx, assetId, amount)
}

func (e *Engine) TokenAmountFromUsd(ctx context.Context, assetId string, usdValue decimal.Decimal) (decimal.Decimal, error) {
	return e.valuation.AmountFor(ctx, assetId, usdValue)
}

// SystemCollateralValue is the USD value of all custody collateral across
// every account. The protocol invariant keeps it at or above PeggedSupply.
func (e *Engine) SystemCollateralValue(ctx context.Context) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := decimal.Zero
	for _, asset := range e.registry.List() {
		deposited, err := e.store.TotalCollateral(ctx, asset.Id)
		if err != nil {
			return decimal.Zero, err
		}
		if deposited.IsZero() {
			continue
		}
		value, err := e.valuation.ValueOf(ctx, asset.Id, deposited)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(value)
	}
	return total, nil
}

func (e *Engine) PeggedSupply(ctx context.Context) (decimal.Decimal, error) {
	return e.token.TotalSupply(ctx)
}
