package engine

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/stableforge/core/core"
)

// Liquidate seizes collateral from an unhealthy target in exchange for the
// liquidator covering part of its debt, plus a bonus on the seized amount.
//
// The transition: eligibility check, seizure computation, seize, repay, then
// two post-checks. The target's health factor must strictly increase, and the
// liquidator must not leave itself below the minimum. Seized collateral is
// released from custody directly to the liquidator; partial cover is allowed
// and the seizure is bounded only by the target's deposited balance.
func (e *Engine) Liquidate(ctx context.Context, liquidator, target uuid.UUID, assetId string, debtToCover decimal.Decimal) (*core.LiquidationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	targetBook, err := e.loadBookForAsset(ctx, target, assetId, debtToCover)
	if err != nil {
		return nil, err
	}

	preHealth, err := e.health.HealthFactor(ctx, targetBook)
	if err != nil {
		return nil, err
	}
	if preHealth.GreaterThanOrEqual(e.params.MinHealthFactor) {
		return nil, core.HealthFactorOK
	}

	seized, err := e.valuation.AmountFor(ctx, assetId, debtToCover)
	if err != nil {
		return nil, err
	}
	bonus, err := core.DivTrunc(core.MulTrunc(seized, e.params.LiquidationBonus), e.params.LiquidationPrecision)
	if err != nil {
		return nil, err
	}
	totalSeized := seized.Add(bonus)

	if targetBook.Collateral(assetId).LessThan(totalSeized) {
		return nil, core.NotEnoughCollateralToRedeem
	}
	if err := targetBook.DebitCollateral(assetId, totalSeized); err != nil {
		return nil, err
	}
	if err := targetBook.DebitDebt(debtToCover); err != nil {
		return nil, err
	}

	postHealth, err := e.health.HealthFactor(ctx, targetBook)
	if err != nil {
		return nil, err
	}
	if postHealth.LessThanOrEqual(preHealth) {
		return nil, core.HealthFactorNotImproved
	}

	liquidatorBook := targetBook
	if liquidator != target {
		liquidatorBook, err = core.LoadAccountBook(ctx, e.clk, e.store, liquidator)
		if err != nil {
			return nil, err
		}
	}
	if err := e.health.Check(ctx, liquidatorBook); err != nil {
		return nil, err
	}

	actions := []action{
		{
			name: "token burn",
			run: func(ctx context.Context) error {
				return e.token.Burn(ctx, liquidator, debtToCover)
			},
			undo: func(ctx context.Context) error {
				return e.token.Mint(ctx, liquidator, debtToCover)
			},
		},
		{
			name: "vault release",
			run: func(ctx context.Context) error {
				return e.vault.Release(ctx, liquidator, assetId, totalSeized)
			},
			undo: func(ctx context.Context) error {
				return e.vault.Pull(ctx, liquidator, assetId, totalSeized)
			},
		},
	}
	if err := e.commit(ctx, targetBook, actions, "liquidate"); err != nil {
		return nil, err
	}

	result := &core.LiquidationResult{
		Liquidator:       liquidator,
		Target:           target,
		AssetId:          assetId,
		DebtCovered:      debtToCover,
		SeizedAmount:     seized,
		Bonus:            bonus,
		TotalSeized:      totalSeized,
		TargetPreHealth:  preHealth,
		TargetPostHealth: postHealth,
	}
	e.log.Info().
		Str("target", target.String()).
		Str("liquidator", liquidator.String()).
		Str("totalSeized", totalSeized.String()).
		Str("preHealth", preHealth.String()).
		Str("postHealth", postHealth.String()).
		Msg("liquidation settled")
	return result, nil
}
