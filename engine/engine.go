// Package engine hosts the mutating entry points of the issuance core. Every
// operation runs under an exclusive guard and follows the same shape: load
// the account book, apply ledger primitives and invariant checks against the
// in-memory book, then run the external capability calls, then persist. An
// operation that fails at any point leaves no observable ledger change;
// external calls already executed are compensated in reverse order.
package engine

import (
	"context"
	"sync"

	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/stableforge/core/core"
)

type Engine struct {
	mu sync.Mutex

	log core.Log
	clk clock.Clock

	params    core.RiskParams
	registry  *core.AssetRegistry
	store     core.LedgerStore
	token     core.TokenLedger
	vault     core.Vault
	valuation *core.Valuation
	health    *core.HealthCalculator
}

type Config struct {
	// AssetIds and Oracles are paired positionally; mismatched lengths are
	// rejected at construction.
	AssetIds []string
	Oracles  []core.PriceOracle

	// Params defaults to core.DefaultRiskParams when zero.
	Params core.RiskParams
}

type OptionFunc func(e *Engine)

func WithClock(clk clock.Clock) OptionFunc {
	return func(e *Engine) {
		e.clk = clk
	}
}

func WithLog(log core.Log) OptionFunc {
	return func(e *Engine) {
		e.log = log
	}
}

func New(cfg Config, store core.LedgerStore, token core.TokenLedger, vault core.Vault, opts ...OptionFunc) (*Engine, error) {
	registry, err := core.NewAssetRegistry(cfg.AssetIds, cfg.Oracles)
	if err != nil {
		return nil, err
	}

	params := cfg.Params
	if params == (core.RiskParams{}) {
		params = core.DefaultRiskParams()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	valuation := core.NewValuation(registry)
	nop := zerolog.Nop()
	e := &Engine{
		log:       &nop,
		clk:       clock.New(),
		params:    params,
		registry:  registry,
		store:     store,
		token:     token,
		vault:     vault,
		valuation: valuation,
		health:    core.NewHealthCalculator(registry, valuation, params),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// action is one external capability call of an operation, paired with the
// call that undoes it if a later action fails.
type action struct {
	name string
	run  func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// Deposit credits collateral and pulls the underlying asset into custody.
// Deposits only improve solvency, so no health check runs.
func (e *Engine) Deposit(ctx context.Context, account uuid.UUID, assetId string, amount decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	book, err := e.loadBookForAsset(ctx, account, assetId, amount)
	if err != nil {
		return err
	}
	actions, err := e.deposit(ctx, book, assetId, amount)
	if err != nil {
		return err
	}
	return e.commit(ctx, book, actions, "deposit")
}

// Withdraw debits collateral, re-checks the health factor, and releases the
// underlying asset back to the account.
func (e *Engine) Withdraw(ctx context.Context, account uuid.UUID, assetId string, amount decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	book, err := e.loadBookForAsset(ctx, account, assetId, amount)
	if err != nil {
		return err
	}
	actions, err := e.withdraw(ctx, book, assetId, amount)
	if err != nil {
		return err
	}
	return e.commit(ctx, book, actions, "withdraw")
}

// Borrow credits debt, re-checks the health factor, and mints the pegged
// token to the account.
func (e *Engine) Borrow(ctx context.Context, account uuid.UUID, amount decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	book, err := e.loadBook(ctx, account, amount)
	if err != nil {
		return err
	}
	actions, err := e.borrow(ctx, book, amount)
	if err != nil {
		return err
	}
	return e.commit(ctx, book, actions, "borrow")
}

// Repay pulls the pegged token from the account, burns it, and debits debt.
// A failed pull aborts before any ledger row is persisted.
func (e *Engine) Repay(ctx context.Context, account uuid.UUID, amount decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	book, err := e.loadBook(ctx, account, amount)
	if err != nil {
		return err
	}
	actions, err := e.repay(ctx, book, amount)
	if err != nil {
		return err
	}
	return e.commit(ctx, book, actions, "repay")
}

// DepositAndBorrow composes deposit and borrow over one book, all or nothing.
func (e *Engine) DepositAndBorrow(ctx context.Context, account uuid.UUID, assetId string, collateralAmount, debtAmount decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	book, err := e.loadBookForAsset(ctx, account, assetId, collateralAmount)
	if err != nil {
		return err
	}
	if !debtAmount.IsPositive() {
		return core.InvalidAmount
	}
	depositActions, err := e.deposit(ctx, book, assetId, collateralAmount)
	if err != nil {
		return err
	}
	borrowActions, err := e.borrow(ctx, book, debtAmount)
	if err != nil {
		return err
	}
	return e.commit(ctx, book, append(depositActions, borrowActions...), "depositAndBorrow")
}

// RepayAndWithdraw composes repay and withdraw over one book, all or nothing.
func (e *Engine) RepayAndWithdraw(ctx context.Context, account uuid.UUID, assetId string, collateralAmount, debtAmount decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	book, err := e.loadBookForAsset(ctx, account, assetId, collateralAmount)
	if err != nil {
		return err
	}
	if !debtAmount.IsPositive() {
		return core.InvalidAmount
	}
	repayActions, err := e.repay(ctx, book, debtAmount)
	if err != nil {
		return err
	}
	withdrawActions, err := e.withdraw(ctx, book, assetId, collateralAmount)
	if err != nil {
		return err
	}
	return e.commit(ctx, book, append(repayActions, withdrawActions...), "repayAndWithdraw")
}

// ------------ internal single-step transitions, shared by the compositions.
// Each mutates the book, runs its invariant check, and returns the deferred
// external calls; nothing external happens until every step has passed.

func (e *Engine) deposit(ctx context.Context, book *core.AccountBook, assetId string, amount decimal.Decimal) ([]action, error) {
	if err := book.CreditCollateral(assetId, amount); err != nil {
		return nil, err
	}
	account := book.AccountId
	return []action{{
		name: "vault pull",
		run: func(ctx context.Context) error {
			return e.vault.Pull(ctx, account, assetId, amount)
		},
		undo: func(ctx context.Context) error {
			return e.vault.Release(ctx, account, assetId, amount)
		},
	}}, nil
}

func (e *Engine) withdraw(ctx context.Context, book *core.AccountBook, assetId string, amount decimal.Decimal) ([]action, error) {
	if err := book.DebitCollateral(assetId, amount); err != nil {
		return nil, err
	}
	if err := e.health.Check(ctx, book); err != nil {
		return nil, err
	}
	account := book.AccountId
	return []action{{
		name: "vault release",
		run: func(ctx context.Context) error {
			return e.vault.Release(ctx, account, assetId, amount)
		},
		undo: func(ctx context.Context) error {
			return e.vault.Pull(ctx, account, assetId, amount)
		},
	}}, nil
}

func (e *Engine) borrow(ctx context.Context, book *core.AccountBook, amount decimal.Decimal) ([]action, error) {
	if err := book.CreditDebt(amount); err != nil {
		return nil, err
	}
	if err := e.health.Check(ctx, book); err != nil {
		return nil, err
	}
	account := book.AccountId
	return []action{{
		name: "token mint",
		run: func(ctx context.Context) error {
			return e.token.Mint(ctx, account, amount)
		},
		undo: func(ctx context.Context) error {
			return e.token.Burn(ctx, account, amount)
		},
	}}, nil
}

func (e *Engine) repay(ctx context.Context, book *core.AccountBook, amount decimal.Decimal) ([]action, error) {
	if err := book.DebitDebt(amount); err != nil {
		return nil, err
	}
	account := book.AccountId
	return []action{{
		name: "token burn",
		run: func(ctx context.Context) error {
			return e.token.Burn(ctx, account, amount)
		},
		undo: func(ctx context.Context) error {
			return e.token.Mint(ctx, account, amount)
		},
	}}, nil
}

func (e *Engine) loadBook(ctx context.Context, account uuid.UUID, amount decimal.Decimal) (*core.AccountBook, error) {
	if !amount.IsPositive() {
		return nil, core.InvalidAmount
	}
	return core.LoadAccountBook(ctx, e.clk, e.store, account)
}

func (e *Engine) loadBookForAsset(ctx context.Context, account uuid.UUID, assetId string, amount decimal.Decimal) (*core.AccountBook, error) {
	if _, err := e.registry.Get(assetId); err != nil {
		return nil, err
	}
	return e.loadBook(ctx, account, amount)
}

// commit executes the deferred external calls, compensating in reverse on
// failure, then persists the book. The ledger only ever records fully
// completed operations.
func (e *Engine) commit(ctx context.Context, book *core.AccountBook, actions []action, op string) error {
	for i, act := range actions {
		if err := act.run(ctx); err != nil {
			e.rollback(ctx, actions[:i], op)
			return errors.Wrap(err, act.name)
		}
	}
	if err := book.Save(ctx, e.store); err != nil {
		e.rollback(ctx, actions, op)
		return errors.Wrapf(err, "persist %s", op)
	}
	e.log.Info().
		Str("op", op).
		Str("account", book.AccountId.String()).
		Str("debt", book.Debt().String()).
		Msg("ledger committed")
	return nil
}

func (e *Engine) rollback(ctx context.Context, executed []action, op string) {
	for i := len(executed) - 1; i >= 0; i-- {
		if err := executed[i].undo(ctx); err != nil {
			e.log.Error().
				Err(err).
				Str("op", op).
				Str("action", executed[i].name).
				Msg("compensation failed")
		}
	}
}
