package core

import (
	"context"

	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type (
	// CollateralPosition is one (account, asset) deposited-amount row.
	CollateralPosition struct {
		AccountId uuid.UUID       `json:"accountId"`
		AssetId   string          `json:"assetId"`
		Amount    decimal.Decimal `json:"amount"`
		UpdatedAt int64           `json:"updatedAt"`
	}

	// DebtPosition is the single outstanding pegged-token debt row of an
	// account.
	DebtPosition struct {
		AccountId uuid.UUID       `json:"accountId"`
		Amount    decimal.Decimal `json:"amount"`
		UpdatedAt int64           `json:"updatedAt"`
	}

	// LedgerStore persists collateral and debt rows. Absent rows read as
	// zero; accounts are implicitly all-zero until touched.
	LedgerStore interface {
		GetCollateral(ctx context.Context, accountId uuid.UUID, assetId string) (*CollateralPosition, error)
		ListCollateral(ctx context.Context, accountId uuid.UUID) ([]*CollateralPosition, error)
		UpsertCollateral(ctx context.Context, position *CollateralPosition) error

		GetDebt(ctx context.Context, accountId uuid.UUID) (*DebtPosition, error)
		UpsertDebt(ctx context.Context, position *DebtPosition) error

		// TotalCollateral sums deposited amounts of one asset over all
		// accounts.
		TotalCollateral(ctx context.Context, assetId string) (decimal.Decimal, error)
	}
)

// AccountBook is the in-memory working copy of one account's ledger rows.
// Operations mutate the book, run their invariant checks against it, and only
// then persist; an aborted operation simply drops the book.
type AccountBook struct {
	clk clock.Clock

	AccountId uuid.UUID

	collateral map[string]decimal.Decimal
	debt       decimal.Decimal

	touched     map[string]bool
	debtTouched bool
}

func NewAccountBook(clk clock.Clock, accountId uuid.UUID) *AccountBook {
	return &AccountBook{
		clk:        clk,
		AccountId:  accountId,
		collateral: make(map[string]decimal.Decimal),
		debt:       decimal.Zero,
		touched:    make(map[string]bool),
	}
}

// LoadAccountBook reads every ledger row of the account into a fresh book.
func LoadAccountBook(ctx context.Context, clk clock.Clock, store LedgerStore, accountId uuid.UUID) (*AccountBook, error) {
	book := NewAccountBook(clk, accountId)

	positions, err := store.ListCollateral(ctx, accountId)
	if err != nil {
		return nil, err
	}
	for _, position := range positions {
		book.collateral[position.AssetId] = position.Amount
	}

	debt, err := store.GetDebt(ctx, accountId)
	if err != nil {
		return nil, err
	}
	if debt != nil {
		book.debt = debt.Amount
	}
	return book, nil
}

func (b *AccountBook) Collateral(assetId string) decimal.Decimal {
	return b.collateral[assetId]
}

func (b *AccountBook) Debt() decimal.Decimal {
	return b.debt
}

// CreditCollateral adds a strictly positive deposited amount.
func (b *AccountBook) CreditCollateral(assetId string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return InvalidAmount
	}
	b.collateral[assetId] = b.collateral[assetId].Add(amount)
	b.touched[assetId] = true
	return nil
}

// DebitCollateral removes a strictly positive deposited amount. Debits never
// clamp: exceeding the balance fails with CollateralUnderflow.
func (b *AccountBook) DebitCollateral(assetId string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return InvalidAmount
	}
	balance := b.collateral[assetId]
	if amount.GreaterThan(balance) {
		return CollateralUnderflow
	}
	b.collateral[assetId] = balance.Sub(amount)
	b.touched[assetId] = true
	return nil
}

func (b *AccountBook) CreditDebt(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return InvalidAmount
	}
	b.debt = b.debt.Add(amount)
	b.debtTouched = true
	return nil
}

func (b *AccountBook) DebitDebt(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return InvalidAmount
	}
	if amount.GreaterThan(b.debt) {
		return DebtUnderflow
	}
	b.debt = b.debt.Sub(amount)
	b.debtTouched = true
	return nil
}

// Save persists every mutated row. Callers invoke it exactly once, after all
// invariant checks and external calls have succeeded.
func (b *AccountBook) Save(ctx context.Context, store LedgerStore) error {
	now := b.clk.Now().Unix()
	for assetId := range b.touched {
		if err := store.UpsertCollateral(ctx, &CollateralPosition{
			AccountId: b.AccountId,
			AssetId:   assetId,
			Amount:    b.collateral[assetId],
			UpdatedAt: now,
		}); err != nil {
			return err
		}
	}
	if b.debtTouched {
		if err := store.UpsertDebt(ctx, &DebtPosition{
			AccountId: b.AccountId,
			Amount:    b.debt,
			UpdatedAt: now,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (b *AccountBook) Clone() *AccountBook {
	clone := NewAccountBook(b.clk, b.AccountId)
	for assetId, amount := range b.collateral {
		clone.collateral[assetId] = amount
	}
	clone.debt = b.debt
	return clone
}
