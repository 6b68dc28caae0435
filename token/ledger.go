// Package token is an in-memory pegged-token ledger implementing
// core.TokenLedger. The issuance engine is its only minter and burner.
package token

import (
	"context"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/stableforge/core/core"
)

var InsufficientBalance = errors.New("token balance below burn amount")

type Ledger struct {
	mu sync.Mutex

	balances map[uuid.UUID]decimal.Decimal
	supply   decimal.Decimal
}

func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[uuid.UUID]decimal.Decimal),
		supply:   decimal.Zero,
	}
}

func (l *Ledger) Mint(ctx context.Context, to uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.InvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[to] = l.balances[to].Add(amount)
	l.supply = l.supply.Add(amount)
	return nil
}

// Burn pulls amount from the holder and destroys it. The pull fails when the
// holder's balance is short, leaving the ledger untouched.
func (l *Ledger) Burn(ctx context.Context, from uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.InvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.balances[from]
	if amount.GreaterThan(balance) {
		return InsufficientBalance
	}
	l.balances[from] = balance.Sub(amount)
	l.supply = l.supply.Sub(amount)
	return nil
}

func (l *Ledger) TotalSupply(ctx context.Context) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.supply, nil
}

func (l *Ledger) BalanceOf(ctx context.Context, account uuid.UUID) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

// Transfer moves pegged tokens between holders. The engine never calls it;
// it exists so a liquidator can be funded in scenarios and harnesses.
func (l *Ledger) Transfer(ctx context.Context, from, to uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.InvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.balances[from]
	if amount.GreaterThan(balance) {
		return InsufficientBalance
	}
	l.balances[from] = balance.Sub(amount)
	l.balances[to] = l.balances[to].Add(amount)
	return nil
}
