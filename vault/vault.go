// Package vault is an in-memory custody implementation of core.Vault. It
// tracks each account's external holdings and the per-asset custody totals,
// so failed custody movements exercise the engine's abort paths.
package vault

import (
	"context"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/stableforge/core/core"
)

var (
	InsufficientFunds   = errors.New("account holds less than the pull amount")
	InsufficientCustody = errors.New("custody holds less than the release amount")
)

type Vault struct {
	mu sync.Mutex

	external map[uuid.UUID]map[string]decimal.Decimal
	custody  map[string]decimal.Decimal
}

func New() *Vault {
	return &Vault{
		external: make(map[uuid.UUID]map[string]decimal.Decimal),
		custody:  make(map[string]decimal.Decimal),
	}
}

// Fund credits an account's external holdings. Harness-side faucet.
func (v *Vault) Fund(account uuid.UUID, assetId string, amount decimal.Decimal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.external[account] == nil {
		v.external[account] = make(map[string]decimal.Decimal)
	}
	v.external[account][assetId] = v.external[account][assetId].Add(amount)
}

func (v *Vault) Pull(ctx context.Context, from uuid.UUID, assetId string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.InvalidAmount
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	balance := v.external[from][assetId]
	if amount.GreaterThan(balance) {
		return InsufficientFunds
	}
	v.external[from][assetId] = balance.Sub(amount)
	v.custody[assetId] = v.custody[assetId].Add(amount)
	return nil
}

func (v *Vault) Release(ctx context.Context, to uuid.UUID, assetId string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.InvalidAmount
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	held := v.custody[assetId]
	if amount.GreaterThan(held) {
		return InsufficientCustody
	}
	v.custody[assetId] = held.Sub(amount)
	if v.external[to] == nil {
		v.external[to] = make(map[string]decimal.Decimal)
	}
	v.external[to][assetId] = v.external[to][assetId].Add(amount)
	return nil
}

func (v *Vault) Custody(assetId string) decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.custody[assetId]
}

func (v *Vault) ExternalBalance(account uuid.UUID, assetId string) decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.external[account][assetId]
}
