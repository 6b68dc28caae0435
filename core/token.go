package core

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// TokenLedger is the pegged-token primitive, consumed as an opaque
// capability. Burn pulls the amount from the holder before destroying it, so
// an insufficient balance surfaces as the pull failure.
type TokenLedger interface {
	Mint(ctx context.Context, to uuid.UUID, amount decimal.Decimal) error
	Burn(ctx context.Context, from uuid.UUID, amount decimal.Decimal) error
	TotalSupply(ctx context.Context) (decimal.Decimal, error)
}

// Vault is the custody capability for underlying collateral assets. Pull
// moves the asset from the account into custody, Release the reverse.
type Vault interface {
	Pull(ctx context.Context, from uuid.UUID, assetId string, amount decimal.Decimal) error
	Release(ctx context.Context, to uuid.UUID, assetId string, amount decimal.Decimal) error
}
