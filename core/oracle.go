package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// PriceOracle answers the USD price per unit of one collateral asset.
	// Implementations own the freshness policy: a reading older than their
	// configured window fails with StalePrice and is never used for
	// valuation.
	PriceOracle interface {
		Price(ctx context.Context) (PriceData, error)
	}

	PriceData struct {
		// Price is USD per unit, carrying OracleDecimals fractional digits.
		Price     decimal.Decimal `json:"price"`
		UpdatedAt time.Time       `json:"updatedAt"`
	}
)
