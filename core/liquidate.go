package core

import (
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// LiquidationResult records one successful liquidation transition.
type LiquidationResult struct {
	Liquidator uuid.UUID `json:"liquidator"`
	Target     uuid.UUID `json:"target"`
	AssetId    string    `json:"assetId"`

	DebtCovered  decimal.Decimal `json:"debtCovered"`
	SeizedAmount decimal.Decimal `json:"seizedAmount"`
	Bonus        decimal.Decimal `json:"bonus"`
	TotalSeized  decimal.Decimal `json:"totalSeized"`

	TargetPreHealth  decimal.Decimal `json:"targetPreHealth"`
	TargetPostHealth decimal.Decimal `json:"targetPostHealth"`
}
