// Package ledger implements core.LedgerStore: a gorm-backed store persisting
// the asset registry, collateral and debt tables, and an in-memory store with
// identical semantics.
package ledger

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stableforge/core/core"
)

type (
	Asset struct {
		Id        string `gorm:"column:id;primaryKey;size:64"`
		Symbol    string `gorm:"column:symbol;size:64"`
		CreatedAt int64  `gorm:"column:created_at"`
	}

	Collateral struct {
		AccountId uuid.UUID       `gorm:"column:account_id;primaryKey;type:varchar(36)"`
		AssetId   string          `gorm:"column:asset_id;primaryKey;size:64"`
		Amount    decimal.Decimal `gorm:"column:amount;type:decimal(64,18)"`
		UpdatedAt int64           `gorm:"column:updated_at"`
	}

	Debt struct {
		AccountId uuid.UUID       `gorm:"column:account_id;primaryKey;type:varchar(36)"`
		Amount    decimal.Decimal `gorm:"column:amount;type:decimal(64,18)"`
		UpdatedAt int64           `gorm:"column:updated_at"`
	}
)

func (Asset) TableName() string      { return "assets" }
func (Collateral) TableName() string { return "collaterals" }
func (Debt) TableName() string       { return "debts" }

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Asset{}, &Collateral{}, &Debt{}); err != nil {
		return nil, errors.Wrap(err, "migrate ledger tables")
	}
	return &GormStore{db: db}, nil
}

// SyncRegistry records the accepted asset set. The registry itself stays
// in-memory and write-once; the rows exist for operability and joins.
func (s *GormStore) SyncRegistry(ctx context.Context, registry *core.AssetRegistry, now int64) error {
	for _, asset := range registry.List() {
		row := &Asset{Id: asset.Id, Symbol: asset.Symbol, CreatedAt: now}
		if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
			return errors.Wrap(err, "sync registry")
		}
	}
	return nil
}

func (s *GormStore) GetCollateral(ctx context.Context, accountId uuid.UUID, assetId string) (*core.CollateralPosition, error) {
	var row Collateral
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND asset_id = ?", accountId, assetId).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get collateral")
	}
	return collateralPosition(&row), nil
}

func (s *GormStore) ListCollateral(ctx context.Context, accountId uuid.UUID) ([]*core.CollateralPosition, error) {
	var rows []*Collateral
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountId).
		Order("asset_id").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "list collateral")
	}
	positions := make([]*core.CollateralPosition, 0, len(rows))
	for _, row := range rows {
		positions = append(positions, collateralPosition(row))
	}
	return positions, nil
}

func (s *GormStore) UpsertCollateral(ctx context.Context, position *core.CollateralPosition) error {
	row := &Collateral{
		AccountId: position.AccountId,
		AssetId:   position.AssetId,
		Amount:    position.Amount,
		UpdatedAt: position.UpdatedAt,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "asset_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(row).Error
	return errors.Wrap(err, "upsert collateral")
}

func (s *GormStore) GetDebt(ctx context.Context, accountId uuid.UUID) (*core.DebtPosition, error) {
	var row Debt
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountId).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get debt")
	}
	return &core.DebtPosition{
		AccountId: row.AccountId,
		Amount:    row.Amount,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (s *GormStore) UpsertDebt(ctx context.Context, position *core.DebtPosition) error {
	row := &Debt{
		AccountId: position.AccountId,
		Amount:    position.Amount,
		UpdatedAt: position.UpdatedAt,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(row).Error
	return errors.Wrap(err, "upsert debt")
}

// TotalCollateral sums rows in Go rather than in SQL so the fixed-point
// amounts never pass through driver float arithmetic.
func (s *GormStore) TotalCollateral(ctx context.Context, assetId string) (decimal.Decimal, error) {
	var rows []*Collateral
	err := s.db.WithContext(ctx).
		Where("asset_id = ?", assetId).
		Find(&rows).Error
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "total collateral")
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	return total, nil
}

func collateralPosition(row *Collateral) *core.CollateralPosition {
	return &core.CollateralPosition{
		AccountId: row.AccountId,
		AssetId:   row.AssetId,
		Amount:    row.Amount,
		UpdatedAt: row.UpdatedAt,
	}
}
