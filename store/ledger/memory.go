package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/stableforge/core/core"
)

// MemoryStore is a core.LedgerStore for embedding and tests. Semantics match
// the gorm store: absent rows read as zero, ListCollateral orders by asset id.
type MemoryStore struct {
	mu sync.RWMutex

	collateral map[uuid.UUID]map[string]*core.CollateralPosition
	debt       map[uuid.UUID]*core.DebtPosition
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collateral: make(map[uuid.UUID]map[string]*core.CollateralPosition),
		debt:       make(map[uuid.UUID]*core.DebtPosition),
	}
}

func (s *MemoryStore) GetCollateral(ctx context.Context, accountId uuid.UUID, assetId string) (*core.CollateralPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	position, ok := s.collateral[accountId][assetId]
	if !ok {
		return nil, nil
	}
	clone := *position
	return &clone, nil
}

func (s *MemoryStore) ListCollateral(ctx context.Context, accountId uuid.UUID) ([]*core.CollateralPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	positions := make([]*core.CollateralPosition, 0, len(s.collateral[accountId]))
	for _, position := range s.collateral[accountId] {
		clone := *position
		positions = append(positions, &clone)
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].AssetId < positions[j].AssetId
	})
	return positions, nil
}

func (s *MemoryStore) UpsertCollateral(ctx context.Context, position *core.CollateralPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collateral[position.AccountId] == nil {
		s.collateral[position.AccountId] = make(map[string]*core.CollateralPosition)
	}
	clone := *position
	s.collateral[position.AccountId][position.AssetId] = &clone
	return nil
}

func (s *MemoryStore) GetDebt(ctx context.Context, accountId uuid.UUID) (*core.DebtPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	position, ok := s.debt[accountId]
	if !ok {
		return nil, nil
	}
	clone := *position
	return &clone, nil
}

func (s *MemoryStore) UpsertDebt(ctx context.Context, position *core.DebtPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *position
	s.debt[position.AccountId] = &clone
	return nil
}

func (s *MemoryStore) TotalCollateral(ctx context.Context, assetId string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, positions := range s.collateral {
		if position, ok := positions[assetId]; ok {
			total = total.Add(position.Amount)
		}
	}
	return total, nil
}
