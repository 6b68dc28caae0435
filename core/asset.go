package core

type (
	// Asset is an accepted collateral type bound to exactly one price
	// oracle. The accepted set is fixed at construction.
	Asset struct {
		Id     string      `json:"id"`
		Symbol string      `json:"symbol"`
		Oracle PriceOracle `json:"-"`
	}

	// AssetRegistry is the write-once set of accepted collateral assets.
	// Registration order is preserved so that any summation over an
	// account's collateral is deterministic.
	AssetRegistry struct {
		assets []*Asset
		byId   map[string]*Asset
	}
)

// NewAssetRegistry pairs asset ids with their oracles positionally. The two
// slices must have the same length and ids must be unique.
func NewAssetRegistry(assetIds []string, oracles []PriceOracle) (*AssetRegistry, error) {
	if len(assetIds) != len(oracles) {
		return nil, MismatchedAssetConfig
	}

	r := &AssetRegistry{
		assets: make([]*Asset, 0, len(assetIds)),
		byId:   make(map[string]*Asset, len(assetIds)),
	}
	for i, id := range assetIds {
		if _, ok := r.byId[id]; ok {
			return nil, DuplicateAsset
		}
		asset := &Asset{
			Id:     id,
			Symbol: id,
			Oracle: oracles[i],
		}
		r.assets = append(r.assets, asset)
		r.byId[id] = asset
	}
	return r, nil
}

// Get returns the registered asset or AssetNotRegistered.
func (r *AssetRegistry) Get(assetId string) (*Asset, error) {
	asset, ok := r.byId[assetId]
	if !ok {
		return nil, AssetNotRegistered
	}
	return asset, nil
}

// List returns the assets in registration order. The returned slice is
// shared and must not be mutated.
func (r *AssetRegistry) List() []*Asset {
	return r.assets
}

func (r *AssetRegistry) Len() int {
	return len(r.assets)
}
