package oracle

import (
	"context"
	"time"

	"github.com/bluele/gcache"
	"golang.org/x/sync/singleflight"

	"github.com/stableforge/core/core"
)

const priceKey = "price"

// Cache decorates an oracle with a short-lived answer cache. The TTL should
// sit well below the inner feed's freshness window so a cached answer can
// never outlive staleness. Concurrent fills collapse into one inner query.
func Cache(inner core.PriceOracle, ttl time.Duration) core.PriceOracle {
	return &cachedOracle{
		inner: inner,
		cache: gcache.New(1).LRU().Build(),
		ttl:   ttl,
		sf:    &singleflight.Group{},
	}
}

type cachedOracle struct {
	inner core.PriceOracle
	cache gcache.Cache
	ttl   time.Duration
	sf    *singleflight.Group
}

func (c *cachedOracle) Price(ctx context.Context) (core.PriceData, error) {
	if v, err := c.cache.Get(priceKey); err == nil {
		if data, ok := v.(core.PriceData); ok {
			return data, nil
		}
	}

	v, err, _ := c.sf.Do(priceKey, func() (interface{}, error) {
		data, err := c.inner.Price(ctx)
		if err != nil {
			return nil, err
		}
		_ = c.cache.SetWithExpire(priceKey, data, c.ttl)
		return data, nil
	})
	if err != nil {
		return core.PriceData{}, err
	}
	return v.(core.PriceData), nil
}
