// Package oracle provides core.PriceOracle adapters: a latest-answer feed
// with a configurable freshness window, and a caching decorator.
package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"

	"github.com/stableforge/core/core"
)

type Config struct {
	// MaxAge is the freshness window. An answer older than MaxAge fails
	// with core.StalePrice.
	MaxAge time.Duration
}

// Feed holds the latest submitted USD price for one asset. Staleness is a
// correctness gate: consumers never see an answer past the window.
type Feed struct {
	mu sync.RWMutex

	clk    clock.Clock
	maxAge time.Duration

	last core.PriceData
	set  bool
}

type OptionFunc func(f *Feed)

func WithClock(clk clock.Clock) OptionFunc {
	return func(f *Feed) {
		f.clk = clk
	}
}

func NewFeed(cfg Config, opts ...OptionFunc) *Feed {
	f := &Feed{
		clk:    clock.New(),
		maxAge: cfg.MaxAge,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Submit records a new answer, truncated to the feed scale and stamped with
// the feed clock.
func (f *Feed) Submit(price decimal.Decimal) error {
	if !price.IsPositive() {
		return core.InvalidPrice
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = core.PriceData{
		Price:     price.Truncate(core.OracleDecimals),
		UpdatedAt: f.clk.Now(),
	}
	f.set = true
	return nil
}

func (f *Feed) Price(ctx context.Context) (core.PriceData, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.set {
		return core.PriceData{}, core.StalePrice
	}
	if f.clk.Now().Sub(f.last.UpdatedAt) > f.maxAge {
		return core.PriceData{}, core.StalePrice
	}
	return f.last, nil
}
