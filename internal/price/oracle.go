// Package price converts between USD and asset amounts.
//
// Quotes come from a live source when one is configured, then from the last
// good quote, then from a static table, so a conversion never fails for a
// supported asset.
package price

import (
	"context"
	"sync"
	"time"

	"github.com/AlexZinkM/escrow-custody/internal/metrics"
	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Where a quote came from.
const (
	OriginLive     = "live"
	OriginCache    = "cache"
	OriginFallback = "static"
)

const usdDecimals = 2

// Fallback holds approximate USD prices used when no live quote is known.
var Fallback = map[model.Asset]decimal.Decimal{
	model.AssetBTC:  decimal.NewFromInt(50000),
	model.AssetLTC:  decimal.NewFromInt(80),
	model.AssetETH:  decimal.NewFromInt(3000),
	model.AssetSOL:  decimal.NewFromInt(100),
	model.AssetUSDT: decimal.NewFromInt(1),
	model.AssetUSDC: decimal.NewFromInt(1),
}

// Source fetches live USD prices.
type Source interface {
	USDPrices(ctx context.Context, assets []model.Asset) (map[model.Asset]decimal.Decimal, error)
}

type quote struct {
	price decimal.Decimal
	at    time.Time
}

// Oracle is safe for concurrent use.
type Oracle struct {
	source  Source
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	cache map[model.Asset]quote
}

// NewOracle creates an oracle. A nil source serves the fallback table only.
func NewOracle(source Source, ttl time.Duration, m *metrics.Metrics, logger *zap.Logger) *Oracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{
		source:  source,
		ttl:     ttl,
		metrics: m,
		logger:  logger,
		now:     time.Now,
		cache:   make(map[model.Asset]quote),
	}
}

// Price returns the USD price of one unit of asset and where it came from.
func (o *Oracle) Price(ctx context.Context, asset model.Asset) (decimal.Decimal, string, error) {
	if !asset.Valid() {
		return decimal.Zero, "", model.Errorf(model.KindInvalidInput, "price", "unsupported asset %d", asset)
	}

	if q, ok := o.cached(asset); ok && o.now().Sub(q.at) < o.ttl {
		return q.price, OriginCache, nil
	}

	if o.source != nil {
		if p, ok := o.refresh(ctx, asset); ok {
			return p, OriginLive, nil
		}
		if q, ok := o.cached(asset); ok {
			o.metrics.PriceFallback(asset, OriginCache)
			return q.price, OriginCache, nil
		}
	}

	o.metrics.PriceFallback(asset, OriginFallback)
	return Fallback[asset], OriginFallback, nil
}

// UsdToCrypto converts usd to an amount of asset, rounded half-up to the
// asset's display precision.
func (o *Oracle) UsdToCrypto(ctx context.Context, usd decimal.Decimal, asset model.Asset) (decimal.Decimal, error) {
	if !usd.IsPositive() {
		return decimal.Zero, model.Errorf(model.KindInvalidInput, "usd to crypto", "usd amount must be positive, got %s", usd)
	}
	p, _, err := o.Price(ctx, asset)
	if err != nil {
		return decimal.Zero, err
	}
	return usd.Div(p).Round(asset.DisplayDecimals()), nil
}

// CryptoToUsd values amount of asset in USD, rounded to cents.
func (o *Oracle) CryptoToUsd(ctx context.Context, amount decimal.Decimal, asset model.Asset) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, model.Errorf(model.KindInvalidInput, "crypto to usd", "negative amount %s", amount)
	}
	p, _, err := o.Price(ctx, asset)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(p).Round(usdDecimals), nil
}

func (o *Oracle) cached(asset model.Asset) (quote, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	q, ok := o.cache[asset]
	return q, ok
}

// refresh fetches every asset in one call; concurrent callers share it.
func (o *Oracle) refresh(ctx context.Context, asset model.Asset) (decimal.Decimal, bool) {
	v, err, _ := o.group.Do("prices", func() (any, error) {
		return o.source.USDPrices(ctx, model.Assets)
	})
	if err != nil {
		o.logger.Warn("live price fetch failed", zap.Error(err))
		return decimal.Zero, false
	}
	prices := v.(map[model.Asset]decimal.Decimal)

	now := o.now()
	o.mu.Lock()
	for a, p := range prices {
		if p.IsPositive() {
			o.cache[a] = quote{price: p, at: now}
		}
	}
	o.mu.Unlock()

	p, ok := prices[asset]
	if !ok || !p.IsPositive() {
		return decimal.Zero, false
	}
	return p, true
}
