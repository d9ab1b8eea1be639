// Package router dispatches chain operations to the engine for an asset's
// family.
package router

import (
	"context"
	"time"

	"github.com/AlexZinkM/escrow-custody/internal/metrics"
	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine is the uniform surface every chain engine exposes.
type Engine interface {
	GenerateWallet(ctx context.Context, asset model.Asset, index uint32) (*model.WalletRecord, error)
	GetBalance(ctx context.Context, asset model.Asset, address string) (decimal.Decimal, error)
	SendTransaction(ctx context.Context, asset model.Asset, encryptedKey, to string, amount decimal.Decimal) (string, error)
}

// Engines lists one engine per family. All are required.
type Engines struct {
	BTC Engine
	LTC Engine
	EVM Engine // ETH, USDT, USDC
	SOL Engine
}

// Router is built once at startup and is read-only afterwards, so it is
// safe for concurrent use.
type Router struct {
	engines Engines
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New validates engines and returns a router. m may be nil.
func New(engines Engines, m *metrics.Metrics, logger *zap.Logger) (*Router, error) {
	const op = "new router"
	for name, e := range map[string]Engine{"BTC": engines.BTC, "LTC": engines.LTC, "EVM": engines.EVM, "SOL": engines.SOL} {
		if e == nil {
			return nil, model.Errorf(model.KindConfig, op, "%s engine is not configured", name)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{engines: engines, metrics: m, logger: logger}, nil
}

// engineFor is exhaustive over model.Asset; an unknown asset is rejected.
func (r *Router) engineFor(op string, asset model.Asset) (Engine, error) {
	switch asset {
	case model.AssetBTC:
		return r.engines.BTC, nil
	case model.AssetLTC:
		return r.engines.LTC, nil
	case model.AssetETH, model.AssetUSDT, model.AssetUSDC:
		return r.engines.EVM, nil
	case model.AssetSOL:
		return r.engines.SOL, nil
	default:
		return nil, model.Errorf(model.KindInvalidInput, op, "unsupported asset %d", asset)
	}
}

// GenerateWallet derives the wallet for asset at index.
func (r *Router) GenerateWallet(ctx context.Context, asset model.Asset, index uint32) (*model.WalletRecord, error) {
	e, err := r.engineFor("generate wallet", asset)
	if err != nil {
		return nil, err
	}
	rec, err := e.GenerateWallet(ctx, asset, index)
	if err != nil {
		return nil, err
	}
	r.metrics.WalletDerived(asset)
	r.logger.Info("wallet generated",
		zap.Stringer("asset", asset),
		zap.Uint32("index", index),
		zap.String("address", rec.Address),
	)
	return rec, nil
}

// GetBalance returns the confirmed balance of address.
func (r *Router) GetBalance(ctx context.Context, asset model.Asset, address string) (decimal.Decimal, error) {
	e, err := r.engineFor("get balance", asset)
	if err != nil {
		return decimal.Zero, err
	}
	return e.GetBalance(ctx, asset, address)
}

// SendTransaction sends amount of asset and returns the transaction id.
func (r *Router) SendTransaction(ctx context.Context, asset model.Asset, encryptedKey, to string, amount decimal.Decimal) (string, error) {
	e, err := r.engineFor("send transaction", asset)
	if err != nil {
		return "", err
	}

	start := time.Now()
	txID, err := e.SendTransaction(ctx, asset, encryptedKey, to, amount)
	r.metrics.SendFinished(asset, err, time.Since(start))
	if err != nil {
		r.logger.Warn("send failed",
			zap.Stringer("asset", asset),
			zap.String("to", to),
			zap.String("amount", amount.String()),
			zap.String("code", model.KindOf(err).Code()),
			zap.Error(err),
		)
		return "", err
	}
	return txID, nil
}
