// Package settlement sizes releases: service fee tiers, per-chain network
// fee reserves and deposit acceptance.
package settlement

import (
	"context"
	"fmt"

	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/shopspring/decimal"
)

var (
	tierFree     = decimal.NewFromInt(10)
	tierFlatLow  = decimal.NewFromInt(100)
	tierFlatHigh = decimal.NewFromInt(200)
	percentRate  = decimal.RequireFromString("0.02")

	// depositFloor accepts deposits within 2% under the expected amount.
	depositFloor = decimal.RequireFromString("0.98")
)

// reserves are withheld in native units so the release transaction can pay
// its own fee. Token gas is paid in ETH and checked by the EVM engine.
var reserves = map[model.Asset]decimal.Decimal{
	model.AssetBTC:  decimal.RequireFromString("0.0005"),
	model.AssetLTC:  decimal.RequireFromString("0.0005"),
	model.AssetETH:  decimal.RequireFromString("0.005"),
	model.AssetSOL:  decimal.RequireFromString("0.001"),
	model.AssetUSDT: decimal.Zero,
	model.AssetUSDC: decimal.Zero,
}

// sendDecimals caps the precision of a reduced send amount.
var sendDecimals = map[model.Asset]int32{
	model.AssetBTC:  8,
	model.AssetLTC:  8,
	model.AssetETH:  6,
	model.AssetSOL:  6,
	model.AssetUSDT: 6,
	model.AssetUSDC: 6,
}

// Converter prices a USD amount in an asset.
type Converter interface {
	UsdToCrypto(ctx context.Context, usd decimal.Decimal, asset model.Asset) (decimal.Decimal, error)
}

// Calculator builds settlement plans. It holds no state besides the converter.
type Calculator struct {
	prices Converter
}

// NewCalculator creates a calculator backed by prices.
func NewCalculator(prices Converter) *Calculator {
	return &Calculator{prices: prices}
}

// ServiceFee returns the retained fee in USD for a deal of usd:
// under $10 free, under $100 $1, under $200 $2, otherwise 2% rounded to cents.
func ServiceFee(usd decimal.Decimal) decimal.Decimal {
	switch {
	case usd.LessThan(tierFree):
		return decimal.Zero
	case usd.LessThan(tierFlatLow):
		return decimal.NewFromInt(1)
	case usd.LessThan(tierFlatHigh):
		return decimal.NewFromInt(2)
	default:
		return usd.Mul(percentRate).Round(2)
	}
}

// Reserve returns the network fee reserve for asset in its own units.
func Reserve(asset model.Asset) decimal.Decimal {
	return reserves[asset]
}

// DepositAccepted reports whether observed covers expected within tolerance.
func DepositAccepted(expected, observed decimal.Decimal) bool {
	return observed.GreaterThanOrEqual(expected.Mul(depositFloor))
}

// Plan sizes the release of a deal worth usd whose wallet holds balance.
// The payout is the full deal value; the service fee is never subtracted
// and stays behind in the wallet. When the balance cannot cover payout plus
// reserve, the send shrinks to balance minus reserve.
func (c *Calculator) Plan(ctx context.Context, usd decimal.Decimal, asset model.Asset, balance decimal.Decimal) (*model.SettlementPlan, error) {
	const op = "settlement plan"

	if !asset.Valid() {
		return nil, model.Errorf(model.KindInvalidInput, op, "unsupported asset %d", asset)
	}
	payout, err := c.prices.UsdToCrypto(ctx, usd, asset)
	if err != nil {
		return nil, err
	}

	reserve := Reserve(asset)
	send := payout
	if balance.LessThan(payout.Add(reserve)) {
		send = balance.Sub(reserve).Truncate(sendDecimals[asset])
	}

	plan := &model.SettlementPlan{
		Asset:         asset,
		GrossUSD:      usd,
		ServiceFeeUSD: ServiceFee(usd),
		Balance:       balance,
		Payout:        payout,
		Reserve:       reserve,
		SendAmount:    send,
	}
	if !send.IsPositive() {
		return plan, &model.Error{
			Kind:  model.KindInsufficientFundsAfterFees,
			Op:    op,
			Asset: asset,
			Err:   fmt.Errorf("balance %s leaves nothing to send after the %s reserve", balance, reserve),
		}
	}
	return plan, nil
}

// SweepPlan sizes a manual sweep: everything in the wallet except the
// network fee reserve, truncated to the asset's send precision.
func SweepPlan(asset model.Asset, balance decimal.Decimal) (*model.SettlementPlan, error) {
	const op = "sweep plan"

	if !asset.Valid() {
		return nil, model.Errorf(model.KindInvalidInput, op, "unsupported asset %d", asset)
	}
	reserve := Reserve(asset)
	send := balance.Sub(reserve).Truncate(sendDecimals[asset])

	plan := &model.SettlementPlan{
		Asset:      asset,
		Balance:    balance,
		Payout:     send,
		Reserve:    reserve,
		SendAmount: send,
	}
	if !balance.IsPositive() {
		return plan, &model.Error{Kind: model.KindInsufficientFundsAfterFees, Op: op, Asset: asset, Err: fmt.Errorf("wallet is empty")}
	}
	if !send.IsPositive() {
		return plan, &model.Error{
			Kind:  model.KindInsufficientFundsAfterFees,
			Op:    op,
			Asset: asset,
			Err:   fmt.Errorf("balance %s leaves nothing to send after the %s reserve", balance, reserve),
		}
	}
	return plan, nil
}
