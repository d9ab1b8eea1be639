package solana

import (
	"context"
	"math/big"

	"github.com/AlexZinkM/escrow-custody/internal/common"
	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/shopspring/decimal"
)

// GetBalance gets the confirmed balance of address in SOL
func (e *Engine) GetBalance(ctx context.Context, asset model.Asset, address string) (decimal.Decimal, error) {
	const op = "get balance"
	if err := checkAsset(op, asset); err != nil {
		return decimal.Zero, err
	}
	account, err := parseAddress(op, address)
	if err != nil {
		return decimal.Zero, err
	}

	lamports, err := e.rpc.GetBalance(ctx, account)
	if err != nil {
		return decimal.Zero, model.WithAsset(err, asset)
	}
	return common.FromBaseUnits(new(big.Int).SetUint64(lamports), common.LamportDecimals), nil
}
