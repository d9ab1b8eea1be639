package evm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// knownTransaction reports whether the node has hash, pending or mined.
func (e *Engine) knownTransaction(ctx context.Context, hash ethcommon.Hash) bool {
	tx, _, err := e.backend.TransactionByHash(ctx, hash)
	if err != nil {
		if !errors.Is(err, ethereum.NotFound) {
			e.logger.Warn("transaction lookup failed", zap.String("tx_hash", hash.Hex()), zap.Error(err))
		}
		return false
	}
	return tx != nil
}

// waitConfirmed polls for the receipt of hash until it is mined with the
// configured depth. Status 0, a timeout or a cancelled context are
// broadcast errors carrying the hash; funds may or may not have moved and
// the caller must not resend blindly.
func (e *Engine) waitConfirmed(ctx context.Context, hash ethcommon.Hash) error {
	const op = "wait confirmed"

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	ticker := time.NewTicker(e.poll)
	defer ticker.Stop()

	var receipt *types.Receipt
	for {
		if receipt == nil {
			r, err := e.backend.TransactionReceipt(ctx, hash)
			switch {
			case err == nil && r != nil:
				if r.Status != types.ReceiptStatusSuccessful {
					return model.Errorf(model.KindBroadcast, op, "transaction %s reverted in block %s", hash.Hex(), r.BlockNumber)
				}
				receipt = r
			case err != nil && !errors.Is(err, ethereum.NotFound):
				e.logger.Debug("receipt poll failed", zap.String("tx_hash", hash.Hex()), zap.Error(err))
			}
		}

		if receipt != nil {
			head, err := e.backend.BlockNumber(ctx)
			if err == nil && receipt.BlockNumber != nil {
				mined := receipt.BlockNumber.Uint64()
				if head >= mined && head-mined+1 >= e.minConf {
					return nil
				}
			}
		}

		select {
		case <-ctx.Done():
			state := "not mined"
			if receipt != nil {
				state = fmt.Sprintf("mined in block %s but short of %d confirmations", receipt.BlockNumber, e.minConf)
			}
			return model.Wrap(model.KindBroadcast, op, fmt.Errorf("transaction %s %s: %w", hash.Hex(), state, ctx.Err()))
		case <-ticker.C:
		}
	}
}
