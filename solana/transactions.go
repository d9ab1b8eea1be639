package solana

import (
	"context"
	"fmt"
	"time"

	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// waitConfirmed polls the status of sig until it reaches the required
// commitment. Finalized is required when MinConfirmations reaches the
// rooting depth; confirmed is enough otherwise.
func (e *Engine) waitConfirmed(ctx context.Context, sig solana.Signature) error {
	const op = "wait confirmed"

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	ticker := time.NewTicker(e.poll)
	defer ticker.Stop()

	seen := false
	for {
		status, err := e.rpc.GetSignatureStatus(ctx, sig)
		switch {
		case err != nil:
			e.logger.Debug("signature status poll failed", zap.String("signature", sig.String()), zap.Error(err))
		case status != nil:
			seen = true
			if status.Err != nil {
				return model.Errorf(model.KindBroadcast, op, "transaction %s failed: %v", sig, status.Err)
			}
			if e.reached(status) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			state := "unknown to the cluster"
			if seen {
				state = "seen but not confirmed"
			}
			return model.Wrap(model.KindBroadcast, op, fmt.Errorf("transaction %s %s: %w", sig, state, ctx.Err()))
		case <-ticker.C:
		}
	}
}

func (e *Engine) reached(status *rpc.SignatureStatusesResult) bool {
	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		return true
	case rpc.ConfirmationStatusConfirmed:
		if e.minConf >= finalityDepth {
			return false
		}
		if status.Confirmations == nil {
			return true
		}
		return *status.Confirmations >= e.minConf
	default:
		return false
	}
}
