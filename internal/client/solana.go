package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlexZinkM/escrow-custody/internal/common"
	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// SolanaClient is a client for working with Solana RPC
type SolanaClient struct {
	rpcClient *rpc.Client
	rpcURL    string
	logger    *zap.Logger
}

// NewSolanaClient creates a new Solana client for the given RPC endpoint.
func NewSolanaClient(rpcURL string, logger *zap.Logger) *SolanaClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SolanaClient{
		rpcClient: rpc.New(rpcURL),
		rpcURL:    rpcURL,
		logger:    logger,
	}
}

// GetBalance gets the confirmed SOL balance in lamports
func (c *SolanaClient) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	return common.RetryRead(ctx, func() (uint64, error) {
		balance, err := c.rpcClient.GetBalance(ctx, account, rpc.CommitmentConfirmed)
		if err != nil {
			return 0, classifyRPCError("solana get balance", err)
		}
		return balance.Value, nil
	})
}

// GetLatestBlockhash gets the latest finalized blockhash
func (c *SolanaClient) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return common.RetryRead(ctx, func() (solana.Hash, error) {
		recent, err := c.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		if err != nil {
			return solana.Hash{}, classifyRPCError("solana latest blockhash", err)
		}
		return recent.Value.Blockhash, nil
	})
}

// SendTransaction submits a signed transaction with preflight checks.
// Not retried: a transport failure is reported as a network error and the
// caller must look the signature up before trying again.
func (c *SolanaClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpcClient.SendTransactionWithOpts(
		ctx,
		tx,
		rpc.TransactionOpts{
			SkipPreflight:       false, // Transaction validation before node
			PreflightCommitment: rpc.CommitmentConfirmed,
		},
	)
	if err != nil {
		var rpcErr *jsonrpc.RPCError
		if errors.As(err, &rpcErr) {
			return solana.Signature{}, model.Wrap(model.KindBroadcast, "solana send", fmt.Errorf("failed to send transaction: %w", err))
		}
		return solana.Signature{}, model.Wrap(model.KindNetwork, "solana send", err)
	}
	c.logger.Info("solana transaction submitted", zap.String("signature", sig.String()))
	return sig, nil
}

// GetSignatureStatus returns the status of sig, or nil if the cluster does
// not know it.
func (c *SolanaClient) GetSignatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	return common.RetryRead(ctx, func() (*rpc.SignatureStatusesResult, error) {
		out, err := c.rpcClient.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			return nil, classifyRPCError("solana signature status", err)
		}
		if out == nil || len(out.Value) == 0 {
			return nil, nil
		}
		return out.Value[0], nil
	})
}

// classifyRPCError treats JSON-RPC errors as final and everything else as
// transient transport failures.
func classifyRPCError(op string, err error) error {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return model.Wrap(model.KindInvalidInput, op, err)
	}
	return model.Wrap(model.KindNetwork, op, err)
}
