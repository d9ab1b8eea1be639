// Package solana implements wallet generation, balances and native SOL
// transfers on Solana.
package solana

import (
	"context"
	"time"

	"github.com/AlexZinkM/escrow-custody/internal/crypto"
	"github.com/AlexZinkM/escrow-custody/internal/hd"
	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const (
	solFeeLamports = 5000 // Fee in lamports (0.000005 SOL)

	// finalityDepth is the confirmation count at which a slot is rooted.
	finalityDepth = 32

	defaultPollInterval = 2 * time.Second
	defaultTimeout      = 10 * time.Minute
)

// RPC is the cluster API the engine needs. *client.SolanaClient satisfies it.
type RPC interface {
	GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	GetSignatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error)
}

// Config tunes one engine.
type Config struct {
	MinConfirmations uint64 // 32 or more waits for finalized
	ConfirmTimeout   time.Duration
	PollInterval     time.Duration
}

// Engine serves SOL.
type Engine struct {
	rpc     RPC
	seed    *hd.MasterSeed
	vault   *crypto.Vault
	logger  *zap.Logger
	minConf uint64
	timeout time.Duration
	poll    time.Duration
}

// NewEngine creates a Solana engine.
func NewEngine(cfg Config, client RPC, seed *hd.MasterSeed, vault *crypto.Vault, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = defaultTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Engine{
		rpc:     client,
		seed:    seed,
		vault:   vault,
		logger:  logger.With(zap.Stringer("asset", model.AssetSOL)),
		minConf: cfg.MinConfirmations,
		timeout: cfg.ConfirmTimeout,
		poll:    cfg.PollInterval,
	}
}

func checkAsset(op string, asset model.Asset) error {
	if asset != model.AssetSOL {
		return model.Errorf(model.KindInvalidInput, op, "Solana engine cannot serve %s", asset)
	}
	return nil
}

// parseAddress validates a base58 Solana address
func parseAddress(op, address string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return solana.PublicKey{}, &model.Error{Kind: model.KindInvalidInput, Op: op, Asset: model.AssetSOL, Err: err}
	}
	return pk, nil
}
