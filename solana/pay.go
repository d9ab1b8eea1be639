package solana

import (
	"context"
	"fmt"
	"time"

	"github.com/AlexZinkM/escrow-custody/internal/common"
	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SendTransaction transfers amount SOL from the wallet behind encryptedKey
// and returns the signature once the cluster reports it confirmed.
func (e *Engine) SendTransaction(ctx context.Context, asset model.Asset, encryptedKey, to string, amount decimal.Decimal) (string, error) {
	const op = "send transaction"
	if err := checkAsset(op, asset); err != nil {
		return "", err
	}

	// Validate recipient address
	toPubkey, err := parseAddress(op, to)
	if err != nil {
		return "", err
	}
	lamports, err := common.ToBaseUnitsInt64(amount, common.LamportDecimals)
	if err != nil {
		return "", model.WithAsset(err, asset)
	}
	if lamports <= 0 {
		return "", model.Errorf(model.KindInvalidInput, op, "amount must be at least one lamport")
	}

	wallet, err := e.decryptKey(encryptedKey)
	if err != nil {
		return "", model.WithAsset(err, asset)
	}
	// Always clear private key from memory
	defer clear(wallet)
	from := wallet.PublicKey()

	balance, err := e.rpc.GetBalance(ctx, from)
	if err != nil {
		return "", model.WithAsset(err, asset)
	}
	if balance < uint64(lamports)+solFeeLamports {
		return "", &model.Error{Kind: model.KindInsufficientFundsAfterFees, Op: op, Asset: asset,
			Err: fmt.Errorf("balance %d lamports cannot cover %d plus %d fee", balance, lamports, solFeeLamports)}
	}

	recent, err := e.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", model.WithAsset(err, asset)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(uint64(lamports), from, toPubkey).Build(),
		},
		recent,
		solana.TransactionPayer(from),
	)
	if err != nil {
		return "", &model.Error{Kind: model.KindBroadcast, Op: op, Asset: asset, Err: fmt.Errorf("failed to create transaction: %w", err)}
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if from.Equals(key) {
			return &wallet
		}
		return nil
	}); err != nil {
		return "", &model.Error{Kind: model.KindBroadcast, Op: op, Asset: asset, Err: fmt.Errorf("failed to sign transaction: %w", err)}
	}
	// The first signature is the transaction id, known before submission.
	sig := tx.Signatures[0]

	log := e.logger.With(
		zap.String("from", from.String()),
		zap.String("to", toPubkey.String()),
		zap.Int64("lamports", lamports),
		zap.String("signature", sig.String()),
	)

	start := time.Now()
	if _, err := e.rpc.SendTransaction(ctx, tx); err != nil {
		// A rejected preflight never lands; anything else may have.
		if model.KindOf(err) == model.KindBroadcast {
			log.Error("transaction rejected", zap.Error(err))
			return "", model.WithAsset(err, asset)
		}
		log.Warn("submission outcome unknown, polling signature", zap.Error(err))
	}

	if err := e.waitConfirmed(ctx, sig); err != nil {
		log.Error("transaction not confirmed", zap.Error(err))
		return "", model.WithAsset(err, asset)
	}
	log.Info("transaction confirmed", zap.Duration("took", time.Since(start)))
	return sig.String(), nil
}

func (e *Engine) decryptKey(blob string) (solana.PrivateKey, error) {
	raw, err := e.vault.Decrypt(blob)
	if err != nil {
		return nil, err
	}
	defer clear(raw)

	key, err := solana.PrivateKeyFromBase58(string(raw))
	if err != nil {
		return nil, model.Wrap(model.KindDecryption, "decode key", fmt.Errorf("stored key is not base58: %w", err))
	}
	// Verify private key length (we store full 64-byte key)
	if len(key) != 64 {
		return nil, model.Errorf(model.KindDecryption, "decode key", "invalid private key length")
	}
	return key, nil
}
