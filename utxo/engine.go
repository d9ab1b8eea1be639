package utxo

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/AlexZinkM/escrow-custody/internal/common"
	"github.com/AlexZinkM/escrow-custody/internal/crypto"
	"github.com/AlexZinkM/escrow-custody/internal/hd"
	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// feeTarget is the Esplora confirmation target used when fee estimates are on.
const feeTarget = "6"

// Source is the chain data an engine reads and relays through.
// *client.EsploraClient satisfies it.
type Source interface {
	GetConfirmedBalance(ctx context.Context, address string) (int64, error)
	GetUTXOs(ctx context.Context, address string) ([]model.UTXO, error)
	GetTipHeight(ctx context.Context) (int64, error)
	GetFeeEstimates(ctx context.Context) (map[string]float64, error)
	Broadcast(ctx context.Context, rawTx string) (string, error)
	HasTransaction(ctx context.Context, txid string) (bool, error)
}

// Engine generates, queries and spends P2WPKH wallets on one UTXO chain.
type Engine struct {
	network Network
	source  Source
	seed    *hd.MasterSeed
	vault   *crypto.Vault
	logger  *zap.Logger
}

// NewEngine creates an engine for network.
func NewEngine(network Network, source Source, seed *hd.MasterSeed, vault *crypto.Vault, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		network: network,
		source:  source,
		seed:    seed,
		vault:   vault,
		logger:  logger.With(zap.Stringer("asset", network.Asset)),
	}
}

// Asset returns the asset this engine serves.
func (e *Engine) Asset() model.Asset { return e.network.Asset }

func (e *Engine) checkAsset(op string, asset model.Asset) error {
	if asset != e.network.Asset {
		return model.Errorf(model.KindInvalidInput, op, "engine for %s cannot serve %s", e.network.Asset, asset)
	}
	return nil
}

// GenerateWallet derives the wallet at index and encrypts its WIF key.
// Nothing is returned unless both steps succeed.
func (e *Engine) GenerateWallet(ctx context.Context, asset model.Asset, index uint32) (*model.WalletRecord, error) {
	const op = "generate wallet"
	if err := e.checkAsset(op, asset); err != nil {
		return nil, err
	}

	w, err := hd.DeriveWallet(e.seed, e.network.CoinType, index, hd.SegwitEncoder{Params: e.network.Params})
	if err != nil {
		return nil, model.WithAsset(err, asset)
	}
	defer w.Wipe()

	blob, err := e.vault.Encrypt(w.PrivateKey)
	if err != nil {
		return nil, model.WithAsset(err, asset)
	}

	return &model.WalletRecord{
		Asset:               asset,
		Address:             w.Address,
		EncryptedPrivateKey: blob,
		PublicKey:           w.PublicKey,
		DerivationPath:      w.Path,
		AccountIndex:        index,
	}, nil
}

// GetBalance returns the confirmed balance of address in whole coins.
func (e *Engine) GetBalance(ctx context.Context, asset model.Asset, address string) (decimal.Decimal, error) {
	const op = "get balance"
	if err := e.checkAsset(op, asset); err != nil {
		return decimal.Zero, err
	}
	if _, err := e.decodeAddress(op, address); err != nil {
		return decimal.Zero, err
	}

	sats, err := e.source.GetConfirmedBalance(ctx, address)
	if err != nil {
		return decimal.Zero, model.WithAsset(err, asset)
	}
	return common.FromBaseUnitsInt64(sats, common.SatoshiDecimals), nil
}

// SendTransaction spends confirmed outputs of the wallet behind encryptedKey
// to `to`. The txid is computed before relay; if the relay call fails the
// engine asks the node for that txid and reports success when it is known,
// so a timed-out broadcast is never mistaken for a failed one.
func (e *Engine) SendTransaction(ctx context.Context, asset model.Asset, encryptedKey, to string, amount decimal.Decimal) (string, error) {
	const op = "send transaction"
	if err := e.checkAsset(op, asset); err != nil {
		return "", err
	}

	dest, err := e.decodeAddress(op, to)
	if err != nil {
		return "", err
	}
	sats, err := common.ToBaseUnitsInt64(amount, common.SatoshiDecimals)
	if err != nil {
		return "", model.WithAsset(err, asset)
	}

	raw, err := e.vault.Decrypt(encryptedKey)
	if err != nil {
		return "", model.WithAsset(err, asset)
	}
	wif, err := btcutil.DecodeWIF(string(raw))
	clear(raw)
	if err != nil {
		return "", model.Wrap(model.KindDecryption, op, err)
	}
	defer wif.PrivKey.Zero()
	if !wif.IsForNet(e.network.Params) {
		return "", model.Errorf(model.KindDecryption, op, "key is not for %s", e.network.Params.Name)
	}

	from, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(wif.SerializePubKey()), e.network.Params)
	if err != nil {
		return "", model.Wrap(model.KindDerivation, op, err)
	}
	fromAddr := from.EncodeAddress()
	log := e.logger.With(zap.String("from", fromAddr), zap.String("to", to), zap.Int64("amount_sats", sats))

	utxos, err := e.spendable(ctx, fromAddr)
	if err != nil {
		return "", model.WithAsset(err, asset)
	}
	feeRate := e.feeRate(ctx)

	sel, err := SelectCoins(utxos, sats, feeRate)
	if err != nil {
		return "", model.WithAsset(err, asset)
	}

	signed, err := buildSignedTx(wif.PrivKey, from, dest, sel, sats)
	if err != nil {
		return "", model.Wrap(model.KindBroadcast, op, err)
	}
	log = log.With(zap.String("txid", signed.TxID), zap.Int("inputs", len(sel.Inputs)),
		zap.Int64("fee_sats", sel.Fee), zap.Int64("change_sats", sel.Change))

	start := time.Now()
	if _, err := e.source.Broadcast(ctx, signed.Hex); err != nil {
		known, lookupErr := e.source.HasTransaction(ctx, signed.TxID)
		if lookupErr == nil && known {
			log.Warn("broadcast reported an error but the node has the transaction", zap.Error(err))
			return signed.TxID, nil
		}
		log.Error("broadcast failed", zap.Error(err))
		if model.KindOf(err) == model.KindBroadcast {
			return "", model.WithAsset(err, asset)
		}
		return "", &model.Error{Kind: model.KindBroadcast, Op: op, Asset: asset, Err: err}
	}

	log.Info("transaction broadcast", zap.Duration("took", time.Since(start)))
	return signed.TxID, nil
}

// spendable returns outputs with at least MinConfirmations confirmations.
func (e *Engine) spendable(ctx context.Context, address string) ([]model.UTXO, error) {
	utxos, err := e.source.GetUTXOs(ctx, address)
	if err != nil {
		return nil, err
	}
	tip, err := e.source.GetTipHeight(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.UTXO, 0, len(utxos))
	for _, u := range utxos {
		if !u.Confirmed || u.BlockHeight <= 0 {
			continue
		}
		if tip-u.BlockHeight+1 < e.network.MinConfirmations {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// feeRate returns the configured rate, raised to the node's estimate when
// estimates are enabled. It never goes below the configured rate.
func (e *Engine) feeRate(ctx context.Context) int64 {
	rate := e.network.FeeRate
	if !e.network.UseFeeEstimates {
		return rate
	}
	estimates, err := e.source.GetFeeEstimates(ctx)
	if err != nil {
		e.logger.Warn("fee estimates unavailable, using configured rate", zap.Error(err), zap.Int64("fee_rate", rate))
		return rate
	}
	if est, ok := estimates[feeTarget]; ok {
		if r := int64(math.Ceil(est)); r > rate {
			rate = r
		}
	}
	return rate
}

func (e *Engine) decodeAddress(op, address string) (btcutil.Address, error) {
	address = strings.TrimSpace(address)
	addr, err := btcutil.DecodeAddress(address, e.network.Params)
	if err != nil {
		return nil, &model.Error{Kind: model.KindInvalidInput, Op: op, Asset: e.network.Asset, Err: err}
	}
	if !addr.IsForNet(e.network.Params) {
		return nil, model.Errorf(model.KindInvalidInput, op, "address %s is not for %s", address, e.network.Params.Name)
	}
	return addr, nil
}
