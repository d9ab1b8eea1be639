// Package evm implements wallet generation, balances and sends for ETH and
// the ERC-20 stablecoins that ride on it.
package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/AlexZinkM/escrow-custody/internal/common"
	"github.com/AlexZinkM/escrow-custody/internal/crypto"
	"github.com/AlexZinkM/escrow-custody/internal/hd"
	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	GasLimitNative uint64 = 21000
	GasLimitToken  uint64 = 65000

	defaultPollInterval = 3 * time.Second
	defaultTimeout      = 10 * time.Minute
)

// Backend is the slice of the JSON-RPC API the engine uses.
// *ethclient.Client satisfies it.
type Backend interface {
	BalanceAt(ctx context.Context, account ethcommon.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account ethcommon.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash ethcommon.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash ethcommon.Hash) (tx *types.Transaction, isPending bool, err error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Config tunes one engine.
type Config struct {
	MaxGasPriceGwei  int64
	MinConfirmations uint64
	ConfirmTimeout   time.Duration
	PollInterval     time.Duration
	Tokens           map[model.Asset]string // contract address per token asset
}

// Engine serves ETH, USDT and USDC. Token wallets are ordinary ETH wallets.
type Engine struct {
	backend     Backend
	seed        *hd.MasterSeed
	vault       *crypto.Vault
	logger      *zap.Logger
	maxGasPrice *big.Int
	minConf     uint64
	timeout     time.Duration
	poll        time.Duration
	tokens      map[model.Asset]string
	decimals    decimalsCache
}

// NewEngine creates an EVM engine.
func NewEngine(cfg Config, backend Backend, seed *hd.MasterSeed, vault *crypto.Vault, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = defaultTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MinConfirmations == 0 {
		cfg.MinConfirmations = 1
	}
	tokens := make(map[model.Asset]string, len(cfg.Tokens))
	for a, c := range cfg.Tokens {
		tokens[a] = c
	}
	return &Engine{
		backend:     backend,
		seed:        seed,
		vault:       vault,
		logger:      logger,
		maxGasPrice: new(big.Int).Mul(big.NewInt(cfg.MaxGasPriceGwei), big.NewInt(1_000_000_000)),
		minConf:     cfg.MinConfirmations,
		timeout:     cfg.ConfirmTimeout,
		poll:        cfg.PollInterval,
		tokens:      tokens,
		decimals:    decimalsCache{values: make(map[ethcommon.Address]int32)},
	}
}

func checkAsset(op string, asset model.Asset) error {
	if asset.Family() != model.FamilyEVM {
		return model.Errorf(model.KindInvalidInput, op, "EVM engine cannot serve %s", asset)
	}
	return nil
}

// GenerateWallet derives the ETH wallet at index. The same record holds
// USDT or USDC deposits when asset is a token.
func (e *Engine) GenerateWallet(ctx context.Context, asset model.Asset, index uint32) (*model.WalletRecord, error) {
	const op = "generate wallet"
	if err := checkAsset(op, asset); err != nil {
		return nil, err
	}

	w, err := hd.DeriveWallet(e.seed, hd.CoinTypeEthereum, index, hd.EthereumEncoder{})
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

// GetBalance returns the ETH or token balance of address in display units.
func (e *Engine) GetBalance(ctx context.Context, asset model.Asset, address string) (decimal.Decimal, error) {
	const op = "get balance"
	if err := checkAsset(op, asset); err != nil {
		return decimal.Zero, err
	}
	owner, err := parseAddress(op, address)
	if err != nil {
		return decimal.Zero, err
	}

	if !asset.IsToken() {
		wei, err := e.nativeBalance(ctx, owner)
		if err != nil {
			return decimal.Zero, model.WithAsset(err, asset)
		}
		return common.FromBaseUnits(wei, common.WeiDecimals), nil
	}

	contract, err := e.tokenContract(op, asset)
	if err != nil {
		return decimal.Zero, err
	}
	dec, err := e.tokenDecimals(ctx, contract)
	if err != nil {
		return decimal.Zero, model.WithAsset(err, asset)
	}
	units, err := e.tokenBalance(ctx, contract, owner)
	if err != nil {
		return decimal.Zero, model.WithAsset(err, asset)
	}
	return common.FromBaseUnits(units, dec), nil
}

// SendTransaction sends amount of asset from the wallet behind encryptedKey
// and returns the hash once the transaction is mined with status 1 and has
// the configured number of confirmations.
func (e *Engine) SendTransaction(ctx context.Context, asset model.Asset, encryptedKey, to string, amount decimal.Decimal) (string, error) {
	const op = "send transaction"
	if err := checkAsset(op, asset); err != nil {
		return "", err
	}
	dest, err := parseAddress(op, to)
	if err != nil {
		return "", err
	}
	if !amount.IsPositive() {
		return "", model.Errorf(model.KindInvalidInput, op, "amount must be positive")
	}

	key, err := e.decryptKey(encryptedKey)
	if err != nil {
		return "", model.WithAsset(err, asset)
	}
	defer key.D.SetInt64(0)
	from := ethcrypto.PubkeyToAddress(key.PublicKey)

	gasPrice, err := e.gasPrice(ctx)
	if err != nil {
		return "", model.WithAsset(err, asset)
	}

	var (
		txTo     ethcommon.Address
		value    *big.Int
		gasLimit uint64
		data     []byte
	)
	if asset.IsToken() {
		txTo, value, gasLimit, data, err = e.prepareToken(ctx, asset, from, dest, amount, gasPrice)
	} else {
		txTo, value, gasLimit, err = e.prepareNative(ctx, from, dest, amount, gasPrice)
	}
	if err != nil {
		return "", model.WithAsset(err, asset)
	}

	nonce, err := common.RetryRead(ctx, func() (uint64, error) {
		n, err := e.backend.PendingNonceAt(ctx, from)
		return n, model.Wrap(model.KindNetwork, "pending nonce", err)
	})
	if err != nil {
		return "", model.WithAsset(err, asset)
	}
	chainID, err := common.RetryRead(ctx, func() (*big.Int, error) {
		id, err := e.backend.ChainID(ctx)
		return id, model.Wrap(model.KindNetwork, "chain id", err)
	})
	if err != nil {
		return "", model.WithAsset(err, asset)
	}

	tx := types.NewTransaction(nonce, txTo, value, gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return "", &model.Error{Kind: model.KindBroadcast, Op: op, Asset: asset, Err: err}
	}
	hash := signed.Hash()

	log := e.logger.With(
		zap.Stringer("asset", asset),
		zap.String("from", from.Hex()),
		zap.String("to", dest.Hex()),
		zap.String("amount", amount.String()),
		zap.String("tx_hash", hash.Hex()),
		zap.Uint64("nonce", nonce),
		zap.String("gas_price", gasPrice.String()),
	)

	if err := e.backend.SendTransaction(ctx, signed); err != nil {
		if !e.knownTransaction(ctx, hash) {
			log.Error("send failed", zap.Error(err))
			return "", &model.Error{Kind: model.KindBroadcast, Op: op, Asset: asset, Err: err}
		}
		log.Warn("send reported an error but the node has the transaction", zap.Error(err))
	}
	log.Info("transaction submitted")

	if err := e.waitConfirmed(ctx, hash); err != nil {
		log.Error("transaction not confirmed", zap.Error(err))
		return "", model.WithAsset(err, asset)
	}
	log.Info("transaction confirmed")
	return hash.Hex(), nil
}

func (e *Engine) prepareNative(ctx context.Context, from, to ethcommon.Address, amount decimal.Decimal, gasPrice *big.Int) (ethcommon.Address, *big.Int, uint64, error) {
	const op = "prepare native send"

	value, err := common.ToBaseUnits(amount, common.WeiDecimals)
	if err != nil {
		return ethcommon.Address{}, nil, 0, err
	}
	balance, err := e.nativeBalance(ctx, from)
	if err != nil {
		return ethcommon.Address{}, nil, 0, err
	}
	gasCost := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(GasLimitNative))
	need := new(big.Int).Add(value, gasCost)
	if balance.Cmp(need) < 0 {
		return ethcommon.Address{}, nil, 0, model.Errorf(model.KindInsufficientFundsAfterFees, op,
			"balance %s wei cannot cover %s wei plus %s wei gas", balance, value, gasCost)
	}
	return to, value, GasLimitNative, nil
}

func (e *Engine) prepareToken(ctx context.Context, asset model.Asset, from, to ethcommon.Address, amount decimal.Decimal, gasPrice *big.Int) (ethcommon.Address, *big.Int, uint64, []byte, error) {
	const op = "prepare token send"

	contract, err := e.tokenContract(op, asset)
	if err != nil {
		return ethcommon.Address{}, nil, 0, nil, err
	}
	dec, err := e.tokenDecimals(ctx, contract)
	if err != nil {
		return ethcommon.Address{}, nil, 0, nil, err
	}
	units, err := common.ToBaseUnits(amount, dec)
	if err != nil {
		return ethcommon.Address{}, nil, 0, nil, err
	}
	if units.Sign() <= 0 {
		return ethcommon.Address{}, nil, 0, nil, model.Errorf(model.KindInvalidInput, op, "amount %s is below token precision", amount)
	}

	tokenBal, err := e.tokenBalance(ctx, contract, from)
	if err != nil {
		return ethcommon.Address{}, nil, 0, nil, err
	}
	if tokenBal.Cmp(units) < 0 {
		return ethcommon.Address{}, nil, 0, nil, model.Errorf(model.KindInsufficientFunds, op,
			"token balance %s cannot cover %s", tokenBal, units)
	}

	ethBal, err := e.nativeBalance(ctx, from)
	if err != nil {
		return ethcommon.Address{}, nil, 0, nil, err
	}
	gasCost := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(GasLimitToken))
	if ethBal.Cmp(gasCost) < 0 {
		return ethcommon.Address{}, nil, 0, nil, model.Errorf(model.KindInsufficientFundsAfterFees, op,
			"ETH balance %s wei cannot cover %s wei gas", ethBal, gasCost)
	}

	data, err := transferData(to, units)
	if err != nil {
		return ethcommon.Address{}, nil, 0, nil, err
	}
	return contract, big.NewInt(0), GasLimitToken, data, nil
}

func (e *Engine) nativeBalance(ctx context.Context, account ethcommon.Address) (*big.Int, error) {
	return common.RetryRead(ctx, func() (*big.Int, error) {
		b, err := e.backend.BalanceAt(ctx, account, nil)
		return b, model.Wrap(model.KindNetwork, "eth balance", err)
	})
}

// gasPrice returns the node's suggestion. A price above the configured cap
// is refused rather than clamped: a clamped transaction may never be mined.
func (e *Engine) gasPrice(ctx context.Context) (*big.Int, error) {
	price, err := common.RetryRead(ctx, func() (*big.Int, error) {
		p, err := e.backend.SuggestGasPrice(ctx)
		return p, model.Wrap(model.KindNetwork, "suggest gas price", err)
	})
	if err != nil {
		return nil, err
	}
	if e.maxGasPrice.Sign() > 0 && price.Cmp(e.maxGasPrice) > 0 {
		return nil, model.Errorf(model.KindNetwork, "gas price", "suggested %s wei exceeds cap %s wei", price, e.maxGasPrice)
	}
	return price, nil
}

func (e *Engine) decryptKey(blob string) (*ecdsa.PrivateKey, error) {
	raw, err := e.vault.Decrypt(blob)
	if err != nil {
		return nil, err
	}
	defer clear(raw)
	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(string(raw), "0x"))
	if err != nil {
		return nil, model.Wrap(model.KindDecryption, "decode key", errors.New("stored key is not a secp256k1 hex key"))
	}
	return key, nil
}

// parseAddress accepts 0x-prefixed hex addresses. Mixed-case input must
// carry a valid EIP-55 checksum.
func parseAddress(op, s string) (ethcommon.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") || !ethcommon.IsHexAddress(s) {
		return ethcommon.Address{}, model.Errorf(model.KindInvalidInput, op, "invalid Ethereum address %q", s)
	}
	addr := ethcommon.HexToAddress(s)
	body := s[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) && addr.Hex() != s {
		return ethcommon.Address{}, model.Errorf(model.KindInvalidInput, op, "address %q fails EIP-55 checksum", s)
	}
	return addr, nil
}
