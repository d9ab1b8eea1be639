package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/AlexZinkM/escrow-custody/internal/common"
	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Mainnet stablecoin contracts.
const (
	USDTMainnet = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	USDCMainnet = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	USDCSepolia = "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"
)

// Minimal ERC-20 ABI: balanceOf, transfer and decimals
const erc20JSON = `[
	{
		"constant": true,
		"inputs": [{"name": "_owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "balance", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "_to", "type": "address"},
			{"name": "_value", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "decimals",
		"outputs": [{"name": "", "type": "uint8"}],
		"type": "function"
	}
]`

var erc20ABI = mustParseABI(erc20JSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("parse erc20 abi: " + err.Error())
	}
	return parsed
}

// DefaultTokens returns the stablecoin contracts for mainnet or Sepolia.
// Sepolia has no canonical USDT; it must come from USDT_CONTRACT.
func DefaultTokens(testnet bool) map[model.Asset]string {
	if testnet {
		return map[model.Asset]string{model.AssetUSDC: USDCSepolia}
	}
	return map[model.Asset]string{
		model.AssetUSDT: USDTMainnet,
		model.AssetUSDC: USDCMainnet,
	}
}

// decimalsCache remembers decimals() per contract; it never changes.
type decimalsCache struct {
	mu     sync.Mutex
	values map[ethcommon.Address]int32
}

func (e *Engine) tokenContract(op string, asset model.Asset) (ethcommon.Address, error) {
	raw, ok := e.tokens[asset]
	if !ok || raw == "" {
		return ethcommon.Address{}, model.Errorf(model.KindConfig, op, "no contract configured for %s", asset)
	}
	if !ethcommon.IsHexAddress(raw) {
		return ethcommon.Address{}, model.Errorf(model.KindConfig, op, "contract for %s is not an address: %s", asset, raw)
	}
	return ethcommon.HexToAddress(raw), nil
}

func (e *Engine) tokenDecimals(ctx context.Context, contract ethcommon.Address) (int32, error) {
	e.decimals.mu.Lock()
	if d, ok := e.decimals.values[contract]; ok {
		e.decimals.mu.Unlock()
		return d, nil
	}
	e.decimals.mu.Unlock()

	out, err := e.call(ctx, contract, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals type %T", out[0])
	}

	e.decimals.mu.Lock()
	e.decimals.values[contract] = int32(d)
	e.decimals.mu.Unlock()
	return int32(d), nil
}

func (e *Engine) tokenBalance(ctx context.Context, contract, owner ethcommon.Address) (*big.Int, error) {
	out, err := e.call(ctx, contract, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok || balance == nil {
		return big.NewInt(0), nil
	}
	return balance, nil
}

// call runs a read-only contract method with retries and unpacks its outputs.
func (e *Engine) call(ctx context.Context, contract ethcommon.Address, method string, args ...any) ([]any, error) {
	op := "erc20 " + method

	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	result, err := common.RetryRead(ctx, func() ([]byte, error) {
		res, err := e.backend.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
		return res, model.Wrap(model.KindNetwork, op, err)
	})
	if err != nil {
		return nil, err
	}
	// An address that never touched the token can come back empty.
	if len(result) == 0 && method == "balanceOf" {
		return []any{big.NewInt(0)}, nil
	}

	out, err := erc20ABI.Unpack(method, result)
	if err != nil {
		return nil, model.Wrap(model.KindNetwork, op, fmt.Errorf("failed to unpack %s: %w", method, err))
	}
	if len(out) == 0 {
		return nil, model.Errorf(model.KindNetwork, op, "empty result")
	}
	return out, nil
}

func transferData(to ethcommon.Address, amount *big.Int) ([]byte, error) {
	data, err := erc20ABI.Pack("transfer", to, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transfer: %w", err)
	}
	return data, nil
}
