package model

import (
	"fmt"
	"strings"
)

// Asset is a supported escrow asset. The set is closed: every switch over
// Asset in this module lists all values.
type Asset uint8

const (
	AssetBTC Asset = iota + 1
	AssetLTC
	AssetETH
	AssetUSDT
	AssetUSDC
	AssetSOL
)

// Assets lists every supported asset in display order.
var Assets = []Asset{AssetBTC, AssetLTC, AssetETH, AssetUSDT, AssetUSDC, AssetSOL}

// Family groups assets that share one transaction engine.
type Family uint8

const (
	FamilyUnknown Family = iota
	FamilyUTXO
	FamilyEVM
	FamilySolana
)

func (f Family) String() string {
	switch f {
	case FamilyUTXO:
		return "utxo"
	case FamilyEVM:
		return "evm"
	case FamilySolana:
		return "solana"
	default:
		return "unknown"
	}
}

func (a Asset) String() string {
	switch a {
	case AssetBTC:
		return "BTC"
	case AssetLTC:
		return "LTC"
	case AssetETH:
		return "ETH"
	case AssetUSDT:
		return "USDT"
	case AssetUSDC:
		return "USDC"
	case AssetSOL:
		return "SOL"
	default:
		return fmt.Sprintf("Asset(%d)", uint8(a))
	}
}

// ParseAsset parses a case-insensitive asset symbol.
func ParseAsset(s string) (Asset, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BTC":
		return AssetBTC, nil
	case "LTC":
		return AssetLTC, nil
	case "ETH":
		return AssetETH, nil
	case "USDT":
		return AssetUSDT, nil
	case "USDC":
		return AssetUSDC, nil
	case "SOL":
		return AssetSOL, nil
	default:
		return 0, Errorf(KindInvalidInput, "parse asset", "unsupported asset %q", s)
	}
}

// Valid reports whether a is one of the supported assets.
func (a Asset) Valid() bool {
	return a.Family() != FamilyUnknown
}

// Family returns the engine family the asset rides on.
func (a Asset) Family() Family {
	switch a {
	case AssetBTC, AssetLTC:
		return FamilyUTXO
	case AssetETH, AssetUSDT, AssetUSDC:
		return FamilyEVM
	case AssetSOL:
		return FamilySolana
	default:
		return FamilyUnknown
	}
}

// IsToken reports whether the asset is a contract token on its host chain.
func (a Asset) IsToken() bool {
	return a == AssetUSDT || a == AssetUSDC
}

// Native returns the asset that pays network fees for a.
func (a Asset) Native() Asset {
	if a.IsToken() {
		return AssetETH
	}
	return a
}

// DisplayDecimals is the conventional number of decimals shown for amounts
// of the asset. Price conversion rounds to this precision.
func (a Asset) DisplayDecimals() int32 {
	switch a {
	case AssetBTC, AssetLTC:
		return 8
	case AssetETH:
		return 6
	case AssetSOL:
		return 4
	case AssetUSDT, AssetUSDC:
		return 2
	default:
		return 0
	}
}

func (a Asset) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid asset %d", uint8(a))
	}
	return []byte(a.String()), nil
}

func (a *Asset) UnmarshalText(text []byte) error {
	parsed, err := ParseAsset(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
