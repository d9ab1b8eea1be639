package common

import (
	"fmt"

	"github.com/AlexZinkM/escrow-custody/internal/model"
)

// TxExplorerURL returns a public block explorer link for a transaction.
func TxExplorerURL(asset model.Asset, txID string, testnet bool) string {
	switch asset {
	case model.AssetBTC:
		if testnet {
			return "https://blockstream.info/testnet/tx/" + txID
		}
		return "https://blockstream.info/tx/" + txID
	case model.AssetLTC:
		if testnet {
			return "https://litecoinspace.org/testnet/tx/" + txID
		}
		return "https://blockchair.com/litecoin/transaction/" + txID
	case model.AssetETH, model.AssetUSDT, model.AssetUSDC:
		if testnet {
			return "https://sepolia.etherscan.io/tx/" + txID
		}
		return "https://etherscan.io/tx/" + txID
	case model.AssetSOL:
		if testnet {
			return "https://explorer.solana.com/tx/" + txID + "?cluster=devnet"
		}
		return "https://explorer.solana.com/tx/" + txID
	default:
		return ""
	}
}

// AddressExplorerURL returns a public block explorer link for an address.
func AddressExplorerURL(asset model.Asset, address string, testnet bool) string {
	switch asset {
	case model.AssetBTC:
		if testnet {
			return "https://blockstream.info/testnet/address/" + address
		}
		return "https://blockstream.info/address/" + address
	case model.AssetLTC:
		if testnet {
			return "https://litecoinspace.org/testnet/address/" + address
		}
		return "https://blockchair.com/litecoin/address/" + address
	case model.AssetETH, model.AssetUSDT, model.AssetUSDC:
		if testnet {
			return "https://sepolia.etherscan.io/address/" + address
		}
		return "https://etherscan.io/address/" + address
	case model.AssetSOL:
		if testnet {
			return fmt.Sprintf("https://explorer.solana.com/address/%s?cluster=devnet", address)
		}
		return "https://explorer.solana.com/address/" + address
	default:
		return ""
	}
}
