package hd

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
)

// SegwitEncoder produces native segwit P2WPKH addresses and compressed WIF
// keys under the given network params.
type SegwitEncoder struct {
	Params *chaincfg.Params
}

func (SegwitEncoder) Curve() Curve { return CurveSecp256k1 }

func (e SegwitEncoder) Encode(publicKey, privateKey []byte) (*Encoded, error) {
	if e.Params == nil {
		return nil, errors.New("segwit encoder: missing network params")
	}
	addr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(publicKey), e.Params)
	if err != nil {
		return nil, fmt.Errorf("witness address: %w", err)
	}

	priv, _ := btcec.PrivKeyFromBytes(privateKey)
	defer priv.Zero()
	wif, err := btcutil.NewWIF(priv, e.Params, true)
	if err != nil {
		return nil, fmt.Errorf("wif: %w", err)
	}

	return &Encoded{
		Address:    addr.EncodeAddress(),
		PublicKey:  hex.EncodeToString(publicKey),
		PrivateKey: []byte(wif.String()),
	}, nil
}

// EthereumEncoder produces EIP-55 checksummed addresses and hex private keys.
type EthereumEncoder struct{}

func (EthereumEncoder) Curve() Curve { return CurveSecp256k1 }

func (EthereumEncoder) Encode(publicKey, privateKey []byte) (*Encoded, error) {
	key, err := ethcrypto.ToECDSA(privateKey)
	if err != nil {
		return nil, fmt.Errorf("ecdsa key: %w", err)
	}
	defer key.D.SetInt64(0)

	return &Encoded{
		Address:    ethcrypto.PubkeyToAddress(key.PublicKey).Hex(),
		PublicKey:  hex.EncodeToString(publicKey),
		PrivateKey: []byte(hex.EncodeToString(privateKey)),
	}, nil
}

// SolanaEncoder maps an ed25519 keypair to a base58 address and a base58
// 64-byte secret key.
type SolanaEncoder struct{}

func (SolanaEncoder) Curve() Curve { return CurveEd25519 }

func (SolanaEncoder) Encode(publicKey, privateKey []byte) (*Encoded, error) {
	if len(privateKey) != 64 || len(publicKey) != 32 {
		return nil, errors.New("solana encoder: unexpected ed25519 key length")
	}
	address := solana.PublicKeyFromBytes(publicKey).String()
	return &Encoded{
		Address:    address,
		PublicKey:  address,
		PrivateKey: []byte(solana.PrivateKey(privateKey).String()),
	}, nil
}
