package hd

import (
	"fmt"

	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// BIP-44 purpose and SLIP-44 coin types.
const (
	Purpose          uint32 = 44
	CoinTypeBitcoin  uint32 = 0
	CoinTypeTestnet  uint32 = 1
	CoinTypeLitecoin uint32 = 2
	CoinTypeEthereum uint32 = 60
	CoinTypeSolana   uint32 = 501

	hardened = hdkeychain.HardenedKeyStart
)

// Curve selects the derivation scheme.
type Curve uint8

const (
	CurveSecp256k1 Curve = iota + 1 // BIP-32
	CurveEd25519                    // SLIP-10
)

// Encoded is a derived keypair mapped to one chain's encoding rules.
type Encoded struct {
	Address    string
	PublicKey  string
	PrivateKey []byte // material handed to the vault
}

// Encoder maps raw key bytes to a chain's address and stored key format.
type Encoder interface {
	Curve() Curve
	Encode(publicKey, privateKey []byte) (*Encoded, error)
}

// Wallet is a freshly derived keypair. PrivateKey must be wiped once it has
// been encrypted.
type Wallet struct {
	Address    string
	PublicKey  string
	PrivateKey []byte
	Path       string
	Index      uint32
}

// Wipe zeroes the private key material.
func (w *Wallet) Wipe() {
	clear(w.PrivateKey)
}

// Path returns the derivation path string for a curve, coin type and
// account index. Ed25519 admits only hardened segments, so the change level
// is hardened and the address level is dropped.
func Path(curve Curve, coinType, index uint32) string {
	if curve == CurveEd25519 {
		return fmt.Sprintf("m/%d'/%d'/%d'/0'", Purpose, coinType, index)
	}
	return fmt.Sprintf("m/%d'/%d'/%d'/0/0", Purpose, coinType, index)
}

// DeriveWallet derives the keypair at purpose'/coinType'/index'/0/0 and
// encodes it for one chain. It is pure: the same inputs always produce the
// same wallet.
func DeriveWallet(seed *MasterSeed, coinType, index uint32, enc Encoder) (*Wallet, error) {
	const op = "derive wallet"

	if index >= hardened {
		return nil, model.Errorf(model.KindDerivation, op, "account index %d out of range", index)
	}
	if coinType >= hardened {
		return nil, model.Errorf(model.KindDerivation, op, "coin type %d out of range", coinType)
	}
	raw, err := seed.bytes()
	if err != nil {
		return nil, err
	}

	var pub, priv []byte
	switch enc.Curve() {
	case CurveSecp256k1:
		pub, priv, err = deriveSecp256k1(raw, coinType, index)
	case CurveEd25519:
		pub, priv, err = deriveEd25519(raw, coinType, index)
	default:
		return nil, model.Errorf(model.KindDerivation, op, "unknown curve %d", enc.Curve())
	}
	if err != nil {
		return nil, model.Wrap(model.KindDerivation, op, err)
	}
	defer clear(priv)

	encoded, err := enc.Encode(pub, priv)
	if err != nil {
		return nil, model.Wrap(model.KindDerivation, op, err)
	}
	if encoded == nil || encoded.Address == "" || len(encoded.PrivateKey) == 0 {
		return nil, model.Errorf(model.KindDerivation, op, "derived key material is empty")
	}

	return &Wallet{
		Address:    encoded.Address,
		PublicKey:  encoded.PublicKey,
		PrivateKey: encoded.PrivateKey,
		Path:       Path(enc.Curve(), coinType, index),
		Index:      index,
	}, nil
}

func deriveSecp256k1(seed []byte, coinType, index uint32) (pub, priv []byte, err error) {
	// Network params only pick the xprv version bytes, which never leave this
	// function.
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, nil, fmt.Errorf("master key: %w", err)
	}
	defer master.Zero()

	key := master
	for _, child := range []uint32{hardened + Purpose, hardened + coinType, hardened + index, 0, 0} {
		next, err := key.Derive(child)
		if err != nil {
			return nil, nil, fmt.Errorf("derive child %d: %w", child, err)
		}
		if key != master {
			key.Zero()
		}
		key = next
	}
	defer key.Zero()

	ecPriv, err := key.ECPrivKey()
	if err != nil {
		return nil, nil, fmt.Errorf("private key: %w", err)
	}
	return ecPriv.PubKey().SerializeCompressed(), ecPriv.Serialize(), nil
}
