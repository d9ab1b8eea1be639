package solana

import (
	"context"

	"github.com/AlexZinkM/escrow-custody/internal/hd"
	"github.com/AlexZinkM/escrow-custody/internal/model"
)

// GenerateWallet derives the ed25519 wallet at index and encrypts its
// base58 secret key. Nothing is returned unless both steps succeed.
func (e *Engine) GenerateWallet(ctx context.Context, asset model.Asset, index uint32) (*model.WalletRecord, error) {
	const op = "generate wallet"
	if err := checkAsset(op, asset); err != nil {
		return nil, err
	}

	w, err := hd.DeriveWallet(e.seed, hd.CoinTypeSolana, index, hd.SolanaEncoder{})
	if err != nil {
		return nil, model.WithAsset(err, asset)
	}
	// Always clear private key from memory
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
