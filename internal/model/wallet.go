package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletRecord is the per-deal custody record. It is produced once at deal
// creation and never modified afterwards.
type WalletRecord struct {
	Asset               Asset  `json:"asset"`
	Address             string `json:"address"`
	EncryptedPrivateKey string `json:"encryptedPrivateKey"`
	PublicKey           string `json:"publicKey,omitempty"`
	DerivationPath      string `json:"derivationPath"`
	AccountIndex        uint32 `json:"accountIndex"`
}

// Deal is the slice of the escrow deal the custody core persists: the
// wallet record plus the amounts it was opened for. ReleasedTxID is set
// once funds have left the wallet for this deal.
type Deal struct {
	ID             string          `json:"id"`
	USDAmount      decimal.Decimal `json:"usdAmount"`
	ExpectedAmount decimal.Decimal `json:"expectedAmount"`
	Wallet         WalletRecord    `json:"wallet"`
	ReleasedTxID   string          `json:"releasedTxId,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}
