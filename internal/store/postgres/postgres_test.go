package postgres

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// openTestStore connects to TEST_DATABASE_URL or skips.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := Open(ctx, url, nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	idx, err := s.NextIndex(ctx)
	if err != nil {
		t.Fatalf("NextIndex() error: %v", err)
	}
	next, err := s.NextIndex(ctx)
	if err != nil {
		t.Fatalf("NextIndex() error: %v", err)
	}
	if next <= idx {
		t.Errorf("NextIndex() = %d after %d", next, idx)
	}

	deal := &model.Deal{
		ID:             uuid.NewString(),
		USDAmount:      decimal.RequireFromString("50.00"),
		ExpectedAmount: decimal.RequireFromString("0.00098"),
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
		Wallet: model.WalletRecord{
			Asset:               model.AssetBTC,
			Address:             "bc1q" + uuid.NewString(),
			EncryptedPrivateKey: "blob",
			PublicKey:           "02ab",
			DerivationPath:      "m/44'/0'/0'/0/0",
			AccountIndex:        idx,
		},
	}
	if err := s.SaveDeal(ctx, deal); err != nil {
		t.Fatalf("SaveDeal() error: %v", err)
	}

	got, err := s.GetDeal(ctx, deal.ID)
	if err != nil {
		t.Fatalf("GetDeal() error: %v", err)
	}
	if got.Wallet != deal.Wallet {
		t.Errorf("wallet = %+v, want %+v", got.Wallet, deal.Wallet)
	}
	if !got.ExpectedAmount.Equal(deal.ExpectedAmount) || !got.USDAmount.Equal(deal.USDAmount) {
		t.Errorf("amounts = %s / %s", got.USDAmount, got.ExpectedAmount)
	}

	if err := s.SaveDeal(ctx, deal); !errors.Is(err, model.ErrConflict) {
		t.Errorf("SaveDeal(duplicate) error = %v, want conflict", err)
	}
	if _, err := s.GetDeal(ctx, uuid.NewString()); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("GetDeal(missing) error = %v, want not found", err)
	}

	if got.ReleasedTxID != "" {
		t.Errorf("fresh deal ReleasedTxID = %q", got.ReleasedTxID)
	}
	if err := s.MarkReleased(ctx, deal.ID, "tx-1"); err != nil {
		t.Fatalf("MarkReleased() error: %v", err)
	}
	err = s.MarkReleased(ctx, deal.ID, "tx-2")
	if !errors.Is(err, model.ErrConflict) || !strings.Contains(err.Error(), "tx-1") {
		t.Errorf("MarkReleased(again) error = %v, want conflict naming tx-1", err)
	}
	if got, _ = s.GetDeal(ctx, deal.ID); got.ReleasedTxID != "tx-1" {
		t.Errorf("ReleasedTxID = %q, want tx-1", got.ReleasedTxID)
	}
	if err := s.MarkReleased(ctx, uuid.NewString(), "tx-3"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("MarkReleased(missing) error = %v, want not found", err)
	}
}
