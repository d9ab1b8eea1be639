package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/AlexZinkM/escrow-custody/evm"
	"github.com/AlexZinkM/escrow-custody/internal/crypto"
	"github.com/AlexZinkM/escrow-custody/internal/hd"
	"github.com/AlexZinkM/escrow-custody/internal/metrics"
	"github.com/AlexZinkM/escrow-custody/internal/model"
	"github.com/AlexZinkM/escrow-custody/solana"
	"github.com/AlexZinkM/escrow-custody/utxo"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

type fakeEngine struct {
	name    string
	mu      sync.Mutex
	calls   []model.Asset
	sendErr error
}

func (f *fakeEngine) record(asset model.Asset) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, asset)
}

func (f *fakeEngine) GenerateWallet(ctx context.Context, asset model.Asset, index uint32) (*model.WalletRecord, error) {
	f.record(asset)
	return &model.WalletRecord{Asset: asset, Address: fmt.Sprintf("%s-%d", f.name, index), AccountIndex: index}, nil
}

func (f *fakeEngine) GetBalance(ctx context.Context, asset model.Asset, address string) (decimal.Decimal, error) {
	f.record(asset)
	return decimal.NewFromInt(1), nil
}

func (f *fakeEngine) SendTransaction(ctx context.Context, asset model.Asset, encryptedKey, to string, amount decimal.Decimal) (string, error) {
	f.record(asset)
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.name + "-tx", nil
}

func fakeEngines() (Engines, map[string]*fakeEngine) {
	fakes := map[string]*fakeEngine{
		"btc": {name: "btc"},
		"ltc": {name: "ltc"},
		"evm": {name: "evm"},
		"sol": {name: "sol"},
	}
	return Engines{BTC: fakes["btc"], LTC: fakes["ltc"], EVM: fakes["evm"], SOL: fakes["sol"]}, fakes
}

func TestNew_RequiresEveryEngine(t *testing.T) {
	engines, _ := fakeEngines()
	engines.SOL = nil
	if _, err := New(engines, nil, nil); !errors.Is(err, model.ErrConfig) {
		t.Fatalf("New() error = %v, want config error", err)
	}
}

func TestRouter_Dispatch(t *testing.T) {
	engines, fakes := fakeEngines()
	r, err := New(engines, nil, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	want := map[model.Asset]string{
		model.AssetBTC:  "btc",
		model.AssetLTC:  "ltc",
		model.AssetETH:  "evm",
		model.AssetUSDT: "evm",
		model.AssetUSDC: "evm",
		model.AssetSOL:  "sol",
	}
	for asset, engine := range want {
		rec, err := r.GenerateWallet(context.Background(), asset, 3)
		if err != nil {
			t.Fatalf("GenerateWallet(%s) error: %v", asset, err)
		}
		if rec.Address != engine+"-3" {
			t.Errorf("GenerateWallet(%s) served by %s, want %s", asset, rec.Address, engine)
		}
		txid, err := r.SendTransaction(context.Background(), asset, "blob", "dest", decimal.NewFromInt(1))
		if err != nil || txid != engine+"-tx" {
			t.Errorf("SendTransaction(%s) = %q, %v", asset, txid, err)
		}
	}
	if n := len(fakes["evm"].calls); n != 6 {
		t.Errorf("evm engine saw %d calls, want 6", n)
	}

	if _, err := r.GetBalance(context.Background(), model.Asset(99), "x"); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("GetBalance(unknown) error = %v, want invalid input", err)
	}
}

func TestRouter_SendErrorPassesThrough(t *testing.T) {
	engines, fakes := fakeEngines()
	fakes["btc"].sendErr = model.Errorf(model.KindInsufficientFunds, "select coins", "short")
	r, err := New(engines, metrics.New(), nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := r.SendTransaction(context.Background(), model.AssetBTC, "blob", "dest", decimal.NewFromInt(1)); !errors.Is(err, model.ErrInsufficientFunds) {
		t.Fatalf("SendTransaction() error = %v, want insufficient funds", err)
	}
}

// Concurrent generation over real engines yields one distinct, stable
// address per (asset family, index).
func TestRouter_ConcurrentGeneration(t *testing.T) {
	seed, err := hd.LoadSeed(testMnemonic, "")
	if err != nil {
		t.Fatalf("LoadSeed() error: %v", err)
	}
	vault, err := crypto.NewVault([]byte("router test"))
	if err != nil {
		t.Fatalf("NewVault() error: %v", err)
	}
	defer vault.Close()

	r, err := New(Engines{
		BTC: utxo.NewEngine(utxo.BitcoinNetwork(false, 10, 3), nil, seed, vault, nil),
		LTC: utxo.NewEngine(utxo.LitecoinNetwork(false, 50, 6), nil, seed, vault, nil),
		EVM: evm.NewEngine(evm.Config{MaxGasPriceGwei: 200}, nil, seed, vault, nil),
		SOL: solana.NewEngine(solana.Config{MinConfirmations: 32}, nil, seed, vault, nil),
	}, metrics.New(), nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	const perAsset = 5
	assets := []model.Asset{model.AssetBTC, model.AssetLTC, model.AssetETH, model.AssetSOL}

	var (
		mu      sync.Mutex
		byIndex = make(map[string]string)
	)
	g, ctx := errgroup.WithContext(context.Background())
	for _, asset := range assets {
		for i := range uint32(perAsset) {
			g.Go(func() error {
				rec, err := r.GenerateWallet(ctx, asset, i)
				if err != nil {
					return err
				}
				key := fmt.Sprintf("%s/%d", asset, i)
				mu.Lock()
				defer mu.Unlock()
				byIndex[key] = rec.Address
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent GenerateWallet() error: %v", err)
	}

	seen := make(map[string]string, len(byIndex))
	for key, addr := range byIndex {
		if prev, dup := seen[addr]; dup {
			t.Errorf("address %s produced by %s and %s", addr, prev, key)
		}
		seen[addr] = key
	}
	if len(byIndex) != len(assets)*perAsset {
		t.Fatalf("generated %d wallets, want %d", len(byIndex), len(assets)*perAsset)
	}

	again, err := r.GenerateWallet(context.Background(), model.AssetETH, 0)
	if err != nil {
		t.Fatalf("GenerateWallet() error: %v", err)
	}
	if again.Address != byIndex["ETH/0"] || again.Address != "0x9858EfFD232B4033E47d90003D41EC34EcaEda94" {
		t.Errorf("ETH/0 = %s, not stable", again.Address)
	}
}
