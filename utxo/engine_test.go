package utxo

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/AlexZinkM/escrow-custody/internal/crypto"
	"github.com/AlexZinkM/escrow-custody/internal/hd"
	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

const (
	fundingTxA = "a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90"
	fundingTxB = "0f1e2d3c4b5a69788796a5b4c3d2e1f00f1e2d3c4b5a69788796a5b4c3d2e1f0"
)

type fakeSource struct {
	mu           sync.Mutex
	balance      int64
	utxos        []model.UTXO
	tip          int64
	estimates    map[string]float64
	broadcastErr error
	known        bool
	broadcasts   []string
}

func (f *fakeSource) GetConfirmedBalance(ctx context.Context, address string) (int64, error) {
	return f.balance, nil
}

func (f *fakeSource) GetUTXOs(ctx context.Context, address string) ([]model.UTXO, error) {
	return f.utxos, nil
}

func (f *fakeSource) GetTipHeight(ctx context.Context) (int64, error) {
	return f.tip, nil
}

func (f *fakeSource) GetFeeEstimates(ctx context.Context) (map[string]float64, error) {
	if f.estimates == nil {
		return nil, model.Errorf(model.KindNetwork, "fee estimates", "unavailable")
	}
	return f.estimates, nil
}

func (f *fakeSource) Broadcast(ctx context.Context, rawTx string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, rawTx)
	if f.broadcastErr != nil {
		return "", f.broadcastErr
	}
	return "ignored", nil
}

func (f *fakeSource) HasTransaction(ctx context.Context, txid string) (bool, error) {
	return f.known, nil
}

func newTestEngine(t *testing.T, network Network, src Source) *Engine {
	t.Helper()
	seed, err := hd.LoadSeed(testMnemonic, "")
	if err != nil {
		t.Fatalf("LoadSeed() error: %v", err)
	}
	vault, err := crypto.NewVault([]byte("test passphrase"))
	if err != nil {
		t.Fatalf("NewVault() error: %v", err)
	}
	t.Cleanup(vault.Close)
	return NewEngine(network, src, seed, vault, nil)
}

func decodeTx(t *testing.T, rawHex string) *wire.MsgTx {
	t.Helper()
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		t.Fatalf("broadcast payload is not hex: %v", err)
	}
	tx := wire.NewMsgTx(2)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		t.Fatalf("Deserialize() error: %v", err)
	}
	return tx
}

func TestGenerateWallet_Addresses(t *testing.T) {
	tests := []struct {
		network Network
		prefix  string
		path    string
	}{
		{BitcoinNetwork(false, 10, 3), "bc1q", "m/44'/0'/7'/0/0"},
		{BitcoinNetwork(true, 10, 3), "tb1q", "m/44'/1'/7'/0/0"},
		{LitecoinNetwork(false, 50, 6), "ltc1q", "m/44'/2'/7'/0/0"},
		{LitecoinNetwork(true, 50, 6), "tltc1q", "m/44'/1'/7'/0/0"},
	}
	for _, tt := range tests {
		t.Run(tt.network.Params.Name, func(t *testing.T) {
			e := newTestEngine(t, tt.network, &fakeSource{})
			rec, err := e.GenerateWallet(context.Background(), tt.network.Asset, 7)
			if err != nil {
				t.Fatalf("GenerateWallet() error: %v", err)
			}
			if !strings.HasPrefix(rec.Address, tt.prefix) {
				t.Errorf("address = %s, want prefix %s", rec.Address, tt.prefix)
			}
			if rec.DerivationPath != tt.path || rec.AccountIndex != 7 || rec.Asset != tt.network.Asset {
				t.Errorf("record = %+v", rec)
			}
			if strings.Contains(rec.EncryptedPrivateKey, rec.Address) {
				t.Error("encrypted key leaks the address")
			}

			again, err := e.GenerateWallet(context.Background(), tt.network.Asset, 7)
			if err != nil {
				t.Fatalf("GenerateWallet() error: %v", err)
			}
			if again.Address != rec.Address {
				t.Error("derivation is not deterministic")
			}
			if again.EncryptedPrivateKey == rec.EncryptedPrivateKey {
				t.Error("two encryptions of the same key produced the same blob")
			}
		})
	}
}

func TestGenerateWallet_TestnetsShareCoinType(t *testing.T) {
	btc := newTestEngine(t, BitcoinNetwork(true, 10, 3), &fakeSource{})
	ltc := newTestEngine(t, LitecoinNetwork(true, 50, 6), &fakeSource{})
	ctx := context.Background()

	b7, err := btc.GenerateWallet(ctx, model.AssetBTC, 7)
	if err != nil {
		t.Fatalf("GenerateWallet(BTC) error: %v", err)
	}
	l7, err := ltc.GenerateWallet(ctx, model.AssetLTC, 7)
	if err != nil {
		t.Fatalf("GenerateWallet(LTC) error: %v", err)
	}
	if b7.PublicKey != l7.PublicKey {
		t.Fatal("testnet BTC and LTC at one index should hold the same key")
	}

	// Distinct indexes, as the global allocator hands out, never share one.
	l8, err := ltc.GenerateWallet(ctx, model.AssetLTC, 8)
	if err != nil {
		t.Fatalf("GenerateWallet(LTC) error: %v", err)
	}
	if l8.PublicKey == b7.PublicKey {
		t.Error("index 8 reuses the index 7 key")
	}
}

func TestGenerateWallet_WrongAsset(t *testing.T) {
	e := newTestEngine(t, BitcoinNetwork(false, 10, 3), &fakeSource{})
	if _, err := e.GenerateWallet(context.Background(), model.AssetLTC, 0); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("GenerateWallet(LTC) error = %v, want invalid input", err)
	}
}

func TestGetBalance(t *testing.T) {
	e := newTestEngine(t, BitcoinNetwork(false, 10, 3), &fakeSource{balance: 123456789})
	rec, err := e.GenerateWallet(context.Background(), model.AssetBTC, 0)
	if err != nil {
		t.Fatalf("GenerateWallet() error: %v", err)
	}
	got, err := e.GetBalance(context.Background(), model.AssetBTC, rec.Address)
	if err != nil {
		t.Fatalf("GetBalance() error: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("1.23456789")) {
		t.Errorf("balance = %s", got)
	}

	if _, err := e.GetBalance(context.Background(), model.AssetBTC, "ltc1qnotbitcoin"); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("GetBalance(bad address) error = %v, want invalid input", err)
	}
}

func fundedEngine(t *testing.T, src *fakeSource) (*Engine, *model.WalletRecord, string) {
	t.Helper()
	e := newTestEngine(t, BitcoinNetwork(false, 10, 3), src)
	source, err := e.GenerateWallet(context.Background(), model.AssetBTC, 1)
	if err != nil {
		t.Fatalf("GenerateWallet() error: %v", err)
	}
	dest, err := e.GenerateWallet(context.Background(), model.AssetBTC, 2)
	if err != nil {
		t.Fatalf("GenerateWallet() error: %v", err)
	}
	return e, source, dest.Address
}

func TestSendTransaction_SignsAndBroadcasts(t *testing.T) {
	src := &fakeSource{
		tip: 1000,
		utxos: []model.UTXO{
			{TxID: fundingTxA, Vout: 0, Value: 60000, Confirmed: true, BlockHeight: 990},
			{TxID: fundingTxB, Vout: 3, Value: 80000, Confirmed: true, BlockHeight: 995},
		},
	}
	e, source, to := fundedEngine(t, src)

	txid, err := e.SendTransaction(context.Background(), model.AssetBTC, source.EncryptedPrivateKey, to, decimal.RequireFromString("0.001"))
	if err != nil {
		t.Fatalf("SendTransaction() error: %v", err)
	}
	if len(src.broadcasts) != 1 {
		t.Fatalf("broadcast %d times, want 1", len(src.broadcasts))
	}

	tx := decodeTx(t, src.broadcasts[0])
	if tx.TxHash().String() != txid {
		t.Errorf("txid = %s, want hash of broadcast tx %s", txid, tx.TxHash())
	}
	if len(tx.TxIn) != 2 || len(tx.TxOut) != 2 {
		t.Fatalf("tx has %d inputs and %d outputs", len(tx.TxIn), len(tx.TxOut))
	}
	for i, in := range tx.TxIn {
		if len(in.Witness) != 2 {
			t.Errorf("input %d witness has %d items", i, len(in.Witness))
		}
	}

	destAddr, _ := btcutil.DecodeAddress(to, e.network.Params)
	destScript, _ := txscript.PayToAddrScript(destAddr)
	if tx.TxOut[0].Value != 100000 || !bytes.Equal(tx.TxOut[0].PkScript, destScript) {
		t.Errorf("payment output = %d to %x", tx.TxOut[0].Value, tx.TxOut[0].PkScript)
	}
	wantChange := int64(140000 - 100000 - EstimateFee(2, 2, 10))
	if tx.TxOut[1].Value != wantChange {
		t.Errorf("change = %d, want %d", tx.TxOut[1].Value, wantChange)
	}
}

func TestSendTransaction_InsufficientFundsNeverBroadcasts(t *testing.T) {
	src := &fakeSource{
		tip:   1000,
		utxos: []model.UTXO{{TxID: fundingTxA, Value: 50000, Confirmed: true, BlockHeight: 900}},
	}
	e, source, to := fundedEngine(t, src)

	_, err := e.SendTransaction(context.Background(), model.AssetBTC, source.EncryptedPrivateKey, to, decimal.RequireFromString("0.001"))
	if !errors.Is(err, model.ErrInsufficientFunds) {
		t.Fatalf("SendTransaction() error = %v, want insufficient funds", err)
	}
	if len(src.broadcasts) != 0 {
		t.Errorf("broadcast %d times, want 0", len(src.broadcasts))
	}
}

func TestSendTransaction_SkipsShallowOutputs(t *testing.T) {
	src := &fakeSource{
		tip: 1000,
		utxos: []model.UTXO{
			{TxID: fundingTxA, Value: 500000, Confirmed: true, BlockHeight: 999}, // 2 confirmations
			{TxID: fundingTxB, Value: 500000, Confirmed: false},
		},
	}
	e, source, to := fundedEngine(t, src)

	_, err := e.SendTransaction(context.Background(), model.AssetBTC, source.EncryptedPrivateKey, to, decimal.RequireFromString("0.001"))
	if !errors.Is(err, model.ErrInsufficientFunds) {
		t.Fatalf("SendTransaction() error = %v, want insufficient funds", err)
	}
}

func TestSendTransaction_DustAmount(t *testing.T) {
	src := &fakeSource{
		tip:   1000,
		utxos: []model.UTXO{{TxID: fundingTxA, Value: 500000, Confirmed: true, BlockHeight: 900}},
	}
	e, source, to := fundedEngine(t, src)

	_, err := e.SendTransaction(context.Background(), model.AssetBTC, source.EncryptedPrivateKey, to, decimal.RequireFromString("0.00000500"))
	if !errors.Is(err, model.ErrInsufficientFunds) {
		t.Fatalf("SendTransaction() error = %v, want insufficient funds", err)
	}
	if len(src.broadcasts) != 0 {
		t.Error("dust payment was broadcast")
	}
}

func TestSendTransaction_BroadcastErrorButKnown(t *testing.T) {
	src := &fakeSource{
		tip:          1000,
		utxos:        []model.UTXO{{TxID: fundingTxA, Value: 500000, Confirmed: true, BlockHeight: 900}},
		broadcastErr: model.Errorf(model.KindNetwork, "esplora broadcast", "connection reset"),
		known:        true,
	}
	e, source, to := fundedEngine(t, src)

	txid, err := e.SendTransaction(context.Background(), model.AssetBTC, source.EncryptedPrivateKey, to, decimal.RequireFromString("0.001"))
	if err != nil {
		t.Fatalf("SendTransaction() error: %v", err)
	}
	if txid != decodeTx(t, src.broadcasts[0]).TxHash().String() {
		t.Errorf("txid = %s does not match the relayed transaction", txid)
	}
	if len(src.broadcasts) != 1 {
		t.Errorf("broadcast %d times, want exactly 1", len(src.broadcasts))
	}
}

func TestSendTransaction_BroadcastRejected(t *testing.T) {
	src := &fakeSource{
		tip:          1000,
		utxos:        []model.UTXO{{TxID: fundingTxA, Value: 500000, Confirmed: true, BlockHeight: 900}},
		broadcastErr: model.Errorf(model.KindNetwork, "esplora broadcast", "timeout"),
	}
	e, source, to := fundedEngine(t, src)

	_, err := e.SendTransaction(context.Background(), model.AssetBTC, source.EncryptedPrivateKey, to, decimal.RequireFromString("0.001"))
	if !errors.Is(err, model.ErrBroadcast) {
		t.Fatalf("SendTransaction() error = %v, want broadcast error", err)
	}
}

func TestSendTransaction_InvalidInputs(t *testing.T) {
	src := &fakeSource{tip: 1000}
	e, source, to := fundedEngine(t, src)

	tests := []struct {
		name string
		key  string
		to   string
		want error
	}{
		{"bad destination", source.EncryptedPrivateKey, "not-an-address", model.ErrInvalidInput},
		{"testnet destination", source.EncryptedPrivateKey, "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx", model.ErrInvalidInput},
		{"tampered key", "AAAA" + source.EncryptedPrivateKey[4:], to, model.ErrDecryption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.SendTransaction(context.Background(), model.AssetBTC, tt.key, tt.to, decimal.RequireFromString("0.001"))
			if !errors.Is(err, tt.want) {
				t.Fatalf("SendTransaction() error = %v, want %v", err, tt.want)
			}
		})
	}
	if len(src.broadcasts) != 0 {
		t.Error("invalid send reached broadcast")
	}
}

func TestFeeRate_NeverBelowConfigured(t *testing.T) {
	network := BitcoinNetwork(false, 10, 3)
	network.UseFeeEstimates = true

	tests := []struct {
		name      string
		estimates map[string]float64
		want      int64
	}{
		{"estimate above floor", map[string]float64{"6": 17.2}, 18},
		{"estimate below floor", map[string]float64{"6": 3.1}, 10},
		{"target missing", map[string]float64{"1": 40}, 10},
		{"estimates unavailable", nil, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, network, &fakeSource{estimates: tt.estimates})
			if got := e.feeRate(context.Background()); got != tt.want {
				t.Errorf("feeRate() = %d, want %d", got, tt.want)
			}
		})
	}
}
