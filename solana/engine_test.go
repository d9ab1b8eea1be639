package solana

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AlexZinkM/escrow-custody/internal/crypto"
	"github.com/AlexZinkM/escrow-custody/internal/hd"
	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

type fakeRPC struct {
	mu      sync.Mutex
	balance uint64
	sendErr error
	status  *rpc.SignatureStatusesResult
	sent    []*solana.Transaction
	polls   int
}

func (f *fakeRPC) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	return f.balance, nil
}

func (f *fakeRPC) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return solana.HashFromBytes(make([]byte, 32)), nil
}

func (f *fakeRPC) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	return tx.Signatures[0], nil
}

func (f *fakeRPC) GetSignatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if len(f.sent) == 0 || f.sent[0].Signatures[0] != sig {
		return nil, nil
	}
	return f.status, nil
}

type fixture struct {
	engine *Engine
	rpc    *fakeRPC
	from   *model.WalletRecord
	to     string
}

func newFixture(t *testing.T, minConf uint64) *fixture {
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

	client := &fakeRPC{
		balance: 2_000_000_000,
		status:  &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusFinalized},
	}
	e := NewEngine(Config{
		MinConfirmations: minConf,
		ConfirmTimeout:   100 * time.Millisecond,
		PollInterval:     5 * time.Millisecond,
	}, client, seed, vault, nil)

	from, err := e.GenerateWallet(context.Background(), model.AssetSOL, 0)
	if err != nil {
		t.Fatalf("GenerateWallet() error: %v", err)
	}
	to, err := e.GenerateWallet(context.Background(), model.AssetSOL, 1)
	if err != nil {
		t.Fatalf("GenerateWallet() error: %v", err)
	}
	return &fixture{engine: e, rpc: client, from: from, to: to.Address}
}

func (fx *fixture) send(amount string) (string, error) {
	return fx.engine.SendTransaction(context.Background(), model.AssetSOL, fx.from.EncryptedPrivateKey, fx.to, decimal.RequireFromString(amount))
}

func TestGenerateWallet(t *testing.T) {
	fx := newFixture(t, 32)
	if fx.from.DerivationPath != "m/44'/501'/0'/0'" {
		t.Errorf("path = %s", fx.from.DerivationPath)
	}
	if _, err := solana.PublicKeyFromBase58(fx.from.Address); err != nil {
		t.Errorf("address %s is not base58: %v", fx.from.Address, err)
	}
	if fx.from.Address == fx.to {
		t.Error("distinct indices produced the same address")
	}
	if _, err := fx.engine.GenerateWallet(context.Background(), model.AssetETH, 0); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("GenerateWallet(ETH) error = %v, want invalid input", err)
	}
}

func TestGetBalance(t *testing.T) {
	fx := newFixture(t, 32)
	fx.rpc.balance = 1_500_000_001

	got, err := fx.engine.GetBalance(context.Background(), model.AssetSOL, fx.from.Address)
	if err != nil {
		t.Fatalf("GetBalance() error: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("1.500000001")) {
		t.Errorf("balance = %s", got)
	}
	if _, err := fx.engine.GetBalance(context.Background(), model.AssetSOL, "not base58!"); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("GetBalance(bad address) error = %v, want invalid input", err)
	}
}

func TestSendTransaction_Finalized(t *testing.T) {
	fx := newFixture(t, 32)

	sig, err := fx.send("0.5")
	if err != nil {
		t.Fatalf("SendTransaction() error: %v", err)
	}
	if len(fx.rpc.sent) != 1 {
		t.Fatalf("sent %d transactions, want 1", len(fx.rpc.sent))
	}
	tx := fx.rpc.sent[0]
	if tx.Signatures[0].String() != sig {
		t.Errorf("signature = %s, want %s", sig, tx.Signatures[0])
	}
	if err := tx.VerifySignatures(); err != nil {
		t.Errorf("VerifySignatures() error: %v", err)
	}
	if tx.Message.AccountKeys[0].String() != fx.from.Address {
		t.Errorf("fee payer = %s, want %s", tx.Message.AccountKeys[0], fx.from.Address)
	}
}

func TestSendTransaction_Commitment(t *testing.T) {
	tests := []struct {
		name    string
		minConf uint64
		status  *rpc.SignatureStatusesResult
		wantErr error
	}{
		{"confirmed is enough below rooting depth", 1, &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusConfirmed}, nil},
		{"confirmed is not finalized", 32, &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusConfirmed}, model.ErrBroadcast},
		{"processed only", 1, &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusProcessed}, model.ErrBroadcast},
		{"failed on chain", 1, &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusConfirmed, Err: map[string]any{"InstructionError": []any{0, "Custom"}}}, model.ErrBroadcast},
		{"never seen", 1, nil, model.ErrBroadcast},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, tt.minConf)
			fx.rpc.status = tt.status

			_, err := fx.send("0.1")
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("SendTransaction() error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SendTransaction() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSendTransaction_InsufficientAfterFees(t *testing.T) {
	fx := newFixture(t, 32)
	fx.rpc.balance = 100_000_000 + solFeeLamports - 1

	_, err := fx.send("0.1")
	if !errors.Is(err, model.ErrInsufficientFundsAfterFees) {
		t.Fatalf("SendTransaction() error = %v, want insufficient funds after fees", err)
	}
	if len(fx.rpc.sent) != 0 {
		t.Error("transaction was submitted")
	}
}

func TestSendTransaction_AmbiguousSubmission(t *testing.T) {
	fx := newFixture(t, 32)
	fx.rpc.sendErr = model.Errorf(model.KindNetwork, "solana send", "connection reset")

	sig, err := fx.send("0.1")
	if err != nil {
		t.Fatalf("SendTransaction() error: %v", err)
	}
	if sig != fx.rpc.sent[0].Signatures[0].String() || len(fx.rpc.sent) != 1 {
		t.Errorf("signature %s after %d submissions", sig, len(fx.rpc.sent))
	}
}

func TestSendTransaction_Rejected(t *testing.T) {
	fx := newFixture(t, 32)
	fx.rpc.sendErr = model.Errorf(model.KindBroadcast, "solana send", "preflight failed")

	if _, err := fx.send("0.1"); !errors.Is(err, model.ErrBroadcast) {
		t.Fatalf("SendTransaction() error = %v, want broadcast error", err)
	}
	if fx.rpc.polls != 0 {
		t.Errorf("polled %d times after an explicit rejection", fx.rpc.polls)
	}
}

func TestSendTransaction_InvalidInput(t *testing.T) {
	fx := newFixture(t, 32)
	tests := []struct {
		name   string
		to     string
		amount string
	}{
		{"bad address", "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", "0.1"},
		{"below one lamport", fx.to, "0.0000000001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.engine.SendTransaction(context.Background(), model.AssetSOL, fx.from.EncryptedPrivateKey, tt.to, decimal.RequireFromString(tt.amount))
			if !errors.Is(err, model.ErrInvalidInput) {
				t.Fatalf("SendTransaction() error = %v, want invalid input", err)
			}
		})
	}
}
