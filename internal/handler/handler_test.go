package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/shopspring/decimal"
)

type fakeEscrow struct {
	err    error
	opened struct {
		dealID string
		asset  model.Asset
		usd    decimal.Decimal
	}
	releasedTo string
	sweptTo    string
}

func (f *fakeEscrow) OpenDeal(ctx context.Context, dealID string, asset model.Asset, usd decimal.Decimal) (*model.OpenDealResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.opened.dealID, f.opened.asset, f.opened.usd = dealID, asset, usd
	return &model.OpenDealResponse{DealID: dealID, Asset: asset, Address: "bc1qdeposit", USDAmount: usd}, nil
}

func (f *fakeEscrow) CheckDeposit(ctx context.Context, dealID string) (*model.DepositResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.DepositResponse{DealID: dealID, Asset: model.AssetBTC, Accepted: true}, nil
}

func (f *fakeEscrow) Release(ctx context.Context, dealID, to string) (*model.ReleaseResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.releasedTo = to
	return &model.ReleaseResponse{TxID: "abc"}, nil
}

func (f *fakeEscrow) Sweep(ctx context.Context, dealID, to string) (*model.ReleaseResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sweptTo = to
	return &model.ReleaseResponse{TxID: "def"}, nil
}

type fakeChain struct {
	balance decimal.Decimal
	err     error
}

func (f *fakeChain) GetBalance(ctx context.Context, asset model.Asset, address string) (decimal.Decimal, error) {
	return f.balance, f.err
}

type fakePrices struct{}

func (fakePrices) UsdToCrypto(ctx context.Context, usd decimal.Decimal, asset model.Asset) (decimal.Decimal, error) {
	return usd.Div(decimal.NewFromInt(100)), nil
}

func (fakePrices) CryptoToUsd(ctx context.Context, amount decimal.Decimal, asset model.Asset) (decimal.Decimal, error) {
	return amount.Mul(decimal.NewFromInt(100)), nil
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var body model.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestOpenDeal(t *testing.T) {
	svc := &fakeEscrow{}
	h := NewEscrowHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/escrow/deals", strings.NewReader(`{"dealId":"d1","asset":"btc","usdAmount":"50"}`))
	rec := httptest.NewRecorder()
	h.OpenDeal(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if svc.opened.dealID != "d1" || svc.opened.asset != model.AssetBTC || !svc.opened.usd.Equal(decimal.NewFromInt(50)) {
		t.Errorf("OpenDeal called with %+v", svc.opened)
	}
	var resp model.OpenDealResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Asset != model.AssetBTC || resp.Address != "bc1qdeposit" {
		t.Errorf("response = %+v", resp)
	}
}

func TestOpenDeal_BadRequests(t *testing.T) {
	h := NewEscrowHandler(&fakeEscrow{})
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"unknown asset", `{"asset":"DOGE","usdAmount":"10"}`},
		{"bad amount", `{"asset":"ETH","usdAmount":"ten"}`},
		{"zero amount", `{"asset":"ETH","usdAmount":"0"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.OpenDeal(rec, httptest.NewRequest(http.MethodPost, "/escrow/deals", strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if body := decodeError(t, rec); body.Code != "INVALID_INPUT" {
				t.Errorf("code = %s", body.Code)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	escrow := NewEscrowHandler(&fakeEscrow{})
	chain := NewChainHandler(&fakeChain{}, fakePrices{})
	tests := []struct {
		name   string
		method string
		h      http.HandlerFunc
	}{
		{"open deal", http.MethodGet, escrow.OpenDeal},
		{"deposit", http.MethodPost, escrow.CheckDeposit},
		{"release", http.MethodGet, escrow.Release},
		{"sweep", http.MethodGet, escrow.Sweep},
		{"balance", http.MethodPost, chain.GetBalance},
		{"convert", http.MethodDelete, chain.Convert},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.h(rec, httptest.NewRequest(tt.method, "/", nil))
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("status = %d, want 405", rec.Code)
			}
		})
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		kind model.Kind
		want int
		code string
	}{
		{model.KindInsufficientFunds, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
		{model.KindInsufficientFundsAfterFees, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS_AFTER_FEES"},
		{model.KindDecryption, http.StatusUnprocessableEntity, "DECRYPTION_ERROR"},
		{model.KindNetwork, http.StatusServiceUnavailable, "NETWORK_ERROR"},
		{model.KindBroadcast, http.StatusBadGateway, "BROADCAST_ERROR"},
		{model.KindNotFound, http.StatusNotFound, "NOT_FOUND"},
		{model.KindConflict, http.StatusConflict, "CONFLICT"},
		{model.KindDerivation, http.StatusInternalServerError, "DERIVATION_ERROR"},
		{model.KindConfig, http.StatusInternalServerError, "CONFIG_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h := NewEscrowHandler(&fakeEscrow{err: model.Errorf(tt.kind, "release", "boom")})
			rec := httptest.NewRecorder()
			h.Release(rec, httptest.NewRequest(http.MethodPost, "/escrow/deals/release", strings.NewReader(`{"dealId":"d","toAddress":"a"}`)))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if body := decodeError(t, rec); body.Code != tt.code {
				t.Errorf("code = %s, want %s", body.Code, tt.code)
			}
		})
	}

	// Untyped errors are internal.
	h := NewEscrowHandler(&fakeEscrow{err: errors.New("boom")})
	rec := httptest.NewRecorder()
	h.CheckDeposit(rec, httptest.NewRequest(http.MethodGet, "/escrow/deals/deposit?dealId=d", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("untyped error status = %d, want 500", rec.Code)
	}
}

func TestRelease(t *testing.T) {
	svc := &fakeEscrow{}
	h := NewEscrowHandler(svc)

	rec := httptest.NewRecorder()
	h.Release(rec, httptest.NewRequest(http.MethodPost, "/escrow/deals/release", strings.NewReader(`{"dealId":"d"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing address status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Release(rec, httptest.NewRequest(http.MethodPost, "/escrow/deals/release", strings.NewReader(`{"dealId":"d","toAddress":"bc1qpayout"}`)))
	if rec.Code != http.StatusOK || svc.releasedTo != "bc1qpayout" {
		t.Errorf("status = %d, released to %q", rec.Code, svc.releasedTo)
	}
}

func TestSweep(t *testing.T) {
	svc := &fakeEscrow{}
	h := NewEscrowHandler(svc)

	rec := httptest.NewRecorder()
	h.Sweep(rec, httptest.NewRequest(http.MethodPost, "/escrow/deals/sweep", strings.NewReader(`{"toAddress":"bc1q"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing deal status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Sweep(rec, httptest.NewRequest(http.MethodPost, "/escrow/deals/sweep", strings.NewReader(`{"dealId":"d","toAddress":"bc1qtreasury"}`)))
	if rec.Code != http.StatusOK || svc.sweptTo != "bc1qtreasury" || svc.releasedTo != "" {
		t.Errorf("status = %d, swept to %q, released to %q", rec.Code, svc.sweptTo, svc.releasedTo)
	}
	if !strings.Contains(rec.Body.String(), `"txId":"def"`) {
		t.Errorf("body = %s", rec.Body.String())
	}

	svc.err = model.Errorf(model.KindInsufficientFundsAfterFees, "sweep plan", "wallet is empty")
	rec = httptest.NewRecorder()
	h.Sweep(rec, httptest.NewRequest(http.MethodPost, "/escrow/deals/sweep", strings.NewReader(`{"dealId":"d","toAddress":"bc1q"}`)))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty wallet status = %d, want 422", rec.Code)
	}
}

func TestCheckDeposit_RequiresDealID(t *testing.T) {
	h := NewEscrowHandler(&fakeEscrow{})
	rec := httptest.NewRecorder()
	h.CheckDeposit(rec, httptest.NewRequest(http.MethodGet, "/escrow/deals/deposit", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetBalance(t *testing.T) {
	h := NewChainHandler(&fakeChain{balance: decimal.RequireFromString("1.5")}, fakePrices{})

	rec := httptest.NewRecorder()
	h.GetBalance(rec, httptest.NewRequest(http.MethodGet, "/chain/balance?asset=SOL&address=abc", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp model.BalanceResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Asset != model.AssetSOL || !resp.Balance.Equal(decimal.RequireFromString("1.5")) || !resp.USD.Equal(decimal.NewFromInt(150)) {
		t.Errorf("response = %+v", resp)
	}

	rec = httptest.NewRecorder()
	h.GetBalance(rec, httptest.NewRequest(http.MethodGet, "/chain/balance?asset=SOL", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing address status = %d, want 400", rec.Code)
	}

	down := NewChainHandler(&fakeChain{err: model.Errorf(model.KindNetwork, "get balance", "timeout")}, fakePrices{})
	rec = httptest.NewRecorder()
	down.GetBalance(rec, httptest.NewRequest(http.MethodGet, "/chain/balance?asset=BTC&address=abc", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("network error status = %d, want 503", rec.Code)
	}
}

func TestConvert(t *testing.T) {
	h := NewChainHandler(&fakeChain{}, fakePrices{})

	rec := httptest.NewRecorder()
	h.Convert(rec, httptest.NewRequest(http.MethodGet, "/price/convert?usd=50&asset=eth", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp model.ConvertResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Amount.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("amount = %s, want 0.5", resp.Amount)
	}

	rec = httptest.NewRecorder()
	h.Convert(rec, httptest.NewRequest(http.MethodGet, "/price/convert?usd=-1&asset=eth", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative usd status = %d, want 400", rec.Code)
	}
}
