package handler

import (
	"context"
	"net/http"

	"github.com/AlexZinkM/escrow-custody/internal/common"
	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/shopspring/decimal"
)

// BalanceReader reads confirmed balances.
type BalanceReader interface {
	GetBalance(ctx context.Context, asset model.Asset, address string) (decimal.Decimal, error)
}

// Prices converts between USD and asset amounts.
type Prices interface {
	UsdToCrypto(ctx context.Context, usd decimal.Decimal, asset model.Asset) (decimal.Decimal, error)
	CryptoToUsd(ctx context.Context, amount decimal.Decimal, asset model.Asset) (decimal.Decimal, error)
}

// ChainHandler serves chain and price lookups
type ChainHandler struct {
	chain  BalanceReader
	prices Prices
}

// NewChainHandler creates a new ChainHandler
func NewChainHandler(chain BalanceReader, prices Prices) *ChainHandler {
	return &ChainHandler{chain: chain, prices: prices}
}

// GetBalance handles GET /chain/balance
// @Summary      Get address balance
// @Description  Gets the confirmed balance of any address with its USD value
// @Tags         chain
// @Produce      json
// @Param        asset    query     string  true  "Asset: BTC, LTC, ETH, USDT, USDC or SOL"
// @Param        address  query     string  true  "Address"
// @Success      200      {object}  model.BalanceResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      503      {object}  model.ErrorResponse
// @Router       /chain/balance [get]
func (h *ChainHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	asset, err := model.ParseAsset(q.Get("asset"))
	if err != nil {
		writeError(w, err)
		return
	}
	address := q.Get("address")
	if address == "" {
		badRequest(w, "address is required")
		return
	}

	balance, err := h.chain.GetBalance(r.Context(), asset, address)
	if err != nil {
		writeError(w, err)
		return
	}
	usd, err := h.prices.CryptoToUsd(r.Context(), balance, asset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.BalanceResponse{
		Asset:   asset,
		Address: address,
		Balance: balance,
		USD:     usd,
	})
}

// Convert handles GET /price/convert
// @Summary      Convert USD to crypto
// @Description  Prices a USD amount in the asset, rounded to its display precision
// @Tags         price
// @Produce      json
// @Param        usd    query     string  true  "USD amount"
// @Param        asset  query     string  true  "Asset"
// @Success      200    {object}  model.ConvertResponse
// @Failure      400    {object}  model.ErrorResponse
// @Router       /price/convert [get]
func (h *ChainHandler) Convert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	asset, err := model.ParseAsset(q.Get("asset"))
	if err != nil {
		writeError(w, err)
		return
	}
	usd, err := common.ParseAmount(q.Get("usd"))
	if err != nil {
		writeError(w, err)
		return
	}

	amount, err := h.prices.UsdToCrypto(r.Context(), usd, asset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ConvertResponse{Asset: asset, USD: usd, Amount: amount})
}
