package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/AlexZinkM/escrow-custody/internal/common"
	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/shopspring/decimal"
)

// EscrowService is the deal lifecycle the escrow endpoints expose.
type EscrowService interface {
	OpenDeal(ctx context.Context, dealID string, asset model.Asset, usd decimal.Decimal) (*model.OpenDealResponse, error)
	CheckDeposit(ctx context.Context, dealID string) (*model.DepositResponse, error)
	Release(ctx context.Context, dealID, to string) (*model.ReleaseResponse, error)
	Sweep(ctx context.Context, dealID, to string) (*model.ReleaseResponse, error)
}

// EscrowHandler serves /escrow/deals
type EscrowHandler struct {
	svc EscrowService
}

// NewEscrowHandler creates a new EscrowHandler
func NewEscrowHandler(svc EscrowService) *EscrowHandler {
	return &EscrowHandler{svc: svc}
}

// OpenDeal handles POST /escrow/deals
// @Summary      Open escrow deal
// @Description  Derives a fresh deposit wallet for the deal and returns deposit instructions
// @Tags         escrow
// @Accept       json
// @Produce      json
// @Param        request  body      model.OpenDealRequest  true  "Deal data"
// @Success      200      {object}  model.OpenDealResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      409      {object}  model.ErrorResponse
// @Router       /escrow/deals [post]
func (h *EscrowHandler) OpenDeal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.OpenDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	asset, err := model.ParseAsset(req.Asset)
	if err != nil {
		writeError(w, err)
		return
	}
	usd, err := common.ParseAmount(req.USDAmount)
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.svc.OpenDeal(r.Context(), req.DealID, asset, usd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CheckDeposit handles GET /escrow/deals/deposit
// @Summary      Check deal deposit
// @Description  Reads the confirmed balance of the deal wallet and compares it to the expected amount
// @Tags         escrow
// @Produce      json
// @Param        dealId  query     string  true  "Deal ID"
// @Success      200     {object}  model.DepositResponse
// @Failure      404     {object}  model.ErrorResponse
// @Failure      503     {object}  model.ErrorResponse
// @Router       /escrow/deals/deposit [get]
func (h *EscrowHandler) CheckDeposit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	dealID := r.URL.Query().Get("dealId")
	if dealID == "" {
		badRequest(w, "dealId is required")
		return
	}

	resp, err := h.svc.CheckDeposit(r.Context(), dealID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Release handles POST /escrow/deals/release
// @Summary      Release deal funds
// @Description  Sends the deal value minus the network reserve to the payout address. The service fee stays in the deal wallet.
// @Tags         escrow
// @Accept       json
// @Produce      json
// @Param        request  body      model.ReleaseRequest  true  "Release data"
// @Success      200      {object}  model.ReleaseResponse
// @Failure      409      {object}  model.ErrorResponse
// @Failure      422      {object}  model.ErrorResponse
// @Failure      502      {object}  model.ErrorResponse
// @Router       /escrow/deals/release [post]
func (h *EscrowHandler) Release(w http.ResponseWriter, r *http.Request) {
	h.payout(w, r, h.svc.Release)
}

// Sweep handles POST /escrow/deals/sweep
// @Summary      Sweep deal wallet
// @Description  Operator settlement: sends the whole wallet balance minus the network reserve to the given address.
// @Tags         escrow
// @Accept       json
// @Produce      json
// @Param        request  body      model.ReleaseRequest  true  "Sweep data"
// @Success      200      {object}  model.ReleaseResponse
// @Failure      409      {object}  model.ErrorResponse
// @Failure      422      {object}  model.ErrorResponse
// @Failure      502      {object}  model.ErrorResponse
// @Router       /escrow/deals/sweep [post]
func (h *EscrowHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	h.payout(w, r, h.svc.Sweep)
}

type sendFunc func(ctx context.Context, dealID, to string) (*model.ReleaseResponse, error)

func (h *EscrowHandler) payout(w http.ResponseWriter, r *http.Request, send sendFunc) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.ReleaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.DealID == "" || req.ToAddress == "" {
		badRequest(w, "dealId and toAddress are required")
		return
	}

	resp, err := send(r.Context(), req.DealID, req.ToAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
