package model

import "github.com/shopspring/decimal"

// DepositResponse represents response for GET /escrow/deals/deposit
type DepositResponse struct {
	DealID   string          `json:"dealId"`
	Asset    Asset           `json:"asset"`
	Address  string          `json:"address"`
	Balance  decimal.Decimal `json:"balance"`
	Expected decimal.Decimal `json:"expected"`
	Accepted bool            `json:"accepted"`
}

// BalanceResponse represents response for GET /chain/balance
type BalanceResponse struct {
	Asset   Asset           `json:"asset"`
	Address string          `json:"address"`
	Balance decimal.Decimal `json:"balance"`
	USD     decimal.Decimal `json:"usd"`
}

// ConvertResponse represents response for GET /price/convert
type ConvertResponse struct {
	Asset  Asset           `json:"asset"`
	USD    decimal.Decimal `json:"usd"`
	Amount decimal.Decimal `json:"amount"`
}
