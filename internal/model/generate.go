package model

import "github.com/shopspring/decimal"

// OpenDealRequest represents request for POST /escrow/deals
type OpenDealRequest struct {
	DealID    string `json:"dealId,omitempty"`
	Asset     string `json:"asset" binding:"required"`
	USDAmount string `json:"usdAmount" binding:"required"`
}

// OpenDealResponse represents response for POST /escrow/deals
type OpenDealResponse struct {
	DealID         string          `json:"dealId"`
	Asset          Asset           `json:"asset"`
	Address        string          `json:"address"`
	DerivationPath string          `json:"derivationPath"`
	USDAmount      decimal.Decimal `json:"usdAmount"`
	ExpectedAmount decimal.Decimal `json:"expectedAmount"`
	ServiceFeeUSD  decimal.Decimal `json:"serviceFeeUsd"`
	PaymentURI     string          `json:"paymentUri"`
	ExplorerURL    string          `json:"explorerUrl"`
	QR             string          `json:"QR,omitempty"` // base64 PNG
}
