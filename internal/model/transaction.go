package model

import "github.com/shopspring/decimal"

// UTXO is an unspent output fetched fresh for a single send attempt.
type UTXO struct {
	TxID        string
	Vout        uint32
	Value       int64 // base units
	PkScript    []byte
	Confirmed   bool
	BlockHeight int64
}

// SettlementPlan sizes one release. It is a calculation artifact and is
// never persisted.
type SettlementPlan struct {
	Asset         Asset           `json:"asset"`
	GrossUSD      decimal.Decimal `json:"grossUsd"`
	ServiceFeeUSD decimal.Decimal `json:"serviceFeeUsd"`
	Balance       decimal.Decimal `json:"balance"`
	Payout        decimal.Decimal `json:"payout"`
	Reserve       decimal.Decimal `json:"networkFeeReserve"`
	SendAmount    decimal.Decimal `json:"sendAmount"`
}
