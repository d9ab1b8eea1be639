package model

// ReleaseRequest represents request for POST /escrow/deals/release
type ReleaseRequest struct {
	DealID    string `json:"dealId" binding:"required"`
	ToAddress string `json:"toAddress" binding:"required"`
}

// ReleaseResponse represents response for POST /escrow/deals/release
type ReleaseResponse struct {
	TxID        string         `json:"txId"`
	ExplorerURL string         `json:"explorerUrl"`
	Plan        SettlementPlan `json:"plan"`
}
