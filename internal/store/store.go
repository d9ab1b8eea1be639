// Package store holds what the persistence adapters share.
package store

import "github.com/AlexZinkM/escrow-custody/internal/model"

// MaxAccountIndex is the first index the derivation path cannot encode.
const MaxAccountIndex = 1 << 31

// NotFound reports a missing deal.
func NotFound(dealID string) error {
	return model.Errorf(model.KindNotFound, "get deal", "deal %q not found", dealID)
}

// Duplicate reports a deal id, address or index that is already recorded.
func Duplicate(dealID string) error {
	return model.Errorf(model.KindConflict, "save deal", "deal %q collides with an existing record", dealID)
}

// AlreadyReleased reports a deal whose funds already left under txID.
func AlreadyReleased(dealID, txID string) error {
	return model.Errorf(model.KindConflict, "mark released", "deal %q was already released in %s", dealID, txID)
}

// IndexExhausted reports that the sequence ran past the derivable range.
func IndexExhausted(next int64) error {
	return model.Errorf(model.KindConfig, "next index", "account index %d exceeds %d", next, int64(MaxAccountIndex-1))
}
