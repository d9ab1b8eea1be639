package utxo

import (
	"sort"

	"github.com/AlexZinkM/escrow-custody/internal/model"
)

// Transaction size model in virtual bytes.
const (
	InputSize     = 148
	OutputSize    = 34
	OverheadSize  = 10
	DustThreshold = 546 // base units
)

// EstimateFee returns (inputs*148 + outputs*34 + 10) * feeRate.
func EstimateFee(inputs, outputs int, feeRate int64) int64 {
	return int64(inputs*InputSize+outputs*OutputSize+OverheadSize) * feeRate
}

// Selection is the result of coin selection.
type Selection struct {
	Inputs []model.UTXO
	Total  int64 // sum of selected input values
	Fee    int64 // total - amount - change
	Change int64 // 0 when no change output is created
}

// SelectCoins picks inputs largest-first and re-estimates the fee after each
// addition, stopping at the first input set that pays amount plus its own
// fee. A change output is created only above the dust threshold; a smaller
// remainder is left to the miner. If no input set suffices the result is
// an InsufficientFunds error and nothing may be built.
func SelectCoins(utxos []model.UTXO, amount, feeRate int64) (*Selection, error) {
	const op = "select coins"

	if amount <= DustThreshold {
		return nil, model.Errorf(model.KindInsufficientFunds, op, "amount %d is at or below the dust threshold %d", amount, DustThreshold)
	}
	if feeRate <= 0 {
		return nil, model.Errorf(model.KindInvalidInput, op, "fee rate must be positive")
	}

	sorted := make([]model.UTXO, len(utxos))
	copy(sorted, utxos)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})

	var total int64
	for i, u := range sorted {
		total += u.Value
		n := i + 1

		feeWithChange := EstimateFee(n, 2, feeRate)
		if total >= amount+feeWithChange {
			change := total - amount - feeWithChange
			if change > DustThreshold {
				return &Selection{Inputs: sorted[:n], Total: total, Fee: feeWithChange, Change: change}, nil
			}
			return &Selection{Inputs: sorted[:n], Total: total, Fee: total - amount}, nil
		}

		// Enough for a single-output transaction; the remainder is smaller
		// than the cost of a change output.
		if total >= amount+EstimateFee(n, 1, feeRate) {
			return &Selection{Inputs: sorted[:n], Total: total, Fee: total - amount}, nil
		}
	}

	return nil, model.Errorf(model.KindInsufficientFunds, op,
		"need %d plus fee, have %d across %d confirmed outputs", amount, total, len(sorted))
}
