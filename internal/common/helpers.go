package common

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/shopspring/decimal"
)

const (
	SatoshiDecimals    = 8  // BTC and LTC base units
	WeiDecimals        = 18 // ETH base units
	LamportDecimals    = 9  // SOL base units
	StablecoinDecimals = 6  // USDT and USDC on Ethereum
)

// FromBaseUnits converts an integer amount of base units to display units
// without float precision loss.
// Example: FromBaseUnits(big.NewInt(24981836), 9) = 0.024981836
func FromBaseUnits(value *big.Int, decimals int32) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, -decimals)
}

// FromBaseUnitsInt64 is FromBaseUnits for int64 counters (satoshis, lamports).
func FromBaseUnitsInt64(value int64, decimals int32) decimal.Decimal {
	return decimal.New(value, -decimals)
}

// ToBaseUnits converts a display amount to base units. Digits beyond the
// unit's precision are truncated, never rounded up.
// Example: ToBaseUnits(0.024981836, 9) = 24981836
func ToBaseUnits(amount decimal.Decimal, decimals int32) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, model.Errorf(model.KindInvalidInput, "to base units", "negative amount %s", amount)
	}
	return amount.Shift(decimals).Truncate(0).BigInt(), nil
}

// ToBaseUnitsInt64 is ToBaseUnits for chains whose base units fit in int64.
func ToBaseUnitsInt64(amount decimal.Decimal, decimals int32) (int64, error) {
	v, err := ToBaseUnits(amount, decimals)
	if err != nil {
		return 0, err
	}
	if !v.IsInt64() {
		return 0, model.Errorf(model.KindInvalidInput, "to base units", "amount %s overflows", amount)
	}
	return v.Int64(), nil
}

// ParseAmount parses a strictly positive decimal amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, model.Errorf(model.KindInvalidInput, "parse amount", "empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, model.Wrap(model.KindInvalidInput, "parse amount", fmt.Errorf("invalid decimal %q", s))
	}
	if !d.IsPositive() {
		return decimal.Zero, model.Errorf(model.KindInvalidInput, "parse amount", "amount must be positive, got %s", s)
	}
	return d, nil
}
