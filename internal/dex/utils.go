// =============================
// File: internal/dex/utils.go
// =============================
package dex

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ToBaseUnits converts a human-readable token amount into base units,
// truncating anything below the smallest unit.
func ToBaseUnits(amount decimal.Decimal, decimals uint8) (uint64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("negative amount %s", amount)
	}
	units := amount.Shift(int32(decimals)).Truncate(0)
	if units.BigInt().BitLen() > 64 {
		return 0, fmt.Errorf("amount %s overflows u64 at %d decimals", amount, decimals)
	}
	return units.BigInt().Uint64(), nil
}

// FromBaseUnits converts base units into a human-readable amount.
func FromBaseUnits(units uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromUint64(units).Shift(-int32(decimals))
}
