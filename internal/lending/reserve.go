// internal/lending/reserve.go
package lending

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// wadDecimals is the precision of the lending market's fixed-point figures.
const wadDecimals = 18

// ReserveSnapshot holds the lending reserve figures needed to value a cToken.
// Wad-denominated values are raw 18-decimal fixed point.
type ReserveSnapshot struct {
	AvailableAmount           uint64
	BorrowedAmountWads        decimal.Decimal
	OwnerUnclaimedWads        decimal.Decimal
	CollateralMintTotalSupply uint64
}

// WadToDecimal converts a raw 18-decimal fixed-point value into a decimal.
func WadToDecimal(raw decimal.Decimal) decimal.Decimal {
	return raw.Shift(-wadDecimals)
}

// TotalLiquidity is available + borrowed - owner unclaimed, in underlying units.
func (s ReserveSnapshot) TotalLiquidity() decimal.Decimal {
	return decimal.NewFromUint64(s.AvailableAmount).
		Add(WadToDecimal(s.BorrowedAmountWads)).
		Sub(WadToDecimal(s.OwnerUnclaimedWads))
}

// CTokenExchangeRate returns how many underlying units one cToken redeems for.
// The swap path does not consume it; hosts that value ctoken reserves do.
func CTokenExchangeRate(s ReserveSnapshot) (decimal.Decimal, error) {
	if s.CollateralMintTotalSupply == 0 {
		return decimal.Zero, ErrZeroCollateralSupply
	}

	liquidity := s.TotalLiquidity()
	if liquidity.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative reserve liquidity %s", liquidity)
	}

	return liquidity.Div(decimal.NewFromUint64(s.CollateralMintTotalSupply)), nil
}

// CollateralToLiquidity converts a cToken amount to underlying units, rounded down.
func CollateralToLiquidity(s ReserveSnapshot, collateral uint64) (uint64, error) {
	rate, err := CTokenExchangeRate(s)
	if err != nil {
		return 0, err
	}
	out := decimal.NewFromUint64(collateral).Mul(rate).Floor()
	if !out.BigInt().IsUint64() {
		return 0, fmt.Errorf("liquidity amount %s exceeds u64", out)
	}
	return out.BigInt().Uint64(), nil
}
