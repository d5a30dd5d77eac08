// internal/curve/multiplier.go
package curve

import "fmt"

// Multipliers convert raw balances of X and Y into comparable value units.
type Multipliers struct {
	X uint64
	Y uint64
}

// ComputeMultipliers folds oracle prices and decimal counts into per-unit
// value multipliers. The token with more decimals keeps its raw balance as the
// common unit; the other token's price is inflated by the decimal gap so no
// balance ever has to be divided.
func ComputeMultipliers(priceX, priceY uint64, decimalsX, decimalsY uint8) (Multipliers, error) {
	xScale, yScale := uint64(1), uint64(1)

	switch {
	case decimalsX > decimalsY:
		s, err := pow10(decimalsX - decimalsY)
		if err != nil {
			return Multipliers{}, fmt.Errorf("decimal gap %d: %w", decimalsX-decimalsY, err)
		}
		yScale = s
	case decimalsY > decimalsX:
		s, err := pow10(decimalsY - decimalsX)
		if err != nil {
			return Multipliers{}, fmt.Errorf("decimal gap %d: %w", decimalsY-decimalsX, err)
		}
		xScale = s
	}

	multX, err := checkedMul(u256(priceX), u256(xScale), bits64)
	if err != nil {
		return Multipliers{}, fmt.Errorf("mult_x: %w", err)
	}
	multY, err := checkedMul(u256(priceY), u256(yScale), bits64)
	if err != nil {
		return Multipliers{}, fmt.Errorf("mult_y: %w", err)
	}

	return Multipliers{X: multX.Uint64(), Y: multY.Uint64()}, nil
}

func (m Multipliers) validate() error {
	if m.X == 0 || m.Y == 0 {
		return fmt.Errorf("mult_x=%d mult_y=%d: %w", m.X, m.Y, ErrInvalidMultiplier)
	}
	return nil
}
