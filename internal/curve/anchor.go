// internal/curve/anchor.go
package curve

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Variant selects how a pool derives its equilibrium point.
type Variant uint8

const (
	// VariantStaticTarget pools keep an admin-configured reserve-X target.
	VariantStaticTarget Variant = iota + 1
	// VariantFlowTarget pools derive the target from net lending positions.
	VariantFlowTarget
)

func (v Variant) String() string {
	switch v {
	case VariantStaticTarget:
		return "static-target"
	case VariantFlowTarget:
		return "flow-target"
	default:
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
}

// Reserves are the live token balances of the pool. Only static-target pools
// read them; flow-target pools quote from their synced lending position.
type Reserves struct {
	X uint64
	Y uint64
}

// Equilibrium is the fair-value point of the curve, both in real reserve
// units and in curve-space coordinates.
type Equilibrium struct {
	TargetX  uint64
	TargetY  uint64
	TargetXK *uint256.Int
	TargetYK *uint256.Int
}

// Anchor is the equilibrium strategy of a pool. Both strategies produce a
// vertex for the same shifted hyperbola; they differ in where the vertex
// comes from.
type Anchor interface {
	Variant() Variant
	// Equilibrium returns the target point implied by the oracle multipliers.
	Equilibrium(tp *TradingPair, r Reserves) (Equilibrium, error)
	// Invariant returns the K the quote will be solved against.
	Invariant(tp *TradingPair, r Reserves) (*uint256.Int, error)
	// AvailableBounds returns the liquidity ceilings for X and Y output.
	AvailableBounds(tp *TradingPair, r Reserves) (x, y uint64, err error)
	// Shift maps the real pool state onto curve coordinates.
	Shift(tp *TradingPair, r Reserves) (CurvePoint, error)
	Clone() Anchor
}

// AnchorInvariant computes K for a curve whose vertex sits at targetY:
//
//	target_y_k = target_y * concentration
//	target_x_k = target_y_k * mult_y / mult_x
//	big_k      = target_x_k * target_y_k
func AnchorInvariant(targetY, concentration uint64, m Multipliers) (*uint256.Int, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	targetYK, err := checkedMul(u256(targetY), u256(concentration), bits128)
	if err != nil {
		return nil, fmt.Errorf("target_y_k: %w", err)
	}
	scaled, err := checkedMul(targetYK, u256(m.Y), bits128)
	if err != nil {
		return nil, fmt.Errorf("target_x_k: %w", err)
	}
	targetXK, err := checkedDiv(scaled, u256(m.X))
	if err != nil {
		return nil, fmt.Errorf("target_x_k: %w", err)
	}
	bigK, err := checkedMul(targetXK, targetYK, bits128)
	if err != nil {
		return nil, fmt.Errorf("big_k: %w", err)
	}

	return bigK, nil
}
