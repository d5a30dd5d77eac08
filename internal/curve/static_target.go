// internal/curve/static_target.go
package curve

import (
	"fmt"

	"github.com/holiman/uint256"
)

// StaticTarget anchors the curve at an admin-configured reserve-X level. The
// matching Y target follows from conserving total pool value at oracle prices.
type StaticTarget struct {
	TargetX uint64
}

var _ Anchor = (*StaticTarget)(nil)

func (a *StaticTarget) Variant() Variant { return VariantStaticTarget }

func (a *StaticTarget) Clone() Anchor {
	c := *a
	return &c
}

// TargetY solves target_y = (current_x*mult_x + current_y*mult_y - target_x*mult_x) / mult_y.
func (a *StaticTarget) TargetY(m Multipliers, r Reserves) (uint64, error) {
	if err := m.validate(); err != nil {
		return 0, err
	}

	valueX, err := checkedMul(u256(r.X), u256(m.X), bits128)
	if err != nil {
		return 0, fmt.Errorf("value_x: %w", err)
	}
	valueY, err := checkedMul(u256(r.Y), u256(m.Y), bits128)
	if err != nil {
		return 0, fmt.Errorf("value_y: %w", err)
	}
	total, err := checkedAdd(valueX, valueY, bits128)
	if err != nil {
		return 0, fmt.Errorf("value_total: %w", err)
	}
	targetXValue, err := checkedMul(u256(a.TargetX), u256(m.X), bits128)
	if err != nil {
		return 0, fmt.Errorf("target_x_value: %w", err)
	}
	targetYValue, err := checkedSub(total, targetXValue)
	if err != nil {
		return 0, fmt.Errorf("target_y_value: %w", err)
	}
	targetY, err := checkedDiv(targetYValue, u256(m.Y))
	if err != nil {
		return 0, fmt.Errorf("target_y: %w", err)
	}

	return narrow64(targetY)
}

// targetXK recovers the curve-space X target from K: sqrt(big_k * mult_y / mult_x).
func (a *StaticTarget) targetXK(tp *TradingPair) (*uint256.Int, error) {
	m := tp.Multipliers()
	scaled, err := checkedMul(&tp.BigK, u256(m.Y), bits128)
	if err != nil {
		return nil, fmt.Errorf("target_x_k: %w", err)
	}
	ratio, err := checkedDiv(scaled, u256(m.X))
	if err != nil {
		return nil, fmt.Errorf("target_x_k: %w", err)
	}
	return isqrt(ratio), nil
}

func (a *StaticTarget) Equilibrium(tp *TradingPair, r Reserves) (Equilibrium, error) {
	targetY, err := a.TargetY(tp.Multipliers(), r)
	if err != nil {
		return Equilibrium{}, err
	}
	targetXK, err := a.targetXK(tp)
	if err != nil {
		return Equilibrium{}, err
	}
	targetYK, err := checkedDiv(&tp.BigK, targetXK)
	if err != nil {
		return Equilibrium{}, fmt.Errorf("target_y_k: %w", err)
	}

	return Equilibrium{
		TargetX:  a.TargetX,
		TargetY:  targetY,
		TargetXK: targetXK,
		TargetYK: targetYK,
	}, nil
}

// Invariant is the stored K; static-target pools never recompute it per quote.
func (a *StaticTarget) Invariant(tp *TradingPair, _ Reserves) (*uint256.Int, error) {
	return tp.BigK.Clone(), nil
}

// AvailableBounds are the real reserves: a quote may never drain a side.
func (a *StaticTarget) AvailableBounds(_ *TradingPair, r Reserves) (uint64, uint64, error) {
	return r.X, r.Y, nil
}

func (a *StaticTarget) Shift(tp *TradingPair, r Reserves) (CurvePoint, error) {
	if err := tp.Multipliers().validate(); err != nil {
		return CurvePoint{}, err
	}

	eq, err := a.Equilibrium(tp, r)
	if err != nil {
		return CurvePoint{}, err
	}

	// current_x_k = target_x_k - target_x + current_x
	offset, err := checkedSub(eq.TargetXK, u256(a.TargetX))
	if err != nil {
		return CurvePoint{}, fmt.Errorf("current_x_k: %w", err)
	}
	currentXK, err := checkedAdd(offset, u256(r.X), bits128)
	if err != nil {
		return CurvePoint{}, fmt.Errorf("current_x_k: %w", err)
	}
	currentYK, err := checkedDiv(&tp.BigK, currentXK)
	if err != nil {
		return CurvePoint{}, fmt.Errorf("current_y_k: %w", err)
	}

	availableX, availableY, _ := a.AvailableBounds(tp, r)

	return CurvePoint{
		BigK:       tp.BigK.Clone(),
		CurrentXK:  currentXK,
		CurrentYK:  currentYK,
		AvailableX: availableX,
		AvailableY: availableY,
		TargetX:    eq.TargetX,
		TargetY:    eq.TargetY,
		CurrentX:   r.X,
		CurrentY:   r.Y,
		CoordBits:  int(bits128),
		Rebates:    true,
	}, nil
}
