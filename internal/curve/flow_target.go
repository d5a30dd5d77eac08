// internal/curve/flow_target.go
package curve

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/rovshanmuradov/oracle-amm/internal/lending"
)

// FlowTarget anchors the curve at the pool's net lending position. TargetY is
// persisted and only moves on RefreshTarget/UpdateTargetY, so quotes between
// refreshes use the last recorded vertex.
type FlowTarget struct {
	lending.Position
	TargetY uint64
}

var _ Anchor = (*FlowTarget)(nil)

func (a *FlowTarget) Variant() Variant { return VariantFlowTarget }

func (a *FlowTarget) Clone() Anchor {
	c := *a
	return &c
}

// ComputeTargetY values the net position in Y units:
// (deposit_x*mult_x + deposit_y*mult_y - borrow_x*mult_x - borrow_y*mult_y) / mult_y.
func (a *FlowTarget) ComputeTargetY(m Multipliers) (uint64, error) {
	if err := m.validate(); err != nil {
		return 0, err
	}

	value := func(amount, mult uint64) (*uint256.Int, error) {
		return checkedMul(u256(amount), u256(mult), bits64)
	}

	depositXValue, err := value(a.DepositX, m.X)
	if err != nil {
		return 0, fmt.Errorf("deposit_x value: %w", err)
	}
	depositYValue, err := value(a.DepositY, m.Y)
	if err != nil {
		return 0, fmt.Errorf("deposit_y value: %w", err)
	}
	borrowXValue, err := value(a.BorrowX, m.X)
	if err != nil {
		return 0, fmt.Errorf("borrow_x value: %w", err)
	}
	borrowYValue, err := value(a.BorrowY, m.Y)
	if err != nil {
		return 0, fmt.Errorf("borrow_y value: %w", err)
	}

	deposits, err := checkedAdd(depositXValue, depositYValue, bits64)
	if err != nil {
		return 0, fmt.Errorf("deposit value: %w", err)
	}
	borrows, err := checkedAdd(borrowXValue, borrowYValue, bits64)
	if err != nil {
		return 0, fmt.Errorf("borrow value: %w", err)
	}
	net, err := checkedSub(deposits, borrows)
	if err != nil {
		return 0, fmt.Errorf("net value: %w", err)
	}
	targetY, err := checkedDiv(net, u256(m.Y))
	if err != nil {
		return 0, fmt.Errorf("target_y: %w", err)
	}

	return targetY.Uint64(), nil
}

// coordinates returns target_x_k and target_y_k for the stored TargetY.
func (a *FlowTarget) coordinates(tp *TradingPair) (*uint256.Int, *uint256.Int, error) {
	m := tp.Multipliers()
	if err := m.validate(); err != nil {
		return nil, nil, err
	}

	targetYK, err := checkedMul(u256(tp.Concentration), u256(a.TargetY), bits64)
	if err != nil {
		return nil, nil, fmt.Errorf("target_y_k: %w", err)
	}
	scaled, err := checkedMul(targetYK, u256(m.Y), bits64)
	if err != nil {
		return nil, nil, fmt.Errorf("target_x_k: %w", err)
	}
	targetXK, err := checkedDiv(scaled, u256(m.X))
	if err != nil {
		return nil, nil, fmt.Errorf("target_x_k: %w", err)
	}

	return targetXK, targetYK, nil
}

// Equilibrium reports the vertex. TargetX is zero: at equilibrium the pool
// holds no net X exposure.
func (a *FlowTarget) Equilibrium(tp *TradingPair, _ Reserves) (Equilibrium, error) {
	targetXK, targetYK, err := a.coordinates(tp)
	if err != nil {
		return Equilibrium{}, err
	}
	return Equilibrium{
		TargetY:  a.TargetY,
		TargetXK: targetXK,
		TargetYK: targetYK,
	}, nil
}

// Invariant is recomputed from the current coordinates on every call.
func (a *FlowTarget) Invariant(tp *TradingPair, r Reserves) (*uint256.Int, error) {
	point, err := a.Shift(tp, r)
	if err != nil {
		return nil, err
	}
	return point.BigK, nil
}

// AvailableBounds: Y is capped by what is deposited; X by the curve-space
// target scaled back down plus the net X position, floored at zero.
func (a *FlowTarget) AvailableBounds(tp *TradingPair, r Reserves) (uint64, uint64, error) {
	targetXK, _, err := a.coordinates(tp)
	if err != nil {
		return 0, 0, err
	}
	return a.availableX(targetXK, tp.Concentration)
}

func (a *FlowTarget) availableX(targetXK *uint256.Int, concentration uint64) (uint64, uint64, error) {
	scaledDown, err := checkedDiv(targetXK, u256(concentration))
	if err != nil {
		return 0, 0, fmt.Errorf("available_x: %w", err)
	}
	withDeposit, err := checkedAdd(scaledDown, u256(a.DepositX), bits64)
	if err != nil {
		return 0, 0, fmt.Errorf("available_x: %w", err)
	}

	var availableX uint64
	if withDeposit.Gt(u256(a.BorrowX)) {
		availableX = withDeposit.Uint64() - a.BorrowX
	}

	return availableX, a.DepositY, nil
}

func (a *FlowTarget) Shift(tp *TradingPair, _ Reserves) (CurvePoint, error) {
	targetXK, targetYK, err := a.coordinates(tp)
	if err != nil {
		return CurvePoint{}, err
	}

	// current_y_k = target_y_k + deposit_y - target_y
	yk, err := checkedAdd(targetYK, u256(a.DepositY), bits64)
	if err != nil {
		return CurvePoint{}, fmt.Errorf("current_y_k: %w", err)
	}
	currentYK, err := checkedSub(yk, u256(a.TargetY))
	if err != nil {
		return CurvePoint{}, fmt.Errorf("current_y_k: %w", err)
	}

	// current_x_k = target_x_k + deposit_x - borrow_x
	xk, err := checkedAdd(targetXK, u256(a.DepositX), bits64)
	if err != nil {
		return CurvePoint{}, fmt.Errorf("current_x_k: %w", err)
	}
	currentXK, err := checkedSub(xk, u256(a.BorrowX))
	if err != nil {
		return CurvePoint{}, fmt.Errorf("current_x_k: %w", err)
	}

	bigK, err := checkedMul(currentXK, currentYK, bits128)
	if err != nil {
		return CurvePoint{}, fmt.Errorf("big_k: %w", err)
	}

	availableX, availableY, err := a.availableX(targetXK, tp.Concentration)
	if err != nil {
		return CurvePoint{}, err
	}

	return CurvePoint{
		BigK:       bigK,
		CurrentXK:  currentXK,
		CurrentYK:  currentYK,
		AvailableX: availableX,
		AvailableY: availableY,
		TargetY:    a.TargetY,
		CurrentX:   a.DepositX,
		CurrentY:   a.DepositY,
		CoordBits:  int(bits64),
	}, nil
}
