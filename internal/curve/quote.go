// internal/curve/quote.go
package curve

import (
	"fmt"

	"github.com/holiman/uint256"
)

const (
	feeDenominator      = 1_000_000
	protocolDenominator = 1000
	percent             = 100
)

// Direction is the side of the pool the input is paid into.
type Direction uint8

const (
	XToY Direction = iota
	YToX
)

func (d Direction) String() string {
	if d == YToX {
		return "y_to_x"
	}
	return "x_to_y"
}

// CurvePoint is the pool mapped onto curve space: the invariant, the current
// coordinates and the ceilings a single quote may not reach.
type CurvePoint struct {
	BigK       *uint256.Int
	CurrentXK  *uint256.Int
	CurrentYK  *uint256.Int
	AvailableX uint64
	AvailableY uint64
	TargetX    uint64
	TargetY    uint64
	CurrentX   uint64
	CurrentY   uint64

	// CoordBits is the width new coordinates must fit into (64 or 128).
	CoordBits int

	// Rebates enables the fee refund for trades moving toward the target.
	Rebates bool
}

// FeeSchedule holds the fee parameters of a pool.
type FeeSchedule struct {
	FeeMillionth               uint64
	ProtocolFeeShareThousandth uint64
	RebatePercentage           uint64
}

// Quote is the full breakdown of a swap. OutputAmount + ProtocolFee + LPFee
// always equals OutputBeforeFee.
type Quote struct {
	InputAmount     uint64
	OutputAmount    uint64
	ProtocolFee     uint64
	LPFee           uint64
	OutputBeforeFee uint64
	FeeBeforeRebate uint64
	Rebate          uint64
}

// Fee is the net fee charged, after any rebate.
func (q Quote) Fee() uint64 {
	return q.ProtocolFee + q.LPFee
}

// IsZero reports whether the quote moves nothing.
func (q Quote) IsZero() bool {
	return q == Quote{}
}

// Swap solves the curve for input paid on side dir and applies fees.
func (p CurvePoint) Swap(dir Direction, input uint64, fees FeeSchedule) (Quote, error) {
	if input == 0 {
		return Quote{}, nil
	}

	w := width(p.CoordBits)
	if w != bits64 && w != bits128 {
		return Quote{}, fmt.Errorf("coordinate width %d: %w", p.CoordBits, ErrNumOverflowing)
	}

	curIn, curOut := p.CurrentXK, p.CurrentYK
	available, ceilingErr := p.AvailableY, ErrInsufficientActiveY
	target, current := p.TargetX, p.CurrentX
	if dir == YToX {
		curIn, curOut = p.CurrentYK, p.CurrentXK
		available, ceilingErr = p.AvailableX, ErrInsufficientActiveX
		target, current = p.TargetY, p.CurrentY
	}

	newIn, err := checkedAdd(curIn, u256(input), w)
	if err != nil {
		return Quote{}, fmt.Errorf("new %s coordinate: %w", dir, err)
	}
	newOut, err := checkedDiv(p.BigK, newIn)
	if err != nil {
		return Quote{}, fmt.Errorf("new %s coordinate: %w", dir, err)
	}
	if !fits(newOut, w) {
		return Quote{}, fmt.Errorf("new %s coordinate: %w", dir, ErrNumOverflowing)
	}

	delta, err := checkedSub(curOut, newOut)
	if err != nil {
		return Quote{}, fmt.Errorf("output before fee: %w", err)
	}
	outBeforeFee, err := narrow64(delta)
	if err != nil {
		return Quote{}, fmt.Errorf("output before fee: %w", err)
	}
	if outBeforeFee >= available {
		return Quote{}, fmt.Errorf("output %d, available %d: %w", outBeforeFee, available, ceilingErr)
	}

	feeBeforeRebate, err := mulDiv64(outBeforeFee, fees.FeeMillionth, feeDenominator)
	if err != nil {
		return Quote{}, fmt.Errorf("fee: %w", err)
	}

	var rebate uint64
	if p.Rebates {
		rebate, err = rebateAmount(input, target, current, feeBeforeRebate, fees.RebatePercentage)
		if err != nil {
			return Quote{}, fmt.Errorf("rebate: %w", err)
		}
	}

	fee, err := sub64(feeBeforeRebate, rebate)
	if err != nil {
		return Quote{}, fmt.Errorf("net fee: %w", err)
	}
	output, err := sub64(outBeforeFee, fee)
	if err != nil {
		return Quote{}, fmt.Errorf("output after fee: %w", err)
	}
	protocolFee, err := mulDiv64(fee, fees.ProtocolFeeShareThousandth, protocolDenominator)
	if err != nil {
		return Quote{}, fmt.Errorf("protocol fee: %w", err)
	}
	lpFee, err := sub64(fee, protocolFee)
	if err != nil {
		return Quote{}, fmt.Errorf("lp fee: %w", err)
	}

	return Quote{
		InputAmount:     input,
		OutputAmount:    output,
		ProtocolFee:     protocolFee,
		LPFee:           lpFee,
		OutputBeforeFee: outBeforeFee,
		FeeBeforeRebate: feeBeforeRebate,
		Rebate:          rebate,
	}, nil
}

// rebateAmount refunds the share of the fee proportional to the part of the
// input that closes the gap between current and target. input must be > 0.
func rebateAmount(input, target, current, fee, rebatePercentage uint64) (uint64, error) {
	gap := target - min(target, current)
	ratio, err := mulDiv64(min(input, gap), percent, input)
	if err != nil {
		return 0, err
	}
	scaled, err := mulDiv64(fee, ratio, percent)
	if err != nil {
		return 0, err
	}
	return mulDiv64(scaled, rebatePercentage, percent)
}

// QuoteXToY quotes selling input units of X for Y. r is ignored by flow-target pools.
func (tp *TradingPair) QuoteXToY(input uint64, r Reserves) (Quote, error) {
	return tp.Quote(XToY, input, r)
}

// QuoteYToX quotes selling input units of Y for X.
func (tp *TradingPair) QuoteYToX(input uint64, r Reserves) (Quote, error) {
	return tp.Quote(YToX, input, r)
}

// Quote prices a swap without mutating the pair. A zero input is a no-op and
// yields the zero quote for every variant.
func (tp *TradingPair) Quote(dir Direction, input uint64, r Reserves) (Quote, error) {
	if input == 0 {
		return Quote{}, nil
	}
	if tp.Anchor == nil {
		return Quote{}, ErrMissingAnchor
	}

	point, err := tp.Anchor.Shift(tp, r)
	if err != nil {
		return Quote{}, fmt.Errorf("shift %s pool: %w", tp.Anchor.Variant(), err)
	}

	return point.Swap(dir, input, tp.Fees())
}
