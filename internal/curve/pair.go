// internal/curve/pair.go
package curve

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"github.com/rovshanmuradov/oracle-amm/internal/lending"
)

// VolumeWindows is the number of rolling volume buckets kept per pair.
const VolumeWindows = 8

// TradingPair is the persisted state of one pool. Methods that change state
// either fully apply or leave the pair untouched.
type TradingPair struct {
	MintX     solana.PublicKey
	MintY     solana.PublicKey
	DecimalsX uint8
	DecimalsY uint8

	MultX         uint64
	MultY         uint64
	Concentration uint64
	BigK          uint256.Int

	Anchor Anchor

	FeeMillionth               uint64
	ProtocolFeeShareThousandth uint64
	RebatePercentage           uint64

	CumulativeVolume uint64
	VolumeRecords    [VolumeWindows]uint64
}

// Multipliers returns the current value multipliers.
func (tp *TradingPair) Multipliers() Multipliers {
	return Multipliers{X: tp.MultX, Y: tp.MultY}
}

// Fees returns the fee schedule applied to quotes.
func (tp *TradingPair) Fees() FeeSchedule {
	return FeeSchedule{
		FeeMillionth:               tp.FeeMillionth,
		ProtocolFeeShareThousandth: tp.ProtocolFeeShareThousandth,
		RebatePercentage:           tp.RebatePercentage,
	}
}

// Variant reports the anchor kind, or zero when no anchor is set.
func (tp *TradingPair) Variant() Variant {
	if tp.Anchor == nil {
		return 0
	}
	return tp.Anchor.Variant()
}

// Validate checks the static configuration of the pair.
func (tp *TradingPair) Validate() error {
	if tp.Anchor == nil {
		return ErrMissingAnchor
	}
	if tp.Concentration < 1 {
		return fmt.Errorf("concentration %d: %w", tp.Concentration, ErrInvalidConcentration)
	}
	if tp.FeeMillionth > feeDenominator {
		return fmt.Errorf("fee_millionth %d: %w", tp.FeeMillionth, ErrInvalidFeeConfig)
	}
	if tp.ProtocolFeeShareThousandth > protocolDenominator {
		return fmt.Errorf("protocol_fee_share_thousandth %d: %w", tp.ProtocolFeeShareThousandth, ErrInvalidFeeConfig)
	}
	if tp.RebatePercentage > percent {
		return fmt.Errorf("rebate_percentage %d: %w", tp.RebatePercentage, ErrInvalidFeeConfig)
	}
	if !fits(&tp.BigK, bits128) {
		return fmt.Errorf("big_k: %w", ErrNumOverflowing)
	}
	return nil
}

// Clone returns a deep copy safe to mutate independently.
func (tp *TradingPair) Clone() *TradingPair {
	c := *tp
	if tp.Anchor != nil {
		c.Anchor = tp.Anchor.Clone()
	}
	return &c
}

// SetPrices recomputes the multipliers from prices already normalized to
// PriceExponent.
func (tp *TradingPair) SetPrices(priceX, priceY uint64) (Multipliers, error) {
	m, err := ComputeMultipliers(priceX, priceY, tp.DecimalsX, tp.DecimalsY)
	if err != nil {
		return Multipliers{}, err
	}
	tp.MultX, tp.MultY = m.X, m.Y
	return m, nil
}

// UpdatePrice normalizes both oracle readings and recomputes the multipliers.
// On any failure the previous multipliers are kept.
func (tp *TradingPair) UpdatePrice(rx, ry PriceReading) (Multipliers, error) {
	priceX, err := NormalizePrice(rx)
	if err != nil {
		return Multipliers{}, fmt.Errorf("price x: %w", err)
	}
	priceY, err := NormalizePrice(ry)
	if err != nil {
		return Multipliers{}, fmt.Errorf("price y: %w", err)
	}
	return tp.SetPrices(priceX, priceY)
}

// SetInvariant stores an admin-provided K.
func (tp *TradingPair) SetInvariant(k *uint256.Int) error {
	if !fits(k, bits128) {
		return fmt.Errorf("big_k %s: %w", k.Dec(), ErrNumOverflowing)
	}
	tp.BigK.Set(k)
	return nil
}

// UpdateTarget moves a static-target pool to targetX and re-derives K so that
// the curve vertex sits at the Y target implied by the current reserves.
func (tp *TradingPair) UpdateTarget(targetX uint64, r Reserves) (Equilibrium, error) {
	anchor, ok := tp.Anchor.(*StaticTarget)
	if !ok {
		return Equilibrium{}, fmt.Errorf("update target on %s pool: %w", tp.Variant(), ErrWrongVariant)
	}

	next := &StaticTarget{TargetX: targetX}
	targetY, err := next.TargetY(tp.Multipliers(), r)
	if err != nil {
		return Equilibrium{}, err
	}
	bigK, err := AnchorInvariant(targetY, tp.Concentration, tp.Multipliers())
	if err != nil {
		return Equilibrium{}, err
	}

	anchor.TargetX = targetX
	tp.BigK.Set(bigK)

	return anchor.Equilibrium(tp, r)
}

func (tp *TradingPair) flowTarget() (*FlowTarget, error) {
	anchor, ok := tp.Anchor.(*FlowTarget)
	if !ok {
		return nil, fmt.Errorf("flow target on %s pool: %w", tp.Variant(), ErrWrongVariant)
	}
	return anchor, nil
}

// SyncPosition replaces the lending position of a flow-target pool.
func (tp *TradingPair) SyncPosition(p lending.Position) error {
	anchor, err := tp.flowTarget()
	if err != nil {
		return err
	}
	anchor.Position = p
	return nil
}

// ComputeTargetY returns the Y target implied by the current position and
// multipliers without storing it.
func (tp *TradingPair) ComputeTargetY() (uint64, error) {
	anchor, err := tp.flowTarget()
	if err != nil {
		return 0, err
	}
	return anchor.ComputeTargetY(tp.Multipliers())
}

// UpdateTargetY stores a new Y target and the K derived from it.
func (tp *TradingPair) UpdateTargetY(targetY uint64) (*uint256.Int, error) {
	anchor, err := tp.flowTarget()
	if err != nil {
		return nil, err
	}
	bigK, err := AnchorInvariant(targetY, tp.Concentration, tp.Multipliers())
	if err != nil {
		return nil, err
	}
	anchor.TargetY = targetY
	tp.BigK.Set(bigK)
	return bigK, nil
}

// RefreshTarget recomputes the Y target from the position and stores it.
func (tp *TradingPair) RefreshTarget() (uint64, *uint256.Int, error) {
	targetY, err := tp.ComputeTargetY()
	if err != nil {
		return 0, nil, err
	}
	bigK, err := tp.UpdateTargetY(targetY)
	if err != nil {
		return 0, nil, err
	}
	return targetY, bigK, nil
}

// RecordVolume adds a filled amount to the lifetime and current-window totals.
func (tp *TradingPair) RecordVolume(amount uint64) error {
	total, err := checkedAdd(u256(tp.CumulativeVolume), u256(amount), bits64)
	if err != nil {
		return fmt.Errorf("cumulative volume: %w", err)
	}
	window, err := checkedAdd(u256(tp.VolumeRecords[0]), u256(amount), bits64)
	if err != nil {
		return fmt.Errorf("volume window: %w", err)
	}
	tp.CumulativeVolume = total.Uint64()
	tp.VolumeRecords[0] = window.Uint64()
	return nil
}

// RollVolumeWindow opens a new current window and drops the oldest one.
func (tp *TradingPair) RollVolumeWindow() {
	copy(tp.VolumeRecords[1:], tp.VolumeRecords[:VolumeWindows-1])
	tp.VolumeRecords[0] = 0
}
