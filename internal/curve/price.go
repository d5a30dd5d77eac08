// internal/curve/price.go
package curve

import (
	"fmt"
	"math"
)

// PriceExponent is the fixed exponent all oracle prices are scaled to
// before they are turned into multipliers (thousandths).
const PriceExponent int32 = -3

// PriceStatus mirrors the aggregate status reported by the oracle feed.
type PriceStatus uint32

const (
	PriceStatusUnknown PriceStatus = iota
	PriceStatusTrading
	PriceStatusHalted
	PriceStatusAuction
	PriceStatusIgnored
)

func (s PriceStatus) String() string {
	switch s {
	case PriceStatusTrading:
		return "trading"
	case PriceStatusHalted:
		return "halted"
	case PriceStatusAuction:
		return "auction"
	case PriceStatusIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// PriceReading is a raw oracle price: Price * 10^Expo, with confidence Conf
// expressed in the same exponent.
type PriceReading struct {
	Price  int64
	Conf   uint64
	Expo   int32
	Status PriceStatus
}

// ScaleToExponent rescales the reading to target. Scaling down truncates
// toward zero; scaling up fails on overflow.
func (r PriceReading) ScaleToExponent(target int32) (PriceReading, error) {
	delta := int64(target) - int64(r.Expo)
	p, c := r.Price, r.Conf

	if delta >= 0 {
		for delta > 0 && (p != 0 || c != 0) {
			p /= 10
			c /= 10
			delta--
		}
	} else {
		for delta < 0 {
			if p > math.MaxInt64/10 || p < math.MinInt64/10 || c > math.MaxUint64/10 {
				return PriceReading{}, fmt.Errorf("scale price %d from exponent %d: %w", r.Price, r.Expo, ErrOracle)
			}
			p *= 10
			c *= 10
			delta++
		}
	}

	return PriceReading{Price: p, Conf: c, Expo: target, Status: r.Status}, nil
}

// NormalizePrice converts a raw reading into a strictly positive price with
// exponent PriceExponent.
func NormalizePrice(r PriceReading) (uint64, error) {
	if r.Status != PriceStatusTrading {
		return 0, fmt.Errorf("feed status %s: %w", r.Status, ErrOracleOffline)
	}

	scaled, err := r.ScaleToExponent(PriceExponent)
	if err != nil {
		return 0, err
	}
	if scaled.Price <= 0 {
		return 0, fmt.Errorf("price %d: %w", scaled.Price, ErrNegativePrice)
	}

	return uint64(scaled.Price), nil
}
