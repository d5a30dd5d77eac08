// internal/bot/simulate.go
package bot

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/oracle-amm/internal/curve"
	"github.com/rovshanmuradov/oracle-amm/internal/dex"
)

// Simulation describes an offline static-target pool and one trade against it.
// Prices are quote-currency values of one whole token.
type Simulation struct {
	PriceX    decimal.Decimal
	PriceY    decimal.Decimal
	DecimalsX uint8
	DecimalsY uint8

	ReserveX uint64
	ReserveY uint64
	TargetX  uint64

	Concentration              uint64
	FeeMillionth               uint64
	ProtocolFeeShareThousandth uint64
	RebatePercentage           uint64

	Direction curve.Direction
	Amount    uint64
}

type SimulationResult struct {
	Multipliers curve.Multipliers
	Equilibrium curve.Equilibrium
	Quote       curve.Quote
}

// Simulate prices the pool from s, anchors it at TargetX and quotes the trade.
func Simulate(s Simulation) (*SimulationResult, error) {
	priceExp := uint8(-curve.PriceExponent)
	priceX, err := dex.ToBaseUnits(s.PriceX, priceExp)
	if err != nil {
		return nil, fmt.Errorf("price x: %w", err)
	}
	priceY, err := dex.ToBaseUnits(s.PriceY, priceExp)
	if err != nil {
		return nil, fmt.Errorf("price y: %w", err)
	}

	tp := &curve.TradingPair{
		DecimalsX:                  s.DecimalsX,
		DecimalsY:                  s.DecimalsY,
		Concentration:              s.Concentration,
		Anchor:                     &curve.StaticTarget{TargetX: s.TargetX},
		FeeMillionth:               s.FeeMillionth,
		ProtocolFeeShareThousandth: s.ProtocolFeeShareThousandth,
		RebatePercentage:           s.RebatePercentage,
	}
	if err := tp.Validate(); err != nil {
		return nil, err
	}

	m, err := tp.SetPrices(priceX, priceY)
	if err != nil {
		return nil, err
	}

	reserves := curve.Reserves{X: s.ReserveX, Y: s.ReserveY}
	eq, err := tp.UpdateTarget(s.TargetX, reserves)
	if err != nil {
		return nil, fmt.Errorf("anchor at target_x %d: %w", s.TargetX, err)
	}

	q, err := tp.Quote(s.Direction, s.Amount, reserves)
	if err != nil {
		return nil, err
	}

	return &SimulationResult{Multipliers: m, Equilibrium: eq, Quote: q}, nil
}
