// internal/curve/pair_test.go
package curve

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/oracle-amm/internal/lending"
)

func TestUpdatePrice(t *testing.T) {
	tp := newStaticPair(t)
	tp.DecimalsX = 9

	m, err := tp.UpdatePrice(
		PriceReading{Price: 14_250_000_000, Expo: -8, Status: PriceStatusTrading},
		PriceReading{Price: 100_010_000, Expo: -8, Status: PriceStatusTrading},
	)
	require.NoError(t, err)
	assert.Equal(t, Multipliers{X: 142_500, Y: 1_000_000}, m)
	assert.Equal(t, m, tp.Multipliers())
}

func TestUpdatePriceFailureKeepsMultipliers(t *testing.T) {
	good := PriceReading{Price: 1000, Expo: -3, Status: PriceStatusTrading}

	tests := []struct {
		name    string
		x, y    PriceReading
		wantErr error
	}{
		{name: "negative y", x: good, y: PriceReading{Price: -5, Expo: -3, Status: PriceStatusTrading}, wantErr: ErrNegativePrice},
		{name: "negative x", x: PriceReading{Price: -1, Expo: 0, Status: PriceStatusTrading}, y: good, wantErr: ErrNegativePrice},
		{name: "offline x", x: PriceReading{Price: 1000, Expo: -3, Status: PriceStatusUnknown}, y: good, wantErr: ErrOracleOffline},
		{name: "multiplier overflow", x: PriceReading{Price: 1 << 62, Expo: -3, Status: PriceStatusTrading}, y: good, wantErr: ErrNumOverflowing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := newStaticPair(t)
			if tt.wantErr == ErrNumOverflowing {
				tp.DecimalsY = 12
			}

			_, err := tp.UpdatePrice(tt.x, tt.y)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, uint64(1000), tp.MultX)
			assert.Equal(t, uint64(1000), tp.MultY)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TradingPair)
		wantErr error
	}{
		{name: "valid", mutate: func(*TradingPair) {}},
		{name: "no anchor", mutate: func(tp *TradingPair) { tp.Anchor = nil }, wantErr: ErrMissingAnchor},
		{name: "zero concentration", mutate: func(tp *TradingPair) { tp.Concentration = 0 }, wantErr: ErrInvalidConcentration},
		{name: "fee above 100%", mutate: func(tp *TradingPair) { tp.FeeMillionth = 1_000_001 }, wantErr: ErrInvalidFeeConfig},
		{name: "protocol share above 100%", mutate: func(tp *TradingPair) { tp.ProtocolFeeShareThousandth = 1001 }, wantErr: ErrInvalidFeeConfig},
		{name: "rebate above 100%", mutate: func(tp *TradingPair) { tp.RebatePercentage = 101 }, wantErr: ErrInvalidFeeConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := newStaticPair(t)
			tt.mutate(tp)
			err := tp.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSetInvariantRejectsWideValues(t *testing.T) {
	tp := newStaticPair(t)

	wide := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	assert.ErrorIs(t, tp.SetInvariant(wide), ErrNumOverflowing)
	assert.Equal(t, uint64(100_000_000_000_000), tp.BigK.Uint64())

	require.NoError(t, tp.SetInvariant(MaxUint128))
	assert.Equal(t, MaxUint128, &tp.BigK)
}

func TestUpdateTargetFailureKeepsState(t *testing.T) {
	tp := newStaticPair(t)

	// target_x worth more than the whole pool leaves no room for a Y target
	_, err := tp.UpdateTarget(3_000_000, balanced)
	assert.ErrorIs(t, err, ErrNumOverflowing)
	assert.Equal(t, uint64(1_000_000), tp.Anchor.(*StaticTarget).TargetX)
	assert.Equal(t, uint64(100_000_000_000_000), tp.BigK.Uint64())
}

func TestUpdateTargetMovesVertex(t *testing.T) {
	tp := newStaticPair(t)

	eq, err := tp.UpdateTarget(800_000, balanced)
	require.NoError(t, err)
	assert.Equal(t, uint64(800_000), eq.TargetX)
	assert.Equal(t, uint64(1_200_000), eq.TargetY)
	// K = (1_200_000*10)^2
	assert.Equal(t, uint64(144_000_000_000_000), tp.BigK.Uint64())
	assert.Equal(t, uint64(12_000_000), eq.TargetXK.Uint64())
	assert.Equal(t, uint64(12_000_000), eq.TargetYK.Uint64())

	// Y now sits below its target, so paying Y in earns the rebate
	q, err := tp.QuoteYToX(10_000, balanced)
	require.NoError(t, err)
	assert.Equal(t, q.FeeBeforeRebate/2, q.Rebate)
	assert.NotZero(t, q.Rebate)

	q, err = tp.QuoteXToY(10_000, balanced)
	require.NoError(t, err)
	assert.Zero(t, q.Rebate)
}

func TestVariantSpecificOperations(t *testing.T) {
	static := newStaticPair(t)
	flow := newFlowPair(t)

	_, err := flow.UpdateTarget(1, balanced)
	assert.ErrorIs(t, err, ErrWrongVariant)

	assert.ErrorIs(t, static.SyncPosition(lending.Position{}), ErrWrongVariant)
	_, _, err = static.RefreshTarget()
	assert.ErrorIs(t, err, ErrWrongVariant)
	_, err = static.UpdateTargetY(1)
	assert.ErrorIs(t, err, ErrWrongVariant)

	assert.Equal(t, VariantStaticTarget, static.Variant())
	assert.Equal(t, VariantFlowTarget, flow.Variant())
	assert.Equal(t, Variant(0), (&TradingPair{}).Variant())
}

func TestRefreshTargetFollowsPosition(t *testing.T) {
	tp := newFlowPair(t)
	require.NoError(t, tp.SyncPosition(lending.Position{
		DepositX: 200_000,
		BorrowX:  50_000,
		DepositY: 900_000,
		BorrowY:  100_000,
	}))

	// (150_000*1000 + 800_000*1000) / 1000
	targetY, bigK, err := tp.RefreshTarget()
	require.NoError(t, err)
	assert.Equal(t, uint64(950_000), targetY)
	assert.Equal(t, uint64(90_250_000_000_000), bigK.Uint64())
	assert.Equal(t, bigK, &tp.BigK)
}

func TestAnchorInvariant(t *testing.T) {
	k, err := AnchorInvariant(1_000_000, 10, Multipliers{X: 2000, Y: 1000})
	require.NoError(t, err)
	// target_y_k = 10^7, target_x_k = 5*10^6
	assert.Equal(t, uint64(50_000_000_000_000), k.Uint64())

	_, err = AnchorInvariant(1_000_000, 10, Multipliers{X: 0, Y: 1000})
	assert.ErrorIs(t, err, ErrInvalidMultiplier)

	_, err = AnchorInvariant(1<<63, 1<<63, Multipliers{X: 1, Y: 1})
	assert.ErrorIs(t, err, ErrNumOverflowing)
}

func TestVolumeBookkeeping(t *testing.T) {
	tp := newStaticPair(t)

	require.NoError(t, tp.RecordVolume(100))
	require.NoError(t, tp.RecordVolume(50))
	tp.RollVolumeWindow()
	require.NoError(t, tp.RecordVolume(7))

	assert.Equal(t, uint64(157), tp.CumulativeVolume)
	assert.Equal(t, [VolumeWindows]uint64{7, 150}, tp.VolumeRecords)

	for i := 0; i < VolumeWindows; i++ {
		tp.RollVolumeWindow()
	}
	assert.Equal(t, [VolumeWindows]uint64{}, tp.VolumeRecords)
	assert.Equal(t, uint64(157), tp.CumulativeVolume)

	tp.CumulativeVolume = ^uint64(0)
	assert.ErrorIs(t, tp.RecordVolume(1), ErrNumOverflowing)
	assert.Zero(t, tp.VolumeRecords[0])
}
