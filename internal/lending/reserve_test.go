// internal/lending/reserve_test.go
package lending

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wads(s string) decimal.Decimal {
	return decimal.RequireFromString(s).Shift(wadDecimals)
}

func TestCTokenExchangeRate(t *testing.T) {
	tests := []struct {
		name     string
		snapshot ReserveSnapshot
		want     string
		wantErr  error
	}{
		{
			name:     "available only",
			snapshot: ReserveSnapshot{AvailableAmount: 1_000, CollateralMintTotalSupply: 1_000},
			want:     "1",
		},
		{
			name: "borrows accrue to holders",
			snapshot: ReserveSnapshot{
				AvailableAmount:           600,
				BorrowedAmountWads:        wads("500.5"),
				OwnerUnclaimedWads:        wads("0.5"),
				CollateralMintTotalSupply: 1_000,
			},
			want: "1.1",
		},
		{
			name:     "zero supply",
			snapshot: ReserveSnapshot{AvailableAmount: 1},
			wantErr:  ErrZeroCollateralSupply,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CTokenExchangeRate(tt.snapshot)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestCTokenExchangeRateNegativeLiquidity(t *testing.T) {
	_, err := CTokenExchangeRate(ReserveSnapshot{
		OwnerUnclaimedWads:        wads("1"),
		CollateralMintTotalSupply: 1,
	})
	assert.ErrorContains(t, err, "negative reserve liquidity")
}

func TestCollateralToLiquidityRoundsDown(t *testing.T) {
	s := ReserveSnapshot{AvailableAmount: 2_000, CollateralMintTotalSupply: 3_000}

	got, err := CollateralToLiquidity(s, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(66), got)

	_, err = CollateralToLiquidity(ReserveSnapshot{}, 100)
	assert.ErrorIs(t, err, ErrZeroCollateralSupply)
}

func TestPositionNet(t *testing.T) {
	p := Position{DepositX: 10, BorrowX: 25, DepositY: 7, BorrowY: 2}
	assert.Equal(t, int64(-15), p.NetX())
	assert.Equal(t, int64(5), p.NetY())
	assert.Equal(t, "deposit_x=10 borrow_x=25 deposit_y=7 borrow_y=2", p.String())
}
