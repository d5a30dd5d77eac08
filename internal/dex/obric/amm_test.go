// internal/dex/obric/amm_test.go
package obric

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/oracle-amm/internal/curve"
	"github.com/rovshanmuradov/oracle-amm/internal/dex/model"
	"github.com/rovshanmuradov/oracle-amm/internal/pyth"
	"github.com/rovshanmuradov/oracle-amm/internal/utils/metrics"
)

var (
	v2Program = solana.MustPublicKeyFromBase58("obriQD1zbpyLz95G5n7nJe6a4DPjpFwa5XYPoNm113y")
	v3Program = solana.MustPublicKeyFromBase58("4DDLcmzLRosAUgTNSHXDuAHmuE1CACA193L3QTPYyz9j")

	larixReserves = map[solana.PublicKey]solana.PublicKey{
		mintSOL:  solana.MustPublicKeyFromBase58("2RcrbkGNcfy9mbarLCCRYdW3hxph7pSbP38x35MR2Bjt"),
		mintUSDC: solana.MustPublicKeyFromBase58("Emq1qT9MyyB5eHfftF5thYme84hoEwh4TCjm31K2Xxif"),
		mintUSDT: solana.MustPublicKeyFromBase58("DC832AzxQMGDaVLGiRQfRCkyXi6PUPjQyQfMbVRRjtKA"),
	}
)

func priceFeed(price int64, status curve.PriceStatus) []byte {
	acc := &pyth.PriceAccount{Expo: -3, Agg: pyth.PriceInfo{Price: price, Status: status}}
	return acc.Encode()
}

func tokenAccount(mint solana.PublicKey, amount uint64) []byte {
	return model.EncodeTokenAccount(model.TokenAccount{Mint: mint, Amount: amount})
}

func newTestAMM(t *testing.T, st *PoolState, program solana.PublicKey) *AMM {
	t.Helper()

	data, err := Encode(st)
	require.NoError(t, err)

	a, err := New(solana.NewWallet().PublicKey(), data, Options{
		ProgramID:       program,
		LendingReserves: larixReserves,
		Logger:          zaptest.NewLogger(t),
		Metrics:         metrics.NewCollector(),
	})
	require.NoError(t, err)
	return a
}

// v2Snapshot answers every account a fresh v2 adapter asks for.
func v2Snapshot(st *PoolState, rx, ry uint64) map[solana.PublicKey][]byte {
	return map[solana.PublicKey][]byte{
		st.Accounts.ReserveX:   tokenAccount(mintSOL, rx),
		st.Accounts.ReserveY:   tokenAccount(mintUSDC, ry),
		st.Accounts.XPriceFeed: priceFeed(1000, curve.PriceStatusTrading),
		st.Accounts.YPriceFeed: priceFeed(1000, curve.PriceStatusTrading),
		mintSOL:                model.EncodeMint(6),
		mintUSDC:               model.EncodeMint(6),
	}
}

func v3Snapshot(t *testing.T, a *AMM, st *PoolState) map[solana.PublicKey][]byte {
	t.Helper()

	data, err := Encode(st)
	require.NoError(t, err)
	return map[solana.PublicKey][]byte{
		a.Key():                 data,
		st.Accounts.XPriceFeed:  priceFeed(1000, curve.PriceStatusTrading),
		st.Accounts.YPriceFeed:  priceFeed(1000, curve.PriceStatusTrading),
		larixReserves[mintSOL]:  {1},
		larixReserves[mintUSDC]: {1},
	}
}

func TestNewRejectsMalformedPool(t *testing.T) {
	_, err := New(solana.NewWallet().PublicKey(), make([]byte, 100), Options{})
	assert.ErrorIs(t, err, curve.ErrInvalidAccountData)
}

func TestV2AdapterGoldenQuote(t *testing.T) {
	st := v2State()
	a := newTestAMM(t, st, v2Program)

	assert.Equal(t, "Obric V2", a.Label())
	assert.Equal(t, v2Program, a.ProgramID())
	assert.Equal(t, []solana.PublicKey{mintSOL, mintUSDC}, a.ReserveMints())
	assert.Len(t, a.AccountsToUpdate(), 6)

	require.NoError(t, a.Update(v2Snapshot(st, 1_000_000, 1_000_000)))
	assert.Len(t, a.AccountsToUpdate(), 4, "mint decimals are only fetched once")
	assert.Equal(t, uint8(6), a.Pair().DecimalsX)

	tests := []struct {
		name     string
		in, out  solana.PublicKey
		feeMint  solana.PublicKey
		wantOut  uint64
		wantFee  uint64
		protocol uint64
	}{
		{name: "x to y", in: mintSOL, out: mintUSDC, feeMint: mintUSDC, wantOut: 98_713, wantFee: 297, protocol: 59},
		{name: "y to x", in: mintUSDC, out: mintSOL, feeMint: mintSOL, wantOut: 98_713, wantFee: 297, protocol: 59},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := a.Quote(model.QuoteParams{InputMint: tt.in, OutputMint: tt.out, Amount: 100_000})
			require.NoError(t, err)
			assert.Equal(t, uint64(100_000), q.InAmount)
			assert.Equal(t, tt.wantOut, q.OutAmount)
			assert.Equal(t, tt.wantFee, q.FeeAmount)
			assert.Equal(t, tt.protocol, q.ProtocolFee)
			assert.Equal(t, tt.feeMint, q.FeeMint)
			assert.False(t, q.NotEnoughLiquidity)
		})
	}
}

func TestV2AdapterReadsBothReserves(t *testing.T) {
	st := v2State()
	a := newTestAMM(t, st, v2Program)
	require.NoError(t, a.Update(v2Snapshot(st, 900_000, 1_100_000)))

	r := curve.Reserves{X: 900_000, Y: 1_100_000}
	assert.Equal(t, r, a.Reserves())

	want, err := a.Pair().QuoteXToY(50_000, r)
	require.NoError(t, err)
	require.NotZero(t, want.Rebate)

	q, err := a.Quote(model.QuoteParams{InputMint: mintSOL, OutputMint: mintUSDC, Amount: 50_000})
	require.NoError(t, err)
	assert.Equal(t, want.OutputAmount, q.OutAmount)
	assert.Equal(t, want.Rebate, q.Rebate)
	assert.Equal(t, want.Fee(), q.FeeAmount)
}

func TestV2AdapterLiquidityCeiling(t *testing.T) {
	st := v2State()
	a := newTestAMM(t, st, v2Program)
	require.NoError(t, a.Update(v2Snapshot(st, 1_000_000, 1_000_000)))

	q, err := a.Quote(model.QuoteParams{InputMint: mintSOL, OutputMint: mintUSDC, Amount: 2_000_000})
	require.NoError(t, err)
	assert.True(t, q.NotEnoughLiquidity)
	assert.Zero(t, q.OutAmount)

	q, err = a.Quote(model.QuoteParams{InputMint: mintSOL, OutputMint: mintUSDC})
	require.NoError(t, err)
	assert.False(t, q.NotEnoughLiquidity)
	assert.Zero(t, q.OutAmount)
}

func TestAdapterQuoteRejectsForeignMint(t *testing.T) {
	st := v2State()
	a := newTestAMM(t, st, v2Program)
	require.NoError(t, a.Update(v2Snapshot(st, 1_000_000, 1_000_000)))

	_, err := a.Quote(model.QuoteParams{InputMint: mintUSDT, OutputMint: mintUSDC, Amount: 1})
	assert.ErrorIs(t, err, curve.ErrMismatchedTokenMint)

	_, err = a.Quote(model.QuoteParams{InputMint: mintSOL, OutputMint: mintSOL, Amount: 1})
	assert.ErrorIs(t, err, curve.ErrMismatchedTokenMint)
}

func TestV2AdapterUpdateFailuresKeepState(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(st *PoolState, snap map[solana.PublicKey][]byte)
		wantErr error
	}{
		{
			name: "missing price feed",
			mutate: func(st *PoolState, snap map[solana.PublicKey][]byte) {
				delete(snap, st.Accounts.YPriceFeed)
			},
			wantErr: curve.ErrAccountNotFound,
		},
		{
			name: "missing mint",
			mutate: func(st *PoolState, snap map[solana.PublicKey][]byte) {
				delete(snap, mintUSDC)
			},
			wantErr: curve.ErrAccountNotFound,
		},
		{
			name: "reserve holds another mint",
			mutate: func(st *PoolState, snap map[solana.PublicKey][]byte) {
				snap[st.Accounts.ReserveY] = tokenAccount(mintUSDT, 1_000_000)
			},
			wantErr: curve.ErrMismatchedTokenMint,
		},
		{
			name: "truncated reserve",
			mutate: func(st *PoolState, snap map[solana.PublicKey][]byte) {
				snap[st.Accounts.ReserveX] = []byte{1, 2, 3}
			},
			wantErr: curve.ErrInvalidAccountData,
		},
		{
			name: "halted feed",
			mutate: func(st *PoolState, snap map[solana.PublicKey][]byte) {
				snap[st.Accounts.XPriceFeed] = priceFeed(2000, curve.PriceStatusHalted)
			},
			wantErr: curve.ErrOracleOffline,
		},
		{
			name: "negative price",
			mutate: func(st *PoolState, snap map[solana.PublicKey][]byte) {
				snap[st.Accounts.YPriceFeed] = priceFeed(-1, curve.PriceStatusTrading)
			},
			wantErr: curve.ErrNegativePrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := v2State()
			st.Pair.MultX, st.Pair.MultY = 1234, 5678
			a := newTestAMM(t, st, v2Program)

			snap := v2Snapshot(st, 1_000_000, 1_000_000)
			tt.mutate(st, snap)

			err := a.Update(snap)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, curve.Multipliers{X: 1234, Y: 5678}, a.Pair().Multipliers())
			assert.Equal(t, curve.Reserves{}, a.Reserves())
			assert.Len(t, a.AccountsToUpdate(), 6)
		})
	}
}

func TestV3AdapterRequiresLendingReserves(t *testing.T) {
	st := v3State()
	st.Pair.MintY = solana.NewWallet().PublicKey()
	data, err := Encode(st)
	require.NoError(t, err)

	_, err = New(solana.NewWallet().PublicKey(), data, Options{
		ProgramID:       v3Program,
		LendingReserves: larixReserves,
	})
	assert.ErrorIs(t, err, curve.ErrNoLendingReserveForMint)
}

func TestV3AdapterObligation(t *testing.T) {
	a := newTestAMM(t, v3State(), v3Program)

	want, _, err := solana.FindProgramAddress([][]byte{
		[]byte("larix_obligation"),
		mintSOL.Bytes(),
		mintUSDC.Bytes(),
	}, v3Program)
	require.NoError(t, err)
	assert.Equal(t, want, a.Obligation())
	assert.Equal(t, "Obric v3", a.Label())
}

func TestV3AdapterRefreshesTarget(t *testing.T) {
	st := v3State()
	st.Pair.Anchor.(*curve.FlowTarget).TargetY = 0
	st.Pair.BigK.Clear()
	a := newTestAMM(t, st, v3Program)

	keys := a.AccountsToUpdate()
	assert.Len(t, keys, 5)
	assert.Equal(t, a.Key(), keys[0])
	assert.Contains(t, keys, larixReserves[mintSOL])

	require.NoError(t, a.Update(v3Snapshot(t, a, st)))
	assert.Len(t, a.AccountsToUpdate(), 3, "lending reserves are only fetched once")

	tp := a.Pair()
	assert.Equal(t, uint64(1_000_000), tp.Anchor.(*curve.FlowTarget).TargetY)
	assert.Equal(t, uint64(100_000_000_000_000), tp.BigK.Uint64())

	q, err := a.Quote(model.QuoteParams{InputMint: mintSOL, OutputMint: mintUSDC, Amount: 100_000})
	require.NoError(t, err)
	assert.Equal(t, uint64(98_713), q.OutAmount)
	assert.Equal(t, uint64(297), q.FeeAmount)
	assert.Zero(t, q.Rebate)

	q, err = a.Quote(model.QuoteParams{InputMint: mintSOL, OutputMint: mintUSDC, Amount: 2_000_000})
	require.NoError(t, err)
	assert.True(t, q.NotEnoughLiquidity)
}

func TestV3AdapterRejectsSwappedMints(t *testing.T) {
	st := v3State()
	a := newTestAMM(t, st, v3Program)

	changed := v3State()
	changed.Accounts = st.Accounts
	changed.Pair.MintY = mintUSDT
	snap := v3Snapshot(t, a, changed)

	err := a.Update(snap)
	assert.ErrorIs(t, err, curve.ErrMismatchedTokenMint)
	assert.Len(t, a.AccountsToUpdate(), 5)
}

func TestV3AdapterMissingLendingReserve(t *testing.T) {
	st := v3State()
	a := newTestAMM(t, st, v3Program)

	snap := v3Snapshot(t, a, st)
	delete(snap, larixReserves[mintUSDC])

	err := a.Update(snap)
	assert.True(t, IsNotFound(err))
}

func TestCloneIsIndependent(t *testing.T) {
	st := v2State()
	a := newTestAMM(t, st, v2Program)
	require.NoError(t, a.Update(v2Snapshot(st, 1_000_000, 1_000_000)))

	c := a.Clone()
	snap := v2Snapshot(st, 1_000_000, 1_000_000)
	snap[st.Accounts.XPriceFeed] = priceFeed(2000, curve.PriceStatusTrading)
	require.NoError(t, a.Update(snap))

	assert.Equal(t, uint64(2000), a.Pair().MultX)
	assert.Equal(t, uint64(1000), c.Pair().MultX)
	assert.Equal(t, a.Key(), c.Key())
}
