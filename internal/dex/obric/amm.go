// internal/dex/obric/amm.go
package obric

import (
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/oracle-amm/internal/curve"
	"github.com/rovshanmuradov/oracle-amm/internal/dex/model"
	"github.com/rovshanmuradov/oracle-amm/internal/pyth"
	"github.com/rovshanmuradov/oracle-amm/internal/utils/metrics"
)

// ObligationSeed is the PDA seed prefix of a v3 pool's lending obligation.
const ObligationSeed = "larix_obligation"

// Options carry the deployment-specific identities an adapter needs.
type Options struct {
	// ProgramID owns the pool account; the obligation PDA is derived under it.
	ProgramID solana.PublicKey
	// LendingReserves maps a token mint to its lending reserve (v3 only).
	LendingReserves map[solana.PublicKey]solana.PublicKey
	Logger          *zap.Logger
	Metrics         *metrics.Collector
}

// AMM quotes one pool from periodically refreshed account snapshots.
// It is not safe for concurrent use; Clone it per goroutine.
type AMM struct {
	key       solana.PublicKey
	programID solana.PublicKey
	state     *PoolState
	reserves  curve.Reserves

	decimalsLoaded bool

	obligation      solana.PublicKey
	lendingReserveX solana.PublicKey
	lendingReserveY solana.PublicKey
	lendingLoaded   bool

	logger  *zap.Logger
	metrics *metrics.Collector
}

// New builds an adapter from the raw pool account.
func New(key solana.PublicKey, data []byte, opts Options) (*AMM, error) {
	st, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", key, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &AMM{
		key:       key,
		programID: opts.ProgramID,
		state:     st,
		logger:    logger.Named("obric").With(zap.String("pool", key.String()), zap.Stringer("version", st.Version)),
		metrics:   opts.Metrics,
	}

	if st.Version == V3 {
		if err := a.resolveLending(opts.LendingReserves); err != nil {
			return nil, err
		}
	}

	a.logger.Debug("Pool adapter created",
		zap.String("mint_x", st.Pair.MintX.String()),
		zap.String("mint_y", st.Pair.MintY.String()))

	return a, nil
}

func (a *AMM) resolveLending(reserves map[solana.PublicKey]solana.PublicKey) error {
	tp := a.state.Pair

	obligation, _, err := solana.FindProgramAddress([][]byte{
		[]byte(ObligationSeed),
		tp.MintX.Bytes(),
		tp.MintY.Bytes(),
	}, a.programID)
	if err != nil {
		return fmt.Errorf("derive obligation for %s: %w", a.key, err)
	}
	a.obligation = obligation

	var ok bool
	if a.lendingReserveX, ok = reserves[tp.MintX]; !ok {
		return fmt.Errorf("mint %s: %w", tp.MintX, curve.ErrNoLendingReserveForMint)
	}
	if a.lendingReserveY, ok = reserves[tp.MintY]; !ok {
		return fmt.Errorf("mint %s: %w", tp.MintY, curve.ErrNoLendingReserveForMint)
	}
	return nil
}

// Label is the venue name shown to aggregators.
func (a *AMM) Label() string {
	if a.state.Version == V3 {
		return "Obric v3"
	}
	return "Obric V2"
}

func (a *AMM) Key() solana.PublicKey { return a.key }

func (a *AMM) ProgramID() solana.PublicKey { return a.programID }

func (a *AMM) Version() Version { return a.state.Version }

// Obligation is the lending obligation PDA of a v3 pool; zero for v2.
func (a *AMM) Obligation() solana.PublicKey { return a.obligation }

// Pair returns a copy of the current pool state.
func (a *AMM) Pair() *curve.TradingPair { return a.state.Pair.Clone() }

// Reserves returns the last observed live balances (v2 only).
func (a *AMM) Reserves() curve.Reserves { return a.reserves }

func (a *AMM) ReserveMints() []solana.PublicKey {
	return []solana.PublicKey{a.state.Pair.MintX, a.state.Pair.MintY}
}

// AccountsToUpdate lists what Update needs next. One-time lookups (mint
// decimals, lending reserves) are only requested until they succeed.
func (a *AMM) AccountsToUpdate() []solana.PublicKey {
	acc := a.state.Accounts
	if a.state.Version == V3 {
		keys := []solana.PublicKey{a.key, acc.XPriceFeed, acc.YPriceFeed}
		if !a.lendingLoaded {
			keys = append(keys, a.lendingReserveX, a.lendingReserveY)
		}
		return keys
	}

	keys := []solana.PublicKey{acc.ReserveX, acc.ReserveY, acc.XPriceFeed, acc.YPriceFeed}
	if !a.decimalsLoaded {
		keys = append(keys, a.state.Pair.MintX, a.state.Pair.MintY)
	}
	return keys
}

// Update applies a consistent snapshot of AccountsToUpdate. It either fully
// applies or leaves the adapter unchanged.
func (a *AMM) Update(accounts map[solana.PublicKey][]byte) error {
	err := a.update(accounts)
	if a.metrics != nil {
		a.metrics.RecordPoolUpdate(a.key.String(), err == nil)
	}
	if err != nil {
		a.logger.Warn("Pool update failed", zap.Error(err))
		return err
	}
	return nil
}

func (a *AMM) update(accounts map[solana.PublicKey][]byte) error {
	lookup := func(key solana.PublicKey, what string) ([]byte, error) {
		data, ok := accounts[key]
		if !ok || data == nil {
			return nil, fmt.Errorf("%s %s: %w", what, key, curve.ErrAccountNotFound)
		}
		return data, nil
	}

	st := *a.state
	st.Pair = a.state.Pair.Clone()
	reserves := a.reserves
	decimalsLoaded := a.decimalsLoaded

	if st.Version == V3 {
		data, err := lookup(a.key, "pool")
		if err != nil {
			return err
		}
		fresh, err := Decode(data)
		if err != nil {
			return err
		}
		if fresh.Version != V3 {
			return fmt.Errorf("pool changed layout to %s: %w", fresh.Version, curve.ErrInvalidAccountData)
		}
		if fresh.Pair.MintX != st.Pair.MintX || fresh.Pair.MintY != st.Pair.MintY {
			return fmt.Errorf("pool mints changed: %w", curve.ErrMismatchedTokenMint)
		}
		st = *fresh
		if !a.lendingLoaded {
			if _, err := lookup(a.lendingReserveX, "lending reserve x"); err != nil {
				return err
			}
			if _, err := lookup(a.lendingReserveY, "lending reserve y"); err != nil {
				return err
			}
		}
	} else {
		var err error
		if reserves, err = a.readReserves(lookup, st.Pair); err != nil {
			return err
		}
		if !decimalsLoaded {
			if err := readDecimals(lookup, st.Pair); err != nil {
				return err
			}
			decimalsLoaded = true
		}
	}

	rx, err := readPrice(lookup, st.Accounts.XPriceFeed, "price feed x")
	if err != nil {
		return err
	}
	ry, err := readPrice(lookup, st.Accounts.YPriceFeed, "price feed y")
	if err != nil {
		return err
	}
	if _, err := st.Pair.UpdatePrice(rx, ry); err != nil {
		return fmt.Errorf("update price: %w", err)
	}

	var targetX, targetY uint64
	if st.Version == V3 {
		if targetY, _, err = st.Pair.RefreshTarget(); err != nil {
			return fmt.Errorf("refresh target: %w", err)
		}
	} else {
		anchor := st.Pair.Anchor.(*curve.StaticTarget)
		targetX = anchor.TargetX
		if targetY, err = anchor.TargetY(st.Pair.Multipliers(), reserves); err != nil {
			// quotes will fail the same way; the snapshot itself is still valid
			a.logger.Debug("Target Y unavailable", zap.Error(err))
		}
	}

	a.state = &st
	a.reserves = reserves
	a.decimalsLoaded = decimalsLoaded
	if st.Version == V3 {
		a.lendingLoaded = true
	}

	if a.metrics != nil {
		pool := a.key.String()
		a.metrics.UpdatePoolReserve(pool, "x", reserves.X)
		a.metrics.UpdatePoolReserve(pool, "y", reserves.Y)
		a.metrics.UpdatePoolPricing(pool, st.Pair.MultX, st.Pair.MultY, targetX, targetY)
	}

	a.logger.Debug("Pool updated",
		zap.Uint64("mult_x", st.Pair.MultX),
		zap.Uint64("mult_y", st.Pair.MultY),
		zap.Uint64("reserve_x", reserves.X),
		zap.Uint64("reserve_y", reserves.Y),
		zap.Uint64("target_y", targetY))

	return nil
}

type lookupFunc func(key solana.PublicKey, what string) ([]byte, error)

func (a *AMM) readReserves(lookup lookupFunc, tp *curve.TradingPair) (curve.Reserves, error) {
	read := func(key, mint solana.PublicKey, what string) (uint64, error) {
		data, err := lookup(key, what)
		if err != nil {
			return 0, err
		}
		acc, err := model.ParseTokenAccount(data)
		if err != nil {
			return 0, fmt.Errorf("%s %s: %v: %w", what, key, err, curve.ErrInvalidAccountData)
		}
		if acc.Mint != mint {
			return 0, fmt.Errorf("%s holds %s, want %s: %w", what, acc.Mint, mint, curve.ErrMismatchedTokenMint)
		}
		return acc.Amount, nil
	}

	x, err := read(a.state.Accounts.ReserveX, tp.MintX, "reserve x")
	if err != nil {
		return curve.Reserves{}, err
	}
	y, err := read(a.state.Accounts.ReserveY, tp.MintY, "reserve y")
	if err != nil {
		return curve.Reserves{}, err
	}
	return curve.Reserves{X: x, Y: y}, nil
}

func readDecimals(lookup lookupFunc, tp *curve.TradingPair) error {
	read := func(mint solana.PublicKey, what string) (uint8, error) {
		data, err := lookup(mint, what)
		if err != nil {
			return 0, err
		}
		d, err := model.ParseMintDecimals(data)
		if err != nil {
			return 0, fmt.Errorf("%s %s: %v: %w", what, mint, err, curve.ErrInvalidAccountData)
		}
		return d, nil
	}

	dx, err := read(tp.MintX, "mint x")
	if err != nil {
		return err
	}
	dy, err := read(tp.MintY, "mint y")
	if err != nil {
		return err
	}
	tp.DecimalsX, tp.DecimalsY = dx, dy
	return nil
}

func readPrice(lookup lookupFunc, key solana.PublicKey, what string) (curve.PriceReading, error) {
	data, err := lookup(key, what)
	if err != nil {
		return curve.PriceReading{}, err
	}
	r, err := pyth.DecodeReading(data)
	if err != nil {
		return curve.PriceReading{}, fmt.Errorf("%s %s: %w", what, key, err)
	}
	return r, nil
}

// Quote prices params against the last applied snapshot. Hitting the
// liquidity ceiling is reported through NotEnoughLiquidity, not an error.
func (a *AMM) Quote(params model.QuoteParams) (*model.Quote, error) {
	start := time.Now()
	tp := a.state.Pair

	var dir curve.Direction
	switch {
	case params.InputMint == tp.MintX && params.OutputMint == tp.MintY:
		dir = curve.XToY
	case params.InputMint == tp.MintY && params.OutputMint == tp.MintX:
		dir = curve.YToX
	default:
		return nil, fmt.Errorf("quote %s -> %s on %s/%s: %w",
			params.InputMint, params.OutputMint, tp.MintX, tp.MintY, curve.ErrMismatchedTokenMint)
	}

	q, err := tp.Quote(dir, params.Amount, a.reserves)
	status := "ok"
	defer func() {
		if a.metrics != nil {
			a.metrics.RecordQuote(a.key.String(), dir.String(), status, time.Since(start))
		}
	}()

	switch {
	case curve.IsLiquidityError(err):
		status = "no_liquidity"
		a.logger.Debug("Quote hit liquidity ceiling",
			zap.Stringer("direction", dir),
			zap.Uint64("amount", params.Amount),
			zap.Error(err))
		return &model.Quote{InAmount: params.Amount, FeeMint: params.OutputMint, NotEnoughLiquidity: true}, nil
	case err != nil:
		status = "error"
		return nil, fmt.Errorf("quote %s: %w", dir, err)
	}

	return &model.Quote{
		InAmount:           params.Amount,
		OutAmount:          q.OutputAmount,
		FeeAmount:          q.Fee(),
		FeeMint:            params.OutputMint,
		ProtocolFee:        q.ProtocolFee,
		LPFee:              q.LPFee,
		Rebate:             q.Rebate,
		NotEnoughLiquidity: q.OutputAmount == 0 && params.Amount > 0,
	}, nil
}

// Clone returns an independent adapter sharing only immutable configuration.
func (a *AMM) Clone() *AMM {
	c := *a
	st := *a.state
	st.Pair = a.state.Pair.Clone()
	c.state = &st
	return &c
}

// IsNotFound reports whether err is a missing-account failure from Update.
func IsNotFound(err error) bool {
	return errors.Is(err, curve.ErrAccountNotFound)
}
