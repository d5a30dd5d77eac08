// =============================
// File: internal/dex/quoter.go
// =============================
package dex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/oracle-amm/internal/blockchain"
	"github.com/rovshanmuradov/oracle-amm/internal/curve"
	"github.com/rovshanmuradov/oracle-amm/internal/dex/model"
	"github.com/rovshanmuradov/oracle-amm/internal/dex/obric"
)

// Quoter keeps a set of pools in sync and routes quotes across them.
type Quoter struct {
	reader blockchain.AccountReader
	opts   Options
	logger *zap.Logger

	// concurrency bounds parallel pool refreshes; <= 0 means unbounded.
	concurrency int

	mu    sync.RWMutex
	pools map[solana.PublicKey]AMM
}

// NewQuoter creates an empty quoter reading accounts through reader.
func NewQuoter(reader blockchain.AccountReader, opts Options, concurrency int) *Quoter {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Logger = logger
	return &Quoter{
		reader:      reader,
		opts:        opts,
		logger:      logger.Named("quoter"),
		concurrency: concurrency,
		pools:       make(map[solana.PublicKey]AMM),
	}
}

// Add registers an already constructed pool.
func (q *Quoter) Add(amm AMM) {
	q.mu.Lock()
	q.pools[amm.Key()] = amm
	q.mu.Unlock()
}

// Load fetches and registers the given pool accounts.
func (q *Quoter) Load(ctx context.Context, keys []solana.PublicKey) error {
	accounts, err := q.reader.GetMultipleAccounts(ctx, keys)
	if err != nil {
		return fmt.Errorf("fetch pools: %w", err)
	}

	for _, key := range keys {
		acc, ok := accounts[key]
		if !ok {
			return fmt.Errorf("pool %s: %w", key, curve.ErrAccountNotFound)
		}
		amm, err := NewAMM(key, acc, q.opts)
		if err != nil {
			return err
		}
		q.Add(amm)
	}

	q.logger.Info("Pools loaded", zap.Int("count", len(keys)))
	return nil
}

// Discover registers every pool owned by the configured programs. Accounts
// that fail to decode are logged and skipped.
func (q *Quoter) Discover(ctx context.Context) (int, error) {
	sources := []struct {
		program solana.PublicKey
		version obric.Version
	}{
		{q.opts.V2ProgramID, obric.V2},
		{q.opts.V3ProgramID, obric.V3},
	}

	found := 0
	for _, src := range sources {
		if src.program.IsZero() {
			continue
		}
		accounts, err := q.reader.GetProgramAccounts(ctx, src.program, obric.Discriminator[:], uint64(src.version.Size()))
		if err != nil {
			return found, fmt.Errorf("list %s pools: %w", src.version, err)
		}
		for i := range accounts {
			ka := accounts[i]
			amm, err := NewAMM(ka.Key, &ka.Account, q.opts)
			if err != nil {
				q.logger.Warn("Skipping pool", zap.String("pool", ka.Key.String()), zap.Error(err))
				continue
			}
			q.Add(amm)
			found++
		}
	}

	q.logger.Info("Pools discovered", zap.Int("count", found))
	return found, nil
}

// Pools returns the registered pools ordered by address.
func (q *Quoter) Pools() []AMM {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]AMM, 0, len(q.pools))
	for _, p := range q.pools {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().String() < out[j].Key().String()
	})
	return out
}

// Refresh updates every pool from one fetch per pool. A pool that fails keeps
// its previous state; the joined errors are returned.
func (q *Quoter) Refresh(ctx context.Context) error {
	pools := q.Pools()

	g, gctx := errgroup.WithContext(ctx)
	if q.concurrency > 0 {
		g.SetLimit(q.concurrency)
	}

	var (
		errMu sync.Mutex
		errs  []error
	)

	for _, pool := range pools {
		g.Go(func() error {
			if err := q.refreshPool(gctx, pool); err != nil {
				errMu.Lock()
				errs = append(errs, fmt.Errorf("%s %s: %w", pool.Label(), pool.Key(), err))
				errMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func (q *Quoter) refreshPool(ctx context.Context, pool AMM) error {
	next := pool.Clone()

	accounts, err := q.reader.GetMultipleAccounts(ctx, next.AccountsToUpdate())
	if err != nil {
		return err
	}
	if err := next.Update(blockchain.DataMap(accounts)); err != nil {
		return err
	}

	q.mu.Lock()
	q.pools[next.Key()] = next
	q.mu.Unlock()
	return nil
}

// Quote asks every pool trading the requested pair and returns the answers
// best first. Pools that cannot fill sort last.
func (q *Quoter) Quote(params model.QuoteParams) []QuoteResult {
	var results []QuoteResult
	for _, pool := range q.Pools() {
		if !tradesPair(pool, params.InputMint, params.OutputMint) {
			continue
		}
		quote, err := pool.Quote(params)
		results = append(results, QuoteResult{
			Pool:  pool.Key(),
			Label: pool.Label(),
			Quote: quote,
			Err:   err,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Usable() != b.Usable() {
			return a.Usable()
		}
		if !a.Usable() {
			return false
		}
		return a.Quote.OutAmount > b.Quote.OutAmount
	})
	return results
}

func tradesPair(pool AMM, in, out solana.PublicKey) bool {
	mints := pool.ReserveMints()
	if len(mints) != 2 || in == out {
		return false
	}
	return (mints[0] == in && mints[1] == out) || (mints[0] == out && mints[1] == in)
}
