// internal/bot/runner_test.go
package bot

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/oracle-amm/internal/blockchain"
	"github.com/rovshanmuradov/oracle-amm/internal/config"
	"github.com/rovshanmuradov/oracle-amm/internal/curve"
	"github.com/rovshanmuradov/oracle-amm/internal/dex"
	"github.com/rovshanmuradov/oracle-amm/internal/dex/model"
	"github.com/rovshanmuradov/oracle-amm/internal/dex/obric"
	"github.com/rovshanmuradov/oracle-amm/internal/pyth"
)

var (
	mintSOL  = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	mintUSDC = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

type memoryChain struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey]*blockchain.Account
}

func newMemoryChain() *memoryChain {
	return &memoryChain{accounts: make(map[solana.PublicKey]*blockchain.Account)}
}

func (c *memoryChain) put(key, owner solana.PublicKey, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[key] = &blockchain.Account{Owner: owner, Data: data}
}

func (c *memoryChain) remove(key solana.PublicKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.accounts, key)
}

func (c *memoryChain) GetMultipleAccounts(_ context.Context, keys []solana.PublicKey) (map[solana.PublicKey]*blockchain.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[solana.PublicKey]*blockchain.Account)
	for _, k := range keys {
		if acc, ok := c.accounts[k]; ok {
			out[k] = acc
		}
	}
	return out, nil
}

func (c *memoryChain) GetAccountInfo(ctx context.Context, key solana.PublicKey) (*blockchain.Account, error) {
	got, _ := c.GetMultipleAccounts(ctx, []solana.PublicKey{key})
	if acc, ok := got[key]; ok {
		return acc, nil
	}
	return nil, errors.New("account not found")
}

func (c *memoryChain) GetProgramAccounts(context.Context, solana.PublicKey, []byte, uint64) ([]blockchain.KeyedAccount, error) {
	return nil, nil
}

type poolFixture struct {
	key      solana.PublicKey
	accounts obric.PoolAccounts
}

func addPool(t *testing.T, chain *memoryChain) poolFixture {
	t.Helper()

	accounts := obric.PoolAccounts{
		XPriceFeed: solana.NewWallet().PublicKey(),
		YPriceFeed: solana.NewWallet().PublicKey(),
		ReserveX:   solana.NewWallet().PublicKey(),
		ReserveY:   solana.NewWallet().PublicKey(),
	}
	tp := &curve.TradingPair{
		MintX:                      mintSOL,
		MintY:                      mintUSDC,
		Concentration:              10,
		Anchor:                     &curve.StaticTarget{TargetX: 1_000_000},
		FeeMillionth:               3000,
		ProtocolFeeShareThousandth: 200,
		RebatePercentage:           50,
	}
	tp.BigK.SetUint64(100_000_000_000_000)

	data, err := obric.Encode(&obric.PoolState{Version: obric.V2, IsInitialized: true, Accounts: accounts, Pair: tp})
	require.NoError(t, err)

	feed := func(price int64) []byte {
		acc := &pyth.PriceAccount{Expo: -3, Agg: pyth.PriceInfo{Price: price, Status: curve.PriceStatusTrading}}
		return acc.Encode()
	}

	key := solana.NewWallet().PublicKey()
	chain.put(key, solana.MustPublicKeyFromBase58(config.DefaultV2Program), data)
	chain.put(accounts.ReserveX, solana.TokenProgramID, model.EncodeTokenAccount(model.TokenAccount{Mint: mintSOL, Amount: 1_000_000}))
	chain.put(accounts.ReserveY, solana.TokenProgramID, model.EncodeTokenAccount(model.TokenAccount{Mint: mintUSDC, Amount: 1_000_000}))
	chain.put(accounts.XPriceFeed, solana.SystemProgramID, feed(1000))
	chain.put(accounts.YPriceFeed, solana.SystemProgramID, feed(1000))
	chain.put(mintSOL, solana.TokenProgramID, model.EncodeMint(6))
	chain.put(mintUSDC, solana.TokenProgramID, model.EncodeMint(6))

	return poolFixture{key: key, accounts: accounts}
}

func testConfig(t *testing.T, pools ...solana.PublicKey) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	cfg.Pools = nil
	for _, p := range pools {
		cfg.Pools = append(cfg.Pools, p.String())
	}
	return cfg
}

func sellSOL(amount uint64) model.QuoteParams {
	return model.QuoteParams{InputMint: mintSOL, OutputMint: mintUSDC, Amount: amount}
}

func TestRunnerQuotesConfiguredPools(t *testing.T) {
	chain := newMemoryChain()
	pool := addPool(t, chain)

	r, err := NewRunnerWithReader(testConfig(t, pool.key), chain, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, r.Initialize(context.Background()))
	require.Len(t, r.Quoter().Pools(), 1)

	results, err := r.QuoteOnce(context.Background(), sellSOL(100_000))
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Usable())
	assert.Equal(t, pool.key, results[0].Pool)
	assert.Equal(t, uint64(98_713), results[0].Quote.OutAmount)
	assert.Equal(t, uint64(297), results[0].Quote.FeeAmount)
}

func TestRunnerKeepsLastStateWhenRefreshFails(t *testing.T) {
	chain := newMemoryChain()
	pool := addPool(t, chain)

	r, err := NewRunnerWithReader(testConfig(t, pool.key), chain, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, r.Initialize(context.Background()))

	_, err = r.QuoteOnce(context.Background(), sellSOL(100_000))
	require.NoError(t, err)

	chain.remove(pool.accounts.XPriceFeed)

	results, err := r.QuoteOnce(context.Background(), sellSOL(100_000))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(98_713), results[0].Quote.OutAmount)
}

func TestRunnerInitializeErrors(t *testing.T) {
	chain := newMemoryChain()

	r, err := NewRunnerWithReader(testConfig(t), chain, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.ErrorIs(t, r.Initialize(context.Background()), ErrNoPools)

	missing := solana.NewWallet().PublicKey()
	r, err = NewRunnerWithReader(testConfig(t, missing), chain, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.ErrorIs(t, r.Initialize(context.Background()), curve.ErrAccountNotFound)
}

func TestRunnerJournalsQuotes(t *testing.T) {
	chain := newMemoryChain()
	pool := addPool(t, chain)
	log := zaptest.NewLogger(t)

	r, err := NewRunnerWithReader(testConfig(t, pool.key), chain, nil, log)
	require.NoError(t, err)
	require.NoError(t, r.Initialize(context.Background()))

	path := filepath.Join(t.TempDir(), "quotes.csv")
	j, err := NewJournal(path, time.Hour, log)
	require.NoError(t, err)
	r.SetJournal(j)

	_, err = r.QuoteOnce(context.Background(), sellSOL(100_000))
	require.NoError(t, err)
	_, err = r.QuoteOnce(context.Background(), sellSOL(2_000_000))
	require.NoError(t, err)
	r.Shutdown()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{
		"timestamp", "pool", "venue", "input_mint", "output_mint",
		"in_amount", "out_amount", "fee_amount", "protocol_fee", "lp_fee", "rebate", "status",
	}, rows[0])
	assert.Equal(t, pool.key.String(), rows[1][1])
	assert.Equal(t, "Obric V2", rows[1][2])
	assert.Equal(t, "98713", rows[1][6])
	assert.Equal(t, "ok", rows[1][11])
	assert.Equal(t, "no_liquidity", rows[2][11])
}

func TestRunnerWatchStopsOnCancel(t *testing.T) {
	chain := newMemoryChain()
	pool := addPool(t, chain)

	r, err := NewRunnerWithReader(testConfig(t, pool.key), chain, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, r.Initialize(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, r.Watch(ctx, sellSOL(100_000), 5*time.Millisecond))
}

func TestQuoteStatus(t *testing.T) {
	tests := []struct {
		name string
		res  dex.QuoteResult
		want string
	}{
		{"error", dex.QuoteResult{Err: errors.New("boom")}, "error"},
		{"ok", dex.QuoteResult{Quote: &model.Quote{InAmount: 1, OutAmount: 1}}, "ok"},
		{"ceiling", dex.QuoteResult{Quote: &model.Quote{InAmount: 1, NotEnoughLiquidity: true}}, "no_liquidity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quoteStatus(tt.res))
		})
	}
}

func TestJournalRowWithoutQuote(t *testing.T) {
	row := journalRow("ts", sellSOL(42), dex.QuoteResult{Label: "Obric V2", Err: errors.New("stale")})
	assert.Equal(t, "42", row[5])
	assert.Equal(t, "0", row[6])
	assert.Equal(t, "error", row[11])
}
