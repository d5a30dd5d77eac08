// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/oracle-amm/internal/blockchain"
	"github.com/rovshanmuradov/oracle-amm/internal/utils/metrics"
)

// MaxAccountsPerRequest is the getMultipleAccounts limit of public RPC nodes.
const MaxAccountsPerRequest = 100

var ErrAccountNotFound = errors.New("account not found")

// RPC is the subset of the solana-go RPC client used here.
type RPC interface {
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
	GetMultipleAccountsWithOpts(ctx context.Context, accounts []solana.PublicKey, opts *rpc.GetMultipleAccountsOpts) (*rpc.GetMultipleAccountsResult, error)
	GetProgramAccountsWithOpts(ctx context.Context, publicKey solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
}

// RetryConfig bounds the exponential backoff applied to every RPC call.
type RetryConfig struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns the retry policy used when none is configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxTries:        3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// Client is a read-only Solana account fetcher.
type Client struct {
	rpc     RPC
	retry   RetryConfig
	logger  *zap.Logger
	metrics *metrics.Collector
}

// IsAccountNotFoundError reports whether err means the account does not exist.
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAccountNotFound) || errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// NewClient creates a client for rpcURL. mc may be nil.
func NewClient(rpcURL string, retry RetryConfig, logger *zap.Logger, mc *metrics.Collector) *Client {
	return NewClientWithRPC(rpc.New(rpcURL), retry, logger, mc)
}

// NewClientWithRPC wraps an existing RPC implementation.
func NewClientWithRPC(r RPC, retry RetryConfig, logger *zap.Logger, mc *metrics.Collector) *Client {
	if retry.MaxTries == 0 {
		retry.MaxTries = 1
	}
	return &Client{
		rpc:     r,
		retry:   retry,
		logger:  logger.Named("solbc-client"),
		metrics: mc,
	}
}

// call runs op with the configured backoff. Not-found errors are permanent.
func call[T any](ctx context.Context, c *Client, method string, op func() (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	if c.retry.InitialInterval > 0 {
		policy.InitialInterval = c.retry.InitialInterval
	}
	if c.retry.MaxInterval > 0 {
		policy.MaxInterval = c.retry.MaxInterval
	}

	notify := func(err error, d time.Duration) {
		c.logger.Debug("Retrying RPC call",
			zap.String("method", method),
			zap.Duration("backoff", d),
			zap.Error(err))
	}

	attempt := func() (T, error) {
		start := time.Now()
		out, err := op()
		if c.metrics != nil {
			c.metrics.RecordRPCLatency(method, time.Since(start))
		}
		if err != nil && IsAccountNotFoundError(err) {
			return out, backoff.Permanent(err)
		}
		return out, err
	}

	return backoff.Retry(ctx, attempt,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.retry.MaxTries),
		backoff.WithNotify(notify))
}

func convertAccount(acc *rpc.Account) *blockchain.Account {
	if acc == nil {
		return nil
	}
	out := &blockchain.Account{Owner: acc.Owner, Lamports: acc.Lamports}
	if acc.Data != nil {
		out.Data = acc.Data.GetBinary()
	}
	return out
}

// GetAccountInfo fetches a single account, or ErrAccountNotFound.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*blockchain.Account, error) {
	opts := &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
	}

	res, err := call(ctx, c, "getAccountInfo", func() (*rpc.GetAccountInfoResult, error) {
		return c.rpc.GetAccountInfoWithOpts(ctx, pubkey, opts)
	})
	if err != nil {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		if IsAccountNotFoundError(err) {
			return nil, fmt.Errorf("%s: %w", pubkey, ErrAccountNotFound)
		}
		return nil, err
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("%s: %w", pubkey, ErrAccountNotFound)
	}
	return convertAccount(res.Value), nil
}

// GetMultipleAccounts fetches pubkeys in chunks of MaxAccountsPerRequest.
// Missing accounts are left out of the result.
func (c *Client) GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) (map[solana.PublicKey]*blockchain.Account, error) {
	out := make(map[solana.PublicKey]*blockchain.Account, len(pubkeys))
	if len(pubkeys) == 0 {
		return out, nil
	}

	opts := &rpc.GetMultipleAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
	}

	for start := 0; start < len(pubkeys); start += MaxAccountsPerRequest {
		chunk := pubkeys[start:min(start+MaxAccountsPerRequest, len(pubkeys))]

		res, err := call(ctx, c, "getMultipleAccounts", func() (*rpc.GetMultipleAccountsResult, error) {
			return c.rpc.GetMultipleAccountsWithOpts(ctx, chunk, opts)
		})
		if err != nil {
			c.logger.Debug("GetMultipleAccounts error",
				zap.Int("accounts", len(chunk)),
				zap.Error(err))
			return nil, err
		}
		if res == nil || len(res.Value) != len(chunk) {
			return nil, fmt.Errorf("getMultipleAccounts returned %d results for %d keys", resultLen(res), len(chunk))
		}

		for i, acc := range res.Value {
			if acc != nil {
				out[chunk[i]] = convertAccount(acc)
			}
		}
	}

	return out, nil
}

func resultLen(res *rpc.GetMultipleAccountsResult) int {
	if res == nil {
		return 0
	}
	return len(res.Value)
}

// GetProgramAccounts lists accounts of programID starting with discriminator.
// A non-zero size adds a dataSize filter.
func (c *Client) GetProgramAccounts(
	ctx context.Context,
	programID solana.PublicKey,
	discriminator []byte,
	size uint64,
) ([]blockchain.KeyedAccount, error) {
	opts := &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
	}
	if len(discriminator) > 0 {
		opts.Filters = append(opts.Filters, rpc.RPCFilter{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: 0,
				Bytes:  discriminator,
			},
		})
	}
	if size > 0 {
		opts.Filters = append(opts.Filters, rpc.RPCFilter{DataSize: size})
	}

	accounts, err := call(ctx, c, "getProgramAccounts", func() (rpc.GetProgramAccountsResult, error) {
		return c.rpc.GetProgramAccountsWithOpts(ctx, programID, opts)
	})
	if err != nil {
		c.logger.Debug("GetProgramAccounts error",
			zap.String("program_id", programID.String()),
			zap.Error(err))
		return nil, err
	}

	out := make([]blockchain.KeyedAccount, 0, len(accounts))
	for _, ka := range accounts {
		if ka == nil || ka.Account == nil {
			continue
		}
		out = append(out, blockchain.KeyedAccount{Key: ka.Pubkey, Account: *convertAccount(ka.Account)})
	}
	return out, nil
}

var _ blockchain.AccountReader = (*Client)(nil)
