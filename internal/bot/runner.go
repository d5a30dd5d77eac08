// internal/bot/runner.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/oracle-amm/internal/blockchain"
	"github.com/rovshanmuradov/oracle-amm/internal/blockchain/solbc"
	"github.com/rovshanmuradov/oracle-amm/internal/config"
	"github.com/rovshanmuradov/oracle-amm/internal/dex"
	"github.com/rovshanmuradov/oracle-amm/internal/dex/model"
	"github.com/rovshanmuradov/oracle-amm/internal/utils/metrics"
)

// ErrNoPools is returned when neither configured nor discovered pools exist.
var ErrNoPools = errors.New("no pools to quote")

// Runner wires the RPC client, the quoter and the optional journal together.
type Runner struct {
	logger  *zap.Logger
	config  *config.Config
	network *config.Network
	reader  blockchain.AccountReader
	metrics *metrics.Collector
	quoter  *dex.Quoter
	journal *Journal
}

// NewRunner builds a runner reading from cfg.RPCURL.
func NewRunner(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	mc := metrics.NewCollector()
	retry := solbc.RetryConfig{
		MaxTries:        uint(cfg.Retries) + 1,
		InitialInterval: cfg.RetryDelay(),
		MaxInterval:     solbc.DefaultRetryConfig().MaxInterval,
	}
	client := solbc.NewClient(cfg.RPCURL, retry, logger, mc)
	return NewRunnerWithReader(cfg, client, mc, logger)
}

// NewRunnerWithReader builds a runner over an existing account reader.
func NewRunnerWithReader(cfg *config.Config, reader blockchain.AccountReader, mc *metrics.Collector, logger *zap.Logger) (*Runner, error) {
	network, err := cfg.Network()
	if err != nil {
		return nil, err
	}
	if mc == nil {
		mc = metrics.NewCollector()
	}

	opts := dex.Options{
		V2ProgramID:     network.V2Program,
		V3ProgramID:     network.V3Program,
		LendingReserves: network.LendingReserves,
		Logger:          logger,
		Metrics:         mc,
	}

	return &Runner{
		logger:  logger,
		config:  cfg,
		network: network,
		reader:  reader,
		metrics: mc,
		quoter:  dex.NewQuoter(reader, opts, cfg.Workers),
	}, nil
}

// Quoter exposes the underlying pool set.
func (r *Runner) Quoter() *dex.Quoter {
	return r.quoter
}

// SetJournal attaches a quote journal; the runner closes it on Shutdown.
func (r *Runner) SetJournal(j *Journal) {
	r.journal = j
}

// Initialize loads the configured pools, or discovers them when none are set.
func (r *Runner) Initialize(ctx context.Context) error {
	if len(r.network.Pools) > 0 {
		if err := r.quoter.Load(ctx, r.network.Pools); err != nil {
			return fmt.Errorf("load pools: %w", err)
		}
		return nil
	}

	n, err := r.quoter.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover pools: %w", err)
	}
	if n == 0 {
		return ErrNoPools
	}
	return nil
}

// QuoteOnce refreshes every pool and routes params across them. Pools that
// fail to refresh are quoted from their last good state.
func (r *Runner) QuoteOnce(ctx context.Context, params model.QuoteParams) ([]dex.QuoteResult, error) {
	if err := r.quoter.Refresh(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Warn("Refresh incomplete", zap.Error(err))
	}

	results := r.quoter.Quote(params)
	r.report(params, results)

	if r.journal != nil {
		if err := r.journal.Record(params, results); err != nil {
			r.logger.Error("Failed to write quote journal", zap.Error(err))
		}
	}
	return results, nil
}

func (r *Runner) report(params model.QuoteParams, results []dex.QuoteResult) {
	if len(results) == 0 || !results[0].Usable() {
		r.logger.Warn("No pool can fill",
			zap.String("input_mint", params.InputMint.String()),
			zap.String("output_mint", params.OutputMint.String()),
			zap.Uint64("in_amount", params.Amount),
			zap.Int("pools", len(results)))
		return
	}

	best := results[0]
	r.logger.Info("Best quote",
		zap.String("venue", best.Label),
		zap.String("pool", best.Pool.String()),
		zap.Uint64("in_amount", best.Quote.InAmount),
		zap.Uint64("out_amount", best.Quote.OutAmount),
		zap.Uint64("fee_amount", best.Quote.FeeAmount),
		zap.Int("pools", len(results)))
}

// Watch quotes params every interval until ctx is done.
func (r *Runner) Watch(ctx context.Context, params model.QuoteParams, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.QuoteOnce(ctx, params); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ServeMetrics exposes the collector on addr until ctx is done.
func (r *Runner) ServeMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.metrics.Registry(), promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	r.logger.Info("Serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Shutdown closes the journal and flushes the logger.
func (r *Runner) Shutdown() {
	r.logger.Info("Shutting down")

	if r.journal != nil {
		if err := r.journal.Close(); err != nil {
			r.logger.Error("Failed to close quote journal", zap.Error(err))
		}
	}

	if err := r.logger.Sync(); err != nil {
		if !os.IsNotExist(err) &&
			err.Error() != "sync /dev/stdout: invalid argument" &&
			err.Error() != "sync /dev/stderr: inappropriate ioctl for device" {
			fmt.Fprintf(os.Stderr, "failed to sync logger during shutdown: %v\n", err)
		}
	}
}
