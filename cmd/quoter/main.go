// =============================
// File: cmd/quoter/main.go
// =============================
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/oracle-amm/internal/bot"
	"github.com/rovshanmuradov/oracle-amm/internal/config"
	"github.com/rovshanmuradov/oracle-amm/internal/curve"
	"github.com/rovshanmuradov/oracle-amm/internal/dex"
	"github.com/rovshanmuradov/oracle-amm/internal/dex/model"
	"github.com/rovshanmuradov/oracle-amm/internal/logger"
)

func main() {
	root := &cobra.Command{
		Use:          "quoter",
		Short:        "Oracle-anchored AMM quoter",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file path")
	pf.String("rpc-url", "", "Solana RPC URL")
	pf.Int("workers", 0, "parallel pool refreshes (0 keeps the configured value)")
	pf.Int("retries", 0, "RPC retries after the first attempt")
	pf.Int("retry-delay-ms", 0, "initial RPC retry backoff in milliseconds")
	pf.StringSlice("pools", nil, "pool addresses; empty discovers every pool")
	pf.Bool("debug-logging", false, "enable debug logging")
	pf.Bool("pretty-logging", false, "colored one-line console output")
	pf.String("log-file", "", "rotating JSON log file")

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Refresh pools once and route a quote",
		RunE:  runQuote,
	}
	addTradeFlags(quoteCmd)
	quoteCmd.Flags().String("quote-journal", "", "append results to this CSV file")
	root.AddCommand(quoteCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Quote continuously and expose metrics",
		RunE:  runWatch,
	}
	addTradeFlags(watchCmd)
	watchCmd.Flags().Duration("interval", 2*time.Second, "time between refreshes")
	watchCmd.Flags().String("quote-journal", "", "append results to this CSV file")
	watchCmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address")
	root.AddCommand(watchCmd)

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Quote an offline static-target pool",
		RunE:  runSimulate,
	}
	sf := simulateCmd.Flags()
	sf.String("price-x", "1", "price of one whole X token")
	sf.String("price-y", "1", "price of one whole Y token")
	sf.Uint8("decimals-x", 6, "X token decimals")
	sf.Uint8("decimals-y", 6, "Y token decimals")
	sf.Uint64("reserve-x", 1_000_000, "X reserve in base units")
	sf.Uint64("reserve-y", 1_000_000, "Y reserve in base units")
	sf.Uint64("target-x", 1_000_000, "X target in base units")
	sf.Uint64("concentration", 10, "curve concentration")
	sf.Uint64("fee-millionth", 3000, "swap fee in millionths")
	sf.Uint64("protocol-share", 200, "protocol share of the fee in thousandths")
	sf.Uint64("rebate", 50, "rebate percentage for trades toward the target")
	sf.String("direction", "x-to-y", "x-to-y or y-to-x")
	sf.Uint64("amount", 100_000, "input in base units")
	root.AddCommand(simulateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addTradeFlags(cmd *cobra.Command) {
	cmd.Flags().String("input-mint", "", "mint sold into the pool")
	cmd.Flags().String("output-mint", "", "mint bought from the pool")
	cmd.Flags().String("amount", "", "input amount in whole tokens")
	cmd.Flags().Uint8("decimals", 6, "input token decimals")
	_ = cmd.MarkFlagRequired("input-mint")
	_ = cmd.MarkFlagRequired("output-mint")
	_ = cmd.MarkFlagRequired("amount")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.LoadConfig(path, cmd.Flags())
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	lc := logger.DefaultConfig()
	lc.LogFile = cfg.LogFile
	lc.Development = cfg.DebugLogging
	lc.Pretty = cfg.PrettyLogging
	return logger.New(lc)
}

func tradeParams(cmd *cobra.Command) (model.QuoteParams, error) {
	flags := cmd.Flags()
	in, _ := flags.GetString("input-mint")
	out, _ := flags.GetString("output-mint")
	rawAmount, _ := flags.GetString("amount")
	decimals, _ := flags.GetUint8("decimals")

	inputMint, err := solana.PublicKeyFromBase58(in)
	if err != nil {
		return model.QuoteParams{}, fmt.Errorf("input mint: %w", err)
	}
	outputMint, err := solana.PublicKeyFromBase58(out)
	if err != nil {
		return model.QuoteParams{}, fmt.Errorf("output mint: %w", err)
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return model.QuoteParams{}, fmt.Errorf("amount: %w", err)
	}
	units, err := dex.ToBaseUnits(amount, decimals)
	if err != nil {
		return model.QuoteParams{}, err
	}

	return model.QuoteParams{InputMint: inputMint, OutputMint: outputMint, Amount: units}, nil
}

// setup builds the logger, the runner and its journal, and loads pools.
func setup(ctx context.Context, cmd *cobra.Command, operation string) (*bot.Runner, *config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	base, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	log := base.WithOperation(operation)

	runner, err := bot.NewRunner(cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}

	if cfg.QuoteJournal != "" {
		journal, err := bot.NewJournal(cfg.QuoteJournal, time.Second, log)
		if err != nil {
			return nil, nil, nil, err
		}
		runner.SetJournal(journal)
	}

	if err := runner.Initialize(ctx); err != nil {
		runner.Shutdown()
		return nil, nil, nil, err
	}
	return runner, cfg, log, nil
}

func runQuote(cmd *cobra.Command, _ []string) error {
	params, err := tradeParams(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, _, log, err := setup(ctx, cmd, "quote")
	if err != nil {
		return err
	}
	defer runner.Shutdown()

	results, err := runner.QuoteOnce(ctx, params)
	if err != nil {
		return err
	}
	for _, res := range results {
		fields := []zap.Field{
			zap.String("pool", res.Pool.String()),
			zap.String("venue", res.Label),
		}
		if res.Err != nil {
			log.Warn("Quote failed", append(fields, zap.Error(res.Err))...)
			continue
		}
		log.Debug("Pool quote", append(fields,
			zap.Uint64("out_amount", res.Quote.OutAmount),
			zap.Uint64("fee_amount", res.Quote.FeeAmount),
			zap.Bool("not_enough_liquidity", res.Quote.NotEnoughLiquidity))...)
	}
	return nil
}

func runWatch(cmd *cobra.Command, _ []string) error {
	params, err := tradeParams(cmd)
	if err != nil {
		return err
	}
	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, cfg, _, err := setup(ctx, cmd, "watch")
	if err != nil {
		return err
	}
	defer runner.Shutdown()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		g.Go(func() error { return runner.ServeMetrics(gctx, cfg.MetricsAddr) })
	}
	g.Go(func() error { return runner.Watch(gctx, params, interval) })
	return g.Wait()
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	base, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer base.Sync()
	defer base.TrackPerformance("simulate")()
	log := base.WithComponent("simulate")

	flags := cmd.Flags()
	s := bot.Simulation{}

	rawX, _ := flags.GetString("price-x")
	if s.PriceX, err = decimal.NewFromString(rawX); err != nil {
		return fmt.Errorf("price-x: %w", err)
	}
	rawY, _ := flags.GetString("price-y")
	if s.PriceY, err = decimal.NewFromString(rawY); err != nil {
		return fmt.Errorf("price-y: %w", err)
	}
	s.DecimalsX, _ = flags.GetUint8("decimals-x")
	s.DecimalsY, _ = flags.GetUint8("decimals-y")
	s.ReserveX, _ = flags.GetUint64("reserve-x")
	s.ReserveY, _ = flags.GetUint64("reserve-y")
	s.TargetX, _ = flags.GetUint64("target-x")
	s.Concentration, _ = flags.GetUint64("concentration")
	s.FeeMillionth, _ = flags.GetUint64("fee-millionth")
	s.ProtocolFeeShareThousandth, _ = flags.GetUint64("protocol-share")
	s.RebatePercentage, _ = flags.GetUint64("rebate")
	s.Amount, _ = flags.GetUint64("amount")

	direction, _ := flags.GetString("direction")
	outDecimals := s.DecimalsY
	switch direction {
	case "x-to-y":
		s.Direction = curve.XToY
	case "y-to-x":
		s.Direction = curve.YToX
		outDecimals = s.DecimalsX
	default:
		return fmt.Errorf("unknown direction %q", direction)
	}

	res, err := bot.Simulate(s)
	if err != nil {
		return err
	}

	log.Info("Simulated quote",
		zap.String("direction", s.Direction.String()),
		zap.Uint64("mult_x", res.Multipliers.X),
		zap.Uint64("mult_y", res.Multipliers.Y),
		zap.Uint64("target_y", res.Equilibrium.TargetY),
		zap.Uint64("in_amount", res.Quote.InputAmount),
		zap.Uint64("out_amount", res.Quote.OutputAmount),
		zap.String("out_ui", dex.FromBaseUnits(res.Quote.OutputAmount, outDecimals).String()),
		zap.Uint64("protocol_fee", res.Quote.ProtocolFee),
		zap.Uint64("lp_fee", res.Quote.LPFee),
		zap.Uint64("rebate", res.Quote.Rebate))
	return nil
}
