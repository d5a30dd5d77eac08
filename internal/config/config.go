// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ORACLE_AMM_RPC_URL.
const EnvPrefix = "ORACLE_AMM"

type Config struct {
	RPCURL       string `mapstructure:"rpc_url"`
	Retries      int    `mapstructure:"retries"`
	RetryDelayMs int    `mapstructure:"retry_delay_ms"`
	Workers      int    `mapstructure:"workers"`

	DebugLogging  bool   `mapstructure:"debug_logging"`
	PrettyLogging bool   `mapstructure:"pretty_logging"`
	LogFile       string `mapstructure:"log_file"`
	QuoteJournal  string `mapstructure:"quote_journal"`
	MetricsAddr   string `mapstructure:"metrics_addr"`

	V2Program   string `mapstructure:"v2_program"`
	V3Program   string `mapstructure:"v3_program"`
	PythProgram string `mapstructure:"pyth_program"`

	Larix LarixConfig `mapstructure:"larix"`

	Pools []string `mapstructure:"pools"`
}

// LarixConfig identifies the lending market v3 pools hold positions on.
// Reserves are "mint=reserve" pairs; map keys are avoided because viper
// lowercases them.
type LarixConfig struct {
	Market          string   `mapstructure:"market"`
	MarketAuthority string   `mapstructure:"market_authority"`
	Oracle          string   `mapstructure:"oracle"`
	Mint            string   `mapstructure:"mint"`
	Reserves        []string `mapstructure:"reserves"`
}

const (
	DefaultRPCURL       = "https://api.mainnet-beta.solana.com"
	DefaultRetries      = 3
	DefaultRetryDelayMs = 200
	DefaultWorkers      = 4

	DefaultV2Program   = "obriQD1zbpyLz95G5n7nJe6a4DPjpFwa5XYPoNm113y"
	DefaultV3Program   = "4DDLcmzLRosAUgTNSHXDuAHmuE1CACA193L3QTPYyz9j"
	DefaultPythProgram = "FsJ3A3u2vn5cTVofAjvy6y5kwABJAqYWpe4975bi2epH"

	DefaultLarixMarket          = "5geyZJdffDBNoMqEbogbPvdgH9ue7NREobtW8M3C1qfe"
	DefaultLarixMarketAuthority = "BxnUi6jyYbtEEgkBq4bPLKzDpSfWVAzgyf3TF2jfC1my"
	DefaultLarixOracle          = "GMjBguH3ceg9wAHEMdY5iZnvzY6CgBACBDvkWmjR7upS"
	DefaultLarixMint            = "Lrxqnh6ZHKbGy3dcrCED43nsoLkM1LTzU2jRfWe8qUC"
)

// DefaultLarixReserves maps SOL, USDC and USDT to their Larix reserves.
var DefaultLarixReserves = []string{
	"So11111111111111111111111111111111111111112=2RcrbkGNcfy9mbarLCCRYdW3hxph7pSbP38x35MR2Bjt",
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v=Emq1qT9MyyB5eHfftF5thYme84hoEwh4TCjm31K2Xxif",
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB=DC832AzxQMGDaVLGiRQfRCkyXi6PUPjQyQfMbVRRjtKA",
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"rpc_url":                DefaultRPCURL,
		"retries":                DefaultRetries,
		"retry_delay_ms":         DefaultRetryDelayMs,
		"workers":                DefaultWorkers,
		"v2_program":             DefaultV2Program,
		"v3_program":             DefaultV3Program,
		"pyth_program":           DefaultPythProgram,
		"larix.market":           DefaultLarixMarket,
		"larix.market_authority": DefaultLarixMarketAuthority,
		"larix.oracle":           DefaultLarixOracle,
		"larix.mint":             DefaultLarixMint,
		"larix.reserves":         DefaultLarixReserves,
	}
}

// LoadConfig layers defaults, the file at path (optional), ORACLE_AMM_*
// environment variables and explicitly set flags. flags may be nil.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	loadEnvironmentVariables(v, &cfg)

	return &cfg, validateConfig(&cfg)
}

// bindFlags maps --rpc-url style flags onto rpc_url style keys.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}

// loadEnvironmentVariables splits comma-separated list overrides, which viper
// leaves as a single string.
func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	if pools := splitList(v.GetString("POOLS")); len(pools) > 0 {
		cfg.Pools = pools
	}
	if reserves := splitList(v.GetString("LARIX_RESERVES")); len(reserves) > 0 {
		cfg.Larix.Reserves = reserves
	}
}

func splitList(raw string) []string {
	if strings.HasPrefix(raw, "[") {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if clean := strings.TrimSpace(item); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

func validateConfig(cfg *Config) error {
	if cfg.RPCURL == "" {
		return errors.New("rpc_url is empty")
	}
	if err := validateURLWithCache(cfg.RPCURL, "http"); err != nil {
		return errors.New("invalid RPC URL protocol")
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	if _, err := cfg.Network(); err != nil {
		return err
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	if cfg.RetryDelayMs <= 0 {
		return errors.New("invalid retry_delay_ms")
	}
	if cfg.Workers < 0 {
		return errors.New("invalid workers count")
	}
	return nil
}

// RetryDelay is the initial backoff between RPC attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

// Network holds the parsed on-chain identities of a Config.
type Network struct {
	V2Program   solana.PublicKey
	V3Program   solana.PublicKey
	PythProgram solana.PublicKey

	LarixMarket          solana.PublicKey
	LarixMarketAuthority solana.PublicKey
	LarixOracle          solana.PublicKey
	LarixMint            solana.PublicKey
	LendingReserves      map[solana.PublicKey]solana.PublicKey

	Pools []solana.PublicKey
}

// Network parses every address in the configuration.
func (c *Config) Network() (*Network, error) {
	n := &Network{LendingReserves: make(map[solana.PublicKey]solana.PublicKey, len(c.Larix.Reserves))}

	keys := []struct {
		name string
		raw  string
		dst  *solana.PublicKey
	}{
		{"v2_program", c.V2Program, &n.V2Program},
		{"v3_program", c.V3Program, &n.V3Program},
		{"pyth_program", c.PythProgram, &n.PythProgram},
		{"larix.market", c.Larix.Market, &n.LarixMarket},
		{"larix.market_authority", c.Larix.MarketAuthority, &n.LarixMarketAuthority},
		{"larix.oracle", c.Larix.Oracle, &n.LarixOracle},
		{"larix.mint", c.Larix.Mint, &n.LarixMint},
	}
	for _, k := range keys {
		key, err := solana.PublicKeyFromBase58(k.raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", k.name, k.raw, err)
		}
		*k.dst = key
	}

	for _, pair := range c.Larix.Reserves {
		mintRaw, reserveRaw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid larix.reserves entry %q: want mint=reserve", pair)
		}
		mint, err := solana.PublicKeyFromBase58(strings.TrimSpace(mintRaw))
		if err != nil {
			return nil, fmt.Errorf("invalid larix.reserves mint %q: %w", mintRaw, err)
		}
		reserve, err := solana.PublicKeyFromBase58(strings.TrimSpace(reserveRaw))
		if err != nil {
			return nil, fmt.Errorf("invalid larix.reserves reserve %q: %w", reserveRaw, err)
		}
		n.LendingReserves[mint] = reserve
	}

	for _, raw := range c.Pools {
		key, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid pool %q: %w", raw, err)
		}
		n.Pools = append(n.Pools, key)
	}

	return n, nil
}
