package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultBindAddr       = "0.0.0.0:8080"
	DefaultBatchSize      = 2000
	DefaultPollIntervalMS = 3000
	DefaultRPCTimeoutMS   = 30000
	DefaultLogLevel       = "info"
)

// Config holds all runtime configuration, loaded once from environment
// variables at startup. DATABASE_URL may contain credentials and must never
// be logged; String() redacts it.
type Config struct {
	// DatabaseURL is the SQLite DSN (path or file: URI) of the projection store.
	DatabaseURL string
	// RPCURL is the HTTP(S) JSON-RPC endpoint.
	RPCURL string
	// ChainID is the expected chain id; a mismatch at startup is fatal.
	ChainID uint64
	// StartBlock is the lower bound on indexing; the indexer never rewinds below it.
	StartBlock uint64
	// RaffleFactoryAddress is the RaffleFactory contract address.
	RaffleFactoryAddress common.Address
	// RandomnessProviderAddress, when set, enables the provider filter and events.
	RandomnessProviderAddress *common.Address
	// BindAddr is the host:port of the read API.
	BindAddr string
	// BatchSize is the number of blocks per eth_getLogs range.
	BatchSize uint64
	// PollInterval is the idle sleep between indexing ticks.
	PollInterval time.Duration
	// RPCTimeout bounds every individual RPC call.
	RPCTimeout time.Duration
	// ExplorerBaseURL is used by the read API to build transaction URLs.
	ExplorerBaseURL string
	// ABIDir optionally overrides the embedded contract artifacts.
	ABIDir string
	// MetricsAddr, when set, serves Prometheus metrics on that address.
	MetricsAddr string
	// LogLevel is the zap log level: debug, info, warn, error.
	LogLevel string
}

// FromEnv loads and validates the configuration from environment variables.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RPCURL:          os.Getenv("RPC_URL"),
		BindAddr:        envOr("BIND_ADDR", DefaultBindAddr),
		ExplorerBaseURL: os.Getenv("EXPLORER_BASE_URL"),
		ABIDir:          os.Getenv("ABI_DIR"),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		LogLevel:        envOr("LOG_LEVEL", DefaultLogLevel),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC_URL is required")
	}

	var err error
	if cfg.ChainID, err = envUint64Required("CHAIN_ID"); err != nil {
		return nil, err
	}
	if cfg.StartBlock, err = envUint64Required("START_BLOCK"); err != nil {
		return nil, err
	}

	factory := os.Getenv("RAFFLE_FACTORY_ADDRESS")
	if factory == "" {
		return nil, fmt.Errorf("RAFFLE_FACTORY_ADDRESS is required")
	}
	if cfg.RaffleFactoryAddress, err = parseAddress(factory); err != nil {
		return nil, fmt.Errorf("RAFFLE_FACTORY_ADDRESS: %w", err)
	}

	if provider := os.Getenv("RANDOMNESS_PROVIDER_ADDRESS"); provider != "" {
		addr, err := parseAddress(provider)
		if err != nil {
			return nil, fmt.Errorf("RANDOMNESS_PROVIDER_ADDRESS: %w", err)
		}
		cfg.RandomnessProviderAddress = &addr
	}

	batchSize, err := envUint64("INDEXER_BATCH_SIZE", DefaultBatchSize)
	if err != nil {
		return nil, err
	}
	if batchSize == 0 {
		return nil, fmt.Errorf("INDEXER_BATCH_SIZE must be positive")
	}
	cfg.BatchSize = batchSize

	pollMS, err := envUint64("INDEXER_POLL_INTERVAL_MS", DefaultPollIntervalMS)
	if err != nil {
		return nil, err
	}
	cfg.PollInterval = time.Duration(pollMS) * time.Millisecond

	timeoutMS, err := envUint64("RPC_TIMEOUT_MS", DefaultRPCTimeoutMS)
	if err != nil {
		return nil, err
	}
	cfg.RPCTimeout = time.Duration(timeoutMS) * time.Millisecond

	return cfg, nil
}

// String renders the configuration for logging with DATABASE_URL redacted.
func (c *Config) String() string {
	provider := "<disabled>"
	if c.RandomnessProviderAddress != nil {
		provider = c.RandomnessProviderAddress.Hex()
	}
	return fmt.Sprintf(
		"Config{DatabaseURL: [REDACTED], RPCURL: %s, ChainID: %d, StartBlock: %d, "+
			"Factory: %s, Provider: %s, BindAddr: %s, BatchSize: %d, PollInterval: %s}",
		c.RPCURL, c.ChainID, c.StartBlock,
		c.RaffleFactoryAddress.Hex(), provider, c.BindAddr, c.BatchSize, c.PollInterval,
	)
}

func parseAddress(s string) (common.Address, error) {
	if !strings.HasPrefix(s, "0x") || len(s) != 42 || !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%q is not a valid address (0x + 40 hex chars)", s)
	}
	return common.HexToAddress(s), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envUint64(key string, fallback uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid uint64, got %q", key, v)
	}
	return parsed, nil
}

func envUint64Required(key string) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	parsed, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid uint64, got %q", key, v)
	}
	return parsed, nil
}
