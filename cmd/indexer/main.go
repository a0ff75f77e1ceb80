package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ticket-arcade/raffle-indexer/internal/api"
	"github.com/ticket-arcade/raffle-indexer/internal/codec"
	"github.com/ticket-arcade/raffle-indexer/internal/config"
	"github.com/ticket-arcade/raffle-indexer/internal/db"
	"github.com/ticket-arcade/raffle-indexer/internal/indexer"
	"github.com/ticket-arcade/raffle-indexer/internal/logger"
	"github.com/ticket-arcade/raffle-indexer/internal/metrics"
	"github.com/ticket-arcade/raffle-indexer/internal/migrations"
	"github.com/ticket-arcade/raffle-indexer/internal/projector"
	"github.com/ticket-arcade/raffle-indexer/internal/rpc"
	"github.com/ticket-arcade/raffle-indexer/internal/store"
)

const version = "1.0.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "raffle-indexer",
	Short: "Raffle event indexer and read API",
	Long: `raffle-indexer maintains a queryable projection of the Ticket Arcade
raffle contracts. It polls the chain for factory, raffle, and randomness
provider events, applies them to a relational store with a durable
checkpoint, and serves the projection over a read-only HTTP API.

Configuration is environment-based. Required: DATABASE_URL, RPC_URL,
CHAIN_ID, START_BLOCK, RAFFLE_FACTORY_ADDRESS. Optional:
RANDOMNESS_PROVIDER_ADDRESS, BIND_ADDR, INDEXER_BATCH_SIZE,
INDEXER_POLL_INTERVAL_MS, RPC_TIMEOUT_MS, EXPLORER_BASE_URL, ABI_DIR,
METRICS_ADDR, LOG_LEVEL. A .env file in the working directory is loaded
when present.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         run,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return err
		}
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		return migrations.RunMigrations(dsn)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func run(cmd *cobra.Command, args []string) error {
	// A .env file is a development convenience; absence is not an error.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	log, err := logger.NewLogger(cfg.LogLevel, false)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger.SetDefaultLogger(log)
	defer log.Close()

	log.Infof("configuration loaded: %s", cfg)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Infof("received %s, shutting down", sig)
		cancel()
	}()

	if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	database, err := db.NewSQLiteDB(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	st := store.New(database)

	registry, err := codec.NewRegistry(cfg.ABIDir)
	if err != nil {
		return fmt.Errorf("failed to load contract ABIs: %w", err)
	}
	if !registry.ProviderEnabled() && cfg.RandomnessProviderAddress != nil {
		log.Warn("provider address configured but provider artifact missing; provider events disabled")
	}

	rpcClient, err := rpc.NewClient(ctx, cfg.RPCURL, cfg.RPCTimeout)
	if err != nil {
		return fmt.Errorf("failed to create RPC client: %w", err)
	}
	defer rpcClient.Close()

	idx, err := indexer.New(
		indexer.Config{
			ChainID:         cfg.ChainID,
			StartBlock:      cfg.StartBlock,
			BatchSize:       cfg.BatchSize,
			PollInterval:    cfg.PollInterval,
			FactoryAddress:  cfg.RaffleFactoryAddress,
			ProviderAddress: cfg.RandomnessProviderAddress,
		},
		rpcClient,
		registry,
		projector.New(log),
		st,
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to create indexer: %w", err)
	}

	apiServer := api.NewServer(cfg.BindAddr, st, cfg.ExplorerBaseURL, log)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return idx.Run(groupCtx) })
	group.Go(func() error { return apiServer.Run(groupCtx) })
	if cfg.MetricsAddr != "" {
		metricsServer := metrics.NewServer(cfg.MetricsAddr, log)
		group.Go(func() error { return metricsServer.Run(groupCtx) })
	}

	if err := group.Wait(); err != nil {
		return err
	}

	log.Info("shutdown complete")
	return nil
}
