// Package indexer drives the event indexing pipeline: it polls the RPC node
// for new blocks, fetches logs for the factory, provider, and discovered
// raffle contracts, and applies each batch to the projection in a single
// transaction together with the checkpoint advance. Crashes and restarts
// therefore never lose or duplicate work.
package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"

	"github.com/ticket-arcade/raffle-indexer/internal/codec"
	"github.com/ticket-arcade/raffle-indexer/internal/logger"
	"github.com/ticket-arcade/raffle-indexer/internal/metrics"
	"github.com/ticket-arcade/raffle-indexer/internal/projector"
	"github.com/ticket-arcade/raffle-indexer/internal/rpc"
	"github.com/ticket-arcade/raffle-indexer/internal/store"
)

// maxAddressesPerQuery bounds the raffle-address filter of one eth_getLogs
// call; the discovered set grows without limit over the life of a deployment.
const maxAddressesPerQuery = 100

// initialBackoff seeds the transient-failure retry delay; it doubles per
// failed tick and is capped at the poll interval.
const initialBackoff = 500 * time.Millisecond

// Config holds the loop parameters.
type Config struct {
	ChainID         uint64
	StartBlock      uint64
	BatchSize       uint64
	PollInterval    time.Duration
	FactoryAddress  common.Address
	ProviderAddress *common.Address
}

// Indexer owns the only mutable state of the pipeline: the checkpoint and
// the in-memory set of discovered raffle addresses.
type Indexer struct {
	cfg       Config
	rpc       rpc.EthClient
	registry  *codec.Registry
	projector *projector.Projector
	store     *store.Store
	log       *logger.Logger

	// Discovered raffle addresses; rebuilt from the raffles table on start
	// and grown as RaffleCreated events are observed. Never persisted
	// separately.
	raffles map[common.Address]struct{}
}

// New creates an Indexer and rebuilds the discovery set from the database.
func New(
	cfg Config,
	rpcClient rpc.EthClient,
	registry *codec.Registry,
	proj *projector.Projector,
	st *store.Store,
	log *logger.Logger,
) (*Indexer, error) {
	addresses, err := st.LoadRaffleAddresses()
	if err != nil {
		return nil, err
	}

	raffles := make(map[common.Address]struct{}, len(addresses))
	for _, addr := range addresses {
		raffles[addr] = struct{}{}
	}

	return &Indexer{
		cfg:       cfg,
		rpc:       rpcClient,
		registry:  registry,
		projector: proj,
		store:     st,
		log:       log.WithComponent("indexer"),
		raffles:   raffles,
	}, nil
}

// Run verifies the chain id and then polls until the context is cancelled.
// Transient RPC and database failures are retried with backoff; decode
// failures for recognized signatures and a chain id mismatch are fatal.
func (i *Indexer) Run(ctx context.Context) error {
	chainID, err := i.rpc.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain id: %w", err)
	}
	if chainID != i.cfg.ChainID {
		return fmt.Errorf("RPC chain id %d does not match configured chain id %d", chainID, i.cfg.ChainID)
	}

	i.log.Infof("indexer started: start_block=%d batch_size=%d factory=%s known_raffles=%d",
		i.cfg.StartBlock, i.cfg.BatchSize, i.cfg.FactoryAddress.Hex(), len(i.raffles))

	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			i.log.Info("indexer stopping")
			return nil
		}

		processed, err := i.tick(ctx)
		switch {
		case err == nil:
			backoff = initialBackoff
			if !processed {
				if !i.sleep(ctx, i.cfg.PollInterval) {
					i.log.Info("indexer stopping")
					return nil
				}
			}
		case ctx.Err() != nil:
			// Cancelled mid-tick; the batch either committed or rolled back.
			i.log.Info("indexer stopping")
			return nil
		case rpc.IsTransient(err) || isTransientDB(err):
			if backoff > i.cfg.PollInterval {
				backoff = i.cfg.PollInterval
			}
			i.log.Warnf("tick failed, retrying in %s: %v", backoff, err)
			if !i.sleep(ctx, backoff) {
				return nil
			}
			backoff *= 2
		default:
			return fmt.Errorf("indexing failed: %w", err)
		}
	}
}

// tick processes at most one batch. It returns false when the chain head has
// not advanced past the checkpoint.
func (i *Indexer) tick(ctx context.Context) (bool, error) {
	start := time.Now()

	checkpoint, err := i.store.LastProcessedBlock()
	if err != nil {
		return false, err
	}

	from := checkpoint + 1
	if from < i.cfg.StartBlock {
		from = i.cfg.StartBlock
	}

	head, err := i.rpc.LatestBlock(ctx)
	if err != nil {
		return false, err
	}
	if from > head {
		return false, nil
	}

	to := from + i.cfg.BatchSize - 1
	if to > head {
		to = head
	}

	// First pass: factory and provider logs, fetched concurrently.
	var factoryLogs, providerLogs []types.Log
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		factoryLogs, err = i.fetchLogs(groupCtx, from, to,
			[]common.Address{i.cfg.FactoryAddress}, i.registry.FactoryTopics())
		return err
	})
	if i.cfg.ProviderAddress != nil && i.registry.ProviderEnabled() {
		group.Go(func() error {
			var err error
			providerLogs, err = i.fetchLogs(groupCtx, from, to,
				[]common.Address{*i.cfg.ProviderAddress}, i.registry.ProviderTopics())
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return false, err
	}

	// Second pass: raffle logs for the union of already-known addresses and
	// those created by factory events inside this very range. A raffle can
	// emit in the same block it is created in, so discovery has to happen
	// before the raffle filter is issued.
	discovered, err := i.discover(factoryLogs)
	if err != nil {
		return false, err
	}

	raffleLogs, err := i.fetchRaffleLogs(ctx, from, to, discovered)
	if err != nil {
		return false, err
	}

	logs := make([]types.Log, 0, len(factoryLogs)+len(providerLogs)+len(raffleLogs))
	logs = append(logs, factoryLogs...)
	logs = append(logs, providerLogs...)
	logs = append(logs, raffleLogs...)

	// Apply order must be deterministic across runs.
	sort.Slice(logs, func(a, b int) bool {
		if logs[a].BlockNumber != logs[b].BlockNumber {
			return logs[a].BlockNumber < logs[b].BlockNumber
		}
		return logs[a].Index < logs[b].Index
	})

	if err := i.applyBatch(logs, to); err != nil {
		return false, err
	}

	// The batch committed; the discovery set may now grow.
	for _, addr := range discovered {
		i.raffles[addr] = struct{}{}
	}

	metrics.LastProcessedBlock.Set(float64(to))
	metrics.BatchesProcessed.Inc()
	metrics.BatchDuration.Observe(time.Since(start).Seconds())

	i.log.Infof("processed blocks %d-%d: %d log(s), %d known raffle(s)",
		from, to, len(logs), len(i.raffles))

	return true, nil
}

// discover decodes factory logs and returns raffle addresses not yet in the
// discovery set.
func (i *Indexer) discover(factoryLogs []types.Log) ([]common.Address, error) {
	var discovered []common.Address
	for _, lg := range factoryLogs {
		event, err := i.registry.Decode(lg)
		if errors.Is(err, codec.ErrUnknownEvent) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode factory log %s/%d: %w", lg.TxHash.Hex(), lg.Index, err)
		}
		created, ok := event.(codec.RaffleCreated)
		if !ok {
			continue
		}
		if _, known := i.raffles[created.Raffle]; !known {
			discovered = append(discovered, created.Raffle)
		}
	}
	return discovered, nil
}

// fetchRaffleLogs queries raffle events for the known plus newly discovered
// addresses, chunked to keep individual filters bounded.
func (i *Indexer) fetchRaffleLogs(ctx context.Context, from, to uint64, discovered []common.Address) ([]types.Log, error) {
	addresses := make([]common.Address, 0, len(i.raffles)+len(discovered))
	for addr := range i.raffles {
		addresses = append(addresses, addr)
	}
	addresses = append(addresses, discovered...)
	if len(addresses) == 0 {
		return nil, nil
	}

	// Stable order so identical ticks issue identical queries.
	sort.Slice(addresses, func(a, b int) bool {
		return addresses[a].Cmp(addresses[b]) < 0
	})

	var logs []types.Log
	for start := 0; start < len(addresses); start += maxAddressesPerQuery {
		end := start + maxAddressesPerQuery
		if end > len(addresses) {
			end = len(addresses)
		}
		chunk, err := i.fetchLogs(ctx, from, to, addresses[start:end], i.registry.RaffleTopics())
		if err != nil {
			return nil, err
		}
		logs = append(logs, chunk...)
	}
	return logs, nil
}

func (i *Indexer) fetchLogs(ctx context.Context, from, to uint64, addresses []common.Address, topics []common.Hash) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: addresses,
		Topics:    [][]common.Hash{topics},
	}
	return i.rpc.GetLogs(ctx, query)
}

// applyBatch stores, decodes, and projects all logs of one batch and
// advances the checkpoint, atomically. Readers never observe a partially
// applied batch.
func (i *Indexer) applyBatch(logs []types.Log, to uint64) (err error) {
	tx, err := i.store.DB().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin batch transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			i.log.Errorf("failed to rollback batch transaction: %v", rollbackErr)
		}
	}()

	for _, lg := range logs {
		if err := i.applyLog(tx, lg); err != nil {
			return err
		}
	}

	if err := store.AdvanceCheckpoint(tx, to); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func (i *Indexer) applyLog(tx *sql.Tx, lg types.Log) error {
	var topic0 common.Hash
	if len(lg.Topics) > 0 {
		topic0 = lg.Topics[0]
	}

	// Raw logs are kept for every observed log, decodable or not.
	_, err := tx.Exec(
		`INSERT INTO events_raw (tx_hash, log_index, block_number, address, topic0, data)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tx_hash, log_index) DO NOTHING`,
		lg.TxHash.Hex(),
		lg.Index,
		lg.BlockNumber,
		lg.Address.Hex(),
		topic0.Hex(),
		"0x"+common.Bytes2Hex(lg.Data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert raw event: %w", err)
	}

	event, err := i.registry.Decode(lg)
	if errors.Is(err, codec.ErrUnknownEvent) {
		metrics.UnknownTopics.Inc()
		i.log.Warnf("unknown event signature %s from %s at block %d, skipping",
			topic0.Hex(), lg.Address.Hex(), lg.BlockNumber)
		return nil
	}
	if err != nil {
		// A malformed payload for a recognized signature: stopping is safer
		// than writing garbage.
		return fmt.Errorf("failed to decode log %s/%d at block %d: %w",
			lg.TxHash.Hex(), lg.Index, lg.BlockNumber, err)
	}

	return i.projector.Apply(tx, event, projector.Locator{
		TxHash:      lg.TxHash,
		LogIndex:    lg.Index,
		BlockNumber: lg.BlockNumber,
		Address:     lg.Address,
	})
}

// sleep waits for d or until the context is cancelled, reporting whether the
// full duration elapsed.
func (i *Indexer) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// isTransientDB reports whether a database error is worth retrying;
// SQLite reports writer contention as busy/locked.
func isTransientDB(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked") ||
		strings.Contains(errStr, "busy")
}
