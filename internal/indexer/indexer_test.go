package indexer

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/ticket-arcade/raffle-indexer/internal/codec"
	"github.com/ticket-arcade/raffle-indexer/internal/db"
	"github.com/ticket-arcade/raffle-indexer/internal/logger"
	"github.com/ticket-arcade/raffle-indexer/internal/migrations"
	"github.com/ticket-arcade/raffle-indexer/internal/projector"
	"github.com/ticket-arcade/raffle-indexer/internal/store"
)

const testChainID = 5042002

var (
	factoryAddr = common.HexToAddress("0x00000000000000000000000000000000000000F1")
	raffleAddr  = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	buyerAddr   = common.HexToAddress("0x00000000000000000000000000000000000000B1")
)

// fakeEthClient serves canned logs, applying the same address, topic, and
// block-range filtering an RPC node would.
type fakeEthClient struct {
	chainID    uint64
	head       uint64
	logs       []types.Log
	getLogsErr error // returned once, then cleared
}

func (f *fakeEthClient) ChainID(ctx context.Context) (uint64, error) {
	return f.chainID, nil
}

func (f *fakeEthClient) LatestBlock(ctx context.Context) (uint64, error) {
	return f.head, nil
}

func (f *fakeEthClient) GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	if f.getLogsErr != nil {
		err := f.getLogsErr
		f.getLogsErr = nil
		return nil, err
	}

	addresses := make(map[common.Address]struct{}, len(query.Addresses))
	for _, addr := range query.Addresses {
		addresses[addr] = struct{}{}
	}
	topics := make(map[common.Hash]struct{})
	if len(query.Topics) > 0 {
		for _, topic := range query.Topics[0] {
			topics[topic] = struct{}{}
		}
	}

	var matched []types.Log
	for _, lg := range f.logs {
		if lg.BlockNumber < query.FromBlock.Uint64() || lg.BlockNumber > query.ToBlock.Uint64() {
			continue
		}
		if _, ok := addresses[lg.Address]; !ok {
			continue
		}
		if len(topics) > 0 {
			if _, ok := topics[lg.Topics[0]]; !ok {
				continue
			}
		}
		matched = append(matched, lg)
	}
	return matched, nil
}

func loadTestABI(t *testing.T, name string) abi.ABI {
	t.Helper()
	data, err := os.ReadFile("../codec/artifacts/" + name + ".json")
	require.NoError(t, err)

	var artifact struct {
		ABI json.RawMessage `json:"abi"`
	}
	require.NoError(t, json.Unmarshal(data, &artifact))

	parsed, err := abi.JSON(bytes.NewReader(artifact.ABI))
	require.NoError(t, err)
	return parsed
}

func encodeLog(
	t *testing.T,
	contractABI abi.ABI,
	name string,
	emitter common.Address,
	blockNumber uint64,
	txByte byte,
	logIndex uint,
	indexed []interface{},
	data ...interface{},
) types.Log {
	t.Helper()

	event, ok := contractABI.Events[name]
	require.True(t, ok)

	eventTopics := []common.Hash{event.ID}
	if len(indexed) > 0 {
		query := make([][]interface{}, len(indexed))
		for i, v := range indexed {
			query[i] = []interface{}{v}
		}
		topicSets, err := abi.MakeTopics(query...)
		require.NoError(t, err)
		for _, ts := range topicSets {
			eventTopics = append(eventTopics, ts[0])
		}
	}

	packed, err := event.Inputs.NonIndexed().Pack(data...)
	require.NoError(t, err)

	return types.Log{
		Address:     emitter,
		Topics:      eventTopics,
		Data:        packed,
		BlockNumber: blockNumber,
		TxHash:      common.BytesToHash([]byte{txByte}),
		Index:       logIndex,
	}
}

type fixture struct {
	database *sql.DB
	store    *store.Store
	registry *codec.Registry
	client   *fakeEthClient
	indexer  *Indexer
}

func setup(t *testing.T, client *fakeEthClient) *fixture {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "indexer_test_*.db")
	require.NoError(t, err)
	tmpFile.Close()

	database, err := db.NewSQLiteDB(tmpFile.Name())
	require.NoError(t, err)
	require.NoError(t, migrations.RunMigrationsDB(logger.NewNopLogger(), database))

	t.Cleanup(func() {
		database.Close()
		os.Remove(tmpFile.Name())
	})

	registry, err := codec.NewRegistry("../codec/artifacts")
	require.NoError(t, err)

	st := store.New(database)
	idx, err := New(
		Config{
			ChainID:        testChainID,
			StartBlock:     99,
			BatchSize:      2000,
			PollInterval:   10 * time.Millisecond,
			FactoryAddress: factoryAddr,
		},
		client,
		registry,
		projector.New(logger.NewNopLogger()),
		st,
		logger.NewNopLogger(),
	)
	require.NoError(t, err)

	return &fixture{database: database, store: st, registry: registry, client: client, indexer: idx}
}

// creationAndPurchase returns a RaffleCreated at block 100 log 2 and a
// TicketsBought from the new raffle at block 100 log 3.
func creationAndPurchase(t *testing.T) []types.Log {
	factoryABI := loadTestABI(t, "RaffleFactory")
	raffleABI := loadTestABI(t, "Raffle")

	created := encodeLog(t, factoryABI, "RaffleCreated", factoryAddr, 100, 0x01, 2,
		[]interface{}{big.NewInt(1), raffleAddr, buyerAddr},
		big.NewInt(1_700_000_000), big.NewInt(1_000_000), big.NewInt(10), big.NewInt(200), buyerAddr,
	)
	bought := encodeLog(t, raffleABI, "TicketsBought", raffleAddr, 100, 0x02, 3,
		[]interface{}{big.NewInt(1), buyerAddr},
		big.NewInt(0), big.NewInt(2), big.NewInt(3), big.NewInt(3_000_000),
	)
	return []types.Log{created, bought}
}

func TestTick_TwoPassDiscovery(t *testing.T) {
	logs := creationAndPurchase(t)
	// Serve the logs in reverse order; the sort on (block_number, log_index)
	// must still apply creation before the purchase.
	client := &fakeEthClient{chainID: testChainID, head: 101, logs: []types.Log{logs[1], logs[0]}}
	f := setup(t, client)

	processed, err := f.indexer.tick(context.Background())
	require.NoError(t, err)
	require.True(t, processed)

	raffle, err := f.store.GetRaffle(1)
	require.NoError(t, err)
	require.Equal(t, int64(3), raffle.TotalTickets)
	require.Equal(t, "3000000", raffle.Pot)

	purchases, err := f.store.ListPurchases(1, 10, 0)
	require.NoError(t, err)
	require.Len(t, purchases, 1)

	last, err := f.store.LastProcessedBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(101), last)
}

func TestTick_NothingToProcess(t *testing.T) {
	client := &fakeEthClient{chainID: testChainID, head: 50}
	f := setup(t, client)

	// Head below start block: the tick is a no-op and the checkpoint stays.
	processed, err := f.indexer.tick(context.Background())
	require.NoError(t, err)
	require.False(t, processed)

	last, err := f.store.LastProcessedBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(0), last)
}

func TestTick_ReapplyIsIdempotent(t *testing.T) {
	client := &fakeEthClient{chainID: testChainID, head: 101, logs: creationAndPurchase(t)}
	f := setup(t, client)

	processed, err := f.indexer.tick(context.Background())
	require.NoError(t, err)
	require.True(t, processed)

	// Force a replay of the same range, as a restart after losing the
	// checkpoint (but not the projection) would.
	_, err = f.database.Exec(`UPDATE indexer_state SET last_processed_block = 0 WHERE id = 1`)
	require.NoError(t, err)

	processed, err = f.indexer.tick(context.Background())
	require.NoError(t, err)
	require.True(t, processed)

	purchases, err := f.store.ListPurchases(1, 10, 0)
	require.NoError(t, err)
	require.Len(t, purchases, 1)

	raffle, err := f.store.GetRaffle(1)
	require.NoError(t, err)
	require.Equal(t, int64(3), raffle.TotalTickets)
	require.Equal(t, "3000000", raffle.Pot)
}

func TestTick_MalformedPayloadRollsBackBatch(t *testing.T) {
	logs := creationAndPurchase(t)
	truncated := logs[1]
	truncated.Data = truncated.Data[:16]
	client := &fakeEthClient{chainID: testChainID, head: 101, logs: []types.Log{logs[0], truncated}}
	f := setup(t, client)

	_, err := f.indexer.tick(context.Background())
	require.Error(t, err)

	// Nothing of the batch is visible and the checkpoint did not move.
	last, err := f.store.LastProcessedBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(0), last)

	var raffleCount int
	require.NoError(t, f.database.QueryRow(`SELECT COUNT(*) FROM raffles`).Scan(&raffleCount))
	require.Equal(t, 0, raffleCount)

	// After the node serves a well-formed log, the same range converges to
	// the uninterrupted result.
	f.client.logs = logs
	processed, err := f.indexer.tick(context.Background())
	require.NoError(t, err)
	require.True(t, processed)

	raffle, err := f.store.GetRaffle(1)
	require.NoError(t, err)
	require.Equal(t, int64(3), raffle.TotalTickets)

	last, err = f.store.LastProcessedBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(101), last)
}

func TestTick_TransientRPCFailureLeavesCheckpoint(t *testing.T) {
	client := &fakeEthClient{
		chainID:    testChainID,
		head:       101,
		logs:       creationAndPurchase(t),
		getLogsErr: errors.New("i/o timeout"),
	}
	f := setup(t, client)

	_, err := f.indexer.tick(context.Background())
	require.Error(t, err)

	last, err := f.store.LastProcessedBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(0), last)

	// Next tick retries the same range.
	processed, err := f.indexer.tick(context.Background())
	require.NoError(t, err)
	require.True(t, processed)

	last, err = f.store.LastProcessedBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(101), last)
}

func TestRestartRebuildsDiscoverySet(t *testing.T) {
	client := &fakeEthClient{chainID: testChainID, head: 101, logs: creationAndPurchase(t)}
	f := setup(t, client)

	processed, err := f.indexer.tick(context.Background())
	require.NoError(t, err)
	require.True(t, processed)

	// A fresh Indexer over the same database must know the raffle address
	// without re-reading factory events.
	restarted, err := New(
		Config{
			ChainID:        testChainID,
			StartBlock:     99,
			BatchSize:      2000,
			PollInterval:   10 * time.Millisecond,
			FactoryAddress: factoryAddr,
		},
		client,
		f.registry,
		projector.New(logger.NewNopLogger()),
		f.store,
		logger.NewNopLogger(),
	)
	require.NoError(t, err)
	require.Contains(t, restarted.raffles, raffleAddr)

	raffleABI := loadTestABI(t, "Raffle")
	client.logs = append(client.logs,
		encodeLog(t, raffleABI, "TicketsBought", raffleAddr, 102, 0x03, 0,
			[]interface{}{big.NewInt(1), buyerAddr},
			big.NewInt(3), big.NewInt(4), big.NewInt(2), big.NewInt(2_000_000)),
	)
	client.head = 103

	processed, err = restarted.tick(context.Background())
	require.NoError(t, err)
	require.True(t, processed)

	raffle, err := f.store.GetRaffle(1)
	require.NoError(t, err)
	require.Equal(t, int64(5), raffle.TotalTickets)
	require.Equal(t, "5000000", raffle.Pot)
}

func TestRun_ChainIDMismatchIsFatal(t *testing.T) {
	client := &fakeEthClient{chainID: testChainID + 1}
	f := setup(t, client)

	err := f.indexer.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "chain id")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	client := &fakeEthClient{chainID: testChainID, head: 0}
	f := setup(t, client)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, f.indexer.Run(ctx))
}

func TestUnknownTopicIsPersistedAndSkipped(t *testing.T) {
	logs := creationAndPurchase(t)
	unknown := types.Log{
		Address:     factoryAddr,
		Topics:      []common.Hash{common.HexToHash("0x1234")},
		Data:        []byte{0x01},
		BlockNumber: 100,
		TxHash:      common.BytesToHash([]byte{0x09}),
		Index:       9,
	}
	client := &fakeEthClient{chainID: testChainID, head: 101, logs: append(logs, unknown)}
	f := setup(t, client)

	// The fake filters by topic0 like a real node, so feed the unknown log
	// through applyLog directly.
	tx, err := f.database.Begin()
	require.NoError(t, err)
	require.NoError(t, f.indexer.applyLog(tx, unknown))
	require.NoError(t, tx.Commit())

	var rawCount int
	require.NoError(t, f.database.QueryRow(`SELECT COUNT(*) FROM events_raw`).Scan(&rawCount))
	require.Equal(t, 1, rawCount)
}
