package store

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/ticket-arcade/raffle-indexer/internal/db"
	"github.com/ticket-arcade/raffle-indexer/internal/logger"
	"github.com/ticket-arcade/raffle-indexer/internal/migrations"
)

func setupTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "store_test_*.db")
	require.NoError(t, err)
	tmpFile.Close()

	database, err := db.NewSQLiteDB(tmpFile.Name())
	require.NoError(t, err)
	require.NoError(t, migrations.RunMigrationsDB(logger.NewNopLogger(), database))

	t.Cleanup(func() {
		database.Close()
		os.Remove(tmpFile.Name())
	})
	return New(database), database
}

func seedRaffle(t *testing.T, database *sql.DB, id int64, status string) common.Address {
	t.Helper()
	addr := common.BigToAddress(common.Big1)
	addr[0] = byte(id)
	_, err := database.Exec(
		`INSERT INTO raffles
		 (raffle_id, raffle_address, creator, ticket_price, max_tickets, fee_bps, fee_recipient, status)
		 VALUES (?, ?, ?, '1000000', 10, 200, ?, ?)`,
		id, addr.Hex(), addr.Hex(), addr.Hex(), status,
	)
	require.NoError(t, err)
	return addr
}

func seedPurchase(t *testing.T, database *sql.DB, raffleID, start, end int64, buyer common.Address, tx byte) {
	t.Helper()
	_, err := database.Exec(
		`INSERT INTO purchases
		 (raffle_id, buyer, start_index, end_index, count, amount, tx_hash, log_index, block_number)
		 VALUES (?, ?, ?, ?, ?, '0', ?, 0, 100)`,
		raffleID, buyer.Hex(), start, end, end-start+1,
		common.BytesToHash([]byte{tx}).Hex(),
	)
	require.NoError(t, err)
}

func TestCheckpoint(t *testing.T) {
	st, database := setupTestStore(t)

	last, err := st.LastProcessedBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(0), last)

	tx, err := database.Begin()
	require.NoError(t, err)
	require.NoError(t, AdvanceCheckpoint(tx, 101))
	require.NoError(t, tx.Commit())

	last, err = st.LastProcessedBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(101), last)

	// A rolled-back advance stays invisible.
	tx, err = database.Begin()
	require.NoError(t, err)
	require.NoError(t, AdvanceCheckpoint(tx, 999))
	require.NoError(t, tx.Rollback())

	last, err = st.LastProcessedBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(101), last)
}

func TestLoadRaffleAddresses(t *testing.T) {
	st, database := setupTestStore(t)

	addr2 := seedRaffle(t, database, 2, StatusActive)
	addr1 := seedRaffle(t, database, 1, StatusClosed)

	addresses, err := st.LoadRaffleAddresses()
	require.NoError(t, err)
	require.Equal(t, []common.Address{addr1, addr2}, addresses)
}

func TestListRaffles(t *testing.T) {
	st, database := setupTestStore(t)

	seedRaffle(t, database, 1, StatusActive)
	seedRaffle(t, database, 2, StatusFinalized)
	seedRaffle(t, database, 3, StatusActive)

	all, err := st.ListRaffles("", 50, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first.
	require.Equal(t, int64(3), all[0].RaffleID)

	active, err := st.ListRaffles(StatusActive, 50, 0)
	require.NoError(t, err)
	require.Len(t, active, 2)

	paged, err := st.ListRaffles("", 1, 1)
	require.NoError(t, err)
	require.Len(t, paged, 1)
	require.Equal(t, int64(2), paged[0].RaffleID)
}

func TestGetRaffle_NotFound(t *testing.T) {
	st, _ := setupTestStore(t)

	_, err := st.GetRaffle(42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFindPurchaseByTicket(t *testing.T) {
	st, database := setupTestStore(t)

	seedRaffle(t, database, 1, StatusClosed)
	alice := common.HexToAddress("0x00000000000000000000000000000000000000AA")
	bob := common.HexToAddress("0x00000000000000000000000000000000000000BB")
	seedPurchase(t, database, 1, 0, 2, alice, 0x01)
	seedPurchase(t, database, 1, 3, 4, bob, 0x02)

	for ticket, want := range map[int64]common.Address{0: alice, 2: alice, 3: bob, 4: bob} {
		purchase, err := st.FindPurchaseByTicket(1, ticket)
		require.NoError(t, err)
		require.Equal(t, want, purchase.Buyer, "ticket %d", ticket)
	}

	_, err := st.FindPurchaseByTicket(1, 5)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListRandomnessRequests_Filters(t *testing.T) {
	st, database := setupTestStore(t)

	providerAddr := common.HexToAddress("0x00000000000000000000000000000000000000D1")
	raffle1 := seedRaffle(t, database, 1, StatusClosed)
	raffle2 := seedRaffle(t, database, 2, StatusClosed)

	for i, raffle := range []common.Address{raffle1, raffle2} {
		_, err := database.Exec(
			`INSERT INTO randomness_requests
			 (request_id, raffle_id, raffle_address, provider_address, tx_hash, log_index, block_number)
			 VALUES (?, ?, ?, ?, ?, 0, ?)`,
			fmt.Sprintf("%d", 100+i), i+1, raffle.Hex(), providerAddr.Hex(),
			common.BytesToHash([]byte{byte(0x10 + i)}).Hex(), 200+i,
		)
		require.NoError(t, err)
	}

	all, err := st.ListRandomnessRequests(RandomnessFilter{}, 50, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	byRequest, err := st.ListRandomnessRequests(RandomnessFilter{RequestID: "101"}, 50, 0)
	require.NoError(t, err)
	require.Len(t, byRequest, 1)
	require.NotNil(t, byRequest[0].RaffleID)
	require.Equal(t, int64(2), *byRequest[0].RaffleID)

	raffleID := int64(1)
	byRaffle, err := st.ListRandomnessRequests(RandomnessFilter{RaffleID: &raffleID}, 50, 0)
	require.NoError(t, err)
	require.Len(t, byRaffle, 1)

	byAddress, err := st.ListRandomnessRequests(RandomnessFilter{RaffleAddress: &raffle2}, 50, 0)
	require.NoError(t, err)
	require.Len(t, byAddress, 1)
	require.Equal(t, "101", byAddress[0].RequestID)
}
