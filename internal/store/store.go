package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"

	_ "github.com/ticket-arcade/raffle-indexer/internal/db" // meddler converters
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the projection database with typed queries. All rows are owned
// by the projector; the read API and these helpers treat them as read-only.
type Store struct {
	db *sql.DB
}

// New creates a Store over an open database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for transaction management.
func (s *Store) DB() *sql.DB {
	return s.db
}

// LastProcessedBlock returns the durable checkpoint, 0 if never advanced.
func (s *Store) LastProcessedBlock() (uint64, error) {
	var state IndexerState
	if err := meddler.QueryRow(s.db, &state, `SELECT * FROM indexer_state WHERE id = 1`); err != nil {
		return 0, fmt.Errorf("failed to read indexer state: %w", err)
	}
	return state.LastProcessedBlock, nil
}

// AdvanceCheckpoint moves the checkpoint forward inside the transaction that
// applies the corresponding batch. Committing the transaction makes the
// batch and its checkpoint visible atomically.
func AdvanceCheckpoint(tx *sql.Tx, block uint64) error {
	_, err := tx.Exec(
		`UPDATE indexer_state SET last_processed_block = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1`,
		block,
	)
	if err != nil {
		return fmt.Errorf("failed to advance checkpoint to %d: %w", block, err)
	}
	return nil
}

// LoadRaffleAddresses returns every known raffle address, ordered by raffle
// id. The indexer loop rebuilds its discovery set from this on restart.
func (s *Store) LoadRaffleAddresses() ([]common.Address, error) {
	rows, err := s.db.Query(`SELECT raffle_address FROM raffles ORDER BY raffle_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load raffle addresses: %w", err)
	}
	defer rows.Close()

	var addresses []common.Address
	for rows.Next() {
		var hex string
		if err := rows.Scan(&hex); err != nil {
			return nil, fmt.Errorf("failed to scan raffle address: %w", err)
		}
		addresses = append(addresses, common.HexToAddress(hex))
	}
	return addresses, rows.Err()
}

// GetRaffle returns one raffle by id, or ErrNotFound.
func (s *Store) GetRaffle(raffleID int64) (*Raffle, error) {
	var raffle Raffle
	err := meddler.QueryRow(s.db, &raffle, `SELECT * FROM raffles WHERE raffle_id = ?`, raffleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query raffle %d: %w", raffleID, err)
	}
	return &raffle, nil
}

// ListRaffles returns raffles ordered newest-first, optionally filtered by
// status.
func (s *Store) ListRaffles(status string, limit, offset int64) ([]*Raffle, error) {
	var (
		raffles []*Raffle
		err     error
	)
	if status != "" {
		err = meddler.QueryAll(s.db, &raffles,
			`SELECT * FROM raffles WHERE status = ? ORDER BY raffle_id DESC LIMIT ? OFFSET ?`,
			status, limit, offset)
	} else {
		err = meddler.QueryAll(s.db, &raffles,
			`SELECT * FROM raffles ORDER BY raffle_id DESC LIMIT ? OFFSET ?`,
			limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list raffles: %w", err)
	}
	return raffles, nil
}

// ListPurchases returns the purchases of one raffle in insertion order.
func (s *Store) ListPurchases(raffleID, limit, offset int64) ([]*Purchase, error) {
	var purchases []*Purchase
	err := meddler.QueryAll(s.db, &purchases,
		`SELECT * FROM purchases WHERE raffle_id = ? ORDER BY id ASC LIMIT ? OFFSET ?`,
		raffleID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases for raffle %d: %w", raffleID, err)
	}
	return purchases, nil
}

// FindPurchaseByTicket returns the purchase whose inclusive index range
// contains ticketIndex, or ErrNotFound.
func (s *Store) FindPurchaseByTicket(raffleID, ticketIndex int64) (*Purchase, error) {
	var purchase Purchase
	err := meddler.QueryRow(s.db, &purchase,
		`SELECT * FROM purchases
		 WHERE raffle_id = ? AND start_index <= ? AND end_index >= ?
		 ORDER BY id ASC LIMIT 1`,
		raffleID, ticketIndex, ticketIndex)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find purchase for ticket %d: %w", ticketIndex, err)
	}
	return &purchase, nil
}

// RandomnessFilter narrows randomness request/fulfillment listings.
// Zero values mean "no filter".
type RandomnessFilter struct {
	RequestID     string
	RaffleID      *int64
	RaffleAddress *common.Address
}

// ListRandomnessRequests returns provider randomness requests, newest-first.
func (s *Store) ListRandomnessRequests(filter RandomnessFilter, limit, offset int64) ([]*RandomnessRequest, error) {
	query := `SELECT * FROM randomness_requests WHERE 1 = 1`
	args := make([]interface{}, 0, 5)
	if filter.RequestID != "" {
		query += ` AND request_id = ?`
		args = append(args, filter.RequestID)
	}
	if filter.RaffleID != nil {
		query += ` AND raffle_id = ?`
		args = append(args, *filter.RaffleID)
	}
	if filter.RaffleAddress != nil {
		query += ` AND raffle_address = ?`
		args = append(args, filter.RaffleAddress.Hex())
	}
	query += ` ORDER BY block_number DESC, log_index DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var requests []*RandomnessRequest
	if err := meddler.QueryAll(s.db, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list randomness requests: %w", err)
	}
	return requests, nil
}

// ListRandomnessFulfillments returns provider fulfillments, newest-first.
func (s *Store) ListRandomnessFulfillments(filter RandomnessFilter, limit, offset int64) ([]*RandomnessFulfillment, error) {
	query := `SELECT * FROM randomness_fulfillments WHERE 1 = 1`
	args := make([]interface{}, 0, 4)
	if filter.RequestID != "" {
		query += ` AND request_id = ?`
		args = append(args, filter.RequestID)
	}
	if filter.RaffleAddress != nil {
		query += ` AND raffle_address = ?`
		args = append(args, filter.RaffleAddress.Hex())
	}
	query += ` ORDER BY block_number DESC, log_index DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var fulfillments []*RandomnessFulfillment
	if err := meddler.QueryAll(s.db, &fulfillments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list randomness fulfillments: %w", err)
	}
	return fulfillments, nil
}
