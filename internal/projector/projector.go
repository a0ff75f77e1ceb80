// Package projector translates decoded contract events into idempotent
// row-level operations on the projection. All writes happen inside the
// batch transaction owned by the indexer loop; (tx_hash, log_index)
// uniqueness makes re-applying the same log a no-op, and every status
// update is conditional on a valid forward transition so out-of-order or
// duplicate events degrade to counted no-ops instead of errors.
package projector

import (
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ticket-arcade/raffle-indexer/internal/codec"
	"github.com/ticket-arcade/raffle-indexer/internal/logger"
	"github.com/ticket-arcade/raffle-indexer/internal/metrics"
	"github.com/ticket-arcade/raffle-indexer/internal/store"
)

// Locator identifies one log within the chain and names its emitter.
type Locator struct {
	TxHash      common.Hash
	LogIndex    uint
	BlockNumber uint64
	Address     common.Address
}

// Projector applies typed events to the derived tables.
type Projector struct {
	log *logger.Logger
}

// New creates a Projector.
func New(log *logger.Logger) *Projector {
	return &Projector{log: log.WithComponent("projector")}
}

// Apply projects one decoded event inside the given batch transaction.
func (p *Projector) Apply(tx *sql.Tx, event codec.Event, loc Locator) error {
	var err error
	switch ev := event.(type) {
	case codec.RaffleCreated:
		err = p.applyRaffleCreated(tx, ev)
	case codec.TicketsBought:
		err = p.applyTicketsBought(tx, ev, loc)
	case codec.RaffleClosed:
		err = p.applyRaffleClosed(tx, ev)
	case codec.RandomnessRequested:
		err = p.applyRandomnessRequested(tx, ev, loc)
	case codec.RandomnessFulfilled:
		err = p.applyRandomnessFulfilled(tx, ev, loc)
	case codec.WinnerSelected:
		err = p.applyWinnerSelected(tx, ev)
	case codec.PayoutsCompleted:
		err = p.applyPayoutsCompleted(tx, ev, loc)
	case codec.RefundClaimed:
		err = p.applyRefundClaimed(tx, ev, loc)
	case codec.RefundsStarted:
		err = p.applyRefundsStarted(tx, ev)
	case codec.KeeperUpdated:
		// Persisted raw only; no derived state.
	case codec.ProviderRandomnessRequested:
		err = p.applyProviderRequested(tx, ev, loc)
	case codec.ProviderRandomnessDelivered:
		err = p.applyProviderDelivered(tx, ev, loc)
	default:
		return fmt.Errorf("unhandled event type %T", event)
	}

	if err == nil {
		metrics.EventsProjected.WithLabelValues(string(event.Kind())).Inc()
	}
	return err
}

func (p *Projector) applyRaffleCreated(tx *sql.Tx, ev codec.RaffleCreated) error {
	result, err := tx.Exec(
		`INSERT INTO raffles
		 (raffle_id, raffle_address, creator, end_time, ticket_price, max_tickets,
		  fee_bps, fee_recipient, status, total_tickets, pot)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, '0')
		 ON CONFLICT DO NOTHING`,
		int64(ev.RaffleID),
		ev.Raffle.Hex(),
		ev.Creator.Hex(),
		ev.EndTime,
		ev.TicketPrice.String(),
		int64(ev.MaxTickets),
		int64(ev.FeeBps),
		ev.FeeRecipient.Hex(),
		store.StatusActive,
	)
	if err != nil {
		return fmt.Errorf("failed to insert raffle %d: %w", ev.RaffleID, err)
	}

	if inserted, _ := result.RowsAffected(); inserted == 0 {
		metrics.DuplicateEvents.Inc()
		p.log.Debugf("raffle %d already exists, skipping create", ev.RaffleID)
	}
	return nil
}

func (p *Projector) applyTicketsBought(tx *sql.Tx, ev codec.TicketsBought, loc Locator) error {
	pot, ok, err := p.rafflePot(tx, int64(ev.RaffleID))
	if err != nil {
		return err
	}
	if !ok {
		p.skipUnknownRaffle(ev.RaffleID, "TicketsBought")
		return nil
	}

	result, err := tx.Exec(
		`INSERT INTO purchases
		 (raffle_id, buyer, start_index, end_index, count, amount, tx_hash, log_index, block_number)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tx_hash, log_index) DO NOTHING`,
		int64(ev.RaffleID),
		ev.Buyer.Hex(),
		int64(ev.StartIndex),
		int64(ev.EndIndex),
		int64(ev.Count),
		ev.AmountPaid.String(),
		loc.TxHash.Hex(),
		loc.LogIndex,
		loc.BlockNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to insert purchase: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if inserted == 0 {
		metrics.DuplicateEvents.Inc()
		return nil
	}

	// Keep the derived totals in lockstep with the insert.
	newPot := new(big.Int).Add(pot, ev.AmountPaid)
	_, err = tx.Exec(
		`UPDATE raffles
		 SET total_tickets = total_tickets + ?, pot = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE raffle_id = ?`,
		int64(ev.Count), newPot.String(), int64(ev.RaffleID),
	)
	if err != nil {
		return fmt.Errorf("failed to update raffle totals: %w", err)
	}
	return nil
}

func (p *Projector) applyRaffleClosed(tx *sql.Tx, ev codec.RaffleClosed) error {
	// The chain's totals are authoritative at close time.
	result, err := tx.Exec(
		`UPDATE raffles
		 SET status = ?, total_tickets = ?, pot = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE raffle_id = ? AND status = ?`,
		store.StatusClosed,
		int64(ev.TotalTickets),
		ev.Pot.String(),
		int64(ev.RaffleID),
		store.StatusActive,
	)
	if err != nil {
		return fmt.Errorf("failed to close raffle %d: %w", ev.RaffleID, err)
	}
	p.countStale(result, ev.RaffleID, "RaffleClosed")
	return nil
}

func (p *Projector) applyRandomnessRequested(tx *sql.Tx, ev codec.RandomnessRequested, loc Locator) error {
	result, err := tx.Exec(
		`UPDATE raffles
		 SET status = ?, request_id = ?, request_tx = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE raffle_id = ? AND status = ?`,
		store.StatusRandomRequested,
		ev.RequestID.String(),
		loc.TxHash.Hex(),
		int64(ev.RaffleID),
		store.StatusClosed,
	)
	if err != nil {
		return fmt.Errorf("failed to mark raffle %d random-requested: %w", ev.RaffleID, err)
	}
	p.countStale(result, ev.RaffleID, "RandomnessRequested")
	return nil
}

func (p *Projector) applyRandomnessFulfilled(tx *sql.Tx, ev codec.RandomnessFulfilled, loc Locator) error {
	var (
		status       string
		totalTickets int64
	)
	err := tx.QueryRow(
		`SELECT status, total_tickets FROM raffles WHERE raffle_id = ?`, int64(ev.RaffleID),
	).Scan(&status, &totalTickets)
	if errors.Is(err, sql.ErrNoRows) {
		p.skipUnknownRaffle(ev.RaffleID, "RandomnessFulfilled")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read raffle %d: %w", ev.RaffleID, err)
	}
	if status != store.StatusRandomRequested {
		metrics.StaleTransitions.Inc()
		p.log.Debugf("raffle %d in %s, ignoring RandomnessFulfilled", ev.RaffleID, status)
		return nil
	}

	// winning_index = randomness mod total_tickets, kept if already set.
	var winningIndex interface{}
	if totalTickets > 0 {
		idx := new(big.Int).Mod(ev.Randomness, big.NewInt(totalTickets))
		winningIndex = idx.Int64()
	}

	_, err = tx.Exec(
		`UPDATE raffles
		 SET status = ?, randomness = ?, randomness_tx = ?,
		     winning_index = COALESCE(winning_index, ?), updated_at = CURRENT_TIMESTAMP
		 WHERE raffle_id = ?`,
		store.StatusRandomFulfilled,
		ev.Randomness.String(),
		loc.TxHash.Hex(),
		winningIndex,
		int64(ev.RaffleID),
	)
	if err != nil {
		return fmt.Errorf("failed to mark raffle %d random-fulfilled: %w", ev.RaffleID, err)
	}
	return nil
}

func (p *Projector) applyWinnerSelected(tx *sql.Tx, ev codec.WinnerSelected) error {
	result, err := tx.Exec(
		`UPDATE raffles
		 SET winner = ?, winning_index = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE raffle_id = ? AND status != ?`,
		ev.Winner.Hex(),
		int64(ev.WinningIndex),
		int64(ev.RaffleID),
		store.StatusRefunding,
	)
	if err != nil {
		return fmt.Errorf("failed to record winner for raffle %d: %w", ev.RaffleID, err)
	}
	p.countStale(result, ev.RaffleID, "WinnerSelected")
	return nil
}

func (p *Projector) applyPayoutsCompleted(tx *sql.Tx, ev codec.PayoutsCompleted, loc Locator) error {
	// A REFUNDING raffle must never show FINALIZED.
	result, err := tx.Exec(
		`UPDATE raffles
		 SET status = ?, finalized_tx = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE raffle_id = ? AND status NOT IN (?, ?)`,
		store.StatusFinalized,
		loc.TxHash.Hex(),
		int64(ev.RaffleID),
		store.StatusRefunding,
		store.StatusFinalized,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize raffle %d: %w", ev.RaffleID, err)
	}
	p.countStale(result, ev.RaffleID, "PayoutsCompleted")
	return nil
}

func (p *Projector) applyRefundClaimed(tx *sql.Tx, ev codec.RefundClaimed, loc Locator) error {
	pot, ok, err := p.rafflePot(tx, int64(ev.RaffleID))
	if err != nil {
		return err
	}
	if !ok {
		p.skipUnknownRaffle(ev.RaffleID, "RefundClaimed")
		return nil
	}

	result, err := tx.Exec(
		`INSERT INTO refunds
		 (raffle_id, buyer, ticket_count, amount, tx_hash, log_index, block_number)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tx_hash, log_index) DO NOTHING`,
		int64(ev.RaffleID),
		ev.Buyer.Hex(),
		int64(ev.TicketCount),
		ev.Amount.String(),
		loc.TxHash.Hex(),
		loc.LogIndex,
		loc.BlockNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to insert refund: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if inserted == 0 {
		metrics.DuplicateEvents.Inc()
		return nil
	}

	newPot := new(big.Int).Sub(pot, ev.Amount)
	_, err = tx.Exec(
		`UPDATE raffles
		 SET total_tickets = total_tickets - ?, pot = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE raffle_id = ?`,
		int64(ev.TicketCount), newPot.String(), int64(ev.RaffleID),
	)
	if err != nil {
		return fmt.Errorf("failed to update raffle totals after refund: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE raffles SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE raffle_id = ? AND status NOT IN (?, ?)`,
		store.StatusRefunding,
		int64(ev.RaffleID),
		store.StatusFinalized,
		store.StatusRefunding,
	)
	if err != nil {
		return fmt.Errorf("failed to mark raffle %d refunding: %w", ev.RaffleID, err)
	}
	return nil
}

func (p *Projector) applyRefundsStarted(tx *sql.Tx, ev codec.RefundsStarted) error {
	result, err := tx.Exec(
		`UPDATE raffles SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE raffle_id = ? AND status NOT IN (?, ?)`,
		store.StatusRefunding,
		int64(ev.RaffleID),
		store.StatusFinalized,
		store.StatusRefunding,
	)
	if err != nil {
		return fmt.Errorf("failed to mark raffle %d refunding: %w", ev.RaffleID, err)
	}
	p.countStale(result, ev.RaffleID, "RefundsStarted")
	return nil
}

func (p *Projector) applyProviderRequested(tx *sql.Tx, ev codec.ProviderRandomnessRequested, loc Locator) error {
	// Provider raffle ids may exceed 64 bits; store NULL in that case.
	var raffleID interface{}
	if ev.RaffleID.IsInt64() {
		raffleID = ev.RaffleID.Int64()
	}

	result, err := tx.Exec(
		`INSERT INTO randomness_requests
		 (request_id, raffle_id, raffle_address, provider_address, tx_hash, log_index, block_number)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tx_hash, log_index) DO NOTHING`,
		ev.RequestID.String(),
		raffleID,
		ev.Raffle.Hex(),
		loc.Address.Hex(),
		loc.TxHash.Hex(),
		loc.LogIndex,
		loc.BlockNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to insert randomness request: %w", err)
	}
	if inserted, _ := result.RowsAffected(); inserted == 0 {
		metrics.DuplicateEvents.Inc()
		return nil
	}

	// Link the raffle, preferring raffle_id over address matching.
	if raffleID != nil {
		result, err = tx.Exec(
			`UPDATE raffles
			 SET provider_request_id = ?, provider_request_tx = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE raffle_id = ?`,
			ev.RequestID.String(), loc.TxHash.Hex(), raffleID,
		)
		if err != nil {
			return fmt.Errorf("failed to link provider request to raffle: %w", err)
		}
		if linked, _ := result.RowsAffected(); linked > 0 {
			return nil
		}
	}

	_, err = tx.Exec(
		`UPDATE raffles
		 SET provider_request_id = ?, provider_request_tx = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE raffle_address = ?`,
		ev.RequestID.String(), loc.TxHash.Hex(), ev.Raffle.Hex(),
	)
	if err != nil {
		return fmt.Errorf("failed to link provider request to raffle: %w", err)
	}
	return nil
}

func (p *Projector) applyProviderDelivered(tx *sql.Tx, ev codec.ProviderRandomnessDelivered, loc Locator) error {
	var proof interface{}
	if len(ev.Proof) > 0 {
		proof = "0x" + common.Bytes2Hex(ev.Proof)
	}

	result, err := tx.Exec(
		`INSERT INTO randomness_fulfillments
		 (request_id, randomness, proof, raffle_address, provider_address, tx_hash, log_index, block_number)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tx_hash, log_index) DO NOTHING`,
		ev.RequestID.String(),
		ev.Randomness.String(),
		proof,
		ev.Raffle.Hex(),
		loc.Address.Hex(),
		loc.TxHash.Hex(),
		loc.LogIndex,
		loc.BlockNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to insert randomness fulfillment: %w", err)
	}
	if inserted, _ := result.RowsAffected(); inserted == 0 {
		metrics.DuplicateEvents.Inc()
		return nil
	}

	_, err = tx.Exec(
		`UPDATE raffles
		 SET provider_fulfill_tx = ?, proof_data = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE raffle_address = ?`,
		loc.TxHash.Hex(), proof, ev.Raffle.Hex(),
	)
	if err != nil {
		return fmt.Errorf("failed to link provider fulfillment to raffle: %w", err)
	}
	return nil
}

// rafflePot reads the current pot of a raffle inside the batch transaction.
// ok is false when the raffle was never discovered.
func (p *Projector) rafflePot(tx *sql.Tx, raffleID int64) (*big.Int, bool, error) {
	var potStr string
	err := tx.QueryRow(`SELECT pot FROM raffles WHERE raffle_id = ?`, raffleID).Scan(&potStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read raffle %d pot: %w", raffleID, err)
	}

	pot, ok := new(big.Int).SetString(potStr, 10)
	if !ok {
		return nil, false, fmt.Errorf("raffle %d has malformed pot %q", raffleID, potStr)
	}
	return pot, true, nil
}

func (p *Projector) countStale(result sql.Result, raffleID uint64, event string) {
	if updated, _ := result.RowsAffected(); updated == 0 {
		metrics.StaleTransitions.Inc()
		p.log.Debugf("%s for raffle %d did not apply (missing row or stale transition)", event, raffleID)
	}
}

func (p *Projector) skipUnknownRaffle(raffleID uint64, event string) {
	metrics.UnknownRaffles.Inc()
	p.log.Warnf("%s for unknown raffle %d, skipping", event, raffleID)
}
