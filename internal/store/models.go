package store

import (
	"github.com/ethereum/go-ethereum/common"
)

// Raffle status values. Transitions only move forward along
// ACTIVE -> CLOSED -> RANDOM_REQUESTED -> RANDOM_FULFILLED -> FINALIZED,
// with REFUNDING reachable from any status except FINALIZED and terminal.
const (
	StatusActive          = "ACTIVE"
	StatusClosed          = "CLOSED"
	StatusRandomRequested = "RANDOM_REQUESTED"
	StatusRandomFulfilled = "RANDOM_FULFILLED"
	StatusFinalized       = "FINALIZED"
	StatusRefunding       = "REFUNDING"
)

// ValidStatus reports whether s is one of the known raffle statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusClosed, StatusRandomRequested,
		StatusRandomFulfilled, StatusFinalized, StatusRefunding:
		return true
	}
	return false
}

// IndexerState is the singleton checkpoint row.
type IndexerState struct {
	ID                 int64  `meddler:"id,pk"`
	LastProcessedBlock uint64 `meddler:"last_processed_block"`
	UpdatedAt          string `meddler:"updated_at"`
}

// Raffle is the derived row for one on-chain raffle. Token amounts are
// stored as decimal strings to preserve 256-bit precision.
type Raffle struct {
	RaffleID      int64          `meddler:"raffle_id,pk"`
	RaffleAddress common.Address `meddler:"raffle_address,address"`
	Creator       common.Address `meddler:"creator,address"`
	EndTime       *int64         `meddler:"end_time"` // unix seconds
	TicketPrice   string         `meddler:"ticket_price"`
	MaxTickets    int64          `meddler:"max_tickets"`
	FeeBps        int64          `meddler:"fee_bps"`
	FeeRecipient  common.Address `meddler:"fee_recipient,address"`
	Status        string         `meddler:"status"`
	TotalTickets  int64          `meddler:"total_tickets"`
	Pot           string         `meddler:"pot"`

	RequestID    *string         `meddler:"request_id"`
	RequestTx    *common.Hash    `meddler:"request_tx,hash"`
	Randomness   *string         `meddler:"randomness"`
	RandomnessTx *common.Hash    `meddler:"randomness_tx,hash"`
	WinningIndex *int64          `meddler:"winning_index"`
	Winner       *common.Address `meddler:"winner,address"`
	FinalizedTx  *common.Hash    `meddler:"finalized_tx,hash"`

	ProviderRequestID *string      `meddler:"provider_request_id"`
	ProviderRequestTx *common.Hash `meddler:"provider_request_tx,hash"`
	ProviderFulfillTx *common.Hash `meddler:"provider_fulfill_tx,hash"`
	ProofData         *string      `meddler:"proof_data"`

	CreatedAt string `meddler:"created_at"`
	UpdatedAt string `meddler:"updated_at"`
}

// Purchase is one TicketsBought event. StartIndex and EndIndex are inclusive.
type Purchase struct {
	ID          int64          `meddler:"id,pk"`
	RaffleID    int64          `meddler:"raffle_id"`
	Buyer       common.Address `meddler:"buyer,address"`
	StartIndex  int64          `meddler:"start_index"`
	EndIndex    int64          `meddler:"end_index"`
	Count       int64          `meddler:"count"`
	Amount      string         `meddler:"amount"`
	TxHash      common.Hash    `meddler:"tx_hash,hash"`
	LogIndex    uint           `meddler:"log_index"`
	BlockNumber uint64         `meddler:"block_number"`
	CreatedAt   string         `meddler:"created_at"`
}

// Refund is one RefundClaimed event.
type Refund struct {
	ID          int64          `meddler:"id,pk"`
	RaffleID    int64          `meddler:"raffle_id"`
	Buyer       common.Address `meddler:"buyer,address"`
	TicketCount int64          `meddler:"ticket_count"`
	Amount      string         `meddler:"amount"`
	TxHash      common.Hash    `meddler:"tx_hash,hash"`
	LogIndex    uint           `meddler:"log_index"`
	BlockNumber uint64         `meddler:"block_number"`
	CreatedAt   string         `meddler:"created_at"`
}

// RandomnessRequest is one RandomnessRequested event emitted by the provider
// contract. RequestID is a decimal string: provider request ids may exceed
// 64 bits.
type RandomnessRequest struct {
	ID              int64           `meddler:"id,pk"`
	RequestID       string          `meddler:"request_id"`
	RaffleID        *int64          `meddler:"raffle_id"`
	RaffleAddress   *common.Address `meddler:"raffle_address,address"`
	ProviderAddress common.Address  `meddler:"provider_address,address"`
	TxHash          common.Hash     `meddler:"tx_hash,hash"`
	LogIndex        uint            `meddler:"log_index"`
	BlockNumber     uint64          `meddler:"block_number"`
	CreatedAt       string          `meddler:"created_at"`
}

// RandomnessFulfillment is one RandomnessDelivered event from the provider.
type RandomnessFulfillment struct {
	ID              int64           `meddler:"id,pk"`
	RequestID       string          `meddler:"request_id"`
	Randomness      string          `meddler:"randomness"`
	Proof           *string         `meddler:"proof"`
	RaffleAddress   *common.Address `meddler:"raffle_address,address"`
	ProviderAddress common.Address  `meddler:"provider_address,address"`
	TxHash          common.Hash     `meddler:"tx_hash,hash"`
	LogIndex        uint            `meddler:"log_index"`
	BlockNumber     uint64          `meddler:"block_number"`
	CreatedAt       string          `meddler:"created_at"`
}

// RawEvent is one observed log, stored before decoding for debugging and
// reprocessing.
type RawEvent struct {
	ID          int64          `meddler:"id,pk"`
	TxHash      common.Hash    `meddler:"tx_hash,hash"`
	LogIndex    uint           `meddler:"log_index"`
	BlockNumber uint64         `meddler:"block_number"`
	Address     common.Address `meddler:"address,address"`
	Topic0      common.Hash    `meddler:"topic0,hash"`
	Data        string         `meddler:"data"`
	CreatedAt   string         `meddler:"created_at"`
}
