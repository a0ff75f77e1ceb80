package api

// All token amounts are serialized as decimal strings: on-chain values are
// 256-bit and would lose precision as JSON numbers.

// RaffleSummary is the list-endpoint view of a raffle.
type RaffleSummary struct {
	RaffleID      int64   `json:"raffle_id"`
	RaffleAddress string  `json:"raffle_address"`
	Status        string  `json:"status"`
	EndTime       *string `json:"end_time"`
	TicketPrice   string  `json:"ticket_price"`
	TotalTickets  int64   `json:"total_tickets"`
	Pot           string  `json:"pot"`
	Winner        *string `json:"winner"`
}

// RaffleDetails is the single-raffle view.
type RaffleDetails struct {
	RaffleID      int64   `json:"raffle_id"`
	RaffleAddress string  `json:"raffle_address"`
	Creator       string  `json:"creator"`
	EndTime       *string `json:"end_time"`
	TicketPrice   string  `json:"ticket_price"`
	MaxTickets    int64   `json:"max_tickets"`
	FeeBps        int64   `json:"fee_bps"`
	FeeRecipient  string  `json:"fee_recipient"`
	Status        string  `json:"status"`
	TotalTickets  int64   `json:"total_tickets"`
	Pot           string  `json:"pot"`
	RequestID     *string `json:"request_id"`
	RequestTx     *string `json:"request_tx"`
	Randomness    *string `json:"randomness"`
	RandomnessTx  *string `json:"randomness_tx"`
	WinningIndex  *int64  `json:"winning_index"`
	Winner        *string `json:"winner"`
	FinalizedTx   *string `json:"finalized_tx"`
}

// PurchaseRange is one ticket purchase; StartIndex and EndIndex are inclusive.
type PurchaseRange struct {
	Buyer       string `json:"buyer"`
	StartIndex  int64  `json:"start_index"`
	EndIndex    int64  `json:"end_index"`
	Count       int64  `json:"count"`
	Amount      string `json:"amount"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint   `json:"log_index"`
	BlockNumber uint64 `json:"block_number"`
	CreatedAt   string `json:"created_at"`
}

// WinningRange identifies the purchase containing the winning ticket.
type WinningRange struct {
	Buyer      string `json:"buyer"`
	StartIndex int64  `json:"start_index"`
	EndIndex   int64  `json:"end_index"`
}

// TxLinks pairs transaction hashes with block-explorer URLs.
type TxLinks struct {
	RequestTx     *string `json:"request_tx"`
	RequestURL    *string `json:"request_url"`
	RandomnessTx  *string `json:"randomness_tx"`
	RandomnessURL *string `json:"randomness_url"`
	FinalizedTx   *string `json:"finalized_tx"`
	FinalizedURL  *string `json:"finalized_url"`
}

// ProofResponse lets clients verify winner selection:
// winning_index = randomness mod total_tickets.
type ProofResponse struct {
	RaffleID     int64         `json:"raffle_id"`
	RequestID    *string       `json:"request_id"`
	Randomness   *string       `json:"randomness"`
	TotalTickets int64         `json:"total_tickets"`
	WinningIndex *int64        `json:"winning_index"`
	Winner       *string       `json:"winner"`
	WinningRange *WinningRange `json:"winning_range"`
	Txs          TxLinks       `json:"txs"`
}

// RandomnessRequestView is one provider randomness request.
type RandomnessRequestView struct {
	RequestID       string  `json:"request_id"`
	RaffleID        *int64  `json:"raffle_id"`
	RaffleAddress   *string `json:"raffle_address"`
	ProviderAddress string  `json:"provider_address"`
	TxHash          string  `json:"tx_hash"`
	LogIndex        uint    `json:"log_index"`
	BlockNumber     uint64  `json:"block_number"`
	CreatedAt       string  `json:"created_at"`
}

// RandomnessFulfillmentView is one provider randomness delivery.
type RandomnessFulfillmentView struct {
	RequestID       string  `json:"request_id"`
	Randomness      string  `json:"randomness"`
	Proof           *string `json:"proof"`
	RaffleAddress   *string `json:"raffle_address"`
	ProviderAddress string  `json:"provider_address"`
	TxHash          string  `json:"tx_hash"`
	LogIndex        uint    `json:"log_index"`
	BlockNumber     uint64  `json:"block_number"`
	CreatedAt       string  `json:"created_at"`
}

// HealthResponse is the health-check body.
type HealthResponse struct {
	Status             string `json:"status"`
	LastProcessedBlock uint64 `json:"last_processed_block"`
}

// ErrorResponse carries a client-safe error message.
type ErrorResponse struct {
	Error string `json:"error"`
}
