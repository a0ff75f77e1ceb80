package codec

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Kind identifies one of the indexed event types.
type Kind string

const (
	// Factory events
	KindRaffleCreated Kind = "RaffleCreated"

	// Raffle events
	KindTicketsBought        Kind = "TicketsBought"
	KindRaffleClosed         Kind = "RaffleClosed"
	KindRandomnessRequested  Kind = "RandomnessRequested"
	KindRandomnessFulfilled  Kind = "RandomnessFulfilled"
	KindWinnerSelected       Kind = "WinnerSelected"
	KindPayoutsCompleted     Kind = "PayoutsCompleted"
	KindRefundClaimed        Kind = "RefundClaimed"
	KindRefundsStarted       Kind = "RefundsStarted"
	KindKeeperUpdated        Kind = "KeeperUpdated"

	// Randomness provider events
	KindProviderRandomnessRequested Kind = "Provider.RandomnessRequested"
	KindProviderRandomnessDelivered Kind = "Provider.RandomnessDelivered"
)

// Event is the closed set of decoded contract events. The projector matches
// exhaustively on the concrete types below.
type Event interface {
	Kind() Kind
}

// RaffleCreated is emitted by the factory when a new raffle contract is deployed.
type RaffleCreated struct {
	RaffleID     uint64
	Raffle       common.Address
	Creator      common.Address
	EndTime      int64 // unix seconds
	TicketPrice  *big.Int
	MaxTickets   uint32
	FeeBps       uint16
	FeeRecipient common.Address
}

func (RaffleCreated) Kind() Kind { return KindRaffleCreated }

// TicketsBought is emitted by a raffle for each ticket purchase. StartIndex
// and EndIndex are inclusive.
type TicketsBought struct {
	RaffleID   uint64
	Buyer      common.Address
	StartIndex uint32
	EndIndex   uint32
	Count      uint32
	AmountPaid *big.Int
}

func (TicketsBought) Kind() Kind { return KindTicketsBought }

// RaffleClosed is emitted when ticket sales end.
type RaffleClosed struct {
	RaffleID     uint64
	TotalTickets uint32
	Pot          *big.Int
}

func (RaffleClosed) Kind() Kind { return KindRaffleClosed }

// RandomnessRequested is emitted by a raffle when it asks for randomness.
type RandomnessRequested struct {
	RaffleID  uint64
	RequestID *big.Int
}

func (RandomnessRequested) Kind() Kind { return KindRandomnessRequested }

// RandomnessFulfilled is emitted by a raffle when randomness arrives.
type RandomnessFulfilled struct {
	RaffleID   uint64
	RequestID  *big.Int
	Randomness *big.Int
}

func (RandomnessFulfilled) Kind() Kind { return KindRandomnessFulfilled }

// WinnerSelected is emitted once the winning ticket has been determined.
type WinnerSelected struct {
	RaffleID     uint64
	Winner       common.Address
	WinningIndex uint32
	PrizeAmount  *big.Int
	FeeAmount    *big.Int
}

func (WinnerSelected) Kind() Kind { return KindWinnerSelected }

// PayoutsCompleted is emitted after prize and fee transfers settle.
type PayoutsCompleted struct {
	RaffleID uint64
}

func (PayoutsCompleted) Kind() Kind { return KindPayoutsCompleted }

// RefundClaimed is emitted for each buyer reclaiming tickets.
type RefundClaimed struct {
	RaffleID    uint64
	Buyer       common.Address
	TicketCount uint32
	Amount      *big.Int
}

func (RefundClaimed) Kind() Kind { return KindRefundClaimed }

// RefundsStarted is emitted when a raffle enters the refunding path.
type RefundsStarted struct {
	RaffleID  uint64
	Timestamp int64 // unix seconds
}

func (RefundsStarted) Kind() Kind { return KindRefundsStarted }

// KeeperUpdated is emitted when the raffle keeper changes. It is persisted
// raw but not projected.
type KeeperUpdated struct {
	RaffleID uint64
	Keeper   common.Address
}

func (KeeperUpdated) Kind() Kind { return KindKeeperUpdated }

// ProviderRandomnessRequested is emitted by the randomness provider contract.
// RequestID and RaffleID are kept arbitrary-precision: provider request ids
// may exceed 64 bits.
type ProviderRandomnessRequested struct {
	RequestID *big.Int
	RaffleID  *big.Int
	Raffle    common.Address
}

func (ProviderRandomnessRequested) Kind() Kind { return KindProviderRandomnessRequested }

// ProviderRandomnessDelivered is emitted by the randomness provider contract
// when randomness is delivered, optionally with a verification proof.
type ProviderRandomnessDelivered struct {
	RequestID  *big.Int
	Randomness *big.Int
	Proof      []byte
	Raffle     common.Address
}

func (ProviderRandomnessDelivered) Kind() Kind { return KindProviderRandomnessDelivered }
