package codec

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

//go:embed artifacts/*.json
var embeddedArtifacts embed.FS

// Artifact names, matching the Hardhat output of the contracts workspace.
const (
	factoryArtifact  = "RaffleFactory"
	raffleArtifact   = "Raffle"
	providerArtifact = "DrandRandomnessProvider"
)

// ErrUnknownEvent is returned by Decode for a topic0 that is not part of the
// indexed event set. Callers log it at warn level and keep the raw log.
var ErrUnknownEvent = errors.New("unknown event signature")

type eventDef struct {
	kind  Kind
	event abi.Event
}

// Registry maps event signatures (topic0) to decoders for the closed event
// set. It is built once at startup from the contract ABI artifacts.
type Registry struct {
	defs map[common.Hash]eventDef

	factoryTopics  []common.Hash
	raffleTopics   []common.Hash
	providerTopics []common.Hash

	providerEnabled bool
}

// NewRegistry loads the contract ABIs and builds the signature map.
// When abiDir is empty the artifacts embedded in the binary are used;
// otherwise abiDir must point at a Hardhat artifact directory. A missing
// provider artifact disables the two provider events without failing.
func NewRegistry(abiDir string) (*Registry, error) {
	factoryABI, err := loadArtifact(abiDir, factoryArtifact)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s ABI: %w", factoryArtifact, err)
	}
	raffleABI, err := loadArtifact(abiDir, raffleArtifact)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s ABI: %w", raffleArtifact, err)
	}

	r := &Registry{defs: make(map[common.Hash]eventDef)}

	if err := r.register(factoryABI, KindRaffleCreated, "RaffleCreated", &r.factoryTopics); err != nil {
		return nil, err
	}

	raffleEvents := []struct {
		kind Kind
		name string
	}{
		{KindTicketsBought, "TicketsBought"},
		{KindRaffleClosed, "RaffleClosed"},
		{KindRandomnessRequested, "RandomnessRequested"},
		{KindRandomnessFulfilled, "RandomnessFulfilled"},
		{KindWinnerSelected, "WinnerSelected"},
		{KindPayoutsCompleted, "PayoutsCompleted"},
		{KindRefundClaimed, "RefundClaimed"},
		{KindRefundsStarted, "RefundsStarted"},
		{KindKeeperUpdated, "KeeperUpdated"},
	}
	for _, e := range raffleEvents {
		if err := r.register(raffleABI, e.kind, e.name, &r.raffleTopics); err != nil {
			return nil, err
		}
	}

	providerABI, err := loadArtifact(abiDir, providerArtifact)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Provider contract not deployed yet; its events stay disabled.
	case err != nil:
		return nil, fmt.Errorf("failed to load %s ABI: %w", providerArtifact, err)
	default:
		if err := r.register(providerABI, KindProviderRandomnessRequested, "RandomnessRequested", &r.providerTopics); err != nil {
			return nil, err
		}
		if err := r.register(providerABI, KindProviderRandomnessDelivered, "RandomnessDelivered", &r.providerTopics); err != nil {
			return nil, err
		}
		r.providerEnabled = true
	}

	return r, nil
}

func (r *Registry) register(contractABI abi.ABI, kind Kind, name string, topics *[]common.Hash) error {
	event, ok := contractABI.Events[name]
	if !ok {
		return fmt.Errorf("event %s missing from ABI", name)
	}
	r.defs[event.ID] = eventDef{kind: kind, event: event}
	*topics = append(*topics, event.ID)
	return nil
}

// ProviderEnabled reports whether the provider artifact was found and its
// events can be decoded.
func (r *Registry) ProviderEnabled() bool { return r.providerEnabled }

// FactoryTopics returns the topic0 filter for the factory contract.
func (r *Registry) FactoryTopics() []common.Hash { return r.factoryTopics }

// RaffleTopics returns the topic0 filter for raffle contracts.
func (r *Registry) RaffleTopics() []common.Hash { return r.raffleTopics }

// ProviderTopics returns the topic0 filter for the provider contract.
// Empty when the provider artifact was not loaded.
func (r *Registry) ProviderTopics() []common.Hash { return r.providerTopics }

// Decode decodes a raw log into one of the typed events. It returns
// ErrUnknownEvent for signatures outside the indexed set; any other error is
// a malformed payload for a recognized signature, which callers treat as fatal.
func (r *Registry) Decode(lg types.Log) (Event, error) {
	if len(lg.Topics) == 0 {
		return nil, ErrUnknownEvent
	}

	def, ok := r.defs[lg.Topics[0]]
	if !ok {
		return nil, ErrUnknownEvent
	}

	values := make(map[string]interface{})

	var indexed abi.Arguments
	for _, arg := range def.event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(lg.Topics)-1 != len(indexed) {
		return nil, fmt.Errorf("event %s: expected %d indexed topics, got %d",
			def.event.Name, len(indexed), len(lg.Topics)-1)
	}
	if err := abi.ParseTopicsIntoMap(values, indexed, lg.Topics[1:]); err != nil {
		return nil, fmt.Errorf("event %s: failed to parse topics: %w", def.event.Name, err)
	}
	if err := def.event.Inputs.UnpackIntoMap(values, lg.Data); err != nil {
		return nil, fmt.Errorf("event %s: failed to unpack data: %w", def.event.Name, err)
	}

	return buildEvent(def.kind, values)
}

func buildEvent(kind Kind, values map[string]interface{}) (Event, error) {
	switch kind {
	case KindRaffleCreated:
		raffleID, err := fieldUint64(values, "raffleId")
		if err != nil {
			return nil, err
		}
		raffle, err := fieldAddress(values, "raffle")
		if err != nil {
			return nil, err
		}
		creator, err := fieldAddress(values, "creator")
		if err != nil {
			return nil, err
		}
		endTime, err := fieldInt64(values, "endTime")
		if err != nil {
			return nil, err
		}
		ticketPrice, err := fieldBig(values, "ticketPrice")
		if err != nil {
			return nil, err
		}
		maxTickets, err := fieldUint32(values, "maxTickets")
		if err != nil {
			return nil, err
		}
		feeBps, err := fieldUint16(values, "feeBps")
		if err != nil {
			return nil, err
		}
		feeRecipient, err := fieldAddress(values, "feeRecipient")
		if err != nil {
			return nil, err
		}
		return RaffleCreated{
			RaffleID:     raffleID,
			Raffle:       raffle,
			Creator:      creator,
			EndTime:      endTime,
			TicketPrice:  ticketPrice,
			MaxTickets:   maxTickets,
			FeeBps:       feeBps,
			FeeRecipient: feeRecipient,
		}, nil

	case KindTicketsBought:
		raffleID, err := fieldUint64(values, "raffleId")
		if err != nil {
			return nil, err
		}
		buyer, err := fieldAddress(values, "buyer")
		if err != nil {
			return nil, err
		}
		startIndex, err := fieldUint32(values, "startIndex")
		if err != nil {
			return nil, err
		}
		endIndex, err := fieldUint32(values, "endIndex")
		if err != nil {
			return nil, err
		}
		count, err := fieldUint32(values, "count")
		if err != nil {
			return nil, err
		}
		amountPaid, err := fieldBig(values, "amountPaid")
		if err != nil {
			return nil, err
		}
		return TicketsBought{
			RaffleID:   raffleID,
			Buyer:      buyer,
			StartIndex: startIndex,
			EndIndex:   endIndex,
			Count:      count,
			AmountPaid: amountPaid,
		}, nil

	case KindRaffleClosed:
		raffleID, err := fieldUint64(values, "raffleId")
		if err != nil {
			return nil, err
		}
		totalTickets, err := fieldUint32(values, "totalTickets")
		if err != nil {
			return nil, err
		}
		pot, err := fieldBig(values, "pot")
		if err != nil {
			return nil, err
		}
		return RaffleClosed{RaffleID: raffleID, TotalTickets: totalTickets, Pot: pot}, nil

	case KindRandomnessRequested:
		raffleID, err := fieldUint64(values, "raffleId")
		if err != nil {
			return nil, err
		}
		requestID, err := fieldBig(values, "requestId")
		if err != nil {
			return nil, err
		}
		return RandomnessRequested{RaffleID: raffleID, RequestID: requestID}, nil

	case KindRandomnessFulfilled:
		raffleID, err := fieldUint64(values, "raffleId")
		if err != nil {
			return nil, err
		}
		requestID, err := fieldBig(values, "requestId")
		if err != nil {
			return nil, err
		}
		randomness, err := fieldBig(values, "randomness")
		if err != nil {
			return nil, err
		}
		return RandomnessFulfilled{RaffleID: raffleID, RequestID: requestID, Randomness: randomness}, nil

	case KindWinnerSelected:
		raffleID, err := fieldUint64(values, "raffleId")
		if err != nil {
			return nil, err
		}
		winner, err := fieldAddress(values, "winner")
		if err != nil {
			return nil, err
		}
		winningIndex, err := fieldUint32(values, "winningIndex")
		if err != nil {
			return nil, err
		}
		prizeAmount, err := fieldBig(values, "prizeAmount")
		if err != nil {
			return nil, err
		}
		feeAmount, err := fieldBig(values, "feeAmount")
		if err != nil {
			return nil, err
		}
		return WinnerSelected{
			RaffleID:     raffleID,
			Winner:       winner,
			WinningIndex: winningIndex,
			PrizeAmount:  prizeAmount,
			FeeAmount:    feeAmount,
		}, nil

	case KindPayoutsCompleted:
		raffleID, err := fieldUint64(values, "raffleId")
		if err != nil {
			return nil, err
		}
		return PayoutsCompleted{RaffleID: raffleID}, nil

	case KindRefundClaimed:
		raffleID, err := fieldUint64(values, "raffleId")
		if err != nil {
			return nil, err
		}
		buyer, err := fieldAddress(values, "buyer")
		if err != nil {
			return nil, err
		}
		ticketCount, err := fieldUint32(values, "ticketCount")
		if err != nil {
			return nil, err
		}
		amount, err := fieldBig(values, "amount")
		if err != nil {
			return nil, err
		}
		return RefundClaimed{RaffleID: raffleID, Buyer: buyer, TicketCount: ticketCount, Amount: amount}, nil

	case KindRefundsStarted:
		raffleID, err := fieldUint64(values, "raffleId")
		if err != nil {
			return nil, err
		}
		timestamp, err := fieldInt64(values, "timestamp")
		if err != nil {
			return nil, err
		}
		return RefundsStarted{RaffleID: raffleID, Timestamp: timestamp}, nil

	case KindKeeperUpdated:
		raffleID, err := fieldUint64(values, "raffleId")
		if err != nil {
			return nil, err
		}
		keeper, err := fieldAddress(values, "keeper")
		if err != nil {
			return nil, err
		}
		return KeeperUpdated{RaffleID: raffleID, Keeper: keeper}, nil

	case KindProviderRandomnessRequested:
		requestID, err := fieldBig(values, "requestId")
		if err != nil {
			return nil, err
		}
		raffleID, err := fieldBig(values, "raffleId")
		if err != nil {
			return nil, err
		}
		raffle, err := fieldAddress(values, "raffle")
		if err != nil {
			return nil, err
		}
		return ProviderRandomnessRequested{RequestID: requestID, RaffleID: raffleID, Raffle: raffle}, nil

	case KindProviderRandomnessDelivered:
		requestID, err := fieldBig(values, "requestId")
		if err != nil {
			return nil, err
		}
		randomness, err := fieldBig(values, "randomness")
		if err != nil {
			return nil, err
		}
		proof, err := fieldBytes(values, "proof")
		if err != nil {
			return nil, err
		}
		raffle, err := fieldAddress(values, "raffle")
		if err != nil {
			return nil, err
		}
		return ProviderRandomnessDelivered{
			RequestID:  requestID,
			Randomness: randomness,
			Proof:      proof,
			Raffle:     raffle,
		}, nil

	default:
		return nil, fmt.Errorf("unhandled event kind %s", kind)
	}
}

// loadArtifact reads a contract ABI either from a Hardhat artifact directory
// or from the embedded copies.
func loadArtifact(abiDir, name string) (abi.ABI, error) {
	var (
		data []byte
		err  error
	)

	if abiDir == "" {
		data, err = embeddedArtifacts.ReadFile("artifacts/" + name + ".json")
	} else {
		// Hardhat lays artifacts out as <dir>/<Name>.sol/<Name>.json; accept a
		// flat directory too.
		data, err = os.ReadFile(filepath.Join(abiDir, name+".sol", name+".json"))
		if errors.Is(err, os.ErrNotExist) {
			data, err = os.ReadFile(filepath.Join(abiDir, name+".json"))
		}
	}
	if err != nil {
		return abi.ABI{}, err
	}

	var artifact struct {
		ABI json.RawMessage `json:"abi"`
	}
	if err := json.Unmarshal(data, &artifact); err == nil && artifact.ABI != nil {
		return abi.JSON(bytes.NewReader(artifact.ABI))
	}

	// Not a full artifact; try a plain ABI array.
	return abi.JSON(bytes.NewReader(data))
}

func fieldBig(values map[string]interface{}, name string) (*big.Int, error) {
	v, ok := values[name]
	if !ok {
		return nil, fmt.Errorf("missing event parameter %q", name)
	}
	b, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("event parameter %q is not a uint, got %T", name, v)
	}
	return b, nil
}

func fieldAddress(values map[string]interface{}, name string) (common.Address, error) {
	v, ok := values[name]
	if !ok {
		return common.Address{}, fmt.Errorf("missing event parameter %q", name)
	}
	addr, ok := v.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("event parameter %q is not an address, got %T", name, v)
	}
	return addr, nil
}

func fieldBytes(values map[string]interface{}, name string) ([]byte, error) {
	v, ok := values[name]
	if !ok {
		return nil, fmt.Errorf("missing event parameter %q", name)
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("event parameter %q is not bytes, got %T", name, v)
	}
	return b, nil
}

func fieldUint64(values map[string]interface{}, name string) (uint64, error) {
	b, err := fieldBig(values, name)
	if err != nil {
		return 0, err
	}
	if !b.IsUint64() {
		return 0, fmt.Errorf("event parameter %q value %s overflows uint64", name, b)
	}
	return b.Uint64(), nil
}

func fieldUint32(values map[string]interface{}, name string) (uint32, error) {
	v, err := fieldUint64(values, name)
	if err != nil {
		return 0, err
	}
	if v > uint64(^uint32(0)) {
		return 0, fmt.Errorf("event parameter %q value %d overflows uint32", name, v)
	}
	return uint32(v), nil
}

func fieldUint16(values map[string]interface{}, name string) (uint16, error) {
	v, err := fieldUint64(values, name)
	if err != nil {
		return 0, err
	}
	if v > uint64(^uint16(0)) {
		return 0, fmt.Errorf("event parameter %q value %d overflows uint16", name, v)
	}
	return uint16(v), nil
}

func fieldInt64(values map[string]interface{}, name string) (int64, error) {
	b, err := fieldBig(values, name)
	if err != nil {
		return 0, err
	}
	if !b.IsInt64() {
		return 0, fmt.Errorf("event parameter %q value %s overflows int64", name, b)
	}
	return b.Int64(), nil
}
