package api

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ticket-arcade/raffle-indexer/internal/logger"
	"github.com/ticket-arcade/raffle-indexer/internal/store"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// Handler serves the read-only query endpoints over the projection.
type Handler struct {
	store           *store.Store
	explorerBaseURL string
	log             *logger.Logger
}

// NewHandler creates an API handler.
func NewHandler(st *store.Store, explorerBaseURL string, log *logger.Logger) *Handler {
	return &Handler{
		store:           st,
		explorerBaseURL: explorerBaseURL,
		log:             log.WithComponent("api"),
	}
}

// Health returns service liveness and the current checkpoint.
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	last, err := h.store.LastProcessedBlock()
	if err != nil {
		h.internalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", LastProcessedBlock: last})
}

// ListRaffles lists raffles, newest first.
// @Summary List raffles
// @Tags Raffles
// @Produce json
// @Param limit query int false "Page size (max 100)" default(50)
// @Param offset query int false "Page offset" default(0)
// @Param status query string false "Filter by status" Enums(ACTIVE, CLOSED, RANDOM_REQUESTED, RANDOM_FULFILLED, FINALIZED, REFUNDING)
// @Success 200 {array} RaffleSummary
// @Failure 400 {object} ErrorResponse
// @Router /v1/raffles [get]
func (h *Handler) ListRaffles(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := h.pagination(w, r)
	if !ok {
		return
	}

	status := r.URL.Query().Get("status")
	if status != "" && !store.ValidStatus(status) {
		respondError(w, http.StatusBadRequest, "unknown status "+status)
		return
	}

	raffles, err := h.store.ListRaffles(status, limit, offset)
	if err != nil {
		h.internalError(w, err)
		return
	}

	summaries := make([]RaffleSummary, 0, len(raffles))
	for _, raffle := range raffles {
		summaries = append(summaries, RaffleSummary{
			RaffleID:      raffle.RaffleID,
			RaffleAddress: raffle.RaffleAddress.Hex(),
			Status:        raffle.Status,
			EndTime:       formatUnix(raffle.EndTime),
			TicketPrice:   raffle.TicketPrice,
			TotalTickets:  raffle.TotalTickets,
			Pot:           raffle.Pot,
			Winner:        addressString(raffle.Winner),
		})
	}
	respondJSON(w, http.StatusOK, summaries)
}

// GetRaffle returns one raffle by id.
// @Summary Get raffle details
// @Tags Raffles
// @Produce json
// @Param id path int true "Raffle id"
// @Success 200 {object} RaffleDetails
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /v1/raffles/{id} [get]
func (h *Handler) GetRaffle(w http.ResponseWriter, r *http.Request) {
	raffleID, ok := h.raffleID(w, r)
	if !ok {
		return
	}

	raffle, err := h.store.GetRaffle(raffleID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "raffle not found")
		return
	}
	if err != nil {
		h.internalError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, RaffleDetails{
		RaffleID:      raffle.RaffleID,
		RaffleAddress: raffle.RaffleAddress.Hex(),
		Creator:       raffle.Creator.Hex(),
		EndTime:       formatUnix(raffle.EndTime),
		TicketPrice:   raffle.TicketPrice,
		MaxTickets:    raffle.MaxTickets,
		FeeBps:        raffle.FeeBps,
		FeeRecipient:  raffle.FeeRecipient.Hex(),
		Status:        raffle.Status,
		TotalTickets:  raffle.TotalTickets,
		Pot:           raffle.Pot,
		RequestID:     raffle.RequestID,
		RequestTx:     hashString(raffle.RequestTx),
		Randomness:    raffle.Randomness,
		RandomnessTx:  hashString(raffle.RandomnessTx),
		WinningIndex:  raffle.WinningIndex,
		Winner:        addressString(raffle.Winner),
		FinalizedTx:   hashString(raffle.FinalizedTx),
	})
}

// ListPurchases lists the ticket purchases of a raffle.
// @Summary List ticket purchases
// @Tags Raffles
// @Produce json
// @Param id path int true "Raffle id"
// @Param limit query int false "Page size (max 100)" default(50)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {array} PurchaseRange
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /v1/raffles/{id}/purchases [get]
func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	raffleID, ok := h.raffleID(w, r)
	if !ok {
		return
	}
	limit, offset, ok := h.pagination(w, r)
	if !ok {
		return
	}

	if _, err := h.store.GetRaffle(raffleID); errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "raffle not found")
		return
	} else if err != nil {
		h.internalError(w, err)
		return
	}

	purchases, err := h.store.ListPurchases(raffleID, limit, offset)
	if err != nil {
		h.internalError(w, err)
		return
	}

	ranges := make([]PurchaseRange, 0, len(purchases))
	for _, purchase := range purchases {
		ranges = append(ranges, PurchaseRange{
			Buyer:       purchase.Buyer.Hex(),
			StartIndex:  purchase.StartIndex,
			EndIndex:    purchase.EndIndex,
			Count:       purchase.Count,
			Amount:      purchase.Amount,
			TxHash:      purchase.TxHash.Hex(),
			LogIndex:    purchase.LogIndex,
			BlockNumber: purchase.BlockNumber,
			CreatedAt:   purchase.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, ranges)
}

// GetProof returns the verification data for a raffle's winner selection.
// When winning_index was never stored it is derived from
// randomness mod total_tickets.
// @Summary Get winner verification proof
// @Tags Raffles
// @Produce json
// @Param id path int true "Raffle id"
// @Success 200 {object} ProofResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /v1/raffles/{id}/proof [get]
func (h *Handler) GetProof(w http.ResponseWriter, r *http.Request) {
	raffleID, ok := h.raffleID(w, r)
	if !ok {
		return
	}

	raffle, err := h.store.GetRaffle(raffleID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "raffle not found")
		return
	}
	if err != nil {
		h.internalError(w, err)
		return
	}

	winningIndex := raffle.WinningIndex
	if winningIndex == nil && raffle.Randomness != nil && raffle.TotalTickets > 0 {
		if randomness, valid := new(big.Int).SetString(*raffle.Randomness, 10); valid {
			idx := new(big.Int).Mod(randomness, big.NewInt(raffle.TotalTickets)).Int64()
			winningIndex = &idx
		}
	}

	var winningRange *WinningRange
	if winningIndex != nil {
		purchase, err := h.store.FindPurchaseByTicket(raffleID, *winningIndex)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			h.internalError(w, err)
			return
		}
		if purchase != nil {
			winningRange = &WinningRange{
				Buyer:      purchase.Buyer.Hex(),
				StartIndex: purchase.StartIndex,
				EndIndex:   purchase.EndIndex,
			}
		}
	}

	requestTx := hashString(raffle.RequestTx)
	randomnessTx := hashString(raffle.RandomnessTx)
	finalizedTx := hashString(raffle.FinalizedTx)

	respondJSON(w, http.StatusOK, ProofResponse{
		RaffleID:     raffle.RaffleID,
		RequestID:    raffle.RequestID,
		Randomness:   raffle.Randomness,
		TotalTickets: raffle.TotalTickets,
		WinningIndex: winningIndex,
		Winner:       addressString(raffle.Winner),
		WinningRange: winningRange,
		Txs: TxLinks{
			RequestTx:     requestTx,
			RequestURL:    h.txURL(requestTx),
			RandomnessTx:  randomnessTx,
			RandomnessURL: h.txURL(randomnessTx),
			FinalizedTx:   finalizedTx,
			FinalizedURL:  h.txURL(finalizedTx),
		},
	})
}

// ListRandomnessRequests lists provider randomness requests.
// @Summary List randomness requests
// @Tags Randomness
// @Produce json
// @Param request_id query string false "Filter by request id"
// @Param raffle_id query int false "Filter by raffle id"
// @Param raffle_address query string false "Filter by raffle address"
// @Param limit query int false "Page size (max 100)" default(50)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {array} RandomnessRequestView
// @Failure 400 {object} ErrorResponse
// @Router /v1/randomness/requests [get]
func (h *Handler) ListRandomnessRequests(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := h.pagination(w, r)
	if !ok {
		return
	}
	filter, ok := h.randomnessFilter(w, r)
	if !ok {
		return
	}

	requests, err := h.store.ListRandomnessRequests(filter, limit, offset)
	if err != nil {
		h.internalError(w, err)
		return
	}

	views := make([]RandomnessRequestView, 0, len(requests))
	for _, request := range requests {
		views = append(views, RandomnessRequestView{
			RequestID:       request.RequestID,
			RaffleID:        request.RaffleID,
			RaffleAddress:   addressString(request.RaffleAddress),
			ProviderAddress: request.ProviderAddress.Hex(),
			TxHash:          request.TxHash.Hex(),
			LogIndex:        request.LogIndex,
			BlockNumber:     request.BlockNumber,
			CreatedAt:       request.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, views)
}

// ListRandomnessFulfillments lists provider randomness deliveries.
// @Summary List randomness fulfillments
// @Tags Randomness
// @Produce json
// @Param request_id query string false "Filter by request id"
// @Param raffle_address query string false "Filter by raffle address"
// @Param limit query int false "Page size (max 100)" default(50)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {array} RandomnessFulfillmentView
// @Failure 400 {object} ErrorResponse
// @Router /v1/randomness/fulfillments [get]
func (h *Handler) ListRandomnessFulfillments(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := h.pagination(w, r)
	if !ok {
		return
	}
	filter, ok := h.randomnessFilter(w, r)
	if !ok {
		return
	}

	fulfillments, err := h.store.ListRandomnessFulfillments(filter, limit, offset)
	if err != nil {
		h.internalError(w, err)
		return
	}

	views := make([]RandomnessFulfillmentView, 0, len(fulfillments))
	for _, fulfillment := range fulfillments {
		views = append(views, RandomnessFulfillmentView{
			RequestID:       fulfillment.RequestID,
			Randomness:      fulfillment.Randomness,
			Proof:           fulfillment.Proof,
			RaffleAddress:   addressString(fulfillment.RaffleAddress),
			ProviderAddress: fulfillment.ProviderAddress.Hex(),
			TxHash:          fulfillment.TxHash.Hex(),
			LogIndex:        fulfillment.LogIndex,
			BlockNumber:     fulfillment.BlockNumber,
			CreatedAt:       fulfillment.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *Handler) raffleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		respondError(w, http.StatusBadRequest, "invalid raffle id")
		return 0, false
	}
	return id, true
}

func (h *Handler) pagination(w http.ResponseWriter, r *http.Request) (limit, offset int64, ok bool) {
	limit = defaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return 0, 0, false
		}
		limit = min(parsed, maxPageLimit)
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "offset must be >= 0")
			return 0, 0, false
		}
		offset = parsed
	}
	return limit, offset, true
}

func (h *Handler) randomnessFilter(w http.ResponseWriter, r *http.Request) (store.RandomnessFilter, bool) {
	filter := store.RandomnessFilter{
		RequestID: r.URL.Query().Get("request_id"),
	}

	if raw := r.URL.Query().Get("raffle_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "raffle_id must be an integer")
			return store.RandomnessFilter{}, false
		}
		filter.RaffleID = &id
	}

	if raw := r.URL.Query().Get("raffle_address"); raw != "" {
		if !common.IsHexAddress(raw) {
			respondError(w, http.StatusBadRequest, "raffle_address is not a valid address")
			return store.RandomnessFilter{}, false
		}
		addr := common.HexToAddress(raw)
		filter.RaffleAddress = &addr
	}
	return filter, true
}

// internalError logs the full error and returns a generic body; SQL details
// never reach the client.
func (h *Handler) internalError(w http.ResponseWriter, err error) {
	h.log.Errorf("database error: %v", err)
	respondError(w, http.StatusInternalServerError, "internal error")
}

func (h *Handler) txURL(txHash *string) *string {
	if txHash == nil || h.explorerBaseURL == "" {
		return nil
	}
	url := strings.TrimSuffix(h.explorerBaseURL, "/") + "/tx/" + *txHash
	return &url
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

func formatUnix(seconds *int64) *string {
	if seconds == nil {
		return nil
	}
	formatted := time.Unix(*seconds, 0).UTC().Format(time.RFC3339)
	return &formatted
}

func addressString(addr *common.Address) *string {
	if addr == nil {
		return nil
	}
	hex := addr.Hex()
	return &hex
}

func hashString(hash *common.Hash) *string {
	if hash == nil {
		return nil
	}
	hex := hash.Hex()
	return &hex
}
