package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/nftdeck/marketplace-ledger/internal/entity"
	"github.com/nftdeck/marketplace-ledger/internal/marketplace"
	"github.com/nftdeck/marketplace-ledger/internal/repository"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

type Server struct {
	ledger     *marketplace.Ledger
	actionRepo repository.MarketplaceActionRepository
	cache      *cache.Cache
	cacheTtl   time.Duration
}

func NewServer(ledger *marketplace.Ledger, actionRepo repository.MarketplaceActionRepository, cacheTtl time.Duration) Server {
	return Server{
		ledger:     ledger,
		actionRepo: actionRepo,
		cache:      cache.New(cacheTtl, 2*cacheTtl),
		cacheTtl:   cacheTtl,
	}
}

func (s Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleHomepage).Methods("GET")
	r.HandleFunc("/listings", s.handleListItem).Methods("POST")
	r.HandleFunc("/listings/{contract}/{tokenId}", s.handleGetListing).Methods("GET")
	r.HandleFunc("/listings/{contract}/{tokenId}", s.handleUpdateListing).Methods("PUT")
	r.HandleFunc("/listings/{contract}/{tokenId}", s.handleCancelListing).Methods("DELETE")
	r.HandleFunc("/listings/{contract}/{tokenId}/purchases", s.handleBuyItem).Methods("POST")
	r.HandleFunc("/listings/{contract}/{tokenId}/actions", s.handleGetActions).Methods("GET")
	r.HandleFunc("/listings/{contract}/{tokenId}/sales/latest", s.handleGetLatestSale).Methods("GET")
	r.HandleFunc("/accounts/{account}/actions", s.handleGetAccountActions).Methods("GET")
	r.HandleFunc("/proceeds/{account}", s.handleGetProceeds).Methods("GET")
	r.HandleFunc("/withdrawals", s.handleWithdraw).Methods("POST")
	r.NotFoundHandler = notFoundHandler()

	return r
}

func (s Server) handleHomepage(w http.ResponseWriter, r *http.Request) {
	_, _ = fmt.Fprintf(w, "Marketplace Ledger")
}

type listRequest struct {
	Contract string `json:"contract"`
	TokenId  uint64 `json:"tokenId"`
	Price    uint64 `json:"price"`
	Caller   string `json:"caller"`
}

func (s Server) handleListItem(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.ledger.ListItem(r.Context(), req.Contract, req.TokenId, req.Price, req.Caller); err != nil {
		writeDomainError(w, err)
		return
	}

	s.cache.Delete(listingCacheKey(req.Contract, req.TokenId))
	writeJson(w, http.StatusCreated, s.ledger.GetListing(req.Contract, req.TokenId))
}

type updateRequest struct {
	Price  uint64 `json:"price"`
	Caller string `json:"caller"`
}

func (s Server) handleUpdateListing(w http.ResponseWriter, r *http.Request) {
	contract, tokenId, err := getToken(r)
	if err != nil {
		http.Error(w, "invalid parameters", http.StatusBadRequest)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.ledger.UpdateListing(r.Context(), contract, tokenId, req.Price, req.Caller); err != nil {
		writeDomainError(w, err)
		return
	}

	s.cache.Delete(listingCacheKey(contract, tokenId))
	writeJson(w, http.StatusOK, s.ledger.GetListing(contract, tokenId))
}

type cancelRequest struct {
	Caller string `json:"caller"`
}

func (s Server) handleCancelListing(w http.ResponseWriter, r *http.Request) {
	contract, tokenId, err := getToken(r)
	if err != nil {
		http.Error(w, "invalid parameters", http.StatusBadRequest)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.ledger.CancelListing(r.Context(), contract, tokenId, req.Caller); err != nil {
		writeDomainError(w, err)
		return
	}

	s.cache.Delete(listingCacheKey(contract, tokenId))
	w.WriteHeader(http.StatusNoContent)
}

type buyRequest struct {
	Payment uint64 `json:"payment"`
	Buyer   string `json:"buyer"`
}

func (s Server) handleBuyItem(w http.ResponseWriter, r *http.Request) {
	contract, tokenId, err := getToken(r)
	if err != nil {
		http.Error(w, "invalid parameters", http.StatusBadRequest)
		return
	}

	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	seller := s.ledger.GetListing(contract, tokenId).Seller

	if err := s.ledger.BuyItem(r.Context(), contract, tokenId, req.Payment, req.Buyer); err != nil {
		writeDomainError(w, err)
		return
	}

	s.cache.Delete(listingCacheKey(contract, tokenId))
	s.cache.Delete(proceedsCacheKey(seller))
	w.WriteHeader(http.StatusNoContent)
}

type withdrawRequest struct {
	Amount uint64 `json:"amount"`
	Caller string `json:"caller"`
}

func (s Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.ledger.Withdraw(r.Context(), req.Amount, req.Caller); err != nil {
		writeDomainError(w, err)
		return
	}

	s.cache.Delete(proceedsCacheKey(req.Caller))
	w.WriteHeader(http.StatusNoContent)
}

func (s Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	contract, tokenId, err := getToken(r)
	if err != nil {
		http.Error(w, "invalid parameters", http.StatusBadRequest)
		return
	}

	key := listingCacheKey(contract, tokenId)
	if cached, found := s.cache.Get(key); found {
		writeJson(w, http.StatusOK, cached)
		return
	}

	listing := s.ledger.GetListing(contract, tokenId)
	s.cache.Set(key, listing, s.cacheTtl)

	writeJson(w, http.StatusOK, listing)
}

func (s Server) handleGetProceeds(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]

	key := proceedsCacheKey(account)
	if cached, found := s.cache.Get(key); found {
		writeJson(w, http.StatusOK, cached)
		return
	}

	proceeds := entity.Proceeds{Account: account, Amount: s.ledger.GetProceeds(account)}
	s.cache.Set(key, proceeds, s.cacheTtl)

	writeJson(w, http.StatusOK, proceeds)
}

func (s Server) handleGetActions(w http.ResponseWriter, r *http.Request) {
	contract, tokenId, err := getToken(r)
	if err != nil {
		http.Error(w, "invalid parameters", http.StatusBadRequest)
		return
	}

	size, page := getPagination(r)

	actions, total, err := s.actionRepo.GetActions(contract, tokenId, size, (page-1)*size)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Api: Failed to get actions")
		http.Error(w, "failed to get actions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("X-Total-Count", fmt.Sprintf("%d", total))
	writeJson(w, http.StatusOK, actions)
}

func (s Server) handleGetAccountActions(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]
	size, page := getPagination(r)

	actions, total, err := s.actionRepo.GetActionsByAccount(account, size, (page-1)*size)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Api: Failed to get account actions")
		http.Error(w, "failed to get actions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("X-Total-Count", fmt.Sprintf("%d", total))
	writeJson(w, http.StatusOK, actions)
}

func (s Server) handleGetLatestSale(w http.ResponseWriter, r *http.Request) {
	contract, tokenId, err := getToken(r)
	if err != nil {
		http.Error(w, "invalid parameters", http.StatusBadRequest)
		return
	}

	sale, err := s.actionRepo.GetLatestSale(contract, tokenId)
	if errors.Is(err, repository.ErrActionNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Api: Failed to get latest sale")
		http.Error(w, "failed to get latest sale", http.StatusInternalServerError)
		return
	}

	writeJson(w, http.StatusOK, sale)
}

func getToken(r *http.Request) (string, uint64, error) {
	contract, ok := mux.Vars(r)["contract"]
	if !ok {
		return "", 0, errors.New("invalid parameters")
	}

	tokenId, err := strconv.ParseUint(mux.Vars(r)["tokenId"], 10, 64)
	if err != nil {
		return "", 0, err
	}

	return contract, tokenId, nil
}

func getPagination(r *http.Request) (size int, page int) {
	size, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil || size <= 0 || size > 100 {
		size = 10
	}

	page, err = strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}

	return size, page
}

func listingCacheKey(contract string, tokenId uint64) string {
	return fmt.Sprintf("listing.%s.%d", contract, tokenId)
}

func proceedsCacheKey(account string) string {
	return fmt.Sprintf("proceeds.%s", account)
}

func writeJson(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, marketplace.ErrIsNotListed):
		status = http.StatusNotFound
	case errors.Is(err, marketplace.ErrIsNotOwner), errors.Is(err, marketplace.ErrNotApproved):
		status = http.StatusForbidden
	case errors.Is(err, marketplace.ErrPaymentNotEnough):
		status = http.StatusPaymentRequired
	case errors.Is(err, marketplace.ErrPriceInvalid),
		errors.Is(err, marketplace.ErrWithdrawExcess),
		errors.Is(err, marketplace.ErrAmountNotPositive),
		errors.Is(err, marketplace.ErrNoProceeds):
		status = http.StatusBadRequest
	case errors.Is(err, marketplace.ErrReentrantCall):
		status = http.StatusConflict
	}

	http.Error(w, err.Error(), status)
}

func notFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
		_, _ = fmt.Fprintf(w, "Page not found")
	})
}
