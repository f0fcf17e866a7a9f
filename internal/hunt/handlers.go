package hunt

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/geohunt/coin-engine/internal/collection"
	"github.com/geohunt/coin-engine/internal/model"
	"github.com/geohunt/coin-engine/internal/store"
)

// --- Request/Response types ---

// HideRequest is the JSON body for POST /coins.
type HideRequest struct {
	UserID string          `json:"user_id"`
	Type   string          `json:"type"`  // "fixed" or "pool"
	Value  decimal.Decimal `json:"value"` // contribution, dollars
	Lat    float64         `json:"lat"`
	Lon    float64         `json:"lon"`
}

// CollectRequest is the JSON body for POST /coins/{coinID}/collect.
type CollectRequest struct {
	UserID string  `json:"user_id"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// AmountRequest is the JSON body for park/unpark operations.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// UnparkResponse reports the fee breakdown of an unpark.
type UnparkResponse struct {
	Moved decimal.Decimal `json:"moved"`
	Fee   decimal.Decimal `json:"fee"`
	Net   decimal.Decimal `json:"net"`
}

// --- HTTP Handlers ---

// HandleNearby handles GET /api/v1/coins/nearby?user_id=&lat=&lon=&radius=
func (s *Service) HandleNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		writeError(w, "lat must be a number", http.StatusBadRequest)
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		writeError(w, "lon must be a number", http.StatusBadRequest)
		return
	}
	radius := 0.0
	if v := q.Get("radius"); v != "" {
		if radius, err = strconv.ParseFloat(v, 64); err != nil {
			writeError(w, "radius must be a number", http.StatusBadRequest)
			return
		}
	}

	coins, err := s.NearbyCoins(r.Context(), userID, lat, lon, radius)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if coins == nil {
		coins = []NearbyCoin{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(coins)
}

// HandleHide handles POST /api/v1/coins
func (s *Service) HandleHide(w http.ResponseWriter, r *http.Request) {
	var req HideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	coin, err := s.Hide(r.Context(), req.UserID, req.Type, req.Value, req.Lat, req.Lon)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(coin)
}

// HandleGetCoin handles GET /api/v1/coins/{coinID}
func (s *Service) HandleGetCoin(w http.ResponseWriter, r *http.Request) {
	coin, err := s.store.GetCoin(r.Context(), chi.URLParam(r, "coinID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(coin)
}

// HandleCollect handles POST /api/v1/coins/{coinID}/collect
func (s *Service) HandleCollect(w http.ResponseWriter, r *http.Request) {
	var req CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	result, err := s.Collect(r.Context(), req.UserID, chi.URLParam(r, "coinID"), req.Lat, req.Lon)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandlePreview handles GET /api/v1/coins/{coinID}/preview?user_id=
func (s *Service) HandlePreview(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	value, err := s.PreviewPoolValue(r.Context(), userID, chi.URLParam(r, "coinID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]decimal.Decimal{"estimated_value": value})
}

// HandleRetrieve handles POST /api/v1/coins/{coinID}/retrieve
func (s *Service) HandleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	refunded, err := s.Retrieve(r.Context(), req.UserID, chi.URLParam(r, "coinID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]decimal.Decimal{"refunded": refunded})
}

// HandleGetWallet handles GET /api/v1/wallets/{userID}
func (s *Service) HandleGetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.Wallet(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(wallet)
}

// HandlePark handles POST /api/v1/wallets/{userID}/park
func (s *Service) HandlePark(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.Park(r.Context(), userID, req.Amount); err != nil {
		writeServiceError(w, err)
		return
	}

	wallet, err := s.Wallet(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(wallet)
}

// HandleUnpark handles POST /api/v1/wallets/{userID}/unpark
func (s *Service) HandleUnpark(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	net, fee, err := s.Unpark(r.Context(), userID, req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(UnparkResponse{Moved: req.Amount.Round(2), Fee: fee, Net: net})
}

// HandleConsumeGas handles POST /api/v1/wallets/{userID}/gas
func (s *Service) HandleConsumeGas(w http.ResponseWriter, r *http.Request) {
	charge, err := s.ConsumeDailyGas(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(charge)
}

// HandleConfirmPending handles POST /api/v1/wallets/{userID}/confirm
func (s *Service) HandleConfirmPending(w http.ResponseWriter, r *http.Request) {
	confirmed, err := s.ConfirmPending(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]decimal.Decimal{"confirmed": confirmed})
}

// HandleHistory handles GET /api/v1/wallets/{userID}/history?limit=
func (s *Service) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	txs, err := s.History(r.Context(), chi.URLParam(r, "userID"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txs)
}

// HandleGetStats handles GET /api/v1/stats/{userID}
func (s *Service) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Stats(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// writeServiceError maps a service error to an HTTP status. Not-found
// is 404, losing a concurrent race is 409, rule violations are 422,
// anything else is an opaque 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *collection.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, "not found", http.StatusNotFound)
	case errors.Is(err, store.ErrConflict):
		writeError(w, "coin was claimed by someone else", http.StatusConflict)
	case errors.As(err, &ve):
		writeError(w, ve.Reason, http.StatusUnprocessableEntity)
	case isValidation(err):
		writeError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		writeError(w, "internal error", http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
