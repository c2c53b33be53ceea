// Package trading provides the HTTP handlers for order submission,
// cancellation, order book and trade queries, account funding, and outcome
// resolution.
//
// All monetary values use shopspring/decimal — never float64 for money.
package trading

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/drewwilen/BetThat/internal/engine"
	"github.com/drewwilen/BetThat/internal/ledger"
	"github.com/drewwilen/BetThat/internal/metrics"
	"github.com/drewwilen/BetThat/internal/model"
	"github.com/drewwilen/BetThat/internal/position"
	"github.com/drewwilen/BetThat/internal/pricing"
	"github.com/drewwilen/BetThat/internal/store"
)

// Service exposes the engine over HTTP. Concurrency control lives in the
// engine (per-outcome-group locks); the service itself is stateless.
type Service struct {
	engine    *engine.Engine
	ledger    ledger.Ledger
	positions *position.Store
	store     store.Store
}

// NewService creates a new trading service.
func NewService(eng *engine.Engine, l ledger.Ledger, positions *position.Store, st store.Store) *Service {
	return &Service{
		engine:    eng,
		ledger:    l,
		positions: positions,
		store:     st,
	}
}

// --- Request/Response types ---

// OrderRequest is the JSON body for POST /api/v1/orders. Quantity is a
// decimal on the wire but must be a positive whole number of contracts.
type OrderRequest struct {
	AccountID string          `json:"account_id"`
	MarketID  string          `json:"market_id"`
	Outcome   string          `json:"outcome"`
	Side      string          `json:"side"`             // "yes" or "no"
	Kind      string          `json:"kind"`             // "limit" or "market"
	Price     decimal.Decimal `json:"price,omitempty"`  // required for limit orders
	Quantity  decimal.Decimal `json:"quantity"`
}

// OrderResponse is returned from order submission.
type OrderResponse struct {
	Order  model.Order   `json:"order"`
	Trades []model.Trade `json:"trades"`
}

// ResolveRequest is the JSON body for outcome resolution.
type ResolveRequest struct {
	Winner     string `json:"winner"`      // "yes" or "no"
	ResolvedBy string `json:"resolved_by"` // resolver identity, recorded in the audit trail
}

// ResolveResponse is returned from a successful resolution.
type ResolveResponse struct {
	Resolution model.Resolution `json:"resolution"`
	Payouts    []model.Payout   `json:"payouts"`
}

// DepositRequest is the JSON body for account funding.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// BalanceResponse is the account balance snapshot.
type BalanceResponse struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
}

// --- HTTP Handlers ---

// SubmitOrder handles POST /api/v1/orders
func (s *Service) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.AccountID == "" {
		writeError(w, "account_id is required", http.StatusBadRequest)
		return
	}
	if req.MarketID == "" {
		writeError(w, "market_id is required", http.StatusBadRequest)
		return
	}
	if req.Outcome == "" {
		writeError(w, "outcome is required", http.StatusBadRequest)
		return
	}
	if !req.Quantity.IsInteger() || !req.Quantity.IsPositive() {
		writeError(w, "quantity must be a positive whole number of contracts", http.StatusBadRequest)
		return
	}

	start := time.Now()
	order, trades, err := s.engine.Submit(r.Context(), engine.SubmitRequest{
		AccountID: req.AccountID,
		MarketID:  req.MarketID,
		Outcome:   req.Outcome,
		Side:      model.Side(req.Side),
		Kind:      model.OrderKind(req.Kind),
		Price:     req.Price,
		Quantity:  req.Quantity.IntPart(),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	metrics.SubmitLatency.WithLabelValues(string(order.Kind)).Observe(time.Since(start).Seconds())
	metrics.OrdersTotal.WithLabelValues(string(order.Kind), string(order.State)).Inc()
	for _, t := range trades {
		metrics.TradesTotal.WithLabelValues(string(t.Side)).Inc()
		metrics.TradeVolume.WithLabelValues(t.MarketID, string(t.Side)).Add(float64(t.Quantity))
	}

	if trades == nil {
		trades = []model.Trade{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(OrderResponse{Order: order, Trades: trades})
}

// CancelOrder handles POST /api/v1/orders/{orderID}/cancel
func (s *Service) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := s.engine.Cancel(r.Context(), orderID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	metrics.CancellationsTotal.Inc()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(order)
}

// GetOrder handles GET /api/v1/orders/{orderID}
func (s *Service) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := s.engine.Order(orderID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(order)
}

// GetOrderBook handles GET /api/v1/markets/{marketID}/orderbook
// Query parameters: outcome (required), side (required), depth (optional).
func (s *Service) GetOrderBook(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")
	outcome := r.URL.Query().Get("outcome")
	side := model.Side(r.URL.Query().Get("side"))

	if outcome == "" {
		writeError(w, "outcome query parameter is required", http.StatusBadRequest)
		return
	}

	depth := 0
	if d := r.URL.Query().Get("depth"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 0 {
			writeError(w, "depth must be a non-negative integer", http.StatusBadRequest)
			return
		}
		depth = n
	}

	levels, err := s.engine.BookSnapshot(marketID, outcome, side, depth)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"market_id": marketID,
		"outcome":   outcome,
		"side":      side,
		"orders":    levels,
	})
}

// GetMarketTrades handles GET /api/v1/markets/{marketID}/trades
func (s *Service) GetMarketTrades(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")

	trades, err := s.store.TradesByMarket(r.Context(), marketID)
	if err != nil {
		writeError(w, "failed to load trade history", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(trades)
}

// GetAccountTrades handles GET /api/v1/accounts/{accountID}/trades
func (s *Service) GetAccountTrades(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	trades, err := s.store.TradesByAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, "failed to load trade history", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(trades)
}

// ResolveOutcome handles POST /api/v1/markets/{marketID}/outcomes/{outcomeName}/resolve
func (s *Service) ResolveOutcome(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")
	outcome := chi.URLParam(r, "outcomeName")

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ResolvedBy == "" {
		writeError(w, "resolved_by is required", http.StatusBadRequest)
		return
	}

	payouts, err := s.engine.Resolve(r.Context(), marketID, outcome, model.Side(req.Winner), req.ResolvedBy)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	metrics.ResolutionsTotal.WithLabelValues(req.Winner).Inc()

	res, _ := s.engine.Resolution(marketID, outcome)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ResolveResponse{Resolution: res, Payouts: payouts})
}

// GetPositions handles GET /api/v1/accounts/{accountID}/positions
func (s *Service) GetPositions(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	positions := s.positions.ByAccount(accountID)
	if positions == nil {
		positions = []model.Position{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(positions)
}

// GetBalance handles GET /api/v1/accounts/{accountID}/balance
func (s *Service) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	balance, err := s.ledger.Balance(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			writeError(w, "account not found", http.StatusNotFound)
			return
		}
		writeError(w, "failed to load balance", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(BalanceResponse{AccountID: accountID, Balance: balance})
}

// Deposit handles POST /api/v1/accounts/{accountID}/deposit
// Credits the account, creating it on first deposit.
func (s *Service) Deposit(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Amount.IsPositive() {
		writeError(w, "amount must be positive", http.StatusBadRequest)
		return
	}

	balance, err := s.ledger.Apply(r.Context(), accountID, req.Amount)
	if err != nil {
		writeError(w, "deposit failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(BalanceResponse{AccountID: accountID, Balance: balance})
}

// writeEngineError maps engine and domain errors to HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidSide),
		errors.Is(err, engine.ErrInvalidKind),
		errors.Is(err, pricing.ErrInvalidPrice),
		errors.Is(err, pricing.ErrInvalidQuantity):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, engine.ErrOrderNotFound):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrOutcomeResolved),
		errors.Is(err, engine.ErrAlreadyResolved),
		errors.Is(err, engine.ErrNotCancellable),
		errors.Is(err, engine.ErrNoLiquidity),
		errors.Is(err, engine.ErrOutcomeHalted),
		errors.Is(err, ledger.ErrInsufficientBalance):
		writeError(w, err.Error(), http.StatusConflict)
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
