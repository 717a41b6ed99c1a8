package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/meghlabd275-byte/TigerEx--sub007/internal/book"
	"github.com/meghlabd275-byte/TigerEx--sub007/internal/executor"
	"github.com/meghlabd275-byte/TigerEx--sub007/internal/quote"
	"github.com/meghlabd275-byte/TigerEx--sub007/internal/router"
)

// Server exposes the routing engine over HTTP.
type Server struct {
	planner *router.Planner
	coord   *executor.Coordinator
	books   *book.Engine
	tracker *quote.Tracker
	logger  *logrus.Entry
	httpSrv *http.Server
}

// NewServer builds the HTTP server.
func NewServer(addr string, planner *router.Planner, coord *executor.Coordinator, books *book.Engine, tracker *quote.Tracker) *Server {
	s := &Server{
		planner: planner,
		coord:   coord,
		books:   books,
		tracker: tracker,
		logger:  logrus.WithField("component", "api"),
	}
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Routes builds the request router.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/quote", s.handleQuote).Methods(http.MethodGet)
	api.HandleFunc("/route", s.handleRoute).Methods(http.MethodPost)
	api.HandleFunc("/liquidity", s.handleLiquidity).Methods(http.MethodGet)
	api.HandleFunc("/venues/health", s.handleVenuesHealth).Methods(http.MethodGet)

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	return r
}

// Start runs the server until Shutdown.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpSrv.Addr).Info("http server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// handleQuote is the pre-trade quote: GET
// /api/v1/quote?symbol=BTC/USDT&side=BUY&quantity=120&max_slippage_bps=50
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	req, err := requestFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	est, err := s.planner.Estimate(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, est)
}

type routeRequest struct {
	Symbol         string          `json:"symbol"`
	Side           string          `json:"side"`
	Quantity       decimal.Decimal `json:"quantity"`
	MaxSlippageBps int64           `json:"max_slippage_bps"`
	DryRun         bool            `json:"dry_run"`
}

// handleRoute plans and executes an order. With dry_run the plan is
// returned without touching any venue.
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var body routeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := &router.RouteRequest{
		Symbol:         body.Symbol,
		Side:           body.Side,
		Quantity:       body.Quantity,
		MaxSlippageBps: body.MaxSlippageBps,
	}

	if body.DryRun {
		plan, err := s.planner.Plan(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, plan)
		return
	}

	res, err := s.coord.Execute(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleLiquidity returns the merged book summary for a symbol.
func (s *Server) handleLiquidity(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	writeJSON(w, http.StatusOK, s.books.Summarize(symbol))
}

// handleVenuesHealth lists every venue's tracked health.
func (s *Server) handleVenuesHealth(w http.ResponseWriter, r *http.Request) {
	snapshot := s.tracker.Snapshot()
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Venue < snapshot[j].Venue })
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestFromQuery(r *http.Request) (*router.RouteRequest, error) {
	q := r.URL.Query()

	req := &router.RouteRequest{
		Symbol: q.Get("symbol"),
		Side:   q.Get("side"),
	}
	if raw := q.Get("quantity"); raw != "" {
		qty, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, errInvalidParam("quantity")
		}
		req.Quantity = qty
	}
	if raw := q.Get("max_slippage_bps"); raw != "" {
		bps, err := decimal.NewFromString(raw)
		if err != nil || !bps.IsInteger() {
			return nil, errInvalidParam("max_slippage_bps")
		}
		req.MaxSlippageBps = bps.IntPart()
	}
	return req, nil
}

type paramError string

func (e paramError) Error() string { return "invalid parameter: " + string(e) }

func errInvalidParam(name string) error { return paramError(name) }

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
