package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meghlabd275-byte/TigerEx--sub007/internal/book"
	"github.com/meghlabd275-byte/TigerEx--sub007/internal/executor"
	"github.com/meghlabd275-byte/TigerEx--sub007/internal/quote"
	"github.com/meghlabd275-byte/TigerEx--sub007/internal/router"
	"github.com/meghlabd275-byte/TigerEx--sub007/internal/venue"
	"github.com/meghlabd275-byte/TigerEx--sub007/pkg/types"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fillAdapter struct{ name string }

func (f *fillAdapter) Name() string { return f.name }

func (f *fillAdapter) FetchQuote(context.Context, string) (*types.VenueQuote, error) {
	return nil, types.NewVenueError(f.name, types.VenueErrUnavailable, nil)
}

func (f *fillAdapter) PlaceOrder(_ context.Context, req *venue.OrderRequest) (*types.FillReport, error) {
	return &types.FillReport{
		Venue:          f.name,
		Symbol:         req.Symbol,
		OrderID:        "ord-" + f.name,
		Status:         types.FillStatusFilled,
		FilledQuantity: req.Quantity,
		AvgFillPrice:   req.Price,
		TransactTime:   time.Now(),
	}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	registry := venue.NewRegistry()
	for _, name := range []string{"v1", "v2"} {
		cfg := venue.Config{Name: name, Endpoint: "http://" + name, TakerFeeRate: d("0.001")}
		require.NoError(t, registry.Add(cfg, &fillAdapter{name: name}))
	}

	tracker := quote.NewTracker([]string{"v1", "v2"})
	cache := quote.NewCache(tracker, time.Minute)
	require.True(t, cache.Update(&types.VenueQuote{
		Venue: "v1", Symbol: "BTC/USDT", Sequence: 1, CapturedAt: time.Now(),
		Bids: []types.PriceLevel{{Price: d("9.99"), Quantity: d("80")}},
		Asks: []types.PriceLevel{{Price: d("10.00"), Quantity: d("100")}},
	}, false))
	require.True(t, cache.Update(&types.VenueQuote{
		Venue: "v2", Symbol: "BTC/USDT", Sequence: 1, CapturedAt: time.Now(),
		Asks: []types.PriceLevel{{Price: d("10.01"), Quantity: d("50")}},
	}, false))

	books := book.NewEngine(cache, nil)
	planner := router.NewPlanner(books, tracker, registry, router.DefaultPlanTTL)
	coord := executor.NewCoordinator(registry, planner, executor.Config{WorkerPoolSize: 4})
	t.Cleanup(coord.Close)

	return NewServer(":0", planner, coord, books, tracker)
}

func TestQuoteEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/quote?symbol=BTC/USDT&side=BUY&quantity=120&max_slippage_bps=50", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var est router.Estimate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &est))
	assert.True(t, est.FillableQuantity.Equal(d("120")))
	assert.True(t, est.EstimatedAvgPrice.Round(4).Equal(d("10.0017")))
}

func TestQuoteEndpointBadParams(t *testing.T) {
	srv := newTestServer(t)

	for _, target := range []string{
		"/api/v1/quote?symbol=BTC/USDT&side=BUY&quantity=abc",
		"/api/v1/quote?symbol=BTC/USDT&side=BUY&quantity=10&max_slippage_bps=1.5",
		"/api/v1/quote?side=BUY&quantity=10",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestRouteDryRun(t *testing.T) {
	srv := newTestServer(t)

	body := `{"symbol":"BTC/USDT","side":"BUY","quantity":"120","max_slippage_bps":50,"dry_run":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/route", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var plan router.Plan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	assert.NotEmpty(t, plan.ID)
	require.Len(t, plan.Allocations, 2)
	assert.True(t, plan.Allocated().Equal(d("120")))
}

func TestRouteExecutes(t *testing.T) {
	srv := newTestServer(t)

	body := `{"symbol":"BTC/USDT","side":"BUY","quantity":"120","max_slippage_bps":50}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/route", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var res executor.ExecutionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, executor.ExecutionCompleted, res.Status)
	assert.True(t, res.FilledQuantity.Equal(d("120")))
	assert.True(t, res.ResidualQuantity.IsZero())
}

func TestVenuesHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/venues/health", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot []types.VenueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	require.Len(t, snapshot, 2)
	assert.Equal(t, "v1", snapshot[0].Venue)
	assert.Equal(t, "v2", snapshot[1].Venue)
	assert.Equal(t, types.VenueStatusHealthy, snapshot[0].Status)
}

func TestLiquidityEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/liquidity?symbol=BTC/USDT", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var summary book.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.True(t, summary.BestBid.Equal(d("9.99")))
	assert.True(t, summary.BestAsk.Equal(d("10.00")))
	assert.True(t, summary.AskDepth.Equal(d("150")))
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
