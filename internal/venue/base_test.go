package venue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meghlabd275-byte/TigerEx--sub007/pkg/types"
)

type sinkStub struct {
	mu        sync.Mutex
	successes int
	failures  []types.VenueErrorKind
}

func (s *sinkStub) MarkSuccess(string, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successes++
}

func (s *sinkStub) MarkFailure(_ string, kind types.VenueErrorKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, kind)
}

type scriptedTransport struct {
	mu     sync.Mutex
	tokens []string
	calls  int
	script func(call int, req *OrderRequest) (*types.FillReport, error)
	quote  func(call int) (*types.VenueQuote, error)
}

func (t *scriptedTransport) FetchQuote(_ context.Context, symbol string) (*types.VenueQuote, error) {
	t.mu.Lock()
	t.calls++
	call := t.calls
	t.mu.Unlock()
	return t.quote(call)
}

func (t *scriptedTransport) PlaceOrder(_ context.Context, req *OrderRequest) (*types.FillReport, error) {
	t.mu.Lock()
	t.calls++
	call := t.calls
	t.tokens = append(t.tokens, req.IdempotencyToken)
	t.mu.Unlock()
	return t.script(call, req)
}

func fastConfig(name string) Config {
	return Config{
		Name:        name,
		Endpoint:    "http://" + name,
		CallTimeout: time.Second,
		RateLimit:   types.RateLimitConfig{RequestsPerSecond: 1000, Burst: 10},
		Retry:       RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond},
	}
}

func TestPlaceOrderKeepsTokenAcrossRetries(t *testing.T) {
	transport := &scriptedTransport{
		script: func(call int, req *OrderRequest) (*types.FillReport, error) {
			if call < 3 {
				return nil, types.NewVenueError("v1", types.VenueErrTimeout, nil)
			}
			return &types.FillReport{
				Venue:          "v1",
				OrderID:        "ord-1",
				Status:         types.FillStatusFilled,
				FilledQuantity: req.Quantity,
				AvgFillPrice:   req.Price,
			}, nil
		},
	}
	sink := &sinkStub{}
	adapter := NewBaseAdapter(fastConfig("v1"), transport, sink)

	report, err := adapter.PlaceOrder(context.Background(), &OrderRequest{
		Symbol:   "BTC/USDT",
		Side:     types.SideBuy,
		Price:    decimal.RequireFromString("10.00"),
		Quantity: decimal.RequireFromString("5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", report.OrderID)

	// Every retry replays the same client order id, so the venue can
	// deduplicate and a retried order can never fill twice.
	require.Len(t, transport.tokens, 3)
	assert.NotEmpty(t, transport.tokens[0])
	assert.Equal(t, transport.tokens[0], transport.tokens[1])
	assert.Equal(t, transport.tokens[0], transport.tokens[2])

	assert.Equal(t, 1, sink.successes)
	assert.Equal(t, []types.VenueErrorKind{types.VenueErrTimeout, types.VenueErrTimeout}, sink.failures)
}

func TestPlaceOrderDoesNotRetryRejection(t *testing.T) {
	transport := &scriptedTransport{
		script: func(int, *OrderRequest) (*types.FillReport, error) {
			return nil, types.NewVenueError("v1", types.VenueErrRejected, errors.New("bad order"))
		},
	}
	adapter := NewBaseAdapter(fastConfig("v1"), transport, &sinkStub{})

	_, err := adapter.PlaceOrder(context.Background(), &OrderRequest{
		Symbol:   "BTC/USDT",
		Side:     types.SideBuy,
		Price:    decimal.RequireFromString("10.00"),
		Quantity: decimal.RequireFromString("5"),
	})
	require.Error(t, err)

	kind, ok := types.VenueErrorKindOf(err)
	require.True(t, ok)
	assert.Equal(t, types.VenueErrRejected, kind)
	assert.Len(t, transport.tokens, 1)
}

func TestFetchQuoteRetriesTransientFailures(t *testing.T) {
	transport := &scriptedTransport{
		quote: func(call int) (*types.VenueQuote, error) {
			if call == 1 {
				return nil, types.NewVenueError("v1", types.VenueErrUnavailable, nil)
			}
			return &types.VenueQuote{Venue: "v1", Symbol: "BTC/USDT", Sequence: 7}, nil
		},
	}
	sink := &sinkStub{}
	adapter := NewBaseAdapter(fastConfig("v1"), transport, sink)

	q, err := adapter.FetchQuote(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), q.Sequence)
	assert.Equal(t, 1, sink.successes)
	assert.Len(t, sink.failures, 1)
}

func TestFetchQuoteGivesUpAfterMaxAttempts(t *testing.T) {
	transport := &scriptedTransport{
		quote: func(int) (*types.VenueQuote, error) {
			return nil, types.NewVenueError("v1", types.VenueErrTimeout, nil)
		},
	}
	sink := &sinkStub{}
	adapter := NewBaseAdapter(fastConfig("v1"), transport, sink)

	_, err := adapter.FetchQuote(context.Background(), "BTC/USDT")
	require.Error(t, err)
	assert.Equal(t, 3, transport.calls)
	assert.Len(t, sink.failures, 3)
}

func TestClassifyWrapsUnknownErrors(t *testing.T) {
	adapter := NewBaseAdapter(fastConfig("v1"), nil, &sinkStub{})

	verr := adapter.classify(context.DeadlineExceeded)
	assert.Equal(t, types.VenueErrTimeout, verr.Kind)

	verr = adapter.classify(errors.New("connection reset"))
	assert.Equal(t, types.VenueErrUnavailable, verr.Kind)
	assert.Equal(t, "v1", verr.Venue)
}
