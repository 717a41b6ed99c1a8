package venue

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meghlabd275-byte/TigerEx--sub007/pkg/types"
)

// OrderRequest is a limit/IOC-style order sized to a routing allocation.
// IdempotencyToken must be stable across retries of the same allocation so
// that a retry after a timeout cannot double-execute on the venue.
type OrderRequest struct {
	Symbol           string          `json:"symbol"`
	Side             types.Side      `json:"side"`
	Price            decimal.Decimal `json:"price"`
	Quantity         decimal.Decimal `json:"quantity"`
	IdempotencyToken string          `json:"client_order_id"`
}

// Adapter normalizes one venue's market-data and order-execution API into
// the canonical VenueQuote / FillReport contract. The aggregation, routing
// and execution layers depend only on this interface, never on concrete
// venue types.
type Adapter interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (*types.VenueQuote, error)
	PlaceOrder(ctx context.Context, req *OrderRequest) (*types.FillReport, error)
}

// Transport is the venue-specific wire layer wrapped by BaseAdapter.
// Implementations own authentication and payload translation; pacing,
// retries and health reporting are the BaseAdapter's concern.
type Transport interface {
	FetchQuote(ctx context.Context, symbol string) (*types.VenueQuote, error)
	PlaceOrder(ctx context.Context, req *OrderRequest) (*types.FillReport, error)
}

// HealthSink receives the outcome of every adapter call. The quote
// package's Tracker is the production implementation.
type HealthSink interface {
	MarkSuccess(venue string, latency time.Duration)
	MarkFailure(venue string, kind types.VenueErrorKind)
}
