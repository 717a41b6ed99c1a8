package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order sides
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Fill statuses reported by venues
const (
	FillStatusFilled          = "FILLED"
	FillStatusPartiallyFilled = "PARTIALLY_FILLED"
	FillStatusRejected        = "REJECTED"
)

// Type aliases for readability
type Side = string
type FillStatus = string

// VenueStatus is the liveness/quality signal for a venue.
type VenueStatus string

const (
	VenueStatusHealthy  VenueStatus = "healthy"
	VenueStatusDegraded VenueStatus = "degraded"
	VenueStatusOffline  VenueStatus = "offline"
)

// PriceLevel represents a price level in an order book
type PriceLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// VenueQuote is one venue's view of a symbol's book at a point in time.
// Sequence numbers are monotonically non-decreasing per (venue, symbol);
// a snapshot with a lower sequence than the cached one must be dropped.
type VenueQuote struct {
	Venue      string       `json:"venue"`
	Symbol     string       `json:"symbol"`
	Bids       []PriceLevel `json:"bids"` // descending price
	Asks       []PriceLevel `json:"asks"` // ascending price
	Sequence   uint64       `json:"sequence"`
	CapturedAt time.Time    `json:"captured_at"`
}

// Levels returns the side of the book an aggressive order of the given
// side would trade against.
func (q *VenueQuote) Levels(side Side) []PriceLevel {
	if side == SideBuy {
		return q.Asks
	}
	return q.Bids
}

// FillReport is the canonical order-placement result across venues.
type FillReport struct {
	Venue          string          `json:"venue"`
	Symbol         string          `json:"symbol"`
	OrderID        string          `json:"order_id"`
	Status         FillStatus      `json:"status"`
	FilledQuantity decimal.Decimal `json:"filled_quantity"`
	AvgFillPrice   decimal.Decimal `json:"avg_fill_price"`
	Fee            decimal.Decimal `json:"fee"`
	TransactTime   time.Time       `json:"transact_time"`
}

// VenueHealth is the tracked health record for a venue.
type VenueHealth struct {
	Venue               string        `json:"venue"`
	Status              VenueStatus   `json:"status"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	RollingLatency      time.Duration `json:"rolling_latency"`
	LastSuccess         time.Time     `json:"last_success"`
	LastTransition      time.Time     `json:"last_transition"`
}

// RateLimitConfig defines per-venue request pacing.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
}
