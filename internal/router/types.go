package router

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meghlabd275-byte/TigerEx--sub007/pkg/types"
)

// PlanReason explains why a plan covers less than the requested quantity.
// An empty reason means the full quantity was allocated.
type PlanReason string

const (
	PlanReasonNoLiquidity       PlanReason = "NO_LIQUIDITY"
	PlanReasonSlippageExceeded  PlanReason = "SLIPPAGE_EXCEEDED"
	PlanReasonInsufficientDepth PlanReason = "INSUFFICIENT_DEPTH"
	PlanReasonReplanExhausted   PlanReason = "REPLAN_EXHAUSTED"
)

// RouteRequest asks for a routing plan.
type RouteRequest struct {
	Symbol         string          `json:"symbol"`
	Side           types.Side      `json:"side"`
	Quantity       decimal.Decimal `json:"quantity"`
	MaxSlippageBps int64           `json:"max_slippage_bps"`

	// Exclude removes venues from consideration, used on replans after a
	// venue fails mid-execution.
	Exclude map[string]bool `json:"-"`
}

// Allocation is one venue-sized slice of a plan. Allocations at the same
// venue and price appear once per fat-finger cap chunk.
type Allocation struct {
	Venue    string          `json:"venue"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Plan is the output of the allocator: an ordered set of venue
// allocations plus the estimated cost of executing them. A plan past
// ExpiresAt must not be dispatched; re-plan instead.
type Plan struct {
	ID                string          `json:"id"`
	Symbol            string          `json:"symbol"`
	Side              types.Side      `json:"side"`
	RequestedQuantity decimal.Decimal `json:"requested_quantity"`
	Allocations       []Allocation    `json:"allocations"`
	EstimatedAvgPrice decimal.Decimal `json:"estimated_avg_price"`
	EstimatedFees     decimal.Decimal `json:"estimated_fees"`
	ReferencePrice    decimal.Decimal `json:"reference_price"`
	Unallocatable     decimal.Decimal `json:"unallocatable"`
	Reason            PlanReason      `json:"reason,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	ExpiresAt         time.Time       `json:"expires_at"`
}

// Allocated sums the planned quantity across allocations.
func (p *Plan) Allocated() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Allocations {
		total = total.Add(a.Quantity)
	}
	return total
}

// Expired reports whether the plan is too old to dispatch.
func (p *Plan) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// Estimate is a pre-trade quote: what a request would cost right now,
// without creating a dispatchable plan.
type Estimate struct {
	Symbol            string          `json:"symbol"`
	Side              types.Side      `json:"side"`
	RequestedQuantity decimal.Decimal `json:"requested_quantity"`
	FillableQuantity  decimal.Decimal `json:"fillable_quantity"`
	EstimatedAvgPrice decimal.Decimal `json:"estimated_avg_price"`
	EstimatedFees     decimal.Decimal `json:"estimated_fees"`
	WorstPrice        decimal.Decimal `json:"worst_price"`
	ReferencePrice    decimal.Decimal `json:"reference_price"`
	Reason            PlanReason      `json:"reason,omitempty"`
}
