package router

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/meghlabd275-byte/TigerEx--sub007/internal/book"
	"github.com/meghlabd275-byte/TigerEx--sub007/internal/quote"
	"github.com/meghlabd275-byte/TigerEx--sub007/internal/venue"
	"github.com/meghlabd275-byte/TigerEx--sub007/pkg/types"
)

const (
	// DefaultPlanTTL bounds how long a plan stays dispatchable.
	DefaultPlanTTL = 1500 * time.Millisecond

	// DefaultDegradedSkipThreshold is the healthy-venue count at which
	// degraded venues are left out of new plans.
	DefaultDegradedSkipThreshold = 2

	bpsDenominator = 10000
)

// Planner turns route requests into venue allocation plans by walking the
// aggregated book best-price-first under a slippage bound.
type Planner struct {
	books                 *book.Engine
	tracker               *quote.Tracker
	registry              *venue.Registry
	planTTL               time.Duration
	degradedSkipThreshold int
	logger                *logrus.Entry
	now                   func() time.Time
}

// NewPlanner creates a planner.
func NewPlanner(books *book.Engine, tracker *quote.Tracker, registry *venue.Registry, planTTL time.Duration) *Planner {
	if planTTL <= 0 {
		planTTL = DefaultPlanTTL
	}
	return &Planner{
		books:                 books,
		tracker:               tracker,
		registry:              registry,
		planTTL:               planTTL,
		degradedSkipThreshold: DefaultDegradedSkipThreshold,
		logger:                logrus.WithField("component", "planner"),
		now:                   time.Now,
	}
}

// Plan allocates the requested quantity across venues. A plan is always
// returned for a valid request; shortfalls are reported through
// Unallocatable and Reason rather than as errors.
func (p *Planner) Plan(req *RouteRequest) (*Plan, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	walk := p.walk(req)
	now := p.now()
	plan := &Plan{
		ID:                uuid.NewString(),
		Symbol:            req.Symbol,
		Side:              req.Side,
		RequestedQuantity: req.Quantity,
		Allocations:       walk.allocations,
		EstimatedAvgPrice: walk.avgPrice,
		EstimatedFees:     walk.fees,
		ReferencePrice:    walk.referencePrice,
		Unallocatable:     walk.remaining,
		Reason:            walk.reason,
		CreatedAt:         now,
		ExpiresAt:         now.Add(p.planTTL),
	}

	p.logger.WithFields(logrus.Fields{
		"plan_id":     plan.ID,
		"symbol":      plan.Symbol,
		"side":        plan.Side,
		"requested":   plan.RequestedQuantity.String(),
		"allocated":   plan.Allocated().String(),
		"allocations": len(plan.Allocations),
		"reason":      string(plan.Reason),
	}).Info("plan built")

	return plan, nil
}

// Estimate is the pre-trade quote: the same walk as Plan, without minting
// a dispatchable plan.
func (p *Planner) Estimate(req *RouteRequest) (*Estimate, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	walk := p.walk(req)
	return &Estimate{
		Symbol:            req.Symbol,
		Side:              req.Side,
		RequestedQuantity: req.Quantity,
		FillableQuantity:  req.Quantity.Sub(walk.remaining),
		EstimatedAvgPrice: walk.avgPrice,
		EstimatedFees:     walk.fees,
		WorstPrice:        walk.worstPrice,
		ReferencePrice:    walk.referencePrice,
		Reason:            walk.reason,
	}, nil
}

func validateRequest(req *RouteRequest) error {
	if req.Symbol == "" {
		return fmt.Errorf("route request: symbol is required")
	}
	if req.Side != types.SideBuy && req.Side != types.SideSell {
		return fmt.Errorf("route request: invalid side %q", req.Side)
	}
	if !req.Quantity.IsPositive() {
		return fmt.Errorf("route request: quantity must be positive")
	}
	if req.MaxSlippageBps < 0 {
		return fmt.Errorf("route request: max slippage must not be negative")
	}
	return nil
}

type walkResult struct {
	allocations    []Allocation
	avgPrice       decimal.Decimal
	fees           decimal.Decimal
	worstPrice     decimal.Decimal
	referencePrice decimal.Decimal
	remaining      decimal.Decimal
	reason         PlanReason
}

// walk runs the greedy best-price-first allocation over the aggregated
// book. At each level the full candidate allocation is priced in before
// it is taken: if including it would push the blended average past the
// slippage bound, the walk stops there.
func (p *Planner) walk(req *RouteRequest) walkResult {
	exclude := p.effectiveExclude(req.Exclude)
	side := p.books.Build(req.Symbol, req.Side, exclude)

	res := walkResult{remaining: req.Quantity}
	ref, ok := side.BestPrice()
	if !ok {
		res.reason = PlanReasonNoLiquidity
		return res
	}
	res.referencePrice = ref
	limit := slippageLimit(ref, req.Side, req.MaxSlippageBps)

	cost := decimal.Zero
	filled := decimal.Zero
	for _, lvl := range side.Levels {
		if !res.remaining.IsPositive() {
			break
		}

		alloc := decimal.Min(res.remaining, lvl.Quantity)
		newCost := cost.Add(alloc.Mul(lvl.Price))
		newFilled := filled.Add(alloc)
		avg := newCost.Div(newFilled)
		if breachesLimit(avg, limit, req.Side) {
			res.reason = PlanReasonSlippageExceeded
			break
		}

		cfg, _ := p.registry.Config(lvl.Venue)
		if cfg.MinOrderSize.IsPositive() && alloc.LessThan(cfg.MinOrderSize) {
			continue
		}

		for _, chunk := range splitByCap(alloc, cfg.MaxOrderSize) {
			res.allocations = append(res.allocations, Allocation{
				Venue:    lvl.Venue,
				Price:    lvl.Price,
				Quantity: chunk,
			})
			res.fees = res.fees.Add(chunk.Mul(lvl.Price).Mul(cfg.TakerFeeRate))
		}

		cost = newCost
		filled = newFilled
		res.remaining = res.remaining.Sub(alloc)
		res.worstPrice = lvl.Price
	}

	if filled.IsPositive() {
		res.avgPrice = cost.Div(filled)
	}
	if res.remaining.IsPositive() && res.reason == "" {
		res.reason = PlanReasonInsufficientDepth
	}
	return res
}

// effectiveExclude widens the caller's exclude set with degraded venues,
// but only while enough healthy venues remain to route around them.
func (p *Planner) effectiveExclude(base map[string]bool) map[string]bool {
	exclude := make(map[string]bool, len(base))
	for v, skip := range base {
		if skip {
			exclude[v] = true
		}
	}

	healthy := 0
	var degraded []string
	for _, name := range p.registry.Names() {
		if exclude[name] {
			continue
		}
		switch p.tracker.Status(name) {
		case types.VenueStatusHealthy:
			healthy++
		case types.VenueStatusDegraded:
			degraded = append(degraded, name)
		}
	}
	if healthy >= p.degradedSkipThreshold {
		for _, name := range degraded {
			exclude[name] = true
		}
	}
	return exclude
}

func slippageLimit(ref decimal.Decimal, side types.Side, bps int64) decimal.Decimal {
	delta := ref.Mul(decimal.NewFromInt(bps)).Div(decimal.NewFromInt(bpsDenominator))
	if side == types.SideBuy {
		return ref.Add(delta)
	}
	return ref.Sub(delta)
}

func breachesLimit(avg, limit decimal.Decimal, side types.Side) bool {
	if side == types.SideBuy {
		return avg.GreaterThan(limit)
	}
	return avg.LessThan(limit)
}

// splitByCap slices an allocation into venue fat-finger sized chunks.
// A zero cap means uncapped.
func splitByCap(qty, maxSize decimal.Decimal) []decimal.Decimal {
	if !maxSize.IsPositive() || qty.LessThanOrEqual(maxSize) {
		return []decimal.Decimal{qty}
	}
	var chunks []decimal.Decimal
	for qty.GreaterThan(maxSize) {
		chunks = append(chunks, maxSize)
		qty = qty.Sub(maxSize)
	}
	if qty.IsPositive() {
		chunks = append(chunks, qty)
	}
	return chunks
}
