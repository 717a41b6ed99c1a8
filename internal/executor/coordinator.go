package executor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/meghlabd275-byte/TigerEx--sub007/internal/router"
	"github.com/meghlabd275-byte/TigerEx--sub007/internal/venue"
	"github.com/meghlabd275-byte/TigerEx--sub007/pkg/types"
)

const (
	// DefaultMaxReplans bounds how many times a dispatch residual is
	// re-routed before the execution settles as partial.
	DefaultMaxReplans = 2

	// DefaultOrderTimeout bounds a single venue order round trip.
	DefaultOrderTimeout = 5 * time.Second
)

// Recorder persists terminal execution records.
type Recorder interface {
	RecordExecution(res *ExecutionResult) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(res *ExecutionResult) error

func (f RecorderFunc) RecordExecution(res *ExecutionResult) error { return f(res) }

// Config tunes the coordinator.
type Config struct {
	MaxReplans     int
	OrderTimeout   time.Duration
	WorkerPoolSize int
}

// Coordinator drives a plan through the venues: dispatches allocations
// with bounded parallelism (one in-flight slice per venue), collects
// fills, and re-plans any residual left by failed or partial venues,
// excluding venues that failed.
type Coordinator struct {
	registry *venue.Registry
	planner  *router.Planner
	pool     *WorkerPool
	recorder Recorder
	publish  func(*ExecutionResult)

	maxReplans   int
	orderTimeout time.Duration
	logger       *logrus.Entry
	now          func() time.Time
}

// NewCoordinator creates and starts a coordinator. Call Close on
// shutdown.
func NewCoordinator(registry *venue.Registry, planner *router.Planner, cfg Config) *Coordinator {
	if cfg.MaxReplans <= 0 {
		cfg.MaxReplans = DefaultMaxReplans
	}
	if cfg.OrderTimeout <= 0 {
		cfg.OrderTimeout = DefaultOrderTimeout
	}
	pool := NewWorkerPool(cfg.WorkerPoolSize)
	pool.Start()

	return &Coordinator{
		registry:     registry,
		planner:      planner,
		pool:         pool,
		maxReplans:   cfg.MaxReplans,
		orderTimeout: cfg.OrderTimeout,
		logger:       logrus.WithField("component", "executor"),
		now:          time.Now,
	}
}

// Close stops the worker pool.
func (c *Coordinator) Close() {
	c.pool.Stop()
}

// SetRecorder attaches the execution journal.
func (c *Coordinator) SetRecorder(r Recorder) {
	c.recorder = r
}

// OnResult registers a sink for terminal execution records, typically
// the message bus. Must be set before Execute is called.
func (c *Coordinator) OnResult(fn func(*ExecutionResult)) {
	c.publish = fn
}

// Execute routes and executes a request end to end. The returned result
// is terminal: every allocation has settled and the residual, if any, is
// explained by Reason.
func (c *Coordinator) Execute(ctx context.Context, req *router.RouteRequest) (*ExecutionResult, error) {
	res := &ExecutionResult{
		ID:                uuid.NewString(),
		Symbol:            req.Symbol,
		Side:              req.Side,
		RequestedQuantity: req.Quantity,
		StartedAt:         c.now(),
	}

	exclude := make(map[string]bool, len(req.Exclude))
	for v, skip := range req.Exclude {
		if skip {
			exclude[v] = true
		}
	}

	remaining := req.Quantity
	cost := decimal.Zero
	cancelled := false

	for pass := 0; ; pass++ {
		plan, err := c.planner.Plan(&router.RouteRequest{
			Symbol:         req.Symbol,
			Side:           req.Side,
			Quantity:       remaining,
			MaxSlippageBps: req.MaxSlippageBps,
			Exclude:        exclude,
		})
		if err != nil {
			return nil, err
		}
		res.PlanIDs = append(res.PlanIDs, plan.ID)

		if len(plan.Allocations) == 0 {
			res.Reason = plan.Reason
			break
		}
		if plan.Reason != "" {
			// The unallocatable portion is terminal for this pass; only
			// the dispatched residual is ever re-planned.
			res.Reason = plan.Reason
		}

		out := c.dispatch(ctx, plan)
		res.Allocations = append(res.Allocations, out.results...)
		res.FilledQuantity = res.FilledQuantity.Add(out.filled)
		res.TotalFees = res.TotalFees.Add(out.fees)
		cost = cost.Add(out.cost)
		for v := range out.failedVenues {
			exclude[v] = true
		}

		if out.cancelled {
			cancelled = true
			break
		}

		remaining = plan.Allocated().Sub(out.filled)
		if !remaining.IsPositive() {
			break
		}
		if pass >= c.maxReplans {
			res.Reason = router.PlanReasonReplanExhausted
			break
		}
		res.Replans++

		c.logger.WithFields(logrus.Fields{
			"execution_id": res.ID,
			"residual":     remaining.String(),
			"pass":         pass + 1,
		}).Info("replanning residual")
	}

	res.ResidualQuantity = res.RequestedQuantity.Sub(res.FilledQuantity)
	if res.FilledQuantity.IsPositive() {
		res.AvgFillPrice = cost.Div(res.FilledQuantity)
	}
	res.Status = c.finalStatus(res, cancelled)
	if res.Status == ExecutionCompleted {
		res.Reason = ""
	}
	res.CompletedAt = c.now()

	c.logger.WithFields(logrus.Fields{
		"execution_id": res.ID,
		"status":       string(res.Status),
		"filled":       res.FilledQuantity.String(),
		"residual":     res.ResidualQuantity.String(),
		"replans":      res.Replans,
	}).Info("execution settled")

	if c.recorder != nil {
		if err := c.recorder.RecordExecution(res); err != nil {
			c.logger.WithError(err).Error("failed to journal execution")
		}
	}
	if c.publish != nil {
		c.publish(res)
	}
	return res, nil
}

type dispatchOutcome struct {
	mu           sync.Mutex
	results      []AllocationResult
	filled       decimal.Decimal
	cost         decimal.Decimal
	fees         decimal.Decimal
	failedVenues map[string]bool
	cancelled    bool
}

// dispatch sends one plan's allocations to the venues. Allocations are
// grouped per venue and each group runs sequentially inside one pool
// task, so a venue never sees two in-flight orders from the same plan.
func (c *Coordinator) dispatch(ctx context.Context, plan *router.Plan) *dispatchOutcome {
	out := &dispatchOutcome{
		filled:       decimal.Zero,
		cost:         decimal.Zero,
		fees:         decimal.Zero,
		failedVenues: make(map[string]bool),
	}

	groups := make(map[string][]router.Allocation)
	order := make([]string, 0)
	for _, a := range plan.Allocations {
		if _, seen := groups[a.Venue]; !seen {
			order = append(order, a.Venue)
		}
		groups[a.Venue] = append(groups[a.Venue], a)
	}

	var wg sync.WaitGroup
	for _, venueName := range order {
		group := groups[venueName]
		wg.Add(1)
		task := func() {
			defer wg.Done()
			c.runVenueGroup(ctx, plan, group, out)
		}
		if !c.pool.Submit(task) {
			c.cancelGroup(group, out)
			wg.Done()
		}
	}
	wg.Wait()
	return out
}

func (c *Coordinator) runVenueGroup(ctx context.Context, plan *router.Plan, group []router.Allocation, out *dispatchOutcome) {
	for i, alloc := range group {
		// Orders not yet dispatched are dropped on cancellation; the one
		// in flight always runs to a terminal state.
		if ctx.Err() != nil {
			c.cancelGroup(group[i:], out)
			return
		}
		c.placeAllocation(ctx, plan, alloc, out)
	}
}

func (c *Coordinator) cancelGroup(group []router.Allocation, out *dispatchOutcome) {
	out.mu.Lock()
	defer out.mu.Unlock()

	out.cancelled = true
	now := c.now()
	for _, alloc := range group {
		out.results = append(out.results, AllocationResult{
			Allocation:  alloc,
			Status:      AllocationCancelled,
			StartedAt:   now,
			CompletedAt: now,
		})
	}
}

func (c *Coordinator) placeAllocation(ctx context.Context, plan *router.Plan, alloc router.Allocation, out *dispatchOutcome) {
	result := AllocationResult{
		Allocation: alloc,
		Status:     AllocationDispatched,
		StartedAt:  c.now(),
	}

	adapter, err := c.registry.Get(alloc.Venue)
	if err != nil {
		c.finishAllocation(out, result, nil, err)
		return
	}

	// A dispatched order is never abandoned mid-flight: the venue call
	// survives caller cancellation and resolves within its own timeout.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.orderTimeout)
	defer cancel()

	report, err := adapter.PlaceOrder(callCtx, &venue.OrderRequest{
		Symbol:   plan.Symbol,
		Side:     plan.Side,
		Price:    alloc.Price,
		Quantity: alloc.Quantity,
	})
	c.finishAllocation(out, result, report, err)
}

func (c *Coordinator) finishAllocation(out *dispatchOutcome, result AllocationResult, report *types.FillReport, err error) {
	result.CompletedAt = c.now()

	out.mu.Lock()
	defer out.mu.Unlock()

	if err != nil {
		result.Status = AllocationFailed
		result.Error = err.Error()
		if kind, ok := types.VenueErrorKindOf(err); ok {
			switch kind {
			case types.VenueErrTimeout, types.VenueErrUnavailable, types.VenueErrRateLimited:
				out.failedVenues[result.Allocation.Venue] = true
			}
		} else {
			out.failedVenues[result.Allocation.Venue] = true
		}
		out.results = append(out.results, result)
		return
	}

	filled := report.FilledQuantity
	if filled.GreaterThan(result.Allocation.Quantity) {
		filled = result.Allocation.Quantity
	}
	result.OrderID = report.OrderID
	result.FilledQuantity = filled
	result.AvgFillPrice = report.AvgFillPrice
	result.Fee = report.Fee
	if filled.Equal(result.Allocation.Quantity) {
		result.Status = AllocationFilled
	} else {
		result.Status = AllocationPartiallyFilled
	}

	out.filled = out.filled.Add(filled)
	out.cost = out.cost.Add(filled.Mul(report.AvgFillPrice))
	out.fees = out.fees.Add(report.Fee)
	out.results = append(out.results, result)
}

func (c *Coordinator) finalStatus(res *ExecutionResult, cancelled bool) ExecutionStatus {
	switch {
	case res.FilledQuantity.GreaterThanOrEqual(res.RequestedQuantity):
		return ExecutionCompleted
	case cancelled:
		return ExecutionCancelled
	case res.FilledQuantity.IsPositive():
		return ExecutionPartial
	default:
		return ExecutionFailed
	}
}
