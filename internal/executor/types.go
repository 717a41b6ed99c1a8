package executor

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meghlabd275-byte/TigerEx--sub007/internal/router"
	"github.com/meghlabd275-byte/TigerEx--sub007/pkg/types"
)

// AllocationStatus is the lifecycle state of one dispatched allocation.
type AllocationStatus string

const (
	AllocationPending         AllocationStatus = "PENDING"
	AllocationDispatched      AllocationStatus = "DISPATCHED"
	AllocationFilled          AllocationStatus = "FILLED"
	AllocationPartiallyFilled AllocationStatus = "PARTIALLY_FILLED"
	AllocationFailed          AllocationStatus = "FAILED"
	AllocationCancelled       AllocationStatus = "CANCELLED"
)

// AllocationResult is the outcome of executing a single allocation.
type AllocationResult struct {
	Allocation     router.Allocation `json:"allocation"`
	Status         AllocationStatus  `json:"status"`
	OrderID        string            `json:"order_id,omitempty"`
	FilledQuantity decimal.Decimal   `json:"filled_quantity"`
	AvgFillPrice   decimal.Decimal   `json:"avg_fill_price"`
	Fee            decimal.Decimal   `json:"fee"`
	Error          string            `json:"error,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	CompletedAt    time.Time         `json:"completed_at"`
}

// ExecutionStatus is the terminal state of a whole execution.
type ExecutionStatus string

const (
	ExecutionCompleted ExecutionStatus = "COMPLETED"
	ExecutionPartial   ExecutionStatus = "PARTIAL"
	ExecutionFailed    ExecutionStatus = "FAILED"
	ExecutionCancelled ExecutionStatus = "CANCELLED"
)

// ExecutionResult is the full record of one routed execution, including
// every replan pass. FilledQuantity plus ResidualQuantity always equals
// RequestedQuantity.
type ExecutionResult struct {
	ID                string             `json:"id"`
	Symbol            string             `json:"symbol"`
	Side              types.Side         `json:"side"`
	RequestedQuantity decimal.Decimal    `json:"requested_quantity"`
	FilledQuantity    decimal.Decimal    `json:"filled_quantity"`
	ResidualQuantity  decimal.Decimal    `json:"residual_quantity"`
	AvgFillPrice      decimal.Decimal    `json:"avg_fill_price"`
	TotalFees         decimal.Decimal    `json:"total_fees"`
	Status            ExecutionStatus    `json:"status"`
	Reason            router.PlanReason  `json:"reason,omitempty"`
	PlanIDs           []string           `json:"plan_ids"`
	Allocations       []AllocationResult `json:"allocations"`
	Replans           int                `json:"replans"`
	StartedAt         time.Time          `json:"started_at"`
	CompletedAt       time.Time          `json:"completed_at"`
}
