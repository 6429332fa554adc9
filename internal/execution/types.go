package execution

import (
	"context"
	"time"

	"github.com/Khrafts/hyper-mcp-sub002/internal/exchange"
	"github.com/Khrafts/hyper-mcp-sub002/internal/risk"
)

// Algorithm selects a slicing strategy for a parent order
type Algorithm string

const (
	AlgorithmTWAP      Algorithm = "twap"
	AlgorithmVWAP      Algorithm = "vwap"
	AlgorithmIceberg   Algorithm = "iceberg"
	AlgorithmImmediate Algorithm = "immediate"
)

// OrderStatus tracks the lifecycle of a parent order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusScheduling OrderStatus = "scheduling"
	OrderStatusRunning    OrderStatus = "running"
	OrderStatusPaused     OrderStatus = "paused"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusFailed     OrderStatus = "failed"
)

// IsTerminal reports whether the status admits no further transitions
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled || s == OrderStatusFailed
}

// SliceStatus tracks the lifecycle of a single child order
type SliceStatus string

const (
	SliceStatusPending         SliceStatus = "pending"
	SliceStatusSubmitted       SliceStatus = "submitted"
	SliceStatusFilled          SliceStatus = "filled"
	SliceStatusPartiallyFilled SliceStatus = "partially_filled"
	SliceStatusCancelled       SliceStatus = "cancelled"
	SliceStatusFailed          SliceStatus = "failed"
)

// IsTerminal reports whether the slice reached a final state
func (s SliceStatus) IsTerminal() bool {
	switch s {
	case SliceStatusFilled, SliceStatusPartiallyFilled, SliceStatusCancelled, SliceStatusFailed:
		return true
	}
	return false
}

// AlgorithmParams carries per-algorithm tuning. Unused fields are
// ignored by algorithms that do not consume them
type AlgorithmParams struct {
	Duration      time.Duration `json:"duration,omitempty"`
	SliceCount    int           `json:"slice_count,omitempty"`
	Participation float64       `json:"participation,omitempty"`
	SliceSize     float64       `json:"slice_size,omitempty"`
	Jitter        bool          `json:"jitter,omitempty"`
	Randomize     bool          `json:"randomize,omitempty"`
}

// OrderRequest is the submit-time specification for a parent order
type OrderRequest struct {
	Symbol      string               `json:"symbol"`
	Side        exchange.OrderSide   `json:"side"`
	Quantity    float64              `json:"quantity"`
	OrderType   exchange.OrderType   `json:"order_type"`
	LimitPrice  float64              `json:"limit_price,omitempty"`
	TimeInForce exchange.TimeInForce `json:"time_in_force,omitempty"`
	Algorithm   Algorithm            `json:"algorithm"`
	Params      AlgorithmParams      `json:"algorithm_params"`
}

// ExecutionSlice is one child order produced by the slice plan
type ExecutionSlice struct {
	SliceID     string        `json:"slice_id"`
	Index       int           `json:"index"`
	Size        float64       `json:"size"`
	ScheduledAt time.Duration `json:"scheduled_at"`
	Status      SliceStatus   `json:"status"`
	ExchangeID  string        `json:"exchange_id,omitempty"`
	SubmittedAt time.Time     `json:"submitted_at,omitempty"`
	FilledAt    time.Time     `json:"filled_at,omitempty"`
	FillPrice   float64       `json:"fill_price,omitempty"`
	FillSize    float64       `json:"fill_size,omitempty"`
	RetryCount  int           `json:"retry_count"`
	FailureNote string        `json:"failure_note,omitempty"`
}

// ExecutionOrder is a parent order and its slice plan
type ExecutionOrder struct {
	OrderID      string            `json:"order_id"`
	Request      OrderRequest      `json:"request"`
	Status       OrderStatus       `json:"status"`
	Slices       []*ExecutionSlice `json:"slices"`
	ArrivalPrice float64           `json:"arrival_price,omitempty"`
	FailReasons  []string          `json:"fail_reasons,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	StartedAt    time.Time         `json:"started_at,omitempty"`
	CompletedAt  time.Time         `json:"completed_at,omitempty"`
}

// CancelResult is the outcome of a cancellation request
type CancelResult struct {
	OrderID   string    `json:"order_id"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionStatistics summarizes engine activity since start
type ExecutionStatistics struct {
	TotalOrders     int     `json:"total_orders"`
	ActiveOrders    int     `json:"active_orders"`
	CompletedOrders int     `json:"completed_orders"`
	CancelledOrders int     `json:"cancelled_orders"`
	FailedOrders    int     `json:"failed_orders"`
	TotalSlices     int     `json:"total_slices"`
	FilledSlices    int     `json:"filled_slices"`
	FailedSlices    int     `json:"failed_slices"`
	TotalFilledQty  float64 `json:"total_filled_qty"`
	TotalNotional   float64 `json:"total_notional"`
}

// RiskGate is the synchronous pre-trade check consulted before every
// slice dispatch. *risk.Engine satisfies it
type RiskGate interface {
	CheckOrderRisk(ctx context.Context, symbol, side string, quantity, price float64) *risk.OrderRiskResult
}
