package execution

import (
	"time"

	"github.com/Khrafts/hyper-mcp-sub002/internal/exchange"
)

// ReportSummary aggregates fill progress across an order's slices
type ReportSummary struct {
	Status       OrderStatus         `json:"status"`
	Progress     float64             `json:"progress"`
	FilledQty    float64             `json:"filled_qty"`
	Quantity     float64             `json:"quantity"`
	AveragePrice float64             `json:"average_price"`
	SliceCounts  map[SliceStatus]int `json:"slice_counts"`
}

// ReportPerformance compares achieved execution against the arrival
// price and the planned schedule
type ReportPerformance struct {
	ArrivalPrice      float64 `json:"arrival_price,omitempty"`
	SlippageBps       float64 `json:"slippage_bps"`
	ParticipationRate float64 `json:"participation_rate"`
}

// ReportTiming captures the order's lifecycle timestamps
type ReportTiming struct {
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   time.Time     `json:"started_at,omitempty"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
}

// ExecutionReport is the on-demand view of an order's execution. It is
// recomputed from the slice states every time it is requested
type ExecutionReport struct {
	OrderID     string            `json:"order_id"`
	Symbol      string            `json:"symbol"`
	Side        string            `json:"side"`
	Algorithm   Algorithm         `json:"algorithm"`
	Summary     ReportSummary     `json:"summary"`
	Performance ReportPerformance `json:"performance"`
	Timing      ReportTiming      `json:"timing"`
	FailReasons []string          `json:"fail_reasons,omitempty"`
}

// buildReport derives an execution report from the order's current
// slice states. Caller must hold the engine lock
func buildReport(order *ExecutionOrder, now time.Time) *ExecutionReport {
	counts := make(map[SliceStatus]int)
	filledQty := 0.0
	notional := 0.0
	plannedByNow := 0.0

	var start time.Time
	if !order.StartedAt.IsZero() {
		start = order.StartedAt
	} else {
		start = order.CreatedAt
	}
	elapsedSinceStart := now.Sub(start)
	if !order.CompletedAt.IsZero() {
		elapsedSinceStart = order.CompletedAt.Sub(start)
	}

	for _, s := range order.Slices {
		counts[s.Status]++
		if s.FillSize > 0 {
			filledQty += s.FillSize
			notional += s.FillSize * s.FillPrice
		}
		if s.ScheduledAt <= elapsedSinceStart {
			plannedByNow += s.Size
		}
	}

	progress := 0.0
	if order.Request.Quantity > 0 {
		progress = filledQty / order.Request.Quantity
	}
	avgPrice := 0.0
	if filledQty > 0 {
		avgPrice = notional / filledQty
	}

	participation := 0.0
	if plannedByNow > 0 {
		participation = filledQty / plannedByNow
		if participation > 1 {
			participation = 1
		}
	}

	report := &ExecutionReport{
		OrderID:   order.OrderID,
		Symbol:    order.Request.Symbol,
		Side:      string(order.Request.Side),
		Algorithm: order.Request.Algorithm,
		Summary: ReportSummary{
			Status:       order.Status,
			Progress:     progress,
			FilledQty:    filledQty,
			Quantity:     order.Request.Quantity,
			AveragePrice: avgPrice,
			SliceCounts:  counts,
		},
		Performance: ReportPerformance{
			ArrivalPrice:      order.ArrivalPrice,
			SlippageBps:       slippageBps(order.Request.Side, order.ArrivalPrice, avgPrice),
			ParticipationRate: participation,
		},
		Timing: ReportTiming{
			CreatedAt:   order.CreatedAt,
			StartedAt:   order.StartedAt,
			CompletedAt: order.CompletedAt,
			Elapsed:     elapsedSinceStart,
		},
		FailReasons: append([]string(nil), order.FailReasons...),
	}
	return report
}

// slippageBps measures achieved price against arrival price in basis
// points, signed so positive means worse than arrival for the taker
func slippageBps(side exchange.OrderSide, arrival, achieved float64) float64 {
	if arrival <= 0 || achieved <= 0 {
		return 0
	}
	bps := (achieved - arrival) / arrival * 10000
	if side == exchange.OrderSideSell {
		bps = -bps
	}
	return bps
}
