package execution

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func reportOrder() *ExecutionOrder {
	created := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	return &ExecutionOrder{
		OrderID: "order-1",
		Request: OrderRequest{
			Symbol:    "BTCUSDT",
			Side:      "buy",
			Quantity:  0.6,
			OrderType: "market",
			Algorithm: AlgorithmTWAP,
		},
		Status:       OrderStatusRunning,
		ArrivalPrice: 50000,
		CreatedAt:    created,
		StartedAt:    created,
		Slices: []*ExecutionSlice{
			{Index: 0, Size: 0.2, ScheduledAt: 0, Status: SliceStatusFilled, FillSize: 0.2, FillPrice: 50100},
			{Index: 1, Size: 0.2, ScheduledAt: 5 * time.Minute, Status: SliceStatusFilled, FillSize: 0.2, FillPrice: 50300},
			{Index: 2, Size: 0.2, ScheduledAt: 10 * time.Minute, Status: SliceStatusPending},
		},
	}
}

func TestBuildReport_ProgressAndAveragePrice(t *testing.T) {
	order := reportOrder()
	now := order.StartedAt.Add(6 * time.Minute)

	report := buildReport(order, now)

	assert.InDelta(t, 0.4/0.6, report.Summary.Progress, 1e-9)
	assert.InDelta(t, 0.4, report.Summary.FilledQty, 1e-9)
	assert.InDelta(t, 50200, report.Summary.AveragePrice, 1e-6)
	assert.Equal(t, 2, report.Summary.SliceCounts[SliceStatusFilled])
	assert.Equal(t, 1, report.Summary.SliceCounts[SliceStatusPending])
}

func TestBuildReport_SlippageAgainstArrival(t *testing.T) {
	order := reportOrder()
	report := buildReport(order, order.StartedAt.Add(6*time.Minute))

	// Average 50200 vs arrival 50000 is 40bps adverse for a buy
	assert.InDelta(t, 40.0, report.Performance.SlippageBps, 1e-6)

	order.Request.Side = "sell"
	report = buildReport(order, order.StartedAt.Add(6*time.Minute))
	assert.InDelta(t, -40.0, report.Performance.SlippageBps, 1e-6)
}

func TestBuildReport_ParticipationRate(t *testing.T) {
	order := reportOrder()

	// Six minutes in, slices 0 and 1 were planned and both filled
	report := buildReport(order, order.StartedAt.Add(6*time.Minute))
	assert.InDelta(t, 1.0, report.Performance.ParticipationRate, 1e-9)

	// Eleven minutes in, 0.6 was planned but only 0.4 filled
	report = buildReport(order, order.StartedAt.Add(11*time.Minute))
	assert.InDelta(t, 0.4/0.6, report.Performance.ParticipationRate, 1e-9)
}

func TestBuildReport_NoFills(t *testing.T) {
	order := reportOrder()
	for _, s := range order.Slices {
		s.Status = SliceStatusPending
		s.FillSize = 0
		s.FillPrice = 0
	}

	report := buildReport(order, order.StartedAt)
	assert.Zero(t, report.Summary.Progress)
	assert.Zero(t, report.Summary.AveragePrice)
	assert.Zero(t, report.Performance.SlippageBps)
}

func TestBuildReport_ElapsedStopsAtCompletion(t *testing.T) {
	order := reportOrder()
	order.Status = OrderStatusCompleted
	order.CompletedAt = order.StartedAt.Add(12 * time.Minute)

	report := buildReport(order, order.StartedAt.Add(time.Hour))
	assert.Equal(t, 12*time.Minute, report.Timing.Elapsed)
}
