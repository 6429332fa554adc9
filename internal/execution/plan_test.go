package execution

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twapRequest(quantity float64, count int, duration time.Duration) *OrderRequest {
	return &OrderRequest{
		Symbol:    "BTCUSDT",
		Side:      "buy",
		Quantity:  quantity,
		OrderType: "market",
		Algorithm: AlgorithmTWAP,
		Params: AlgorithmParams{
			Duration:   duration,
			SliceCount: count,
		},
	}
}

func TestBuildSlicePlan_TWAPSizes(t *testing.T) {
	slices, err := BuildSlicePlan(twapRequest(0.6, 6, 30*time.Minute), time.Now())
	require.NoError(t, err)
	require.Len(t, slices, 6)

	for _, s := range slices {
		assert.InDelta(t, 0.1, s.Size, 1e-9)
	}
	assert.InDelta(t, 0.6, sliceSum(slices), 1e-9)
}

func TestBuildSlicePlan_TWAPSchedule(t *testing.T) {
	slices, err := BuildSlicePlan(twapRequest(0.6, 6, 30*time.Minute), time.Now())
	require.NoError(t, err)
	require.Len(t, slices, 6)

	for i, s := range slices {
		assert.Equal(t, time.Duration(i)*5*time.Minute, s.ScheduledAt)
	}
}

func TestBuildSlicePlan_TWAPRemainderInFinalSlice(t *testing.T) {
	slices, err := BuildSlicePlan(twapRequest(1.0, 3, 15*time.Minute), time.Now())
	require.NoError(t, err)
	require.Len(t, slices, 3)

	assert.InDelta(t, 1.0, sliceSum(slices), 1e-9)
}

func TestBuildSlicePlan_Iceberg(t *testing.T) {
	req := &OrderRequest{
		Symbol:    "BTCUSDT",
		Side:      "buy",
		Quantity:  0.35,
		OrderType: "market",
		Algorithm: AlgorithmIceberg,
		Params:    AlgorithmParams{SliceSize: 0.1},
	}

	slices, err := BuildSlicePlan(req, time.Now())
	require.NoError(t, err)
	require.Len(t, slices, 4)

	assert.InDelta(t, 0.1, slices[0].Size, 1e-9)
	assert.InDelta(t, 0.1, slices[1].Size, 1e-9)
	assert.InDelta(t, 0.1, slices[2].Size, 1e-9)
	assert.InDelta(t, 0.05, slices[3].Size, 1e-9)
	assert.InDelta(t, 0.35, sliceSum(slices), 1e-9)
}

func TestBuildSlicePlan_Immediate(t *testing.T) {
	req := &OrderRequest{
		Symbol:    "ETHUSDT",
		Side:      "sell",
		Quantity:  2.5,
		OrderType: "market",
		Algorithm: AlgorithmImmediate,
	}

	slices, err := BuildSlicePlan(req, time.Now())
	require.NoError(t, err)
	require.Len(t, slices, 1)
	assert.InDelta(t, 2.5, slices[0].Size, 1e-9)
	assert.Equal(t, time.Duration(0), slices[0].ScheduledAt)
}

func TestBuildSlicePlan_VWAPSumMatchesQuantity(t *testing.T) {
	req := &OrderRequest{
		Symbol:    "BTCUSDT",
		Side:      "buy",
		Quantity:  1.2,
		OrderType: "market",
		Algorithm: AlgorithmVWAP,
		Params: AlgorithmParams{
			Duration:   time.Hour,
			SliceCount: 8,
		},
	}

	slices, err := BuildSlicePlan(req, time.Now())
	require.NoError(t, err)
	require.Len(t, slices, 8)
	assert.InDelta(t, 1.2, sliceSum(slices), 1e-9)
}

func TestValidateRequest_QuantityBelowMinimum(t *testing.T) {
	req := twapRequest(0.00001, 2, time.Minute)
	err := ValidateRequest(req)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "below minimum")
}

func TestValidateRequest_LimitRequiresPrice(t *testing.T) {
	req := twapRequest(1, 2, time.Minute)
	req.OrderType = "limit"
	err := ValidateRequest(req)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "limit_price")

	req.LimitPrice = 50000
	assert.NoError(t, ValidateRequest(req))
}

func TestValidateRequest_InvalidAlgorithm(t *testing.T) {
	req := twapRequest(1, 2, time.Minute)
	req.Algorithm = "pov"
	assert.Error(t, ValidateRequest(req))
}

func TestValidateRequest_TWAPRequiresDuration(t *testing.T) {
	req := twapRequest(1, 2, 0)
	assert.Error(t, ValidateRequest(req))
}

func TestValidateRequest_IcebergRequiresSliceSize(t *testing.T) {
	req := &OrderRequest{
		Symbol:    "BTCUSDT",
		Side:      "buy",
		Quantity:  1,
		OrderType: "market",
		Algorithm: AlgorithmIceberg,
	}
	assert.Error(t, ValidateRequest(req))
}

func TestBuildSlicePlan_VWAPUsesReferenceTime(t *testing.T) {
	req := &OrderRequest{
		Symbol:    "BTCUSDT",
		Side:      "buy",
		Quantity:  1.0,
		OrderType: "market",
		Algorithm: AlgorithmVWAP,
		Params: AlgorithmParams{
			Duration:   4 * time.Hour,
			SliceCount: 4,
		},
	}

	// Same reference time yields the same plan regardless of wall clock
	ref := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	first, err := BuildSlicePlan(req, ref)
	require.NoError(t, err)
	second, err := BuildSlicePlan(req, ref)
	require.NoError(t, err)
	for i := range first {
		assert.InDelta(t, first[i].Size, second[i].Size, 1e-12)
	}

	// Hours 12-15 carry rising profile weight, so sizes rise too
	assert.Less(t, first[0].Size, first[3].Size)

	// An overnight reference lands on falling weight
	night, err := BuildSlicePlan(req, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Greater(t, math.Abs(first[0].Size-night[0].Size), 1e-6)
}

func TestVolumeWeights_Normalized(t *testing.T) {
	weights := volumeWeights(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), 30*time.Minute, 12)
	total := 0.0
	for _, w := range weights {
		assert.Greater(t, w, 0.0)
		total += w
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}
