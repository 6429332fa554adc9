package execution

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/Khrafts/hyper-mcp-sub002/internal/errors"
)

const (
	// MinOrderQuantity is the smallest tradeable parent-order size
	MinOrderQuantity = 0.0001

	// sizeEpsilon absorbs float rounding when comparing slice sums
	sizeEpsilon = 1e-9

	// maxJitterFraction bounds TWAP timing jitter per bucket
	maxJitterFraction = 0.1

	// maxSizeRandomization bounds iceberg size randomization
	maxSizeRandomization = 0.1
)

// ValidateRequest checks a submit-time order specification and returns
// a validation error describing the first problem found
func ValidateRequest(req *OrderRequest) error {
	if req.Symbol == "" {
		return errors.NewValidationError("execution", "validate_order", "symbol is required")
	}
	if req.Side != "buy" && req.Side != "sell" {
		return errors.NewValidationError("execution", "validate_order", fmt.Sprintf("invalid side %q, must be buy or sell", req.Side))
	}
	if req.Quantity < MinOrderQuantity {
		return errors.NewValidationError("execution", "validate_order", fmt.Sprintf("quantity %.8f below minimum %.4f", req.Quantity, MinOrderQuantity))
	}
	switch req.OrderType {
	case "market":
	case "limit":
		if req.LimitPrice <= 0 {
			return errors.NewValidationError("execution", "validate_order", "limit orders require a positive limit_price")
		}
	default:
		return errors.NewValidationError("execution", "validate_order", fmt.Sprintf("invalid order_type %q, must be market or limit", req.OrderType))
	}
	if req.TimeInForce != "" && req.TimeInForce != "gtc" && req.TimeInForce != "ioc" && req.TimeInForce != "fok" {
		return errors.NewValidationError("execution", "validate_order", fmt.Sprintf("invalid time_in_force %q, must be gtc, ioc or fok", req.TimeInForce))
	}

	switch req.Algorithm {
	case AlgorithmTWAP, AlgorithmVWAP:
		if req.Params.Duration <= 0 {
			return errors.NewValidationError("execution", "validate_order", fmt.Sprintf("%s requires a positive duration", req.Algorithm))
		}
		if req.Params.SliceCount < 1 {
			return errors.NewValidationError("execution", "validate_order", fmt.Sprintf("%s requires slice_count >= 1", req.Algorithm))
		}
	case AlgorithmIceberg:
		if req.Params.SliceSize <= 0 {
			return errors.NewValidationError("execution", "validate_order", "iceberg requires a positive slice_size")
		}
		if req.Params.Participation != 0 && (req.Params.Participation <= 0 || req.Params.Participation > 1) {
			return errors.NewValidationError("execution", "validate_order", "participation must be in (0, 1]")
		}
	case AlgorithmImmediate:
	default:
		return errors.NewValidationError("execution", "validate_order", fmt.Sprintf("invalid algorithm %q, must be twap, vwap, iceberg or immediate", req.Algorithm))
	}

	return nil
}

// BuildSlicePlan turns a validated order request into an ordered slice
// plan. The sum of slice sizes equals the order quantity within
// rounding epsilon. The reference time anchors VWAP buckets onto the
// intraday profile and comes from the caller's clock
func BuildSlicePlan(req *OrderRequest, now time.Time) ([]*ExecutionSlice, error) {
	switch req.Algorithm {
	case AlgorithmTWAP:
		return buildTWAPPlan(req), nil
	case AlgorithmVWAP:
		return buildVWAPPlan(req, now), nil
	case AlgorithmIceberg:
		return buildIcebergPlan(req), nil
	case AlgorithmImmediate:
		return buildImmediatePlan(req), nil
	default:
		return nil, errors.NewValidationError("execution", "build_plan", fmt.Sprintf("unknown algorithm %q", req.Algorithm))
	}
}

// buildTWAPPlan partitions the duration into equal time buckets with
// equal slice sizes; the rounding remainder goes to the final slice
func buildTWAPPlan(req *OrderRequest) []*ExecutionSlice {
	count := req.Params.SliceCount
	bucket := req.Params.Duration / time.Duration(count)
	baseSize := req.Quantity / float64(count)

	slices := make([]*ExecutionSlice, 0, count)
	allocated := 0.0
	for i := 0; i < count; i++ {
		size := baseSize
		if i == count-1 {
			size = req.Quantity - allocated
		}
		offset := time.Duration(i) * bucket
		if req.Params.Jitter && bucket > 0 {
			offset += jitterOffset(bucket, i)
		}
		slices = append(slices, newSlice(i, size, offset))
		allocated += size
	}
	return slices
}

// buildVWAPPlan sizes slices by an intraday volume profile bucketed by
// time of day; with no profile coverage the weights degrade to uniform
func buildVWAPPlan(req *OrderRequest, now time.Time) []*ExecutionSlice {
	count := req.Params.SliceCount
	bucket := req.Params.Duration / time.Duration(count)

	weights := volumeWeights(now, bucket, count)

	slices := make([]*ExecutionSlice, 0, count)
	allocated := 0.0
	for i := 0; i < count; i++ {
		size := req.Quantity * weights[i]
		if i == count-1 {
			size = req.Quantity - allocated
		}
		slices = append(slices, newSlice(i, size, time.Duration(i)*bucket))
		allocated += size
	}
	return slices
}

// buildIcebergPlan emits fixed visible slices until the quantity is
// exhausted; the final slice absorbs the remainder
func buildIcebergPlan(req *OrderRequest) []*ExecutionSlice {
	var slices []*ExecutionSlice
	remaining := req.Quantity
	for i := 0; remaining > sizeEpsilon; i++ {
		size := req.Params.SliceSize
		if req.Params.Randomize {
			size = randomizeSize(size, i)
		}
		if size > remaining {
			size = remaining
		}
		slices = append(slices, newSlice(i, size, 0))
		remaining -= size
	}
	return slices
}

func buildImmediatePlan(req *OrderRequest) []*ExecutionSlice {
	return []*ExecutionSlice{newSlice(0, req.Quantity, 0)}
}

func newSlice(index int, size float64, offset time.Duration) *ExecutionSlice {
	return &ExecutionSlice{
		SliceID:     uuid.New().String(),
		Index:       index,
		Size:        size,
		ScheduledAt: offset,
		Status:      SliceStatusPending,
	}
}

// jitterOffset returns a bounded random shift within one bucket.
// The first slice is never shifted before zero
func jitterOffset(bucket time.Duration, index int) time.Duration {
	span := float64(bucket) * maxJitterFraction
	shift := (rand.Float64()*2 - 1) * span
	if index == 0 && shift < 0 {
		shift = -shift
	}
	return time.Duration(shift)
}

// randomizeSize varies a visible slice size by a bounded fraction so
// consecutive iceberg reveals are not byte-identical
func randomizeSize(size float64, index int) float64 {
	factor := 1 + (rand.Float64()*2-1)*maxSizeRandomization
	randomized := size * factor
	if randomized < MinOrderQuantity {
		return size
	}
	return randomized
}

// intradayVolumeProfile holds relative trading activity per hour of
// day (UTC). Crypto volume peaks around the US/EU session overlap
var intradayVolumeProfile = [24]float64{
	0.7, 0.6, 0.6, 0.5, 0.5, 0.6,
	0.7, 0.8, 0.9, 1.0, 1.1, 1.1,
	1.2, 1.3, 1.4, 1.5, 1.5, 1.4,
	1.3, 1.2, 1.0, 0.9, 0.8, 0.7,
}

// volumeWeights maps each slice's bucket onto the intraday profile and
// normalizes so weights sum to 1
func volumeWeights(start time.Time, bucket time.Duration, count int) []float64 {
	weights := make([]float64, count)
	total := 0.0
	for i := 0; i < count; i++ {
		hour := start.Add(time.Duration(i) * bucket).UTC().Hour()
		weights[i] = intradayVolumeProfile[hour]
		total += weights[i]
	}
	if total <= 0 {
		uniform := 1.0 / float64(count)
		for i := range weights {
			weights[i] = uniform
		}
		return weights
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}

// sliceSum returns the total planned size across a slice plan
func sliceSum(slices []*ExecutionSlice) float64 {
	total := 0.0
	for _, s := range slices {
		total += s.Size
	}
	return math.Abs(total)
}
