package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoricalVaR_EmptySeries(t *testing.T) {
	assert.Zero(t, HistoricalVaR(nil, 0.95))
	assert.Zero(t, HistoricalVaR([]float64{}, 0.99))
}

func TestHistoricalVaR_PicksTailQuantile(t *testing.T) {
	// 20 returns, 95% confidence: index floor(0.05*20)=1, second worst
	returns := make([]float64, 20)
	for i := range returns {
		returns[i] = float64(i-10) / 100 // -0.10 .. 0.09
	}
	v := HistoricalVaR(returns, 0.95)
	assert.InDelta(t, 0.09, v, 1e-9)
}

func TestHistoricalVaR_IsAbsoluteValue(t *testing.T) {
	returns := []float64{-0.05, -0.02, 0.01, 0.03}
	v := HistoricalVaR(returns, 0.95)
	assert.Greater(t, v, 0.0)
}

func TestExpectedShortfall_MeanOfTail(t *testing.T) {
	returns := make([]float64, 20)
	for i := range returns {
		returns[i] = float64(i-10) / 100
	}
	es := ExpectedShortfall(returns, 0.95)
	// Tail is the two worst returns, -0.10 and -0.09
	assert.InDelta(t, 0.095, es, 1e-9)
}

func TestExpectedShortfall_EmptySeries(t *testing.T) {
	assert.Zero(t, ExpectedShortfall(nil, 0.95))
}

func TestPearsonCorrelation_SelfIsOne(t *testing.T) {
	series := []float64{0.01, -0.02, 0.03, 0.005, -0.01}
	assert.InDelta(t, 1.0, PearsonCorrelation(series, series), 1e-9)
}

func TestPearsonCorrelation_InverseIsMinusOne(t *testing.T) {
	a := []float64{0.01, -0.02, 0.03, 0.005, -0.01}
	b := make([]float64, len(a))
	for i, v := range a {
		b[i] = -v
	}
	assert.InDelta(t, -1.0, PearsonCorrelation(a, b), 1e-9)
}

func TestPearsonCorrelation_TooFewSamples(t *testing.T) {
	assert.Zero(t, PearsonCorrelation([]float64{0.01}, []float64{0.02}))
	assert.Zero(t, PearsonCorrelation(nil, []float64{0.01, 0.02}))
}

func TestPearsonCorrelation_ConstantSeries(t *testing.T) {
	constant := []float64{0.01, 0.01, 0.01}
	varying := []float64{0.01, 0.02, 0.03}
	assert.Zero(t, PearsonCorrelation(constant, varying))
}

func TestSharpeRatio(t *testing.T) {
	assert.Zero(t, SharpeRatio(nil))
	assert.Zero(t, SharpeRatio([]float64{0.01}))

	returns := []float64{0.01, 0.02, 0.015, 0.005}
	m := mean(returns)
	s := stdDev(returns)
	assert.InDelta(t, m/s, SharpeRatio(returns), 1e-9)
}

func TestSortinoRatio_NoDownsideReturnsZero(t *testing.T) {
	returns := []float64{0.01, 0.02, 0.03}
	assert.Zero(t, SortinoRatio(returns))
}

func TestSortinoRatio_WithDownside(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.03, -0.02, 0.01}
	s := SortinoRatio(returns)
	assert.False(t, math.IsNaN(s))
	assert.False(t, math.IsInf(s, 0))
	assert.Greater(t, s, 0.0)
}

func TestMaxDrawdown(t *testing.T) {
	assert.Zero(t, MaxDrawdown(nil))

	// Rises then falls: drawdown comes from the post-peak decline
	returns := []float64{0.10, 0.10, -0.15, -0.05}
	dd := MaxDrawdown(returns)
	assert.Greater(t, dd, 0.0)
	assert.LessOrEqual(t, dd, 1.0)
}

func TestMaxDrawdown_MonotonicRiseIsZero(t *testing.T) {
	returns := []float64{0.01, 0.02, 0.01, 0.005}
	assert.Zero(t, MaxDrawdown(returns))
}

func TestSimpleReturns(t *testing.T) {
	assert.Empty(t, SimpleReturns([]float64{100}))

	prices := []float64{100, 110, 99}
	returns := SimpleReturns(prices)
	assert.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)
}

func TestPriceHistory_RingBufferEvictsOldest(t *testing.T) {
	h := newPriceHistory(3)
	for i := 1; i <= 5; i++ {
		h.Append(float64(i * 100))
	}

	assert.Equal(t, 3, h.Len())
	assert.InDelta(t, 500, h.LastPrice(), 1e-9)
	assert.Len(t, h.Returns(), 3)
}
