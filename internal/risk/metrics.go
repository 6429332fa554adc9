package risk

import (
	"math"
	"sort"
)

// HistoricalVaR computes Value-at-Risk at the given confidence level using
// the historical-simulation method: no distributional assumption, the loss
// quantile is read directly off the sorted return series.
func HistoricalVaR(returns []float64, confidence float64) float64 {
	n := len(returns)
	if n == 0 {
		return 0
	}

	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	index := int(math.Floor((1 - confidence) * float64(n)))
	if index >= n {
		index = n - 1
	}
	if index < 0 {
		index = 0
	}

	return math.Abs(sorted[index])
}

// ExpectedShortfall computes the mean loss in the tail at or below the VaR
// cutoff for the given confidence level
func ExpectedShortfall(returns []float64, confidence float64) float64 {
	n := len(returns)
	if n == 0 {
		return 0
	}

	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	cutoff := int(math.Floor((1 - confidence) * float64(n)))
	if cutoff >= n {
		cutoff = n - 1
	}

	tail := sorted[:cutoff+1]
	if len(tail) == 0 {
		return 0
	}

	sum := 0.0
	for _, r := range tail {
		sum += r
	}
	return math.Abs(sum / float64(len(tail)))
}

// PearsonCorrelation computes the correlation coefficient between two return
// series. Series are truncated to their overlap; fewer than 2 overlapping
// samples yields 0, as does a series with zero variance.
func PearsonCorrelation(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return 0
	}

	a = a[:n]
	b = b[:n]

	meanA := mean(a)
	meanB := mean(b)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}

	if varA == 0 || varB == 0 {
		return 0
	}

	return cov / math.Sqrt(varA*varB)
}

// SharpeRatio computes mean return over sample standard deviation.
// Returns 0 when fewer than 2 samples are available or volatility is zero.
func SharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	sd := stdDev(returns)
	if sd == 0 {
		return 0
	}

	return mean(returns) / sd
}

// SortinoRatio computes mean return over downside deviation (negative
// returns only). A series with no negative returns has no downside to
// measure; the ratio is defined as 0 rather than unbounded.
func SortinoRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return 0
	}

	var sumSquares float64
	for _, r := range downside {
		sumSquares += r * r
	}
	downsideDev := math.Sqrt(sumSquares / float64(len(downside)))
	if downsideDev == 0 {
		return 0
	}

	return mean(returns) / downsideDev
}

// MaxDrawdown computes the largest peak-to-trough decline of the cumulative
// return path, normalized by the peak
func MaxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	cumulative := 1.0
	peak := 1.0
	maxDD := 0.0

	for _, r := range returns {
		cumulative *= 1 + r
		if cumulative > peak {
			peak = cumulative
		}
		if peak > 0 {
			dd := (peak - cumulative) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}

	return maxDD
}

// SimpleReturns converts a price series into simple period-over-period returns
func SimpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}
	return returns
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the sample standard deviation (n-1 denominator)
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	avg := mean(values)
	sumSquares := 0.0
	for _, v := range values {
		diff := v - avg
		sumSquares += diff * diff
	}

	return math.Sqrt(sumSquares / float64(len(values)-1))
}
