package features

import (
	"errors"
	"math"
	"sort"

	"github.com/sei-dlp/engine/internal/types"
)

// ErrInsufficientData indicates that not enough data points were provided
// to calculate volatility (need at least 2 points for 1 return).
var ErrInsufficientData = errors.New("insufficient data points to calculate volatility")

// EstimateAnnualizedVolatility calculates annualized historical volatility from
// a price series using the standard deviation of percent changes. It assumes
// the series is sorted chronologically and sorts it first if not. The
// annualizationFactor should match the data frequency (e.g., 288 for
// five-minute samples scaled to a day, 365 for daily).
func EstimateAnnualizedVolatility(series types.HistoricalSeries, annualizationFactor float64) (float64, error) {
	n := len(series)

	if n < 2 {
		return 0, ErrInsufficientData
	}

	sorted := make(types.HistoricalSeries, n)
	copy(sorted, series)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	returns := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		prev := sorted[i-1].Price
		curr := sorted[i].Price

		// Non-positive prices would produce meaningless returns.
		if prev <= 0 || curr <= 0 {
			continue
		}
		returns = append(returns, (curr-prev)/prev)
	}

	if len(returns) == 0 {
		return 0, ErrInsufficientData
	}

	vol := stdDev(returns) * math.Sqrt(annualizationFactor)
	if math.IsNaN(vol) || math.IsInf(vol, 0) {
		return 0, ErrInsufficientData
	}
	return vol, nil
}

// stdDev is the population standard deviation (N, not N-1).
func stdDev(values []float64) float64 {
	n := float64(len(values))
	if n == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n

	var sumSqDiff float64
	for _, v := range values {
		sumSqDiff += (v - mean) * (v - mean)
	}
	return math.Sqrt(sumSqDiff / n)
}

// rollingStd is the standard deviation of the trailing window of values.
// Returns 0 when fewer than two values fall in the window.
func rollingStd(values []float64, window int) float64 {
	if window < 2 || len(values) < 2 {
		return 0
	}
	if len(values) < window {
		window = len(values)
	}
	return stdDev(values[len(values)-window:])
}

// pearsonCorrelation is the sample Pearson correlation of two equal-length
// series. Returns 0 for mismatched lengths, short series, or zero variance.
func pearsonCorrelation(xs, ys []float64) float64 {
	n := len(xs)
	if n != len(ys) || n < 2 {
		return 0
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}

	corr := cov / math.Sqrt(varX*varY)
	if math.IsNaN(corr) || math.IsInf(corr, 0) {
		return 0
	}
	return corr
}
