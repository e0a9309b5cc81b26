// Package technical implements the price-history metrics behind the
// assistant's analysis: volatility, trend, support/resistance, momentum
// and a simple moving average. All functions are pure and operate on a
// price series ordered oldest first.
package technical

import (
	"math"
	"slices"
)

// Trend is a qualitative trend classification.
type Trend string

const (
	TrendStrongUp     Trend = "strong uptrend"
	TrendMildUp       Trend = "mild uptrend"
	TrendSideways     Trend = "sideways consolidation"
	TrendMildDown     Trend = "mild downtrend"
	TrendStrongDown   Trend = "strong downtrend"
	TrendInsufficient Trend = "insufficient data"
)

// Minimum series lengths.
const (
	MinVolatilityPoints = 2
	MinLevelPoints      = 2
	MinTrendPoints      = 5
	MomentumWindow      = 5
)

// Percentiles used for support and resistance.
const (
	SupportPercentile    = 0.15
	ResistancePercentile = 0.85
)

// Levels holds support and resistance prices.
type Levels struct {
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
}

// Returns computes day-over-day fractional returns. Steps from a zero
// price are skipped.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		out = append(out, (prices[i]-prices[i-1])/prices[i-1])
	}
	return out
}

// Volatility is the population standard deviation of day-over-day returns,
// times 100. It is 0 for fewer than two points.
func Volatility(prices []float64) float64 {
	if len(prices) < MinVolatilityPoints {
		return 0
	}
	r := Returns(prices)
	if len(r) == 0 {
		return 0
	}
	return stddev(r, avg(r)) * 100
}

// TrendOf compares the mean of the first three points with the mean of the
// last three and classifies the percent delta. It needs at least five
// points; the delta is returned alongside the label.
func TrendOf(prices []float64) (Trend, float64) {
	if len(prices) < MinTrendPoints {
		return TrendInsufficient, 0
	}
	first := avg(prices[:3])
	last := avg(prices[len(prices)-3:])
	if first == 0 {
		return TrendSideways, 0
	}
	delta := (last - first) / first * 100

	switch {
	case delta > 3:
		return TrendStrongUp, delta
	case delta > 1:
		return TrendMildUp, delta
	case delta < -3:
		return TrendStrongDown, delta
	case delta < -1:
		return TrendMildDown, delta
	default:
		return TrendSideways, delta
	}
}

// IsUp reports whether t is one of the uptrend labels.
func (t Trend) IsUp() bool { return t == TrendStrongUp || t == TrendMildUp }

// IsDown reports whether t is one of the downtrend labels.
func (t Trend) IsDown() bool { return t == TrendStrongDown || t == TrendMildDown }

// SupportResistance returns the 15th and 85th nearest-rank percentiles of
// the sorted prices. It is the zero Levels for fewer than two points.
func SupportResistance(prices []float64) Levels {
	if len(prices) < MinLevelPoints {
		return Levels{}
	}
	sorted := slices.Clone(prices)
	slices.Sort(sorted)
	return Levels{
		Support:    nearestRank(sorted, SupportPercentile),
		Resistance: nearestRank(sorted, ResistancePercentile),
	}
}

// Momentum blends the daily percent change (weight 0.4) with the percent
// change over the last five history points (weight 0.6). With fewer than
// five points it is the daily change alone.
func Momentum(dailyPct float64, prices []float64) float64 {
	if len(prices) < MomentumWindow {
		return dailyPct
	}
	base := prices[len(prices)-MomentumWindow]
	if base == 0 {
		return dailyPct
	}
	window := (prices[len(prices)-1] - base) / base * 100
	return 0.4*dailyPct + 0.6*window
}

// SMA calculates the simple moving average for the given period.
func SMA(data []float64, period int) []float64 {
	n := len(data)
	if n < period || period <= 0 {
		return nil
	}

	result := make([]float64, n)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	result[period-1] = sum / float64(period)

	for i := period; i < n; i++ {
		sum += data[i] - data[i-period]
		result[i] = sum / float64(period)
	}

	return result
}

// SMALatest returns the most recent SMA value, or 0 when there is not
// enough data.
func SMALatest(data []float64, period int) float64 {
	vals := SMA(data, period)
	if len(vals) == 0 {
		return 0
	}
	return vals[len(vals)-1]
}

// --- helper functions ---

// nearestRank returns the p-th percentile of sorted data without
// interpolation: the element at rank ceil(p*n).
func nearestRank(sorted []float64, p float64) float64 {
	n := len(sorted)
	idx := int(math.Ceil(p*float64(n)-1e-9)) - 1
	idx = max(0, min(idx, n-1))
	return sorted[idx]
}

func avg(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

func stddev(data []float64, mean float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sumSq := 0.0
	for _, v := range data {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(data)))
}
