// Package indicator provides pure, stateless functions computing breakout
// metrics over ordered candle slices. All functions expect candles ordered
// newest first and return zero values when there is insufficient data.
package indicator

import (
	"math"
	"sort"

	"github.com/dnldd/breakout/shared"
)

const (
	// levelWindowSkip is the number of most recent candles excluded from
	// level estimation so the breakout bar itself never forms the baseline.
	levelWindowSkip = 2
	// levelWindowEnd bounds the level estimation window.
	levelWindowEnd = 22
	// minLevelCandles is the minimum series length for level estimation.
	minLevelCandles = 20
	// AverageVolumePeriod is the default averaging period for volume.
	AverageVolumePeriod = 24
	// consolidationPeriod is the default volatility measurement period.
	consolidationPeriod = 12
	// momentumWindow is the number of recent candles inspected for momentum.
	momentumWindow = 3
	// momentumMinCount is the minimum directional candles within the window.
	momentumMinCount = 2
)

// ResistanceLevel estimates the statistical price ceiling as the 95th
// percentile of highs over the level window.
func ResistanceLevel(candles []shared.Candle) float64 {
	if len(candles) < minLevelCandles {
		return 0
	}

	end := levelWindowEnd
	if end > len(candles) {
		end = len(candles)
	}
	window := candles[levelWindowSkip:end]

	highs := make([]float64, len(window))
	for idx := range window {
		highs[idx] = window[idx].High
	}
	sort.Float64s(highs)

	idx := int(float64(len(highs)) * 0.95)
	if idx >= len(highs) {
		idx = len(highs) - 1
	}

	return highs[idx]
}

// SupportLevel estimates the statistical price floor as the 5th percentile of
// lows over the level window.
func SupportLevel(candles []shared.Candle) float64 {
	if len(candles) < minLevelCandles {
		return 0
	}

	end := levelWindowEnd
	if end > len(candles) {
		end = len(candles)
	}
	window := candles[levelWindowSkip:end]

	lows := make([]float64, len(window))
	for idx := range window {
		lows[idx] = window[idx].Low
	}
	sort.Float64s(lows)

	idx := int(float64(len(lows)) * 0.05)
	if idx < 0 {
		idx = 0
	}

	return lows[idx]
}

// AverageVolume returns the mean volume of the first period candles.
func AverageVolume(candles []shared.Candle, period int) float64 {
	if period <= 0 {
		period = AverageVolumePeriod
	}
	if len(candles) < period {
		return 0
	}

	var sum float64
	for idx := 0; idx < period; idx++ {
		sum += candles[idx].Volume
	}

	return sum / float64(period)
}

// ConsolidationVolatility returns the coefficient of variation of closes over
// the provided period, excluding the very latest candle.
func ConsolidationVolatility(candles []shared.Candle, period int) float64 {
	if period <= 0 {
		period = consolidationPeriod
	}
	if len(candles) < period+1 {
		return 0
	}

	window := candles[1 : period+1]

	var sum float64
	for idx := range window {
		sum += window[idx].Close
	}
	mean := sum / float64(len(window))
	if mean == 0 {
		return 0
	}

	var variance float64
	for idx := range window {
		diff := window[idx].Close - mean
		variance += diff * diff
	}
	stddev := math.Sqrt(variance / float64(len(window)))

	return stddev / mean
}

// ConsolidationThreshold pairs a consolidation period with the volatility
// ceiling qualifying it.
type ConsolidationThreshold struct {
	Hours         int
	MaxVolatility float64
}

var (
	// DefaultConsolidationLadder is the standard consolidation qualification
	// ladder, largest period first.
	DefaultConsolidationLadder = []ConsolidationThreshold{
		{Hours: 12, MaxVolatility: 0.02},
		{Hours: 8, MaxVolatility: 0.03},
		{Hours: 4, MaxVolatility: 0.04},
	}

	// ExtendedConsolidationLadder prepends a day-long rung for asset classes
	// requiring twenty four hours of consolidation.
	ExtendedConsolidationLadder = []ConsolidationThreshold{
		{Hours: 24, MaxVolatility: 0.015},
		{Hours: 12, MaxVolatility: 0.02},
		{Hours: 8, MaxVolatility: 0.03},
		{Hours: 4, MaxVolatility: 0.04},
	}
)

// ConsolidationHours returns the largest ladder period whose volatility
// ceiling is satisfied, or zero when none is.
func ConsolidationHours(candles []shared.Candle, ladder []ConsolidationThreshold) int {
	for _, threshold := range ladder {
		if len(candles) < threshold.Hours+1 {
			continue
		}

		volatility := ConsolidationVolatility(candles, threshold.Hours)
		if volatility <= threshold.MaxVolatility {
			return threshold.Hours
		}
	}

	return 0
}

// SustainedMomentum reports whether at least two of the last three candles
// moved in the provided direction.
func SustainedMomentum(candles []shared.Candle, bullish bool) bool {
	if len(candles) < momentumWindow {
		return false
	}

	var count int
	for idx := 0; idx < momentumWindow; idx++ {
		switch {
		case bullish && candles[idx].Bullish():
			count++
		case !bullish && candles[idx].Bearish():
			count++
		}
	}

	return count >= momentumMinCount
}
