package indicator

import (
	"math"

	"github.com/dnldd/breakout/shared"
)

const (
	// atrPeriod is the default averaging period for the true range.
	atrPeriod = 14
	// bollingerPeriod is the default bollinger band period.
	bollingerPeriod = 20
	// bollingerMultiplier is the standard deviation multiplier for the bands.
	bollingerMultiplier = 2.0
)

// AverageTrueRange returns the mean true range over the provided period.
func AverageTrueRange(candles []shared.Candle, period int) float64 {
	if period <= 0 {
		period = atrPeriod
	}
	if len(candles) < period+1 {
		return 0
	}

	var sum float64
	for idx := 0; idx < period; idx++ {
		current := candles[idx]
		prev := candles[idx+1]

		trueRange := current.High - current.Low
		highGap := math.Abs(current.High - prev.Close)
		if highGap > trueRange {
			trueRange = highGap
		}
		lowGap := math.Abs(current.Low - prev.Close)
		if lowGap > trueRange {
			trueRange = lowGap
		}

		sum += trueRange
	}

	return sum / float64(period)
}

// BollingerBandwidth returns the normalized distance between the upper and
// lower bollinger bands over the provided period.
func BollingerBandwidth(candles []shared.Candle, period int) float64 {
	if period <= 0 {
		period = bollingerPeriod
	}
	if len(candles) < period {
		return 0
	}

	var sum float64
	for idx := 0; idx < period; idx++ {
		sum += candles[idx].Close
	}
	middle := sum / float64(period)
	if middle == 0 {
		return 0
	}

	var variance float64
	for idx := 0; idx < period; idx++ {
		diff := candles[idx].Close - middle
		variance += diff * diff
	}
	stddev := math.Sqrt(variance / float64(period))

	upper := middle + bollingerMultiplier*stddev
	lower := middle - bollingerMultiplier*stddev

	return (upper - lower) / middle
}

// Compressed reports whether the series is in a volatility squeeze, a
// precondition for the intraday breakout variant.
func Compressed(candles []shared.Candle, period int, maxBandwidth float64) bool {
	bandwidth := BollingerBandwidth(candles, period)

	return bandwidth > 0 && bandwidth <= maxBandwidth
}
