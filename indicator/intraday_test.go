package indicator

import (
	"math"
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestAverageTrueRange(t *testing.T) {
	// Insufficient candles for the averaging period.
	assert.Equal(t, AverageTrueRange(buildSeries(14, 100, 100), 14), float64(0))

	// Flat candles have a constant high-low range.
	candles := buildSeries(20, 100, 100)
	flat := AverageTrueRange(candles, 14)
	assert.Equal(t, math.Abs(flat-1.2) < 1e-9, true)

	// A gap above the prior close widens the true range.
	candles[0].High = 105
	got := AverageTrueRange(candles, 14)
	assert.Equal(t, got > flat, true)
}

func TestBollingerBandwidth(t *testing.T) {
	// Flat closes collapse the bands.
	candles := buildSeries(25, 100, 100)
	assert.Equal(t, BollingerBandwidth(candles, 20), float64(0))

	assert.Equal(t, BollingerBandwidth(buildSeries(10, 100, 100), 20), float64(0))

	// Dispersed closes widen the bands.
	candles[4].Close = 110
	candles[9].Close = 90
	assert.Equal(t, BollingerBandwidth(candles, 20) > 0, true)
}

func TestCompressed(t *testing.T) {
	candles := buildSeries(25, 100, 100)
	candles[4].Close = 100.5
	candles[9].Close = 99.5

	bandwidth := BollingerBandwidth(candles, 20)
	assert.Equal(t, bandwidth > 0, true)

	assert.Equal(t, Compressed(candles, 20, bandwidth), true)
	assert.Equal(t, Compressed(candles, 20, bandwidth/2), false)

	// A fully flat series never reports compression, zero bandwidth means no
	// measurable squeeze.
	assert.Equal(t, Compressed(buildSeries(25, 100, 100), 20, 0.5), false)
}
