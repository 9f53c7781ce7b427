package shared

import (
	"math"
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestClassifySymbol(t *testing.T) {
	tests := []struct {
		symbol string
		want   AssetClass
	}{
		{symbol: "EURUSD", want: Forex},
		{symbol: "gbpusd", want: Forex},
		{symbol: "AUDNZD=X", want: Forex},
		{symbol: "XAUUSD", want: Metal},
		{symbol: "XAGUSD", want: Metal},
		{symbol: "USOIL", want: Oil},
		{symbol: "WTIUSD", want: Oil},
		{symbol: "AAPL", want: USStock},
		{symbol: "TSLA", want: USStock},
		{symbol: "RELIANCE.NS", want: IndStock},
		{symbol: "TATAMOTORS.BO", want: IndStock},
		{symbol: "BTCUSDT", want: Crypto},
		{symbol: "ETHUSDT", want: Crypto},
	}

	for _, test := range tests {
		got := ClassifySymbol(test.symbol)
		if got != test.want {
			t.Errorf("%s: expected class %s, got %s", test.symbol,
				test.want.String(), got.String())
		}
	}
}

func TestFetchClassConfig(t *testing.T) {
	crypto := FetchClassConfig(Crypto)
	assert.Equal(t, crypto.MinVolumeRatio, 2.0)
	assert.Equal(t, crypto.RequireMomentum, false)
	assert.Equal(t, crypto.RequiredConsolidationHours, 0)

	forex := FetchClassConfig(Forex)
	assert.Equal(t, forex.MinPriceChangePct, 0.5)
	assert.Equal(t, forex.RequiredConsolidationHours, 24)
	assert.Equal(t, forex.RequireMomentum, true)

	// Unknown classes fall back to the crypto thresholds.
	unknown := FetchClassConfig(AssetClass(99))
	assert.Equal(t, unknown, crypto)
}

func TestFetchConfidenceWeights(t *testing.T) {
	classes := []AssetClass{Crypto, Forex, Metal, Oil, USStock, IndStock}

	for _, class := range classes {
		weights := FetchConfidenceWeights(class)

		sum := weights.Volume + weights.Price + weights.Consolidation + weights.Momentum
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("%s: expected weights summing to 1, got %f", class.String(), sum)
		}

		if weights.Volume < 0 || weights.Price < 0 ||
			weights.Consolidation < 0 || weights.Momentum < 0 {
			t.Errorf("%s: expected non-negative weights, got %+v", class.String(), weights)
		}
	}

	// Forex shifts emphasis from price change to consolidation.
	forex := FetchConfidenceWeights(Forex)
	base := FetchConfidenceWeights(Crypto)
	assert.Equal(t, forex.Price < base.Price, true)
	assert.Equal(t, forex.Consolidation > base.Consolidation, true)

	// Stocks weight all metrics equally.
	stocks := FetchConfidenceWeights(USStock)
	assert.Equal(t, stocks.Volume, 0.25)
	assert.Equal(t, stocks.Price, 0.25)
	assert.Equal(t, stocks.Consolidation, 0.25)
	assert.Equal(t, stocks.Momentum, 0.25)
}
