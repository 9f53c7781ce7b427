package shared

import (
	"strings"
)

// AssetClass represents the tradable asset class of a symbol.
type AssetClass int

const (
	Crypto AssetClass = iota
	Forex
	Metal
	Oil
	USStock
	IndStock
)

// String stringifies the provided asset class.
func (a AssetClass) String() string {
	switch a {
	case Crypto:
		return "crypto"
	case Forex:
		return "forex"
	case Metal:
		return "metal"
	case Oil:
		return "oil"
	case USStock:
		return "us_stock"
	case IndStock:
		return "ind_stock"
	default:
		return "unknown"
	}
}

var (
	forexSymbols = map[string]struct{}{
		"EURUSD": {}, "GBPUSD": {}, "USDJPY": {}, "USDCHF": {}, "AUDUSD": {},
		"USDCAD": {}, "NZDUSD": {}, "EURGBP": {}, "EURJPY": {}, "GBPJPY": {},
	}
	metalSymbols = map[string]struct{}{
		"XAUUSD": {}, "XAGUSD": {}, "XPTUSD": {}, "XPDUSD": {},
	}
	oilSymbols = map[string]struct{}{
		"USOIL": {}, "UKOIL": {}, "WTIUSD": {}, "BCOUSD": {},
	}
	usStockSymbols = map[string]struct{}{
		"AAPL": {}, "MSFT": {}, "NVDA": {}, "AMZN": {}, "GOOGL": {},
		"META": {}, "TSLA": {}, "NFLX": {}, "AMD": {}, "INTC": {},
	}
)

// ClassifySymbol derives the asset class of the provided symbol from its
// syntax. Exact matches are checked first, then suffix rules, defaulting to
// crypto for venue-style pairs.
func ClassifySymbol(symbol string) AssetClass {
	sym := strings.ToUpper(symbol)

	if _, ok := forexSymbols[sym]; ok {
		return Forex
	}
	if _, ok := metalSymbols[sym]; ok {
		return Metal
	}
	if _, ok := oilSymbols[sym]; ok {
		return Oil
	}
	if _, ok := usStockSymbols[sym]; ok {
		return USStock
	}

	switch {
	case strings.HasSuffix(sym, ".NS"), strings.HasSuffix(sym, ".BO"):
		return IndStock
	case strings.HasSuffix(sym, "=X"):
		return Forex
	}

	return Crypto
}

// ClassConfig represents the detection thresholds for an asset class. Loaded
// at startup, immutable thereafter.
type ClassConfig struct {
	// MinVolumeRatio is the minimum breakout volume to average volume ratio.
	MinVolumeRatio float64
	// MinPriceChangePct is the minimum percentage move past the breakout level.
	MinPriceChangePct float64
	// MinConfidence is the minimum confidence score for a signal to surface.
	MinConfidence float64
	// RequiredConsolidationHours is the consolidation period required before
	// a long breakout is considered valid.
	RequiredConsolidationHours int
	// SuccessThreshold24 is the 24 hour gain percentage marking an outcome
	// successful.
	SuccessThreshold24 float64
	// RequireMomentum flags whether sustained momentum gates detection.
	RequireMomentum bool
}

var classConfigs = map[AssetClass]ClassConfig{
	Crypto: {
		MinVolumeRatio:             2.0,
		MinPriceChangePct:          2.0,
		MinConfidence:              50,
		RequiredConsolidationHours: 0,
		SuccessThreshold24:         3.0,
		RequireMomentum:            false,
	},
	Forex: {
		MinVolumeRatio:             1.5,
		MinPriceChangePct:          0.5,
		MinConfidence:              55,
		RequiredConsolidationHours: 24,
		SuccessThreshold24:         1.0,
		RequireMomentum:            true,
	},
	Metal: {
		MinVolumeRatio:             1.5,
		MinPriceChangePct:          1.0,
		MinConfidence:              55,
		RequiredConsolidationHours: 24,
		SuccessThreshold24:         1.5,
		RequireMomentum:            true,
	},
	Oil: {
		MinVolumeRatio:             2.0,
		MinPriceChangePct:          1.5,
		MinConfidence:              55,
		RequiredConsolidationHours: 12,
		SuccessThreshold24:         2.0,
		RequireMomentum:            true,
	},
	USStock: {
		MinVolumeRatio:             2.0,
		MinPriceChangePct:          2.0,
		MinConfidence:              60,
		RequiredConsolidationHours: 12,
		SuccessThreshold24:         3.0,
		RequireMomentum:            true,
	},
	IndStock: {
		MinVolumeRatio:             2.0,
		MinPriceChangePct:          2.0,
		MinConfidence:              60,
		RequiredConsolidationHours: 12,
		SuccessThreshold24:         3.0,
		RequireMomentum:            true,
	},
}

// FetchClassConfig returns the detection thresholds for the provided asset class.
func FetchClassConfig(class AssetClass) ClassConfig {
	cfg, ok := classConfigs[class]
	if !ok {
		return classConfigs[Crypto]
	}

	return cfg
}

// ConfidenceWeights represents the per-metric weighting applied to confidence
// sub-scores for an asset class.
type ConfidenceWeights struct {
	Volume        float64
	Price         float64
	Consolidation float64
	Momentum      float64
}

// FetchConfidenceWeights returns the class adjusted confidence weights,
// clamped non-negative and renormalized to sum to one.
func FetchConfidenceWeights(class AssetClass) ConfidenceWeights {
	weights := ConfidenceWeights{
		Volume:        0.4,
		Price:         0.3,
		Consolidation: 0.2,
		Momentum:      0.1,
	}

	switch class {
	case Forex:
		// Forex moves are small, emphasize consolidation over raw price change.
		weights.Price -= 0.15
		weights.Consolidation += 0.15
	case Metal:
		weights.Price -= 0.1
		weights.Volume += 0.1
	case Oil:
		weights.Volume += 0.1
		weights.Price -= 0.05
		weights.Momentum -= 0.05
	case USStock, IndStock:
		weights = ConfidenceWeights{
			Volume:        0.25,
			Price:         0.25,
			Consolidation: 0.25,
			Momentum:      0.25,
		}
	}

	if weights.Volume < 0 {
		weights.Volume = 0
	}
	if weights.Price < 0 {
		weights.Price = 0
	}
	if weights.Consolidation < 0 {
		weights.Consolidation = 0
	}
	if weights.Momentum < 0 {
		weights.Momentum = 0
	}

	sum := weights.Volume + weights.Price + weights.Consolidation + weights.Momentum
	if sum > 0 {
		weights.Volume /= sum
		weights.Price /= sum
		weights.Consolidation /= sum
		weights.Momentum /= sum
	}

	return weights
}
