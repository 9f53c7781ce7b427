package engine

import (
	"math"

	"github.com/dnldd/breakout/shared"
)

// Sub-score maxima preserved from the legacy flat scoring scheme. Raw metrics
// are bucketed on these scales first, then normalized and weighted per asset
// class. A pure linear weighted sum of raw metrics would lose the documented
// breakpoint semantics.
const (
	maxVolumeScore        = 40.0
	maxPriceScore         = 30.0
	maxConsolidationScore = 20.0
	maxMomentumScore      = 10.0
)

// ConfidenceInput represents the raw breakout metrics scored by the
// confidence model.
type ConfidenceInput struct {
	// VolumeRatio is the breakout volume to average volume ratio.
	VolumeRatio float64
	// PriceChangePct is the percentage move past the breakout level.
	PriceChangePct float64
	// ConsolidationHours is the qualified consolidation period.
	ConsolidationHours int
	// SustainedMomentum flags directional momentum over recent candles.
	SustainedMomentum bool
}

// volumeScore buckets the volume ratio on the legacy scale.
func volumeScore(ratio float64) float64 {
	switch {
	case ratio >= 5:
		return 40
	case ratio >= 3:
		return 30
	case ratio >= 2:
		return 20
	case ratio >= 1.5:
		return 10
	default:
		return 0
	}
}

// priceScore buckets the price change percentage on the legacy scale.
func priceScore(changePct float64) float64 {
	switch {
	case changePct >= 5:
		return 30
	case changePct >= 3:
		return 20
	case changePct >= 2:
		return 15
	case changePct >= 1:
		return 10
	default:
		return 0
	}
}

// consolidationScore buckets the consolidation period on the legacy scale.
func consolidationScore(hours int) float64 {
	switch {
	case hours >= 12:
		return 20
	case hours >= 8:
		return 15
	case hours >= 4:
		return 10
	default:
		return 0
	}
}

// momentumScore buckets sustained momentum on the legacy scale.
func momentumScore(sustained bool) float64 {
	if sustained {
		return 10
	}

	return 0
}

// Confidence converts the provided raw breakout metrics into a bounded 0-100
// confidence score using the asset class weighting.
func Confidence(input ConfidenceInput, class shared.AssetClass) float64 {
	weights := shared.FetchConfidenceWeights(class)

	score := weights.Volume*(volumeScore(input.VolumeRatio)/maxVolumeScore) +
		weights.Price*(priceScore(input.PriceChangePct)/maxPriceScore) +
		weights.Consolidation*(consolidationScore(input.ConsolidationHours)/maxConsolidationScore) +
		weights.Momentum*(momentumScore(input.SustainedMomentum)/maxMomentumScore)

	confidence := math.Round(score * 100)
	if confidence > 100 {
		confidence = 100
	}
	if confidence < 0 {
		confidence = 0
	}

	return confidence
}
