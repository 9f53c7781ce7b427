package shared

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// BreakoutType represents the strength classification of a breakout signal.
type BreakoutType int

const (
	WeakBreakout BreakoutType = iota
	ModerateBreakout
	StrongBreakout
)

// String stringifies the provided breakout type.
func (b BreakoutType) String() string {
	switch b {
	case WeakBreakout:
		return "weak"
	case ModerateBreakout:
		return "moderate"
	case StrongBreakout:
		return "strong"
	default:
		return "unknown"
	}
}

// FetchBreakoutType classifies the breakout strength from the provided
// confidence score.
func FetchBreakoutType(confidence float64) BreakoutType {
	switch {
	case confidence >= 75:
		return StrongBreakout
	case confidence >= 50:
		return ModerateBreakout
	default:
		return WeakBreakout
	}
}

// BreakoutSignal represents a detected directional breakout with its
// supporting metrics. Created only by the detection engine and never mutated
// after creation. The direction determines whether the resistance or support
// level is populated, never both.
type BreakoutSignal struct {
	Symbol             string       `json:"symbol"`
	Class              AssetClass   `json:"class"`
	Direction          Direction    `json:"direction"`
	CreatedOn          time.Time    `json:"createdOn"`
	Price              float64      `json:"price"`
	VolumeRatio        float64      `json:"volumeRatio"`
	PriceChangePct     float64      `json:"priceChangePct"`
	ConsolidationHours int          `json:"consolidationHours"`
	Confidence         float64      `json:"confidence"`
	Type               BreakoutType `json:"type"`
	ResistanceLevel    float64      `json:"resistanceLevel,omitempty"`
	SupportLevel       float64      `json:"supportLevel,omitempty"`
	Provider           string       `json:"provider"`
}

// NewBreakoutSignal initializes a new breakout signal.
func NewBreakoutSignal(symbol string, class AssetClass, direction Direction,
	created time.Time, price float64, volumeRatio float64, priceChangePct float64,
	consolidationHours int, confidence float64, level float64, provider string) BreakoutSignal {
	signal := BreakoutSignal{
		Symbol:             symbol,
		Class:              class,
		Direction:          direction,
		CreatedOn:          created,
		Price:              price,
		VolumeRatio:        volumeRatio,
		PriceChangePct:     priceChangePct,
		ConsolidationHours: consolidationHours,
		Confidence:         confidence,
		Type:               FetchBreakoutType(confidence),
		Provider:           provider,
	}

	switch direction {
	case Long:
		signal.ResistanceLevel = level
	case Short:
		signal.SupportLevel = level
	}

	return signal
}

// Round2 rounds the provided value to two decimal places.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// Encode encodes the signal for storage.
func (s *BreakoutSignal) Encode() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encoding breakout signal: %v", err)
	}

	return string(b), nil
}

// DecodeBreakoutSignal decodes a stored breakout signal.
func DecodeBreakoutSignal(data string) (BreakoutSignal, error) {
	var signal BreakoutSignal
	err := json.Unmarshal([]byte(data), &signal)
	if err != nil {
		return BreakoutSignal{}, fmt.Errorf("decoding breakout signal: %v", err)
	}

	return signal, nil
}
