package shared

import (
	"encoding/json"
	"fmt"
	"time"
)

// Outcome represents the realized forward performance of a breakout signal at
// fixed horizons. Created once per signal after at least twenty four hours of
// subsequent candles exist, immutable afterwards.
type Outcome struct {
	Signal      BreakoutSignal `json:"signal"`
	Peak1h      float64        `json:"peak1h"`
	Peak4h      float64        `json:"peak4h"`
	Peak12h     float64        `json:"peak12h"`
	Peak24h     float64        `json:"peak24h"`
	Gain1h      float64        `json:"gain1h"`
	Gain4h      float64        `json:"gain4h"`
	Gain12h     float64        `json:"gain12h"`
	Gain24h     float64        `json:"gain24h"`
	Success     bool           `json:"success"`
	EvaluatedOn time.Time      `json:"evaluatedOn"`
}

// Encode encodes the outcome for storage.
func (o *Outcome) Encode() (string, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("encoding outcome: %v", err)
	}

	return string(b), nil
}

// DecodeOutcome decodes a stored outcome.
func DecodeOutcome(data string) (Outcome, error) {
	var outcome Outcome
	err := json.Unmarshal([]byte(data), &outcome)
	if err != nil {
		return Outcome{}, fmt.Errorf("decoding outcome: %v", err)
	}

	return outcome, nil
}
