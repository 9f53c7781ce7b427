package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Interval represents the candle aggregation interval.
type Interval int

const (
	OneHour Interval = iota
	FiveMinute
)

// String stringifies the provided interval.
func (i Interval) String() string {
	switch i {
	case OneHour:
		return "1h"
	case FiveMinute:
		return "5m"
	default:
		return "unknown"
	}
}

// Candle represents a unit OHLCV bar for a tradable symbol. A stored candle
// is immutable, only the in-progress bar for the current interval may be
// replaced by a newer version of itself.
type Candle struct {
	Symbol     string    `json:"symbol"`
	OpenTime   time.Time `json:"openTime"`
	CloseTime  time.Time `json:"closeTime"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     float64   `json:"volume"`
	TradeCount int64     `json:"tradeCount"`
	Provider   string    `json:"provider"`
}

// Validate asserts the candle has sane inputs.
func (c *Candle) Validate() error {
	var errs error

	if c.Symbol == "" {
		errs = errors.Join(errs, fmt.Errorf("candle symbol cannot be an empty string"))
	}
	if c.OpenTime.IsZero() || c.CloseTime.IsZero() {
		errs = errors.Join(errs, fmt.Errorf("candle open and close times must be set"))
	}
	if !c.OpenTime.Before(c.CloseTime) {
		errs = errors.Join(errs, fmt.Errorf("candle open time %v must be before close time %v",
			c.OpenTime, c.CloseTime))
	}
	if c.High < math.Max(c.Open, c.Close) {
		errs = errors.Join(errs, fmt.Errorf("candle high %f cannot be below open %f or close %f",
			c.High, c.Open, c.Close))
	}
	if c.Low > math.Min(c.Open, c.Close) {
		errs = errors.Join(errs, fmt.Errorf("candle low %f cannot be above open %f or close %f",
			c.Low, c.Open, c.Close))
	}
	if c.Volume < 0 {
		errs = errors.Join(errs, fmt.Errorf("candle volume cannot be negative"))
	}

	return errs
}

// Completed reports whether the candle has closed relative to the provided time.
// An in-progress bar must never trigger detection.
func (c *Candle) Completed(now time.Time) bool {
	return c.CloseTime.Before(now)
}

// Bullish reports whether the candle closed above its open.
func (c *Candle) Bullish() bool {
	return c.Close > c.Open
}

// Bearish reports whether the candle closed below its open.
func (c *Candle) Bearish() bool {
	return c.Close < c.Open
}

// Encode encodes the candle for storage.
func (c *Candle) Encode() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding candle: %v", err)
	}

	return string(b), nil
}

// DecodeCandle decodes a stored candle.
func DecodeCandle(data string) (Candle, error) {
	var candle Candle
	err := json.Unmarshal([]byte(data), &candle)
	if err != nil {
		return Candle{}, fmt.Errorf("decoding candle: %v", err)
	}

	return candle, nil
}
