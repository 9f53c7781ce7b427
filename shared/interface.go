package shared

import (
	"context"
	"time"
)

// MarketFetcher defines the requirements for fetching market data from a
// provider. Implementations own their retry and rate-limit behaviour, the
// core does neither.
type MarketFetcher interface {
	// FetchCandles fetches candles for the provided symbol and time range.
	// An empty result is not an error.
	FetchCandles(ctx context.Context, symbol string, start time.Time, end time.Time, interval Interval) ([]Candle, error)
	// Provider returns the provenance tag applied to fetched candles.
	Provider() string
}

// Notifier defines the requirements for relaying emitted breakout signals.
// Delivery is best effort, the core makes no assumption about success.
type Notifier interface {
	// Notify relays the provided breakout signal.
	Notify(signal BreakoutSignal)
}

// DetectionSignal represents a batched detection trigger for symbols whose
// current candle completed this cycle.
type DetectionSignal struct {
	Symbols []string
}
