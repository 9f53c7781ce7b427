package shared

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrKeyNotFound is returned by a market store when the requested key does
// not exist or has expired.
var ErrKeyNotFound = errors.New("key not found")

const (
	// ActiveSignalTTL is the retention period for active signal entries.
	ActiveSignalTTL = 7 * 24 * time.Hour
	// OutcomeTTL is the retention period for outcome records.
	OutcomeTTL = 90 * 24 * time.Hour
	// SignalHistoryMaxAge is the pruning age for signal history entries.
	SignalHistoryMaxAge = 90 * 24 * time.Hour
	// SignalHistoryAllKey is the sorted set key holding signal history across
	// all symbols.
	SignalHistoryAllKey = "signal:history:all"
)

// MarketStore defines the requirements for persisting candles, signals and
// outcomes. The live implementation is backed by a key-value service, the
// simulation store implements the same contract in memory.
type MarketStore interface {
	// PushFront prepends the provided values to the list at the key.
	PushFront(ctx context.Context, key string, values ...string) error
	// Trim bounds the list at the key to the provided length, discarding the
	// oldest entries.
	Trim(ctx context.Context, key string, length int64) error
	// Range reads list entries at the key between the provided indices,
	// inclusive. A stop index of -1 reads to the end of the list.
	Range(ctx context.Context, key string, start int64, stop int64) ([]string, error)
	// AddToSet adds the provided member to the sorted set at the key with the
	// provided score.
	AddToSet(ctx context.Context, key string, score float64, member string) error
	// RangeByScore reads sorted set members at the key with scores between the
	// provided bounds, inclusive.
	RangeByScore(ctx context.Context, key string, min float64, max float64) ([]string, error)
	// RemoveByScoreRange removes sorted set members at the key with scores
	// between the provided bounds, inclusive.
	RemoveByScoreRange(ctx context.Context, key string, min float64, max float64) error
	// Set stores the provided value at the key with an expiry. A zero expiry
	// stores the value indefinitely.
	Set(ctx context.Context, key string, value string, expiry time.Duration) error
	// Get reads the value at the key, returning ErrKeyNotFound when absent.
	Get(ctx context.Context, key string) (string, error)
}

// CandlesKey returns the bounded list key retaining candles for a symbol.
func CandlesKey(interval Interval, symbol string) string {
	return fmt.Sprintf("candles:%s:%s", interval.String(), symbol)
}

// ActiveSignalKey returns the expiring key for an active signal.
func ActiveSignalKey(symbol string, created time.Time, direction Direction) string {
	key := fmt.Sprintf("signal:active:%s:%d", symbol, created.Unix())
	if direction == Short {
		key += ":short"
	}

	return key
}

// SignalHistoryKey returns the sorted set key holding signal history for a symbol.
func SignalHistoryKey(symbol string) string {
	return fmt.Sprintf("signal:history:%s", symbol)
}

// OutcomeKey returns the expiring key for a signal outcome.
func OutcomeKey(symbol string, created time.Time) string {
	return fmt.Sprintf("outcome:%s:%d", symbol, created.Unix())
}
