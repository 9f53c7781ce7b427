package outcome_test

import (
	"context"
	"testing"
	"time"

	"github.com/dnldd/breakout/outcome"
	"github.com/dnldd/breakout/shared"
	"github.com/dnldd/breakout/sim"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
)

func setupEvaluator(t *testing.T, now time.Time) (*outcome.Evaluator, *sim.Store, *sim.VirtualClock) {
	t.Helper()

	clock := sim.NewVirtualClock(now)
	store := sim.NewStore(clock)
	logger := zerolog.Nop()

	evaluator, err := outcome.NewEvaluator(&outcome.EvaluatorConfig{
		Store:  store,
		Clock:  clock,
		Logger: &logger,
	})
	assert.NoError(t, err)

	return evaluator, store, clock
}

// seedForwardCandles stores hourly candles after the signal with the provided
// highs, newest first in the retention list.
func seedForwardCandles(t *testing.T, store *sim.Store, symbol string, from time.Time, highs []float64) {
	t.Helper()

	ctx := context.Background()
	key := shared.CandlesKey(shared.OneHour, symbol)

	for idx := range highs {
		closeTime := from.Add(time.Duration(idx+1) * time.Hour)
		candle := shared.Candle{
			Symbol:    symbol,
			OpenTime:  closeTime.Add(-time.Hour),
			CloseTime: closeTime,
			Open:      100,
			High:      highs[idx],
			Low:       99,
			Close:     100,
			Volume:    100,
		}

		encoded, err := candle.Encode()
		assert.NoError(t, err)
		err = store.PushFront(ctx, key, encoded)
		assert.NoError(t, err)
	}
}

// seedSignal persists the provided signal into the history sets.
func seedSignal(t *testing.T, store *sim.Store, signal shared.BreakoutSignal) {
	t.Helper()

	encoded, err := signal.Encode()
	assert.NoError(t, err)

	ctx := context.Background()
	score := float64(signal.CreatedOn.Unix())
	err = store.AddToSet(ctx, shared.SignalHistoryAllKey, score, encoded)
	assert.NoError(t, err)
	err = store.AddToSet(ctx, shared.SignalHistoryKey(signal.Symbol), score, encoded)
	assert.NoError(t, err)
}

func forwardHighs() []float64 {
	// Hour 1 peaks at 101, hours 2-23 at 102, hour 24 at 105, hour 25 fades.
	highs := make([]float64, 25)
	for idx := range highs {
		highs[idx] = 102
	}
	highs[0] = 101
	highs[23] = 105
	highs[24] = 103

	return highs
}

func TestEvaluate(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(25 * time.Hour)
	evaluator, store, _ := setupEvaluator(t, now)

	signal := shared.NewBreakoutSignal("BTCUSDT", shared.Crypto, shared.Long,
		created, 100, 4.2, 9.3, 12, 80, 100.6, "binance")
	seedForwardCandles(t, store, "BTCUSDT", created, forwardHighs())

	result, err := evaluator.Evaluate(context.Background(), signal)
	assert.NoError(t, err)
	assert.NotNil(t, result)

	assert.Equal(t, result.Peak1h, float64(101))
	assert.Equal(t, result.Peak4h, float64(102))
	assert.Equal(t, result.Peak12h, float64(102))
	assert.Equal(t, result.Peak24h, float64(105))
	assert.Equal(t, result.Gain1h, float64(1))
	assert.Equal(t, result.Gain4h, float64(2))
	assert.Equal(t, result.Gain24h, float64(5))
	assert.Equal(t, result.Success, true)
	assert.Equal(t, result.EvaluatedOn, now)
}

func TestEvaluateShortSignal(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(25 * time.Hour)
	evaluator, store, _ := setupEvaluator(t, now)

	signal := shared.NewBreakoutSignal("BTCUSDT", shared.Crypto, shared.Short,
		created, 100, 4.2, 9.3, 12, 80, 99.4, "binance")

	ctx := context.Background()
	key := shared.CandlesKey(shared.OneHour, "BTCUSDT")
	for idx := 0; idx < 25; idx++ {
		closeTime := created.Add(time.Duration(idx+1) * time.Hour)
		low := 98.0
		if idx == 11 {
			low = 94
		}
		candle := shared.Candle{
			Symbol:    "BTCUSDT",
			OpenTime:  closeTime.Add(-time.Hour),
			CloseTime: closeTime,
			Open:      98.5,
			High:      100,
			Low:       low,
			Close:     98.5,
			Volume:    100,
		}
		encoded, err := candle.Encode()
		assert.NoError(t, err)
		err = store.PushFront(ctx, key, encoded)
		assert.NoError(t, err)
	}

	result, err := evaluator.Evaluate(ctx, signal)
	assert.NoError(t, err)
	assert.NotNil(t, result)

	// Short gains are measured by favorable downward extremes.
	assert.Equal(t, result.Peak1h, float64(98))
	assert.Equal(t, result.Peak12h, float64(94))
	assert.Equal(t, result.Gain12h, float64(6))
	assert.Equal(t, result.Gain24h, float64(6))
	assert.Equal(t, result.Success, true)
}

func TestEvaluateDefersWithoutForwardWindow(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(10 * time.Hour)
	evaluator, store, _ := setupEvaluator(t, now)

	signal := shared.NewBreakoutSignal("BTCUSDT", shared.Crypto, shared.Long,
		created, 100, 4.2, 9.3, 12, 80, 100.6, "binance")
	seedForwardCandles(t, store, "BTCUSDT", created, forwardHighs()[:10])

	// Fewer than twenty four hours of subsequent data defers evaluation.
	result, err := evaluator.Evaluate(context.Background(), signal)
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestEvaluatePending(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(25 * time.Hour)
	evaluator, store, _ := setupEvaluator(t, now)

	signal := shared.NewBreakoutSignal("BTCUSDT", shared.Crypto, shared.Long,
		created, 100, 4.2, 9.3, 12, 80, 100.6, "binance")
	seedSignal(t, store, signal)
	seedForwardCandles(t, store, "BTCUSDT", created, forwardHighs())

	ctx := context.Background()
	evaluated, err := evaluator.EvaluatePending(ctx)
	assert.NoError(t, err)
	assert.Equal(t, evaluated, 1)

	// Outcomes are computed once per signal.
	evaluated, err = evaluator.EvaluatePending(ctx)
	assert.NoError(t, err)
	assert.Equal(t, evaluated, 0)

	outcomes, err := evaluator.FetchOutcomes(ctx)
	assert.NoError(t, err)
	assert.Equal(t, len(outcomes), 1)
	assert.Equal(t, outcomes[0].Signal.Symbol, "BTCUSDT")
	assert.Equal(t, outcomes[0].Gain24h, float64(5))
	assert.Equal(t, outcomes[0].Success, true)
}

func TestPruneHistory(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(91 * 24 * time.Hour)
	evaluator, store, _ := setupEvaluator(t, now)

	old := shared.NewBreakoutSignal("BTCUSDT", shared.Crypto, shared.Long,
		created, 100, 4.2, 9.3, 12, 80, 100.6, "binance")
	recent := shared.NewBreakoutSignal("ETHUSDT", shared.Crypto, shared.Long,
		now.Add(-time.Hour), 2500, 3.1, 4.2, 8, 70, 2400, "binance")
	seedSignal(t, store, old)
	seedSignal(t, store, recent)

	ctx := context.Background()
	err := evaluator.PruneHistory(ctx, []string{"BTCUSDT", "ETHUSDT"})
	assert.NoError(t, err)

	members, err := store.RangeByScore(ctx, shared.SignalHistoryAllKey, 0,
		float64(now.Unix()))
	assert.NoError(t, err)
	assert.Equal(t, len(members), 1)

	kept, err := shared.DecodeBreakoutSignal(members[0])
	assert.NoError(t, err)
	assert.Equal(t, kept.Symbol, "ETHUSDT")

	btcHistory, err := store.RangeByScore(ctx, shared.SignalHistoryKey("BTCUSDT"),
		0, float64(now.Unix()))
	assert.NoError(t, err)
	assert.Equal(t, len(btcHistory), 0)
}
