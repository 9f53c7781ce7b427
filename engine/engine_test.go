package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/dnldd/breakout/engine"
	"github.com/dnldd/breakout/shared"
	"github.com/dnldd/breakout/sim"
	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
)

// flatSeries creates a newest-first series of n flat candles around the
// provided close price.
func flatSeries(symbol string, n int, close float64, volume float64) []shared.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	candles := make([]shared.Candle, n)
	for idx := range candles {
		closeTime := start.Add(time.Duration(n-idx) * time.Hour)
		candles[idx] = shared.Candle{
			Symbol:    symbol,
			OpenTime:  closeTime.Add(-time.Hour),
			CloseTime: closeTime,
			Open:      close,
			High:      close + 0.6,
			Low:       close - 0.6,
			Close:     close,
			Volume:    volume,
			Provider:  "binance",
		}
	}

	return candles
}

// withLongBreakout replaces the newest candle with a high volume bullish
// breakout bar.
func withLongBreakout(candles []shared.Candle) []shared.Candle {
	candles[0].Open = 100
	candles[0].Close = 110
	candles[0].High = 110.5
	candles[0].Low = 99.8
	candles[0].Volume = 500

	return candles
}

// withShortBreakout replaces the newest candle with a high volume bearish
// breakdown bar.
func withShortBreakout(candles []shared.Candle) []shared.Candle {
	candles[0].Open = 100
	candles[0].Close = 90
	candles[0].High = 100.2
	candles[0].Low = 89.5
	candles[0].Volume = 500

	return candles
}

type detectionCapture struct {
	notified   []shared.BreakoutSignal
	recorded   []shared.BreakoutSignal
	rejections []shared.RejectionReason
}

func setupEngine(t *testing.T, candles []shared.Candle, now time.Time) (*engine.Engine, *sim.Store, *detectionCapture) {
	t.Helper()

	clock := sim.NewVirtualClock(now)
	store := sim.NewStore(clock)
	capture := &detectionCapture{}
	logger := zerolog.Nop()

	eng, err := engine.NewEngine(&engine.EngineConfig{
		FetchSeriesSnapshot: func(symbol string) ([]shared.Candle, error) {
			snapshot := make([]shared.Candle, len(candles))
			copy(snapshot, candles)
			return snapshot, nil
		},
		Store: store,
		Notify: func(signal shared.BreakoutSignal) {
			capture.notified = append(capture.notified, signal)
		},
		Clock: clock,
		RecordSignal: func(signal shared.BreakoutSignal) {
			capture.recorded = append(capture.recorded, signal)
		},
		RecordRejection: func(reason shared.RejectionReason) {
			capture.rejections = append(capture.rejections, reason)
		},
		Logger: &logger,
	})
	assert.NoError(t, err)

	return eng, store, capture
}

func rejectedWith(capture *detectionCapture, reason shared.RejectionReason) bool {
	for _, got := range capture.rejections {
		if got == reason {
			return true
		}
	}

	return false
}

func TestDetectFlatSeriesEmitsNothing(t *testing.T) {
	candles := flatSeries("BTCUSDT", 30, 100, 100)
	now := candles[0].CloseTime.Add(time.Minute)
	eng, _, capture := setupEngine(t, candles, now)

	signals := eng.Detect(context.Background(), "BTCUSDT")
	assert.Equal(t, len(signals), 0)
	assert.Equal(t, len(capture.notified), 0)
	assert.Equal(t, rejectedWith(capture, shared.NoResistanceBreak), true)
	assert.Equal(t, rejectedWith(capture, shared.NoSupportBreak), true)
}

func TestDetectLongBreakout(t *testing.T) {
	candles := withLongBreakout(flatSeries("BTCUSDT", 30, 100, 100))
	now := candles[0].CloseTime.Add(time.Minute)
	eng, store, capture := setupEngine(t, candles, now)

	ctx := context.Background()
	signals := eng.Detect(ctx, "BTCUSDT")
	assert.Equal(t, len(signals), 1)

	signal := signals[0]
	assert.Equal(t, signal.Symbol, "BTCUSDT")
	assert.Equal(t, signal.Class, shared.Crypto)
	assert.Equal(t, signal.Direction, shared.Long)
	assert.Equal(t, signal.Type, shared.StrongBreakout)
	assert.Equal(t, signal.Confidence, float64(80))
	assert.Equal(t, signal.ResistanceLevel, 100.6)
	assert.Equal(t, signal.SupportLevel, float64(0))
	assert.Equal(t, signal.ConsolidationHours, 12)
	assert.Equal(t, signal.Price, float64(110))
	assert.Equal(t, signal.Provider, "binance")

	// The signal is stamped with the breakout candle close, not wall clock.
	assert.Equal(t, signal.CreatedOn, candles[0].CloseTime)

	assert.Equal(t, len(capture.notified), 1)
	assert.Equal(t, len(capture.recorded), 1)

	// Persisted as an active signal and in both history sets.
	key := shared.ActiveSignalKey(signal.Symbol, signal.CreatedOn, signal.Direction)
	stored, err := store.Get(ctx, key)
	assert.NoError(t, err)

	decoded, err := shared.DecodeBreakoutSignal(stored)
	assert.NoError(t, err)
	assert.Equal(t, decoded, signal)

	history, err := store.RangeByScore(ctx, shared.SignalHistoryAllKey, 0,
		float64(now.Unix()))
	assert.NoError(t, err)
	assert.Equal(t, len(history), 1)

	symbolHistory, err := store.RangeByScore(ctx, shared.SignalHistoryKey("BTCUSDT"),
		0, float64(now.Unix()))
	assert.NoError(t, err)
	assert.Equal(t, len(symbolHistory), 1)
}

func TestDetectShortBreakout(t *testing.T) {
	candles := withShortBreakout(flatSeries("BTCUSDT", 30, 100, 100))
	now := candles[0].CloseTime.Add(time.Minute)
	eng, _, _ := setupEngine(t, candles, now)

	signals := eng.Detect(context.Background(), "BTCUSDT")
	assert.Equal(t, len(signals), 1)

	signal := signals[0]
	assert.Equal(t, signal.Direction, shared.Short)
	assert.Equal(t, signal.SupportLevel, 99.4)
	assert.Equal(t, signal.ResistanceLevel, float64(0))
	assert.Equal(t, signal.Price, float64(90))
	assert.Equal(t, signal.Type, shared.StrongBreakout)
}

func TestDetectRerunIsIdempotent(t *testing.T) {
	candles := withLongBreakout(flatSeries("BTCUSDT", 30, 100, 100))
	now := candles[0].CloseTime.Add(time.Minute)
	eng, _, capture := setupEngine(t, candles, now)

	ctx := context.Background()
	first := eng.Detect(ctx, "BTCUSDT")
	assert.Equal(t, len(first), 1)

	// A second pass over an unchanged snapshot emits nothing new.
	second := eng.Detect(ctx, "BTCUSDT")
	assert.Equal(t, len(second), 0)
	assert.Equal(t, len(capture.notified), 1)
}

func TestDetectDeterministic(t *testing.T) {
	candles := withLongBreakout(flatSeries("BTCUSDT", 30, 100, 100))
	now := candles[0].CloseTime.Add(time.Minute)

	engA, _, _ := setupEngine(t, candles, now)
	engB, _, _ := setupEngine(t, candles, now)

	ctx := context.Background()
	signalsA := engA.Detect(ctx, "BTCUSDT")
	signalsB := engB.Detect(ctx, "BTCUSDT")

	if diff := cmp.Diff(signalsA, signalsB); diff != "" {
		t.Errorf("expected identical detection results (-a +b):\n%s", diff)
	}
}

func TestDetectIgnoresInProgressCandle(t *testing.T) {
	candles := withLongBreakout(flatSeries("BTCUSDT", 30, 100, 100))

	// The clock sits exactly at the breakout bar close, the bar is still in
	// progress and must not trigger detection.
	now := candles[0].CloseTime
	eng, _, _ := setupEngine(t, candles, now)

	signals := eng.Detect(context.Background(), "BTCUSDT")
	assert.Equal(t, len(signals), 0)
}

func TestDetectMomentumGate(t *testing.T) {
	// Stocks require sustained momentum, a lone breakout bar after flat
	// candles does not qualify.
	candles := withLongBreakout(flatSeries("AAPL", 30, 100, 100))
	now := candles[0].CloseTime.Add(time.Minute)
	eng, _, capture := setupEngine(t, candles, now)

	signals := eng.Detect(context.Background(), "AAPL")
	assert.Equal(t, len(signals), 0)
	assert.Equal(t, rejectedWith(capture, shared.NoSustainedMomentum), true)
}

func TestDetectInsufficientCandles(t *testing.T) {
	candles := withLongBreakout(flatSeries("BTCUSDT", 20, 100, 100))
	now := candles[0].CloseTime.Add(time.Minute)
	eng, _, capture := setupEngine(t, candles, now)

	signals := eng.Detect(context.Background(), "BTCUSDT")
	assert.Equal(t, len(signals), 0)
	assert.Equal(t, rejectedWith(capture, shared.InsufficientCandles), true)
}
