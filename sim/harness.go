package sim

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dnldd/breakout/engine"
	"github.com/dnldd/breakout/market"
	"github.com/dnldd/breakout/outcome"
	"github.com/dnldd/breakout/shared"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// HarnessConfig represents the simulation harness configuration.
type HarnessConfig struct {
	// DataFilePath is the filepath to the historical candle data.
	DataFilePath string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *HarnessConfig) Validate() error {
	var errs error

	if cfg.DataFilePath == "" {
		errs = errors.Join(errs, fmt.Errorf("historical data filepath cannot be an empty string"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Harness replays historical candles hour by hour through the unmodified
// market manager and detection engine, substituting only the clock and the
// store. Replay is strictly single threaded and sequential, determinism
// requires hours be processed in timestamp order.
type Harness struct {
	cfg       *HarnessConfig
	id        string
	clock     *VirtualClock
	store     *Store
	manager   *market.Manager
	engine    *engine.Engine
	evaluator *outcome.Evaluator
	candles   []shared.Candle
	signals   []shared.BreakoutSignal
}

// parseCandles parses the historical candle records from the provided data.
func parseCandles(data []gjson.Result) []shared.Candle {
	candles := make([]shared.Candle, 0, len(data))
	for idx := range data {
		record := data[idx]

		candle := shared.Candle{
			Symbol:     record.Get("symbol").String(),
			OpenTime:   time.Unix(record.Get("openTime").Int(), 0).UTC(),
			CloseTime:  time.Unix(record.Get("closeTime").Int(), 0).UTC(),
			Open:       record.Get("open").Float(),
			High:       record.Get("high").Float(),
			Low:        record.Get("low").Float(),
			Close:      record.Get("close").Float(),
			Volume:     record.Get("volume").Float(),
			TradeCount: record.Get("tradeCount").Int(),
			Provider:   record.Get("provider").String(),
		}

		candles = append(candles, candle)
	}

	return candles
}

// NewHarness initializes a new simulation harness from the provided
// historical data file.
func NewHarness(cfg *HarnessConfig) (*Harness, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating harness config: %v", err)
	}

	readb, err := os.ReadFile(cfg.DataFilePath)
	if err != nil {
		return nil, fmt.Errorf("reading historical data from file with path '%s': %v",
			cfg.DataFilePath, err)
	}

	data := gjson.ParseBytes(readb)
	candles := parseCandles(data.Get("candles").Array())
	if len(candles) == 0 {
		return nil, fmt.Errorf("no historical candles found in '%s'", cfg.DataFilePath)
	}

	// Replay order is candle close time, then symbol for a stable order
	// within the same hour.
	slices.SortStableFunc(candles, func(a, b shared.Candle) int {
		switch {
		case a.CloseTime.Before(b.CloseTime):
			return -1
		case a.CloseTime.After(b.CloseTime):
			return 1
		default:
			return strings.Compare(a.Symbol, b.Symbol)
		}
	})

	symbolSet := make(map[string]struct{})
	symbols := make([]string, 0)
	for idx := range candles {
		if _, ok := symbolSet[candles[idx].Symbol]; !ok {
			symbolSet[candles[idx].Symbol] = struct{}{}
			symbols = append(symbols, candles[idx].Symbol)
		}
	}

	clock := NewVirtualClock(candles[0].OpenTime)
	simStore := NewStore(clock)

	harness := &Harness{
		cfg:     cfg,
		id:      uuid.New().String(),
		clock:   clock,
		store:   simStore,
		candles: candles,
	}

	mgrLogger := cfg.Logger.With().Str("component", "simmarketmanager").Logger()
	harness.manager, err = market.NewManager(&market.ManagerConfig{
		Symbols: symbols,
		Store:   simStore,
		Clock:   clock,
		// The harness triggers detection synchronously per replayed hour,
		// the live debounce trigger is a no-op here.
		TriggerDetection: func(signal shared.DetectionSignal) {},
		Logger:           &mgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating simulation market manager: %v", err)
	}

	engineLogger := cfg.Logger.With().Str("component", "simengine").Logger()
	harness.engine, err = engine.NewEngine(&engine.EngineConfig{
		FetchSeriesSnapshot: harness.manager.FetchSeriesSnapshot,
		Store:               simStore,
		Clock:               clock,
		Logger:              &engineLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating simulation engine: %v", err)
	}

	evaluatorLogger := cfg.Logger.With().Str("component", "simevaluator").Logger()
	harness.evaluator, err = outcome.NewEvaluator(&outcome.EvaluatorConfig{
		Store:  simStore,
		Clock:  clock,
		Logger: &evaluatorLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating simulation evaluator: %v", err)
	}

	return harness, nil
}

// Clock returns the harness clock.
func (h *Harness) Clock() *VirtualClock {
	return h.clock
}

// Store returns the harness store.
func (h *Harness) Store() *Store {
	return h.store
}

// Run replays the loaded historical data through the detection engine and
// returns the emitted signals in replay order.
func (h *Harness) Run(ctx context.Context) ([]shared.BreakoutSignal, error) {
	first := h.candles[0].CloseTime
	last := h.candles[len(h.candles)-1].CloseTime
	h.cfg.Logger.Info().Msgf("simulation %s replaying %d candles covering %.2f hours, from %s, to %s",
		h.id, len(h.candles), last.Sub(first).Hours(), first.Format(time.RFC1123),
		last.Format(time.RFC1123))

	idx := 0
	for idx < len(h.candles) {
		select {
		case <-ctx.Done():
			return h.signals, ctx.Err()
		default:
			// do nothing.
		}

		hour := h.candles[idx].CloseTime

		// Candles for the hour are appended while the bar is still live.
		h.clock.SetNow(hour)
		for idx < len(h.candles) && h.candles[idx].CloseTime.Equal(hour) {
			candle := h.candles[idx]
			err := h.manager.AppendCandle(ctx, &candle)
			if err != nil {
				h.cfg.Logger.Error().Msgf("appending historical candle: %v", err)
			}
			idx++
		}

		// Mirror the live schedule's detection trigger offset past the hour
		// close, then run detection for every symbol with stored candles.
		h.clock.SetNow(hour.Add(time.Minute))
		symbols := h.manager.TrackedSymbols()
		for _, symbol := range symbols {
			signals := h.engine.Detect(ctx, symbol)
			h.signals = append(h.signals, signals...)
		}
	}

	h.cfg.Logger.Info().Msgf("simulation %s completed: %d signals emitted", h.id, len(h.signals))

	return h.signals, nil
}

// Summarize evaluates outcomes for replayed signals with sufficient forward
// data and rolls them up into a summary report.
func (h *Harness) Summarize(ctx context.Context) (outcome.Summary, error) {
	evaluated, err := h.evaluator.EvaluatePending(ctx)
	if err != nil {
		return outcome.Summary{}, fmt.Errorf("evaluating simulation outcomes: %v", err)
	}
	h.cfg.Logger.Info().Msgf("simulation %s evaluated %d outcomes", h.id, evaluated)

	outcomes, err := h.evaluator.FetchOutcomes(ctx)
	if err != nil {
		return outcome.Summary{}, fmt.Errorf("fetching simulation outcomes: %v", err)
	}

	return outcome.Summarize(outcomes), nil
}
