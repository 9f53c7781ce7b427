// Package outcome evaluates the forward performance of emitted breakout
// signals and aggregates them into summary statistics.
package outcome

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/breakout/shared"
	"github.com/rs/zerolog"
)

const (
	// evaluationHorizon is the forward window required before a signal
	// becomes evaluable.
	evaluationHorizon = 24 * time.Hour
)

// horizons are the fixed forward windows scored per signal, in hours.
var horizons = []int{1, 4, 12, 24}

// EvaluatorConfig represents the outcome evaluator configuration.
type EvaluatorConfig struct {
	// Store is the persisted candle and signal store.
	Store shared.MarketStore
	// Clock is the evaluation time source.
	Clock shared.Clock
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *EvaluatorConfig) Validate() error {
	var errs error

	if cfg.Store == nil {
		errs = errors.Join(errs, fmt.Errorf("store cannot be nil"))
	}
	if cfg.Clock == nil {
		errs = errors.Join(errs, fmt.Errorf("clock cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Evaluator scores the forward performance of breakout signals.
type Evaluator struct {
	cfg *EvaluatorConfig
}

// NewEvaluator initializes a new outcome evaluator.
func NewEvaluator(cfg *EvaluatorConfig) (*Evaluator, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating evaluator config: %v", err)
	}

	return &Evaluator{cfg: cfg}, nil
}

// fetchSubsequentCandles reads all stored candles for the symbol with close
// times after the signal, oldest first.
func (e *Evaluator) fetchSubsequentCandles(ctx context.Context, signal *shared.BreakoutSignal) ([]shared.Candle, error) {
	raw, err := e.cfg.Store.Range(ctx, shared.CandlesKey(shared.OneHour, signal.Symbol), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("reading %s candle retention: %v", signal.Symbol, err)
	}

	candles := make([]shared.Candle, 0, len(raw))
	// Stored newest first, walk backwards for chronological order.
	for idx := len(raw) - 1; idx >= 0; idx-- {
		candle, err := shared.DecodeCandle(raw[idx])
		if err != nil {
			e.cfg.Logger.Error().Msgf("decoding stored %s candle: %v", signal.Symbol, err)
			continue
		}
		if candle.CloseTime.After(signal.CreatedOn) {
			candles = append(candles, candle)
		}
	}

	return candles, nil
}

// gain converts the provided extreme price into a percentage gain relative to
// the entry price, sign adjusted for direction.
func gain(signal *shared.BreakoutSignal, extreme float64) float64 {
	if signal.Price == 0 {
		return 0
	}

	switch signal.Direction {
	case shared.Short:
		return (signal.Price - extreme) / signal.Price * 100
	default:
		return (extreme - signal.Price) / signal.Price * 100
	}
}

// Evaluate computes the forward performance of the provided signal at fixed
// horizons. Returns nil when fewer than twenty four hours of subsequent
// candles exist, evaluation is simply deferred to a later sweep.
func (e *Evaluator) Evaluate(ctx context.Context, signal shared.BreakoutSignal) (*shared.Outcome, error) {
	candles, err := e.fetchSubsequentCandles(ctx, &signal)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, nil
	}

	latest := candles[len(candles)-1]
	if latest.CloseTime.Sub(signal.CreatedOn) < evaluationHorizon {
		return nil, nil
	}

	// Track the extreme price in the signal's favorable direction per window.
	peaks := make(map[int]float64, len(horizons))
	for _, horizon := range horizons {
		peaks[horizon] = signal.Price
	}

	for idx := range candles {
		candle := candles[idx]
		hoursAfter := candle.CloseTime.Sub(signal.CreatedOn).Hours()

		for _, horizon := range horizons {
			if hoursAfter > float64(horizon) {
				continue
			}

			switch signal.Direction {
			case shared.Short:
				if candle.Low < peaks[horizon] {
					peaks[horizon] = candle.Low
				}
			default:
				if candle.High > peaks[horizon] {
					peaks[horizon] = candle.High
				}
			}
		}
	}

	classCfg := shared.FetchClassConfig(signal.Class)
	gain24 := gain(&signal, peaks[24])

	outcome := &shared.Outcome{
		Signal:      signal,
		Peak1h:      peaks[1],
		Peak4h:      peaks[4],
		Peak12h:     peaks[12],
		Peak24h:     peaks[24],
		Gain1h:      gain(&signal, peaks[1]),
		Gain4h:      gain(&signal, peaks[4]),
		Gain12h:     gain(&signal, peaks[12]),
		Gain24h:     gain24,
		Success:     gain24 >= classCfg.SuccessThreshold24,
		EvaluatedOn: e.cfg.Clock.Now(),
	}

	return outcome, nil
}

// EvaluatePending sweeps the signal history for signals old enough to score
// and without an existing outcome, persisting one outcome per signal. Returns
// the number of outcomes written.
func (e *Evaluator) EvaluatePending(ctx context.Context) (int, error) {
	now := e.cfg.Clock.Now()
	cutoff := float64(now.Add(-evaluationHorizon).Unix())

	members, err := e.cfg.Store.RangeByScore(ctx, shared.SignalHistoryAllKey, 0, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reading signal history: %v", err)
	}

	var evaluated int
	for idx := range members {
		signal, err := shared.DecodeBreakoutSignal(members[idx])
		if err != nil {
			e.cfg.Logger.Error().Msgf("decoding signal history entry: %v", err)
			continue
		}

		key := shared.OutcomeKey(signal.Symbol, signal.CreatedOn)
		_, err = e.cfg.Store.Get(ctx, key)
		switch {
		case err == nil:
			// Outcomes are computed once per signal.
			continue
		case !errors.Is(err, shared.ErrKeyNotFound):
			e.cfg.Logger.Error().Msgf("checking outcome %s: %v", key, err)
			continue
		}

		outcome, err := e.Evaluate(ctx, signal)
		if err != nil {
			e.cfg.Logger.Error().Msgf("evaluating %s signal: %v", signal.Symbol, err)
			continue
		}
		if outcome == nil {
			// Not yet evaluable, re-attempted on the next sweep.
			continue
		}

		encoded, err := outcome.Encode()
		if err != nil {
			e.cfg.Logger.Error().Msgf("encoding %s outcome: %v", signal.Symbol, err)
			continue
		}

		err = e.cfg.Store.Set(ctx, key, encoded, shared.OutcomeTTL)
		if err != nil {
			e.cfg.Logger.Error().Msgf("persisting outcome %s: %v", key, err)
			continue
		}

		evaluated++
	}

	return evaluated, nil
}

// FetchOutcomes reads all persisted outcomes for signals in the history set.
func (e *Evaluator) FetchOutcomes(ctx context.Context) ([]shared.Outcome, error) {
	now := e.cfg.Clock.Now()

	members, err := e.cfg.Store.RangeByScore(ctx, shared.SignalHistoryAllKey, 0,
		float64(now.Unix()))
	if err != nil {
		return nil, fmt.Errorf("reading signal history: %v", err)
	}

	outcomes := make([]shared.Outcome, 0, len(members))
	for idx := range members {
		signal, err := shared.DecodeBreakoutSignal(members[idx])
		if err != nil {
			continue
		}

		data, err := e.cfg.Store.Get(ctx, shared.OutcomeKey(signal.Symbol, signal.CreatedOn))
		if err != nil {
			continue
		}

		outcome, err := shared.DecodeOutcome(data)
		if err != nil {
			e.cfg.Logger.Error().Msgf("decoding %s outcome: %v", signal.Symbol, err)
			continue
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

// PruneHistory removes signal history entries older than the retention age.
func (e *Evaluator) PruneHistory(ctx context.Context, symbols []string) error {
	cutoff := float64(e.cfg.Clock.Now().Add(-shared.SignalHistoryMaxAge).Unix())

	err := e.cfg.Store.RemoveByScoreRange(ctx, shared.SignalHistoryAllKey, 0, cutoff)
	if err != nil {
		return fmt.Errorf("pruning global signal history: %v", err)
	}

	for idx := range symbols {
		err := e.cfg.Store.RemoveByScoreRange(ctx, shared.SignalHistoryKey(symbols[idx]), 0, cutoff)
		if err != nil {
			return fmt.Errorf("pruning %s signal history: %v", symbols[idx], err)
		}
	}

	return nil
}
