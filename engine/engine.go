// Package engine implements the breakout detection engine. A single
// implementation parameterized by asset class configuration serves the live
// path and the simulation harness, guaranteeing backtest and production share
// behaviour.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dnldd/breakout/indicator"
	"github.com/dnldd/breakout/shared"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// maxWorkers is the maximum number of concurrent detection workers.
	maxWorkers = 16
	// minStoredCandles is the minimum series length for detection.
	minStoredCandles = 24
)

// EngineConfig represents the configuration for the detection engine.
type EngineConfig struct {
	// FetchSeriesSnapshot returns a consistent snapshot of the stored candle
	// series for the provided symbol, newest first.
	FetchSeriesSnapshot func(symbol string) ([]shared.Candle, error)
	// Store is the signal persistence store.
	Store shared.MarketStore
	// Notify relays the provided signal to the notification collaborator.
	Notify func(signal shared.BreakoutSignal)
	// Clock is the time source gating in-progress candles.
	Clock shared.Clock
	// RecordSignal records an emitted signal for observability, may be nil.
	RecordSignal func(signal shared.BreakoutSignal)
	// RecordRejection records a gate rejection for observability, may be nil.
	RecordRejection func(reason shared.RejectionReason)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *EngineConfig) Validate() error {
	var errs error

	if cfg.FetchSeriesSnapshot == nil {
		errs = errors.Join(errs, fmt.Errorf("fetch series snapshot function cannot be nil"))
	}
	if cfg.Store == nil {
		errs = errors.Join(errs, fmt.Errorf("signal store cannot be nil"))
	}
	if cfg.Clock == nil {
		errs = errors.Join(errs, fmt.Errorf("clock cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Engine detects breakout signals from stored candle series.
type Engine struct {
	cfg              *EngineConfig
	detectionSignals chan shared.DetectionSignal
	workers          chan struct{}
}

// NewEngine initializes a new detection engine.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating engine config: %v", err)
	}

	engine := &Engine{
		cfg:              cfg,
		detectionSignals: make(chan shared.DetectionSignal, bufferSize),
		workers:          make(chan struct{}, maxWorkers),
	}

	return engine, nil
}

// SignalDetection relays the provided detection trigger for processing.
func (e *Engine) SignalDetection(signal shared.DetectionSignal) {
	select {
	case e.detectionSignals <- signal:
		// do nothing.
	default:
		e.cfg.Logger.Error().Msgf("detection signal channel at capacity: %d/%d",
			len(e.detectionSignals), bufferSize)
	}
}

// consolidationLadder returns the consolidation ladder for the provided class
// configuration.
func consolidationLadder(cfg shared.ClassConfig) []indicator.ConsolidationThreshold {
	if cfg.RequiredConsolidationHours >= 24 {
		return indicator.ExtendedConsolidationLadder
	}

	return indicator.DefaultConsolidationLadder
}

// evaluateLongBreakout determines whether an actionable long breakout has
// occurred for the provided series snapshot.
func (e *Engine) evaluateLongBreakout(symbol string, class shared.AssetClass,
	classCfg shared.ClassConfig, candles []shared.Candle) (shared.BreakoutSignal, shared.RejectionReason, bool) {
	if len(candles) < minStoredCandles {
		return shared.BreakoutSignal{}, shared.InsufficientCandles, false
	}

	latest := candles[0]

	hours := indicator.ConsolidationHours(candles, consolidationLadder(classCfg))
	if hours < classCfg.RequiredConsolidationHours {
		return shared.BreakoutSignal{}, shared.InsufficientConsolidation, false
	}

	resistance := indicator.ResistanceLevel(candles)
	if resistance <= 0 || latest.Close <= resistance {
		return shared.BreakoutSignal{}, shared.NoResistanceBreak, false
	}

	averageVolume := indicator.AverageVolume(candles, indicator.AverageVolumePeriod)
	if averageVolume <= 0 {
		return shared.BreakoutSignal{}, shared.InsufficientCandles, false
	}

	volumeRatio := latest.Volume / averageVolume
	if volumeRatio < classCfg.MinVolumeRatio {
		return shared.BreakoutSignal{}, shared.LowVolumeRatio, false
	}

	priceChangePct := (latest.Close - resistance) / resistance * 100
	if priceChangePct < classCfg.MinPriceChangePct {
		return shared.BreakoutSignal{}, shared.LowPriceChange, false
	}

	momentum := indicator.SustainedMomentum(candles, true)
	if classCfg.RequireMomentum && !momentum {
		return shared.BreakoutSignal{}, shared.NoSustainedMomentum, false
	}

	confidence := Confidence(ConfidenceInput{
		VolumeRatio:        volumeRatio,
		PriceChangePct:     priceChangePct,
		ConsolidationHours: hours,
		SustainedMomentum:  momentum,
	}, class)
	if confidence < classCfg.MinConfidence {
		return shared.BreakoutSignal{}, shared.LowConfidence, false
	}

	if shared.FetchBreakoutType(confidence) == shared.WeakBreakout {
		// Weak signals never surface.
		return shared.BreakoutSignal{}, shared.LowConfidence, false
	}

	signal := shared.NewBreakoutSignal(symbol, class, shared.Long, latest.CloseTime,
		latest.Close, volumeRatio, priceChangePct, hours, confidence, resistance,
		latest.Provider)

	return signal, 0, true
}

// evaluateShortBreakout determines whether an actionable short breakout has
// occurred for the provided series snapshot.
func (e *Engine) evaluateShortBreakout(symbol string, class shared.AssetClass,
	classCfg shared.ClassConfig, candles []shared.Candle) (shared.BreakoutSignal, shared.RejectionReason, bool) {
	if len(candles) < minStoredCandles {
		return shared.BreakoutSignal{}, shared.InsufficientCandles, false
	}

	latest := candles[0]

	support := indicator.SupportLevel(candles)
	if support <= 0 || latest.Close >= support {
		return shared.BreakoutSignal{}, shared.NoSupportBreak, false
	}

	averageVolume := indicator.AverageVolume(candles, indicator.AverageVolumePeriod)
	if averageVolume <= 0 {
		return shared.BreakoutSignal{}, shared.InsufficientCandles, false
	}

	volumeRatio := latest.Volume / averageVolume
	if volumeRatio < classCfg.MinVolumeRatio {
		return shared.BreakoutSignal{}, shared.LowVolumeRatio, false
	}

	priceChangePct := (support - latest.Close) / support * 100
	if priceChangePct <= 0 || priceChangePct < classCfg.MinPriceChangePct {
		return shared.BreakoutSignal{}, shared.LowPriceChange, false
	}

	momentum := indicator.SustainedMomentum(candles, false)
	if classCfg.RequireMomentum && !momentum {
		return shared.BreakoutSignal{}, shared.NoSustainedMomentum, false
	}

	hours := indicator.ConsolidationHours(candles, consolidationLadder(classCfg))

	confidence := Confidence(ConfidenceInput{
		VolumeRatio:        volumeRatio,
		PriceChangePct:     priceChangePct,
		ConsolidationHours: hours,
		SustainedMomentum:  momentum,
	}, class)
	if confidence < classCfg.MinConfidence {
		return shared.BreakoutSignal{}, shared.LowConfidence, false
	}

	if shared.FetchBreakoutType(confidence) == shared.WeakBreakout {
		return shared.BreakoutSignal{}, shared.LowConfidence, false
	}

	signal := shared.NewBreakoutSignal(symbol, class, shared.Short, latest.CloseTime,
		latest.Close, volumeRatio, priceChangePct, hours, confidence, support,
		latest.Provider)

	return signal, 0, true
}

// persistSignal writes the emitted signal to the active set and history sets.
// Persistence is best effort, a store failure never blocks emission.
func (e *Engine) persistSignal(ctx context.Context, signal *shared.BreakoutSignal) error {
	encoded, err := signal.Encode()
	if err != nil {
		return err
	}

	key := shared.ActiveSignalKey(signal.Symbol, signal.CreatedOn, signal.Direction)
	err = e.cfg.Store.Set(ctx, key, encoded, shared.ActiveSignalTTL)
	if err != nil {
		return fmt.Errorf("persisting active signal %s: %v", key, err)
	}

	score := float64(signal.CreatedOn.Unix())
	err = e.cfg.Store.AddToSet(ctx, shared.SignalHistoryKey(signal.Symbol), score, encoded)
	if err != nil {
		return fmt.Errorf("persisting %s signal history: %v", signal.Symbol, err)
	}

	err = e.cfg.Store.AddToSet(ctx, shared.SignalHistoryAllKey, score, encoded)
	if err != nil {
		return fmt.Errorf("persisting global signal history: %v", err)
	}

	return nil
}

// recordRejection relays the provided rejection for observability.
func (e *Engine) recordRejection(symbol string, direction shared.Direction, reason shared.RejectionReason) {
	e.cfg.Logger.Debug().Msgf("%s %s breakout rejected: %s", symbol, direction.String(), reason.String())
	if e.cfg.RecordRejection != nil {
		e.cfg.RecordRejection(reason)
	}
}

// Detect runs breakout detection for the provided symbol against the current
// series snapshot. Long and short checks run independently, both may emit in
// the same cycle as distinct signals. Detection is a pure function of the
// snapshot and the class configuration.
func (e *Engine) Detect(ctx context.Context, symbol string) []shared.BreakoutSignal {
	candles, err := e.cfg.FetchSeriesSnapshot(symbol)
	if err != nil {
		e.cfg.Logger.Error().Msgf("fetching %s series snapshot: %v", symbol, err)
		return nil
	}

	// Exclude the in-progress bar, it must never trigger detection.
	now := e.cfg.Clock.Now()
	for len(candles) > 0 && !candles[0].Completed(now) {
		candles = candles[1:]
	}
	if len(candles) == 0 {
		return nil
	}

	class := shared.ClassifySymbol(symbol)
	classCfg := shared.FetchClassConfig(class)

	signals := make([]shared.BreakoutSignal, 0, 2)

	long, reason, ok := e.evaluateLongBreakout(symbol, class, classCfg, candles)
	switch {
	case ok:
		signals = append(signals, long)
	default:
		e.recordRejection(symbol, shared.Long, reason)
	}

	short, reason, ok := e.evaluateShortBreakout(symbol, class, classCfg, candles)
	switch {
	case ok:
		signals = append(signals, short)
	default:
		e.recordRejection(symbol, shared.Short, reason)
	}

	emitted := make([]shared.BreakoutSignal, 0, len(signals))
	for idx := range signals {
		signal := signals[idx]

		// At most one signal per symbol, direction and completed candle. A
		// re-run against an unchanged snapshot is a no-op.
		key := shared.ActiveSignalKey(signal.Symbol, signal.CreatedOn, signal.Direction)
		_, err := e.cfg.Store.Get(ctx, key)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, shared.ErrKeyNotFound):
			e.cfg.Logger.Error().Msgf("checking active signal %s: %v", key, err)
		}

		err = e.persistSignal(ctx, &signal)
		if err != nil {
			// Detection still surfaces the signal, persistence is retryable
			// by the collaborator.
			e.cfg.Logger.Error().Msgf("persisting %s signal: %v", symbol, err)
		}

		if e.cfg.RecordSignal != nil {
			e.cfg.RecordSignal(signal)
		}
		if e.cfg.Notify != nil {
			e.cfg.Notify(signal)
		}

		e.cfg.Logger.Info().Msgf("%s %s breakout detected at %.4f, confidence %.0f (%s)",
			symbol, signal.Direction.String(), signal.Price, signal.Confidence,
			signal.Type.String())

		emitted = append(emitted, signal)
	}

	return emitted
}

// handleDetectionSignal fans detection out across the batched symbols,
// bounded by the worker pool, and waits for the cycle to complete.
func (e *Engine) handleDetectionSignal(ctx context.Context, signal shared.DetectionSignal) {
	var wg sync.WaitGroup
	for idx := range signal.Symbols {
		symbol := signal.Symbols[idx]

		e.workers <- struct{}{}
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			e.Detect(ctx, symbol)
			<-e.workers
		}(symbol)
	}

	wg.Wait()
}

// Run manages the lifecycle processes of the detection engine. In-flight
// detection cycles complete before shutdown to avoid partial signal writes.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case signal := <-e.detectionSignals:
			e.handleDetectionSignal(ctx, signal)
		}
	}
}
