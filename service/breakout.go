// Package service wires the detection pipeline components together and
// manages their lifecycles.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/breakout/engine"
	"github.com/dnldd/breakout/fetch"
	"github.com/dnldd/breakout/market"
	"github.com/dnldd/breakout/metrics"
	"github.com/dnldd/breakout/notify"
	"github.com/dnldd/breakout/outcome"
	"github.com/dnldd/breakout/shared"
	"github.com/dnldd/breakout/sim"
	"github.com/dnldd/breakout/store"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	// evaluationSweepInterval is how often outcome evaluation sweeps run.
	evaluationSweepInterval = 4
	// pruneSchedule is the daily history prune time.
	pruneSchedule = "00:05"
	// metricsShutdownTimeout bounds the metrics server shutdown.
	metricsShutdownTimeout = 5 * time.Second
)

// BreakoutConfig represents the configuration struct for the breakout service.
type BreakoutConfig struct {
	// Markets represents the tracked markets.
	Markets []string
	// RedisAddr is the redis address.
	RedisAddr string
	// RedisPassword is the redis password, may be empty.
	RedisPassword string
	// RedisDB is the redis database index.
	RedisDB int
	// BinanceAPIKey is the binance API key, may be empty for public data.
	BinanceAPIKey string
	// BinanceSecretKey is the binance API secret, may be empty for public data.
	BinanceSecretKey string
	// FMPAPIKey is the FMP service API key.
	FMPAPIKey string
	// WebhookURL is the signal delivery endpoint, empty disables delivery.
	WebhookURL string
	// MetricsAddr is the metrics listen address, empty disables the server.
	MetricsAddr string
	// Simulate is the simulation flag.
	Simulate bool
	// SimDataFilepath is the filepath to the simulation data.
	SimDataFilepath string
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config has sane inputs.
func (cfg *BreakoutConfig) Validate() error {
	var errs error

	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}

	switch cfg.Simulate {
	case true:
		if cfg.SimDataFilepath == "" {
			errs = errors.Join(errs, fmt.Errorf("simulation data filepath cannot be an empty string"))
		}
	case false:
		if len(cfg.Markets) == 0 {
			errs = errors.Join(errs, fmt.Errorf("no markets provided for breakout service"))
		}
		if cfg.RedisAddr == "" {
			errs = errors.Join(errs, fmt.Errorf("redis address cannot be an empty string"))
		}
	}

	return errs
}

// Breakout represents a breakout signal detection service.
type Breakout struct {
	cfg           *BreakoutConfig
	store         *store.RedisStore
	fetchManager  *fetch.Manager
	marketManager *market.Manager
	engine        *engine.Engine
	evaluator     *outcome.Evaluator
	harness       *sim.Harness
	pipelineStats *metrics.Metrics
	jobScheduler  *gocron.Scheduler
	logger        *zerolog.Logger
	wg            sync.WaitGroup
}

// NewBreakout initializes a new breakout service.
func NewBreakout(cfg *BreakoutConfig) (*Breakout, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating breakout service config: %v", err)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "breakout").Logger()

	service := &Breakout{
		cfg:    cfg,
		logger: &logger,
	}

	if cfg.Simulate {
		service.harness, err = sim.NewHarness(&sim.HarnessConfig{
			DataFilePath: cfg.SimDataFilepath,
			Logger:       &logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating simulation harness: %v", err)
		}

		return service, nil
	}

	service.pipelineStats = metrics.New()

	storeLogger := logger.With().Str("component", "redisstore").Logger()
	service.store, err = store.NewRedisStore(&store.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Logger:   &storeLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating redis store: %v", err)
	}

	var breakoutEngine *engine.Engine

	triggerDetectionFunc := func(signal shared.DetectionSignal) {
		if breakoutEngine != nil {
			breakoutEngine.SignalDetection(signal)
		}
	}

	clock := &shared.SystemClock{}

	marketMgrLogger := logger.With().Str("component", "marketmanager").Logger()
	service.marketManager, err = market.NewManager(&market.ManagerConfig{
		Symbols:          cfg.Markets,
		Store:            service.store,
		Clock:            clock,
		TriggerDetection: triggerDetectionFunc,
		RecordCandle:     service.pipelineStats.RecordCandle,
		RecordMalformed:  service.pipelineStats.RecordMalformed,
		Logger:           &marketMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating market manager: %v", err)
	}

	var notifier shared.Notifier = &notify.NoopNotifier{}
	if cfg.WebhookURL != "" {
		notifierLogger := logger.With().Str("component", "notifier").Logger()
		notifier = notify.NewWebhookNotifier(&notify.WebhookNotifierConfig{
			URL:    cfg.WebhookURL,
			Logger: &notifierLogger,
		})
	}

	engineLogger := logger.With().Str("component", "engine").Logger()
	breakoutEngine, err = engine.NewEngine(&engine.EngineConfig{
		FetchSeriesSnapshot: service.marketManager.FetchSeriesSnapshot,
		Store:               service.store,
		Notify:              notifier.Notify,
		Clock:               clock,
		RecordSignal:        service.pipelineStats.RecordSignal,
		RecordRejection:     service.pipelineStats.RecordRejection,
		Logger:              &engineLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating detection engine: %v", err)
	}
	service.engine = breakoutEngine

	binanceLogger := logger.With().Str("component", "binanceclient").Logger()
	binanceClient := fetch.NewBinanceClient(&fetch.BinanceConfig{
		APIKey:    cfg.BinanceAPIKey,
		SecretKey: cfg.BinanceSecretKey,
		Logger:    &binanceLogger,
	})

	fmpLogger := logger.With().Str("component", "fmpclient").Logger()
	fmpClient := fetch.NewFMPClient(&fetch.FMPConfig{
		APIKey: cfg.FMPAPIKey,
		Logger: &fmpLogger,
	})

	fetchMgrLogger := logger.With().Str("component", "fetchmanager").Logger()
	service.fetchManager, err = fetch.NewManager(&fetch.ManagerConfig{
		Symbols:       cfg.Markets,
		StreamFetcher: binanceClient,
		PollFetcher:   fmpClient,
		NotifyCandle:  service.marketManager.SendMarketUpdate,
		Logger:        &fetchMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fetch manager: %v", err)
	}

	evaluatorLogger := logger.With().Str("component", "evaluator").Logger()
	service.evaluator, err = outcome.NewEvaluator(&outcome.EvaluatorConfig{
		Store:  service.store,
		Clock:  clock,
		Logger: &evaluatorLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating outcome evaluator: %v", err)
	}

	service.jobScheduler = gocron.NewScheduler(time.UTC)

	return service, nil
}

// runSimulation replays the configured historical data and reports the
// summarized signal performance.
func (b *Breakout) runSimulation(ctx context.Context) {
	signals, err := b.harness.Run(ctx)
	if err != nil {
		b.logger.Error().Msgf("running simulation: %v", err)
		return
	}

	summary, err := b.harness.Summarize(ctx)
	if err != nil {
		b.logger.Error().Msgf("summarizing simulation: %v", err)
		return
	}

	b.logger.Info().Msgf("simulation done: %d signals, %d outcomes, %.2f%% success rate",
		len(signals), summary.TotalCount, summary.SuccessRate)
	b.logger.Debug().Msg(spew.Sdump(summary))
}

// scheduleJobs registers the periodic outcome evaluation sweep and the daily
// history prune.
func (b *Breakout) scheduleJobs(ctx context.Context) error {
	_, err := b.jobScheduler.Every(evaluationSweepInterval).Hours().Do(func() {
		evaluated, err := b.evaluator.EvaluatePending(ctx)
		if err != nil {
			b.logger.Error().Msgf("evaluating pending outcomes: %v", err)
			return
		}
		if evaluated > 0 {
			b.logger.Info().Msgf("evaluated %d signal outcomes", evaluated)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling outcome evaluation sweep: %v", err)
	}

	_, err = b.jobScheduler.Every(1).Day().At(pruneSchedule).Do(func() {
		err := b.evaluator.PruneHistory(ctx, b.marketManager.TrackedSymbols())
		if err != nil {
			b.logger.Error().Msgf("pruning signal history: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling history prune: %v", err)
	}

	_, err = b.jobScheduler.Every(1).Hour().Do(func() {
		b.pipelineStats.SetTrackedSymbols(len(b.marketManager.TrackedSymbols()))
	})
	if err != nil {
		return fmt.Errorf("scheduling tracked symbol gauge update: %v", err)
	}

	return nil
}

// runMetricsServer serves the metrics scrape endpoint until the context is
// cancelled.
func (b *Breakout) runMetricsServer(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", b.pipelineStats.Handler())

	server := &http.Server{Addr: b.cfg.MetricsAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	b.logger.Info().Msgf("metrics server listening on %s", b.cfg.MetricsAddr)
	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		b.logger.Error().Msgf("metrics server: %v", err)
	}
}

// Run handles the lifecycle processes of the breakout service.
func (b *Breakout) Run(ctx context.Context) {
	if b.cfg.Simulate {
		b.runSimulation(ctx)
		b.cfg.Cancel()
		return
	}

	err := b.scheduleJobs(ctx)
	if err != nil {
		b.logger.Error().Msgf("scheduling jobs: %v", err)
		b.cfg.Cancel()
		return
	}
	b.jobScheduler.StartAsync()

	b.wg.Add(3)

	go func() {
		b.marketManager.Run(ctx)
		b.wg.Done()
	}()

	go func() {
		b.engine.Run(ctx)
		b.wg.Done()
	}()

	go func() {
		err := b.fetchManager.Run(ctx)
		if err != nil {
			b.logger.Error().Msgf("running fetch manager: %v", err)
		}
		b.wg.Done()
	}()

	if b.cfg.MetricsAddr != "" {
		b.wg.Add(1)
		go func() {
			b.runMetricsServer(ctx)
			b.wg.Done()
		}()
	}

	b.wg.Wait()
	b.jobScheduler.Stop()

	err = b.store.Close()
	if err != nil {
		b.logger.Error().Msgf("closing store: %v", err)
	}
}
