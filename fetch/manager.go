package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/breakout/shared"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

const (
	// catchUpWindow is how far back startup catch-up fetches reach, sized to
	// fill a symbol series.
	catchUpWindow = time.Duration(shared.SeriesCapacity) * time.Hour
	// reconnectWait is the pause before a replacement streaming session.
	reconnectWait = 5 * time.Second
	// snapshotSchedule fires polled fetches shortly after each hour close.
	snapshotSchedule = "1 * * * *"
)

// ManagerConfig represents the fetch manager configuration.
type ManagerConfig struct {
	// Symbols represents the tracked symbols.
	Symbols []string
	// StreamFetcher fetches candles for streamed (crypto) symbols.
	StreamFetcher shared.MarketFetcher
	// PollFetcher fetches candles for polled (non-crypto) symbols.
	PollFetcher shared.MarketFetcher
	// NotifyCandle relays a fetched candle for processing.
	NotifyCandle func(candle shared.Candle)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if len(cfg.Symbols) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no symbols provided for fetch manager"))
	}
	if cfg.NotifyCandle == nil {
		errs = errors.Join(errs, fmt.Errorf("notify candle function cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Manager coordinates candle ingestion for tracked symbols. Crypto symbols
// stream live kline updates, everything else is polled on a schedule shortly
// after each hour close.
type Manager struct {
	cfg           *ManagerConfig
	streamSymbols []string
	pollSymbols   []string
	jobScheduler  *gocron.Scheduler
}

// NewManager initializes a new fetch manager, partitioning symbols by their
// asset class.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating fetch manager config: %v", err)
	}

	mgr := &Manager{
		cfg:          cfg,
		jobScheduler: gocron.NewScheduler(time.UTC),
	}

	for idx := range cfg.Symbols {
		symbol := cfg.Symbols[idx]
		if shared.ClassifySymbol(symbol) == shared.Crypto {
			mgr.streamSymbols = append(mgr.streamSymbols, symbol)
			continue
		}
		mgr.pollSymbols = append(mgr.pollSymbols, symbol)
	}

	if len(mgr.streamSymbols) > 0 && cfg.StreamFetcher == nil {
		return nil, fmt.Errorf("crypto symbols configured without a stream fetcher")
	}
	if len(mgr.pollSymbols) > 0 && cfg.PollFetcher == nil {
		return nil, fmt.Errorf("polled symbols configured without a poll fetcher")
	}

	return mgr, nil
}

// fetchSymbol fetches the recent candle window for the provided symbol and
// relays the results.
func (m *Manager) fetchSymbol(ctx context.Context, fetcher shared.MarketFetcher, symbol string, start time.Time) {
	candles, err := fetcher.FetchCandles(ctx, symbol, start, time.Time{}, shared.OneHour)
	if err != nil {
		m.cfg.Logger.Error().Msgf("fetching %s candles from %s: %v", symbol,
			fetcher.Provider(), err)
		return
	}

	for idx := range candles {
		m.cfg.NotifyCandle(candles[idx])
	}
}

// CatchUp backfills the recent candle window for all tracked symbols so
// detection has full series from startup.
func (m *Manager) CatchUp(ctx context.Context) {
	start := time.Now().UTC().Add(-catchUpWindow)

	for idx := range m.streamSymbols {
		m.fetchSymbol(ctx, m.cfg.StreamFetcher, m.streamSymbols[idx], start)
	}
	for idx := range m.pollSymbols {
		m.fetchSymbol(ctx, m.cfg.PollFetcher, m.pollSymbols[idx], start)
	}

	m.cfg.Logger.Info().Msgf("catch-up fetch completed for %d symbols", len(m.cfg.Symbols))
}

// pollLatest fetches the most recent candles for all polled symbols.
func (m *Manager) pollLatest(ctx context.Context) {
	start := time.Now().UTC().Add(-2 * time.Hour)
	for idx := range m.pollSymbols {
		m.fetchSymbol(ctx, m.cfg.PollFetcher, m.pollSymbols[idx], start)
	}
}

// runStream maintains a live ingestion session for streamed symbols,
// establishing a replacement session when the current one fails.
func (m *Manager) runStream(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			// do nothing.
		}

		session, err := NewIngestionSession(ctx, &IngestionSessionConfig{
			Symbols:      m.streamSymbols,
			NotifyCandle: m.cfg.NotifyCandle,
			Logger:       m.cfg.Logger,
		})
		if err != nil {
			m.cfg.Logger.Error().Msgf("creating ingestion session: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectWait):
				continue
			}
		}

		err = session.Run(ctx)
		if err != nil && ctx.Err() == nil {
			m.cfg.Logger.Error().Msgf("ingestion session ended: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectWait):
			// do nothing.
		}
	}
}

// Run manages the lifecycle processes of the fetch manager.
func (m *Manager) Run(ctx context.Context) error {
	m.CatchUp(ctx)

	if len(m.pollSymbols) > 0 {
		_, err := m.jobScheduler.Cron(snapshotSchedule).Do(func() {
			m.pollLatest(ctx)
		})
		if err != nil {
			return fmt.Errorf("scheduling snapshot fetches: %v", err)
		}
		m.jobScheduler.StartAsync()
		defer m.jobScheduler.Stop()
	}

	if len(m.streamSymbols) > 0 {
		m.runStream(ctx)
		return nil
	}

	<-ctx.Done()
	return nil
}
