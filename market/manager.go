// Package market manages per-symbol candle series ownership, store retention
// and the completed-candle detection trigger.
package market

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dnldd/breakout/shared"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// DebounceWindow batches same-hour completed candle arrivals across
	// symbols into one detection pass.
	DebounceWindow = 10 * time.Second
)

// ManagerConfig represents the market manager configuration.
type ManagerConfig struct {
	// Symbols represents the tracked symbols.
	Symbols []string
	// Store is the candle retention store.
	Store shared.MarketStore
	// Clock is the time source for completed candle gating.
	Clock shared.Clock
	// TriggerDetection relays a batched detection trigger for processing.
	TriggerDetection func(signal shared.DetectionSignal)
	// SeriesCapacity bounds each symbol series, defaults to SeriesCapacity.
	SeriesCapacity int
	// Debounce overrides the default debounce window, used by tests.
	Debounce time.Duration
	// RecordCandle records an ingested candle for observability, may be nil.
	RecordCandle func(provider string)
	// RecordMalformed records a dropped malformed candle, may be nil.
	RecordMalformed func()
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if len(cfg.Symbols) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no symbols provided for market manager"))
	}
	if cfg.Store == nil {
		errs = errors.Join(errs, fmt.Errorf("candle store cannot be nil"))
	}
	if cfg.Clock == nil {
		errs = errors.Join(errs, fmt.Errorf("clock cannot be nil"))
	}
	if cfg.TriggerDetection == nil {
		errs = errors.Join(errs, fmt.Errorf("trigger detection function cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Manager owns the candle series of all tracked symbols. Each series has a
// single writer, the manager's ingestion path, detection only ever reads
// snapshots.
type Manager struct {
	cfg           *ManagerConfig
	capacity      int
	debounce      time.Duration
	seriesMtx     sync.RWMutex
	series        map[string]*shared.CandleSeries
	updateSignals chan shared.Candle
	pendingMtx    sync.Mutex
	pending       map[string]struct{}
	timer         *time.Timer
	timerSet      atomic.Bool
}

// NewManager initializes a new market manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating market manager config: %v", err)
	}

	capacity := cfg.SeriesCapacity
	if capacity <= 0 {
		capacity = shared.SeriesCapacity
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DebounceWindow
	}

	series := make(map[string]*shared.CandleSeries, len(cfg.Symbols))
	for idx := range cfg.Symbols {
		symbol := cfg.Symbols[idx]
		srs, err := shared.NewCandleSeries(symbol, capacity)
		if err != nil {
			return nil, fmt.Errorf("creating %s candle series: %v", symbol, err)
		}
		series[symbol] = srs
	}

	mgr := &Manager{
		cfg:           cfg,
		capacity:      capacity,
		debounce:      debounce,
		series:        series,
		updateSignals: make(chan shared.Candle, bufferSize),
		pending:       make(map[string]struct{}),
	}

	return mgr, nil
}

// SendMarketUpdate relays the provided candle for processing.
func (m *Manager) SendMarketUpdate(candle shared.Candle) {
	select {
	case m.updateSignals <- candle:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("market update channel at capacity: %d/%d",
			len(m.updateSignals), bufferSize)
	}
}

// fetchSeries returns the series for the provided symbol, creating it when a
// tracked provider emits a symbol discovered after startup.
func (m *Manager) fetchSeries(symbol string) (*shared.CandleSeries, error) {
	m.seriesMtx.RLock()
	srs, ok := m.series[symbol]
	m.seriesMtx.RUnlock()
	if ok {
		return srs, nil
	}

	srs, err := shared.NewCandleSeries(symbol, m.capacity)
	if err != nil {
		return nil, fmt.Errorf("creating %s candle series: %v", symbol, err)
	}

	m.seriesMtx.Lock()
	m.series[symbol] = srs
	m.seriesMtx.Unlock()

	return srs, nil
}

// FetchSeriesSnapshot returns a consistent snapshot of the stored series for
// the provided symbol, newest first.
func (m *Manager) FetchSeriesSnapshot(symbol string) ([]shared.Candle, error) {
	m.seriesMtx.RLock()
	srs, ok := m.series[symbol]
	m.seriesMtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no series found for symbol %s", symbol)
	}

	return srs.Snapshot(), nil
}

// TrackedSymbols returns the symbols with at least one stored candle, sorted.
func (m *Manager) TrackedSymbols() []string {
	m.seriesMtx.RLock()
	defer m.seriesMtx.RUnlock()

	symbols := make([]string, 0, len(m.series))
	for symbol, srs := range m.series {
		if srs.Size() > 0 {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)

	return symbols
}

// AppendCandle validates and appends the provided candle to its symbol
// series, persists bounded retention to the store and marks the symbol
// pending detection when the candle is completed. The simulation harness
// calls this directly to share the live append path.
func (m *Manager) AppendCandle(ctx context.Context, candle *shared.Candle) error {
	err := candle.Validate()
	if err != nil {
		// Malformed provider records are dropped at ingestion, they never
		// enter the series and do not abort the remaining batch.
		if m.cfg.RecordMalformed != nil {
			m.cfg.RecordMalformed()
		}
		return fmt.Errorf("dropping malformed %s candle: %v", candle.Symbol, err)
	}

	srs, err := m.fetchSeries(candle.Symbol)
	if err != nil {
		return err
	}

	srs.Append(*candle)

	if m.cfg.RecordCandle != nil {
		m.cfg.RecordCandle(candle.Provider)
	}

	encoded, err := candle.Encode()
	if err != nil {
		return fmt.Errorf("encoding %s candle: %v", candle.Symbol, err)
	}

	key := shared.CandlesKey(shared.OneHour, candle.Symbol)
	err = m.cfg.Store.PushFront(ctx, key, encoded)
	if err != nil {
		return fmt.Errorf("persisting %s candle: %v", candle.Symbol, err)
	}
	err = m.cfg.Store.Trim(ctx, key, int64(m.capacity))
	if err != nil {
		return fmt.Errorf("trimming %s candle retention: %v", candle.Symbol, err)
	}

	if candle.Completed(m.cfg.Clock.Now()) {
		m.markPending(candle.Symbol)
	}

	return nil
}

// markPending marks the provided symbol for the next detection pass and
// resets the debounce timer.
func (m *Manager) markPending(symbol string) {
	m.pendingMtx.Lock()
	defer m.pendingMtx.Unlock()

	m.pending[symbol] = struct{}{}

	if m.timer == nil {
		m.timer = time.AfterFunc(m.debounce, m.flushPending)
		m.timerSet.Store(true)
		return
	}

	m.timer.Reset(m.debounce)
	m.timerSet.Store(true)
}

// flushPending emits one batched detection trigger for all pending symbols.
func (m *Manager) flushPending() {
	m.pendingMtx.Lock()
	if len(m.pending) == 0 {
		m.timerSet.Store(false)
		m.pendingMtx.Unlock()
		return
	}

	symbols := make([]string, 0, len(m.pending))
	for symbol := range m.pending {
		symbols = append(symbols, symbol)
	}
	m.pending = make(map[string]struct{})
	m.timerSet.Store(false)
	m.pendingMtx.Unlock()

	sort.Strings(symbols)
	m.cfg.TriggerDetection(shared.DetectionSignal{Symbols: symbols})
}

// DetectionPending reports whether a debounce trigger is currently armed.
func (m *Manager) DetectionPending() bool {
	return m.timerSet.Load()
}

// stopTimer stops any pending debounce timer before shutdown.
func (m *Manager) stopTimer() {
	m.pendingMtx.Lock()
	defer m.pendingMtx.Unlock()

	if m.timer != nil {
		m.timer.Stop()
		m.timerSet.Store(false)
	}
}

// handleUpdateSignal processes the provided market update candle.
func (m *Manager) handleUpdateSignal(ctx context.Context, candle *shared.Candle) {
	err := m.AppendCandle(ctx, candle)
	if err != nil {
		m.cfg.Logger.Error().Msgf("handling %s market update: %v", candle.Symbol, err)
	}
}

// Run manages the lifecycle processes of the market manager.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.stopTimer()
			return
		case candle := <-m.updateSignals:
			m.handleUpdateSignal(ctx, &candle)
		}
	}
}
