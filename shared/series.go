package shared

import (
	"errors"
	"sync"
)

const (
	// SeriesCapacity is the default maximum number of entries for a candle series.
	SeriesCapacity = 60
)

// CandleSeries is an append-only, capacity-bounded collection of candles for
// a symbol, ordered newest first. The ingestion path is the sole writer for a
// symbol, readers always receive copies.
type CandleSeries struct {
	symbol   string
	capacity int
	mtx      sync.RWMutex
	candles  []Candle
}

// NewCandleSeries initializes a new candle series.
func NewCandleSeries(symbol string, capacity int) (*CandleSeries, error) {
	if symbol == "" {
		return nil, errors.New("series symbol cannot be an empty string")
	}
	if capacity <= 0 {
		return nil, errors.New("series capacity must be positive")
	}

	series := &CandleSeries{
		symbol:   symbol,
		capacity: capacity,
		candles:  make([]Candle, 0, capacity),
	}

	return series, nil
}

// Symbol returns the symbol tracked by the series.
func (s *CandleSeries) Symbol() string {
	return s.symbol
}

// Append adds the provided candle to the series. A candle sharing the close
// time of the newest entry replaces it, this represents the live, still
// updating current bar. The oldest entry is evicted once capacity is reached.
func (s *CandleSeries) Append(candle Candle) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if len(s.candles) > 0 && s.candles[0].CloseTime.Equal(candle.CloseTime) {
		s.candles[0] = candle
		return
	}

	if len(s.candles) == s.capacity {
		s.candles = s.candles[:len(s.candles)-1]
	}

	s.candles = append([]Candle{candle}, s.candles...)
}

// Snapshot returns a copy of the series contents, newest first.
func (s *CandleSeries) Snapshot() []Candle {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	snapshot := make([]Candle, len(s.candles))
	copy(snapshot, s.candles)

	return snapshot
}

// Last returns the newest entry of the series.
func (s *CandleSeries) Last() (Candle, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if len(s.candles) == 0 {
		return Candle{}, false
	}

	return s.candles[0], true
}

// Size returns the number of entries in the series.
func (s *CandleSeries) Size() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return len(s.candles)
}
