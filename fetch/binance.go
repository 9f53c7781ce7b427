// Package fetch provides the market data providers and the fetch manager
// coordinating candle ingestion for tracked symbols.
package fetch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/dnldd/breakout/shared"
	"github.com/rs/zerolog"
)

const (
	// BinanceProvider is the provenance tag for binance sourced candles.
	BinanceProvider = "binance"
	// klineFetchLimit caps klines per historical request.
	klineFetchLimit = 1000
)

// BinanceConfig represents the configuration for the binance client.
type BinanceConfig struct {
	// APIKey is the binance API key, may be empty for public market data.
	APIKey string
	// SecretKey is the binance API secret, may be empty for public market data.
	SecretKey string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// BinanceClient fetches crypto candles from the binance REST API.
type BinanceClient struct {
	cfg    *BinanceConfig
	client *binance.Client
}

// Ensure the binance client implements the MarketFetcher interface.
var _ shared.MarketFetcher = (*BinanceClient)(nil)

// NewBinanceClient initializes a new binance client.
func NewBinanceClient(cfg *BinanceConfig) *BinanceClient {
	return &BinanceClient{
		cfg:    cfg,
		client: binance.NewClient(cfg.APIKey, cfg.SecretKey),
	}
}

// Provider returns the provenance tag applied to fetched candles.
func (c *BinanceClient) Provider() string {
	return BinanceProvider
}

// parseKline converts the provided kline into a candle. Klines carry prices
// as strings on the wire.
func (c *BinanceClient) parseKline(symbol string, kline *binance.Kline) (shared.Candle, error) {
	open, err := strconv.ParseFloat(kline.Open, 64)
	if err != nil {
		return shared.Candle{}, fmt.Errorf("parsing %s kline open: %v", symbol, err)
	}
	high, err := strconv.ParseFloat(kline.High, 64)
	if err != nil {
		return shared.Candle{}, fmt.Errorf("parsing %s kline high: %v", symbol, err)
	}
	low, err := strconv.ParseFloat(kline.Low, 64)
	if err != nil {
		return shared.Candle{}, fmt.Errorf("parsing %s kline low: %v", symbol, err)
	}
	cls, err := strconv.ParseFloat(kline.Close, 64)
	if err != nil {
		return shared.Candle{}, fmt.Errorf("parsing %s kline close: %v", symbol, err)
	}
	volume, err := strconv.ParseFloat(kline.Volume, 64)
	if err != nil {
		return shared.Candle{}, fmt.Errorf("parsing %s kline volume: %v", symbol, err)
	}

	candle := shared.Candle{
		Symbol:     symbol,
		OpenTime:   time.UnixMilli(kline.OpenTime).UTC(),
		CloseTime:  time.UnixMilli(kline.CloseTime).UTC(),
		Open:       open,
		High:       high,
		Low:        low,
		Close:      cls,
		Volume:     volume,
		TradeCount: kline.TradeNum,
		Provider:   BinanceProvider,
	}

	return candle, nil
}

// FetchCandles fetches candles for the provided symbol and time range.
// Malformed kline records are dropped, not propagated as errors.
func (c *BinanceClient) FetchCandles(ctx context.Context, symbol string, start time.Time, end time.Time, interval shared.Interval) ([]shared.Candle, error) {
	svc := c.client.NewKlinesService().Symbol(symbol).
		Interval(interval.String()).Limit(klineFetchLimit)
	if !start.IsZero() {
		svc = svc.StartTime(start.UnixMilli())
	}
	if !end.IsZero() {
		svc = svc.EndTime(end.UnixMilli())
	}

	klines, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s klines: %v", symbol, err)
	}

	candles := make([]shared.Candle, 0, len(klines))
	for idx := range klines {
		candle, err := c.parseKline(symbol, klines[idx])
		if err != nil {
			c.cfg.Logger.Error().Msgf("dropping malformed kline: %v", err)
			continue
		}

		candles = append(candles, candle)
	}

	return candles, nil
}
