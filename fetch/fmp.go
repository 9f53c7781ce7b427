package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dnldd/breakout/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// FMPProvider is the provenance tag for FMP sourced candles.
	FMPProvider = "fmp"
	// baseURL is the FMP API base url.
	baseURL = "https://financialmodelingprep.com/stable"
	// dateLayout is the FMP candle date format.
	dateLayout = "2006-01-02 15:04:05"
	// dayLayout is the FMP query range date format.
	dayLayout = "2006-01-02"
)

// FMPConfig represents the configuration for the FMP client.
type FMPConfig struct {
	// APIKey is the FMP API key.
	APIKey string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// FMPClient fetches forex, metals, oil and stock candles from the Financial
// Modeling Prep (FMP) API.
type FMPClient struct {
	cfg   *FMPConfig
	httpc http.Client
}

// Ensure the FMP client implements the MarketFetcher interface.
var _ shared.MarketFetcher = (*FMPClient)(nil)

// NewFMPClient initializes a new FMP client.
func NewFMPClient(cfg *FMPConfig) *FMPClient {
	return &FMPClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
	}
}

// Provider returns the provenance tag applied to fetched candles.
func (c *FMPClient) Provider() string {
	return FMPProvider
}

// formURL creates full urls including parameters for the api.
func (c *FMPClient) formURL(path string, params string) string {
	var buf strings.Builder
	buf.WriteString(baseURL)
	buf.WriteString(path)
	buf.WriteString("?")
	buf.WriteString(params)

	return buf.String()
}

// parseCandles parses candles from the provided json data. FMP serves candles
// newest first with each record stamped at the bar open, records are walked in
// reverse so callers receive them oldest first like every other fetcher.
func (c *FMPClient) parseCandles(data []gjson.Result, symbol string, interval shared.Interval) []shared.Candle {
	duration := time.Hour
	if interval == shared.FiveMinute {
		duration = 5 * time.Minute
	}

	candles := make([]shared.Candle, 0, len(data))
	for idx := len(data) - 1; idx >= 0; idx-- {
		record := data[idx]

		openTime, err := time.Parse(dateLayout, record.Get("date").String())
		if err != nil {
			c.cfg.Logger.Error().Msgf("dropping %s candle with malformed date: %v", symbol, err)
			continue
		}
		openTime = openTime.UTC()

		candle := shared.Candle{
			Symbol:    symbol,
			OpenTime:  openTime,
			CloseTime: openTime.Add(duration),
			Open:      record.Get("open").Float(),
			High:      record.Get("high").Float(),
			Low:       record.Get("low").Float(),
			Close:     record.Get("close").Float(),
			Volume:    record.Get("volume").Float(),
			Provider:  FMPProvider,
		}

		candles = append(candles, candle)
	}

	return candles
}

// FetchCandles fetches candles for the provided symbol and time range.
func (c *FMPClient) FetchCandles(ctx context.Context, symbol string, start time.Time, end time.Time, interval shared.Interval) ([]shared.Candle, error) {
	const fiveMinuteHistoricalPath = "/historical-chart/5min"
	const oneHourHistoricalPath = "/historical-chart/1hour"

	params := url.Values{}
	params.Add("symbol", symbol)
	params.Add("apikey", c.cfg.APIKey)
	if !start.IsZero() {
		params.Add("from", start.Format(dayLayout))
	}
	if !end.IsZero() {
		params.Add("to", end.Format(dayLayout))
	}

	var formedURL string
	switch interval {
	case shared.FiveMinute:
		formedURL = c.formURL(fiveMinuteHistoricalPath, params.Encode())
	case shared.OneHour:
		formedURL = c.formURL(oneHourHistoricalPath, params.Encode())
	default:
		return nil, fmt.Errorf("unknown interval provided: %s", interval.String())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, formedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating %s historical request: %v", symbol, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s historical data (%s): %v", symbol,
			interval.String(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s historical data: unexpected status %d",
			symbol, resp.StatusCode)
	}

	data := gjson.ParseBytes(body).Array()

	return c.parseCandles(data, symbol, interval), nil
}
