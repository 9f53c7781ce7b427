package fetch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dnldd/breakout/shared"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// streamBaseURL is the binance combined stream endpoint.
	streamBaseURL = "wss://stream.binance.com:9443/stream"
	// handshakeTimeout bounds the websocket dial.
	handshakeTimeout = 10 * time.Second
	// pingInterval is the keepalive ping cadence.
	pingInterval = time.Minute
	// controlWriteWait bounds keepalive control frame writes.
	controlWriteWait = 5 * time.Second
)

// IngestionSessionConfig represents the configuration for a streaming
// ingestion session.
type IngestionSessionConfig struct {
	// Symbols represents the streamed symbols.
	Symbols []string
	// NotifyCandle relays a streamed candle update for processing.
	NotifyCandle func(candle shared.Candle)
	// StreamURL overrides the default stream endpoint, used by tests.
	StreamURL string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *IngestionSessionConfig) Validate() error {
	var errs error

	if len(cfg.Symbols) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no symbols provided for ingestion session"))
	}
	if cfg.NotifyCandle == nil {
		errs = errors.Join(errs, fmt.Errorf("notify candle function cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// IngestionSession is a live websocket subscription to the combined hourly
// kline stream for the configured symbols. A session does not reconnect, the
// fetch manager owns retry by establishing a replacement session.
type IngestionSession struct {
	cfg          *IngestionSessionConfig
	id           string
	conn         *websocket.Conn
	pingInterval time.Duration
}

// streamURL forms the combined kline stream url for the provided symbols.
func streamURL(symbols []string) string {
	streams := make([]string, 0, len(symbols))
	for idx := range symbols {
		streams = append(streams, strings.ToLower(symbols[idx])+"@kline_1h")
	}

	return streamBaseURL + "?streams=" + strings.Join(streams, "/")
}

// NewIngestionSession dials the stream and initializes a new ingestion session.
func NewIngestionSession(ctx context.Context, cfg *IngestionSessionConfig) (*IngestionSession, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating ingestion session config: %v", err)
	}

	endpoint := cfg.StreamURL
	if endpoint == "" {
		endpoint = streamURL(cfg.Symbols)
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing kline stream: %v", err)
	}

	session := &IngestionSession{
		cfg:          cfg,
		id:           uuid.New().String(),
		conn:         conn,
		pingInterval: pingInterval,
	}

	cfg.Logger.Info().Msgf("ingestion session %s streaming %d symbols", session.id,
		len(cfg.Symbols))

	return session, nil
}

// ID returns the session identifier.
func (s *IngestionSession) ID() string {
	return s.id
}

// parseKlineUpdate parses a combined stream kline update into a candle.
func parseKlineUpdate(message []byte) (shared.Candle, error) {
	kline := gjson.GetBytes(message, "data.k")
	if !kline.Exists() {
		return shared.Candle{}, fmt.Errorf("stream message has no kline payload")
	}

	open, err := strconv.ParseFloat(kline.Get("o").String(), 64)
	if err != nil {
		return shared.Candle{}, fmt.Errorf("parsing kline open: %v", err)
	}
	high, err := strconv.ParseFloat(kline.Get("h").String(), 64)
	if err != nil {
		return shared.Candle{}, fmt.Errorf("parsing kline high: %v", err)
	}
	low, err := strconv.ParseFloat(kline.Get("l").String(), 64)
	if err != nil {
		return shared.Candle{}, fmt.Errorf("parsing kline low: %v", err)
	}
	cls, err := strconv.ParseFloat(kline.Get("c").String(), 64)
	if err != nil {
		return shared.Candle{}, fmt.Errorf("parsing kline close: %v", err)
	}
	volume, err := strconv.ParseFloat(kline.Get("v").String(), 64)
	if err != nil {
		return shared.Candle{}, fmt.Errorf("parsing kline volume: %v", err)
	}

	candle := shared.Candle{
		Symbol:     kline.Get("s").String(),
		OpenTime:   time.UnixMilli(kline.Get("t").Int()).UTC(),
		CloseTime:  time.UnixMilli(kline.Get("T").Int()).UTC(),
		Open:       open,
		High:       high,
		Low:        low,
		Close:      cls,
		Volume:     volume,
		TradeCount: kline.Get("n").Int(),
		Provider:   BinanceProvider,
	}

	return candle, nil
}

// Run reads stream messages and relays parsed candles until the context is
// cancelled or the connection fails.
func (s *IngestionSession) Run(ctx context.Context) error {
	defer s.conn.Close()

	done := make(chan struct{})
	defer close(done)

	// The watcher owns the keepalive ping timer and unblocks the read loop on
	// cancellation. It exits when Run returns.
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				err := s.conn.WriteControl(websocket.PingMessage, nil,
					time.Now().Add(controlWriteWait))
				if err != nil {
					s.cfg.Logger.Error().Msgf("ingestion session %s keepalive: %v", s.id, err)
				}
			}
		}
	}()

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("ingestion session %s read: %v", s.id, err)
		}

		candle, err := parseKlineUpdate(message)
		if err != nil {
			s.cfg.Logger.Error().Msgf("ingestion session %s: %v", s.id, err)
			continue
		}

		s.cfg.NotifyCandle(candle)
	}
}

// Close terminates the session connection.
func (s *IngestionSession) Close() error {
	return s.conn.Close()
}
