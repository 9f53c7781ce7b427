package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestCandleValidate(t *testing.T) {
	open := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	close := open.Add(time.Hour)

	tests := []struct {
		name    string
		candle  Candle
		wantErr bool
	}{
		{
			name: "valid candle",
			candle: Candle{
				Symbol:    "BTCUSDT",
				OpenTime:  open,
				CloseTime: close,
				Open:      100,
				High:      101,
				Low:       99,
				Close:     100.5,
				Volume:    250,
			},
			wantErr: false,
		},
		{
			name: "missing symbol",
			candle: Candle{
				OpenTime:  open,
				CloseTime: close,
				Open:      100,
				High:      101,
				Low:       99,
				Close:     100.5,
			},
			wantErr: true,
		},
		{
			name: "open time after close time",
			candle: Candle{
				Symbol:    "BTCUSDT",
				OpenTime:  close,
				CloseTime: open,
				Open:      100,
				High:      101,
				Low:       99,
				Close:     100.5,
			},
			wantErr: true,
		},
		{
			name: "high below close",
			candle: Candle{
				Symbol:    "BTCUSDT",
				OpenTime:  open,
				CloseTime: close,
				Open:      100,
				High:      100.2,
				Low:       99,
				Close:     100.5,
			},
			wantErr: true,
		},
		{
			name: "low above open",
			candle: Candle{
				Symbol:    "BTCUSDT",
				OpenTime:  open,
				CloseTime: close,
				Open:      100,
				High:      101,
				Low:       100.2,
				Close:     100.5,
			},
			wantErr: true,
		},
		{
			name: "negative volume",
			candle: Candle{
				Symbol:    "BTCUSDT",
				OpenTime:  open,
				CloseTime: close,
				Open:      100,
				High:      101,
				Low:       99,
				Close:     100.5,
				Volume:    -1,
			},
			wantErr: true,
		},
	}

	for _, test := range tests {
		err := test.candle.Validate()
		if test.wantErr && err == nil {
			t.Errorf("%s: expected a validation error, got none", test.name)
		}
		if !test.wantErr && err != nil {
			t.Errorf("%s: unexpected validation error: %v", test.name, err)
		}
	}
}

func TestCandleCompleted(t *testing.T) {
	close := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	candle := Candle{CloseTime: close}

	// A candle is only completed strictly after its close time.
	assert.Equal(t, candle.Completed(close.Add(-time.Minute)), false)
	assert.Equal(t, candle.Completed(close), false)
	assert.Equal(t, candle.Completed(close.Add(time.Minute)), true)
}

func TestCandleEncodeDecode(t *testing.T) {
	candle := Candle{
		Symbol:     "BTCUSDT",
		OpenTime:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		CloseTime:  time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC),
		Open:       100,
		High:       101,
		Low:        99,
		Close:      100.5,
		Volume:     250,
		TradeCount: 1200,
		Provider:   "binance",
	}

	encoded, err := candle.Encode()
	assert.NoError(t, err)

	decoded, err := DecodeCandle(encoded)
	assert.NoError(t, err)
	assert.Equal(t, decoded, candle)

	_, err = DecodeCandle("{not json")
	assert.Error(t, err)
}

func TestCandleSentiment(t *testing.T) {
	bullish := Candle{Open: 100, Close: 105}
	bearish := Candle{Open: 100, Close: 95}
	flat := Candle{Open: 100, Close: 100}

	assert.Equal(t, bullish.Bullish(), true)
	assert.Equal(t, bullish.Bearish(), false)
	assert.Equal(t, bearish.Bearish(), true)
	assert.Equal(t, bearish.Bullish(), false)
	assert.Equal(t, flat.Bullish(), false)
	assert.Equal(t, flat.Bearish(), false)
}
