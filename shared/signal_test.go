package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestFetchBreakoutType(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		want       BreakoutType
	}{
		{name: "weak breakout", confidence: 49, want: WeakBreakout},
		{name: "moderate boundary", confidence: 50, want: ModerateBreakout},
		{name: "moderate breakout", confidence: 74, want: ModerateBreakout},
		{name: "strong boundary", confidence: 75, want: StrongBreakout},
		{name: "strong breakout", confidence: 100, want: StrongBreakout},
	}

	for _, test := range tests {
		got := FetchBreakoutType(test.confidence)
		if got != test.want {
			t.Errorf("%s: expected %s, got %s", test.name, test.want.String(), got.String())
		}
	}
}

func TestNewBreakoutSignal(t *testing.T) {
	created := time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC)

	long := NewBreakoutSignal("BTCUSDT", Crypto, Long, created, 110, 4.1, 7.8, 12,
		80, 100.6, "binance")
	assert.Equal(t, long.Type, StrongBreakout)
	assert.Equal(t, long.ResistanceLevel, 100.6)
	assert.Equal(t, long.SupportLevel, float64(0))

	short := NewBreakoutSignal("BTCUSDT", Crypto, Short, created, 90, 4.1, 7.8, 12,
		60, 99.4, "binance")
	assert.Equal(t, short.Type, ModerateBreakout)
	assert.Equal(t, short.SupportLevel, 99.4)
	assert.Equal(t, short.ResistanceLevel, float64(0))
}

func TestBreakoutSignalEncodeDecode(t *testing.T) {
	signal := NewBreakoutSignal("ETHUSDT", Crypto, Long,
		time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC), 2500, 3.2, 4.5, 8, 77,
		2400.5, "binance")

	encoded, err := signal.Encode()
	assert.NoError(t, err)

	decoded, err := DecodeBreakoutSignal(encoded)
	assert.NoError(t, err)
	assert.Equal(t, decoded, signal)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, Round2(1.005), 1.0)
	assert.Equal(t, Round2(1.255), 1.25)
	assert.Equal(t, Round2(-2.346), -2.35)
	assert.Equal(t, Round2(5.0), 5.0)
}
