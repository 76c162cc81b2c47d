package examples

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minjpark/basketback/pkg/strategy"
)

func historyFromCloses(closes []float64) *strategy.History {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]strategy.BarData, len(closes))
	for i, c := range closes {
		bars[i] = strategy.BarData{
			Symbol:    "TEST",
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Timeframe: "1d",
		}
	}
	return strategy.NewHistory(bars)
}

func TestSMACrossWarmsUpSilently(t *testing.T) {
	s := NewSMACross(2, 3)
	h := historyFromCloses([]float64{10, 9, 8, 20})
	require.NoError(t, s.Init(h))

	h.SetCursor(2) // only 3 bars visible, slow needs 4
	assert.Equal(t, strategy.Signal{}, s.Next(2))
}

func TestSMACrossEntersOnUpwardCross(t *testing.T) {
	s := NewSMACross(2, 3)
	h := historyFromCloses([]float64{10, 9, 8, 20})
	require.NoError(t, s.Init(h))

	h.SetCursor(3)
	sig := s.Next(3)
	assert.True(t, sig.EnterLong)
	assert.False(t, sig.ExitLong)
}

func TestSMACrossExitsOnDownwardCross(t *testing.T) {
	s := NewSMACross(2, 3)
	h := historyFromCloses([]float64{10, 12, 14, 6})
	require.NoError(t, s.Init(h))

	h.SetCursor(3)
	sig := s.Next(3)
	assert.True(t, sig.ExitLong)
	assert.False(t, sig.EnterLong)
}

func TestSMACrossPyramidsOnNewHigh(t *testing.T) {
	s := NewSMACross(2, 3)
	h := historyFromCloses([]float64{10, 12, 14, 16})
	require.NoError(t, s.Init(h))

	h.SetCursor(3)
	sig := s.Next(3)
	assert.True(t, sig.AddToPosition, "trend intact and a new lookback high")
	assert.False(t, sig.EnterLong)
}

func TestSMACrossStopFallsBackBeforeATRReady(t *testing.T) {
	s := NewSMACross(2, 3)
	h := historyFromCloses([]float64{10, 9, 8, 20})
	require.NoError(t, s.Init(h))

	h.SetCursor(3) // far short of the 14-bar ATR period
	spec := s.OnEntry(3, 20)
	assert.Equal(t, strategy.StopFixedPct, spec.Mode)
	assert.Equal(t, 0.08, spec.Pct)
}

func TestSMACrossUsesATRStopWithEnoughHistory(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	s := NewSMACross(2, 3)
	h := historyFromCloses(closes)
	require.NoError(t, s.Init(h))

	h.SetCursor(19)
	spec := s.OnEntry(19, closes[19])
	assert.Equal(t, strategy.StopTrailingATR, spec.Mode)
	assert.Greater(t, spec.ATR, 0.0)
	assert.Equal(t, 3.0, spec.ATRMult)
}

func TestBuyAndHoldEntersOnce(t *testing.T) {
	s := NewBuyAndHold()
	h := historyFromCloses([]float64{10, 11, 12})
	require.NoError(t, s.Init(h))

	h.SetCursor(0)
	assert.True(t, s.Next(0).EnterLong)
	h.SetCursor(1)
	assert.Equal(t, strategy.Signal{}, s.Next(1))
}

func TestRegisterBuiltins(t *testing.T) {
	reg := strategy.NewRegistry()
	require.NoError(t, RegisterBuiltins(reg))
	assert.Equal(t, []string{"buy_and_hold", "sma_cross"}, reg.Names())

	f, err := reg.Get("sma_cross")
	require.NoError(t, err)
	a, err := f("AAA")
	require.NoError(t, err)
	b, err := f("BBB")
	require.NoError(t, err)
	assert.NotSame(t, a, b, "each instrument gets its own instance")
}
