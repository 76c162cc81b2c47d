package backtester

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearCurve interpolates equity daily between two endpoints, inclusive.
func linearCurve(start, end time.Time, startEq, endEq float64) []DailyEquity {
	days := int(end.Sub(start).Hours()/24) + 1
	curve := make([]DailyEquity, days)
	for i := 0; i < days; i++ {
		frac := float64(i) / float64(days-1)
		curve[i] = DailyEquity{
			Date:   start.AddDate(0, 0, i),
			Equity: startEq + (endEq-startEq)*frac,
		}
	}
	return curve
}

func metricTrade(entry time.Time, entryPx, exitPx float64) Trade {
	return Trade{
		Symbol:     "TEST",
		EntryTime:  entry,
		EntryPrice: entryPx,
		ExitTime:   entry.AddDate(0, 0, 10),
		ExitPrice:  exitPx,
		Qty:        1,
		GrossPnL:   exitPx - entryPx,
		NetPnL:     exitPx - entryPx,
		ExitReason: ExitReasonSignal,
	}
}

func TestOneYearWindowCAGREqualsNetPL(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := linearCurve(start, end, 10000, 12000)

	row := ComputeWindow(Window1Y, nil, curve)
	assert.InDelta(t, 20.0, row.NetPLPct, 1e-9)
	assert.InDelta(t, 20.0, row.CAGRPct, 1e-9, "an unclipped 1Y window annualizes to itself")
	assert.Equal(t, start, row.WindowStart)
	assert.Equal(t, end, row.WindowEnd)
}

func TestMaxWindowAnnualizesByDayCount(t *testing.T) {
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := linearCurve(start, end, 10000, 14400)

	row := ComputeWindow(WindowMax, nil, curve)
	assert.InDelta(t, 44.0, row.NetPLPct, 1e-9)
	// two years at 44% total is about 20% per year
	assert.InDelta(t, 20.0, row.CAGRPct, 0.1)
	assert.Less(t, row.CAGRPct, row.NetPLPct)
}

func TestWindowStartClipsToFirstDate(t *testing.T) {
	first := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	start, clipped := Window3Y.Start(first, last)
	assert.Equal(t, first, start)
	assert.True(t, clipped)

	start, clipped = WindowMax.Start(first, last)
	assert.Equal(t, first, start)
	assert.False(t, clipped)
}

func TestWindowMembershipIsEntryGated(t *testing.T) {
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := linearCurve(start, end, 10000, 11000)

	before := metricTrade(time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC), 100, 110)
	inside := metricTrade(time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC), 100, 110)
	trades := []Trade{before, inside}

	oneYear := ComputeWindow(Window1Y, trades, curve)
	assert.Equal(t, 1, oneYear.TradeCount, "only the trade entered inside the window counts")

	max := ComputeWindow(WindowMax, trades, curve)
	assert.Equal(t, 2, max.TradeCount)
}

func TestProfitFactorSentinels(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := linearCurve(start, start.AddDate(0, 1, 0), 10000, 10000)

	t.Run("no trades", func(t *testing.T) {
		row := ComputeWindow(WindowMax, nil, curve)
		assert.True(t, math.IsNaN(row.ProfitFactor))
		assert.False(t, ProfitFactorDefined(row.ProfitFactor))
	})

	t.Run("no losers", func(t *testing.T) {
		trades := []Trade{metricTrade(start, 100, 110)}
		row := ComputeWindow(WindowMax, trades, curve)
		assert.True(t, math.IsInf(row.ProfitFactor, 1))
		assert.False(t, ProfitFactorDefined(row.ProfitFactor))
		assert.Equal(t, 100.0, row.WinRatePct)
	})

	t.Run("wins exactly offset losses", func(t *testing.T) {
		trades := []Trade{
			metricTrade(start, 1000, 2000),
			metricTrade(start, 2000, 1000),
		}
		row := ComputeWindow(WindowMax, trades, curve)
		assert.True(t, math.IsNaN(row.ProfitFactor), "a meaningless ratio is reported as undefined, not 1.0")
		assert.Equal(t, 1, row.Winners)
		assert.Equal(t, 1, row.Losers)
		assert.Equal(t, 50.0, row.WinRatePct)
	})

	t.Run("ordinary ratio", func(t *testing.T) {
		trades := []Trade{
			metricTrade(start, 100, 400),
			metricTrade(start, 100, 0),
		}
		row := ComputeWindow(WindowMax, trades, curve)
		assert.InDelta(t, 3.0, row.ProfitFactor, 1e-9)
		assert.True(t, ProfitFactorDefined(row.ProfitFactor))
	})
}

func TestMaxDrawdownFromRunningPeak(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	equities := []float64{100, 120, 90, 110}
	curve := make([]DailyEquity, len(equities))
	for i, eq := range equities {
		curve[i] = DailyEquity{Date: start.AddDate(0, 0, i), Equity: eq}
	}

	row := ComputeWindow(WindowMax, nil, curve)
	assert.InDelta(t, -25.0, row.MaxDrawdownPct, 1e-9, "deepest drop is 120 -> 90")
}

func TestTradeIRRSingleRoundTrip(t *testing.T) {
	entry := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	exit := entry.Add(365*24*time.Hour + 6*time.Hour) // exactly 365.25 days
	trade := Trade{
		Symbol:     "TEST",
		EntryTime:  entry,
		EntryPrice: 100,
		ExitTime:   exit,
		ExitPrice:  110,
		Qty:        1,
		NetPnL:     10,
		ExitReason: ExitReasonSignal,
	}
	curve := linearCurve(entry, entry.AddDate(1, 0, 1), 10000, 10010)

	row := ComputeWindow(WindowMax, []Trade{trade}, curve)
	assert.InDelta(t, 10.0, row.IRRPct, 0.05, "10% gain over one year on deployed capital")
}

func TestComputeWindowEmptyCurve(t *testing.T) {
	row := ComputeWindow(Window1Y, nil, nil)
	assert.Zero(t, row.TradeCount)
	assert.True(t, math.IsNaN(row.ProfitFactor))
	assert.True(t, math.IsNaN(row.IRRPct))
}

func TestComputeAllWindowsOrder(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := linearCurve(start, start.AddDate(0, 2, 0), 10000, 10500)

	rows := ComputeAllWindows(nil, curve)
	require.Len(t, rows, 4)
	assert.Equal(t, []Window{Window1Y, Window3Y, Window5Y, WindowMax},
		[]Window{rows[0].Window, rows[1].Window, rows[2].Window, rows[3].Window})
}

func TestComputeSymbolWindowsUsesInstrumentTrack(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	res := &InstrumentResult{
		Symbol: "TEST",
		EquityCurve: []EquityPoint{
			{Timestamp: start, Value: 10000},
			{Timestamp: start.AddDate(0, 0, 1), Value: 10100},
		},
	}

	rows := ComputeSymbolWindows(res)
	require.Len(t, rows, 4)
	assert.InDelta(t, 1.0, rows[3].NetPLPct, 1e-9)
}
