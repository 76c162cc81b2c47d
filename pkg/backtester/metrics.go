package backtester

import (
	"math"
	"time"
)

// Window is a bounded analysis period used to slice trades and equity for
// reporting. Membership is gated on entry time only: a trade entered inside
// the window counts even if it exits after the window's end, and a trade
// entered before the window never counts. This is intentional; do not filter
// on exit time.
type Window string

const (
	Window1Y  Window = "1Y"
	Window3Y  Window = "3Y"
	Window5Y  Window = "5Y"
	WindowMax Window = "MAX"
)

// Windows returns all reporting windows in display order.
func Windows() []Window {
	return []Window{Window1Y, Window3Y, Window5Y, WindowMax}
}

// Years returns the nominal window length in years, 0 for MAX.
func (w Window) Years() int {
	switch w {
	case Window1Y:
		return 1
	case Window3Y:
		return 3
	case Window5Y:
		return 5
	default:
		return 0
	}
}

// Start returns the window start date, clipped to the first available date.
// The second return reports whether clipping occurred.
func (w Window) Start(first, last time.Time) (time.Time, bool) {
	years := w.Years()
	if years == 0 {
		return first, false
	}
	start := last.AddDate(-years, 0, 0)
	if start.Before(first) {
		return first, true
	}
	return start, false
}

// MetricsRow holds the windowed performance statistics for one scope
// (portfolio or a single symbol).
type MetricsRow struct {
	Window         Window
	WindowStart    time.Time
	WindowEnd      time.Time
	TradeCount     int
	Winners        int
	Losers         int
	NetPLPct       float64
	CAGRPct        float64
	MaxDrawdownPct float64
	ProfitFactor   float64
	WinRatePct     float64
	IRRPct         float64
}

// ProfitFactorDefined reports whether the profit factor is a real ratio
// rather than one of the sentinels (+Inf for no losing trades, NaN for a
// degenerate window).
func ProfitFactorDefined(pf float64) bool {
	return !math.IsInf(pf, 0) && !math.IsNaN(pf)
}

// ComputeAllWindows computes one MetricsRow per reporting window.
func ComputeAllWindows(trades []Trade, curve []DailyEquity) []MetricsRow {
	rows := make([]MetricsRow, 0, len(Windows()))
	for _, w := range Windows() {
		rows = append(rows, ComputeWindow(w, trades, curve))
	}
	return rows
}

// ComputeWindow computes the performance statistics for one window over a
// trade list and daily equity curve.
func ComputeWindow(w Window, trades []Trade, curve []DailyEquity) MetricsRow {
	row := MetricsRow{Window: w, ProfitFactor: math.NaN(), IRRPct: math.NaN()}
	if len(curve) == 0 {
		return row
	}

	first := curve[0].Date
	last := curve[len(curve)-1].Date
	start, clipped := w.Start(first, last)
	row.WindowStart = start
	row.WindowEnd = last

	slice := equitySince(curve, start)
	if len(slice) == 0 {
		return row
	}

	firstEq := slice[0].Equity
	lastEq := slice[len(slice)-1].Equity
	if firstEq > 0 {
		ratio := lastEq / firstEq
		row.NetPLPct = (ratio - 1) * 100

		// Unclipped fixed windows span exactly their nominal length, which
		// keeps the 1-year CAGR identical to net P&L.
		years := float64(w.Years())
		if w == WindowMax || clipped {
			years = last.Sub(start).Hours() / 24 / 365.25
		}
		if years > 0 && ratio > 0 {
			row.CAGRPct = (math.Pow(ratio, 1/years) - 1) * 100
		}
	}

	row.MaxDrawdownPct = maxDrawdownPct(slice)

	var inWindow []Trade
	for _, t := range trades {
		if !t.EntryTime.Before(start) {
			inWindow = append(inWindow, t)
		}
	}
	row.TradeCount = len(inWindow)

	var grossProfit, grossLoss float64
	for _, t := range inWindow {
		switch {
		case t.NetPnL > 0:
			row.Winners++
			grossProfit += t.NetPnL
		case t.NetPnL < 0:
			row.Losers++
			grossLoss += -t.NetPnL
		}
	}
	if row.TradeCount > 0 {
		row.WinRatePct = float64(row.Winners) / float64(row.TradeCount) * 100
	}

	// Profit factor sentinels: +Inf when there is nothing on the losing
	// side, NaN when wins exactly offset losses and the ratio carries no
	// information. Neither case is an error.
	switch {
	case row.TradeCount == 0:
		row.ProfitFactor = math.NaN()
	case grossLoss == 0:
		row.ProfitFactor = math.Inf(1)
	case grossProfit == grossLoss:
		row.ProfitFactor = math.NaN()
	default:
		row.ProfitFactor = grossProfit / grossLoss
	}

	row.IRRPct = tradeIRRPct(inWindow)
	return row
}

// ComputeSymbolWindows computes windowed metrics for a single instrument on
// its own capital track, using the same equity-based formulas as the
// portfolio so net P&L and CAGR stay consistent for 1-year windows.
func ComputeSymbolWindows(res *InstrumentResult) []MetricsRow {
	curve := make([]DailyEquity, len(res.EquityCurve))
	for i, p := range res.EquityCurve {
		curve[i] = DailyEquity{Date: dayOf(p.Timestamp), Equity: p.Value}
	}
	return ComputeAllWindows(res.Trades, curve)
}

func equitySince(curve []DailyEquity, start time.Time) []DailyEquity {
	for i, p := range curve {
		if !p.Date.Before(start) {
			return curve[i:]
		}
	}
	return nil
}

// maxDrawdownPct returns the deepest decline from a running peak, as a
// non-positive percentage.
func maxDrawdownPct(curve []DailyEquity) float64 {
	worst := 0.0
	peak := 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak <= 0 {
			continue
		}
		if dd := (p.Equity/peak - 1) * 100; dd < worst {
			worst = dd
		}
	}
	return worst
}

// cashFlow is one dated flow of the trade-level IRR computation.
type cashFlow struct {
	at     time.Time
	amount float64
}

// tradeIRRPct computes the annualized internal rate of return over the
// trades' cash flows: capital out at entry, capital back at exit. Open
// trades are already valued at the last available close, so their synthetic
// exit is the mark-to-market flow. IRR measures return on deployed capital,
// so it is expected to exceed portfolio CAGR when per-trade allocation is a
// small share of equity. Returns NaN when no rate fits.
func tradeIRRPct(trades []Trade) float64 {
	var flows []cashFlow
	for _, t := range trades {
		flows = append(flows,
			cashFlow{at: t.EntryTime, amount: -(t.Qty*t.EntryPrice + t.CommissionEntry)},
			cashFlow{at: t.ExitTime, amount: t.Qty*t.ExitPrice - t.CommissionExit},
		)
	}
	if len(flows) == 0 {
		return math.NaN()
	}

	origin := flows[0].at
	for _, f := range flows {
		if f.at.Before(origin) {
			origin = f.at
		}
	}
	npv := func(rate float64) float64 {
		total := 0.0
		for _, f := range flows {
			years := f.at.Sub(origin).Hours() / 24 / 365.25
			total += f.amount / math.Pow(1+rate, years)
		}
		return total
	}

	lo, hi := -0.9999, 10.0
	for npv(hi) > 0 && hi < 1e6 {
		hi *= 2
	}
	flo, fhi := npv(lo), npv(hi)
	if math.IsNaN(flo) || math.IsNaN(fhi) || flo*fhi > 0 {
		return math.NaN()
	}
	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		if npv(mid) > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2 * 100
}
