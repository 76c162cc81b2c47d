package backtester

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/minjpark/basketback/pkg/logging"
	"github.com/minjpark/basketback/pkg/strategy"
)

// ErrNoInstruments is returned when aggregation is attempted over an empty
// result set.
var ErrNoInstruments = errors.New("no instrument results to aggregate")

// DailyEquity is one point of the portfolio equity curve. ExposurePct is the
// open notional over equity; with percentage-of-equity sizing across many
// instruments it can exceed 100, which is expected, not an error.
type DailyEquity struct {
	Date        time.Time
	Equity      float64
	ExposurePct float64
}

// PortfolioState is the capital-shared view of a whole basket run: one cash
// balance across all instruments, trades re-sized against shared equity, and
// a daily mark-to-market equity curve.
type PortfolioState struct {
	InitialCapital float64
	Cash           float64
	FinalEquity    float64
	Curve          []DailyEquity
	Trades         []Trade
}

// holding is an open portfolio position during the replay.
type holding struct {
	symbol   string
	qty      float64
	entryPx  float64
	exitDay  time.Time
	exitPx   float64
	exitComm float64
}

// Aggregate combines per-instrument results into one shared-capital
// portfolio. Trades are replayed chronologically over the union calendar of
// all instruments; sizing is re-derived from portfolio equity at each
// trade's entry date (compounding). Cash is debited once at entry and
// credited once at exit, so a trade's realized P&L affects capital exactly
// once, on its exit date, no matter how many later days are replayed.
func Aggregate(results map[string]*InstrumentResult, bars map[string][]strategy.BarData, cfg Config) (*PortfolioState, error) {
	if len(results) == 0 {
		return nil, ErrNoInstruments
	}
	logger := logging.GetLogger("portfolio")
	costs := NewCostModel(cfg)

	var trades []Trade
	for symbol, res := range results {
		if _, ok := bars[symbol]; !ok {
			return nil, fmt.Errorf("no bar data for instrument %s", symbol)
		}
		trades = append(trades, res.Trades...)
	}
	sort.Slice(trades, func(i, j int) bool {
		if !trades[i].EntryTime.Equal(trades[j].EntryTime) {
			return trades[i].EntryTime.Before(trades[j].EntryTime)
		}
		if trades[i].Symbol != trades[j].Symbol {
			return trades[i].Symbol < trades[j].Symbol
		}
		return trades[i].ExitTime.Before(trades[j].ExitTime)
	})

	days, closes := basketCalendar(bars)

	state := &PortfolioState{
		InitialCapital: cfg.InitialCapital,
		Cash:           cfg.InitialCapital,
		Curve:          make([]DailyEquity, 0, len(days)),
	}
	lastClose := make(map[string]float64)
	var open []holding
	next := 0

	for _, day := range days {
		// Exits first: a closing trade returns capital on its exit date and
		// never again.
		remaining := open[:0]
		for _, h := range open {
			if !h.exitDay.After(day) {
				state.Cash += h.qty*h.exitPx - h.exitComm
			} else {
				remaining = append(remaining, h)
			}
		}
		open = remaining

		// Entries, sized against the shared equity current at entry time.
		// Records sharing a symbol and entry time are partial exits of one
		// position; the entry is sized and debited once, and the position
		// quantity is apportioned across the exits by each record's share.
		for next < len(trades) && dayOf(trades[next].EntryTime).Equal(day) {
			group := trades[next : next+1]
			for next+len(group) < len(trades) &&
				trades[next+len(group)].Symbol == group[0].Symbol &&
				trades[next+len(group)].EntryTime.Equal(group[0].EntryTime) {
				group = trades[next : next+len(group)+1]
			}
			next += len(group)

			totalQty := 0.0
			for _, t := range group {
				totalQty += t.Qty
			}

			equityNow := state.Cash + openValue(open, lastClose)
			posQty := math.Floor(equityNow * cfg.QtyPctOfEquity / group[0].EntryPrice)
			if posQty < 1 {
				logger.Debug().Str("symbol", group[0].Symbol).Time("entry", group[0].EntryTime).Msg("Trade skipped, no capital for one share")
				continue
			}

			assigned := 0.0
			for gi, t := range group {
				qty := math.Floor(posQty * t.Qty / totalQty)
				if gi == len(group)-1 {
					qty = posQty - assigned
				}
				assigned += qty
				if qty < 1 {
					continue
				}

				pt := resizeTrade(t, qty, costs)
				state.Trades = append(state.Trades, pt)
				state.Cash -= qty*pt.EntryPrice + pt.CommissionEntry

				h := holding{
					symbol:   pt.Symbol,
					qty:      qty,
					entryPx:  pt.EntryPrice,
					exitDay:  dayOf(pt.ExitTime),
					exitPx:   pt.ExitPrice,
					exitComm: pt.CommissionExit,
				}
				if h.exitDay.Equal(day) {
					// Same-day round trip settles immediately.
					state.Cash += h.qty*h.exitPx - h.exitComm
				} else {
					open = append(open, h)
				}
			}
		}

		// Entry sizing above saw only closes through the previous day; the
		// day's own closes apply from the end-of-day mark onward.
		for symbol, px := range closes[day] {
			lastClose[symbol] = px
		}

		marketValue := openValue(open, lastClose)
		equity := state.Cash + marketValue
		exposure := 0.0
		if equity > 0 {
			exposure = marketValue / equity * 100
		}
		state.Curve = append(state.Curve, DailyEquity{Date: day, Equity: equity, ExposurePct: exposure})
	}

	if len(state.Curve) > 0 {
		state.FinalEquity = state.Curve[len(state.Curve)-1].Equity
	}
	logger.Info().
		Int("trades", len(state.Trades)).
		Int("days", len(state.Curve)).
		Float64("final_equity", state.FinalEquity).
		Msg("Portfolio aggregation completed")
	return state, nil
}

// resizeTrade rescales an instrument-track trade to the portfolio quantity.
// Per-share excursions and gross P&L scale linearly; commissions are
// recomputed on the resized notionals. Open trades keep their zero exit
// commission.
func resizeTrade(t Trade, qty float64, costs *CostModel) Trade {
	scale := qty / t.Qty
	t.GrossPnL = (t.ExitPrice - t.EntryPrice) * qty
	t.RunUp *= scale
	t.Drawdown *= scale
	t.Qty = qty
	t.CommissionEntry = costs.Commission(qty, t.EntryPrice)
	if t.ExitReason != ExitReasonOpen {
		t.CommissionExit = costs.Commission(qty, t.ExitPrice)
	}
	t.NetPnL = t.GrossPnL - t.CommissionEntry - t.CommissionExit
	return t
}

// basketCalendar builds the sorted union of calendar days across all
// instruments plus a per-day close lookup.
func basketCalendar(bars map[string][]strategy.BarData) ([]time.Time, map[time.Time]map[string]float64) {
	closes := make(map[time.Time]map[string]float64)
	for symbol, series := range bars {
		for _, bar := range series {
			day := dayOf(bar.Timestamp)
			if closes[day] == nil {
				closes[day] = make(map[string]float64)
			}
			closes[day][symbol] = bar.Close
		}
	}
	days := make([]time.Time, 0, len(closes))
	for day := range closes {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, closes
}

// openValue marks the open holdings at their last known close. A holding
// whose symbol has no prior close yet is valued at its entry price.
func openValue(open []holding, lastClose map[string]float64) float64 {
	total := 0.0
	for _, h := range open {
		px, ok := lastClose[h.symbol]
		if !ok {
			px = h.entryPx
		}
		total += h.qty * px
	}
	return total
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
