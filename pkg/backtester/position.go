package backtester

import (
	"time"

	"github.com/minjpark/basketback/pkg/strategy"
)

// ExitReason names the condition that closed a trade. When several
// conditions are met on the same bar the engine records the first one in
// priority order: stop, take profit, explicit signal, time stop.
type ExitReason string

const (
	ExitReasonStop       ExitReason = "stop"
	ExitReasonTakeProfit ExitReason = "take_profit"
	ExitReasonSignal     ExitReason = "signal"
	ExitReasonTime       ExitReason = "time"
	// ExitReasonOpen tags the synthetic trade materialized for a position
	// still open at the end of the data, marked to market at the last close.
	ExitReasonOpen ExitReason = "open"
)

// Position is the mutable state of one open long position. It is owned
// exclusively by the engine running that instrument: created on the first
// entry fill, mutated on every subsequent fill, reset to nil on full exit.
type Position struct {
	Symbol          string
	Qty             float64
	EntryPrice      float64 // volume-weighted average across pyramid entries
	EntryTime       time.Time
	EntryIndex      int
	StopPrice       float64
	Stop            strategy.StopSpec
	TrailingHigh    float64
	PyramidCount    int
	BarsHeld        int
	EntryCommission float64
	TakeProfitDone  []bool
}

// initStop derives the initial stop price from the stop spec at fill time.
func (p *Position) initStop() {
	switch p.Stop.Mode {
	case strategy.StopFixedPct:
		p.StopPrice = p.EntryPrice * (1 - p.Stop.Pct)
	case strategy.StopATR:
		p.StopPrice = p.EntryPrice - p.Stop.ATR*p.Stop.ATRMult
	case strategy.StopTrailingPct:
		p.StopPrice = p.TrailingHigh * (1 - p.Stop.Pct)
	case strategy.StopTrailingATR:
		p.StopPrice = p.TrailingHigh - p.Stop.ATR*p.Stop.ATRMult
	}
}

// refreshStop ratchets trailing stops after the trailing high has been
// updated. A trailing stop only ever moves up; fixed stops never move here.
func (p *Position) refreshStop() {
	var next float64
	switch p.Stop.Mode {
	case strategy.StopTrailingPct:
		next = p.TrailingHigh * (1 - p.Stop.Pct)
	case strategy.StopTrailingATR:
		next = p.TrailingHigh - p.Stop.ATR*p.Stop.ATRMult
	default:
		return
	}
	if next > p.StopPrice {
		p.StopPrice = next
	}
}

// addFill folds a pyramid entry into the position. The entry price becomes
// the quantity-weighted average of all active entries; fixed stops are
// re-derived from the new average while the ATR captured at first entry
// stays frozen.
func (p *Position) addFill(qty, price, commission float64) {
	total := p.Qty + qty
	p.EntryPrice = (p.EntryPrice*p.Qty + price*qty) / total
	p.Qty = total
	p.EntryCommission += commission
	p.PyramidCount++

	switch p.Stop.Mode {
	case strategy.StopFixedPct:
		p.StopPrice = p.EntryPrice * (1 - p.Stop.Pct)
	case strategy.StopATR:
		p.StopPrice = p.EntryPrice - p.Stop.ATR*p.Stop.ATRMult
	}
}

// Trade is the immutable record of a closed (or partially closed) position.
type Trade struct {
	Symbol          string     `json:"symbol"`
	EntryTime       time.Time  `json:"entry_time"`
	EntryPrice      float64    `json:"entry_price"`
	ExitTime        time.Time  `json:"exit_time"`
	ExitPrice       float64    `json:"exit_price"`
	Qty             float64    `json:"qty"`
	GrossPnL        float64    `json:"gross_pnl"`
	CommissionEntry float64    `json:"commission_entry"`
	CommissionExit  float64    `json:"commission_exit"`
	NetPnL          float64    `json:"net_pnl"`
	RunUp           float64    `json:"run_up"`
	Drawdown        float64    `json:"drawdown"`
	HoldingDays     int        `json:"holding_days"`
	ExitReason      ExitReason `json:"exit_reason"`
}

// excursion computes run-up and drawdown over the inclusive bar window
// [entryIdx, exitIdx] using intrabar highs and lows. The entry bar is always
// part of the window, so a same-bar entry and exit still evaluates against a
// non-empty mask. RunUp is never negative and drawdown never positive.
func excursion(bars []strategy.BarData, entryIdx, exitIdx int, entryPrice, qty float64) (runUp, drawdown float64) {
	maxHigh := bars[entryIdx].High
	minLow := bars[entryIdx].Low
	for i := entryIdx + 1; i <= exitIdx; i++ {
		if bars[i].High > maxHigh {
			maxHigh = bars[i].High
		}
		if bars[i].Low < minLow {
			minLow = bars[i].Low
		}
	}
	if up := (maxHigh - entryPrice) * qty; up > 0 {
		runUp = up
	}
	if down := (minLow - entryPrice) * qty; down < 0 {
		drawdown = down
	}
	return runUp, drawdown
}
