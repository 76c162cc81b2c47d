package backtester

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/minjpark/basketback/pkg/feed"
	"github.com/minjpark/basketback/pkg/logging"
	"github.com/minjpark/basketback/pkg/strategy"
)

// EquityPoint represents equity at a point in time
type EquityPoint struct {
	Timestamp time.Time
	Value     float64
}

// SignalRecord is one entry of the per-bar signal log.
type SignalRecord struct {
	Index     int
	Timestamp time.Time
	Signal    strategy.Signal
}

// InstrumentResult is the output of one single-instrument backtest: closed
// trades ordered by entry time, the per-bar equity curve on the instrument's
// own capital track, and the signal log.
type InstrumentResult struct {
	Symbol      string
	Trades      []Trade
	EquityCurve []EquityPoint
	Signals     []SignalRecord
	FinalEquity float64
}

// Engine runs the bar-by-bar simulation for a single instrument. It is
// strictly sequential: the fill at bar i+1 depends on the state transition
// at bar i, so bars are never processed out of order.
type Engine struct {
	cfg    Config
	strat  strategy.Strategy
	costs  *CostModel
	logger zerolog.Logger
}

// NewEngine creates an execution engine for one instrument.
func NewEngine(strat strategy.Strategy, cfg Config) *Engine {
	return &Engine{
		cfg:    cfg,
		strat:  strat,
		costs:  NewCostModel(cfg),
		logger: logging.GetLogger("engine"),
	}
}

// pendingAction carries a signal from bar i to its fill at bar i+1's open.
type pendingAction struct {
	enter      bool
	add        bool
	exit       bool
	exitReason ExitReason
}

// Run executes the backtest over the given bar series. Entry, pyramid and
// signal-exit fills always occur at the open of the bar after the signal;
// a signal on the last bar is dropped, never queued.
func (e *Engine) Run(bars []strategy.BarData) (*InstrumentResult, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := feed.Validate(bars); err != nil {
		return nil, err
	}

	history := strategy.NewHistory(bars)
	if err := e.strat.Init(history); err != nil {
		return nil, fmt.Errorf("initialize strategy %s: %w", e.strat.Name(), err)
	}

	symbol := bars[0].Symbol
	res := &InstrumentResult{
		Symbol:      symbol,
		Trades:      make([]Trade, 0),
		EquityCurve: make([]EquityPoint, 0, len(bars)),
		Signals:     make([]SignalRecord, 0, len(bars)),
	}

	cash := e.cfg.InitialCapital
	var pos *Position
	var pending pendingAction

	for i := range bars {
		history.SetCursor(i)
		bar := bars[i]

		// Fills queued on the previous bar execute at this bar's open,
		// before any intrabar condition can fire.
		if pos != nil && pending.exit {
			price := e.costs.SellPrice(bar.Open)
			trade := e.buildTrade(bars, pos, pos.Qty, i, price, pending.exitReason)
			res.Trades = append(res.Trades, trade)
			cash += pos.Qty*price - trade.CommissionExit
			pos = nil
		}
		if pos == nil && pending.enter {
			pos, cash = e.openPosition(bars, i, cash)
		} else if pos != nil && pending.add && pos.PyramidCount < e.cfg.MaxPyramidLevels {
			cash = e.pyramid(pos, bar, cash)
		}
		pending = pendingAction{}

		// Intrabar position management, in priority order: hard stop on the
		// bar low, take-profit tiers on the bar high, then the time stop.
		// At most one exit event is recorded per bar.
		if pos != nil {
			pos.BarsHeld++
			if bar.High > pos.TrailingHigh {
				pos.TrailingHigh = bar.High
			}
			pos.refreshStop()

			if pos.StopPrice > 0 && bar.Low <= pos.StopPrice {
				price := e.costs.SellPrice(pos.StopPrice)
				trade := e.buildTrade(bars, pos, pos.Qty, i, price, ExitReasonStop)
				res.Trades = append(res.Trades, trade)
				cash += pos.Qty*price - trade.CommissionExit
				pos = nil
			} else if level := e.armedTakeProfit(pos, bar); level >= 0 {
				pos.TakeProfitDone[level] = true
				tier := e.cfg.TakeProfitLevels[level]
				target := pos.EntryPrice * (1 + tier.TargetPct)
				qty := math.Floor(pos.Qty * tier.ExitPct)
				if qty >= pos.Qty {
					qty = pos.Qty
				}
				if qty >= 1 {
					price := e.costs.SellPrice(target)
					trade := e.buildTrade(bars, pos, qty, i, price, ExitReasonTakeProfit)
					res.Trades = append(res.Trades, trade)
					cash += qty*price - trade.CommissionExit
					pos.EntryCommission -= trade.CommissionEntry
					pos.Qty -= qty
					if pos.Qty < 1 {
						pos = nil
					}
				}
			} else if e.cfg.MaxBarsHeld > 0 && pos.BarsHeld >= e.cfg.MaxBarsHeld {
				pending.exit = true
				pending.exitReason = ExitReasonTime
			}
		}

		// Ask the strategy for this bar's signal.
		sig := e.strat.Next(i)
		res.Signals = append(res.Signals, SignalRecord{Index: i, Timestamp: bar.Timestamp, Signal: sig})

		if pos != nil && sig.StopPrice != nil && *sig.StopPrice > pos.StopPrice {
			// Strategy-supplied stop updates only ever tighten.
			pos.StopPrice = *sig.StopPrice
		}

		if i+1 < len(bars) {
			if pos == nil && sig.EnterLong {
				pending.enter = true
			}
			if pos != nil {
				if sig.ExitLong {
					pending.exit = true
					pending.exitReason = ExitReasonSignal
				}
				if sig.AddToPosition && !pending.exit {
					pending.add = true
				}
			}
		} else {
			pending = pendingAction{}
		}

		// Mark to market at the close.
		equity := cash
		if pos != nil {
			equity += pos.Qty * bar.Close
		}
		res.EquityCurve = append(res.EquityCurve, EquityPoint{Timestamp: bar.Timestamp, Value: equity})
	}

	// A position still open at the end of the data becomes a synthetic open
	// trade marked to market at the last close. No exit commission applies.
	if pos != nil {
		last := bars[len(bars)-1]
		trade := e.buildTrade(bars, pos, pos.Qty, len(bars)-1, last.Close, ExitReasonOpen)
		trade.CommissionExit = 0
		trade.NetPnL = trade.GrossPnL - trade.CommissionEntry
		res.Trades = append(res.Trades, trade)
	}

	res.FinalEquity = res.EquityCurve[len(res.EquityCurve)-1].Value
	e.logger.Debug().
		Str("symbol", symbol).
		Int("bars", len(bars)).
		Int("trades", len(res.Trades)).
		Float64("final_equity", res.FinalEquity).
		Msg("Instrument backtest completed")
	return res, nil
}

// openPosition fills a queued entry at this bar's open. Sizing uses the
// equity current at entry time: floor(equity * qty_pct / fill).
func (e *Engine) openPosition(bars []strategy.BarData, i int, cash float64) (*Position, float64) {
	bar := bars[i]
	fill := e.costs.BuyPrice(bar.Open)
	qty := math.Floor(cash * e.cfg.QtyPctOfEquity / fill)
	if qty < 1 {
		e.logger.Debug().Str("symbol", bar.Symbol).Time("ts", bar.Timestamp).Msg("Entry skipped, sized below one share")
		return nil, cash
	}

	commission := e.costs.Commission(qty, fill)
	cash -= qty*fill + commission

	pos := &Position{
		Symbol:          bar.Symbol,
		Qty:             qty,
		EntryPrice:      fill,
		EntryTime:       bar.Timestamp,
		EntryIndex:      i,
		TrailingHigh:    fill,
		PyramidCount:    1,
		EntryCommission: commission,
		TakeProfitDone:  make([]bool, len(e.cfg.TakeProfitLevels)),
	}
	if stopper, ok := e.strat.(strategy.EntryStopper); ok {
		pos.Stop = stopper.OnEntry(i, fill)
	}
	pos.initStop()
	return pos, cash
}

// pyramid fills a queued add at this bar's open, sized against the equity
// current at the fill.
func (e *Engine) pyramid(pos *Position, bar strategy.BarData, cash float64) float64 {
	fill := e.costs.BuyPrice(bar.Open)
	equity := cash + pos.Qty*fill
	qty := math.Floor(equity * e.cfg.QtyPctOfEquity / fill)
	if qty < 1 {
		return cash
	}
	commission := e.costs.Commission(qty, fill)
	cash -= qty*fill + commission
	pos.addFill(qty, fill, commission)
	return cash
}

// armedTakeProfit returns the index of the lowest unhit tier whose target
// the bar high reached, or -1.
func (e *Engine) armedTakeProfit(pos *Position, bar strategy.BarData) int {
	for level, tier := range e.cfg.TakeProfitLevels {
		if pos.TakeProfitDone[level] {
			continue
		}
		if bar.High >= pos.EntryPrice*(1+tier.TargetPct) {
			return level
		}
	}
	return -1
}

// buildTrade assembles the immutable trade record for qty shares exited at
// price on bar exitIdx. Entry commission is allocated pro rata on partial
// exits.
func (e *Engine) buildTrade(bars []strategy.BarData, pos *Position, qty float64, exitIdx int, price float64, reason ExitReason) Trade {
	runUp, drawdown := excursion(bars, pos.EntryIndex, exitIdx, pos.EntryPrice, qty)
	commissionEntry := pos.EntryCommission * qty / pos.Qty
	commissionExit := e.costs.Commission(qty, price)
	gross := (price - pos.EntryPrice) * qty
	exitTime := bars[exitIdx].Timestamp

	return Trade{
		Symbol:          pos.Symbol,
		EntryTime:       pos.EntryTime,
		EntryPrice:      pos.EntryPrice,
		ExitTime:        exitTime,
		ExitPrice:       price,
		Qty:             qty,
		GrossPnL:        gross,
		CommissionEntry: commissionEntry,
		CommissionExit:  commissionExit,
		NetPnL:          gross - commissionEntry - commissionExit,
		RunUp:           runUp,
		Drawdown:        drawdown,
		HoldingDays:     int(exitTime.Sub(pos.EntryTime).Hours() / 24),
		ExitReason:      reason,
	}
}
