package strategy

import (
	"fmt"
	"time"
)

// BarData represents OHLCV data for a single time period
type BarData struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timeframe string
}

// Signal is the decision a strategy emits for a single bar. It is computed
// from data up to and including that bar and never references later bars.
// The zero value means "do nothing", which is also what a strategy returns
// while its indicators are still warming up.
type Signal struct {
	EnterLong     bool
	ExitLong      bool
	AddToPosition bool
	StopPrice     *float64 // optional hard stop update while a position is open
}

// StopMode selects how a protective stop price is derived.
type StopMode string

const (
	StopNone        StopMode = ""
	StopFixedPct    StopMode = "fixed_pct"
	StopATR         StopMode = "atr"
	StopTrailingPct StopMode = "trailing_pct"
	StopTrailingATR StopMode = "trailing_atr"
)

// StopSpec describes the protective stop chosen for a position. It is
// evaluated once at fill time: the ATR value is captured by the strategy at
// entry and stays fixed for the life of the position. Trailing modes
// recompute the stop price from the trailing high every bar.
type StopSpec struct {
	Mode    StopMode
	Pct     float64
	ATRMult float64
	ATR     float64
}

// LookaheadError reports a strategy reading a bar beyond the bar currently
// being processed. This is a programming error in the strategy and is
// surfaced immediately rather than clamped.
type LookaheadError struct {
	Index  int
	Cursor int
}

func (e *LookaheadError) Error() string {
	return fmt.Sprintf("strategy read bar %d while processing bar %d", e.Index, e.Cursor)
}

// History gives strategies guarded access to the bar series. The engine
// advances the cursor one bar at a time; any read past the cursor panics
// with a LookaheadError.
type History struct {
	bars   []BarData
	cursor int
}

// NewHistory wraps a bar series with no bars visible yet.
func NewHistory(bars []BarData) *History {
	return &History{bars: bars, cursor: -1}
}

// SetCursor makes bars [0..i] visible. Called by the engine only.
func (h *History) SetCursor(i int) {
	h.cursor = i
}

// Len returns the number of bars currently visible.
func (h *History) Len() int {
	return h.cursor + 1
}

// Symbol returns the instrument symbol of the underlying series.
func (h *History) Symbol() string {
	if len(h.bars) == 0 {
		return ""
	}
	return h.bars[0].Symbol
}

// Bar returns bar i. Reading past the cursor is a lookahead violation.
func (h *History) Bar(i int) BarData {
	if i > h.cursor {
		panic(&LookaheadError{Index: i, Cursor: h.cursor})
	}
	return h.bars[i]
}

// Closes returns the closes of the last n visible bars, oldest first, or nil
// when fewer than n bars are visible.
func (h *History) Closes(n int) []float64 {
	return h.window(n, func(b BarData) float64 { return b.Close })
}

// Highs returns the highs of the last n visible bars, oldest first.
func (h *History) Highs(n int) []float64 {
	return h.window(n, func(b BarData) float64 { return b.High })
}

// Lows returns the lows of the last n visible bars, oldest first.
func (h *History) Lows(n int) []float64 {
	return h.window(n, func(b BarData) float64 { return b.Low })
}

func (h *History) window(n int, field func(BarData) float64) []float64 {
	if n <= 0 || h.Len() < n {
		return nil
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = field(h.bars[h.cursor+1-n+i])
	}
	return out
}
