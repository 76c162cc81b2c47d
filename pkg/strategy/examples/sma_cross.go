package examples

import (
	"math"

	"github.com/thrasher-corp/gct-ta/indicators"

	"github.com/minjpark/basketback/pkg/strategy"
)

// SMACross goes long when the fast SMA crosses above the slow SMA and exits
// on the reverse cross. While the trend holds it pyramids on a new lookback
// high, and every entry carries an ATR trailing stop captured at fill time.
type SMACross struct {
	*strategy.BaseStrategy
	fast      int
	slow      int
	atrPeriod int
	atrMult   float64
}

// NewSMACross creates an SMA crossover strategy with the given periods.
func NewSMACross(fast, slow int) *SMACross {
	params := map[string]interface{}{
		"fast": fast,
		"slow": slow,
	}
	return &SMACross{
		BaseStrategy: strategy.NewBaseStrategy("sma_cross", params),
		fast:         fast,
		slow:         slow,
		atrPeriod:    14,
		atrMult:      3,
	}
}

// Next computes the crossover signal for bar i. Until the slow SMA has
// enough history the strategy stays silent; no bars are skipped upstream.
func (s *SMACross) Next(i int) strategy.Signal {
	h := s.History()
	if h.Len() < s.slow+1 {
		return strategy.Signal{}
	}

	closes := h.Closes(s.slow + 1)
	fastNow := lastValue(indicators.SMA(closes[1:], s.fast))
	slowNow := lastValue(indicators.SMA(closes[1:], s.slow))
	fastPrev := lastValue(indicators.SMA(closes[:s.slow], s.fast))
	slowPrev := lastValue(indicators.SMA(closes[:s.slow], s.slow))
	if anyNaN(fastNow, slowNow, fastPrev, slowPrev) {
		return strategy.Signal{}
	}

	var sig strategy.Signal
	switch {
	case fastPrev <= slowPrev && fastNow > slowNow:
		sig.EnterLong = true
	case fastPrev >= slowPrev && fastNow < slowNow:
		sig.ExitLong = true
	case fastNow > slowNow && closes[len(closes)-1] >= maxValue(closes[:len(closes)-1]):
		sig.AddToPosition = true
	}
	return sig
}

// OnEntry attaches an ATR trailing stop to the fill. When the ATR is not
// ready yet a fixed-percent stop stands in.
func (s *SMACross) OnEntry(i int, fillPrice float64) strategy.StopSpec {
	h := s.History()
	n := s.atrPeriod + 1
	if h.Len() < n {
		return strategy.StopSpec{Mode: strategy.StopFixedPct, Pct: 0.08}
	}
	atr := lastValue(indicators.ATR(h.Highs(n), h.Lows(n), h.Closes(n), s.atrPeriod))
	if math.IsNaN(atr) || atr <= 0 {
		return strategy.StopSpec{Mode: strategy.StopFixedPct, Pct: 0.08}
	}
	return strategy.StopSpec{Mode: strategy.StopTrailingATR, ATRMult: s.atrMult, ATR: atr}
}

func lastValue(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return vals[len(vals)-1]
}

func maxValue(vals []float64) float64 {
	max := math.Inf(-1)
	for _, v := range vals {
		if v > max {
			max = v
		}
	}
	return max
}

func anyNaN(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
