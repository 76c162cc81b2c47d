package examples

import (
	"github.com/minjpark/basketback/pkg/strategy"
)

// BuyAndHold enters on the first bar and never exits; the engine marks the
// position to market at the end of the data. Useful as a benchmark and for
// exercising open-trade handling.
type BuyAndHold struct {
	*strategy.BaseStrategy
}

// NewBuyAndHold creates a buy-and-hold benchmark strategy.
func NewBuyAndHold() *BuyAndHold {
	return &BuyAndHold{
		BaseStrategy: strategy.NewBaseStrategy("buy_and_hold", nil),
	}
}

// Next enters at the first opportunity and holds.
func (s *BuyAndHold) Next(i int) strategy.Signal {
	if i == 0 {
		return strategy.Signal{EnterLong: true}
	}
	return strategy.Signal{}
}
