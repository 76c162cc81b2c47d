package examples

import (
	"github.com/minjpark/basketback/pkg/strategy"
)

// RegisterBuiltins adds the example strategies to the given registry.
func RegisterBuiltins(reg *strategy.Registry) error {
	if err := reg.Register("sma_cross", func(symbol string) (strategy.Strategy, error) {
		return NewSMACross(10, 50), nil
	}); err != nil {
		return err
	}
	return reg.Register("buy_and_hold", func(symbol string) (strategy.Strategy, error) {
		return NewBuyAndHold(), nil
	})
}
