package feed

import (
	"errors"
	"fmt"
	"math"

	"github.com/minjpark/basketback/pkg/strategy"
)

// Data integrity errors. Each is fatal for the instrument it occurs on; the
// orchestrator excludes that instrument and the batch continues.
var (
	ErrEmptySeries        = errors.New("empty bar series")
	ErrDuplicateTimestamp = errors.New("duplicate bar timestamp")
	ErrNonMonotonic       = errors.New("bar timestamps not strictly increasing")
	ErrNaNValue           = errors.New("bar contains NaN value")
	ErrMixedSymbols       = errors.New("bar series contains multiple symbols")
)

// Validate checks the invariants the engine assumes about a bar series:
// non-empty, one symbol, strictly ascending timestamps, finite OHLC.
func Validate(bars []strategy.BarData) error {
	if len(bars) == 0 {
		return ErrEmptySeries
	}
	symbol := bars[0].Symbol
	for i, bar := range bars {
		if bar.Symbol != symbol {
			return fmt.Errorf("%w: %s and %s", ErrMixedSymbols, symbol, bar.Symbol)
		}
		if hasNaN(bar) {
			return fmt.Errorf("%w: %s at %s", ErrNaNValue, symbol, bar.Timestamp.Format("2006-01-02"))
		}
		if i == 0 {
			continue
		}
		switch {
		case bar.Timestamp.Equal(bars[i-1].Timestamp):
			return fmt.Errorf("%w: %s at %s", ErrDuplicateTimestamp, symbol, bar.Timestamp.Format("2006-01-02"))
		case bar.Timestamp.Before(bars[i-1].Timestamp):
			return fmt.Errorf("%w: %s at %s", ErrNonMonotonic, symbol, bar.Timestamp.Format("2006-01-02"))
		}
	}
	return nil
}

func hasNaN(bar strategy.BarData) bool {
	for _, v := range []float64{bar.Open, bar.High, bar.Low, bar.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
